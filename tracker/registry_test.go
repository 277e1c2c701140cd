// Copyright (c) 2016-2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package tracker

import (
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/require"
)

func TestRegisterIsIdempotent(t *testing.T) {
	require := require.New(t)
	clk := clock.NewMock()
	r := NewRegistry(Config{}, clk)
	defer r.Close()

	r.Register("10.0.0.1:9090")
	r.Register("10.0.0.1:9090")

	view := r.GetPeers()
	require.Len(view.Peers, 1)
}

func TestUpdatePiecesIgnoresUnknownPeer(t *testing.T) {
	require := require.New(t)
	clk := clock.NewMock()
	r := NewRegistry(Config{}, clk)
	defer r.Close()

	r.UpdatePieces("10.0.0.1:9090", []int{1, 2})
	view := r.GetPeers()
	require.Empty(view.Peers)
}

func TestUpdatePiecesReplacesSet(t *testing.T) {
	require := require.New(t)
	clk := clock.NewMock()
	r := NewRegistry(Config{}, clk)
	defer r.Close()

	r.Register("10.0.0.1:9090")
	r.UpdatePieces("10.0.0.1:9090", []int{0, 1, 2})
	r.UpdatePieces("10.0.0.1:9090", []int{2})

	view := r.GetPeers()
	require.Equal([]int{2}, view.Peers[0].Pieces)
}

func TestLivenessSweepEvictsInactivePeer(t *testing.T) {
	require := require.New(t)
	clk := clock.NewMock()
	r := NewRegistry(Config{
		LivenessSweepInterval: time.Second,
		PeerInactivityTimeout: 5 * time.Second,
	}, clk)
	defer r.Close()

	r.Register("10.0.0.1:9090")
	clk.Add(10 * time.Second)

	require.Eventually(func() bool {
		return len(r.GetPeers().Peers) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestAddressesExcludesSelf(t *testing.T) {
	require := require.New(t)
	clk := clock.NewMock()
	r := NewRegistry(Config{}, clk)
	defer r.Close()

	r.Register("10.0.0.1:9090")
	r.Register("10.0.0.2:9090")

	view := r.GetPeers()
	require.ElementsMatch([]string{"10.0.0.2:9090"}, view.Addresses("10.0.0.1:9090"))
}
