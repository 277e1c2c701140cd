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

	"github.com/stretchr/testify/require"
)

func TestSamplePeersExcludesSelf(t *testing.T) {
	require := require.New(t)
	view := SwarmView{Peers: []PeerSnapshot{
		{Address: "a", Pieces: []int{0}},
		{Address: "b", Pieces: []int{0, 1}},
	}}
	got := SamplePeers(view, 10, "a")
	require.Len(got, 1)
	require.Equal("b", got[0].Address)
}

func TestSamplePeersRespectsMax(t *testing.T) {
	require := require.New(t)
	view := SwarmView{Peers: []PeerSnapshot{
		{Address: "a", Pieces: nil},
		{Address: "b", Pieces: nil},
		{Address: "c", Pieces: nil},
	}}
	got := SamplePeers(view, 2, "")
	require.Len(got, 2)
}

func TestSamplePeersPrefersMorePieces(t *testing.T) {
	require := require.New(t)
	view := SwarmView{Peers: []PeerSnapshot{
		{Address: "sparse", Pieces: []int{0}},
		{Address: "full", Pieces: []int{0, 1, 2, 3}},
	}}
	got := SamplePeers(view, 1, "")
	require.Equal("full", got[0].Address)
}
