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

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func newTestRedisRegistry(t *testing.T) *RedisRegistry {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	r, err := NewRedisRegistry(Config{PeerInactivityTimeout: 300 * time.Second}, RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	return r
}

func TestRedisRegistryRegisterThenGetPeers(t *testing.T) {
	require := require.New(t)
	r := newTestRedisRegistry(t)

	_, err := r.Register("10.0.0.1:9090")
	require.NoError(err)

	view, err := r.GetPeers()
	require.NoError(err)
	require.Len(view.Peers, 1)
	require.Equal("10.0.0.1:9090", view.Peers[0].Address)
}

func TestRedisRegistryUpdatePiecesIgnoresUnknownPeer(t *testing.T) {
	require := require.New(t)
	r := newTestRedisRegistry(t)

	require.NoError(r.UpdatePieces("10.0.0.1:9090", []int{1, 2}))

	view, err := r.GetPeers()
	require.NoError(err)
	require.Empty(view.Peers)
}

func TestRedisRegistryUpdatePiecesReplacesSet(t *testing.T) {
	require := require.New(t)
	r := newTestRedisRegistry(t)

	_, err := r.Register("10.0.0.1:9090")
	require.NoError(err)
	require.NoError(r.UpdatePieces("10.0.0.1:9090", []int{0, 1, 2}))
	require.NoError(r.UpdatePieces("10.0.0.1:9090", []int{2}))

	view, err := r.GetPeers()
	require.NoError(err)
	require.Equal([]int{2}, view.Peers[0].Pieces)
}

func TestRedisRegistryRemove(t *testing.T) {
	require := require.New(t)
	r := newTestRedisRegistry(t)

	_, err := r.Register("10.0.0.1:9090")
	require.NoError(err)
	require.NoError(r.Remove("10.0.0.1:9090"))

	view, err := r.GetPeers()
	require.NoError(err)
	require.Empty(view.Peers)
}
