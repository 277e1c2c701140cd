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
package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCurrentRegimeTransitions(t *testing.T) {
	require := require.New(t)
	cfg := Config{}.applyDefaults()
	sel := NewPieceSelector(cfg, NewAvailability())

	require.Equal(RandomBootstrap, sel.CurrentRegime(0, 100))
	require.Equal(RandomBootstrap, sel.CurrentRegime(cfg.RandomBootstrapThreshold-1, 100))
	require.Equal(RarestFirst, sel.CurrentRegime(cfg.RandomBootstrapThreshold, 100))
	require.Equal(Endgame, sel.CurrentRegime(95, 100))
}

func TestSelectForPeerOnlyReturnsPeerHeldPieces(t *testing.T) {
	require := require.New(t)
	avail := NewAvailability()
	avail.SetPeerPieces("peer-a", []int{1, 2})
	cfg := Config{}.applyDefaults()
	sel := NewPieceSelector(cfg, avail)

	got := sel.SelectForPeer("peer-a", []int{0, 1, 2, 3}, cfg.RandomBootstrapThreshold, 100, 10)
	require.ElementsMatch([]int{1, 2}, got)
}

func TestSelectForPeerRarestFirstOrdering(t *testing.T) {
	require := require.New(t)
	avail := NewAvailability()
	avail.SetPeerPieces("peer-a", []int{0, 1, 2})
	avail.SetPeerPieces("peer-b", []int{0, 1})
	avail.SetPeerPieces("peer-c", []int{0})
	cfg := Config{}.applyDefaults()
	sel := NewPieceSelector(cfg, avail)

	// piece 2 held by 1 peer, piece 1 by 2, piece 0 by 3: rarest first is
	// [2, 1, 0].
	got := sel.SelectForPeer("peer-a", []int{0, 1, 2}, cfg.RandomBootstrapThreshold, 100, 10)
	require.Equal([]int{2, 1, 0}, got)
}

func TestSelectForPeerRespectsLimit(t *testing.T) {
	require := require.New(t)
	avail := NewAvailability()
	avail.SetPeerPieces("peer-a", []int{0, 1, 2})
	cfg := Config{}.applyDefaults()
	sel := NewPieceSelector(cfg, avail)

	got := sel.SelectForPeer("peer-a", []int{0, 1, 2}, cfg.RandomBootstrapThreshold, 100, 1)
	require.Len(got, 1)
}

func TestSelectEndgameDuplicatesRespectsDuplicationCap(t *testing.T) {
	require := require.New(t)
	avail := NewAvailability()
	avail.SetPeerPieces("peer-a", []int{5, 6})
	cfg := Config{}.applyDefaults()
	sel := NewPieceSelector(cfg, avail)

	outstanding := map[int]int{5: cfg.EndgameDuplication}
	got := sel.SelectEndgameDuplicates("peer-a", []int{5, 6}, outstanding, 10)
	require.Equal([]int{6}, got)
}
