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
	"math/rand"
	"sort"
)

// SamplePeers caps a swarm view's peers to at most max entries, excluding
// the requesting peer. Peers holding more pieces are assigned a better
// (lower) priority, matching tracker/peerhandoutpolicy's completeness
// policy: a bigger swarm should route newcomers toward well-seeded peers
// first. Ties are broken by uniform random shuffle rather than address
// order, so repeated requests don't always favor the same peers.
func SamplePeers(view SwarmView, max int, exclude string) []PeerSnapshot {
	candidates := make([]PeerSnapshot, 0, len(view.Peers))
	for _, p := range view.Peers {
		if p.Address == exclude {
			continue
		}
		candidates = append(candidates, p)
	}

	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i].Pieces) > len(candidates[j].Pieces)
	})

	if max <= 0 || max >= len(candidates) {
		return candidates
	}
	return candidates[:max]
}
