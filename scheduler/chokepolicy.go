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
	"math/rand"
	"sort"
)

// ChokePolicy implements upload-slot recomputation: tit-for-tat ranks
// interested peers by download rate and unchokes the top MaxUnchoked-1,
// reserving one rotating slot for a randomly chosen optimistic-unchoke
// candidate (see DESIGN.md Open Question 4).
type ChokePolicy struct {
	config Config
	stats  *PeerStats

	tick           int
	optimisticAddr string
}

// NewChokePolicy returns a ChokePolicy reading reciprocity data from stats.
func NewChokePolicy(config Config, stats *PeerStats) *ChokePolicy {
	return &ChokePolicy{config: config.applyDefaults(), stats: stats}
}

// Recompute returns the set of peer addresses, among interested, that
// should be unchoked on this tick. Every address not in the returned set
// should be choked. interested must list only peers currently
// PeerInterested (i.e. expressing interest in us).
func (c *ChokePolicy) Recompute(interested []string) map[string]bool {
	c.tick++

	result := make(map[string]bool, len(interested))
	if len(interested) == 0 {
		return result
	}

	sorted := make([]string, len(interested))
	copy(sorted, interested)
	sort.Slice(sorted, func(i, j int) bool {
		return c.stats.DownloadRate(sorted[i]) > c.stats.DownloadRate(sorted[j])
	})

	regularSlots := c.config.MaxUnchoked - 1
	if regularSlots < 0 {
		regularSlots = 0
	}
	if regularSlots > len(sorted) {
		regularSlots = len(sorted)
	}
	for _, addr := range sorted[:regularSlots] {
		result[addr] = true
	}

	c.rotateOptimistic(sorted, result)
	if c.optimisticAddr != "" {
		result[c.optimisticAddr] = true
	}

	return result
}

// rotateOptimistic picks a new optimistic-unchoke candidate from the pool
// of not-already-regularly-unchoked peers every OptimisticUnchokeRotations
// ticks, or immediately if the previous candidate is no longer interested.
func (c *ChokePolicy) rotateOptimistic(sorted []string, regular map[string]bool) {
	stillValid := c.optimisticAddr != "" && !regular[c.optimisticAddr] && contains(sorted, c.optimisticAddr)
	due := c.tick%c.config.OptimisticUnchokeRotations == 0

	if stillValid && !due {
		return
	}

	pool := make([]string, 0, len(sorted))
	for _, addr := range sorted {
		if !regular[addr] {
			pool = append(pool, addr)
		}
	}
	if len(pool) == 0 {
		c.optimisticAddr = ""
		return
	}
	c.optimisticAddr = pool[rand.Intn(len(pool))]
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
