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

// Regime names the active piece-selection policy, reported for logging and
// tests.
type Regime int

// The three piece-selection regimes, applied in order of precedence:
// Endgame once progress crosses the threshold, otherwise RandomBootstrap
// while fewer than RandomBootstrapThreshold pieces are complete, otherwise
// RarestFirst.
const (
	RandomBootstrap Regime = iota
	RarestFirst
	Endgame
)

func (r Regime) String() string {
	switch r {
	case RandomBootstrap:
		return "random_bootstrap"
	case RarestFirst:
		return "rarest_first"
	case Endgame:
		return "endgame"
	default:
		return "unknown"
	}
}

// PieceSelector chooses which pieces to request next from a given peer,
// implementing the three regimes of spec §4.4. It is stateless aside from
// the shared Availability map; Store is the source of truth for
// missing/in-flight/complete.
type PieceSelector struct {
	config Config
	avail  *Availability
}

// NewPieceSelector returns a PieceSelector reading peer availability from
// avail.
func NewPieceSelector(config Config, avail *Availability) *PieceSelector {
	return &PieceSelector{config: config.applyDefaults(), avail: avail}
}

// CurrentRegime reports which regime applies given numComplete pieces done
// out of numTotal.
func (s *PieceSelector) CurrentRegime(numComplete, numTotal int) Regime {
	if numTotal == 0 {
		return RarestFirst
	}
	progress := float64(numComplete) / float64(numTotal)
	if progress >= s.config.EndgameThresholdFraction {
		return Endgame
	}
	if numComplete < s.config.RandomBootstrapThreshold {
		return RandomBootstrap
	}
	return RarestFirst
}

// SelectForPeer returns up to limit piece indices to request from peerAddr,
// drawn from needed (pieces currently Missing) restricted to those peerAddr
// is known to hold. The ordering within the returned slice reflects the
// active regime's preference, but callers are free to request fewer than
// limit if the in-flight pipeline is already partially full.
func (s *PieceSelector) SelectForPeer(peerAddr string, needed []int, numComplete, numTotal, limit int) []int {
	if limit <= 0 {
		return nil
	}

	candidates := make([]int, 0, len(needed))
	for _, i := range needed {
		if s.avail.HasPiece(peerAddr, i) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	switch s.CurrentRegime(numComplete, numTotal) {
	case RandomBootstrap:
		return randomSample(candidates, limit)
	default: // RarestFirst and Endgame both prefer rarest-first ordering.
		sort.Slice(candidates, func(i, j int) bool {
			ci, cj := s.avail.Count(candidates[i]), s.avail.Count(candidates[j])
			if ci != cj {
				return ci < cj
			}
			return candidates[i] < candidates[j]
		})
		if limit >= len(candidates) {
			return candidates
		}
		return candidates[:limit]
	}
}

// SelectEndgameDuplicates returns, for each piece in inFlight that peerAddr
// also holds, a request to send -- up to EndgameDuplication total
// outstanding requests per piece across all peers. The caller (Node) is
// responsible for tracking how many duplicate requests are already
// outstanding per piece and for sending cancel_request once any copy
// completes.
func (s *PieceSelector) SelectEndgameDuplicates(peerAddr string, inFlight []int, outstandingPerPiece map[int]int, limit int) []int {
	if limit <= 0 {
		return nil
	}
	var out []int
	for _, i := range inFlight {
		if len(out) >= limit {
			break
		}
		if !s.avail.HasPiece(peerAddr, i) {
			continue
		}
		if outstandingPerPiece[i] >= s.config.EndgameDuplication {
			continue
		}
		out = append(out, i)
	}
	return out
}

func randomSample(candidates []int, n int) []int {
	if n >= len(candidates) {
		out := make([]int, len(candidates))
		copy(out, candidates)
		return out
	}
	perm := rand.Perm(len(candidates))
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = candidates[perm[i]]
	}
	return out
}
