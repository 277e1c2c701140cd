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

// Package piecestore implements the piece engine (C3): a pre-allocated
// backing file, hash-verified piece writes, completion bitmap, and in-flight
// accounting with timeouts.
package piecestore

import (
	"sync"
	"time"
)

// Status is the state of a single piece. Transitions are monotonic toward
// Complete except that verification failure returns PendingVerify to
// Missing, and an in-flight deadline elapsing returns InFlight to Missing.
type Status int

// The piece state enumeration.
const (
	Missing Status = iota
	InFlight
	PendingVerify
	Complete
)

func (s Status) String() string {
	switch s {
	case Missing:
		return "missing"
	case InFlight:
		return "in_flight"
	case PendingVerify:
		return "pending_verify"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// piece holds the state for a single PieceIndex. Every mutation goes through
// the methods below, each of which acquires the piece's own lock: claim must
// be mutually exclusive across concurrent callers, per spec's invariant 1.
type piece struct {
	mu        sync.Mutex
	status    Status
	startedAt time.Time
}

// tryClaim transitions Missing->InFlight iff the piece is currently Missing.
// Returns whether the claim succeeded.
func (p *piece) tryClaim(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != Missing {
		return false
	}
	p.status = InFlight
	p.startedAt = now
	return true
}

// release transitions InFlight back to Missing. No-op for any other state.
func (p *piece) release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == InFlight {
		p.status = Missing
	}
}

// beginVerify transitions InFlight to PendingVerify, returning false if the
// piece was not InFlight (e.g. it was already released by a timeout sweep
// racing with a late submit).
func (p *piece) beginVerify() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != InFlight {
		return false
	}
	p.status = PendingVerify
	return true
}

// finishVerify transitions PendingVerify to Complete (ok=true) or back to
// Missing (ok=false).
func (p *piece) finishVerify(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != PendingVerify {
		return
	}
	if ok {
		p.status = Complete
	} else {
		p.status = Missing
	}
}

// expired reports whether p is InFlight and its deadline has elapsed, and if
// so, resets it to Missing. Mirrors the exclusion discipline of tryClaim: it
// is safe to call concurrently with submit/claim.
func (p *piece) expired(now time.Time, deadline time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != InFlight {
		return false
	}
	if now.Sub(p.startedAt) < deadline {
		return false
	}
	p.status = Missing
	return true
}

func (p *piece) currentStatus() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}
