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

// Package tracker implements the Tracker component (C6): a single-torrent
// rendezvous service tracking which peers are alive and which pieces each
// reports holding.
package tracker

import (
	"sort"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
)

// peerView is the registry's per-peer bookkeeping: the set of pieces that
// peer last reported holding, and when it was last heard from.
type peerView struct {
	pieces   map[int]struct{}
	lastSeen time.Time
}

// Registry is the Tracker's PeerView map: a single swarm (one torrent
// per tracker instance) behind one mutex.
type Registry struct {
	config Config
	clk    clock.Clock

	mu    sync.Mutex
	peers map[string]*peerView

	stopOnce sync.Once
	stop     chan struct{}
}

// NewRegistry returns an empty Registry and starts its liveness-sweep task.
func NewRegistry(config Config, clk clock.Clock) *Registry {
	config = config.applyDefaults()
	r := &Registry{
		config: config,
		clk:    clk,
		peers:  make(map[string]*peerView),
		stop:   make(chan struct{}),
	}
	go r.sweepLoop()
	return r
}

// Close stops the liveness-sweep task.
func (r *Registry) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// Register creates address's PeerView with empty pieces if absent and
// refreshes last_seen, then returns the current swarm view. Repeated
// registration is idempotent: an existing peer's pieces are left
// untouched (only last_seen advances).
func (r *Registry) Register(address string) SwarmView {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.peers[address]
	if !ok {
		p = &peerView{pieces: make(map[int]struct{})}
		r.peers[address] = p
	}
	p.lastSeen = r.clk.Now()

	return r.snapshotLocked()
}

// UpdatePieces replaces address's piece set and refreshes last_seen.
// Unknown addresses are ignored.
func (r *Registry) UpdatePieces(address string, pieces []int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.peers[address]
	if !ok {
		return
	}
	set := make(map[int]struct{}, len(pieces))
	for _, i := range pieces {
		set[i] = struct{}{}
	}
	p.pieces = set
	p.lastSeen = r.clk.Now()
}

// Remove evicts address immediately, e.g. on an explicit `stopped` frame.
func (r *Registry) Remove(address string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.peers, address)
}

// GetPeers returns a snapshot of the swarm view.
func (r *Registry) GetPeers() SwarmView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() SwarmView {
	entries := make([]PeerSnapshot, 0, len(r.peers))
	for addr, p := range r.peers {
		pieces := make([]int, 0, len(p.pieces))
		for i := range p.pieces {
			pieces = append(pieces, i)
		}
		sort.Ints(pieces)
		entries = append(entries, PeerSnapshot{Address: addr, Pieces: pieces})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Address < entries[j].Address })
	return SwarmView{Peers: entries}
}

// sweepLoop evicts peers whose last_seen exceeds PeerInactivityTimeout,
// every LivenessSweepInterval.
func (r *Registry) sweepLoop() {
	ticker := r.clk.Ticker(r.config.LivenessSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.sweep()
		case <-r.stop:
			return
		}
	}
}

func (r *Registry) sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clk.Now()
	for addr, p := range r.peers {
		if now.Sub(p.lastSeen) > r.config.PeerInactivityTimeout {
			delete(r.peers, addr)
		}
	}
}

// PeerSnapshot is one peer's entry in a SwarmView.
type PeerSnapshot struct {
	Address string
	Pieces  []int
}

// SwarmView is a point-in-time snapshot of the registry, returned by
// Register and GetPeers.
type SwarmView struct {
	Peers []PeerSnapshot
}

// Addresses returns every peer address in the view, excluding exclude.
func (v SwarmView) Addresses(exclude string) []string {
	out := make([]string, 0, len(v.Peers))
	for _, p := range v.Peers {
		if p.Address == exclude {
			continue
		}
		out = append(out, p.Address)
	}
	return out
}
