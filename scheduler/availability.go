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

import "sync"

// Availability tracks, for each piece index, which connected peers are
// known to hold it -- the basis for rarest-first selection. Entries are
// populated from peer_list and update_pieces frames, and cleared for a
// peer on disconnect.
type Availability struct {
	mu      sync.Mutex
	byPeer  map[string]map[int]struct{}
	byPiece map[int]map[string]struct{}
}

// NewAvailability returns an empty Availability tracker.
func NewAvailability() *Availability {
	return &Availability{
		byPeer:  make(map[string]map[int]struct{}),
		byPiece: make(map[int]map[string]struct{}),
	}
}

// SetPeerPieces replaces the complete set of pieces known to be held by
// addr, e.g. from a peer_list or update_pieces frame.
func (a *Availability) SetPeerPieces(addr string, indices []int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clearPeerLocked(addr)
	set := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		set[i] = struct{}{}
		a.addToPieceLocked(i, addr)
	}
	a.byPeer[addr] = set
}

// AddPeerPiece records that addr now holds piece i, leaving the peer's
// other known pieces in place.
func (a *Availability) AddPeerPiece(addr string, i int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	set, ok := a.byPeer[addr]
	if !ok {
		set = make(map[int]struct{})
		a.byPeer[addr] = set
	}
	set[i] = struct{}{}
	a.addToPieceLocked(i, addr)
}

func (a *Availability) addToPieceLocked(i int, addr string) {
	peers, ok := a.byPiece[i]
	if !ok {
		peers = make(map[string]struct{})
		a.byPiece[i] = peers
	}
	peers[addr] = struct{}{}
}

// RemovePeer forgets all pieces attributed to addr, e.g. on disconnect.
func (a *Availability) RemovePeer(addr string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clearPeerLocked(addr)
	delete(a.byPeer, addr)
}

func (a *Availability) clearPeerLocked(addr string) {
	for i := range a.byPeer[addr] {
		if peers, ok := a.byPiece[i]; ok {
			delete(peers, addr)
			if len(peers) == 0 {
				delete(a.byPiece, i)
			}
		}
	}
}

// Count returns the number of known peers holding piece i.
func (a *Availability) Count(i int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.byPiece[i])
}

// PeersFor returns the addresses of peers known to hold piece i.
func (a *Availability) PeersFor(i int) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	peers := a.byPiece[i]
	out := make([]string, 0, len(peers))
	for addr := range peers {
		out = append(out, addr)
	}
	return out
}

// HasPiece reports whether addr is known to hold piece i.
func (a *Availability) HasPiece(addr string, i int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.byPeer[addr][i]
	return ok
}
