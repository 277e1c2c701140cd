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
package node

import (
	"time"

	"github.com/kchan139/p2p-file-sharing/peerconn"
	"github.com/kchan139/p2p-file-sharing/piecestore"
	"github.com/kchan139/p2p-file-sharing/scheduler"
	"github.com/kchan139/p2p-file-sharing/wire"
)

// requestPumpLoop drives state advancement and outbound piece_request
// generation on RequestPumpInterval, per spec §5's periodic-task table.
func (n *Node) requestPumpLoop() {
	defer n.wg.Done()
	ticker := n.clk.Ticker(n.config.RequestPumpInterval)
	defer ticker.Stop()
	for {
		select {
		case <-n.stop:
			return
		case <-ticker.C:
			n.advanceState()
			n.pumpRequests()
		}
	}
}

func (n *Node) pumpRequests() {
	n.mu.Lock()
	store := n.store
	state := n.state
	n.mu.Unlock()

	if store == nil {
		return
	}
	switch state {
	case Seeding, Stopping, PeerDiscovery:
		return
	}

	capacity := n.config.MaxParallelRequests - n.totalPendingCount()
	if capacity <= 0 {
		return
	}

	numComplete := len(store.CompletedIndices())
	numTotal := store.NumPieces()
	regime := n.selector.CurrentRegime(numComplete, numTotal)

	for _, addr := range n.peersWillingToServe() {
		if capacity <= 0 {
			return
		}
		c, ok := n.peerConn(addr)
		if !ok {
			continue
		}

		var picks []int
		if regime == scheduler.Endgame {
			picks = n.selector.SelectEndgameDuplicates(addr, store.InFlight(), n.outstandingPerPiece(), capacity)
		} else {
			candidates := n.selector.SelectForPeer(addr, store.Needed(), numComplete, numTotal, capacity)
			picks = n.claim(store, candidates)
		}

		for _, pieceID := range picks {
			if n.sendPieceRequest(c, addr, pieceID) {
				capacity--
			}
		}
	}
}

func (n *Node) claim(store *piecestore.Store, candidates []int) []int {
	out := make([]int, 0, len(candidates))
	for _, pieceID := range candidates {
		if store.Claim(pieceID) {
			out = append(out, pieceID)
		}
	}
	return out
}

func (n *Node) totalPendingCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, reqs := range n.pending {
		total += len(reqs)
	}
	return total
}

func (n *Node) outstandingPerPiece() map[int]int {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[int]int, len(n.pending))
	for pieceID, reqs := range n.pending {
		out[pieceID] = len(reqs)
	}
	return out
}

func (n *Node) sendPieceRequest(c *peerconn.Conn, addr string, pieceID int) bool {
	f, err := wire.NewPieceRequest(uint32(pieceID))
	if err != nil {
		return false
	}
	if err := c.Send(f); err != nil {
		return false
	}

	n.mu.Lock()
	n.pending[pieceID] = append(n.pending[pieceID], pendingRequest{addr: addr, sentAt: n.clk.Now()})
	n.mu.Unlock()

	n.evlog.PieceRequestSent(pieceID, addr)
	return true
}

// chokeRecomputeLoop recomputes upload slots on ChokeRecomputeInterval.
func (n *Node) chokeRecomputeLoop() {
	defer n.wg.Done()
	ticker := n.clk.Ticker(n.config.ChokeRecomputeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-n.stop:
			return
		case <-ticker.C:
			n.recomputeChokeSlots()
		}
	}
}

func (n *Node) recomputeChokeSlots() {
	n.mu.Lock()
	conns := make(map[string]*peerconn.Conn, len(n.conns))
	for addr, c := range n.conns {
		conns[addr] = c
	}
	n.mu.Unlock()

	var interested []string
	for addr, c := range conns {
		if c.PeerInterested() {
			interested = append(interested, addr)
		}
	}

	unchoke := n.choker.Recompute(interested)
	for addr, c := range conns {
		c.SetAmChoking(!unchoke[addr])
	}
}

// timeoutSweepLoop evicts piece claims that exceeded their request deadline
// on TimeoutSweepInterval.
func (n *Node) timeoutSweepLoop() {
	defer n.wg.Done()
	ticker := n.clk.Ticker(n.config.TimeoutSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-n.stop:
			return
		case <-ticker.C:
			n.sweepTimeouts()
		}
	}
}

func (n *Node) sweepTimeouts() {
	n.mu.Lock()
	store := n.store
	n.mu.Unlock()
	if store == nil {
		return
	}

	// Store.Timeouts already reset expired pieces to Missing; this Node
	// only needs to forget its own bookkeeping for them.
	expired := store.Timeouts()
	if len(expired) == 0 {
		return
	}

	n.mu.Lock()
	for _, pieceID := range expired {
		delete(n.pending, pieceID)
	}
	n.mu.Unlock()
}

// trackerHeartbeatLoop announces completed pieces to the tracker on
// TrackerHeartbeatInterval, and separately polls for peers every second
// while in PeerDiscovery (the "30s timer or M_min peers" bound of spec §4.5
// is enforced by advanceState; this just keeps get_peers requests flowing
// until one of those conditions fires).
func (n *Node) trackerHeartbeatLoop() {
	defer n.wg.Done()
	heartbeat := n.clk.Ticker(n.config.TrackerHeartbeatInterval)
	defer heartbeat.Stop()
	discovery := n.clk.Ticker(time.Second)
	defer discovery.Stop()

	for {
		select {
		case <-n.stop:
			return
		case <-heartbeat.C:
			n.announcePiecesToTracker()
		case <-discovery.C:
			if n.State() == PeerDiscovery {
				n.sendGetPeers()
			}
		}
	}
}

func (n *Node) sendGetPeers() {
	n.mu.Lock()
	tc := n.trackerConn
	n.mu.Unlock()
	if tc == nil {
		return
	}
	f, err := wire.NewGetPeers()
	if err != nil {
		return
	}
	tc.Send(f)
}

func (n *Node) announcePiecesToTracker() {
	n.mu.Lock()
	tc := n.trackerConn
	store := n.store
	n.mu.Unlock()
	if tc == nil || store == nil {
		return
	}
	indices := store.CompletedIndices()
	f, err := wire.NewUpdatePieces(indices)
	if err != nil {
		return
	}
	if err := tc.Send(f); err != nil {
		return
	}
	n.evlog.TrackerHeartbeat(len(indices))
}

func (n *Node) peersWillingToServe() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.conns))
	for addr, c := range n.conns {
		if !c.PeerChoking() {
			out = append(out, addr)
		}
	}
	return out
}

func (n *Node) peerConn(addr string) (*peerconn.Conn, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	c, ok := n.conns[addr]
	return c, ok
}
