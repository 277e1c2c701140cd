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
	"github.com/kchan139/p2p-file-sharing/peerconn"
	"github.com/kchan139/p2p-file-sharing/wire"
)

// dispatchLoop drains c's Receiver and applies the inbound frame dispatch
// to each frame. It serves both peer links and the tracker link, since
// both speak the same wire protocol (only peer_list and get_peers
// replies are tracker-specific in practice).
func (n *Node) dispatchLoop(c *peerconn.Conn) {
	defer n.wg.Done()
	for frame := range c.Receiver() {
		if !n.handleFrame(c, frame) {
			c.Close()
			return
		}
	}
}

// handleFrame applies one inbound frame and reports whether the connection
// remains valid. Returning false causes the caller to close c.
func (n *Node) handleFrame(c *peerconn.Conn, frame *wire.Frame) bool {
	addr := c.Addr()

	switch frame.Type {
	case wire.PieceRequest:
		var p wire.PieceRequestPayload
		if err := frame.Unmarshal(&p); err != nil {
			n.logger.Errorf("node: malformed piece_request from %s: %s", addr, err)
			return false
		}
		n.servePieceRequest(c, int(p.PieceID))

	case wire.PieceResponse:
		var p wire.PieceResponsePayload
		if err := frame.Unmarshal(&p); err != nil {
			n.logger.Errorf("node: malformed piece_response from %s: %s", addr, err)
			return false
		}
		data, err := p.PieceData()
		if err != nil {
			n.logger.Errorf("node: malformed piece_response data from %s: %s", addr, err)
			return false
		}
		n.handlePieceResponse(c, int(p.PieceID), data)

	case wire.CancelRequest:
		// Advisory. This Node serves piece_request synchronously, so there
		// is no queued outbound work left to cancel by the time one
		// arrives.

	case wire.Interested:
		c.OnPeerInterested(true)
		n.recomputeChokeSlots()

	case wire.NotInterested:
		c.OnPeerInterested(false)
		n.recomputeChokeSlots()

	case wire.Choke:
		c.OnPeerChoke(true)
		n.requeuePendingFor(addr)

	case wire.Unchoke:
		c.OnPeerChoke(false)

	case wire.UpdatePieces:
		var p wire.UpdatePiecesPayload
		if err := frame.Unmarshal(&p); err != nil {
			n.logger.Errorf("node: malformed update_pieces from %s: %s", addr, err)
			return false
		}
		n.avail.SetPeerPieces(addr, toIntSlice(p.Pieces))

	case wire.PeerList:
		var p wire.PeerListPayload
		if err := frame.Unmarshal(&p); err != nil {
			n.logger.Errorf("node: malformed peer_list from %s: %s", addr, err)
			return false
		}
		n.handlePeerList(p.Peers)

	default:
		n.logger.Errorf("node: unexpected frame type %q from %s", frame.Type, addr)
		return false
	}

	return true
}

func (n *Node) handlePeerList(peers []wire.PeerEntry) {
	self := n.Addr()
	for _, p := range peers {
		if p.Address == self {
			continue
		}
		n.avail.SetPeerPieces(p.Address, toIntSlice(p.Pieces))
		n.connectToPeer(p.Address)
	}
}

func (n *Node) servePieceRequest(c *peerconn.Conn, pieceID int) {
	addr := c.Addr()

	n.mu.Lock()
	store := n.store
	n.mu.Unlock()
	if store == nil || c.AmChoking() {
		return
	}

	data, err := store.ReadPiece(pieceID)
	if err != nil {
		return
	}
	f, err := wire.NewPieceResponse(uint32(pieceID), data)
	if err != nil {
		return
	}
	if err := c.Send(f); err != nil {
		return
	}
	n.peerStats.CreditUpload(addr, len(data))
	n.evlog.PieceServed(pieceID, addr, len(data))
}

func (n *Node) handlePieceResponse(c *peerconn.Conn, pieceID int, data []byte) {
	addr := c.Addr()

	n.mu.Lock()
	reqs, ok := n.pending[pieceID]
	matched := false
	var others []string
	for _, r := range reqs {
		if r.addr == addr {
			matched = true
		} else {
			others = append(others, r.addr)
		}
	}
	if !ok || !matched {
		n.mu.Unlock()
		return
	}
	delete(n.pending, pieceID)
	store := n.store
	n.mu.Unlock()

	verified, err := store.Submit(pieceID, data)
	if err != nil {
		n.logger.Errorf("node: submit piece %d from %s: %s", pieceID, addr, err)
	}
	n.evlog.PieceReceived(pieceID, addr, len(data), verified)
	if !verified {
		return
	}

	n.peerStats.CreditDownload(addr, len(data))
	n.announcePiecesToTracker()
	n.cancelOthers(pieceID, others)
}

func (n *Node) cancelOthers(pieceID int, addrs []string) {
	if len(addrs) == 0 {
		return
	}
	f, err := wire.NewCancelRequest(uint32(pieceID))
	if err != nil {
		return
	}
	for _, addr := range addrs {
		if c, ok := n.peerConn(addr); ok {
			c.Send(f)
		}
	}
}

func (n *Node) requeuePendingFor(addr string) {
	n.mu.Lock()
	var releasePieces []int
	for pieceID, reqs := range n.pending {
		var remaining []pendingRequest
		removed := false
		for _, r := range reqs {
			if r.addr == addr {
				removed = true
			} else {
				remaining = append(remaining, r)
			}
		}
		if !removed {
			continue
		}
		if len(remaining) == 0 {
			delete(n.pending, pieceID)
			releasePieces = append(releasePieces, pieceID)
		} else {
			n.pending[pieceID] = remaining
		}
	}
	store := n.store
	n.mu.Unlock()

	if store == nil {
		return
	}
	for _, pieceID := range releasePieces {
		store.Release(pieceID)
	}
}

func toIntSlice(vs []uint32) []int {
	out := make([]int, len(vs))
	for i, v := range vs {
		out[i] = int(v)
	}
	return out
}
