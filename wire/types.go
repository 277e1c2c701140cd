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

// Package wire implements the peer-exchange protocol's frame codec (C1):
// length-prefixed, typed, self-describing message framing over a reliable
// byte stream.
package wire

// Type is the closed enumeration of frame types. An unrecognized Type MUST
// cause the receiver to close the connection (see peerconn).
type Type string

// The closed set of frame types.
const (
	PeerJoined     Type = "peer_joined"
	PeerList       Type = "peer_list"
	PieceRequest   Type = "piece_request"
	PieceResponse  Type = "piece_response"
	UpdatePieces   Type = "update_pieces"
	GetPeers       Type = "get_peers"
	CancelRequest  Type = "cancel_request"
	Stopped        Type = "stopped"
	Interested     Type = "interested"
	NotInterested  Type = "not_interested"
	Choke          Type = "choke"
	Unchoke        Type = "unchoke"
)

// Valid reports whether t belongs to the closed enumeration.
func (t Type) Valid() bool {
	switch t {
	case PeerJoined, PeerList, PieceRequest, PieceResponse, UpdatePieces,
		GetPeers, CancelRequest, Stopped, Interested, NotInterested, Choke, Unchoke:
		return true
	default:
		return false
	}
}

// PeerJoinedPayload is the payload of a peer_joined frame.
type PeerJoinedPayload struct {
	Address string `json:"address"`
}

// PeerEntry is one entry of a peer_list frame's peers array.
type PeerEntry struct {
	Address string   `json:"address"`
	Pieces  []uint32 `json:"pieces"`
}

// PeerListPayload is the payload of a peer_list frame.
type PeerListPayload struct {
	Peers []PeerEntry `json:"peers"`
}

// PieceRequestPayload is the payload of a piece_request frame.
type PieceRequestPayload struct {
	PieceID uint32 `json:"piece_id"`
}

// PieceResponsePayload is the payload of a piece_response frame. Data is the
// hex encoding of the piece's raw bytes, kept textual so the envelope stays
// self-describing (see DESIGN.md on the protobuf-to-JSON adaptation).
type PieceResponsePayload struct {
	PieceID uint32 `json:"piece_id"`
	Data    string `json:"data"`
}

// UpdatePiecesPayload is the payload of an update_pieces frame.
type UpdatePiecesPayload struct {
	Pieces []uint32 `json:"pieces"`
}

// CancelRequestPayload is the payload of a cancel_request frame.
type CancelRequestPayload struct {
	PieceID uint32 `json:"piece_id"`
}
