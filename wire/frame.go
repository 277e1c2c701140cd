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
package wire

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Frame is the decoded form of one wire message: a type tag plus its
// type-specific payload, carried as raw JSON until the caller unmarshals it
// into the concrete payload struct for Type.
type Frame struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// New builds a Frame of kind t carrying payload, which must marshal to a
// JSON object (or be nil for the empty-payload frame types).
func New(t Type, payload interface{}) (*Frame, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("wire: unknown frame type %q", t)
	}
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("wire: marshal payload: %s", err)
		}
		raw = b
	} else {
		raw = json.RawMessage("{}")
	}
	return &Frame{Type: t, Payload: raw}, nil
}

// Unmarshal decodes f's payload into v, which should be a pointer to the
// payload struct matching f.Type.
func (f *Frame) Unmarshal(v interface{}) error {
	return json.Unmarshal(f.Payload, v)
}

// NewPeerJoined builds a peer_joined frame.
func NewPeerJoined(address string) (*Frame, error) {
	return New(PeerJoined, PeerJoinedPayload{Address: address})
}

// NewPeerList builds a peer_list frame.
func NewPeerList(peers []PeerEntry) (*Frame, error) {
	return New(PeerList, PeerListPayload{Peers: peers})
}

// NewPieceRequest builds a piece_request frame.
func NewPieceRequest(pieceID uint32) (*Frame, error) {
	return New(PieceRequest, PieceRequestPayload{PieceID: pieceID})
}

// NewPieceResponse builds a piece_response frame, hex-encoding data.
func NewPieceResponse(pieceID uint32, data []byte) (*Frame, error) {
	return New(PieceResponse, PieceResponsePayload{
		PieceID: pieceID,
		Data:    hex.EncodeToString(data),
	})
}

// NewUpdatePieces builds an update_pieces frame.
func NewUpdatePieces(pieces []uint32) (*Frame, error) {
	return New(UpdatePieces, UpdatePiecesPayload{Pieces: pieces})
}

// NewGetPeers builds an empty-payload get_peers frame.
func NewGetPeers() (*Frame, error) { return New(GetPeers, nil) }

// NewCancelRequest builds a cancel_request frame.
func NewCancelRequest(pieceID uint32) (*Frame, error) {
	return New(CancelRequest, CancelRequestPayload{PieceID: pieceID})
}

// NewStopped builds an empty-payload stopped frame.
func NewStopped() (*Frame, error) { return New(Stopped, nil) }

// NewInterested builds an empty-payload interested frame.
func NewInterested() (*Frame, error) { return New(Interested, nil) }

// NewNotInterested builds an empty-payload not_interested frame.
func NewNotInterested() (*Frame, error) { return New(NotInterested, nil) }

// NewChoke builds an empty-payload choke frame.
func NewChoke() (*Frame, error) { return New(Choke, nil) }

// NewUnchoke builds an empty-payload unchoke frame.
func NewUnchoke() (*Frame, error) { return New(Unchoke, nil) }

// PieceData decodes the hex-encoded Data field of a piece_response payload.
func (p PieceResponsePayload) PieceData() ([]byte, error) {
	return hex.DecodeString(p.Data)
}
