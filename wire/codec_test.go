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
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func allFrameFixtures(t *testing.T) []*Frame {
	joined, err := NewPeerJoined("10.0.0.1:9090")
	require.NoError(t, err)
	list, err := NewPeerList([]PeerEntry{{Address: "10.0.0.2:9090", Pieces: []uint32{0, 2}}})
	require.NoError(t, err)
	req, err := NewPieceRequest(3)
	require.NoError(t, err)
	resp, err := NewPieceResponse(3, []byte{0xDE, 0xAD, 0xBE, 0xEF})
	require.NoError(t, err)
	upd, err := NewUpdatePieces([]uint32{0, 1, 2})
	require.NoError(t, err)
	getPeers, err := NewGetPeers()
	require.NoError(t, err)
	cancel, err := NewCancelRequest(3)
	require.NoError(t, err)
	stopped, err := NewStopped()
	require.NoError(t, err)
	interested, err := NewInterested()
	require.NoError(t, err)
	notInterested, err := NewNotInterested()
	require.NoError(t, err)
	choke, err := NewChoke()
	require.NoError(t, err)
	unchoke, err := NewUnchoke()
	require.NoError(t, err)

	return []*Frame{joined, list, req, resp, upd, getPeers, cancel, stopped,
		interested, notInterested, choke, unchoke}
}

func TestRoundTripLaw(t *testing.T) {
	require := require.New(t)

	for _, f := range allFrameFixtures(t) {
		encoded, err := Encode(f)
		require.NoError(err)

		decoded, n, err := Decode(encoded)
		require.NoError(err)
		require.Equal(len(encoded), n)
		require.Equal(f.Type, decoded.Type)
		require.JSONEq(string(f.Payload), string(decoded.Payload))
	}
}

func TestPieceResponseHexRoundTrip(t *testing.T) {
	require := require.New(t)

	want := []byte{0x01, 0x02, 0x03, 0xFF}
	f, err := NewPieceResponse(7, want)
	require.NoError(err)

	var p PieceResponsePayload
	require.NoError(f.Unmarshal(&p))
	require.EqualValues(7, p.PieceID)

	got, err := p.PieceData()
	require.NoError(err)
	require.Equal(want, got)
}

func TestDecodeNeedMoreOnPartialLengthPrefix(t *testing.T) {
	_, _, err := Decode([]byte{0x00, 0x00})
	require.ErrorIs(t, err, ErrNeedMore)
}

func TestDecodeNeedMoreOnPartialPayload(t *testing.T) {
	f, err := NewGetPeers()
	require.NoError(t, err)
	encoded, err := Encode(f)
	require.NoError(t, err)

	_, _, err = Decode(encoded[:len(encoded)-1])
	require.ErrorIs(t, err, ErrNeedMore)
}

func TestDecodeErrorOnUnknownType(t *testing.T) {
	encoded, err := Encode(&Frame{Type: "peer_joined"})
	require.NoError(t, err)
	// Corrupt the type after encoding so the JSON is well-formed but the
	// enumeration check fails. The replacement must be the same byte length
	// as "peer_joined" so the length prefix still matches the body.
	corrupted := bytes.Replace(encoded, []byte("peer_joined"), []byte("xxxxxxxxxxx"), 1)

	_, _, err = Decode(corrupted)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNeedMore)
}

func TestDecodeErrorOnMalformedPayload(t *testing.T) {
	body := []byte(`{not json`)
	buf := make([]byte, 4+len(body))
	buf[3] = byte(len(body))
	copy(buf[4:], body)

	_, _, err := Decode(buf)
	require.Error(t, err)
}

func TestStreamingDecodeAcrossMultipleFrames(t *testing.T) {
	require := require.New(t)

	f1, _ := NewGetPeers()
	f2, _ := NewStopped()
	e1, err := Encode(f1)
	require.NoError(err)
	e2, err := Encode(f2)
	require.NoError(err)

	buf := append(append([]byte{}, e1...), e2...)

	d1, n1, err := Decode(buf)
	require.NoError(err)
	require.Equal(GetPeers, d1.Type)

	d2, n2, err := Decode(buf[n1:])
	require.NoError(err)
	require.Equal(Stopped, d2.Type)
	require.Equal(len(buf), n1+n2)
}
