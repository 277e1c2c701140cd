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
package metainfo

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func threePieceTorrentInfo() *TorrentInfo {
	return &TorrentInfo{
		TrackerHost: "tracker.local",
		TrackerPort: 8080,
		Name:        "payload.bin",
		PieceLength: 512,
		Length:      1500,
		Pieces: []string{
			"000000000000000000000000000000000000000a",
			"000000000000000000000000000000000000000b",
			"000000000000000000000000000000000000000c",
		},
	}
}

func TestNumPiecesAndLastPieceLength(t *testing.T) {
	require := require.New(t)

	ti := threePieceTorrentInfo()
	require.Equal(3, ti.NumPieces())
	require.EqualValues(512, ti.PieceLen(0))
	require.EqualValues(512, ti.PieceLen(1))
	require.EqualValues(476, ti.PieceLen(2)) // 1500 - 2*512
}

func TestValidateRejectsMismatchedPieceCount(t *testing.T) {
	ti := threePieceTorrentInfo()
	ti.Pieces = ti.Pieces[:2]
	require.Error(t, ti.Validate())
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	require := require.New(t)

	ti := threePieceTorrentInfo()

	var buf bytes.Buffer
	require.NoError(Encode(&buf, ti))

	decoded, err := Decode(&buf)
	require.NoError(err)
	require.Equal(ti.Name, decoded.Name)
	require.Equal(ti.Pieces, decoded.Pieces)
}

func TestParseMagnetLink(t *testing.T) {
	require := require.New(t)

	raw := "magnet:?xt=urn:btih:" + strings40('a') +
		"&dn=payload.bin&tr=http://tracker.local:8080/announce"
	m, err := ParseMagnetLink(raw)
	require.NoError(err)
	require.Equal(strings40('a'), m.InfoHash)
	require.Equal("payload.bin", m.DisplayName)
	require.Equal([]string{"http://tracker.local:8080/announce"}, m.Trackers)
	require.False(m.RequiresDHT())
}

func TestParseMagnetLinkRequiresDHTWithoutTracker(t *testing.T) {
	require := require.New(t)

	m, err := ParseMagnetLink("magnet:?xt=urn:btih:" + strings40('f'))
	require.NoError(err)
	require.True(m.RequiresDHT())
}

func TestParseMagnetLinkRejectsShortHash(t *testing.T) {
	_, err := ParseMagnetLink("magnet:?xt=urn:btih:deadbeef")
	require.Error(t, err)
}

func strings40(c byte) string {
	b := make([]byte, 40)
	for i := range b {
		b[i] = c
	}
	return string(b)
}
