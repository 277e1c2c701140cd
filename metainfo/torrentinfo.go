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

// Package metainfo is the external adapter which feeds a TorrentInfo into a
// Node: it decodes bencoded torrent metafiles and parses magnet URIs. It is
// deliberately thin, per spec's Non-goals around torrent-metafile parsing.
package metainfo

import (
	"fmt"

	"github.com/kchan139/p2p-file-sharing/core"
)

// TorrentInfo is the immutable record the metainfo adapter hands to a Node.
// Once constructed it is never mutated.
type TorrentInfo struct {
	TrackerHost string   `bencode:"tracker_host"`
	TrackerPort uint16   `bencode:"tracker_port"`
	Name        string   `bencode:"name"`
	PieceLength uint32   `bencode:"piece_length"`
	Pieces      []string `bencode:"pieces"` // hex-encoded 20-byte SHA-1 digests
	Length      uint64   `bencode:"length"`
}

// NumPieces returns N = ceil(Length / PieceLength).
func (t *TorrentInfo) NumPieces() int {
	if t.PieceLength == 0 {
		return 0
	}
	n := t.Length / uint64(t.PieceLength)
	if t.Length%uint64(t.PieceLength) != 0 {
		n++
	}
	return int(n)
}

// PieceLen returns the expected length of piece i: PieceLength for all but
// the last piece, which is Length - (N-1)*PieceLength.
func (t *TorrentInfo) PieceLen(i int) uint64 {
	n := t.NumPieces()
	if i == n-1 {
		return t.Length - uint64(n-1)*uint64(t.PieceLength)
	}
	return uint64(t.PieceLength)
}

// PieceHash returns the expected SHA-1 digest for piece i.
func (t *TorrentInfo) PieceHash(i int) (core.PieceHash, error) {
	if i < 0 || i >= len(t.Pieces) {
		return core.PieceHash{}, fmt.Errorf("piece index %d out of range [0, %d)", i, len(t.Pieces))
	}
	return core.NewPieceHashFromHex(t.Pieces[i])
}

// Validate checks the internal consistency of t: the piece hash list length
// must match N, and every hash must be a well-formed 20-byte SHA-1 digest.
func (t *TorrentInfo) Validate() error {
	if t.TrackerHost == "" {
		return fmt.Errorf("metainfo: missing tracker_host")
	}
	if t.Name == "" {
		return fmt.Errorf("metainfo: missing name")
	}
	if t.PieceLength == 0 {
		return fmt.Errorf("metainfo: piece_length must be nonzero")
	}
	if t.Length == 0 {
		return fmt.Errorf("metainfo: length must be nonzero")
	}
	n := t.NumPieces()
	if len(t.Pieces) != n {
		return fmt.Errorf("metainfo: expected %d piece hashes, got %d", n, len(t.Pieces))
	}
	for i := range t.Pieces {
		if _, err := core.NewPieceHashFromHex(t.Pieces[i]); err != nil {
			return fmt.Errorf("metainfo: piece %d: %s", i, err)
		}
	}
	return nil
}
