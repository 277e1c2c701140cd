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
package core

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
)

// PieceHash is the 20-byte SHA-1 digest of a single piece's content. It is
// the unit of verification the piece store checks every submitted piece
// against.
type PieceHash [20]byte

// NewPieceHashFromHex parses a PieceHash from its 40-character hex encoding.
func NewPieceHashFromHex(s string) (PieceHash, error) {
	if len(s) != 40 {
		return PieceHash{}, fmt.Errorf("invalid piece hash: expected 40 hex characters, got %d", len(s))
	}
	var h PieceHash
	n, err := hex.Decode(h[:], []byte(s))
	if err != nil {
		return PieceHash{}, fmt.Errorf("invalid hex: %s", err)
	}
	if n != 20 {
		return PieceHash{}, fmt.Errorf("invariant violation: expected 20 bytes, got %d", n)
	}
	return h, nil
}

// NewPieceHashFromBytes hashes b with SHA-1 and returns the resulting PieceHash.
func NewPieceHashFromBytes(b []byte) PieceHash {
	var h PieceHash
	sum := sha1.Sum(b)
	copy(h[:], sum[:])
	return h
}

// Bytes returns h's raw bytes.
func (h PieceHash) Bytes() []byte {
	return h[:]
}

// Hex returns h's hexadecimal encoding.
func (h PieceHash) Hex() string {
	return hex.EncodeToString(h[:])
}

func (h PieceHash) String() string {
	return h.Hex()
}

// Equal reports whether h and o are the same digest.
func (h PieceHash) Equal(o PieceHash) bool {
	return h == o
}

// PieceDigester incrementally computes the SHA-1 digest of piece data as it
// streams off the wire, so a piece can be verified without a second read
// pass over its bytes.
type PieceDigester struct {
	hash hash.Hash
}

// NewPieceDigester returns a fresh PieceDigester.
func NewPieceDigester() *PieceDigester {
	return &PieceDigester{hash: sha1.New()}
}

// Tee returns a reader which feeds everything read from r into d's running
// digest, letting the caller consume r normally while d accumulates the hash.
func (d *PieceDigester) Tee(r io.Reader) io.Reader {
	return io.TeeReader(r, d.hash)
}

// Sum returns the digest of everything written to d so far.
func (d *PieceDigester) Sum() PieceHash {
	var h PieceHash
	copy(h[:], d.hash.Sum(nil))
	return h
}
