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
package piecestore

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"

	"github.com/andres-erbsen/clock"
	"github.com/uber-go/tally"
	"github.com/willf/bitset"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/kchan139/p2p-file-sharing/core"
	"github.com/kchan139/p2p-file-sharing/metainfo"
)

// Store is a persistent, verified store for the N fixed-size pieces of a
// single file, with concurrent in-flight accounting. It exclusively owns
// the backing file handle and the completion bitmap; buffers passed into
// Submit are moved, not aliased.
type Store struct {
	config Config
	info   *metainfo.TorrentInfo
	clk    clock.Clock
	stats  tally.Scope
	logger *zap.SugaredLogger

	file *os.File

	mu       sync.Mutex // Guards bitmap; per-piece state lives in pieces[i]'s own lock.
	bitmap   *bitset.BitSet
	numDone  *atomic.Int64
	pieces   []*piece
	numTotal int
}

// New opens (creating if necessary) the backing file at
// <outputDir>/<info.Name>, pre-allocates it to info.Length bytes, and
// returns a Store with every piece Missing.
func New(
	outputDir string,
	info *metainfo.TorrentInfo,
	config Config,
	stats tally.Scope,
	clk clock.Clock,
	logger *zap.SugaredLogger) (*Store, error) {

	config = config.applyDefaults()

	if err := info.Validate(); err != nil {
		return nil, fmt.Errorf("invalid torrent info: %s", err)
	}

	path := filepath.Join(outputDir, info.Name)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("open backing file: %s", err)
	}
	if err := f.Truncate(int64(info.Length)); err != nil {
		f.Close()
		return nil, fmt.Errorf("preallocate backing file: %s", err)
	}

	n := info.NumPieces()
	pieces := make([]*piece, n)
	for i := range pieces {
		pieces[i] = &piece{}
	}

	return &Store{
		config:   config,
		info:     info,
		clk:      clk,
		stats:    stats,
		logger:   logger,
		file:     f,
		bitmap:   bitset.New(uint(n)),
		numDone:  atomic.NewInt64(0),
		pieces:   pieces,
		numTotal: n,
	}, nil
}

// NewSeeded returns a Store whose pieces are all marked Complete without any
// I/O beyond the initial truncate/open, for use by an initial seeder (see
// Node.SetSeeder). The caller is responsible for the backing file already
// holding the full, correct content.
func NewSeeded(
	outputDir string,
	info *metainfo.TorrentInfo,
	config Config,
	stats tally.Scope,
	clk clock.Clock,
	logger *zap.SugaredLogger) (*Store, error) {

	s, err := New(outputDir, info, config, stats, clk, logger)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.pieces {
		p.status = Complete
		s.bitmap.Set(uint(i))
	}
	s.numDone.Store(int64(s.numTotal))
	return s, nil
}

// Close releases the backing file handle. In-flight Submits are allowed to
// finish; Close does not interrupt them.
func (s *Store) Close() error {
	return s.file.Close()
}

// NumPieces returns N.
func (s *Store) NumPieces() int { return s.numTotal }

// Claim is the single point that prevents duplicate work for piece_id: it
// atomically transitions Missing->InFlight and returns whether it
// succeeded. Claiming a Complete or already-InFlight piece returns false.
func (s *Store) Claim(pieceID int) bool {
	if pieceID < 0 || pieceID >= s.numTotal {
		return false
	}
	ok := s.pieces[pieceID].tryClaim(s.clk.Now())
	if ok {
		s.stats.Counter("piece_claimed").Inc(1)
	}
	return ok
}

// Release transitions an InFlight piece back to Missing, used on
// cancellation or when a peer link that owned the claim disappears.
func (s *Store) Release(pieceID int) {
	if pieceID < 0 || pieceID >= s.numTotal {
		return
	}
	s.pieces[pieceID].release()
}

// Submit verifies data against the expected SHA-1 hash and length for
// pieceID. On success it writes data at offset pieceID*L, marks the piece
// Complete, and returns true. On failure (bad hash, wrong length, or disk
// error) the piece returns to Missing and Submit returns false; disk errors
// are also returned as err so the caller can log them, per spec's I/O error
// taxonomy.
func (s *Store) Submit(pieceID int, data []byte) (bool, error) {
	if pieceID < 0 || pieceID >= s.numTotal {
		return false, fmt.Errorf("piece index %d out of range", pieceID)
	}
	p := s.pieces[pieceID]
	if !p.beginVerify() {
		return false, fmt.Errorf("piece %d is not in flight", pieceID)
	}

	expectedLen := s.info.PieceLen(pieceID)
	wantHash, err := s.info.PieceHash(pieceID)
	if err != nil {
		p.finishVerify(false)
		return false, err
	}

	if uint64(len(data)) != expectedLen {
		p.finishVerify(false)
		s.stats.Counter("piece_verify_failed").Inc(1)
		return false, nil
	}
	gotHash := core.NewPieceHashFromBytes(data)
	if !gotHash.Equal(wantHash) {
		p.finishVerify(false)
		s.stats.Counter("piece_verify_failed").Inc(1)
		return false, nil
	}

	offset := int64(pieceID) * int64(s.info.PieceLength)
	if _, err := s.file.WriteAt(data, offset); err != nil {
		p.finishVerify(false)
		return false, fmt.Errorf("write piece %d: %s", pieceID, err)
	}
	if err := s.file.Sync(); err != nil {
		p.finishVerify(false)
		return false, fmt.Errorf("flush piece %d: %s", pieceID, err)
	}

	p.finishVerify(true)
	s.mu.Lock()
	s.bitmap.Set(uint(pieceID))
	s.mu.Unlock()
	s.numDone.Add(1)
	s.stats.Counter("piece_complete").Inc(1)

	return true, nil
}

// Timeouts returns and resets to Missing the set of InFlight pieces whose
// deadline has elapsed, per Config.RequestTimeout.
func (s *Store) Timeouts() []int {
	now := s.clk.Now()
	var out []int
	for i, p := range s.pieces {
		if p.expired(now, s.config.RequestTimeout) {
			out = append(out, i)
		}
	}
	return out
}

// Needed returns the indices of all pieces currently Missing.
func (s *Store) Needed() []int {
	var out []int
	for i, p := range s.pieces {
		if p.currentStatus() == Missing {
			out = append(out, i)
		}
	}
	return out
}

// InFlight returns the indices of all pieces currently InFlight, used by the
// scheduler's endgame regime to find candidates for duplicate requests.
func (s *Store) InFlight() []int {
	var out []int
	for i, p := range s.pieces {
		if p.currentStatus() == InFlight {
			out = append(out, i)
		}
	}
	return out
}

// ReadPiece reads the committed bytes of a Complete piece, for serving
// piece_response frames.
func (s *Store) ReadPiece(pieceID int) ([]byte, error) {
	if pieceID < 0 || pieceID >= s.numTotal {
		return nil, fmt.Errorf("piece index %d out of range", pieceID)
	}
	if s.pieces[pieceID].currentStatus() != Complete {
		return nil, fmt.Errorf("piece %d is not complete", pieceID)
	}
	length := s.info.PieceLen(pieceID)
	buf := make([]byte, length)
	offset := int64(pieceID) * int64(s.info.PieceLength)
	if _, err := s.file.ReadAt(buf, offset); err != nil {
		return nil, fmt.Errorf("read piece %d: %s", pieceID, err)
	}
	return buf, nil
}

// IsComplete reports whether every piece has been verified and written.
func (s *Store) IsComplete() bool {
	return int(s.numDone.Load()) == s.numTotal
}

// Progress returns completion as a percentage in [0, 100].
func (s *Store) Progress() float64 {
	if s.numTotal == 0 {
		return 100
	}
	return 100 * float64(s.numDone.Load()) / float64(s.numTotal)
}

// Bitfield returns a copy of the completion bitmap, safe for the caller to
// retain and mutate independently of the Store.
func (s *Store) Bitfield() *bitset.BitSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bitmap.Clone()
}

// CompletedIndices returns the sorted list of Complete piece indices.
func (s *Store) CompletedIndices() []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uint32
	for i, e := s.bitmap.NextSet(0); e; i, e = s.bitmap.NextSet(i + 1) {
		out = append(out, uint32(i))
	}
	return out
}

// RandomNeeded returns up to n distinct piece indices chosen uniformly at
// random from needed, used by the scheduler's random-bootstrap regime.
func RandomNeeded(needed []int, n int) []int {
	if n >= len(needed) {
		out := make([]int, len(needed))
		copy(out, needed)
		return out
	}
	perm := rand.Perm(len(needed))
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = needed[perm[i]]
	}
	return out
}
