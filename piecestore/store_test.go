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
	"crypto/sha1"
	"os"
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"go.uber.org/zap"

	"github.com/kchan139/p2p-file-sharing/metainfo"
)

// threePieceFixture builds a T=1500, L=512, N=3 TorrentInfo (the spec's
// canonical "solo seed, solo leech" scenario) along with the plaintext
// content each piece must hash to.
func threePieceFixture(t *testing.T) (*metainfo.TorrentInfo, [][]byte) {
	piece0 := make([]byte, 512)
	piece1 := make([]byte, 512)
	piece2 := make([]byte, 476) // 1500 - 2*512
	for i := range piece0 {
		piece0[i] = 'a'
	}
	for i := range piece1 {
		piece1[i] = 'b'
	}
	for i := range piece2 {
		piece2[i] = 'c'
	}
	hashHex := func(b []byte) string {
		sum := sha1.Sum(b)
		return string(hexEncode(sum[:]))
	}
	info := &metainfo.TorrentInfo{
		TrackerHost: "tracker.local",
		TrackerPort: 8080,
		Name:        "payload.bin",
		PieceLength: 512,
		Length:      1500,
		Pieces:      []string{hashHex(piece0), hashHex(piece1), hashHex(piece2)},
	}
	require.NoError(t, info.Validate())
	return info, [][]byte{piece0, piece1, piece2}
}

func hexEncode(b []byte) []byte {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexdigits[c>>4]
		out[i*2+1] = hexdigits[c&0x0f]
	}
	return out
}

func newTestStore(t *testing.T) (*Store, *metainfo.TorrentInfo, [][]byte, clock.Clock) {
	dir := t.TempDir()
	info, pieces := threePieceFixture(t)
	clk := clock.NewMock()
	s, err := New(dir, info, Config{}, tally.NoopScope, clk, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, info, pieces, clk
}

func TestClaimIsMutuallyExclusive(t *testing.T) {
	require := require.New(t)
	s, _, _, _ := newTestStore(t)

	require.True(s.Claim(0))
	require.False(s.Claim(0))
}

func TestClaimOfCompletePieceFails(t *testing.T) {
	require := require.New(t)
	s, _, pieces, _ := newTestStore(t)

	require.True(s.Claim(0))
	ok, err := s.Submit(0, pieces[0])
	require.NoError(err)
	require.True(ok)

	require.False(s.Claim(0))
}

func TestSubmitVerifiesHashAndLength(t *testing.T) {
	require := require.New(t)
	s, _, pieces, _ := newTestStore(t)

	require.True(s.Claim(1))
	ok, err := s.Submit(1, append([]byte{}, pieces[1][:400]...))
	require.NoError(err)
	require.False(ok, "truncated data must fail verification")

	// The piece returns to Missing and can be reclaimed.
	require.True(s.Claim(1))
	ok, err = s.Submit(1, pieces[1])
	require.NoError(err)
	require.True(ok)
}

func TestSubmitCorruptedDataReturnsMissing(t *testing.T) {
	require := require.New(t)
	s, _, pieces, _ := newTestStore(t)

	corrupted := append([]byte{}, pieces[2]...)
	corrupted[0] ^= 0xFF

	require.True(s.Claim(2))
	ok, err := s.Submit(2, corrupted)
	require.NoError(err)
	require.False(ok)

	needed := s.Needed()
	require.Contains(needed, 2)
}

func TestIsCompleteAfterAllPiecesSubmitted(t *testing.T) {
	require := require.New(t)
	s, info, pieces, _ := newTestStore(t)

	for i := 0; i < info.NumPieces(); i++ {
		require.True(s.Claim(i))
		ok, err := s.Submit(i, pieces[i])
		require.NoError(err)
		require.True(ok)
	}

	require.True(s.IsComplete())
	require.Equal(float64(100), s.Progress())
}

func TestTimeoutsRequeuesInFlightPiece(t *testing.T) {
	require := require.New(t)
	s, _, _, clk := newTestStore(t)
	s.config.RequestTimeout = 10 * time.Second

	require.True(s.Claim(0))
	require.Empty(s.Timeouts())

	clk.(*clock.Mock).Add(11 * time.Second)
	require.Equal([]int{0}, s.Timeouts())

	// Piece is Missing again and reclaimable.
	require.True(s.Claim(0))
}

func TestLateSubmitAfterTimeoutStillSucceeds(t *testing.T) {
	require := require.New(t)
	s, _, pieces, clk := newTestStore(t)
	s.config.RequestTimeout = 10 * time.Second

	require.True(s.Claim(0))
	clk.(*clock.Mock).Add(11 * time.Second)
	require.Equal([]int{0}, s.Timeouts())

	// The original requester's late submit must still be accepted once the
	// piece is re-claimed (the store tolerates late but valid data).
	require.True(s.Claim(0))
	ok, err := s.Submit(0, pieces[0])
	require.NoError(err)
	require.True(ok)
}

func TestBackingFileMatchesSubmittedContent(t *testing.T) {
	require := require.New(t)
	s, info, pieces, _ := newTestStore(t)

	for i := 0; i < info.NumPieces(); i++ {
		require.True(s.Claim(i))
		ok, err := s.Submit(i, pieces[i])
		require.NoError(err)
		require.True(ok)
	}

	path := s.file.Name()
	got, err := os.ReadFile(path)
	require.NoError(err)

	want := append(append(append([]byte{}, pieces[0]...), pieces[1]...), pieces[2]...)
	require.Equal(want, got)
}

func TestNewSeededMarksAllPiecesComplete(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()
	info, _ := threePieceFixture(t)

	s, err := NewSeeded(dir, info, Config{}, tally.NoopScope, clock.NewMock(), zap.NewNop().Sugar())
	require.NoError(err)
	defer s.Close()

	require.True(s.IsComplete())
	require.False(s.Claim(0))
}
