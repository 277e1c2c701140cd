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
package scheduler

import (
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
)

// peerStat tracks one peer's reciprocity bookkeeping: exponential-window
// averages of bytes exchanged, the basis for the tit-for-tat upload-slot
// policy (see DESIGN.md).
type peerStat struct {
	mu sync.Mutex

	downloadRate float64 // EMA, bytes/sec received from this peer
	uploadRate   float64 // EMA, bytes/sec sent to this peer
	lastUpdated  time.Time
}

// emaAlpha weights the most recent sample; smaller values smooth more.
const emaAlpha = 0.3

func newPeerStat(now time.Time) *peerStat {
	return &peerStat{lastUpdated: now}
}

func (s *peerStat) creditDownload(nbytes int, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downloadRate = ema(s.downloadRate, rateSince(nbytes, s.lastUpdated, now))
	s.lastUpdated = now
}

func (s *peerStat) creditUpload(nbytes int, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploadRate = ema(s.uploadRate, rateSince(nbytes, s.lastUpdated, now))
	s.lastUpdated = now
}

func (s *peerStat) snapshot() (downloadRate, uploadRate float64, lastUpdated time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.downloadRate, s.uploadRate, s.lastUpdated
}

func rateSince(nbytes int, last, now time.Time) float64 {
	elapsed := now.Sub(last).Seconds()
	if elapsed <= 0 {
		elapsed = 1
	}
	return float64(nbytes) / elapsed
}

func ema(prev, sample float64) float64 {
	return emaAlpha*sample + (1-emaAlpha)*prev
}

// PeerStats is the Node-owned registry of per-peer reciprocity stats,
// mapping PeerAddress to a peerStat. All access is serialized by a single
// mutex per spec's shared-resource policy.
type PeerStats struct {
	mu    sync.Mutex
	clk   clock.Clock
	stats map[string]*peerStat
}

// NewPeerStats returns an empty PeerStats registry.
func NewPeerStats(clk clock.Clock) *PeerStats {
	return &PeerStats{clk: clk, stats: make(map[string]*peerStat)}
}

func (p *PeerStats) entry(addr string) *peerStat {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.stats[addr]
	if !ok {
		s = newPeerStat(p.clk.Now())
		p.stats[addr] = s
	}
	return s
}

// CreditDownload records nbytes received from addr.
func (p *PeerStats) CreditDownload(addr string, nbytes int) {
	p.entry(addr).creditDownload(nbytes, p.clk.Now())
}

// CreditUpload records nbytes sent to addr.
func (p *PeerStats) CreditUpload(addr string, nbytes int) {
	p.entry(addr).creditUpload(nbytes, p.clk.Now())
}

// DownloadRate returns addr's current EMA download rate (bytes/sec).
func (p *PeerStats) DownloadRate(addr string) float64 {
	rate, _, _ := p.entry(addr).snapshot()
	return rate
}

// Remove evicts addr's stats, e.g. on connection close.
func (p *PeerStats) Remove(addr string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.stats, addr)
}

// Addresses returns all known peer addresses.
func (p *PeerStats) Addresses() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.stats))
	for addr := range p.stats {
		out = append(out, addr)
	}
	return out
}
