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
package peerconn

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/kchan139/p2p-file-sharing/utils/memsize"
)

// BandwidthConfig configures a Limiter, applied per Conn so a single slow
// peer can be throttled without affecting the rest of a Node's unchoked
// slots.
type BandwidthConfig struct {
	EgressBitsPerSec uint64 `yaml:"egress_bits_per_sec"`

	// TokenSize defines the granularity of a token in the bucket, avoiding
	// integer overflow from mapping each bit to a token.
	TokenSize uint64 `yaml:"token_size"`

	Disable bool `yaml:"disable"`
}

func (c BandwidthConfig) applyDefaults() BandwidthConfig {
	if c.EgressBitsPerSec == 0 {
		c.EgressBitsPerSec = 600 * memsize.Mbit
	}
	if c.TokenSize == 0 {
		c.TokenSize = memsize.Mbit
	}
	return c
}

// Limiter throttles piece_response egress via a token-bucket rate limiter.
// Each Conn owns its own Limiter, so the bound applies per connection and
// a Node's total egress grows with the number of peers it serves.
type Limiter struct {
	config BandwidthConfig
	egress *rate.Limiter
}

// NewLimiter creates a Limiter from config.
func NewLimiter(config BandwidthConfig) *Limiter {
	config = config.applyDefaults()

	tps := config.EgressBitsPerSec / config.TokenSize

	return &Limiter{
		config: config,
		egress: rate.NewLimiter(rate.Limit(tps), int(tps)),
	}
}

// ReserveEgress blocks until bandwidth for nbytes is available, or returns
// an error if nbytes exceeds the limiter's burst capacity.
func (l *Limiter) ReserveEgress(nbytes int) error {
	if l.config.Disable {
		return nil
	}
	tokens := int(uint64(nbytes*8) / l.config.TokenSize)
	if tokens == 0 {
		tokens = 1
	}
	r := l.egress.ReserveN(time.Now(), tokens)
	if !r.OK() {
		return fmt.Errorf(
			"cannot reserve %s of egress bandwidth, max is %s",
			memsize.Format(uint64(nbytes)),
			memsize.BitFormat(l.config.TokenSize*uint64(l.egress.Burst())))
	}
	time.Sleep(r.Delay())
	return nil
}
