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

// Package peerconn implements the Connection component (C2): a per-peer
// duplex framed link with a bounded outbound queue, inbound frame dispatch,
// and a lifecycle state machine independent of the peer-protocol choke
// state.
package peerconn

import "time"

// Config defines Conn configuration.
type Config struct {

	// SendBufferSize bounds the outbound queue. Overflow is a fatal link
	// error, per spec's Send contract.
	SendBufferSize int `yaml:"send_buffer_size"`

	// DialRetries is K, the number of dial attempts before Dialing->Closed.
	DialRetries int `yaml:"dial_retries"`

	// DialBackoff is the fixed interval between dial attempts.
	DialBackoff time.Duration `yaml:"dial_backoff"`

	// DialTimeout bounds a single dial attempt.
	DialTimeout time.Duration `yaml:"dial_timeout"`

	// Bandwidth bounds this Conn's piece_response egress rate.
	Bandwidth BandwidthConfig `yaml:"bandwidth"`
}

func (c Config) applyDefaults() Config {
	if c.SendBufferSize == 0 {
		c.SendBufferSize = 64
	}
	if c.DialRetries == 0 {
		c.DialRetries = 3
	}
	if c.DialBackoff == 0 {
		c.DialBackoff = 2 * time.Second
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	return c
}
