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
package tracker

import "time"

// Config defines Registry and Server configuration.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`

	// LivenessSweepInterval is how often expired peers are evicted.
	LivenessSweepInterval time.Duration `yaml:"liveness_sweep_interval"`

	// PeerInactivityTimeout is how long a peer may go without a heartbeat
	// before it is evicted from the swarm view.
	PeerInactivityTimeout time.Duration `yaml:"peer_inactivity_timeout"`

	// MaxPeersReturned caps the number of peers handed out per
	// register/get_peers response, to avoid full-mesh connection storms in
	// large swarms.
	MaxPeersReturned int `yaml:"max_peers_returned"`

	// HTTPAddr, if non-empty, additionally serves a read-only admin surface
	// (/health, /peers) alongside the TCP swarm protocol.
	HTTPAddr string `yaml:"http_addr"`
}

func (c Config) applyDefaults() Config {
	if c.ListenAddr == "" {
		c.ListenAddr = "0.0.0.0:8080"
	}
	if c.LivenessSweepInterval == 0 {
		c.LivenessSweepInterval = 60 * time.Second
	}
	if c.PeerInactivityTimeout == 0 {
		c.PeerInactivityTimeout = 300 * time.Second
	}
	if c.MaxPeersReturned == 0 {
		c.MaxPeersReturned = 50
	}
	return c
}
