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

// Package node implements the orchestrator owning the piece store, the
// scheduler policies, and every peer Conn (including the tracker link),
// driving the state machine and periodic activities of a single swarm
// participant.
package node

import (
	"time"

	"github.com/kchan139/p2p-file-sharing/peerconn"
	"github.com/kchan139/p2p-file-sharing/piecestore"
	"github.com/kchan139/p2p-file-sharing/scheduler"
)

// Config defines Node configuration.
type Config struct {
	ListenHost string `yaml:"listen_host"`
	ListenPort int    `yaml:"listen_port"`

	TrackerHost string `yaml:"tracker_host"`
	TrackerPort uint16 `yaml:"tracker_port"`

	OutputDir string `yaml:"output_dir"`

	// MaxParallelRequests bounds concurrent outbound piece_request frames
	// across all peers.
	MaxParallelRequests int `yaml:"max_parallel_requests"`

	// MinPeersBeforeDownload (M_min) ends PeerDiscovery once this many
	// connections are open.
	MinPeersBeforeDownload int `yaml:"min_peers_before_download"`

	RequestPumpInterval      time.Duration `yaml:"request_pump_interval"`
	ChokeRecomputeInterval   time.Duration `yaml:"choke_recompute_interval"`
	TimeoutSweepInterval     time.Duration `yaml:"timeout_sweep_interval"`
	TrackerHeartbeatInterval time.Duration `yaml:"tracker_heartbeat_interval"`
	ReconnectDelay           time.Duration `yaml:"reconnect_delay"`
	PeerDiscoveryTimeout     time.Duration `yaml:"peer_discovery_timeout"`

	Conn       peerconn.Config   `yaml:"conn"`
	PieceStore piecestore.Config `yaml:"piece_store"`
	Scheduler  scheduler.Config  `yaml:"scheduler"`
}

func (c Config) applyDefaults() Config {
	if c.ListenHost == "" {
		c.ListenHost = "0.0.0.0"
	}
	if c.TrackerHost == "" {
		c.TrackerHost = "0.0.0.0"
	}
	if c.TrackerPort == 0 {
		c.TrackerPort = 8080
	}
	if c.MaxParallelRequests == 0 {
		c.MaxParallelRequests = 16
	}
	if c.MinPeersBeforeDownload == 0 {
		c.MinPeersBeforeDownload = 3
	}
	if c.RequestPumpInterval == 0 {
		c.RequestPumpInterval = 100 * time.Millisecond
	}
	if c.ChokeRecomputeInterval == 0 {
		c.ChokeRecomputeInterval = 10 * time.Second
	}
	if c.TimeoutSweepInterval == 0 {
		c.TimeoutSweepInterval = 5 * time.Second
	}
	if c.TrackerHeartbeatInterval == 0 {
		c.TrackerHeartbeatInterval = 30 * time.Second
	}
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = 5 * time.Second
	}
	if c.PeerDiscoveryTimeout == 0 {
		c.PeerDiscoveryTimeout = 30 * time.Second
	}
	return c
}
