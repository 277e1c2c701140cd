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
package cmd

import (
	"github.com/kchan139/p2p-file-sharing/core"
	"github.com/kchan139/p2p-file-sharing/internal/xlog"
	"github.com/kchan139/p2p-file-sharing/metrics"
	"github.com/kchan139/p2p-file-sharing/node"
	"github.com/kchan139/p2p-file-sharing/tracker"
	"github.com/kchan139/p2p-file-sharing/utils/configutil"
)

// Config aggregates every subcommand's configuration as one flat,
// per-component struct.
type Config struct {
	ZapLogging    xlog.Config         `yaml:"zap"`
	Metrics       metrics.Config      `yaml:"metrics"`
	PeerIDFactory core.PeerIDFactory  `yaml:"peer_id_factory"`
	Node          node.Config         `yaml:"node"`
	Tracker       tracker.Config      `yaml:"tracker"`
	TrackerRedis  tracker.RedisConfig `yaml:"tracker_redis"`
}

// loadConfig populates config from configFile if one was given on the
// command line; an unset --config runs every subcommand on package
// defaults, which is enough for the single-host demo harness.
func loadConfig(config *Config) {
	if configFile == "" {
		return
	}
	if err := configutil.Load(configFile, config); err != nil {
		xlog.Fatalf("load config: %s", err)
	}
}
