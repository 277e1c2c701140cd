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
	"github.com/andres-erbsen/clock"
	"github.com/uber-go/tally"

	"github.com/kchan139/p2p-file-sharing/core"
	"github.com/kchan139/p2p-file-sharing/internal/xlog"
	"github.com/kchan139/p2p-file-sharing/node"
)

// newNode builds an idle Node for the seed/leech subcommands, generating a
// local peer id per config.PeerIDFactory (defaulting to random, matching
// core.PeerIDFactory's own zero-value handling being invalid rather than a
// usable default).
func newNode(config Config, stats tally.Scope) *node.Node {
	factory := config.PeerIDFactory
	if factory == "" {
		factory = core.RandomPeerIDFactory
	}
	peerID, err := factory.GeneratePeerID(config.Node.ListenHost, config.Node.ListenPort)
	if err != nil {
		xlog.Fatalf("generate peer id: %s", err)
	}

	evlog := node.NewEventLog(xlog.Sugar().Desugar())
	return node.New(config.Node, peerID, stats, clock.New(), xlog.Sugar(), evlog)
}
