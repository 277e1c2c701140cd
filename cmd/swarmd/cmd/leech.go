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
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kchan139/p2p-file-sharing/internal/xlog"
	"github.com/kchan139/p2p-file-sharing/metainfo"
	"github.com/kchan139/p2p-file-sharing/metrics"
	"github.com/kchan139/p2p-file-sharing/node"
)

var (
	leechMetafile   string
	leechOutputDir  string
	leechExitOnDone bool
)

func init() {
	leechCmd.Flags().StringVar(&leechMetafile, "torrent", "", "path to the torrent metafile to download")
	leechCmd.Flags().StringVar(&leechOutputDir, "output", ".", "directory to write the downloaded file into")
	leechCmd.Flags().BoolVar(&leechExitOnDone, "exit-on-complete", false, "exit as soon as the download finishes, instead of seeding it back")
}

var leechCmd = &cobra.Command{
	Use:   "leech",
	Short: "download a file from the swarm described by a torrent metafile",
	Run: func(cmd *cobra.Command, args []string) {
		runLeech()
	},
}

func runLeech() {
	var config Config
	loadConfig(&config)
	if err := xlog.ConfigureLogger(config.ZapLogging); err != nil {
		xlog.Fatalf("configure logging: %s", err)
	}
	if leechMetafile == "" {
		xlog.Fatalf("leech: --torrent is required")
	}

	stats, closer, err := metrics.New(config.Metrics, "swarmd-leech")
	if err != nil {
		xlog.Fatalf("init metrics: %s", err)
	}
	defer closer.Close()

	f, err := os.Open(leechMetafile)
	if err != nil {
		xlog.Fatalf("open %s: %s", leechMetafile, err)
	}
	info, err := metainfo.Decode(f)
	f.Close()
	if err != nil {
		xlog.Fatalf("decode %s: %s", leechMetafile, err)
	}

	n := newNode(config, stats)
	if err := n.ConfigurePieceStore(leechOutputDir, info); err != nil {
		xlog.Fatalf("configure piece store: %s", err)
	}

	addr, err := n.Start()
	if err != nil {
		xlog.Fatalf("start node: %s", err)
	}
	xlog.Infof("downloading %s into %s, listening on %s", info.Name, leechOutputDir, addr)

	if err := n.ConnectToTracker(info.TrackerHost, info.TrackerPort); err != nil {
		xlog.Fatalf("connect to tracker: %s", err)
	}

	waitUntilSeeding(n)
	xlog.Infof("download complete: %s", filepath.Join(leechOutputDir, info.Name))

	if !leechExitOnDone {
		waitForSignal()
	}
	xlog.Infof("leech shutting down")
	if err := n.Stop(); err != nil {
		xlog.Errorf("stop node: %s", err)
	}
}

// waitUntilSeeding polls Node.State until the download completes. The Node
// has no completion channel of its own (the request pump drives the
// transition on its own ticker); a subcommand that just wants to know when
// to print "done" has no reason to add one.
func waitUntilSeeding(n *node.Node) {
	for n.State() != node.Seeding {
		time.Sleep(200 * time.Millisecond)
	}
}
