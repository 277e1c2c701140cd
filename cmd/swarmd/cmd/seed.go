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

	"github.com/spf13/cobra"

	"github.com/kchan139/p2p-file-sharing/internal/xlog"
	"github.com/kchan139/p2p-file-sharing/metainfo"
	"github.com/kchan139/p2p-file-sharing/metrics"
)

var (
	seedMetafile    string
	seedFile        string
	seedPieceLength uint32
)

func init() {
	seedCmd.Flags().StringVar(&seedMetafile, "torrent", "", "path to the torrent metafile (written if it does not yet exist)")
	seedCmd.Flags().StringVar(&seedFile, "file", "", "path to the file to seed")
	seedCmd.Flags().Uint32Var(&seedPieceLength, "piece-length", 1<<18, "piece length in bytes, used only when creating a new metafile")
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "seed a complete file into the swarm, creating its torrent metafile if needed",
	Run: func(cmd *cobra.Command, args []string) {
		runSeed()
	},
}

func runSeed() {
	var config Config
	loadConfig(&config)
	if err := xlog.ConfigureLogger(config.ZapLogging); err != nil {
		xlog.Fatalf("configure logging: %s", err)
	}
	if seedFile == "" {
		xlog.Fatalf("seed: --file is required")
	}
	if seedMetafile == "" {
		xlog.Fatalf("seed: --torrent is required")
	}

	stats, closer, err := metrics.New(config.Metrics, "swarmd-seed")
	if err != nil {
		xlog.Fatalf("init metrics: %s", err)
	}
	defer closer.Close()

	info, err := loadOrCreateMetainfo(seedMetafile, seedFile, seedPieceLength, config)
	if err != nil {
		xlog.Fatalf("seed: %s", err)
	}

	n := newNode(config, stats)
	if err := n.ConfigurePieceStore(filepath.Dir(seedFile), info); err != nil {
		xlog.Fatalf("configure piece store: %s", err)
	}
	if err := n.SetSeeder(); err != nil {
		xlog.Fatalf("mark seeder: %s", err)
	}

	addr, err := n.Start()
	if err != nil {
		xlog.Fatalf("start node: %s", err)
	}
	xlog.Infof("seeding %s (%d bytes, %d pieces) on %s", info.Name, info.Length, info.NumPieces(), addr)

	if err := n.ConnectToTracker(info.TrackerHost, info.TrackerPort); err != nil {
		xlog.Fatalf("connect to tracker: %s", err)
	}

	waitForSignal()
	xlog.Infof("seed shutting down")
	if err := n.Stop(); err != nil {
		xlog.Errorf("stop node: %s", err)
	}
}

// loadOrCreateMetainfo decodes metafile if it exists, else hashes file into
// a fresh TorrentInfo and writes it to metafile.
func loadOrCreateMetainfo(metafile, file string, pieceLength uint32, config Config) (*metainfo.TorrentInfo, error) {
	if _, err := os.Stat(metafile); err == nil {
		f, err := os.Open(metafile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return metainfo.Decode(f)
	}

	info, err := metainfo.Create(file, pieceLength, config.Node.TrackerHost, config.Node.TrackerPort)
	if err != nil {
		return nil, err
	}
	out, err := os.Create(metafile)
	if err != nil {
		return nil, err
	}
	defer out.Close()
	if err := metainfo.Encode(out, info); err != nil {
		return nil, err
	}
	return info, nil
}
