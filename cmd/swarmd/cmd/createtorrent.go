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

	"github.com/spf13/cobra"

	"github.com/kchan139/p2p-file-sharing/internal/xlog"
	"github.com/kchan139/p2p-file-sharing/metainfo"
)

var (
	ctFile        string
	ctOut         string
	ctPieceLength uint32
	ctTrackerHost string
	ctTrackerPort uint16
)

func init() {
	createTorrentCmd.Flags().StringVar(&ctFile, "file", "", "path to the file to describe")
	createTorrentCmd.Flags().StringVar(&ctOut, "out", "", "path to write the torrent metafile to")
	createTorrentCmd.Flags().Uint32Var(&ctPieceLength, "piece-length", 1<<18, "piece length in bytes")
	createTorrentCmd.Flags().StringVar(&ctTrackerHost, "tracker-host", "", "tracker host peers should announce to")
	createTorrentCmd.Flags().Uint16Var(&ctTrackerPort, "tracker-port", 8080, "tracker port peers should announce to")
}

var createTorrentCmd = &cobra.Command{
	Use:   "create-torrent",
	Short: "hash a file into a torrent metafile without joining a swarm",
	Run: func(cmd *cobra.Command, args []string) {
		runCreateTorrent()
	},
}

func runCreateTorrent() {
	if ctFile == "" || ctOut == "" || ctTrackerHost == "" {
		xlog.Fatalf("create-torrent: --file, --out, and --tracker-host are required")
	}

	info, err := metainfo.Create(ctFile, ctPieceLength, ctTrackerHost, ctTrackerPort)
	if err != nil {
		xlog.Fatalf("create metainfo: %s", err)
	}

	f, err := os.Create(ctOut)
	if err != nil {
		xlog.Fatalf("create %s: %s", ctOut, err)
	}
	defer f.Close()
	if err := metainfo.Encode(f, info); err != nil {
		xlog.Fatalf("encode metainfo: %s", err)
	}

	xlog.Infof("wrote %s (%d pieces, %d bytes)", ctOut, info.NumPieces(), info.Length)
}
