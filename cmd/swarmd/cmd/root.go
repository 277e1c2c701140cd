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

// Package cmd implements swarmd's CLI entry points: a tracker subcommand
// running the rendezvous service, seed/leech subcommands running a Node in
// each role, and create-torrent for hashing a file into a metafile without
// joining a swarm.
package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kchan139/p2p-file-sharing/internal/xlog"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "swarmd",
	Short: "swarmd distributes a file across a swarm of peers coordinated by a tracker.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(
		&configFile, "config", "c", "", "configuration file path")

	rootCmd.AddCommand(trackerCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(leechCmd)
	rootCmd.AddCommand(createTorrentCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		xlog.Fatalf("%s", err)
	}
}

// waitForSignal blocks until the process receives SIGINT or SIGTERM, for
// the long-running tracker/seed/leech subcommands.
func waitForSignal() {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
}
