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
	"github.com/spf13/cobra"

	"github.com/kchan139/p2p-file-sharing/internal/xlog"
	"github.com/kchan139/p2p-file-sharing/metrics"
	"github.com/kchan139/p2p-file-sharing/tracker"
)

var (
	trackerListenAddr string
	trackerHTTPAddr   string
	trackerUseRedis   bool
)

func init() {
	trackerCmd.Flags().StringVar(&trackerListenAddr, "listen", "", "tcp listen address (overrides config)")
	trackerCmd.Flags().StringVar(&trackerHTTPAddr, "http", "", "admin http listen address (overrides config)")
	trackerCmd.Flags().BoolVar(&trackerUseRedis, "redis", false, "back the peer registry with Redis instead of memory")
}

var trackerCmd = &cobra.Command{
	Use:   "tracker",
	Short: "run the tracker rendezvous service",
	Run: func(cmd *cobra.Command, args []string) {
		runTracker()
	},
}

func runTracker() {
	var config Config
	loadConfig(&config)
	if err := xlog.ConfigureLogger(config.ZapLogging); err != nil {
		xlog.Fatalf("configure logging: %s", err)
	}

	stats, closer, err := metrics.New(config.Metrics, "swarmd-tracker")
	if err != nil {
		xlog.Fatalf("init metrics: %s", err)
	}
	defer closer.Close()

	if trackerListenAddr != "" {
		config.Tracker.ListenAddr = trackerListenAddr
	}
	if trackerHTTPAddr != "" {
		config.Tracker.HTTPAddr = trackerHTTPAddr
	}

	var srv *tracker.Server
	if trackerUseRedis {
		srv, err = tracker.NewServerWithRedis(config.Tracker, config.TrackerRedis, stats, xlog.Sugar())
		if err != nil {
			xlog.Fatalf("init redis registry: %s", err)
		}
	} else {
		srv = tracker.NewServer(config.Tracker, stats, clock.New(), xlog.Sugar())
	}

	go func() {
		if err := srv.ListenAndServeHTTP(); err != nil {
			xlog.Errorf("tracker http server: %s", err)
		}
	}()

	go func() {
		waitForSignal()
		xlog.Infof("tracker shutting down")
		if err := srv.Close(); err != nil {
			xlog.Errorf("tracker close: %s", err)
		}
	}()

	xlog.Infof("tracker listening on %s", config.Tracker.ListenAddr)
	if err := srv.ListenAndServe(); err != nil {
		xlog.Infof("tracker stopped: %s", err)
	}
}
