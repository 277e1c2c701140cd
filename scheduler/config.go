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

// Package scheduler implements the Scheduler component (C4): the
// piece-selection policy (random bootstrap, rarest-first, endgame) and the
// upload-slot policy (tit-for-tat plus optimistic unchoke).
package scheduler

// Config defines Scheduler configuration. Per Open Question 3 (see
// DESIGN.md), every numeric default below is exposed as configuration
// rather than hardcoded.
type Config struct {

	// PipelineDepth (P) is carried as configuration only: Node's request
	// pump does not read it and bounds in-flight piece requests with its
	// own MaxParallelRequests.
	PipelineDepth int `yaml:"pipeline_depth"`

	// RandomBootstrapThreshold (R): random-bootstrap regime applies while
	// pieces completed D < R.
	RandomBootstrapThreshold int `yaml:"random_bootstrap_threshold"`

	// EndgameThresholdFraction: endgame regime applies once progress/100 >=
	// this fraction.
	EndgameThresholdFraction float64 `yaml:"endgame_threshold_fraction"`

	// EndgameDuplication (E): number of peers to duplicate-request each
	// outstanding piece to during endgame.
	EndgameDuplication int `yaml:"endgame_duplication"`

	// MaxUnchoked (U): number of upload slots, including the optimistic one.
	MaxUnchoked int `yaml:"max_unchoked"`

	// ChokingIntervalSeconds is not read by this package or by Node, which
	// recomputes upload slots on its own ChokeRecomputeInterval.
	ChokingIntervalSeconds int `yaml:"choking_interval_s"`

	// OptimisticUnchokeRotations: number of choke-recompute ticks between
	// optimistic-unchoke slot rotations (≈30s / 10s = 3 by default).
	OptimisticUnchokeRotations int `yaml:"optimistic_unchoke_rotations"`
}

func (c Config) applyDefaults() Config {
	if c.PipelineDepth == 0 {
		c.PipelineDepth = 5
	}
	if c.RandomBootstrapThreshold == 0 {
		c.RandomBootstrapThreshold = 4
	}
	if c.EndgameThresholdFraction == 0 {
		c.EndgameThresholdFraction = 0.95
	}
	if c.EndgameDuplication == 0 {
		c.EndgameDuplication = 3
	}
	if c.MaxUnchoked == 0 {
		c.MaxUnchoked = 4
	}
	if c.ChokingIntervalSeconds == 0 {
		c.ChokingIntervalSeconds = 10
	}
	if c.OptimisticUnchokeRotations == 0 {
		c.OptimisticUnchokeRotations = 3
	}
	return c
}
