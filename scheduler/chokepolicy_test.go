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
package scheduler

import (
	"testing"

	"github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/require"
)

func TestRecomputeUnchokesTopDownloadRates(t *testing.T) {
	require := require.New(t)
	clk := clock.NewMock()
	stats := NewPeerStats(clk)

	stats.CreditDownload("fast", 1000)
	clk.Add(0)
	stats.CreditDownload("medium", 500)
	stats.CreditDownload("slow", 10)

	cfg := Config{MaxUnchoked: 2, OptimisticUnchokeRotations: 1000}.applyDefaults()
	policy := NewChokePolicy(cfg, stats)

	result := policy.Recompute([]string{"fast", "medium", "slow"})
	require.True(result["fast"])
}

func TestRecomputeReservesOneOptimisticSlot(t *testing.T) {
	require := require.New(t)
	clk := clock.NewMock()
	stats := NewPeerStats(clk)
	cfg := Config{MaxUnchoked: 1, OptimisticUnchokeRotations: 1}.applyDefaults()
	policy := NewChokePolicy(cfg, stats)

	result := policy.Recompute([]string{"a", "b", "c"})
	require.Len(result, 1)
}

func TestRecomputeEmptyInterestedYieldsEmptyResult(t *testing.T) {
	require := require.New(t)
	clk := clock.NewMock()
	stats := NewPeerStats(clk)
	cfg := Config{}.applyDefaults()
	policy := NewChokePolicy(cfg, stats)

	result := policy.Recompute(nil)
	require.Empty(result)
}
