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
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/require"
)

func TestCreditDownloadIncreasesRate(t *testing.T) {
	require := require.New(t)
	clk := clock.NewMock()
	stats := NewPeerStats(clk)

	require.Equal(float64(0), stats.DownloadRate("peer-a"))

	clk.Add(time.Second)
	stats.CreditDownload("peer-a", 1000)
	require.Greater(stats.DownloadRate("peer-a"), float64(0))
}

func TestRemoveForgetsPeer(t *testing.T) {
	require := require.New(t)
	clk := clock.NewMock()
	stats := NewPeerStats(clk)

	stats.CreditDownload("peer-a", 1000)
	require.Contains(stats.Addresses(), "peer-a")

	stats.Remove("peer-a")
	require.NotContains(stats.Addresses(), "peer-a")
}

func TestCreditUploadIsIndependentOfDownload(t *testing.T) {
	require := require.New(t)
	clk := clock.NewMock()
	stats := NewPeerStats(clk)

	clk.Add(time.Second)
	stats.CreditUpload("peer-a", 5000)
	require.Equal(float64(0), stats.DownloadRate("peer-a"))
}
