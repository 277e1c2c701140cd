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
package peerconn

import (
	"net"
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"go.uber.org/zap"

	"github.com/kchan139/p2p-file-sharing/wire"
)

type noopEvents struct{}

func (noopEvents) ConnClosed(*Conn) {}

func newConnPair(t *testing.T) (*Conn, *Conn) {
	client, server := net.Pipe()

	c1 := newConn(client, "client-side", false, Config{}.applyDefaults(), tally.NoopScope,
		clock.New(), noopEvents{}, zap.NewNop().Sugar())
	c1.setState(Open)
	c1.Start()

	c2 := Accept(server, Config{}, tally.NoopScope, clock.New(), noopEvents{}, zap.NewNop().Sugar())
	c2.Start()

	return c1, c2
}

func TestSendReceiveRoundTrip(t *testing.T) {
	require := require.New(t)
	c1, c2 := newConnPair(t)
	defer c1.Close()
	defer c2.Close()

	f, err := wire.NewPeerJoined("10.0.0.5:9090")
	require.NoError(err)
	require.NoError(c1.Send(f))

	select {
	case got := <-c2.Receiver():
		require.Equal(wire.PeerJoined, got.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
	}
}

func TestInitialFlagsStartChokedAndUninterested(t *testing.T) {
	require := require.New(t)
	c1, c2 := newConnPair(t)
	defer c1.Close()
	defer c2.Close()

	require.True(c1.AmChoking())
	require.True(c1.PeerChoking())
	require.False(c1.AmInterested())
	require.False(c1.PeerInterested())
}

func TestSetAmChokingSendsFrame(t *testing.T) {
	require := require.New(t)
	c1, c2 := newConnPair(t)
	defer c1.Close()
	defer c2.Close()

	require.NoError(c1.SetAmChoking(false))

	select {
	case got := <-c2.Receiver():
		require.Equal(wire.Unchoke, got.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for unchoke frame")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	c1, c2 := newConnPair(t)
	defer c2.Close()

	c1.Close()
	c1.Close() // must not panic or block
	require.Eventually(t, c1.IsClosed, time.Second, 10*time.Millisecond)
}

func TestSendAfterCloseFails(t *testing.T) {
	require := require.New(t)
	c1, c2 := newConnPair(t)
	defer c2.Close()

	c1.Close()
	require.Eventually(t, c1.IsClosed, time.Second, 10*time.Millisecond)

	f, err := wire.NewGetPeers()
	require.NoError(err)
	require.Error(c1.Send(f))
}

func TestOnPeerChokeUpdatesMirrorFlag(t *testing.T) {
	require := require.New(t)
	c1, _ := newConnPair(t)
	defer c1.Close()

	c1.OnPeerChoke(true)
	require.True(c1.PeerChoking())
	c1.OnPeerChoke(false)
	require.False(c1.PeerChoking())
}
