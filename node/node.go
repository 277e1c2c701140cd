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
package node

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/uber-go/tally"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/kchan139/p2p-file-sharing/core"
	"github.com/kchan139/p2p-file-sharing/metainfo"
	"github.com/kchan139/p2p-file-sharing/peerconn"
	"github.com/kchan139/p2p-file-sharing/piecestore"
	"github.com/kchan139/p2p-file-sharing/scheduler"
	"github.com/kchan139/p2p-file-sharing/wire"
)

// pendingRequest records an outstanding piece_request this Node has sent.
type pendingRequest struct {
	addr   string
	sentAt time.Time
}

// Node orchestrates a single swarm participant: it owns the piece store, the
// scheduler policies, and every peer Conn including the tracker link, and
// drives the state machine and periodic activities.
type Node struct {
	config      Config
	localPeerID core.PeerID
	stats       tally.Scope
	clk         clock.Clock
	logger      *zap.SugaredLogger
	evlog       *EventLog

	mu                sync.Mutex
	info              *metainfo.TorrentInfo
	outputDir         string
	store             *piecestore.Store
	state             State
	addr              string
	listener          net.Listener
	conns             map[string]*peerconn.Conn
	trackerConn       *peerconn.Conn
	pending           map[int][]pendingRequest
	discoveryDeadline time.Time

	avail     *scheduler.Availability
	peerStats *scheduler.PeerStats
	selector  *scheduler.PieceSelector
	choker    *scheduler.ChokePolicy

	startOnce sync.Once
	startErr  error
	stopOnce  sync.Once
	stop      chan struct{}
	wg        sync.WaitGroup
}

// New returns an idle Node. ConfigurePieceStore (and optionally SetSeeder)
// must be called before Start.
func New(
	config Config,
	localPeerID core.PeerID,
	stats tally.Scope,
	clk clock.Clock,
	logger *zap.SugaredLogger,
	evlog *EventLog) *Node {

	config = config.applyDefaults()
	avail := scheduler.NewAvailability()
	peerStats := scheduler.NewPeerStats(clk)

	return &Node{
		config:      config,
		localPeerID: localPeerID,
		stats:       stats,
		clk:         clk,
		logger:      logger,
		evlog:       evlog,
		state:       PeerDiscovery,
		conns:       make(map[string]*peerconn.Conn),
		pending:     make(map[int][]pendingRequest),
		avail:       avail,
		peerStats:   peerStats,
		selector:    scheduler.NewPieceSelector(config.Scheduler, avail),
		choker:      scheduler.NewChokePolicy(config.Scheduler, peerStats),
		stop:        make(chan struct{}),
	}
}

// ConfigurePieceStore opens (or creates) the backing file for info at
// <outputDir>/<info.Name>, with every piece initially Missing.
func (n *Node) ConfigurePieceStore(outputDir string, info *metainfo.TorrentInfo) error {
	store, err := piecestore.New(outputDir, info, n.config.PieceStore, n.stats, n.clk, n.logger)
	if err != nil {
		return fmt.Errorf("node: configure piece store: %s", err)
	}
	n.mu.Lock()
	n.store = store
	n.info = info
	n.outputDir = outputDir
	n.mu.Unlock()
	return nil
}

// SetSeeder marks every piece Complete without I/O, for an initial seeder
// whose backing file already holds the full, correct content.
func (n *Node) SetSeeder() error {
	n.mu.Lock()
	info, outputDir := n.info, n.outputDir
	n.mu.Unlock()
	if info == nil {
		return errors.New("node: ConfigurePieceStore must be called before SetSeeder")
	}
	store, err := piecestore.NewSeeded(outputDir, info, n.config.PieceStore, n.stats, n.clk, n.logger)
	if err != nil {
		return fmt.Errorf("node: set seeder: %s", err)
	}
	n.mu.Lock()
	n.store = store
	from := n.state
	n.state = Seeding
	n.mu.Unlock()
	n.evlog.StateChanged(from.String(), Seeding.String())
	return nil
}

// Start binds a listening endpoint, begins accepting connections, and
// starts the periodic activities. Idempotent: subsequent calls return the
// address established by the first call.
func (n *Node) Start() (string, error) {
	n.startOnce.Do(func() {
		addr := fmt.Sprintf("%s:%d", n.config.ListenHost, n.config.ListenPort)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			n.startErr = fmt.Errorf("node: listen: %s", err)
			return
		}

		n.mu.Lock()
		n.listener = ln
		n.addr = ln.Addr().String()
		n.discoveryDeadline = n.clk.Now().Add(n.config.PeerDiscoveryTimeout)
		n.mu.Unlock()

		n.wg.Add(1)
		go n.acceptLoop(ln)

		n.wg.Add(4)
		go n.requestPumpLoop()
		go n.chokeRecomputeLoop()
		go n.timeoutSweepLoop()
		go n.trackerHeartbeatLoop()
	})

	n.mu.Lock()
	addr := n.addr
	n.mu.Unlock()
	return addr, n.startErr
}

// Addr returns the address established by Start, or "" if not yet started.
func (n *Node) Addr() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.addr
}

// State returns the current state-machine state.
func (n *Node) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// ConnectToTracker dials the tracker with Conn's bounded retry policy and,
// on success, announces this Node's address.
func (n *Node) ConnectToTracker(host string, port uint16) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	c, err := peerconn.Dial(addr, n.localPeerID, n.config.Conn, n.stats, n.clk, n, n.logger)
	if err != nil {
		return fmt.Errorf("node: connect to tracker: %s", err)
	}
	c.Start()

	f, err := wire.NewPeerJoined(n.addrLocked())
	if err != nil {
		c.Close()
		return err
	}
	if err := c.Send(f); err != nil {
		c.Close()
		return fmt.Errorf("node: announce to tracker: %s", err)
	}

	n.mu.Lock()
	n.trackerConn = c
	n.mu.Unlock()

	n.wg.Add(1)
	go n.dispatchLoop(c)

	return nil
}

func (n *Node) addrLocked() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.addr
}

// Stop closes every connection (sending stopped to the tracker first),
// closes the listener and piece store, and halts all periodic activities.
// Idempotent.
func (n *Node) Stop() error {
	var err error
	n.stopOnce.Do(func() {
		n.mu.Lock()
		from := n.state
		n.state = Stopping
		ln := n.listener
		tc := n.trackerConn
		conns := make([]*peerconn.Conn, 0, len(n.conns))
		for _, c := range n.conns {
			conns = append(conns, c)
		}
		store := n.store
		n.mu.Unlock()

		n.evlog.StateChanged(from.String(), Stopping.String())
		close(n.stop)

		if tc != nil {
			if f, ferr := wire.NewStopped(); ferr == nil {
				tc.Send(f)
			}
			tc.Close()
		}
		for _, c := range conns {
			c.Close()
		}
		if ln != nil {
			err = multierr.Append(err, ln.Close())
		}

		n.wg.Wait()

		if store != nil {
			err = multierr.Append(err, store.Close())
		}
	})
	return err
}

func (n *Node) acceptLoop(ln net.Listener) {
	defer n.wg.Done()
	for {
		nc, aerr := ln.Accept()
		if aerr != nil {
			select {
			case <-n.stop:
			default:
				n.logger.Errorf("node: accept error: %s", aerr)
			}
			return
		}
		c := peerconn.Accept(nc, n.config.Conn, n.stats, n.clk, n, n.logger)
		n.evlog.ConnectionAccept(c.PeerID(), c.Addr(), true)
		n.mu.Lock()
		n.conns[c.Addr()] = c
		n.mu.Unlock()
		c.Start()
		n.wg.Add(1)
		go n.dispatchLoop(c)
	}
}

func (n *Node) connectToPeer(addr string) {
	n.mu.Lock()
	_, exists := n.conns[addr]
	self := addr == n.addr
	n.mu.Unlock()
	if exists || self {
		return
	}

	c, err := peerconn.Dial(addr, n.localPeerID, n.config.Conn, n.stats, n.clk, n, n.logger)
	if err != nil {
		n.evlog.ConnectionReject(addr, false, err)
		return
	}
	n.evlog.ConnectionAccept(c.PeerID(), addr, false)

	n.mu.Lock()
	n.conns[addr] = c
	n.mu.Unlock()

	c.Start()
	n.wg.Add(1)
	go n.dispatchLoop(c)
}

// ConnClosed implements peerconn.Events, called whenever any Conn (peer or
// tracker) tears down.
func (n *Node) ConnClosed(c *peerconn.Conn) {
	addr := c.Addr()

	n.mu.Lock()
	isTracker := n.trackerConn == c
	if isTracker {
		n.trackerConn = nil
	} else if n.conns[addr] == c {
		delete(n.conns, addr)
	}
	var releasePieces []int
	for pieceID, reqs := range n.pending {
		var remaining []pendingRequest
		removed := false
		for _, r := range reqs {
			if r.addr == addr {
				removed = true
			} else {
				remaining = append(remaining, r)
			}
		}
		if !removed {
			continue
		}
		if len(remaining) == 0 {
			delete(n.pending, pieceID)
			releasePieces = append(releasePieces, pieceID)
		} else {
			n.pending[pieceID] = remaining
		}
	}
	store := n.store
	n.mu.Unlock()

	if store != nil {
		for _, pieceID := range releasePieces {
			store.Release(pieceID)
		}
	}

	if isTracker {
		n.evlog.TrackerLinkLost(errors.New("tracker connection closed"))
		n.scheduleTrackerReconnect()
		return
	}

	n.avail.RemovePeer(addr)
	n.peerStats.Remove(addr)
}

func (n *Node) scheduleTrackerReconnect() {
	select {
	case <-n.stop:
		return
	default:
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		select {
		case <-n.stop:
			return
		case <-n.clk.After(n.config.ReconnectDelay):
		}
		if err := n.ConnectToTracker(n.config.TrackerHost, n.config.TrackerPort); err != nil {
			n.logger.Errorf("node: tracker reconnect failed: %s", err)
		}
	}()
}

func (n *Node) numComplete() int {
	n.mu.Lock()
	store := n.store
	n.mu.Unlock()
	if store == nil {
		return 0
	}
	return len(store.CompletedIndices())
}

// advanceState evaluates the state-machine transitions against current
// conditions; called from the request-pump tick.
func (n *Node) advanceState() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.store == nil || n.state == Stopping {
		return
	}

	switch n.state {
	case PeerDiscovery:
		if len(n.conns) >= n.config.MinPeersBeforeDownload || !n.clk.Now().Before(n.discoveryDeadline) {
			n.transitionLocked(Downloading)
		}
	case Downloading:
		if n.store.IsComplete() {
			n.transitionLocked(Seeding)
			return
		}
		numComplete := len(n.store.CompletedIndices())
		if n.selector.CurrentRegime(numComplete, n.store.NumPieces()) == scheduler.Endgame {
			n.transitionLocked(Endgame)
		}
	case Endgame:
		if n.store.IsComplete() {
			n.transitionLocked(Seeding)
		}
	}
}

func (n *Node) transitionLocked(s State) {
	if n.state == s {
		return
	}
	from := n.state
	n.state = s
	n.evlog.StateChanged(from.String(), s.String())
}
