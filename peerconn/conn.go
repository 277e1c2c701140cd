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
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/andres-erbsen/clock"
	"github.com/cenkalti/backoff"
	"github.com/uber-go/tally"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/kchan139/p2p-file-sharing/core"
	"github.com/kchan139/p2p-file-sharing/wire"
)

// Events lets the owning Node observe a Conn's lifecycle without the Conn
// needing a direct dependency on Node.
type Events interface {
	ConnClosed(*Conn)
}

// Conn manages duplex framed communication with a single peer. Messages are
// delivered to a Receiver channel as they arrive and enqueued via Send for
// transmission; Send never blocks.
type Conn struct {
	peerID core.PeerID
	addr   string

	config Config
	clk    clock.Clock
	stats  tally.Scope
	logger *zap.SugaredLogger

	nc net.Conn

	mu    sync.Mutex // Guards state and protocolFlags.
	state LinkState
	flags protocolFlags

	sender   chan *wire.Frame
	receiver chan *wire.Frame

	limiter *Limiter

	closed    *atomic.Bool
	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once

	events Events
}

// Dial opens an outbound connection to addr, making up to
// Config.DialRetries attempts spaced by a fixed backoff. On success, the
// returned Conn has not yet been Start-ed.
func Dial(
	addr string,
	localPeerID core.PeerID,
	config Config,
	stats tally.Scope,
	clk clock.Clock,
	events Events,
	logger *zap.SugaredLogger) (*Conn, error) {

	config = config.applyDefaults()

	var nc net.Conn
	operation := func() error {
		var err error
		nc, err = net.DialTimeout("tcp", addr, config.DialTimeout)
		return err
	}

	// Retry makes one attempt before consulting the backoff, so K attempts
	// take K-1 retries.
	var b backoff.BackOff = &backoff.StopBackOff{}
	if config.DialRetries > 1 {
		b = backoff.WithMaxRetries(backoff.NewConstantBackOff(config.DialBackoff), uint64(config.DialRetries-1))
	}
	if err := backoff.Retry(operation, b); err != nil {
		return nil, fmt.Errorf("dial %s: %s", addr, err)
	}

	return newConn(nc, addr, false, config, stats, clk, events, logger), nil
}

// Accept wraps an inbound net.Conn, already connected by a listener's
// Accept call, as an Open Conn.
func Accept(
	nc net.Conn,
	config Config,
	stats tally.Scope,
	clk clock.Clock,
	events Events,
	logger *zap.SugaredLogger) *Conn {

	config = config.applyDefaults()
	c := newConn(nc, nc.RemoteAddr().String(), true, config, stats, clk, events, logger)
	c.mu.Lock()
	c.state = Open
	c.mu.Unlock()
	return c
}

func newConn(
	nc net.Conn,
	addr string,
	openedByRemote bool,
	config Config,
	stats tally.Scope,
	clk clock.Clock,
	events Events,
	logger *zap.SugaredLogger) *Conn {

	state := Dialing
	if openedByRemote {
		state = Open
	}

	return &Conn{
		addr:     addr,
		config:   config,
		clk:      clk,
		stats:    stats,
		logger:   logger,
		nc:       nc,
		state:    state,
		flags:    newProtocolFlags(),
		sender:   make(chan *wire.Frame, config.SendBufferSize),
		receiver: make(chan *wire.Frame, config.SendBufferSize),
		limiter:  NewLimiter(config.Bandwidth),
		closed:   atomic.NewBool(false),
		done:     make(chan struct{}),
		events:   events,
	}
}

// SetPeerID records the remote peer's identity. Peer links exchange no
// frame carrying an identity, so PeerID is the zero value unless a caller
// sets it here.
func (c *Conn) SetPeerID(id core.PeerID) { c.peerID = id }

// PeerID returns the remote peer's identity.
func (c *Conn) PeerID() core.PeerID { return c.peerID }

// Addr returns the remote peer's address.
func (c *Conn) Addr() string { return c.addr }

// State returns the current link state.
func (c *Conn) State() LinkState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conn) setState(s LinkState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Start transitions a dialed Conn to Open and begins the read/write loops.
// It is idempotent.
func (c *Conn) Start() {
	c.startOnce.Do(func() {
		c.setState(Open)
		c.wg.Add(2)
		go c.readLoop()
		go c.writeLoop()
	})
}

func (c *Conn) String() string {
	return fmt.Sprintf("Conn(peer=%s, addr=%s, state=%s)", c.peerID, c.addr, c.State())
}

// Send enqueues frame for outbound transmission. Non-blocking; a full
// outbound queue is a fatal link error, per spec's Connection contract.
func (c *Conn) Send(frame *wire.Frame) error {
	select {
	case <-c.done:
		return errors.New("peerconn: connection closed")
	case c.sender <- frame:
		return nil
	default:
		c.stats.Tagged(map[string]string{
			"dropped_frame_type": string(frame.Type),
		}).Counter("dropped_frames").Inc(1)
		c.Close()
		return errors.New("peerconn: send buffer full, closing connection")
	}
}

// Receiver returns the channel frames arrive on.
func (c *Conn) Receiver() <-chan *wire.Frame { return c.receiver }

// Close idempotently stops both directions and releases the byte stream.
func (c *Conn) Close() {
	if !c.closed.CAS(false, true) {
		return
	}
	c.setState(Closing)
	go func() {
		close(c.done)
		c.nc.Close()
		c.wg.Wait()
		c.setState(Closed)
		if c.events != nil {
			c.events.ConnClosed(c)
		}
	}()
}

// IsClosed reports whether Close has been called.
func (c *Conn) IsClosed() bool { return c.closed.Load() }

// AmChoking, AmInterested, PeerChoking, and PeerInterested expose the
// mirrored peer-protocol flags.
func (c *Conn) AmChoking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flags.amChoking
}

func (c *Conn) AmInterested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flags.amInterested
}

func (c *Conn) PeerChoking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flags.peerChoking
}

func (c *Conn) PeerInterested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flags.peerInterested
}

// SetAmChoking updates the local choking flag and sends the corresponding
// choke/unchoke frame, per the slot-recomputation contract in §4.4: this is
// the only place a choke/unchoke frame is produced.
func (c *Conn) SetAmChoking(choking bool) error {
	c.mu.Lock()
	changed := c.flags.amChoking != choking
	c.flags.amChoking = choking
	c.mu.Unlock()

	if !changed {
		return nil
	}
	var f *wire.Frame
	var err error
	if choking {
		f, err = wire.NewChoke()
	} else {
		f, err = wire.NewUnchoke()
	}
	if err != nil {
		return err
	}
	return c.Send(f)
}

// SetAmInterested updates the local interested flag and sends the
// corresponding interested/not_interested frame.
func (c *Conn) SetAmInterested(interested bool) error {
	c.mu.Lock()
	changed := c.flags.amInterested != interested
	c.flags.amInterested = interested
	c.mu.Unlock()

	if !changed {
		return nil
	}
	var f *wire.Frame
	var err error
	if interested {
		f, err = wire.NewInterested()
	} else {
		f, err = wire.NewNotInterested()
	}
	if err != nil {
		return err
	}
	return c.Send(f)
}

// OnPeerChoke records an inbound choke/unchoke frame's effect on the mirror
// flag. Node consults PeerChoking to stop sending piece_request frames to
// a peer that chokes us; whether we serve piece_response frames is gated
// on our own AmChoking flag instead.
func (c *Conn) OnPeerChoke(choking bool) {
	c.mu.Lock()
	c.flags.peerChoking = choking
	c.mu.Unlock()
}

// OnPeerInterested records an inbound interested/not_interested frame.
func (c *Conn) OnPeerInterested(interested bool) {
	c.mu.Lock()
	c.flags.peerInterested = interested
	c.mu.Unlock()
}

func (c *Conn) readLoop() {
	defer func() {
		close(c.receiver)
		c.wg.Done()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		default:
			frame, err := wire.ReadFrame(c.nc)
			if err != nil {
				c.log().Infof("Error reading frame, closing connection: %s", err)
				return
			}
			select {
			case c.receiver <- frame:
			case <-c.done:
				return
			}
		}
	}
}

func (c *Conn) writeLoop() {
	defer func() {
		c.wg.Done()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.sender:
			if frame.Type == wire.PieceResponse {
				if err := c.limiter.ReserveEgress(len(frame.Payload)); err != nil {
					c.log().Infof("Error reserving egress bandwidth, closing connection: %s", err)
					return
				}
			}
			if err := wire.WriteFrame(c.nc, frame); err != nil {
				c.log().Infof("Error writing frame, closing connection: %s", err)
				return
			}
		}
	}
}

func (c *Conn) log(keysAndValues ...interface{}) *zap.SugaredLogger {
	keysAndValues = append(keysAndValues, "remote_peer", c.peerID, "addr", c.addr)
	return c.logger.With(keysAndValues...)
}
