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
package tracker

import (
	"net"
	"sync"

	"github.com/andres-erbsen/clock"
	"github.com/uber-go/tally"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/kchan139/p2p-file-sharing/wire"
)

// peerRegistry is the subset of Registry/RedisRegistry's methods Server
// needs, letting it run against either backend interchangeably.
type peerRegistry interface {
	Register(address string) (SwarmView, error)
	GetPeers() (SwarmView, error)
	UpdatePieces(address string, pieces []int) error
	Remove(address string) error
	Close() error
}

// localRegistry adapts the in-memory Registry's error-free method set to
// peerRegistry, so Server can treat both backends uniformly without
// changing Registry's own signatures (which registry_test.go already
// exercises directly).
type localRegistry struct {
	*Registry
}

func (r localRegistry) Register(address string) (SwarmView, error) {
	return r.Registry.Register(address), nil
}

func (r localRegistry) GetPeers() (SwarmView, error) {
	return r.Registry.GetPeers(), nil
}

func (r localRegistry) UpdatePieces(address string, pieces []int) error {
	r.Registry.UpdatePieces(address, pieces)
	return nil
}

func (r localRegistry) Remove(address string) error {
	r.Registry.Remove(address)
	return nil
}

func (r localRegistry) Close() error {
	r.Registry.Close()
	return nil
}

// Server accepts one connection per client: a single accept loop fans out
// into one goroutine per connection, each driving a short
// register/get_peers/update_pieces/stopped request-response loop against
// a shared peerRegistry.
type Server struct {
	config   Config
	registry peerRegistry
	stats    tally.Scope
	logger   *zap.SugaredLogger

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

// NewServer returns a Server backed by a fresh in-memory Registry.
func NewServer(config Config, stats tally.Scope, clk clock.Clock, logger *zap.SugaredLogger) *Server {
	config = config.applyDefaults()
	return &Server{
		config:   config,
		registry: localRegistry{NewRegistry(config, clk)},
		stats:    stats,
		logger:   logger,
	}
}

// NewServerWithRedis returns a Server backed by a RedisRegistry, for
// deployments that want the peer view to survive a tracker restart or be
// shared across tracker replicas.
func NewServerWithRedis(config Config, redisConfig RedisConfig, stats tally.Scope, logger *zap.SugaredLogger) (*Server, error) {
	config = config.applyDefaults()
	reg, err := NewRedisRegistry(config, redisConfig)
	if err != nil {
		return nil, err
	}
	return &Server{
		config:   config,
		registry: reg,
		stats:    stats,
		logger:   logger,
	}, nil
}

// ListenAndServe binds config.ListenAddr and serves until Close is called.
// Blocks the calling goroutine; callers typically invoke it via `go`.
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	for {
		nc, err := l.Accept()
		if err != nil {
			return err
		}
		s.wg.Add(1)
		go s.serveClient(nc)
	}
}

// Addr returns the bound listen address, valid only after ListenAndServe
// has started accepting.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close stops accepting connections and tears down the registry backend.
func (s *Server) Close() error {
	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	var err error
	if rerr := s.registry.Close(); rerr != nil {
		err = multierr.Append(err, rerr)
	}
	if l == nil {
		return err
	}
	if cerr := l.Close(); cerr != nil {
		err = multierr.Append(err, cerr)
	}
	s.wg.Wait()
	return err
}

func (s *Server) serveClient(nc net.Conn) {
	defer s.wg.Done()
	defer nc.Close()

	var address string

	for {
		frame, err := wire.ReadFrame(nc)
		if err != nil {
			if address != "" {
				s.logger.Infof("Tracker client %s disconnected: %s", address, err)
			}
			return
		}

		switch frame.Type {
		case wire.PeerJoined:
			var p wire.PeerJoinedPayload
			if err := frame.Unmarshal(&p); err != nil {
				s.logger.Errorf("Malformed peer_joined: %s", err)
				return
			}
			address = p.Address
			view, err := s.registry.Register(address)
			if err != nil {
				s.logger.Errorf("Register %s: %s", address, err)
				return
			}
			if err := s.reply(nc, view, address); err != nil {
				return
			}

		case wire.GetPeers:
			view, err := s.registry.GetPeers()
			if err != nil {
				s.logger.Errorf("Get peers: %s", err)
				return
			}
			if err := s.reply(nc, view, address); err != nil {
				return
			}

		case wire.UpdatePieces:
			var p wire.UpdatePiecesPayload
			if err := frame.Unmarshal(&p); err != nil {
				s.logger.Errorf("Malformed update_pieces: %s", err)
				return
			}
			pieces := make([]int, len(p.Pieces))
			for i, v := range p.Pieces {
				pieces[i] = int(v)
			}
			if err := s.registry.UpdatePieces(address, pieces); err != nil {
				s.logger.Errorf("Update pieces for %s: %s", address, err)
			}

		case wire.Stopped:
			if address != "" {
				if err := s.registry.Remove(address); err != nil {
					s.logger.Errorf("Remove %s: %s", address, err)
				}
			}
			return

		default:
			s.logger.Errorf("Unexpected frame type from tracker client: %s", frame.Type)
			return
		}
	}
}

func (s *Server) reply(nc net.Conn, view SwarmView, exclude string) error {
	sampled := SamplePeers(view, s.config.MaxPeersReturned, exclude)
	entries := make([]wire.PeerEntry, 0, len(sampled))
	for _, p := range sampled {
		pieces := make([]uint32, len(p.Pieces))
		for i, v := range p.Pieces {
			pieces[i] = uint32(v)
		}
		entries = append(entries, wire.PeerEntry{Address: p.Address, Pieces: pieces})
	}
	f, err := wire.NewPeerList(entries)
	if err != nil {
		return err
	}
	return wire.WriteFrame(nc, f)
}
