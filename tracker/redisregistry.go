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
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/gomodule/redigo/redis"
)

const (
	_redisPeerSetKey = "swarmd:peers"
	_redisPeerKeyFmt = "swarmd:peer:%s"
)

// RedisConfig configures RedisRegistry, a Registry variant that survives
// tracker restarts and can be shared across tracker replicas, holding a
// single swarm's peer set.
type RedisConfig struct {
	Addr           string `yaml:"addr"`
	MaxIdleConns   int    `yaml:"max_idle_conns"`
	MaxActiveConns int    `yaml:"max_active_conns"`
}

func (c RedisConfig) applyDefaults() RedisConfig {
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 10
	}
	if c.MaxActiveConns == 0 {
		c.MaxActiveConns = 100
	}
	return c
}

// RedisRegistry is a Registry-shaped peer store backed by Redis: each
// peer's piece set lives in a string key with a TTL of
// Config.PeerInactivityTimeout, so Redis itself performs the liveness
// eviction the in-memory Registry does with an explicit sweep task.
type RedisRegistry struct {
	config     Config
	inactivity int
	pool       *redis.Pool
}

// NewRedisRegistry dials Redis and returns a RedisRegistry. Fails fast if
// the initial connection cannot be established.
func NewRedisRegistry(config Config, redisConfig RedisConfig) (*RedisRegistry, error) {
	config = config.applyDefaults()
	redisConfig = redisConfig.applyDefaults()

	if redisConfig.Addr == "" {
		return nil, errors.New("tracker: redis registry requires Addr")
	}

	pool := &redis.Pool{
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", redisConfig.Addr)
		},
		MaxIdle:   redisConfig.MaxIdleConns,
		MaxActive: redisConfig.MaxActiveConns,
		Wait:      true,
	}
	c, err := pool.Dial()
	if err != nil {
		return nil, fmt.Errorf("dial redis: %s", err)
	}
	c.Close()

	return &RedisRegistry{
		config:     config,
		inactivity: int(config.PeerInactivityTimeout.Seconds()),
		pool:       pool,
	}, nil
}

func (r *RedisRegistry) peerKey(address string) string {
	return fmt.Sprintf(_redisPeerKeyFmt, address)
}

// Register creates address if absent (with an empty piece set) and
// refreshes its TTL, then returns the current swarm view.
func (r *RedisRegistry) Register(address string) (SwarmView, error) {
	c := r.pool.Get()
	defer c.Close()

	exists, err := redis.Bool(c.Do("EXISTS", r.peerKey(address)))
	if err != nil {
		return SwarmView{}, fmt.Errorf("exists: %s", err)
	}
	if !exists {
		if err := r.setPiecesLocked(c, address, nil); err != nil {
			return SwarmView{}, err
		}
	} else if _, err := c.Do("EXPIRE", r.peerKey(address), r.inactivity); err != nil {
		return SwarmView{}, fmt.Errorf("expire: %s", err)
	}
	if _, err := c.Do("SADD", _redisPeerSetKey, address); err != nil {
		return SwarmView{}, fmt.Errorf("sadd: %s", err)
	}
	return r.GetPeers()
}

// UpdatePieces replaces address's piece set and refreshes its TTL.
// Unknown addresses (never registered, or already expired) are ignored.
func (r *RedisRegistry) UpdatePieces(address string, pieces []int) error {
	c := r.pool.Get()
	defer c.Close()

	exists, err := redis.Bool(c.Do("EXISTS", r.peerKey(address)))
	if err != nil {
		return fmt.Errorf("exists: %s", err)
	}
	if !exists {
		return nil
	}
	return r.setPiecesLocked(c, address, pieces)
}

func (r *RedisRegistry) setPiecesLocked(c redis.Conn, address string, pieces []int) error {
	if pieces == nil {
		pieces = []int{}
	}
	b, err := json.Marshal(pieces)
	if err != nil {
		return fmt.Errorf("marshal pieces: %s", err)
	}
	if _, err := c.Do("SET", r.peerKey(address), string(b), "EX", r.inactivity); err != nil {
		return fmt.Errorf("set: %s", err)
	}
	return nil
}

// Remove evicts address immediately.
func (r *RedisRegistry) Remove(address string) error {
	c := r.pool.Get()
	defer c.Close()
	if _, err := c.Do("DEL", r.peerKey(address)); err != nil {
		return fmt.Errorf("del: %s", err)
	}
	if _, err := c.Do("SREM", _redisPeerSetKey, address); err != nil {
		return fmt.Errorf("srem: %s", err)
	}
	return nil
}

// GetPeers returns a snapshot of every live peer, lazily evicting
// addresses from the membership set whose key has already expired.
func (r *RedisRegistry) GetPeers() (SwarmView, error) {
	c := r.pool.Get()
	defer c.Close()

	addrs, err := redis.Strings(c.Do("SMEMBERS", _redisPeerSetKey))
	if err != nil {
		return SwarmView{}, fmt.Errorf("smembers: %s", err)
	}

	entries := make([]PeerSnapshot, 0, len(addrs))
	for _, addr := range addrs {
		raw, err := redis.String(c.Do("GET", r.peerKey(addr)))
		if err == redis.ErrNil {
			c.Do("SREM", _redisPeerSetKey, addr)
			continue
		} else if err != nil {
			return SwarmView{}, fmt.Errorf("get %s: %s", addr, err)
		}
		var pieces []int
		if err := json.Unmarshal([]byte(raw), &pieces); err != nil {
			return SwarmView{}, fmt.Errorf("unmarshal pieces for %s: %s", addr, err)
		}
		sort.Ints(pieces)
		entries = append(entries, PeerSnapshot{Address: addr, Pieces: pieces})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Address < entries[j].Address })
	return SwarmView{Peers: entries}, nil
}

// Close releases the Redis connection pool.
func (r *RedisRegistry) Close() error {
	return r.pool.Close()
}
