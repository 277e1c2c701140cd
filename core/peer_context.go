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
package core

import (
	"errors"
	"fmt"
)

// PeerContext defines the context a peer runs within, namely the fields which
// are used to identify each peer.
type PeerContext struct {

	// IP and Port specify the address the peer will announce itself as. Note,
	// this is distinct from the address a Node's listener is bound to because
	// best-effort public address discovery may resolve to a different ip/port
	// than the local bind address.
	IP   string `json:"ip"`
	Port int    `json:"port"`

	// PeerID the peer will identify itself as.
	PeerID PeerID `json:"peer_id"`

	// Origin indicates whether the peer started as an initial seeder (i.e.
	// set_seeder was called instead of downloading the file).
	Origin bool `json:"origin"`
}

// NewPeerContext creates a new PeerContext.
func NewPeerContext(f PeerIDFactory, ip string, port int, origin bool) (PeerContext, error) {
	if ip == "" {
		return PeerContext{}, errors.New("no ip supplied")
	}
	if port == 0 {
		return PeerContext{}, errors.New("no port supplied")
	}
	peerID, err := f.GeneratePeerID(ip, port)
	if err != nil {
		return PeerContext{}, err
	}
	return PeerContext{
		IP:     ip,
		Port:   port,
		PeerID: peerID,
		Origin: origin,
	}, nil
}

// Address returns the opaque "<host>:<port>" address identifying this peer
// to connections and swarm views, per the PeerAddress concept.
func (c PeerContext) Address() string {
	return fmt.Sprintf("%s:%d", c.IP, c.Port)
}
