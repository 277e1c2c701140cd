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

// LinkState is the per-connection lifecycle state, independent of the
// peer-protocol choke/interested flags.
type LinkState int

// The link state enumeration: Dialing -> Open -> Closing -> Closed, with
// Dialing -> Closed on connection failure.
const (
	Dialing LinkState = iota
	Open
	Closing
	Closed
)

func (s LinkState) String() string {
	switch s {
	case Dialing:
		return "dialing"
	case Open:
		return "open"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// protocolFlags holds the per-connection choke/interested flags. Both sides
// start choking, neither side starts interested, per spec §4.2.
type protocolFlags struct {
	amChoking      bool
	amInterested   bool
	peerChoking    bool
	peerInterested bool
}

func newProtocolFlags() protocolFlags {
	return protocolFlags{
		amChoking:   true,
		peerChoking: true,
	}
}
