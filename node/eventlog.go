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
	"time"

	"go.uber.org/zap"

	"github.com/kchan139/p2p-file-sharing/core"
)

// EventLog wraps structured log entries for piece-level transfer activity,
// distinct from the verbose per-goroutine logs elsewhere in a Node. It is
// intended to be consumed by a log aggregator so an operator can reconstruct
// a swarm's behavior (who requested what from whom, how long transfers
// took) without cross-referencing every peer's stdout.
type EventLog struct {
	zap *zap.Logger
}

// NewEventLog wraps an existing zap.Logger as an EventLog.
func NewEventLog(logger *zap.Logger) *EventLog {
	return &EventLog{zap: logger}
}

// NewNopEventLog returns an EventLog that discards everything, for tests.
func NewNopEventLog() *EventLog {
	return &EventLog{zap: zap.NewNop()}
}

// ConnectionAccept logs an accepted connection, inbound or outbound.
func (l *EventLog) ConnectionAccept(peerID core.PeerID, addr string, inbound bool) {
	l.zap.Debug(
		"Connection accept",
		zap.String("remote_peer_id", peerID.String()),
		zap.String("addr", addr),
		zap.Bool("inbound", inbound))
}

// ConnectionReject logs a rejected connection attempt.
func (l *EventLog) ConnectionReject(addr string, inbound bool, err error) {
	l.zap.Debug(
		"Connection reject",
		zap.String("addr", addr),
		zap.Bool("inbound", inbound),
		zap.Error(err))
}

// PieceRequestSent logs an outbound piece_request.
func (l *EventLog) PieceRequestSent(pieceID int, addr string) {
	l.zap.Debug(
		"Piece request sent",
		zap.Int("piece_id", pieceID),
		zap.String("addr", addr))
}

// PieceReceived logs the outcome of a submitted piece_response.
func (l *EventLog) PieceReceived(pieceID int, addr string, nbytes int, verified bool) {
	l.zap.Debug(
		"Piece received",
		zap.Int("piece_id", pieceID),
		zap.String("addr", addr),
		zap.Int("bytes", nbytes),
		zap.Bool("verified", verified))
}

// PieceServed logs an outbound piece_response.
func (l *EventLog) PieceServed(pieceID int, addr string, nbytes int) {
	l.zap.Debug(
		"Piece served",
		zap.Int("piece_id", pieceID),
		zap.String("addr", addr),
		zap.Int("bytes", nbytes))
}

// RegimeChanged logs a piece-selection regime transition.
func (l *EventLog) RegimeChanged(regime string, numComplete, numTotal int) {
	l.zap.Info(
		"Piece-selection regime changed",
		zap.String("regime", regime),
		zap.Int("num_complete", numComplete),
		zap.Int("num_total", numTotal))
}

// StateChanged logs a Node state-machine transition.
func (l *EventLog) StateChanged(from, to string) {
	l.zap.Info(
		"Node state changed",
		zap.String("from", from),
		zap.String("to", to))
}

// DownloadComplete logs a finished download.
func (l *EventLog) DownloadComplete(name string, size uint64, downloadTime time.Duration) {
	l.zap.Info(
		"Download complete",
		zap.String("name", name),
		zap.Uint64("size", size),
		zap.Duration("download_time", downloadTime))
}

// TrackerHeartbeat logs a successful update_pieces announce.
func (l *EventLog) TrackerHeartbeat(numComplete int) {
	l.zap.Debug(
		"Tracker heartbeat",
		zap.Int("num_complete", numComplete))
}

// TrackerLinkLost logs the tracker connection dropping.
func (l *EventLog) TrackerLinkLost(err error) {
	l.zap.Warn(
		"Tracker link lost",
		zap.Error(err))
}

// Sync flushes the log.
func (l *EventLog) Sync() {
	l.zap.Sync()
}
