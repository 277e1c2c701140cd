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
package wire

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize bounds the payload size of a single frame. A length prefix
// exceeding this is treated as a framing error rather than an attempt to
// allocate an attacker-controlled amount of memory.
const MaxFrameSize = 16 << 20 // 16MiB, comfortably above any configured piece_length.

// ErrNeedMore indicates buf does not yet contain a complete frame; the
// caller should read more bytes and retry without discarding buf.
var ErrNeedMore = errors.New("wire: need more data")

// Encode serializes f as a length-prefixed record: a 4-byte big-endian
// length of the JSON payload that follows, then that payload.
func Encode(f *Frame) ([]byte, error) {
	body, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal frame: %s", err)
	}
	if len(body) > MaxFrameSize {
		return nil, fmt.Errorf("wire: frame exceeds max size: %d > %d", len(body), MaxFrameSize)
	}
	out := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(out, uint32(len(body)))
	copy(out[4:], body)
	return out, nil
}

// Decode attempts to parse a single frame from the head of buf. It returns
// the decoded Frame and the number of bytes consumed from buf. If buf does
// not yet hold a complete frame, it returns ErrNeedMore and consumes
// nothing, so the caller can append more bytes and retry. A frame whose
// payload is not valid JSON, or whose type is not in the closed
// enumeration, is reported as an error distinct from ErrNeedMore — the
// caller must treat that as fatal and close the connection.
func Decode(buf []byte) (*Frame, int, error) {
	if len(buf) < 4 {
		return nil, 0, ErrNeedMore
	}
	length := binary.BigEndian.Uint32(buf[:4])
	if length > MaxFrameSize {
		return nil, 0, fmt.Errorf("wire: frame exceeds max size: %d > %d", length, MaxFrameSize)
	}
	total := 4 + int(length)
	if len(buf) < total {
		return nil, 0, ErrNeedMore
	}
	var f Frame
	if err := json.Unmarshal(buf[4:total], &f); err != nil {
		return nil, 0, fmt.Errorf("wire: malformed frame payload: %s", err)
	}
	if !f.Type.Valid() {
		return nil, 0, fmt.Errorf("wire: unknown frame type %q", f.Type)
	}
	return &f, total, nil
}

// WriteFrame encodes f and writes it in full to w.
func WriteFrame(w io.Writer, f *Frame) error {
	data, err := Encode(f)
	if err != nil {
		return err
	}
	for len(data) > 0 {
		n, err := w.Write(data)
		if err != nil {
			return fmt.Errorf("wire: write frame: %s", err)
		}
		data = data[n:]
	}
	return nil
}

// ReadFrame reads exactly one frame from r, blocking until the length
// prefix and full payload have arrived.
func ReadFrame(r io.Reader) (*Frame, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("wire: read frame length: %s", err)
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	if length > MaxFrameSize {
		return nil, fmt.Errorf("wire: frame exceeds max size: %d > %d", length, MaxFrameSize)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("wire: read frame payload: %s", err)
	}
	var f Frame
	if err := json.Unmarshal(body, &f); err != nil {
		return nil, fmt.Errorf("wire: malformed frame payload: %s", err)
	}
	if !f.Type.Valid() {
		return nil, fmt.Errorf("wire: unknown frame type %q", f.Type)
	}
	return &f, nil
}
