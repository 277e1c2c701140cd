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
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPieceHashFromBytesMatchesHex(t *testing.T) {
	require := require.New(t)

	data := []byte("hello, swarm")
	h := NewPieceHashFromBytes(data)

	reparsed, err := NewPieceHashFromHex(h.Hex())
	require.NoError(err)
	require.True(h.Equal(reparsed))
}

func TestPieceHashFromHexErrors(t *testing.T) {
	_, err := NewPieceHashFromHex("too-short")
	require.Error(t, err)
}

func TestPieceDigesterMatchesDirectHash(t *testing.T) {
	require := require.New(t)

	data := []byte("the quick brown fox jumps over the lazy dog")

	want := NewPieceHashFromBytes(data)

	d := NewPieceDigester()
	r := d.Tee(bytes.NewReader(data))
	buf := make([]byte, len(data))
	_, err := r.Read(buf)
	require.NoError(err)

	require.True(want.Equal(d.Sum()))
}
