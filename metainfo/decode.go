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
package metainfo

import (
	"io"

	"github.com/jackpal/bencode-go"
)

// Decode reads a bencoded torrent metafile from r and returns the resulting
// TorrentInfo, validated for internal consistency.
func Decode(r io.Reader) (*TorrentInfo, error) {
	var t TorrentInfo
	if err := bencode.Unmarshal(r, &t); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Encode bencodes t to w. Used primarily by tests and by any tooling that
// constructs a torrent metafile from a freshly-hashed file.
func Encode(w io.Writer, t *TorrentInfo) error {
	return bencode.Marshal(w, *t)
}
