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
	"fmt"
	"net/url"
	"strings"
)

// MagnetLink is the parsed form of a "magnet:?xt=urn:btih:<40-hex>&dn=<display>&tr=<tracker>*" URI.
type MagnetLink struct {
	InfoHash    string   // 40-hex SHA-1 digest
	DisplayName string   // dn, optional
	Trackers    []string // tr, zero or more
}

// RequiresDHT reports whether the magnet link carries no tracker hint, which
// per spec signals that resolution must fall back to DHT (out of scope here;
// the adapter surfaces this so the caller can fail fast).
func (m *MagnetLink) RequiresDHT() bool {
	return len(m.Trackers) == 0
}

// ParseMagnetLink parses a magnet URI identifying a torrent by info hash.
func ParseMagnetLink(raw string) (*MagnetLink, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse magnet uri: %s", err)
	}
	if u.Scheme != "magnet" {
		return nil, fmt.Errorf("not a magnet uri: scheme is %q", u.Scheme)
	}
	q := u.Query()

	xt := q.Get("xt")
	const prefix = "urn:btih:"
	if !strings.HasPrefix(xt, prefix) {
		return nil, fmt.Errorf("magnet uri missing xt=urn:btih:<hash>")
	}
	hash := strings.TrimPrefix(xt, prefix)
	if len(hash) != 40 {
		return nil, fmt.Errorf("magnet uri info hash must be 40 hex characters, got %d", len(hash))
	}

	return &MagnetLink{
		InfoHash:    strings.ToLower(hash),
		DisplayName: q.Get("dn"),
		Trackers:    q["tr"],
	}, nil
}
