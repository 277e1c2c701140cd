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
	"io"
	"os"

	"github.com/kchan139/p2p-file-sharing/core"
)

// Create hashes path into a TorrentInfo describing it as pieceLength-sized
// pieces, for the "swarmd seed" and "swarmd create-torrent" entry points.
// This is the external adapter's write path, mirroring Decode's read path.
func Create(path string, pieceLength uint32, trackerHost string, trackerPort uint16) (*TorrentInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %s", path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %s", path, err)
	}

	t := &TorrentInfo{
		TrackerHost: trackerHost,
		TrackerPort: trackerPort,
		Name:        fi.Name(),
		PieceLength: pieceLength,
		Length:      uint64(fi.Size()),
	}

	buf := make([]byte, pieceLength)
	for {
		n, err := io.ReadFull(f, buf)
		if n > 0 {
			h := core.NewPieceHashFromBytes(buf[:n])
			t.Pieces = append(t.Pieces, h.Hex())
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %s", path, err)
		}
	}

	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("create metainfo: %s", err)
	}
	return t, nil
}
