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

// Package memsize provides human-readable formatting for byte and bit
// counts.
package memsize

// Byte units.
const (
	B  uint64 = 1
	KB        = 1024 * B
	MB        = 1024 * KB
	GB        = 1024 * MB
	TB        = 1024 * GB
)

// Bit units.
const (
	Bit  uint64 = 1
	Kbit        = 1024 * Bit
	Mbit        = 1024 * Kbit
	Gbit        = 1024 * Mbit
	Tbit        = 1024 * Gbit
)

// Format renders nbytes as a human-readable byte size.
func Format(nbytes uint64) string {
	return format(nbytes, "B", "KB", "MB", "GB", "TB")
}

// BitFormat renders nbits as a human-readable bit size.
func BitFormat(nbits uint64) string {
	return format(nbits, "bit", "Kbit", "Mbit", "Gbit", "Tbit")
}

func format(n uint64, units ...string) string {
	if n == 0 {
		return "0" + units[0]
	}
	f := float64(n)
	i := 0
	for f >= 1024 && i < len(units)-1 {
		f /= 1024
		i++
	}
	return sprintFloat(f) + units[i]
}

func sprintFloat(f float64) string {
	whole := int64(f)
	frac := int64((f-float64(whole))*100 + 0.5)
	if frac == 100 {
		whole++
		frac = 0
	}
	digits := func(n int64) string {
		if n < 10 {
			return "0" + itoa(n)
		}
		return itoa(n)
	}
	return itoa(whole) + "." + digits(frac)
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
