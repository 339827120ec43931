// Copyright 2013 Richard Lehane. All rights reserved.
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

package cfb

import (
	"encoding/binary"
	"time"
	"unicode/utf16"
)

// Reserved SECT and SID sentinel values.
const (
	difSect    uint32 = 0xFFFFFFFC // sector holds DIFAT entries
	fatSect    uint32 = 0xFFFFFFFD // sector holds FAT entries
	endOfChain uint32 = 0xFFFFFFFE // chain terminator
	freeSect   uint32 = 0xFFFFFFFF // unallocated
	noStream   uint32 = 0xFFFFFFFF // "no sibling/child"
)

const (
	sigCurrent uint64 = 0xE11AB1A1E011CFD0 // D0 CF 11 E0 A1 B1 1A E1, little-endian read as u64
	sigLegacy  uint64 = 0xE011CFD00DFC110E // 0E 11 FC 0D D0 CF 11 E0, little-endian read as u64
	byteOrder  uint16 = 0xFFFE
)

const dirEntrySize = 128

func le16(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }
func le32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }
func le64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }

// decodeUTF16 decodes a little-endian UTF-16 code unit slice to a Go string,
// accepting supplementary-plane surrogate pairs.
func decodeUTF16(units []uint16) string {
	return string(utf16.Decode(units))
}

// utf16Encode re-encodes a decoded Go string back to UTF-16 code units, for
// comparing names under the directory comparison order, which
// operates on the original UTF-16 code units rather than decoded runes.
func utf16Encode(s string) []uint16 {
	return utf16.Encode([]rune(s))
}

// decodeUTF16LE decodes raw little-endian UTF-16 bytes directly, for byte
// slices that are not pre-split into uint16 arrays. Nothing in this module
// calls it at present.
func decodeUTF16LE(b []byte) string {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = le16(b[i*2 : i*2+2])
	}
	return decodeUTF16(units)
}

// epochFiletime is 1601-01-01 00:00:00 UTC expressed as a Go time, the base
// of the Windows FILETIME epoch.
var epochFiletime = time.Date(1601, 1, 1, 0, 0, 0, 0, time.UTC)

// filetimeToTime converts a Windows FILETIME (100ns ticks since 1601-01-01)
// to a time.Time. A zero FILETIME maps to the zero time.Time, matching the
// "not set" convention directory entries use for non-root entries.
func filetimeToTime(ft uint64) time.Time {
	if ft == 0 {
		return time.Time{}
	}
	return epochFiletime.Add(time.Duration(ft*100) * time.Nanosecond)
}
