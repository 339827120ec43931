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

// header is the parsed fixed 512-byte CFB header.
// The embedded DIFAT entries are kept verbatim; difat.go expands them
// into the full FAT sector list.
type header struct {
	majorVersion      uint16
	minorVersion      uint16
	sectorShift       uint16 // 9 or 12
	miniSectorShift   uint16 // always 6
	sectorSize        uint32 // 1 << sectorShift
	miniSectorSize    uint32 // 1 << miniSectorShift, always 64
	numDirSectors     uint32 // v4 only, 0 for v3
	numFatSectors     uint32
	dirSectorLoc      uint32
	miniStreamCutoff  uint32
	miniFatSectorLoc  uint32
	numMiniFatSectors uint32
	difatSectorLoc    uint32
	numDifatSectors   uint32
	initialDifats     [109]uint32
}

const lenHeader = 512

func parseHeader(b []byte) (*header, error) {
	if len(b) < lenHeader {
		return nil, newErr("parseHeader", Io, nil)
	}
	sig := le64(b[0:8])
	if sig != sigCurrent && sig != sigLegacy {
		return nil, newErr("parseHeader", BadSignature, nil)
	}
	bom := le16(b[28:30])
	if bom != byteOrder {
		return nil, newErr("parseHeader", BadByteOrder, nil)
	}
	h := &header{
		minorVersion: le16(b[24:26]),
		majorVersion: le16(b[26:28]),
		sectorShift:  le16(b[30:32]),
	}
	if h.majorVersion != 3 && h.majorVersion != 4 {
		return nil, newErr("parseHeader", UnsupportedVersion, nil)
	}
	h.miniSectorShift = le16(b[32:34])
	if (h.sectorShift != 9 && h.sectorShift != 12) || h.miniSectorShift != 6 {
		return nil, newErr("parseHeader", BadSectorShift, nil)
	}
	h.sectorSize = 1 << h.sectorShift
	h.miniSectorSize = 1 << h.miniSectorShift

	h.numDirSectors = le32(b[40:44])
	h.numFatSectors = le32(b[44:48])
	h.dirSectorLoc = le32(b[48:52])
	h.miniStreamCutoff = le32(b[56:60])
	h.miniFatSectorLoc = le32(b[60:64])
	h.numMiniFatSectors = le32(b[64:68])
	h.difatSectorLoc = le32(b[68:72])
	h.numDifatSectors = le32(b[72:76])
	for i := 0; i < 109; i++ {
		off := 76 + i*4
		h.initialDifats[i] = le32(b[off : off+4])
	}
	return h, nil
}
