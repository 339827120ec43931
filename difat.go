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

// loadFat reconstructs the flat FAT array: the 109 header-
// embedded DIFAT entries, followed by any additional DIFAT sectors chained
// off difatSectorLoc, give the ordered list of FAT sector numbers; each FAT
// sector is then read in turn and its little-endian SECT words appended.
func (r *Reader) loadFat() error {
	if r.header.numFatSectors > r.cfg.maxSectors {
		return newErr("loadFat", OutOfRange, nil)
	}
	difats, err := r.loadDifats()
	if err != nil {
		return err
	}
	entriesPerSector := int(r.header.sectorSize / 4)
	fat := make([]uint32, 0, len(difats)*entriesPerSector)
	for _, sect := range difats {
		if sect == freeSect {
			continue
		}
		buf, err := r.readSector(sect)
		if err != nil {
			return newErr("loadFat", Io, err)
		}
		for i := 0; i < entriesPerSector; i++ {
			fat = append(fat, le32(buf[i*4:i*4+4]))
		}
	}
	want := int(r.header.numFatSectors) * entriesPerSector
	if len(fat) != want {
		return newErr("loadFat", TruncatedFat, nil)
	}
	r.fat = fat
	return nil
}

// loadDifats expands the header's 109 embedded DIFAT entries plus the
// on-disk DIFAT chain into the ordered list of FAT sector numbers.
// The number of DIFAT sectors visited must equal numDifatSectors;
// running out early is TruncatedDifat.
func (r *Reader) loadDifats() ([]uint32, error) {
	h := r.header
	if h.numDifatSectors > r.cfg.maxSectors {
		return nil, newErr("loadDifats", OutOfRange, nil)
	}
	difats := make([]uint32, 0, 109+int(h.numDifatSectors)*int(h.sectorSize/4-1))
	for _, d := range h.initialDifats {
		if d != freeSect {
			difats = append(difats, d)
		}
	}
	if h.numDifatSectors == 0 {
		return difats, nil
	}
	sect := h.difatSectorLoc
	entries := int(h.sectorSize/4) - 1
	visited := make(map[uint32]bool, h.numDifatSectors)
	var n uint32
	for sect != endOfChain {
		if visited[sect] {
			return nil, newErr("loadDifats", Cycle, nil)
		}
		visited[sect] = true
		n++
		if n > h.numDifatSectors {
			return nil, newErr("loadDifats", TruncatedDifat, nil)
		}
		buf, err := r.readSector(sect)
		if err != nil {
			return nil, newErr("loadDifats", Io, err)
		}
		for i := 0; i < entries; i++ {
			v := le32(buf[i*4 : i*4+4])
			if v != freeSect {
				difats = append(difats, v)
			}
		}
		sect = le32(buf[entries*4 : entries*4+4])
	}
	if n != h.numDifatSectors {
		return nil, newErr("loadDifats", TruncatedDifat, nil)
	}
	return difats, nil
}

// readSector reads the raw bytes of regular sector sn (not a mini-sector).
func (r *Reader) readSector(sn uint32) ([]byte, error) {
	return r.readAt(int64(sn+1)*int64(r.header.sectorSize), int(r.header.sectorSize))
}
