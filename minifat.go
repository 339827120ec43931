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

// loadMiniFat walks the FAT chain starting at miniFatSectorLoc through
// exactly numMiniFatSectors sectors, concatenating each sector's SECT
// array. The mini-stream itself (the Root Entry's data) is
// loaded separately once the directory has been parsed, since the Root
// Entry's starting sector isn't known until then.
func (r *Reader) loadMiniFat() error {
	h := r.header
	if h.numMiniFatSectors == 0 {
		r.miniFat = nil
		return nil
	}
	if h.numMiniFatSectors > r.cfg.maxSectors {
		return newErr("loadMiniFat", OutOfRange, nil)
	}
	entriesPerSector := int(h.sectorSize / 4)
	miniFat := make([]uint32, 0, int(h.numMiniFatSectors)*entriesPerSector)
	sect := h.miniFatSectorLoc
	visited := make(map[uint32]bool, h.numMiniFatSectors)
	var n uint32
	for sect != endOfChain {
		if visited[sect] {
			return newErr("loadMiniFat", Cycle, nil)
		}
		visited[sect] = true
		n++
		if n > h.numMiniFatSectors {
			return newErr("loadMiniFat", TruncatedMiniFat, nil)
		}
		buf, err := r.readSector(sect)
		if err != nil {
			return newErr("loadMiniFat", Io, err)
		}
		for i := 0; i < entriesPerSector; i++ {
			miniFat = append(miniFat, le32(buf[i*4:i*4+4]))
		}
		next, err := r.fatNext(sect)
		if err != nil {
			return err
		}
		sect = next
	}
	if n != h.numMiniFatSectors {
		return newErr("loadMiniFat", TruncatedMiniFat, nil)
	}
	r.miniFat = miniFat
	return nil
}

// fatNext returns FAT[sn], bounds-checked against the loaded FAT length.
func (r *Reader) fatNext(sn uint32) (uint32, error) {
	if int(sn) >= len(r.fat) {
		return 0, newErr("fatNext", OutOfRange, nil)
	}
	return r.fat[sn], nil
}

// loadMiniStream resolves the chain of regular sectors holding the
// mini-stream (the Root Entry's data) into an ordered slice of sector
// numbers, so mini-sector k can be mapped to sector k/(sectorSize/64) of
// this slice.
func (r *Reader) loadMiniStream(root *DirectoryEntry) error {
	if root.startSect == endOfChain || r.header.miniFatSectorLoc == endOfChain {
		r.miniStreamSectors = nil
		return nil
	}
	sectors, err := r.fatChain(root.startSect)
	if err != nil {
		return err
	}
	r.miniStreamSectors = sectors
	return nil
}
