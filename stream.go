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

// Stream is a random-access (io.ReaderAt) view of one directory entry's
// bytes, materialized from the host file's FAT or mini-FAT chain.
// A Stream holds a non-owning back-reference to the Reader it came from;
// it must not be used after that Reader's underlying source is closed.
type Stream struct {
	r     *Reader
	entry *DirectoryEntry
	mini  bool
	chain []uint32 // sector (or mini-sector) numbers, in stream order
	sz    uint64
}

// Len returns the logical size of the stream in bytes.
func (s *Stream) Len() uint64 { return s.sz }

// openStream materializes entry into a Stream: entries
// strictly smaller than the mini-stream cutoff (and not the Root Entry)
// are backed by the mini-FAT; everything else is backed by the FAT.
func (r *Reader) openStream(entry *DirectoryEntry) (*Stream, error) {
	mini := !entry.isRoot && entry.Size < uint64(r.header.miniStreamCutoff)
	var chain []uint32
	var err error
	if mini {
		chain, err = r.miniChain(entry.startSect)
	} else {
		chain, err = r.fatChain(entry.startSect)
	}
	if err != nil {
		return nil, err
	}
	return &Stream{r: r, entry: entry, mini: mini, chain: chain, sz: entry.Size}, nil
}

// chunkSize is the size in bytes of one element of s.chain: a full sector
// for FAT-backed streams, a 64-byte mini-sector for mini-FAT-backed ones.
func (s *Stream) chunkSize() uint64 {
	if s.mini {
		return uint64(s.r.header.miniSectorSize)
	}
	return uint64(s.r.header.sectorSize)
}

// chunkOffset returns the absolute file offset of chain element idx.
func (s *Stream) chunkOffset(idx int) (int64, error) {
	sn := s.chain[idx]
	if !s.mini {
		return int64(sn+1) * int64(s.r.header.sectorSize), nil
	}
	ratio := int(s.r.header.sectorSize / s.r.header.miniSectorSize)
	pos := int(sn) / ratio
	rem := int(sn) % ratio
	if pos >= len(s.r.miniStreamSectors) {
		return 0, newErr("chunkOffset", OutOfRange, nil)
	}
	hostSector := s.r.miniStreamSectors[pos]
	base := int64(hostSector+1) * int64(s.r.header.sectorSize)
	return base + int64(rem)*int64(s.r.header.miniSectorSize), nil
}

// ReadAt implements io.ReaderAt: it requires off+len(p) <= s.Len(), resolving the read across however many chain elements it spans.
func (s *Stream) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, newErr("Stream.ReadAt", OutOfRange, nil)
	}
	end := uint64(off) + uint64(len(p))
	if end > s.sz {
		return 0, newErr("Stream.ReadAt", OutOfRange, nil)
	}
	if len(p) == 0 {
		return 0, nil
	}
	chunk := s.chunkSize()
	idx := int(uint64(off) / chunk)
	chunkOff := uint64(off) % chunk

	read := 0
	for read < len(p) {
		if idx >= len(s.chain) {
			return read, newErr("Stream.ReadAt", OutOfRange, nil)
		}
		base, err := s.chunkOffset(idx)
		if err != nil {
			return read, err
		}
		avail := chunk - chunkOff
		want := uint64(len(p) - read)
		n := avail
		if want < n {
			n = want
		}
		buf, err := s.r.readAt(base+int64(chunkOff), int(n))
		if err != nil {
			return read, newErr("Stream.ReadAt", Io, err)
		}
		copy(p[read:], buf)
		read += len(buf)
		idx++
		chunkOff = 0
	}
	return read, nil
}
