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

// Package cfb implements a read-only, random-access reader for the
// Compound File Binary Format (CFB) — the container underlying legacy
// Microsoft Office binary files (.doc, .xls, .ppt), the MSI installer
// format, and Windows property-set streams.
//
// The package reconstructs the sector-allocation table (FAT) from the
// header and its DIFAT chain, walks the mini-FAT for small streams,
// traverses the directory's red-black tree of named entries, and exposes
// each entry's bytes as a random-access Stream. The propset subpackage
// layers the Property Set stream format on top of a Stream.
//
// Example:
//
//	f, err := os.Open("test.doc")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer f.Close()
//	r, err := cfb.Open(f)
//	if err != nil {
//		log.Fatal(err)
//	}
//	entry, err := r.Lookup("WordDocument")
//	if err != nil {
//		log.Fatal(err)
//	}
//	stream, err := r.OpenStream(entry)
package cfb

import "io"

// Reader provides random-access read of the named streams inside one CFB
// host file. It performs only synchronous positioned reads against the
// underlying io.ReaderAt and keeps no internal seek cursor or cache of its
// own; the directory/FAT tables are built once in Open and never modified
// afterwards, and Stream materialization mutates no shared state. Sharing a
// Reader across goroutines is therefore safe exactly when the underlying
// io.ReaderAt tolerates concurrent ReadAt calls.
type Reader struct {
	rs     io.ReaderAt
	cfg    readerConfig
	header *header

	fat               []uint32
	miniFat           []uint32
	miniStreamSectors []uint32

	entriesSlice []*DirectoryEntry
}

// Open parses rs as a CFB file: its header, FAT, mini-FAT, directory and
// the mini-stream's sector chain are all validated and loaded eagerly, and
// no partially constructed Reader is ever returned. The sector chains of
// individual streams are not walked here; a cycle or bad sector in one of
// them is reported by OpenStream for that entry.
func Open(rs io.ReaderAt, opts ...ReaderOption) (*Reader, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	r := &Reader{rs: rs, cfg: cfg}

	buf, err := r.readAt(0, lenHeader)
	if err != nil {
		return nil, newErr("Open", Io, err)
	}
	h, err := parseHeader(buf)
	if err != nil {
		return nil, err
	}
	r.header = h

	if err := r.loadFat(); err != nil {
		return nil, err
	}
	if err := r.loadMiniFat(); err != nil {
		return nil, err
	}
	if err := r.loadDirectory(); err != nil {
		return nil, err
	}
	if err := r.loadMiniStream(r.entriesSlice[0]); err != nil {
		return nil, err
	}
	r.cfg.logger.Printf("cfb: opened file: %d sectors in FAT, %d directory entries", len(r.fat), len(r.entriesSlice))
	return r, nil
}

// readAt reads exactly n bytes starting at offset off from the underlying
// source.
func (r *Reader) readAt(off int64, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(io.NewSectionReader(r.rs, off, int64(n)), buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Root returns the Root Entry (SID 0).
func (r *Reader) Root() *DirectoryEntry {
	return r.entriesSlice[0]
}

// Entries returns every parsed directory entry, in SID order.
// Unused ("invalid") directory slots are omitted.
func (r *Reader) Entries() []*DirectoryEntry {
	out := make([]*DirectoryEntry, 0, len(r.entriesSlice))
	for _, e := range r.entriesSlice {
		if e.typ() != typeInvalid {
			out = append(out, e)
		}
	}
	return out
}

// Children returns storage's direct children in the directory's sort order.
// storage must be a storage entry (the Root Entry qualifies); passing a
// stream returns NotAStorage.
func (r *Reader) Children(storage *DirectoryEntry) ([]*DirectoryEntry, error) {
	if !storage.IsStorage() {
		return nil, newErr("Children", NotAStorage, nil)
	}
	return r.children(storage)
}

// Lookup resolves a path of storage/stream name components starting at the
// root, descending one storage per component. The
// final component may name a stream or a storage; every earlier component
// must name a storage.
func (r *Reader) Lookup(path ...string) (*DirectoryEntry, error) {
	cur := r.Root()
	for _, name := range path {
		if !cur.IsStorage() {
			return nil, newErr("Lookup", NotAStorage, nil)
		}
		next, err := r.lookupChild(cur, name)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// OpenStream materializes entry's bytes as a random-access Stream. entry must be a stream (or the Root Entry, whose data is its
// mini-stream); passing a non-root storage returns NotAStream.
func (r *Reader) OpenStream(entry *DirectoryEntry) (*Stream, error) {
	if !entry.IsStream() && !entry.IsRoot() {
		return nil, newErr("OpenStream", NotAStream, nil)
	}
	return r.openStream(entry)
}
