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

import "time"

// Entry object types.
const (
	typeInvalid uint8 = 0
	typeStorage uint8 = 1
	typeStream  uint8 = 2
	typeRoot    uint8 = 5
)

// DirectoryEntry is one parsed 128-byte directory entry, addressed by its
// SID (its index in the on-disk directory array; Reader.Entries() lists
// entries in SID order but omits unused slots, so a position in that slice
// need not equal the SID). Sibling and child relationships are
// represented as SIDs rather than pointers, so the whole directory sits in
// one flat slice with no cyclic borrow problems.
type DirectoryEntry struct {
	SID  int
	Name string

	isStorage bool
	isStream  bool
	isRoot    bool

	leftSibID  uint32
	rightSibID uint32
	childID    uint32

	CLSID    [16]byte
	Created  time.Time
	Modified time.Time

	startSect uint32
	Size      uint64
}

// IsStorage reports whether this entry is a storage (including the root).
func (e *DirectoryEntry) IsStorage() bool { return e.isStorage || e.isRoot }

// IsStream reports whether this entry is a stream.
func (e *DirectoryEntry) IsStream() bool { return e.isStream }

// IsRoot reports whether this entry is the Root Entry (SID 0).
func (e *DirectoryEntry) IsRoot() bool { return e.isRoot }

type rawDirEntry struct {
	name      [32]uint16
	nameLen   uint16
	typ       uint8
	color     uint8
	leftSib   uint32
	rightSib  uint32
	child     uint32
	clsid     [16]byte
	stateBits uint32
	created   uint64
	modified  uint64
	startSect uint32
	size      uint64
}

func parseRawDirEntry(b []byte) rawDirEntry {
	var e rawDirEntry
	for i := 0; i < 32; i++ {
		e.name[i] = le16(b[i*2 : i*2+2])
	}
	e.nameLen = le16(b[64:66])
	e.typ = b[66]
	e.color = b[67]
	e.leftSib = le32(b[68:72])
	e.rightSib = le32(b[72:76])
	e.child = le32(b[76:80])
	copy(e.clsid[:], b[80:96])
	e.stateBits = le32(b[96:100])
	e.created = le64(b[100:108])
	e.modified = le64(b[108:116])
	e.startSect = le32(b[116:120])
	e.size = le64(b[120:128])
	return e
}

// loadDirectory parses the directory stream (itself walked on the FAT
// starting at dirSectorLoc) into the flat entries slice, SID 0 being the
// Root Entry.
func (r *Reader) loadDirectory() error {
	sectors, err := r.fatChain(r.header.dirSectorLoc)
	if err != nil {
		return err
	}
	if uint32(len(sectors)) > r.cfg.maxSectors {
		return newErr("loadDirectory", OutOfRange, nil)
	}
	perSector := int(r.header.sectorSize) / dirEntrySize
	entries := make([]*DirectoryEntry, 0, len(sectors)*perSector)
	for _, sn := range sectors {
		buf, err := r.readSector(sn)
		if err != nil {
			return newErr("loadDirectory", Io, err)
		}
		for i := 0; i < perSector; i++ {
			off := i * dirEntrySize
			raw := parseRawDirEntry(buf[off : off+dirEntrySize])
			entry, err := toDirectoryEntry(len(entries), raw, r.header.majorVersion)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
	}
	if len(entries) == 0 || entries[0].typ() != typeRoot {
		return newErr("loadDirectory", MalformedDirectory, nil)
	}
	r.entriesSlice = entries
	return nil
}

// typ is an internal accessor used only while validating during load;
// public callers use IsStorage/IsStream/IsRoot instead.
func (e *DirectoryEntry) typ() uint8 {
	switch {
	case e.isRoot:
		return typeRoot
	case e.isStorage:
		return typeStorage
	case e.isStream:
		return typeStream
	default:
		return typeInvalid
	}
}

func toDirectoryEntry(sid int, raw rawDirEntry, majorVersion uint16) (*DirectoryEntry, error) {
	if raw.nameLen > 64 {
		return nil, newErr("toDirectoryEntry", MalformedDirectory, nil)
	}
	nlen := 0
	if raw.nameLen >= 2 {
		nlen = int(raw.nameLen/2) - 1
	}
	if nlen < 0 || nlen > 32 {
		return nil, newErr("toDirectoryEntry", MalformedDirectory, nil)
	}
	name := decodeUTF16(raw.name[:nlen])

	size := raw.size
	if majorVersion == 3 {
		// open question: v3 streams are 32-bit; the high half
		// of the on-disk 64-bit field is reserved and must be masked off,
		// never trusted as part of the size.
		size = uint64(uint32(raw.size))
	}

	e := &DirectoryEntry{
		SID:        sid,
		Name:       name,
		leftSibID:  raw.leftSib,
		rightSibID: raw.rightSib,
		childID:    raw.child,
		CLSID:      raw.clsid,
		Created:    filetimeToTime(raw.created),
		Modified:   filetimeToTime(raw.modified),
		startSect:  raw.startSect,
		Size:       size,
	}
	switch raw.typ {
	case typeRoot:
		e.isRoot = true
	case typeStorage:
		e.isStorage = true
	case typeStream:
		e.isStream = true
	case typeInvalid:
		// Unused directory slot; kept so SIDs line up with the on-disk
		// array, skipped by callers via typ() == typeInvalid.
	default:
		return nil, newErr("toDirectoryEntry", MalformedDirectory, nil)
	}
	return e, nil
}

// compareNames implements the directory comparison order:
// shorter names sort first; names of equal length compare pairwise by
// ASCII-upper-cased UTF-16 code unit. Returns <0, 0, >0 like strings.Compare.
func compareNames(a, b string) int {
	ua := utf16Encode(a)
	ub := utf16Encode(b)
	if len(ua) != len(ub) {
		if len(ua) < len(ub) {
			return -1
		}
		return 1
	}
	for i := range ua {
		ca, cb := asciiUpper(ua[i]), asciiUpper(ub[i])
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
	}
	return 0
}

func asciiUpper(u uint16) uint16 {
	if u >= 'a' && u <= 'z' {
		return u - ('a' - 'A')
	}
	return u
}

// children performs an in-order traversal (left, self, right) of the
// RB-tree rooted at parent.childID, returning entries in the directory's
// sort order. Only sibling-pointer validity and acyclicity are relied on;
// the color bit is never consulted.
// A visited bitset sized to len(entries) bounds the walk so a malformed
// tree can never recurse or loop unboundedly.
func (r *Reader) children(parent *DirectoryEntry) ([]*DirectoryEntry, error) {
	if parent.childID == noStream {
		return nil, nil
	}
	visited := make([]bool, len(r.entriesSlice))
	var out []*DirectoryEntry
	var walk func(sid uint32) error
	walk = func(sid uint32) error {
		if sid == noStream {
			return nil
		}
		if int(sid) >= len(r.entriesSlice) {
			return newErr("children", MalformedDirectory, nil)
		}
		if visited[sid] {
			return newErr("children", MalformedDirectory, nil)
		}
		visited[sid] = true
		e := r.entriesSlice[sid]
		if err := walk(e.leftSibID); err != nil {
			return err
		}
		out = append(out, e)
		return walk(e.rightSibID)
	}
	if err := walk(parent.childID); err != nil {
		return nil, err
	}
	return out, nil
}

// lookupChild searches the RB-tree rooted at parent.childID for an entry
// named name, using the directory comparison order. In the
// default lenient mode, the descent is merely bounded by len(entries)+1
// steps, so a malformed (non-BST) tree degrades to NotFound once the bound
// is hit, the same as a genuinely absent name. With WithStrictDirectory(true)
// set, a revisited SID is recognized explicitly and reported as
// MalformedDirectory instead.
func (r *Reader) lookupChild(parent *DirectoryEntry, name string) (*DirectoryEntry, error) {
	if r.cfg.strictDirectory {
		return r.lookupChildStrict(parent, name)
	}
	sid := parent.childID
	bound := len(r.entriesSlice) + 1
	for i := 0; i < bound; i++ {
		if sid == noStream {
			return nil, newErr("lookupChild", NotFound, nil)
		}
		if int(sid) >= len(r.entriesSlice) {
			return nil, newErr("lookupChild", MalformedDirectory, nil)
		}
		e := r.entriesSlice[sid]
		switch c := compareNames(name, e.Name); {
		case c == 0:
			return e, nil
		case c < 0:
			sid = e.leftSibID
		default:
			sid = e.rightSibID
		}
	}
	return nil, newErr("lookupChild", NotFound, nil)
}

// lookupChildStrict is lookupChild's WithStrictDirectory(true) variant: it
// tracks every SID visited during the descent and reports MalformedDirectory
// the moment one is seen twice, rather than relying on a step bound to
// eventually give up and report a plain NotFound.
func (r *Reader) lookupChildStrict(parent *DirectoryEntry, name string) (*DirectoryEntry, error) {
	sid := parent.childID
	visited := make([]bool, len(r.entriesSlice))
	for {
		if sid == noStream {
			return nil, newErr("lookupChild", NotFound, nil)
		}
		if int(sid) >= len(r.entriesSlice) {
			return nil, newErr("lookupChild", MalformedDirectory, nil)
		}
		if visited[sid] {
			return nil, newErr("lookupChild", MalformedDirectory, nil)
		}
		visited[sid] = true
		e := r.entriesSlice[sid]
		switch c := compareNames(name, e.Name); {
		case c == 0:
			return e, nil
		case c < 0:
			sid = e.leftSibID
		default:
			sid = e.rightSibID
		}
	}
}
