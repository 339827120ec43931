package cfb

import (
	"encoding/binary"
	"sort"
)

// This file builds minimal, byte-exact CFB images in memory so the reader
// can be exercised against known-good (and deliberately corrupt) input
// without depending on real .doc/.xls/.ppt fixtures. It is test-only infrastructure, not part of the package's public
// surface.

const (
	imgSectorSize     = 512
	imgMiniSectorSize = 64
	imgMiniCutoff     = 4096
)

type imageStream struct {
	name      string
	data      []byte
	forceFull bool // use the FAT even if data is smaller than imgMiniCutoff
	scatter   bool // lay the FAT-backed chain out in non-ascending sector order
}

type builtImage struct {
	bytes        []byte
	fatSectorIdx uint32
}

// fatEntryOffset returns the absolute file offset of FAT[sn] within the
// single FAT sector every test image uses, for tests that poke the FAT
// directly (e.g. to synthesize a cycle).
func (b *builtImage) fatEntryOffset(sn uint32) int64 {
	return int64(b.fatSectorIdx+1)*imgSectorSize + int64(sn)*4
}

// dirEntryOffset returns the absolute file offset of directory entry sid's
// 128-byte record, for tests that poke a sibling pointer directly (e.g. to
// synthesize a cyclic RB-tree). Directory sectors are always the first
// sectors allocated by buildImage, so entry sid lives in sector sid/4 at
// byte offset (sid%4)*128 within it.
func (b *builtImage) dirEntryOffset(sid int) int64 {
	sector := sid / 4
	return int64(sector+1)*imgSectorSize + int64(sid%4)*128
}

func buildImage(streams []imageStream) *builtImage {
	next := uint32(0)
	alloc := func(n int) []uint32 {
		out := make([]uint32, n)
		for i := range out {
			out[i] = next
			next++
		}
		return out
	}

	sectorContent := map[uint32][]byte{}
	chainOf := map[uint32]uint32{} // sector -> next sector (FAT entries to set)

	setChainSeq := func(seq []uint32) {
		for i := 0; i+1 < len(seq); i++ {
			chainOf[seq[i]] = seq[i+1]
		}
		if len(seq) > 0 {
			chainOf[seq[len(seq)-1]] = endOfChain
		}
	}

	// --- directory sectors (laid out last, once entry contents are known,
	// but their sector indices are reserved first since the root entry's
	// directory-stream-relative position must be stable) ---
	numDirEntries := 1 + len(streams)
	numDirSectors := (numDirEntries + 3) / 4
	dirSectors := alloc(numDirSectors)

	// --- mini-stream assembly ---
	type miniInfo struct {
		start uint32
		used  bool
	}
	miniInfos := make([]miniInfo, len(streams))
	var miniStreamData []byte
	miniSectorCount := uint32(0)
	for i, s := range streams {
		if s.forceFull || len(s.data) >= imgMiniCutoff {
			continue
		}
		n := (len(s.data) + imgMiniSectorSize - 1) / imgMiniSectorSize
		if n == 0 {
			miniInfos[i] = miniInfo{start: endOfChain, used: true}
			continue
		}
		start := miniSectorCount
		miniSectorCount += uint32(n)
		miniInfos[i] = miniInfo{start: start, used: true}
		padded := make([]byte, n*imgMiniSectorSize)
		copy(padded, s.data)
		miniStreamData = append(miniStreamData, padded...)
	}

	miniStreamSectorCount := (len(miniStreamData) + imgSectorSize - 1) / imgSectorSize
	var miniStreamSectors []uint32
	if miniStreamSectorCount > 0 {
		miniStreamSectors = alloc(miniStreamSectorCount)
		setChainSeq(miniStreamSectors)
		for k, sn := range miniStreamSectors {
			lo, hi := k*imgSectorSize, (k+1)*imgSectorSize
			if hi > len(miniStreamData) {
				hi = len(miniStreamData)
			}
			buf := make([]byte, imgSectorSize)
			copy(buf, miniStreamData[lo:hi])
			sectorContent[sn] = buf
		}
	}

	var miniFatSectors []uint32
	miniFat := make([]uint32, miniSectorCount)
	for i := range miniFat {
		miniFat[i] = freeSect
	}
	{
		// Each stream's own mini sectors are consecutive integers assigned
		// in allocation order, so its chain is exactly
		// [start, start+1, ..., start+n-1] -> ENDOFCHAIN.
		for i, s := range streams {
			if s.forceFull || len(s.data) >= imgMiniCutoff {
				continue
			}
			mi := miniInfos[i]
			if !mi.used || mi.start == endOfChain {
				continue
			}
			n := (len(s.data) + imgMiniSectorSize - 1) / imgMiniSectorSize
			for k := 0; k < n-1; k++ {
				miniFat[mi.start+uint32(k)] = mi.start + uint32(k) + 1
			}
			miniFat[mi.start+uint32(n-1)] = endOfChain
		}
	}
	if miniSectorCount > 0 {
		entries := (int(miniSectorCount) + 127) / 128
		miniFatSectors = alloc(entries)
		setChainSeq(miniFatSectors)
		for k, sn := range miniFatSectors {
			buf := make([]byte, imgSectorSize)
			for j := 0; j < 128; j++ {
				idx := k*128 + j
				v := freeSect
				if idx < len(miniFat) {
					v = miniFat[idx]
				}
				binary.LittleEndian.PutUint32(buf[j*4:j*4+4], v)
			}
			sectorContent[sn] = buf
		}
	}

	// --- full (FAT-backed) streams ---
	type fullInfo struct {
		start uint32
		used  bool
	}
	fullInfos := make([]fullInfo, len(streams))
	for i, s := range streams {
		if !(s.forceFull || len(s.data) >= imgMiniCutoff) {
			continue
		}
		n := (len(s.data) + imgSectorSize - 1) / imgSectorSize
		if n == 0 {
			fullInfos[i] = fullInfo{start: endOfChain, used: true}
			continue
		}
		phys := alloc(n)
		chain := phys
		if s.scatter && n > 1 {
			rev := make([]uint32, n)
			for k := range phys {
				rev[k] = phys[n-1-k]
			}
			chain = rev
		}
		setChainSeq(chain)
		for k, sn := range chain {
			lo, hi := k*imgSectorSize, (k+1)*imgSectorSize
			if hi > len(s.data) {
				hi = len(s.data)
			}
			buf := make([]byte, imgSectorSize)
			copy(buf, s.data[lo:hi])
			sectorContent[sn] = buf
		}
		fullInfos[i] = fullInfo{start: chain[0], used: true}
	}

	// --- FAT sector itself ---
	fatSectorIdx := next
	next++
	chainOf[fatSectorIdx] = fatSect // marker, not a chain link; written directly below

	totalSectors := int(next)
	fat := make([]uint32, totalSectors)
	for i := range fat {
		fat[i] = freeSect
	}
	for sn, nxt := range chainOf {
		fat[sn] = nxt
	}
	{
		buf := make([]byte, imgSectorSize)
		for j := 0; j < 128; j++ {
			v := freeSect
			if j < len(fat) {
				v = fat[j]
			}
			binary.LittleEndian.PutUint32(buf[j*4:j*4+4], v)
		}
		sectorContent[fatSectorIdx] = buf
	}

	// --- directory entries, sorted into a degenerate (but valid) BST:
	// every node's left child is empty and the right-sibling chain visits
	// entries in ascending directory-comparison order.
	type dirEnt struct {
		name      string
		isRoot    bool
		startSect uint32
		size      uint64
	}
	childOrder := make([]int, len(streams))
	for i := range childOrder {
		childOrder[i] = i
	}
	sort.Slice(childOrder, func(a, b int) bool {
		return compareNames(streams[childOrder[a]].name, streams[childOrder[b]].name) < 0
	})

	allEntries := make([]dirEnt, 0, 1+len(streams))
	var rootStart uint32 = endOfChain
	if len(miniStreamSectors) > 0 {
		rootStart = miniStreamSectors[0]
	}
	allEntries = append(allEntries, dirEnt{name: "Root Entry", isRoot: true, startSect: rootStart, size: uint64(len(miniStreamData))})
	for _, si := range childOrder {
		s := streams[si]
		var start uint32
		if s.forceFull || len(s.data) >= imgMiniCutoff {
			start = fullInfos[si].start
		} else {
			start = miniInfos[si].start
		}
		allEntries = append(allEntries, dirEnt{name: s.name, startSect: start, size: uint64(len(s.data))})
	}

	dirBytes := make([]byte, numDirSectors*imgSectorSize)
	for idx, e := range allEntries {
		off := idx * 128
		buf := dirBytes[off : off+128]

		units := utf16Encode(e.name)
		units = append(units, 0)
		for i, u := range units {
			binary.LittleEndian.PutUint16(buf[i*2:i*2+2], u)
		}
		binary.LittleEndian.PutUint16(buf[64:66], uint16(len(units)*2))

		left, right, child := noStream, noStream, noStream
		var typ uint8
		if e.isRoot {
			typ = typeRoot
			if len(allEntries) > 1 {
				child = 1
			}
		} else {
			typ = typeStream
			if idx+1 < len(allEntries) {
				right = uint32(idx + 1)
			}
		}
		buf[66] = typ
		buf[67] = 1 // RB color bit: deliberately left "wrong"
		binary.LittleEndian.PutUint32(buf[68:72], left)
		binary.LittleEndian.PutUint32(buf[72:76], right)
		binary.LittleEndian.PutUint32(buf[76:80], child)
		binary.LittleEndian.PutUint32(buf[116:120], e.startSect)
		binary.LittleEndian.PutUint64(buf[120:128], e.size)
	}
	for k, sn := range dirSectors {
		lo, hi := k*imgSectorSize, (k+1)*imgSectorSize
		buf := make([]byte, imgSectorSize)
		copy(buf, dirBytes[lo:hi])
		sectorContent[sn] = buf
	}
	// dirSectors' own chain isn't in chainOf since the FAT sector's content
	// was already serialized above; patch fat directly and re-serialize.
	for i := 0; i+1 < len(dirSectors); i++ {
		fat[dirSectors[i]] = dirSectors[i+1]
	}
	if len(dirSectors) > 0 {
		fat[dirSectors[len(dirSectors)-1]] = endOfChain
	}
	{
		buf := make([]byte, imgSectorSize)
		for j := 0; j < 128; j++ {
			v := freeSect
			if j < len(fat) {
				v = fat[j]
			}
			binary.LittleEndian.PutUint32(buf[j*4:j*4+4], v)
		}
		sectorContent[fatSectorIdx] = buf
	}

	// --- assemble the file ---
	out := make([]byte, imgSectorSize+totalSectors*imgSectorSize)
	copy(out[0:8], []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	binary.LittleEndian.PutUint16(out[24:26], 0x003E)
	binary.LittleEndian.PutUint16(out[26:28], 3)
	binary.LittleEndian.PutUint16(out[28:30], 0xFFFE)
	binary.LittleEndian.PutUint16(out[30:32], 9)
	binary.LittleEndian.PutUint16(out[32:34], 6)
	binary.LittleEndian.PutUint32(out[44:48], 1) // numFatSectors
	binary.LittleEndian.PutUint32(out[48:52], dirSectors[0])
	binary.LittleEndian.PutUint32(out[56:60], imgMiniCutoff)
	if len(miniFatSectors) > 0 {
		binary.LittleEndian.PutUint32(out[60:64], miniFatSectors[0])
		binary.LittleEndian.PutUint32(out[64:68], uint32(len(miniFatSectors)))
	} else {
		binary.LittleEndian.PutUint32(out[60:64], endOfChain)
	}
	binary.LittleEndian.PutUint32(out[68:72], endOfChain) // no DIFAT chain needed
	for i := 0; i < 109; i++ {
		off := 76 + i*4
		v := freeSect
		if i == 0 {
			v = fatSectorIdx
		}
		binary.LittleEndian.PutUint32(out[off:off+4], v)
	}

	for sn := uint32(0); sn < uint32(totalSectors); sn++ {
		dst := out[int(sn+1)*imgSectorSize : int(sn+2)*imgSectorSize]
		if content, ok := sectorContent[sn]; ok {
			copy(dst, content)
		}
	}

	return &builtImage{bytes: out, fatSectorIdx: fatSectorIdx}
}
