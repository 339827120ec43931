package cfb

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMinimalFile(t *testing.T) {
	img := buildImage(nil)
	r, err := Open(bytes.NewReader(img.bytes))
	require.NoError(t, err)
	require.NotNil(t, r.Root())
	assert.True(t, r.Root().IsRoot())
	assert.Len(t, r.Entries(), 1)
}

func TestOpenAndReadMiniStream(t *testing.T) {
	data := bytes.Repeat([]byte("a"), 100) // well under the 4096 cutoff
	img := buildImage([]imageStream{{name: "Small", data: data}})
	r, err := Open(bytes.NewReader(img.bytes))
	require.NoError(t, err)

	entry, err := r.Lookup("Small")
	require.NoError(t, err)
	assert.True(t, entry.IsStream())
	assert.EqualValues(t, len(data), entry.Size)

	s, err := r.OpenStream(entry)
	require.NoError(t, err)
	got := make([]byte, len(data))
	_, err = s.ReadAt(got, 0)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestOpenAndReadFullStream(t *testing.T) {
	data := bytes.Repeat([]byte("b"), 5000) // at/above the cutoff, FAT-backed
	img := buildImage([]imageStream{{name: "Big", data: data}})
	r, err := Open(bytes.NewReader(img.bytes))
	require.NoError(t, err)

	entry, err := r.Lookup("Big")
	require.NoError(t, err)

	s, err := r.OpenStream(entry)
	require.NoError(t, err)
	got, err := io.ReadAll(io.NewSectionReader(s, 0, int64(s.Len())))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestOpenAndReadScatteredChain(t *testing.T) {
	data := make([]byte, 10000)
	for i := range data {
		data[i] = byte(i)
	}
	img := buildImage([]imageStream{{name: "Long", data: data, scatter: true}})
	r, err := Open(bytes.NewReader(img.bytes))
	require.NoError(t, err)

	entry, err := r.Lookup("Long")
	require.NoError(t, err)
	s, err := r.OpenStream(entry)
	require.NoError(t, err)

	got, err := io.ReadAll(io.NewSectionReader(s, 0, int64(s.Len())))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestDirectoryLookupAcrossSiblings(t *testing.T) {
	img := buildImage([]imageStream{
		{name: "Zebra", data: []byte("z")},
		{name: "Apple", data: []byte("a")},
		{name: "Mango", data: []byte("m")},
	})
	r, err := Open(bytes.NewReader(img.bytes))
	require.NoError(t, err)

	for _, name := range []string{"Zebra", "Apple", "Mango"} {
		e, err := r.Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, e.Name)
	}

	_, err = r.Lookup("Missing")
	assert.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, NotFound, kind)

	children, err := r.Children(r.Root())
	require.NoError(t, err)
	var names []string
	for _, c := range children {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Apple", "Mango", "Zebra"}, names)
}

func TestFatCycleIsRejected(t *testing.T) {
	img := buildImage([]imageStream{{name: "Big", data: bytes.Repeat([]byte("c"), 5000)}})
	// Corrupt FAT[1] (the first sector of "Big") to point at itself. This
	// doesn't affect Open, which never walks a non-root stream's chain
	// eagerly, only OpenStream on that specific entry.
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], 1)
	copy(img.bytes[img.fatEntryOffset(1):], buf[:])

	r, err := Open(bytes.NewReader(img.bytes))
	require.NoError(t, err)

	entry, err := r.Lookup("Big")
	require.NoError(t, err)
	_, err = r.OpenStream(entry)
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, Cycle, kind)
}

func TestWithMaxSectorsRejectsOversizedDirectory(t *testing.T) {
	// 5 tiny streams plus the root force more than one directory sector
	// (4 entries/sector), which a maxSectors of 1 must reject.
	var streams []imageStream
	for i := 0; i < 5; i++ {
		streams = append(streams, imageStream{name: string(rune('A' + i)), data: []byte{byte(i)}})
	}
	img := buildImage(streams)
	_, err := Open(bytes.NewReader(img.bytes), WithMaxSectors(1))
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, OutOfRange, kind)
}

func TestStrictDirectoryDetectsCycleLookupMissesSilently(t *testing.T) {
	img := buildImage([]imageStream{
		{name: "Apple", data: []byte("a")},
		{name: "Mango", data: []byte("m")},
		{name: "Zebra", data: []byte("z")},
	})
	// Zebra (SID 3) is the last sibling in the degenerate BST; point its
	// rightSibID back at Apple (SID 1) to make the chain cyclic.
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], 1)
	copy(img.bytes[img.dirEntryOffset(3)+72:], buf[:])

	lenientR, err := Open(bytes.NewReader(img.bytes))
	require.NoError(t, err)
	_, err = lenientR.Lookup("Missing")
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, NotFound, kind, "lenient mode should mask the cycle as a plain miss")

	strictR, err := Open(bytes.NewReader(img.bytes), WithStrictDirectory(true))
	require.NoError(t, err)
	_, err = strictR.Lookup("Missing")
	require.Error(t, err)
	kind, ok = KindOf(err)
	require.True(t, ok)
	assert.Equal(t, MalformedDirectory, kind, "strict mode must report the cycle instead of a plain miss")
}

func TestLookupThroughStreamIsNotAStorage(t *testing.T) {
	img := buildImage([]imageStream{{name: "Leaf", data: []byte("x")}})
	r, err := Open(bytes.NewReader(img.bytes))
	require.NoError(t, err)

	_, err = r.Lookup("Leaf", "AnythingBelow")
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, NotAStorage, kind)
}
