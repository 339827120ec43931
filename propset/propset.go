// Package propset decodes the Property Set stream layout
// that Windows layers on top of a CFB stream — the format behind
// \x05SummaryInformation and \x05DocumentSummaryInformation. It is a
// consumer of any stream-like source (typically a *cfb.Stream), not of the
// CFB container directly.
package propset

import (
	"encoding/binary"
	"io"

	"github.com/go-ole2/cfb"
)

// Tag identifies the on-disk variant type of a property value. The high bits VectorFlag/ArrayFlag wrap a base Tag.
type Tag uint32

// Base property type tags this package recognizes. Anything else is
// surfaced to the Visitor unparsed via the catch-all handling in sliceValue.
const (
	TypeEmpty    Tag = 0
	TypeNull     Tag = 1
	TypeI2       Tag = 2
	TypeI4       Tag = 3
	TypeR4       Tag = 4
	TypeR8       Tag = 5
	TypeCY       Tag = 6
	TypeDate     Tag = 7
	TypeBSTR     Tag = 8
	TypeBool     Tag = 11
	TypeI1       Tag = 16
	TypeUI1      Tag = 17
	TypeUI2      Tag = 18
	TypeUI4      Tag = 19
	TypeI8       Tag = 20
	TypeUI8      Tag = 21
	TypeLPSTR    Tag = 30
	TypeLPWSTR   Tag = 31
	TypeFileTime Tag = 64
	TypeBlob     Tag = 65
	TypeCF       Tag = 71
	TypeCLSID    Tag = 72

	VectorFlag   Tag = 0x1000
	ArrayFlag    Tag = 0x2000
	baseTypeMask Tag = 0x0FFF
)

// IsVector reports whether t carries the VECTOR high bit.
func (t Tag) IsVector() bool { return t&VectorFlag != 0 }

// IsArray reports whether t carries the ARRAY high bit.
func (t Tag) IsArray() bool { return t&ArrayFlag != 0 }

// Base strips the VECTOR/ARRAY high bits, returning the element type.
func (t Tag) Base() Tag { return t & baseTypeMask }

// CodepageProperty is the well-known property id (within any section)
// giving the codepage for that section's LPSTR/VT_BSTR values.
const CodepageProperty = 1

// DefaultCodepage is assumed when a section carries no CodepageProperty.
const DefaultCodepage uint16 = 1252

// FMTID is a 16-byte section identifier.
type FMTID [16]byte

// Well-known FMTIDs, per MS-OLEPS, for the two property sets the Office
// binary formats actually ship.
var (
	FMTIDSummaryInformation = FMTID{
		0xE0, 0x85, 0x9F, 0xF2, 0xF9, 0x4F, 0x68, 0x10,
		0xAB, 0x91, 0x08, 0x00, 0x2B, 0x27, 0xB3, 0xD9,
	}
	FMTIDDocSummaryInformation = FMTID{
		0x02, 0xD5, 0xCD, 0xD5, 0x9C, 0x2E, 0x1B, 0x10,
		0x93, 0x97, 0x08, 0x00, 0x2B, 0x2C, 0xF9, 0xAE,
	}
)

// Source is the minimal random-access surface Decode needs from a stream;
// *cfb.Stream satisfies it without this package importing cfb's internals.
type Source interface {
	io.ReaderAt
	Len() uint64
}

// Visitor is the pull-style callback Decode drives:
// value is the raw on-disk bytes of the property's value, immediately
// following its 4-byte type tag, unparsed and untranscoded. Returning false
// stops iteration early without that being treated as an error.
type Visitor func(fmtid FMTID, propertyID uint32, tag Tag, value []byte) (cont bool)

const headerSize = 28 // wByteOrder, wFormat, dwOSVer, CLSID(16), cSections

// Decode parses src as a property-set stream and drives visit over every
// property of every section: sections in set-header order, properties in
// (propertyID, offset)-table order within each section.
//
// A structural failure (bad header, truncated section table) aborts the
// whole decode. A MalformedPropertySet violation scoped to one property
// stops decoding further properties in that section, but Decode continues
// on to the next section; it is not itself returned as an error.
//
// The second return value gives, for any section whose CodepageProperty
// was present and decodable, the codepage id to hand the codepage package
// when transcoding that section's LPSTR/BSTR values; sections
// absent from the map should be treated as DefaultCodepage.
func Decode(src Source, visit Visitor) (map[FMTID]uint16, error) {
	data, err := readAll(src)
	if err != nil {
		return nil, cfb.NewError("propset.Decode", cfb.Io, err)
	}
	if len(data) < headerSize {
		return nil, cfb.NewError("propset.Decode", cfb.MalformedPropertySet, nil)
	}
	byteOrder := binary.LittleEndian.Uint16(data[0:2])
	if byteOrder != 0xFFFE {
		return nil, cfb.NewError("propset.Decode", cfb.BadByteOrder, nil)
	}
	numSections := binary.LittleEndian.Uint32(data[24:28])

	codepages := make(map[FMTID]uint16)
	pos := headerSize
	for i := uint32(0); i < numSections; i++ {
		if pos+20 > len(data) {
			return codepages, cfb.NewError("propset.Decode", cfb.MalformedPropertySet, nil)
		}
		var fmtid FMTID
		copy(fmtid[:], data[pos:pos+16])
		offset := binary.LittleEndian.Uint32(data[pos+16 : pos+20])
		pos += 20

		stop, err := decodeSection(data, fmtid, int(offset), codepages, visit)
		if err != nil {
			return codepages, err
		}
		if stop {
			return codepages, nil
		}
	}
	return codepages, nil
}

func readAll(src Source) ([]byte, error) {
	n := int64(src.Len())
	buf := make([]byte, n)
	if _, err := io.ReadFull(io.NewSectionReader(src, 0, n), buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// decodeSection parses one section header and its property table, calling
// visit for every property. A malformed section header (bad cbSection,
// table overrunning the stream) is scoped to this section: it is skipped
// and decodeSection reports no error, so the caller proceeds to the next
// section. stop reports whether visit asked to end iteration entirely.
func decodeSection(data []byte, fmtid FMTID, offset int, codepages map[FMTID]uint16, visit Visitor) (stop bool, err error) {
	if offset < 0 || offset+8 > len(data) {
		return false, nil
	}
	cbSection := binary.LittleEndian.Uint32(data[offset : offset+4])
	cProperties := binary.LittleEndian.Uint32(data[offset+4 : offset+8])

	tableBytes := uint64(8) + 8*uint64(cProperties)
	if uint64(cbSection) < tableBytes {
		return false, nil
	}
	sectionEnd := offset + int(cbSection)
	if sectionEnd > len(data) || sectionEnd < offset {
		return false, nil
	}
	section := data[offset:sectionEnd]

	type propRef struct {
		id     uint32
		offset uint32
	}
	props := make([]propRef, cProperties)
	tablePos := 8
	for i := range props {
		props[i] = propRef{
			id:     binary.LittleEndian.Uint32(section[tablePos : tablePos+4]),
			offset: binary.LittleEndian.Uint32(section[tablePos+4 : tablePos+8]),
		}
		tablePos += 8
	}

	for _, p := range props {
		if uint64(p.offset)+4 > uint64(len(section)) {
			return false, nil // : abort this section only
		}
		valueStart := int(p.offset) + 4
		tag := Tag(binary.LittleEndian.Uint32(section[p.offset : p.offset+4]))

		value, ok := sliceValue(section, valueStart, tag)
		if !ok {
			return false, nil
		}
		if p.id == CodepageProperty && tag.Base() == TypeI2 && len(value) >= 2 {
			cp := binary.LittleEndian.Uint16(value[:2])
			codepages[fmtid] = cp
		}
		if !visit(fmtid, p.id, tag, value) {
			return true, nil
		}
	}
	return false, nil
}

// sliceValue returns the raw bytes of one property's value (everything
// after its 4-byte type tag), bounds-checked against section, or ok=false
// if the computed length runs past the section.
func sliceValue(section []byte, start int, tag Tag) (value []byte, ok bool) {
	switch {
	case tag.IsVector() || tag.IsArray():
		return sliceVector(section, start, tag.Base())
	case tag == TypeLPWSTR:
		return sliceVariableWide(section, start)
	default:
		if n, ok := fixedSize(tag); ok {
			return sliceFixed(section, start, n)
		}
		// BSTR, LPSTR, BLOB, CF: byte-count-prefixed. Unrecognized tags
		// outside this package's closed subset are treated the same way on the assumption that any
		// vendor extension still follows the common length-prefix shape;
		// if that assumption is wrong sliceVariable's bounds check against
		// the section rejects the result (and decodeSection abandons the
		// section) rather than silently misreading past the section.
		return sliceVariable(section, start)
	}
}

// fixedSize returns the natural byte width of scalar base types that carry
// no length prefix, or ok=false for variable-length / unrecognized types.
func fixedSize(tag Tag) (n int, ok bool) {
	switch tag {
	case TypeEmpty, TypeNull:
		return 0, true
	case TypeI1, TypeUI1:
		return 1, true
	case TypeI2, TypeUI2, TypeBool:
		return 2, true
	case TypeI4, TypeUI4, TypeR4:
		return 4, true
	case TypeR8, TypeCY, TypeDate, TypeI8, TypeUI8, TypeFileTime:
		return 8, true
	case TypeCLSID:
		return 16, true
	default:
		return 0, false
	}
}

func sliceFixed(section []byte, start, n int) ([]byte, bool) {
	if start < 0 || start+n > len(section) {
		return nil, false
	}
	return section[start : start+n], true
}

// sliceVariable handles the byte-count-prefixed base types: BSTR/LPSTR
// (8-bit, count of bytes including any terminator), BLOB and CF (byte count
// of what follows). LPWSTR, whose count is in UTF-16 code units, goes
// through sliceVariableWide instead.
func sliceVariable(section []byte, start int) ([]byte, bool) {
	if start < 0 || start+4 > len(section) {
		return nil, false
	}
	count := binary.LittleEndian.Uint32(section[start : start+4])
	end := start + 4 + int(count)
	if end < start || end > len(section) {
		return nil, false
	}
	return section[start:end], true
}

// sliceVariableWide is sliceVariable's counterpart for LPWSTR, whose count
// prefix is in 2-byte UTF-16 code units rather than raw bytes.
func sliceVariableWide(section []byte, start int) ([]byte, bool) {
	if start < 0 || start+4 > len(section) {
		return nil, false
	}
	count := binary.LittleEndian.Uint32(section[start : start+4])
	end := start + 4 + int(count)*2
	if end < start || end > len(section) {
		return nil, false
	}
	return section[start:end], true
}

// sliceVector parses a VECTOR/ARRAY-wrapped value: a leading cElems (u32)
// followed by cElems elements of the base type. Scalars
// narrower than 32 bits pack at their natural width; scalars at or above
// 32 bits are already a multiple of 4 bytes wide, so no extra padding is
// needed either way. Strings carry their own per-element length prefix and
// are individually consumed the same way a scalar LPSTR/LPWSTR would be,
// except each string element is additionally padded up to the next 4-byte
// boundary before the next element starts — unlike a bare scalar LPSTR/LPWSTR
// property, which carries no such trailing pad.
func sliceVector(section []byte, start int, base Tag) ([]byte, bool) {
	if start < 0 || start+4 > len(section) {
		return nil, false
	}
	cElems := binary.LittleEndian.Uint32(section[start : start+4])
	pos := start + 4
	for i := uint32(0); i < cElems; i++ {
		switch base {
		case TypeLPSTR, TypeBSTR:
			elem, ok := sliceVariable(section, pos)
			if !ok {
				return nil, false
			}
			pos += len(elem)
			pos = (pos + 3) &^ 3
		case TypeLPWSTR:
			elem, ok := sliceVariableWide(section, pos)
			if !ok {
				return nil, false
			}
			pos += len(elem)
			pos = (pos + 3) &^ 3
		default:
			n, ok := fixedSize(base)
			if !ok {
				return nil, false
			}
			if pos+n > len(section) {
				return nil, false
			}
			pos += n
		}
	}
	if pos > len(section) {
		return nil, false
	}
	return section[start:pos], true
}
