// Package codepage is the external transcoding adapter deliberately kept
// out of the core decoder: propset.Decode surfaces raw LPSTR/LPWSTR bytes
// plus a codepage-id hint, and this package turns those into UTF-8 strings.
// It is not imported by propset or the cfb package.
package codepage

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/go-ole2/cfb/propset"
)

// byID maps the Windows/OEM codepage identifiers that actually show up in
// Office property sets to their golang.org/x/text encoding. 65001 (UTF-8)
// needs no entry since it passes through unchanged.
var byID = map[uint16]encoding.Encoding{
	437:   charmap.CodePage437,
	850:   charmap.CodePage850,
	852:   charmap.CodePage852,
	865:   charmap.CodePage865,
	866:   charmap.CodePage866,
	874:   charmap.Windows874,
	1250:  charmap.Windows1250,
	1251:  charmap.Windows1251,
	1252:  charmap.Windows1252,
	1253:  charmap.Windows1253,
	1254:  charmap.Windows1254,
	1255:  charmap.Windows1255,
	1256:  charmap.Windows1256,
	1257:  charmap.Windows1257,
	1258:  charmap.Windows1258,
	28591: charmap.ISO8859_1,
	28592: charmap.ISO8859_2,
	28605: charmap.ISO8859_15,
}

const utf8Codepage = 65001

// DecodeANSI transcodes b, an ANSI/OEM-codepage byte string as produced by
// propset's LPSTR/BSTR values, to UTF-8 using the given codepage id. A
// codepage of 0 is treated as propset.DefaultCodepage, defaulting to 1252
// when no codepage hint is present.
func DecodeANSI(codepage uint16, b []byte) (string, error) {
	if codepage == 0 {
		codepage = propset.DefaultCodepage
	}
	if codepage == utf8Codepage {
		return string(b), nil
	}
	enc, ok := byID[codepage]
	if !ok {
		return "", fmt.Errorf("codepage: unsupported codepage %d", codepage)
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("codepage: decode codepage %d: %w", codepage, err)
	}
	return string(out), nil
}

// DecodeWide transcodes b, a little-endian UTF-16 byte string as produced
// by propset's LPWSTR values, to UTF-8. Codepage plays no role here; the
// parameter list takes none, unlike DecodeANSI, since UTF-16 is not
// codepage-dependent.
func DecodeWide(b []byte) (string, error) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("codepage: decode utf-16le: %w", err)
	}
	return string(out), nil
}

// TrimNUL drops a single trailing NUL terminator, if present, from an
// already-transcoded string. propset's length-prefixed strings count their
// terminator in the on-disk length, so decoded strings routinely carry one.
func TrimNUL(s string) string {
	if n := len(s); n > 0 && s[n-1] == 0 {
		return s[:n-1]
	}
	return s
}

// DecodeLPSTR is a convenience wrapper combining DecodeANSI and TrimNUL for
// propset LPSTR/BSTR values, which on disk are a 4-byte length prefix
// followed by the string bytes. value must be the raw bytes
// propset.Visitor receives for such a property, including that prefix.
func DecodeLPSTR(codepage uint16, value []byte) (string, error) {
	if len(value) < 4 {
		return "", fmt.Errorf("codepage: LPSTR value too short (%d bytes)", len(value))
	}
	s, err := DecodeANSI(codepage, value[4:])
	if err != nil {
		return "", err
	}
	return TrimNUL(s), nil
}

// DecodeLPWSTR is DecodeLPSTR's counterpart for propset LPWSTR values,
// whose 4-byte length prefix counts UTF-16 code units rather than bytes.
func DecodeLPWSTR(value []byte) (string, error) {
	if len(value) < 4 {
		return "", fmt.Errorf("codepage: LPWSTR value too short (%d bytes)", len(value))
	}
	s, err := DecodeWide(value[4:])
	if err != nil {
		return "", err
	}
	return TrimNUL(s), nil
}
