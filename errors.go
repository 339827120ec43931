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

import (
	"errors"
	"fmt"
)

// Kind classifies the failure modes a CFB or property-set read can hit.
type Kind int

const (
	// Io means the underlying byte source returned an error.
	Io Kind = iota
	// BadSignature means the header magic did not match either accepted value.
	BadSignature
	// UnsupportedVersion means the major version was outside {3,4}.
	UnsupportedVersion
	// BadByteOrder means the header byte-order field was not 0xFFFE.
	BadByteOrder
	// BadSectorShift means the sector or mini-sector shift was out of the legal set.
	BadSectorShift
	// TruncatedFat means the DIFAT chain ended before the declared FAT sector count.
	TruncatedFat
	// TruncatedMiniFat means the mini-FAT chain ended before the declared count.
	TruncatedMiniFat
	// TruncatedDifat means the DIFAT chain ended before csectDif sectors were visited.
	TruncatedDifat
	// OutOfRange means a SECT or offset fell outside the bounds it must respect.
	OutOfRange
	// UnexpectedTerminator means a reserved SECT value (FATSECT/DIFSECT/FREESECT)
	// turned up inside a stream or directory chain, where only ENDOFCHAIN is legal.
	UnexpectedTerminator
	// Cycle means a sector chain revisited a sector.
	Cycle
	// MalformedDirectory means a directory entry's fields were internally inconsistent.
	MalformedDirectory
	// NotFound means a named entry was absent.
	NotFound
	// NotAStorage means a path component that must be a storage was a stream.
	NotAStorage
	// NotAStream means a path's final component was a storage, not a stream.
	NotAStream
	// MalformedPropertySet means a property offset or value length fell outside its section.
	MalformedPropertySet
)

var kindNames = [...]string{
	Io:                    "io",
	BadSignature:          "bad signature",
	UnsupportedVersion:    "unsupported version",
	BadByteOrder:          "bad byte order",
	BadSectorShift:        "bad sector shift",
	TruncatedFat:          "truncated fat",
	TruncatedMiniFat:      "truncated minifat",
	TruncatedDifat:        "truncated difat",
	OutOfRange:            "out of range",
	UnexpectedTerminator:  "unexpected terminator",
	Cycle:                 "cycle",
	MalformedDirectory:    "malformed directory",
	NotFound:              "not found",
	NotAStorage:           "not a storage",
	NotAStream:            "not a stream",
	MalformedPropertySet:  "malformed property set",
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Error is the single tagged error type returned by this package. Op names
// the operation that failed (e.g. "loadFat", "lookupChild"), Kind classifies the
// failure, and Err, when non-nil, is the underlying cause (typically an I/O
// error or another *Error further down a call chain) for errors.Is/As.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cfb: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("cfb: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, target) match by kind: it reports true when the
// target is itself a *Error with the same Kind. Any other target, including
// a bare Kind value, never matches.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newErr(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// NewError is the exported constructor newErr wraps, for collaborating
// packages (propset) that report failures using this package's Kind space
// rather than minting their own.
func NewError(op string, kind Kind, err error) *Error {
	return newErr(op, kind, err)
}

// KindOf reports the Kind of err if it is (or wraps) a *Error from this
// package, and ok=false otherwise.
func KindOf(err error) (k Kind, ok bool) {
	var e *Error
	if err == nil {
		return 0, false
	}
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
