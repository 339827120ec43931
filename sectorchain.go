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

// fatChain returns the ordered sequence of sectors s0, FAT[s0], FAT[FAT[s0]],
// ... terminating at the first ENDOFCHAIN. A visited bitset
// bounded by len(r.fat) guards against cycles; any non-terminator SECT
// outside [0, len(r.fat)) is OutOfRange; any reserved terminator other than
// ENDOFCHAIN appearing mid-chain is UnexpectedTerminator.
func (r *Reader) fatChain(start uint32) ([]uint32, error) {
	return r.chain(start, r.fat, "fatChain")
}

// miniChain is fatChain's counterpart over the mini-FAT.
func (r *Reader) miniChain(start uint32) ([]uint32, error) {
	return r.chain(start, r.miniFat, "miniChain")
}

func (r *Reader) chain(start uint32, table []uint32, op string) ([]uint32, error) {
	if start == endOfChain {
		return nil, nil
	}
	visited := make([]bool, len(table))
	var sectors []uint32
	sn := start
	for {
		if err := checkTerminator(sn); err != nil {
			return nil, newErr(op, err.(*Error).Kind, nil)
		}
		if int(sn) >= len(table) {
			return nil, newErr(op, OutOfRange, nil)
		}
		if visited[sn] {
			return nil, newErr(op, Cycle, nil)
		}
		visited[sn] = true
		sectors = append(sectors, sn)
		next := table[sn]
		if next == endOfChain {
			return sectors, nil
		}
		sn = next
	}
}

// checkTerminator rejects the reserved SECT values that may never appear as
// a live chain position: only ENDOFCHAIN is legal as a terminator, and this
// function is only called on positions that are about to be dereferenced as
// a sector, so even ENDOFCHAIN reaching it would be a caller bug; it exists
// to reject DIFSECT/FATSECT/FREESECT explicitly rather than let them alias
// into an out-of-range table index silently.
func checkTerminator(sn uint32) error {
	switch sn {
	case difSect, fatSect, freeSect:
		return newErr("checkTerminator", UnexpectedTerminator, nil)
	default:
		return nil
	}
}
