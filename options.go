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

// defaultMaxSectors bounds each of the sector counts a single Open call
// loads (DIFAT, FAT, mini-FAT and directory), each checked on its own
// against this ceiling, guarding against a pathological or adversarial
// file driving unbounded memory use before any chain-level cycle check
// gets a chance to fire.
const defaultMaxSectors = 1 << 24 // 16M sectors (8GiB at 512B/sector)

// ReaderOption configures Open. With no options, Open uses the package's
// historical defaults: a discarding logger, the built-in sector-count
// ceiling and lenient directory lookup.
type ReaderOption func(*readerConfig)

type readerConfig struct {
	logger          Logger
	maxSectors      uint32
	strictDirectory bool
}

func defaultConfig() readerConfig {
	return readerConfig{logger: discardLogger, maxSectors: defaultMaxSectors}
}

// WithLogger routes trace-level diagnostics (never used in place of a
// returned error) to l instead of discarding them.
func WithLogger(l Logger) ReaderOption {
	return func(c *readerConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxSectors overrides the sector-count ceiling used as a denial-of-
// service guard while loading the FAT, mini-FAT and directory.
func WithMaxSectors(n uint32) ReaderOption {
	return func(c *readerConfig) {
		if n > 0 {
			c.maxSectors = n
		}
	}
}

// WithStrictDirectory toggles strict RB-tree traversal bounds on Lookup.
// By default (lenient, strict=false) a descent through a non-BST or
// otherwise malformed sibling chain is merely bounded: it stops once it
// has taken more steps than there are entries and reports NotFound, the
// same as a genuinely absent name. With strict=true, a descent that
// revisits a SID it has already seen is recognized as a malformed tree
// and reported as MalformedDirectory instead of silently masquerading as
// a plain lookup miss. Children, which already performs a full in-order
// traversal rather than a bounded descent, always detects a revisited SID
// as MalformedDirectory regardless of this option.
func WithStrictDirectory(strict bool) ReaderOption {
	return func(c *readerConfig) {
		c.strictDirectory = strict
	}
}
