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
	"io"
	"log"
)

// Logger is the minimal logging interface this package writes trace-level
// diagnostics through. It matches the stdlib *log.Logger's Printf so
// callers can pass one in directly. A Reader opened without WithLogger uses
// a logger that discards everything.
type Logger interface {
	Printf(format string, v ...interface{})
}

// discardLogger is the default: silent, matching the rest of this corpus's
// convention of defaulting logging to io.Discard rather than stderr.
var discardLogger Logger = log.New(io.Discard, "", 0)
