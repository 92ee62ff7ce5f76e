/*
 * Copyright 2025 SREDiag Authors
 * Copyright 2023 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package arena

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/valyala/bytebufferpool"
)

type logger struct {
	name      string
	out       io.Writer
	callDepth int
}

var (
	internalLogger = &logger{"", os.Stdout, 3}

	// level is read by every log call while SetLogLevel may store
	// concurrently, so it has to be atomic.
	level atomic.Int32

	magenta = string([]byte{27, 91, 57, 53, 109}) // Trace
	green   = string([]byte{27, 91, 57, 50, 109}) // Debug
	blue    = string([]byte{27, 91, 57, 52, 109}) // Info
	yellow  = string([]byte{27, 91, 57, 51, 109}) // Warn
	red     = string([]byte{27, 91, 57, 49, 109}) // Error
	reset   = string([]byte{27, 91, 48, 109})

	colors = []string{
		magenta,
		green,
		blue,
		yellow,
		red,
	}

	levelName = []string{
		"Trace",
		"Debug",
		"Info",
		"Warn",
		"Error",
	}
)

const (
	levelTrace = iota
	levelDebug
	levelInfo
	levelWarn
	levelError
	levelNoPrint
)

func init() {
	level.Store(levelWarn)
	if os.Getenv("SHMARENA_LOG_LEVEL") != "" {
		if n, err := strconv.Atoi(os.Getenv("SHMARENA_LOG_LEVEL")); err == nil {
			if n <= levelNoPrint {
				level.Store(int32(n))
			}
		}
	}
}

// SetLogLevel changes the internal logger's level; the default is Warn.
// The process env `SHMARENA_LOG_LEVEL` sets it too.
func SetLogLevel(l int) {
	if l <= levelNoPrint {
		level.Store(int32(l))
	}
}

func (l *logger) errorf(format string, a ...interface{}) {
	if level.Load() > levelError {
		return
	}
	fmt.Fprintf(l.out, l.prefix(levelError)+format+reset+"\n", a...)
}

func (l *logger) warnf(format string, a ...interface{}) {
	if level.Load() > levelWarn {
		return
	}
	fmt.Fprintf(l.out, l.prefix(levelWarn)+format+reset+"\n", a...)
}

func (l *logger) infof(format string, a ...interface{}) {
	if level.Load() > levelInfo {
		return
	}
	fmt.Fprintf(l.out, l.prefix(levelInfo)+format+reset+"\n", a...)
}

func (l *logger) debugf(format string, a ...interface{}) {
	if level.Load() > levelDebug {
		return
	}
	fmt.Fprintf(l.out, l.prefix(levelDebug)+format+reset+"\n", a...)
}

func (l *logger) tracef(format string, a ...interface{}) {
	if level.Load() > levelTrace {
		return
	}
	fmt.Fprintf(l.out, l.prefix(levelTrace)+format+reset+"\n", a...)
}

func (l *logger) prefix(level int) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	_, _ = buf.WriteString(colors[level])
	_, _ = buf.WriteString(levelName[level])
	_ = buf.WriteByte(' ')
	_, _ = buf.WriteString(time.Now().Format("2006-01-02 15:04:05.999999"))
	_ = buf.WriteByte(' ')
	_, _ = buf.WriteString(l.location())
	_ = buf.WriteByte(' ')
	_, _ = buf.WriteString(l.name)
	_ = buf.WriteByte(' ')
	return buf.String()
}

func (l *logger) location() string {
	_, file, line, ok := runtime.Caller(l.callDepth)
	if !ok {
		file = "???"
		line = 0
	}
	file = filepath.Base(file)
	return file + ":" + strconv.Itoa(line)
}
