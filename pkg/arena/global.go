/*
 * Copyright 2025 SREDiag Authors
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
	"sync"

	cmap "github.com/orcaman/concurrent-map/v2"
)

var (
	defaultMu    sync.Mutex
	defaultName  string
	defaultAlloc *Allocator

	// attached memoizes every arena this process has opened, keyed by
	// bootstrap region name, so repeated attaches share one handle cache
	// and one set of cursors.
	attached = cmap.New[*Allocator]()
)

// SetDefaultArena records the arena Default opens on first use, typically a
// name handed down by a parent process. It must be called before any
// goroutine touches Default; once the default allocator exists the call is
// ignored.
func SetDefaultArena(name string) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultAlloc != nil {
		internalLogger.warnf("SetDefaultArena(%q) ignored: default arena already initialized", name)
		return
	}
	defaultName = name
}

// Default returns the process-wide allocator, building it on first use: it
// opens the recorded arena name if one was set, else creates a fresh arena
// whose generated name DefaultArenaName exposes for export to children.
// Failure to create or attach shared memory at bootstrap is an unrecoverable
// environment failure and panics.
func Default() *Allocator {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultAlloc != nil {
		return defaultAlloc
	}
	var (
		a   *Allocator
		err error
	)
	if defaultName != "" {
		a, err = Open(defaultName, nil)
		if err != nil {
			internalLogger.errorf("default arena bootstrap failed: %v", err)
			panic(fmt.Sprintf("arena: failed to open shared arena %q: %v", defaultName, err))
		}
	} else {
		a, err = Create(nil)
		if err != nil {
			internalLogger.errorf("default arena bootstrap failed: %v", err)
			panic(fmt.Sprintf("arena: failed to create shared arena: %v", err))
		}
	}
	defaultAlloc = a
	attached.Set(a.Name(), a)
	return a
}

// DefaultArenaName returns the default arena's bootstrap region name,
// constructing the arena if needed.
func DefaultArenaName() string {
	return Default().Name()
}

// Attach opens the named arena at most once per process and memoizes the
// allocator. Two goroutines racing on a cold name both get the same winner;
// the loser's allocator is abandoned without unmapping, the same rule the
// handle cache applies to segments.
func Attach(name string) (*Allocator, error) {
	if a, ok := attached.Get(name); ok {
		return a, nil
	}
	a, err := Open(name, nil)
	if err != nil {
		return nil, err
	}
	if !attached.SetIfAbsent(name, a) {
		winner, _ := attached.Get(name)
		return winner, nil
	}
	return a, nil
}
