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
	"sync/atomic"
	"unsafe"

	"github.com/srediag/shm-arena/internal/shm"
)

// MaxSegments is the fixed capacity of an arena's segment registry. Slots
// are claimed for the arena's lifetime and never recycled.
const MaxSegments = 10_000

// Registry block layout, little-endian, zero-initialized at creation:
//
//	u64 claim counter | MaxSegments one-byte claim flags | MaxSegments name slots
//
// A name slot is one length byte plus up to 32 name bytes, padded to keep
// the slots aligned.
const (
	maxSegmentNameLen = 32
	nameSlotSize      = 40

	counterOffset = 0
	flagsOffset   = 8
	namesOffset   = flagsOffset + MaxSegments
	registrySize  = namesOffset + MaxSegments*nameSlotSize
)

// segmentRegistry is the shared-memory table of every segment in the arena.
// It lives in the bootstrap region whose name identifies the arena.
type segmentRegistry struct {
	region *shm.Region
}

// createRegistry allocates and zero-initializes a fresh registry block under
// a generated name. A new /dev/shm file is born zero-filled, which is
// exactly the initial state the layout requires.
func createRegistry(prefix string) (*segmentRegistry, error) {
	region, err := shm.Create(prefix, registrySize)
	if err != nil {
		return nil, fmt.Errorf("arena: create registry: %w", err)
	}
	return &segmentRegistry{region: region}, nil
}

// openRegistry attaches an existing registry block by its region name.
func openRegistry(name string) (*segmentRegistry, error) {
	region, err := shm.Open(name)
	if err != nil {
		return nil, fmt.Errorf("arena: open registry %q: %w", name, err)
	}
	if region.Size() < registrySize {
		return nil, fmt.Errorf("%w: %q is %d bytes, need %d", ErrRegionTooSmall, name, region.Size(), registrySize)
	}
	return &segmentRegistry{region: region}, nil
}

// name returns the arena's bootstrap region name, the datum other processes
// need to open the same arena.
func (r *segmentRegistry) name() string {
	return r.region.Name
}

func (r *segmentRegistry) counter() *atomic.Uint64 {
	return (*atomic.Uint64)(unsafe.Pointer(&r.region.Data[counterOffset]))
}

// segmentCount returns the number of completed registrations observed so far.
func (r *segmentRegistry) segmentCount() uint64 {
	return r.counter().Load()
}

// claimFlag test-and-sets the one-byte claim flag for a slot, returning true
// when this caller won it. sync/atomic has no byte-wide operations, so the
// byte is flipped through a CAS loop on its containing aligned 32-bit word.
func (r *segmentRegistry) claimFlag(idx int) bool {
	word := (*atomic.Uint32)(unsafe.Pointer(&r.region.Data[flagsOffset+(idx&^3)]))
	mask := uint32(1) << ((idx & 3) * 8)
	for {
		old := word.Load()
		if old&mask != 0 {
			return false
		}
		if word.CompareAndSwap(old, old|mask) {
			return true
		}
	}
}

// registerSegment claims a slot for a segment name and returns its id. The
// claim counter is a scan hint: probing starts there and walks forward, so a
// slot is examined by a failed probe at most once over the arena's life.
// Once the flag is claimed and the name written, both are immutable.
func (r *segmentRegistry) registerSegment(name string) (SegmentID, error) {
	if len(name) > maxSegmentNameLen {
		return 0, ErrNameTooLong
	}
	hint := r.counter().Load()
	for idx := int(hint); idx < MaxSegments; idx++ {
		if !r.claimFlag(idx) {
			continue
		}
		slot := namesOffset + idx*nameSlotSize
		copy(r.region.Data[slot+1:slot+1+len(name)], name)
		r.region.Data[slot] = byte(len(name))
		// The counter advance makes the registration visible to
		// bounds-checked lookups; the name write above happens first.
		r.counter().Add(1)
		return SegmentID(idx), nil
	}
	return 0, fmt.Errorf("%w: all %d registry slots claimed", ErrArenaExhausted, MaxSegments)
}

// segmentName looks up the region name for an id. Only ids the caller
// already knows (decoded from an address) are meaningful: the bounds check
// against the claim counter does not coordinate with registrations still in
// flight.
func (r *segmentRegistry) segmentName(id SegmentID) (string, error) {
	if uint64(id) >= r.counter().Load() {
		return "", fmt.Errorf("%w: id %d not registered", ErrUnresolvedSegment, id)
	}
	slot := namesOffset + int(id)*nameSlotSize
	n := int(r.region.Data[slot])
	if n == 0 || n > maxSegmentNameLen {
		return "", fmt.Errorf("%w: id %d has a corrupt name slot", ErrUnresolvedSegment, id)
	}
	return string(r.region.Data[slot+1 : slot+1+n]), nil
}
