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
	"encoding/binary"
	"fmt"
	"sync/atomic"
)

// SegmentID identifies one shared memory segment within an arena.
type SegmentID uint16

// SharedAddress is the 8-byte globally-resolvable handle for one allocation.
// Bit layout (wire form is this value little-endian):
//
//	bits  0-15  segment id
//	bits 16-23  size-class exponent, never zero for a real address
//	bits 24-31  padding, always zero
//	bits 32-63  byte offset within the segment
//
// The all-zero pattern is reserved as "no address", which lets a plain
// 64-bit atomic cell double as an optional address without tag bits.
type SharedAddress uint64

const (
	classShift   = 16
	paddingShift = 24
	offsetShift  = 32

	classMask   = 0xff << classShift
	paddingMask = 0xff << paddingShift
)

// NewSharedAddress packs the three fields. The class must be in [1,63] and
// the offset representable in 32 bits; both hold for every address this
// engine mints.
func NewSharedAddress(seg SegmentID, class SizeClass, offset uint32) SharedAddress {
	return SharedAddress(uint64(seg) | uint64(class)<<classShift | uint64(offset)<<offsetShift)
}

// AddressFromBits validates foreign bits, e.g. read off the wire.
func AddressFromBits(bits uint64) (SharedAddress, bool) {
	a := SharedAddress(bits)
	return a, a.IsValid()
}

// IsValid reports whether the bits form a real address: nonzero class and
// zero padding.
func (a SharedAddress) IsValid() bool {
	return a&classMask != 0 && a&paddingMask == 0
}

// Segment returns the segment id field.
func (a SharedAddress) Segment() SegmentID {
	return SegmentID(a)
}

// Class returns the size-class exponent field.
func (a SharedAddress) Class() SizeClass {
	return SizeClass(a >> classShift)
}

// Offset returns the byte offset field.
func (a SharedAddress) Offset() uint32 {
	return uint32(a >> offsetShift)
}

// ClassBytes returns the allocation size implied by the class field.
func (a SharedAddress) ClassBytes() uint64 {
	return a.Class().Bytes()
}

// End returns the first byte past the allocation, as a 64-bit quantity so a
// slot ending exactly at 4 GiB does not wrap.
func (a SharedAddress) End() uint64 {
	return uint64(a.Offset()) + a.ClassBytes()
}

// Bits exposes the raw packed value.
func (a SharedAddress) Bits() uint64 {
	return uint64(a)
}

// MarshalBinary renders the 8-byte little-endian wire form.
func (a SharedAddress) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(a))
	return buf, nil
}

// UnmarshalBinary parses the wire form, rejecting invalid bit patterns.
func (a *SharedAddress) UnmarshalBinary(data []byte) error {
	if len(data) != 8 {
		return fmt.Errorf("%w: want 8 bytes, got %d", ErrInvalidAddress, len(data))
	}
	addr, ok := AddressFromBits(binary.LittleEndian.Uint64(data))
	if !ok {
		return ErrInvalidAddress
	}
	*a = addr
	return nil
}

func (a SharedAddress) String() string {
	return fmt.Sprintf("seg=%d class=%d off=%d", a.Segment(), a.Class(), a.Offset())
}

// atomicAddress is an optional SharedAddress in a single atomic cell. Zero
// means absent; the nonzero-class invariant makes zero unambiguous.
type atomicAddress struct {
	bits atomic.Uint64
}

// maxOffset is the largest offset the 32-bit field can store. A bump that
// would advance a cursor past it must fail instead of wrapping: the wrapped
// cell would read as a valid address at offset zero of the same segment.
const maxOffset = 1<<32 - 1

// load returns the current address, if one is present.
func (c *atomicAddress) load() (SharedAddress, bool) {
	a := SharedAddress(c.bits.Load())
	return a, a.IsValid()
}

// loadBits returns the raw cell contents.
func (c *atomicAddress) loadBits() uint64 {
	return c.bits.Load()
}

// fetchAdd reserves delta bytes at the current address: the caller receives
// the address observed before the advance and the cell moves on by delta.
// The reservation never modifies the cell on failure, which happens when it
// holds no valid address (a grower must publish one first) or when the
// advanced offset would overflow the offset field; prev carries whatever
// the cell held either way.
func (c *atomicAddress) fetchAdd(delta uint64) (prev SharedAddress, ok bool) {
	step := delta << offsetShift
	for {
		cur := c.bits.Load()
		prev = SharedAddress(cur)
		if !prev.IsValid() || uint64(prev.Offset())+delta > maxOffset {
			return prev, false
		}
		if c.bits.CompareAndSwap(cur, cur+step) {
			return prev, true
		}
	}
}

// cas publishes a new address over previously observed raw bits.
func (c *atomicAddress) cas(oldBits uint64, next SharedAddress) bool {
	return c.bits.CompareAndSwap(oldBits, uint64(next))
}
