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

import "math/bits"

// SizeClass is a power-of-two allocation granularity, stored as the
// exponent. Every allocation rounds up to one.
type SizeClass uint8

const (
	// MinObjectSize is the smallest slot handed out; requests below it
	// round up.
	MinObjectSize = 8

	minSizeClass SizeClass = 3
	maxSizeClass SizeClass = 63

	// maxAllocClass caps allocatable requests: the cursor for a class
	// stores offsets in a 32-bit field, so the first bump past a fresh
	// 2^32-byte slot would not be representable. Classes above it exist in
	// the address format but are never minted.
	maxAllocClass SizeClass = 31

	numSizeClasses = int(maxSizeClass) + 1
)

// SizeClassFor returns the smallest class whose slots hold n bytes. It is
// monotonic non-decreasing in n.
func SizeClassFor(n uint64) SizeClass {
	if n < MinObjectSize {
		n = MinObjectSize
	}
	return SizeClass(bits.Len64(n - 1))
}

// Bytes returns the slot size of the class.
func (c SizeClass) Bytes() uint64 {
	return 1 << c
}

// maxSegmentBytes bounds a segment for the class. A segment mapping the full
// 4 GiB offset range would let the bump cursor advance to exactly 2^32,
// which the offset field stores as zero; keeping one slot shy of the range
// keeps every cursor state representable.
func (c SizeClass) maxSegmentBytes() uint64 {
	return 1<<32 - c.Bytes()
}
