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
)

// Box is the owning handle for one shared value of type T. The handle holds
// nothing but the 8-byte address plus the allocator to resolve it through,
// so the address itself can be embedded in other shared structures as raw
// bits; ownership (who calls Close) stays a caller-level contract.
//
// T must be a flat value type: no Go pointers, maps, channels or slices,
// since those are meaningless in another process's address space.
type Box[T any] struct {
	addr  SharedAddress
	alloc *Allocator
}

// NewBoxIn allocates a slot for value in the given arena and writes it.
// The slot is at least 8 bytes and naturally aligned for T: offsets are
// multiples of the class size, and mappings are page-aligned.
func NewBoxIn[T any](a *Allocator, value T) (*Box[T], error) {
	size := uint64(unsafe.Sizeof(value))
	if size == 0 {
		size = 1 // zero-size types still get an addressable slot
	}
	addr, err := a.Alloc(size)
	if err != nil {
		return nil, err
	}
	p, err := a.pointer(addr)
	if err != nil {
		return nil, err
	}
	storeValue(p, value)
	return &Box[T]{addr: addr, alloc: a}, nil
}

// NewBox allocates in the process's default arena and insists on success.
// It is the one assertion-style surface; everything underneath returns
// inspectable results.
func NewBox[T any](value T) *Box[T] {
	b, err := NewBoxIn[T](Default(), value)
	if err != nil {
		panic(fmt.Sprintf("arena: failed to allocate shared box: %v", err))
	}
	return b
}

// BoxFromAddress rebuilds a typed handle from an address minted elsewhere,
// typically in another process. The class must be able to hold a T.
func BoxFromAddress[T any](a *Allocator, addr SharedAddress) (*Box[T], error) {
	if !addr.IsValid() {
		return nil, ErrInvalidAddress
	}
	var zero T
	if need := uint64(unsafe.Sizeof(zero)); addr.ClassBytes() < need {
		return nil, fmt.Errorf("%w: class %d slot holds %d bytes, type needs %d",
			ErrInvalidAddress, addr.Class(), addr.ClassBytes(), need)
	}
	return &Box[T]{addr: addr, alloc: a}, nil
}

// Address returns the 8-byte handle for export to other processes.
func (b *Box[T]) Address() SharedAddress {
	return b.addr
}

// Get resolves the box through the calling process's handle cache.
func (b *Box[T]) Get() (*T, error) {
	p, err := b.alloc.pointer(b.addr)
	if err != nil {
		return nil, err
	}
	return (*T)(p), nil
}

// Close releases the slot. Release is a deliberate no-op in this design:
// the bytes are never reused and the segment never unmapped, so a closed
// box simply stops being referenced.
func (b *Box[T]) Close() error {
	b.alloc.Free(b.addr)
	return nil
}

// storeValue writes a value into its slot. Word-sized-or-smaller values go
// through one atomic store, so even a reader that somehow obtained the
// address early can never observe a torn word; larger values rely on the
// address not escaping before NewBoxIn returns.
func storeValue[T any](p unsafe.Pointer, value T) {
	if size := unsafe.Sizeof(value); size <= 8 {
		var word uint64
		*(*T)(unsafe.Pointer(&word)) = value
		atomic.StoreUint64((*uint64)(p), word)
		return
	}
	*(*T)(p) = value
}
