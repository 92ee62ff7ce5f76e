// Package adapter provides adapters for shm-arena integration with external systems.
package adapter

import (
	"github.com/srediag/shm-arena/api"
	"github.com/srediag/shm-arena/pkg/arena"
)

// ArenaAdapter exposes an *arena.Allocator through the api.Allocator
// contract, trading typed shared addresses for their packed bit form at
// the boundary.
type ArenaAdapter struct {
	alloc *arena.Allocator
}

var _ api.Allocator = (*ArenaAdapter)(nil)

// NewArenaAdapter wraps alloc for consumers that program against api
// contracts.
func NewArenaAdapter(alloc *arena.Allocator) *ArenaAdapter {
	return &ArenaAdapter{alloc: alloc}
}

// Name returns the wrapped arena's registry region name.
func (ad *ArenaAdapter) Name() string { return ad.alloc.Name() }

// SegmentCount returns the registrations observed by the wrapped arena.
func (ad *ArenaAdapter) SegmentCount() uint64 { return ad.alloc.SegmentCount() }

// Alloc reserves a slot of at least size bytes and returns the packed
// address bits that any attached process can resolve.
func (ad *ArenaAdapter) Alloc(size uint64) (uint64, error) {
	addr, err := ad.alloc.Alloc(size)
	if err != nil {
		return 0, err
	}
	return addr.Bits(), nil
}

// Resolve maps packed address bits to the slot's bytes in this process.
func (ad *ArenaAdapter) Resolve(bits uint64) ([]byte, error) {
	addr, ok := arena.AddressFromBits(bits)
	if !ok {
		return nil, arena.ErrInvalidAddress
	}
	return ad.alloc.Bytes(addr)
}
