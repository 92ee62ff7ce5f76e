// Package api defines public API contracts for shm-arena.
package api

// ArenaStats exposes the view of an attached arena that external
// integrations need: identity and registry occupancy.
type ArenaStats interface {
	// Name returns the name of the arena's bootstrap registry region.
	Name() string
	// SegmentCount returns the number of segment registrations this
	// process has observed.
	SegmentCount() uint64
}

// Allocator hands out fixed-capacity slots and resolves addresses minted
// by any process attached to the same arena.
type Allocator interface {
	ArenaStats

	// Alloc reserves a slot large enough for size bytes and returns its
	// packed shared address.
	Alloc(size uint64) (uint64, error)
	// Resolve maps a packed shared address to the slot's bytes in this
	// process.
	Resolve(bits uint64) ([]byte, error)
}
