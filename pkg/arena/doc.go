// Package arena implements a growable heap shared between independent OS
// processes. Any process can allocate a typed value, obtain a compact
// 8-byte SharedAddress for it, and any other process holding that address
// (plus the arena's name) can resolve and dereference the same bytes.
//
// The engine is built from a shared-memory segment registry, a per-process
// segment handle cache, a size-classed lock-free bump allocator, a packed
// address codec, and the Box owning handle on top. Allocation never
// coordinates across processes: each process grows its own segments, and
// only resolution of already-minted addresses crosses process boundaries.
//
// Nothing is ever reclaimed: registry slots, segments, and allocated slots
// live for the arena's lifetime, and attached mappings are never unmapped.
// Crash consistency is out of scope; a writer killed mid-operation can
// leave the arena corrupt.
package arena
