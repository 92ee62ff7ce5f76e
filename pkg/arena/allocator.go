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
	"context"
	"fmt"
	"time"
	"unsafe"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/metric"

	"github.com/srediag/shm-arena/internal/shm"
)

// Allocator is one process's view of a shared arena: the registry block,
// the per-process segment handle cache, and one bump cursor per size class.
// Allocation is strictly process-local; only resolution of already-minted
// addresses crosses process boundaries.
type Allocator struct {
	registry *segmentRegistry
	cache    *handleCache
	cursors  [numSizeClasses]atomicAddress

	cfg          *Config
	allocCounter metric.Int64Counter
	segCounter   metric.Int64Counter
}

// Create builds a fresh arena: a new registry block under a generated name.
// Export Name() to other processes so they can Open the same arena.
func Create(cfg *Config) (*Allocator, error) {
	cfg, err := verified(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Tracer != nil {
		_, span := cfg.Tracer.Start(context.Background(), "arena.create")
		defer span.End()
	}
	registry, err := createRegistry(cfg.NamePrefix)
	if err != nil {
		return nil, err
	}
	internalLogger.infof("created arena %q (%d byte registry)", registry.name(), registrySize)
	return newAllocator(registry, cfg), nil
}

// Open attaches to an existing arena by its bootstrap region name.
func Open(name string, cfg *Config) (*Allocator, error) {
	cfg, err := verified(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Tracer != nil {
		_, span := cfg.Tracer.Start(context.Background(), "arena.open")
		defer span.End()
	}
	registry, err := openRegistry(name)
	if err != nil {
		return nil, err
	}
	internalLogger.infof("opened arena %q with %d registered segments", name, registry.segmentCount())
	return newAllocator(registry, cfg), nil
}

func newAllocator(registry *segmentRegistry, cfg *Config) *Allocator {
	a := &Allocator{
		registry: registry,
		cache:    newHandleCache(registry),
		cfg:      cfg,
	}
	a.cache.events = cfg.Events
	if cfg.Meter != nil {
		var err error
		a.allocCounter, err = cfg.Meter.Int64Counter("arena.allocations",
			metric.WithDescription("Allocations served by the bump allocator."))
		if err != nil {
			internalLogger.warnf("arena.allocations counter unavailable: %v", err)
		}
		a.segCounter, err = cfg.Meter.Int64Counter("arena.segments.created",
			metric.WithDescription("Segments created by this process."))
		if err != nil {
			internalLogger.warnf("arena.segments.created counter unavailable: %v", err)
		}
	}
	return a
}

// Name returns the arena's bootstrap region name.
func (a *Allocator) Name() string {
	return a.registry.name()
}

// SegmentCount returns the registrations this process currently observes.
func (a *Allocator) SegmentCount() uint64 {
	return a.registry.segmentCount()
}

// Alloc reserves one slot of the size class covering size bytes and returns
// its address. Concurrent callers for the same class receive strictly
// non-overlapping ranges. Contention is absorbed by optimistic retry; the
// only returned failure is exhaustion.
func (a *Allocator) Alloc(size uint64) (SharedAddress, error) {
	class := SizeClassFor(size)
	if class > maxAllocClass {
		allocationFailuresTotal.Inc()
		return 0, fmt.Errorf("%w: %d bytes exceeds the largest allocatable class (2^%d)",
			ErrArenaExhausted, size, maxAllocClass)
	}
	step := class.Bytes()
	cursor := &a.cursors[class]
	var bo backoff.BackOff
	for {
		prev, ok := cursor.fetchAdd(step)
		havePrev := prev.IsValid()
		var prevMapped uint64
		if havePrev {
			if region, err := a.cache.getOrOpen(prev.Segment()); err == nil {
				prevMapped = uint64(region.Size())
				if ok && prev.End() <= prevMapped {
					a.recordAlloc()
					return prev, nil
				}
			}
		}
		// Cursor empty, segment exhausted, or the offset field is at
		// capacity: grow the class.
		addr, grew, err := a.grow(cursor, class, prevMapped, prev, havePrev)
		if err != nil {
			allocationFailuresTotal.Inc()
			return 0, err
		}
		if grew {
			return addr, nil
		}
		// Another goroutine grew this class first; retry against its
		// fresh segment after a short backoff.
		if bo == nil {
			bo = backoff.NewExponentialBackOff()
		}
		if d := bo.NextBackOff(); d > 0 {
			time.Sleep(d)
		}
	}
}

// grow creates a segment for the class, registers it, and tries to publish
// it as the class's live segment. Doubling the previously mapped length
// bounds segment creations per class to O(log bytes requested); the doubling
// is capped so every slot offset, and the cursor's one-past-the-end advance,
// stays representable in the address's 32-bit offset field.
func (a *Allocator) grow(cursor *atomicAddress, class SizeClass, prevMapped uint64, prev SharedAddress, havePrev bool) (SharedAddress, bool, error) {
	newSize := class.Bytes()
	if doubled := 2 * prevMapped; doubled > newSize {
		newSize = doubled
	}
	if limit := class.maxSegmentBytes(); newSize > limit {
		newSize = limit
	}
	region, err := shm.Create(a.cfg.NamePrefix, int(newSize))
	if err != nil {
		return 0, false, fmt.Errorf("%w: segment create failed: %v", ErrArenaExhausted, err)
	}
	id, err := a.registry.registerSegment(region.Name)
	if err != nil {
		// Never published anywhere, so a full discard is safe here.
		_ = shm.Unlink(region.Name)
		_ = shm.Unmap(region)
		return 0, false, err
	}
	a.cache.publish(id, region)
	segmentsCreatedTotal.Inc()
	if a.segCounter != nil {
		a.segCounter.Add(context.Background(), 1)
	}
	if a.cfg.Events != nil {
		a.cfg.Events.publish(SegmentEvent{
			Kind:    SegmentCreated,
			Segment: id,
			Name:    region.Name,
			Size:    newSize,
			Class:   class,
		})
	}
	internalLogger.debugf("class %d grew: segment %d (%q, %d bytes)", class, id, region.Name, newSize)

	next := NewSharedAddress(id, class, uint32(class.Bytes()))
	for {
		cur := cursor.loadBits()
		if cura := SharedAddress(cur); cura.IsValid() {
			if !havePrev || cura.Segment() != prev.Segment() {
				// A racing grower published a different segment. Our
				// fresh one stays registered and mapped but unused;
				// segments are never unmapped once visible.
				segmentsDiscardedTotal.Inc()
				internalLogger.debugf("class %d lost growth race, segment %d abandoned", class, id)
				return 0, false, nil
			}
		}
		// cur is still inside the exhausted segment, advanced there by
		// reservations that no longer fit, or the cell is still empty;
		// either way it is stale and safe to overwrite.
		if cursor.cas(cur, next) {
			a.recordAlloc()
			return NewSharedAddress(id, class, 0), true, nil
		}
	}
}

func (a *Allocator) recordAlloc() {
	allocationsTotal.Inc()
	if a.allocCounter != nil {
		a.allocCounter.Add(context.Background(), 1)
	}
}

// Bytes resolves an address to its slot, attaching the segment if this
// process has not seen it yet. The returned slice spans exactly the class
// size and aliases shared memory.
func (a *Allocator) Bytes(addr SharedAddress) ([]byte, error) {
	if !addr.IsValid() {
		return nil, ErrInvalidAddress
	}
	region, err := a.cache.getOrOpen(addr.Segment())
	if err != nil {
		return nil, err
	}
	end := addr.End()
	if end > uint64(region.Size()) {
		return nil, fmt.Errorf("%w: [%d,%d) beyond segment %d (%d bytes)",
			ErrInvalidAddress, addr.Offset(), end, addr.Segment(), region.Size())
	}
	return region.Data[addr.Offset():end:end], nil
}

// pointer resolves an address to the first byte of its slot.
func (a *Allocator) pointer(addr SharedAddress) (unsafe.Pointer, error) {
	slot, err := a.Bytes(addr)
	if err != nil {
		return nil, err
	}
	return unsafe.Pointer(&slot[0]), nil
}

// Free releases an allocation. Reclamation is deliberately not implemented:
// slots are never reused and segments never unmapped, so a Free'd address
// simply stops being referenced. Kept in the API so ownership-tracking
// callers have a single release point.
func (a *Allocator) Free(addr SharedAddress) {}
