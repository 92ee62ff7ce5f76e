package adapter

import (
	"fmt"

	"github.com/heptiolabs/healthcheck"

	"github.com/srediag/shm-arena/api"
	"github.com/srediag/shm-arena/pkg/arena"
)

// NewHealthHandler builds an HTTP health handler for an attached arena.
// Liveness passes while the arena is reachable. Readiness fails once the
// segment registry reaches capacity, because a full registry makes every
// further growth attempt fail.
func NewHealthHandler(stats api.ArenaStats) healthcheck.Handler {
	h := healthcheck.NewHandler()
	h.AddLivenessCheck("arena-attached", ArenaAttachedCheck(stats))
	h.AddReadinessCheck("registry-capacity", RegistryCapacityCheck(stats, arena.MaxSegments))
	return h
}

// ArenaAttachedCheck reports whether an arena is attached at all.
func ArenaAttachedCheck(stats api.ArenaStats) healthcheck.Check {
	return func() error {
		if stats == nil || stats.Name() == "" {
			return fmt.Errorf("no arena attached")
		}
		return nil
	}
}

// RegistryCapacityCheck fails once the number of registered segments
// reaches threshold.
func RegistryCapacityCheck(stats api.ArenaStats, threshold uint64) healthcheck.Check {
	return func() error {
		if n := stats.SegmentCount(); n >= threshold {
			return fmt.Errorf("segment registry full: %d of %d slots used", n, threshold)
		}
		return nil
	}
}
