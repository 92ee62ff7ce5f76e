//go:build linux

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
	"testing"

	"github.com/srediag/shm-arena/internal/shm"
)

// testConfig keeps test regions distinguishable from real ones on /dev/shm.
func testConfig() *Config {
	return &Config{NamePrefix: "arenatest"}
}

// cleanupArena unlinks every /dev/shm file the arena created. Mappings are
// left alone; they die with the test process.
func cleanupArena(t *testing.T, a *Allocator) {
	t.Helper()
	cleanupRegistry(t, a.registry)
}

func cleanupRegistry(t *testing.T, r *segmentRegistry) {
	t.Helper()
	count := r.segmentCount()
	for id := uint64(0); id < count; id++ {
		if name, err := r.segmentName(SegmentID(id)); err == nil {
			_ = shm.Unlink(name)
		}
	}
	_ = shm.Unlink(r.name())
}
