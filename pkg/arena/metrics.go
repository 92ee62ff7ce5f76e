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

import "github.com/prometheus/client_golang/prometheus"

var (
	allocationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arena_allocations_total",
		Help: "Allocations served by the bump allocator in this process.",
	})
	allocationFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arena_allocation_failures_total",
		Help: "Allocation requests that failed with exhaustion.",
	})
	segmentsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arena_segments_created_total",
		Help: "Shared memory segments created by this process.",
	})
	segmentsAttachedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arena_segments_attached_total",
		Help: "Segments created elsewhere and attached by this process.",
	})
	segmentsDiscardedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arena_segments_discarded_total",
		Help: "Fresh segments abandoned after losing a growth race.",
	})
)

func init() {
	prometheus.MustRegister(
		allocationsTotal,
		allocationFailuresTotal,
		segmentsCreatedTotal,
		segmentsAttachedTotal,
		segmentsDiscardedTotal,
	)
}
