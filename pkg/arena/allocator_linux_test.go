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
	"sync"
	"testing"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/suite"
)

type AllocatorTestSuite struct {
	suite.Suite
	a *Allocator
}

func (s *AllocatorTestSuite) SetupTest() {
	var err error
	s.a, err = Create(testConfig())
	s.Require().NoError(err)
}

func (s *AllocatorTestSuite) TearDownTest() {
	cleanupArena(s.T(), s.a)
}

func (s *AllocatorTestSuite) TestFirstAllocationStartsFreshSegment() {
	addr, err := s.a.Alloc(8)
	s.Require().NoError(err)
	s.Equal(SizeClass(3), addr.Class())
	s.Equal(uint32(0), addr.Offset())
	s.Equal(uint64(1), s.a.SegmentCount())
}

func (s *AllocatorTestSuite) TestRequestsRoundToClasses() {
	tiny, err := s.a.Alloc(1)
	s.Require().NoError(err)
	nine, err := s.a.Alloc(9)
	s.Require().NoError(err)
	s.Equal(SizeClass(3), tiny.Class())
	s.Equal(SizeClass(4), nine.Class())
	s.Equal(uint64(16), nine.ClassBytes())
}

func (s *AllocatorTestSuite) TestSequentialRangesNeverOverlap() {
	type slot struct {
		seg SegmentID
		off uint32
	}
	seen := make(map[slot]bool)
	perSegment := make(map[SegmentID][]uint32)
	for i := 0; i < 500; i++ {
		addr, err := s.a.Alloc(64)
		s.Require().NoError(err)
		k := slot{addr.Segment(), addr.Offset()}
		s.False(seen[k], "slot %v handed out twice", k)
		seen[k] = true
		perSegment[addr.Segment()] = append(perSegment[addr.Segment()], addr.Offset())
	}
	for seg, offsets := range perSegment {
		for _, off := range offsets {
			s.Zero(off%64, "segment %d offset %d not class aligned", seg, off)
		}
	}
}

func (s *AllocatorTestSuite) TestConcurrentAllocationsAreDisjoint() {
	const workers = 16
	const perWorker = 200

	pool, err := ants.NewPool(workers)
	s.Require().NoError(err)
	defer pool.Release()

	var wg sync.WaitGroup
	addrs := make(chan SharedAddress, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		s.Require().NoError(pool.Submit(func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				addr, err := s.a.Alloc(32)
				if s.NoError(err) {
					addrs <- addr
				}
			}
		}))
	}
	wg.Wait()
	close(addrs)

	type slot struct {
		seg SegmentID
		off uint32
	}
	seen := make(map[slot]bool)
	for addr := range addrs {
		s.Equal(SizeClass(5), addr.Class())
		k := slot{addr.Segment(), addr.Offset()}
		s.False(seen[k], "slot %v handed out twice", k)
		seen[k] = true
	}
	s.Len(seen, workers*perWorker)
}

func (s *AllocatorTestSuite) TestGrowthDoublingBoundsSegments() {
	for i := 0; i < 1024; i++ {
		_, err := s.a.Alloc(8)
		s.Require().NoError(err)
	}
	// capacities double per segment, so 1024 slots need O(log) segments
	s.LessOrEqual(s.a.SegmentCount(), uint64(12))
}

func (s *AllocatorTestSuite) TestClassesGrowIndependently() {
	small, err := s.a.Alloc(8)
	s.Require().NoError(err)
	big, err := s.a.Alloc(4096)
	s.Require().NoError(err)
	s.NotEqual(small.Segment(), big.Segment())
	s.Equal(uint64(2), s.a.SegmentCount())
}

func (s *AllocatorTestSuite) TestOversizeRequestFails() {
	_, err := s.a.Alloc(1 << 32)
	s.ErrorIs(err, ErrArenaExhausted)
}

func (s *AllocatorTestSuite) TestBytesSpansTheSlot() {
	addr, err := s.a.Alloc(24)
	s.Require().NoError(err)
	slot, err := s.a.Bytes(addr)
	s.Require().NoError(err)
	s.Len(slot, 32)

	copy(slot, "some shared payload")
	again, err := s.a.Bytes(addr)
	s.Require().NoError(err)
	s.Equal([]byte("some shared payload"), again[:19])
}

func (s *AllocatorTestSuite) TestBytesRejectsForgedAddresses() {
	_, err := s.a.Bytes(0)
	s.ErrorIs(err, ErrInvalidAddress)

	addr, err := s.a.Alloc(8)
	s.Require().NoError(err)
	forged := NewSharedAddress(addr.Segment(), addr.Class(), 1<<30)
	_, err = s.a.Bytes(forged)
	s.ErrorIs(err, ErrInvalidAddress)
}

func (s *AllocatorTestSuite) TestResolutionAcrossAllocators() {
	addr, err := s.a.Alloc(8)
	s.Require().NoError(err)
	slot, err := s.a.Bytes(addr)
	s.Require().NoError(err)
	slot[0] = 0x2a

	// a second allocator over the same registry, as another process would open
	other, err := Open(s.a.Name(), testConfig())
	s.Require().NoError(err)

	wire, err := addr.MarshalBinary()
	s.Require().NoError(err)
	var decoded SharedAddress
	s.Require().NoError(decoded.UnmarshalBinary(wire))

	remote, err := other.Bytes(decoded)
	s.Require().NoError(err)
	s.Equal(byte(0x2a), remote[0])
}

func (s *AllocatorTestSuite) TestAllocationCounterAdvances() {
	before := counterValue(allocationsTotal)
	_, err := s.a.Alloc(8)
	s.Require().NoError(err)
	s.Equal(before+1, counterValue(allocationsTotal))
}

func (s *AllocatorTestSuite) TestFreeIsANoOp() {
	addr, err := s.a.Alloc(8)
	s.Require().NoError(err)
	slot, err := s.a.Bytes(addr)
	s.Require().NoError(err)
	slot[0] = 7

	s.a.Free(addr)

	// the slot's bytes are never reused or invalidated
	again, err := s.a.Bytes(addr)
	s.Require().NoError(err)
	s.Equal(byte(7), again[0])
}

func TestAllocatorTestSuite(t *testing.T) {
	suite.Run(t, new(AllocatorTestSuite))
}

func TestSegmentEventsAreDispatched(t *testing.T) {
	events := NewEventDispatcher(64)
	defer events.Close()

	got := make(chan SegmentEvent, 16)
	events.Subscribe(func(ev SegmentEvent) { got <- ev })

	cfg := testConfig()
	cfg.Events = events
	a, err := Create(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer cleanupArena(t, a)

	if _, err := a.Alloc(8); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-got:
		if ev.Kind != SegmentCreated {
			t.Fatalf("want %v event, got %v", SegmentCreated, ev.Kind)
		}
		if ev.Class != SizeClass(3) || ev.Size != 8 {
			t.Fatalf("unexpected event payload: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no segment event within 1s")
	}
}

// counterValue extracts a prometheus counter's value for assertions.
func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	_ = c.Write(m)
	return m.GetCounter().GetValue()
}
