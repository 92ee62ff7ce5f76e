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
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/srediag/shm-arena/internal/shm"
)

type RegistryTestSuite struct {
	suite.Suite
	reg *segmentRegistry
}

func (s *RegistryTestSuite) SetupTest() {
	var err error
	s.reg, err = createRegistry("arenatest")
	s.Require().NoError(err)
}

func (s *RegistryTestSuite) TearDownTest() {
	_ = shm.Unlink(s.reg.name())
}

func (s *RegistryTestSuite) TestRegisterAndLookup() {
	s.Equal(uint64(0), s.reg.segmentCount())

	id0, err := s.reg.registerSegment("arenatest-seg-a")
	s.Require().NoError(err)
	id1, err := s.reg.registerSegment("arenatest-seg-b")
	s.Require().NoError(err)

	s.Equal(SegmentID(0), id0)
	s.Equal(SegmentID(1), id1)
	s.Equal(uint64(2), s.reg.segmentCount())

	name, err := s.reg.segmentName(id0)
	s.Require().NoError(err)
	s.Equal("arenatest-seg-a", name)

	name, err = s.reg.segmentName(id1)
	s.Require().NoError(err)
	s.Equal("arenatest-seg-b", name)
}

func (s *RegistryTestSuite) TestLookupUnknownID() {
	_, err := s.reg.segmentName(5)
	s.ErrorIs(err, ErrUnresolvedSegment)
}

func (s *RegistryTestSuite) TestRejectsLongName() {
	_, err := s.reg.registerSegment("this-name-is-far-too-long-to-fit-a-slot")
	s.ErrorIs(err, ErrNameTooLong)
}

func (s *RegistryTestSuite) TestSecondViewSeesRegistrations() {
	_, err := s.reg.registerSegment("arenatest-shared")
	s.Require().NoError(err)

	other, err := openRegistry(s.reg.name())
	s.Require().NoError(err)
	s.Equal(uint64(1), other.segmentCount())

	name, err := other.segmentName(0)
	s.Require().NoError(err)
	s.Equal("arenatest-shared", name)
}

func (s *RegistryTestSuite) TestExhaustion() {
	for i := 0; i < MaxSegments; i++ {
		_, err := s.reg.registerSegment(fmt.Sprintf("arenatest-%d", i))
		s.Require().NoError(err)
	}
	_, err := s.reg.registerSegment("arenatest-one-too-many")
	s.ErrorIs(err, ErrArenaExhausted)
	s.Equal(uint64(MaxSegments), s.reg.segmentCount())
}

func (s *RegistryTestSuite) TestConcurrentRegistrationsGetUniqueSlots() {
	const workers = 8
	const perWorker = 100

	var wg sync.WaitGroup
	ids := make(chan SegmentID, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id, err := s.reg.registerSegment(fmt.Sprintf("arenatest-%d-%d", w, i))
				if err == nil {
					ids <- id
				}
			}
		}(w)
	}
	wg.Wait()
	close(ids)

	seen := make(map[SegmentID]bool)
	for id := range ids {
		s.False(seen[id], "slot %d claimed twice", id)
		seen[id] = true
	}
	s.Len(seen, workers*perWorker)
	s.Equal(uint64(workers*perWorker), s.reg.segmentCount())
}

func (s *RegistryTestSuite) TestOpenRejectsShortRegion() {
	region, err := shm.Create("arenatest", 128)
	s.Require().NoError(err)
	defer func() { _ = shm.Unlink(region.Name) }()

	_, err = openRegistry(region.Name)
	s.ErrorIs(err, ErrRegionTooSmall)
}

func TestRegistryTestSuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}
