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

import "errors"

var (
	// ErrArenaExhausted means the registry has no free slot left, or a
	// segment large enough for the request could not be created. The caller
	// may keep using the arena for smaller requests.
	ErrArenaExhausted = errors.New("arena: exhausted")

	// ErrUnresolvedSegment means the segment an address points into could
	// not be attached, e.g. its backing region was removed externally.
	ErrUnresolvedSegment = errors.New("arena: segment cannot be resolved")

	// ErrInvalidAddress means a value failed the shared-address validity
	// check. Addresses minted by this engine never trip it; seeing it
	// signals corruption or a forged value.
	ErrInvalidAddress = errors.New("arena: invalid shared address")

	// ErrNameTooLong means a region name does not fit a registry name slot.
	ErrNameTooLong = errors.New("arena: name exceeds 32 bytes")

	// ErrRegionTooSmall means an opened bootstrap region is shorter than a
	// registry block, so it cannot be one.
	ErrRegionTooSmall = errors.New("arena: bootstrap region too small for a registry")
)
