// Package shm contains platform-specific helpers for creating, opening and
// mapping named shared memory regions. Regions are identified by a short name
// that any cooperating process can use to attach the same bytes.
package shm

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
)

const (
	// DevShmDir is where named regions live on Linux.
	DevShmDir = "/dev/shm"

	// MaxNameLen bounds region names so they fit the registry's name slots.
	MaxNameLen = 32

	createRetries = 8
)

var (
	ErrNameTooLong   = errors.New("shm: region name exceeds 32 bytes")
	ErrUnsupportedOS = errors.New("shm: shared memory regions are only supported on linux")
	ErrNoShmSpace    = errors.New("shm: not enough free space on /dev/shm")
	errNameCollision = errors.New("shm: generated name already exists")
)

// Region is one attached shared memory mapping. A Region is never resized;
// callers that need more capacity create a new one.
type Region struct {
	Name string
	Data []byte
	Fd   int
}

// Size returns the mapped length in bytes.
func (r *Region) Size() int {
	if r == nil {
		return 0
	}
	return len(r.Data)
}

// Create creates a fresh region of the given size under a generated name and
// maps it read-write. The generated name is unique among live regions.
func Create(prefix string, size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("shm: invalid region size %d", size)
	}
	for i := 0; i < createRetries; i++ {
		name, err := generateName(prefix)
		if err != nil {
			return nil, err
		}
		region, err := createNamed(name, size)
		if errors.Is(err, errNameCollision) {
			continue
		}
		return region, err
	}
	return nil, errNameCollision
}

// Open attaches an existing region by name and maps its full length.
func Open(name string) (*Region, error) {
	if len(name) > MaxNameLen {
		return nil, ErrNameTooLong
	}
	return openNamed(name)
}

// generateName builds a short unique region name: <prefix>-<pid>-<random>.
func generateName(prefix string) (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("shm: generate name: %w", err)
	}
	name := fmt.Sprintf("%s-%d-%s", prefix, os.Getpid(), hex.EncodeToString(b[:]))
	if len(name) > MaxNameLen {
		return "", ErrNameTooLong
	}
	return name, nil
}
