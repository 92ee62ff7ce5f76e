//go:build linux

package shm

import (
	"errors"
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// createNamed creates and maps a region under /dev/shm. The file is created
// exclusively so two processes can never claim the same name.
func createNamed(name string, size int) (*Region, error) {
	shmPath := filepath.Join(DevShmDir, name)
	if pathExists(shmPath) {
		return nil, errNameCollision
	}
	if !canCreateOnDevShm(uint64(size), shmPath) {
		return nil, ErrNoShmSpace
	}
	fd, err := unix.Open(shmPath, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL, 0600)
	if err != nil {
		if errors.Is(err, unix.EEXIST) {
			return nil, errNameCollision
		}
		return nil, fmt.Errorf("shm: open %s: %w", shmPath, err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		_ = unix.Close(fd)
		_ = unix.Unlink(shmPath)
		return nil, fmt.Errorf("shm: ftruncate %s: %w", shmPath, err)
	}
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		_ = unix.Unlink(shmPath)
		return nil, fmt.Errorf("shm: mmap %s: %w", shmPath, err)
	}
	return &Region{Name: name, Data: data, Fd: fd}, nil
}

// openNamed attaches an existing region, mapping whatever length the creator
// gave it.
func openNamed(name string) (*Region, error) {
	shmPath := filepath.Join(DevShmDir, name)
	fd, err := unix.Open(shmPath, unix.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("shm: open %s: %w", shmPath, err)
	}
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("shm: fstat %s: %w", shmPath, err)
	}
	data, err := unix.Mmap(fd, 0, int(st.Size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("shm: mmap %s: %w", shmPath, err)
	}
	return &Region{Name: name, Data: data, Fd: fd}, nil
}

// Unmap releases a region's mapping and closes its descriptor. The allocator
// never calls this on a published region; it exists for tests and for
// discarding regions that were created but never made visible.
func Unmap(r *Region) error {
	if r == nil || r.Data == nil {
		return nil
	}
	if err := unix.Munmap(r.Data); err != nil {
		return fmt.Errorf("shm: munmap %s: %w", r.Name, err)
	}
	r.Data = nil
	if err := unix.Close(r.Fd); err != nil {
		return fmt.Errorf("shm: close %s: %w", r.Name, err)
	}
	return nil
}

// Unlink removes a region's backing file from /dev/shm. Existing mappings
// stay valid; the name just can no longer be opened. Used by tests and by
// the discard path for never-published regions.
func Unlink(name string) error {
	if err := unix.Unlink(filepath.Join(DevShmDir, name)); err != nil {
		return fmt.Errorf("shm: unlink %s: %w", name, err)
	}
	return nil
}
