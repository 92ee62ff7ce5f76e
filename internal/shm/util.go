package shm

import (
	"os"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
)

// canCreateOnDevShm reports whether /dev/shm has room for a region of the
// given size. Paths outside /dev/shm (and non-Linux platforms) always pass;
// the subsequent syscalls report their own failures.
func canCreateOnDevShm(size uint64, path string) bool {
	if runtime.GOOS == "linux" && strings.HasPrefix(path, DevShmDir) {
		stat, err := disk.Usage(DevShmDir)
		if err != nil {
			return true
		}
		return stat.Free >= size
	}
	return true
}

// pathExists reports whether a filesystem path exists.
func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
