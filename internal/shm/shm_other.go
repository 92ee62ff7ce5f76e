//go:build !linux

package shm

func createNamed(name string, size int) (*Region, error) {
	return nil, ErrUnsupportedOS
}

func openNamed(name string) (*Region, error) {
	return nil, ErrUnsupportedOS
}

// Unmap is a no-op off Linux; no region can exist to unmap.
func Unmap(r *Region) error {
	return nil
}

// Unlink is a no-op off Linux.
func Unlink(name string) error {
	return ErrUnsupportedOS
}
