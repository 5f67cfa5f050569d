//go:build !windows

package files

import "os"

// renameAtomic relies on rename(2) replacing newPath atomically.
func renameAtomic(oldPath, newPath string) error {
	return os.Rename(oldPath, newPath)
}
