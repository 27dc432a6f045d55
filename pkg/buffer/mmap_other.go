//go:build !linux && !darwin && !windows

package buffer

import (
	"fmt"

	"github.com/xerra-oss/go-sio/pkg/errkind"
)

// MmapFile is unsupported outside the POSIX-like / Win32-like families
// this library targets (spec.md §1).
func MmapFile(path string, readOnly bool) (*Buffer, error) {
	return nil, errkind.New(errkind.Unsupported, fmt.Errorf("mmap: unsupported on this platform"))
}
