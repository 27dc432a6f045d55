//go:build linux || darwin

package buffer

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/xerra-oss/go-sio/pkg/errkind"
)

// MmapFile memory-maps path into a Buffer. Per spec.md §4.C, a mapped
// buffer is fixed: capacity == size == file length, and the growth
// strategy is Fixed so writes past the mapped region fail with
// BufferTooSmall rather than silently reallocating (spec.md §9,
// "Memory-mapped buffers vs. growable buffers").
func MmapFile(path string, readOnly bool) (*Buffer, error) {
	flag := os.O_RDWR
	prot := unix.PROT_READ | unix.PROT_WRITE
	if readOnly {
		flag = os.O_RDONLY
		prot = unix.PROT_READ
	}

	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, translateOpenErr(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errkind.New(errkind.IO, err)
	}
	size := info.Size()
	if size == 0 {
		return nil, errkind.New(errkind.FileMmap, fmt.Errorf("mmap: cannot map an empty file %q", path))
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), prot, unix.MAP_SHARED)
	if err != nil {
		return nil, errkind.New(errkind.FileMmap, err)
	}

	buf := &Buffer{
		data:       data,
		size:       uint64(size),
		ownsMemory: false,
		isMmap:     true,
		strategy:   Fixed,
	}
	buf.mmapCloser = func() error {
		return unix.Munmap(data)
	}
	return buf, nil
}

func translateOpenErr(err error) error {
	if perr, ok := err.(*os.PathError); ok {
		if errno, ok := perr.Err.(unix.Errno); ok {
			return errkind.New(errkind.FromNativePOSIX(errno), err)
		}
	}
	return errkind.New(errkind.IO, err)
}
