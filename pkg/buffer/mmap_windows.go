//go:build windows

package buffer

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/xerra-oss/go-sio/pkg/errkind"
)

// MmapFile memory-maps path into a Buffer using CreateFileMapping /
// MapViewOfFile, mirroring the POSIX mmap variant's fixed-capacity
// contract (spec.md §4.C, §9).
func MmapFile(path string, readOnly bool) (*Buffer, error) {
	access := uint32(windows.GENERIC_READ | windows.GENERIC_WRITE)
	if readOnly {
		access = windows.GENERIC_READ
	}

	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, errkind.New(errkind.BadPath, err)
	}

	h, err := windows.CreateFile(pathPtr, access, windows.FILE_SHARE_READ, nil,
		windows.OPEN_EXISTING, windows.FILE_ATTRIBUTE_NORMAL, 0)
	if err != nil {
		return nil, errkind.New(errkind.FromNativeWindows(err.(windows.Errno)), err)
	}
	defer windows.CloseHandle(h)

	var fi windows.ByHandleFileInformation
	if err := windows.GetFileInformationByHandle(h, &fi); err != nil {
		return nil, errkind.New(errkind.IO, err)
	}
	size := int64(fi.FileSizeHigh)<<32 | int64(fi.FileSizeLow)
	if size == 0 {
		return nil, errkind.New(errkind.FileMmap, fmt.Errorf("mmap: cannot map an empty file %q", path))
	}

	protect := uint32(windows.PAGE_READWRITE)
	mapAccess := uint32(windows.FILE_MAP_WRITE)
	if readOnly {
		protect = windows.PAGE_READONLY
		mapAccess = windows.FILE_MAP_READ
	}

	mapping, err := windows.CreateFileMapping(h, nil, protect, uint32(size>>32), uint32(size), nil)
	if err != nil {
		return nil, errkind.New(errkind.FileMmap, err)
	}

	addr, err := windows.MapViewOfFile(mapping, mapAccess, 0, 0, uintptr(size))
	if err != nil {
		windows.CloseHandle(mapping)
		return nil, errkind.New(errkind.FileMmap, err)
	}

	data := unsafeSlice(addr, int(size))
	buf := &Buffer{
		data:       data,
		size:       uint64(size),
		ownsMemory: false,
		isMmap:     true,
		strategy:   Fixed,
	}
	buf.mmapCloser = func() error {
		if err := windows.UnmapViewOfFile(addr); err != nil {
			windows.CloseHandle(mapping)
			return err
		}
		return windows.CloseHandle(mapping)
	}
	return buf, nil
}

func unsafeSlice(addr uintptr, size int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
}
