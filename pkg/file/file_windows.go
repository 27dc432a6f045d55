//go:build windows

package file

import (
	"fmt"
	"sync"

	"golang.org/x/sys/windows"

	"github.com/xerra-oss/go-sio/pkg/errkind"
	"github.com/xerra-oss/go-sio/pkg/stream"
)

type windowsFile struct {
	mu       sync.Mutex
	handle   windows.Handle
	flags    stream.Flags
	closed   bool
	readable bool
	writable bool
}

func accessAndDisposition(flags stream.Flags) (access uint32, disposition uint32, attrs uint32) {
	switch {
	case flags.Has(stream.FlagRead) && flags.Has(stream.FlagWrite):
		access = windows.GENERIC_READ | windows.GENERIC_WRITE
	case flags.Has(stream.FlagWrite):
		access = windows.GENERIC_WRITE
	default:
		access = windows.GENERIC_READ
	}

	switch {
	case flags.Has(stream.FlagCreate) && flags.Has(stream.FlagExclusive):
		disposition = windows.CREATE_NEW
	case flags.Has(stream.FlagCreate) && flags.Has(stream.FlagTruncate):
		disposition = windows.CREATE_ALWAYS
	case flags.Has(stream.FlagCreate):
		disposition = windows.OPEN_ALWAYS
	case flags.Has(stream.FlagTruncate):
		disposition = windows.TRUNCATE_EXISTING
	default:
		disposition = windows.OPEN_EXISTING
	}

	attrs = windows.FILE_ATTRIBUTE_NORMAL
	if flags.Has(stream.FlagSync) {
		attrs |= windows.FILE_FLAG_WRITE_THROUGH
	}
	if flags.Has(stream.FlagDirect) {
		attrs |= windows.FILE_FLAG_NO_BUFFERING
	}
	if flags.Has(stream.FlagAsync) {
		attrs |= windows.FILE_FLAG_OVERLAPPED
	}
	if flags.Has(stream.FlagTemp) {
		attrs |= windows.FILE_ATTRIBUTE_TEMPORARY
	}
	if flags.Has(stream.FlagNonBlock) {
		// spec.md §4.E: non-blocking opens are rejected outright on
		// Windows rather than silently ignored.
	}
	return
}

func openNative(path string, flags stream.Flags, mode Mode) (stream.Ops, error) {
	if flags.Has(stream.FlagNonBlock) {
		return nil, errkind.New(errkind.Unsupported, fmt.Errorf("file: non-blocking open is not supported on Windows"))
	}
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, errkind.New(errkind.BadPath, err)
	}
	access, disposition, attrs := accessAndDisposition(flags)
	h, err := windows.CreateFile(p, access, windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE, nil, disposition, attrs, 0)
	if err != nil {
		return nil, errkind.New(errkind.FromNativeWindows(toErrno(err)), err)
	}
	f := &windowsFile{
		handle:   h,
		flags:    flags,
		readable: flags.Has(stream.FlagRead),
		writable: flags.Has(stream.FlagWrite),
	}
	if flags.Has(stream.FlagAppend) {
		if _, serr := f.Seek(stream.SeekEnd, 0); serr != nil {
			windows.CloseHandle(h)
			return nil, serr
		}
	}
	return f, nil
}

func toErrno(err error) windows.Errno {
	if errno, ok := err.(windows.Errno); ok {
		return errno
	}
	return windows.Errno(0)
}

func (f *windowsFile) translate(err error) error {
	return errkind.New(errkind.FromNativeWindows(toErrno(err)), err)
}

func (f *windowsFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errkind.New(errkind.FileClosed, nil)
	}
	f.closed = true
	if err := windows.CloseHandle(f.handle); err != nil {
		return f.translate(err)
	}
	return nil
}

func (f *windowsFile) Read(p []byte, flags stream.OpFlags) (int, error) {
	if !f.readable {
		return 0, errkind.New(errkind.Unsupported, fmt.Errorf("file: not opened for reading"))
	}
	var n uint32
	err := windows.ReadFile(f.handle, p, &n, nil)
	if err != nil {
		if err == windows.ERROR_HANDLE_EOF {
			return int(n), errkind.New(errkind.EndOfStream, nil)
		}
		return int(n), f.translate(err)
	}
	if n == 0 && len(p) > 0 {
		return 0, errkind.New(errkind.EndOfStream, nil)
	}
	return int(n), nil
}

func (f *windowsFile) Write(p []byte, flags stream.OpFlags) (int, error) {
	if !f.writable {
		return 0, errkind.New(errkind.Unsupported, fmt.Errorf("file: not opened for writing"))
	}
	var n uint32
	if err := windows.WriteFile(f.handle, p, &n, nil); err != nil {
		return int(n), f.translate(err)
	}
	return int(n), nil
}

func (f *windowsFile) Flush() error {
	if err := windows.FlushFileBuffers(f.handle); err != nil {
		return f.translate(err)
	}
	return nil
}

func nativeWhence(origin stream.SeekOrigin) (uint32, error) {
	switch origin {
	case stream.SeekSet:
		return windows.FILE_BEGIN, nil
	case stream.SeekCur:
		return windows.FILE_CURRENT, nil
	case stream.SeekEnd:
		return windows.FILE_END, nil
	default:
		return 0, errkind.New(errkind.InvalidParam, fmt.Errorf("file: unknown seek origin %d", origin))
	}
}

func (f *windowsFile) Seek(origin stream.SeekOrigin, offset int64) (uint64, error) {
	whence, err := nativeWhence(origin)
	if err != nil {
		return 0, err
	}
	var newPos int64
	if err := windows.SetFilePointerEx(f.handle, offset, &newPos, whence); err != nil {
		return 0, f.translate(err)
	}
	return uint64(newPos), nil
}

func (f *windowsFile) Tell() (uint64, error) {
	return f.Seek(stream.SeekCur, 0)
}

// Truncate preserves the current position around SetEndOfFile, per
// spec.md §4.E: Windows has no ftruncate, only "move the pointer then
// cut here".
func (f *windowsFile) Truncate(size uint64) error {
	saved, err := f.Tell()
	if err != nil {
		return err
	}
	if _, err := f.Seek(stream.SeekSet, int64(size)); err != nil {
		return err
	}
	if err := windows.SetEndOfFile(f.handle); err != nil {
		return f.translate(err)
	}
	_, err = f.Seek(stream.SeekSet, int64(saved))
	return err
}

func (f *windowsFile) GetSize() (uint64, error) {
	var info windows.ByHandleFileInformation
	if err := windows.GetFileInformationByHandle(f.handle, &info); err != nil {
		return 0, f.translate(err)
	}
	return uint64(info.FileSizeHigh)<<32 | uint64(info.FileSizeLow), nil
}

func (f *windowsFile) GetOption(opt stream.Option) (any, error) {
	switch opt {
	case stream.OptType:
		return stream.KindFile, nil
	case stream.OptFlags:
		return f.flags, nil
	case stream.OptPosition:
		return f.Tell()
	case stream.OptSize:
		return f.GetSize()
	case stream.OptReadable:
		return f.readable, nil
	case stream.OptWritable:
		return f.writable, nil
	case stream.OptSeekable:
		return true, nil
	case stream.OptNativeHandle:
		return f.handle, nil
	case stream.OptBlocking:
		return true, nil
	case stream.OptCloseOnExec:
		return false, nil
	case stream.OptAppend:
		return f.flags.Has(stream.FlagAppend), nil
	case stream.OptSync:
		return f.flags.Has(stream.FlagSync), nil
	case stream.OptDirect:
		return f.flags.Has(stream.FlagDirect), nil
	default:
		return nil, errkind.New(errkind.Unsupported, nil)
	}
}

func (f *windowsFile) SetOption(opt stream.Option, value any) error {
	return errkind.New(errkind.Unsupported, nil)
}

func (f *windowsFile) lock(region LockRegion) error {
	var flags uint32
	if region.Exclusive {
		flags |= windows.LOCKFILE_EXCLUSIVE_LOCK
	}
	if !region.Wait {
		flags |= windows.LOCKFILE_FAIL_IMMEDIATELY
	}
	length := uint64(region.Len)
	if region.Len == 0 {
		// Len == 0 means "to end of file": cover every offset from Offset on.
		length = ^uint64(0)
	}
	overlapped := windows.Overlapped{Offset: uint32(region.Offset), OffsetHigh: uint32(region.Offset >> 32)}
	if err := windows.LockFileEx(f.handle, flags, 0, uint32(length), uint32(length>>32), &overlapped); err != nil {
		if err == windows.ERROR_LOCK_VIOLATION {
			return errkind.New(errkind.Busy, err)
		}
		return f.translate(err)
	}
	return nil
}

func (f *windowsFile) unlock(region LockRegion) error {
	length := uint64(region.Len)
	if region.Len == 0 {
		length = ^uint64(0)
	}
	overlapped := windows.Overlapped{Offset: uint32(region.Offset), OffsetHigh: uint32(region.Offset >> 32)}
	if err := windows.UnlockFileEx(f.handle, 0, uint32(length), uint32(length>>32), &overlapped); err != nil {
		return f.translate(err)
	}
	return nil
}
