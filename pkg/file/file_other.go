//go:build !linux && !darwin && !windows

package file

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/xerra-oss/go-sio/pkg/errkind"
	"github.com/xerra-oss/go-sio/pkg/stream"
)

// otherFile is a best-effort stdlib fallback for platforms outside the
// POSIX-like / Win32-like families spec.md §1 scopes: byte-accurate
// read/write/seek/truncate via os.File, record locking unsupported.
type otherFile struct {
	mu       sync.Mutex
	f        *os.File
	flags    stream.Flags
	closed   bool
	readable bool
	writable bool
}

const direct = 0

func openNative(path string, flags stream.Flags, mode Mode) (stream.Ops, error) {
	var osFlags int
	switch {
	case flags.Has(stream.FlagRead) && flags.Has(stream.FlagWrite):
		osFlags = os.O_RDWR
	case flags.Has(stream.FlagWrite):
		osFlags = os.O_WRONLY
	default:
		osFlags = os.O_RDONLY
	}
	if flags.Has(stream.FlagCreate) {
		osFlags |= os.O_CREATE
	}
	if flags.Has(stream.FlagExclusive) {
		osFlags |= os.O_EXCL
	}
	if flags.Has(stream.FlagTruncate) {
		osFlags |= os.O_TRUNC
	}
	if flags.Has(stream.FlagAppend) {
		osFlags |= os.O_APPEND
	}
	f, err := os.OpenFile(path, osFlags, os.FileMode(mode))
	if err != nil {
		return nil, errkind.New(errkind.IO, err)
	}
	return &otherFile{f: f, flags: flags, readable: flags.Has(stream.FlagRead), writable: flags.Has(stream.FlagWrite)}, nil
}

func (f *otherFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errkind.New(errkind.FileClosed, nil)
	}
	f.closed = true
	if err := f.f.Close(); err != nil {
		return errkind.New(errkind.IO, err)
	}
	return nil
}

func (f *otherFile) Read(p []byte, flags stream.OpFlags) (int, error) {
	if !f.readable {
		return 0, errkind.New(errkind.Unsupported, fmt.Errorf("file: not opened for reading"))
	}
	n, err := f.f.Read(p)
	if err == io.EOF {
		return n, errkind.New(errkind.EndOfStream, nil)
	}
	if err != nil {
		return n, errkind.New(errkind.IO, err)
	}
	return n, nil
}

func (f *otherFile) Write(p []byte, flags stream.OpFlags) (int, error) {
	if !f.writable {
		return 0, errkind.New(errkind.Unsupported, fmt.Errorf("file: not opened for writing"))
	}
	n, err := f.f.Write(p)
	if err != nil {
		return n, errkind.New(errkind.IO, err)
	}
	return n, nil
}

func (f *otherFile) Flush() error {
	if err := f.f.Sync(); err != nil {
		return errkind.New(errkind.IO, err)
	}
	return nil
}

func (f *otherFile) Seek(origin stream.SeekOrigin, offset int64) (uint64, error) {
	var whence int
	switch origin {
	case stream.SeekSet:
		whence = io.SeekStart
	case stream.SeekCur:
		whence = io.SeekCurrent
	case stream.SeekEnd:
		whence = io.SeekEnd
	default:
		return 0, errkind.New(errkind.InvalidParam, nil)
	}
	pos, err := f.f.Seek(offset, whence)
	if err != nil {
		return 0, errkind.New(errkind.FileSeek, err)
	}
	return uint64(pos), nil
}

func (f *otherFile) Tell() (uint64, error) { return f.Seek(stream.SeekCur, 0) }

func (f *otherFile) Truncate(size uint64) error {
	if err := f.f.Truncate(int64(size)); err != nil {
		return errkind.New(errkind.IO, err)
	}
	return nil
}

func (f *otherFile) GetSize() (uint64, error) {
	info, err := f.f.Stat()
	if err != nil {
		return 0, errkind.New(errkind.IO, err)
	}
	return uint64(info.Size()), nil
}

func (f *otherFile) GetOption(opt stream.Option) (any, error) {
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
		return f.f.Fd(), nil
	default:
		return nil, errkind.New(errkind.Unsupported, nil)
	}
}

func (f *otherFile) SetOption(opt stream.Option, value any) error {
	return errkind.New(errkind.Unsupported, nil)
}

func (f *otherFile) lock(region LockRegion) error {
	return errkind.New(errkind.Unsupported, fmt.Errorf("file: record locking unsupported on this platform"))
}

func (f *otherFile) unlock(region LockRegion) error {
	return errkind.New(errkind.Unsupported, fmt.Errorf("file: record locking unsupported on this platform"))
}
