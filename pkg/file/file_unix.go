//go:build linux || darwin

package file

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/xerra-oss/go-sio/pkg/errkind"
	"github.com/xerra-oss/go-sio/pkg/stream"
)

type posixFile struct {
	mu       sync.Mutex
	fd       int
	flags    stream.Flags
	closed   bool
	readable bool
	writable bool
}

func nativeFlags(flags stream.Flags) int {
	var f int
	switch {
	case flags.Has(stream.FlagRead) && flags.Has(stream.FlagWrite):
		f = unix.O_RDWR
	case flags.Has(stream.FlagWrite):
		f = unix.O_WRONLY
	default:
		f = unix.O_RDONLY
	}
	if flags.Has(stream.FlagCreate) {
		f |= unix.O_CREAT
	}
	if flags.Has(stream.FlagExclusive) {
		f |= unix.O_EXCL
	}
	if flags.Has(stream.FlagTruncate) {
		f |= unix.O_TRUNC
	}
	if flags.Has(stream.FlagAppend) {
		f |= unix.O_APPEND
	}
	if flags.Has(stream.FlagNonBlock) {
		f |= unix.O_NONBLOCK
	}
	if flags.Has(stream.FlagSync) {
		f |= unix.O_SYNC
	}
	if flags.Has(stream.FlagDirect) {
		f |= direct
	}
	return f
}

func openNative(path string, flags stream.Flags, mode Mode) (stream.Ops, error) {
	fd, err := unix.Open(path, nativeFlags(flags)|unix.O_CLOEXEC, uint32(mode))
	if err != nil {
		return nil, errkind.New(errkind.FromNativePOSIX(err.(unix.Errno)), err)
	}
	return &posixFile{
		fd:       fd,
		flags:    flags,
		readable: flags.Has(stream.FlagRead),
		writable: flags.Has(stream.FlagWrite),
	}, nil
}

func (f *posixFile) translate(err error) error {
	if errno, ok := err.(unix.Errno); ok {
		return errkind.New(errkind.FromNativePOSIX(errno), err)
	}
	return errkind.New(errkind.IO, err)
}

func (f *posixFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errkind.New(errkind.FileClosed, nil)
	}
	f.closed = true
	if err := unix.Close(f.fd); err != nil {
		return f.translate(err)
	}
	return nil
}

func (f *posixFile) Read(p []byte, flags stream.OpFlags) (int, error) {
	if !f.readable {
		return 0, errkind.New(errkind.Unsupported, fmt.Errorf("file: not opened for reading"))
	}
	for {
		n, err := unix.Read(f.fd, p)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			if err == unix.EAGAIN {
				return 0, errkind.New(errkind.WouldBlock, err)
			}
			return 0, f.translate(err)
		}
		if n == 0 && len(p) > 0 {
			return 0, errkind.New(errkind.EndOfStream, nil)
		}
		return n, nil
	}
}

func (f *posixFile) Write(p []byte, flags stream.OpFlags) (int, error) {
	if !f.writable {
		return 0, errkind.New(errkind.Unsupported, fmt.Errorf("file: not opened for writing"))
	}
	for {
		n, err := unix.Write(f.fd, p)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			if err == unix.EAGAIN {
				return 0, errkind.New(errkind.WouldBlock, err)
			}
			return n, f.translate(err)
		}
		return n, nil
	}
}

func (f *posixFile) Flush() error {
	if err := unix.Fsync(f.fd); err != nil {
		return f.translate(err)
	}
	return nil
}

func (f *posixFile) Seek(origin stream.SeekOrigin, offset int64) (uint64, error) {
	whence, err := nativeWhence(origin)
	if err != nil {
		return 0, err
	}
	pos, serr := unix.Seek(f.fd, offset, whence)
	if serr != nil {
		return 0, f.translate(serr)
	}
	return uint64(pos), nil
}

func (f *posixFile) Tell() (uint64, error) {
	return f.Seek(stream.SeekCur, 0)
}

func (f *posixFile) Truncate(size uint64) error {
	if err := unix.Ftruncate(f.fd, int64(size)); err != nil {
		return f.translate(err)
	}
	return nil
}

func (f *posixFile) GetSize() (uint64, error) {
	var st unix.Stat_t
	if err := unix.Fstat(f.fd, &st); err != nil {
		return 0, f.translate(err)
	}
	return uint64(st.Size), nil
}

func (f *posixFile) GetOption(opt stream.Option) (any, error) {
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
		return f.fd, nil
	case stream.OptBlocking:
		return !f.flags.Has(stream.FlagNonBlock), nil
	case stream.OptCloseOnExec:
		return true, nil
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

func (f *posixFile) SetOption(opt stream.Option, value any) error {
	switch opt {
	case stream.OptBlocking:
		blocking, _ := value.(bool)
		flag, err := unix.FcntlInt(uintptr(f.fd), unix.F_GETFL, 0)
		if err != nil {
			return f.translate(err)
		}
		if blocking {
			flag &^= unix.O_NONBLOCK
		} else {
			flag |= unix.O_NONBLOCK
		}
		if _, err := unix.FcntlInt(uintptr(f.fd), unix.F_SETFL, flag); err != nil {
			return f.translate(err)
		}
		return nil
	default:
		return errkind.New(errkind.Unsupported, nil)
	}
}

func (f *posixFile) lock(region LockRegion) error {
	lk := unix.Flock_t{
		Type:   unix.F_RDLCK,
		Whence: int16(unix.SEEK_SET),
		Start:  region.Offset,
		Len:    region.Len,
	}
	if region.Exclusive {
		lk.Type = unix.F_WRLCK
	}
	cmd := unix.F_SETLK
	if region.Wait {
		cmd = unix.F_SETLKW
	}
	if err := unix.FcntlFlock(uintptr(f.fd), cmd, &lk); err != nil {
		if err == unix.EAGAIN || err == unix.EACCES {
			return errkind.New(errkind.Busy, err)
		}
		return f.translate(err)
	}
	return nil
}

func (f *posixFile) unlock(region LockRegion) error {
	lk := unix.Flock_t{
		Type:   unix.F_UNLCK,
		Whence: int16(unix.SEEK_SET),
		Start:  region.Offset,
		Len:    region.Len,
	}
	if err := unix.FcntlFlock(uintptr(f.fd), unix.F_SETLK, &lk); err != nil {
		return f.translate(err)
	}
	return nil
}

func nativeWhence(origin stream.SeekOrigin) (int, error) {
	switch origin {
	case stream.SeekSet:
		return unix.SEEK_SET, nil
	case stream.SeekCur:
		return unix.SEEK_CUR, nil
	case stream.SeekEnd:
		return unix.SEEK_END, nil
	default:
		return 0, errkind.New(errkind.InvalidParam, fmt.Errorf("file: unknown seek origin %d", origin))
	}
}
