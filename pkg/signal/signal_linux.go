//go:build linux

package signal

import (
	"encoding/binary"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/xerra-oss/go-sio/pkg/errkind"
	"github.com/xerra-oss/go-sio/pkg/kernel"
	"github.com/xerra-oss/go-sio/pkg/stream"
)

// signalfd itself needs 2.6.27; this is signalfd's own floor, not a
// pool-wide standardization like the timer backend's.
const (
	minKernelVersion = 2
	minKernelMajor   = 6
	minKernelMinor   = 27
)

type linuxSignal struct {
	mu     sync.Mutex
	fd     int
	set    unix.Sigset_t
	flags  stream.Flags
	closed bool
}

func translate(err error) error {
	if errno, ok := err.(unix.Errno); ok {
		return errkind.New(errkind.FromNativePOSIX(errno), err)
	}
	return errkind.New(errkind.IO, err)
}

func openNative(signals []int, flags stream.Flags) (stream.Ops, error) {
	if err := kernel.RequireLinux(minKernelVersion, minKernelMajor, minKernelMinor); err != nil {
		return nil, err
	}
	var set unix.Sigset_t
	for _, sig := range signals {
		sigsetAdd(&set, sig)
	}
	// PthreadSigmask, not Sigprocmask, is the correct call from a Go
	// program: Go's runtime multiplexes goroutines across OS threads,
	// and only a per-thread sigmask call composes with that (spec.md
	// §4.H's "block in all threads" is approximated by blocking in
	// the signal-owning thread/goroutine's thread at open time).
	if err := unix.PthreadSigmask(unix.SIG_BLOCK, &set, nil); err != nil {
		return nil, translate(err)
	}
	sfdFlags := unix.SFD_CLOEXEC
	if flags.Has(stream.FlagNonBlock) {
		sfdFlags |= unix.SFD_NONBLOCK
	}
	fd, err := unix.Signalfd(-1, &set, sfdFlags)
	if err != nil {
		unix.PthreadSigmask(unix.SIG_UNBLOCK, &set, nil)
		return nil, translate(err)
	}
	return &linuxSignal{fd: fd, set: set, flags: flags}, nil
}

// sigsetAdd sets bit (sig-1) in a glibc-shaped 1024-bit sigset_t,
// mirroring the kernel's own bit numbering (signal 1 is bit 0).
func sigsetAdd(set *unix.Sigset_t, sig int) {
	word := (sig - 1) / 64
	bit := uint((sig - 1) % 64)
	set.Val[word] |= 1 << bit
}

func (s *linuxSignal) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errkind.New(errkind.FileClosed, nil)
	}
	s.closed = true
	unix.PthreadSigmask(unix.SIG_UNBLOCK, &s.set, nil)
	if err := unix.Close(s.fd); err != nil {
		return translate(err)
	}
	return nil
}

// Read returns a signalfd_siginfo when the buffer is large enough
// (128 bytes), else just the 4-byte signal number (spec.md §4.H). A
// blocking-mode stream (no FlagNonBlock, no OpDontWait) waits via
// waitReadable on EAGAIN instead of racing the signal's delivery,
// mirroring pkg/timer/timer_linux.go's waitReadable.
func (s *linuxSignal) Read(p []byte, flags stream.OpFlags) (int, error) {
	immediate := s.flags.Has(stream.FlagNonBlock) || flags&stream.OpDontWait != 0
	const siginfoSize = 128
	staging := make([]byte, siginfoSize)
	for {
		n, err := unix.Read(s.fd, staging)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			if err == unix.EAGAIN {
				if immediate {
					return 0, errkind.New(errkind.WouldBlock, err)
				}
				if waitErr := s.waitReadable(); waitErr != nil {
					return 0, waitErr
				}
				continue
			}
			return 0, translate(err)
		}
		if len(p) >= siginfoSize {
			return copy(p, staging[:n]), nil
		}
		signo := binary.NativeEndian.Uint32(staging[0:4])
		buf := make([]byte, 4)
		binary.NativeEndian.PutUint32(buf, signo)
		return copy(p, buf), nil
	}
}

func (s *linuxSignal) waitReadable() error {
	fds := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return translate(err)
		}
		if n > 0 {
			return nil
		}
	}
}

// Write raises a signal via kill(2); a second 32-bit word, if present,
// supplies the target pid instead of the current process.
func (s *linuxSignal) Write(p []byte, flags stream.OpFlags) (int, error) {
	if len(p) < 4 {
		return 0, errkind.New(errkind.InvalidParam, nil)
	}
	signo := binary.NativeEndian.Uint32(p[0:4])
	pid := unix.Getpid()
	if len(p) >= 8 {
		pid = int(binary.NativeEndian.Uint32(p[4:8]))
	}
	if err := unix.Kill(pid, unix.Signal(signo)); err != nil {
		return 0, translate(err)
	}
	return len(p), nil
}

func (s *linuxSignal) Flush() error { return nil }

func (s *linuxSignal) GetOption(opt stream.Option) (any, error) {
	switch opt {
	case stream.OptType:
		return stream.KindSignal, nil
	case stream.OptNativeHandle:
		return s.fd, nil
	default:
		return nil, errkind.New(errkind.Unsupported, nil)
	}
}

func (s *linuxSignal) SetOption(opt stream.Option, value any) error {
	return errkind.New(errkind.Unsupported, nil)
}
