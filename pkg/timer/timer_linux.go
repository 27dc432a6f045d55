//go:build linux

package timer

import (
	"encoding/binary"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/xerra-oss/go-sio/pkg/errkind"
	"github.com/xerra-oss/go-sio/pkg/kernel"
	"github.com/xerra-oss/go-sio/pkg/stream"
)

// minKernel is the floor this pool standardizes on (well above
// timerfd's own 2.6.25 minimum), matching the teacher's own gate in
// pkg/linux/init.go.
const (
	minKernelVersion = 5
	minKernelMajor   = 4
	minKernelMinor   = 0
)

type linuxTimer struct {
	mu       sync.Mutex
	fd       int
	oneshot  bool
	interval uint64
	closed   bool
}

func msToTimespec(ms uint64) unix.Timespec {
	d := time.Duration(ms) * time.Millisecond
	return unix.NsecToTimespec(d.Nanoseconds())
}

func openNative(intervalMS uint64, oneshot bool, flags stream.Flags) (stream.Ops, error) {
	if err := kernel.RequireLinux(minKernelVersion, minKernelMajor, minKernelMinor); err != nil {
		return nil, err
	}
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		return nil, translate(err)
	}
	t := &linuxTimer{fd: fd, oneshot: oneshot}
	if err := t.program(intervalMS, oneshot); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return t, nil
}

func translate(err error) error {
	if errno, ok := err.(unix.Errno); ok {
		return errkind.New(errkind.FromNativePOSIX(errno), err)
	}
	return errkind.New(errkind.IO, err)
}

func (t *linuxTimer) program(intervalMS uint64, oneshot bool) error {
	period := intervalMS
	if oneshot {
		period = 0
	}
	spec := unix.ItimerSpec{
		Value:    msToTimespec(intervalMS),
		Interval: msToTimespec(period),
	}
	if err := unix.TimerfdSettime(t.fd, 0, &spec, nil); err != nil {
		return translate(err)
	}
	t.oneshot = oneshot
	t.interval = intervalMS
	return nil
}

func (t *linuxTimer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errkind.New(errkind.FileClosed, nil)
	}
	t.closed = true
	if err := unix.Close(t.fd); err != nil {
		return translate(err)
	}
	return nil
}

// Read returns the 8-byte expiration counter produced by timerfd: a
// read without OpDontWait waits via poll when not yet expired.
func (t *linuxTimer) Read(p []byte, flags stream.OpFlags) (int, error) {
	buf := make([]byte, 8)
	for {
		n, err := unix.Read(t.fd, buf)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			if err == unix.EAGAIN {
				if flags&stream.OpDontWait != 0 {
					return 0, errkind.New(errkind.WouldBlock, err)
				}
				if waitErr := t.waitReadable(); waitErr != nil {
					return 0, waitErr
				}
				continue
			}
			return 0, translate(err)
		}
		count := binary.NativeEndian.Uint64(buf)
		binary.NativeEndian.PutUint64(p[:min(len(p), 8)], count)
		return min(n, len(p)), nil
	}
}

func (t *linuxTimer) waitReadable() error {
	fds := []unix.PollFd{{Fd: int32(t.fd), Events: unix.POLLIN}}
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

func (t *linuxTimer) Write(p []byte, flags stream.OpFlags) (int, error) {
	intervalMS, periodMS, err := decodeReprogram(p)
	if err != nil {
		return 0, err
	}
	t.mu.Lock()
	oneshot := t.oneshot
	t.mu.Unlock()
	if periodMS != nil {
		t.mu.Lock()
		t.oneshot = false
		t.interval = *periodMS
		t.mu.Unlock()
		spec := unix.ItimerSpec{Value: msToTimespec(intervalMS), Interval: msToTimespec(*periodMS)}
		if err := unix.TimerfdSettime(t.fd, 0, &spec, nil); err != nil {
			return 0, translate(err)
		}
		return len(p), nil
	}
	if err := t.program(intervalMS, oneshot); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (t *linuxTimer) Flush() error { return nil }

func (t *linuxTimer) GetOption(opt stream.Option) (any, error) {
	switch opt {
	case stream.OptType:
		return stream.KindTimer, nil
	case stream.OptNativeHandle:
		return t.fd, nil
	case stream.OptTimerOneshot:
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.oneshot, nil
	case stream.OptTimerInterval:
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.interval, nil
	default:
		return nil, errkind.New(errkind.Unsupported, nil)
	}
}

func (t *linuxTimer) SetOption(opt stream.Option, value any) error {
	switch opt {
	case stream.OptTimerInterval:
		ms, _ := value.(uint64)
		t.mu.Lock()
		oneshot := t.oneshot
		t.mu.Unlock()
		return t.program(ms, oneshot)
	default:
		return errkind.New(errkind.Unsupported, nil)
	}
}
