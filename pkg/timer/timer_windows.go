//go:build windows

package timer

import (
	"encoding/binary"
	"sync"

	"golang.org/x/sys/windows"

	"github.com/xerra-oss/go-sio/pkg/errkind"
	"github.com/xerra-oss/go-sio/pkg/stream"
)

type windowsTimer struct {
	mu       sync.Mutex
	handle   windows.Handle
	oneshot  bool
	interval uint64
	closed   bool
}

// msToDueTime converts milliseconds to the negative 100ns relative
// due-time SetWaitableTimer expects.
func msToDueTime(ms uint64) int64 {
	return -int64(ms) * 10000
}

func openNative(intervalMS uint64, oneshot bool, flags stream.Flags) (stream.Ops, error) {
	h, err := windows.CreateWaitableTimer(nil, oneshot, nil)
	if err != nil {
		return nil, translate(err)
	}
	t := &windowsTimer{handle: h, oneshot: oneshot}
	if err := t.program(intervalMS, oneshot); err != nil {
		windows.CloseHandle(h)
		return nil, err
	}
	return t, nil
}

func translate(err error) error {
	if errno, ok := err.(windows.Errno); ok {
		return errkind.New(errkind.FromNativeWindows(errno), err)
	}
	return errkind.New(errkind.IO, err)
}

func (t *windowsTimer) program(intervalMS uint64, oneshot bool) error {
	period := int32(intervalMS)
	if oneshot {
		period = 0
	}
	due := uint64(msToDueTime(intervalMS))
	dueTime := windows.Filetime{LowDateTime: uint32(due), HighDateTime: uint32(due >> 32)}
	if err := windows.SetWaitableTimer(t.handle, &dueTime, period, 0, 0, false); err != nil {
		return translate(err)
	}
	t.oneshot = oneshot
	t.interval = intervalMS
	return nil
}

func (t *windowsTimer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errkind.New(errkind.FileClosed, nil)
	}
	t.closed = true
	if err := windows.CloseHandle(t.handle); err != nil {
		return translate(err)
	}
	return nil
}

// Read blocks on WaitForSingleObject; a successful wait yields count 1
// (spec.md §4.G: Windows cannot report a precise expiration count).
func (t *windowsTimer) Read(p []byte, flags stream.OpFlags) (int, error) {
	wait := uint32(windows.INFINITE)
	if flags&stream.OpDontWait != 0 {
		wait = 0
	}
	event, err := windows.WaitForSingleObject(t.handle, wait)
	if err != nil {
		return 0, translate(err)
	}
	if event == uint32(windows.WAIT_TIMEOUT) {
		return 0, errkind.New(errkind.WouldBlock, nil)
	}
	binary.NativeEndian.PutUint64(p[:min(len(p), 8)], 1)
	return min(8, len(p)), nil
}

func (t *windowsTimer) Write(p []byte, flags stream.OpFlags) (int, error) {
	intervalMS, periodMS, err := decodeReprogram(p)
	if err != nil {
		return 0, err
	}
	oneshot := t.oneshot
	if periodMS != nil {
		oneshot = false
	}
	if err := t.program(intervalMS, oneshot); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (t *windowsTimer) Flush() error { return nil }

func (t *windowsTimer) GetOption(opt stream.Option) (any, error) {
	switch opt {
	case stream.OptType:
		return stream.KindTimer, nil
	case stream.OptNativeHandle:
		return t.handle, nil
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

func (t *windowsTimer) SetOption(opt stream.Option, value any) error {
	switch opt {
	case stream.OptTimerInterval:
		ms, _ := value.(uint64)
		return t.program(ms, t.oneshot)
	default:
		return errkind.New(errkind.Unsupported, nil)
	}
}
