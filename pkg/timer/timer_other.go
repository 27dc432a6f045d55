//go:build !linux && !windows

package timer

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/xerra-oss/go-sio/pkg/errkind"
	"github.com/xerra-oss/go-sio/pkg/stream"
)

// emulatedTimer is the REDESIGN FLAG fallback for platforms with
// neither timerfd nor waitable timers (Darwin and the BSDs): a
// time.Timer drives a buffered counter channel that Read drains,
// deliberately going further than the original C implementation ever
// targeted (see DESIGN.md's pkg/timer entry).
type emulatedTimer struct {
	mu       sync.Mutex
	timer    *time.Timer
	expired  chan struct{}
	interval time.Duration
	oneshot  bool
	closed   bool
	done     chan struct{}
}

func openNative(intervalMS uint64, oneshot bool, flags stream.Flags) (stream.Ops, error) {
	t := &emulatedTimer{
		expired: make(chan struct{}, 64),
		done:    make(chan struct{}),
	}
	t.arm(time.Duration(intervalMS) * time.Millisecond, oneshot)
	return t, nil
}

func (t *emulatedTimer) arm(interval time.Duration, oneshot bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.interval = interval
	t.oneshot = oneshot
	t.timer = time.AfterFunc(interval, t.fire)
}

func (t *emulatedTimer) fire() {
	select {
	case t.expired <- struct{}{}:
	default:
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if !t.oneshot {
		t.timer = time.AfterFunc(t.interval, t.fire)
	}
}

func (t *emulatedTimer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errkind.New(errkind.FileClosed, nil)
	}
	t.closed = true
	if t.timer != nil {
		t.timer.Stop()
	}
	close(t.done)
	return nil
}

func (t *emulatedTimer) Read(p []byte, flags stream.OpFlags) (int, error) {
	var count uint64
	if flags&stream.OpDontWait != 0 {
		select {
		case <-t.expired:
			count = 1
		default:
			return 0, errkind.New(errkind.WouldBlock, nil)
		}
	} else {
		select {
		case <-t.expired:
			count = 1
		case <-t.done:
			return 0, errkind.New(errkind.FileClosed, nil)
		}
	}
	// Drain any further already-pending expirations without blocking,
	// mirroring timerfd's coalesced count semantics.
	for {
		select {
		case <-t.expired:
			count++
		default:
			binary.NativeEndian.PutUint64(p[:min(len(p), 8)], count)
			return min(8, len(p)), nil
		}
	}
}

func (t *emulatedTimer) Write(p []byte, flags stream.OpFlags) (int, error) {
	intervalMS, periodMS, err := decodeReprogram(p)
	if err != nil {
		return 0, err
	}
	t.mu.Lock()
	oneshot := t.oneshot
	t.mu.Unlock()
	if periodMS != nil {
		oneshot = false
	}
	t.arm(time.Duration(intervalMS)*time.Millisecond, oneshot)
	return len(p), nil
}

func (t *emulatedTimer) Flush() error { return nil }

func (t *emulatedTimer) GetOption(opt stream.Option) (any, error) {
	switch opt {
	case stream.OptType:
		return stream.KindTimer, nil
	case stream.OptTimerOneshot:
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.oneshot, nil
	case stream.OptTimerInterval:
		t.mu.Lock()
		defer t.mu.Unlock()
		return uint64(t.interval / time.Millisecond), nil
	default:
		return nil, errkind.New(errkind.Unsupported, nil)
	}
}

func (t *emulatedTimer) SetOption(opt stream.Option, value any) error {
	switch opt {
	case stream.OptTimerInterval:
		ms, _ := value.(uint64)
		t.mu.Lock()
		oneshot := t.oneshot
		t.mu.Unlock()
		t.arm(time.Duration(ms)*time.Millisecond, oneshot)
		return nil
	default:
		return errkind.New(errkind.Unsupported, nil)
	}
}
