//go:build windows

package signal

import (
	"encoding/binary"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"

	"github.com/xerra-oss/go-sio/pkg/errkind"
	"github.com/xerra-oss/go-sio/pkg/stream"
)

// Only the two console signals Windows actually has a raise primitive
// for are supported end-to-end; spec.md §4.H.
const (
	SigInterrupt = 0 // CTRL_C_EVENT
	SigBreak     = 1 // CTRL_BREAK_EVENT
)

var (
	registryMu sync.Mutex
	registry   = map[int]*windows.Handle{}
	handlerSet bool
	regLogger  logrus.FieldLogger = logrus.StandardLogger()
)

// SetLogger points the console control registry at logger, used to
// report conditions the process-global consoleHandler callback can't
// surface any other way (it runs on a Win32-owned thread with no
// return path to a caller). A nil logger falls back to
// logrus.StandardLogger().
func SetLogger(logger logrus.FieldLogger) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	regLogger = logger
}

type windowsSignal struct {
	mu      sync.Mutex
	events  map[int]windows.Handle
	closed  bool
}

func openNative(signals []int, flags stream.Flags) (stream.Ops, error) {
	s := &windowsSignal{events: make(map[int]windows.Handle, len(signals))}
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, sig := range signals {
		ev, err := windows.CreateEvent(nil, 1, 0, nil)
		if err != nil {
			return nil, errkind.New(errkind.FromNativeWindows(toErrno(err)), err)
		}
		s.events[sig] = ev
		h := ev
		registry[sig] = &h
	}
	if !handlerSet {
		windows.SetConsoleCtrlHandler(windows.NewCallback(consoleHandler), true)
		handlerSet = true
	}
	return s, nil
}

func toErrno(err error) windows.Errno {
	if errno, ok := err.(windows.Errno); ok {
		return errno
	}
	return windows.Errno(0)
}

// consoleHandler is the process-global console control callback; it
// looks the triggering type up in the registry and signals the one
// event registered for that specific sig, so Read can report exactly
// which signal fired.
func consoleHandler(ctrlType uintptr) uintptr {
	registryMu.Lock()
	defer registryMu.Unlock()
	var sig int
	switch ctrlType {
	case 0:
		sig = SigInterrupt
	case 1:
		sig = SigBreak
	default:
		regLogger.WithField("ctrl_type", ctrlType).Warn("unrecognized console control event, ignoring")
		return 0
	}
	h, ok := registry[sig]
	if !ok {
		regLogger.WithField("signal", sig).Warn("console control event fired with no registered stream listening")
		return 0
	}
	if err := windows.SetEvent(*h); err != nil {
		regLogger.WithField("signal", sig).WithError(err).Error("failed to signal registered event")
		return 0
	}
	return 1
}

func (s *windowsSignal) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errkind.New(errkind.FileClosed, nil)
	}
	s.closed = true
	registryMu.Lock()
	defer registryMu.Unlock()
	for sig, ev := range s.events {
		delete(registry, sig)
		windows.CloseHandle(ev)
	}
	return nil
}

// Read waits on any registered event and returns the specific signal
// number whose event fired: consoleHandler sets one event per
// registered signal, so WaitForMultipleObjects' returned index
// identifies exactly which one, preserved here via the parallel sigs
// slice (spec.md §4.H).
func (s *windowsSignal) Read(p []byte, flags stream.OpFlags) (int, error) {
	s.mu.Lock()
	sigs := make([]int, 0, len(s.events))
	handles := make([]windows.Handle, 0, len(s.events))
	for sig, ev := range s.events {
		sigs = append(sigs, sig)
		handles = append(handles, ev)
	}
	s.mu.Unlock()
	if len(handles) == 0 {
		return 0, errkind.New(errkind.InvalidParam, nil)
	}
	wait := uint32(windows.INFINITE)
	if flags&stream.OpDontWait != 0 {
		wait = 0
	}
	idx, err := windows.WaitForMultipleObjects(handles, false, wait)
	if err != nil {
		return 0, errkind.New(errkind.FromNativeWindows(toErrno(err)), err)
	}
	if idx >= uint32(len(handles)) {
		return 0, errkind.New(errkind.WouldBlock, nil)
	}
	windows.ResetEvent(handles[idx])
	buf := make([]byte, 4)
	binary.NativeEndian.PutUint32(buf, uint32(sigs[idx]))
	return copy(p, buf), nil
}

// Write raises Ctrl-C/Ctrl-Break via GenerateConsoleCtrlEvent; any
// other signal number fails with Unsupported (spec.md §4.H).
func (s *windowsSignal) Write(p []byte, flags stream.OpFlags) (int, error) {
	if len(p) < 4 {
		return 0, errkind.New(errkind.InvalidParam, nil)
	}
	signo := binary.NativeEndian.Uint32(p[0:4])
	if signo != SigInterrupt && signo != SigBreak {
		return 0, errkind.New(errkind.Unsupported, nil)
	}
	if err := windows.GenerateConsoleCtrlEvent(signo, 0); err != nil {
		return 0, errkind.New(errkind.FromNativeWindows(toErrno(err)), err)
	}
	return len(p), nil
}

func (s *windowsSignal) Flush() error { return nil }

func (s *windowsSignal) GetOption(opt stream.Option) (any, error) {
	switch opt {
	case stream.OptType:
		return stream.KindSignal, nil
	default:
		return nil, errkind.New(errkind.Unsupported, nil)
	}
}

func (s *windowsSignal) SetOption(opt stream.Option, value any) error {
	return errkind.New(errkind.Unsupported, nil)
}
