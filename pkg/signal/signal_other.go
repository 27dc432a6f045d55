//go:build !linux && !windows

package signal

import (
	"encoding/binary"
	"os"
	gosignal "os/signal"
	"sync"
	"syscall"

	"github.com/xerra-oss/go-sio/pkg/errkind"
	"github.com/xerra-oss/go-sio/pkg/stream"
)

// emulatedSignal is the Darwin/BSD fallback (no signalfd): an
// os/signal channel stands in for the kernel queue (spec.md §4.H's
// REDESIGN FLAG, same rationale as pkg/timer's fallback).
type emulatedSignal struct {
	mu      sync.Mutex
	ch      chan os.Signal
	signals []int
	closed  bool
}

func openNative(signals []int, flags stream.Flags) (stream.Ops, error) {
	s := &emulatedSignal{ch: make(chan os.Signal, 16), signals: signals}
	sysSignals := make([]os.Signal, len(signals))
	for i, sig := range signals {
		sysSignals[i] = syscall.Signal(sig)
	}
	gosignal.Notify(s.ch, sysSignals...)
	return s, nil
}

func (s *emulatedSignal) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errkind.New(errkind.FileClosed, nil)
	}
	s.closed = true
	gosignal.Stop(s.ch)
	close(s.ch)
	return nil
}

func (s *emulatedSignal) Read(p []byte, flags stream.OpFlags) (int, error) {
	if flags&stream.OpDontWait != 0 {
		select {
		case sig, ok := <-s.ch:
			if !ok {
				return 0, errkind.New(errkind.FileClosed, nil)
			}
			return encodeSignal(p, sig), nil
		default:
			return 0, errkind.New(errkind.WouldBlock, nil)
		}
	}
	sig, ok := <-s.ch
	if !ok {
		return 0, errkind.New(errkind.FileClosed, nil)
	}
	return encodeSignal(p, sig), nil
}

func encodeSignal(p []byte, sig os.Signal) int {
	signo := uint32(0)
	if s, ok := sig.(syscall.Signal); ok {
		signo = uint32(s)
	}
	buf := make([]byte, 4)
	binary.NativeEndian.PutUint32(buf, signo)
	return copy(p, buf)
}

func (s *emulatedSignal) Write(p []byte, flags stream.OpFlags) (int, error) {
	if len(p) < 4 {
		return 0, errkind.New(errkind.InvalidParam, nil)
	}
	signo := binary.NativeEndian.Uint32(p[0:4])
	pid := os.Getpid()
	if len(p) >= 8 {
		pid = int(binary.NativeEndian.Uint32(p[4:8]))
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, errkind.New(errkind.ProcNotFound, err)
	}
	if err := proc.Signal(syscall.Signal(signo)); err != nil {
		return 0, errkind.New(errkind.ProcSignal, err)
	}
	return len(p), nil
}

func (s *emulatedSignal) Flush() error { return nil }

func (s *emulatedSignal) GetOption(opt stream.Option) (any, error) {
	switch opt {
	case stream.OptType:
		return stream.KindSignal, nil
	default:
		return nil, errkind.New(errkind.Unsupported, nil)
	}
}

func (s *emulatedSignal) SetOption(opt stream.Option, value any) error {
	return errkind.New(errkind.Unsupported, nil)
}
