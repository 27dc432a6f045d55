//go:build !windows

package signal

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/xerra-oss/go-sio/pkg/stream"
)

func TestSignalRoundTrip(t *testing.T) {
	s, err := Open([]int{int(syscall.SIGUSR1)}, stream.FlagRead|stream.FlagWrite)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer stream.Close(s)

	done := make(chan struct{})
	var readErr error
	buf := make([]byte, 4)
	go func() {
		defer close(done)
		_, readErr = stream.Read(s, buf, 0)
	}()

	time.Sleep(10 * time.Millisecond)
	proc, err := os.FindProcess(os.Getpid())
	if err != nil {
		t.Fatalf("FindProcess: %v", err)
	}
	if err := proc.Signal(syscall.SIGUSR1); err != nil {
		t.Fatalf("Signal: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for signal delivery")
	}
	if readErr != nil {
		t.Fatalf("Read: %v", readErr)
	}
}
