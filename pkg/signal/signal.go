// Package signal implements the signal backend (component H):
// synchronous signal delivery as a Stream whose read yields a
// signal-info payload and whose write raises a signal.
package signal

import (
	"github.com/xerra-oss/go-sio/pkg/stream"
)

// Open blocks the given signal numbers in the calling process (on
// POSIX) or registers a console control handler for them (on Windows)
// and returns a Stream that reports their delivery (spec.md §4.H).
func Open(signals []int, flags stream.Flags) (*stream.Stream, error) {
	ops, err := openNative(signals, flags)
	if err != nil {
		return nil, err
	}
	return stream.New(stream.KindSignal, ops, flags), nil
}
