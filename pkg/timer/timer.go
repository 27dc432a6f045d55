// Package timer implements the timer backend (component G): periodic
// or one-shot expiration counters, surfaced as a Stream whose read
// returns the expiration count and whose write reprograms the period.
package timer

import (
	"encoding/binary"

	"github.com/xerra-oss/go-sio/pkg/errkind"
	"github.com/xerra-oss/go-sio/pkg/stream"
)

// Open creates a timer Stream armed with the given interval. Oneshot
// timers fire once; periodic ones keep firing every interval until
// reprogrammed or closed (spec.md §4.G).
func Open(intervalMS uint64, oneshot bool, flags stream.Flags) (*stream.Stream, error) {
	ops, err := openNative(intervalMS, oneshot, flags)
	if err != nil {
		return nil, err
	}
	return stream.New(stream.KindTimer, ops, flags), nil
}

// EncodeReprogram packs a new interval (and, on Linux, a distinct
// period) into the 8-or-16-byte payload write() expects (spec.md
// §4.G). The Windows backend and the emulated timer on other platforms
// do not use the second word's value: its presence only makes the
// timer periodic, with the new interval as its period.
func EncodeReprogram(intervalMS uint64, periodMS *uint64) []byte {
	if periodMS == nil {
		buf := make([]byte, 8)
		binary.NativeEndian.PutUint64(buf, intervalMS)
		return buf
	}
	buf := make([]byte, 16)
	binary.NativeEndian.PutUint64(buf[:8], intervalMS)
	binary.NativeEndian.PutUint64(buf[8:], *periodMS)
	return buf
}

func decodeReprogram(p []byte) (intervalMS uint64, periodMS *uint64, err error) {
	if len(p) < 8 {
		return 0, nil, errkind.New(errkind.InvalidParam, nil)
	}
	intervalMS = binary.NativeEndian.Uint64(p[:8])
	if len(p) >= 16 {
		v := binary.NativeEndian.Uint64(p[8:16])
		periodMS = &v
	}
	return intervalMS, periodMS, nil
}
