// Package file implements the file backend (component E): portable
// open-flag translation, read/write/seek/truncate/lock over OS file
// objects, and the get_option/set_option surface spec.md §4.E lists.
package file

import (
	"fmt"

	"github.com/xerra-oss/go-sio/pkg/errkind"
	"github.com/xerra-oss/go-sio/pkg/stream"
)

// Mode is the Unix-style permission bits used when a file is created.
// The Windows backend ignores it, matching the teacher's narrow POSIX
// focus and spec.md §1's scope (no ACL surface).
type Mode uint32

const DefaultMode Mode = 0o644

// Open translates flags into the native open call described by spec.md
// §4.E's table and returns a file Stream.
func Open(path string, flags stream.Flags, mode Mode) (*stream.Stream, error) {
	if !flags.Has(stream.FlagRead) && !flags.Has(stream.FlagWrite) {
		return nil, errkind.New(errkind.InvalidParam, fmt.Errorf("file: open requires at least one of read/write"))
	}
	ops, err := openNative(path, flags, mode)
	if err != nil {
		return nil, err
	}
	return stream.New(stream.KindFile, ops, flags), nil
}

// LockRegion describes a byte range for Lock/Unlock. Len == 0 means "to
// end of file" (spec.md §4.E).
type LockRegion struct {
	Offset    int64
	Len       int64
	Exclusive bool
	Wait      bool
}

// locker is implemented by each platform's file Ops; Lock/Unlock are
// package functions rather than stream.Stream methods because record
// locking is file-specific, not part of the generic Ops/Seeker/
// Truncater surface other backends share.
type locker interface {
	lock(LockRegion) error
	unlock(LockRegion) error
}

// Lock applies an advisory record lock to s, which must have been
// returned by Open.
func Lock(s *stream.Stream, region LockRegion) error {
	l, ok := s.Ops().(locker)
	if !ok {
		return errkind.New(errkind.Unsupported, fmt.Errorf("file: Lock called on a non-file stream"))
	}
	return l.lock(region)
}

// Unlock releases a previously acquired region.
func Unlock(s *stream.Stream, region LockRegion) error {
	l, ok := s.Ops().(locker)
	if !ok {
		return errkind.New(errkind.Unsupported, fmt.Errorf("file: Unlock called on a non-file stream"))
	}
	return l.unlock(region)
}
