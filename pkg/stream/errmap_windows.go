//go:build windows

package stream

import (
	"errors"
	"io"
	"syscall"

	"golang.org/x/sys/windows"

	"github.com/xerra-oss/go-sio/pkg/errkind"
)

// translateIOErr mirrors errmap_unix.go for Win32 error codes. Go's
// syscall.Errno on windows carries the same numeric Win32 code as
// golang.org/x/sys/windows.Errno but is a distinct named type, so the
// value is converted rather than type-asserted.
func translateIOErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) {
		return errkind.New(errkind.EndOfStream, err)
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errkind.New(errkind.FromNativeWindows(windows.Errno(errno)), err)
	}
	return errkind.New(errkind.IO, err)
}
