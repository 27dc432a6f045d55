//go:build linux || darwin

package stream

import (
	"errors"
	"io"
	"syscall"

	"github.com/xerra-oss/go-sio/pkg/errkind"
)

// translateIOErr turns an os/io error produced by a plain *os.File
// operation into an *errkind.Error, extracting the underlying
// syscall.Errno when one is present. golang.org/x/sys/unix.Errno is a
// type alias for syscall.Errno, so errkind.FromNativePOSIX accepts it
// directly without conversion.
func translateIOErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) {
		return errkind.New(errkind.EndOfStream, err)
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errkind.New(errkind.FromNativePOSIX(errno), err)
	}
	return errkind.New(errkind.IO, err)
}
