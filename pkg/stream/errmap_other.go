//go:build !linux && !darwin && !windows

package stream

import (
	"errors"
	"io"

	"github.com/xerra-oss/go-sio/pkg/errkind"
)

// translateIOErr on unsupported platforms keeps only the EOF
// distinction; every other I/O error collapses to a generic IO kind.
func translateIOErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) {
		return errkind.New(errkind.EndOfStream, err)
	}
	return errkind.New(errkind.IO, err)
}
