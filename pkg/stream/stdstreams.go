package stream

import (
	"os"
	"sync"

	"github.com/xerra-oss/go-sio/pkg/errkind"
)

// stdStreamOps wraps one of os.Stdin/os.Stdout/os.Stderr directly.
// Standard streams are built here rather than via pkg/file: spec.md
// §4.D scopes "standard streams" to the stream core, distinct from
// component E's open/lock/truncate surface, and routing them through
// pkg/file would force stream to import a backend package.
type stdStreamOps struct {
	f        *os.File
	readable bool
	writable bool
}

func (o *stdStreamOps) Close() error {
	// Standard handles are owned by the runtime, not by the caller;
	// closing them would be surprising for a long-lived process, so
	// Close is a deliberate no-op here, matching the teacher's pattern
	// of leaving os.Std* streams open for the process lifetime.
	return nil
}

func (o *stdStreamOps) Read(p []byte, flags OpFlags) (int, error) {
	if !o.readable {
		return 0, errkind.New(errkind.Unsupported, nil)
	}
	n, err := o.f.Read(p)
	if err != nil {
		return n, translateIOErr(err)
	}
	return n, nil
}

func (o *stdStreamOps) Write(p []byte, flags OpFlags) (int, error) {
	if !o.writable {
		return 0, errkind.New(errkind.Unsupported, nil)
	}
	n, err := o.f.Write(p)
	if err != nil {
		return n, translateIOErr(err)
	}
	return n, nil
}

func (o *stdStreamOps) Flush() error {
	if !o.writable {
		return nil
	}
	if err := o.f.Sync(); err != nil {
		return translateIOErr(err)
	}
	return nil
}

func (o *stdStreamOps) GetOption(opt Option) (any, error) {
	switch opt {
	case OptType:
		return KindTerminal, nil
	case OptReadable:
		return o.readable, nil
	case OptWritable:
		return o.writable, nil
	case OptSeekable:
		return false, nil
	case OptNativeHandle:
		return o.f.Fd(), nil
	default:
		return nil, errkind.New(errkind.Unsupported, nil)
	}
}

func (o *stdStreamOps) SetOption(opt Option, value any) error {
	return errkind.New(errkind.Unsupported, nil)
}

var (
	stdinOnce  sync.Once
	stdinVal   *Stream
	stdoutOnce sync.Once
	stdoutVal  *Stream
	stderrOnce sync.Once
	stderrVal  *Stream
)

// Stdin returns the process' standard input as a read-only Stream,
// constructed lazily and shared across every caller (spec.md §4.D).
func Stdin() *Stream {
	stdinOnce.Do(func() {
		stdinVal = New(KindTerminal, &stdStreamOps{f: os.Stdin, readable: true}, FlagRead)
	})
	return stdinVal
}

// Stdout returns the process' standard output as a write-only Stream.
func Stdout() *Stream {
	stdoutOnce.Do(func() {
		stdoutVal = New(KindTerminal, &stdStreamOps{f: os.Stdout, writable: true}, FlagWrite)
	})
	return stdoutVal
}

// Stderr returns the process' standard error as a write-only Stream.
func Stderr() *Stream {
	stderrOnce.Do(func() {
		stderrVal = New(KindTerminal, &stdStreamOps{f: os.Stderr, writable: true}, FlagWrite)
	})
	return stderrVal
}
