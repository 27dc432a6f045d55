// Package memory implements the memory backends (component I): a
// buffer-backed stream delegating to pkg/buffer, and a raw fixed-span
// stream over a caller-owned byte slice.
package memory

import (
	"fmt"

	"github.com/xerra-oss/go-sio/pkg/buffer"
	"github.com/xerra-oss/go-sio/pkg/errkind"
	"github.com/xerra-oss/go-sio/pkg/stream"
)

// bufferStream wraps a buffer.Buffer (owned or borrowed). Truncate
// shrinks/grows per spec.md §4.I: shrinking below half capacity also
// shrinks-to-fit; growing zero-fills the new region.
type bufferStream struct {
	buf   *buffer.Buffer
	owned bool
}

// OpenBuffer creates a memory Stream over a newly allocated buffer of
// the given initial capacity.
func OpenBuffer(capacity uint64, flags stream.Flags) (*stream.Stream, error) {
	b, err := buffer.Create(capacity)
	if err != nil {
		return nil, err
	}
	return stream.New(stream.KindBufferedMemory, &bufferStream{buf: b, owned: true}, flags), nil
}

// WrapBuffer creates a memory Stream over a caller-owned buffer; Close
// does not release it.
func WrapBuffer(b *buffer.Buffer, flags stream.Flags) *stream.Stream {
	return stream.New(stream.KindBufferedMemory, &bufferStream{buf: b, owned: false}, flags)
}

func (s *bufferStream) Close() error {
	if s.owned {
		return s.buf.Destroy()
	}
	return nil
}

func (s *bufferStream) Read(p []byte, flags stream.OpFlags) (int, error) {
	return s.buf.Read(p)
}

func (s *bufferStream) Write(p []byte, flags stream.OpFlags) (int, error) {
	return s.buf.Write(p)
}

func (s *bufferStream) Flush() error { return nil }

func (s *bufferStream) Seek(origin stream.SeekOrigin, offset int64) (uint64, error) {
	var target int64
	switch origin {
	case stream.SeekSet:
		target = offset
	case stream.SeekCur:
		target = int64(s.buf.Position()) + offset
	case stream.SeekEnd:
		target = int64(s.buf.Size()) + offset
	default:
		return 0, errkind.New(errkind.InvalidParam, nil)
	}
	if target < 0 {
		return 0, errkind.New(errkind.InvalidParam, fmt.Errorf("memory: negative seek target"))
	}
	if err := s.buf.Seek(uint64(target)); err != nil {
		return 0, err
	}
	return s.buf.Tell(), nil
}

func (s *bufferStream) Tell() (uint64, error) { return s.buf.Tell(), nil }

// Truncate implements spec.md §4.I's shrink/grow/zero-fill rules:
// shrinking below half capacity also shrinks-to-fit, growing
// zero-fills the new region (handled by buf.Truncate itself).
func (s *bufferStream) Truncate(size uint64) error {
	shrinking := size < s.buf.Size()
	if err := s.buf.Truncate(size); err != nil {
		return err
	}
	if shrinking && size < s.buf.Capacity()/2 {
		return s.buf.ShrinkToFit()
	}
	return nil
}

func (s *bufferStream) GetSize() (uint64, error) { return s.buf.Size(), nil }

func (s *bufferStream) GetOption(opt stream.Option) (any, error) {
	switch opt {
	case stream.OptType:
		return stream.KindBufferedMemory, nil
	case stream.OptPosition:
		return s.buf.Position(), nil
	case stream.OptSize:
		return s.buf.Size(), nil
	case stream.OptSeekable:
		return true, nil
	case stream.OptBufferSize:
		return s.buf.Capacity(), nil
	default:
		return nil, errkind.New(errkind.Unsupported, nil)
	}
}

func (s *bufferStream) SetOption(opt stream.Option, value any) error {
	switch opt {
	case stream.OptBufferSize:
		size, _ := value.(uint64)
		return s.buf.Resize(size)
	default:
		return errkind.New(errkind.Unsupported, nil)
	}
}

// rawSpanStream wraps a caller-provided, fixed-length span. Close
// simply forgets the pointer; the caller retains ownership (spec.md
// §4.I).
type rawSpanStream struct {
	data []byte
	pos  uint64
}

// OpenRawSpan wraps span directly, with no copy.
func OpenRawSpan(span []byte, flags stream.Flags) *stream.Stream {
	return stream.New(stream.KindRawMemory, &rawSpanStream{data: span}, flags)
}

func (s *rawSpanStream) Close() error {
	s.data = nil
	return nil
}

func (s *rawSpanStream) Read(p []byte, flags stream.OpFlags) (int, error) {
	if s.pos >= uint64(len(s.data)) {
		return 0, errkind.New(errkind.EndOfStream, nil)
	}
	n := copy(p, s.data[s.pos:])
	s.pos += uint64(n)
	return n, nil
}

func (s *rawSpanStream) Write(p []byte, flags stream.OpFlags) (int, error) {
	if s.pos >= uint64(len(s.data)) {
		return 0, errkind.New(errkind.BufferTooSmall, nil)
	}
	n := copy(s.data[s.pos:], p)
	s.pos += uint64(n)
	return n, nil
}

func (s *rawSpanStream) Flush() error { return nil }

func (s *rawSpanStream) Seek(origin stream.SeekOrigin, offset int64) (uint64, error) {
	var target int64
	switch origin {
	case stream.SeekSet:
		target = offset
	case stream.SeekCur:
		target = int64(s.pos) + offset
	case stream.SeekEnd:
		target = int64(len(s.data)) + offset
	default:
		return 0, errkind.New(errkind.InvalidParam, nil)
	}
	if target < 0 || target > int64(len(s.data)) {
		return 0, errkind.New(errkind.InvalidParam, fmt.Errorf("memory: seek target out of span"))
	}
	s.pos = uint64(target)
	return s.pos, nil
}

func (s *rawSpanStream) Tell() (uint64, error) { return s.pos, nil }

func (s *rawSpanStream) GetSize() (uint64, error) { return uint64(len(s.data)), nil }

func (s *rawSpanStream) GetOption(opt stream.Option) (any, error) {
	switch opt {
	case stream.OptType:
		return stream.KindRawMemory, nil
	case stream.OptPosition:
		return s.pos, nil
	case stream.OptSize:
		return uint64(len(s.data)), nil
	case stream.OptSeekable:
		return true, nil
	case stream.OptEOF:
		return s.pos == uint64(len(s.data)), nil
	default:
		return nil, errkind.New(errkind.Unsupported, nil)
	}
}

func (s *rawSpanStream) SetOption(opt stream.Option, value any) error {
	return errkind.New(errkind.Unsupported, nil)
}
