// Package stream implements the stream core (component D): tagged
// dispatch over a per-kind operations table, generic read/write/seek,
// and the standard streams.
//
// The core never imports a backend package; every backend
// (pkg/file, pkg/socket, pkg/timer, pkg/signal, pkg/memory) imports
// stream instead and returns a *Stream from its Open constructor. This
// keeps the dependency graph acyclic, per spec.md §9's "tagged
// dispatch instead of virtual inheritance" design note.
package stream

import (
	"fmt"

	"github.com/rs/xid"

	"github.com/xerra-oss/go-sio/pkg/errkind"
)

// Kind tags which backend produced a Stream. The full enumeration from
// spec.md §3 is carried even though three kinds (Pipe, MsgQueue,
// SharedMemory) currently have no backend — see DESIGN.md's Open Question 2 and the
// note on original_source/ not implementing them either.
type Kind int

const (
	_ Kind = iota
	KindFile
	KindTCPSocket
	KindUDPPseudoSocket
	KindUnixSocket
	KindPipe
	KindTimer
	KindSignal
	KindMsgQueue
	KindSharedMemory
	KindBufferedMemory
	KindRawMemory
	KindTerminal
	KindCustom
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindTCPSocket:
		return "tcp-socket"
	case KindUDPPseudoSocket:
		return "udp-pseudo-socket"
	case KindUnixSocket:
		return "unix-socket"
	case KindPipe:
		return "pipe"
	case KindTimer:
		return "timer"
	case KindSignal:
		return "signal"
	case KindMsgQueue:
		return "msgqueue"
	case KindSharedMemory:
		return "shmem"
	case KindBufferedMemory:
		return "buffered-memory"
	case KindRawMemory:
		return "raw-memory"
	case KindTerminal:
		return "terminal"
	case KindCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Flags are the orthogonal per-stream bits from spec.md §3's "Stream
// Flags". They describe how a stream was opened, not a per-call
// request.
type Flags uint32

const (
	FlagRead Flags = 1 << iota
	FlagWrite
	FlagCreate
	FlagExclusive
	FlagTruncate
	FlagAppend
	FlagNonBlock
	FlagAsync
	FlagUnbuffered
	FlagSync
	FlagTemp
	FlagBinary
	FlagMmap
	FlagDirect
	FlagServer
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// OpFlags are per-call flags (spec.md §3's "Stream Operation Flags").
type OpFlags uint32

const (
	// DoAll requests the core loop until the full buffer is consumed
	// or an error occurs.
	DoAll OpFlags = 1 << iota
	// DoAllNonBlock, combined with DoAll, accepts partial progress:
	// the loop returns after the first syscall instead of looping
	// until full completion.
	DoAllNonBlock

	// Pass-throughs for socket send/recv semantics. Backends act only
	// on OpDontWait (where they honour it) and ignore the other bits;
	// no backend returns Unsupported for a bit it does not handle.
	OpConfirm
	OpDontRoute
	OpDontWait
	OpEndOfRecord
	OpMore
	OpNoSignal
	OpOutOfBand
	OpFastOpen
)

// Iovec is a sized byte span suitable for scatter-gather I/O. Spans
// passed together in one call must not overlap (spec.md §3).
type Iovec []byte

// SeekOrigin mirrors the three classic seek origins.
type SeekOrigin int

const (
	SeekSet SeekOrigin = iota
	SeekCur
	SeekEnd
)

// Option identifies a gettable/settable stream property (spec.md
// §4.E/§4.F/§4.I "options exposed" lists). Backends return Unsupported
// for options they do not implement.
type Option int

const (
	OptType Option = iota
	OptFlags
	OptPosition
	OptSize
	OptReadable
	OptWritable
	OptSeekable
	OptEOF
	OptNativeHandle
	OptBlocking
	OptCloseOnExec
	OptAppend
	OptSync
	OptDirect
	OptID
	OptTCPNoDelay
	OptTCPKeepAlive
	OptReuseAddr
	OptBroadcast
	OptRcvBuf
	OptSndBuf
	OptTCPInfo
	OptBufferSize
	OptTimerInterval
	OptTimerOneshot
)

// Ops is the Go rendering of spec.md §3's "Operations Table": the
// capability set every backend must implement. Optional operations
// (seek/tell/truncate/get_size/readv/writev) are modeled as separate
// interfaces a backend may additionally satisfy, checked with a type
// assertion at the call site — the idiomatic equivalent of spec.md's
// sentinel-checked empty slots, and the same pattern used by
// _examples/other_examples' wazero fsapi.File capability interface.
type Ops interface {
	Close() error
	Read(p []byte, flags OpFlags) (int, error)
	Write(p []byte, flags OpFlags) (int, error)
	Flush() error
	GetOption(opt Option) (any, error)
	SetOption(opt Option, value any) error
}

// Seeker is implemented by backends whose stream is seekable.
type Seeker interface {
	Seek(origin SeekOrigin, offset int64) (uint64, error)
	Tell() (uint64, error)
}

// Truncater is implemented by backends that support truncation.
type Truncater interface {
	Truncate(size uint64) error
}

// Sizer is implemented by backends that can report a total size.
type Sizer interface {
	GetSize() (uint64, error)
}

// Vectored is implemented by backends with a native scatter-gather
// syscall; otherwise the core falls back to serial Read/Write.
type Vectored interface {
	Readv(iovs []Iovec, flags OpFlags) (int, error)
	Writev(iovs []Iovec, flags OpFlags) (int, error)
}

// Stream is a type-tagged handle dispatched through its Ops. It is not
// internally synchronized (spec.md §5): concurrent operations on the
// same Stream from multiple goroutines are undefined.
type Stream struct {
	kind   Kind
	ops    Ops
	flags  Flags
	id     xid.ID
	closed bool
}

// New constructs a Stream around a backend's Ops implementation. Called
// only by backend packages (pkg/file, pkg/socket, ...), never by
// library consumers directly.
func New(kind Kind, ops Ops, flags Flags) *Stream {
	return &Stream{kind: kind, ops: ops, flags: flags, id: xid.New()}
}

// Kind returns the stream's type tag. It is constant between open and
// close (spec.md §8 invariant).
func (s *Stream) Kind() Kind { return s.kind }

// Flags returns the flags the stream was opened with.
func (s *Stream) Flags() Flags { return s.flags }

// ID returns the stream's correlation ID, stable for its lifetime and
// distinct across concurrently open streams (SPEC_FULL.md §9).
func (s *Stream) ID() xid.ID { return s.id }

// Ops exposes the backend's raw operations table to other packages in
// this module (e.g. pkg/file's Lock/Unlock and pkg/socket's Accept); it is not part of
// the stable external API surface for library consumers.
func (s *Stream) Ops() Ops { return s.ops }

func (s *Stream) validate() error {
	if s == nil || s.ops == nil {
		return errkind.New(errkind.InvalidParam, fmt.Errorf("stream: nil stream or operations table"))
	}
	if s.closed {
		return errkind.New(errkind.FileClosed, fmt.Errorf("stream: use of closed stream"))
	}
	return nil
}

// Close releases the stream's resources. Double-close is defended by
// the closed flag; the second call returns FileClosed rather than
// re-invoking the backend's Close, matching spec.md §3's "double-close
// is defended by zeroing the native handle on success" invariant
// (here, zeroing is the closed bool rather than the native handle,
// since Go backends should zero their own handle inside Ops.Close).
func Close(s *Stream) error {
	if s == nil {
		return errkind.New(errkind.InvalidParam, fmt.Errorf("stream: nil stream"))
	}
	if s.closed {
		return errkind.New(errkind.FileClosed, fmt.Errorf("stream: already closed"))
	}
	err := s.ops.Close()
	s.closed = true
	return err
}

// Read implements spec.md §4.D's read algorithm, including the DOALL
// looping rules.
func Read(s *Stream, buf []byte, flags OpFlags) (int, error) {
	if err := s.validate(); err != nil {
		return 0, err
	}
	if len(buf) == 0 {
		return 0, nil
	}
	if flags&DoAll == 0 {
		return s.ops.Read(buf, flags)
	}

	var total int
	for total < len(buf) {
		n, err := s.ops.Read(buf[total:], flags)
		total += n
		if err != nil {
			if errkind.Is(err, errkind.EndOfStream) {
				if total > 0 {
					return total, nil
				}
				return total, err
			}
			return total, err
		}
		if flags&DoAllNonBlock != 0 {
			return total, nil
		}
		if n == 0 {
			// No error but no progress: treat like end-of-stream for
			// the purposes of the loop to avoid spinning forever.
			return total, nil
		}
	}
	return total, nil
}

// Write implements spec.md §4.D's symmetric write algorithm: a short
// write never collapses to EndOfStream, and DOALL without
// DoAllNonBlock returns an I/O error if the loop makes no progress in
// an iteration.
func Write(s *Stream, buf []byte, flags OpFlags) (int, error) {
	if err := s.validate(); err != nil {
		return 0, err
	}
	if len(buf) == 0 {
		return 0, nil
	}
	if flags&DoAll == 0 {
		return s.ops.Write(buf, flags)
	}

	var total int
	for total < len(buf) {
		n, err := s.ops.Write(buf[total:], flags)
		total += n
		if err != nil {
			return total, err
		}
		if flags&DoAllNonBlock != 0 {
			return total, nil
		}
		if n == 0 {
			return total, errkind.New(errkind.IO, fmt.Errorf("stream: write made no progress"))
		}
	}
	return total, nil
}

// Flush dispatches to the backend's Flush.
func Flush(s *Stream) error {
	if err := s.validate(); err != nil {
		return err
	}
	return s.ops.Flush()
}

// Seek dispatches to the backend's Seeker, or Unsupported if the
// backend's kind is not seekable.
func Seek(s *Stream, origin SeekOrigin, offset int64) (uint64, error) {
	if err := s.validate(); err != nil {
		return 0, err
	}
	seeker, ok := s.ops.(Seeker)
	if !ok {
		return 0, errkind.New(errkind.Unsupported, fmt.Errorf("stream: %s does not support seek", s.kind))
	}
	return seeker.Seek(origin, offset)
}

// Tell dispatches to the backend's Seeker.
func Tell(s *Stream) (uint64, error) {
	if err := s.validate(); err != nil {
		return 0, err
	}
	seeker, ok := s.ops.(Seeker)
	if !ok {
		return 0, errkind.New(errkind.Unsupported, fmt.Errorf("stream: %s does not support tell", s.kind))
	}
	return seeker.Tell()
}

// Truncate dispatches to the backend's Truncater.
func Truncate(s *Stream, size uint64) error {
	if err := s.validate(); err != nil {
		return err
	}
	t, ok := s.ops.(Truncater)
	if !ok {
		return errkind.New(errkind.Unsupported, fmt.Errorf("stream: %s does not support truncate", s.kind))
	}
	return t.Truncate(size)
}

// GetSize dispatches to the backend's Sizer.
func GetSize(s *Stream) (uint64, error) {
	if err := s.validate(); err != nil {
		return 0, err
	}
	sz, ok := s.ops.(Sizer)
	if !ok {
		return 0, errkind.New(errkind.Unsupported, fmt.Errorf("stream: %s does not support get_size", s.kind))
	}
	return sz.GetSize()
}

// GetOption dispatches to the backend, with a uniform EOF fallback:
// when OptEOF has no backend implementation, the core probes with a
// one-byte read, see eofProbe below.
func GetOption(s *Stream, opt Option) (any, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	if opt == OptID {
		return s.id, nil
	}
	v, err := s.ops.GetOption(opt)
	if opt == OptEOF && errkind.Is(err, errkind.Unsupported) {
		return eofProbe(s)
	}
	return v, err
}

// eofProbe implements spec.md §4.D's "get_option(EOF) ... else by a
// zero-byte probe read" fallback. A true zero-byte read always
// succeeds trivially per spec.md §4.D's read algorithm, so the probe
// reads one byte with OpDontWait into a scratch byte, then rewinds with
// Seek if the backend is seekable and the read returned data. On a
// non-seekable stream the probed byte is consumed.
func eofProbe(s *Stream) (any, error) {
	seeker, seekable := s.ops.(Seeker)
	var scratch [1]byte
	n, err := s.ops.Read(scratch[:], OpDontWait)
	if err != nil {
		if errkind.Is(err, errkind.EndOfStream) {
			return true, nil
		}
		if errkind.Is(err, errkind.WouldBlock) {
			return false, nil
		}
		return nil, err
	}
	if n > 0 && seekable {
		if _, serr := seeker.Seek(SeekCur, -int64(n)); serr != nil {
			return nil, serr
		}
	}
	return n == 0, nil
}

// SetOption dispatches to the backend.
func SetOption(s *Stream, opt Option, value any) error {
	if err := s.validate(); err != nil {
		return err
	}
	return s.ops.SetOption(opt, value)
}

// Eof is sugar over GetOption(OptEOF).
func Eof(s *Stream) (bool, error) {
	v, err := GetOption(s, OptEOF)
	if err != nil {
		return false, err
	}
	eof, _ := v.(bool)
	return eof, nil
}

// Readv dispatches to the backend's native Vectored.Readv, falling
// back to serial Read calls per iovec when the backend has no native
// scatter-gather slot (spec.md §4.D).
func Readv(s *Stream, iovs []Iovec, flags OpFlags) (int, error) {
	if err := s.validate(); err != nil {
		return 0, err
	}
	if v, ok := s.ops.(Vectored); ok {
		return v.Readv(iovs, flags)
	}
	var total int
	for _, iov := range iovs {
		n, err := Read(s, iov, flags&^DoAll)
		total += n
		if err != nil {
			return total, err
		}
		if n < len(iov) {
			break
		}
	}
	return total, nil
}

// Writev is the write-side mirror of Readv.
func Writev(s *Stream, iovs []Iovec, flags OpFlags) (int, error) {
	if err := s.validate(); err != nil {
		return 0, err
	}
	if v, ok := s.ops.(Vectored); ok {
		return v.Writev(iovs, flags)
	}
	var total int
	for _, iov := range iovs {
		n, err := Write(s, iov, flags&^DoAll)
		total += n
		if err != nil {
			return total, err
		}
		if n < len(iov) {
			break
		}
	}
	return total, nil
}
