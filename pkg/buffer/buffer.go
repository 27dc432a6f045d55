// Package buffer implements the growable byte buffer engine (component
// C): an owned-or-borrowed contiguous region with a read/write cursor,
// a growth policy, and a fixed-size pool of reusable instances.
//
// A Buffer is not safe for concurrent use, matching spec.md §3.
package buffer

import (
	"fmt"
	"math/bits"

	"github.com/xerra-oss/go-sio/pkg/errkind"
)

// GrowthStrategy selects how a Buffer's capacity grows when a write
// would exceed it. See spec.md §4.C for the exact rule each strategy
// implements.
type GrowthStrategy int

const (
	Fixed GrowthStrategy = iota
	Double
	Linear
	Optimal
)

// DefaultCapacity is used by Create when the caller passes 0.
const DefaultCapacity = 4096

// wordAlign is the platform word size buffer capacities are rounded up
// to, per spec.md §3's "capacity is aligned to the platform word (4 or
// 8 bytes)" invariant. 8 covers both 32- and 64-bit targets safely.
const wordAlign = 8

func alignCapacity(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	return (n + wordAlign - 1) &^ (wordAlign - 1)
}

// Buffer is an owned-or-borrowed contiguous byte region with a cursor
// and growth policy. The zero value is not usable; construct with
// Create, CreateEx, FromMemory, or MmapFile.
type Buffer struct {
	data       []byte
	size       uint64
	position   uint64
	ownsMemory bool
	isMmap     bool
	strategy   GrowthStrategy
	factor     uint64

	mmapCloser func() error // platform unmap hook, set by MmapFile
}

// Create allocates an aligned region of at least capacity bytes with
// the Double growth strategy. capacity == 0 uses DefaultCapacity.
func Create(capacity uint64) (*Buffer, error) {
	return CreateEx(capacity, Double, 0)
}

// CreateEx allocates a buffer with an explicit growth strategy and
// (for Linear) growth factor.
func CreateEx(capacity uint64, strategy GrowthStrategy, factor uint64) (*Buffer, error) {
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	aligned := alignCapacity(capacity)
	data := make([]byte, aligned)
	if data == nil && aligned != 0 {
		return nil, errkind.New(errkind.OutOfMemory, fmt.Errorf("buffer: allocate %d bytes", aligned))
	}
	return &Buffer{
		data:       data,
		ownsMemory: true,
		strategy:   strategy,
		factor:     factor,
	}, nil
}

// FromMemory wraps an external, caller-owned region as a fixed,
// non-owning, non-growing Buffer. The Buffer never frees data.
func FromMemory(data []byte) *Buffer {
	return &Buffer{
		data:       data,
		size:       uint64(len(data)),
		ownsMemory: false,
		strategy:   Fixed,
	}
}

// Size returns the number of used bytes.
func (b *Buffer) Size() uint64 { return b.size }

// Capacity returns the number of allocated bytes.
func (b *Buffer) Capacity() uint64 { return uint64(len(b.data)) }

// Position returns the current read/write cursor.
func (b *Buffer) Position() uint64 { return b.position }

// OwnsMemory reports whether Destroy will free the underlying storage.
func (b *Buffer) OwnsMemory() bool { return b.ownsMemory }

// IsMmap reports whether the buffer is backed by a memory-mapped file.
func (b *Buffer) IsMmap() bool { return b.isMmap }

// Data returns the used region, data[:Size()] (spec.md §6 `data`).
// Callers must not retain the slice past Destroy or Resize.
func (b *Buffer) Data() []byte { return b.data[:b.size] }

// CurrentPtr returns the region starting at the current position.
func (b *Buffer) CurrentPtr() []byte { return b.data[b.position:b.size] }

// Remaining returns the number of bytes available for reading.
func (b *Buffer) Remaining() uint64 { return b.size - b.position }

// AtEnd reports whether the cursor has reached size.
func (b *Buffer) AtEnd() bool { return b.position == b.size }

// nextCapacity computes the new capacity needed to fit `needed` bytes
// under the buffer's growth strategy, per spec.md §4.C's table.
func (b *Buffer) nextCapacity(needed uint64) (uint64, error) {
	cap0 := b.Capacity()
	switch b.strategy {
	case Fixed:
		return 0, errkind.New(errkind.BufferTooSmall, fmt.Errorf("buffer: fixed strategy cannot grow to %d bytes", needed))
	case Double:
		newCap := cap0
		if newCap == 0 {
			newCap = DefaultCapacity
		}
		for newCap < needed {
			hi, lo := bits.Mul64(newCap, 2)
			if hi != 0 || lo < newCap {
				// overflow: clamp to exactly what's needed.
				return alignCapacity(needed), nil
			}
			newCap = lo
		}
		return alignCapacity(newCap), nil
	case Linear:
		if b.factor == 0 {
			return 0, errkind.New(errkind.InvalidParam, fmt.Errorf("buffer: linear strategy requires a non-zero growth factor"))
		}
		newCap := cap0
		for newCap < needed {
			next := newCap + b.factor
			if next <= newCap { // overflow
				return alignCapacity(needed), nil
			}
			newCap = next
		}
		return alignCapacity(newCap), nil
	case Optimal:
		const optimalThreshold = 64 * 1024
		newCap := cap0
		if newCap == 0 {
			newCap = DefaultCapacity
		}
		for newCap < needed {
			if newCap < optimalThreshold {
				hi, lo := bits.Mul64(newCap, 2)
				if hi != 0 || lo < newCap {
					return alignCapacity(needed), nil
				}
				newCap = lo
			} else {
				// grow by 50%
				grown := newCap + newCap/2
				if grown <= newCap {
					return alignCapacity(needed), nil
				}
				newCap = grown
			}
		}
		return alignCapacity(newCap), nil
	default:
		return 0, errkind.New(errkind.InvalidParam, fmt.Errorf("buffer: unknown growth strategy %d", b.strategy))
	}
}

// EnsureCapacity guarantees the buffer has at least minCapacity bytes
// of capacity, growing per the strategy if needed.
func (b *Buffer) EnsureCapacity(minCapacity uint64) error {
	if minCapacity <= b.Capacity() {
		return nil
	}
	if b.isMmap {
		return errkind.New(errkind.BufferTooSmall, fmt.Errorf("buffer: mmap buffers cannot grow"))
	}
	newCap, err := b.nextCapacity(minCapacity)
	if err != nil {
		return err
	}
	return b.Resize(newCap)
}

// Reserve grows the buffer by at least additionalCapacity bytes beyond
// its current capacity.
func (b *Buffer) Reserve(additionalCapacity uint64) error {
	return b.EnsureCapacity(b.Capacity() + additionalCapacity)
}

// Resize changes the buffer's capacity to newCapacity rounded up to the
// word alignment. Shrinking
// below size truncates size and position to stay within the invariant
// `position <= size <= capacity`.
func (b *Buffer) Resize(newCapacity uint64) error {
	if b.isMmap {
		return errkind.New(errkind.BufferTooSmall, fmt.Errorf("buffer: mmap buffers have fixed capacity"))
	}
	if !b.ownsMemory {
		return errkind.New(errkind.BufferTooSmall, fmt.Errorf("buffer: borrowed buffers cannot be resized"))
	}
	aligned := alignCapacity(newCapacity)
	grown := make([]byte, aligned)
	n := b.size
	if uint64(len(grown)) < n {
		n = uint64(len(grown))
	}
	copy(grown, b.data[:n])
	b.data = grown
	if b.size > aligned {
		b.size = aligned
	}
	if b.position > b.size {
		b.position = b.size
	}
	return nil
}

// ShrinkToFit resizes the buffer to its current size, rounded up to the
// word alignment.
func (b *Buffer) ShrinkToFit() error {
	return b.Resize(b.size)
}

// Truncate sets size directly, growing capacity first if needed and
// zero-filling any newly exposed region, or shrinking size (and
// clamping position) without touching capacity. Used by pkg/memory to
// implement stream Truncate semantics.
func (b *Buffer) Truncate(size uint64) error {
	if size > b.Capacity() {
		if err := b.EnsureCapacity(size); err != nil {
			return err
		}
	}
	if size > b.size {
		for i := b.size; i < size; i++ {
			b.data[i] = 0
		}
	}
	b.size = size
	if b.position > b.size {
		b.position = b.size
	}
	return nil
}

// Write appends data at the current position, growing the buffer first
// if necessary and permitted. Position and size both advance by
// len(data).
func (b *Buffer) Write(data []byte) (int, error) {
	needed := b.position + uint64(len(data))
	if needed > b.Capacity() {
		if err := b.EnsureCapacity(needed); err != nil {
			return 0, err
		}
	}
	n := copy(b.data[b.position:], data)
	b.position += uint64(n)
	if b.position > b.size {
		b.size = b.position
	}
	return n, nil
}

// Read copies up to len(p) bytes starting at the current position into
// p, advancing position. It reports EndOfStream when position already
// equals size; a short read (less than len(p) but > 0) is success, not
// EndOfStream, per spec.md §4.C.
func (b *Buffer) Read(p []byte) (int, error) {
	if b.position >= b.size {
		return 0, errkind.New(errkind.EndOfStream, nil)
	}
	n := copy(p, b.data[b.position:b.size])
	b.position += uint64(n)
	return n, nil
}

// Seek validates and sets the absolute position. position must not
// exceed size.
func (b *Buffer) Seek(position uint64) error {
	if position > b.size {
		return errkind.New(errkind.InvalidParam, fmt.Errorf("buffer: seek position %d exceeds size %d", position, b.size))
	}
	b.position = position
	return nil
}

// SeekRelative moves the position by offset (which may be negative),
// checking bounds without signed/unsigned overflow.
func (b *Buffer) SeekRelative(offset int64) error {
	if offset < 0 {
		d := uint64(-offset)
		if d > b.position {
			return errkind.New(errkind.InvalidParam, fmt.Errorf("buffer: relative seek %d underflows position %d", offset, b.position))
		}
		b.position -= d
		return nil
	}
	d := uint64(offset)
	if d > b.size-b.position {
		return errkind.New(errkind.InvalidParam, fmt.Errorf("buffer: relative seek %d overflows size %d", offset, b.size))
	}
	b.position += d
	return nil
}

// Tell returns the current position.
func (b *Buffer) Tell() uint64 { return b.position }

// Clear resets size and position to zero, keeping capacity.
func (b *Buffer) Clear() {
	b.size = 0
	b.position = 0
}

// Clone allocates a new, independently owned Buffer containing a copy
// of src's used bytes. This is sio_buffer_copy from the original
// source (SPEC_FULL.md §7), not named in spec.md's external interface
// list but present throughout buf.h/buf.c.
func (b *Buffer) Clone() (*Buffer, error) {
	dst, err := CreateEx(b.size, b.strategy, b.factor)
	if err != nil {
		return nil, err
	}
	if _, err := dst.Write(b.data[:b.size]); err != nil {
		return nil, err
	}
	dst.position = 0
	return dst, nil
}

// Destroy releases the buffer's resources. It is safe to call once;
// calling it again is a caller error the buffer does not defend
// against (ownership is linear by convention, not runtime-checked).
func (b *Buffer) Destroy() error {
	if b.mmapCloser != nil {
		err := b.mmapCloser()
		b.mmapCloser = nil
		b.data = nil
		return err
	}
	b.data = nil
	return nil
}
