package buffer

import (
	"encoding/binary"
	"fmt"

	"github.com/xerra-oss/go-sio/pkg/errkind"
)

// Integer readers/writers are host-byte-order memory copies; byte
// order portability is a higher-layer concern per spec.md §4.C. We use
// the native endianness of the running process rather than hard-coding
// little-endian, matching "host-byte-order memory copies" literally.
var hostOrder = binary.NativeEndian

func (b *Buffer) WriteU8(v uint8) error {
	_, err := b.Write([]byte{v})
	return err
}

func (b *Buffer) WriteU16(v uint16) error {
	var tmp [2]byte
	hostOrder.PutUint16(tmp[:], v)
	_, err := b.Write(tmp[:])
	return err
}

func (b *Buffer) WriteU32(v uint32) error {
	var tmp [4]byte
	hostOrder.PutUint32(tmp[:], v)
	_, err := b.Write(tmp[:])
	return err
}

func (b *Buffer) WriteU64(v uint64) error {
	var tmp [8]byte
	hostOrder.PutUint64(tmp[:], v)
	_, err := b.Write(tmp[:])
	return err
}

func (b *Buffer) ReadU8() (uint8, error) {
	var tmp [1]byte
	if err := b.readExact(tmp[:]); err != nil {
		return 0, err
	}
	return tmp[0], nil
}

func (b *Buffer) ReadU16() (uint16, error) {
	var tmp [2]byte
	if err := b.readExact(tmp[:]); err != nil {
		return 0, err
	}
	return hostOrder.Uint16(tmp[:]), nil
}

func (b *Buffer) ReadU32() (uint32, error) {
	var tmp [4]byte
	if err := b.readExact(tmp[:]); err != nil {
		return 0, err
	}
	return hostOrder.Uint32(tmp[:]), nil
}

func (b *Buffer) ReadU64() (uint64, error) {
	var tmp [8]byte
	if err := b.readExact(tmp[:]); err != nil {
		return 0, err
	}
	return hostOrder.Uint64(tmp[:]), nil
}

// readExact reads exactly len(p) bytes or fails, since integer readers
// have a fixed known width and a short read here is a genuine error
// rather than the short-read-is-success case of the general Read.
func (b *Buffer) readExact(p []byte) error {
	n, err := b.Read(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return errkind.New(errkind.BufferTooSmall, fmt.Errorf("buffer: short read (%d of %d bytes) decoding integer", n, len(p)))
	}
	return nil
}
