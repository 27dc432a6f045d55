package buffer

import (
	"bytes"
	"testing"

	"github.com/xerra-oss/go-sio/pkg/errkind"
)

func TestBufferIntegerRoundTrip(t *testing.T) {
	b, err := Create(0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer b.Destroy()

	if err := b.WriteU8(0x42); err != nil {
		t.Fatalf("WriteU8: %v", err)
	}
	if err := b.WriteU16(0xABCD); err != nil {
		t.Fatalf("WriteU16: %v", err)
	}
	if err := b.WriteU32(0x12345678); err != nil {
		t.Fatalf("WriteU32: %v", err)
	}
	if err := b.WriteU64(0x0123456789ABCDEF); err != nil {
		t.Fatalf("WriteU64: %v", err)
	}

	if err := b.Seek(0); err != nil {
		t.Fatalf("Seek: %v", err)
	}

	u8, err := b.ReadU8()
	if err != nil || u8 != 0x42 {
		t.Fatalf("ReadU8 = %#x, %v; want 0x42, nil", u8, err)
	}
	u16, err := b.ReadU16()
	if err != nil || u16 != 0xABCD {
		t.Fatalf("ReadU16 = %#x, %v; want 0xABCD, nil", u16, err)
	}
	u32, err := b.ReadU32()
	if err != nil || u32 != 0x12345678 {
		t.Fatalf("ReadU32 = %#x, %v; want 0x12345678, nil", u32, err)
	}
	u64, err := b.ReadU64()
	if err != nil || u64 != 0x0123456789ABCDEF {
		t.Fatalf("ReadU64 = %#x, %v; want 0x0123456789ABCDEF, nil", u64, err)
	}
}

func TestBufferWriteReadRoundTrip(t *testing.T) {
	b, err := Create(8)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer b.Destroy()

	want := []byte("Hello, SIO!")
	n, err := b.Write(want)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != len(want) {
		t.Fatalf("Write returned %d, want %d", n, len(want))
	}

	if err := b.Seek(0); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	got := make([]byte, len(want))
	n, err = b.Read(got)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != len(want) || !bytes.Equal(got, want) {
		t.Fatalf("Read = %q (%d bytes), want %q", got, n, want)
	}

	if _, err := b.Read(got); !errkind.Is(err, errkind.EndOfStream) {
		t.Fatalf("Read past end = %v, want EndOfStream", err)
	}
}

func TestGrowthStrategies(t *testing.T) {
	tests := []struct {
		name     string
		strategy GrowthStrategy
		factor   uint64
		initial  uint64
		needed   uint64
		wantMin  uint64
	}{
		{name: "double", strategy: Double, initial: 16, needed: 100, wantMin: 100},
		{name: "linear", strategy: Linear, factor: 32, initial: 16, needed: 100, wantMin: 100},
		{name: "optimal small", strategy: Optimal, initial: 16, needed: 1000, wantMin: 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := CreateEx(tt.initial, tt.strategy, tt.factor)
			if err != nil {
				t.Fatalf("CreateEx: %v", err)
			}
			defer b.Destroy()
			if err := b.EnsureCapacity(tt.needed); err != nil {
				t.Fatalf("EnsureCapacity: %v", err)
			}
			if b.Capacity() < tt.wantMin {
				t.Errorf("Capacity() = %d, want >= %d", b.Capacity(), tt.wantMin)
			}
			if b.Capacity() < b.Size() {
				t.Errorf("growth monotonicity violated: capacity %d < size %d", b.Capacity(), b.Size())
			}
		})
	}
}

func TestFixedStrategyRejectsGrowth(t *testing.T) {
	b, err := CreateEx(8, Fixed, 0)
	if err != nil {
		t.Fatalf("CreateEx: %v", err)
	}
	defer b.Destroy()

	_, err = b.Write(make([]byte, 64))
	if !errkind.Is(err, errkind.BufferTooSmall) {
		t.Fatalf("Write beyond fixed capacity = %v, want BufferTooSmall", err)
	}
}

func TestSeekToSizeIsEndOfStream(t *testing.T) {
	b, err := Create(16)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer b.Destroy()

	if _, err := b.Write([]byte("abc")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := b.Seek(b.Size()); err != nil {
		t.Fatalf("Seek to size: %v", err)
	}
	if !b.AtEnd() {
		t.Error("AtEnd() = false after seeking to size")
	}
}

func TestTruncateToCurrentSizeIsNoop(t *testing.T) {
	b, err := Create(16)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer b.Destroy()
	if _, err := b.Write([]byte("abcdef")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	size := b.Size()
	if err := b.Truncate(size); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	if b.Size() != size {
		t.Errorf("Size changed after truncating to current size: %d != %d", b.Size(), size)
	}
}

func TestClone(t *testing.T) {
	b, err := Create(16)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer b.Destroy()
	if _, err := b.Write([]byte("payload")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	clone, err := b.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	defer clone.Destroy()

	if !bytes.Equal(clone.Data(), b.Data()) {
		t.Errorf("Clone data = %q, want %q", clone.Data(), b.Data())
	}
	if _, err := clone.Write([]byte("!")); err != nil {
		t.Fatalf("writing to clone should not affect source: %v", err)
	}
	if bytes.Equal(clone.Data(), b.Data()) {
		t.Error("Clone shares storage with source")
	}
}
