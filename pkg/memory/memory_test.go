package memory

import (
	"testing"

	"github.com/xerra-oss/go-sio/pkg/errkind"
	"github.com/xerra-oss/go-sio/pkg/stream"
)

func TestBufferStreamWriteReadRoundTrip(t *testing.T) {
	s, err := OpenBuffer(16, stream.FlagRead|stream.FlagWrite)
	if err != nil {
		t.Fatalf("OpenBuffer: %v", err)
	}
	defer stream.Close(s)

	if _, err := stream.Write(s, []byte("hello, sio"), stream.DoAll); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := stream.Seek(s, stream.SeekSet, 0); err != nil {
		t.Fatalf("Seek: %v", err)
	}

	buf := make([]byte, 10)
	n, err := stream.Read(s, buf, stream.DoAll)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(buf[:n]) != "hello, sio" {
		t.Fatalf("Read = %q, want %q", buf[:n], "hello, sio")
	}
}

func TestBufferStreamTruncateGrowZeroFills(t *testing.T) {
	s, err := OpenBuffer(4, stream.FlagRead|stream.FlagWrite)
	if err != nil {
		t.Fatalf("OpenBuffer: %v", err)
	}
	defer stream.Close(s)

	if err := stream.Truncate(s, 8); err != nil {
		t.Fatalf("Truncate grow: %v", err)
	}
	size, err := stream.GetSize(s)
	if err != nil {
		t.Fatalf("GetSize: %v", err)
	}
	if size != 8 {
		t.Fatalf("GetSize = %d, want 8", size)
	}

	buf := make([]byte, 8)
	if _, err := stream.Seek(s, stream.SeekSet, 0); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	n, err := stream.Read(s, buf, stream.DoAll)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i := 0; i < n; i++ {
		if buf[i] != 0 {
			t.Fatalf("byte %d = %d, want 0 (zero-filled grow region)", i, buf[i])
		}
	}
}

func TestBufferStreamShrinkBelowHalfCapacityShrinksToFit(t *testing.T) {
	s, err := OpenBuffer(64, stream.FlagRead|stream.FlagWrite)
	if err != nil {
		t.Fatalf("OpenBuffer: %v", err)
	}
	defer stream.Close(s)

	if _, err := stream.Write(s, make([]byte, 64), stream.DoAll); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := stream.Truncate(s, 8); err != nil {
		t.Fatalf("Truncate shrink: %v", err)
	}

	v, err := stream.GetOption(s, stream.OptBufferSize)
	if err != nil {
		t.Fatalf("GetOption OptBufferSize: %v", err)
	}
	capacity, _ := v.(uint64)
	if capacity >= 64 {
		t.Fatalf("capacity after shrink-to-fit = %d, want less than original 64", capacity)
	}
}

func TestRawSpanReadWriteWithinBounds(t *testing.T) {
	span := make([]byte, 8)
	s := OpenRawSpan(span, stream.FlagRead|stream.FlagWrite)
	defer stream.Close(s)

	n, err := stream.Write(s, []byte("abcd"), stream.DoAll)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 4 {
		t.Fatalf("Write = %d, want 4", n)
	}

	if _, err := stream.Seek(s, stream.SeekSet, 0); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	buf := make([]byte, 8)
	n, err = stream.Read(s, buf, stream.DoAllNonBlock)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(buf[:n]) != "abcd\x00\x00\x00\x00" {
		t.Fatalf("Read = %q", buf[:n])
	}
}

func TestRawSpanWriteBeyondEndFails(t *testing.T) {
	span := make([]byte, 4)
	s := OpenRawSpan(span, stream.FlagWrite)
	defer stream.Close(s)

	if _, err := stream.Seek(s, stream.SeekSet, 4); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if _, err := stream.Write(s, []byte("x"), 0); !errkind.Is(err, errkind.BufferTooSmall) {
		t.Fatalf("Write at end = %v, want BufferTooSmall", err)
	}
}

func TestRawSpanEofAtEnd(t *testing.T) {
	span := []byte("hi")
	s := OpenRawSpan(span, stream.FlagRead)
	defer stream.Close(s)

	buf := make([]byte, 2)
	if _, err := stream.Read(s, buf, stream.DoAll); err != nil {
		t.Fatalf("Read: %v", err)
	}
	eof, err := stream.Eof(s)
	if err != nil {
		t.Fatalf("Eof: %v", err)
	}
	if !eof {
		t.Fatal("Eof = false at span end, want true")
	}
}

func TestRawSpanCloseForgetsSpanWithoutFreeing(t *testing.T) {
	span := []byte("data")
	s := OpenRawSpan(span, stream.FlagRead)
	if err := stream.Close(s); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if string(span) != "data" {
		t.Fatalf("caller's span mutated by Close: %q", span)
	}
}
