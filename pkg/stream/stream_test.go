package stream

import (
	"bytes"
	"testing"

	"github.com/xerra-oss/go-sio/pkg/errkind"
)

// chunkedOps simulates a backend that only ever moves a few bytes per
// call, to exercise the DOALL looping in Read/Write.
type chunkedOps struct {
	buf       []byte
	pos       int
	chunkSize int
	closed    bool
}

func (o *chunkedOps) Close() error {
	o.closed = true
	return nil
}

func (o *chunkedOps) Read(p []byte, flags OpFlags) (int, error) {
	if o.pos >= len(o.buf) {
		return 0, errkind.New(errkind.EndOfStream, nil)
	}
	n := o.chunkSize
	if n > len(p) {
		n = len(p)
	}
	if o.pos+n > len(o.buf) {
		n = len(o.buf) - o.pos
	}
	copy(p[:n], o.buf[o.pos:o.pos+n])
	o.pos += n
	return n, nil
}

func (o *chunkedOps) Write(p []byte, flags OpFlags) (int, error) {
	n := o.chunkSize
	if n > len(p) {
		n = len(p)
	}
	o.buf = append(o.buf, p[:n]...)
	return n, nil
}

func (o *chunkedOps) Flush() error { return nil }

func (o *chunkedOps) GetOption(opt Option) (any, error) {
	return nil, errkind.New(errkind.Unsupported, nil)
}

func (o *chunkedOps) SetOption(opt Option, value any) error {
	return errkind.New(errkind.Unsupported, nil)
}

func TestReadDoAllLoopsUntilFull(t *testing.T) {
	ops := &chunkedOps{buf: []byte("0123456789"), chunkSize: 3}
	s := New(KindCustom, ops, FlagRead)

	got := make([]byte, 10)
	n, err := Read(s, got, DoAll)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 10 || !bytes.Equal(got, ops.buf) {
		t.Fatalf("Read = %q (%d), want %q", got, n, ops.buf)
	}
}

func TestReadDoAllReturnsShortDataOnEOF(t *testing.T) {
	ops := &chunkedOps{buf: []byte("abc"), chunkSize: 2}
	s := New(KindCustom, ops, FlagRead)

	got := make([]byte, 10)
	n, err := Read(s, got, DoAll)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 3 || string(got[:3]) != "abc" {
		t.Fatalf("Read = %q (%d), want \"abc\" (3)", got[:n], n)
	}
}

func TestWriteDoAllLoopsUntilFull(t *testing.T) {
	ops := &chunkedOps{chunkSize: 4}
	s := New(KindCustom, ops, FlagWrite)

	want := []byte("the quick brown fox")
	n, err := Write(s, want, DoAll)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != len(want) || !bytes.Equal(ops.buf, want) {
		t.Fatalf("Write wrote %q (%d), want %q", ops.buf, n, want)
	}
}

func TestDoAllNonBlockStopsAfterOneCall(t *testing.T) {
	ops := &chunkedOps{buf: []byte("0123456789"), chunkSize: 3}
	s := New(KindCustom, ops, FlagRead)

	got := make([]byte, 10)
	n, err := Read(s, got, DoAll|DoAllNonBlock)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 3 {
		t.Fatalf("Read with DoAllNonBlock = %d bytes, want 3", n)
	}
}

func TestCloseIsIdempotentDefended(t *testing.T) {
	ops := &chunkedOps{}
	s := New(KindCustom, ops, FlagRead)

	if err := Close(s); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if !ops.closed {
		t.Fatal("backend Close was not invoked")
	}
	if err := Close(s); !errkind.Is(err, errkind.FileClosed) {
		t.Fatalf("second Close = %v, want FileClosed", err)
	}
}

func TestOperationsAfterCloseFail(t *testing.T) {
	ops := &chunkedOps{buf: []byte("x")}
	s := New(KindCustom, ops, FlagRead)
	_ = Close(s)

	if _, err := Read(s, make([]byte, 1), 0); !errkind.Is(err, errkind.FileClosed) {
		t.Fatalf("Read after close = %v, want FileClosed", err)
	}
}

func TestSeekUnsupportedOnNonSeekableBackend(t *testing.T) {
	ops := &chunkedOps{}
	s := New(KindCustom, ops, 0)
	if _, err := Seek(s, SeekSet, 0); !errkind.Is(err, errkind.Unsupported) {
		t.Fatalf("Seek on non-seekable = %v, want Unsupported", err)
	}
}

func TestReadvFallsBackToSerialReads(t *testing.T) {
	ops := &chunkedOps{buf: []byte("abcdefgh"), chunkSize: 8}
	s := New(KindCustom, ops, FlagRead)

	a := make(Iovec, 3)
	b := make(Iovec, 5)
	n, err := Readv(s, []Iovec{a, b}, DoAll)
	if err != nil {
		t.Fatalf("Readv: %v", err)
	}
	if n != 8 || string(a) != "abc" || string(b) != "defgh" {
		t.Fatalf("Readv = %d, a=%q b=%q", n, a, b)
	}
}

func TestWritevFallsBackToSerialWrites(t *testing.T) {
	ops := &chunkedOps{chunkSize: 64}
	s := New(KindCustom, ops, FlagWrite)

	n, err := Writev(s, []Iovec{[]byte("foo"), []byte("bar")}, DoAll)
	if err != nil {
		t.Fatalf("Writev: %v", err)
	}
	if n != 6 || string(ops.buf) != "foobar" {
		t.Fatalf("Writev wrote %q (%d)", ops.buf, n)
	}
}

func TestStandardStreamsAreSingletonsAndTyped(t *testing.T) {
	if Stdin() != Stdin() {
		t.Error("Stdin() is not a stable singleton")
	}
	if Stdout().Kind() != KindTerminal {
		t.Errorf("Stdout().Kind() = %v, want KindTerminal", Stdout().Kind())
	}
	if _, err := Write(Stdin(), []byte("x"), 0); !errkind.Is(err, errkind.Unsupported) {
		t.Fatalf("writing to Stdin = %v, want Unsupported", err)
	}
}

func TestStreamIDsAreDistinct(t *testing.T) {
	a := New(KindCustom, &chunkedOps{}, 0)
	b := New(KindCustom, &chunkedOps{}, 0)
	if a.ID() == b.ID() {
		t.Error("two streams share the same correlation ID")
	}
}
