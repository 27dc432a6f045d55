package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xerra-oss/go-sio/pkg/errkind"
	"github.com/xerra-oss/go-sio/pkg/stream"
)

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roundtrip.txt")

	w, err := Open(path, stream.FlagWrite|stream.FlagCreate|stream.FlagTruncate, DefaultMode)
	if err != nil {
		t.Fatalf("Open for write: %v", err)
	}
	payload := []byte("Hello, SIO!")
	n, err := stream.Write(w, payload, stream.DoAll)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != len(payload) {
		t.Fatalf("Write returned %d, want %d", n, len(payload))
	}
	if err := stream.Close(w); err != nil {
		t.Fatalf("Close writer: %v", err)
	}

	r, err := Open(path, stream.FlagRead, 0)
	if err != nil {
		t.Fatalf("Open for read: %v", err)
	}
	defer stream.Close(r)

	buf := make([]byte, 128)
	n, err = stream.Read(r, buf, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != len(payload) {
		t.Fatalf("Read returned %d, want %d", n, len(payload))
	}
	if string(buf[:n]) != string(payload) {
		t.Fatalf("Read = %q, want %q", buf[:n], payload)
	}

	if _, err := stream.Read(r, buf, 0); !errkind.Is(err, errkind.EndOfStream) {
		t.Fatalf("Read past end = %v, want EndOfStream", err)
	}
}

func TestSeekAndTell(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seek.txt")
	s, err := Open(path, stream.FlagRead|stream.FlagWrite|stream.FlagCreate|stream.FlagTruncate, DefaultMode)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer stream.Close(s)

	if _, err := stream.Write(s, []byte("0123456789"), stream.DoAll); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := stream.Seek(s, stream.SeekSet, 3); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	pos, err := stream.Tell(s)
	if err != nil {
		t.Fatalf("Tell: %v", err)
	}
	if pos != 3 {
		t.Fatalf("Tell() = %d, want 3", pos)
	}
}

func TestTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "truncate.txt")
	s, err := Open(path, stream.FlagRead|stream.FlagWrite|stream.FlagCreate|stream.FlagTruncate, DefaultMode)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer stream.Close(s)

	if _, err := stream.Write(s, []byte("abcdefghij"), stream.DoAll); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := stream.Truncate(s, 4); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	size, err := stream.GetSize(s)
	if err != nil {
		t.Fatalf("GetSize: %v", err)
	}
	if size != 4 {
		t.Fatalf("GetSize() = %d, want 4", size)
	}
}

func TestOpenMissingFileIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.txt")
	if _, err := Open(path, stream.FlagRead, 0); err == nil {
		t.Fatal("Open of missing file succeeded, want error")
	}
}

func TestLockAndUnlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock.txt")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	s, err := Open(path, stream.FlagRead|stream.FlagWrite, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer stream.Close(s)

	region := LockRegion{Offset: 0, Len: 0, Exclusive: true, Wait: false}
	if err := Lock(s, region); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := Unlock(s, region); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
}
