package buffer

import (
	"testing"

	"github.com/xerra-oss/go-sio/pkg/errkind"
)

func TestPoolAcquireReleaseAccounting(t *testing.T) {
	p, err := NewPool(4, 1024)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer p.Destroy()

	var indices []int
	for i := 0; i < 4; i++ {
		idx, buf, err := p.Acquire()
		if err != nil {
			t.Fatalf("Acquire #%d: %v", i, err)
		}
		if buf == nil {
			t.Fatalf("Acquire #%d returned nil buffer", i)
		}
		indices = append(indices, idx)
	}
	if p.InUse() != 4 {
		t.Fatalf("InUse() = %d, want 4", p.InUse())
	}

	if _, _, err := p.Acquire(); !errkind.Is(err, errkind.Busy) {
		t.Fatalf("5th Acquire = %v, want Busy", err)
	}

	if err := p.Release(indices[0]); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if p.InUse() != 3 {
		t.Fatalf("InUse() after release = %d, want 3", p.InUse())
	}

	idx, buf, err := p.Acquire()
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	if idx != indices[0] {
		t.Fatalf("Acquire after release returned index %d, want freshly freed %d", idx, indices[0])
	}
	if buf.Size() != 0 {
		t.Errorf("re-acquired buffer not cleared: size = %d", buf.Size())
	}

	if err := p.Release(indices[0]); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := p.Release(indices[0]); !errkind.Is(err, errkind.FileClosed) {
		t.Fatalf("double release = %v, want FileClosed", err)
	}
}

func TestPoolResizeBelowInUseIsBusy(t *testing.T) {
	p, err := NewPool(4, 64)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer p.Destroy()

	if _, _, err := p.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, _, err := p.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if err := p.Resize(1); !errkind.Is(err, errkind.Busy) {
		t.Fatalf("Resize below in-use count = %v, want Busy", err)
	}
	if err := p.Resize(8); err != nil {
		t.Fatalf("Resize up: %v", err)
	}
	if p.Count() != 8 {
		t.Fatalf("Count() = %d, want 8", p.Count())
	}
}
