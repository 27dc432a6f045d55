package timer

import (
	"testing"
	"time"

	"github.com/xerra-oss/go-sio/pkg/errkind"
	"github.com/xerra-oss/go-sio/pkg/stream"
)

func TestPeriodicTimerFiresRepeatedly(t *testing.T) {
	s, err := Open(100, false, stream.FlagRead|stream.FlagWrite)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer stream.Close(s)

	buf := make([]byte, 8)
	for i := 0; i < 3; i++ {
		n, err := stream.Read(s, buf, 0)
		if err != nil {
			t.Fatalf("Read #%d: %v", i, err)
		}
		if n < 1 {
			t.Fatalf("Read #%d returned %d bytes, want at least 1", i, n)
		}
	}

	if _, err := stream.Write(s, EncodeReprogram(500, nil), stream.DoAll); err != nil {
		t.Fatalf("reprogram Write: %v", err)
	}

	time.Sleep(250 * time.Millisecond)
	if _, err := stream.Read(s, buf, stream.OpDontWait); !errkind.Is(err, errkind.WouldBlock) {
		t.Fatalf("non-blocking Read at 250ms into a 500ms period = %v, want WouldBlock", err)
	}
}

func TestOneshotTimerFiresOnce(t *testing.T) {
	s, err := Open(50, true, stream.FlagRead|stream.FlagWrite)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer stream.Close(s)

	buf := make([]byte, 8)
	if _, err := stream.Read(s, buf, 0); err != nil {
		t.Fatalf("Read: %v", err)
	}

	v, err := stream.GetOption(s, stream.OptTimerOneshot)
	if err != nil {
		t.Fatalf("GetOption: %v", err)
	}
	if oneshot, _ := v.(bool); !oneshot {
		t.Error("OptTimerOneshot = false, want true")
	}
}
