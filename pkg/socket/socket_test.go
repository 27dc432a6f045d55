package socket

import (
	"testing"
	"time"

	"github.com/xerra-oss/go-sio/pkg/addr"
	"github.com/xerra-oss/go-sio/pkg/errkind"
	"github.com/xerra-oss/go-sio/pkg/stream"
)

func TestUDPSendReceiveRoundTrip(t *testing.T) {
	serverAddr, err := addr.Parse("127.0.0.1:9877")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	server, err := Open(serverAddr, UDP(stream.FlagRead|stream.FlagWrite|stream.FlagServer))
	if err != nil {
		t.Fatalf("Open server: %v", err)
	}
	defer stream.Close(server)

	client, err := Open(serverAddr, UDP(stream.FlagRead|stream.FlagWrite))
	if err != nil {
		t.Fatalf("Open client: %v", err)
	}
	defer stream.Close(client)

	payload := []byte("ping")
	if _, err := stream.Write(client, payload, stream.DoAll); err != nil {
		t.Fatalf("client Write: %v", err)
	}

	buf := make([]byte, 64)
	var n int
	deadline := time.Now().Add(2 * time.Second)
	for {
		n, err = stream.Read(server, buf, 0)
		if err == nil {
			break
		}
		if errkind.Is(err, errkind.WouldBlock) && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
			continue
		}
		t.Fatalf("server Read: %v", err)
	}
	if string(buf[:n]) != "ping" {
		t.Fatalf("server received %q, want \"ping\"", buf[:n])
	}
}

func TestUDPServerRepliesToLastSender(t *testing.T) {
	serverAddr, err := addr.Parse("127.0.0.1:9878")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	server, err := Open(serverAddr, UDP(stream.FlagRead|stream.FlagWrite|stream.FlagServer))
	if err != nil {
		t.Fatalf("Open server: %v", err)
	}
	defer stream.Close(server)

	client, err := Open(serverAddr, UDP(stream.FlagRead|stream.FlagWrite))
	if err != nil {
		t.Fatalf("Open client: %v", err)
	}
	defer stream.Close(client)

	deadline := time.Now().Add(2 * time.Second)
	writeRetry := func(s *stream.Stream, payload []byte) {
		for {
			_, err := stream.Write(s, payload, stream.DoAll)
			if err == nil {
				return
			}
			if errkind.Is(err, errkind.WouldBlock) && time.Now().Before(deadline) {
				time.Sleep(time.Millisecond)
				continue
			}
			t.Fatalf("Write: %v", err)
		}
	}
	readRetry := func(s *stream.Stream, buf []byte) int {
		for {
			n, err := stream.Read(s, buf, 0)
			if err == nil {
				return n
			}
			if errkind.Is(err, errkind.WouldBlock) && time.Now().Before(deadline) {
				time.Sleep(time.Millisecond)
				continue
			}
			t.Fatalf("Read: %v", err)
			return 0
		}
	}

	writeRetry(client, []byte("echo"))

	buf := make([]byte, 64)
	n := readRetry(server, buf)

	// The server had no fixed peer at open time; Write must now reply
	// to whoever it just read from.
	writeRetry(server, buf[:n])

	reply := make([]byte, 64)
	n = readRetry(client, reply)
	if string(reply[:n]) != "echo" {
		t.Fatalf("client received %q, want \"echo\"", reply[:n])
	}
}

func TestUDPServerWriteBeforeAnyReadIsNotConnected(t *testing.T) {
	serverAddr, err := addr.Parse("127.0.0.1:9879")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	server, err := Open(serverAddr, UDP(stream.FlagRead|stream.FlagWrite|stream.FlagServer))
	if err != nil {
		t.Fatalf("Open server: %v", err)
	}
	defer stream.Close(server)

	if _, err := stream.Write(server, []byte("x"), 0); !errkind.Is(err, errkind.NetNotConnected) {
		t.Fatalf("Write with no known peer = %v, want NetNotConnected", err)
	}
}

func TestTCPKindTag(t *testing.T) {
	flags := TCP(stream.FlagRead | stream.FlagWrite)
	if flags&flagTCP == 0 {
		t.Fatal("TCP() did not set the stream-socket bit")
	}
	if UDP(flags)&flagTCP != 0 {
		t.Fatal("UDP() did not clear the stream-socket bit")
	}
}
