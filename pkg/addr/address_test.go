package addr

import "testing"

func TestParseFormatRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		addr string
	}{
		{name: "ipv4", addr: "192.168.1.10:8080"},
		{name: "ipv4 loopback", addr: "127.0.0.1:9877"},
		{name: "ipv6", addr: "[2001:db8::1]:443"},
		{name: "ipv6 loopback", addr: "[::1]:22"},
		{name: "unix", addr: "unix:/var/run/sio.sock"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Parse(tt.addr)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.addr, err)
			}
			if got := a.Format(); got != tt.addr {
				t.Errorf("round-trip = %q, want %q", got, tt.addr)
			}
		})
	}
}

func TestLoopbackAndAny(t *testing.T) {
	lb, err := Loopback(INET, 53)
	if err != nil {
		t.Fatalf("Loopback: %v", err)
	}
	if !lb.IsLoopback() {
		t.Error("Loopback address did not report IsLoopback")
	}

	anyAddr, err := Any(INET6, 0)
	if err != nil {
		t.Fatalf("Any: %v", err)
	}
	if anyAddr.Format() != "[::]:0" {
		t.Errorf("Any(INET6, 0) = %q, want [::]:0", anyAddr.Format())
	}
}

func TestEqualsMask(t *testing.T) {
	a, _ := Parse("10.0.0.1:1000")
	b, _ := Parse("10.0.0.1:2000")

	if a.Equals(b, MaskAll) {
		t.Error("addresses with different ports should not be equal under MaskAll")
	}
	if !a.Equals(b, MaskFamily|MaskIP) {
		t.Error("addresses differing only by port should be equal when port is excluded from the mask")
	}
}

func TestParseRejectsMissingPort(t *testing.T) {
	if _, err := Parse("10.0.0.1"); err == nil {
		t.Error("Parse accepted an address with no port")
	}
}
