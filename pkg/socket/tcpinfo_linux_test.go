//go:build linux

package socket

import (
	"testing"
	"unsafe"
)

func TestRawTCPInfoUnpack(t *testing.T) {
	raw := rawTCPInfo{
		state:         1,
		caState:       0,
		retransmits:   2,
		bitfield1:     0b101, // DeliveryRateAppLimited=1, FastOpenClientFail=2
		rtt:           5000,
		rttvar:        1200,
		sndCWnd:       10,
		sndSSThresh:   2147483647,
		rcvSpace:      14600,
		totalRetrans:  3,
		pacingRate:    125000000,
		bytesAcked:    4096,
		bytesReceived: 2048,
		segsOut:       40,
		segsIn:        38,
		minRTT:        4800,
	}

	info := raw.unpack()

	if info.State != 1 || info.Retransmits != 2 {
		t.Fatalf("unpack() basic fields = %+v", info)
	}
	if !info.DeliveryRateAppLimited {
		t.Error("DeliveryRateAppLimited = false, want true from bitfield1 bit 0")
	}
	if info.RTT != 5000 || info.RTTVar != 1200 {
		t.Errorf("RTT/RTTVar = %d/%d, want 5000/1200", info.RTT, info.RTTVar)
	}
	if info.BytesAcked != 4096 || info.BytesReceived != 2048 {
		t.Errorf("BytesAcked/BytesReceived = %d/%d, want 4096/2048", info.BytesAcked, info.BytesReceived)
	}

	// FastOpenClientFail is gated on kernel.Since(5, 5, 0); this test
	// environment's kernel determines whether it's populated, so only
	// check internal consistency rather than an exact value.
	if info.FastOpenClientFailKnown && info.FastOpenClientFail != 2 {
		t.Errorf("FastOpenClientFail = %d, want 2 when known", info.FastOpenClientFail)
	}
}

func TestRawTCPInfoSizeMatchesKernelLayout(t *testing.T) {
	if int(sizeOfRawTCPInfo) < 72 {
		t.Fatalf("sizeOfRawTCPInfo = %d, suspiciously small for tcp_info", sizeOfRawTCPInfo)
	}
	if got := int(unsafe.Sizeof(rawTCPInfo{})); got != int(sizeOfRawTCPInfo) {
		t.Fatalf("unsafe.Sizeof(rawTCPInfo{}) = %d, want sizeOfRawTCPInfo = %d", got, sizeOfRawTCPInfo)
	}
}
