//go:build linux

package socket

import (
	"syscall"
	"unsafe"

	"github.com/xerra-oss/go-sio/pkg/errkind"
	"github.com/xerra-oss/go-sio/pkg/kernel"
)

// rawTCPInfo has identical memory layout to the Linux kernel's
// tcp_info struct as of kernel 5.17.0. bitfield0/bitfield1 capture the
// four packed bitfields.
type rawTCPInfo struct {
	state           uint8
	caState         uint8
	retransmits     uint8
	probes          uint8
	backoff         uint8
	options         uint8
	bitfield0       uint8
	bitfield1       uint8
	rto             uint32
	ato             uint32
	sndMSS          uint32
	rcvMSS          uint32
	unacked         uint32
	sacked          uint32
	lost            uint32
	retrans         uint32
	fackets         uint32
	lastDataSent    uint32
	lastAckSent     uint32
	lastDataRecv    uint32
	lastAckRecv     uint32
	pmtu            uint32
	rcvSSThresh     uint32
	rtt             uint32
	rttvar          uint32
	sndSSThresh     uint32
	sndCWnd         uint32
	advMSS          uint32
	reordering      uint32
	rcvRTT          uint32
	rcvSpace        uint32
	totalRetrans    uint32
	pacingRate      uint64
	maxPacingRate   uint64
	bytesAcked      uint64
	bytesReceived   uint64
	segsOut         uint32
	segsIn          uint32
	notsentBytes    uint32
	minRTT          uint32
	dataSegsIn      uint32
	dataSegsOut     uint32
	deliveryRate    uint64
	busyTime        uint64
	rwndLimited     uint64
	sndbufLimited   uint64
	delivered       uint32
	deliveredCE     uint32
	bytesSent       uint64
	bytesRetrans    uint64
	dsackDups       uint32
	reordSeen       uint32
	rcvOOOPack      uint32
	sndWnd          uint32
}

const sizeOfRawTCPInfo = 232

// TCPInfo is a gopher-style unpacked view of Linux's tcp_info, exposed
// through GetOption(stream.OptTCPInfo) for TCP socket streams.
type TCPInfo struct {
	State                  uint8
	CAState                uint8
	Retransmits            uint8
	RTT                    uint32
	RTTVar                 uint32
	SndCWnd                uint32
	SndSSThresh            uint32
	RcvSpace               uint32
	TotalRetrans           uint32
	PacingRate             uint64
	BytesAcked             uint64
	BytesReceived          uint64
	SegsOut                uint32
	SegsIn                 uint32
	MinRTT                 uint32
	DeliveryRateAppLimited  bool
	FastOpenClientFailKnown bool
	FastOpenClientFail      uint8
}

func (packed *rawTCPInfo) unpack() *TCPInfo {
	info := &TCPInfo{
		State:                  packed.state,
		CAState:                packed.caState,
		Retransmits:            packed.retransmits,
		RTT:                    packed.rtt,
		RTTVar:                 packed.rttvar,
		SndCWnd:                packed.sndCWnd,
		SndSSThresh:            packed.sndSSThresh,
		RcvSpace:               packed.rcvSpace,
		TotalRetrans:           packed.totalRetrans,
		PacingRate:             packed.pacingRate,
		BytesAcked:             packed.bytesAcked,
		BytesReceived:          packed.bytesReceived,
		SegsOut:                packed.segsOut,
		SegsIn:                 packed.segsIn,
		MinRTT:                 packed.minRTT,
		DeliveryRateAppLimited: packed.bitfield1&1 == 1,
	}
	if kernel.Since(5, 5, 0) {
		info.FastOpenClientFailKnown = true
		info.FastOpenClientFail = (packed.bitfield1 >> 1) & 0x3
	}
	return info
}

// GetTCPInfo calls getsockopt(2) with TCP_INFO and unpacks the result,
// adapted from the teacher's raw Syscall6-based implementation.
func GetTCPInfo(fd int) (*TCPInfo, error) {
	var value rawTCPInfo
	length := uint32(sizeOfRawTCPInfo)

	_, _, errno := syscall.Syscall6(
		syscall.SYS_GETSOCKOPT,
		uintptr(fd),
		uintptr(syscall.SOL_TCP),
		uintptr(syscall.TCP_INFO),
		uintptr(unsafe.Pointer(&value)),
		uintptr(unsafe.Pointer(&length)),
		0,
	)
	if errno != 0 {
		return nil, errkind.New(errkind.FromNativePOSIX(errno), errno)
	}
	return value.unpack(), nil
}
