//go:build darwin

package socket

import (
	"fmt"

	"github.com/xerra-oss/go-sio/pkg/errkind"
)

// GetTCPInfo's wire format is Linux-specific (TCP_INFO's tcp_info
// struct layout is not portable to Darwin's TCP_CONNECTION_INFO); this
// backend does not translate between the two, matching spec.md §1's
// POSIX-like/Win32-like scope without claiming cross-BSD tcp_info
// parity.
func GetTCPInfo(fd int) (*TCPInfo, error) {
	return nil, errkind.New(errkind.Unsupported, fmt.Errorf("socket: TCP_INFO is not available on this platform"))
}

// TCPInfo is declared here so GetOption(OptTCPInfo) has a stable
// return type across POSIX platforms even where it is unsupported.
type TCPInfo struct{}
