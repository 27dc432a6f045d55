//go:build !linux && !darwin && !windows

package socket

import (
	"fmt"
	"net"

	"github.com/xerra-oss/go-sio/pkg/addr"
	"github.com/xerra-oss/go-sio/pkg/errkind"
	"github.com/xerra-oss/go-sio/pkg/stream"
)

// otherSocket is a best-effort net.Conn/net.PacketConn-backed fallback
// for platforms outside the POSIX-like / Win32-like families spec.md
// §1 scopes; it has no raw-fd access, so GetOption(TCPInfo) and
// WrapNetConn's fd extraction are unavailable here.
type otherSocket struct {
	conn net.Conn
	pc   net.PacketConn
	peer net.Addr
}

func openNative(address addr.Address, datagram bool, flags stream.Flags) (stream.Ops, stream.Kind, error) {
	network := "tcp"
	if datagram {
		network = "udp"
	}
	if address.Family == addr.Unix {
		network = "unix"
		if datagram {
			network = "unixgram"
		}
	}

	if flags.Has(stream.FlagServer) {
		if datagram {
			pc, err := net.ListenPacket(network, address.Format())
			if err != nil {
				return nil, 0, errkind.New(errkind.Network, err)
			}
			return &otherSocket{pc: pc}, stream.KindUDPPseudoSocket, nil
		}
		return nil, 0, errkind.New(errkind.Unsupported, fmt.Errorf("socket: listening stream sockets need Accept support not implemented on this fallback"))
	}

	if datagram {
		conn, err := net.Dial(network, address.Format())
		if err != nil {
			return nil, 0, errkind.New(errkind.Network, err)
		}
		return &otherSocket{conn: conn}, stream.KindUDPPseudoSocket, nil
	}
	conn, err := net.Dial(network, address.Format())
	if err != nil {
		return nil, 0, errkind.New(errkind.Network, err)
	}
	kind := stream.KindTCPSocket
	if address.Family == addr.Unix {
		kind = stream.KindUnixSocket
	}
	return &otherSocket{conn: conn}, kind, nil
}

func (s *otherSocket) accept() (stream.Ops, addr.Address, error) {
	return nil, addr.Address{}, errkind.New(errkind.Unsupported, fmt.Errorf("socket: Accept unsupported on this fallback"))
}

func (s *otherSocket) Close() error {
	var err error
	if s.conn != nil {
		err = s.conn.Close()
	} else {
		err = s.pc.Close()
	}
	if err != nil {
		return errkind.New(errkind.IO, err)
	}
	return nil
}

func (s *otherSocket) Read(p []byte, flags stream.OpFlags) (int, error) {
	if s.conn != nil {
		n, err := s.conn.Read(p)
		if err != nil {
			return n, errkind.New(errkind.IO, err)
		}
		return n, nil
	}
	n, from, err := s.pc.ReadFrom(p)
	if err != nil {
		return n, errkind.New(errkind.IO, err)
	}
	if from != nil {
		s.peer = from
	}
	return n, nil
}

func (s *otherSocket) Write(p []byte, flags stream.OpFlags) (int, error) {
	if s.conn != nil {
		n, err := s.conn.Write(p)
		if err != nil {
			return n, errkind.New(errkind.IO, err)
		}
		return n, nil
	}
	if s.peer == nil {
		return 0, errkind.New(errkind.NetNotConnected, fmt.Errorf("socket: datagram write with no known peer"))
	}
	n, err := s.pc.WriteTo(p, s.peer)
	if err != nil {
		return n, errkind.New(errkind.IO, err)
	}
	return n, nil
}

func (s *otherSocket) Flush() error { return nil }

func (s *otherSocket) GetOption(opt stream.Option) (any, error) {
	return nil, errkind.New(errkind.Unsupported, nil)
}

func (s *otherSocket) SetOption(opt stream.Option, value any) error {
	return errkind.New(errkind.Unsupported, nil)
}

func wrapFd(conn net.Conn, fd uintptr) (stream.Ops, stream.Kind) {
	return &otherSocket{conn: conn}, stream.KindTCPSocket
}
