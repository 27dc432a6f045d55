//go:build windows

package socket

import (
	"fmt"
	"net"
	"sync"

	"golang.org/x/sys/windows"

	"github.com/xerra-oss/go-sio/pkg/addr"
	"github.com/xerra-oss/go-sio/pkg/errkind"
	"github.com/xerra-oss/go-sio/pkg/stream"
)

type winSocket struct {
	mu       sync.Mutex
	fd       windows.Handle
	server   bool
	datagram bool
	flags    stream.Flags
	peer     windows.Sockaddr
	lastPeer windows.Sockaddr
	closed   bool
}

func sockaddrFor(a addr.Address) (windows.Sockaddr, int, error) {
	switch a.Family {
	case addr.INET:
		return &windows.SockaddrInet4{Port: int(a.Port), Addr: a.IP.As4()}, windows.AF_INET, nil
	case addr.INET6:
		return &windows.SockaddrInet6{Port: int(a.Port), Addr: a.IP.As16()}, windows.AF_INET6, nil
	default:
		return nil, 0, errkind.New(errkind.NetInvalidAddr, fmt.Errorf("socket: family %v not supported on Windows", a.Family))
	}
}

func translate(err error) error {
	if errno, ok := err.(windows.Errno); ok {
		return errkind.New(errkind.FromNativeWindows(errno), err)
	}
	return errkind.New(errkind.IO, err)
}

func openNative(address addr.Address, datagram bool, flags stream.Flags) (stream.Ops, stream.Kind, error) {
	sa, family, err := sockaddrFor(address)
	if err != nil {
		return nil, 0, err
	}
	typ := windows.SOCK_STREAM
	if datagram {
		typ = windows.SOCK_DGRAM
	}
	fd, err := windows.Socket(family, typ, 0)
	if err != nil {
		return nil, 0, translate(err)
	}

	s := &winSocket{fd: fd, server: flags.Has(stream.FlagServer), datagram: datagram, flags: flags}
	kind := stream.KindTCPSocket
	if datagram {
		kind = stream.KindUDPPseudoSocket
	}

	if s.server {
		opt := 1
		windows.SetsockoptInt(fd, windows.SOL_SOCKET, windows.SO_REUSEADDR, opt)
		if err := windows.Bind(fd, sa); err != nil {
			windows.Closesocket(fd)
			return nil, 0, translate(err)
		}
		if !datagram {
			if err := windows.Listen(fd, windows.SOMAXCONN); err != nil {
				windows.Closesocket(fd)
				return nil, 0, translate(err)
			}
		}
		return s, kind, nil
	}

	if !datagram {
		if err := windows.Connect(fd, sa); err != nil {
			windows.Closesocket(fd)
			return nil, 0, translate(err)
		}
		return s, kind, nil
	}

	s.peer = sa
	return s, kind, nil
}

func (s *winSocket) accept() (stream.Ops, addr.Address, error) {
	nfd, _, err := windows.Accept(s.fd)
	if err != nil {
		return nil, addr.Address{}, translate(err)
	}
	return &winSocket{fd: nfd, flags: s.flags}, addr.Address{}, nil
}

func (s *winSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errkind.New(errkind.FileClosed, nil)
	}
	s.closed = true
	if err := windows.Closesocket(s.fd); err != nil {
		return translate(err)
	}
	return nil
}

func (s *winSocket) Read(p []byte, flags stream.OpFlags) (int, error) {
	if s.datagram {
		n, from, err := windows.Recvfrom(s.fd, p, 0)
		if err != nil {
			return 0, translate(err)
		}
		if s.peer == nil && from != nil {
			s.lastPeer = from
		}
		return n, nil
	}
	n, err := windows.Recv(s.fd, p, 0)
	if err != nil {
		return 0, translate(err)
	}
	if n == 0 && len(p) > 0 {
		return 0, errkind.New(errkind.EndOfStream, nil)
	}
	return n, nil
}

func (s *winSocket) Write(p []byte, flags stream.OpFlags) (int, error) {
	if s.datagram {
		dest := s.peer
		if dest == nil {
			dest = s.lastPeer
		}
		if dest == nil {
			return 0, errkind.New(errkind.NetNotConnected, fmt.Errorf("socket: datagram write with no known peer"))
		}
		if err := windows.Sendto(s.fd, p, 0, dest); err != nil {
			return 0, translate(err)
		}
		return len(p), nil
	}
	n, err := windows.Send(s.fd, p, 0)
	if err != nil {
		return 0, translate(err)
	}
	return n, nil
}

func (s *winSocket) Flush() error { return nil }

// Readv/Writev use WSARecv/WSASend's scatter-gather buffer arrays for
// stream sockets; datagrams stage through one contiguous buffer since
// a datagram is always a single message (spec.md §4.F).
func (s *winSocket) Readv(iovs []stream.Iovec, flags stream.OpFlags) (int, error) {
	if s.datagram {
		total := 0
		for _, iov := range iovs {
			total += len(iov)
		}
		staging := make([]byte, total)
		n, err := s.Read(staging, flags)
		if err != nil {
			return 0, err
		}
		return scatter(staging[:n], iovs), nil
	}
	buffers := make([]windows.WSABuf, len(iovs))
	for i, iov := range iovs {
		buffers[i] = windows.WSABuf{Len: uint32(len(iov)), Buf: bufPtr(iov)}
	}
	var n, recvFlags uint32
	overlapped := new(windows.Overlapped)
	if err := windows.WSARecv(s.fd, &buffers[0], uint32(len(buffers)), &n, &recvFlags, overlapped, nil); err != nil {
		return 0, translate(err)
	}
	return int(n), nil
}

func (s *winSocket) Writev(iovs []stream.Iovec, flags stream.OpFlags) (int, error) {
	if s.datagram {
		var out []byte
		for _, iov := range iovs {
			out = append(out, iov...)
		}
		return s.Write(out, flags)
	}
	buffers := make([]windows.WSABuf, len(iovs))
	for i, iov := range iovs {
		buffers[i] = windows.WSABuf{Len: uint32(len(iov)), Buf: bufPtr(iov)}
	}
	var n uint32
	overlapped := new(windows.Overlapped)
	if err := windows.WSASend(s.fd, &buffers[0], uint32(len(buffers)), &n, 0, overlapped, nil); err != nil {
		return 0, translate(err)
	}
	return int(n), nil
}

func (s *winSocket) GetOption(opt stream.Option) (any, error) {
	switch opt {
	case stream.OptType:
		if s.datagram {
			return stream.KindUDPPseudoSocket, nil
		}
		return stream.KindTCPSocket, nil
	case stream.OptNativeHandle:
		return s.fd, nil
	case stream.OptTCPInfo:
		return nil, errkind.New(errkind.Unsupported, fmt.Errorf("socket: TCP_INFO not exposed on Windows"))
	default:
		return nil, errkind.New(errkind.Unsupported, nil)
	}
}

func (s *winSocket) SetOption(opt stream.Option, value any) error {
	switch opt {
	case stream.OptTCPNoDelay:
		b, _ := value.(bool)
		v := 0
		if b {
			v = 1
		}
		return translateOrNil(windows.SetsockoptInt(s.fd, windows.IPPROTO_TCP, windows.TCP_NODELAY, v))
	case stream.OptReuseAddr:
		b, _ := value.(bool)
		v := 0
		if b {
			v = 1
		}
		return translateOrNil(windows.SetsockoptInt(s.fd, windows.SOL_SOCKET, windows.SO_REUSEADDR, v))
	default:
		return errkind.New(errkind.Unsupported, nil)
	}
}

func translateOrNil(err error) error {
	if err == nil {
		return nil
	}
	return translate(err)
}

func wrapFd(conn net.Conn, fd uintptr) (stream.Ops, stream.Kind) {
	return &winSocket{fd: windows.Handle(fd)}, stream.KindTCPSocket
}

func scatter(data []byte, iovs []stream.Iovec) int {
	total := 0
	for _, iov := range iovs {
		n := copy(iov, data[total:])
		total += n
		if total >= len(data) {
			break
		}
	}
	return total
}

func bufPtr(b []byte) *byte {
	if len(b) == 0 {
		return nil
	}
	return &b[0]
}
