//go:build linux || darwin

package socket

import (
	"fmt"
	"net"
	"net/netip"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/xerra-oss/go-sio/pkg/addr"
	"github.com/xerra-oss/go-sio/pkg/errkind"
	"github.com/xerra-oss/go-sio/pkg/stream"
)

type posixSocket struct {
	mu       sync.Mutex
	fd       int
	server   bool
	datagram bool
	flags    stream.Flags
	peer     unix.Sockaddr // pseudo-socket default destination
	lastPeer unix.Sockaddr // most recent sender, for a bound datagram server
	closed   bool
}

func sockaddrFor(a addr.Address) (unix.Sockaddr, int, error) {
	switch a.Family {
	case addr.INET:
		ip4 := a.IP.As4()
		return &unix.SockaddrInet4{Port: int(a.Port), Addr: ip4}, unix.AF_INET, nil
	case addr.INET6:
		ip16 := a.IP.As16()
		return &unix.SockaddrInet6{Port: int(a.Port), Addr: ip16}, unix.AF_INET6, nil
	case addr.Unix:
		return &unix.SockaddrUnix{Name: a.Path}, unix.AF_UNIX, nil
	default:
		return nil, 0, errkind.New(errkind.NetInvalidAddr, fmt.Errorf("socket: unknown address family %v", a.Family))
	}
}

func addrFromSockaddr(sa unix.Sockaddr) addr.Address {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return addr.Address{Family: addr.INET, IP: netip.AddrFrom4(v.Addr), Port: uint16(v.Port)}
	case *unix.SockaddrInet6:
		return addr.Address{Family: addr.INET6, IP: netip.AddrFrom16(v.Addr), Port: uint16(v.Port)}
	case *unix.SockaddrUnix:
		return addr.ParseUnix(v.Name)
	default:
		return addr.Address{}
	}
}

func translate(err error) error {
	if errno, ok := err.(unix.Errno); ok {
		return errkind.New(errkind.FromNativePOSIX(errno), err)
	}
	return errkind.New(errkind.IO, err)
}

// openNative implements spec.md §4.F's open_socket steps 1-6.
func openNative(address addr.Address, datagram bool, flags stream.Flags) (stream.Ops, stream.Kind, error) {
	sa, family, err := sockaddrFor(address)
	if err != nil {
		return nil, 0, err
	}
	typ := unix.SOCK_STREAM
	if datagram {
		typ = unix.SOCK_DGRAM
	}
	typ |= unix.SOCK_CLOEXEC
	nonblock := flags.Has(stream.FlagNonBlock)
	if nonblock {
		typ |= unix.SOCK_NONBLOCK
	}

	fd, err := unix.Socket(family, typ, 0)
	if err != nil {
		// Fall back for kernels without atomic SOCK_NONBLOCK|SOCK_CLOEXEC.
		fd, err = unix.Socket(family, typ&^(unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC), 0)
		if err != nil {
			return nil, 0, translate(err)
		}
		unix.CloseOnExec(fd)
		if nonblock {
			unix.SetNonblock(fd, true)
		}
	}

	s := &posixSocket{fd: fd, server: flags.Has(stream.FlagServer), datagram: datagram, flags: flags}
	kind := stream.KindTCPSocket
	if address.Family == addr.Unix {
		kind = stream.KindUnixSocket
	} else if datagram {
		kind = stream.KindUDPPseudoSocket
	}

	if s.server {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			unix.Close(fd)
			return nil, 0, translate(err)
		}
		if err := unix.Bind(fd, sa); err != nil {
			unix.Close(fd)
			return nil, 0, translate(err)
		}
		if !datagram {
			if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
				unix.Close(fd)
				return nil, 0, translate(err)
			}
		}
		return s, kind, nil
	}

	if !datagram {
		err := unix.Connect(fd, sa)
		if err != nil && err != unix.EINPROGRESS {
			unix.Close(fd)
			return nil, 0, translate(err)
		}
		return s, kind, nil
	}

	// Non-server datagram client: pseudo-socket, remember the peer.
	s.peer = sa
	return s, kind, nil
}

func (s *posixSocket) accept() (stream.Ops, addr.Address, error) {
	acceptFlags := unix.SOCK_CLOEXEC
	if s.flags.Has(stream.FlagNonBlock) {
		acceptFlags |= unix.SOCK_NONBLOCK
	}
	for {
		nfd, sa, err := unix.Accept4(s.fd, acceptFlags)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			if err == unix.EAGAIN {
				if s.flags.Has(stream.FlagNonBlock) {
					return nil, addr.Address{}, errkind.New(errkind.WouldBlock, err)
				}
				if waitErr := s.waitReadable(); waitErr != nil {
					return nil, addr.Address{}, waitErr
				}
				continue
			}
			return nil, addr.Address{}, translate(err)
		}
		return &posixSocket{fd: nfd, flags: s.flags}, addrFromSockaddr(sa), nil
	}
}

// waitReadable blocks until the fd is readable (or an Accept is
// pending), mirroring pkg/timer/timer_linux.go's waitReadable so a
// blocking-mode socket whose fd reports EAGAIN (e.g. the accept4
// fallback path, or a transient wakeup) genuinely blocks instead of
// surfacing WouldBlock to a caller that never asked for it.
func (s *posixSocket) waitReadable() error {
	return pollWait(s.fd, unix.POLLIN)
}

func (s *posixSocket) waitWritable() error {
	return pollWait(s.fd, unix.POLLOUT)
}

func pollWait(fd int, events int16) error {
	fds := []unix.PollFd{{Fd: int32(fd), Events: events}}
	for {
		n, err := unix.Poll(fds, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return translate(err)
		}
		if n > 0 {
			return nil
		}
	}
}

func (s *posixSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errkind.New(errkind.FileClosed, nil)
	}
	s.closed = true
	if err := unix.Close(s.fd); err != nil {
		return translate(err)
	}
	return nil
}

// wantsImmediate reports whether this call must not block: either the
// stream was opened with FlagNonBlock, or the caller passed OpDontWait
// for a single non-blocking probe (e.g. stream.eofProbe) regardless of
// the stream's own mode.
func (s *posixSocket) wantsImmediate(flags stream.OpFlags) bool {
	return s.flags.Has(stream.FlagNonBlock) || flags&stream.OpDontWait != 0
}

func (s *posixSocket) Read(p []byte, flags stream.OpFlags) (int, error) {
	immediate := s.wantsImmediate(flags)
	recvFlags := 0
	if immediate {
		recvFlags = unix.MSG_DONTWAIT
	}
	if s.datagram {
		for {
			n, from, err := unix.Recvfrom(s.fd, p, recvFlags)
			if err == unix.EINTR {
				continue
			}
			if err != nil {
				if err == unix.EAGAIN {
					if immediate {
						return 0, errkind.New(errkind.WouldBlock, err)
					}
					if waitErr := s.waitReadable(); waitErr != nil {
						return 0, waitErr
					}
					continue
				}
				return 0, translate(err)
			}
			// A bound, unconnected datagram server has no fixed peer;
			// remember the sender so a reply Write knows where to go,
			// matching the recvfrom/sendto echo idiom.
			if s.peer == nil && from != nil {
				s.lastPeer = from
			}
			return n, nil
		}
	}
	for {
		// recvfrom rather than plain read so an OpDontWait probe
		// (stream.eofProbe) can request MSG_DONTWAIT even when the fd
		// itself is a genuinely blocking stream socket.
		n, _, err := unix.Recvfrom(s.fd, p, recvFlags)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			if err == unix.EAGAIN {
				if immediate {
					return 0, errkind.New(errkind.WouldBlock, err)
				}
				if waitErr := s.waitReadable(); waitErr != nil {
					return 0, waitErr
				}
				continue
			}
			return 0, translate(err)
		}
		if n == 0 && len(p) > 0 {
			return 0, errkind.New(errkind.EndOfStream, nil)
		}
		return n, nil
	}
}

func (s *posixSocket) Write(p []byte, flags stream.OpFlags) (int, error) {
	immediate := s.wantsImmediate(flags)
	sendFlags := 0
	if immediate {
		sendFlags = unix.MSG_DONTWAIT
	}
	if s.datagram {
		dest := s.peer
		if dest == nil {
			dest = s.lastPeer
		}
		if dest == nil {
			return 0, errkind.New(errkind.NetNotConnected, fmt.Errorf("socket: datagram write with no known peer (read a datagram first, or dial a specific peer)"))
		}
		for {
			err := unix.Sendto(s.fd, p, sendFlags, dest)
			if err == unix.EINTR {
				continue
			}
			if err != nil {
				if err == unix.EAGAIN {
					if immediate {
						return 0, errkind.New(errkind.WouldBlock, err)
					}
					if waitErr := s.waitWritable(); waitErr != nil {
						return 0, waitErr
					}
					continue
				}
				return 0, translate(err)
			}
			return len(p), nil
		}
	}
	for {
		// Send rather than plain write, for the same MSG_DONTWAIT
		// reason as Read's use of Recvfrom above.
		err := unix.Send(s.fd, p, sendFlags)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			if err == unix.EAGAIN {
				if immediate {
					return 0, errkind.New(errkind.WouldBlock, err)
				}
				if waitErr := s.waitWritable(); waitErr != nil {
					return 0, waitErr
				}
				continue
			}
			return 0, translate(err)
		}
		return len(p), nil
	}
}

func (s *posixSocket) Flush() error { return nil }

// Readv/Writev use readv(2)/writev(2) for stream sockets; datagram
// sockets stage scatter-gather through one contiguous buffer since a
// datagram is a single message (spec.md §4.F).
func (s *posixSocket) Readv(iovs []stream.Iovec, flags stream.OpFlags) (int, error) {
	if s.datagram {
		return s.readvDatagram(iovs)
	}
	immediate := s.wantsImmediate(flags)
	raw := toRawIovec(iovs)
	for {
		n, err := unix.Readv(s.fd, raw)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			if err == unix.EAGAIN {
				if immediate {
					return 0, errkind.New(errkind.WouldBlock, err)
				}
				if waitErr := s.waitReadable(); waitErr != nil {
					return 0, waitErr
				}
				continue
			}
			return 0, translate(err)
		}
		if n == 0 {
			return 0, errkind.New(errkind.EndOfStream, nil)
		}
		return n, nil
	}
}

func (s *posixSocket) Writev(iovs []stream.Iovec, flags stream.OpFlags) (int, error) {
	if s.datagram {
		return s.writevDatagram(iovs)
	}
	immediate := s.wantsImmediate(flags)
	raw := toRawIovec(iovs)
	for {
		n, err := unix.Writev(s.fd, raw)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			if err == unix.EAGAIN {
				if immediate {
					return 0, errkind.New(errkind.WouldBlock, err)
				}
				if waitErr := s.waitWritable(); waitErr != nil {
					return 0, waitErr
				}
				continue
			}
			return n, translate(err)
		}
		return n, nil
	}
}

func (s *posixSocket) readvDatagram(iovs []stream.Iovec) (int, error) {
	total := 0
	for _, iov := range iovs {
		total += len(iov)
	}
	staging := make([]byte, total)
	n, err := s.Read(staging, 0)
	if err != nil {
		return 0, err
	}
	return scatter(staging[:n], iovs), nil
}

func (s *posixSocket) writevDatagram(iovs []stream.Iovec) (int, error) {
	staging := gather(iovs)
	return s.Write(staging, 0)
}

func (s *posixSocket) GetOption(opt stream.Option) (any, error) {
	switch opt {
	case stream.OptType:
		if s.datagram {
			return stream.KindUDPPseudoSocket, nil
		}
		return stream.KindTCPSocket, nil
	case stream.OptNativeHandle:
		return s.fd, nil
	case stream.OptBlocking:
		return !s.flags.Has(stream.FlagNonBlock), nil
	case stream.OptTCPNoDelay:
		v, err := unix.GetsockoptInt(s.fd, unix.IPPROTO_TCP, unix.TCP_NODELAY)
		if err != nil {
			return nil, translate(err)
		}
		return v != 0, nil
	case stream.OptTCPKeepAlive:
		v, err := unix.GetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE)
		if err != nil {
			return nil, translate(err)
		}
		return v != 0, nil
	case stream.OptReuseAddr:
		v, err := unix.GetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_REUSEADDR)
		if err != nil {
			return nil, translate(err)
		}
		return v != 0, nil
	case stream.OptBroadcast:
		v, err := unix.GetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_BROADCAST)
		if err != nil {
			return nil, translate(err)
		}
		return v != 0, nil
	case stream.OptRcvBuf:
		v, err := unix.GetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_RCVBUF)
		if err != nil {
			return nil, translate(err)
		}
		return v, nil
	case stream.OptSndBuf:
		v, err := unix.GetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_SNDBUF)
		if err != nil {
			return nil, translate(err)
		}
		return v, nil
	case stream.OptTCPInfo:
		return GetTCPInfo(s.fd)
	default:
		return nil, errkind.New(errkind.Unsupported, nil)
	}
}

func (s *posixSocket) SetOption(opt stream.Option, value any) error {
	switch opt {
	case stream.OptTCPNoDelay:
		return s.setBoolOpt(unix.IPPROTO_TCP, unix.TCP_NODELAY, value)
	case stream.OptTCPKeepAlive:
		return s.setBoolOpt(unix.SOL_SOCKET, unix.SO_KEEPALIVE, value)
	case stream.OptReuseAddr:
		return s.setBoolOpt(unix.SOL_SOCKET, unix.SO_REUSEADDR, value)
	case stream.OptBroadcast:
		return s.setBoolOpt(unix.SOL_SOCKET, unix.SO_BROADCAST, value)
	case stream.OptRcvBuf:
		n, _ := value.(int)
		if err := unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_RCVBUF, n); err != nil {
			return translate(err)
		}
		return nil
	case stream.OptSndBuf:
		n, _ := value.(int)
		if err := unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_SNDBUF, n); err != nil {
			return translate(err)
		}
		return nil
	case stream.OptBlocking:
		blocking, _ := value.(bool)
		if err := unix.SetNonblock(s.fd, !blocking); err != nil {
			return translate(err)
		}
		return nil
	default:
		return errkind.New(errkind.Unsupported, nil)
	}
}

func (s *posixSocket) setBoolOpt(level, opt int, value any) error {
	b, _ := value.(bool)
	v := 0
	if b {
		v = 1
	}
	if err := unix.SetsockoptInt(s.fd, level, opt, v); err != nil {
		return translate(err)
	}
	return nil
}

func wrapFd(conn net.Conn, fd uintptr) (stream.Ops, stream.Kind) {
	return &posixSocket{fd: int(fd)}, stream.KindTCPSocket
}

func toRawIovec(iovs []stream.Iovec) [][]byte {
	raw := make([][]byte, len(iovs))
	for i, iov := range iovs {
		raw[i] = iov
	}
	return raw
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

func gather(iovs []stream.Iovec) []byte {
	var out []byte
	for _, iov := range iovs {
		out = append(out, iov...)
	}
	return out
}
