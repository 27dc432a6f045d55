// Package socket implements the socket backend (component F): stream
// sockets (TCP, Unix-domain) and pseudo-sockets (a datagram socket
// paired with a default peer address for stream-style write calls).
package socket

import (
	"fmt"

	"github.com/higebu/netfd"
	"net"

	"github.com/xerra-oss/go-sio/pkg/addr"
	"github.com/xerra-oss/go-sio/pkg/errkind"
	"github.com/xerra-oss/go-sio/pkg/stream"
)

// Open implements spec.md §4.F's open_socket algorithm: family from the
// address, STREAM vs DGRAM from the TCP flag, server vs client wiring,
// and pseudo-socket peer retention for non-server datagram clients.
func Open(address addr.Address, flags stream.Flags) (*stream.Stream, error) {
	datagram := !flags.Has(flagTCP)
	ops, kind, err := openNative(address, datagram, flags)
	if err != nil {
		return nil, err
	}
	return stream.New(kind, ops, flags), nil
}

// flagTCP takes the first stream.Flags bit above FlagServer to request
// a stream (TCP) socket instead of a datagram one; exported as TCP/UDP
// helpers below so callers never poke at the bit directly.
const flagTCP = stream.FlagServer << 1

// TCP marks the flags for a stream socket.
func TCP(flags stream.Flags) stream.Flags { return flags | flagTCP }

// UDP marks the flags for a datagram (pseudo-)socket.
func UDP(flags stream.Flags) stream.Flags { return flags &^ flagTCP }

// Accept creates a new socket Stream from a pending connection on a
// listening server stream, inheriting its blocking mode (spec.md §4.F).
func Accept(server *stream.Stream) (*stream.Stream, addr.Address, error) {
	a, ok := server.Ops().(accepter)
	if !ok {
		return nil, addr.Address{}, errkind.New(errkind.Unsupported, fmt.Errorf("socket: Accept called on a non-listening stream"))
	}
	ops, peer, err := a.accept()
	if err != nil {
		return nil, addr.Address{}, err
	}
	return stream.New(server.Kind(), ops, server.Flags()), peer, nil
}

type accepter interface {
	accept() (stream.Ops, addr.Address, error)
}

// WrapNetConn adapts a standard library net.Conn (e.g. one returned by
// net.Dial or crypto/tls) into a socket Stream, extracting its raw file
// descriptor via github.com/higebu/netfd so DOALL-looped Read/Write and
// GetOption(TCPInfo) work the same as a natively-opened socket.
func WrapNetConn(conn net.Conn) (*stream.Stream, error) {
	fd, err := netfd.GetFdFromConn(conn)
	if err != nil {
		return nil, errkind.New(errkind.NetNotASocket, err)
	}
	ops, kind := wrapFd(conn, fd)
	return stream.New(kind, ops, stream.FlagRead|stream.FlagWrite), nil
}
