// Package addr provides a uniform IPv4/IPv6/Unix socket address value,
// independent of any particular socket backend.
package addr

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/xerra-oss/go-sio/pkg/errkind"
)

// Family identifies the address family carried by an Address.
type Family int

const (
	_ Family = iota
	INET
	INET6
	Unix
)

func (f Family) String() string {
	switch f {
	case INET:
		return "inet"
	case INET6:
		return "inet6"
	case Unix:
		return "unix"
	default:
		return "unknown"
	}
}

// Address is a value carrying an address family, the numeric address,
// a port, and its encoded byte length. The length is consistent with
// the family: 4 for IPv4, 16 for IPv6, and len(Path) for Unix sockets.
type Address struct {
	Family Family
	IP     netip.Addr // zero value for Family == Unix
	Port   uint16
	Path   string // populated only for Family == Unix
}

// Len returns the number of address bytes this value occupies on the
// wire, matching spec.md §3's invariant that length is consistent with
// family.
func (a Address) Len() int {
	switch a.Family {
	case INET:
		return 4
	case INET6:
		return 16
	case Unix:
		return len(a.Path)
	default:
		return 0
	}
}

// Loopback constructs a loopback Address for the given family without
// performing any syscall.
func Loopback(family Family, port uint16) (Address, error) {
	switch family {
	case INET:
		return Address{Family: INET, IP: netip.AddrFrom4([4]byte{127, 0, 0, 1}), Port: port}, nil
	case INET6:
		return Address{Family: INET6, IP: netip.IPv6Loopback(), Port: port}, nil
	default:
		return Address{}, errkind.New(errkind.InvalidParam, fmt.Errorf("loopback: unsupported family %v", family))
	}
}

// Any constructs the wildcard ("any") Address for the given family
// without performing any syscall.
func Any(family Family, port uint16) (Address, error) {
	switch family {
	case INET:
		return Address{Family: INET, IP: netip.IPv4Unspecified(), Port: port}, nil
	case INET6:
		return Address{Family: INET6, IP: netip.IPv6Unspecified(), Port: port}, nil
	default:
		return Address{}, errkind.New(errkind.InvalidParam, fmt.Errorf("any: unsupported family %v", family))
	}
}

// ParseUnix builds a Unix-domain Address from a filesystem path.
func ParseUnix(path string) Address {
	return Address{Family: Unix, Path: path}
}

// Parse parses a "host:port" or bare path (for Unix sockets prefixed
// with "unix:") string into an Address. It performs no DNS resolution:
// host must already be a numeric IPv4 or IPv6 literal, matching
// spec.md §3's "constructable without syscalls" intent for the address
// value itself (name resolution is an out-of-scope collaborator per
// spec.md §1).
func Parse(s string) (Address, error) {
	if rest, ok := strings.CutPrefix(s, "unix:"); ok {
		return ParseUnix(rest), nil
	}

	host, portStr, err := splitHostPort(s)
	if err != nil {
		return Address{}, errkind.New(errkind.NetInvalidAddr, err)
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return Address{}, errkind.New(errkind.NetInvalidAddr, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Address{}, errkind.New(errkind.NetInvalidAddr, err)
	}

	family := INET
	if ip.Is6() && !ip.Is4In6() {
		family = INET6
	}
	return Address{Family: family, IP: ip.Unmap(), Port: uint16(port)}, nil
}

// splitHostPort is a small bracket-aware host:port splitter so IPv6
// literals such as "[::1]:8080" round-trip through Format/Parse.
func splitHostPort(s string) (host, port string, err error) {
	if strings.HasPrefix(s, "[") {
		end := strings.IndexByte(s, ']')
		if end < 0 || end+1 >= len(s) || s[end+1] != ':' {
			return "", "", fmt.Errorf("addr: malformed bracketed address %q", s)
		}
		return s[1:end], s[end+2:], nil
	}
	idx := strings.LastIndexByte(s, ':')
	if idx < 0 {
		return "", "", fmt.Errorf("addr: missing port in %q", s)
	}
	return s[:idx], s[idx+1:], nil
}

// Format renders the Address back to text. For every IPv4/IPv6 value a,
// Parse(Format(a)) == a (spec.md §8 round-trip invariant).
func (a Address) Format() string {
	switch a.Family {
	case Unix:
		return "unix:" + a.Path
	case INET6:
		return "[" + a.IP.String() + "]:" + strconv.Itoa(int(a.Port))
	default:
		return a.IP.String() + ":" + strconv.Itoa(int(a.Port))
	}
}

func (a Address) String() string { return a.Format() }

// IsLoopback reports whether the address is the loopback address for
// its family.
func (a Address) IsLoopback() bool {
	if a.Family == Unix {
		return false
	}
	return a.IP.IsLoopback()
}

// IsMulticast reports whether the address is a multicast address.
func (a Address) IsMulticast() bool {
	if a.Family == Unix {
		return false
	}
	return a.IP.IsMulticast()
}

// Mask selects which fields Equals compares.
type Mask uint8

const (
	MaskFamily Mask = 1 << iota
	MaskIP
	MaskPort
)

// MaskAll compares family, IP and port independently, per spec.md §3.
const MaskAll = MaskFamily | MaskIP | MaskPort

// Equals compares two addresses under the given bitmask, each field
// independently as spec.md §3 requires.
func (a Address) Equals(b Address, mask Mask) bool {
	if mask&MaskFamily != 0 && a.Family != b.Family {
		return false
	}
	if mask&MaskIP != 0 {
		if a.Family == Unix {
			if a.Path != b.Path {
				return false
			}
		} else if a.IP != b.IP {
			return false
		}
	}
	if mask&MaskPort != 0 && a.Port != b.Port {
		return false
	}
	return true
}
