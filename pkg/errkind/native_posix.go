//go:build linux || darwin

package errkind

import "golang.org/x/sys/unix"

// FromNativePOSIX translates a POSIX errno into a Kind. The mapping is
// total: codes with no narrower category fall through to Generic.
func FromNativePOSIX(errno unix.Errno) Kind {
	switch errno {
	case 0:
		return Generic // callers should not be translating success
	case unix.EINVAL:
		return InvalidParam
	case unix.ENOMEM:
		return OutOfMemory
	case unix.EIO:
		return IO
	case unix.EAGAIN:
		return WouldBlock
	case unix.ETIMEDOUT:
		return Timeout
	case unix.EBUSY:
		return Busy
	case unix.EACCES, unix.EPERM:
		return Permission
	case unix.EEXIST:
		return AlreadyExists
	case unix.ENOENT:
		return NotFound
	case unix.ENAMETOOLONG:
		return FileNameTooLong
	case unix.EINTR:
		return Interrupted
	case unix.ENOSYS, unix.EOPNOTSUPP:
		return Unsupported
	case unix.EISDIR:
		return FileIsDir
	case unix.ENOTDIR:
		return FileNotDir
	case unix.EROFS:
		return FileReadOnly
	case unix.EFBIG:
		return FileTooLarge
	case unix.ENOSPC:
		return FileNoSpace
	case unix.EBADF:
		return FileClosed
	case unix.ELOOP:
		return FileLoop
	case unix.ECONNREFUSED:
		return NetConnRefused
	case unix.ECONNABORTED:
		return NetConnAborted
	case unix.ECONNRESET:
		return NetConnReset
	case unix.EHOSTUNREACH:
		return NetHostUnreachable
	case unix.EHOSTDOWN:
		return NetHostDown
	case unix.EADDRINUSE:
		return NetAddrInUse
	case unix.ENOTCONN:
		return NetNotConnected
	case unix.ESHUTDOWN:
		return NetShutdown
	case unix.EMSGSIZE:
		return NetMsgTooLarge
	case unix.EPROTO, unix.EPROTOTYPE:
		return NetProtocol
	case unix.EAFNOSUPPORT:
		return NetInvalidAddr
	case unix.EDESTADDRREQ:
		return NetAddrRequired
	case unix.EINPROGRESS:
		return NetInProgress
	case unix.EALREADY:
		return NetAlready
	case unix.ENOTSOCK:
		return NetNotASocket
	case unix.ENOPROTOOPT:
		return NetNoProtoOption
	case unix.EDEADLK:
		return Deadlock
	case unix.EMFILE, unix.ENFILE:
		return SysLimit
	case unix.ESRCH:
		return SysNoProcess
	case unix.ENXIO:
		return SysDevice
	case unix.EOVERFLOW:
		return SysOverflow
	default:
		return Generic
	}
}
