//go:build windows

package errkind

import "golang.org/x/sys/windows"

// FromNativeWindows translates a Win32 error code into a Kind. The
// mapping is total: codes with no narrower category fall through to
// Generic.
func FromNativeWindows(code windows.Errno) Kind {
	switch code {
	case 0:
		return Generic
	case windows.ERROR_INVALID_PARAMETER:
		return InvalidParam
	case windows.ERROR_NOT_ENOUGH_MEMORY, windows.ERROR_OUTOFMEMORY:
		return OutOfMemory
	case windows.ERROR_IO_DEVICE, windows.ERROR_IO_PENDING:
		return IO
	case windows.WSAEWOULDBLOCK:
		return WouldBlock
	case windows.WSAETIMEDOUT, windows.ERROR_TIMEOUT:
		return Timeout
	case windows.ERROR_BUSY, windows.ERROR_LOCK_VIOLATION:
		return Busy
	case windows.ERROR_ACCESS_DENIED:
		return Permission
	case windows.ERROR_ALREADY_EXISTS, windows.ERROR_FILE_EXISTS:
		return AlreadyExists
	case windows.ERROR_FILE_NOT_FOUND, windows.ERROR_PATH_NOT_FOUND:
		return NotFound
	case windows.ERROR_FILENAME_EXCED_RANGE, windows.ERROR_BUFFER_OVERFLOW:
		return FileNameTooLong
	case windows.ERROR_OPERATION_ABORTED:
		return Interrupted
	case windows.ERROR_NOT_SUPPORTED, windows.ERROR_CALL_NOT_IMPLEMENTED:
		return Unsupported
	case windows.ERROR_DIRECTORY:
		return FileNotDir
	case windows.ERROR_WRITE_PROTECT:
		return FileReadOnly
	case windows.ERROR_DISK_FULL, windows.ERROR_HANDLE_DISK_FULL:
		return FileNoSpace
	case windows.ERROR_INVALID_HANDLE:
		return FileClosed
	case windows.ERROR_SHARING_VIOLATION:
		return FileLocked
	case windows.WSAECONNREFUSED:
		return NetConnRefused
	case windows.WSAECONNABORTED:
		return NetConnAborted
	case windows.WSAECONNRESET:
		return NetConnReset
	case windows.WSAEHOSTUNREACH:
		return NetHostUnreachable
	case windows.WSAEHOSTDOWN:
		return NetHostDown
	case windows.WSAEADDRINUSE:
		return NetAddrInUse
	case windows.WSAENOTCONN:
		return NetNotConnected
	case windows.WSAESHUTDOWN:
		return NetShutdown
	case windows.WSAEMSGSIZE:
		return NetMsgTooLarge
	case windows.WSAEPROTOTYPE, windows.WSAEPROTONOSUPPORT:
		return NetProtocol
	case windows.WSAEAFNOSUPPORT:
		return NetInvalidAddr
	case windows.WSAEDESTADDRREQ:
		return NetAddrRequired
	case windows.WSAEINPROGRESS:
		return NetInProgress
	case windows.WSAEALREADY:
		return NetAlready
	case windows.WSAENOTSOCK:
		return NetNotASocket
	case windows.WSAENOPROTOOPT:
		return NetNoProtoOption
	case windows.ERROR_TOO_MANY_OPEN_FILES:
		return SysLimit
	case windows.ERROR_INVALID_FUNCTION:
		return SysInvalid
	default:
		return Generic
	}
}
