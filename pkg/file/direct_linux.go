//go:build linux

package file

import "golang.org/x/sys/unix"

// direct maps the portable "direct" flag to O_DIRECT, which only Linux
// exposes as an open(2) flag; Darwin has no equivalent open-time bit
// (its direct I/O story is the per-fd F_NOCACHE fcntl, out of scope
// here).
const direct = unix.O_DIRECT
