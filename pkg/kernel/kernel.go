// Package kernel gates Linux-only functionality on a minimum kernel
// version, adapted from the teacher's panic-on-init check into a
// callable, error-returning guard any backend can invoke lazily.
package kernel

import (
	"fmt"

	dockerkernel "github.com/docker/docker/pkg/parsers/kernel"

	"github.com/xerra-oss/go-sio/pkg/errkind"
)

// RequireLinux reports an error if the running kernel is older than
// k.major.minor. It is safe to call repeatedly; each call re-reads
// /proc/version-equivalent state rather than caching, since this
// library has no init-time panic to amortize the cost against.
func RequireLinux(k, major, minor int) error {
	version, err := dockerkernel.GetKernelVersion()
	if err != nil {
		return errkind.New(errkind.System, fmt.Errorf("kernel: cannot determine kernel version: %w", err))
	}
	want := dockerkernel.VersionInfo{Kernel: k, Major: major, Minor: minor}
	if dockerkernel.CompareKernelVersion(*version, want) < 0 {
		return errkind.New(errkind.Unsupported, fmt.Errorf("kernel: running %d.%d.%d, need >= %d.%d.%d",
			version.Kernel, version.Major, version.Minor, k, major, minor))
	}
	return nil
}

// Since reports whether the running kernel is at least k.major.minor,
// collapsing any detection error to false.
func Since(k, major, minor int) bool {
	return RequireLinux(k, major, minor) == nil
}
