//go:build darwin

package file

// direct has no open(2)-time equivalent on Darwin; the flag is
// accepted but has no effect, matching spec.md §4.E's "no native
// mapping" treatment for platform-absent bits.
const direct = 0
