//go:build linux || darwin

package cli

import (
	"os"

	"golang.org/x/sys/unix"
)

// silenceStderr routes fd 2 to the null device and returns a func restoring
// the original. The native backend writes its chatter at the fd level, below
// os.Stderr, so the redirect has to happen there too. Any failure leaves
// stderr untouched.
func silenceStderr() func() {
	saved, err := unix.Dup(2)
	if err != nil {
		return func() {}
	}
	null, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		unix.Close(saved)
		return func() {}
	}
	if err := dup2(int(null.Fd()), 2); err != nil {
		null.Close()
		unix.Close(saved)
		return func() {}
	}
	null.Close()

	return func() {
		dup2(saved, 2)
		unix.Close(saved)
	}
}
