//go:build !tamago && (linux || darwin)

package ohci

import (
	"time"

	"golang.org/x/sys/unix"
)

// platformSleep waits out d with unix.Nanosleep rather than time.Sleep.
// This package's only hosted caller of sleep is the handoff dance's
// 50ms/20ms waits, run when emulating the controller against a fake
// register window in a test or a development harness; Nanosleep gives
// those waits the same sub-millisecond wakeup precision the real
// hardware's timing budget assumes, instead of whatever slack the Go
// runtime's timer wheel adds on top of time.Sleep.
func platformSleep(d time.Duration) {
	sec := int64(d / time.Second)
	nsec := int64(d % time.Second)

	ts := unix.Timespec{Sec: sec, Nsec: nsec}

	for {
		rem := unix.Timespec{}

		if err := unix.Nanosleep(&ts, &rem); err != unix.EINTR {
			return
		}

		ts = rem
	}
}
