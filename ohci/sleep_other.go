//go:build !tamago && !linux && !darwin

package ohci

import "time"

// platformSleep falls back to time.Sleep on hosted platforms without a
// nanosleep(2) syscall.
func platformSleep(d time.Duration) {
	time.Sleep(d)
}
