//go:build tamago

package ohci

import "time"

// platformSleep is time.Sleep on tamago, where the runtime's own
// cooperative scheduler already parks the calling goroutine without a
// host OS timer to fight with.
func platformSleep(d time.Duration) {
	time.Sleep(d)
}
