package ohci

import (
	"log"
	"time"

	"golang.org/x/time/rate"
)

// ueRestartLimiter paces the Unrecoverable-Error restart path so that a
// wedged controller raising UE on every frame cannot busy-loop Start()
// (spec Section 4.7, "UE: re-run the Start sequence").
var ueRestartLimiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 1)

// Dispatch is the interrupt servicing entry point (spec Section 4.7). It
// takes the latched HcInterruptStatus value (already read and, for the
// IRQ path, already write-cleared by the IRQ pseudo-program or, for the
// polled path, by Poller.Poll). Passing status == 0 or an SF-only status
// is a no-op: no callbacks fire, no registers are touched (Testable
// Property 4).
func (c *Controller) Dispatch(status uint32) {
	status &^= 1 << InterruptSF

	if status == 0 {
		return
	}

	if status&(1<<InterruptRHSC) != 0 {
		c.RootHub.Interrupt()
	}

	if status&(1<<InterruptWDH) != 0 {
		c.mu.Lock()
		c.reapCompleted()
		c.mu.Unlock()
	}

	if status&(1<<InterruptUE) != 0 {
		c.handleUnrecoverableError()
	}

	if status&(1<<InterruptSO) != 0 {
		log.Printf("ohci: scheduling overrun")
	}
}

// handleUnrecoverableError re-runs Start: the controller has either reset
// itself or is wedged, and any in-flight batches are lost (spec Section
// 7). It never returns an error to a caller since UE is only ever
// observed asynchronously from interrupt dispatch; a Start failure is
// logged instead.
func (c *Controller) handleUnrecoverableError() {
	if !ueRestartLimiter.Allow() {
		return
	}

	log.Printf("ohci: %v, restarting controller", ErrHardwareUnrecoverable)

	if err := c.Start(); err != nil {
		log.Printf("ohci: restart after unrecoverable error failed: %v", err)
	}
}
