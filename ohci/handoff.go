package ohci

import (
	"log"
	"time"
)

// resetHoldTime is the USB-specification-mandated minimum time to hold
// RESET on a cold power-on (spec Section 4.3 step 3, 4.4).
const resetHoldTime = 50 * time.Millisecond

// resumeSettleTime is the wait after transitioning SUSPEND -> RESUME
// (spec Section 4.3 step 3).
const resumeSettleTime = 20 * time.Millisecond

// sleep performs the handoff dance's mandated waits. It defaults to
// platformSleep (time.Sleep on tamago, a raw nanosleep(2) on a hosted
// build where the polling emulator's own cadence already runs under
// golang.org/x/time/rate and the 50ms/20ms handoff waits benefit from
// the same sub-millisecond wakeup precision) and is overridable in
// tests so the handoff/start scenarios of spec Section 8 (S1, S2) can
// be asserted without a real wall-clock wait.
var sleep = platformSleep

// GainControl implements the handoff dance that wrests the controller
// from firmware/SMM/BIOS ownership into driver control (spec Section
// 4.3). It must run once, before any schedule is programmed, and before
// the controller's guard is ever exposed to other callers — the spin
// loops here are the one case Section 5 permits running without holding
// it.
func (c *Controller) GainControl() error {
	if c.Regs.HasLegacySupport() {
		// Clearing this register outright reboots some platforms;
		// retain only the gate-A20 passthrough bit.
		c.Regs.MaskLegacyEmulation()
	}

	if c.Regs.InterruptRouting() {
		log.Printf("ohci: firmware owns the controller, requesting ownership change")

		c.Regs.SetOwnershipChangeRequest()
		Wait(c.Regs.Window, HcControl, ControlIR, 0x1, 0)

		c.Regs.SetFunctionalState(StateReset)
		sleep(resetHoldTime)

		return nil
	}

	switch c.Regs.FunctionalState() {
	case StateOperational:
		log.Printf("ohci: firmware already started the controller")
	case StateSuspend:
		c.Regs.SetFunctionalState(StateResume)
		sleep(resumeSettleTime)
	case StateReset:
		log.Printf("ohci: cold start, holding reset")
		sleep(resetHoldTime)
	}

	return nil
}
