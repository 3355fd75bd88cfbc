package ohci

// Start brings the controller from a reset/suspended state to
// operational (spec Section 4.4), (re-)programming the full schedule. It
// is also the recovery path re-run after an Unrecoverable Error (spec
// Section 4.7), so it must be safe to call on an already-initialized
// Controller: the HCCA and endpoint lists are left structurally intact by
// Dispatch's UE handling, only the registers are reprogrammed.
func (c *Controller) Start() error {
	snapshot := c.Regs.FrameIntervalRaw()
	fi := c.Regs.FrameInterval()

	c.Regs.Reset()
	// HcCommandStatus.HCR self-clears once the reset completes; the
	// controller is now in SUSPEND.

	c.Regs.SetFrameInterval(snapshot)

	c.Regs.SetHCCA(c.HCCA.PhysAddr())
	c.Regs.SetBulkHead(c.bulk.HeadPhysAddr())
	c.Regs.SetControlHead(c.control.HeadPhysAddr())

	c.Regs.SetListEnable(ControlPLE, true)
	c.Regs.SetListEnable(ControlIE, true)
	c.Regs.SetListEnable(ControlCLE, true)
	c.Regs.SetListEnable(ControlBLE, true)

	c.Regs.EnableInterrupts(HandledInterruptMask)

	c.Regs.SetPeriodicStart((fi * 9) / 10)

	c.Regs.SetFunctionalState(StateOperational)

	return nil
}
