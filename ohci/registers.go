package ohci

// OHCI register file offsets, spec Section 6. Naming mirrors the register
// names from the OHCI 1.0a specification and the teacher's own
// const-block-of-offsets idiom (soc/imx6/usb/bus.go's USB_UOG1_* block).
const (
	HcRevision           = 0x00
	HcControl            = 0x04
	HcCommandStatus      = 0x08
	HcInterruptStatus    = 0x0c
	HcInterruptEnable    = 0x10
	HcInterruptDisable   = 0x14
	HcHCCA               = 0x18
	HcPeriodCurrentED    = 0x1c
	HcControlHeadED      = 0x20
	HcControlCurrentED   = 0x24
	HcBulkHeadED         = 0x28
	HcBulkCurrentED      = 0x2c
	HcDoneHead           = 0x30
	HcFmInterval         = 0x34
	HcFmRemaining        = 0x38
	HcFmNumber           = 0x3c
	HcPeriodicStart      = 0x40
	HcLSThreshold        = 0x44
	HcRhDescriptorA      = 0x48
	HcRhDescriptorB      = 0x4c
	HcRhStatus           = 0x50
	HcRhPortStatusOffset = 0x54 // + 4*(port-1), port is 1-based

	// HceControl is the vendor-extension legacy emulation register,
	// fixed at this offset beyond the standard OHCI register block
	// (spec Section 6).
	HceControl   = 0x100
	HceControlA20 = 0 // gate-A20 passthrough bit, must be preserved
)

// HcRevision bits.
const (
	RevisionLegacy = 8 // legacy (USB keyboard/mouse SMM) support present
)

// HcControl bits (spec Section 4.1).
const (
	ControlCBSR = 0 // control/bulk service ratio, 2 bits
	ControlPLE  = 2 // periodic list enable
	ControlIE   = 3 // isochronous enable
	ControlCLE  = 4 // control list enable
	ControlBLE  = 5 // bulk list enable
	ControlHCFS = 6 // functional state, 2 bits
	ControlIR   = 8 // interrupt routing (SMM ownership)
)

// HCFS functional-state codes (spec Section 4.1, 2-bit field).
const (
	StateReset       = 0b00
	StateResume      = 0b01
	StateOperational = 0b10
	StateSuspend     = 0b11
)

// HcCommandStatus bits.
const (
	CommandStatusHCR = 0 // host controller reset
	CommandStatusCLF = 1 // control list filled
	CommandStatusBLF = 2 // bulk list filled
	CommandStatusOCR = 3 // ownership change request
)

// Interrupt bits, shared by HcInterruptStatus/Enable/Disable.
const (
	InterruptSO   = 0  // scheduling overrun
	InterruptWDH  = 1  // writeback done head
	InterruptSF   = 2  // start of frame (masked out in software)
	InterruptRD   = 3  // resume detected
	InterruptUE   = 4  // unrecoverable error
	InterruptFNO  = 5  // frame number overflow
	InterruptRHSC = 6  // root hub status change
	InterruptOC   = 30 // ownership change
	InterruptMI   = 31 // master interrupt enable
)

// HandledInterruptMask is the set of interrupts this core reacts to. SF is
// deliberately excluded: it fires every frame and carries no information
// the core needs (spec Section 4.1).
const HandledInterruptMask = 1<<InterruptSO | 1<<InterruptWDH | 1<<InterruptUE | 1<<InterruptRHSC

// HcFmInterval bits.
const (
	FmIntervalFI  = 0  // frame interval, 14 bits
	FmIntervalFSMPS = 16 // FS largest data packet, 15 bits
	FmIntervalFIT = 31 // frame interval toggle
)

// Registers is a strongly typed view over an OHCI register window,
// generalizing soc/imx6/usb/bus.go's USB struct (a composite literal of
// offsets bound to one instance) to the full OHCI register file.
type Registers struct {
	Window Window
}

// NewRegisters wraps a Window, validating it is large enough to back the
// full register file including the legacy emulation register (spec
// Section 7, ErrOverflow).
func NewRegisters(w Window) (*Registers, error) {
	if w.Size() < HceControl+4 {
		return nil, ErrOverflow
	}

	return &Registers{Window: w}, nil
}

func (r *Registers) read(offset uint32) uint32           { return r.Window.Read(offset) }
func (r *Registers) write(offset uint32, val uint32)     { r.Window.Write(offset, val) }
func (r *Registers) get(offset uint32, pos int, mask uint32) uint32 {
	return Get(r.Window, offset, pos, mask)
}
func (r *Registers) set(offset uint32, pos int)   { Set(r.Window, offset, pos) }
func (r *Registers) clear(offset uint32, pos int) { Clear(r.Window, offset, pos) }
func (r *Registers) setN(offset uint32, pos int, mask uint32, val uint32) {
	SetN(r.Window, offset, pos, mask, val)
}

// Revision returns the HcRevision register's low byte.
func (r *Registers) Revision() uint32 {
	return r.get(HcRevision, 0, 0xff)
}

// HasLegacySupport reports the legacy (SMM keyboard/mouse emulation) bit
// of HcRevision.
func (r *Registers) HasLegacySupport() bool {
	return r.get(HcRevision, RevisionLegacy, 0x1) == 1
}

// FunctionalState returns the HCFS field of HcControl.
func (r *Registers) FunctionalState() uint32 {
	return r.get(HcControl, ControlHCFS, 0b11)
}

// SetFunctionalState programs the HCFS field of HcControl.
func (r *Registers) SetFunctionalState(state uint32) {
	r.setN(HcControl, ControlHCFS, 0b11, state)
}

// InterruptRouting reports HcControl's IR bit: when set, firmware (SMM)
// owns the controller.
func (r *Registers) InterruptRouting() bool {
	return r.get(HcControl, ControlIR, 0x1) == 1
}

// SetListEnable sets or clears one of the four list-enable bits
// (PLE/IE/CLE/BLE) in HcControl.
func (r *Registers) SetListEnable(pos int, enable bool) {
	if enable {
		r.set(HcControl, pos)
	} else {
		r.clear(HcControl, pos)
	}
}

// ListEnabled reports whether the given list-enable bit is currently set.
func (r *Registers) ListEnabled(pos int) bool {
	return r.get(HcControl, pos, 0x1) == 1
}

// SetOwnershipChangeRequest sets the OCR bit in HcCommandStatus, the
// signal used during SMM handoff (spec Section 4.3).
func (r *Registers) SetOwnershipChangeRequest() {
	r.set(HcCommandStatus, CommandStatusOCR)
}

// Reset pulses the host-controller-reset bit and spins until it
// self-clears, returning once the controller has accepted the reset.
func (r *Registers) Reset() {
	r.set(HcCommandStatus, CommandStatusHCR)
	Wait(r.Window, HcCommandStatus, CommandStatusHCR, 0x1, 0)
}

// SetListFilled sets CLF or BLF in HcCommandStatus to nudge the
// controller into re-checking a non-periodic list (spec Section 4.6).
func (r *Registers) SetListFilled(pos int) {
	r.set(HcCommandStatus, pos)
}

// InterruptStatus reads HcInterruptStatus.
func (r *Registers) InterruptStatus() uint32 {
	return r.read(HcInterruptStatus)
}

// AckInterrupts write-clears the given bits in HcInterruptStatus.
func (r *Registers) AckInterrupts(bits uint32) {
	r.write(HcInterruptStatus, bits)
}

// EnableInterrupts programs HcInterruptEnable with the handled mask plus
// the master interrupt enable bit.
func (r *Registers) EnableInterrupts(mask uint32) {
	r.write(HcInterruptEnable, mask)
	r.set(HcInterruptEnable, InterruptMI)
}

// SetHCCA publishes the HCCA's physical address to HcHCCA.
func (r *Registers) SetHCCA(addr uint32) {
	r.write(HcHCCA, addr)
}

// SetControlHead publishes the control list's physical head pointer.
func (r *Registers) SetControlHead(addr uint32) {
	r.write(HcControlHeadED, addr)
}

// SetBulkHead publishes the bulk list's physical head pointer.
func (r *Registers) SetBulkHead(addr uint32) {
	r.write(HcBulkHeadED, addr)
}

// ClearControlCurrent zeroes HcControlCurrentED so the controller re-reads
// the list from its head (spec Section 4.5).
func (r *Registers) ClearControlCurrent() {
	r.write(HcControlCurrentED, 0)
}

// ClearBulkCurrent zeroes HcBulkCurrentED so the controller re-reads the
// list from its head (spec Section 4.5).
func (r *Registers) ClearBulkCurrent() {
	r.write(HcBulkCurrentED, 0)
}

// FrameInterval returns the FI field of HcFmInterval.
func (r *Registers) FrameInterval() uint32 {
	return r.get(HcFmInterval, FmIntervalFI, 0x3fff)
}

// FrameIntervalRaw returns the full HcFmInterval register, FI/FSMPS/FIT
// fields included, for the snapshot-then-restore sequence of spec Section
// 4.4 steps 1 and 3: the vendor calibrates more than just FI, and a
// controller reset clobbers the whole register.
func (r *Registers) FrameIntervalRaw() uint32 {
	return r.read(HcFmInterval)
}

// SetFrameInterval restores a previously snapshotted HcFmInterval value
// (spec Section 4.4 step 3), preserving the FSMPS/FIT fields alongside FI.
func (r *Registers) SetFrameInterval(val uint32) {
	r.write(HcFmInterval, val)
}

// SetPeriodicStart programs HcPeriodicStart.
func (r *Registers) SetPeriodicStart(val uint32) {
	r.write(HcPeriodicStart, val)
}

// LegacyEmulation reads the vendor-extension legacy emulation register.
func (r *Registers) LegacyEmulation() uint32 {
	return r.read(HceControl)
}

// MaskLegacyEmulation retains only the gate-A20 bit of the legacy
// emulation register, per spec Section 4.3 step 1: clearing it directly
// (writing zero) reboots some platforms, so the gate-A20 bit is kept as
// observed and every bit outside gate-A20 is cleared.
func (r *Registers) MaskLegacyEmulation() {
	cur := r.read(HceControl)
	r.write(HceControl, cur&(1<<HceControlA20))
}
