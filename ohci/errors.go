package ohci

import "errors"

// Error kinds surfaced by the core, see spec Section 7.
var (
	// ErrNoMemory is returned when allocation of an ED, the HCCA, or a
	// batch's descriptor chain fails.
	ErrNoMemory = errors.New("ohci: out of memory")

	// ErrNoSuchEndpoint is returned when a remove or get operation
	// targets an (address, endpoint, direction) tuple that was never
	// registered.
	ErrNoSuchEndpoint = errors.New("ohci: no such endpoint")

	// ErrOverflow is returned when the IRQ command program output
	// buffer is too small, or the register window is smaller than the
	// register file it must back.
	ErrOverflow = errors.New("ohci: overflow")

	// ErrBandwidthExhausted is returned when registering a periodic
	// endpoint would exceed the bandwidth budget.
	ErrBandwidthExhausted = errors.New("ohci: bandwidth exhausted")

	// ErrHardwareUnrecoverable marks the condition observed on an
	// Unrecoverable Error (UE) interrupt. The driver recovers by
	// re-running Start; it is never returned to a caller synchronously
	// since UE is only ever observed from interrupt dispatch.
	ErrHardwareUnrecoverable = errors.New("ohci: unrecoverable hardware error")

	// ErrAddressAlloc is returned when the address allocator collaborator
	// fails to hand out a device address.
	ErrAddressAlloc = errors.New("ohci: address allocation failed")
)
