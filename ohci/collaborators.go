package ohci

// RootHub is the collaborator that owns root-hub port emulation state. The
// core forwards batches addressed to the root hub, and status-change
// interrupts, to it unchanged; its internals are out of scope for this
// core (spec Section 1).
type RootHub interface {
	// Init gives the root hub access to the controller's register
	// window once it has been mapped.
	Init(regs *Registers)

	// Request handles a batch addressed to the root-hub's own device
	// address, synchronously. The core never schedules these through
	// the normal batch scheduler.
	Request(b Batch) error

	// Interrupt is invoked from interrupt dispatch on a root-hub
	// status-change (RHSC) event.
	Interrupt()

	// Address returns the device address reserved for the root hub.
	Address() int
}

// Batch is an externally defined unit of transfer work bound to one
// endpoint. The scheduler tracks it from Commit until IsComplete reports
// true, at which point Finish is invoked with the controller's guard held.
type Batch interface {
	// Endpoint returns the device address of the endpoint this batch
	// targets, used to route root-hub-addressed batches.
	Endpoint() int

	// Commit links the batch's transfer descriptors into its
	// endpoint's descriptor queue, making them reachable by the
	// controller.
	Commit() error

	// IsComplete reports whether every transfer descriptor in the
	// batch has been retired by the controller. Implementation of the
	// actual predicate (TD done bits, done-queue membership) is left
	// to the collaborator.
	IsComplete() bool

	// Finish fires the batch's completion callback. Finish is called
	// with the controller's guard held; it must be bounded and
	// non-blocking, and it must not re-enter the scheduler for the
	// same controller instance.
	Finish()
}

// AddressAllocator is the generic USB device-address bookkeeper, treated
// as a collaborator per spec Section 1. Controller.RegisterDevice drives
// it through the hub registration flow of spec Section 7:
// GetFreeAddress, then AddEndpoint for the new device's endpoint zero,
// then Bind; a failure at either of the latter two steps releases the
// address back to the allocator.
type AddressAllocator interface {
	// GetFreeAddress reserves and returns an address appropriate for
	// the given speed, or an error if none is available.
	GetFreeAddress(speed Speed) (address int, err error)

	// Bind associates an allocated address with a caller-defined
	// handle (typically the logical device record).
	Bind(address int, handle interface{}) error

	// Release returns a previously allocated address to the free
	// pool.
	Release(address int)
}

// Speed enumerates USB signaling speeds relevant to OHCI (USB 1.1 only
// knows full and low speed; the field exists because endpoint descriptors
// carry a speed bit and the address allocator's decision may depend on
// it).
type Speed int

const (
	// SpeedFull is the default USB 1.1 signaling rate.
	SpeedFull Speed = iota
	// SpeedLow is used by low-bandwidth peripherals (e.g. HID).
	SpeedLow
)

// IRQFilter is the kernel-side collaborator that interprets the IRQ
// pseudo-program built in irqprog.go and wakes the driver task once it
// accepts an interrupt. Modeled as an interface because the real
// interpreter lives in the host OS/microkernel, outside this core's
// scope; see Section 4.2 and 6.2.
type IRQFilter interface {
	// Export registers the program with the kernel's interrupt
	// filtering facility for the controller's IRQ line. It is called
	// once, after the status register mapping has been faulted in.
	Export(p *IRQProgram) error
}
