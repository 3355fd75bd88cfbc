package ohci

import (
	"context"
	"log"
	"sync"

	"github.com/tamago-usb/ohci/dma"
)

// Controller is the root object of the driver: it owns the mapped
// register window, the HCCA, the four per-transfer-type endpoint lists,
// the pending-batch set, a mutual-exclusion guard, the root-hub
// collaborator, the endpoint registrar, and optionally a polling task
// handle (spec Section 3). Its lifetime spans driver attachment to
// detachment.
type Controller struct {
	mu sync.Mutex

	Regs      *Registers
	HCCA      *HCCA
	region    *dma.Region
	RootHub   RootHub
	Registrar *Registrar

	control     *EndpointList
	bulk        *EndpointList
	interrupt   *EndpointList
	isochronous *EndpointList

	pending *pendingSet

	poller *Poller
}

// New constructs a Controller over the given register window and DMA
// region, allocating the HCCA and the four endpoint lists, and chaining
// the interrupt list into the isochronous list per spec Section 4.2. It
// does not yet gain control of or start the hardware: call GainControl
// then Start.
func New(w Window, region *dma.Region, rootHub RootHub, registrar *Registrar) (*Controller, error) {
	regs, err := NewRegisters(w)

	if err != nil {
		return nil, err
	}

	hcca, err := NewHCCA(region)

	if err != nil {
		return nil, err
	}

	control, err := NewEndpointList(TypeControl, region, regs)
	if err != nil {
		return nil, err
	}

	bulk, err := NewEndpointList(TypeBulk, region, regs)
	if err != nil {
		return nil, err
	}

	interrupt, err := NewEndpointList(TypeInterrupt, region, regs)
	if err != nil {
		return nil, err
	}

	isochronous, err := NewEndpointList(TypeIsochronous, region, regs)
	if err != nil {
		return nil, err
	}

	interrupt.ChainTo(isochronous)
	hcca.SetInterruptHead(interrupt.HeadPhysAddr())

	c := &Controller{
		Regs:        regs,
		HCCA:        hcca,
		region:      region,
		RootHub:     rootHub,
		Registrar:   registrar,
		control:     control,
		bulk:        bulk,
		interrupt:   interrupt,
		isochronous: isochronous,
		pending:     newPendingSet(),
	}

	rootHub.Init(regs)

	return c, nil
}

// StartPolling attaches and runs a Poller for this controller in its own
// goroutine, for platforms that cannot route the controller's interrupt
// line (spec Section 4.8). Calling it twice without an intervening
// StopPolling is a programming error and panics.
func (c *Controller) StartPolling(ctx context.Context) {
	if c.poller != nil {
		panic("ohci: polling already started")
	}

	c.poller = NewPoller(c)
	go c.poller.Run(ctx)
}

// StopPolling cooperatively stops a previously started Poller.
func (c *Controller) StopPolling() {
	if c.poller == nil {
		return
	}

	c.poller.Stop()
	c.poller = nil
}

func (c *Controller) listFor(typ EndpointType) *EndpointList {
	switch typ {
	case TypeControl:
		return c.control
	case TypeBulk:
		return c.bulk
	case TypeInterrupt:
		return c.interrupt
	default:
		return c.isochronous
	}
}

// AddEndpoint constructs a logical endpoint and its hardware ED,
// registers it with the registrar (which may reject periodic types for
// bandwidth exhaustion), and links the ED into the list matching its
// transfer type under the enable-toggle protocol (spec Section 4.5).
//
// On any failure the prefix of the operation is rolled back: if
// registration fails the ED is freed before returning (spec Section 7's
// rollback policy).
func (c *Controller) AddEndpoint(address, number int, dir uint32, typ EndpointType, speed Speed, maxPacketSize, bandwidthBytes int) (*Endpoint, error) {
	ed, err := NewED(c.region, address, number, dir, speed, maxPacketSize)

	if err != nil {
		return nil, err
	}

	ep := &Endpoint{Address: address, Number: number, Direction: dir, Type: typ, ED: ed}

	if err := c.Registrar.Register(ep, bandwidthBytes); err != nil {
		ed.Free()
		return nil, err
	}

	list := c.listFor(typ)

	var clearCurrent func()

	switch typ {
	case TypeControl:
		clearCurrent = c.Regs.ClearControlCurrent
	case TypeBulk:
		clearCurrent = c.Regs.ClearBulkCurrent
	}

	c.mu.Lock()
	list.Append(ed, clearCurrent)
	c.mu.Unlock()

	return ep, nil
}

// RegisterDevice implements the hub registration flow of spec Section 7:
// it allocates a device address from alloc for the given speed, adds that
// device's endpoint zero (a control endpoint, max packet size 8 per the
// USB default control pipe), and binds the address to handle in the
// allocator. Any failure rolls back everything done so far (endpoint zero
// torn down, then the address released) before returning the error, so
// the allocator and registrar are left exactly as they were before the
// call.
func (c *Controller) RegisterDevice(alloc AddressAllocator, speed Speed, handle interface{}) (*Endpoint, int, error) {
	address, err := alloc.GetFreeAddress(speed)

	if err != nil {
		return nil, 0, ErrAddressAlloc
	}

	ep, err := c.AddEndpoint(address, 0, DirFromTD, TypeControl, speed, 8, 0)

	if err != nil {
		alloc.Release(address)
		return nil, 0, err
	}

	if err := alloc.Bind(address, handle); err != nil {
		c.RemoveEndpoint(address, 0, DirFromTD, TypeControl)
		alloc.Release(address)
		return nil, 0, err
	}

	return ep, address, nil
}

// RemoveEndpoint unlinks the endpoint's ED from its list under the
// enable-toggle protocol, then unregisters it. If the logical endpoint
// has no hardware descriptor (should not normally happen, but spec
// Section 9 preserves the behavior of HelenOS's driver here), it logs a
// warning and only unregisters, to avoid leaking the registrar entry on a
// partial setup.
func (c *Controller) RemoveEndpoint(address, number int, dir uint32, typ EndpointType) error {
	ep, err := c.Registrar.Get(address, number, dir)

	if err != nil {
		return err
	}

	if ep.ED == nil {
		log.Printf("ohci: removing endpoint %d.%d with no hardware descriptor", address, number)
		return c.Registrar.Unregister(address, number, dir)
	}

	list := c.listFor(typ)

	var clearCurrent func()

	switch typ {
	case TypeControl:
		clearCurrent = c.Regs.ClearControlCurrent
	case TypeBulk:
		clearCurrent = c.Regs.ClearBulkCurrent
	}

	c.mu.Lock()
	list.Remove(ep.ED, clearCurrent)
	c.mu.Unlock()

	ep.ED.Free()

	return c.Registrar.Unregister(address, number, dir)
}
