package ohci

import (
	"github.com/tamago-usb/ohci/dma"
)

// EndpointList is one per transfer type (isochronous, interrupt, control,
// bulk). It owns a sentinel head ED in DMA memory, whose physical address
// is the one ever exported to the controller, plus the ordered logical
// sequence of EDs linked after it. Following Section 9's guidance, this is
// not a generic intrusive-list abstraction: it exposes only Append and
// Remove, both guarded by the enable-toggle protocol, because a generic
// list type would invite mutations that don't go through that protocol.
type EndpointList struct {
	typ    EndpointType
	region *dma.Region
	regs   *Registers
	enableBits []int // HcControl bit(s) gating this list

	head    *ED   // sentinel, never carries a transfer
	entries []*ED // logical order, head excluded

	// next chains this list into another list's traversal (the
	// interrupt list's sentinel links to the isochronous list's head,
	// spec Section 4.2). Only the interrupt list uses this.
	next *EndpointList
}

// NewEndpointList allocates a sentinel head ED and returns an empty list
// for the given transfer type.
func NewEndpointList(typ EndpointType, region *dma.Region, regs *Registers) (*EndpointList, error) {
	head, err := NewED(region, 0, 0, DirFromTD, SpeedFull, 0)

	if err != nil {
		return nil, err
	}

	var enable []int

	switch typ {
	case TypeControl:
		enable = []int{ControlCLE}
	case TypeBulk:
		enable = []int{ControlBLE}
	case TypeInterrupt, TypeIsochronous:
		enable = []int{ControlPLE, ControlIE}
	}

	return &EndpointList{
		typ:        typ,
		region:     region,
		regs:       regs,
		enableBits: enable,
		head:       head,
	}, nil
}

// HeadPhysAddr returns the physical address of the list's sentinel head,
// the value registered with the controller (HcControlHeadED,
// HcBulkHeadED, or every HCCA interrupt-table slot).
func (l *EndpointList) HeadPhysAddr() uint32 {
	return l.head.PhysAddr()
}

// ChainTo links this list's sentinel to another list's head, so the
// controller's periodic traversal continues from the end of this list
// into the next one. Used once, at init, to chain the interrupt list
// into the isochronous list (spec Section 4.2).
func (l *EndpointList) ChainTo(next *EndpointList) {
	l.next = next
	l.head.SetNext(next.HeadPhysAddr())
}

// Walk returns the physical addresses reachable from the list's head, in
// traversal order, by following NextED pointers starting at the sentinel.
// Used by tests to assert Testable Property 1 (schedule reachability).
// The walk stops at the first address that is not one of this list's own
// entries, so a chained list's head is the last address returned.
func (l *EndpointList) Walk() []uint32 {
	addrs := []uint32{l.head.PhysAddr()}

	cur := l.head

	for {
		n := cur.Next()

		if n == 0 {
			break
		}

		addrs = append(addrs, n)

		next, ok := l.find(n)

		if !ok {
			break
		}

		cur = next
	}

	return addrs
}

func (l *EndpointList) find(physAddr uint32) (*ED, bool) {
	for _, e := range l.entries {
		if e.PhysAddr() == physAddr {
			return e, true
		}
	}

	return nil, false
}

// Append links a new ED at the tail of the list under the enable-toggle
// protocol (spec Section 4.5): clear the list's enable bit(s), link, for
// control/bulk also clear the current-ED register so the controller
// re-reads the head, then re-set the enable bit(s). clearCurrent should
// be the list's current-ED reset for control and bulk lists, and nil for
// periodic lists (they have no "current" register to reset, Section 4.5).
func (l *EndpointList) Append(e *ED, clearCurrent func()) {
	l.toggle(func() {
		tail := l.head

		if n := len(l.entries); n > 0 {
			tail = l.entries[n-1]
		}

		tail.SetNext(e.PhysAddr())

		// the new tail inherits the chain into the next list, if any
		var nextAddr uint32

		if l.next != nil {
			nextAddr = l.next.HeadPhysAddr()
		}

		e.SetNext(nextAddr)

		l.entries = append(l.entries, e)

		if clearCurrent != nil {
			clearCurrent()
		}
	})
}

// Remove unlinks an ED from the list under the enable-toggle protocol. It
// is a no-op, returning false, if the ED is not a member of this list.
func (l *EndpointList) Remove(e *ED, clearCurrent func()) bool {
	idx := -1

	for i, entry := range l.entries {
		if entry == e {
			idx = i
			break
		}
	}

	if idx == -1 {
		return false
	}

	l.toggle(func() {
		prev := l.head

		if idx > 0 {
			prev = l.entries[idx-1]
		}

		var nextAddr uint32

		if idx+1 < len(l.entries) {
			nextAddr = l.entries[idx+1].PhysAddr()
		} else if l.next != nil {
			nextAddr = l.next.HeadPhysAddr()
		}

		prev.SetNext(nextAddr)

		l.entries = append(l.entries[:idx], l.entries[idx+1:]...)

		if clearCurrent != nil {
			clearCurrent()
		}
	})

	return true
}

// toggle implements the enable-toggle protocol itself: clear every
// enable bit this list is gated by, run fn (the actual list mutation),
// then re-set the bits. This is the quiescence fence described in spec
// Section 5: the controller cannot be mid-traversal of a node fn unlinks,
// because the controller only walks a list whose enable bit is set.
func (l *EndpointList) toggle(fn func()) {
	for _, pos := range l.enableBits {
		l.regs.SetListEnable(pos, false)
	}

	fn()

	for _, pos := range l.enableBits {
		l.regs.SetListEnable(pos, true)
	}
}
