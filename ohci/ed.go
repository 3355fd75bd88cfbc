package ohci

import (
	"encoding/binary"

	"github.com/tamago-usb/ohci/bits"
	"github.com/tamago-usb/ohci/dma"
)

// EDSize is the on-the-wire size of an OHCI Endpoint Descriptor: four
// 32-bit words (control, TailP, HeadP, NextED).
const EDSize = 16

// EDAlign is the alignment an ED must satisfy (16 bytes, since HeadP's
// low 4 bits double as the Halted/Carry flags).
const EDAlign = 16

// ED word offsets.
const (
	edControl = 0
	edTailP   = 4
	edHeadP   = 8
	edNextED  = 12
)

// ED control word bitfields.
const (
	edFA  = 0  // function address, 7 bits
	edEN  = 7  // endpoint number, 4 bits
	edD   = 11 // direction, 2 bits
	edS   = 13 // speed (low-speed bit)
	edK   = 14 // skip
	edF   = 15 // format (isochronous)
	edMPS = 16 // max packet size, 11 bits
)

// Direction codes for the ED control word's D field.
const (
	DirFromTD = 0b00 // direction determined by the TD
	DirOut    = 0b01
	DirIn     = 0b10
)

// HeadP low bits.
const (
	edHeadHalted = 0 // halted bit
	edHeadCarry  = 1 // toggle carry bit
)

// EndpointType selects which of the controller's four schedules an
// endpoint belongs to (spec Section 3).
type EndpointType int

const (
	TypeControl EndpointType = iota
	TypeBulk
	TypeInterrupt
	TypeIsochronous
)

// ED is the driver-side handle to one DMA-coherent OHCI Endpoint
// Descriptor. Ownership follows spec Section 3 / 9: the endpoint list
// node that holds an ED is its exclusive owner in driver code; the
// controller only ever reads it (and writes HeadP to record halt/toggle
// state), so there is exactly one mutable Go-side reference to the
// backing memory at a time, never two aliases.
type ED struct {
	region *dma.Region
	addr   uint
	buf    []byte
}

// NewED allocates and zeroes an ED and programs its static fields
// (address, endpoint, direction, speed, max packet size). The queue
// (TailP/HeadP) starts empty (TailP == HeadP) and NextED is left
// terminated (zero) until the endpoint list links it in.
func NewED(region *dma.Region, address, endpoint int, dir uint32, speed Speed, maxPacketSize int) (*ED, error) {
	addr := region.AllocZeroed(EDSize, EDAlign)

	if addr == 0 {
		return nil, ErrNoMemory
	}

	e := &ED{region: region, addr: addr, buf: make([]byte, EDSize)}

	var control uint32
	bits.SetN(&control, edFA, 0x7f, uint32(address))
	bits.SetN(&control, edEN, 0xf, uint32(endpoint))
	bits.SetN(&control, edD, 0b11, dir)
	bits.SetTo(&control, edS, speed == SpeedLow)
	bits.SetN(&control, edMPS, 0x7ff, uint32(maxPacketSize))

	binary.LittleEndian.PutUint32(e.buf[edControl:], control)
	e.flush()

	return e, nil
}

// PhysAddr returns the ED's physical address.
func (e *ED) PhysAddr() uint32 {
	return uint32(e.addr)
}

// Skip sets or clears the K (skip) bit, used while a node is being
// unlinked from a list the controller may still be mid-traversal of is
// not itself the enable-toggle protocol (that is the list-enable bit in
// HcControl) but is available as an additional per-node safety the
// controller also honors.
func (e *ED) Skip(skip bool) {
	e.refresh()
	control := binary.LittleEndian.Uint32(e.buf[edControl:])
	bits.SetTo(&control, edK, skip)
	binary.LittleEndian.PutUint32(e.buf[edControl:], control)
	e.flush()
}

// SetNext sets the ED's NextED pointer, linking it to the next node in
// its list (or zero to terminate).
func (e *ED) SetNext(physAddr uint32) {
	binary.LittleEndian.PutUint32(e.buf[edNextED:], physAddr)
	e.region.Write(e.addr, edNextED, e.buf[edNextED:edNextED+4])
}

// Next returns the ED's NextED pointer.
func (e *ED) Next() uint32 {
	e.refresh()
	return binary.LittleEndian.Uint32(e.buf[edNextED:])
}

// Halted reports the HeadP halted bit, set by the controller when a TD
// in this endpoint's queue completed with an unrecoverable error.
func (e *ED) Halted() bool {
	e.refresh()
	head := binary.LittleEndian.Uint32(e.buf[edHeadP:])
	return bits.Get(&head, edHeadHalted)
}

// HeadP returns the ED's queue head pointer (with the low status bits
// masked off).
func (e *ED) HeadP() uint32 {
	e.refresh()
	head := binary.LittleEndian.Uint32(e.buf[edHeadP:])
	return head &^ 0xf
}

// TailP returns the ED's queue tail pointer.
func (e *ED) TailP() uint32 {
	e.refresh()
	return binary.LittleEndian.Uint32(e.buf[edTailP:])
}

// SetTailP sets the ED's queue tail pointer, the operation Batch.Commit
// uses to append a new transfer descriptor chain (spec Section 4.6).
func (e *ED) SetTailP(physAddr uint32) {
	binary.LittleEndian.PutUint32(e.buf[edTailP:], physAddr)
	e.region.Write(e.addr, edTailP, e.buf[edTailP:edTailP+4])
}

// Free releases the ED's backing DMA memory. Callers must ensure the ED
// has already been unlinked from any list the controller can reach.
func (e *ED) Free() {
	e.region.Free(e.addr)
}

func (e *ED) flush() {
	e.region.Write(e.addr, 0, e.buf)
}

func (e *ED) refresh() {
	e.region.Read(e.addr, 0, e.buf)
}
