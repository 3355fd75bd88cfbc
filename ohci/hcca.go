package ohci

import (
	"encoding/binary"

	"github.com/tamago-usb/ohci/dma"
)

// HCCASize is the fixed size of the Host Controller Communication Area
// (spec Section 3): 32 interrupt-head pointers, a frame number, a pad, a
// done-queue head, and reserved space up to 256 bytes.
const HCCASize = 256

// HCCA alignment required by the OHCI specification.
const HCCAAlign = 256

const (
	hccaInterruptTable = 0   // 32 * 4 bytes
	hccaFrameNumber    = 128 // uint16
	hccaPad            = 130 // uint16
	hccaDoneHead       = 132 // uint32
)

// HCCA is the driver-side handle to the 256-byte DMA-coherent Host
// Controller Communication Area. The controller continuously writes the
// frame number, done-queue head, and (indirectly, via its own traversal)
// reads the interrupt table; the driver never mutates hccaFrameNumber or
// hccaDoneHead itself (spec Section 3 invariant).
type HCCA struct {
	region *dma.Region
	addr   uint
	buf    []byte
}

// NewHCCA allocates and zeroes a 256-byte, 256-byte-aligned HCCA block
// from the given DMA region (spec Section 4.2).
func NewHCCA(region *dma.Region) (*HCCA, error) {
	addr := region.AllocZeroed(HCCASize, HCCAAlign)

	if addr == 0 {
		return nil, ErrNoMemory
	}

	buf := make([]byte, HCCASize)
	region.Read(addr, 0, buf)

	return &HCCA{region: region, addr: addr, buf: buf}, nil
}

// PhysAddr returns the HCCA's physical address, published to HcHCCA.
func (h *HCCA) PhysAddr() uint32 {
	return uint32(h.addr)
}

// SetInterruptHead populates all 32 interrupt-head slots with the
// physical head pointer of the interrupt endpoint list (spec Section
// 4.2), establishing the steady-state invariant of Testable Property 5.
func (h *HCCA) SetInterruptHead(edPhysAddr uint32) {
	for slot := 0; slot < 32; slot++ {
		binary.LittleEndian.PutUint32(h.buf[hccaInterruptTable+slot*4:], edPhysAddr)
	}

	h.region.Write(h.addr, hccaInterruptTable, h.buf[hccaInterruptTable:hccaInterruptTable+32*4])
}

// InterruptHeads reads back the 32 interrupt-head slots, refreshing the
// local cache from DMA memory first since the controller never writes
// this table itself but another party (a debugger, a test) might.
func (h *HCCA) InterruptHeads() [32]uint32 {
	h.refresh()

	var heads [32]uint32
	for slot := 0; slot < 32; slot++ {
		heads[slot] = binary.LittleEndian.Uint32(h.buf[hccaInterruptTable+slot*4:])
	}

	return heads
}

// DoneHead reads back HCCA's done-queue head, which the controller may
// overwrite at any time (spec Section 3 invariant); the driver consults
// it only while servicing a WDH interrupt, by which point the controller
// has finished writing it for this cycle.
func (h *HCCA) DoneHead() uint32 {
	h.refresh()
	return binary.LittleEndian.Uint32(h.buf[hccaDoneHead:])
}

// FrameNumber reads back the 16-bit frame counter the controller
// maintains.
func (h *HCCA) FrameNumber() uint16 {
	h.refresh()
	return binary.LittleEndian.Uint16(h.buf[hccaFrameNumber:])
}

func (h *HCCA) refresh() {
	h.region.Read(h.addr, 0, h.buf)
}
