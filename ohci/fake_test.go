package ohci

import (
	"encoding/binary"
	"unsafe"

	"github.com/tamago-usb/ohci/dma"
)

// testRegionBufs pins every backing buffer newTestRegion hands to the
// global DMA region for the lifetime of the test binary. dma.Region's
// unsafe-pointer read/write dereference the region's start address
// directly rather than holding a Go-visible reference to the buffer, so
// without this the garbage collector would be free to reclaim a buffer
// the moment newTestRegion returns.
var testRegionBufs [][]byte

// newTestRegion bootstraps the package-global DMA region over a real
// byte buffer so tests exercise the actual dma.Region allocator
// (first-fit, alignment, read/write) rather than a fake.
func newTestRegion(t testingT, size int) *dma.Region {
	t.Helper()

	buf := make([]byte, size)
	testRegionBufs = append(testRegionBufs, buf)

	start := uint(uintptr(unsafe.Pointer(&buf[0])))
	dma.Init(start, uint(size))

	return dma.Default()
}

// testingT is the subset of *testing.T newTestRegion needs, so it can be
// called from any _test.go file without importing "testing" twice.
type testingT interface {
	Helper()
}

// byteWindow is a Window backed by a plain byte slice, used so tests run
// under a hosted GOOS instead of requiring GOOS=tamago and a real
// mapping. It records every write so tests can assert Testable Property
// 2 (enable-toggle safety) by inspecting the order of writes to
// HcControl.
type byteWindow struct {
	buf     []byte
	writes  []writeRecord
	record  bool
}

type writeRecord struct {
	offset uint32
	val    uint32
}

func newByteWindow(size int) *byteWindow {
	return &byteWindow{buf: make([]byte, size), record: true}
}

func (w *byteWindow) Read(offset uint32) uint32 {
	return binary.LittleEndian.Uint32(w.buf[offset:])
}

func (w *byteWindow) Write(offset uint32, val uint32) {
	if w.record {
		w.writes = append(w.writes, writeRecord{offset, val})
	}

	if offset == HcInterruptStatus {
		// HcInterruptStatus is write-1-to-clear on real silicon: each
		// bit written as 1 clears that bit, bits written as 0 are kept.
		val = binary.LittleEndian.Uint32(w.buf[offset:]) &^ val
	}

	if offset == HcCommandStatus {
		// Real silicon self-clears HCR once a reset completes; since
		// this fake has no reset latency to model, clear it
		// immediately so Registers.Reset's Wait spin terminates.
		val &^= 1 << CommandStatusHCR

		if val&(1<<CommandStatusOCR) != 0 {
			// Simulate firmware/SMM relinquishing ownership in
			// response to the request, clearing HcControl's IR bit
			// so GainControl's handoff spin terminates.
			ir := binary.LittleEndian.Uint32(w.buf[HcControl:])
			binary.LittleEndian.PutUint32(w.buf[HcControl:], ir&^(1<<ControlIR))
		}
	}

	binary.LittleEndian.PutUint32(w.buf[offset:], val)
}

func (w *byteWindow) Size() uint32 {
	return uint32(len(w.buf))
}

// fakeRootHub is a minimal RootHub collaborator double.
type fakeRootHub struct {
	address      int
	requests     []Batch
	interrupts   int
	requestError error
}

func (h *fakeRootHub) Init(regs *Registers) {}

func (h *fakeRootHub) Request(b Batch) error {
	h.requests = append(h.requests, b)
	return h.requestError
}

func (h *fakeRootHub) Interrupt() {
	h.interrupts++
}

func (h *fakeRootHub) Address() int {
	return h.address
}

// fakeBatch is a minimal Batch collaborator double.
type fakeBatch struct {
	endpoint    int
	committed   bool
	commitError error
	complete    bool
	finished    bool
}

func (b *fakeBatch) Endpoint() int { return b.endpoint }

func (b *fakeBatch) Commit() error {
	b.committed = true
	return b.commitError
}

func (b *fakeBatch) IsComplete() bool { return b.complete }

func (b *fakeBatch) Finish() { b.finished = true }

// fakeAllocator is a minimal AddressAllocator collaborator double.
type fakeAllocator struct {
	next      int
	bound     map[int]interface{}
	failAt    int
	bindError error
	released  []int
}

func newFakeAllocator() *fakeAllocator {
	return &fakeAllocator{next: 1, bound: make(map[int]interface{})}
}

func (a *fakeAllocator) GetFreeAddress(speed Speed) (int, error) {
	if a.failAt != 0 && a.next == a.failAt {
		return 0, ErrAddressAlloc
	}

	addr := a.next
	a.next++

	return addr, nil
}

func (a *fakeAllocator) Bind(address int, handle interface{}) error {
	if a.bindError != nil {
		return a.bindError
	}

	a.bound[address] = handle
	return nil
}

func (a *fakeAllocator) Release(address int) {
	a.released = append(a.released, address)
	delete(a.bound, address)
}
