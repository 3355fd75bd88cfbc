package ohci

import "testing"

func newTestController(t *testing.T) (*Controller, *fakeRootHub) {
	t.Helper()

	region := newTestRegion(t, 64*1024)
	w := newByteWindow(int(HceControl) + 4)
	rootHub := &fakeRootHub{address: 0}
	registrar := NewRegistrar()

	c, err := New(w, region, rootHub, registrar)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	return c, rootHub
}

func TestNewChainsInterruptToIsochronousAndPublishesHCCA(t *testing.T) {
	c, _ := newTestController(t)

	heads := c.HCCA.InterruptHeads()
	for slot, head := range heads {
		if head != c.interrupt.HeadPhysAddr() {
			t.Fatalf("InterruptHeads()[%d] = %#x, want %#x", slot, head, c.interrupt.HeadPhysAddr())
		}
	}

	walk := c.interrupt.Walk()
	if len(walk) != 2 || walk[1] != c.isochronous.HeadPhysAddr() {
		t.Fatalf("interrupt list not chained to isochronous head: %v", walk)
	}
}

func TestAddEndpointRollsBackOnBandwidthExhaustion(t *testing.T) {
	c, _ := newTestController(t)

	// exhaust the periodic budget with one endpoint
	if _, err := c.AddEndpoint(1, 1, DirIn, TypeInterrupt, SpeedFull, 64, maxPeriodicBandwidth); err != nil {
		t.Fatalf("first AddEndpoint: %v", err)
	}

	before := c.Registrar.BandwidthUsed()

	if _, err := c.AddEndpoint(2, 1, DirIn, TypeInterrupt, SpeedFull, 64, 1); err != ErrBandwidthExhausted {
		t.Fatalf("second AddEndpoint = %v, want ErrBandwidthExhausted", err)
	}

	if got := c.Registrar.BandwidthUsed(); got != before {
		t.Fatalf("BandwidthUsed() after rejected AddEndpoint = %d, want unchanged %d", got, before)
	}

	if len(c.interrupt.entries) != 1 {
		t.Fatalf("interrupt list has %d entries, want 1 (rejected ED must not be linked)", len(c.interrupt.entries))
	}
}

func TestAddRemoveEndpointRoundTrip(t *testing.T) {
	c, _ := newTestController(t)

	ep, err := c.AddEndpoint(1, 2, DirOut, TypeBulk, SpeedFull, 64, 0)
	if err != nil {
		t.Fatalf("AddEndpoint: %v", err)
	}

	if len(c.bulk.entries) != 1 {
		t.Fatalf("bulk list has %d entries after AddEndpoint, want 1", len(c.bulk.entries))
	}

	if err := c.RemoveEndpoint(1, 2, DirOut, TypeBulk); err != nil {
		t.Fatalf("RemoveEndpoint: %v", err)
	}

	if len(c.bulk.entries) != 0 {
		t.Fatalf("bulk list has %d entries after RemoveEndpoint, want 0", len(c.bulk.entries))
	}

	if _, err := c.Registrar.Get(1, 2, DirOut); err != ErrNoSuchEndpoint {
		t.Fatalf("Get after RemoveEndpoint = %v, want ErrNoSuchEndpoint", err)
	}

	_ = ep
}

// TestScheduleRootHubForwarding asserts a batch addressed to the root hub
// is forwarded synchronously and never enters the pending set.
func TestScheduleRootHubForwarding(t *testing.T) {
	c, rootHub := newTestController(t)

	b := &fakeBatch{endpoint: rootHub.address}

	if err := c.Schedule(b, TypeControl); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	if len(rootHub.requests) != 1 || rootHub.requests[0] != b {
		t.Fatalf("root hub did not receive the forwarded batch")
	}
	if b.committed {
		t.Fatalf("forwarded batch was Commit()ed; the root-hub path must not call Commit")
	}
	if c.PendingCount() != 0 {
		t.Fatalf("PendingCount() = %d, want 0 for a root-hub batch", c.PendingCount())
	}
}

// TestScheduleAppendsPendingAndNudgesListFilled asserts Testable Property
// 3: a non-root-hub batch is tracked in the pending set and the matching
// *LF bit is nudged.
func TestScheduleAppendsPendingAndNudgesListFilled(t *testing.T) {
	c, _ := newTestController(t)
	w := c.Regs.Window.(*byteWindow)

	b := &fakeBatch{endpoint: 5}

	if err := c.Schedule(b, TypeBulk); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	if c.PendingCount() != 1 {
		t.Fatalf("PendingCount() = %d, want 1", c.PendingCount())
	}
	if !b.committed {
		t.Fatalf("Commit was not called on the scheduled batch")
	}

	got := w.Read(HcCommandStatus)
	if got&(1<<CommandStatusBLF) == 0 {
		t.Fatalf("HcCommandStatus BLF bit not set after scheduling a bulk batch")
	}
}

// TestScheduleRemovesBatchOnCommitFailure asserts Testable Property 3
// (pending-batch closure): a batch whose Commit fails must not be left in
// the pending set, since it will never become reachable by the
// controller and so would never satisfy IsComplete.
func TestScheduleRemovesBatchOnCommitFailure(t *testing.T) {
	c, _ := newTestController(t)

	b := &fakeBatch{endpoint: 5, commitError: ErrNoMemory}

	if err := c.Schedule(b, TypeBulk); err != ErrNoMemory {
		t.Fatalf("Schedule = %v, want ErrNoMemory", err)
	}

	if c.PendingCount() != 0 {
		t.Fatalf("PendingCount() = %d after a failed Commit, want 0", c.PendingCount())
	}
}

// TestDispatchIdempotentOnZeroOrSFOnly asserts Testable Property 4.
func TestDispatchIdempotentOnZeroOrSFOnly(t *testing.T) {
	c, rootHub := newTestController(t)

	c.Dispatch(0)
	c.Dispatch(1 << InterruptSF)

	if rootHub.interrupts != 0 {
		t.Fatalf("RootHub.Interrupt() called on a zero/SF-only status")
	}
}

func TestDispatchWDHReapsCompletedBatches(t *testing.T) {
	c, _ := newTestController(t)

	done := &fakeBatch{endpoint: 5, complete: true}
	pending := &fakeBatch{endpoint: 6, complete: false}

	c.Schedule(done, TypeBulk)
	c.Schedule(pending, TypeBulk)

	c.Dispatch(1 << InterruptWDH)

	if !done.finished {
		t.Fatalf("completed batch was not Finish()ed on WDH")
	}
	if pending.finished {
		t.Fatalf("incomplete batch was Finish()ed on WDH")
	}
	if c.PendingCount() != 1 {
		t.Fatalf("PendingCount() = %d, want 1 (only the incomplete batch remains)", c.PendingCount())
	}
}

func TestDispatchRHSCForwardsToRootHub(t *testing.T) {
	c, rootHub := newTestController(t)

	c.Dispatch(1 << InterruptRHSC)

	if rootHub.interrupts != 1 {
		t.Fatalf("RootHub.Interrupt() called %d times, want 1", rootHub.interrupts)
	}
}

// TestRegisterDeviceAllocatesAddsAndBinds asserts the hub registration
// flow of spec Section 7's happy path: an address is allocated, endpoint
// zero is added to the control list, and the address is bound.
func TestRegisterDeviceAllocatesAddsAndBinds(t *testing.T) {
	c, _ := newTestController(t)
	alloc := newFakeAllocator()

	handle := "device-handle"

	ep, address, err := c.RegisterDevice(alloc, SpeedFull, handle)
	if err != nil {
		t.Fatalf("RegisterDevice: %v", err)
	}

	if ep.Address != address || ep.Number != 0 {
		t.Fatalf("RegisterDevice endpoint = %+v, want address %d endpoint 0", ep, address)
	}
	if alloc.bound[address] != handle {
		t.Fatalf("address %d not bound to %v", address, handle)
	}
	if len(c.control.entries) != 1 {
		t.Fatalf("control list has %d entries after RegisterDevice, want 1", len(c.control.entries))
	}
}

// TestRegisterDeviceRollsBackOnAddEndpointFailure asserts that when
// AddEndpoint fails after an address was already allocated, the address
// is released back to the allocator (spec Section 7's
// "address-alloc-failed" rollback, applied to the AddEndpoint-fails leg).
func TestRegisterDeviceRollsBackOnAddEndpointFailure(t *testing.T) {
	c, _ := newTestController(t)
	alloc := newFakeAllocator()

	// exhaust the control endpoint's own tuple so the second
	// registration's AddEndpoint->Register call collides.
	if _, err := c.AddEndpoint(1, 0, DirFromTD, TypeControl, SpeedFull, 8, 0); err != nil {
		t.Fatalf("seed AddEndpoint: %v", err)
	}

	if _, _, err := c.RegisterDevice(alloc, SpeedFull, "dup"); err == nil {
		t.Fatalf("RegisterDevice = nil error, want the registrar's duplicate-tuple error")
	}

	if len(alloc.released) != 1 || alloc.released[0] != 1 {
		t.Fatalf("released addresses = %v, want [1]", alloc.released)
	}
	if _, bound := alloc.bound[1]; bound {
		t.Fatalf("address 1 left bound after AddEndpoint failure")
	}
}

// TestRegisterDeviceRollsBackOnBindFailure asserts that when Bind fails,
// the endpoint added for the attempt is torn down and the address
// released, leaving the registrar and allocator as if RegisterDevice had
// never been called.
func TestRegisterDeviceRollsBackOnBindFailure(t *testing.T) {
	c, _ := newTestController(t)
	alloc := newFakeAllocator()
	alloc.bindError = ErrAddressAlloc

	if _, _, err := c.RegisterDevice(alloc, SpeedFull, "handle"); err != ErrAddressAlloc {
		t.Fatalf("RegisterDevice = %v, want ErrAddressAlloc", err)
	}

	if len(alloc.released) != 1 || alloc.released[0] != 1 {
		t.Fatalf("released addresses = %v, want [1]", alloc.released)
	}
	if len(c.control.entries) != 0 {
		t.Fatalf("control list has %d entries after Bind failure, want 0", len(c.control.entries))
	}
	if _, err := c.Registrar.Get(1, 0, DirFromTD); err != ErrNoSuchEndpoint {
		t.Fatalf("registrar still holds endpoint zero after Bind failure rollback")
	}
}

// TestRegisterDeviceRollsBackOnAddressAllocFailure asserts the
// GetFreeAddress failure leg: no endpoint is added and nothing is
// released, since nothing was allocated.
func TestRegisterDeviceRollsBackOnAddressAllocFailure(t *testing.T) {
	c, _ := newTestController(t)
	alloc := newFakeAllocator()
	alloc.failAt = 1

	if _, _, err := c.RegisterDevice(alloc, SpeedFull, "handle"); err != ErrAddressAlloc {
		t.Fatalf("RegisterDevice = %v, want ErrAddressAlloc", err)
	}

	if len(c.control.entries) != 0 {
		t.Fatalf("control list has %d entries after address-alloc failure, want 0", len(c.control.entries))
	}
	if len(alloc.released) != 0 {
		t.Fatalf("released addresses = %v, want none (nothing was allocated)", alloc.released)
	}
}
