package ohci

import "container/list"

// pendingSet is the ordered sequence of in-flight batches (spec Section
// 3). Built on container/list, the same choice dma.Region makes for its
// free-block list, rather than a hand-rolled doubly linked list.
type pendingSet struct {
	l *list.List
}

func newPendingSet() *pendingSet {
	return &pendingSet{l: list.New()}
}

func (s *pendingSet) append(b Batch) *list.Element {
	return s.l.PushBack(b)
}

func (s *pendingSet) remove(e *list.Element) {
	s.l.Remove(e)
}

func (s *pendingSet) elements() []*list.Element {
	elems := make([]*list.Element, 0, s.l.Len())

	for e := s.l.Front(); e != nil; e = e.Next() {
		elems = append(elems, e)
	}

	return elems
}

func (s *pendingSet) len() int {
	return s.l.Len()
}

// Schedule appends a transfer batch to the pending set and commits it to
// hardware (spec Section 4.6). A batch addressed to the root hub is
// forwarded synchronously instead and never enters the pending set, since
// the root hub is emulated in software rather than walked by the
// controller.
func (c *Controller) Schedule(b Batch, typ EndpointType) error {
	if b.Endpoint() == c.RootHub.Address() {
		return c.RootHub.Request(b)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.pending.append(b)

	if err := b.Commit(); err != nil {
		c.pending.remove(e)
		return err
	}

	switch typ {
	case TypeControl:
		c.Regs.SetListFilled(CommandStatusCLF)
	case TypeBulk:
		c.Regs.SetListFilled(CommandStatusBLF)
	}

	return nil
}

// reapCompleted walks the pending-batch set under the guard, completing
// and removing every batch whose IsComplete predicate returns true (spec
// Section 4.7, WDH branch). Called with the guard already held by the
// caller (Dispatch).
func (c *Controller) reapCompleted() {
	for _, e := range c.pending.elements() {
		b := e.Value.(Batch)

		if !b.IsComplete() {
			continue
		}

		c.pending.remove(e)
		b.Finish()
	}
}

// PendingCount reports how many batches are currently tracked, for tests
// and diagnostics.
func (c *Controller) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.pending.len()
}
