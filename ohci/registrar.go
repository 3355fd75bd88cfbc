package ohci

import "sync"

// maxPeriodicBandwidth is the budget, in bytes per frame, available to
// interrupt and isochronous endpoints (spec Section 8's boundary test
// names a 32-slot budget; this core expresses the same idea in bytes,
// with each slot in the test corresponding to a max-packet-size unit of
// bandwidth).
const maxPeriodicBandwidth = 32

// Endpoint is the logical record the registrar tracks, pairing the
// (address, endpoint, direction) tuple that identifies it on the bus with
// its hardware ED.
type Endpoint struct {
	Address   int
	Number    int
	Direction uint32
	Type      EndpointType
	ED        *ED

	bandwidth int
}

type endpointKey struct {
	address   int
	number    int
	direction uint32
}

// Registrar binds logical endpoint tuples to endpoint descriptors and
// tracks periodic bandwidth, mirroring dma.Region's lock-guarded
// map-of-resources shape (sync.Mutex plus a map keyed by an identifier,
// here a struct key rather than dma.Region's uint address).
type Registrar struct {
	mu        sync.Mutex
	endpoints map[endpointKey]*Endpoint
	used      int // periodic bandwidth committed, in bytes/frame
}

// NewRegistrar returns an empty registrar.
func NewRegistrar() *Registrar {
	return &Registrar{endpoints: make(map[endpointKey]*Endpoint)}
}

// Register binds ep under its tuple. For periodic endpoint types
// (interrupt, isochronous), bandwidthBytes is charged against the
// registrar's budget; exceeding it returns ErrBandwidthExhausted without
// mutating any state (spec Section 8 boundary test).
func (r *Registrar) Register(ep *Endpoint, bandwidthBytes int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := endpointKey{ep.Address, ep.Number, ep.Direction}

	if _, exists := r.endpoints[key]; exists {
		return ErrNoMemory
	}

	periodic := ep.Type == TypeInterrupt || ep.Type == TypeIsochronous

	if periodic && r.used+bandwidthBytes > maxPeriodicBandwidth {
		return ErrBandwidthExhausted
	}

	ep.bandwidth = bandwidthBytes
	r.endpoints[key] = ep

	if periodic {
		r.used += bandwidthBytes
	}

	return nil
}

// Unregister removes the tuple's binding, refunding any periodic
// bandwidth it held. Returns ErrNoSuchEndpoint if the tuple was never
// registered.
func (r *Registrar) Unregister(address, number int, direction uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := endpointKey{address, number, direction}

	ep, ok := r.endpoints[key]

	if !ok {
		return ErrNoSuchEndpoint
	}

	if ep.Type == TypeInterrupt || ep.Type == TypeIsochronous {
		r.used -= ep.bandwidth
	}

	delete(r.endpoints, key)

	return nil
}

// Get looks up the logical endpoint for a tuple.
func (r *Registrar) Get(address, number int, direction uint32) (*Endpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ep, ok := r.endpoints[endpointKey{address, number, direction}]

	if !ok {
		return nil, ErrNoSuchEndpoint
	}

	return ep, nil
}

// BandwidthUsed reports the currently committed periodic bandwidth, for
// tests and diagnostics.
func (r *Registrar) BandwidthUsed() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.used
}
