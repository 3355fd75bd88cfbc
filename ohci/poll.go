package ohci

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// pollInterval is the cadence of the polling emulator (spec Section 4.8).
const pollInterval = 10 * time.Millisecond

// Poller is the cooperative task fallback used on platforms that cannot
// route the controller's interrupt line. It is functionally equivalent to
// the IRQ path with a bounded worst-case latency of pollInterval (spec
// Section 4.8 contract). Run is paced with a rate.Limiter rather than a
// bare time.Sleep loop; Poll itself does not consult the limiter, so a
// manual Poll() call runs immediately every time.
type Poller struct {
	c       *Controller
	limiter *rate.Limiter
	stop    chan struct{}
}

// NewPoller returns a Poller for c, not yet started.
func NewPoller(c *Controller) *Poller {
	return &Poller{
		c:       c,
		limiter: rate.NewLimiter(rate.Every(pollInterval), 1),
		stop:    make(chan struct{}),
	}
}

// Poll performs one iteration: read HcInterruptStatus, write-clear it,
// and invoke Dispatch with the value read (spec Section 4.8, scenario
// S6).
func (p *Poller) Poll() {
	status := WriteClear(p.c.Regs.Window, HcInterruptStatus)
	p.c.Dispatch(status)
}

// Run blocks, polling at pollInterval until ctx is cancelled or Stop is
// called. It is intended to run as its own cooperatively scheduled task,
// the way Section 5 models the emulator: not an OS thread, a goroutine
// communicating with the guarded Controller instance like any other
// submitter would.
func (p *Poller) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		default:
		}

		if err := p.limiter.Wait(ctx); err != nil {
			return
		}

		p.Poll()
	}
}

// Stop cooperatively terminates a Run loop, idempotently.
func (p *Poller) Stop() {
	select {
	case <-p.stop:
	default:
		close(p.stop)
	}
}
