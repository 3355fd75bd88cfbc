// OHCI diagnostics exporter
// https://github.com/tamago-usb/ohci
//
// Copyright (c) The TamaGo-OHCI Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package diag is an optional diagnostics exporter for an ohci.Controller.
// A board integration that wants a live view of scheduling/interrupt
// activity imports it the same way cmd/tamago's build carries
// github.com/mkevac/debugcharts for goroutine/memstats charts: importing
// debugcharts registers its own /debug/charts/ page on the default
// ServeMux as a side effect, and this package adds a controller-specific
// page alongside it rather than replacing it.
//
// ohci itself never imports this package — diagnostics are opt-in, since
// spec Section 6 names no exposed CLI/protocol surface for the core.
package diag

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	_ "github.com/mkevac/debugcharts"

	"github.com/tamago-usb/ohci/ohci"
)

// Counters tracks interrupt-kind occurrences and the pending-batch depth
// observed by a Recorder, exported as a JSON snapshot at /debug/ohci.
type Counters struct {
	SO   uint64 `json:"scheduling_overrun"`
	WDH  uint64 `json:"writeback_done_head"`
	UE   uint64 `json:"unrecoverable_error"`
	RHSC uint64 `json:"root_hub_status_change"`
}

// Recorder wraps a Controller, counting the interrupt kinds of the status
// values passed to Observe and exposing the pending-batch depth on demand.
type Recorder struct {
	c        *ohci.Controller
	counters Counters
}

// NewRecorder returns a Recorder for c and registers its /debug/ohci
// handler on http.DefaultServeMux.
func NewRecorder(c *ohci.Controller) *Recorder {
	r := &Recorder{c: c}
	http.HandleFunc("/debug/ohci", r.serveHTTP)
	return r
}

// Observe records one interrupt status value's kind(s). Call it from the
// same place Dispatch is called, before or after, as a pure observer — it
// never mutates controller state.
func (r *Recorder) Observe(status uint32) {
	if status&(1<<ohci.InterruptSO) != 0 {
		atomic.AddUint64(&r.counters.SO, 1)
	}
	if status&(1<<ohci.InterruptWDH) != 0 {
		atomic.AddUint64(&r.counters.WDH, 1)
	}
	if status&(1<<ohci.InterruptUE) != 0 {
		atomic.AddUint64(&r.counters.UE, 1)
	}
	if status&(1<<ohci.InterruptRHSC) != 0 {
		atomic.AddUint64(&r.counters.RHSC, 1)
	}
}

func (r *Recorder) serveHTTP(w http.ResponseWriter, req *http.Request) {
	snapshot := struct {
		Counters
		PendingBatches int `json:"pending_batches"`
	}{
		Counters: Counters{
			SO:   atomic.LoadUint64(&r.counters.SO),
			WDH:  atomic.LoadUint64(&r.counters.WDH),
			UE:   atomic.LoadUint64(&r.counters.UE),
			RHSC: atomic.LoadUint64(&r.counters.RHSC),
		},
		PendingBatches: r.c.PendingCount(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}
