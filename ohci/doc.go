// OHCI USB 1.1 host controller driver
// https://github.com/tamago-usb/ohci
//
// Copyright (c) The TamaGo-OHCI Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package ohci implements the core of an Open Host Controller Interface
// (OHCI) USB 1.1 host controller driver: gaining control of the
// controller hardware from firmware, programming its memory-resident
// schedule of pending transfers, servicing its interrupts, and completing
// in-flight transfer batches.
//
// The controller communicates with software almost entirely through
// shared memory: the driver writes descriptor chains into DMA-coherent
// memory, the controller walks them on its own clock, and the driver
// reads back results when the controller signals completion through an
// interrupt (or, on platforms that cannot route the device's interrupt
// line, through the Poller in poll.go).
//
// This package is only meant to be used with `GOOS=tamago` as supported by
// the TamaGo framework for bare metal Go, see
// https://github.com/usbarmory/tamago, though the register window
// abstraction in window.go allows it to run under a hosted GOOS against a
// fake window for testing.
package ohci
