// First-fit memory allocator for DMA buffers
// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package dma provides primitives for direct memory allocation and alignment,
// it is primarily used in bare metal device driver operation to avoid passing
// Go pointers for DMA purposes.
//
// This package is only meant to be used with `GOOS=tamago` as supported by
// the TamaGo framework for bare metal Go on ARM SoCs, see
// https://github.com/usbarmory/tamago.
package dma

import (
	"container/list"
	"errors"
)

var errNotReserved = errors.New("dma: address not found in region")

// Init initializes a memory region for DMA buffer allocation, the
// application must guarantee that the passed memory range is never used by
// the Go runtime (defining runtime.ramStart and runtime.ramSize
// accordingly).
func (dma *Region) Init() {
	// initialize a single block to fit all available memory
	b := &block{
		addr: dma.start,
		size: dma.size,
	}

	dma.Lock()
	defer dma.Unlock()

	dma.freeBlocks = list.New()
	dma.freeBlocks.PushFront(b)

	dma.usedBlocks = make(map[uint]*block)
}

// Init initializes the global memory region for DMA buffer allocation, the
// application must guarantee that the passed memory range is never used by
// the Go runtime (defining runtime.ramStart and runtime.ramSize
// accordingly).
//
// The global region is used throughout the tamago package for all DMA
// allocations. Separate DMA regions can be allocated in other areas (e.g.
// external RAM) by the application using Region.Init().
func Init(start uint, size uint) {
	dma = &Region{
		start: start,
		size:  size,
	}

	dma.Init()
}

// Reserve is the equivalent of Region.Reserve() on the global DMA region.
func Reserve(size int, align int) (addr uint, buf []byte) {
	return dma.Reserve(size, align)
}

// Reserved is the equivalent of Region.Reserved() on the global DMA region.
func Reserved(buf []byte) (res bool, addr uint) {
	return dma.Reserved(buf)
}

// Alloc is the equivalent of Region.Alloc() on the global DMA region.
func Alloc(buf []byte, align int) (addr uint) {
	return dma.Alloc(buf, align)
}

// Read is the equivalent of Region.Read() on the global DMA region.
func Read(addr uint, off int, buf []byte) {
	dma.Read(addr, off, buf)
}

// Write is the equivalent of Region.Write() on the global DMA region.
func Write(addr uint, off int, buf []byte) {
	dma.Write(addr, off, buf)
}

// Free is the equivalent of Region.Free() on the global DMA region.
func Free(addr uint) {
	dma.Free(addr)
}

// Release is the equivalent of Region.Release() on the global DMA region.
func Release(addr uint) {
	dma.Release(addr)
}

// AllocZeroed reserves a zero-filled memory region of the given size, with
// optional alignment, returning its allocation address, or 0 if the region
// has no free block large enough (instead of panicking). It is equivalent to
// Alloc(make([]byte, size), align) but avoids allocating the zero-filled
// source buffer on the Go heap first, which matters for the descriptor
// blocks (HCCA, EDs) that controllers read over DMA and that must never
// contain stale bytes from a previous occupant of the block.
func (dma *Region) AllocZeroed(size int, align int) (addr uint) {
	if size == 0 {
		return 0
	}

	dma.Lock()
	defer dma.Unlock()

	// alloc panics when no free block fits, before touching the free list
	defer func() {
		if recover() != nil {
			addr = 0
		}
	}()

	b := dma.alloc(uint(size), uint(align))
	b.write(0, make([]byte, size))

	dma.usedBlocks[b.addr] = b

	return b.addr
}

// AllocZeroed is the equivalent of Region.AllocZeroed() on the global DMA
// region.
func AllocZeroed(size int, align int) (addr uint) {
	return dma.AllocZeroed(size, align)
}

// VirtToPhys returns the physical address backing a buffer previously
// obtained from this region. On the bare metal targets this package is
// built for, DMA memory is identity mapped, so the physical address always
// equals the allocation address; the indirection exists so that driver code
// above this package names the concept ("the address the controller is
// given") rather than assuming identity mapping itself.
func (dma *Region) VirtToPhys(buf []byte) (addr uint, err error) {
	if len(buf) == 0 {
		return 0, nil
	}

	res, addr := dma.Reserved(buf)

	if !res {
		return 0, errNotReserved
	}

	return addr, nil
}

// VirtToPhys is the equivalent of Region.VirtToPhys() on the global DMA
// region.
func VirtToPhys(buf []byte) (addr uint, err error) {
	return dma.VirtToPhys(buf)
}
