package wasm

import (
	"unsafe"

	"github.com/lovromazgon/dstr"
)

// region is a block of plugin memory the host writes requests into. Regions
// grow with the same policy as dstr buffers and never shrink, so a host that
// sends requests of similar size stops reallocating after a few calls.
type region []byte

func newRegion(size int) *region {
	r := make(region, size)
	return &r
}

// grow makes the region at least size bytes long and reports whether the
// backing memory moved. Existing content is preserved.
func (r *region) grow(size int) bool {
	if size <= cap(*r) {
		if len(*r) < size {
			*r = (*r)[:size]
		}
		return false
	}

	next := make(region, size, dstr.NextCapacity(cap(*r), size))
	copy(next, *r)
	*r = next
	return true
}

// pointer returns a pointer to the region's data, or nil for an empty region.
func (r *region) pointer() unsafe.Pointer {
	if len(*r) == 0 {
		return nil
	}
	return unsafe.Pointer(&(*r)[0])
}

// pointerAndSize returns the pointer and size in a single uint64. The higher
// 32 bits are the pointer, and the lower 32 bits are the size.
func (r *region) pointerAndSize() uint64 {
	return (uint64(uintptr(r.pointer())) << 32) | uint64(uint32(len(*r)))
}
