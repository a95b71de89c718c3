//go:build wasm

package wasm

import (
	"unsafe"
)

var (
	// regions are the request regions handed out to the host, keyed by their
	// address.
	regions = make(map[uintptr]*region)
	// responses keeps the last response of every region alive until the host
	// sends the next request through it.
	responses = make(map[uintptr]*region)
)

//go:wasmexport dstr-v1-malloc
func malloc(ptr uintptr, size uint32) uintptr {
	r, ok := regions[ptr]
	if !ok {
		r = newRegion(0)
	}

	if r.grow(int(size)) || !ok {
		delete(regions, ptr)
		delete(responses, ptr)
		ptr = uintptr(r.pointer())
		regions[ptr] = r
	}

	return ptr
}

//go:wasmexport dstr-v1-command
func command(ptr uintptr, methodSize, bufferSize uint32) uint64 {
	input := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), bufferSize)

	out := region(dispatch(input, int(methodSize)))
	responses[ptr] = &out
	return out.pointerAndSize()
}
