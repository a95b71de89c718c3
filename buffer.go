// Package dstr implements a dynamic string buffer: an owned, growable byte
// region that always keeps a trailing zero byte after its content, so the
// content can be handed to consumers of NUL-terminated strings without a copy.
//
// A buffer becomes invalid the moment an allocation it needs fails. An invalid
// buffer never touches memory again: read queries return Absent (or nil) and
// every mutation reports an error. The only way back is to Destroy the buffer
// and create a new one.
//
// Buffers are not safe for concurrent use. Each buffer has exactly one owner.
package dstr

import (
	"errors"
	"fmt"
)

const (
	// Absent is returned by Len and Cap on an invalid buffer.
	Absent = -1

	// minCapacity is the capacity of a buffer created with New.
	minCapacity = 16
)

var (
	// ErrAllocation is returned when the allocator could not satisfy a
	// request. The buffer that needed the memory is invalid afterwards.
	ErrAllocation = errors.New("allocation failed")
	// ErrInvalid is returned by operations on an invalid buffer.
	ErrInvalid = errors.New("invalid buffer")
	// ErrRange is returned when a range copy reaches outside its source.
	ErrRange = errors.New("range out of bounds")
	// ErrPrecision is returned for a decimal precision outside [0, MaxPrecision].
	ErrPrecision = errors.New("precision out of range")
)

// Buffer is a dynamic string buffer. The zero value is an invalid buffer, use
// New, NewWithCapacity or NewFrom to create one.
type Buffer struct {
	alloc Allocator
	// data holds the content followed by the sentinel, so len(data) is
	// always the logical length plus one. cap(data) is the capacity.
	data  []byte
	valid bool
}

// New creates an empty buffer with a small initial capacity. If the initial
// allocation fails, the returned buffer is invalid.
func New(opt ...Option) *Buffer {
	return NewWithCapacity(0, opt...)
}

// NewWithCapacity creates an empty buffer that can hold at least n content
// bytes before it needs to grow. If the initial allocation fails, the returned
// buffer is invalid.
func NewWithCapacity(n int, opt ...Option) *Buffer {
	opts := newOptions(opt)
	b := &Buffer{alloc: opts.allocator}

	if n < 0 {
		n = 0
	}
	mem, err := b.alloc.Alloc(NextCapacity(0, n+1))
	if err != nil {
		return b
	}

	b.data = mem[:1]
	b.data[0] = 0
	b.valid = true
	return b
}

// NewFrom creates a buffer holding a copy of the content of other. Without an
// explicit WithAllocator option the new buffer uses the allocator of other.
// The returned buffer is invalid if other is invalid or the allocation fails.
func NewFrom(other *Buffer, opt ...Option) *Buffer {
	if other != nil && other.alloc != nil {
		opt = append([]Option{WithAllocator(other.alloc)}, opt...)
	}
	if !other.Valid() {
		return &Buffer{alloc: newOptions(opt).allocator}
	}

	b := NewWithCapacity(other.Len(), opt...)
	if err := b.AssignFrom(other); err != nil {
		b.Destroy()
	}
	return b
}

// Destroy releases the memory held by the buffer. The buffer is invalid
// afterwards.
func (b *Buffer) Destroy() {
	if b == nil {
		return
	}
	b.invalidate()
}

// Valid reports whether the buffer holds usable content.
func (b *Buffer) Valid() bool {
	return b != nil && b.valid
}

// Len returns the logical length of the content, excluding the sentinel, or
// Absent if the buffer is invalid.
func (b *Buffer) Len() int {
	if !b.Valid() {
		return Absent
	}
	return len(b.data) - 1
}

// Cap returns the allocated size of the buffer, or Absent if the buffer is
// invalid.
func (b *Buffer) Cap() int {
	if !b.Valid() {
		return Absent
	}
	return cap(b.data)
}

// Bytes returns a read-only view of the content. The view is only valid until
// the next mutation of the buffer. It returns nil if the buffer is invalid.
func (b *Buffer) Bytes() []byte {
	if !b.Valid() {
		return nil
	}
	return b.data[:len(b.data)-1 : len(b.data)-1]
}

// CString returns a read-only view of the content including the trailing
// zero byte. It returns nil if the buffer is invalid.
func (b *Buffer) CString() []byte {
	if !b.Valid() {
		return nil
	}
	return b.data[:len(b.data):len(b.data)]
}

// String returns a copy of the content, or an empty string if the buffer is
// invalid.
func (b *Buffer) String() string {
	return string(b.Bytes())
}

// NextCapacity returns the capacity a buffer with the given current capacity
// grows to when it has to hold required bytes. Capacities double, starting
// from a small minimum, so repeated appends cost amortized O(1) per byte.
func NextCapacity(current, required int) int {
	c := current
	if c < minCapacity {
		c = minCapacity
	}
	for c < required {
		if c > MaxSize/2 {
			// Doubling would overflow the allocation limit, ask for exactly
			// what is needed and let the allocator decide.
			return required
		}
		c += c
	}
	return c
}

// reserve makes sure the buffer can hold length content bytes plus the
// sentinel, growing the backing storage if needed. Existing content and the
// logical length are preserved.
func (b *Buffer) reserve(length int) error {
	if !b.Valid() {
		return ErrInvalid
	}
	need := length + 1
	if need <= cap(b.data) {
		return nil
	}

	size := NextCapacity(cap(b.data), need)
	mem, err := b.alloc.Alloc(size)
	if err != nil {
		b.invalidate()
		return fmt.Errorf("%w: growing buffer to %d bytes: %w", ErrAllocation, size, err)
	}

	n := copy(mem, b.data)
	b.alloc.Free(b.data[:cap(b.data)])
	b.data = mem[:n]
	return nil
}

// setLen updates the logical length and writes the sentinel. The capacity
// must already be sufficient.
func (b *Buffer) setLen(length int) {
	b.data = b.data[:length+1]
	b.data[length] = 0
}

func (b *Buffer) invalidate() {
	if b.data != nil && b.alloc != nil {
		b.alloc.Free(b.data[:cap(b.data)])
	}
	b.data = nil
	b.valid = false
}
