package dstr

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// MaxSize is the largest single allocation HeapAllocator will attempt. Buffers
// are handed across 32-bit Wasm boundaries, so anything larger could not be
// addressed on the other side anyway.
const MaxSize = math.MaxInt32

// ErrOutOfMemory is returned by allocators that cannot satisfy a request.
var ErrOutOfMemory = errors.New("out of memory")

// Allocator provides the backing storage for buffers. Alloc returns a slice
// with length size. Free hands storage back once a buffer no longer uses it.
type Allocator interface {
	Alloc(size int) ([]byte, error)
	Free(p []byte)
}

// HeapAllocator delegates to the Go runtime and keeps Free as a no-op.
type HeapAllocator struct{}

func (HeapAllocator) Alloc(size int) ([]byte, error) {
	if size < 0 || size > MaxSize {
		return nil, fmt.Errorf("%w: requested %d bytes", ErrOutOfMemory, size)
	}
	return make([]byte, size), nil
}

func (HeapAllocator) Free([]byte) {}

// DefaultAllocator is used by buffers created without WithAllocator.
var DefaultAllocator Allocator = HeapAllocator{}

// BudgetAllocator hands out memory from the heap until the bytes it has
// outstanding would exceed its limit. It is useful to put buffers under
// allocation pressure. It is safe for concurrent use, so one budget can be
// shared by several buffers or adapters.
type BudgetAllocator struct {
	limit int

	mu    sync.Mutex // guards inUse
	inUse int
}

func NewBudgetAllocator(limit int) *BudgetAllocator {
	return &BudgetAllocator{limit: limit}
}

func (a *BudgetAllocator) Alloc(size int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if size < 0 || a.inUse+size > a.limit {
		return nil, fmt.Errorf("%w: requested %d bytes, %d of %d in use", ErrOutOfMemory, size, a.inUse, a.limit)
	}
	a.inUse += size
	return make([]byte, size), nil
}

func (a *BudgetAllocator) Free(p []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inUse -= cap(p)
	if a.inUse < 0 {
		a.inUse = 0
	}
}

// InUse returns the number of bytes currently handed out.
func (a *BudgetAllocator) InUse() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inUse
}

// FailingAllocator succeeds for the first n allocations and fails every
// allocation after that. It tracks outstanding allocations so leaks can be
// detected. It is safe for concurrent use.
type FailingAllocator struct {
	mu          sync.Mutex // guards remaining and outstanding
	remaining   int
	outstanding int
}

func NewFailingAllocator(n int) *FailingAllocator {
	return &FailingAllocator{remaining: n}
}

func (a *FailingAllocator) Alloc(size int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.remaining <= 0 {
		return nil, fmt.Errorf("%w: allocation of %d bytes refused", ErrOutOfMemory, size)
	}
	a.remaining--
	a.outstanding++
	return make([]byte, size), nil
}

func (a *FailingAllocator) Free(p []byte) {
	if p == nil {
		return
	}
	a.mu.Lock()
	a.outstanding--
	a.mu.Unlock()
}

// Outstanding returns the number of allocations not yet freed.
func (a *FailingAllocator) Outstanding() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.outstanding
}
