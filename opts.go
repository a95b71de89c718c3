package dstr

// Option configures a buffer at creation.
type Option interface {
	apply(opt *options)
}

// optionFunc wraps a function that modifies options into an implementation of
// the Option interface.
type optionFunc func(*options)

func (f optionFunc) apply(opt *options) { f(opt) }

type options struct {
	allocator Allocator
}

func newOptions(opt []Option) options {
	opts := options{allocator: DefaultAllocator}
	for _, o := range opt {
		o.apply(&opts)
	}
	if opts.allocator == nil {
		opts.allocator = DefaultAllocator
	}
	return opts
}

// WithAllocator returns an Option that sets the allocator backing the buffer.
// Every later growth of the buffer goes through the same allocator.
func WithAllocator(a Allocator) Option {
	return optionFunc(func(opt *options) { opt.allocator = a })
}
