package adapter

import (
	"log/slog"

	"github.com/lovromazgon/dstr"
)

// Option configures an adapter.
type Option interface {
	apply(opt *options)
}

// optionFunc wraps a function that modifies options into an implementation of
// the Option interface.
type optionFunc func(*options)

func (f optionFunc) apply(opt *options) { f(opt) }

type options struct {
	logger    *slog.Logger
	allocator dstr.Allocator
}

var defaultOptions = options{
	logger:    slog.Default(),
	allocator: dstr.DefaultAllocator,
}

func newOptions(opt []Option) options {
	opts := defaultOptions
	for _, o := range opt {
		o.apply(&opts)
	}
	return opts
}

// WithLogger returns an Option that sets the logger used for diagnostics and
// "post" dumps.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(opt *options) { opt.logger = l })
}

// WithAllocator returns an Option that sets the allocator backing all buffers
// owned by the adapter, including temporaries.
func WithAllocator(a dstr.Allocator) Option {
	return optionFunc(func(opt *options) { opt.allocator = a })
}
