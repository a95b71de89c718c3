package httpapi

import (
	"github.com/lovromazgon/dstr/adapter"
	"github.com/rs/zerolog"
)

type Option interface {
	apply(opt *options)
}

type optionFunc func(*options)

func (f optionFunc) apply(opt *options) { f(opt) }

type options struct {
	logger         zerolog.Logger
	processor      Processor
	defaults       adapter.Config
	adapterOptions []adapter.Option
}

func newOptions(opt []Option) options {
	opts := options{
		logger:   zerolog.Nop(),
		defaults: adapter.DefaultConfig(),
	}
	for _, o := range opt {
		o.apply(&opts)
	}
	return opts
}

// WithLogger returns an Option that sets the logger for requests and sessions.
func WithLogger(l zerolog.Logger) Option {
	return optionFunc(func(opt *options) { opt.logger = l })
}

// WithProcessor returns an Option that sets the processor serving batch runs.
// By default batch runs are processed in-process with adapter.Run.
func WithProcessor(p Processor) Option {
	return optionFunc(func(opt *options) { opt.processor = p })
}

// WithDefaults returns an Option that sets the adapter configuration used
// for fields a request leaves out.
func WithDefaults(cfg adapter.Config) Option {
	return optionFunc(func(opt *options) { opt.defaults = cfg })
}

// WithAdapterOptions returns an Option that passes options to every adapter
// created in-process.
func WithAdapterOptions(o ...adapter.Option) Option {
	return optionFunc(func(opt *options) { opt.adapterOptions = append(opt.adapterOptions, o...) })
}
