// Package adapter implements small message-driven string processors on top of
// dstr buffers. Every adapter owns one or two operand buffers, fills them from
// incoming messages, runs one buffer operation and emits the result through an
// Outlet.
//
// An adapter handles one message at a time and is not safe for concurrent use.
package adapter

import (
	"errors"
	"fmt"
	"slices"

	"github.com/lovromazgon/dstr"
)

// Selectors with a special meaning. Any other selector is treated as text:
// the selector followed by its atoms becomes the operand content.
const (
	SelectorBang      = "bang"
	SelectorInt       = "int"
	SelectorFloat     = "float"
	SelectorList      = "list"
	SelectorSet       = "set"
	SelectorPost      = "post"
	SelectorMode      = "mode"
	SelectorPrecision = "fprecision"
)

// ErrorPlaceholder is emitted instead of a string result when the buffers of
// an adapter could not be allocated.
const ErrorPlaceholder = "<error>"

var (
	ErrUnknownAdapter = errors.New("unknown adapter")
	ErrUnknownInlet   = errors.New("unknown inlet")
	ErrBadMessage     = errors.New("bad message")
)

// Operand selects the inlet, and with it the operand buffer, a message is
// delivered to. Left is the hot inlet: messages there trigger output. Messages
// on Right only update the state.
type Operand int

const (
	Left Operand = iota
	Right
)

func (o Operand) String() string {
	switch o {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("Operand(%d)", int(o))
	}
}

// Message is a selector followed by a list of atoms.
type Message struct {
	Selector string      `json:"selector"`
	Atoms    []dstr.Atom `json:"atoms,omitempty"`
}

// Outlet receives the messages an adapter emits. Adapters with more than one
// outlet emit right to left, the highest outlet index first.
type Outlet interface {
	Emit(outlet int, msg Message)
}

// OutletFunc is a function type that implements the Outlet interface.
type OutletFunc func(outlet int, msg Message)

func (f OutletFunc) Emit(outlet int, msg Message) { f(outlet, msg) }

// Adapter is a message-driven string processor.
type Adapter interface {
	// Handle delivers a message to the given inlet.
	Handle(which Operand, msg Message) error
	// Err returns a non-nil error wrapping dstr.ErrAllocation once one of the
	// adapter buffers failed to allocate. The adapter keeps answering with
	// placeholder results until it is closed and created again.
	Err() error
	// Close releases the buffers of the adapter.
	Close()
}

type constructor func(cfg Config, out Outlet, opt ...Option) (Adapter, error)

var constructors = map[string]constructor{
	"strcat": func(cfg Config, out Outlet, opt ...Option) (Adapter, error) { return NewConcat(cfg, out, opt...) },
	"strchr": func(cfg Config, out Outlet, opt ...Option) (Adapter, error) { return NewLocateChar(cfg, out, opt...) },
	"strstr": func(cfg Config, out Outlet, opt ...Option) (Adapter, error) { return NewLocateSubstring(cfg, out, opt...) },
	"strcmp": func(cfg Config, out Outlet, opt ...Option) (Adapter, error) { return NewCompare(cfg, out, opt...) },
	"strcut": func(cfg Config, out Outlet, opt ...Option) (Adapter, error) { return NewCut(cfg, out, opt...) },
	"strlen": func(cfg Config, out Outlet, opt ...Option) (Adapter, error) { return NewLength(cfg, out, opt...) },
	"strtok": func(cfg Config, out Outlet, opt ...Option) (Adapter, error) { return NewTokenize(cfg, out, opt...) },
}

// New creates the adapter registered under name.
func New(name string, cfg Config, out Outlet, opt ...Option) (Adapter, error) {
	c, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAdapter, name)
	}
	return c(cfg, out, opt...)
}

// Names returns the registered adapter names in sorted order.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
