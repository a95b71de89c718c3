package adapter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lovromazgon/dstr"
)

// base holds what every adapter has: its attributes, outlet, logger and the
// buffers it owns.
type base struct {
	name    string
	cfg     Config
	alloc   dstr.Allocator
	logger  *slog.Logger
	out     Outlet
	buffers []*dstr.Buffer
	failed  bool
}

func newBase(name string, cfg Config, out Outlet, opt []Option) base {
	opts := newOptions(opt)
	if out == nil {
		out = OutletFunc(func(int, Message) {})
	}
	return base{
		name:   name,
		cfg:    cfg.clamped(),
		alloc:  opts.allocator,
		logger: opts.logger.With("adapter", name),
		out:    out,
	}
}

// newBuffer creates a buffer owned by the adapter for its whole lifetime.
func (b *base) newBuffer() *dstr.Buffer {
	buf := dstr.New(dstr.WithAllocator(b.alloc))
	b.buffers = append(b.buffers, buf)
	return buf
}

// checkBuffers returns an error if any of the owned buffers is invalid. Used
// by constructors, which fail instead of running with broken buffers.
func (b *base) checkBuffers() error {
	if err := b.Err(); err != nil {
		b.Close()
		return err
	}
	return nil
}

func (b *base) Err() error {
	if b.failed {
		return fmt.Errorf("%s: %w", b.name, dstr.ErrAllocation)
	}
	for _, buf := range b.buffers {
		if !buf.Valid() {
			return fmt.Errorf("%s: %w", b.name, dstr.ErrAllocation)
		}
	}
	return nil
}

func (b *base) Close() {
	for _, buf := range b.buffers {
		buf.Destroy()
	}
}

// allocationError reports that the adapter ran into an allocation failure
// and needs to be recreated.
func (b *base) allocationError() {
	b.failed = true
	b.logger.Error("allocation error, reset the adapter")
}

// setAttribute handles the mode and fprecision messages. It reports whether
// msg was one of them.
func (b *base) setAttribute(msg Message) (bool, error) {
	switch msg.Selector {
	case SelectorMode:
		n, err := intArg(msg)
		if err != nil {
			return true, err
		}
		b.cfg.Mode = clampMode(Mode(n))
		return true, nil
	case SelectorPrecision:
		n, err := intArg(msg)
		if err != nil {
			return true, err
		}
		b.cfg.Precision = clampPrecision(int(n))
		return true, nil
	default:
		return false, nil
	}
}

// post logs the state of the adapter and the given buffers.
func (b *base) post(args ...any) {
	attrs := []any{"mode", int(b.cfg.Mode), "precision", b.cfg.Precision}
	attrs = append(attrs, args...)
	b.logger.Log(context.Background(), slog.LevelInfo, "post", attrs...)
}

// fill writes the content described by msg into buf. It reports whether the
// message should trigger output when it arrives on the hot inlet. Allocation
// failures are not returned, they leave buf invalid and are picked up when
// the adapter computes its result.
func (b *base) fill(buf *dstr.Buffer, msg Message) (emit bool, err error) {
	precision := b.cfg.Precision

	switch msg.Selector {
	case SelectorInt:
		n, err := intArg(msg)
		if err != nil {
			return false, err
		}
		_ = buf.AssignInt(n)
	case SelectorFloat:
		if len(msg.Atoms) != 1 || msg.Atoms[0].Kind() == dstr.KindSymbol || msg.Atoms[0].Kind() == dstr.KindInvalid {
			return false, fmt.Errorf("%w: float expects one number", ErrBadMessage)
		}
		_ = buf.AssignDecimal(msg.Atoms[0].Float(), precision)
	case SelectorList:
		_ = buf.AssignEmpty()
		_ = buf.Join(msg.Atoms, precision)
	case SelectorSet:
		_ = buf.AssignEmpty()
		_ = buf.Join(msg.Atoms, precision)
		return false, nil
	case "":
		return false, fmt.Errorf("%w: empty selector", ErrBadMessage)
	default:
		_ = buf.AssignString(msg.Selector)
		_ = buf.Join(msg.Atoms, precision)
	}
	return true, nil
}

func intArg(msg Message) (int64, error) {
	if len(msg.Atoms) != 1 {
		return 0, fmt.Errorf("%w: %s expects one number, got %d atoms", ErrBadMessage, msg.Selector, len(msg.Atoms))
	}
	switch a := msg.Atoms[0]; a.Kind() {
	case dstr.KindInt, dstr.KindFloat:
		return a.Int(), nil
	default:
		return 0, fmt.Errorf("%w: %s expects a number, got %s", ErrBadMessage, msg.Selector, a.Kind())
	}
}

func symbolMessage(s string) Message {
	return Message{Selector: s}
}

func intMessage(n int) Message {
	return Message{Selector: SelectorInt, Atoms: []dstr.Atom{dstr.Int(int64(n))}}
}
