package adapter

import (
	"fmt"

	"github.com/lovromazgon/dstr"
)

// processor is implemented by every adapter and driven by dispatch.
type processor interface {
	// action recomputes the result from the current operands.
	action()
	// output emits the last computed result.
	output()
	// state returns the key-value pairs logged on "post".
	state() []any
}

// dispatch runs the message protocol shared by all adapters. buf is the
// operand buffer the inlet writes to, it is nil for inlets that do not hold
// text.
func (b *base) dispatch(p processor, which Operand, buf *dstr.Buffer, msg Message) error {
	switch msg.Selector {
	case SelectorBang:
		p.output()
		return nil
	case SelectorPost:
		b.post(p.state()...)
		return nil
	}

	ok, err := b.setAttribute(msg)
	if ok {
		if err != nil {
			return err
		}
		if msg.Selector == SelectorMode {
			p.action()
		}
		return nil
	}

	if buf == nil {
		return fmt.Errorf("%w: %s inlet does not accept %q", ErrBadMessage, which, msg.Selector)
	}
	emit, err := b.fill(buf, msg)
	if err != nil {
		return err
	}
	p.action()
	if emit && which == Left {
		p.output()
	}
	return nil
}

// pair holds the two operand buffers of a two-inlet adapter.
type pair struct {
	base
	left  *dstr.Buffer
	right *dstr.Buffer
}

func newPair(name string, cfg Config, out Outlet, opt []Option) (pair, error) {
	p := pair{base: newBase(name, cfg, out, opt)}
	p.left = p.newBuffer()
	p.right = p.newBuffer()
	_ = p.right.Join(p.cfg.Initial, p.cfg.Precision)
	if err := p.checkBuffers(); err != nil {
		return pair{}, err
	}
	return p, nil
}

// buffer returns the operand buffer behind an inlet.
func (p *pair) buffer(which Operand) (*dstr.Buffer, error) {
	switch which {
	case Left:
		return p.left, nil
	case Right:
		return p.right, nil
	default:
		return nil, fmt.Errorf("%w: %s has no %s inlet", ErrUnknownInlet, p.name, which)
	}
}

// operands returns the operands in the order the mode selects: left first in
// Normal mode, right first in Swapped mode.
func (p *pair) operands() (first, second *dstr.Buffer) {
	if p.cfg.Mode == Swapped {
		return p.right, p.left
	}
	return p.left, p.right
}

func (p *pair) state() []any {
	return []any{
		"left", p.left.String(),
		"right", p.right.String(),
		"left_cap", p.left.Cap(),
		"right_cap", p.right.Cap(),
	}
}

func (p *pair) valid() bool {
	return p.left.Valid() && p.right.Valid()
}
