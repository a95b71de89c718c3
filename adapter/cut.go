package adapter

import (
	"fmt"

	"github.com/lovromazgon/dstr"
)

// Cut splits its input at a position. In Normal mode the part before the
// position goes to outlet 0 and the rest to outlet 1, Swapped mode exchanges
// the outlets. The right inlet only takes the position, as an int or as a
// float truncated toward zero.
type Cut struct {
	base
	input *dstr.Buffer
	head  *dstr.Buffer
	tail  *dstr.Buffer

	headResult string
	tailResult string
}

// NewCut creates the "strcut" adapter. Config.Initial is the initial input
// and Config.Position the initial position.
func NewCut(cfg Config, out Outlet, opt ...Option) (*Cut, error) {
	c := &Cut{base: newBase("strcut", cfg, out, opt)}
	c.input = c.newBuffer()
	c.head = c.newBuffer()
	c.tail = c.newBuffer()
	_ = c.input.Join(c.cfg.Initial, c.cfg.Precision)
	if err := c.checkBuffers(); err != nil {
		return nil, err
	}
	c.action()
	return c, nil
}

func (c *Cut) Handle(which Operand, msg Message) error {
	switch which {
	case Left:
		return c.dispatch(c, which, c.input, msg)
	case Right:
		if msg.Selector != SelectorInt && msg.Selector != SelectorFloat {
			return c.dispatch(c, which, nil, msg)
		}
		n, err := intArg(msg)
		if err != nil {
			return err
		}
		c.cfg.Position = int(max(n, 0))
		c.action()
		return nil
	default:
		return fmt.Errorf("%w: %s has no %s inlet", ErrUnknownInlet, c.name, which)
	}
}

func (c *Cut) action() {
	if err := dstr.Split(c.head, c.tail, c.input, c.cfg.Position); err != nil {
		c.headResult, c.tailResult = ErrorPlaceholder, ErrorPlaceholder
		c.allocationError()
		return
	}
	c.headResult, c.tailResult = c.head.String(), c.tail.String()
}

func (c *Cut) output() {
	first, second := c.headResult, c.tailResult
	if c.cfg.Mode == Swapped {
		first, second = second, first
	}
	c.out.Emit(1, symbolMessage(second))
	c.out.Emit(0, symbolMessage(first))
}

func (c *Cut) state() []any {
	return []any{
		"position", c.cfg.Position,
		"input", c.input.String(),
		"head", c.head.String(),
		"tail", c.tail.String(),
	}
}
