package adapter

import (
	"errors"

	"github.com/lovromazgon/dstr"
)

// Concat emits the concatenation of its operands as a selector.
type Concat struct {
	pair
	result string
}

// NewConcat creates the "strcat" adapter.
func NewConcat(cfg Config, out Outlet, opt ...Option) (*Concat, error) {
	p, err := newPair("strcat", cfg, out, opt)
	if err != nil {
		return nil, err
	}
	c := &Concat{pair: p}
	c.action()
	return c, nil
}

func (c *Concat) Handle(which Operand, msg Message) error {
	buf, err := c.buffer(which)
	if err != nil {
		return err
	}
	return c.dispatch(c, which, buf, msg)
}

func (c *Concat) action() {
	if !c.valid() {
		c.result = ErrorPlaceholder
		c.allocationError()
		return
	}

	first, second := c.operands()
	tmp := dstr.NewWithCapacity(first.Len()+second.Len(), dstr.WithAllocator(c.alloc))
	defer tmp.Destroy()

	if err := errors.Join(tmp.AssignFrom(first), tmp.AppendFrom(second)); err != nil {
		c.result = ErrorPlaceholder
		c.allocationError()
		return
	}
	c.result = tmp.String()
}

func (c *Concat) output() {
	c.out.Emit(0, symbolMessage(c.result))
}
