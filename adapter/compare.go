package adapter

import "github.com/lovromazgon/dstr"

// Compare emits the ordering of its operands on outlet 1 (-1, 0 or 1) and
// whether they are equal on outlet 0 (1 or 0).
type Compare struct {
	pair
	ordering dstr.Ordering
	equal    bool
}

// NewCompare creates the "strcmp" adapter.
func NewCompare(cfg Config, out Outlet, opt ...Option) (*Compare, error) {
	p, err := newPair("strcmp", cfg, out, opt)
	if err != nil {
		return nil, err
	}
	c := &Compare{pair: p}
	c.action()
	return c, nil
}

func (c *Compare) Handle(which Operand, msg Message) error {
	buf, err := c.buffer(which)
	if err != nil {
		return err
	}
	return c.dispatch(c, which, buf, msg)
}

func (c *Compare) action() {
	first, second := c.operands()
	ordering, equal, err := dstr.Compare(first, second)
	if err != nil {
		c.ordering, c.equal = dstr.Less, false
		c.allocationError()
		return
	}
	c.ordering, c.equal = ordering, equal
}

func (c *Compare) output() {
	eq := 0
	if c.equal {
		eq = 1
	}
	c.out.Emit(1, intMessage(int(c.ordering)))
	c.out.Emit(0, intMessage(eq))
}
