package adapter

import (
	"fmt"

	"github.com/lovromazgon/dstr"
)

// Length emits the length of its input in bytes, or -1 after an allocation
// failure.
type Length struct {
	base
	input  *dstr.Buffer
	length int
}

// NewLength creates the "strlen" adapter. Config.Initial is the initial input.
func NewLength(cfg Config, out Outlet, opt ...Option) (*Length, error) {
	l := &Length{base: newBase("strlen", cfg, out, opt)}
	l.input = l.newBuffer()
	_ = l.input.Join(l.cfg.Initial, l.cfg.Precision)
	if err := l.checkBuffers(); err != nil {
		return nil, err
	}
	l.action()
	return l, nil
}

func (l *Length) Handle(which Operand, msg Message) error {
	if which != Left {
		return fmt.Errorf("%w: %s has no %s inlet", ErrUnknownInlet, l.name, which)
	}
	return l.dispatch(l, which, l.input, msg)
}

func (l *Length) action() {
	l.length = l.input.Len()
	if l.length == dstr.Absent {
		l.allocationError()
	}
}

func (l *Length) output() {
	l.out.Emit(0, intMessage(l.length))
}

func (l *Length) state() []any {
	return []any{"input", l.input.String(), "cap", l.input.Cap()}
}
