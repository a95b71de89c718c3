package adapter

import "github.com/lovromazgon/dstr"

// LocateChar emits the 1-based position of the first byte of one operand in
// the other, or -1. In Normal mode the first byte of the right operand is
// looked up in the left operand.
type LocateChar struct {
	pair
	pos int
}

// NewLocateChar creates the "strchr" adapter.
func NewLocateChar(cfg Config, out Outlet, opt ...Option) (*LocateChar, error) {
	p, err := newPair("strchr", cfg, out, opt)
	if err != nil {
		return nil, err
	}
	l := &LocateChar{pair: p}
	l.action()
	return l, nil
}

func (l *LocateChar) Handle(which Operand, msg Message) error {
	buf, err := l.buffer(which)
	if err != nil {
		return err
	}
	return l.dispatch(l, which, buf, msg)
}

func (l *LocateChar) action() {
	if !l.valid() {
		l.pos = dstr.NotFound
		l.allocationError()
		return
	}

	haystack, needle := l.operands()
	// An empty operand still has its sentinel, which never occurs in the
	// content of the other.
	pos, err := dstr.IndexByte(haystack, needle.CString()[0])
	if err != nil {
		l.pos = dstr.NotFound
		l.allocationError()
		return
	}
	l.pos = pos
}

func (l *LocateChar) output() {
	l.out.Emit(0, intMessage(l.pos))
}

// LocateSubstring emits the 1-based position of one operand in the other, or
// -1. In Normal mode the right operand is looked up in the left operand.
type LocateSubstring struct {
	pair
	pos int
}

// NewLocateSubstring creates the "strstr" adapter.
func NewLocateSubstring(cfg Config, out Outlet, opt ...Option) (*LocateSubstring, error) {
	p, err := newPair("strstr", cfg, out, opt)
	if err != nil {
		return nil, err
	}
	l := &LocateSubstring{pair: p}
	l.action()
	return l, nil
}

func (l *LocateSubstring) Handle(which Operand, msg Message) error {
	buf, err := l.buffer(which)
	if err != nil {
		return err
	}
	return l.dispatch(l, which, buf, msg)
}

func (l *LocateSubstring) action() {
	haystack, needle := l.operands()
	pos, err := dstr.Index(haystack, needle)
	if err != nil {
		l.pos = dstr.NotFound
		l.allocationError()
		return
	}
	l.pos = pos
}

func (l *LocateSubstring) output() {
	l.out.Emit(0, intMessage(l.pos))
}
