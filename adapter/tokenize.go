package adapter

import (
	"errors"

	"github.com/lovromazgon/dstr"
)

// Tokenize splits one operand into tokens separated by any byte of the other.
// In Normal mode the left operand is split using the right operand as the
// delimiter set. The first token is emitted as the selector and the others as
// symbol atoms.
type Tokenize struct {
	pair
	tokens []string
}

// NewTokenize creates the "strtok" adapter.
func NewTokenize(cfg Config, out Outlet, opt ...Option) (*Tokenize, error) {
	p, err := newPair("strtok", cfg, out, opt)
	if err != nil {
		return nil, err
	}
	t := &Tokenize{pair: p}
	t.action()
	return t, nil
}

func (t *Tokenize) Handle(which Operand, msg Message) error {
	buf, err := t.buffer(which)
	if err != nil {
		return err
	}
	return t.dispatch(t, which, buf, msg)
}

func (t *Tokenize) action() {
	src, delims := t.operands()
	tokens, err := dstr.Tokenize(src, delims, t.cfg.MaxTokens)
	switch {
	case errors.Is(err, dstr.ErrTooManyTokens):
		t.tokens = nil
		t.logger.Error("too many tokens", "max_tokens", t.cfg.MaxTokens)
	case err != nil:
		t.tokens = nil
		t.allocationError()
	default:
		t.tokens = tokens
	}
}

func (t *Tokenize) output() {
	if len(t.tokens) == 0 {
		return
	}
	atoms := make([]dstr.Atom, 0, len(t.tokens)-1)
	for _, tok := range t.tokens[1:] {
		atoms = append(atoms, dstr.Symbol(tok))
	}
	t.out.Emit(0, Message{Selector: t.tokens[0], Atoms: atoms})
}
