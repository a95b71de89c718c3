package dstr

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"
)

// Kind identifies the type of value held by an Atom.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindSymbol
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindSymbol:
		return "symbol"
	default:
		return "invalid"
	}
}

// Atom is a single event payload value: a signed integer, a floating-point
// number or a symbol (a byte string).
type Atom struct {
	kind Kind
	i    int64
	f    float64
	s    string
}

func Int(n int64) Atom { return Atom{kind: KindInt, i: n} }

func Float(f float64) Atom { return Atom{kind: KindFloat, f: f} }

func Symbol(s string) Atom { return Atom{kind: KindSymbol, s: s} }

func (a Atom) Kind() Kind { return a.kind }

// Symbol returns the text of a symbol atom, or an empty string for numbers.
func (a Atom) Symbol() string { return a.s }

// Int returns the integer value of the atom. A float atom is truncated toward
// zero, a symbol atom yields 0.
func (a Atom) Int() int64 {
	switch a.kind {
	case KindInt:
		return a.i
	case KindFloat:
		return int64(a.f)
	default:
		return 0
	}
}

// Float returns the floating-point value of the atom. A symbol atom yields 0.
func (a Atom) Float() float64 {
	switch a.kind {
	case KindInt:
		return float64(a.i)
	case KindFloat:
		return a.f
	default:
		return 0
	}
}

func (a Atom) String() string {
	switch a.kind {
	case KindInt:
		return strconv.FormatInt(a.i, 10)
	case KindFloat:
		return strconv.FormatFloat(a.f, 'g', -1, 64)
	case KindSymbol:
		return a.s
	default:
		return "<invalid>"
	}
}

// AppendAtom appends the rendering of a to the content. Integers render in
// base 10, floats in fixed-point notation with the given precision and symbols
// verbatim. An invalid atom appends nothing.
func (b *Buffer) AppendAtom(a Atom, precision int) error {
	switch a.kind {
	case KindInt:
		return b.AppendInt(a.i)
	case KindFloat:
		return b.AppendDecimal(a.f, precision)
	case KindSymbol:
		return b.AppendString(a.s)
	default:
		if !b.Valid() {
			return ErrInvalid
		}
		return nil
	}
}

// Join appends the renderings of atoms, each preceded by a single space unless
// the buffer is still empty at that point.
func (b *Buffer) Join(atoms []Atom, precision int) error {
	if !b.Valid() {
		return ErrInvalid
	}
	for _, a := range atoms {
		if b.Len() > 0 {
			if err := b.AppendByte(' '); err != nil {
				return err
			}
		}
		if err := b.AppendAtom(a, precision); err != nil {
			return err
		}
	}
	return nil
}

// atomJSON is the wire form of an Atom: an object with exactly one of the
// fields set. JSON strings are UTF-8, a symbol that is not valid UTF-8 is
// written as base64 under "bytes".
type atomJSON struct {
	Int    *json.Number `json:"int,omitempty"`
	Float  *float64     `json:"float,omitempty"`
	Symbol *string      `json:"symbol,omitempty"`
	Bytes  []byte       `json:"bytes,omitempty"`
}

var errAtomJSON = errors.New("atom must have exactly one of int, float, symbol or bytes")

func (a Atom) MarshalJSON() ([]byte, error) {
	var v atomJSON
	switch a.kind {
	case KindInt:
		n := json.Number(strconv.FormatInt(a.i, 10))
		v.Int = &n
	case KindFloat:
		v.Float = &a.f
	case KindSymbol:
		if utf8.ValidString(a.s) {
			v.Symbol = &a.s
		} else {
			v.Bytes = []byte(a.s)
		}
	default:
		return nil, fmt.Errorf("marshal atom: %w", errAtomJSON)
	}
	return json.Marshal(v)
}

func (a *Atom) UnmarshalJSON(data []byte) error {
	var v atomJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal atom: %w", err)
	}

	set := 0
	if v.Int != nil {
		n, err := strconv.ParseInt(v.Int.String(), 10, 64)
		if err != nil {
			return fmt.Errorf("unmarshal atom: int: %w", err)
		}
		*a = Int(n)
		set++
	}
	if v.Float != nil {
		*a = Float(*v.Float)
		set++
	}
	if v.Symbol != nil {
		*a = Symbol(*v.Symbol)
		set++
	}
	if v.Bytes != nil {
		*a = Symbol(string(v.Bytes))
		set++
	}
	if set != 1 {
		return fmt.Errorf("unmarshal atom: %w", errAtomJSON)
	}
	return nil
}
