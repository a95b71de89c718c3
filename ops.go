package dstr

import (
	"bytes"
	"errors"
	"fmt"
)

// NotFound is the position reported by IndexByte and Index when there is no
// occurrence.
const NotFound = -1

// ErrTooManyTokens is returned by Tokenize when the content holds more tokens
// than allowed.
var ErrTooManyTokens = errors.New("too many tokens")

// Ordering is the result of comparing two buffers.
type Ordering int

const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

func (o Ordering) String() string {
	switch o {
	case Less:
		return "less"
	case Equal:
		return "equal"
	case Greater:
		return "greater"
	default:
		return fmt.Sprintf("Ordering(%d)", int(o))
	}
}

// Compare compares the raw bytes of a and b over the length of the shorter
// content plus its sentinel, so a proper prefix always orders before the
// longer content. It returns the ordering and whether the contents are equal.
func Compare(a, b *Buffer) (Ordering, bool, error) {
	if !a.Valid() || !b.Valid() {
		return Less, false, ErrInvalid
	}

	n := min(a.Len(), b.Len()) + 1
	switch c := bytes.Compare(a.data[:n], b.data[:n]); {
	case c < 0:
		return Less, false, nil
	case c > 0:
		return Greater, false, nil
	default:
		return Equal, true, nil
	}
}

// IndexByte returns the 1-based position of the first occurrence of c in the
// content of src, or NotFound.
func IndexByte(src *Buffer, c byte) (int, error) {
	if !src.Valid() {
		return NotFound, ErrInvalid
	}
	i := bytes.IndexByte(src.Bytes(), c)
	if i < 0 {
		return NotFound, nil
	}
	return i + 1, nil
}

// Index returns the 1-based position of the first occurrence of the content
// of target in the content of src, or NotFound. An empty target is found at
// position 1.
func Index(src, target *Buffer) (int, error) {
	if !src.Valid() || !target.Valid() {
		return NotFound, ErrInvalid
	}
	i := bytes.Index(src.Bytes(), target.Bytes())
	if i < 0 {
		return NotFound, nil
	}
	return i + 1, nil
}

// Split cuts the content of src at position p into left and right. A
// position at or below zero leaves left empty, a position at or past the end
// leaves right empty. The buffers may alias src.
func Split(left, right, src *Buffer, p int) error {
	if !left.Valid() || !right.Valid() || !src.Valid() {
		return ErrInvalid
	}
	if left == right {
		return fmt.Errorf("%w: left and right must be distinct buffers", ErrInvalid)
	}

	if left == src || right == src {
		// Work from a scratch copy so writing one part does not clobber the
		// source of the other.
		scratch := NewFrom(src)
		defer scratch.Destroy()
		if !scratch.Valid() {
			return fmt.Errorf("%w: copying split source", ErrAllocation)
		}
		src = scratch
	}

	n := src.Len()
	switch {
	case p <= 0:
		if err := left.AssignEmpty(); err != nil {
			return err
		}
		return right.AssignFrom(src)
	case p >= n:
		if err := left.AssignFrom(src); err != nil {
			return err
		}
		return right.AssignEmpty()
	default:
		if err := left.RangeCopy(src, 0, p); err != nil {
			return err
		}
		return right.RangeCopy(src, p, n-p)
	}
}

// Tokenize returns the maximal runs of bytes in the content of src that
// contain none of the bytes in the content of delims, in order. If limit is
// positive and the content holds more than limit tokens, ErrTooManyTokens is
// returned and no tokens.
func Tokenize(src, delims *Buffer, limit int) ([]string, error) {
	if !src.Valid() || !delims.Valid() {
		return nil, ErrInvalid
	}

	var set [256]bool
	for _, c := range delims.Bytes() {
		set[c] = true
	}

	var tokens []string
	content := src.Bytes()
	start := -1
	for i, c := range content {
		switch {
		case set[c] && start >= 0:
			tokens = append(tokens, string(content[start:i]))
			start = -1
		case !set[c] && start < 0:
			start = i
		}
		if limit > 0 && len(tokens) > limit {
			return nil, fmt.Errorf("%w: more than %d", ErrTooManyTokens, limit)
		}
	}
	if start >= 0 {
		tokens = append(tokens, string(content[start:]))
	}
	if limit > 0 && len(tokens) > limit {
		return nil, fmt.Errorf("%w: more than %d", ErrTooManyTokens, limit)
	}

	return tokens, nil
}
