package dstr

import "fmt"

// AssignEmpty sets the length of the content to zero. The capacity is kept,
// so the buffer can be refilled without allocating.
func (b *Buffer) AssignEmpty() error {
	if !b.Valid() {
		return ErrInvalid
	}
	b.setLen(0)
	return nil
}

// AssignBytes replaces the content with a copy of p.
func (b *Buffer) AssignBytes(p []byte) error {
	if err := b.reserve(len(p)); err != nil {
		return err
	}
	copy(b.data[:cap(b.data)], p)
	b.setLen(len(p))
	return nil
}

// AssignString replaces the content with the bytes of s.
func (b *Buffer) AssignString(s string) error {
	if err := b.reserve(len(s)); err != nil {
		return err
	}
	copy(b.data[:cap(b.data)], s)
	b.setLen(len(s))
	return nil
}

// AssignInt replaces the content with the base-10 rendering of n.
func (b *Buffer) AssignInt(n int64) error {
	var scratch [24]byte
	return b.AssignBytes(formatInt(scratch[:0], n))
}

// AssignDecimal replaces the content with the fixed-point rendering of f with
// precision digits after the decimal point.
func (b *Buffer) AssignDecimal(f float64, precision int) error {
	if !b.Valid() {
		return ErrInvalid
	}
	var scratch [32]byte
	p, err := formatDecimal(scratch[:0], f, precision)
	if err != nil {
		return err
	}
	return b.AssignBytes(p)
}

// AssignFrom replaces the content with a copy of the content of other.
func (b *Buffer) AssignFrom(other *Buffer) error {
	if !b.Valid() || !other.Valid() {
		return ErrInvalid
	}
	if b == other {
		return nil
	}
	return b.AssignBytes(other.Bytes())
}

// AppendBytes appends a copy of p to the content.
func (b *Buffer) AppendBytes(p []byte) error {
	n := b.Len()
	if err := b.reserve(n + len(p)); err != nil {
		return err
	}
	copy(b.data[n:cap(b.data)], p)
	b.setLen(n + len(p))
	return nil
}

// AppendString appends the bytes of s to the content.
func (b *Buffer) AppendString(s string) error {
	n := b.Len()
	if err := b.reserve(n + len(s)); err != nil {
		return err
	}
	copy(b.data[n:cap(b.data)], s)
	b.setLen(n + len(s))
	return nil
}

// AppendByte appends a single byte to the content.
func (b *Buffer) AppendByte(c byte) error {
	n := b.Len()
	if err := b.reserve(n + 1); err != nil {
		return err
	}
	b.data = b.data[:n+2]
	b.data[n] = c
	b.data[n+1] = 0
	return nil
}

// AppendInt appends the base-10 rendering of n to the content.
func (b *Buffer) AppendInt(n int64) error {
	var scratch [24]byte
	return b.AppendBytes(formatInt(scratch[:0], n))
}

// AppendDecimal appends the fixed-point rendering of f with precision digits
// after the decimal point to the content.
func (b *Buffer) AppendDecimal(f float64, precision int) error {
	if !b.Valid() {
		return ErrInvalid
	}
	var scratch [32]byte
	p, err := formatDecimal(scratch[:0], f, precision)
	if err != nil {
		return err
	}
	return b.AppendBytes(p)
}

// AppendFrom appends the content of other. Appending a buffer to itself
// doubles its content.
func (b *Buffer) AppendFrom(other *Buffer) error {
	if !b.Valid() || !other.Valid() {
		return ErrInvalid
	}
	return b.AppendBytes(other.Bytes())
}

// RangeCopy replaces the content with count bytes of src starting at offset.
// The range must lie within the content of src, otherwise ErrRange is
// returned and the buffer is left untouched. src may be the buffer itself.
func (b *Buffer) RangeCopy(src *Buffer, offset, count int) error {
	if !b.Valid() || !src.Valid() {
		return ErrInvalid
	}
	if offset < 0 || count < 0 || offset > src.Len()-count {
		return fmt.Errorf("%w: offset %d, count %d, length %d", ErrRange, offset, count, src.Len())
	}

	if b == src {
		copy(b.data, b.data[offset:offset+count])
		b.setLen(count)
		return nil
	}

	if err := b.reserve(count); err != nil {
		return err
	}
	copy(b.data[:cap(b.data)], src.data[offset:offset+count])
	b.setLen(count)
	return nil
}
