package dstr

import (
	"errors"
	"testing"

	"github.com/matryer/is"
)

func newString(t *testing.T, s string) *Buffer {
	t.Helper()
	b := New()
	if err := b.AssignString(s); err != nil {
		t.Fatalf("failed to create buffer: %v", err)
	}
	t.Cleanup(b.Destroy)
	return b
}

func invalidBuffer() *Buffer {
	b := New()
	b.Destroy()
	return b
}

func TestCompare(t *testing.T) {
	testCases := []struct {
		a, b  string
		want  Ordering
		equal bool
	}{
		{"hello", "hello", Equal, true},
		{"", "", Equal, true},
		{"abc", "abd", Less, false},
		{"abd", "abc", Greater, false},
		{"ab", "abc", Less, false}, // a proper prefix is never equal
		{"abc", "ab", Greater, false},
		{"", "a", Less, false},
		{"B", "a", Less, false},
		{"\xff", "a", Greater, false},
	}

	for _, tc := range testCases {
		t.Run("should compare "+tc.a+" to "+tc.b, func(t *testing.T) {
			is := is.New(t)
			a, b := newString(t, tc.a), newString(t, tc.b)

			got, equal, err := Compare(a, b)
			is.NoErr(err)
			is.Equal(got, tc.want)
			is.Equal(equal, tc.equal)

			// compare(b, a) is the reverse
			rev, revEqual, err := Compare(b, a)
			is.NoErr(err)
			is.Equal(rev, -got)
			is.Equal(revEqual, equal)
		})
	}

	t.Run("should fail if either operand is invalid", func(t *testing.T) {
		is := is.New(t)
		a := newString(t, "a")

		_, equal, err := Compare(a, invalidBuffer())
		is.True(errors.Is(err, ErrInvalid))
		is.True(!equal)
		_, _, err = Compare(invalidBuffer(), a)
		is.True(errors.Is(err, ErrInvalid))
	})
}

func TestIndex(t *testing.T) {
	t.Run("should find substrings at 1-based positions", func(t *testing.T) {
		is := is.New(t)
		a := newString(t, "hello")

		pos, err := Index(a, newString(t, "lo"))
		is.NoErr(err)
		is.Equal(pos, 4)

		pos, err = Index(a, newString(t, "h"))
		is.NoErr(err)
		is.Equal(pos, 1)

		pos, err = Index(a, newString(t, ""))
		is.NoErr(err)
		is.Equal(pos, 1)
	})

	t.Run("should report absent substrings", func(t *testing.T) {
		is := is.New(t)
		pos, err := Index(newString(t, "hello"), newString(t, "lo wor"))
		is.NoErr(err)
		is.Equal(pos, NotFound)

		pos, err = Index(newString(t, ""), newString(t, "x"))
		is.NoErr(err)
		is.Equal(pos, NotFound)
	})

	t.Run("should fail on invalid operands", func(t *testing.T) {
		is := is.New(t)
		pos, err := Index(invalidBuffer(), newString(t, "x"))
		is.True(errors.Is(err, ErrInvalid))
		is.Equal(pos, NotFound)
	})
}

func TestIndexByte(t *testing.T) {
	is := is.New(t)
	src := newString(t, "hello")

	pos, err := IndexByte(src, 'h')
	is.NoErr(err)
	is.Equal(pos, 1)

	pos, err = IndexByte(src, 'l')
	is.NoErr(err)
	is.Equal(pos, 3)

	pos, err = IndexByte(src, 'z')
	is.NoErr(err)
	is.Equal(pos, NotFound)

	pos, err = IndexByte(src, 0) // the sentinel is not content
	is.NoErr(err)
	is.Equal(pos, NotFound)

	_, err = IndexByte(invalidBuffer(), 'h')
	is.True(errors.Is(err, ErrInvalid))
}

func TestSplit(t *testing.T) {
	t.Run("should split at every position", func(t *testing.T) {
		const content = "hello"
		for p := -2; p <= len(content)+2; p++ {
			is := is.New(t)
			src := newString(t, content)
			left, right := newString(t, "stale"), newString(t, "stale")

			is.NoErr(Split(left, right, src, p))
			is.Equal(left.Len()+right.Len(), src.Len())
			is.Equal(left.String()+right.String(), content)

			switch {
			case p <= 0:
				is.Equal(left.String(), "")
			case p >= len(content):
				is.Equal(right.String(), "")
			default:
				is.Equal(left.Len(), p)
			}
		}
	})

	t.Run("should split hello at 2", func(t *testing.T) {
		is := is.New(t)
		left, right := New(), New()
		defer left.Destroy()
		defer right.Destroy()

		is.NoErr(Split(left, right, newString(t, "hello"), 2))
		is.Equal(left.String(), "he")
		is.Equal(right.String(), "llo")
	})

	t.Run("should split into its own source", func(t *testing.T) {
		is := is.New(t)
		src := newString(t, "hello")
		right := New()
		defer right.Destroy()

		is.NoErr(Split(src, right, src, 1))
		is.Equal(src.String(), "h")
		is.Equal(right.String(), "ello")
	})

	t.Run("should fail on invalid operands", func(t *testing.T) {
		is := is.New(t)
		left := newString(t, "")
		err := Split(left, invalidBuffer(), newString(t, "abc"), 1)
		is.True(errors.Is(err, ErrInvalid))
	})
}

func TestTokenize(t *testing.T) {
	testCases := []struct {
		name   string
		src    string
		delims string
		want   []string
	}{
		{"spaces", "a bc  d", " ", []string{"a", "bc", "d"}},
		{"leading and trailing delimiters", ",,a,b,,", ",", []string{"a", "b"}},
		{"delimiter set", "a-b_c d", "-_ ", []string{"a", "b", "c", "d"}},
		{"no delimiters", "abc", "", []string{"abc"}},
		{"only delimiters", "   ", " ", nil},
		{"empty source", "", " ", nil},
	}

	for _, tc := range testCases {
		t.Run("should tokenize "+tc.name, func(t *testing.T) {
			is := is.New(t)
			got, err := Tokenize(newString(t, tc.src), newString(t, tc.delims), 0)
			is.NoErr(err)
			is.Equal(got, tc.want)
		})
	}

	t.Run("should fail loudly above the limit", func(t *testing.T) {
		is := is.New(t)
		src, delims := newString(t, "a b c"), newString(t, " ")

		got, err := Tokenize(src, delims, 3)
		is.NoErr(err)
		is.Equal(len(got), 3)

		got, err = Tokenize(src, delims, 2)
		is.True(errors.Is(err, ErrTooManyTokens))
		is.Equal(got, nil)
	})

	t.Run("should leave the source untouched", func(t *testing.T) {
		is := is.New(t)
		src := newString(t, "a b")
		_, err := Tokenize(src, newString(t, " "), 0)
		is.NoErr(err)
		is.Equal(src.String(), "a b")
	})
}
