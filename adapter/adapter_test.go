package adapter

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/lovromazgon/dstr"
	"github.com/matryer/is"
)

var quiet = WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

func sym(s string) Message { return Message{Selector: s} }

func ints(n int64) Message {
	return Message{Selector: SelectorInt, Atoms: []dstr.Atom{dstr.Int(n)}}
}

func newAdapter(t *testing.T, name string, cfg Config, opt ...Option) (Adapter, *Recorder) {
	t.Helper()
	rec := &Recorder{}
	a, err := New(name, cfg, rec, append([]Option{quiet}, opt...)...)
	if err != nil {
		t.Fatalf("creating %s: %v", name, err)
	}
	t.Cleanup(a.Close)
	return a, rec
}

// drain returns the recorded outputs and resets the recorder.
func drain(rec *Recorder) []Output {
	out := rec.Outputs
	rec.Outputs = nil
	return out
}

func symOut(outlet int, s string) Output {
	return Output{Outlet: outlet, Message: sym(s)}
}

func intOut(outlet int, n int64) Output {
	return Output{Outlet: outlet, Message: ints(n)}
}

func TestNew(t *testing.T) {
	t.Run("should list all adapters", func(t *testing.T) {
		is := is.New(t)
		is.Equal(Names(), []string{"strcat", "strchr", "strcmp", "strcut", "strlen", "strstr", "strtok"})
	})

	t.Run("should reject unknown names", func(t *testing.T) {
		is := is.New(t)
		_, err := New("strrev", DefaultConfig(), nil)
		is.True(errors.Is(err, ErrUnknownAdapter))
	})

	t.Run("should release buffers when construction fails", func(t *testing.T) {
		is := is.New(t)
		alloc := dstr.NewFailingAllocator(1)
		_, err := New("strcat", DefaultConfig(), nil, quiet, WithAllocator(alloc))
		is.True(errors.Is(err, dstr.ErrAllocation))
		is.Equal(alloc.Outstanding(), 0)
	})
}

func TestConcat(t *testing.T) {
	t.Run("should emit only on the left inlet", func(t *testing.T) {
		is := is.New(t)
		a, rec := newAdapter(t, "strcat", DefaultConfig())

		is.NoErr(a.Handle(Right, sym("world")))
		is.Equal(len(drain(rec)), 0)

		is.NoErr(a.Handle(Left, sym("hello")))
		is.Equal(drain(rec), []Output{symOut(0, "helloworld")})
	})

	t.Run("should swap operands and re-emit on bang", func(t *testing.T) {
		is := is.New(t)
		cfg := DefaultConfig()
		cfg.Initial = []dstr.Atom{dstr.Symbol("b")}
		a, rec := newAdapter(t, "strcat", cfg)

		is.NoErr(a.Handle(Left, ints(1)))
		is.Equal(drain(rec), []Output{symOut(0, "1b")})

		is.NoErr(a.Handle(Left, Message{Selector: SelectorMode, Atoms: []dstr.Atom{dstr.Int(1)}}))
		is.Equal(len(drain(rec)), 0)

		is.NoErr(a.Handle(Right, sym(SelectorBang)))
		is.Equal(drain(rec), []Output{symOut(0, "b1")})
	})

	t.Run("should render floats with the configured precision", func(t *testing.T) {
		is := is.New(t)
		a, rec := newAdapter(t, "strcat", DefaultConfig())

		is.NoErr(a.Handle(Left, Message{Selector: SelectorPrecision, Atoms: []dstr.Atom{dstr.Int(2)}}))
		is.NoErr(a.Handle(Left, Message{Selector: SelectorFloat, Atoms: []dstr.Atom{dstr.Float(1.5)}}))
		is.Equal(drain(rec), []Output{symOut(0, "1.50")})

		is.NoErr(a.Handle(Left, Message{Selector: SelectorPrecision, Atoms: []dstr.Atom{dstr.Int(42)}}))
		is.NoErr(a.Handle(Left, Message{Selector: SelectorFloat, Atoms: []dstr.Atom{dstr.Float(0.5)}}))
		is.Equal(drain(rec), []Output{symOut(0, "0.5000000000")})
	})

	t.Run("should join lists and anything messages", func(t *testing.T) {
		is := is.New(t)
		a, rec := newAdapter(t, "strcat", Config{Precision: 1})

		is.NoErr(a.Handle(Right, Message{Selector: SelectorList, Atoms: []dstr.Atom{dstr.Symbol("!")}}))
		is.NoErr(a.Handle(Left, Message{Selector: SelectorList, Atoms: []dstr.Atom{dstr.Int(1), dstr.Float(2.5), dstr.Symbol("x")}}))
		is.Equal(drain(rec), []Output{symOut(0, "1 2.5 x!")})

		is.NoErr(a.Handle(Left, Message{Selector: "say", Atoms: []dstr.Atom{dstr.Symbol("hi")}}))
		is.Equal(drain(rec), []Output{symOut(0, "say hi!")})
	})

	t.Run("should fill without output on set", func(t *testing.T) {
		is := is.New(t)
		a, rec := newAdapter(t, "strcat", DefaultConfig())

		is.NoErr(a.Handle(Left, Message{Selector: SelectorSet, Atoms: []dstr.Atom{dstr.Symbol("a"), dstr.Symbol("b")}}))
		is.Equal(len(drain(rec)), 0)

		is.NoErr(a.Handle(Left, sym(SelectorBang)))
		is.Equal(drain(rec), []Output{symOut(0, "a b")})
	})

	t.Run("should emit a placeholder when the scratch buffer cannot be allocated", func(t *testing.T) {
		is := is.New(t)
		alloc := dstr.NewFailingAllocator(2)
		rec := &Recorder{}
		a, err := NewConcat(DefaultConfig(), rec, quiet, WithAllocator(alloc))
		is.NoErr(err)

		is.NoErr(a.Handle(Left, sym(SelectorBang)))
		is.Equal(drain(rec), []Output{symOut(0, ErrorPlaceholder)})
		is.True(errors.Is(a.Err(), dstr.ErrAllocation))

		a.Close()
		is.Equal(alloc.Outstanding(), 0)
	})

	t.Run("should reject malformed messages", func(t *testing.T) {
		is := is.New(t)
		a, _ := newAdapter(t, "strcat", DefaultConfig())

		is.True(errors.Is(a.Handle(Left, Message{Selector: SelectorInt}), ErrBadMessage))
		is.True(errors.Is(a.Handle(Left, Message{Selector: SelectorInt, Atoms: []dstr.Atom{dstr.Symbol("x")}}), ErrBadMessage))
		is.True(errors.Is(a.Handle(Operand(2), sym("x")), ErrUnknownInlet))
	})
}

func TestLocateChar(t *testing.T) {
	t.Run("should locate the first byte of the right operand", func(t *testing.T) {
		is := is.New(t)
		a, rec := newAdapter(t, "strchr", DefaultConfig())

		is.NoErr(a.Handle(Right, sym("lo")))
		is.NoErr(a.Handle(Left, sym("hello")))
		is.Equal(drain(rec), []Output{intOut(0, 3)})
	})

	t.Run("should not find an empty operand", func(t *testing.T) {
		is := is.New(t)
		a, rec := newAdapter(t, "strchr", DefaultConfig())

		is.NoErr(a.Handle(Left, sym("hello")))
		is.Equal(drain(rec), []Output{intOut(0, -1)})
	})

	t.Run("should search the right operand in swapped mode", func(t *testing.T) {
		is := is.New(t)
		a, rec := newAdapter(t, "strchr", Config{Mode: Swapped})

		is.NoErr(a.Handle(Right, sym("hello")))
		is.NoErr(a.Handle(Left, sym("o")))
		is.Equal(drain(rec), []Output{intOut(0, 5)})
	})
}

func TestLocateSubstring(t *testing.T) {
	is := is.New(t)
	a, rec := newAdapter(t, "strstr", DefaultConfig())

	is.NoErr(a.Handle(Right, sym("lo")))
	is.NoErr(a.Handle(Left, sym("hello")))
	is.NoErr(a.Handle(Right, sym("xyz")))
	is.NoErr(a.Handle(Left, sym(SelectorBang)))
	is.NoErr(a.Handle(Right, Message{Selector: SelectorList}))
	is.NoErr(a.Handle(Left, sym(SelectorBang)))

	is.Equal(drain(rec), []Output{intOut(0, 4), intOut(0, -1), intOut(0, 1)})
}

func TestCompare(t *testing.T) {
	testCases := []struct {
		name        string
		mode        Mode
		left, right string
		want        []Output
	}{
		{"less", Normal, "abc", "abd", []Output{intOut(1, -1), intOut(0, 0)}},
		{"equal", Normal, "abc", "abc", []Output{intOut(1, 0), intOut(0, 1)}},
		{"prefix", Normal, "ab", "abc", []Output{intOut(1, -1), intOut(0, 0)}},
		{"swapped", Swapped, "ab", "abc", []Output{intOut(1, 1), intOut(0, 0)}},
	}
	for _, tc := range testCases {
		t.Run("should order "+tc.name, func(t *testing.T) {
			is := is.New(t)
			a, rec := newAdapter(t, "strcmp", Config{Mode: tc.mode})

			is.NoErr(a.Handle(Right, sym(tc.right)))
			is.NoErr(a.Handle(Left, sym(tc.left)))
			is.Equal(drain(rec), tc.want)
		})
	}
}

func TestCut(t *testing.T) {
	t.Run("should cut the initial input at the initial position", func(t *testing.T) {
		is := is.New(t)
		a, rec := newAdapter(t, "strcut", Config{Position: 2, Initial: []dstr.Atom{dstr.Symbol("hello")}})

		is.NoErr(a.Handle(Left, sym(SelectorBang)))
		is.Equal(drain(rec), []Output{symOut(1, "llo"), symOut(0, "he")})
	})

	t.Run("should take the position on the right inlet", func(t *testing.T) {
		is := is.New(t)
		a, rec := newAdapter(t, "strcut", DefaultConfig())

		is.NoErr(a.Handle(Right, ints(-3)))
		is.NoErr(a.Handle(Left, sym("hello")))
		is.Equal(drain(rec), []Output{symOut(1, "hello"), symOut(0, "")})

		is.NoErr(a.Handle(Right, ints(99)))
		is.Equal(len(drain(rec)), 0)
		is.NoErr(a.Handle(Left, sym(SelectorBang)))
		is.Equal(drain(rec), []Output{symOut(1, ""), symOut(0, "hello")})
	})

	t.Run("should exchange outlets in swapped mode", func(t *testing.T) {
		is := is.New(t)
		a, rec := newAdapter(t, "strcut", Config{Mode: Swapped, Position: 2})

		is.NoErr(a.Handle(Left, sym("hello")))
		is.Equal(drain(rec), []Output{symOut(1, "he"), symOut(0, "llo")})
	})

	t.Run("should truncate a float position", func(t *testing.T) {
		is := is.New(t)
		a, rec := newAdapter(t, "strcut", DefaultConfig())

		is.NoErr(a.Handle(Right, Message{Selector: SelectorFloat, Atoms: []dstr.Atom{dstr.Float(2.9)}}))
		is.NoErr(a.Handle(Left, sym("hello")))
		is.Equal(drain(rec), []Output{symOut(1, "llo"), symOut(0, "he")})

		is.NoErr(a.Handle(Right, Message{Selector: SelectorFloat, Atoms: []dstr.Atom{dstr.Float(-0.5)}}))
		is.NoErr(a.Handle(Left, sym(SelectorBang)))
		is.Equal(drain(rec), []Output{symOut(1, "hello"), symOut(0, "")})
	})

	t.Run("should only accept numbers on the right inlet", func(t *testing.T) {
		is := is.New(t)
		a, _ := newAdapter(t, "strcut", DefaultConfig())
		is.True(errors.Is(a.Handle(Right, sym("two")), ErrBadMessage))
		is.True(errors.Is(a.Handle(Right, Message{Selector: SelectorFloat}), ErrBadMessage))
	})
}

func TestLength(t *testing.T) {
	t.Run("should emit the length in bytes", func(t *testing.T) {
		is := is.New(t)
		a, rec := newAdapter(t, "strlen", DefaultConfig())

		is.NoErr(a.Handle(Left, sym("hello")))
		is.NoErr(a.Handle(Left, Message{Selector: SelectorList, Atoms: []dstr.Atom{dstr.Int(1), dstr.Int(22)}}))
		is.NoErr(a.Handle(Left, Message{Selector: SelectorList}))
		is.Equal(drain(rec), []Output{intOut(0, 5), intOut(0, 4), intOut(0, 0)})
	})

	t.Run("should have a single inlet", func(t *testing.T) {
		is := is.New(t)
		a, _ := newAdapter(t, "strlen", DefaultConfig())
		is.True(errors.Is(a.Handle(Right, sym("x")), ErrUnknownInlet))
	})

	t.Run("should report -1 when the input cannot grow", func(t *testing.T) {
		is := is.New(t)
		alloc := dstr.NewBudgetAllocator(64)
		rec := &Recorder{}
		a, err := NewLength(DefaultConfig(), rec, quiet, WithAllocator(alloc))
		is.NoErr(err)

		is.NoErr(a.Handle(Left, sym(strings.Repeat("x", 100))))
		is.Equal(drain(rec), []Output{intOut(0, -1)})
		is.True(errors.Is(a.Err(), dstr.ErrAllocation))

		a.Close()
		is.Equal(alloc.InUse(), 0)
	})
}

func TestTokenize(t *testing.T) {
	t.Run("should emit the first token as the selector", func(t *testing.T) {
		is := is.New(t)
		a, rec := newAdapter(t, "strtok", DefaultConfig())

		is.NoErr(a.Handle(Right, Message{Selector: SelectorSet, Atoms: []dstr.Atom{dstr.Symbol(",")}}))
		is.NoErr(a.Handle(Left, Message{Selector: "a,b", Atoms: []dstr.Atom{dstr.Symbol(",c")}}))
		is.Equal(drain(rec), []Output{{Outlet: 0, Message: Message{
			Selector: "a",
			Atoms:    []dstr.Atom{dstr.Symbol("b "), dstr.Symbol("c")},
		}}})
	})

	t.Run("should emit nothing without tokens", func(t *testing.T) {
		is := is.New(t)
		a, rec := newAdapter(t, "strtok", Config{Initial: []dstr.Atom{dstr.Symbol("-")}})

		is.NoErr(a.Handle(Left, sym("---")))
		is.Equal(len(drain(rec)), 0)
	})

	t.Run("should emit nothing above the token limit", func(t *testing.T) {
		is := is.New(t)
		var logs bytes.Buffer
		rec := &Recorder{}
		a, err := NewTokenize(
			Config{MaxTokens: 2, Initial: []dstr.Atom{dstr.Symbol(" ")}},
			rec,
			WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
		)
		is.NoErr(err)
		defer a.Close()

		is.NoErr(a.Handle(Left, Message{Selector: SelectorList, Atoms: []dstr.Atom{dstr.Symbol("a"), dstr.Symbol("b"), dstr.Symbol("c")}}))
		is.Equal(len(drain(rec)), 0)
		is.True(strings.Contains(logs.String(), "too many tokens"))
		is.NoErr(a.Err())
	})

	t.Run("should split the right operand in swapped mode", func(t *testing.T) {
		is := is.New(t)
		a, rec := newAdapter(t, "strtok", Config{Mode: Swapped, Initial: []dstr.Atom{dstr.Symbol("x.y")}})

		is.NoErr(a.Handle(Left, sym(".")))
		is.Equal(drain(rec), []Output{{Outlet: 0, Message: Message{Selector: "x", Atoms: []dstr.Atom{dstr.Symbol("y")}}}})
	})
}

func TestPost(t *testing.T) {
	is := is.New(t)
	var logs bytes.Buffer
	a, err := New("strcat", DefaultConfig(), nil, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	is.NoErr(err)
	defer a.Close()

	is.NoErr(a.Handle(Left, Message{Selector: SelectorSet, Atoms: []dstr.Atom{dstr.Symbol("left-content")}}))
	is.NoErr(a.Handle(Right, sym(SelectorPost)))
	is.True(strings.Contains(logs.String(), "left=left-content"))
	is.True(strings.Contains(logs.String(), "adapter=strcat"))
}

func TestRun(t *testing.T) {
	t.Run("should feed events in order", func(t *testing.T) {
		is := is.New(t)
		out, err := Run(context.Background(), Request{
			Adapter: "strcmp",
			Config:  DefaultConfig(),
			Events: []Event{
				{Inlet: Right, Message: sym("b")},
				{Inlet: Left, Message: sym("a")},
				{Inlet: Left, Message: sym("b")},
			},
		}, quiet)
		is.NoErr(err)
		is.Equal(out, []Output{intOut(1, -1), intOut(0, 0), intOut(1, 0), intOut(0, 1)})
	})

	t.Run("should stop at a bad event", func(t *testing.T) {
		is := is.New(t)
		out, err := Run(context.Background(), Request{
			Adapter: "strlen",
			Events: []Event{
				{Inlet: Left, Message: sym("abc")},
				{Inlet: Right, Message: sym("abc")},
				{Inlet: Left, Message: sym("never")},
			},
		}, quiet)
		is.True(errors.Is(err, ErrUnknownInlet))
		is.True(strings.HasPrefix(err.Error(), "event 1:"))
		is.Equal(out, []Output{intOut(0, 3)})
	})

	t.Run("should stop when the context is done", func(t *testing.T) {
		is := is.New(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		out, err := Run(ctx, Request{
			Adapter: "strlen",
			Events:  []Event{{Inlet: Left, Message: sym("abc")}},
		}, quiet)
		is.True(errors.Is(err, context.Canceled))
		is.Equal(len(out), 0)
	})

	t.Run("should release every buffer", func(t *testing.T) {
		is := is.New(t)
		alloc := dstr.NewBudgetAllocator(1 << 10)
		_, err := Run(context.Background(), Request{
			Adapter: "strcat",
			Events: []Event{
				{Inlet: Right, Message: sym(strings.Repeat("r", 40))},
				{Inlet: Left, Message: sym(strings.Repeat("l", 40))},
			},
		}, quiet, WithAllocator(alloc))
		is.NoErr(err)
		is.Equal(alloc.InUse(), 0)
	})
}
