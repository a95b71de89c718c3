package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/lovromazgon/dstr"
	"github.com/lovromazgon/dstr/adapter"
)

// parseEvent parses an event written as "[<inlet>:] [selector] [atom...]".
// The inlet is 0 or 1 and defaults to 0. A bare number is an int or float
// message, a list starting with a number is a list message and an empty
// message is a bang.
func parseEvent(s string) (adapter.Event, error) {
	var ev adapter.Event
	if prefix, rest, ok := strings.Cut(s, ":"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(prefix)); err == nil {
			if n != int(adapter.Left) && n != int(adapter.Right) {
				return ev, fmt.Errorf("%w: %d", adapter.ErrUnknownInlet, n)
			}
			ev.Inlet = adapter.Operand(n)
			s = rest
		}
	}

	fields := strings.Fields(s)
	switch {
	case len(fields) == 0:
		ev.Selector = adapter.SelectorBang
	case len(fields) == 1 && parseAtom(fields[0]).Kind() == dstr.KindInt:
		ev.Selector = adapter.SelectorInt
		ev.Atoms = parseAtoms(fields)
	case len(fields) == 1 && parseAtom(fields[0]).Kind() == dstr.KindFloat:
		ev.Selector = adapter.SelectorFloat
		ev.Atoms = parseAtoms(fields)
	case parseAtom(fields[0]).Kind() != dstr.KindSymbol:
		ev.Selector = adapter.SelectorList
		ev.Atoms = parseAtoms(fields)
	default:
		ev.Selector = fields[0]
		ev.Atoms = parseAtoms(fields[1:])
	}
	return ev, nil
}

// parseAtom reads a number if the word is one, a symbol otherwise.
func parseAtom(s string) dstr.Atom {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return dstr.Int(n)
	}
	// ParseFloat also accepts words like "inf" and "nan", keep those symbols.
	if strings.ContainsAny(s, "0123456789") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return dstr.Float(f)
		}
	}
	return dstr.Symbol(s)
}

func parseAtoms(words []string) []dstr.Atom {
	if len(words) == 0 {
		return nil
	}
	atoms := make([]dstr.Atom, len(words))
	for i, w := range words {
		atoms[i] = parseAtom(w)
	}
	return atoms
}

// readEvents returns the events stored as a JSON array in file ("-" reads
// stdin) followed by the events given as arguments.
func readEvents(file string, stdin io.Reader, args []string) ([]adapter.Event, error) {
	var events []adapter.Event
	if file != "" {
		r := stdin
		if file != "-" {
			f, err := os.Open(file)
			if err != nil {
				return nil, fmt.Errorf("failed to open events: %w", err)
			}
			defer f.Close()
			r = f
		}
		if err := json.NewDecoder(r).Decode(&events); err != nil {
			return nil, fmt.Errorf("failed to decode events: %w", err)
		}
	}

	if len(args) > 0 && args[0] == "--" {
		args = args[1:]
	}
	for _, arg := range args {
		ev, err := parseEvent(arg)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func printOutputs(w io.Writer, outputs []adapter.Output, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		for _, out := range outputs {
			if err := enc.Encode(out); err != nil {
				return err
			}
		}
		return nil
	}

	for _, out := range outputs {
		line := make([]string, 0, len(out.Atoms)+1)
		line = append(line, out.Selector)
		for _, a := range out.Atoms {
			line = append(line, a.String())
		}
		if _, err := fmt.Fprintf(w, "%d: %s\n", out.Outlet, strings.Join(line, " ")); err != nil {
			return err
		}
	}
	return nil
}
