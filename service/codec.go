package service

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/lovromazgon/dstr"
	"github.com/lovromazgon/dstr/adapter"
	"google.golang.org/protobuf/types/known/structpb"
)

// Atoms travel as single-key structs. Ints are encoded as decimal strings,
// a protobuf number is a double and cannot hold every int64.
// Protobuf strings must be valid UTF-8 while buffer content is arbitrary
// bytes. Symbols that are not valid UTF-8 travel base64-encoded under the
// "bytes" key, other text under its key with the bytesSuffix.
const (
	keyInt    = "int"
	keyFloat  = "float"
	keySymbol = "symbol"
	keyBytes  = "bytes"

	bytesSuffix = "_bytes"
)

func encodeBase64(s string) *structpb.Value {
	return structpb.NewStringValue(base64.StdEncoding.EncodeToString([]byte(s)))
}

func decodeBase64(v *structpb.Value) (string, error) {
	k, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: bytes must be a base64 string", ErrInvalidRequest)
	}
	b, err := base64.StdEncoding.DecodeString(k.StringValue)
	if err != nil {
		return "", fmt.Errorf("%w: bytes: %w", ErrInvalidRequest, err)
	}
	return string(b), nil
}

// encodeText stores s under key, or base64-encoded under key+bytesSuffix if
// s is not valid UTF-8.
func encodeText(fields map[string]*structpb.Value, key, s string) {
	if utf8.ValidString(s) {
		fields[key] = structpb.NewStringValue(s)
		return
	}
	fields[key+bytesSuffix] = encodeBase64(s)
}

// decodeText is the inverse of encodeText. ok is false if neither key is
// present.
func decodeText(fields map[string]*structpb.Value, key string) (s string, ok bool, err error) {
	if v, found := fields[key+bytesSuffix]; found {
		s, err = decodeBase64(v)
		return s, true, err
	}
	v, found := fields[key]
	if !found {
		return "", false, nil
	}
	k, isString := v.GetKind().(*structpb.Value_StringValue)
	if !isString {
		return "", true, fmt.Errorf("%w: %s must be a string", ErrInvalidRequest, key)
	}
	return k.StringValue, true, nil
}

func encodeAtom(a dstr.Atom) *structpb.Value {
	var key string
	var v *structpb.Value
	switch a.Kind() {
	case dstr.KindInt:
		key, v = keyInt, structpb.NewStringValue(strconv.FormatInt(a.Int(), 10))
	case dstr.KindFloat:
		key, v = keyFloat, structpb.NewNumberValue(a.Float())
	case dstr.KindSymbol:
		key, v = keySymbol, structpb.NewStringValue(a.Symbol())
		if !utf8.ValidString(a.Symbol()) {
			key, v = keyBytes, encodeBase64(a.Symbol())
		}
	default:
		return structpb.NewNullValue()
	}
	return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{key: v}})
}

func decodeAtom(v *structpb.Value) (dstr.Atom, error) {
	s := v.GetStructValue()
	if s == nil || len(s.GetFields()) != 1 {
		return dstr.Atom{}, fmt.Errorf("%w: atom must be an object with exactly one key", ErrInvalidRequest)
	}

	for key, f := range s.GetFields() {
		return decodeAtomField(key, f)
	}
	return dstr.Atom{}, fmt.Errorf("%w: empty atom", ErrInvalidRequest)
}

func decodeAtomField(key string, f *structpb.Value) (dstr.Atom, error) {
	switch key {
	case keyInt:
		return decodeInt(f)
	case keyFloat:
		if _, ok := f.GetKind().(*structpb.Value_NumberValue); !ok {
			return dstr.Atom{}, fmt.Errorf("%w: float atom must hold a number", ErrInvalidRequest)
		}
		return dstr.Float(f.GetNumberValue()), nil
	case keySymbol:
		if _, ok := f.GetKind().(*structpb.Value_StringValue); !ok {
			return dstr.Atom{}, fmt.Errorf("%w: symbol atom must hold a string", ErrInvalidRequest)
		}
		return dstr.Symbol(f.GetStringValue()), nil
	case keyBytes:
		s, err := decodeBase64(f)
		if err != nil {
			return dstr.Atom{}, err
		}
		return dstr.Symbol(s), nil
	default:
		return dstr.Atom{}, fmt.Errorf("%w: unknown atom kind %q", ErrInvalidRequest, key)
	}
}

// decodeInt accepts the decimal string form and, for convenience, integral
// numbers.
func decodeInt(f *structpb.Value) (dstr.Atom, error) {
	switch k := f.GetKind().(type) {
	case *structpb.Value_StringValue:
		n, err := strconv.ParseInt(k.StringValue, 10, 64)
		if err != nil {
			return dstr.Atom{}, fmt.Errorf("%w: int atom: %w", ErrInvalidRequest, err)
		}
		return dstr.Int(n), nil
	case *structpb.Value_NumberValue:
		n := k.NumberValue
		if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
			return dstr.Atom{}, fmt.Errorf("%w: int atom %v is not an exact integer", ErrInvalidRequest, n)
		}
		return dstr.Int(int64(n)), nil
	default:
		return dstr.Atom{}, fmt.Errorf("%w: int atom must hold a decimal string", ErrInvalidRequest)
	}
}

func encodeAtoms(atoms []dstr.Atom) *structpb.Value {
	values := make([]*structpb.Value, len(atoms))
	for i, a := range atoms {
		values[i] = encodeAtom(a)
	}
	return structpb.NewListValue(&structpb.ListValue{Values: values})
}

func decodeAtoms(v *structpb.Value) ([]dstr.Atom, error) {
	if v == nil {
		return nil, nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("%w: atoms must be a list", ErrInvalidRequest)
	}
	var atoms []dstr.Atom
	for i, av := range list.GetValues() {
		a, err := decodeAtom(av)
		if err != nil {
			return nil, fmt.Errorf("atom %d: %w", i, err)
		}
		atoms = append(atoms, a)
	}
	return atoms, nil
}

// number returns the integral number stored under key, or def if the key is
// absent.
func number(s *structpb.Struct, key string, def int) (int, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return def, nil
	}
	k, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || k.NumberValue != math.Trunc(k.NumberValue) {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidRequest, key)
	}
	return int(k.NumberValue), nil
}

func encodeMessage(fields map[string]*structpb.Value, msg adapter.Message) {
	encodeText(fields, "selector", msg.Selector)
	fields["atoms"] = encodeAtoms(msg.Atoms)
}

func decodeMessage(s *structpb.Struct) (adapter.Message, error) {
	sel, ok, err := decodeText(s.GetFields(), "selector")
	if err != nil {
		return adapter.Message{}, err
	}
	if !ok {
		return adapter.Message{}, fmt.Errorf("%w: selector must be a string", ErrInvalidRequest)
	}
	atoms, err := decodeAtoms(s.GetFields()["atoms"])
	if err != nil {
		return adapter.Message{}, err
	}
	return adapter.Message{Selector: sel, Atoms: atoms}, nil
}

func encodeConfig(cfg adapter.Config) *structpb.Value {
	return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		"mode":       structpb.NewNumberValue(float64(cfg.Mode)),
		"precision":  structpb.NewNumberValue(float64(cfg.Precision)),
		"position":   structpb.NewNumberValue(float64(cfg.Position)),
		"max_tokens": structpb.NewNumberValue(float64(cfg.MaxTokens)),
		"initial":    encodeAtoms(cfg.Initial),
	}})
}

// decodeConfig starts from the default configuration and overrides the
// fields present in v.
func decodeConfig(v *structpb.Value) (adapter.Config, error) {
	cfg := adapter.DefaultConfig()
	if v == nil {
		return cfg, nil
	}
	s := v.GetStructValue()
	if s == nil {
		return cfg, fmt.Errorf("%w: config must be an object", ErrInvalidRequest)
	}

	mode, err := number(s, "mode", int(cfg.Mode))
	if err != nil {
		return cfg, err
	}
	if cfg.Precision, err = number(s, "precision", cfg.Precision); err != nil {
		return cfg, err
	}
	if cfg.Position, err = number(s, "position", cfg.Position); err != nil {
		return cfg, err
	}
	if cfg.MaxTokens, err = number(s, "max_tokens", cfg.MaxTokens); err != nil {
		return cfg, err
	}
	if cfg.Initial, err = decodeAtoms(s.GetFields()["initial"]); err != nil {
		return cfg, err
	}
	cfg.Mode = adapter.Mode(mode)
	return cfg, nil
}

// encodeRequest is the inverse of decodeRequest.
func encodeRequest(req adapter.Request) *structpb.Struct {
	events := make([]*structpb.Value, len(req.Events))
	for i, ev := range req.Events {
		fields := map[string]*structpb.Value{"inlet": structpb.NewNumberValue(float64(ev.Inlet))}
		encodeMessage(fields, ev.Message)
		events[i] = structpb.NewStructValue(&structpb.Struct{Fields: fields})
	}
	fields := map[string]*structpb.Value{
		"config": encodeConfig(req.Config),
		"events": structpb.NewListValue(&structpb.ListValue{Values: events}),
	}
	encodeText(fields, "adapter", req.Adapter)
	return &structpb.Struct{Fields: fields}
}

func decodeRequest(s *structpb.Struct) (adapter.Request, error) {
	var req adapter.Request

	name, ok, err := decodeText(s.GetFields(), "adapter")
	if err != nil {
		return req, err
	}
	if !ok {
		return req, fmt.Errorf("%w: adapter must be a string", ErrInvalidRequest)
	}
	req.Adapter = name

	cfg, err := decodeConfig(s.GetFields()["config"])
	if err != nil {
		return req, fmt.Errorf("config: %w", err)
	}
	req.Config = cfg

	events := s.GetFields()["events"]
	if events == nil {
		return req, nil
	}
	if events.GetListValue() == nil {
		return req, fmt.Errorf("%w: events must be a list", ErrInvalidRequest)
	}
	for i, ev := range events.GetListValue().GetValues() {
		es := ev.GetStructValue()
		if es == nil {
			return req, fmt.Errorf("event %d: %w: event must be an object", i, ErrInvalidRequest)
		}
		inlet, err := number(es, "inlet", int(adapter.Left))
		if err != nil {
			return req, fmt.Errorf("event %d: %w", i, err)
		}
		msg, err := decodeMessage(es)
		if err != nil {
			return req, fmt.Errorf("event %d: %w", i, err)
		}
		req.Events = append(req.Events, adapter.Event{Inlet: adapter.Operand(inlet), Message: msg})
	}
	return req, nil
}

func encodeOutputs(outputs []adapter.Output) *structpb.Struct {
	values := make([]*structpb.Value, len(outputs))
	for i, o := range outputs {
		fields := map[string]*structpb.Value{"outlet": structpb.NewNumberValue(float64(o.Outlet))}
		encodeMessage(fields, o.Message)
		values[i] = structpb.NewStructValue(&structpb.Struct{Fields: fields})
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"outputs": structpb.NewListValue(&structpb.ListValue{Values: values}),
	}}
}

func decodeOutputs(s *structpb.Struct) ([]adapter.Output, error) {
	list := s.GetFields()["outputs"].GetListValue()
	outputs := make([]adapter.Output, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		fields := v.GetStructValue()
		outlet, err := number(fields, "outlet", 0)
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
		msg, err := decodeMessage(fields)
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
		outputs = append(outputs, adapter.Output{Outlet: outlet, Message: msg})
	}
	return outputs, nil
}
