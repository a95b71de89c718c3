package adapter

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/lovromazgon/dstr"
)

// messageJSON is the wire form of a Message. JSON strings are UTF-8, so a
// selector that is not valid UTF-8 is also carried as base64 in
// selector_bytes, which wins over selector when decoding.
type messageJSON struct {
	Selector      string      `json:"selector"`
	SelectorBytes []byte      `json:"selector_bytes,omitempty"`
	Atoms         []dstr.Atom `json:"atoms,omitempty"`
}

func toMessageJSON(m Message) messageJSON {
	v := messageJSON{Selector: m.Selector, Atoms: m.Atoms}
	if !utf8.ValidString(m.Selector) {
		v.Selector = strings.ToValidUTF8(m.Selector, "\uFFFD")
		v.SelectorBytes = []byte(m.Selector)
	}
	return v
}

func (v messageJSON) message() Message {
	m := Message{Selector: v.Selector, Atoms: v.Atoms}
	if v.SelectorBytes != nil {
		m.Selector = string(v.SelectorBytes)
	}
	return m
}

func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(toMessageJSON(m))
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var v messageJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = v.message()
	return nil
}

// Event and Output need their own methods, the ones promoted from Message
// would drop the inlet and outlet.

type eventJSON struct {
	Inlet Operand `json:"inlet"`
	messageJSON
}

func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventJSON{Inlet: e.Inlet, messageJSON: toMessageJSON(e.Message)})
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var v eventJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*e = Event{Inlet: v.Inlet, Message: v.message()}
	return nil
}

type outputJSON struct {
	Outlet int `json:"outlet"`
	messageJSON
}

func (o Output) MarshalJSON() ([]byte, error) {
	return json.Marshal(outputJSON{Outlet: o.Outlet, messageJSON: toMessageJSON(o.Message)})
}

func (o *Output) UnmarshalJSON(data []byte) error {
	var v outputJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Output{Outlet: v.Outlet, Message: v.message()}
	return nil
}
