package adapter

import (
	"context"
	"fmt"
)

// Event is a message delivered to an inlet.
type Event struct {
	Inlet Operand `json:"inlet"`
	Message
}

// Output is a message emitted on an outlet.
type Output struct {
	Outlet int `json:"outlet"`
	Message
}

// Request describes a batch run of one adapter.
type Request struct {
	Adapter string  `json:"adapter"`
	Config  Config  `json:"config"`
	Events  []Event `json:"events"`
}

// Recorder is an Outlet that collects every emitted message in order.
type Recorder struct {
	Outputs []Output
}

func (r *Recorder) Emit(outlet int, msg Message) {
	r.Outputs = append(r.Outputs, Output{Outlet: outlet, Message: msg})
}

// Run creates the adapter named in the request, delivers the events in order
// and returns everything the adapter emitted. The context is checked between
// events. If the adapter ran into an allocation failure, the outputs are
// returned together with an error wrapping dstr.ErrAllocation.
func Run(ctx context.Context, req Request, opt ...Option) ([]Output, error) {
	rec := &Recorder{}
	a, err := New(req.Adapter, req.Config, rec, opt...)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	for i, ev := range req.Events {
		if err := ctx.Err(); err != nil {
			return rec.Outputs, err
		}
		if err := a.Handle(ev.Inlet, ev.Message); err != nil {
			return rec.Outputs, fmt.Errorf("event %d: %w", i, err)
		}
	}
	return rec.Outputs, a.Err()
}
