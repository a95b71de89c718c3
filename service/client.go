package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/lovromazgon/dstr"
	"github.com/lovromazgon/dstr/adapter"
	hgrpc "github.com/lovromazgon/dstr/grpc"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Measurement is the result of Client.Measure.
type Measurement struct {
	Length   int
	Capacity int
	// CString is the content followed by the terminating zero byte.
	CString []byte
}

// Client is a typed client of dstr.v1.AdapterService.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// InstantiatePlugin instantiates the Wasm plugin in the runtime and returns
// the module together with a client talking to it. The caller closes the
// module.
func InstantiatePlugin(
	ctx context.Context,
	runtime wazero.Runtime,
	source []byte,
	opts ...hgrpc.ClientOption,
) (api.Module, *Client, error) {
	module, client, err := hgrpc.InstantiateModuleAndClient(ctx, runtime, source, NewClient, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to instantiate dstr plugin: %w", err)
	}
	return module, client, nil
}

// Process runs the adapter described by req and returns its outputs.
func (c *Client) Process(ctx context.Context, req adapter.Request) ([]adapter.Output, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ProcessMethod, encodeRequest(req), out); err != nil {
		return nil, fromStatus(err)
	}
	return decodeOutputs(out)
}

// Measure joins atoms with the given float precision and reports the buffer
// that holds them.
func (c *Client) Measure(ctx context.Context, atoms []dstr.Atom, precision int) (Measurement, error) {
	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		"atoms":     encodeAtoms(atoms),
		"precision": structpb.NewNumberValue(float64(precision)),
	}}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MeasureMethod, in, out); err != nil {
		return Measurement{}, fromStatus(err)
	}

	length, err := number(out, "length", dstr.Absent)
	if err != nil {
		return Measurement{}, err
	}
	capacity, err := number(out, "capacity", dstr.Absent)
	if err != nil {
		return Measurement{}, err
	}
	cstring, _, err := decodeText(out.GetFields(), "cstring")
	if err != nil {
		return Measurement{}, err
	}
	return Measurement{
		Length:   length,
		Capacity: capacity,
		CString:  []byte(cstring),
	}, nil
}

// fromStatus turns the status codes produced by the server back into the
// sentinel errors they stand for, so callers can use errors.Is on both sides
// of the plugin boundary.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", dstr.ErrAllocation, st.Message())
	case codes.InvalidArgument:
		if strings.Contains(st.Message(), adapter.ErrUnknownAdapter.Error()) {
			return fmt.Errorf("%w: %s", adapter.ErrUnknownAdapter, st.Message())
		}
		return fmt.Errorf("%w: %s", ErrInvalidRequest, st.Message())
	default:
		return err
	}
}
