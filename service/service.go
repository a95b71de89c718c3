// Package service exposes the adapters as the gRPC service
// dstr.v1.AdapterService. Requests and responses are google.protobuf.Struct
// values, so the service works without generated code and can be served both
// in-process and from a Wasm plugin.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/lovromazgon/dstr"
	"github.com/lovromazgon/dstr/adapter"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "dstr.v1.AdapterService"

	ProcessMethod = "/" + ServiceName + "/Process"
	MeasureMethod = "/" + ServiceName + "/Measure"
)

// ErrInvalidRequest is returned for requests that cannot be decoded.
var ErrInvalidRequest = errors.New("invalid request")

// AdapterServiceServer is the server API of dstr.v1.AdapterService.
type AdapterServiceServer interface {
	// Process runs an adapter over a list of events and returns its outputs.
	Process(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Measure joins a list of atoms into a buffer and reports its length,
	// capacity and NUL-terminated content.
	Measure(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func processHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdapterServiceServer).Process(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ProcessMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AdapterServiceServer).Process(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func measureHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdapterServiceServer).Measure(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MeasureMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AdapterServiceServer).Measure(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc is the grpc.ServiceDesc for dstr.v1.AdapterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AdapterServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Process", Handler: processHandler},
		{MethodName: "Measure", Handler: measureHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dstr/v1/adapter.proto",
}

// Register registers the adapter service on the service registrar. Use it
// when initializing the plugin, or with a regular grpc.Server.
func Register(srv grpc.ServiceRegistrar, opt ...Option) {
	srv.RegisterService(&ServiceDesc, NewServer(opt...))
}

// Server implements AdapterServiceServer on top of adapter.Run.
type Server struct {
	opts options
}

var _ AdapterServiceServer = (*Server)(nil)

func NewServer(opt ...Option) *Server {
	return &Server{opts: newOptions(opt)}
}

func (s *Server) Process(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeRequest(in)
	if err != nil {
		return nil, toStatus(err)
	}

	outputs, err := adapter.Run(ctx, req,
		adapter.WithLogger(s.opts.logger),
		adapter.WithAllocator(s.opts.allocator),
	)
	if err != nil {
		s.opts.logger.WarnContext(ctx, "adapter run failed", "adapter", req.Adapter, "error", err)
		return nil, toStatus(err)
	}
	return encodeOutputs(outputs), nil
}

func (s *Server) Measure(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	atoms, err := decodeAtoms(in.GetFields()["atoms"])
	if err != nil {
		return nil, toStatus(err)
	}
	precision, err := number(in, "precision", dstr.DefaultPrecision)
	if err != nil {
		return nil, toStatus(err)
	}

	b := dstr.New(dstr.WithAllocator(s.opts.allocator))
	defer b.Destroy()
	if err := b.Join(atoms, precision); err != nil {
		return nil, toStatus(err)
	}

	fields := map[string]*structpb.Value{
		"length":   structpb.NewNumberValue(float64(b.Len())),
		"capacity": structpb.NewNumberValue(float64(b.Cap())),
	}
	encodeText(fields, "cstring", string(b.CString()))
	return &structpb.Struct{Fields: fields}, nil
}

// toStatus maps errors of the adapters and the buffer core to gRPC statuses.
func toStatus(err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, dstr.ErrAllocation), errors.Is(err, dstr.ErrInvalid):
		code = codes.ResourceExhausted
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, adapter.ErrUnknownAdapter),
		errors.Is(err, adapter.ErrUnknownInlet),
		errors.Is(err, adapter.ErrBadMessage),
		errors.Is(err, dstr.ErrPrecision):
		code = codes.InvalidArgument
	default:
		code = codes.Internal
	}
	// Status messages are protobuf strings as well.
	return status.Error(code, strings.ToValidUTF8(err.Error(), "\uFFFD"))
}

type options struct {
	logger    *slog.Logger
	allocator dstr.Allocator
}

// Option configures the service server.
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(o *options) { f(o) }

func newOptions(opt []Option) options {
	opts := options{
		logger:    slog.Default(),
		allocator: dstr.DefaultAllocator,
	}
	for _, o := range opt {
		o.apply(&opts)
	}
	return opts
}

// WithLogger sets the logger passed to the adapters.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(o *options) { o.logger = l })
}

// WithAllocator sets the allocator of every buffer the service creates.
func WithAllocator(a dstr.Allocator) Option {
	return optionFunc(func(o *options) { o.allocator = a })
}
