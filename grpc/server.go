package grpc

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var _ grpc.ServiceRegistrar = (*Server)(nil)

// Server dispatches unary gRPC calls that arrive as raw bytes through the Wasm
// exports to registered services. It implements wasm.Handler.
type Server struct {
	opts serverOptions

	mu       sync.Mutex // guards services
	services map[string]registeredService
}

// registeredService is a service implementation together with its unary
// methods, keyed by method name.
type registeredService struct {
	impl    any
	methods map[string]grpc.MethodDesc
}

func NewServer(opt ...ServerOption) *Server {
	opts := defaultServerOptions
	for _, o := range opt {
		o.applyServer(&opts)
	}
	return &Server{
		opts:     opts,
		services: make(map[string]registeredService),
	}
}

// RegisterService registers a service and its implementation. Like the
// regular gRPC server it panics if the implementation does not satisfy the
// handler type or if the service is already registered. Stream methods are
// skipped, they cannot cross the Wasm boundary.
func (s *Server) RegisterService(sd *grpc.ServiceDesc, impl any) {
	if impl != nil {
		want := reflect.TypeOf(sd.HandlerType).Elem()
		if got := reflect.TypeOf(impl); !got.Implements(want) {
			panic(fmt.Sprintf("grpc: handler of type %v does not satisfy %v", got, want))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.services[sd.ServiceName]; ok {
		panic(fmt.Sprintf("grpc: duplicate service registration for %q", sd.ServiceName))
	}
	if len(sd.Streams) > 0 {
		s.opts.logger.Warn("streams are not supported in Wasm plugins, skipping them", "service", sd.ServiceName)
	}

	rs := registeredService{
		impl:    impl,
		methods: make(map[string]grpc.MethodDesc, len(sd.Methods)),
	}
	for _, md := range sd.Methods {
		rs.methods[md.MethodName] = md
	}
	s.services[sd.ServiceName] = rs
	s.opts.logger.Debug("registered service", "service", sd.ServiceName, "methods", len(rs.methods))
}

// Handle processes the bytes sent to the plugin as a call of the full method
// name fn ("/package.Service/Method"). The result is a response frame or a
// status frame.
func (s *Server) Handle(fn string, req []byte) []byte {
	resp, st := s.handle(context.Background(), fn, req)
	if st != nil {
		s.opts.logger.Error("call failed", "method", fn, "code", st.Code(), "message", st.Message())
		return s.statusFrame(st)
	}

	frame, err := appendFrame(nil, frameResponse, resp)
	if err != nil {
		s.opts.logger.Error("failed to marshal response", "method", fn, "error", err)
		return s.statusFrame(status.New(codes.Internal, "error marshalling response"))
	}
	return frame
}

func (s *Server) handle(ctx context.Context, fn string, req []byte) (any, *status.Status) {
	service, method, ok := parseMethod(fn)
	if !ok {
		return nil, status.Newf(codes.Unimplemented, "malformed method name %q", fn)
	}

	s.mu.Lock()
	rs, ok := s.services[service]
	md, found := rs.methods[method]
	s.mu.Unlock()
	if !ok || !found {
		return nil, status.Newf(codes.Unimplemented, "unknown method %s", fn)
	}

	dec := func(v any) error { return protoUnmarshal(req, v) }
	resp, err := md.Handler(rs.impl, ctx, dec, s.opts.interceptor)
	if err != nil {
		if st, ok := status.FromError(err); ok {
			return nil, st
		}
		return nil, status.FromContextError(err)
	}
	return resp, nil
}

func (s *Server) statusFrame(st *status.Status) []byte {
	frame, err := appendFrame(nil, frameStatus, st.Proto())
	if err != nil {
		// Nothing left to report the failure with, the host sees an empty
		// frame.
		s.opts.logger.Error("failed to marshal status", "error", err)
		return nil
	}
	return frame
}

// parseMethod splits "/package.Service/Method" into the service and the
// method name. The leading slash is optional.
func parseMethod(fn string) (service, method string, ok bool) {
	fn = strings.TrimPrefix(fn, "/")
	pos := strings.LastIndex(fn, "/")
	if pos <= 0 || pos == len(fn)-1 {
		return "", "", false
	}
	return fn[:pos], fn[pos+1:], true
}

// LoggingInterceptor returns a unary interceptor that logs every call at
// debug level, and failed calls at warn level.
func LoggingInterceptor(opt ...ServerOption) grpc.UnaryServerInterceptor {
	opts := defaultServerOptions
	for _, o := range opt {
		o.applyServer(&opts)
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			opts.logger.WarnContext(ctx, "call returned an error", "method", info.FullMethod, "code", status.Code(err))
			return resp, err
		}
		opts.logger.DebugContext(ctx, "call handled", "method", info.FullMethod)
		return resp, nil
	}
}
