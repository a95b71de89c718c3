package grpc

import (
	"log/slog"

	"github.com/lovromazgon/dstr"
	"google.golang.org/grpc"
)

type clientOptions struct {
	logger                *slog.Logger
	maxConcurrentRequests int
	allocator             dstr.Allocator
}

var defaultClientOptions = clientOptions{
	logger:                slog.Default(),
	maxConcurrentRequests: 2,
	allocator:             dstr.DefaultAllocator,
}

type serverOptions struct {
	logger      *slog.Logger
	interceptor grpc.UnaryServerInterceptor
}

var defaultServerOptions = serverOptions{
	logger: slog.Default(),
}

// ClientOption configures a ClientConn.
type ClientOption interface {
	applyClient(*clientOptions)
}

type funcClientOption func(*clientOptions)

func (f funcClientOption) applyClient(o *clientOptions) { f(o) }

// ServerOption configures a Server.
type ServerOption interface {
	applyServer(*serverOptions)
}

type funcServerOption func(*serverOptions)

func (f funcServerOption) applyServer(o *serverOptions) { f(o) }

// ClientServerOption configures both sides of the Wasm boundary.
type ClientServerOption interface {
	ClientOption
	ServerOption
}

type funcClientServerOption struct {
	funcClientOption
	funcServerOption
}

// WithLogger sets the logger of a Server or a ClientConn.
func WithLogger(l *slog.Logger) ClientServerOption {
	return funcClientServerOption{
		funcClientOption: func(o *clientOptions) { o.logger = l },
		funcServerOption: func(o *serverOptions) { o.logger = l },
	}
}

// WithMaxConcurrentRequests limits the number of requests the client sends to
// the module at the same time. Every slot owns its own region of module
// memory.
func WithMaxConcurrentRequests(limit int) ClientOption {
	return funcClientOption(func(o *clientOptions) { o.maxConcurrentRequests = max(limit, 1) })
}

// WithUnaryInterceptor sets the interceptor every call handled by the server
// passes through.
func WithUnaryInterceptor(i grpc.UnaryServerInterceptor) ServerOption {
	return funcServerOption(func(o *serverOptions) { o.interceptor = i })
}

// WithAllocator sets the allocator of the buffers the client stages requests
// in.
func WithAllocator(a dstr.Allocator) ClientOption {
	return funcClientOption(func(o *clientOptions) { o.allocator = a })
}
