package grpc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/lovromazgon/dstr"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
)

var _ grpc.ClientConnInterface = &ClientConn{}

// ClientConn sends unary gRPC calls to a plugin module through its exported
// malloc and command functions.
type ClientConn struct {
	opts   clientOptions
	module api.Module

	// workers is a channel of available worker contexts. The size of the
	// channel is the maximum number of concurrent requests.
	workers chan *worker

	// m protects access to mallocFn.
	m        sync.Mutex
	mallocFn api.Function
}

// worker owns a region of module memory and the buffer requests are staged
// in before they are copied into that region.
type worker struct {
	id        int
	commandFn api.Function

	stage *dstr.Buffer
	// modulePointer points to the region owned by the worker in the module
	// memory, regionSize is its size.
	modulePointer uint32
	regionSize    int
}

// InstantiateModuleAndClient instantiates the plugin module and wraps a client
// connection to it with newClient.
func InstantiateModuleAndClient[T any](
	ctx context.Context,
	runtime wazero.Runtime,
	source []byte,
	newClient func(grpc.ClientConnInterface) T,
	opt ...ClientOption,
) (api.Module, T, error) {
	var zeroT T

	// Configure the module to initialize the reactor.
	config := wazero.NewModuleConfig().
		WithStdout(os.Stdout).
		WithStderr(os.Stderr).
		WithStartFunctions("_initialize")

	wasmModule, err := runtime.InstantiateWithConfig(ctx, source, config)
	if err != nil {
		return nil, zeroT, fmt.Errorf("failed to instantiate Wasm module: %w", err)
	}

	client, err := NewClient(wasmModule, opt...)
	if err != nil {
		_ = wasmModule.Close(ctx)
		return nil, zeroT, fmt.Errorf("failed to instantiate grpc client: %w", err)
	}

	return wasmModule, newClient(client), nil
}

func NewClient(module api.Module, opt ...ClientOption) (*ClientConn, error) {
	opts := defaultClientOptions
	for _, o := range opt {
		o.applyClient(&opts)
	}

	mallocFn, err := getExportedFunction(module, mallocFunctionDefinition)
	if err != nil {
		return nil, fmt.Errorf("failed to get malloc function: %w", err)
	}

	workers := make(chan *worker, opts.maxConcurrentRequests)
	for i := range opts.maxConcurrentRequests {
		commandFn, err := getExportedFunction(module, commandFunctionDefinition)
		if err != nil {
			return nil, fmt.Errorf("failed to get command function: %w", err)
		}
		workers <- &worker{
			id:        i,
			commandFn: commandFn,
			stage:     dstr.New(dstr.WithAllocator(opts.allocator)),
		}
	}

	return &ClientConn{
		opts:     opts,
		module:   module,
		workers:  workers,
		mallocFn: mallocFn,
	}, nil
}

func (c *ClientConn) NewStream(context.Context, *grpc.StreamDesc, string, ...grpc.CallOption) (grpc.ClientStream, error) {
	return nil, errors.New("streams are not supported by Wasm")
}

func (c *ClientConn) Invoke(
	ctx context.Context,
	method string,
	req, resp any,
	_ ...grpc.CallOption,
) error {
	reqMsg, ok := req.(proto.Message)
	if !ok {
		return fmt.Errorf("invalid request type: expected proto.Message, got %T", req)
	}

	respMsg, ok := resp.(proto.Message)
	if !ok {
		return fmt.Errorf("invalid response type: expected proto.Message, got %T", resp)
	}

	if c.module.IsClosed() {
		return errors.New("module is closed")
	}

	var w *worker
	select {
	case w = <-c.workers:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { c.workers <- w }()

	return c.invoke(ctx, w, method, reqMsg, respMsg)
}

func (c *ClientConn) invoke(ctx context.Context, w *worker, method string, req, resp proto.Message) error {
	logger := c.opts.logger.With("method", method, "worker", w.id)

	// Step 1: Stage the method and the request.
	reqBytes, err := proto.Marshal(req)
	if err != nil {
		logger.ErrorContext(ctx, "failed marshalling protobuf command request", "error", err)
		return fmt.Errorf("failed to marshal protobuf command request: %w", err)
	}
	if err := w.reset(c.opts.allocator); err != nil {
		return err
	}
	if err := errors.Join(w.stage.AssignString(method), w.stage.AppendBytes(reqBytes)); err != nil {
		logger.ErrorContext(ctx, "failed staging request", "error", err)
		return fmt.Errorf("failed to stage request: %w", err)
	}

	// Step 2: Allocate memory in the Wasm module if needed.
	if w.regionSize < w.stage.Len() {
		logger.DebugContext(ctx, "module memory region is too small, reallocating using malloc function", "size", w.regionSize)
		if err := c.malloc(ctx, w, dstr.NextCapacity(w.regionSize, w.stage.Len())); err != nil {
			return fmt.Errorf("failed to allocate memory in Wasm module: %w", err)
		}
	}

	// Step 3: Write the request to the Wasm module's memory.
	if !c.module.Memory().Write(w.modulePointer, w.stage.Bytes()) {
		logger.ErrorContext(ctx, "failed to write to Wasm module memory", "ptr", w.modulePointer, "size", w.stage.Len())
		return fmt.Errorf("failed to write to Wasm module memory at pointer %d with size %d", w.modulePointer, w.stage.Len())
	}

	// Step 4: Call the Wasm function with the pointer and size of the region.
	results, err := w.commandFn.Call(
		ctx,
		api.EncodeU32(w.modulePointer),
		api.EncodeU32(uint32(len(method))),
		api.EncodeU32(uint32(w.stage.Len())),
	)
	if err != nil {
		logger.ErrorContext(ctx, "failed to call Wasm function", "function", w.commandFn.Definition().Name(), "error", err)
		return fmt.Errorf("failed to call Wasm function %q: %w", w.commandFn.Definition().Name(), err)
	}

	// Step 5: Read and decode the response frame.
	ptrSize := results[0]
	ptr := uint32(ptrSize >> 32)
	size := uint32(ptrSize)

	frame, ok := c.module.Memory().Read(ptr, size)
	if !ok {
		logger.ErrorContext(ctx, "failed to read from Wasm module memory", "ptr", ptr, "size", size)
		return fmt.Errorf("failed to read from Wasm module memory at pointer %d with size %d", ptr, size)
	}

	return decodeFrame(frame, resp)
}

func (c *ClientConn) malloc(ctx context.Context, w *worker, size int) error {
	c.m.Lock()
	defer c.m.Unlock()

	results, err := c.mallocFn.Call(
		ctx,
		api.EncodeU32(w.modulePointer),
		api.EncodeI32(int32(size)),
	)
	if err != nil {
		return fmt.Errorf("failed to call Wasm function %q: %w", c.mallocFn.Definition().Name(), err)
	}

	w.modulePointer = api.DecodeU32(results[0])
	w.regionSize = size
	return nil
}

// reset replaces the staging buffer if a previous request left it invalid.
func (w *worker) reset(alloc dstr.Allocator) error {
	if w.stage.Valid() {
		return nil
	}
	w.stage.Destroy()
	w.stage = dstr.New(dstr.WithAllocator(alloc))
	if !w.stage.Valid() {
		return fmt.Errorf("failed to create staging buffer: %w", dstr.ErrAllocation)
	}
	return nil
}

// Close releases the staging buffers. It waits for running requests and does
// not close the module. The client must not be used afterwards.
func (c *ClientConn) Close() {
	for range cap(c.workers) {
		w := <-c.workers
		w.stage.Destroy()
	}
}
