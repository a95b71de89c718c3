package grpc

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
)

var _ grpc.ClientConnInterface = (*Loopback)(nil)

// Loopback is a client connection that hands calls directly to a Server in
// the same process. Requests and responses go through the same encoding as
// calls crossing the Wasm boundary.
type Loopback struct {
	srv *Server
}

func NewLoopback(srv *Server) *Loopback {
	return &Loopback{srv: srv}
}

func (l *Loopback) Invoke(ctx context.Context, method string, req, resp any, _ ...grpc.CallOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	reqMsg, ok := req.(proto.Message)
	if !ok {
		return fmt.Errorf("invalid request type: expected proto.Message, got %T", req)
	}
	respMsg, ok := resp.(proto.Message)
	if !ok {
		return fmt.Errorf("invalid response type: expected proto.Message, got %T", resp)
	}

	reqBytes, err := proto.Marshal(reqMsg)
	if err != nil {
		return fmt.Errorf("failed to marshal protobuf command request: %w", err)
	}
	return decodeFrame(l.srv.Handle(method, reqBytes), respMsg)
}

func (l *Loopback) NewStream(context.Context, *grpc.StreamDesc, string, ...grpc.CallOption) (grpc.ClientStream, error) {
	return nil, errors.New("streams are not supported by the loopback connection")
}
