package grpc

import (
	"errors"
	"fmt"

	spb "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
)

// Every payload returned by the plugin starts with a tag byte that tells the
// host how to decode the rest.
const (
	frameResponse byte = 0
	frameStatus   byte = 1
)

var errEmptyFrame = errors.New("empty response frame")

// appendFrame appends the tag and the marshalled message to data.
func appendFrame(data []byte, tag byte, v any) ([]byte, error) {
	msg, ok := v.(proto.Message)
	if !ok {
		return data, fmt.Errorf("proto: error marshalling data: expected proto.Message, got %T", v)
	}
	data = append(data, tag)
	data, err := proto.MarshalOptions{}.MarshalAppend(data, msg)
	if err != nil {
		return data, fmt.Errorf("proto: error marshalling data: %w", err)
	}
	return data, nil
}

func protoUnmarshal(data []byte, v any) error {
	msg, ok := v.(proto.Message)
	if !ok {
		return fmt.Errorf("proto: error unmarshalling data: expected proto.Message, got %T", v)
	}
	if err := proto.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("proto: error unmarshalling data: %w", err)
	}
	return nil
}

// decodeFrame decodes a frame produced by Server.Handle. A response frame is
// unmarshalled into resp, a status frame is returned as a gRPC status error.
func decodeFrame(frame []byte, resp proto.Message) error {
	if len(frame) == 0 {
		return errEmptyFrame
	}

	tag, payload := frame[0], frame[1:]
	switch tag {
	case frameResponse:
		return protoUnmarshal(payload, resp)
	case frameStatus:
		var st spb.Status
		if err := protoUnmarshal(payload, &st); err != nil {
			return err
		}
		return status.ErrorProto(&st)
	default:
		return fmt.Errorf("unknown response frame tag %d", tag)
	}
}
