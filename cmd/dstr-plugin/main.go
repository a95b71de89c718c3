//go:build wasm

// Command dstr-plugin is the Wasm plugin serving dstr.v1.AdapterService.
// Build it with:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o dstr-plugin.wasm ./cmd/dstr-plugin
package main

import (
	"log/slog"
	"os"

	"github.com/lovromazgon/dstr/grpc"
	"github.com/lovromazgon/dstr/service"
	"github.com/lovromazgon/dstr/wasm"
)

func main() {
	// Required by the compiler, never called in c-shared mode.
}

func init() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	srv := grpc.NewServer(
		grpc.WithLogger(logger),
		grpc.WithUnaryInterceptor(grpc.LoggingInterceptor(grpc.WithLogger(logger))),
	)
	service.Register(srv, service.WithLogger(logger))
	wasm.Init(srv)
}
