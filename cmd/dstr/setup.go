package main

import (
	"context"
	"fmt"
	"os"

	"github.com/lovromazgon/dstr/adapter"
	hgrpc "github.com/lovromazgon/dstr/grpc"
	"github.com/lovromazgon/dstr/internal/config"
	"github.com/lovromazgon/dstr/internal/logger"
	"github.com/lovromazgon/dstr/service"
	"github.com/rs/zerolog"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/urfave/cli/v2"
)

var globalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "config file, dstr.yaml in ., $HOME/.dstr or /etc/dstr if not set",
	},
	&cli.StringFlag{
		Name:  "log-level",
		Usage: "log level (debug, info, warn, error)",
	},
	&cli.IntFlag{
		Name:  "precision",
		Usage: "digits after the decimal point for float atoms, 0 to 10",
	},
	&cli.IntFlag{
		Name:  "mode",
		Usage: "operand order, 0 for s1 op s2 and 1 for s2 op s1",
	},
	&cli.IntFlag{
		Name:  "max-tokens",
		Usage: "maximum number of tokens strtok emits",
	},
	&cli.StringFlag{
		Name:  "plugin-path",
		Usage: "Wasm plugin serving the adapters",
	},
	&cli.IntFlag{
		Name:  "max-concurrent-requests",
		Usage: "number of requests the Wasm plugin handles at once",
	},
}

// configKeys maps command line flags to configuration keys.
var configKeys = map[string]string{
	"log-level":               "log_level",
	"precision":               "precision",
	"mode":                    "mode",
	"max-tokens":              "max_tokens",
	"plugin-path":             "plugin_path",
	"max-concurrent-requests": "max_concurrent_requests",
	"listen":                  "listen_address",
}

// setup loads the configuration, letting flags set on the command line win,
// and creates the logger described by it.
func setup(c *cli.Context) (config.Config, zerolog.Logger, error) {
	overrides := make(map[string]any)
	for flag, key := range configKeys {
		if c.IsSet(flag) {
			overrides[key] = c.Value(flag)
		}
	}

	cfg, err := config.Load(c.String("config"), overrides)
	if err != nil {
		return cfg, zerolog.Nop(), cli.Exit(err.Error(), 1)
	}

	log, err := logger.New(c.App.ErrWriter, cfg.LogLevel)
	if err != nil {
		log.Warn().Err(err).Msg("invalid log level")
	}
	if cfg.ConfigFile != "" {
		log.Debug().Str("file", cfg.ConfigFile).Msg("using config file")
	}
	return cfg, log, nil
}

// openClient returns a client of the adapter service. The service runs
// in-process behind the loopback transport, or inside the Wasm plugin from
// the configuration if usePlugin is set. The returned function releases the
// client.
func openClient(ctx context.Context, cfg config.Config, log zerolog.Logger, usePlugin bool) (*service.Client, func(), error) {
	slogger := logger.Slog(logger.WithComponent(log, "service"))
	if !usePlugin {
		srv := hgrpc.NewServer(
			hgrpc.WithLogger(slogger),
			hgrpc.WithUnaryInterceptor(hgrpc.LoggingInterceptor(hgrpc.WithLogger(slogger))),
		)
		service.Register(srv, service.WithLogger(slogger))
		return service.NewClient(hgrpc.NewLoopback(srv)), func() {}, nil
	}

	src, err := os.ReadFile(cfg.PluginPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read plugin %q: %w", cfg.PluginPath, err)
	}

	r := wazero.NewRuntime(ctx)
	wasi_snapshot_preview1.MustInstantiate(ctx, r)

	module, client, err := service.InstantiatePlugin(ctx, r, src,
		hgrpc.WithLogger(slogger),
		hgrpc.WithMaxConcurrentRequests(cfg.MaxConcurrentRequests),
	)
	if err != nil {
		_ = r.Close(ctx)
		return nil, nil, err
	}
	log.Debug().Str("plugin", cfg.PluginPath).Msg("plugin instantiated")

	return client, func() {
		_ = module.Close(ctx)
		_ = r.Close(ctx)
	}, nil
}

// adapterName returns the adapter named by the first argument.
func adapterName(c *cli.Context) (string, error) {
	name := c.Args().First()
	if name == "" {
		return "", cli.Exit(fmt.Sprintf("missing adapter name, one of %v", adapter.Names()), 1)
	}
	return name, nil
}
