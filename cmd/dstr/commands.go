package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/lovromazgon/dstr"
	"github.com/lovromazgon/dstr/adapter"
	"github.com/lovromazgon/dstr/httpapi"
	"github.com/lovromazgon/dstr/internal/logger"
	"github.com/urfave/cli/v2"
)

var processFlags = []cli.Flag{
	&cli.IntFlag{
		Name:  "position",
		Usage: "initial cutting position of strcut",
	},
	&cli.StringFlag{
		Name:  "initial",
		Usage: "initial content of the right operand, as space separated atoms",
	},
	&cli.StringFlag{
		Name:    "input",
		Aliases: []string{"i"},
		Usage:   "JSON array of events to run before the arguments, - for stdin",
	},
	&cli.BoolFlag{
		Name:  "json",
		Usage: "print every output as a JSON line",
	},
}

var (
	runCommand = &cli.Command{
		Name:      "run",
		Usage:     "runs events through an adapter",
		UsageText: "dstr run [flags] <adapter> [--] [events...]",
		Description: `Runs the events through a fresh adapter and prints what it emits.
An event is written as "[inlet:] [selector] [atoms...]", for example
"1: world" sets the right operand and "hello" triggers output.`,
		Flags:  processFlags,
		Action: runCmd,
	}

	pluginCommand = &cli.Command{
		Name:        "plugin",
		Usage:       "runs events through an adapter inside the Wasm plugin",
		UsageText:   "dstr plugin [flags] <adapter> [--] [events...]",
		Description: `Same as run, but the adapter runs inside the Wasm plugin set by plugin_path.`,
		Flags:       processFlags,
		Action:      pluginCmd,
	}

	measureCommand = &cli.Command{
		Name:      "measure",
		Usage:     "joins atoms into a buffer and reports its size",
		UsageText: "dstr measure [--plugin] [atoms...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "plugin",
				Usage: "measure inside the Wasm plugin",
			},
		},
		Action: measureCmd,
	}

	serveCommand = &cli.Command{
		Name:      "serve",
		Usage:     "serves the adapters over HTTP",
		UsageText: "dstr serve [--listen address] [--plugin]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "address to listen on",
			},
			&cli.BoolFlag{
				Name:  "plugin",
				Usage: "process batch runs inside the Wasm plugin",
			},
		},
		Action: serveCmd,
	}

	versionCommand = &cli.Command{
		Name:  "version",
		Usage: "prints the version",
		Action: func(c *cli.Context) error {
			_, err := fmt.Fprintf(c.App.Writer, "dstr %s (%s)\n", Version, runtime.Version())
			return err
		},
	}
)

func runCmd(c *cli.Context) error {
	return process(c, false)
}

func pluginCmd(c *cli.Context) error {
	return process(c, true)
}

func process(c *cli.Context, usePlugin bool) error {
	cfg, log, err := setup(c)
	if err != nil {
		return err
	}
	name, err := adapterName(c)
	if err != nil {
		return err
	}
	events, err := readEvents(c.String("input"), c.App.Reader, c.Args().Tail())
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	client, release, err := openClient(c.Context, cfg, log, usePlugin)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer release()

	req := adapter.Request{Adapter: name, Config: cfg.Adapter(), Events: events}
	req.Config.Position = c.Int("position")
	req.Config.Initial = parseAtoms(strings.Fields(c.String("initial")))

	log.Debug().Str("adapter", name).Int("events", len(events)).Bool("plugin", usePlugin).Msg("processing")
	outputs, err := client.Process(c.Context, req)
	if perr := printOutputs(c.App.Writer, outputs, c.Bool("json")); perr != nil {
		return perr
	}
	if err != nil {
		return cli.Exit(err.Error(), exitCode(err))
	}
	return nil
}

func measureCmd(c *cli.Context) error {
	cfg, log, err := setup(c)
	if err != nil {
		return err
	}

	client, release, err := openClient(c.Context, cfg, log, c.Bool("plugin"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer release()

	m, err := client.Measure(c.Context, parseAtoms(c.Args().Slice()), cfg.Precision)
	if err != nil {
		return cli.Exit(err.Error(), exitCode(err))
	}
	_, err = fmt.Fprintf(c.App.Writer, "%q length %d capacity %d\n", strings.TrimSuffix(string(m.CString), "\x00"), m.Length, m.Capacity)
	return err
}

func serveCmd(c *cli.Context) error {
	cfg, log, err := setup(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slogger := logger.Slog(logger.WithComponent(log, "adapter"))
	opts := []httpapi.Option{
		httpapi.WithLogger(logger.WithComponent(log, "http")),
		httpapi.WithDefaults(cfg.Adapter()),
		httpapi.WithAdapterOptions(adapter.WithLogger(slogger)),
	}
	if c.Bool("plugin") {
		client, release, err := openClient(ctx, cfg, log, true)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		defer release()
		opts = append(opts, httpapi.WithProcessor(client))
	}

	srv := httpapi.New(opts...)
	errs := make(chan error, 1)
	go func() { errs <- srv.Start(cfg.ListenAddress) }()

	select {
	case err := <-errs:
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// exitCode is 2 for allocation failures and 1 for everything else.
func exitCode(err error) int {
	if errors.Is(err, dstr.ErrAllocation) {
		return 2
	}
	return 1
}
