// Package httpapi serves the adapters over HTTP. Batch runs are plain JSON
// requests, interactive sessions run over a websocket.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/lovromazgon/dstr"
	"github.com/lovromazgon/dstr/adapter"
	"github.com/lovromazgon/dstr/service"
)

// Processor runs a batch of events through an adapter. *service.Client
// implements it, so batch runs can be served by a Wasm plugin.
type Processor interface {
	Process(ctx context.Context, req adapter.Request) ([]adapter.Output, error)
}

// ProcessorFunc is a function type that implements the Processor interface.
type ProcessorFunc func(ctx context.Context, req adapter.Request) ([]adapter.Output, error)

func (f ProcessorFunc) Process(ctx context.Context, req adapter.Request) ([]adapter.Output, error) {
	return f(ctx, req)
}

type Server struct {
	echo *echo.Echo
	opts options
}

func New(opt ...Option) *Server {
	opts := newOptions(opt)
	if opts.processor == nil {
		opts.processor = ProcessorFunc(func(ctx context.Context, req adapter.Request) ([]adapter.Output, error) {
			return adapter.Run(ctx, req, opts.adapterOptions...)
		})
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			ev := opts.logger.Info()
			if v.Error != nil {
				ev = opts.logger.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))

	s := &Server{echo: e, opts: opts}
	e.GET("/v1/adapters", s.listAdapters)
	e.POST("/v1/adapters/:name", s.process)
	e.GET("/v1/adapters/:name/session", s.session)
	return s
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr and serves the API until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.opts.logger.Info().Str("address", addr).Msg("serving adapters")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

type processRequest struct {
	Config adapter.Config  `json:"config"`
	Events []adapter.Event `json:"events"`
}

type processResponse struct {
	Outputs []adapter.Output `json:"outputs"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) listAdapters(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string][]string{"adapters": adapter.Names()})
}

func (s *Server) process(c echo.Context) error {
	body := processRequest{Config: s.opts.defaults}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	outputs, err := s.opts.processor.Process(c.Request().Context(), adapter.Request{
		Adapter: c.Param("name"),
		Config:  body.Config,
		Events:  body.Events,
	})
	if err != nil {
		return c.JSON(statusCode(err), errorResponse{Error: err.Error()})
	}
	if outputs == nil {
		outputs = []adapter.Output{}
	}
	return c.JSON(http.StatusOK, processResponse{Outputs: outputs})
}

// statusCode maps adapter and buffer errors to HTTP status codes.
func statusCode(err error) int {
	switch {
	case errors.Is(err, dstr.ErrAllocation):
		return http.StatusInsufficientStorage
	case errors.Is(err, adapter.ErrUnknownAdapter),
		errors.Is(err, adapter.ErrUnknownInlet),
		errors.Is(err, adapter.ErrBadMessage),
		errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
