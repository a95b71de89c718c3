package httpapi

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/lovromazgon/dstr/adapter"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// sessionFrame is written back to the client for every emitted message and
// for every event the adapter rejected.
type sessionFrame struct {
	Session string          `json:"session"`
	Output  *adapter.Output `json:"output,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// session upgrades the connection to a websocket and binds one adapter to
// it. Every text frame received is one event, every output is written back
// as its own frame. The adapter lives as long as the connection.
func (s *Server) session(c echo.Context) error {
	name := c.Param("name")
	if !slices.Contains(adapter.Names(), name) {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: adapter.ErrUnknownAdapter.Error() + ": " + name})
	}

	cfg, err := s.sessionConfig(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader already replied to the client.
		s.opts.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return nil
	}
	defer conn.Close()

	id := uuid.NewString()
	logger := s.opts.logger.With().Str("session", id).Str("adapter", name).Logger()
	logger.Info().Msg("session opened")

	sess := &session{id: id, conn: conn, logger: logger}
	a, err := adapter.New(name, cfg, sess, s.opts.adapterOptions...)
	if err != nil {
		sess.writeError(err)
		return nil
	}
	defer a.Close()

	sess.run(a)
	logger.Info().Msg("session closed")
	return nil
}

func (s *Server) sessionConfig(c echo.Context) (adapter.Config, error) {
	cfg := s.opts.defaults
	mode := int(cfg.Mode)
	err := echo.QueryParamsBinder(c).
		Int("mode", &mode).
		Int("precision", &cfg.Precision).
		Int("position", &cfg.Position).
		Int("max_tokens", &cfg.MaxTokens).
		BindError()
	cfg.Mode = adapter.Mode(mode)
	return cfg, err
}

type session struct {
	id       string
	conn     *websocket.Conn
	logger   zerolog.Logger
	writeErr error
}

// Emit implements adapter.Outlet.
func (s *session) Emit(outlet int, msg adapter.Message) {
	if s.writeErr != nil {
		return
	}
	s.writeErr = s.conn.WriteJSON(sessionFrame{
		Session: s.id,
		Output:  &adapter.Output{Outlet: outlet, Message: msg},
	})
}

func (s *session) writeError(err error) {
	if s.writeErr != nil {
		return
	}
	s.writeErr = s.conn.WriteJSON(sessionFrame{Session: s.id, Error: err.Error()})
}

func (s *session) run(a adapter.Adapter) {
	for s.writeErr == nil {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("session read failed")
			}
			return
		}

		var ev adapter.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			s.writeError(err)
			continue
		}
		if err := a.Handle(ev.Inlet, ev.Message); err != nil {
			s.logger.Debug().Err(err).Str("selector", ev.Selector).Msg("event rejected")
			s.writeError(err)
			continue
		}
		if err := a.Err(); err != nil {
			s.writeError(err)
		}
	}
	if s.writeErr != nil {
		s.logger.Warn().Err(s.writeErr).Msg("session write failed")
	}
}
