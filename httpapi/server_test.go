package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/lovromazgon/dstr"
	"github.com/lovromazgon/dstr/adapter"
	"github.com/matryer/is"
)

func post(t *testing.T, srv *httptest.Server, path, body string) (int, map[string]json.RawMessage) {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, out
}

func TestServer_Process(t *testing.T) {
	srv := httptest.NewServer(New().Handler())
	defer srv.Close()

	t.Run("should run the events through the adapter", func(t *testing.T) {
		is := is.New(t)
		code, out := post(t, srv, "/v1/adapters/strcat", `{
			"events": [
				{"inlet": 1, "selector": "world"},
				{"inlet": 0, "selector": "hello"}
			]
		}`)
		is.Equal(code, http.StatusOK)

		var outputs []adapter.Output
		is.NoErr(json.Unmarshal(out["outputs"], &outputs))
		is.Equal(len(outputs), 1)
		is.Equal(outputs[0].Outlet, 0)
		is.Equal(outputs[0].Selector, "helloworld")
	})

	t.Run("should apply the request config over the defaults", func(t *testing.T) {
		is := is.New(t)
		code, out := post(t, srv, "/v1/adapters/strcut", `{
			"config": {"position": 2},
			"events": [{"inlet": 0, "selector": "abcdef"}]
		}`)
		is.Equal(code, http.StatusOK)

		var outputs []adapter.Output
		is.NoErr(json.Unmarshal(out["outputs"], &outputs))
		is.Equal(len(outputs), 2)
		is.Equal(outputs[0].Selector, "cdef")
		is.Equal(outputs[1].Selector, "ab")
	})

	t.Run("should keep bytes that are not valid UTF-8", func(t *testing.T) {
		is := is.New(t)
		code, out := post(t, srv, "/v1/adapters/strcut", `{
			"config": {"position": 2},
			"events": [{"inlet": 0, "selector": "héllo"}]
		}`)
		is.Equal(code, http.StatusOK)
		is.True(strings.Contains(string(out["outputs"]), `"selector_bytes":"qWxsbw=="`))
		is.True(strings.Contains(string(out["outputs"]), `"selector_bytes":"aMM="`))

		var outputs []adapter.Output
		is.NoErr(json.Unmarshal(out["outputs"], &outputs))
		is.Equal(len(outputs), 2)
		is.Equal(outputs[0].Selector, "\xa9llo")
		is.Equal(outputs[1].Selector, "h\xc3")
	})

	t.Run("should return an empty list when nothing is emitted", func(t *testing.T) {
		is := is.New(t)
		code, out := post(t, srv, "/v1/adapters/strtok", `{
			"config": {"initial": [{"symbol": " "}]},
			"events": [{"inlet": 0, "selector": "   "}]
		}`)
		is.Equal(code, http.StatusOK)
		is.Equal(string(out["outputs"]), "[]")
	})

	t.Run("should reject unknown adapters", func(t *testing.T) {
		is := is.New(t)
		code, out := post(t, srv, "/v1/adapters/strrev", `{"events": []}`)
		is.Equal(code, http.StatusBadRequest)
		is.True(strings.Contains(string(out["error"]), "unknown adapter"))
	})

	t.Run("should reject malformed bodies", func(t *testing.T) {
		is := is.New(t)
		code, _ := post(t, srv, "/v1/adapters/strcat", `{"events": 3}`)
		is.Equal(code, http.StatusBadRequest)
	})
}

func TestServer_ProcessAllocationFailure(t *testing.T) {
	is := is.New(t)
	srv := httptest.NewServer(New(WithProcessor(ProcessorFunc(
		func(context.Context, adapter.Request) ([]adapter.Output, error) {
			return nil, fmt.Errorf("strcat: %w", dstr.ErrAllocation)
		},
	))).Handler())
	defer srv.Close()

	code, _ := post(t, srv, "/v1/adapters/strcat", `{"events": []}`)
	is.Equal(code, http.StatusInsufficientStorage)
}

func TestStatusCode(t *testing.T) {
	testCases := []struct {
		err  error
		want int
	}{
		{err: fmt.Errorf("x: %w", adapter.ErrUnknownInlet), want: http.StatusBadRequest},
		{err: adapter.ErrBadMessage, want: http.StatusBadRequest},
		{err: context.DeadlineExceeded, want: http.StatusServiceUnavailable},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("should map %v", tc.err), func(t *testing.T) {
			is := is.New(t)
			is.Equal(statusCode(tc.err), tc.want)
		})
	}
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	return conn
}

func TestServer_Session(t *testing.T) {
	srv := httptest.NewServer(New().Handler())
	defer srv.Close()

	t.Run("should keep the adapter state between events", func(t *testing.T) {
		is := is.New(t)
		conn := dial(t, srv, "/v1/adapters/strcmp/session")
		defer conn.Close()

		is.NoErr(conn.WriteJSON(map[string]any{"inlet": 1, "selector": "abc"}))
		is.NoErr(conn.WriteJSON(map[string]any{"inlet": 0, "selector": "abc"}))

		var ordering, equal sessionFrame
		is.NoErr(conn.ReadJSON(&ordering))
		is.NoErr(conn.ReadJSON(&equal))
		is.True(ordering.Session != "")
		is.Equal(ordering.Session, equal.Session)
		is.Equal(ordering.Output.Outlet, 1)
		is.Equal(ordering.Output.Atoms[0].Int(), int64(0))
		is.Equal(equal.Output.Outlet, 0)
		is.Equal(equal.Output.Atoms[0].Int(), int64(1))
	})

	t.Run("should take the config from the query", func(t *testing.T) {
		is := is.New(t)
		conn := dial(t, srv, "/v1/adapters/strcat/session?precision=2")
		defer conn.Close()

		is.NoErr(conn.WriteJSON(map[string]any{"inlet": 0, "selector": "float", "atoms": []any{map[string]any{"float": 1.5}}}))

		var out sessionFrame
		is.NoErr(conn.ReadJSON(&out))
		is.Equal(out.Output.Selector, "1.50")
	})

	t.Run("should report rejected events and carry on", func(t *testing.T) {
		is := is.New(t)
		conn := dial(t, srv, "/v1/adapters/strlen/session")
		defer conn.Close()

		is.NoErr(conn.WriteJSON(map[string]any{"inlet": 1, "selector": "abc"}))
		var rejected sessionFrame
		is.NoErr(conn.ReadJSON(&rejected))
		is.True(strings.Contains(rejected.Error, "unknown inlet"))
		is.Equal(rejected.Output, nil)

		is.NoErr(conn.WriteJSON(map[string]any{"inlet": 0, "selector": "abc"}))
		var out sessionFrame
		is.NoErr(conn.ReadJSON(&out))
		is.Equal(out.Error, "")
		is.Equal(out.Output.Atoms[0].Int(), int64(3))
	})

	t.Run("should keep bytes that are not valid UTF-8", func(t *testing.T) {
		is := is.New(t)
		conn := dial(t, srv, "/v1/adapters/strcat/session")
		defer conn.Close()

		is.NoErr(conn.WriteMessage(websocket.TextMessage, []byte(`{"inlet": 0, "selector_bytes": "YcM=", "atoms": [{"bytes": "/w=="}]}`)))

		_, data, err := conn.ReadMessage()
		is.NoErr(err)
		is.True(strings.Contains(string(data), `"selector_bytes":"YcMg/w=="`))

		var out sessionFrame
		is.NoErr(json.Unmarshal(data, &out))
		is.Equal(out.Output.Selector, "a\xc3 \xff")
	})

	t.Run("should refuse unknown adapters before upgrading", func(t *testing.T) {
		is := is.New(t)
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/adapters/strrev/session"
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		is.True(err != nil)
		is.Equal(resp.StatusCode, http.StatusBadRequest)
	})
}
