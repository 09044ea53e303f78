package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/yousuf/stepbyte/internal/complexity"
	"github.com/yousuf/stepbyte/internal/config"
	"github.com/yousuf/stepbyte/internal/debugger"
	"github.com/yousuf/stepbyte/internal/session"
	"github.com/yousuf/stepbyte/internal/trace"
)

type fixture struct {
	server   *Server
	debugger *debugger.Debugger
	sessions *session.Manager
	logger   *slog.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	cache, err := complexity.NewCache(16)
	require.NoError(t, err)
	d := debugger.New(config.DebuggerConfig{
		Timeout:         5 * time.Second,
		MaxSteps:        100000,
		MaxDepth:        1000,
		MaxOutputBytes:  1 << 20,
		StagingDir:      t.TempDir(),
		DisplayName:     "main.py",
		LibraryPatterns: trace.DefaultLibraryPatterns,
	}, cache, debugger.NewMetrics(reg), logger)
	sessions := session.NewManager()
	srv := New(config.ServerConfig{CORSOrigins: []string{"http://localhost:3000"}}, d, sessions, reg, logger)
	return &fixture{server: srv, debugger: d, sessions: sessions, logger: logger}
}

func (f *fixture) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	f.server.Router.ServeHTTP(rec, req)

	var decoded map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestStatusEndpoints(t *testing.T) {
	f := newFixture(t)

	rec, body := f.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "healthy", body["status"])
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	require.Equal(t, "no-cache", rec.Header().Get("Pragma"))

	rec, body = f.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, body["status"], "running")

	_, body = f.do(t, http.MethodGet, "/api/languages", nil)
	langs := body["languages"].([]any)
	require.Len(t, langs, 1)
	require.Equal(t, "python", langs[0].(map[string]any)["id"])
}

func TestDebug(t *testing.T) {
	f := newFixture(t)
	rec, body := f.do(t, http.MethodPost, "/api/debug", map[string]string{
		"code":     "x = 1\nx = x + 1\nprint(x)\n",
		"language": "python",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, body["success"])

	result := body["debugStates"].(map[string]any)
	require.Equal(t, "completed", result["outcome"])
	states := result["debugStates"].([]any)
	require.NotEmpty(t, states)
	last := states[len(states)-1].(map[string]any)
	require.Equal(t, "2\n", last["output"])
	require.Len(t, result["callHierarchy"].([]any), 1)

	rec, _ = f.do(t, http.MethodGet, "/metrics", nil)
	require.Contains(t, rec.Body.String(), `stepbyte_runs_total{outcome="completed"} 1`)
}

func TestDebugStdinAlias(t *testing.T) {
	f := newFixture(t)
	_, body := f.do(t, http.MethodPost, "/api/debug", map[string]string{
		"code":     "n = int(input())\nprint(n * 2)\n",
		"testCase": "21\n",
	})
	states := body["debugStates"].(map[string]any)["debugStates"].([]any)
	require.Equal(t, "42\n", states[len(states)-1].(map[string]any)["output"])
}

func TestDebugRuntimeError(t *testing.T) {
	f := newFixture(t)
	rec, body := f.do(t, http.MethodPost, "/api/debug", map[string]string{
		"code": "def divide(a, b):\n    return a / b\n\nprint(divide(1, 0))\n",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	result := body["debugStates"].(map[string]any)
	require.Equal(t, "exception", result["outcome"])
	states := result["debugStates"].([]any)
	last := states[len(states)-1].(map[string]any)
	require.Equal(t, true, last["error"])
	require.Equal(t, "division by zero", last["errorMessage"])
}

func TestDebugWhileLoop(t *testing.T) {
	f := newFixture(t)
	rec, body := f.do(t, http.MethodPost, "/api/debug", map[string]string{
		"code": "n = 0\nwhile n < 3:\n    n += 1\nprint(n)\n",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	result := body["debugStates"].(map[string]any)
	require.Equal(t, "completed", result["outcome"])
	states := result["debugStates"].([]any)
	require.Equal(t, "3\n", states[len(states)-1].(map[string]any)["output"])

	est := result["complexity"].(map[string]any)
	require.Equal(t, "O(n)", est["time"])
	require.Equal(t, true, est["has_loops"])

	rec, body = f.do(t, http.MethodPost, "/api/debug", map[string]string{
		"code": "n = 0\nwhile n < 3\n    n += 1\n",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	result = body["debugStates"].(map[string]any)
	require.Equal(t, "syntax_error", result["outcome"])
	states = result["debugStates"].([]any)
	require.Len(t, states, 1)
	require.Equal(t, float64(2), states[0].(map[string]any)["line"])
}

func TestDebugRejects(t *testing.T) {
	f := newFixture(t)

	rec, body := f.do(t, http.MethodPost, "/api/debug", map[string]string{"code": "  "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "No code provided", body["error"])
	require.NotEmpty(t, body["request_id"])

	rec, body = f.do(t, http.MethodPost, "/api/debug", map[string]string{"code": "x = 1", "language": "javascript"})
	require.Equal(t, http.StatusNotImplemented, rec.Code)
	require.Equal(t, false, body["success"])

	rec, body = f.do(t, http.MethodPost, "/api/debug", map[string]string{"code": "x = 1", "language": "ruby"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Unsupported language: ruby", body["error"])
	require.Equal(t, []any{"python"}, body["supported_languages"])

	rec, body = f.do(t, http.MethodPost, "/api/debug", "{not json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "No JSON data received", body["error"])
}

func TestComplexity(t *testing.T) {
	f := newFixture(t)
	rec, body := f.do(t, http.MethodPost, "/api/complexity", map[string]string{
		"code": "for i in range(3):\n    for j in range(3):\n        print(i, j)\n",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	est := body["complexity"].(map[string]any)
	require.Equal(t, "O(n²)", est["time"])
	require.Equal(t, true, est["has_loops"])

	rec, _ = f.do(t, http.MethodPost, "/api/complexity", map[string]string{"code": ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORS(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/debug", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	f.server.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	f.server.Router.ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func connectMCP(t *testing.T, f *fixture) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	server := NewMcpServer(f.debugger, f.sessions, f.logger)
	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func toolText(t *testing.T, res *mcp.CallToolResult, i int) string {
	t.Helper()
	require.Greater(t, len(res.Content), i)
	text, ok := res.Content[i].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestMcpTools(t *testing.T) {
	f := newFixture(t)
	cs := connectMCP(t, f)
	ctx := context.Background()

	tools, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	require.ElementsMatch(t, []string{"debug_code", "get_debug_state", "analyze_complexity"}, names)

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{Name: "get_debug_state", Arguments: map[string]any{"index": 0}})
	require.NoError(t, err)
	require.True(t, res.IsError)

	res, err = cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "debug_code",
		Arguments: map[string]any{"code": "total = 0\nfor i in range(3):\n    total += i\nprint(total)\n"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError, toolText(t, res, 0))
	require.Contains(t, toolText(t, res, 0), "outcome: completed")
	require.Contains(t, toolText(t, res, 0), "output:\n3")

	var result debugger.Result
	require.NoError(t, json.Unmarshal([]byte(toolText(t, res, 1)), &result))
	require.NotEmpty(t, result.DebugStates)

	res, err = cs.CallTool(ctx, &mcp.CallToolParams{Name: "get_debug_state", Arguments: map[string]any{"index": 0}})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Equal(t, "state 1 of "+strconv.Itoa(len(result.DebugStates)), toolText(t, res, 0))

	res, err = cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "debug_code",
		Arguments: map[string]any{"code": "n = 0\nwhile n < 3:\n    n += 1\nprint(n)\n"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError, toolText(t, res, 0))
	require.Contains(t, toolText(t, res, 0), "outcome: completed")
	require.Contains(t, toolText(t, res, 0), "output:\n3")
	require.NoError(t, json.Unmarshal([]byte(toolText(t, res, 1)), &result))

	res, err = cs.CallTool(ctx, &mcp.CallToolParams{Name: "get_debug_state", Arguments: map[string]any{"index": 999}})
	require.NoError(t, err)
	require.True(t, res.IsError)

	res, err = cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "analyze_complexity",
		Arguments: map[string]any{"code": "def f(n):\n    return f(n - 1)\n"},
	})
	require.NoError(t, err)
	require.Contains(t, toolText(t, res, 0), `"has_recursion": true`)

	res, err = cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "debug_code",
		Arguments: map[string]any{"code": "x = 1", "language": "javascript"},
	})
	require.NoError(t, err)
	require.True(t, res.IsError)
}
