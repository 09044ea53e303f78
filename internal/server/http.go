package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yousuf/stepbyte/internal/config"
	"github.com/yousuf/stepbyte/internal/debugger"
	"github.com/yousuf/stepbyte/internal/session"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

type Server struct {
	Router   *chi.Mux
	debugger *debugger.Debugger
	logger   *slog.Logger
}

// New wires the HTTP API, the MCP endpoint and /metrics.
func New(cfg config.ServerConfig, d *debugger.Debugger, sessionMgr *session.Manager, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	s := &Server{Router: r, debugger: d, logger: logger}

	// Apply middleware in order
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(NoCacheMiddleware)
	r.Use(CORSMiddleware(cfg.CORSOrigins))

	// Wrap with OpenTelemetry HTTP instrumentation
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "stepbyte")
	})

	r.Get("/", s.handleIndex)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/languages", s.handleLanguages)
		r.Post("/debug", s.handleDebug)
		r.Post("/complexity", s.handleComplexity)
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mcpServer := NewMcpServer(d, sessionMgr, logger)
	r.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return mcpServer
	}, nil))

	return s
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "stepbyte API is running",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

type language struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"languages": []language{{ID: "python", Name: "Python", Version: "3.x"}},
	})
}

// debugRequest is the body of POST /api/debug. testCase is accepted as an
// alias of input.
type debugRequest struct {
	Code     string `json:"code"`
	Input    string `json:"input"`
	TestCase string `json:"testCase"`
	Language string `json:"language"`
}

func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := RequestID(ctx)

	var req debugRequest
	if err := decodeBody(w, r, &req); err != nil {
		AddError(ctx, err)
		writeError(w, http.StatusBadRequest, "No JSON data received", requestID, nil)
		return
	}
	if req.Language == "" {
		req.Language = "python"
	}
	AddLogField(ctx, "language", req.Language)

	if strings.TrimSpace(req.Code) == "" {
		writeError(w, http.StatusBadRequest, "No code provided", requestID, nil)
		return
	}
	if err := debugger.CheckLanguage(req.Language); err != nil {
		switch {
		case errors.Is(err, debugger.ErrNotImplemented):
			writeError(w, http.StatusNotImplemented, "JavaScript debugging not implemented", requestID, nil)
		default:
			writeError(w, http.StatusBadRequest, "Unsupported language: "+req.Language, requestID, map[string]any{
				"supported_languages": []string{debugger.Languages[0]},
			})
		}
		return
	}

	stdin := req.Input
	if stdin == "" {
		stdin = req.TestCase
	}
	res, err := s.debugger.Execute(ctx, req.Code, stdin)
	if err != nil {
		AddError(ctx, err)
		s.logger.Error("debug request failed", slog.String("request_id", requestID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Debugging failed: "+err.Error(), requestID, nil)
		return
	}
	AddLogField(ctx, "outcome", string(res.Outcome))

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"debugStates": res,
	})
}

type complexityRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleComplexity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := RequestID(ctx)

	var req complexityRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "No JSON data received", requestID, nil)
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		writeError(w, http.StatusBadRequest, "No code provided", requestID, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"complexity": s.debugger.Estimate(ctx, req.Code),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return errors.Wrap(err, "decoding request body")
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, msg, requestID string, extra map[string]any) {
	body := map[string]any{
		"success":    false,
		"error":      msg,
		"request_id": requestID,
	}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
