// Package api exposes the nutrition coach over HTTP: JSON answer
// endpoints, an SSE chat stream, history listing, and meal photo
// analysis. Handlers translate structured app-backend requests into the
// free-text context the coach consumes.
package api

import (
	"errors"
	"net/http"

	"github.com/matchmeal/matchmeal/internal/log"
	"github.com/matchmeal/matchmeal/internal/vision"
)

// ServerConfig contains the dependencies for creating the API server.
type ServerConfig struct {
	Logger     log.Logger
	Coach      Responder         // Required
	Recorder   HistoryRecorder   // Required
	History    HistoryReader     // Required
	Classifier vision.Classifier // Optional: nil disables /vision/analyze
}

// Server is the JSON API HTTP server.
type Server struct {
	handler http.Handler
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Coach == nil {
		return nil, errors.New("coach is required")
	}
	if cfg.Recorder == nil {
		return nil, errors.New("recorder is required")
	}
	if cfg.History == nil {
		return nil, errors.New("history reader is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	ah := &aiHandler{coach: cfg.Coach, recorder: cfg.Recorder, logger: logger}
	hh := &historyHandler{store: cfg.History, logger: logger}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /ai/feedback", ah.feedback)
	mux.HandleFunc("POST /ai/recommend", ah.recommend)
	mux.HandleFunc("POST /ai/meal-plan", ah.mealPlan)
	mux.HandleFunc("POST /ai/chat", ah.chat)
	mux.HandleFunc("POST /ai/chat/stream", ah.chatStream)
	mux.HandleFunc("GET /ai/history", hh.recent)

	if cfg.Classifier != nil {
		vh := &visionHandler{classifier: cfg.Classifier, logger: logger}
		mux.HandleFunc("POST /vision/analyze", vh.analyze)
	}

	// Middleware stack (outermost first): Recovery → Logging → Routes.
	var handler http.Handler = mux
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probe bypasses the middleware stack so probes stay out of
	// the request log.
	top := http.NewServeMux()
	top.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	top.Handle("/", handler)

	return &Server{handler: top}, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}
