// Package server exposes the pipeline engine over HTTP: one streaming
// endpoint per request type plus session history management. The web
// front-end consuming these endpoints lives elsewhere; this layer only
// validates input, starts pipelines and relays event frames.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/avilaj/rassist/core"
	"github.com/avilaj/rassist/engine"
	"github.com/avilaj/rassist/logging"
	"github.com/avilaj/rassist/sse"
)

// Server routes HTTP requests to the engine.
type Server struct {
	engine *engine.Engine
	logger logging.Logger
	router chi.Router
}

// Options configures a Server.
type Options struct {
	Logger logging.Logger
}

// New wires the routes and returns a ready Server.
func New(eng *engine.Engine, optFns ...func(o *Options)) *Server {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Server{engine: eng, logger: opts.Logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Route("/api", func(r chi.Router) {
		r.Post("/explain/stream", s.handleExplain)
		r.Post("/answer/stream", s.handleAnswer)
		r.Post("/talk/stream", s.handleTalk)
		r.Get("/history", s.handleListHistory)
		r.Delete("/history", s.handleClearHistory)
	})
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type streamRequest struct {
	SessionID string `json:"session_id"`
	Code      string `json:"code"`
	Problem   string `json:"problem"`
	Message   string `json:"message"`
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	s.stream(w, r, core.RequestExplain, func(req streamRequest) string { return req.Code })
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	s.stream(w, r, core.RequestAnswer, func(req streamRequest) string { return req.Problem })
}

func (s *Server) handleTalk(w http.ResponseWriter, r *http.Request) {
	s.stream(w, r, core.RequestTalk, func(req streamRequest) string { return req.Message })
}

// stream starts a pipeline and relays its frames until the channel closes
// or the client disconnects.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, reqType core.RequestType, input func(streamRequest) string) {
	var req streamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SessionID == "" {
		httpError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	text := input(req)
	if text == "" {
		httpError(w, http.StatusBadRequest, "input text is required")
		return
	}

	events, err := s.engine.Start(r.Context(), reqType.String(), text, req.SessionID)
	switch {
	case errors.Is(err, core.ErrUnknownRequestType):
		httpError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, core.ErrSessionBusy):
		httpError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		s.logger.Error("failed to start pipeline", "request_type", reqType.String(), "error", err)
		httpError(w, http.StatusInternalServerError, "failed to start pipeline")
		return
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}

	for ev := range events {
		if err := writer.Send(ev); err != nil {
			// Client went away; the engine notices via request context.
			s.logger.Debug("stream send failed", "session_id", req.SessionID, "error", err)
			return
		}
	}
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		httpError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	msgs, err := s.engine.History(r.Context(), sessionID)
	if err != nil {
		s.logger.Error("failed to list history", "session_id", sessionID, "error", err)
		httpError(w, http.StatusInternalServerError, "failed to list history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": sessionID, "messages": msgs})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		httpError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if err := s.engine.ClearHistory(r.Context(), sessionID); err != nil {
		s.logger.Error("failed to clear history", "session_id", sessionID, "error", err)
		httpError(w, http.StatusInternalServerError, "failed to clear history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
}

func httpError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
