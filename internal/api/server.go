// Package api exposes the deep-think pipeline over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/deepthink/internal/orchestrator"
	"github.com/example/deepthink/internal/session"
	"github.com/example/deepthink/internal/tools"
)

// Server holds the handlers' collaborators. All dependencies are injected so
// tests can run against doubles.
type Server struct {
	Orch     *orchestrator.Orchestrator
	Sessions *session.Store
	Tools    *tools.Registry
	Defaults orchestrator.Options
	Logger   *slog.Logger
}

func NewServer(orch *orchestrator.Orchestrator, sessions *session.Store, reg *tools.Registry, defaults orchestrator.Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{Orch: orch, Sessions: sessions, Tools: reg, Defaults: defaults, Logger: logger}
}

// Handler returns the full route table wrapped in CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return cors(mux)
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/think", s.handleThink)
	mux.HandleFunc("/extract", s.handleExtract)

	mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			respondJSON(w, http.StatusOK, s.Sessions.List())
		case http.MethodPost:
			st, err := s.Sessions.Create()
			if err != nil {
				s.respondError(w, http.StatusInternalServerError, err)
				return
			}
			respondJSON(w, http.StatusCreated, st)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/sessions/", func(w http.ResponseWriter, r *http.Request) {
		// path: /sessions/{id}
		id := r.URL.Path[len("/sessions/"):]
		switch r.Method {
		case http.MethodGet:
			st, err := s.Sessions.Load(id)
			if errors.Is(err, session.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			if err != nil {
				s.respondError(w, http.StatusInternalServerError, err)
				return
			}
			respondJSON(w, http.StatusOK, st)
		case http.MethodDelete:
			err := s.Sessions.Delete(id)
			if errors.Is(err, session.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			if err != nil {
				s.respondError(w, http.StatusInternalServerError, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

// thinkRequest is the POST /think body. Option fields override the server
// defaults when present.
type thinkRequest struct {
	Question        string   `json:"question"`
	SessionID       string   `json:"session_id,omitempty"`
	MaxSubtasks     *int     `json:"max_subtasks,omitempty"`
	MaxParallel     *int     `json:"max_parallel,omitempty"`
	EnableReview    *bool    `json:"enable_review,omitempty"`
	EnableWebSearch *bool    `json:"enable_web_search,omitempty"`
	Model           string   `json:"model,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"top_p,omitempty"`
	MaxTokens       int      `json:"max_tokens,omitempty"`
}

func (s *Server) handleThink(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req thinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.Question == "" {
		s.respondError(w, http.StatusBadRequest, errors.New("question is required"))
		return
	}

	opts := s.Defaults
	if req.MaxSubtasks != nil {
		opts.MaxSubtasks = *req.MaxSubtasks
	}
	if req.MaxParallel != nil {
		opts.MaxParallel = *req.MaxParallel
	}
	if req.EnableReview != nil {
		opts.EnableReview = *req.EnableReview
	}
	if req.EnableWebSearch != nil {
		opts.EnableWebSearch = *req.EnableWebSearch
	}
	if req.Model != "" {
		opts.Model = req.Model
	}
	if req.Temperature != nil {
		opts.Temperature = req.Temperature
	}
	if req.TopP != nil {
		opts.TopP = req.TopP
	}
	if req.MaxTokens > 0 {
		opts.MaxTokens = req.MaxTokens
	}

	started := time.Now()
	result, err := s.Orch.Run(r.Context(), req.Question, opts)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.Logger.Info("think request served",
		"llm_calls", result.TotalLLMCalls,
		"duration", time.Since(started).Round(time.Millisecond))

	sessionID := req.SessionID
	if s.Sessions != nil && sessionID != "" {
		if st, err := s.Sessions.GetOrCreate(sessionID); err == nil {
			st.AppendMessage("user", req.Question)
			st.AppendMessage("assistant", result.FinalAnswer)
			if err := s.Sessions.Save(st); err != nil {
				s.Logger.Warn("session save failed", "session_id", st.ID, "error", err)
			}
			sessionID = st.ID
		}
	}

	respondJSON(w, http.StatusOK, struct {
		SessionID string `json:"session_id,omitempty"`
		Result    any    `json:"result"`
	}{SessionID: sessionID, Result: result})
}

// extractRequest is the POST /extract body: a base64 or data-URI encoded
// document to run through the doc_extract tool.
type extractRequest struct {
	Content  string `json:"content"`
	MaxPages int    `json:"max_pages,omitempty"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.Tools == nil {
		s.respondError(w, http.StatusNotImplemented, errors.New("no tools configured"))
		return
	}
	tool, ok := s.Tools.Get("doc_extract")
	if !ok {
		s.respondError(w, http.StatusNotImplemented, errors.New("doc_extract tool not registered"))
		return
	}
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	args := map[string]any{"data_base64": req.Content}
	if req.MaxPages > 0 {
		args["max_pages"] = float64(req.MaxPages)
	}
	out, note, err := tool.Execute(r.Context(), args)
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, err)
		return
	}
	respondJSON(w, http.StatusOK, struct {
		Text string `json:"text"`
		Note string `json:"note,omitempty"`
	}{Text: out.(string), Note: note})
}

func (s *Server) respondError(w http.ResponseWriter, status int, err error) {
	s.Logger.Warn("request failed", "status", status, "error", err)
	respondJSON(w, status, struct {
		Error string `json:"error"`
	}{Error: err.Error()})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// cors allows browser clients during local development.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
