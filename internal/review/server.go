package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wardenhq/warden/internal/version"
)

// ServerConfig configures the review HTTP service.
type ServerConfig struct {
	Host  string
	Port  int
	Token string
}

// Server exposes the review wire protocol over HTTP.
type Server struct {
	cfg        ServerConfig
	service    *Service
	httpServer *http.Server
}

// NewServer creates a review server for the given service.
func NewServer(cfg ServerConfig, service *Service) *Server {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := cfg.Port
	if port <= 0 {
		port = 8080
	}

	cfg.Host = host
	cfg.Port = port
	return &Server{
		cfg:     cfg,
		service: service,
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}

// Start blocks serving HTTP until shutdown.
func (s *Server) Start() error {
	mux := NewHandler(s.cfg.Token, s.service)
	s.httpServer = &http.Server{
		Addr:              s.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("review service listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// NewHandler builds the review API handler. A non-empty token requires a
// bearer token on every /api/ endpoint.
func NewHandler(token string, service *Service) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		requestID := getRequestID(r)
		if r.Method != http.MethodGet {
			writeError(w, requestID, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "ok",
			"request_id": requestID,
		})
	})

	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		requestID := getRequestID(r)
		if r.Method != http.MethodGet {
			writeError(w, requestID, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"version":    version.Version,
			"request_id": requestID,
		})
	})

	mux.HandleFunc("/api/review", func(w http.ResponseWriter, r *http.Request) {
		requestID := getRequestID(r)
		if r.Method != http.MethodPost {
			writeError(w, requestID, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}
		if !authorized(r, token) {
			writeError(w, requestID, http.StatusUnauthorized, "unauthorized", "missing or invalid bearer token")
			return
		}

		var req struct {
			AgentID    string          `json:"agent_id"`
			TaskState  json.RawMessage `json:"task_state"`
			ToolChoice json.RawMessage `json:"tool_choice"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, requestID, http.StatusBadRequest, "bad_request", "invalid json request")
			return
		}

		ticket, err := service.Create(CreateInput{
			AgentID:    req.AgentID,
			TaskState:  req.TaskState,
			ToolChoice: req.ToolChoice,
		})
		if err != nil {
			slog.Error("create review failed", "request_id", requestID, "error", err)
			writeError(w, requestID, http.StatusBadRequest, "bad_request", err.Error())
			return
		}

		slog.Info("review created", "request_id", requestID, "review_id", ticket.ID, "agent_id", ticket.AgentID)
		writeJSON(w, http.StatusOK, map[string]any{
			"id":         ticket.ID,
			"request_id": requestID,
		})
	})

	mux.HandleFunc("/api/review/status", func(w http.ResponseWriter, r *http.Request) {
		requestID := getRequestID(r)
		if r.Method != http.MethodGet {
			writeError(w, requestID, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}
		if !authorized(r, token) {
			writeError(w, requestID, http.StatusUnauthorized, "unauthorized", "missing or invalid bearer token")
			return
		}

		id := strings.TrimSpace(r.URL.Query().Get("id"))
		if id == "" {
			writeError(w, requestID, http.StatusBadRequest, "bad_request", "id is required")
			return
		}

		if _, err := service.ExpirePending(); err != nil {
			slog.Error("expire pending reviews failed", "request_id", requestID, "error", err)
			writeError(w, requestID, http.StatusInternalServerError, "internal_error", "failed to read review status")
			return
		}

		ticket, err := service.Get(id)
		if err != nil {
			var notFound ErrNotFound
			if errors.As(err, &notFound) {
				writeError(w, requestID, http.StatusNotFound, "not_found", err.Error())
				return
			}
			writeError(w, requestID, http.StatusInternalServerError, "internal_error", "failed to read review status")
			return
		}

		switch ticket.Status {
		case StatusPending:
			writeJSON(w, http.StatusOK, map[string]any{"status": string(StatusPending)})
		case StatusDecided:
			response := map[string]any{"decision": ticket.Decision}
			if ticket.Explanation != "" {
				response["explanation"] = ticket.Explanation
			}
			if len(ticket.ModifiedToolCall) > 0 {
				response["modified_tool_call"] = json.RawMessage(ticket.ModifiedToolCall)
			}
			writeJSON(w, http.StatusOK, response)
		default:
			writeJSON(w, http.StatusOK, map[string]any{"status": string(ticket.Status)})
		}
	})

	mux.HandleFunc("/api/review/pending", func(w http.ResponseWriter, r *http.Request) {
		requestID := getRequestID(r)
		if r.Method != http.MethodGet {
			writeError(w, requestID, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}
		if !authorized(r, token) {
			writeError(w, requestID, http.StatusUnauthorized, "unauthorized", "missing or invalid bearer token")
			return
		}

		if _, err := service.ExpirePending(); err != nil {
			slog.Error("expire pending reviews failed", "request_id", requestID, "error", err)
			writeError(w, requestID, http.StatusInternalServerError, "internal_error", "failed to list reviews")
			return
		}

		pending, err := service.ListPending()
		if err != nil {
			writeError(w, requestID, http.StatusInternalServerError, "internal_error", "failed to list reviews")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"reviews":    pending,
			"request_id": requestID,
		})
	})

	mux.HandleFunc("/api/review/decide", func(w http.ResponseWriter, r *http.Request) {
		requestID := getRequestID(r)
		if r.Method != http.MethodPost {
			writeError(w, requestID, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}
		if !authorized(r, token) {
			writeError(w, requestID, http.StatusUnauthorized, "unauthorized", "missing or invalid bearer token")
			return
		}

		var req struct {
			ID               string          `json:"id"`
			Decision         string          `json:"decision"`
			Explanation      string          `json:"explanation"`
			ModifiedToolCall json.RawMessage `json:"modified_tool_call"`
			DecidedBy        string          `json:"decided_by"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, requestID, http.StatusBadRequest, "bad_request", "invalid json request")
			return
		}

		ticket, err := service.Decide(req.ID, DecideInput{
			Decision:         req.Decision,
			Explanation:      req.Explanation,
			ModifiedToolCall: req.ModifiedToolCall,
			DecidedBy:        req.DecidedBy,
		})
		if err != nil {
			var notFound ErrNotFound
			if errors.As(err, &notFound) {
				writeError(w, requestID, http.StatusNotFound, "not_found", err.Error())
				return
			}
			writeError(w, requestID, http.StatusBadRequest, "bad_request", err.Error())
			return
		}

		slog.Info("review decided",
			"request_id", requestID,
			"review_id", ticket.ID,
			"decision", ticket.Decision,
			"decided_by", ticket.DecidedBy,
		)
		writeJSON(w, http.StatusOK, map[string]any{
			"review":     ticket,
			"request_id": requestID,
		})
	})

	return mux
}

func authorized(r *http.Request, expected string) bool {
	if strings.TrimSpace(expected) == "" {
		return true
	}
	got := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(got, prefix) {
		return false
	}
	return strings.TrimSpace(strings.TrimPrefix(got, prefix)) == expected
}

func getRequestID(r *http.Request) string {
	rid := strings.TrimSpace(r.Header.Get("X-Request-ID"))
	if rid != "" {
		return rid
	}
	return uuid.NewString()
}

func writeError(w http.ResponseWriter, requestID string, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"code":       code,
		"message":    message,
		"request_id": requestID,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
