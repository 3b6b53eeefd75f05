// Package httpapi exposes the settlement engine over a JSON REST API.
//
// The API is deliberately thin: every endpoint maps onto one engine
// operation, and all domain rules live in the engine. When a TokenManager is
// configured every /v1 route requires a bearer token; without one the API is
// open, which suits embedding behind an authenticating gateway.
package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	settle "github.com/xraph/settle"
)

// Server serves the settlement engine API.
type Server struct {
	engine *settle.Engine
	auth   *TokenManager
	logger *slog.Logger
}

// ServerOption configures the Server.
type ServerOption func(*Server)

// WithAuth enables bearer token authentication on all /v1 routes.
func WithAuth(tm *TokenManager) ServerOption {
	return func(s *Server) { s.auth = tm }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Server over the given engine.
func New(engine *settle.Engine, opts ...ServerOption) *Server {
	s := &Server{
		engine: engine,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /v1/groups", s.protected(s.handleCreateGroup))
	mux.HandleFunc("GET /v1/groups", s.protected(s.handleListGroups))
	mux.HandleFunc("GET /v1/groups/{id}", s.protected(s.handleGetGroup))
	mux.HandleFunc("POST /v1/groups/{id}/members", s.protected(s.handleAddMember))
	mux.HandleFunc("DELETE /v1/groups/{id}/members/{participant}", s.protected(s.handleRemoveMember))
	mux.HandleFunc("POST /v1/groups/{id}/expenses", s.protected(s.handleAddExpense))
	mux.HandleFunc("GET /v1/groups/{id}/expenses", s.protected(s.handleListExpenses))
	mux.HandleFunc("GET /v1/groups/{id}/balances", s.protected(s.handleBalances))
	mux.HandleFunc("POST /v1/groups/{id}/settlement", s.protected(s.handleTriggerSettlement))
	mux.HandleFunc("GET /v1/groups/{id}/runs", s.protected(s.handleListRuns))
	mux.HandleFunc("POST /v1/groups/{id}/archive", s.protected(s.handleArchiveGroup))
	mux.HandleFunc("GET /v1/expenses/{id}", s.protected(s.handleGetExpense))

	return s.withMiddleware(mux)
}

// ──────────────────────────────────────────────────
// Middleware
// ──────────────────────────────────────────────────

type claimsKey struct{}

// protected wraps a handler with bearer token validation when auth is
// configured. The validated claims are stashed in the request context.
func (s *Server) protected(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			next(w, r)
			return
		}

		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authorization token required", nil)
			return
		}
		claims, err := s.auth.Validate(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token", nil)
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	}
}

// caller returns the authenticated participant ID, empty when auth is disabled.
func caller(r *http.Request) string {
	if claims, ok := r.Context().Value(claimsKey{}).(*Claims); ok {
		return claims.ParticipantID
	}
	return ""
}

func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		writer.Header().Set("X-Request-ID", requestID)
		writer.Header().Set("Content-Type", "application/json")

		next.ServeHTTP(writer, r)

		s.logger.Info("http request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", writer.status,
			"duration_ms", time.Since(started).Milliseconds(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// ──────────────────────────────────────────────────
// Response helpers
// ──────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// mapError translates engine errors to HTTP status codes: specific
// sentinels first, then the error taxonomy as fallback.
func mapError(err error) (status int, code, message string) {
	switch {
	case errors.Is(err, settle.ErrSettlementInProgress):
		return http.StatusConflict, "SETTLEMENT_IN_PROGRESS", "a settlement run is in progress"
	case errors.Is(err, settle.ErrGroupClosed):
		return http.StatusConflict, "GROUP_CLOSED", "group is closed"
	case errors.Is(err, settle.ErrMemberExists):
		return http.StatusConflict, "MEMBER_EXISTS", "participant is already a member"
	case errors.Is(err, settle.ErrMemberRemoval):
		return http.StatusConflict, "MEMBER_HAS_EXPENSES", "members cannot be removed once expenses exist"
	case errors.Is(err, settle.ErrNotAdmin):
		return http.StatusForbidden, "FORBIDDEN", "only the group admin may do this"
	case errors.Is(err, settle.ErrRunCancelled):
		return http.StatusConflict, "RUN_CANCELLED", "settlement run cancelled before submission"
	case errors.Is(err, settle.ErrStoreClosed):
		return http.StatusServiceUnavailable, "SHUTTING_DOWN", "engine is shutting down"
	case settle.IsNotFound(err):
		return http.StatusNotFound, "NOT_FOUND", "not found"
	case settle.IsValidation(err):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error()
	case settle.IsState(err):
		return http.StatusConflict, "CONFLICT", err.Error()
	case settle.IsInvariantViolation(err):
		return http.StatusInternalServerError, "INVARIANT_VIOLATION", "internal invariant violated"
	default:
		return http.StatusInternalServerError, "SERVER_ERROR", "server error"
	}
}

func writeEngineError(w http.ResponseWriter, err error) {
	status, code, message := mapError(err)
	writeError(w, status, code, message, nil)
}
