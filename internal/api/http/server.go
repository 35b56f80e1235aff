package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/lovedemo/seedManage/internal/domain"
	"github.com/lovedemo/seedManage/internal/pagination"
)

type SearchService interface {
	Search(ctx context.Context, request domain.SearchRequest) (domain.SearchOutcome, error)
	ListAdapters() domain.AdapterList
	AdapterDiagnostics() []domain.AdapterDiagnostics
}

type HistoryReader interface {
	List(ctx context.Context, limit int) ([]domain.HistoryEntry, error)
}

type Server struct {
	search         SearchService
	history        HistoryReader
	logger         *slog.Logger
	password       string
	rateLimitRPS   float64
	rateLimitBurst int
	metrics        http.Handler
}

const (
	maxQueryLength      = 500
	defaultHistoryLimit = 50
)

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithHistory(history HistoryReader) ServerOption {
	return func(s *Server) {
		s.history = history
	}
}

// WithAccessPassword gates every API route except health and login behind
// the auth cookie. An empty password disables the gate.
func WithAccessPassword(password string) ServerOption {
	return func(s *Server) {
		s.password = password
	}
}

func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		s.rateLimitRPS = rps
		s.rateLimitBurst = burst
	}
}

func WithMetricsHandler(handler http.Handler) ServerOption {
	return func(s *Server) {
		s.metrics = handler
	}
}

func NewServer(searchService SearchService, options ...ServerOption) *Server {
	server := &Server{
		search:         searchService,
		logger:         slog.Default(),
		rateLimitRPS:   50,
		rateLimitBurst: 100,
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	if server.metrics == nil {
		server.metrics = promhttp.Handler()
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/adapters", s.handleAdapters)
	mux.HandleFunc("/api/adapters/health", s.handleAdaptersHealth)
	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/login", s.handleLogin)
	mux.Handle("/metrics", s.metrics)

	inner := requestIDMiddleware(loggingMiddleware(s.logger, authMiddleware(s.password, mux)))
	traced := otelhttp.NewHandler(inner, "seedmanage",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/api/health"
		}),
	)
	return recoveryMiddleware(s.logger,
		corsMiddleware(
			rateLimitMiddleware(s.rateLimitRPS, s.rateLimitBurst, metricsMiddleware(traced))))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	list := s.search.ListAdapters()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"time":           time.Now().UTC(),
		"defaultAdapter": list.DefaultAdapter,
		"adapters":       list.Adapters,
	})
}

func (s *Server) handleAdapters(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.search.ListAdapters())
}

func (s *Server) handleAdaptersHealth(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"checkedAt": time.Now().UTC(),
		"items":     s.search.AdapterDiagnostics(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	params := r.URL.Query()
	query := strings.TrimSpace(params.Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", domain.ErrEmptyQuery.Error())
		return
	}
	if len(query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "query too long (max 500 characters)")
		return
	}

	adapterID := strings.TrimSpace(params.Get("adapter"))
	outcome, err := s.search.Search(r.Context(), domain.SearchRequest{
		Query:     query,
		AdapterID: adapterID,
		Page:      pagination.ParsePage(params.Get("page")),
		PageSize:  pagination.ParsePageSize(params.Get("pageSize")),
	})
	if err != nil {
		s.logger.Warn("search request failed",
			slog.String("query", truncate(query, 80)),
			slog.String("adapter", adapterID),
			slog.String("error", err.Error()),
		)
		switch {
		case domain.IsRequestError(err):
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		case errors.Is(err, context.Canceled):
			writeError(w, http.StatusServiceUnavailable, "service_unavailable", "request cancelled")
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "search failed")
		}
		return
	}

	s.logger.Info("search completed",
		slog.String("query", truncate(query, 80)),
		slog.String("mode", string(outcome.Mode)),
		slog.String("adapter", outcome.AdapterUsed),
		slog.Int("resultCount", outcome.ResultCount),
		slog.Bool("fallbackUsed", outcome.FallbackUsed),
		slog.Int64("elapsedMs", outcome.ElapsedMS),
	)
	if outcome.PrimaryError != "" {
		s.logger.Warn("search adapter failed",
			slog.String("query", truncate(query, 80)),
			slog.String("adapter", outcome.AdapterUsed),
			slog.String("error", outcome.PrimaryError),
			slog.String("fallbackError", outcome.FallbackError),
		)
	}

	writeJSON(w, http.StatusOK, outcome.Response())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	if s.history == nil {
		writeJSON(w, http.StatusOK, map[string]any{"history": []domain.HistoryEntry{}})
		return
	}
	limit, err := parsePositiveInt(r, "limit", defaultHistoryLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return
	}
	entries, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("history list failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "history unavailable")
		return
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if s.password == "" {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
		return
	}
	if !passwordMatches(s.password, r.FormValue("password")) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "wrong password")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    authToken(s.password),
		Path:     "/",
		MaxAge:   int((24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method "+r.Method+" not allowed")
	return false
}

func parsePositiveInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return parsed, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
