package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/pricing"
	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/store"
)

const maxBodyBytes = 1 << 20

type cacheInvalidator interface {
	Invalidate(ctx context.Context, category string) error
}

type server struct {
	auth      *authService
	store     *store.Store
	predictor *pricing.Predictor
	cache     cacheInvalidator
	logger    *zap.Logger
}

func newServer(auth *authService, st *store.Store, predictor *pricing.Predictor, logger *zap.Logger) *server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &server{
		auth:      auth,
		store:     st,
		predictor: predictor,
		logger:    logger.Named("http"),
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/logout", s.handleLogout)

		r.Post("/pricing/predict", s.handlePredict)
		r.Get("/predictions", s.handlePredictionsList)
		r.Get("/predictions/export.xlsx", s.handlePredictionsExport)
		r.Get("/predictions/{id}/text", s.handlePredictionText)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/models", s.handleAdminModelsList)
			r.Post("/models", s.handleAdminModelsCreate)
			r.Put("/models/{id}", s.handleAdminModelsUpdate)
			r.Get("/rules", s.handleAdminRulesList)
			r.Post("/rules", s.handleAdminRulesCreate)
			r.Put("/rules/{id}", s.handleAdminRulesUpdate)
			r.Get("/market-data", s.handleAdminMarketDataList)
			r.Post("/market-data", s.handleAdminMarketDataCreate)
			r.Get("/customers", s.handleAdminCustomersList)
			r.Put("/customers/{name}", s.handleAdminCustomersUpsert)
		})
	})

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	valid, err := s.auth.validateCredentials(r.Context(), req.Email, req.Password)
	if err != nil {
		s.logger.Error("authentication failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Authentication error", nil)
		return
	}
	if !valid {
		writeError(w, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	s.auth.setSessionCookie(w, req.Email)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "email": req.Email})
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.auth.sessionEmail(r); !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request once the handler has finished.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			logger.Info("HTTP request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", wrapped.statusCode),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := errorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pricing.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, pricing.ErrModelNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
