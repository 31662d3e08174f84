package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"costtracker/internal/core"
	applog "costtracker/internal/log"
	"costtracker/internal/notify"
	"costtracker/internal/state"
)

// Session is the part of the session controller the HTTP surface drives.
type Session interface {
	State() *state.Store
	SignIn(ctx context.Context, email, password string) (core.User, error)
	SignUp(ctx context.Context, email, password string) (core.User, error)
	SignOut(ctx context.Context) error
	AddItem(ctx context.Context, name string, cost float64) (core.Item, error)
	UpdateItem(ctx context.Context, id, name string, cost float64) (core.Item, error)
	DeleteItem(ctx context.Context, id string) error
	AddOtherCost(ctx context.Context, description string, amount float64) (core.OtherCost, error)
	UpdateOtherCost(ctx context.Context, id, description string, amount float64) (core.OtherCost, error)
	DeleteOtherCost(ctx context.Context, id string) error
}

type Options struct {
	// Currency is the ISO code used for formatted totals.
	Currency string
	// Notifications backs GET /api/notifications when set.
	Notifications *notify.Recorder
	// Checks run on /readyz.
	Checks map[string]func(ctx context.Context) error
	// RateLimit caps mutating requests per client per minute. Zero means 60.
	RateLimit int
}

type Server struct {
	http.Server
	session     Session
	opts        Options
	rateLimiter *writeLimiter
	metrics     *securityMetrics
	logger      *applog.Logger

	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, sess Session, opts Options) *Server {
	if opts.Currency == "" {
		opts.Currency = core.DefaultCurrency
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}

	logger := applog.WithComponent(applog.ComponentHTTP)
	s := &Server{
		session:     sess,
		opts:        opts,
		rateLimiter: newWriteLimiter(opts.RateLimit),
		metrics:     &securityMetrics{},
		logger:      logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /auth/signin", s.handleSignIn)
	mux.HandleFunc("POST /auth/signup", s.handleSignUp)
	mux.HandleFunc("POST /auth/signout", s.handleSignOut)

	mux.HandleFunc("GET /api/state", s.requireUser(s.handleState))
	mux.HandleFunc("GET /api/notifications", s.requireUser(s.handleNotifications))

	mux.HandleFunc("POST /api/items", s.requireUser(s.handleAddItem))
	mux.HandleFunc("PUT /api/items/{id}", s.requireUser(s.handleUpdateItem))
	mux.HandleFunc("DELETE /api/items/{id}", s.requireUser(s.handleDeleteItem))

	mux.HandleFunc("POST /api/other-costs", s.requireUser(s.handleAddOtherCost))
	mux.HandleFunc("PUT /api/other-costs/{id}", s.requireUser(s.handleUpdateOtherCost))
	mux.HandleFunc("DELETE /api/other-costs/{id}", s.requireUser(s.handleDeleteOtherCost))

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.withSecurityHeaders(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	}
	return false
}

// withSecurityHeaders adds security headers, rate limiting and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" || len(requestID) > 64 {
			requestID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)

		reqLogger := s.logger.With(
			slog.String(applog.FieldRequestID, requestID),
			slog.String(applog.FieldClientIP, clientIP),
		)
		ctx := applog.WithLogger(r.Context(), reqLogger)
		r = r.WithContext(ctx)

		if reason := suspicionOf(r); reason != "" {
			s.metrics.suspiciousRequests.Add(1)
			reqLogger.WarnContext(ctx, "Suspicious request",
				slog.String(applog.FieldReason, reason),
				slog.String(applog.FieldMethod, r.Method),
				slog.String(applog.FieldPath, r.URL.Path),
				slog.String(applog.FieldUserAgent, r.Header.Get("User-Agent")))
		}

		if isMutating(r.Method) {
			if wait, ok := s.rateLimiter.take(clientIP); !ok {
				s.metrics.rateLimitHits.Add(1)
				reqLogger.WarnContext(ctx, "Rate limit exceeded",
					slog.String(applog.FieldMethod, r.Method),
					slog.String(applog.FieldPath, r.URL.Path))
				ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").
					Header("Retry-After", strconv.Itoa(retryAfterSeconds(wait))).
					Write(w)
				return
			}
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		applog.NewStructuredLogger(reqLogger).
			LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady runs every configured check with a short timeout.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	failed := make(map[string]string)
	for name, check := range s.opts.Checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
			applog.FromContext(r.Context()).WarnContext(ctx, "Readiness check failed",
				slog.String(applog.FieldKey, name),
				slog.String(applog.FieldError, err.Error()))
		}
	}
	if len(failed) > 0 {
		NewResponse().Status(http.StatusServiceUnavailable).
			JSON(map[string]any{"status": "unavailable", "failed": failed}).
			Write(w)
		return
	}
	NewResponse().JSON(map[string]any{
		"status":   "ready",
		"security": s.metrics.snapshot(),
	}).Write(w)
}
