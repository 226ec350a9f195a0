package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LouisDeconinck/waitlist-template2/internal/config"
	"github.com/LouisDeconinck/waitlist-template2/internal/edge"
	"github.com/LouisDeconinck/waitlist-template2/internal/metadata"
	"github.com/LouisDeconinck/waitlist-template2/internal/payload"
	"github.com/LouisDeconinck/waitlist-template2/internal/policy/ratelimit"
	"github.com/LouisDeconinck/waitlist-template2/internal/telemetry"
	"github.com/LouisDeconinck/waitlist-template2/internal/validate"
	"github.com/LouisDeconinck/waitlist-template2/internal/waitlist"
)

// User-facing copy. The success and validation messages are deliberately
// generic: bots probing the endpoint learn nothing about the schema, and the
// honeypot response is indistinguishable from a real success.
const (
	msgThanks      = "Thanks for joining the waitlist!"
	msgInvalid     = "Please submit a valid email address."
	msgRateLimited = "Too many signups from your network today. Please try again tomorrow."
	msgInternal    = "Something went wrong. Please try again later."
)

const maxBodyBytes = 1 << 20

// Server wires HTTP handlers to the entry store.
type Server struct {
	router chi.Router
	store  waitlist.EntryStore
	clock  waitlist.Clock
	hasher waitlist.Hasher
	cfg    config.Config
	logger *zap.Logger
	assets http.Handler
}

// NewServer constructs a Server with middleware and routes. The assets
// handler receives every request that is not part of the API surface.
func NewServer(
	store waitlist.EntryStore,
	clock waitlist.Clock,
	hasher waitlist.Hasher,
	cfg config.Config,
	logger *zap.Logger,
	assets http.Handler,
) *Server {
	telemetry.Init()
	s := &Server{
		store:  store,
		clock:  clock,
		hasher: hasher,
		cfg:    cfg,
		logger: logger,
		assets: assets,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(corsMiddleware)
	r.Use(telemetry.Middleware)

	r.Get("/api/health", s.health)
	r.Post("/api/waitlist", s.submit)
	r.Options("/api/waitlist", s.preflight)
	r.Method(http.MethodGet, "/metrics", telemetry.Handler())
	r.NotFound(s.serveAsset)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "service": "waitlist-api"})
}

func (s *Server) preflight(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Allow", "POST, OPTIONS")
	w.WriteHeader(http.StatusNoContent)
}

// serveAsset delegates non-API paths to the static site handler.
func (s *Server) serveAsset(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeJSON(w, http.StatusNotFound, envelope{OK: false, Error: "not_found"})
		return
	}
	s.assets.ServeHTTP(w, r)
}

// submit runs the full pipeline: parse, normalize, validate, honeypot,
// rate limit, enrich, upsert.
func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	fields := payload.ParseBody(r)
	sub := payload.Normalize(fields)

	if err := validate.Submission(sub); err != nil {
		s.logger.Debug("submission rejected", zap.Error(err))
		telemetry.ObserveSubmission(telemetry.OutcomeInvalid)
		writeJSON(w, http.StatusBadRequest, envelope{OK: false, Error: "invalid_payload", Message: msgInvalid})
		return
	}

	// The honeypot check runs before the rate limiter on purpose: bot
	// traffic never consumes a slot and never touches the store.
	if sub.Honeypot != "" {
		s.logger.Info("honeypot triggered", zap.String("email", sub.Email))
		telemetry.ObserveSubmission(telemetry.OutcomeBot)
		writeJSON(w, http.StatusOK, envelope{OK: true, Message: msgThanks})
		return
	}

	info := edge.FromRequest(r)
	ipHash := s.hasher.Hash(info.IP)
	now := s.clock.Now()

	decision, err := ratelimit.Evaluate(r.Context(), s.store, info.IP, ipHash, now, s.cfg.RateLimit.DailyLimit)
	if err != nil {
		s.fail(w, "rate limit evaluation failed", err)
		return
	}
	if !decision.Allowed {
		telemetry.ObserveSubmission(telemetry.OutcomeRateLimited)
		w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfterSeconds))
		writeJSON(w, http.StatusTooManyRequests, envelope{OK: false, Error: "rate_limited", Message: msgRateLimited})
		return
	}

	metaJSON, err := json.Marshal(metadata.Build(sub, info, r))
	if err != nil {
		s.fail(w, "marshal metadata", err)
		return
	}

	entry := buildEntry(sub, info, ipHash, metaJSON, now, r)
	created, err := s.store.UpsertEntry(r.Context(), entry)
	if err != nil {
		s.fail(w, "upsert entry", err)
		return
	}

	outcome := telemetry.OutcomeUpdated
	if created {
		outcome = telemetry.OutcomeCreated
	}
	telemetry.ObserveSubmission(outcome)
	s.logger.Info("waitlist submission stored",
		zap.String("email", entry.Email),
		zap.Bool("created", created),
		zap.String("country", info.Country),
	)
	writeJSON(w, http.StatusCreated, envelope{OK: true, Message: msgThanks})
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, zap.Error(err))
	telemetry.ObserveSubmission(telemetry.OutcomeError)
	writeJSON(w, http.StatusInternalServerError, envelope{OK: false, Error: "internal_error", Message: msgInternal})
}

func buildEntry(
	sub waitlist.Submission,
	info waitlist.EdgeInfo,
	ipHash string,
	metaJSON []byte,
	now time.Time,
	r *http.Request,
) waitlist.Entry {
	host := r.Header.Get("Host")
	if host == "" {
		host = r.Host
	}
	return waitlist.Entry{
		Email:     sub.Email,
		IPAddress: info.IP,
		IPHash:    ipHash,

		Qualifier:   sub.Qualifier,
		UseCase:     sub.UseCase,
		SourceURL:   sub.SourceURL,
		LandingPath: sub.LandingPath,

		UTMSource:   sub.UTMSource,
		UTMMedium:   sub.UTMMedium,
		UTMCampaign: sub.UTMCampaign,
		UTMTerm:     sub.UTMTerm,
		UTMContent:  sub.UTMContent,

		ScreenWidth:         sub.ScreenWidth,
		ScreenHeight:        sub.ScreenHeight,
		ViewportWidth:       sub.ViewportWidth,
		ViewportHeight:      sub.ViewportHeight,
		Platform:            sub.Platform,
		Timezone:            sub.Timezone,
		TimezoneOffset:      sub.TimezoneOffset,
		ColorScheme:         sub.ColorScheme,
		ReducedMotion:       sub.ReducedMotion,
		CookiesEnabled:      sub.CookiesEnabled,
		DoNotTrack:          sub.DoNotTrack,
		DeviceMemory:        sub.DeviceMemory,
		HardwareConcurrency: sub.HardwareConcurrency,
		MaxTouchPoints:      sub.MaxTouchPoints,

		Country:        info.Country,
		City:           info.City,
		UserAgent:      r.Header.Get("User-Agent"),
		Referrer:       r.Header.Get("Referer"),
		AcceptLanguage: r.Header.Get("Accept-Language"),
		Origin:         r.Header.Get("Origin"),
		Host:           host,

		MetadataJSON: metaJSON,

		CreatedAt: now,
		UpdatedAt: now,
	}
}

type envelope struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeJSON(w, http.StatusInternalServerError, envelope{OK: false, Error: "internal_error", Message: msgInternal})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// corsMiddleware lets third-party landing pages post cross-origin against
// the API surface.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}
