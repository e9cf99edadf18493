// Package web serves the resume tailor over HTTP.
//
// Routes:
//
//	GET  /             simple form
//	POST /             simple submission
//	GET  /builder      structured resume builder
//	POST /builder      structured submission
//	GET  /success      payment confirmation redirect, mints a grant
//	POST /admin/grants operator grant issuance (X-Admin-Key)
//	GET  /pay/qr.png   UPI payment QR code
//	GET  /health       liveness
//	GET  /ready        readiness, pings the grant store
//	GET  /metrics      Prometheus metrics
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"resume-tailor/internal/access"
	"resume-tailor/internal/common/config"
	"resume-tailor/internal/common/errors"
	"resume-tailor/internal/common/logger"
	"resume-tailor/internal/common/observability"
	"resume-tailor/internal/tailor"
)

// Handler holds the dependencies shared by every route.
type Handler struct {
	cfg       *config.Config
	svc       *tailor.Service
	store     access.Store
	pages     map[string]*template.Template
	obs       *observability.Observability
	responder *errors.Responder
	limiter   *ipLimiter
	logger    logger.Logger
	now       func() time.Time
}

// Options configures NewHandler. Obs may be nil.
type Options struct {
	Config  *config.Config
	Service *tailor.Service
	Store   access.Store
	Obs     *observability.Observability
	Logger  logger.Logger
}

func NewHandler(opts Options) (*Handler, error) {
	if opts.Config == nil || opts.Service == nil || opts.Store == nil || opts.Logger == nil {
		return nil, fmt.Errorf("web: config, service, store and logger are required")
	}
	pages, err := loadPages()
	if err != nil {
		return nil, err
	}
	if opts.Obs == nil {
		opts.Obs = observability.NewNoop()
	}

	log := opts.Logger.WithFields(map[string]interface{}{"component": "web"})
	h := &Handler{
		cfg:       opts.Config,
		svc:       opts.Service,
		store:     opts.Store,
		pages:     pages,
		obs:       opts.Obs,
		responder: errors.NewResponder(log),
		logger:    log,
		now:       time.Now,
	}
	if rl := opts.Config.RateLimit; rl.Enabled {
		h.limiter = newIPLimiter(rl.RequestsPerMinute, rl.Burst)
	}
	return h, nil
}

// RegisterRoutes mounts every route on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.Handle("POST /{$}", h.rateLimited(http.HandlerFunc(h.handleSubmit)))
	mux.HandleFunc("GET /builder", h.handleBuilder)
	mux.Handle("POST /builder", h.rateLimited(http.HandlerFunc(h.handleBuilderSubmit)))
	mux.HandleFunc("GET /success", h.handleSuccess)
	mux.HandleFunc("POST /admin/grants", h.handleAdminGrant)
	mux.HandleFunc("GET /pay/qr.png", h.handlePaymentQR)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /ready", h.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
}

// Routes returns the instrumented handler for the whole surface.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return h.instrument(mux)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   h.now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.store.(access.Pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("readiness check failed", map[string]interface{}{
				"backend": h.cfg.Access.Backend,
				"error":   err.Error(),
			})
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"time":   h.now().UTC().Format(time.RFC3339),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   h.now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
