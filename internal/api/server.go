// Package api wires the HTTP server: the web UI, the v1 JSON API, metrics,
// docs, profiling and the shared middlewares.
package api

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"sitecheck/internal/api/handler/v1handler"
	"sitecheck/internal/api/handler/webhandler"
	"sitecheck/internal/config"
	"sitecheck/pkg/controller"
	"sitecheck/pkg/logger"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggest/swgui/v5emb"
	"go.uber.org/zap"
)

// v1Spec contains the embedded OpenAPI specification for version 1 of the API.
//
//go:embed specs/v1.yaml
var v1Spec []byte

// Options holds configuration for the HTTP server and its dependencies.
// Zero durations fall back to the net/http defaults.
type Options struct {
	// SecHandlerOptions configures bearer token verification for v1 endpoints.
	SecHandlerOptions *v1handler.SecHandlerOptions
	// Web bounds the bulk form of the web UI.
	Web webhandler.Options

	// Addr is the TCP address the server listens on, e.g. ":8080".
	Addr string
	// ReadTimeout is the maximum duration for reading the entire request, including the body.
	ReadTimeout time.Duration
	// ReadHeaderTimeout is the amount of time allowed to read request headers.
	ReadHeaderTimeout time.Duration
	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration
	// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled.
	IdleTimeout time.Duration
	// RequestTimeout bounds each handler via http.TimeoutHandler.
	RequestTimeout time.Duration
	// MaxHeaderBytes limits the size of request headers.
	MaxHeaderBytes int
	// MetricsPath is the HTTP path at which Prometheus metrics are served.
	MetricsPath string
}

// bulkDeadline keeps the bulk deadline under the request timeout so the page
// is rendered before http.TimeoutHandler gives up on it.
func bulkDeadline(bulk, request time.Duration) time.Duration {
	if request <= 0 {
		return bulk
	}
	if limit := request - request/10; bulk <= 0 || bulk > limit {
		return limit
	}

	return bulk
}

// NewOptions maps the HTTP related settings of cfg to Options.
func NewOptions(cfg *config.Config) Options {
	return Options{
		SecHandlerOptions: v1handler.NewSecHandlerOptions(cfg),
		Web: webhandler.Options{
			MaxItems:    cfg.Bulk.MaxItems,
			Concurrency: cfg.Bulk.Concurrency,
			Deadline:    bulkDeadline(cfg.Bulk.Timeout, cfg.HTTP.RequestTimeout),
		},

		Addr:              cfg.HTTP.Addr,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		RequestTimeout:    cfg.HTTP.RequestTimeout,
		MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
		MetricsPath:       cfg.HTTP.MetricsPath,
	}
}

type Deps struct {
	V1  v1handler.Deps
	Web webhandler.Deps

	// Ping reports whether backing services are reachable. Nil means always healthy.
	Ping func(ctx context.Context) error
}

// NewHandler builds the root handler:
//   - GET / and POST /bulk: web UI
//   - /v1: JSON API guarded by bearer tokens, mounted only when a public key is configured
//   - /specs/v1.yaml and /v1/docs/: OpenAPI document and Swagger UI
//   - MetricsPath: Prometheus metrics, including OpenTelemetry instruments
//   - /debug/pprof/: profiling
//   - /healthz
//
// Every route passes through the CORS and access log middlewares and is
// bounded by RequestTimeout.
func NewHandler(deps Deps, opts Options) (http.Handler, error) {
	var secHandler *v1handler.SecHandler
	if opts.SecHandlerOptions != nil && strings.TrimSpace(opts.SecHandlerOptions.PublicKey) != "" {
		var err error
		if secHandler, err = v1handler.NewSecHandler(opts.SecHandlerOptions); err != nil {
			return nil, fmt.Errorf("could not create sec handler: %w", err)
		}
	}

	r := chi.NewRouter()

	metricsPath := opts.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	r.Handle(metricsPath, promhttp.Handler())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if deps.Ping != nil {
			if err := deps.Ping(r.Context()); err != nil {
				logger.Error(r.Context(), "health check failed", zap.Error(err))
				render.Status(r, http.StatusServiceUnavailable)
				render.JSON(w, r, map[string]string{"status": "unavailable"})

				return
			}
		}
		render.JSON(w, r, map[string]string{"status": "ok"})
	})

	r.Get("/specs/v1.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(v1Spec)
	})
	if secHandler != nil {
		r.Mount("/v1", v1handler.New(deps.V1).Routes(secHandler))
	} else {
		logger.Warn(context.Background(), "no JWT public key configured, the v1 API is disabled")
	}
	// registered after the mount; the static docs segment wins over the mount wildcard
	r.Handle("/v1/docs/*", v5emb.New(
		"Site Check Service",
		"/specs/v1.yaml",
		"/v1/docs/",
	))

	r.Handle(controller.PprofPrefix+"*", controller.PprofMux())

	webhandler.New(deps.Web, opts.Web).Routes(r)

	handler := controller.WithCORS(r)
	handler = controller.WithLogger(handler)

	if opts.RequestTimeout > 0 {
		handler = http.TimeoutHandler(handler, opts.RequestTimeout, `{"code":"TIMEOUT","message":"request timed out"}`)
	}

	return handler, nil
}

// NewServer returns an *http.Server serving NewHandler.
func NewServer(deps Deps, opts Options) (*http.Server, error) {
	handler, err := NewHandler(deps, opts)
	if err != nil {
		return nil, err
	}

	return &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
		MaxHeaderBytes:    opts.MaxHeaderBytes,
	}, nil
}
