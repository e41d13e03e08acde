/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// keysem-example runs the standard keyed-semaphore scenarios concurrently and logs how long each one took.
// With server.address configured it then serves a per-tenant limited endpoint and Prometheus metrics.
package main

import (
	"context"
	"fmt"
	golog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/acronis/go-keysem/httpserver"
	"github.com/acronis/go-keysem/internal/scenario"
	"github.com/acronis/go-keysem/keylimit"
	"github.com/acronis/go-keysem/keysem"
	"github.com/acronis/go-keysem/log"
	"github.com/acronis/go-keysem/restapi"
	"github.com/acronis/go-keysem/service"
)

const errDomain = "KeysemExample"

func main() {
	if err := runApp(); err != nil {
		golog.Fatal(err)
	}
}

func runApp() error {
	cfgPath := "config.yml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := loadAppConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, loggerClose := log.NewLogger(cfg.Log)
	defer loggerClose()

	metrics := keysem.NewPrometheusMetricsWithOpts(keysem.PrometheusMetricsOpts{Namespace: "example"})
	metrics.MustRegister()
	defer metrics.Unregister()

	limiter, err := keylimit.NewLimiterWithOpts(cfg.KeyLimit, keylimit.LimiterOpts{Logger: logger, MetricsCollector: metrics})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := scenario.NewRunner(limiter, cfg.Scenarios.Work, logger).RunAll(ctx, scenario.Defaults())
	if err != nil {
		return err
	}
	for _, res := range results {
		logger.Infof("scenario %q took %s, max concurrency per key: %v", res.Name, res.Elapsed.Round(time.Millisecond), res.MaxConcurrency)
	}

	// Keys of the scenarios that keep them are released here.
	for _, key := range limiter.Registry().Keys() {
		limiter.Forget(key)
	}

	if !cfg.Server.Enabled() {
		return nil
	}
	srv := httpserver.New(cfg.Server, logger, newRouter(limiter, cfg.Scenarios.Work, logger))
	return service.New(logger, service.NewCompositeUnit(srv)).StartContext(ctx)
}

func newRouter(limiter *keylimit.Limiter, work time.Duration, logger log.FieldLogger) http.Handler {
	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.Route("/tenants/{id}", func(r chi.Router) {
		r.Use(keylimit.MustMiddleware(limiter, errDomain, keylimit.MiddlewareOpts{
			GetKey: func(r *http.Request) (string, bool, error) {
				return "tenant:" + chi.URLParam(r, "id"), false, nil
			},
			Logger: logger,
		}))
		r.Post("/work", func(rw http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(work):
			case <-r.Context().Done():
				return
			}
			restapi.RespondJSON(rw, map[string]string{"tenant": chi.URLParam(r, "id")}, logger)
		})
	})
	return router
}
