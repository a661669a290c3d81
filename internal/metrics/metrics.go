// Package metrics defines the Prometheus collectors wbwatch exports.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Searches counts catalogue searches by outcome
	// (ok, empty, blocked, rate_limited, token_expired, timeout, error).
	Searches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wbwatch_searches_total",
			Help: "Total number of Wildberries searches, labeled by outcome.",
		},
		[]string{"outcome"},
	)
	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wbwatch_search_duration_seconds",
			Help:    "Duration of Wildberries search requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
	ProductsFound = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wbwatch_products_found_total",
			Help: "Total number of products returned after keyword and exclusion filtering.",
		},
	)
	NotificationsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wbwatch_notifications_sent_total",
			Help: "Total number of offers announced in the channel.",
		},
	)
	CookieRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wbwatch_cookie_refreshes_total",
			Help: "Total number of cookie refreshes, labeled by method and result.",
		},
		[]string{"method", "result"},
	)
	PassDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wbwatch_monitor_pass_duration_seconds",
			Help:    "Duration of a full monitoring pass over all products.",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 1800},
		},
	)
	CleanedNotifications = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wbwatch_notifications_cleaned_total",
			Help: "Total number of notification records deleted by the cleanup job.",
		},
	)
)

func init() {
	prometheus.MustRegister(Searches)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(ProductsFound)
	prometheus.MustRegister(NotificationsSent)
	prometheus.MustRegister(CookieRefreshes)
	prometheus.MustRegister(PassDuration)
	prometheus.MustRegister(CleanedNotifications)
}

// Handler returns the /metrics handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("exposing Prometheus metrics", "address", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
