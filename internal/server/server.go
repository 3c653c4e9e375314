package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arwahdevops/fplsync/internal/metrics"
)

// Pinger is the readiness dependency; *db.Connector satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Port        int
	EnablePprof bool
}

// NewMux builds the handler tree for /metrics, /healthz, /readyz and optional pprof.
func NewMux(opts Options, metricsStore *metrics.Store, store Pinger, log *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.HandlerFor(metricsStore.Registry, promhttp.HandlerOpts{}))

	// Liveness endpoint
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "OK")
	})

	// Readiness endpoint
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		var err error
		if store == nil {
			err = errors.New("store connection not established")
		} else {
			err = store.Ping(pingCtx)
		}

		if err == nil {
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, "Ready")
			return
		}
		log.Warn("Readiness check failed", zap.NamedError("store_ping_error", err))
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, "Not Ready: store_status=%s\n", formatPingError(err))
	})

	if opts.EnablePprof {
		log.Info("Enabling pprof endpoints on /debug/pprof/")
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}

// RunHTTPServer serves NewMux until ctx is cancelled, then shuts down gracefully.
func RunHTTPServer(ctx context.Context, opts Options, metricsStore *metrics.Store, store Pinger, logger *zap.Logger) {
	log := logger.Named("http-server")

	addr := fmt.Sprintf(":%d", opts.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      NewMux(opts, metricsStore, store, log),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server ListenAndServe error", zap.Error(err))
		}
		log.Info("HTTP server stopped listening")
	}()

	<-ctx.Done()
	log.Info("Shutting down HTTP server due to context cancellation...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server graceful shutdown failed", zap.Error(err))
	} else {
		log.Info("HTTP server gracefully stopped")
	}
}

func formatPingError(err error) string {
	if err == nil {
		return "OK"
	}
	return fmt.Sprintf("Error (%v)", err)
}
