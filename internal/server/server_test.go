package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/arwahdevops/fplsync/internal/metrics"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func serve(t *testing.T, mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestEndpoints(t *testing.T) {
	ms := metrics.NewMetricsStore()
	ms.RowsWrittenTotal.WithLabelValues("teams").Add(20)

	ready := NewMux(Options{}, ms, pingFunc(func(context.Context) error { return nil }), zaptest.NewLogger(t))

	assert.Equal(t, http.StatusOK, serve(t, ready, "/healthz").Code)
	assert.Equal(t, http.StatusOK, serve(t, ready, "/readyz").Code)

	rec := serve(t, ready, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `fplsync_rows_written_total{table="teams"} 20`)

	assert.Equal(t, http.StatusNotFound, serve(t, ready, "/debug/pprof/").Code)
}

func TestReadyzFailsWhenStoreUnreachable(t *testing.T) {
	ms := metrics.NewMetricsStore()

	down := NewMux(Options{}, ms, pingFunc(func(context.Context) error { return errors.New("connection refused") }), zaptest.NewLogger(t))
	rec := serve(t, down, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")

	missing := NewMux(Options{EnablePprof: true}, ms, nil, zaptest.NewLogger(t))
	assert.Equal(t, http.StatusServiceUnavailable, serve(t, missing, "/readyz").Code)
	assert.Equal(t, http.StatusOK, serve(t, missing, "/debug/pprof/").Code)
}
