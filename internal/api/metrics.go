package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/seantiz/hades/internal/engine"
	"github.com/seantiz/hades/internal/workflow"
)

// Submission modes and outcomes used as metric labels.
const (
	modeSync  = "sync"
	modeAsync = "async"

	outcomeAccepted = "accepted"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

var (
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hades_api_requests_total",
			Help: "HTTP requests by route, method and status code.",
		},
		[]string{"route", "method", "code"},
	)

	// Synchronous solves hold the request for the whole run, so buckets
	// reach into minutes.
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hades_api_request_duration_seconds",
			Help:    "Duration of non-streaming HTTP requests.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"route"},
	)

	runSubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hades_api_run_submissions_total",
			Help: "Run submissions by mode (sync, async) and outcome (accepted, rejected, error).",
		},
		[]string{"mode", "outcome"},
	)

	problemVariables = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hades_api_problem_variables",
			Help:    "Number of variables in accepted problems.",
			Buckets: prometheus.ExponentialBuckets(4, 4, 8),
		},
	)

	progressStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hades_api_progress_streams",
			Help: "Open progress event streams.",
		},
	)
)

func init() {
	prometheus.MustRegister(apiRequestsTotal)
	prometheus.MustRegister(apiRequestDuration)
	prometheus.MustRegister(runSubmissionsTotal)
	prometheus.MustRegister(problemVariables)
	prometheus.MustRegister(progressStreams)
}

// countSubmission records the outcome of a solve request. Requests that
// never reach the engine count as rejected.
func countSubmission(mode string, req *engine.Request, err error) {
	outcome := outcomeAccepted
	switch {
	case req == nil, errors.Is(err, engine.ErrInvalidRequest), errors.Is(err, workflow.ErrInvalidSpec):
		outcome = outcomeRejected
	case err != nil:
		outcome = outcomeError
	}
	runSubmissionsTotal.WithLabelValues(mode, outcome).Inc()
	if outcome == outcomeAccepted && req.Problem != nil {
		problemVariables.Observe(float64(req.Problem.Len()))
	}
}

// metricsMiddleware counts every request by chi route pattern. Progress
// streams stay open for a whole run and are left out of the duration
// histogram.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		apiRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(code)).Inc()
		if ww.Header().Get("Content-Type") != "text/event-stream" {
			apiRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}
