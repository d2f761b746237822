// Package metrics provides Prometheus metrics for catalog builds.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jgivc/stlcatalog/internal/classifier"
	"github.com/jgivc/stlcatalog/internal/common"
	"github.com/jgivc/stlcatalog/internal/entity"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultOK          = "ok"
	ResultAbsent      = "absent"
	ResultUnavailable = "unavailable"
	ResultFatal       = "fatal"
	ResultCanceled    = "canceled"
)

var (
	listingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stlcatalog_listings_total",
			Help: "Directory listings requested from the tree source",
		},
		[]string{"source", "result"},
	)

	listingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stlcatalog_listing_duration_seconds",
			Help:    "Directory listing latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	buildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stlcatalog_builds_total",
			Help: "Catalog builds by outcome",
		},
		[]string{"result"},
	)

	buildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stlcatalog_build_duration_seconds",
			Help:    "Time to build the catalog",
			Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300},
		},
	)

	catalogSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stlcatalog_catalog_size",
			Help: "Entries in the last built catalog",
		},
		[]string{"level"},
	)

	branchErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stlcatalog_branch_errors_total",
			Help: "Branches pruned because they could not be listed",
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stlcatalog_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}

// WriteTextfile dumps every registered metric in the node exporter textfile format.
func WriteTextfile(filename string) error {
	return prometheus.WriteToTextfile(filename, prometheus.DefaultGatherer)
}

// Result names the outcome of a listing for the result label.
func Result(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ResultCanceled
	case errors.Is(err, common.ErrSourceFatal):
		return ResultFatal
	case errors.Is(err, common.ErrDirectoryAbsent):
		return ResultAbsent
	}

	return ResultUnavailable
}

func RecordListing(source string, duration time.Duration, err error) {
	listingsTotal.WithLabelValues(source, Result(err)).Inc()
	listingDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordBuild records a finished build. A nil result marks a failed one.
func RecordBuild(result *entity.ScanResult, duration time.Duration) {
	buildDuration.Observe(duration.Seconds())

	if result == nil {
		buildsTotal.WithLabelValues("error").Inc()

		return
	}

	buildsTotal.WithLabelValues("success").Inc()
	branchErrorsTotal.Add(float64(len(result.BranchErrors)))

	stats := result.Catalog.Stats()
	catalogSize.WithLabelValues("categories").Set(float64(stats.Categories))
	catalogSize.WithLabelValues("subtypes").Set(float64(stats.Subtypes))
	catalogSize.WithLabelValues("groups").Set(float64(stats.Groups))
	catalogSize.WithLabelValues("files").Set(float64(stats.Files))
}

type instrumented struct {
	next   classifier.TreeSource
	source string
}

// InstrumentSource counts and times every listing made through next.
func InstrumentSource(next classifier.TreeSource, source string) classifier.TreeSource {
	return &instrumented{next: next, source: source}
}

func (s *instrumented) ListChildren(ctx context.Context, dirPath string) ([]entity.DirEntry, error) {
	start := time.Now()
	entries, err := s.next.ListChildren(ctx, dirPath)
	RecordListing(s.source, time.Since(start), err)

	return entries, err
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		httpRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(rw.statusCode)).Inc()
	})
}
