package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/wonny/signalscreen/backend/internal/contracts"
)

const namespace = "signalscreen"

// Recorder records scan, gateway and cache metrics with Prometheus
// ⭐ SSOT: 모든 메트릭 정의는 여기서만
type Recorder struct {
	tickersTotal   *prometheus.CounterVec
	tickerDuration prometheus.Histogram
	scansTotal     *prometheus.CounterVec
	scanDuration   prometheus.Histogram
	lastScan       *prometheus.GaugeVec

	gatewayRequests *prometheus.CounterVec
	gatewayLatency  *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers all collectors on reg (prometheus.DefaultRegisterer in production)
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)

	return &Recorder{
		tickersTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tickers_total",
				Help:      "Tickers screened, by terminal status",
			},
			[]string{"status"},
		),
		tickerDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ticker_duration_seconds",
				Help:      "Time from dispatch to terminal state per ticker",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		scansTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scans_total",
				Help:      "Completed scans",
			},
			[]string{"universe", "cancelled"},
		),
		scanDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scan_duration_seconds",
				Help:      "Wall time of a full scan",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		lastScan: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_scan_tickers",
				Help:      "Ticker counts of the most recent scan, by bucket",
			},
			[]string{"bucket"},
		),
		gatewayRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gateway_requests_total",
				Help:      "Upstream data requests, by source, operation and outcome",
			},
			[]string{"source", "op", "outcome"},
		),
		gatewayLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "gateway_request_duration_seconds",
				Help:      "Upstream data request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"source", "op"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Market data cache lookups, by data type and result",
			},
			[]string{"type", "result"},
		),
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP API requests",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP API latency",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"route", "method"},
		),
	}
}

// ObserveTicker records one ticker reaching a terminal state
func (r *Recorder) ObserveTicker(status string, elapsed time.Duration) {
	r.tickersTotal.WithLabelValues(status).Inc()
	r.tickerDuration.Observe(elapsed.Seconds())
}

// ObserveScan records a finished scan
func (r *Recorder) ObserveScan(report *contracts.ScreenerReport) {
	r.scansTotal.WithLabelValues(report.Universe, strconv.FormatBool(report.Cancelled)).Inc()
	r.scanDuration.Observe(report.Duration().Seconds())

	for action, n := range report.CountByAction() {
		r.lastScan.WithLabelValues(string(action)).Set(float64(n))
	}
	r.lastScan.WithLabelValues("failed").Set(float64(len(report.Failures)))
	r.lastScan.WithLabelValues("unresolved").Set(float64(len(report.Unresolved)))
}

// ObserveGateway records one upstream request
func (r *Recorder) ObserveGateway(source, op, outcome string, elapsed time.Duration) {
	r.gatewayRequests.WithLabelValues(source, op, outcome).Inc()
	r.gatewayLatency.WithLabelValues(source, op).Observe(elapsed.Seconds())
}

// ObserveCache records a cache hit or miss
func (r *Recorder) ObserveCache(dataType string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(dataType, result).Inc()
}

// ObserveHTTP records one API request
func (r *Recorder) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
