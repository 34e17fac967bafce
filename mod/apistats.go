package mod

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/km-arc/katapult/framework/endpoint"
	"github.com/km-arc/katapult/framework/module"
	"github.com/km-arc/katapult/framework/routing"
	"github.com/km-arc/katapult/framework/server"
)

// ReportInterval is how often EndpointReporter folds pending records into
// a new report.
const ReportInterval = 30 * time.Second

// ── Records ──────────────────────────────────────────────────────────────────

// EndpointRecord accumulates traffic for one endpoint. Size is in bytes and
// Time in milliseconds.
type EndpointRecord struct {
	Path string `json:"path"`
	Hits int64  `json:"hits"`
	Size int64  `json:"size"`
	Time int64  `json:"time"`
}

// Plus adds o to r, keeping o's path.
func (r EndpointRecord) Plus(o EndpointRecord) EndpointRecord {
	return EndpointRecord{Path: o.Path, Hits: r.Hits + o.Hits, Size: r.Size + o.Size, Time: r.Time + o.Time}
}

// Average returns the per-hit size and time.
func (r EndpointRecord) Average() EndpointRecord {
	if r.Hits == 0 {
		return EndpointRecord{Path: r.Path}
	}
	return EndpointRecord{Path: r.Path, Hits: r.Hits, Size: r.Size / r.Hits, Time: r.Time / r.Hits}
}

// EndpointReport is a snapshot of all endpoint totals, sorted by path.
type EndpointReport []EndpointRecord

func (rep EndpointReport) TotalSize() int64 {
	var n int64
	for _, r := range rep {
		n += r.Size
	}
	return n
}

func (rep EndpointReport) TotalTime() int64 {
	var n int64
	for _, r := range rep {
		n += r.Time
	}
	return n
}

// EndpointCalculator sums records per path. It is not safe for concurrent
// use; EndpointReporter serializes access.
type EndpointCalculator struct {
	records map[string]EndpointRecord
}

func NewEndpointCalculator() *EndpointCalculator {
	return &EndpointCalculator{records: make(map[string]EndpointRecord)}
}

func (c *EndpointCalculator) Add(rec EndpointRecord) {
	total, ok := c.records[rec.Path]
	if !ok {
		total = EndpointRecord{Path: rec.Path}
	}
	c.records[rec.Path] = total.Plus(rec)
}

// Totals returns the running totals.
func (c *EndpointCalculator) Totals() EndpointReport {
	out := make(EndpointReport, 0, len(c.records))
	for _, r := range c.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// ── Reporter ─────────────────────────────────────────────────────────────────

// EndpointReporter queues records as requests finish and publishes a new
// report on every tick.
type EndpointReporter struct {
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	pending []EndpointRecord
	calc    *EndpointCalculator
	latest  atomic.Pointer[EndpointReport]

	stop chan struct{}
	done chan struct{}
}

// NewEndpointReporter returns a stopped reporter. A zero interval uses
// ReportInterval.
func NewEndpointReporter(interval time.Duration, logger *zap.Logger) *EndpointReporter {
	if interval <= 0 {
		interval = ReportInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EndpointReporter{interval: interval, logger: logger, calc: NewEndpointCalculator()}
}

// Add queues a record for the next report.
func (e *EndpointReporter) Add(rec EndpointRecord) {
	e.mu.Lock()
	e.pending = append(e.pending, rec)
	e.mu.Unlock()
}

// Stats returns the latest report, or nil before the first one.
func (e *EndpointReporter) Stats() EndpointReport {
	if rep := e.latest.Load(); rep != nil {
		return *rep
	}
	return nil
}

// Report folds the pending records into a new report. It does nothing when
// nothing new arrived.
func (e *EndpointReporter) Report() {
	e.mu.Lock()
	if len(e.pending) == 0 {
		e.mu.Unlock()
		return
	}
	for _, rec := range e.pending {
		e.calc.Add(rec)
	}
	e.pending = e.pending[:0]
	rep := e.calc.Totals()
	e.mu.Unlock()

	e.latest.Store(&rep)
	e.logger.Info("endpoint report", zap.Int64("total_bytes", rep.TotalSize()), zap.Int("endpoints", len(rep)))
}

// Start begins reporting on a ticker. Calling it on a running reporter
// does nothing.
func (e *EndpointReporter) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stop != nil {
		return
	}
	e.stop, e.done = make(chan struct{}), make(chan struct{})
	go e.run(e.stop, e.done)
}

func (e *EndpointReporter) run(stop, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(e.interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			e.Report()
		case <-stop:
			return
		}
	}
}

// Stop ends the ticker and waits for it to exit.
func (e *EndpointReporter) Stop() {
	e.mu.Lock()
	stop, done := e.stop, e.done
	e.stop, e.done = nil, nil
	e.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// ── Module ───────────────────────────────────────────────────────────────────

// ApiStats collects per-endpoint traffic from the RequestLog. It serves the
// periodic report at /api/admin/stats and live prometheus metrics at
// /api/admin/metrics.
type ApiStats struct {
	module.BaseModule
	reporter *EndpointReporter
	proc     *endpoint.Processor

	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	bytes    *prometheus.CounterVec
}

func NewApiStats(log *RequestLog, proc *endpoint.Processor, logger *zap.Logger) *ApiStats {
	if logger == nil {
		logger = zap.NewNop()
	}
	if proc == nil {
		proc = endpoint.NewProcessor(logger)
	}
	s := &ApiStats{
		reporter: NewEndpointReporter(ReportInterval, logger.Named("stats")),
		proc:     proc,
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "katapult",
			Name:      "http_requests_total",
			Help:      "Requests served, by endpoint and status.",
		}, []string{"endpoint", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "katapult",
			Name:      "http_request_duration_seconds",
			Help:      "Request latency by endpoint.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "katapult",
			Name:      "http_response_bytes_total",
			Help:      "Response body bytes written, by endpoint.",
		}, []string{"endpoint"}),
	}
	s.registry.MustRegister(
		s.requests, s.duration, s.bytes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if log != nil {
		log.Add(s)
	}
	return s
}

// Reporter returns the endpoint reporter.
func (s *ApiStats) Reporter() *EndpointReporter { return s.reporter }

// Registry returns the prometheus registry behind /api/admin/metrics.
func (s *ApiStats) Registry() *prometheus.Registry { return s.registry }

// LogRequest implements RequestLogger.
func (s *ApiStats) LogRequest(info RequestInfo) {
	name := info.Endpoint()
	s.reporter.Add(EndpointRecord{
		Path: name,
		Hits: 1,
		Size: int64(info.Bytes),
		Time: info.Duration.Milliseconds(),
	})
	s.requests.WithLabelValues(name, strconv.Itoa(info.Status)).Inc()
	s.duration.WithLabelValues(name).Observe(info.Duration.Seconds())
	s.bytes.WithLabelValues(name).Add(float64(info.Bytes))
}

func (s *ApiStats) ConfigureServer(srv *server.Server) {
	srv.OnStart(func(context.Context) error {
		s.reporter.Start()
		return nil
	})
	srv.OnStop(func(context.Context) error {
		s.reporter.Stop()
		return nil
	})
}

func (s *ApiStats) ConfigureRouting(r *routing.Router) {
	r.Get("/api/admin/stats", s.proc.Serve(endpoint.Func(func(*endpoint.Context) (any, error) {
		stats := s.reporter.Stats()
		if stats == nil {
			stats = EndpointReport{}
		}
		return stats, nil
	})))
	r.Handle("/api/admin/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
}
