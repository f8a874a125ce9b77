package retriever

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jaennil/slippymap/internal/repository/store"
	"github.com/jaennil/slippymap/internal/tile"
	"github.com/jaennil/slippymap/pkg/logger"
	"github.com/jaennil/slippymap/pkg/metrics"
	"github.com/jaennil/slippymap/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrUnexpectedStatus = errors.New("unexpected upstream status")

// progressStep limits how often intermediate progress is sent to the owner.
const progressStep = 0.1

// Dispatcher runs fn on the goroutine that owns the map state.
type Dispatcher interface {
	Dispatch(fn func()) error
}

// DispatchFunc adapts a function to Dispatcher.
type DispatchFunc func(fn func()) error

func (f DispatchFunc) Dispatch(fn func()) error {
	return f(fn)
}

type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Workers   int
}

// HTTPRetriever fetches raw tiles from a `{host}/{z}/{x}/{y}.png` tile server.
// It never touches tile state from its workers: every progress change is
// dispatched to the owner goroutine.
type HTTPRetriever struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	pool       *Pool
	store      store.TileStore
	dispatcher Dispatcher
	tracer     trace.Tracer
	logger     logger.Logger
}

func NewHTTPRetriever(opts Options, s store.TileStore, d Dispatcher, l logger.Logger) *HTTPRetriever {
	return &HTTPRetriever{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		pool:       NewPool(opts.Workers, opts.Timeout, l),
		store:      s,
		dispatcher: d,
		tracer:     telemetry.Tracer(),
		logger:     l,
	}
}

// Fetch starts loading k in the background and returns its progress handle
// right away. A failed fetch leaves the handle below 1 for good; retrying is
// not the retriever's job.
func (r *HTTPRetriever) Fetch(k tile.Key) *tile.Progress {
	p := tile.NewProgress()

	accepted := r.pool.Submit(func(ctx context.Context) error {
		return r.load(ctx, k, p)
	})
	if !accepted {
		r.logger.Warn("fetch rejected, retriever closed", "tile", k.String())
	}

	return p
}

func (r *HTTPRetriever) URL(k tile.Key) string {
	return fmt.Sprintf("%s/%d/%d/%d.png", r.baseURL, k.Zoom, k.Column, k.Row)
}

func (r *HTTPRetriever) Close() {
	r.pool.Shutdown()
}

func (r *HTTPRetriever) load(ctx context.Context, k tile.Key, p *tile.Progress) error {
	ctx, span := r.tracer.Start(ctx, "tile.fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.Int("tile.zoom", k.Zoom),
			attribute.Int("tile.column", k.Column),
			attribute.Int("tile.row", k.Row),
		),
	)
	defer span.End()

	data, ok, err := r.store.Get(ctx, k)
	if err != nil {
		r.logger.Warn("tile store lookup failed, fetching from upstream", "tile", k.String(), "error", err)
	}
	if ok {
		metrics.StoreHits.Inc()
		span.SetAttributes(attribute.String("tile.source", "store"))
		r.dispatch(k, func() { p.Complete(data) })
		return nil
	}
	metrics.StoreMisses.Inc()

	data, err = r.download(ctx, k, func(v float64) {
		r.dispatch(k, func() { p.Set(v) })
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Warn("tile fetch failed", "tile", k.String(), "error", err)
		return err
	}
	span.SetAttributes(attribute.String("tile.source", "upstream"))

	if err := r.store.Set(ctx, k, data); err != nil {
		r.logger.Warn("failed to store tile", "tile", k.String(), "error", err)
	}

	r.dispatch(k, func() { p.Complete(data) })
	return nil
}

func (r *HTTPRetriever) download(ctx context.Context, k tile.Key, report func(float64)) ([]byte, error) {
	url := r.URL(k)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("request").Inc()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	metrics.UpstreamRequests.Inc()
	start := time.Now()
	defer func() {
		metrics.UpstreamLatency.Observe(time.Since(start).Seconds())
	}()

	resp, err := r.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("transport").Inc()
		return nil, fmt.Errorf("failed to fetch tile from upstream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamErrors.WithLabelValues("status").Inc()
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body := io.Reader(resp.Body)
	if resp.ContentLength > 0 {
		body = &progressReader{r: resp.Body, total: resp.ContentLength, report: report}
	}

	data, err := io.ReadAll(body)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("body").Inc()
		return nil, fmt.Errorf("failed to read tile data: %w", err)
	}

	r.logger.Debug("fetched tile from upstream", "tile", k.String(), "size", len(data), "duration", time.Since(start))

	return data, nil
}

func (r *HTTPRetriever) dispatch(k tile.Key, fn func()) {
	if err := r.dispatcher.Dispatch(fn); err != nil {
		r.logger.Debug("dropped tile progress update", "tile", k.String(), "error", err)
	}
}

// progressReader reports the fraction of the body read so far. Intermediate
// values stay below 1 so only Complete can finish a tile.
type progressReader struct {
	r        io.Reader
	total    int64
	read     int64
	reported float64
	report   func(float64)
}

func (pr *progressReader) Read(b []byte) (int, error) {
	n, err := pr.r.Read(b)
	pr.read += int64(n)

	frac := min(float64(pr.read)/float64(pr.total), 0.99)
	if frac-pr.reported >= progressStep {
		pr.reported = frac
		pr.report(frac)
	}

	return n, err
}
