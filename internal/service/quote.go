package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shiva/shipquote/internal/model"
	"github.com/shiva/shipquote/internal/pricing"
	"github.com/shiva/shipquote/internal/repository"
)

// DefaultQuoteBatchLimit caps calc-batch when no limit is configured.
const DefaultQuoteBatchLimit = 200

var (
	// Quotes partitioned by outcome: OK, MANUAL_REQUIRED, a failure reason, or ERROR.
	quotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shipquote_quotes_total",
			Help: "Quotes computed, partitioned by outcome",
		},
		[]string{"outcome"},
	)

	// Time spent loading the snapshot and assembling one quote.
	quoteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shipquote_quote_duration_seconds",
			Help:    "Latency of a single quote including snapshot load",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// ─── QuoteService ───────────────────────────────────────────

// QuoteService computes quotes. It reads one consistent snapshot per scheme
// and hands it to the pure pricing engine, so configuration writes committed
// mid-quote never produce a mixed result.
type QuoteService struct {
	store      repository.Store
	batchLimit int
	log        *zap.Logger
}

// NewQuoteService creates a quote service. A non-positive batchLimit means
// DefaultQuoteBatchLimit.
func NewQuoteService(store repository.Store, batchLimit int, log *zap.Logger) *QuoteService {
	if batchLimit <= 0 {
		batchLimit = DefaultQuoteBatchLimit
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &QuoteService{store: store, batchLimit: batchLimit, log: log.Named("quote")}
}

// BatchLimit is the most requests QuoteBatch accepts.
func (s *QuoteService) BatchLimit() int { return s.batchLimit }

// Quote prices one request. Matcher failures come back as the pricing
// package's sentinel errors, never as a zero-amount quote.
func (s *QuoteService) Quote(ctx context.Context, req model.QuoteRequest) (*model.Quote, error) {
	start := time.Now()
	defer func() { quoteDuration.Observe(time.Since(start).Seconds()) }()

	if err := validateQuoteRequest(req); err != nil {
		return nil, err
	}
	snap, err := repository.LoadSnapshot(ctx, s.store, req.SchemeID)
	if err != nil {
		quotesTotal.WithLabelValues(outcome(nil, err)).Inc()
		return nil, err
	}
	return s.assemble(snap, req)
}

func (s *QuoteService) assemble(snap *model.SchemeSnapshot, req model.QuoteRequest) (*model.Quote, error) {
	q, err := pricing.Assemble(snap, req)
	quotesTotal.WithLabelValues(outcome(q, err)).Inc()

	if err != nil {
		s.log.Debug("quote failed",
			zap.Int64("scheme_id", req.SchemeID),
			zap.String("province", req.Dest.Province),
			zap.String("city", req.Dest.City),
			zap.String("reason", pricing.Reason(err)),
			zap.Error(err))
		return nil, err
	}
	s.log.Debug("quote computed",
		zap.Int64("scheme_id", req.SchemeID),
		zap.Int64("zone_id", q.Zone.ID),
		zap.Int64("bracket_id", q.Bracket.ID),
		zap.String("status", string(q.QuoteStatus)))
	return q, nil
}

// BatchResult is the outcome of one request in a batch: exactly one of Quote
// and Err is set.
type BatchResult struct {
	Quote *model.Quote
	Err   error
}

// QuoteBatch prices many requests concurrently. Each scheme's snapshot is
// loaded once and shared. Results keep request order.
//
// Per-request failures (no zone, invalid weight, unknown scheme) are reported
// in their slot; only storage failures abort the whole batch.
func (s *QuoteService) QuoteBatch(ctx context.Context, reqs []model.QuoteRequest) ([]BatchResult, error) {
	if len(reqs) > s.batchLimit {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(reqs), s.batchLimit)
	}

	// ── Step 1: one snapshot per scheme ─────────────────
	type loaded struct {
		snap *model.SchemeSnapshot
		err  error
	}
	var (
		mu    sync.Mutex
		snaps = map[int64]loaded{}
	)
	for _, r := range reqs {
		snaps[r.SchemeID] = loaded{}
	}

	g, gctx := errgroup.WithContext(ctx)
	for schemeID := range snaps {
		schemeID := schemeID
		g.Go(func() error {
			snap, err := repository.LoadSnapshot(gctx, s.store, schemeID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			mu.Lock()
			snaps[schemeID] = loaded{snap: snap, err: err}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// ── Step 2: assemble in parallel ────────────────────
	results := make([]BatchResult, len(reqs))
	g = new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			if err := validateQuoteRequest(req); err != nil {
				results[i] = BatchResult{Err: err}
				return nil
			}
			l := snaps[req.SchemeID]
			if l.err != nil {
				quotesTotal.WithLabelValues(outcome(nil, l.err)).Inc()
				results[i] = BatchResult{Err: l.err}
				return nil
			}
			q, err := s.assemble(l.snap, req)
			results[i] = BatchResult{Quote: q, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info("batch quoted", zap.Int("requests", len(reqs)), zap.Int("schemes", len(snaps)))
	return results, nil
}

func validateQuoteRequest(req model.QuoteRequest) error {
	if req.SchemeID <= 0 {
		return invalid("scheme_id is required")
	}
	for _, dim := range []struct {
		name string
		ok   bool
	}{
		{"length_cm", req.LengthCm == nil || !req.LengthCm.IsNegative()},
		{"width_cm", req.WidthCm == nil || !req.WidthCm.IsNegative()},
		{"height_cm", req.HeightCm == nil || !req.HeightCm.IsNegative()},
	} {
		if !dim.ok {
			return invalid("%s must not be negative", dim.name)
		}
	}
	return nil
}

// outcome labels a quote for the quotes_total counter.
func outcome(q *model.Quote, err error) string {
	if err == nil {
		return string(q.QuoteStatus)
	}
	if reason := pricing.Reason(err); reason != "" {
		return reason
	}
	if errors.Is(err, pricing.ErrInvalidWeight) || errors.Is(err, ErrValidation) {
		return "INVALID_REQUEST"
	}
	if errors.Is(err, repository.ErrNotFound) {
		return "SCHEME_NOT_FOUND"
	}
	return "ERROR"
}
