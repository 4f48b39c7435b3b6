package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/facility-survey-forecast/internal/domain"
	"github.com/couchcryptid/facility-survey-forecast/internal/observability"
)

// BatchExtractor reads up to batchSize targets from the source. It returns
// io.EOF, possibly alongside a final partial batch, once the source is drained.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]Target, error)
}

// Transformer turns one target into a publishable forecast record.
type Transformer interface {
	Transform(ctx context.Context, target Target) (domain.ForecastRecord, error)
}

// BatchLoader writes multiple forecast records to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, records []domain.ForecastRecord) error
}

// Stats summarizes a pipeline run.
type Stats struct {
	Extracted int64
	Published int64
	Failed    int64
}

// Pipeline orchestrates the extract-transform-load loop.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int

	extracted atomic.Int64
	published atomic.Int64
	failed    atomic.Int64
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil once the pipeline has published at least one
// batch.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not published any records yet")
	}
	return nil
}

// Stats returns the running totals.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Extracted: p.extracted.Load(),
		Published: p.published.Load(),
		Failed:    p.failed.Load(),
	}
}

// Run drains the extractor. It returns nil once the source reports io.EOF
// and ctx.Err() if cancelled first. Failed loads are retried with backoff;
// failed transforms are skipped.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		if err := ctx.Err(); err != nil {
			p.logger.Info("pipeline stopping", "reason", err)
			return err
		}

		done, err := p.processBatch(ctx, &backoff, maxBackoff)
		if err != nil {
			return err
		}
		if done {
			s := p.Stats()
			p.logger.Info("pipeline finished",
				"extracted", s.Extracted,
				"published", s.Published,
				"failed", s.Failed,
			)
			return nil
		}
	}
}

// processBatch runs one extract-transform-load cycle. It reports done once
// the source is drained.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) (bool, error) {
	start := time.Now()

	batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	drained := errors.Is(err, io.EOF)
	if err != nil && !drained {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		p.logger.Error("extract batch failed", "error", err)
		return false, p.backoff(ctx, backoff, maxBackoff)
	}
	if len(batch) == 0 {
		return drained, nil
	}

	p.extracted.Add(int64(len(batch)))
	p.metrics.RecordsExtracted.Add(float64(len(batch)))
	p.metrics.BatchSize.Observe(float64(len(batch)))
	*backoff = 200 * time.Millisecond

	records := p.transform(ctx, batch)
	if err := p.load(ctx, records, backoff, maxBackoff); err != nil {
		return false, err
	}
	if len(records) > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}
	return drained, nil
}

func (p *Pipeline) transform(ctx context.Context, batch []Target) []domain.ForecastRecord {
	records := make([]domain.ForecastRecord, 0, len(batch))
	for _, target := range batch {
		rec, err := p.transformer.Transform(ctx, target)
		if err != nil {
			p.logger.Warn("transform failed, skipping facility",
				"error", err,
				"ccn", target.CCN,
				"name", target.Name,
				"state", target.State,
			)
			p.metrics.TransformErrors.Inc()
			p.failed.Add(1)
			continue
		}
		records = append(records, rec)
	}
	return records
}

// load writes records, retrying with backoff until it succeeds or ctx ends.
func (p *Pipeline) load(ctx context.Context, records []domain.ForecastRecord, backoff *time.Duration, maxBackoff time.Duration) error {
	if len(records) == 0 {
		return nil
	}
	for {
		err := p.loader.LoadBatch(ctx, records)
		if err == nil {
			break
		}
		p.logger.Error("load batch failed", "error", err, "batch_size", len(records))
		if err := p.backoff(ctx, backoff, maxBackoff); err != nil {
			return err
		}
	}
	p.published.Add(int64(len(records)))
	p.metrics.RecordsPublished.Add(float64(len(records)))
	return nil
}

// backoff sleeps for the current delay and advances it. It returns ctx.Err()
// if cancelled.
func (p *Pipeline) backoff(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if !sleepWithContext(ctx, *backoff) {
		return ctx.Err()
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return nil
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
