package billionrows

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of a completed run.
type Result struct {
	RunID    string `json:"run_id"`
	Source   string `json:"source"`
	Report   Report `json:"report"`
	Lines    int64  `json:"lines"`
	Rejected int64  `json:"rejected"`
	Records  int64  `json:"records"` // records folded into the report
	Chunks   int    `json:"chunks"`

	Failures        []ChunkFailure `json:"-"`
	ExcludedRecords int64          `json:"excluded_records"`

	Workers       int           `json:"workers"`
	BatchSize     int           `json:"batch_size"`
	FailurePolicy FailurePolicy `json:"-"`
	StartedAt     time.Time     `json:"started_at"`
	CompletedAt   time.Time     `json:"completed_at"`
}

// Partial reports whether any chunk was excluded from the report.
func (r *Result) Partial() bool {
	return len(r.Failures) > 0
}

// Duration returns the wall time of the run.
func (r *Result) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// ChunkFailure describes a batch whose records were left out of the report.
type ChunkFailure struct {
	Index    int
	Records  int
	Attempts int
	Err      error
}

func (f ChunkFailure) Error() string {
	return f.Err.Error()
}

func (f ChunkFailure) Unwrap() error {
	return f.Err
}

type aggregateFunc func(ctx context.Context, b Batch) (StatsMap, error)

func aggregateBatch(_ context.Context, b Batch) (StatsMap, error) {
	return Aggregate(b.Records), nil
}

type chunkResult struct {
	index    int
	records  int
	bytes    int64
	attempts int
	took     time.Duration
	stats    StatsMap
	err      error
}

// Driver runs the chunked parallel aggregation. The accumulator lives only
// inside a single run and is owned by that run's fold loop.
type Driver struct {
	cfg       Config
	log       *log.Logger
	metrics   *driverMetrics
	aggregate aggregateFunc
}

// NewDriver validates cfg and prepares a driver.
func NewDriver(cfg Config) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	m, err := newDriverMetrics(cfg.Meter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPoolInitFailure, err)
	}

	return &Driver{
		cfg:       cfg,
		log:       cfg.Logger,
		metrics:   m,
		aggregate: aggregateBatch,
	}, nil
}

// Config returns the effective configuration, defaults applied.
func (d *Driver) Config() Config {
	return d.cfg
}

// Run aggregates the file at Config.SourcePath.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	if d.cfg.SourcePath == "" {
		return nil, fmt.Errorf("%w: source path is required", ErrSourceUnavailable)
	}
	return d.RunSource(ctx, FileSource(d.cfg.SourcePath))
}

// RunSource aggregates src. It returns either a complete result or a fatal
// error, never a partial report. Cancelling ctx aborts the run and returns
// the context's error.
func (d *Driver) RunSource(ctx context.Context, src Source) (*Result, error) {
	res := &Result{
		RunID:         uuid.New().String(),
		Source:        src.Name(),
		Workers:       d.cfg.WorkerCount,
		BatchSize:     d.cfg.BatchSize,
		FailurePolicy: d.cfg.FailurePolicy,
		StartedAt:     time.Now(),
	}

	d.log.Printf("[DRIVER] Starting run %s on %s (workers: %d, batch size: %d, policy: %s)",
		res.RunID, res.Source, d.cfg.WorkerCount, d.cfg.BatchSize, d.cfg.FailurePolicy)

	tracker, err := d.sizeProgress(ctx, src)
	if err != nil {
		return nil, err
	}

	stream, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %w", ErrSourceUnavailable, src.Name(), err)
	}
	defer stream.Close()

	progress := newProgressReporter(d.cfg.OnProgress)
	defer progress.close()

	acc, totals, err := d.fold(ctx, src.Name(), stream, res, tracker, progress)
	if err != nil {
		d.log.Printf("[DRIVER] Run %s aborted: %v", res.RunID, err)
		return nil, err
	}

	res.Report = NewReport(acc)
	res.Lines = totals.Lines
	res.Rejected = totals.Rejected
	res.Records = acc.Count()
	res.Chunks = tracker.chunksDone
	res.CompletedAt = time.Now()

	d.metrics.rejected.Add(ctx, totals.Rejected)
	// Rejected lines after the last batch are not part of any chunk.
	tracker.bytesDone = totals.Bytes
	progress.send(tracker.final())

	if res.Partial() {
		d.log.Printf("[DRIVER] Warning: run %s excluded %d chunk(s) (%d records) after worker failures",
			res.RunID, len(res.Failures), res.ExcludedRecords)
	}
	d.log.Printf("[DRIVER] Run %s completed: %d keys, %d records, %d rejected lines, %d chunks in %v",
		res.RunID, len(res.Report), res.Records, res.Rejected, res.Chunks, res.Duration())

	if d.cfg.Sink != nil {
		if err := d.cfg.Sink.StoreResult(ctx, res); err != nil {
			return res, fmt.Errorf("store result %s: %w", res.RunID, err)
		}
	}

	return res, nil
}

// sizeProgress estimates the total work for progress reporting.
func (d *Driver) sizeProgress(ctx context.Context, src Source) (*progressTracker, error) {
	t := &progressTracker{mode: d.cfg.ProgressMode}
	if d.cfg.OnProgress == nil {
		return t, nil
	}

	switch d.cfg.ProgressMode {
	case ProgressRecords:
		stream, err := src.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %q: %w", ErrSourceUnavailable, src.Name(), err)
		}
		defer stream.Close()

		totals, err := CountRecords(ctx, stream, d.cfg.Delimiter)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: count records in %q: %w", ErrSourceUnavailable, src.Name(), err)
		}
		t.chunksTotal = int((totals.Records + int64(d.cfg.BatchSize) - 1) / int64(d.cfg.BatchSize))
		t.bytesTotal = totals.Bytes

	case ProgressBytes:
		if s, ok := src.(Sizer); ok {
			size, err := s.Size()
			if err != nil {
				return nil, fmt.Errorf("%w: stat %q: %w", ErrSourceUnavailable, src.Name(), err)
			}
			t.bytesTotal = size
		}
	}

	return t, nil
}

// fold runs the reader and the worker pool, and folds partial StatsMaps into
// the accumulator as they complete.
func (d *Driver) fold(ctx context.Context, name string, stream io.Reader, res *Result,
	tracker *progressTracker, progress *progressReporter) (StatsMap, ReadTotals, error) {
	g, gctx := errgroup.WithContext(ctx)

	batches := make(chan Batch, d.cfg.WorkerCount)
	results := make(chan chunkResult, d.cfg.WorkerCount)

	rd := NewReader(stream, d.cfg.BatchSize, d.cfg.Delimiter)
	g.Go(func() error {
		err := rd.Feed(gctx, batches)
		if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		d.log.Printf("[READER] Failed reading %s after %d lines: %v", name, rd.Totals().Lines, err)
		return fmt.Errorf("%w: read %q: %w", ErrSourceUnavailable, name, err)
	})

	for i := range d.cfg.WorkerCount {
		id := i + 1
		g.Go(func() error {
			for b := range batches {
				// Once aborted, remaining batches are drained, not processed.
				if gctx.Err() != nil {
					continue
				}
				results <- d.process(gctx, id, b)
			}
			return nil
		})
	}

	var waitErr error
	go func() {
		waitErr = g.Wait()
		close(results)
	}()

	acc := make(StatsMap)
	for r := range results {
		if gctx.Err() != nil {
			continue
		}

		outcome := outcomeOK
		if r.attempts > 1 {
			outcome = outcomeRetried
		}
		if r.err != nil {
			outcome = outcomeExcluded
			res.Failures = append(res.Failures, ChunkFailure{
				Index:    r.index,
				Records:  r.records,
				Attempts: r.attempts,
				Err:      fmt.Errorf("%w: chunk %d: %w", ErrWorkerFailure, r.index, r.err),
			})
			res.ExcludedRecords += int64(r.records)
			d.log.Printf("[DRIVER] Excluding chunk %d (%d records) after %d attempt(s): %v",
				r.index, r.records, r.attempts, r.err)
		} else {
			acc = MergeInto(acc, r.stats)
		}
		d.metrics.chunk(ctx, outcome, r.records, r.took)

		progress.send(tracker.complete(Batch{Bytes: r.bytes}))
	}

	if waitErr != nil {
		return nil, ReadTotals{}, waitErr
	}
	if err := ctx.Err(); err != nil {
		return nil, ReadTotals{}, err
	}

	return acc, rd.Totals(), nil
}

// process aggregates one batch, applying the failure policy.
func (d *Driver) process(ctx context.Context, worker int, b Batch) chunkResult {
	start := time.Now()
	r := chunkResult{index: b.Index, records: len(b.Records), bytes: b.Bytes, attempts: 1}

	stats, err := d.safeAggregate(ctx, b)
	if err != nil && d.cfg.FailurePolicy == RetryOnce && ctx.Err() == nil {
		d.log.Printf("[WORKER:%d] Chunk %d failed, retrying on a fresh worker: %v", worker, b.Index, err)
		stats, err = d.retry(ctx, b)
		r.attempts++
	}

	r.stats, r.err, r.took = stats, err, time.Since(start)
	return r
}

// retry reruns b on a new goroutine.
func (d *Driver) retry(ctx context.Context, b Batch) (StatsMap, error) {
	type outcome struct {
		stats StatsMap
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		stats, err := d.safeAggregate(ctx, b)
		done <- outcome{stats, err}
	}()
	o := <-done
	return o.stats, o.err
}

// safeAggregate converts a panicking aggregation into an error.
func (d *Driver) safeAggregate(ctx context.Context, b Batch) (stats StatsMap, err error) {
	defer func() {
		if p := recover(); p != nil {
			stats, err = nil, fmt.Errorf("panic: %v", p)
		}
	}()
	return d.aggregate(ctx, b)
}
