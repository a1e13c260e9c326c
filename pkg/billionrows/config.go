package billionrows

import (
	"fmt"
	"log"
	"runtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// FailurePolicy decides what happens to a batch whose worker fails.
type FailurePolicy int

const (
	// RetryOnce reruns a failed batch on a fresh worker. If the retry also
	// fails the batch is excluded and reported.
	RetryOnce FailurePolicy = iota
	// ExcludeChunk drops a failed batch immediately and reports it.
	ExcludeChunk
)

func (p FailurePolicy) String() string {
	switch p {
	case RetryOnce:
		return "retry-once"
	case ExcludeChunk:
		return "exclude"
	default:
		return fmt.Sprintf("FailurePolicy(%d)", int(p))
	}
}

// ParseFailurePolicy maps a flag value to a FailurePolicy.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "", "retry", "retry-once":
		return RetryOnce, nil
	case "exclude":
		return ExcludeChunk, nil
	}
	return 0, fmt.Errorf("unknown failure policy %q", s)
}

// ProgressMode selects how the total amount of work is estimated.
type ProgressMode int

const (
	// ProgressRecords pre-counts valid records in a separate pass so the
	// total number of chunks is exact.
	ProgressRecords ProgressMode = iota
	// ProgressBytes reads the source once and measures progress by bytes
	// of completed chunks against the source size.
	ProgressBytes
)

func (m ProgressMode) String() string {
	switch m {
	case ProgressRecords:
		return "records"
	case ProgressBytes:
		return "bytes"
	default:
		return fmt.Sprintf("ProgressMode(%d)", int(m))
	}
}

// ParseProgressMode maps a flag value to a ProgressMode.
func ParseProgressMode(s string) (ProgressMode, error) {
	switch s {
	case "", "records", "lines":
		return ProgressRecords, nil
	case "bytes":
		return ProgressBytes, nil
	}
	return 0, fmt.Errorf("unknown progress mode %q", s)
}

// Config holds driver configuration
type Config struct {
	SourcePath    string
	BatchSize     int  // valid records per batch (0 = DefaultBatchSize)
	WorkerCount   int  // parallel workers (0 = runtime.NumCPU())
	Delimiter     byte // key/value separator (0 = ':')
	FailurePolicy FailurePolicy
	ProgressMode  ProgressMode

	// OnProgress receives advisory notifications on its own goroutine. A
	// slow consumer sees only the newest pending one, so intermediate
	// notifications may be skipped; the final 100% is always delivered.
	OnProgress func(Progress)

	Sink   Sink         // receives the result of a successful run; may be nil
	Logger *log.Logger  // nil = log.Default()
	Meter  metric.Meter // nil = global otel meter
}

// Validate reports configuration errors that would prevent a run.
func (c Config) Validate() error {
	if c.WorkerCount < 0 {
		return fmt.Errorf("%w: worker count %d", ErrPoolInitFailure, c.WorkerCount)
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBatchSize, c.BatchSize)
	}
	if c.Delimiter != 0 && !validDelimiter(c.Delimiter) {
		return fmt.Errorf("%w: %q", ErrInvalidDelimiter, c.Delimiter)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.WorkerCount == 0 {
		c.WorkerCount = runtime.NumCPU()
	}
	if c.Delimiter == 0 {
		c.Delimiter = DefaultDelimiter
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	if c.Meter == nil {
		c.Meter = otel.Meter(instrumentationName)
	}
	return c
}
