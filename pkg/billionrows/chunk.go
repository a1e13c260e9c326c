package billionrows

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
)

const (
	// DefaultBatchSize is the number of valid records per batch.
	DefaultBatchSize = 100_000

	// MaxLineSize bounds a single input line.
	MaxLineSize = 1 << 20

	ctxCheckEvery = 4096
)

// ReadTotals counts everything a Reader has consumed so far.
type ReadTotals struct {
	Lines    int64
	Rejected int64
	Records  int64
	Bytes    int64
}

// Reader turns a line-oriented stream into batches of parsed records.
// It is forward-only: to restart, build a new Reader over a fresh stream.
type Reader struct {
	sc      *bufio.Scanner
	size    int
	delim   byte
	index   int
	advance int64
	totals  ReadTotals
	err     error
}

// NewReader returns a Reader emitting batches of up to batchSize records.
func NewReader(r io.Reader, batchSize int, delim byte) *Reader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if delim == 0 {
		delim = DefaultDelimiter
	}

	rd := &Reader{size: batchSize, delim: delim}
	rd.sc = newLineScanner(r, &rd.advance)
	return rd
}

func newLineScanner(r io.Reader, advance *int64) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	sc.Split(func(data []byte, atEOF bool) (int, []byte, error) {
		n, tok, err := bufio.ScanLines(data, atEOF)
		if tok != nil {
			*advance = int64(n)
		}
		return n, tok, err
	})
	return sc
}

// Next returns the next non-empty batch, or io.EOF once the stream is
// exhausted. Rejected lines are dropped and do not count toward the batch
// size.
func (r *Reader) Next() (Batch, error) {
	if r.err != nil {
		return Batch{}, r.err
	}

	b := Batch{Index: r.index, Records: make([]Record, 0, r.size)}
	for r.sc.Scan() {
		r.totals.Lines++
		r.totals.Bytes += r.advance
		b.Lines++
		b.Bytes += r.advance

		rec, err := ParseRecord(r.sc.Text(), r.delim)
		if err != nil {
			r.totals.Rejected++
			continue
		}
		b.Records = append(b.Records, rec)
		r.totals.Records++

		if len(b.Records) >= r.size {
			r.index++
			return b, nil
		}
	}

	if err := r.sc.Err(); err != nil {
		r.err = scanError(err, r.totals.Lines+1)
		return Batch{}, r.err
	}

	r.err = io.EOF
	if len(b.Records) == 0 {
		return Batch{}, io.EOF
	}
	r.index++
	return b, nil
}

// Totals reports what has been consumed so far. After Next returns io.EOF
// these are the totals for the whole stream.
func (r *Reader) Totals() ReadTotals {
	return r.totals
}

func scanError(err error, line int64) error {
	if errors.Is(err, bufio.ErrTooLong) {
		return fmt.Errorf("line %d: %w (limit %d bytes)", line, ErrLineTooLong, MaxLineSize)
	}
	return fmt.Errorf("line %d: %w", line, err)
}

// Feed pushes batches to out until the stream is exhausted, then closes
// out. It stops early with the context's error if ctx is cancelled.
func (r *Reader) Feed(ctx context.Context, out chan<- Batch) error {
	defer close(out)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		b, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- b:
		}
	}
}

// Chunk reads r and pushes batches of up to batchSize records to out,
// closing out when done.
func Chunk(ctx context.Context, r io.Reader, batchSize int, delim byte, out chan<- Batch) error {
	return NewReader(r, batchSize, delim).Feed(ctx, out)
}

// CountRecords scans r once and counts lines, valid records and rejected
// lines without building batches. The driver uses it to size progress.
func CountRecords(ctx context.Context, r io.Reader, delim byte) (ReadTotals, error) {
	if delim == 0 {
		delim = DefaultDelimiter
	}

	var (
		t       ReadTotals
		advance int64
	)
	sc := newLineScanner(r, &advance)
	for sc.Scan() {
		t.Lines++
		t.Bytes += advance
		if t.Lines%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return t, err
			}
		}
		if _, err := ParseRecord(sc.Text(), delim); err != nil {
			t.Rejected++
			continue
		}
		t.Records++
	}
	if err := sc.Err(); err != nil {
		return t, scanError(err, t.Lines+1)
	}
	return t, ctx.Err()
}
