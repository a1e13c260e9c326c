package storage

import (
	"context"
	"fmt"
	"log"
	"slices"

	"pkg.jsn.cam/billionrows/pkg/billionrows"
)

var runsBucket = []byte("runs")

func reportBucket(runID string) []byte {
	return []byte("report/" + runID)
}

// ReportStore persists run results on a Backend. It implements
// billionrows.Sink.
type ReportStore struct {
	backend Backend
	codec   Codec
	log     *log.Logger
}

var _ billionrows.Sink = (*ReportStore)(nil)

// NewReportStore wraps backend. A nil codec means JSON.
func NewReportStore(backend Backend, codec Codec) *ReportStore {
	if codec == nil {
		codec = JSONCodec{}
	}
	return &ReportStore{backend: backend, codec: codec, log: log.Default()}
}

// OpenReportStore opens a bbolt-backed store at path, or an in-memory one
// when path is empty. An existing store must have a compatible schema
// version and have been written with the same codec.
func OpenReportStore(path string, codec Codec) (*ReportStore, error) {
	var backend Backend = NewMemoryBackend()
	if path != "" {
		b, err := NewBboltBackend(path)
		if err != nil {
			return nil, err
		}
		backend = b
	}

	s := NewReportStore(backend, codec)
	if err := s.checkSchema(); err != nil {
		backend.Close()
		return nil, err
	}
	return s, nil
}

// SetLogger replaces the store's logger
func (s *ReportStore) SetLogger(l *log.Logger) {
	s.log = l
}

// StoreResult writes the run metadata and every summary in one transaction.
func (s *ReportStore) StoreResult(ctx context.Context, res *billionrows.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	meta, err := s.codec.Marshal(NewRunRecord(res))
	if err != nil {
		return err
	}

	err = s.backend.Update(func(tx Tx) error {
		runs, err := tx.CreateBucket(runsBucket)
		if err != nil {
			return err
		}
		if err := runs.Put([]byte(res.RunID), meta); err != nil {
			return err
		}

		rb := reportBucket(res.RunID)
		if err := tx.DeleteBucket(rb); err != nil {
			return err
		}
		bkt, err := tx.CreateBucket(rb)
		if err != nil {
			return err
		}
		for key, sum := range res.Report {
			data, err := s.codec.Marshal(sum)
			if err != nil {
				return fmt.Errorf("encode %q: %w", key, err)
			}
			if err := bkt.Put([]byte(key), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store run %s: %w", res.RunID, err)
	}

	s.log.Printf("[STORE] Stored run %s (%d keys, codec: %s)", res.RunID, len(res.Report), s.codec.Name())
	return nil
}

// LoadRun returns the metadata of a stored run
func (s *ReportStore) LoadRun(runID string) (RunRecord, error) {
	var rec RunRecord
	err := s.backend.View(func(tx Tx) error {
		runs := tx.Bucket(runsBucket)
		if runs == nil {
			return ErrRunNotFound
		}
		data := runs.Get([]byte(runID))
		if data == nil {
			return ErrRunNotFound
		}
		return s.codec.Unmarshal(data, &rec)
	})
	if err != nil {
		return RunRecord{}, fmt.Errorf("load run %s: %w", runID, err)
	}
	return rec, nil
}

// LoadReport returns the stored report of a run
func (s *ReportStore) LoadReport(runID string) (billionrows.Report, error) {
	report := make(billionrows.Report)
	err := s.backend.View(func(tx Tx) error {
		bkt := tx.Bucket(reportBucket(runID))
		if bkt == nil {
			return ErrRunNotFound
		}
		return bkt.ForEach(func(k, v []byte) error {
			var sum billionrows.Summary
			if err := s.codec.Unmarshal(v, &sum); err != nil {
				return fmt.Errorf("decode %q: %w", k, err)
			}
			report[string(k)] = sum
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", runID, err)
	}
	return report, nil
}

// ListRuns returns every stored run, oldest first
func (s *ReportStore) ListRuns() ([]RunRecord, error) {
	var runs []RunRecord
	err := s.backend.View(func(tx Tx) error {
		bkt := tx.Bucket(runsBucket)
		if bkt == nil {
			return nil
		}
		return bkt.ForEach(func(k, v []byte) error {
			var rec RunRecord
			if err := s.codec.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode run %s: %w", k, err)
			}
			runs = append(runs, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(runs, func(a, b RunRecord) int {
		return a.StartedAt.Compare(b.StartedAt)
	})
	return runs, nil
}

// DeleteRun removes a run and its report
func (s *ReportStore) DeleteRun(runID string) error {
	return s.backend.Update(func(tx Tx) error {
		if runs := tx.Bucket(runsBucket); runs != nil {
			if err := runs.Delete([]byte(runID)); err != nil {
				return err
			}
		}
		return tx.DeleteBucket(reportBucket(runID))
	})
}

// Close closes the underlying backend
func (s *ReportStore) Close() error {
	return s.backend.Close()
}
