package storage

import (
	"time"

	"pkg.jsn.cam/billionrows/pkg/billionrows"
)

// RunRecord is the persisted metadata of one run.
type RunRecord struct {
	RunID           string    `json:"run_id" msgpack:"run_id"`
	Source          string    `json:"source" msgpack:"source"`
	Keys            int       `json:"keys" msgpack:"keys"`
	Lines           int64     `json:"lines" msgpack:"lines"`
	Rejected        int64     `json:"rejected" msgpack:"rejected"`
	Records         int64     `json:"records" msgpack:"records"`
	Chunks          int       `json:"chunks" msgpack:"chunks"`
	ExcludedChunks  int       `json:"excluded_chunks" msgpack:"excluded_chunks"`
	ExcludedRecords int64     `json:"excluded_records" msgpack:"excluded_records"`
	Workers         int       `json:"workers" msgpack:"workers"`
	BatchSize       int       `json:"batch_size" msgpack:"batch_size"`
	Digest          uint64    `json:"digest" msgpack:"digest"`
	StartedAt       time.Time `json:"started_at" msgpack:"started_at"`
	CompletedAt     time.Time `json:"completed_at" msgpack:"completed_at"`
}

// NewRunRecord extracts the metadata of res.
func NewRunRecord(res *billionrows.Result) RunRecord {
	return RunRecord{
		RunID:           res.RunID,
		Source:          res.Source,
		Keys:            len(res.Report),
		Lines:           res.Lines,
		Rejected:        res.Rejected,
		Records:         res.Records,
		Chunks:          res.Chunks,
		ExcludedChunks:  len(res.Failures),
		ExcludedRecords: res.ExcludedRecords,
		Workers:         res.Workers,
		BatchSize:       res.BatchSize,
		Digest:          res.Report.Digest(),
		StartedAt:       res.StartedAt,
		CompletedAt:     res.CompletedAt,
	}
}
