package storage

import (
	"context"
	"errors"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"pkg.jsn.cam/billionrows/pkg/billionrows"
)

func testResult(runID string, started time.Time) *billionrows.Result {
	return &billionrows.Result{
		RunID:  runID,
		Source: "measurements.txt",
		Report: billionrows.Report{
			"Paris":  {Min: 10, Max: 30, Mean: 20},
			"London": {Min: 20, Max: 20, Mean: 20},
		},
		Lines:       4,
		Rejected:    1,
		Records:     3,
		Chunks:      2,
		Workers:     2,
		BatchSize:   2,
		StartedAt:   started,
		CompletedAt: started.Add(time.Second),
	}
}

func reportStoreSuite(t *testing.T, newStore func(t *testing.T) *ReportStore) {
	t.Run("StoreAndLoad", func(t *testing.T) {
		s := newStore(t)
		res := testResult("run-1", time.Unix(1700000000, 0).UTC())

		if err := s.StoreResult(context.Background(), res); err != nil {
			t.Fatalf("StoreResult failed: %v", err)
		}

		report, err := s.LoadReport("run-1")
		if err != nil {
			t.Fatalf("LoadReport failed: %v", err)
		}
		if len(report) != 2 {
			t.Fatalf("LoadReport returned %d keys, want 2", len(report))
		}
		if report["Paris"] != res.Report["Paris"] {
			t.Errorf("Paris = %+v, want %+v", report["Paris"], res.Report["Paris"])
		}
		if report.Digest() != res.Report.Digest() {
			t.Error("Digest of loaded report differs from stored report")
		}

		rec, err := s.LoadRun("run-1")
		if err != nil {
			t.Fatalf("LoadRun failed: %v", err)
		}
		if rec.Records != 3 || rec.Rejected != 1 || rec.Keys != 2 {
			t.Errorf("LoadRun = %+v, want records=3 rejected=1 keys=2", rec)
		}
		if rec.Digest != res.Report.Digest() {
			t.Errorf("stored digest %x, want %x", rec.Digest, res.Report.Digest())
		}
		if !rec.StartedAt.Equal(res.StartedAt) {
			t.Errorf("StartedAt = %v, want %v", rec.StartedAt, res.StartedAt)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		s := newStore(t)
		res := testResult("run-1", time.Now())
		s.StoreResult(context.Background(), res)

		res.Report = billionrows.Report{"Tokyo": {Min: 1, Max: 2, Mean: 1.5}}
		if err := s.StoreResult(context.Background(), res); err != nil {
			t.Fatalf("StoreResult failed: %v", err)
		}

		report, _ := s.LoadReport("run-1")
		if _, ok := report["Paris"]; ok || len(report) != 1 {
			t.Errorf("report after overwrite = %v, want only Tokyo", report)
		}
	})

	t.Run("ListAndDelete", func(t *testing.T) {
		s := newStore(t)
		base := time.Now()
		s.StoreResult(context.Background(), testResult("run-b", base.Add(time.Minute)))
		s.StoreResult(context.Background(), testResult("run-a", base))

		runs, err := s.ListRuns()
		if err != nil {
			t.Fatalf("ListRuns failed: %v", err)
		}
		if len(runs) != 2 || runs[0].RunID != "run-a" || runs[1].RunID != "run-b" {
			t.Fatalf("ListRuns = %+v, want run-a then run-b", runs)
		}

		if err := s.DeleteRun("run-a"); err != nil {
			t.Fatalf("DeleteRun failed: %v", err)
		}
		if _, err := s.LoadReport("run-a"); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("LoadReport after delete returned %v, want ErrRunNotFound", err)
		}
		if _, err := s.LoadRun("run-a"); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("LoadRun after delete returned %v, want ErrRunNotFound", err)
		}
	})

	t.Run("CancelledContext", func(t *testing.T) {
		s := newStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := s.StoreResult(ctx, testResult("run-1", time.Now())); !errors.Is(err, context.Canceled) {
			t.Errorf("StoreResult returned %v, want context.Canceled", err)
		}
	})
}

func quietStore(s *ReportStore) *ReportStore {
	s.SetLogger(log.New(io.Discard, "", 0))
	return s
}

func TestReportStore_Memory(t *testing.T) {
	for _, codec := range []Codec{JSONCodec{}, MsgpackCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			reportStoreSuite(t, func(t *testing.T) *ReportStore {
				return quietStore(NewReportStore(NewMemoryBackend(), codec))
			})
		})
	}
}

func TestReportStore_Bbolt(t *testing.T) {
	for _, codec := range []Codec{JSONCodec{}, MsgpackCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			reportStoreSuite(t, func(t *testing.T) *ReportStore {
				s, err := OpenReportStore(filepath.Join(t.TempDir(), "runs.db"), codec)
				if err != nil {
					t.Fatalf("OpenReportStore failed: %v", err)
				}
				t.Cleanup(func() { s.Close() })
				return quietStore(s)
			})
		})
	}
}

func TestReportStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := OpenReportStore(path, MsgpackCodec{})
	if err != nil {
		t.Fatalf("OpenReportStore failed: %v", err)
	}
	quietStore(s).StoreResult(context.Background(), testResult("run-1", time.Now()))
	s.Close()

	s, err = OpenReportStore(path, MsgpackCodec{})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	report, err := s.LoadReport("run-1")
	if err != nil {
		t.Fatalf("LoadReport after reopen failed: %v", err)
	}
	if len(report) != 2 {
		t.Errorf("LoadReport after reopen returned %d keys, want 2", len(report))
	}
}

func TestCodecByName(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "", want: "json"},
		{name: "json", want: "json"},
		{name: "msgpack", want: "msgpack"},
		{name: "csv", wantErr: true},
	}

	for _, tt := range tests {
		c, err := CodecByName(tt.name)
		if tt.wantErr {
			if err == nil {
				t.Errorf("CodecByName(%q) should fail", tt.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("CodecByName(%q) failed: %v", tt.name, err)
			continue
		}
		if c.Name() != tt.want {
			t.Errorf("CodecByName(%q) = %s, want %s", tt.name, c.Name(), tt.want)
		}
	}
}
