package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/schollz/progressbar/v3"

	"pkg.jsn.cam/billionrows/pkg/billionrows"
	"pkg.jsn.cam/billionrows/pkg/storage"
)

type progressBar struct {
	bar *progressbar.ProgressBar
}

func newProgressBar(w io.Writer, name string) *progressBar {
	return &progressBar{bar: progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(name),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionClearOnFinish(),
	)}
}

// update is the driver's progress callback.
func (p *progressBar) update(ev billionrows.Progress) {
	_ = p.bar.Set(int(ev.Percent))
}

func (p *progressBar) finish() {
	_ = p.bar.Finish()
}

func printResultText(w io.Writer, res *billionrows.Result) error {
	if err := res.Report.WriteText(w); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nRun Details:\n")
	fmt.Fprintf(w, "  ID:        %s\n", res.RunID)
	fmt.Fprintf(w, "  Source:    %s\n", res.Source)
	fmt.Fprintf(w, "  Keys:      %d\n", len(res.Report))
	fmt.Fprintf(w, "  Lines:     %s (%s rejected)\n", humanize.Comma(res.Lines), humanize.Comma(res.Rejected))
	fmt.Fprintf(w, "  Records:   %s\n", humanize.Comma(res.Records))
	fmt.Fprintf(w, "  Chunks:    %d x %s records\n", res.Chunks, humanize.Comma(int64(res.BatchSize)))
	fmt.Fprintf(w, "  Workers:   %d\n", res.Workers)
	fmt.Fprintf(w, "  Duration:  %v\n", res.Duration().Round(time.Millisecond))
	fmt.Fprintf(w, "  Digest:    %016x\n", res.Report.Digest())

	if res.Partial() {
		fmt.Fprintf(w, "\nWarning: %d chunk(s) excluded, %s records missing from the report\n",
			len(res.Failures), humanize.Comma(res.ExcludedRecords))
		for _, f := range res.Failures {
			fmt.Fprintf(w, "  chunk %d (%d attempts): %v\n", f.Index, f.Attempts, f.Err)
		}
	}
	return nil
}

type jsonFailure struct {
	Chunk    int    `json:"chunk"`
	Records  int    `json:"records"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error"`
}

type jsonResult struct {
	*billionrows.Result
	Digest   string        `json:"digest"`
	Policy   string        `json:"failure_policy"`
	Failures []jsonFailure `json:"failures,omitempty"`
}

func printResultJSON(w io.Writer, res *billionrows.Result) error {
	out := jsonResult{
		Result: res,
		Digest: fmt.Sprintf("%016x", res.Report.Digest()),
		Policy: res.FailurePolicy.String(),
	}
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, jsonFailure{
			Chunk:    f.Index,
			Records:  f.Records,
			Attempts: f.Attempts,
			Error:    f.Err.Error(),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printRuns(w io.Writer, runs []storage.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found")
		return
	}

	fmt.Fprintf(w, "%-36s  %-19s  %6s  %14s  %s\n", "RUN ID", "STARTED", "KEYS", "RECORDS", "SOURCE")
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-19s  %6d  %14s  %s\n",
			r.RunID, r.StartedAt.Format(time.DateTime), r.Keys, humanize.Comma(r.Records), r.Source)
	}
}

func printStoredText(w io.Writer, rec storage.RunRecord, report billionrows.Report) error {
	if err := report.WriteText(w); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nRun %s (%s)\n", rec.RunID, humanize.Time(rec.CompletedAt))
	fmt.Fprintf(w, "  Source:    %s\n", rec.Source)
	fmt.Fprintf(w, "  Records:   %s\n", humanize.Comma(rec.Records))
	fmt.Fprintf(w, "  Digest:    %016x\n", rec.Digest)
	if rec.ExcludedChunks > 0 {
		fmt.Fprintf(w, "  Partial:   %d chunk(s), %s records excluded\n",
			rec.ExcludedChunks, humanize.Comma(rec.ExcludedRecords))
	}
	if report.Digest() != rec.Digest {
		fmt.Fprintf(w, "Warning: stored report does not match its digest\n")
	}
	return nil
}

func printStoredJSON(w io.Writer, rec storage.RunRecord, report billionrows.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		storage.RunRecord
		Report billionrows.Report `json:"report"`
	}{rec, report})
}
