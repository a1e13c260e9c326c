package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"pkg.jsn.cam/billionrows/pkg/billionrows"
	"pkg.jsn.cam/billionrows/pkg/storage"
)

const usage = `Usage: billionrows <command> [flags]

Commands:
  run      Aggregate a key:value file (default)
  runs     List stored runs
  show     Print a stored report
  delete   Remove a stored run

Run 'billionrows <command> -h' for command flags.
`

func main() {
	args := os.Args[1:]
	cmd := "run"
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "run":
		runCommand(args)
	case "runs":
		listCommand(args)
	case "show":
		showCommand(args)
	case "delete":
		deleteCommand(args)
	case "help":
		fmt.Print(usage)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

type storeFlags struct {
	kind  *string
	db    *string
	codec *string
}

func addStoreFlags(fs *flag.FlagSet, defaultKind string) storeFlags {
	return storeFlags{
		kind:  fs.String("store", defaultKind, "Result store: none, bbolt or sqlite"),
		db:    fs.String("db", "var/billionrows.db", "Path to the result database"),
		codec: fs.String("codec", "json", "Encoding of bbolt records: json or msgpack"),
	}
}

type resultStore interface {
	billionrows.Sink
	Close() error
}

func (f storeFlags) open() (resultStore, error) {
	switch *f.kind {
	case "none", "":
		return nil, nil
	case "bbolt":
		codec, err := storage.CodecByName(*f.codec)
		if err != nil {
			return nil, err
		}
		return storage.OpenReportStore(*f.db, codec)
	case "sqlite":
		return storage.NewSQLiteSink(*f.db)
	}
	return nil, fmt.Errorf("unknown store %q", *f.kind)
}

func (f storeFlags) openReportStore() *storage.ReportStore {
	if *f.kind != "bbolt" {
		log.Fatalf("-store %s does not support this command; use bbolt", *f.kind)
	}
	codec, err := storage.CodecByName(*f.codec)
	if err != nil {
		log.Fatal(err)
	}
	store, err := storage.OpenReportStore(*f.db, codec)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	return store
}

func runCommand(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	path := fs.String("path", "", "Path to the input file")
	batch := fs.Int("batch", billionrows.DefaultBatchSize, "Records per chunk")
	workers := fs.Int("workers", 0, "Worker goroutines (0 = number of CPUs)")
	delim := fs.String("delim", ":", "Key/value delimiter (single byte)")
	policy := fs.String("policy", "retry-once", "Worker failure policy: retry-once or exclude")
	progress := fs.String("progress", "records", "Progress mode: records, bytes or none")
	format := fs.String("format", "text", "Output format: text or json")
	verbose := fs.Bool("v", false, "Log driver activity to stderr")
	sf := addStoreFlags(fs, "none")
	fs.Parse(args)

	if *path == "" {
		log.Fatal("path is required")
	}
	absPath, err := filepath.Abs(*path)
	if err != nil {
		log.Fatal(err)
	}
	if len(*delim) != 1 {
		log.Fatalf("delimiter must be a single byte, got %q", *delim)
	}
	failurePolicy, err := billionrows.ParseFailurePolicy(*policy)
	if err != nil {
		log.Fatal(err)
	}

	cfg := billionrows.Config{
		SourcePath:    absPath,
		BatchSize:     *batch,
		WorkerCount:   *workers,
		Delimiter:     (*delim)[0],
		FailurePolicy: failurePolicy,
		Logger:        log.New(io.Discard, "", 0),
	}
	if *verbose {
		cfg.Logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	var bar *progressBar
	if *progress != "none" {
		if cfg.ProgressMode, err = billionrows.ParseProgressMode(*progress); err != nil {
			log.Fatal(err)
		}
		bar = newProgressBar(os.Stderr, filepath.Base(absPath))
		cfg.OnProgress = bar.update
	}

	store, err := sf.open()
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	if store != nil {
		defer store.Close()
		cfg.Sink = store
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := billionrows.Run(ctx, cfg)
	if bar != nil {
		bar.finish()
	}
	if res == nil {
		log.Fatalf("Aggregation failed: %v", err)
	}
	if err != nil {
		log.Printf("Warning: %v", err)
	}

	switch *format {
	case "json":
		err = printResultJSON(os.Stdout, res)
	default:
		err = printResultText(os.Stdout, res)
	}
	if err != nil {
		log.Fatalf("Failed to write report: %v", err)
	}
}

func listCommand(args []string) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	sf := addStoreFlags(fs, "bbolt")
	fs.Parse(args)

	store := sf.openReportStore()
	defer store.Close()

	runs, err := store.ListRuns()
	if err != nil {
		log.Fatalf("Failed to list runs: %v", err)
	}
	printRuns(os.Stdout, runs)
}

func showCommand(args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	runID := fs.String("run-id", "", "Run to print")
	format := fs.String("format", "text", "Output format: text or json")
	sf := addStoreFlags(fs, "bbolt")
	fs.Parse(args)

	if *runID == "" {
		log.Fatal("run-id is required")
	}

	var (
		rec    storage.RunRecord
		report billionrows.Report
		err    error
	)
	if *sf.kind == "sqlite" {
		sink, openErr := storage.NewSQLiteSink(*sf.db)
		if openErr != nil {
			log.Fatalf("Failed to open store: %v", openErr)
		}
		defer sink.Close()
		if rec, err = sink.LoadRun(context.Background(), *runID); err == nil {
			report, err = sink.LoadReport(context.Background(), *runID)
		}
	} else {
		store := sf.openReportStore()
		defer store.Close()
		if rec, err = store.LoadRun(*runID); err == nil {
			report, err = store.LoadReport(*runID)
		}
	}
	if err != nil {
		log.Fatalf("Failed to load run: %v", err)
	}

	if *format == "json" {
		err = printStoredJSON(os.Stdout, rec, report)
	} else {
		err = printStoredText(os.Stdout, rec, report)
	}
	if err != nil {
		log.Fatalf("Failed to write report: %v", err)
	}
}

func deleteCommand(args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	runID := fs.String("run-id", "", "Run to delete")
	sf := addStoreFlags(fs, "bbolt")
	fs.Parse(args)

	if *runID == "" {
		log.Fatal("run-id is required")
	}

	store := sf.openReportStore()
	defer store.Close()

	if err := store.DeleteRun(*runID); err != nil {
		log.Fatalf("Failed to delete run: %v", err)
	}
	fmt.Printf("Run %s deleted\n", *runID)
}
