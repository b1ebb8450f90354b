package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/joseph-ayodele/ticket-analyzer/internal/app"
	"github.com/joseph-ayodele/ticket-analyzer/internal/async"
	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
	"github.com/joseph-ayodele/ticket-analyzer/internal/export"
	"github.com/joseph-ayodele/ticket-analyzer/internal/ingest"
)

func main() {
	fs := ff.NewFlagSet("ticket-batch")
	var (
		dir       = fs.StringLong("dir", "", "directory of receipts to process (required)")
		out       = fs.StringLong("out", "", "JSON lines output file (default stdout)")
		recursive = fs.BoolLong("recursive", "descend into subdirectories")
		workers   = fs.IntLong("workers", 0, "concurrent documents (overrides BATCH_WORKERS)")
		timeout   = fs.DurationLong("timeout", 0, "per-document limit (overrides BATCH_PROCESS_TIMEOUT)")
		analyze   = fs.BoolLong("analyze", "run the compliance check on each ticket")
		xlsx      = fs.StringLong("xlsx", "", "also write a spreadsheet summary to this file")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("TICKET")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *dir == "" {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintln(os.Stderr, "error: --dir is required")
		os.Exit(1)
	}

	cfg := common.LoadConfig()
	if *workers > 0 {
		cfg.Batch.Workers = *workers
	}
	if *timeout > 0 {
		cfg.Batch.ProcessTimeout = *timeout
	}
	logger := app.NewLogger(os.Stderr, cfg.Log.Level)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, options{dir: *dir, out: *out, xlsx: *xlsx, recursive: *recursive, analyze: *analyze}, logger); err != nil {
		logger.Error("batch failed", "error", err)
		os.Exit(1)
	}
}

type options struct {
	dir, out, xlsx     string
	recursive, analyze bool
}

func run(ctx context.Context, cfg *common.Config, opts options, logger *slog.Logger) error {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	paths, stats, err := ingest.ScanDirectory(opts.dir, ingest.ScanOptions{SkipHidden: true, Recursive: opts.recursive})
	if err != nil {
		return err
	}
	logger.Info("batch.scan.done", "dir", opts.dir, "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)

	docs := make([]async.Document, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			logger.Warn("batch.read.failed", "path", p, "error", err)
		}
		// an unreadable file still yields a failed record
		docs = append(docs, async.Document{Name: filepath.Base(p), Data: data})
	}

	b, err := async.NewBatch(a.Processor, cfg.Batch.Workers, cfg.Batch.ProcessTimeout, logger)
	if err != nil {
		return err
	}
	defer b.Release()

	start := time.Now()
	tickets, runErr := b.Run(ctx, docs)

	var w io.Writer = os.Stdout
	if opts.out != "" {
		f, err := os.Create(opts.out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	failed := 0
	results := make([]async.Result, 0, len(tickets))
	for _, t := range tickets {
		res := async.Result{Ticket: t}
		if t.HasError() {
			failed++
		} else if opts.analyze {
			an := a.Analyzer.Analyze(ctx, t, "")
			res.Analysis = &an
		}
		if err := enc.Encode(res); err != nil {
			return err
		}
		results = append(results, res)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if opts.xlsx != "" {
		data, err := export.TicketsXLSX(results, logger)
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.xlsx, data, 0o644); err != nil {
			return err
		}
	}
	logger.Info("batch.done", "documents", len(tickets), "failed", failed, "elapsed", time.Since(start).String())
	return runErr
}
