package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/joseph-ayodele/ticket-analyzer/internal/app"
	"github.com/joseph-ayodele/ticket-analyzer/internal/async"
	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
	"github.com/joseph-ayodele/ticket-analyzer/internal/ingest"
	"github.com/joseph-ayodele/ticket-analyzer/internal/server"
)

func main() {
	fs := ff.NewFlagSet("ticketsd")
	var (
		inbox   = fs.StringLong("inbox", "", "directory watched for new receipts (overrides INBOX_DIR)")
		addr    = fs.StringLong("addr", "", "gRPC health listen address (overrides GRPC_ADDR)")
		results = fs.StringLong("results", "", "append JSON lines results to this file (default stdout)")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("TICKET")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg := common.LoadConfig()
	if *inbox != "" {
		cfg.Batch.InboxDir = *inbox
	}
	if *addr != "" {
		cfg.Server.GRPCAddr = *addr
	}
	logger := app.NewLogger(os.Stdout, cfg.Log.Level)
	slog.SetDefault(logger)

	if cfg.Batch.InboxDir == "" {
		logger.Error("inbox directory is required (--inbox or INBOX_DIR)")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *results, logger); err != nil {
		logger.Error("daemon failed", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}

func run(ctx context.Context, cfg *common.Config, results string, logger *slog.Logger) error {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var out io.Writer = os.Stdout
	if results != "" {
		f, err := os.OpenFile(results, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	var mu sync.Mutex
	enc := json.NewEncoder(out)
	sink := func(r async.Result) {
		mu.Lock()
		defer mu.Unlock()
		if err := enc.Encode(r); err != nil {
			logger.Error("daemon.result.write_failed", "job_id", r.Job.ID, "error", err)
		}
	}

	q := async.NewProcessorQueue(a.Processor, logger,
		async.WithWorkers(cfg.Batch.Workers),
		async.WithQueueSize(cfg.Batch.QueueSize),
		async.WithProcessTimeout(cfg.Batch.ProcessTimeout),
		async.WithAnalyzer(a.Analyzer),
		async.WithSink(sink),
	)

	health := server.NewHealth(logger)
	health.Set(server.ServiceQueue, true)
	if a.DB != nil {
		go health.Watch(ctx, server.ServiceStore, 30*time.Second, func(ctx context.Context) error {
			return a.DB.HealthCheck(ctx, 0)
		})
	}

	paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{cfg.Batch.InboxDir},
		InitialScan: true,
		Debounce:    cfg.Batch.Debounce,
	}, logger)
	if err != nil {
		return err
	}
	go func() {
		for paths != nil || errs != nil {
			select {
			case p, ok := <-paths:
				if !ok {
					paths = nil
					continue
				}
				if err := q.Enqueue(ctx, async.NewJob(p)); err != nil {
					logger.Warn("daemon.enqueue.failed", "path", p, "error", err)
				}
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				logger.Warn("daemon.watch.error", "error", err)
			}
		}
	}()

	serveErr := server.Serve(ctx, cfg.Server.GRPCAddr, health, logger)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	q.Shutdown(shutdownCtx)
	return serveErr
}
