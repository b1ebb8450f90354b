package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/joseph-ayodele/ticket-analyzer/internal/app"
	"github.com/joseph-ayodele/ticket-analyzer/internal/async"
	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
)

func main() {
	fs := ff.NewFlagSet("ticket-analyze")
	var (
		file        = fs.StringLong("file", "", "receipt or invoice to analyze")
		question    = fs.StringLong("question", "", "question passed to the reasoning service; without --file it is answered from the policy alone")
		topic       = fs.StringLong("topic", "", "currency or country code narrowing a policy question")
		workbook    = fs.StringLong("workbook", "", "policy workbook (overrides POLICY_WORKBOOK)")
		store       = fs.StringLong("store", "", "policy rule store DSN (overrides POLICY_STORE_DSN)")
		policies    = fs.StringLong("policies", "", "free-text policy document (overrides POLICY_TEXT)")
		provider    = fs.StringLong("provider", "", "reasoning provider: offline, openai or gemini")
		extractOnly = fs.BoolLong("extract-only", "print the extracted ticket without a compliance check")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("TICKET")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *file == "" && *question == "" {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintln(os.Stderr, "error: --file or --question is required")
		os.Exit(1)
	}

	cfg := common.LoadConfig()
	override(&cfg.Policy.WorkbookPath, *workbook)
	override(&cfg.Policy.StoreDSN, *store)
	override(&cfg.Policy.PoliciesPath, *policies)
	override(&cfg.LLM.Provider, *provider)

	logger := app.NewLogger(os.Stderr, cfg.Log.Level)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if *file == "" {
		answer, err := a.Ask(ctx, *question, *topic)
		if err != nil {
			logger.Error("question failed", "error", err)
			os.Exit(1)
		}
		fmt.Println(answer)
		return
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		logger.Error("read failed", "file", *file, "error", err)
		os.Exit(1)
	}

	res := async.Result{Ticket: a.Processor.ProcessDocument(ctx, data, filepath.Base(*file))}
	if !*extractOnly && !res.Ticket.HasError() {
		analysis := a.Analyzer.Analyze(ctx, res.Ticket, *question)
		res.Analysis = &analysis
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		logger.Error("encode failed", "error", err)
		os.Exit(1)
	}
	if res.Ticket.HasError() {
		os.Exit(2)
	}
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
