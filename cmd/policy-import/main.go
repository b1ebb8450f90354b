package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/joseph-ayodele/ticket-analyzer/internal/app"
	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
	"github.com/joseph-ayodele/ticket-analyzer/internal/policy"
)

// report is printed on stdout after every run.
type report struct {
	policy.Report
	Workbook string `json:"workbook"`
	Stored   int    `json:"stored"`
	Exported string `json:"exported,omitempty"`
}

func main() {
	fs := ff.NewFlagSet("policy-import")
	var (
		workbook = fs.StringLong("workbook", "", "policy workbook to import (overrides POLICY_WORKBOOK)")
		store    = fs.StringLong("store", "", "rule store DSN (overrides POLICY_STORE_DSN); empty validates only")
		export   = fs.StringLong("export", "", "write the normalized rules to this xlsx file")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("TICKET")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg := common.LoadConfig()
	if *workbook == "" {
		*workbook = cfg.Policy.WorkbookPath
	}
	if *store == "" {
		*store = cfg.Policy.StoreDSN
	}
	logger := app.NewLogger(os.Stderr, cfg.Log.Level)
	if *workbook == "" {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintln(os.Stderr, "error: --workbook is required")
		os.Exit(1)
	}

	ctx := context.Background()
	book, err := app.LoadWorkbookFile(*workbook, logger)
	if err != nil {
		logger.Error("load workbook failed", "path", *workbook, "error", err)
		os.Exit(1)
	}
	out := report{Report: book.Validate(), Workbook: *workbook}

	if out.Valid && *store != "" {
		db, rs, err := app.OpenStore(ctx, *store, logger)
		if err != nil {
			logger.Error("open store failed", "error", err)
			os.Exit(1)
		}
		out.Stored, err = rs.Replace(ctx, book.Rules())
		_ = db.Close()
		if err != nil {
			logger.Error("import failed", "error", err)
			os.Exit(1)
		}
	}

	if *export != "" {
		data, err := policy.WriteWorkbook(book.Rules())
		if err == nil {
			err = os.WriteFile(*export, data, 0o644)
		}
		if err != nil {
			logger.Error("export failed", "path", *export, "error", err)
			os.Exit(1)
		}
		out.Exported = *export
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
	if !out.Valid {
		os.Exit(2)
	}
}
