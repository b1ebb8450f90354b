// Package app wires configuration into the pipeline, rule source and
// analyzer shared by the binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/ticket-analyzer/internal/cache"
	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
	"github.com/joseph-ayodele/ticket-analyzer/internal/compliance"
	"github.com/joseph-ayodele/ticket-analyzer/internal/core"
	"github.com/joseph-ayodele/ticket-analyzer/internal/core/fields"
	"github.com/joseph-ayodele/ticket-analyzer/internal/llm"
	"github.com/joseph-ayodele/ticket-analyzer/internal/llm/provider"
	"github.com/joseph-ayodele/ticket-analyzer/internal/policy"
	"github.com/joseph-ayodele/ticket-analyzer/internal/repository"
)

// NewLogger builds the JSON logger the binaries share.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// App holds the wired components. Close releases them.
type App struct {
	Config    *common.Config
	Logger    *slog.Logger
	Processor *core.Processor
	Assistant llm.Assistant
	Rules     policy.Source
	Store     *repository.RuleStore
	DB        *repository.DB
	Analyzer  *compliance.Analyzer
	Policies  string
	Sections  *policy.Sections

	closers []func() error
}

// New wires everything cfg describes. Missing policy configuration is not an
// error: lookups then find no rules and every ticket goes to review.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Logger: logger}

	assistant, closeLLM, err := provider.New(ctx, cfg.LLM, logger.With("component", "llm"))
	if err != nil {
		return nil, err
	}
	a.Assistant = assistant
	a.closers = append(a.closers, closeLLM)

	var textCache core.TextCache
	if cfg.Cache.Path != "" {
		bc, err := cache.NewBoltCache(cfg.Cache.Path)
		if err != nil {
			_ = a.Close()
			return nil, common.NewAppError("CACHE_OPEN", "open text cache", err)
		}
		textCache = bc
		a.closers = append(a.closers, bc.Close)
	}

	var fa fields.FieldAssistant
	if cfg.Fields.Strategy == "assisted" {
		fa = assistant
	}
	proc, err := core.Build(cfg, fa, textCache, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Processor = proc

	if err := a.loadRules(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Policies = a.loadPolicies(ctx)
	a.Sections = policy.IndexSections(a.Policies)
	a.Analyzer = compliance.NewAnalyzer(a.Rules, assistant, a.Policies, logger.With("component", "compliance"))
	return a, nil
}

// loadRules prefers the SQL store, then the workbook.
func (a *App) loadRules(ctx context.Context) error {
	pc := a.Config.Policy
	switch {
	case pc.StoreDSN != "":
		db, store, err := OpenStore(ctx, pc.StoreDSN, a.Logger)
		if err != nil {
			return err
		}
		a.DB, a.Store, a.Rules = db, store, store
		a.closers = append(a.closers, db.Close)
		a.Logger.Info("app.rules.store", "dialect", db.Dialect)
	case pc.WorkbookPath != "":
		book, err := LoadWorkbookFile(pc.WorkbookPath, a.Logger)
		if err != nil {
			return err
		}
		idx := policy.NewIndex(book.Rules())
		a.Rules = idx
		a.Logger.Info("app.rules.workbook", "path", pc.WorkbookPath, "rules", idx.Len())
	default:
		a.Rules = policy.NewIndex(nil)
		a.Logger.Warn("app.rules.none", "hint", "set POLICY_STORE_DSN or POLICY_WORKBOOK")
	}
	return nil
}

// loadPolicies reads the optional free-text policy document through the
// same text extraction used for tickets.
func (a *App) loadPolicies(ctx context.Context) string {
	path := a.Config.Policy.PoliciesPath
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		a.Logger.Warn("app.policies.unreadable", "path", path, "err", err)
		return ""
	}
	res := a.Processor.ReadText(ctx, data, filepath.Base(path))
	if res.Failed() {
		a.Logger.Warn("app.policies.no_text", "path", path, "reason", res.Err.Kind)
		return ""
	}
	return res.Text
}

// Ask answers a question about the policy without a ticket. With a topic,
// the context carries the policy sections indexed under it and the rules whose
// currency, country or type it names; otherwise a rule summary and a capped
// excerpt of the policy document.
func (a *App) Ask(ctx context.Context, question, topic string) (string, error) {
	rules, err := a.allRules(ctx)
	if err != nil {
		return "", err
	}
	var background string
	if strings.TrimSpace(topic) != "" {
		sections := a.Sections.Search(topic, policy.MaxSectionResults)
		a.Logger.Debug("app.ask.topic", "topic", topic, "sections", len(sections))
		background = llm.BuildPolicyQuestionContext(topic, sections, relatedRules(rules, topic))
	} else {
		background = llm.BuildGeneralQueryContext(policy.NewIndex(rules).Summary(), a.Policies)
	}
	return a.Assistant.Complete(ctx, llm.BuildGeneralQueryPrompt(question), background)
}

// relatedRules keeps rules whose currency or country equals topic, or whose
// type ("Hotel1" reads as "hotel") appears in it.
func relatedRules(rules []policy.Rule, topic string) []policy.Rule {
	code := strings.ToUpper(strings.TrimSpace(topic))
	lower := strings.ToLower(topic)
	var out []policy.Rule
	for _, r := range rules {
		kind := strings.ToLower(strings.TrimRight(string(r.Type), "0123456789"))
		if r.Currency == code || r.Country == code || (kind != "" && strings.Contains(lower, kind)) {
			out = append(out, r)
		}
	}
	return out
}

func (a *App) allRules(ctx context.Context) ([]policy.Rule, error) {
	switch src := a.Rules.(type) {
	case *repository.RuleStore:
		return src.All(ctx)
	case *policy.Index:
		return src.Rules(), nil
	default:
		return nil, nil
	}
}

// OpenStore opens the database and ensures the rules table exists.
func OpenStore(ctx context.Context, dsn string, logger *slog.Logger) (*repository.DB, *repository.RuleStore, error) {
	db, err := repository.Open(ctx, repository.Config{DSN: dsn}, logger)
	if err != nil {
		return nil, nil, err
	}
	store, err := repository.NewRuleStore(ctx, db, logger)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, store, nil
}

func LoadWorkbookFile(path string, logger *slog.Logger) (*policy.Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrNotFound, err)
	}
	defer f.Close()
	return policy.LoadWorkbook(f, logger)
}

// Close releases components in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
