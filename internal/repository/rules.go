package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/ticket-analyzer/constants"
	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
	"github.com/joseph-ayodele/ticket-analyzer/internal/policy"
)

const rulesSchema = `CREATE TABLE IF NOT EXISTS policy_rules (
	position     INTEGER NOT NULL,
	sheet_name   TEXT NOT NULL,
	currency     TEXT NOT NULL,
	country      TEXT NOT NULL,
	rule_type    TEXT NOT NULL,
	amount_limit DOUBLE PRECISION NOT NULL
)`

const rulesIndex = `CREATE INDEX IF NOT EXISTS policy_rules_codes ON policy_rules (currency, country)`

// RuleStore persists imported policy rules. It implements policy.Source with
// the same ordering and caps as policy.Index.
type RuleStore struct {
	db     *DB
	logger *slog.Logger
}

var _ policy.Source = (*RuleStore)(nil)

// NewRuleStore creates the rules table if needed.
func NewRuleStore(ctx context.Context, db *DB, logger *slog.Logger) (*RuleStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, stmt := range []string{rulesSchema, rulesIndex} {
		if _, err := db.SQL.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("%w: create schema: %v", common.ErrDatabase, err)
		}
	}
	return &RuleStore{db: db, logger: logger}, nil
}

// Replace swaps the stored rules for rules in one transaction. Rules failing
// policy.Rule.Validate are logged and skipped; the number stored is returned.
func (s *RuleStore) Replace(ctx context.Context, rules []policy.Rule) (int, error) {
	tx, err := s.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM policy_rules`); err != nil {
		return 0, fmt.Errorf("%w: clear rules: %v", common.ErrDatabase, err)
	}
	stmt, err := tx.PrepareContext(ctx, s.db.rebind(
		`INSERT INTO policy_rules (position, sheet_name, currency, country, rule_type, amount_limit) VALUES (?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	defer stmt.Close()

	n := 0
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			s.logger.Warn("store.rule.rejected", "key", r.Key(), "err", err)
			continue
		}
		if _, err := stmt.ExecContext(ctx, n, r.Sheet, r.Currency, r.Country, string(r.Type), r.Limit); err != nil {
			return 0, fmt.Errorf("%w: insert rule %s: %v", common.ErrDatabase, r.Key(), err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %v", common.ErrDatabase, err)
	}
	s.logger.Info("store.rules.replaced", "stored", n, "skipped", len(rules)-n)
	return n, nil
}

// All returns every stored rule in import order.
func (s *RuleStore) All(ctx context.Context) ([]policy.Rule, error) {
	return s.query(ctx, `SELECT sheet_name, currency, country, rule_type, amount_limit FROM policy_rules ORDER BY position`)
}

// Lookup narrows the candidates in SQL, then ranks them like policy.Index.
func (s *RuleStore) Lookup(ctx context.Context, currency, country string, category constants.Category) ([]policy.Rule, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	country = strings.ToUpper(strings.TrimSpace(country))
	candidates, err := s.query(ctx,
		`SELECT sheet_name, currency, country, rule_type, amount_limit FROM policy_rules WHERE currency = ? OR country = ? ORDER BY position`,
		currency, country)
	if err != nil {
		return nil, err
	}
	out, _ := policy.NewIndex(candidates).Lookup(ctx, currency, country, category)
	if len(out) == 0 {
		s.logger.Debug("store.lookup.empty", "currency", currency, "country", country, "category", category)
	}
	return out, nil
}

func (s *RuleStore) query(ctx context.Context, q string, args ...any) ([]policy.Rule, error) {
	rows, err := s.db.SQL.QueryContext(ctx, s.db.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []policy.Rule
	for rows.Next() {
		var r policy.Rule
		var t string
		if err := rows.Scan(&r.Sheet, &r.Currency, &r.Country, &t, &r.Limit); err != nil {
			return nil, fmt.Errorf("%w: scan rule: %v", common.ErrDatabase, err)
		}
		r.Type = constants.RuleType(t)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return out, nil
}
