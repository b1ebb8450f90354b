package policy

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/ticket-analyzer/constants"
	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
)

// Workbook column headers.
const (
	ColCurrency = "CRN_KEY"
	ColType     = "TYPE"
	ColCountry  = "ID_01"
	ColLimit    = "AMOUNT1"
)

type Sheet struct {
	Name    string
	Rules   []Rule
	Skipped int // rows dropped as incomplete
}

// Book is a loaded policy workbook, sheets in file order.
type Book struct {
	Sheets []Sheet
}

// Rules flattens every sheet.
func (b *Book) Rules() []Rule {
	var out []Rule
	for _, s := range b.Sheets {
		out = append(out, s.Rules...)
	}
	return out
}

func (b *Book) Sheet(name string) (Sheet, bool) {
	for _, s := range b.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return Sheet{}, false
}

// LoadWorkbook reads limit rules from an xlsx policy workbook. Sheets lacking
// the limit columns are skipped with a warning; a file excelize cannot open is
// an error.
func LoadWorkbook(r io.Reader, logger *slog.Logger) (*Book, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, common.NewAppError("POLICY_WORKBOOK", "open workbook", fmt.Errorf("%w: %v", common.ErrDecode, err))
	}
	defer func() { _ = f.Close() }()

	book := &Book{}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			logger.Warn("policy.sheet.unreadable", "sheet", name, "err", err)
			continue
		}
		sheet, ok := parseSheet(name, rows)
		if !ok {
			logger.Warn("policy.sheet.skipped", "sheet", name, "reason", "missing limit columns")
			continue
		}
		if !isKnownSheet(name) {
			logger.Warn("policy.sheet.unrecognized", "sheet", name)
		}
		logger.Info("policy.sheet.loaded", "sheet", name, "rules", len(sheet.Rules), "skipped", sheet.Skipped)
		book.Sheets = append(book.Sheets, sheet)
	}
	return book, nil
}

type columns struct {
	currency, country, typ, limit int
}

func (c columns) cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseHeader(row []string) (columns, bool) {
	c := columns{currency: -1, country: -1, typ: -1, limit: -1}
	for i, h := range row {
		switch strings.ToUpper(strings.TrimSpace(h)) {
		case ColCurrency:
			c.currency = i
		case ColCountry:
			c.country = i
		case ColType:
			c.typ = i
		case ColLimit:
			c.limit = i
		}
	}
	return c, c.currency >= 0 && c.country >= 0 && c.limit >= 0
}

func parseSheet(name string, rows [][]string) (Sheet, bool) {
	if len(rows) == 0 {
		return Sheet{}, false
	}
	cols, ok := parseHeader(rows[0])
	if !ok {
		return Sheet{}, false
	}
	body := rows[1:]
	sheet := Sheet{Name: name}

	// The breakfast sheet repeats the currency/country grid twice: Breakfast1
	// rows first, then Meal1 rows starting at the first row typed Meal1.
	split := -1
	if name == constants.SheetBreakfast && cols.typ >= 0 {
		for i, row := range body {
			if cols.cell(row, cols.typ) == string(constants.RuleMeal) {
				split = i
				break
			}
		}
	}

	for i, row := range body {
		var t constants.RuleType
		switch {
		case split > 0 && i < split:
			t = constants.RuleBreakfast
		case split >= 0:
			t = constants.RuleMeal
		default:
			t = constants.RuleType(cols.cell(row, cols.typ))
			if t == "" {
				t = defaultType(name)
			}
		}
		rule := Rule{
			Sheet:    name,
			Currency: normalizeCode(cols.cell(row, cols.currency)),
			Country:  normalizeCode(cols.cell(row, cols.country)),
			Type:     t,
			Limit:    CleanNumber(cols.cell(row, cols.limit)),
		}
		if !rule.Valid() {
			sheet.Skipped++
			continue
		}
		sheet.Rules = append(sheet.Rules, rule)
	}
	return sheet, true
}

func defaultType(sheet string) constants.RuleType {
	switch sheet {
	case constants.SheetHotel:
		return constants.RuleHotel
	case constants.SheetBreakfast:
		return constants.RuleBreakfast
	default:
		return constants.RuleMeal
	}
}

func isKnownSheet(name string) bool {
	for _, s := range constants.ExpectedSheets {
		if s == name {
			return true
		}
	}
	return false
}

// SheetSummary describes what one sheet contributed.
type SheetSummary struct {
	Rules      int      `json:"rules_count"`
	Currencies []string `json:"currencies"`
	Countries  []string `json:"countries"`
	Types      []string `json:"types"`
}

// Report is the structural check of a workbook. Warnings do not make it invalid.
type Report struct {
	Valid    bool                    `json:"is_valid"`
	Warnings []string                `json:"warnings"`
	Errors   []string                `json:"errors"`
	Sheets   map[string]SheetSummary `json:"summary"`
}

// Validate checks the expected sheets are present and carry the rule types
// they are meant to.
func (b *Book) Validate() Report {
	rep := Report{Valid: true, Warnings: []string{}, Errors: []string{}, Sheets: map[string]SheetSummary{}}
	for _, name := range constants.ExpectedSheets {
		if _, ok := b.Sheet(name); !ok {
			rep.Warnings = append(rep.Warnings, "missing sheet: "+name)
		}
	}

	total := 0
	for _, s := range b.Sheets {
		sum := summarize(s.Rules)
		rep.Sheets[s.Name] = sum
		total += sum.Rules

		var missing []string
		for _, t := range expectedTypes(s.Name) {
			if !contains(sum.Types, string(t)) {
				missing = append(missing, string(t))
			}
		}
		if len(missing) > 0 {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("sheet %s: expected types not found: %s", s.Name, strings.Join(missing, ", ")))
		}
	}
	if total == 0 {
		rep.Errors = append(rep.Errors, "workbook holds no valid rules")
		rep.Valid = false
	}
	return rep
}

func expectedTypes(sheet string) []constants.RuleType {
	switch sheet {
	case constants.SheetMeal:
		return []constants.RuleType{constants.RuleMeal}
	case constants.SheetHotel:
		return []constants.RuleType{constants.RuleHotel}
	case constants.SheetBreakfast:
		return []constants.RuleType{constants.RuleBreakfast, constants.RuleMeal}
	}
	return nil
}

func summarize(rules []Rule) SheetSummary {
	cur, cty, typ := map[string]bool{}, map[string]bool{}, map[string]bool{}
	for _, r := range rules {
		cur[r.Currency] = true
		cty[r.Country] = true
		typ[string(r.Type)] = true
	}
	return SheetSummary{
		Rules:      len(rules),
		Currencies: sortedKeys(cur),
		Countries:  sortedKeys(cty),
		Types:      sortedKeys(typ),
	}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
