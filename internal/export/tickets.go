package export

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/ticket-analyzer/internal/async"
)

const ticketsSheet = "Tickets"

var ticketHeaders = []string{
	"File",
	"Date",
	"Vendor",
	"Category",
	"Amount",
	"Currency",
	"Country",
	"City",
	"VAT Rate",
	"Confidence",
	"Method",
	"Status",
	"Limit",
	"Issues",
	"Error",
}

// TicketsXLSX renders batch results as one workbook row per document, in order.
func TicketsXLSX(results []async.Result, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", ticketsSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(ticketsSheet, "A1", &ticketHeaders); err != nil {
		return nil, err
	}

	for i, r := range results {
		t := r.Ticket
		row := []any{
			t.Filename,
			str(t.Date),
			str(t.Vendor),
			string(t.Category),
			num(t.Amount),
			str(t.Currency),
			str(t.CountryCode),
			str(t.City),
			num(t.VATRate),
			t.Confidence,
			t.ExtractionMethod,
			"",
			"",
			"",
			str(t.Error),
		}
		if a := r.Analysis; a != nil {
			row[11] = string(a.Status)
			if a.AppliedRule != nil {
				row[12] = a.AppliedRule.Limit
			}
			row[13] = truncate(strings.Join(a.Issues, "; "), 140)
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(ticketsSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	_ = f.SetColWidth(ticketsSheet, "A", "A", 28) // file
	_ = f.SetColWidth(ticketsSheet, "B", "B", 12) // date
	_ = f.SetColWidth(ticketsSheet, "C", "C", 28) // vendor
	_ = f.SetColWidth(ticketsSheet, "N", "N", 48) // issues
	_ = f.SetColWidth(ticketsSheet, "O", "O", 48) // error

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	logger.Info("export.xlsx.ok", "rows", len(results), "elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// num leaves missing values as empty cells.
func num(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
