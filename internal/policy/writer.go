package policy

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/ticket-analyzer/constants"
)

// WriteWorkbook renders rules in the layout LoadWorkbook reads: one sheet per
// rule sheet, CRN_KEY/TYPE/ID_01/AMOUNT1 header, Breakfast1 rows ahead of Meal1
// rows on the breakfast sheet. Rules without a sheet go to the sheet of their type.
func WriteWorkbook(rules []Rule) ([]byte, error) {
	bySheet := map[string][]Rule{}
	order := append([]string(nil), constants.ExpectedSheets...)
	for _, r := range rules {
		name := r.Sheet
		if name == "" {
			name = constants.SheetFor(r.Type)
		}
		if _, ok := bySheet[name]; !ok && !contains(order, name) {
			order = append(order, name)
		}
		bySheet[name] = append(bySheet[name], r)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	first := true
	for _, name := range order {
		sheetRules, ok := bySheet[name]
		if !ok {
			continue
		}
		if first {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
			first = false
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("new sheet %s: %w", name, err)
		}

		if name == constants.SheetBreakfast {
			sort.SliceStable(sheetRules, func(i, j int) bool {
				return sheetRules[i].Type == constants.RuleBreakfast && sheetRules[j].Type != constants.RuleBreakfast
			})
		}

		headers := []string{ColCurrency, ColType, ColCountry, ColLimit}
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			_ = f.SetCellValue(name, cell, h)
		}
		for i, r := range sheetRules {
			row := i + 2
			write := func(col int, v any) {
				cell, _ := excelize.CoordinatesToCellName(col, row)
				_ = f.SetCellValue(name, cell, v)
			}
			write(1, r.Currency)
			write(2, string(r.Type))
			write(3, r.Country)
			write(4, r.Limit)
		}
		_ = f.SetColWidth(name, "A", "C", 12)
		_ = f.SetColWidth(name, "D", "D", 14)
	}
	if first {
		// no rules: keep an empty canonical meal sheet
		if err := f.SetSheetName("Sheet1", constants.SheetMeal); err != nil {
			return nil, fmt.Errorf("rename sheet: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
