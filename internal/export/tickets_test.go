package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/ticket-analyzer/constants"
	"github.com/joseph-ayodele/ticket-analyzer/internal/async"
	"github.com/joseph-ayodele/ticket-analyzer/internal/compliance"
	"github.com/joseph-ayodele/ticket-analyzer/internal/core/fields"
	"github.com/joseph-ayodele/ticket-analyzer/internal/policy"
)

func TestTicketsXLSX(t *testing.T) {
	amount, cur, vendor := 212.5, "EUR", "Hotel du Lac"
	failedErr := "[PDF file scan.pdf - no text found]"
	results := []async.Result{
		{
			Ticket: fields.TicketInfo{
				Filename:         "hotel.pdf",
				Amount:           &amount,
				Currency:         &cur,
				Vendor:           &vendor,
				Category:         constants.Hotel,
				Confidence:       0.8,
				ExtractionMethod: constants.MethodHeuristic,
			},
			Analysis: &compliance.Analysis{
				Status:      constants.StatusRequiresApproval,
				AppliedRule: &policy.Rule{Limit: 180},
				Issues:      []string{"hotel amount 212.50 EUR exceeds limit of 180.00 EUR"},
			},
		},
		{Ticket: fields.TicketInfo{Filename: "scan.pdf", Category: constants.Unknown, Error: &failedErr}},
	}

	data, err := TicketsXLSX(results, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{ticketsSheet}, f.GetSheetList())

	rows, err := f.GetRows(ticketsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ticketHeaders, rows[0])

	assert.Equal(t, "hotel.pdf", rows[1][0])
	assert.Equal(t, "Hotel du Lac", rows[1][2])
	assert.Equal(t, "212.5", rows[1][4])
	assert.Equal(t, string(constants.StatusRequiresApproval), rows[1][11])
	assert.Equal(t, "180", rows[1][12])
	assert.Contains(t, rows[1][13], "exceeds limit")

	assert.Equal(t, "scan.pdf", rows[2][0])
	assert.Equal(t, failedErr, rows[2][len(rows[2])-1])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc…", truncate("abcdefgh", 4))
}
