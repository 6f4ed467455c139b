package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/finqa/invoice-qc/internal/models"
)

func sampleReport() *models.ValidationReport {
	return &models.ValidationReport{
		Summary: models.ValidationSummary{
			TotalInvoices:   3,
			ValidInvoices:   1,
			InvalidInvoices: 2,
			ErrorCounts: map[string]int{
				"required_fields: Required field 'invoice_number' is missing or empty": 2,
				"currency_validation: Unknown currency code: XYZ":                      1,
			},
			WarningCounts: map[string]int{
				"line_items_total: Line items sum (110": 1,
			},
		},
		Results: []models.InvoiceValidationResult{
			{
				InvoiceID: "INV-1",
				IsValid:   false,
				Errors: []models.ValidationError{
					{Rule: "required_fields", Message: "Required field 'invoice_number' is missing or empty", Field: "invoice_number"},
				},
				Warnings: []models.ValidationError{
					{Rule: "line_items_total", Message: "Line items sum (110.00) doesn't match net_total (100.00), diff: 10.00", Field: "line_items"},
				},
			},
			{InvoiceID: "INV-2", IsValid: true},
		},
	}
}

func TestWriteReport(t *testing.T) {
	w := NewExcelWriter(zap.NewNop())
	path := filepath.Join(t.TempDir(), "report.xlsx")

	require.NoError(t, w.WriteReport(sampleReport(), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Summary", "Results"}, f.GetSheetList())

	cell := func(sheet, ref string) string {
		v, err := f.GetCellValue(sheet, ref)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "Total invoices", cell("Summary", "A1"))
	assert.Equal(t, "3", cell("Summary", "B1"))
	assert.Equal(t, "Valid invoices", cell("Summary", "A2"))
	assert.Equal(t, "1", cell("Summary", "B2"))
	assert.Equal(t, "Invalid invoices", cell("Summary", "A3"))
	assert.Equal(t, "2", cell("Summary", "B3"))

	// Error buckets sorted by count descending below the header row.
	assert.Equal(t, "Errors", cell("Summary", "A5"))
	assert.Equal(t, "required_fields: Required field 'invoice_number' is missing or empty", cell("Summary", "A6"))
	assert.Equal(t, "2", cell("Summary", "B6"))
	assert.Equal(t, "currency_validation: Unknown currency code: XYZ", cell("Summary", "A7"))
	assert.Equal(t, "1", cell("Summary", "B7"))

	assert.Equal(t, "Invoice ID", cell("Results", "A1"))
	assert.Equal(t, "Message", cell("Results", "E1"))
	assert.Equal(t, "INV-1", cell("Results", "A2"))
	assert.Equal(t, "error", cell("Results", "B2"))
	assert.Equal(t, "required_fields", cell("Results", "C2"))
	assert.Equal(t, "INV-1", cell("Results", "A3"))
	assert.Equal(t, "warning", cell("Results", "B3"))
	assert.Equal(t, "line_items", cell("Results", "D3"))
}

func TestWriteReport_BadPath(t *testing.T) {
	w := NewExcelWriter(zap.NewNop())
	err := w.WriteReport(sampleReport(), filepath.Join(t.TempDir(), "no-such-dir", "report.xlsx"))
	assert.Error(t, err)
}

func TestSortedBuckets(t *testing.T) {
	counts := map[string]int{"b": 2, "a": 2, "c": 5}
	got := sortedBuckets(counts)
	require.Len(t, got, 3)
	assert.Equal(t, bucket{key: "c", count: 5}, got[0])
	assert.Equal(t, bucket{key: "a", count: 2}, got[1])
	assert.Equal(t, bucket{key: "b", count: 2}, got[2])
}
