// Package export renders validation reports into Excel workbooks for
// human review. Sorting buckets by count is a display concern: the report
// itself guarantees no key order.
package export

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/finqa/invoice-qc/internal/models"
)

const (
	summarySheet = "Summary"
	resultsSheet = "Results"
)

// ExcelWriter writes validation reports as .xlsx workbooks.
type ExcelWriter struct {
	logger *zap.Logger
}

// NewExcelWriter creates a new Excel report writer.
func NewExcelWriter(logger *zap.Logger) *ExcelWriter {
	return &ExcelWriter{logger: logger}
}

// WriteReport writes the report to outputPath: a Summary sheet with the
// batch counts and the error/warning buckets sorted by count descending,
// and a Results sheet with one row per finding.
func (w *ExcelWriter) WriteReport(report *models.ValidationReport, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if _, err := f.NewSheet(resultsSheet); err != nil {
		return fmt.Errorf("failed to create results sheet: %w", err)
	}

	w.fillSummary(f, report)
	w.fillResults(f, report)

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	w.logger.Info("report exported",
		zap.String("path", outputPath),
		zap.Int("total_invoices", report.Summary.TotalInvoices))
	return nil
}

func (w *ExcelWriter) fillSummary(f *excelize.File, report *models.ValidationReport) {
	s := report.Summary
	f.SetCellValue(summarySheet, "A1", "Total invoices")
	f.SetCellValue(summarySheet, "B1", s.TotalInvoices)
	f.SetCellValue(summarySheet, "A2", "Valid invoices")
	f.SetCellValue(summarySheet, "B2", s.ValidInvoices)
	f.SetCellValue(summarySheet, "A3", "Invalid invoices")
	f.SetCellValue(summarySheet, "B3", s.InvalidInvoices)

	row := 5
	row = w.fillBuckets(f, "Errors", s.ErrorCounts, row)
	row++
	w.fillBuckets(f, "Warnings", s.WarningCounts, row)
}

func (w *ExcelWriter) fillBuckets(f *excelize.File, title string, counts map[string]int, row int) int {
	f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), title)
	row++
	for _, b := range sortedBuckets(counts) {
		f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), b.key)
		f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), b.count)
		row++
	}
	return row
}

func (w *ExcelWriter) fillResults(f *excelize.File, report *models.ValidationReport) {
	headers := []string{"Invoice ID", "Severity", "Rule", "Field", "Message"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(resultsSheet, cell, h)
	}

	row := 2
	writeFinding := func(invoiceID, severity string, e models.ValidationError) {
		values := []interface{}{invoiceID, severity, e.Rule, e.Field, e.Message}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			f.SetCellValue(resultsSheet, cell, v)
		}
		row++
	}

	for _, result := range report.Results {
		for _, e := range result.Errors {
			writeFinding(result.InvoiceID, "error", e)
		}
		for _, warn := range result.Warnings {
			writeFinding(result.InvoiceID, "warning", warn)
		}
	}
}

type bucket struct {
	key   string
	count int
}

// sortedBuckets orders count buckets by count descending, then key, for
// stable output.
func sortedBuckets(counts map[string]int) []bucket {
	buckets := make([]bucket, 0, len(counts))
	for k, c := range counts {
		buckets = append(buckets, bucket{key: k, count: c})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].count != buckets[j].count {
			return buckets[i].count > buckets[j].count
		}
		return buckets[i].key < buckets[j].key
	})
	return buckets
}
