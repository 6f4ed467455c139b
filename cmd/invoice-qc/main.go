// Command invoice-qc extracts structured data from PDF invoices and
// checks it against the quality-control rule catalog.
//
//	invoice-qc extract  -pdf-dir DIR -output FILE
//	invoice-qc validate -input FILE -report FILE [-excel FILE]
//	invoice-qc full-run -pdf-dir DIR -report FILE [-save-extracted FILE] [-excel FILE]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime"
	"sort"

	"go.uber.org/zap"

	"github.com/finqa/invoice-qc/internal/export"
	"github.com/finqa/invoice-qc/internal/extract"
	"github.com/finqa/invoice-qc/internal/models"
	"github.com/finqa/invoice-qc/internal/pdf"
	"github.com/finqa/invoice-qc/internal/validate"
	"github.com/finqa/invoice-qc/pkg/utils"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      "warn",
		OutputPath: "stderr",
		Format:     "console",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	switch os.Args[1] {
	case "extract":
		err = runExtract(os.Args[2:], logger)
	case "validate":
		err = runValidate(os.Args[2:], logger)
	case "full-run":
		err = runFullRun(os.Args[2:], logger)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: invoice-qc <extract|validate|full-run> [flags]")
}

func runExtract(args []string, logger *zap.Logger) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	pdfDir := fs.String("pdf-dir", "", "directory containing PDF invoices")
	output := fs.String("output", "", "output JSON file for extracted data")
	fs.Parse(args)

	if *pdfDir == "" || *output == "" {
		return fmt.Errorf("extract requires -pdf-dir and -output")
	}

	invoices, err := extractDirectory(*pdfDir, logger)
	if err != nil {
		return err
	}
	if err := writeJSON(*output, invoices); err != nil {
		return err
	}

	fmt.Printf("Extracted %d invoices\n", len(invoices))
	fmt.Printf("Saved to %s\n", *output)
	return nil
}

func runValidate(args []string, logger *zap.Logger) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	input := fs.String("input", "", "input JSON file with extracted invoices")
	reportPath := fs.String("report", "", "output JSON file for validation report")
	excelPath := fs.String("excel", "", "optional .xlsx export of the report")
	fs.Parse(args)

	if *input == "" || *reportPath == "" {
		return fmt.Errorf("validate requires -input and -report")
	}

	data, err := os.ReadFile(*input)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", *input, err)
	}
	var invoices []models.Invoice
	if err := json.Unmarshal(data, &invoices); err != nil {
		return fmt.Errorf("failed to parse %s: %w", *input, err)
	}

	return validateAndReport(invoices, *reportPath, *excelPath, logger)
}

func runFullRun(args []string, logger *zap.Logger) error {
	fs := flag.NewFlagSet("full-run", flag.ExitOnError)
	pdfDir := fs.String("pdf-dir", "", "directory containing PDF invoices")
	reportPath := fs.String("report", "", "output JSON file for validation report")
	saveExtracted := fs.String("save-extracted", "", "optionally save extracted data")
	excelPath := fs.String("excel", "", "optional .xlsx export of the report")
	fs.Parse(args)

	if *pdfDir == "" || *reportPath == "" {
		return fmt.Errorf("full-run requires -pdf-dir and -report")
	}

	invoices, err := extractDirectory(*pdfDir, logger)
	if err != nil {
		return err
	}
	fmt.Printf("Extracted %d invoices\n", len(invoices))

	if *saveExtracted != "" {
		if err := writeJSON(*saveExtracted, invoices); err != nil {
			return err
		}
		fmt.Printf("Saved extracted data to %s\n", *saveExtracted)
	}

	return validateAndReport(invoices, *reportPath, *excelPath, logger)
}

func extractDirectory(dir string, logger *zap.Logger) ([]models.Invoice, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("directory %s does not exist", dir)
	}

	reader := pdf.NewReader(logger)
	docs, err := reader.ReadDirectory(dir)
	if err != nil {
		return nil, err
	}

	assembler := extract.NewAssembler(logger, extract.WithWorkers(runtime.NumCPU()))
	return assembler.ExtractBatch(context.Background(), docs), nil
}

func validateAndReport(invoices []models.Invoice, reportPath, excelPath string, logger *zap.Logger) error {
	validator := validate.NewValidator(nil, logger)
	report, err := validator.ValidateBatch(invoices)
	if err != nil {
		return err
	}

	if err := writeJSON(reportPath, report); err != nil {
		return err
	}
	if excelPath != "" {
		if err := export.NewExcelWriter(logger).WriteReport(report, excelPath); err != nil {
			return err
		}
		fmt.Printf("Excel report saved to %s\n", excelPath)
	}

	printSummary(report)
	fmt.Printf("Validation report saved to %s\n", reportPath)

	if report.Summary.InvalidInvoices > 0 {
		os.Exit(1)
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func printSummary(report *models.ValidationReport) {
	s := report.Summary

	fmt.Println("============================================================")
	fmt.Println(" VALIDATION SUMMARY")
	fmt.Println("============================================================")
	fmt.Printf("Total Invoices:   %d\n", s.TotalInvoices)
	fmt.Printf("Valid Invoices:   %d\n", s.ValidInvoices)
	fmt.Printf("Invalid Invoices: %d\n", s.InvalidInvoices)

	printBuckets("Top Errors:", s.ErrorCounts)
	printBuckets("Warnings:", s.WarningCounts)
	fmt.Println("============================================================")
}

func printBuckets(title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	type bucket struct {
		key   string
		count int
	}
	buckets := make([]bucket, 0, len(counts))
	for k, c := range counts {
		buckets = append(buckets, bucket{k, c})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].count != buckets[j].count {
			return buckets[i].count > buckets[j].count
		}
		return buckets[i].key < buckets[j].key
	})
	if len(buckets) > 5 {
		buckets = buckets[:5]
	}

	fmt.Println()
	fmt.Println(title)
	for _, b := range buckets {
		fmt.Printf("  [%dx] %s\n", b.count, b.key)
	}
}
