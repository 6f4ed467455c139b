package validate

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/finqa/invoice-qc/internal/models"
)

// Validator runs a rule catalog over invoice batches and aggregates the
// findings into a report. It holds no mutable state across calls; one
// instance is safe for concurrent use over independent batches.
type Validator struct {
	rules  []Rule
	logger *zap.Logger
}

// NewValidator creates a validator with the given rule catalog. A nil
// catalog means the default one.
func NewValidator(rules []Rule, logger *zap.Logger) *Validator {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Validator{rules: rules, logger: logger}
}

// Rules returns the catalog in evaluation order.
func (v *Validator) Rules() []Rule {
	return v.rules
}

// ValidateInvoice evaluates every rule against one invoice, routing each
// finding by its rule's fixed severity. batch may be nil, which disables
// batch-scope rules.
func (v *Validator) ValidateInvoice(inv *models.Invoice, batch []models.Invoice) models.InvoiceValidationResult {
	result := models.InvoiceValidationResult{
		InvoiceID: invoiceID(inv),
		Errors:    []models.ValidationError{},
		Warnings:  []models.ValidationError{},
	}

	for _, rule := range v.rules {
		findings := rule.Evaluate(inv, batch)
		if rule.Severity() == SeverityWarning {
			result.Warnings = append(result.Warnings, findings...)
		} else {
			result.Errors = append(result.Errors, findings...)
		}
	}

	result.IsValid = len(result.Errors) == 0
	return result
}

// ValidateBatch validates every invoice against the full batch and builds
// the report. Results preserve batch order and rules run in catalog
// order, so the report is reproducible for identical input. A panicking
// rule is surfaced as a hard error, distinct from rule findings.
func (v *Validator) ValidateBatch(invoices []models.Invoice) (report *models.ValidationReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("validation engine fault", zap.Any("panic", r))
			report = nil
			err = fmt.Errorf("validation engine fault: %v", r)
		}
	}()

	v.logger.Info("validating invoice batch", zap.Int("count", len(invoices)))

	results := make([]models.InvoiceValidationResult, 0, len(invoices))
	for i := range invoices {
		results = append(results, v.ValidateInvoice(&invoices[i], invoices))
	}

	return &models.ValidationReport{
		Summary: summarize(results),
		Results: results,
	}, nil
}

// summarize recomputes the summary from the full result set. Count keys
// are "rule: message-before-first-period", which deliberately collapses
// messages differing only in numeric detail into one bucket.
func summarize(results []models.InvoiceValidationResult) models.ValidationSummary {
	summary := models.ValidationSummary{
		TotalInvoices: len(results),
		ErrorCounts:   map[string]int{},
		WarningCounts: map[string]int{},
	}

	for _, r := range results {
		if r.IsValid {
			summary.ValidInvoices++
		}
		for _, e := range r.Errors {
			summary.ErrorCounts[countKey(e)]++
		}
		for _, w := range r.Warnings {
			summary.WarningCounts[countKey(w)]++
		}
	}
	summary.InvalidInvoices = summary.TotalInvoices - summary.ValidInvoices

	return summary
}

func countKey(e models.ValidationError) string {
	head, _, _ := strings.Cut(e.Message, ".")
	return e.Rule + ": " + head
}

// invoiceID picks the identifier used in results: the invoice number,
// else the source file, else "unknown".
func invoiceID(inv *models.Invoice) string {
	if presentText(inv.InvoiceNumber) {
		return *inv.InvoiceNumber
	}
	if presentText(inv.SourceFile) {
		return *inv.SourceFile
	}
	return "unknown"
}
