package models

// ValidationError is a single finding produced by one rule for one invoice.
// It is data, not a control-flow error.
type ValidationError struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// InvoiceValidationResult holds all findings for one invoice. IsValid is
// true iff the invoice produced zero error-severity findings; warnings
// never affect validity.
type InvoiceValidationResult struct {
	InvoiceID string            `json:"invoice_id"`
	IsValid   bool              `json:"is_valid"`
	Errors    []ValidationError `json:"errors"`
	Warnings  []ValidationError `json:"warnings"`
}

// ValidationSummary aggregates counts across one validation pass. The
// count maps are keyed by "rule: message-before-first-period" so that
// messages differing only in numeric detail share a bucket.
type ValidationSummary struct {
	TotalInvoices   int            `json:"total_invoices"`
	ValidInvoices   int            `json:"valid_invoices"`
	InvalidInvoices int            `json:"invalid_invoices"`
	ErrorCounts     map[string]int `json:"error_counts"`
	WarningCounts   map[string]int `json:"warning_counts"`
}

// ValidationReport is the output of one validation pass over one batch.
// Results preserve the input batch order.
type ValidationReport struct {
	Summary ValidationSummary         `json:"summary"`
	Results []InvoiceValidationResult `json:"results"`
}
