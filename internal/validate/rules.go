package validate

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/finqa/invoice-qc/internal/models"
)

// Severity classifies a rule's findings. Routing is fixed per rule, not
// per finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// DefaultTolerance is the maximum acceptable absolute difference, in
// currency units, before a reconciliation rule reports a mismatch.
const DefaultTolerance = 0.02

// Rule is one quality-control check. Record-scope rules ignore the batch
// argument; batch-scope rules (duplicate detection) need the full batch
// and silently skip when it is absent.
type Rule interface {
	Name() string
	Description() string
	Severity() Severity
	Evaluate(inv *models.Invoice, batch []models.Invoice) []models.ValidationError
}

// DefaultRules returns a fresh copy of the standard rule catalog in its
// fixed evaluation order. Callers own the slice; there is no shared
// global catalog.
func DefaultRules() []Rule {
	return []Rule{
		RequiredFieldsRule{},
		DateFormatRule{},
		CurrencyRule{},
		DueDateRule{},
		TotalsMatchRule{Tolerance: DefaultTolerance},
		LineItemsTotalRule{Tolerance: DefaultTolerance},
		NegativeAmountsRule{},
		DuplicateInvoiceRule{},
	}
}

func finding(rule, message, field string) models.ValidationError {
	return models.ValidationError{Rule: rule, Message: message, Field: field}
}

// RequiredFieldsRule: core invoice fields must be present and, if
// textual, non-blank after trimming.
type RequiredFieldsRule struct{}

func (RequiredFieldsRule) Name() string { return "required_fields" }
func (RequiredFieldsRule) Description() string {
	return "Core invoice fields must be present and non-empty"
}
func (RequiredFieldsRule) Severity() Severity { return SeverityError }

func (r RequiredFieldsRule) Evaluate(inv *models.Invoice, _ []models.Invoice) []models.ValidationError {
	checks := []struct {
		field   string
		present bool
	}{
		{"invoice_number", presentText(inv.InvoiceNumber)},
		{"invoice_date", presentText(inv.InvoiceDate)},
		{"seller_name", presentText(inv.SellerName)},
		{"buyer_name", presentText(inv.BuyerName)},
		{"currency", presentText(inv.Currency)},
		{"gross_total", inv.GrossTotal != nil},
	}

	var errs []models.ValidationError
	for _, c := range checks {
		if !c.present {
			errs = append(errs, finding(r.Name(),
				fmt.Sprintf("Required field '%s' is missing or empty", c.field), c.field))
		}
	}
	return errs
}

// DateFormatRule: dates, if present, must be valid calendar dates with a
// year between 1900 and 2100.
type DateFormatRule struct{}

func (DateFormatRule) Name() string { return "date_format" }
func (DateFormatRule) Description() string {
	return "Dates must be parseable and within reasonable range (1900-2100)"
}
func (DateFormatRule) Severity() Severity { return SeverityError }

func (r DateFormatRule) Evaluate(inv *models.Invoice, _ []models.Invoice) []models.ValidationError {
	var errs []models.ValidationError
	if inv.InvoiceDate != nil && !validDate(*inv.InvoiceDate) {
		errs = append(errs, finding(r.Name(),
			fmt.Sprintf("Invalid invoice_date format: %s", *inv.InvoiceDate), "invoice_date"))
	}
	if inv.DueDate != nil && !validDate(*inv.DueDate) {
		errs = append(errs, finding(r.Name(),
			fmt.Sprintf("Invalid due_date format: %s", *inv.DueDate), "due_date"))
	}
	return errs
}

// CurrencyRule: currency, if present, must come from the allowed set.
type CurrencyRule struct{}

var allowedCurrencies = map[string]bool{
	"EUR": true, "USD": true, "GBP": true, "INR": true, "JPY": true,
	"CNY": true, "CAD": true, "AUD": true, "CHF": true, "SEK": true,
}

func (CurrencyRule) Name() string { return "currency_validation" }
func (CurrencyRule) Description() string {
	return "Currency must be a recognized ISO code"
}
func (CurrencyRule) Severity() Severity { return SeverityError }

func (r CurrencyRule) Evaluate(inv *models.Invoice, _ []models.Invoice) []models.ValidationError {
	if inv.Currency == nil || *inv.Currency == "" || allowedCurrencies[*inv.Currency] {
		return nil
	}
	valid := make([]string, 0, len(allowedCurrencies))
	for c := range allowedCurrencies {
		valid = append(valid, c)
	}
	sort.Strings(valid)
	return []models.ValidationError{finding(r.Name(),
		fmt.Sprintf("Unknown currency code: %s. Valid: %s", *inv.Currency, strings.Join(valid, ", ")),
		"currency")}
}

// DueDateRule: the due date must not be strictly earlier than the invoice
// date. Unparseable dates are skipped here; DateFormatRule already
// reports them, and double-reporting would inflate the counts.
type DueDateRule struct{}

func (DueDateRule) Name() string { return "due_date_logic" }
func (DueDateRule) Description() string {
	return "Due date must be on or after invoice date"
}
func (DueDateRule) Severity() Severity { return SeverityError }

func (r DueDateRule) Evaluate(inv *models.Invoice, _ []models.Invoice) []models.ValidationError {
	if inv.InvoiceDate == nil || inv.DueDate == nil {
		return nil
	}
	invoiceDt, err1 := time.Parse("2006-01-02", *inv.InvoiceDate)
	dueDt, err2 := time.Parse("2006-01-02", *inv.DueDate)
	if err1 != nil || err2 != nil {
		return nil
	}
	if dueDt.Before(invoiceDt) {
		return []models.ValidationError{finding(r.Name(),
			fmt.Sprintf("Due date (%s) is before invoice date (%s)", *inv.DueDate, *inv.InvoiceDate),
			"due_date")}
	}
	return nil
}

// TotalsMatchRule: net_total + tax_amount must equal gross_total within
// the tolerance, checked only when all three are present.
type TotalsMatchRule struct {
	Tolerance float64
}

func (TotalsMatchRule) Name() string { return "totals_match" }
func (TotalsMatchRule) Description() string {
	return "Net total + tax amount should equal gross total (within tolerance)"
}
func (TotalsMatchRule) Severity() Severity { return SeverityError }

func (r TotalsMatchRule) Evaluate(inv *models.Invoice, _ []models.Invoice) []models.ValidationError {
	if inv.NetTotal == nil || inv.TaxAmount == nil || inv.GrossTotal == nil {
		return nil
	}
	calculated := *inv.NetTotal + *inv.TaxAmount
	difference := math.Abs(calculated - *inv.GrossTotal)
	if difference > r.Tolerance {
		return []models.ValidationError{finding(r.Name(),
			fmt.Sprintf("Totals mismatch: %.2f + %.2f = %.2f, but gross_total is %.2f (diff: %.2f)",
				*inv.NetTotal, *inv.TaxAmount, calculated, *inv.GrossTotal, difference),
			"gross_total")}
	}
	return nil
}

// LineItemsTotalRule: the sum of line-item totals should match net_total.
// A warning, not an error: line-item extraction from tables is inherently
// lossy, so a mismatch is suspect rather than damning.
type LineItemsTotalRule struct {
	Tolerance float64
}

func (LineItemsTotalRule) Name() string { return "line_items_total" }
func (LineItemsTotalRule) Description() string {
	return "Sum of line item totals should match net total"
}
func (LineItemsTotalRule) Severity() Severity { return SeverityWarning }

func (r LineItemsTotalRule) Evaluate(inv *models.Invoice, _ []models.Invoice) []models.ValidationError {
	if inv.NetTotal == nil || len(inv.LineItems) == 0 {
		return nil
	}
	sum := 0.0
	for _, item := range inv.LineItems {
		if item.LineTotal != nil {
			sum += *item.LineTotal
		}
	}
	if sum <= 0 {
		// No usable line-item data.
		return nil
	}
	difference := math.Abs(sum - *inv.NetTotal)
	if difference > r.Tolerance {
		return []models.ValidationError{finding(r.Name(),
			fmt.Sprintf("Line items sum (%.2f) doesn't match net_total (%.2f), diff: %.2f",
				sum, *inv.NetTotal, difference),
			"line_items")}
	}
	return nil
}

// NegativeAmountsRule: financial totals must not be negative.
type NegativeAmountsRule struct{}

func (NegativeAmountsRule) Name() string { return "no_negative_amounts" }
func (NegativeAmountsRule) Description() string {
	return "Invoice amounts should not be negative"
}
func (NegativeAmountsRule) Severity() Severity { return SeverityError }

func (r NegativeAmountsRule) Evaluate(inv *models.Invoice, _ []models.Invoice) []models.ValidationError {
	amounts := []struct {
		field string
		value *float64
	}{
		{"net_total", inv.NetTotal},
		{"tax_amount", inv.TaxAmount},
		{"gross_total", inv.GrossTotal},
	}

	var errs []models.ValidationError
	for _, a := range amounts {
		if a.value != nil && *a.value < 0 {
			errs = append(errs, finding(r.Name(),
				fmt.Sprintf("Field '%s' has negative value: %.2f", a.field, *a.value), a.field))
		}
	}
	return errs
}

// DuplicateInvoiceRule: batch-scope. Two invoices with the same number,
// seller and date but different source files are duplicates. Skipped
// entirely when no batch is supplied or the invoice number is absent.
type DuplicateInvoiceRule struct{}

func (DuplicateInvoiceRule) Name() string { return "no_duplicates" }
func (DuplicateInvoiceRule) Description() string {
	return "Invoices should not have duplicate invoice numbers from same seller on same date"
}
func (DuplicateInvoiceRule) Severity() Severity { return SeverityError }

func (r DuplicateInvoiceRule) Evaluate(inv *models.Invoice, batch []models.Invoice) []models.ValidationError {
	if len(batch) == 0 || !presentText(inv.InvoiceNumber) {
		return nil
	}

	var dupFiles []string
	for i := range batch {
		other := &batch[i]
		if ptrEq(other.InvoiceNumber, inv.InvoiceNumber) &&
			ptrEq(other.SellerName, inv.SellerName) &&
			ptrEq(other.InvoiceDate, inv.InvoiceDate) &&
			!ptrEq(other.SourceFile, inv.SourceFile) {
			dupFiles = append(dupFiles, deref(other.SourceFile))
		}
	}
	if len(dupFiles) == 0 {
		return nil
	}
	return []models.ValidationError{finding(r.Name(),
		fmt.Sprintf("Duplicate invoice detected. Same invoice_number (%s) from %s on %s. Duplicates in: %s",
			deref(inv.InvoiceNumber), deref(inv.SellerName), deref(inv.InvoiceDate),
			strings.Join(dupFiles, ", ")),
		"invoice_number")}
}

func presentText(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func validDate(s string) bool {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return false
	}
	return t.Year() >= 1900 && t.Year() <= 2100
}

// ptrEq treats two absent values as equal, matching how duplicate
// candidates with no seller or date still collide on invoice number.
func ptrEq(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
