package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/finqa/invoice-qc/internal/models"
)

func TestValidateBatch(t *testing.T) {
	v := NewValidator(nil, zap.NewNop())

	good1 := *validInvoice()
	good2 := *validInvoice()
	good2.InvoiceNumber = models.String("INV-2")
	good2.SourceFile = models.String("inv2.pdf")
	bad := *validInvoice()
	bad.InvoiceNumber = nil
	bad.SourceFile = models.String("inv3.pdf")

	report, err := v.ValidateBatch([]models.Invoice{good1, good2, bad})
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, 3, report.Summary.TotalInvoices)
	assert.Equal(t, 2, report.Summary.ValidInvoices)
	assert.Equal(t, 1, report.Summary.InvalidInvoices)

	require.Len(t, report.Results, 3)
	assert.Equal(t, "INV-1", report.Results[0].InvoiceID)
	assert.Equal(t, "INV-2", report.Results[1].InvoiceID)
	assert.Equal(t, "inv3.pdf", report.Results[2].InvoiceID, "source file stands in for a missing number")
	assert.True(t, report.Results[0].IsValid)
	assert.False(t, report.Results[2].IsValid)

	assert.Equal(t, 1,
		report.Summary.ErrorCounts["required_fields: Required field 'invoice_number' is missing or empty"])
	assert.Empty(t, report.Summary.WarningCounts)
}

func TestValidateBatch_Idempotent(t *testing.T) {
	v := NewValidator(nil, zap.NewNop())

	batch := []models.Invoice{*validInvoice(), {SourceFile: models.String("empty.pdf")}}

	first, err := v.ValidateBatch(batch)
	require.NoError(t, err)
	second, err := v.ValidateBatch(batch)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestValidateBatch_WarningsDoNotInvalidate(t *testing.T) {
	v := NewValidator(nil, zap.NewNop())

	inv := *validInvoice()
	inv.LineItems = []models.LineItem{
		{Description: models.String("x"), LineTotal: models.Float64(500)},
	}

	report, err := v.ValidateBatch([]models.Invoice{inv})
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	assert.True(t, report.Results[0].IsValid)
	assert.Empty(t, report.Results[0].Errors)
	require.Len(t, report.Results[0].Warnings, 1)

	assert.Equal(t, 1, report.Summary.ValidInvoices)
	assert.Empty(t, report.Summary.ErrorCounts)
	assert.Equal(t, 1,
		report.Summary.WarningCounts["line_items_total: Line items sum (500"])
}

// Count keys truncate the message at its first period, so messages that
// differ only in decimal detail land in one bucket.
func TestValidateBatch_SummaryBucketsCollapseNumericDetail(t *testing.T) {
	v := NewValidator(nil, zap.NewNop())

	a := *validInvoice()
	a.GrossTotal = models.Float64(125)
	b := *validInvoice()
	b.InvoiceNumber = models.String("INV-2")
	b.SourceFile = models.String("inv2.pdf")
	b.GrossTotal = models.Float64(130)

	report, err := v.ValidateBatch([]models.Invoice{a, b})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Summary.ErrorCounts["totals_match: Totals mismatch: 100"])
}

type faultyRule struct{}

func (faultyRule) Name() string        { return "faulty" }
func (faultyRule) Description() string { return "always panics" }
func (faultyRule) Severity() Severity  { return SeverityError }
func (faultyRule) Evaluate(_ *models.Invoice, _ []models.Invoice) []models.ValidationError {
	panic("nil map write")
}

func TestValidateBatch_PanickingRuleIsHardFailure(t *testing.T) {
	v := NewValidator([]Rule{faultyRule{}}, zap.NewNop())

	report, err := v.ValidateBatch([]models.Invoice{*validInvoice()})

	require.Error(t, err)
	assert.Nil(t, report)
	assert.EqualError(t, err, "validation engine fault: nil map write")
}

func TestValidateBatch_Empty(t *testing.T) {
	v := NewValidator(nil, zap.NewNop())

	report, err := v.ValidateBatch(nil)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Summary.TotalInvoices)
	assert.Equal(t, 0, report.Summary.InvalidInvoices)
	assert.Empty(t, report.Results)
	assert.NotNil(t, report.Summary.ErrorCounts)
}

func TestValidateInvoice_ResultShape(t *testing.T) {
	v := NewValidator(nil, zap.NewNop())

	t.Run("clean result has empty slices not nil", func(t *testing.T) {
		res := v.ValidateInvoice(validInvoice(), nil)
		assert.True(t, res.IsValid)
		assert.NotNil(t, res.Errors)
		assert.NotNil(t, res.Warnings)
		assert.Empty(t, res.Errors)
	})

	t.Run("unknown id when number and source are absent", func(t *testing.T) {
		res := v.ValidateInvoice(&models.Invoice{}, nil)
		assert.Equal(t, "unknown", res.InvoiceID)
		assert.False(t, res.IsValid)
	})
}

func TestNewValidator_CustomCatalog(t *testing.T) {
	rules := []Rule{CurrencyRule{}}
	v := NewValidator(rules, zap.NewNop())
	assert.Len(t, v.Rules(), 1)

	// An invoice that would fail required_fields passes a catalog
	// containing only the currency rule.
	res := v.ValidateInvoice(&models.Invoice{}, nil)
	assert.True(t, res.IsValid)
}
