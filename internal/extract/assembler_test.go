package extract

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/finqa/invoice-qc/internal/models"
)

type stubFallback struct {
	invoice *models.Invoice
	err     error
	calls   int
}

func (s *stubFallback) Extract(_ context.Context, _ string) (*models.Invoice, error) {
	s.calls++
	return s.invoice, s.err
}

type panickyFallback struct{}

func (panickyFallback) Extract(_ context.Context, _ string) (*models.Invoice, error) {
	panic("model endpoint exploded")
}

func sampleDocument(name string) models.Document {
	return models.Document{
		SourceFile: name,
		Text: `Invoice Number: INV-2024-001
Invoice Date: 15/01/2024
Total: 120.00
Currency: EUR
`,
		Tables: []models.Table{{
			{"Description", "Qty", "Total"},
			{"Widget", "2", "120.00"},
		}},
	}
}

func TestExtractDocument(t *testing.T) {
	a := NewAssembler(zap.NewNop())

	inv := a.ExtractDocument(context.Background(), sampleDocument("inv1.pdf"))

	require.NotNil(t, inv.InvoiceNumber)
	assert.Equal(t, "INV-2024-001", *inv.InvoiceNumber)
	require.NotNil(t, inv.InvoiceDate)
	assert.Equal(t, "2024-01-15", *inv.InvoiceDate)
	require.NotNil(t, inv.GrossTotal)
	assert.Equal(t, 120.00, *inv.GrossTotal)
	require.NotNil(t, inv.Currency)
	assert.Equal(t, "EUR", *inv.Currency)
	require.NotNil(t, inv.SourceFile)
	assert.Equal(t, "inv1.pdf", *inv.SourceFile)
	require.Len(t, inv.LineItems, 1)
	assert.Equal(t, "Widget", *inv.LineItems[0].Description)
}

func TestExtractDocument_EmptyText(t *testing.T) {
	a := NewAssembler(zap.NewNop())

	inv := a.ExtractDocument(context.Background(), models.Document{SourceFile: "blank.pdf"})

	assert.Nil(t, inv.InvoiceNumber)
	assert.Nil(t, inv.GrossTotal)
	assert.Empty(t, inv.LineItems)
	require.NotNil(t, inv.SourceFile)
	assert.Equal(t, "blank.pdf", *inv.SourceFile)
}

func TestExtractDocument_FallbackTriggersOnlyWhenNearlyEmpty(t *testing.T) {
	t.Run("skipped when invoice number present", func(t *testing.T) {
		fb := &stubFallback{invoice: &models.Invoice{Currency: models.String("USD")}}
		a := NewAssembler(zap.NewNop(), WithFallback(fb))

		a.ExtractDocument(context.Background(), models.Document{
			SourceFile: "a.pdf",
			Text:       "Invoice Number: INV-1",
		})

		assert.Zero(t, fb.calls)
	})

	t.Run("skipped when gross total present", func(t *testing.T) {
		fb := &stubFallback{invoice: &models.Invoice{Currency: models.String("USD")}}
		a := NewAssembler(zap.NewNop(), WithFallback(fb))

		a.ExtractDocument(context.Background(), models.Document{
			SourceFile: "a.pdf",
			Text:       "Total: 99.00",
		})

		assert.Zero(t, fb.calls)
	})

	t.Run("runs when both absent", func(t *testing.T) {
		fb := &stubFallback{invoice: &models.Invoice{
			InvoiceNumber: models.String("FB-1"),
			GrossTotal:    models.Float64(50),
		}}
		a := NewAssembler(zap.NewNop(), WithFallback(fb))

		inv := a.ExtractDocument(context.Background(), models.Document{
			SourceFile: "a.pdf",
			Text:       "handwritten scan, nothing recognizable",
		})

		assert.Equal(t, 1, fb.calls)
		require.NotNil(t, inv.InvoiceNumber)
		assert.Equal(t, "FB-1", *inv.InvoiceNumber)
		require.NotNil(t, inv.GrossTotal)
		assert.Equal(t, 50.0, *inv.GrossTotal)
	})
}

func TestExtractDocument_FallbackMergeFillsOnlyMissing(t *testing.T) {
	fb := &stubFallback{invoice: &models.Invoice{
		InvoiceNumber: models.String("FB-1"),
		SellerName:    models.String("Fallback Seller"),
		Currency:      models.String("USD"),
	}}
	a := NewAssembler(zap.NewNop(), WithFallback(fb))

	// Currency matches by pattern; number and seller do not.
	inv := a.ExtractDocument(context.Background(), models.Document{
		SourceFile: "a.pdf",
		Text:       "amounts quoted in EUR",
	})

	require.NotNil(t, inv.InvoiceNumber)
	assert.Equal(t, "FB-1", *inv.InvoiceNumber)
	require.NotNil(t, inv.SellerName)
	assert.Equal(t, "Fallback Seller", *inv.SellerName)
	require.NotNil(t, inv.Currency)
	assert.Equal(t, "EUR", *inv.Currency, "pattern result must win over fallback")
}

func TestExtractDocument_FallbackErrorDegradesToPatternResult(t *testing.T) {
	fb := &stubFallback{err: errors.New("rate limited")}
	a := NewAssembler(zap.NewNop(), WithFallback(fb))

	inv := a.ExtractDocument(context.Background(), models.Document{
		SourceFile: "a.pdf",
		Text:       "amounts quoted in EUR",
	})

	assert.Equal(t, 1, fb.calls)
	assert.Nil(t, inv.InvoiceNumber)
	require.NotNil(t, inv.Currency)
	assert.Equal(t, "EUR", *inv.Currency)
	require.NotNil(t, inv.SourceFile)
	assert.Equal(t, "a.pdf", *inv.SourceFile)
}

func TestExtractDocument_PanicYieldsSkeletonRecord(t *testing.T) {
	a := NewAssembler(zap.NewNop(), WithFallback(panickyFallback{}))

	inv := a.ExtractDocument(context.Background(), models.Document{
		SourceFile: "corrupt.pdf",
		Text:       "no recognizable fields",
	})

	require.NotNil(t, inv.SourceFile)
	assert.Equal(t, "corrupt.pdf", *inv.SourceFile)
	assert.Nil(t, inv.InvoiceNumber)
	assert.Nil(t, inv.Currency)
}

func TestExtractBatch_PreservesOrder(t *testing.T) {
	docs := make([]models.Document, 8)
	for i := range docs {
		docs[i] = models.Document{
			SourceFile: fmt.Sprintf("inv%d.pdf", i),
			Text:       fmt.Sprintf("Invoice Number: INV-%d", i),
		}
	}

	serial := NewAssembler(zap.NewNop()).ExtractBatch(context.Background(), docs)
	parallel := NewAssembler(zap.NewNop(), WithWorkers(4)).ExtractBatch(context.Background(), docs)

	require.Len(t, serial, len(docs))
	for i, inv := range serial {
		require.NotNil(t, inv.InvoiceNumber)
		assert.Equal(t, fmt.Sprintf("INV-%d", i), *inv.InvoiceNumber)
	}
	assert.Equal(t, serial, parallel)
}

func TestExtractBatch_Empty(t *testing.T) {
	a := NewAssembler(zap.NewNop(), WithWorkers(4))
	assert.Empty(t, a.ExtractBatch(context.Background(), nil))
}
