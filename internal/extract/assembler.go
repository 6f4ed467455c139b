package extract

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/finqa/invoice-qc/internal/models"
)

// FallbackExtractor is an optional second-chance extractor consulted when
// pattern extraction comes up nearly empty for a document.
type FallbackExtractor interface {
	Extract(ctx context.Context, text string) (*models.Invoice, error)
}

// Assembler combines field and table extraction into one invoice record
// per source document. Failures are isolated per document: one bad
// document never aborts a batch.
type Assembler struct {
	fields   *FieldExtractor
	fallback FallbackExtractor
	workers  int
	logger   *zap.Logger
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithFallback installs a second-chance extractor, used only when pattern
// extraction found neither an invoice number nor a gross total.
func WithFallback(fb FallbackExtractor) Option {
	return func(a *Assembler) { a.fallback = fb }
}

// WithWorkers sets the number of concurrent document extractions for
// ExtractBatch. Values below 2 mean serial processing.
func WithWorkers(n int) Option {
	return func(a *Assembler) { a.workers = n }
}

// NewAssembler creates a new invoice assembler.
func NewAssembler(logger *zap.Logger, opts ...Option) *Assembler {
	a := &Assembler{
		fields: NewFieldExtractor(logger),
		logger: logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ExtractDocument produces one invoice record for one document. Whatever
// goes wrong, the returned record carries at least the source file
// identifier so the document still appears in downstream reports.
func (a *Assembler) ExtractDocument(ctx context.Context, doc models.Document) (inv models.Invoice) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("document extraction failed",
				zap.String("source_file", doc.SourceFile),
				zap.Any("panic", r))
			inv = models.Invoice{SourceFile: models.String(doc.SourceFile)}
		}
	}()

	inv = a.fields.ExtractFields(doc.Text)
	inv.LineItems = ExtractLineItems(doc.Tables)
	inv.SourceFile = models.String(doc.SourceFile)

	if a.fallback != nil && inv.InvoiceNumber == nil && inv.GrossTotal == nil {
		a.logger.Warn("pattern extraction found no invoice number or total, trying fallback",
			zap.String("source_file", doc.SourceFile))
		fb, err := a.fallback.Extract(ctx, doc.Text)
		if err != nil {
			// Degrade to the pattern result, never to a document failure.
			a.logger.Warn("fallback extraction failed",
				zap.String("source_file", doc.SourceFile),
				zap.Error(err))
		} else if fb != nil {
			mergeMissing(&inv, fb)
		}
	}

	return inv
}

// ExtractBatch extracts every document, preserving input order in the
// result. Documents are independent, so extraction runs on a bounded
// worker pool when configured; the output is identical to a serial run.
func (a *Assembler) ExtractBatch(ctx context.Context, docs []models.Document) []models.Invoice {
	invoices := make([]models.Invoice, len(docs))

	if a.workers < 2 || len(docs) < 2 {
		for i, doc := range docs {
			invoices[i] = a.ExtractDocument(ctx, doc)
		}
		return invoices
	}

	sem := make(chan struct{}, a.workers)
	var wg sync.WaitGroup
	for i := range docs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			invoices[i] = a.ExtractDocument(ctx, docs[i])
		}(i)
	}
	wg.Wait()

	return invoices
}

// mergeMissing copies fallback values into fields the pattern pass left
// absent. Pattern results always win where present.
func mergeMissing(dst *models.Invoice, src *models.Invoice) {
	if dst.InvoiceNumber == nil {
		dst.InvoiceNumber = src.InvoiceNumber
	}
	if dst.ExternalReference == nil {
		dst.ExternalReference = src.ExternalReference
	}
	if dst.InvoiceDate == nil {
		dst.InvoiceDate = src.InvoiceDate
	}
	if dst.DueDate == nil {
		dst.DueDate = src.DueDate
	}
	if dst.SellerName == nil {
		dst.SellerName = src.SellerName
	}
	if dst.SellerAddress == nil {
		dst.SellerAddress = src.SellerAddress
	}
	if dst.SellerTaxID == nil {
		dst.SellerTaxID = src.SellerTaxID
	}
	if dst.BuyerName == nil {
		dst.BuyerName = src.BuyerName
	}
	if dst.BuyerAddress == nil {
		dst.BuyerAddress = src.BuyerAddress
	}
	if dst.BuyerTaxID == nil {
		dst.BuyerTaxID = src.BuyerTaxID
	}
	if dst.Currency == nil {
		dst.Currency = src.Currency
	}
	if dst.NetTotal == nil {
		dst.NetTotal = src.NetTotal
	}
	if dst.TaxAmount == nil {
		dst.TaxAmount = src.TaxAmount
	}
	if dst.GrossTotal == nil {
		dst.GrossTotal = src.GrossTotal
	}
	if dst.PaymentTerms == nil {
		dst.PaymentTerms = src.PaymentTerms
	}
	if len(dst.LineItems) == 0 {
		dst.LineItems = src.LineItems
	}
}
