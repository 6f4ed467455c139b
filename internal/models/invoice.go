package models

// LineItem is a single row extracted from an invoice line-items table.
// Every field is optional: a nil value means the cell was absent or did
// not parse, never that a zero was read.
type LineItem struct {
	Description *string  `json:"description,omitempty"`
	Quantity    *float64 `json:"quantity,omitempty"`
	UnitPrice   *float64 `json:"unit_price,omitempty"`
	LineTotal   *float64 `json:"line_total,omitempty"`
}

// Invoice is the best-effort record extracted from one source document.
// Extraction never guarantees completeness; a nil field means "not found"
// and only becomes an error through rule evaluation.
type Invoice struct {
	// Identifiers
	InvoiceNumber     *string `json:"invoice_number,omitempty"`
	ExternalReference *string `json:"external_reference,omitempty"`

	// Dates, normalized to YYYY-MM-DD where a known format parsed,
	// otherwise the raw captured string is kept verbatim.
	InvoiceDate *string `json:"invoice_date,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`

	// Seller information
	SellerName    *string `json:"seller_name,omitempty"`
	SellerAddress *string `json:"seller_address,omitempty"`
	SellerTaxID   *string `json:"seller_tax_id,omitempty"`

	// Buyer information
	BuyerName    *string `json:"buyer_name,omitempty"`
	BuyerAddress *string `json:"buyer_address,omitempty"`
	BuyerTaxID   *string `json:"buyer_tax_id,omitempty"`

	// Financial details
	Currency     *string  `json:"currency,omitempty"`
	NetTotal     *float64 `json:"net_total,omitempty"`
	TaxAmount    *float64 `json:"tax_amount,omitempty"`
	GrossTotal   *float64 `json:"gross_total,omitempty"`
	PaymentTerms *string  `json:"payment_terms,omitempty"`

	LineItems []LineItem `json:"line_items,omitempty"`

	// Metadata
	SourceFile *string `json:"source_file,omitempty"`
}

// Table is a rectangular grid of text cells as delivered by the document
// collaborator. The first row is treated as the header; an empty string
// cell means the cell was blank.
type Table [][]string

// Document is the raw per-file input to the extraction pipeline:
// concatenated page text plus zero or more table grids.
type Document struct {
	SourceFile string  `json:"source_file"`
	Text       string  `json:"text"`
	Tables     []Table `json:"tables,omitempty"`
}

// String returns a pointer to s, for filling optional fields.
func String(s string) *string { return &s }

// Float64 returns a pointer to f, for filling optional fields.
func Float64(f float64) *float64 { return &f }
