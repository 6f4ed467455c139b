package extract

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/finqa/invoice-qc/internal/models"
)

// FieldExtractor turns raw page text into a partial invoice field set
// using the ordered pattern library.
type FieldExtractor struct {
	logger *zap.Logger
}

// NewFieldExtractor creates a new field extractor.
func NewFieldExtractor(logger *zap.Logger) *FieldExtractor {
	return &FieldExtractor{logger: logger}
}

// ExtractFields applies all field patterns to the text and returns an
// invoice populated with whatever matched. A field that matched nothing
// stays nil; that is never an error at this layer.
func (fe *FieldExtractor) ExtractFields(text string) models.Invoice {
	var inv models.Invoice

	if num, ok := firstMatch(invoiceNumberPatterns, text); ok {
		inv.InvoiceNumber = &num
	}
	if raw, ok := firstMatch(invoiceDatePatterns, text); ok {
		inv.InvoiceDate = models.String(normalizeDate(raw))
	}
	if raw, ok := firstMatch(dueDatePatterns, text); ok {
		inv.DueDate = models.String(normalizeDate(raw))
	}
	inv.Currency = fe.extractCurrency(text)

	fe.extractParties(text, &inv)
	fe.extractFinancials(text, &inv)

	return inv
}

// extractCurrency prefers an explicit ISO code over a bare symbol; known
// symbols are mapped to their ISO codes.
func (fe *FieldExtractor) extractCurrency(text string) *string {
	for _, p := range currencyPatterns {
		m := p.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		cur := m[1]
		if code, ok := currencySymbols[cur]; ok {
			return &code
		}
		return &cur
	}
	return nil
}

// extractParties locates the seller and buyer blocks by their section
// labels and fills name, address and tax id from each block.
func (fe *FieldExtractor) extractParties(text string, inv *models.Invoice) {
	lines := strings.Split(text, "\n")

	if block := findPartyBlock(lines, sellerLabelPattern, sellerStopPattern); len(block) > 0 {
		name, addr := partyNameAddress(block)
		inv.SellerName = name
		inv.SellerAddress = addr
		if taxID, ok := firstMatch(taxIDPatterns, strings.Join(block, "\n")); ok {
			inv.SellerTaxID = &taxID
		}
	}

	if block := findPartyBlock(lines, buyerLabelPattern, buyerStopPattern); len(block) > 0 {
		name, addr := partyNameAddress(block)
		inv.BuyerName = name
		inv.BuyerAddress = addr
		if taxID, ok := firstMatch(taxIDPatterns, strings.Join(block, "\n")); ok {
			inv.BuyerTaxID = &taxID
		}
	}
}

// findPartyBlock returns the lines of the first block opened by label and
// closed by the next stop label (or end of text). The remainder of the
// label line itself is the block's first line.
func findPartyBlock(lines []string, label, stop *regexp.Regexp) []string {
	for i, line := range lines {
		m := label.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		block := []string{m[1]}
		for _, next := range lines[i+1:] {
			if stop.MatchString(next) {
				break
			}
			block = append(block, next)
		}
		return block
	}
	return nil
}

// partyNameAddress reads a party block: the first non-empty line is the
// name, the next one-to-two non-empty lines joined by spaces form the
// address.
func partyNameAddress(block []string) (name, address *string) {
	var kept []string
	for _, l := range block {
		if t := strings.TrimSpace(l); t != "" {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		return nil, nil
	}
	name = models.String(kept[0])
	if len(kept) > 1 {
		end := len(kept)
		if end > 3 {
			end = 3
		}
		address = models.String(strings.Join(kept[1:end], " "))
	}
	return name, address
}

// extractFinancials pulls the three totals and the payment terms. Each
// total is set only when its label matched; the matched amount itself
// goes through the lossy zero-on-failure parse.
func (fe *FieldExtractor) extractFinancials(text string, inv *models.Invoice) {
	if m := netTotalPattern.FindStringSubmatch(text); len(m) > 1 {
		inv.NetTotal = models.Float64(parseAmount(m[1]))
	}
	if m := taxAmountPattern.FindStringSubmatch(text); len(m) > 1 {
		inv.TaxAmount = models.Float64(parseAmount(m[1]))
	}
	if m := grossTotalPattern.FindStringSubmatch(text); len(m) > 1 {
		inv.GrossTotal = models.Float64(parseAmount(m[1]))
	}
	if m := paymentTermsPattern.FindStringSubmatch(text); len(m) > 1 {
		inv.PaymentTerms = models.String(strings.TrimSpace(m[1]))
	}
}
