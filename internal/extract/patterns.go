package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Recognition patterns per field. Each list is ordered: the first pattern
// that matches anywhere in the text wins, so an explicit label always
// beats a bare token further down the list. The ordering is part of the
// observable contract and must not be "improved" by scoring.

var invoiceNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Invoice\s*(?:Number|No\.?|#)\s*:?\s*([A-Z0-9-]+)`),
	regexp.MustCompile(`(?i)Invoice\s+([A-Z0-9-]+)`),
	regexp.MustCompile(`(?i)INV[-\s]*([0-9]+)`),
}

var invoiceDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:Invoice\s+)?Date\s*:?\s*(\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4})`),
	regexp.MustCompile(`(?i)Date\s*:?\s*(\d{4}[-/.]\d{2}[-/.]\d{2})`),
	regexp.MustCompile(`(?i)(\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{4})`),
}

var dueDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:Due\s+)?(?:Date|By)\s*:?\s*(\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4})`),
	regexp.MustCompile(`(?i)Payment\s+Due\s*:?\s*(\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4})`),
	regexp.MustCompile(`(?i)Due\s*:?\s*(\d{4}[-/.]\d{2}[-/.]\d{2})`),
}

// Currency codes are matched case-sensitively; a lowercase "usd" in
// running text is not treated as a currency.
var currencyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(USD|EUR|GBP|INR|JPY|CNY|CAD|AUD)\b`),
	regexp.MustCompile(`([€$£¥])`),
}

var currencySymbols = map[string]string{
	"€": "EUR",
	"$": "USD",
	"£": "GBP",
	"¥": "JPY",
}

var taxIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:VAT|Tax|GST)\s*(?:ID|No|Number)?\s*:?\s*([A-Z0-9]+)`),
	regexp.MustCompile(`(?i)Tax\s+ID\s*:?\s*([A-Z0-9-]+)`),
}

var (
	netTotalPattern     = regexp.MustCompile(`(?i)(?:Subtotal|Net\s+Total|Net)\s*:?\s*[€$£¥]?\s*([0-9,]+\.?\d{0,2})`)
	taxAmountPattern    = regexp.MustCompile(`(?i)(?:Tax|VAT|GST)(?:\s+Amount)?\s*:?\s*[€$£¥]?\s*([0-9,]+\.?\d{0,2})`)
	grossTotalPattern   = regexp.MustCompile(`(?i)(?:Total|Grand\s+Total|Amount\s+Due)\s*:?\s*[€$£¥]?\s*([0-9,]+\.?\d{0,2})`)
	paymentTermsPattern = regexp.MustCompile(`(?i)(?:Payment\s+Terms|Terms)\s*:?\s*([^\n]+)`)
)

// Party section labels. A block starts at a label line and runs until the
// next recognized section label.
var (
	sellerLabelPattern = regexp.MustCompile(`(?i)^\s*(?:From|Seller|Vendor|Supplier)\b\s*:?\s*(.*)$`)
	buyerLabelPattern  = regexp.MustCompile(`(?i)^\s*(?:Bill\s+To|To|Customer|Buyer)\b\s*:?\s*(.*)$`)
	sellerStopPattern  = regexp.MustCompile(`(?i)^\s*(?:To|Bill|Customer)`)
	buyerStopPattern   = regexp.MustCompile(`(?i)^\s*(?:Invoice|Date)`)
)

// dateLayouts is the fixed ordered list of accepted date formats:
// day/month/year first, then month/day/year, ISO, dashed, dotted, and
// "day Month year" with full then abbreviated month names.
var dateLayouts = []string{
	"2/1/2006",
	"1/2/2006",
	"2006-01-02",
	"2-1-2006",
	"2.1.2006",
	"2 January 2006",
	"2 Jan 2006",
}

// normalizeDate converts a captured date string to YYYY-MM-DD using the
// first layout that parses. An unrecognized value is returned verbatim;
// sanity checking is the rule engine's job, not the extractor's.
func normalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return raw
}

// parseAmount parses a monetary string, tolerating thousands separators.
// Any parse failure yields 0.0: a failed parse is indistinguishable from
// a genuine zero downstream. Callers must not treat zero as trustworthy.
func parseAmount(s string) float64 {
	cleaned := strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0.0
	}
	return v
}

// parseQuantity parses a quantity cell, returning nil on failure so the
// field stays absent rather than being coerced to zero.
func parseQuantity(s string) *float64 {
	cleaned := strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &v
}

// firstMatch applies an ordered pattern list and returns the first
// capture group of the first pattern that matches.
func firstMatch(patterns []*regexp.Regexp, text string) (string, bool) {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); len(m) > 1 {
			return strings.TrimSpace(m[1]), true
		}
	}
	return "", false
}
