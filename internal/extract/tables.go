package extract

import (
	"strings"

	"github.com/finqa/invoice-qc/internal/models"
)

// Header vocabularies for recognizing a line-items table. A table
// qualifies iff its header has a description-like column and at least one
// quantity-like or price-like column.
func headerHasDescription(h string) bool {
	return strings.Contains(h, "description") || strings.Contains(h, "item") || strings.Contains(h, "product")
}

func headerHasQuantity(h string) bool {
	return strings.Contains(h, "qty") || strings.Contains(h, "quantity") || strings.Contains(h, "amount")
}

func headerHasPrice(h string) bool {
	return strings.Contains(h, "price") || strings.Contains(h, "rate") || strings.Contains(h, "unit")
}

// ExtractLineItems inspects the table grids, keeps every table that looks
// like a line-items table, and maps its data rows to line items. All
// qualifying tables contribute rows, in grid order.
func ExtractLineItems(tables []models.Table) []models.LineItem {
	var items []models.LineItem

	for _, table := range tables {
		if len(table) < 2 {
			// Need at least a header and one data row.
			continue
		}

		header := make([]string, len(table[0]))
		hasDescription, hasQuantity, hasPrice := false, false, false
		for i, cell := range table[0] {
			header[i] = strings.ToLower(cell)
			if headerHasDescription(header[i]) {
				hasDescription = true
			}
			if headerHasQuantity(header[i]) {
				hasQuantity = true
			}
			if headerHasPrice(header[i]) {
				hasPrice = true
			}
		}
		if !hasDescription || (!hasQuantity && !hasPrice) {
			continue
		}

		for _, row := range table[1:] {
			if blankRow(row) {
				continue
			}
			item := parseLineItemRow(row, header)
			// Description presence is the sole inclusion gate: a row
			// without one is discarded even if numbers parsed.
			if item.Description != nil {
				items = append(items, item)
			}
		}
	}

	return items
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}

// parseLineItemRow maps each cell to a line-item field by its column
// header keyword. Quantity stays absent on a parse failure; unit price
// and line total go through the zero-on-failure amount parse.
func parseLineItemRow(row []string, header []string) models.LineItem {
	var item models.LineItem

	for idx, cell := range row {
		cell = strings.TrimSpace(cell)
		if cell == "" || idx >= len(header) {
			continue
		}
		col := header[idx]

		switch {
		case headerHasDescription(col):
			item.Description = models.String(cell)
		case strings.Contains(col, "qty") || strings.Contains(col, "quantity"):
			item.Quantity = parseQuantity(cell)
		case strings.Contains(col, "unit") && strings.Contains(col, "price"):
			item.UnitPrice = models.Float64(parseAmount(cell))
		case strings.Contains(col, "total") || strings.Contains(col, "amount"):
			item.LineTotal = models.Float64(parseAmount(cell))
		}
	}

	return item
}
