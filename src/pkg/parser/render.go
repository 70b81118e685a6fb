package parser

import (
	"fmt"
	"strings"
)

// placeholderBarcode anchors products that were built without a barcode.
const placeholderBarcode = "0000000000000"

/*
FormatLines renders a product back into the receipt layout Parse reads:
barcode, name, quantity and price on separate lines.

Parse(Render(Parse(text).Products)) yields the same products.
*/
func FormatLines(p ParsedProduct) []string {
	barcode := p.Barcode
	if !anchorRegexp.MatchString(barcode) {
		barcode = placeholderBarcode
	}

	unit := p.Unit
	if unit == "" {
		unit = DefaultUnit
	}
	quantity := p.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	return []string{
		barcode,
		p.Name,
		fmt.Sprintf("%.3f %s", quantity, unit),
		fmt.Sprintf("%.2f", p.Price),
	}
}

// Render formats every product and joins them into one text block.
func Render(products []ParsedProduct) string {
	lines := make([]string, 0, len(products)*4)
	for _, product := range products {
		lines = append(lines, FormatLines(product)...)
	}
	return strings.Join(lines, "\n")
}
