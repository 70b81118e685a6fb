package parser

import "regexp"

var (
	// crlfRegexp collapses Windows and old-Mac line endings.
	crlfRegexp = regexp.MustCompile(`\r\n?`)

	// wideGapRegexp matches the column padding tesseract keeps with
	// preserve_interword_spaces; runs of 1-2 spaces are left alone.
	wideGapRegexp = regexp.MustCompile(` {3,}`)

	// anchorRegexp marks a product line: an EAN-13 barcode at line start.
	anchorRegexp = regexp.MustCompile(`^\d{13}`)

	// nameLineRegexp admits a lookahead line into the product name.
	nameLineRegexp = regexp.MustCompile(`^[\p{L} ]+$`)

	digitRegexp      = regexp.MustCompile(`\d`)
	nonNameRuneRegex = regexp.MustCompile(`[^\p{L} ]+`)
	spacesRegexp     = regexp.MustCompile(`\s+`)

	// quantityRegexp matches "1.17kg", "0,5 l", "2.000 un", "250.0 g".
	quantityRegexp = regexp.MustCompile(`(?i)(\d+)[.,](\d+)\s*(kg|un|l|g)`)

	// priceRegexp matches two-decimal amounts like "7.61" or "12,40".
	priceRegexp = regexp.MustCompile(`\d+[.,]\d{2}`)
)
