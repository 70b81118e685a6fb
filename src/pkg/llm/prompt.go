package llm

import "strings"

const correctionRules = `You fix OCR text extracted from a Spanish supermarket receipt.
Return only the corrected receipt text, one item per line block, with no commentary.

Rules:
1. Keep every 13-digit barcode exactly as written, at the start of its line.
2. Keep every price with exactly two decimals (7.61, 12,40). Do not recompute totals.
3. Merge product names that OCR split across lines into the barcode line.
4. Remove garbage characters before the barcode or the product name.
5. Never invent products, barcodes, quantities or prices that are not in the text.

Example:
Input:
  .:2500012000007 MANZANA
  R0JA
  1.17kg 6.50 X kg 7.61
  7790001000012 LECHE ENTERA
  3 2.39 X UN 7.17
Output:
  2500012000007 MANZANA ROJA
  1.17kg 6.50 X kg 7.61
  7790001000012 LECHE ENTERA
  3 2.39 X UN 7.17
`

// BuildCorrectionPrompt combines the fixed rules with the raw OCR text.
func BuildCorrectionPrompt(rawText string) string {
	var builder strings.Builder
	builder.WriteString(correctionRules)
	builder.WriteString("\nOCR text:\n<<<\n")
	builder.WriteString(strings.TrimSpace(rawText))
	builder.WriteString("\n>>>\n")
	return builder.String()
}
