package parser

import (
	"math"
	"strings"
	"testing"
	"unicode/utf8"
)

const sampleReceipt = `SUPERMERCADO LA ESQUINA S.A.
CUIT 30-12345678-9
2500012000007 MANZANA
ROJA
1.17kg 6.50 X kg 7.61
7790001000012 LECHE ENTERA
3 2.39 X UN 7.17
7790001000029 AB
1.00
7790001000036 QUESO RALLADO
0,250 kg
PROMO 2X1
4,80
7790001000043 PAN LACTAL
*** sin precio ***
GRACIAS POR SU
COMPRA
TOTAL           27.58
`

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestParseWorkedExample(t *testing.T) {
	text := "2500012000007 MANZANA\nROJA\n1.17kg 6.50 X kg 7.61"
	products := Products(text)
	if len(products) != 1 {
		t.Fatalf("got %d products, want 1: %+v", len(products), products)
	}

	got := products[0]
	if got.Name != "MANZANA ROJA" {
		t.Fatalf("name = %q, want MANZANA ROJA", got.Name)
	}
	if !almostEqual(got.Quantity, 1.17) || got.Unit != "kg" {
		t.Fatalf("quantity = %v %s, want 1.17 kg", got.Quantity, got.Unit)
	}
	if !almostEqual(got.Price, 7.61) {
		t.Fatalf("price = %v, want 7.61 (last amount on the line)", got.Price)
	}
	if got.Barcode != "2500012000007" {
		t.Fatalf("barcode = %q", got.Barcode)
	}
}

func TestParseKeepsLastAmountOnPriceLine(t *testing.T) {
	products := Products("7790001000012 LECHE ENTERA\n3 2.39 X UN 7.17")
	if len(products) != 1 {
		t.Fatalf("got %d products, want 1", len(products))
	}
	if !almostEqual(products[0].Price, 7.17) {
		t.Fatalf("price = %v, want 7.17", products[0].Price)
	}
	if products[0].Quantity != 1 || products[0].Unit != DefaultUnit {
		t.Fatalf("quantity = %v %s, want default 1 un", products[0].Quantity, products[0].Unit)
	}
}

func TestParseSampleReceipt(t *testing.T) {
	result := Parse(sampleReceipt)

	wantNames := []string{"MANZANA ROJA", "LECHE ENTERA", "QUESO RALLADO"}
	if len(result.Products) != len(wantNames) {
		t.Fatalf("got %d products, want %d: %+v", len(result.Products), len(wantNames), result.Products)
	}
	for index, name := range wantNames {
		if result.Products[index].Name != name {
			t.Errorf("product %d name = %q, want %q", index, result.Products[index].Name, name)
		}
	}

	queso := result.Products[2]
	if !almostEqual(queso.Quantity, 0.25) || queso.Unit != "kg" || !almostEqual(queso.Price, 4.80) {
		t.Fatalf("queso = %+v, want 0.25 kg at 4.80", queso)
	}

	reasons := map[string]string{}
	for _, discard := range result.Discarded {
		reasons[discard.Barcode] = discard.Reason
	}
	if !strings.Contains(reasons["7790001000029"], "shorter") {
		t.Errorf("short name discard reason = %q", reasons["7790001000029"])
	}
	if reasons["7790001000043"] != "no price found" {
		t.Errorf("missing price discard reason = %q", reasons["7790001000043"])
	}
}

func TestParseInvariants(t *testing.T) {
	inputs := []string{
		sampleReceipt,
		"2500012000007 " + strings.Repeat("PRODUCTO MUY LARGO ", 5) + "\n1 un 3.10",
		"\r\n7790001000012 YOGUR\r\nFRUTILLA\r\nDESCREMADO\r\n1,000 un   1.99\r\n",
		"7790001000012 ARROZ\n0.00\n7790001000029 FIDEOS\n12345.00\n7790001000036 HARINA\n0.99",
	}
	for _, input := range inputs {
		for _, p := range Products(input) {
			length := utf8.RuneCountInString(p.Name)
			if length < MinNameLength || length > MaxNameLength {
				t.Errorf("name %q has %d runes", p.Name, length)
			}
			if p.Price <= 0 || p.Price >= MaxPrice {
				t.Errorf("price %v out of range for %q", p.Price, p.Name)
			}
			if p.Quantity <= 0 {
				t.Errorf("quantity %v not positive for %q", p.Quantity, p.Name)
			}
			if p.ParseConfidence < 0 || p.ParseConfidence > 1 {
				t.Errorf("parse confidence %v out of range", p.ParseConfidence)
			}
		}
	}
}

func TestParseDiscardsOutOfRangePrices(t *testing.T) {
	result := Parse("7790001000012 ARROZ\n0.00\n7790001000029 FIDEOS\n12345.00\n7790001000036 HARINA\n0.99")
	if len(result.Products) != 1 || result.Products[0].Name != "HARINA" {
		t.Fatalf("products = %+v, want only HARINA", result.Products)
	}
	if len(result.Discarded) != 2 {
		t.Fatalf("discarded = %+v, want 2", result.Discarded)
	}
}

func TestParseStopsAtNextAnchor(t *testing.T) {
	result := Parse("7790001000012 PAN LACTAL\n7790001000029 QUESO RALLADO\n2.50")
	if len(result.Products) != 1 || result.Products[0].Name != "QUESO RALLADO" {
		t.Fatalf("products = %+v, want only QUESO RALLADO", result.Products)
	}
	if len(result.Discarded) != 1 || result.Discarded[0].Barcode != "7790001000012" {
		t.Fatalf("discarded = %+v", result.Discarded)
	}
}

func TestParseTruncatesLongNames(t *testing.T) {
	long := strings.Repeat("A", 55)
	products := Products("2500012000007 " + long + "\n2.00")
	if len(products) != 1 {
		t.Fatalf("got %d products", len(products))
	}
	if utf8.RuneCountInString(products[0].Name) != MaxNameLength {
		t.Fatalf("name has %d runes, want %d", utf8.RuneCountInString(products[0].Name), MaxNameLength)
	}
	if products[0].ParseConfidence >= 1 {
		t.Fatalf("truncated name kept full confidence")
	}
}

func TestParseNameLookaheadLimit(t *testing.T) {
	products := Products("2500012000007 YOGUR\nFRUTILLA\nDESCREMADO\nEXTRA\n1.99")
	if len(products) != 1 {
		t.Fatalf("got %d products", len(products))
	}
	if products[0].Name != "YOGUR FRUTILLA DESCREMADO" {
		t.Fatalf("name = %q, want two lookahead lines only", products[0].Name)
	}
	if !almostEqual(products[0].Price, 1.99) {
		t.Fatalf("price = %v", products[0].Price)
	}
}

func TestParseIsIdempotentOnRenderedText(t *testing.T) {
	first := Products(sampleReceipt)
	second := Products(Render(first))

	if len(first) != len(second) {
		t.Fatalf("round trip changed product count: %d -> %d", len(first), len(second))
	}
	for index := range first {
		a, b := first[index], second[index]
		if a.Name != b.Name || !almostEqual(a.Price, b.Price) || !almostEqual(a.Quantity, b.Quantity) {
			t.Errorf("round trip changed product %d: %+v -> %+v", index, a, b)
		}
	}
}

func TestNormalizeLines(t *testing.T) {
	got := NormalizeLines("  uno\r\ndos    tres\r\r\n\n  cuatro  ")
	want := []string{"uno", "dos tres", "cuatro"}
	if len(got) != len(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	for index := range want {
		if got[index] != want[index] {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
}

func TestParseQuantityLineDoesNotClosePriceWindow(t *testing.T) {
	products := Products("7790001000036 QUESO RALLADO\n0,250 kg\nPROMO\n4,80")
	if len(products) != 1 {
		t.Fatalf("got %d products, want 1", len(products))
	}
	got := products[0]
	if !almostEqual(got.Quantity, 0.25) || got.Unit != "kg" || !almostEqual(got.Price, 4.80) {
		t.Fatalf("product = %+v, want 0.25 kg at 4.80", got)
	}
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		raw       string
		want      string
		truncated bool
	}{
		{" MANZANA  ROJA ", "MANZANA ROJA", false},
		{"**LECHE 1L**", "LECHE L", false},
		{"CAFÉ-MOLIDO", "CAFÉMOLIDO", false},
		{"AGUA1.5L", "AGUAL", false},
		{"YOGUR 1% DESCREMADO", "YOGUR DESCREMADO", false},
		{strings.Repeat("B", 41), strings.Repeat("B", 40), true},
	}
	for _, tt := range tests {
		got, truncated := cleanName(tt.raw)
		if got != tt.want || truncated != tt.truncated {
			t.Errorf("cleanName(%q) = %q, %v; want %q, %v", tt.raw, got, truncated, tt.want, tt.truncated)
		}
	}
}
