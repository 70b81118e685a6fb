package impact

import (
	"math"
	"testing"

	"receipt-impact/src/pkg/parser"
	"receipt-impact/src/pkg/products"
)

func receiptOf(total, green int, co2 float64) []products.ClassifiedProduct {
	items := make([]products.ClassifiedProduct, total)
	for index := range items {
		items[index] = products.ClassifiedProduct{
			ParsedProduct: parser.ParsedProduct{Name: "PRODUCTO", Quantity: 1, Unit: "un", Price: 1},
			Category:      "Varios",
			Co2Factor:     co2,
			IsLocal:       index < green,
		}
	}
	return items
}

func TestAnalyzeGreenReceipt(t *testing.T) {
	analysis, e := NewAggregator(&ThresholdTable{}).Analyze(receiptOf(10, 7, 3.5), "generic")
	if e != nil {
		t.Fatalf("Analyze() error = %v", e)
	}
	if analysis.GreenPercentage != 70 || analysis.EnvironmentalTier != TierGreen || !analysis.IsGreenReceipt {
		t.Fatalf("got %+v, want 70%% GREEN", analysis)
	}
	if math.Abs(analysis.Co2Average-3.5) > 1e-9 || math.Abs(analysis.Co2Total-35) > 1e-9 {
		t.Fatalf("co2 total/average = %v/%v", analysis.Co2Total, analysis.Co2Average)
	}
	if len(analysis.Breakdown) != 10 || analysis.Breakdown[0].Reasons[0] != "local product" {
		t.Fatalf("breakdown = %+v", analysis.Breakdown)
	}
}

func TestAnalyzeYellowReceipt(t *testing.T) {
	analysis, e := NewAggregator(&ThresholdTable{}).Analyze(receiptOf(10, 4, 5.0), "generic")
	if e != nil {
		t.Fatalf("Analyze() error = %v", e)
	}
	if analysis.GreenPercentage != 40 || analysis.EnvironmentalTier != TierYellow || analysis.IsGreenReceipt {
		t.Fatalf("got %+v, want 40%% YELLOW", analysis)
	}
}

func TestAnalyzeWeighsQuantity(t *testing.T) {
	items := receiptOf(2, 0, 2.0)
	items[0].Quantity = 1.5
	analysis, _ := NewAggregator(&ThresholdTable{}).Analyze(items, "generic")
	if math.Abs(analysis.Co2Total-5.0) > 1e-9 || math.Abs(analysis.Co2Average-2.5) > 1e-9 {
		t.Fatalf("co2 total/average = %v/%v, want 5/2.5", analysis.Co2Total, analysis.Co2Average)
	}
}

func TestAnalyzeEmptyReceipt(t *testing.T) {
	if _, e := NewAggregator(&ThresholdTable{}).Analyze(nil, "generic"); e == nil {
		t.Fatalf("expected an error for an empty receipt")
	}
}

func TestImpactLevel(t *testing.T) {
	table := &ThresholdTable{
		Default: map[string]Threshold{"Carnes": {Low: 5, Medium: 15, High: 30}},
		Stores:  map[string]map[string]Threshold{"dia": {"Carnes": {Low: 4, Medium: 10, High: 20}}},
	}
	aggregator := NewAggregator(table)

	tests := []struct {
		store    string
		category string
		co2      float64
		want     ImpactLevel
	}{
		{"generic", "Carnes", 5, ImpactLow},
		{"generic", "Carnes", 15, ImpactMedium},
		{"generic", "Carnes", 30, ImpactHigh},
		{"generic", "Carnes", 30.1, ImpactVeryHigh},
		{"dia", "Carnes", 5, ImpactMedium},
		{"DIA", "Carnes", 21, ImpactVeryHigh},
		{"generic", "Desconocida", 0.1, DefaultImpactLevel},
	}
	for _, tt := range tests {
		if got := aggregator.ImpactLevel(tt.store, tt.category, tt.co2); got != tt.want {
			t.Errorf("ImpactLevel(%s, %s, %v) = %s, want %s", tt.store, tt.category, tt.co2, got, tt.want)
		}
	}
}

func TestLowImpactCountsAsGreen(t *testing.T) {
	table := &ThresholdTable{Default: map[string]Threshold{"Frutas": {Low: 0.5, Medium: 1.5, High: 3}}}
	items := receiptOf(1, 0, 0.4)
	items[0].Category = "Frutas"

	analysis, _ := NewAggregator(table).Analyze(items, "generic")
	if analysis.GreenProducts != 1 || analysis.Breakdown[0].ImpactLevel != ImpactLow {
		t.Fatalf("got %+v", analysis)
	}
}

// The receipt flag and the tier are computed separately; this pins that they agree today.
func TestIsGreenReceiptMatchesGreenTier(t *testing.T) {
	tests := []struct {
		percentage int
		average    float64
		tier       Tier
	}{
		{60, 3.99, TierGreen},
		{60, 4.0, TierYellow},
		{59, 1.0, TierYellow},
		{100, 0, TierGreen},
		{30, 6.99, TierYellow},
		{29, 1.0, TierRed},
		{90, 7.0, TierRed},
	}
	for _, tt := range tests {
		if got := tierFor(tt.percentage, tt.average); got != tt.tier {
			t.Errorf("tierFor(%d, %v) = %s, want %s", tt.percentage, tt.average, got, tt.tier)
		}
		if got := isGreenReceipt(tt.percentage, tt.average); got != (tt.tier == TierGreen) {
			t.Errorf("isGreenReceipt(%d, %v) = %v, tier %s", tt.percentage, tt.average, got, tt.tier)
		}
	}
}
