package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"receipt-impact/src/pkg/impact"
	"receipt-impact/src/pkg/receipt"
)

func writeRun(t *testing.T, dir string, startedAt *time.Time, analysis impact.ReceiptAnalysis) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	data, _ := json.Marshal(analysis)
	if err := os.WriteFile(filepath.Join(dir, receipt.AnalysisFileName), data, 0o644); err != nil {
		t.Fatal(err)
	}
	if startedAt != nil {
		run, _ := json.Marshal(map[string]any{"started_at": startedAt.Format(time.RFC3339)})
		if err := os.WriteFile(filepath.Join(dir, "run.json"), run, 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func sampleOutDir(t *testing.T) string {
	t.Helper()
	outDir := t.TempDir()

	early := time.Date(2026, time.October, 3, 10, 0, 0, 0, time.UTC)
	writeRun(t, filepath.Join(outDir, "October-2026", "2026-10-03_10-00-00_aaaaaaaa"), &early, impact.ReceiptAnalysis{
		Store: "dia", TotalProducts: 2, GreenProducts: 2, Co2Total: 1.0,
		EnvironmentalTier: impact.TierGreen, IsGreenReceipt: true,
		Breakdown: []impact.ProductImpact{
			{Name: "MANZANA", Category: "Frutas", Co2: 0.4},
			{Name: "PERA", Category: "Frutas", Co2: 0.6},
		},
	})

	// No run.json: the date comes from the directory name.
	writeRun(t, filepath.Join(outDir, "October-2026", "2026-10-20_18-30-00_bbbbbbbb"), nil, impact.ReceiptAnalysis{
		Store: "coto", TotalProducts: 2, GreenProducts: 0, Co2Total: 29.0,
		EnvironmentalTier: impact.TierRed,
		Breakdown: []impact.ProductImpact{
			{Name: "CARNE PICADA", Category: "Carnes", Co2: 27.0},
			{Name: "LECHE", Category: "Lácteos", Co2: 2.0},
		},
	})

	september := time.Date(2026, time.September, 30, 23, 0, 0, 0, time.UTC)
	writeRun(t, filepath.Join(outDir, "September-2026", "2026-09-30_23-00-00_cccccccc"), &september, impact.ReceiptAnalysis{
		Store: "jumbo", TotalProducts: 1, Co2Total: 100, EnvironmentalTier: impact.TierRed,
		Breakdown: []impact.ProductImpact{{Name: "QUESO", Category: "Lácteos", Co2: 100}},
	})
	return outDir
}

func TestBuildAggregatesSelectedMonth(t *testing.T) {
	options := Options{OutDir: sampleOutDir(t), Year: 2026, Month: time.October, Timezone: "UTC", MaxRows: 10}

	monthly, e := Build(options)
	if e != nil {
		t.Fatalf("Build() error = %v", e)
	}
	if monthly.ReceiptCount != 2 || monthly.ProductCount != 4 || monthly.GreenProducts != 2 {
		t.Fatalf("counts = %d receipts, %d products, %d green", monthly.ReceiptCount, monthly.ProductCount, monthly.GreenProducts)
	}
	if monthly.GreenPercentage != 50 || monthly.GreenReceipts != 1 {
		t.Fatalf("green = %d%%, %d receipts", monthly.GreenPercentage, monthly.GreenReceipts)
	}
	if monthly.Co2Total != 30 || monthly.Co2PerReceipt != 15 {
		t.Fatalf("co2 = %v total, %v per receipt", monthly.Co2Total, monthly.Co2PerReceipt)
	}
	if monthly.Tiers[impact.TierGreen] != 1 || monthly.Tiers[impact.TierRed] != 1 {
		t.Fatalf("tiers = %v", monthly.Tiers)
	}

	if len(monthly.Rows) != 3 {
		t.Fatalf("rows = %+v", monthly.Rows)
	}
	top := monthly.Rows[0]
	if top.Category != "Carnes" || top.BarPercent != 90 {
		t.Fatalf("top row = %+v", top)
	}
	if monthly.Rows[2].Category != "Frutas" || monthly.Rows[2].ProductCount != 2 {
		t.Fatalf("last row = %+v", monthly.Rows[2])
	}
}

func TestBuildGroupsOverflowRows(t *testing.T) {
	byCategory := map[string]*CategoryRow{}
	for index, name := range []string{"A", "B", "C", "D", "E"} {
		byCategory[name] = &CategoryRow{Category: name, Co2: float64(10 - index), ProductCount: 1}
	}
	rows := buildCategoryRows(byCategory, 40, 3)
	if len(rows) != 3 {
		t.Fatalf("rows = %+v", rows)
	}
	other := rows[2]
	if other.Category != otherCategory || other.Co2 != 21 || other.ProductCount != 3 {
		t.Fatalf("other row = %+v", other)
	}
}

func TestShareKeepsTinyValuesVisible(t *testing.T) {
	if _, bar := share(0.01, 1000); bar != 1 {
		t.Fatalf("bar = %d, want 1", bar)
	}
	if percent, bar := share(5, 0); percent != 0 || bar != 0 {
		t.Fatalf("zero total = %v, %d", percent, bar)
	}
}

func TestBuildRejectsInvalidMonth(t *testing.T) {
	if _, e := Build(Options{OutDir: t.TempDir(), Year: 2026, Month: 13, Timezone: "UTC"}); e == nil {
		t.Fatal("expected an error for month 13")
	}
}

func TestRenderHTML(t *testing.T) {
	monthly, e := Build(Options{OutDir: sampleOutDir(t), Year: 2026, Month: time.October, Timezone: "UTC", Title: "Octubre <2026>"})
	if e != nil {
		t.Fatalf("Build() error = %v", e)
	}
	htmlText, e := RenderHTML(monthly)
	if e != nil {
		t.Fatalf("RenderHTML() error = %v", e)
	}
	for _, want := range []string{"Octubre &lt;2026&gt;", "30.00 kg CO2e", "Carnes", "GREEN 1", "RED 1"} {
		if !strings.Contains(htmlText, want) {
			t.Errorf("HTML is missing %q", want)
		}
	}

	text := RenderText(monthly)
	if !strings.Contains(text, "Green products: 50%") {
		t.Errorf("text report = %s", text)
	}
}

func TestRenderHTMLEmptyMonth(t *testing.T) {
	monthly, e := Build(Options{OutDir: t.TempDir(), Year: 2026, Month: time.March, Timezone: "UTC"})
	if e != nil {
		t.Fatalf("Build() error = %v", e)
	}
	htmlText, _ := RenderHTML(monthly)
	if !strings.Contains(htmlText, "No receipts found") {
		t.Fatal("empty month should say so")
	}
}

func TestFormatKg(t *testing.T) {
	tests := map[float64]string{
		0:         "0.00 kg CO2e",
		1234.567:  "1,234.57 kg CO2e",
		-12.5:     "-12.50 kg CO2e",
		1000000.0: "1,000,000.00 kg CO2e",
	}
	for value, want := range tests {
		if got := formatKg(value); got != want {
			t.Errorf("formatKg(%v) = %q, want %q", value, got, want)
		}
	}
}
