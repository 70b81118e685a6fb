package report

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"receipt-impact/src/pkg/impact"
	"receipt-impact/src/pkg/receipt"
)

/*
Options controls which receipts are included in a monthly report.
*/
type Options struct {
	OutDir   string     `json:"out_dir"`
	Year     int        `json:"year"`
	Month    time.Month `json:"month"`
	Timezone string     `json:"timezone"`
	MaxRows  int        `json:"max_rows"`
	Title    string     `json:"title"`
}

/*
CategoryRow is one category of the breakdown: the CO2 it contributed over the
month and its share of the total.
*/
type CategoryRow struct {
	Category     string  `json:"category"`
	Co2          float64 `json:"co2"`
	ProductCount int     `json:"product_count"`
	Percent      float64 `json:"percent"`
	Color        string  `json:"color"`
	BarPercent   int     `json:"bar_percent"`
}

// Monthly is the computed summary rendered by RenderHTML and RenderText.
type Monthly struct {
	Title           string              `json:"title"`
	Year            int                 `json:"year"`
	Month           time.Month          `json:"month"`
	Timezone        string              `json:"timezone"`
	PeriodStart     time.Time           `json:"period_start"`
	PeriodEnd       time.Time           `json:"period_end"`
	GeneratedAt     time.Time           `json:"generated_at"`
	ReceiptCount    int                 `json:"receipt_count"`
	GreenReceipts   int                 `json:"green_receipts"`
	ProductCount    int                 `json:"product_count"`
	GreenProducts   int                 `json:"green_products"`
	GreenPercentage int                 `json:"green_percentage"`
	Co2Total        float64             `json:"co2_total"`
	Co2PerReceipt   float64             `json:"co2_per_receipt"`
	Tiers           map[impact.Tier]int `json:"tiers"`
	Rows            []CategoryRow       `json:"rows"`
	Notes           []string            `json:"notes"`
}

const otherCategory = "Otras"

var rowColors = []string{
	"#059669", "#2563EB", "#D97706", "#DB2777", "#7C3AED",
	"#0EA5E9", "#65A30D", "#9333EA", "#F43F5E", "#14B8A6",
	"#4F46E5", "#B45309",
}

// DefaultOptions reports on the current month in UTC.
func DefaultOptions(outDir string) Options {
	now := time.Now().UTC()
	return Options{OutDir: outDir, Year: now.Year(), Month: now.Month(), Timezone: "UTC", MaxRows: 10}
}

/*
Build scans OutDir for receipt analyses, keeps those of the selected month
and aggregates CO2 by category, tier counts and the green share.

A receipt's date is the best one available:
  - started_at of the sibling run.json
  - the timestamp in its run directory name
  - the modification time of the analysis file
*/
func Build(options Options) (monthly Monthly, e *xerr.Error) {
	location, err := time.LoadLocation(options.Timezone)
	if err != nil {
		tl.Log(tl.Warning, palette.Purple, "Invalid timezone '%s'; falling back to UTC", options.Timezone)
		location = time.UTC
		options.Timezone = "UTC"
	}
	if options.Month < time.January || options.Month > time.December {
		return monthly, xerr.NewError(fmt.Errorf("month %d out of range", options.Month), "invalid report period", options)
	}

	periodStart := time.Date(options.Year, options.Month, 1, 0, 0, 0, 0, location)
	periodEnd := periodStart.AddDate(0, 1, 0).Add(-time.Nanosecond)

	paths, e := collectAnalysisFiles(options.OutDir)
	if e != nil {
		return monthly, e
	}
	tl.Log(tl.Info1, palette.Cyan, "Found '%v' receipt analyses under '%s'", len(paths), options.OutDir)

	monthly = Monthly{
		Title:       options.Title,
		Year:        options.Year,
		Month:       options.Month,
		Timezone:    options.Timezone,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		GeneratedAt: time.Now().In(location),
		Tiers:       map[impact.Tier]int{},
	}
	if monthly.Title == "" {
		monthly.Title = fmt.Sprintf("Environmental impact report %s %d", options.Month, options.Year)
	}

	co2ByCategory := map[string]*CategoryRow{}
	fallbackDates := 0
	for _, path := range paths {
		analysis, loadErr := loadAnalysis(path)
		if loadErr != nil {
			tl.Log(tl.Warning, palette.Purple, "Skipping unreadable analysis '%s': %v", path, loadErr)
			continue
		}

		receiptTime, source := determineReceiptTime(path, location)
		if source != sourceRunFile {
			fallbackDates++
		}
		if receiptTime.Before(periodStart) || receiptTime.After(periodEnd) {
			continue
		}

		monthly.ReceiptCount++
		monthly.ProductCount += analysis.TotalProducts
		monthly.GreenProducts += analysis.GreenProducts
		monthly.Co2Total += analysis.Co2Total
		monthly.Tiers[analysis.EnvironmentalTier]++
		if analysis.IsGreenReceipt {
			monthly.GreenReceipts++
		}

		for _, product := range analysis.Breakdown {
			category := strings.TrimSpace(product.Category)
			if category == "" {
				category = otherCategory
			}
			row, exists := co2ByCategory[category]
			if !exists {
				row = &CategoryRow{Category: category}
				co2ByCategory[category] = row
			}
			row.Co2 += product.Co2
			row.ProductCount++
		}
	}

	if monthly.ProductCount > 0 {
		monthly.GreenPercentage = int(math.Round(float64(monthly.GreenProducts) / float64(monthly.ProductCount) * 100))
	}
	if monthly.ReceiptCount > 0 {
		monthly.Co2PerReceipt = monthly.Co2Total / float64(monthly.ReceiptCount)
	}
	monthly.Rows = buildCategoryRows(co2ByCategory, monthly.Co2Total, options.MaxRows)

	monthly.Notes = append(monthly.Notes, "CO2 is the catalogue factor of each product times its quantity, in kg CO2e.")
	monthly.Notes = append(monthly.Notes, "Green products are low-impact, local or sold in eco packaging.")
	if fallbackDates > 0 {
		monthly.Notes = append(monthly.Notes, fmt.Sprintf("%d receipts had no run.json; their date came from the run directory or file time.", fallbackDates))
	}

	tl.Log(
		tl.Info1, palette.Green, "Included '%v' receipts for '%s' (co2 '%s')",
		monthly.ReceiptCount, fmt.Sprintf("%04d-%02d", options.Year, int(options.Month)), formatKg(monthly.Co2Total),
	)
	return monthly, nil
}

// collectAnalysisFiles walks outDir for every receipt-analysis.json, sorted.
func collectAnalysisFiles(outDir string) (paths []string, e *xerr.Error) {
	walkErr := filepath.WalkDir(outDir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() && entry.Name() == receipt.AnalysisFileName {
			paths = append(paths, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, xerr.NewError(walkErr, "walk output directory", outDir)
	}
	sort.Strings(paths)
	return paths, nil
}

func loadAnalysis(path string) (analysis impact.ReceiptAnalysis, e *xerr.Error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return analysis, xerr.NewError(err, "read analysis file", path)
	}
	err = json.Unmarshal(data, &analysis)
	if err != nil {
		return analysis, xerr.NewError(err, "unmarshal analysis file", path)
	}
	return analysis, nil
}

const (
	sourceRunFile  = "run.json"
	sourceDirName  = "directory name"
	sourceFileTime = "file time"
)

func determineReceiptTime(analysisPath string, location *time.Location) (receiptTime time.Time, source string) {
	runDir := filepath.Dir(analysisPath)

	data, err := os.ReadFile(filepath.Join(runDir, "run.json"))
	if err == nil {
		var run struct {
			StartedAt time.Time `json:"started_at"`
		}
		if json.Unmarshal(data, &run) == nil && !run.StartedAt.IsZero() {
			return run.StartedAt.In(location), sourceRunFile
		}
	}

	// <YYYY-MM-DD_hh-mm-ss>_<run id>
	base := filepath.Base(runDir)
	if len(base) >= 19 {
		parsed, err := time.ParseInLocation("2006-01-02_15-04-05", base[:19], location)
		if err == nil {
			return parsed, sourceDirName
		}
	}

	info, err := os.Stat(analysisPath)
	if err != nil {
		return time.Time{}, sourceFileTime
	}
	return info.ModTime().In(location), sourceFileTime
}

/*
buildCategoryRows sorts categories by CO2 and groups the overflow past
maxRows into one "Otras" row.
*/
func buildCategoryRows(byCategory map[string]*CategoryRow, co2Total float64, maxRows int) []CategoryRow {
	rows := make([]CategoryRow, 0, len(byCategory))
	for _, row := range byCategory {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Co2 != rows[j].Co2 {
			return rows[i].Co2 > rows[j].Co2
		}
		return rows[i].Category < rows[j].Category
	})

	if maxRows < 3 {
		maxRows = 3
	}
	if len(rows) > maxRows {
		other := CategoryRow{Category: otherCategory}
		for _, row := range rows[maxRows-1:] {
			other.Co2 += row.Co2
			other.ProductCount += row.ProductCount
		}
		rows = append(rows[:maxRows-1], other)
	}

	for index := range rows {
		rows[index].Percent, rows[index].BarPercent = share(rows[index].Co2, co2Total)
		rows[index].Color = rowColors[index%len(rowColors)]
	}
	return rows
}

// share returns the percentage and a bar width that never hides a non-zero value.
func share(value, total float64) (percent float64, barPercent int) {
	if total <= 0 {
		return 0, 0
	}
	percent = value / total * 100
	barPercent = int(math.Round(percent))
	if value > 0 && barPercent == 0 {
		barPercent = 1
	}
	return percent, min(barPercent, 100)
}
