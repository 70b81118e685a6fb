package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"receipt-impact/src/pkg/report"
)

/*
main writes the monthly environmental report as a single HTML file.

Example:

	go run ./src/cmd/report -out ./out -year 2026 -month 10 -o ./tmp/report-2026-10.html
*/
func main() {
	outDirFlag := flag.String("out", "./out", "Directory to scan recursively for receipt-analysis.json files")
	yearFlag := flag.Int("year", 0, "Year to report (default: current year)")
	monthFlag := flag.Int("month", 0, "Month to report 1-12 (default: current month)")
	outputFlag := flag.String("o", "", "Output HTML path (default: ./tmp/report-YYYY-MM.html)")
	timezoneFlag := flag.String("tz", "America/Argentina/Buenos_Aires", "IANA timezone used to place receipts in a month")
	maxRowsFlag := flag.Int("max-rows", 10, "Maximum category rows before grouping the remainder")
	titleFlag := flag.String("title", "", "Report title (default: Environmental impact report Month Year)")
	flag.Parse()

	options := report.DefaultOptions(*outDirFlag)
	options.Timezone = *timezoneFlag
	options.MaxRows = *maxRowsFlag
	options.Title = *titleFlag
	if location, err := time.LoadLocation(*timezoneFlag); err == nil {
		now := time.Now().In(location)
		options.Year, options.Month = now.Year(), now.Month()
	}
	if *yearFlag != 0 {
		options.Year = *yearFlag
	}
	if *monthFlag != 0 {
		options.Month = time.Month(*monthFlag)
	}

	outputPath := *outputFlag
	if outputPath == "" {
		outputPath = fmt.Sprintf("./tmp/report-%04d-%02d.html", options.Year, int(options.Month))
	}

	tl.Log(
		tl.Notice, palette.BlueBold, "Generating monthly environmental report for '%s' from '%s'",
		fmt.Sprintf("%04d-%02d", options.Year, int(options.Month)), options.OutDir,
	)

	monthly, e := report.Build(options)
	e.QuitIf(xerr.ErrorTypeError)

	htmlText, e := report.RenderHTML(monthly)
	e.QuitIf(xerr.ErrorTypeError)

	err := os.MkdirAll(filepath.Dir(outputPath), 0o755)
	xerr.QuitIfError(err, "create report directory")
	err = os.WriteFile(outputPath, []byte(htmlText), 0o644)
	xerr.QuitIfError(err, "write HTML report file")

	tl.Log(tl.Info1, palette.Green, "Saved report to '%s'", outputPath)
}
