package main

import (
	"context"
	"flag"
	"os"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"receipt-impact/src/pkg/bootstrap"
	"receipt-impact/src/pkg/config"
	"receipt-impact/src/pkg/parser"
	"receipt-impact/src/pkg/products"
	"receipt-impact/src/pkg/resilience"
	"receipt-impact/src/pkg/store"
	"receipt-impact/src/pkg/util"
)

/*
main runs the text half of the pipeline on an OCR text file (for example the
ocr.txt written by the ocr program): parsing, store detection,
classification and aggregation. The analysis is logged as JSON.
*/
func main() {
	// Ensure required environment variables are present.
	config.CheckIfEnvVarsPresent(bootstrap.EnvOpenAIKey)
	// Common flags.
	configPath := flag.String("config", "./cfg/config.json", "Path to your configuration file.")
	// Program-specific flags.
	ocrTextPath := flag.String("ocr-text", "", "Path to the OCR text file to analyze.")
	storeKey := flag.String("store", "", "Store key to use instead of detecting it from the text (e.g. dia).")
	// Parse flags and initialize config.
	flag.Parse()
	util.RequiredFlag(ocrTextPath, "ocr-text")
	util.EnsureFlags()
	e := bootstrap.InitializeConfigs(*configPath)
	e.QuitIf(xerr.ErrorTypeError)

	tl.Log(tl.Notice, palette.BlueBold, "%s entrypoint. Config path: '%s'", "Running receipt analysis", *configPath)

	ocrBytes, readErr := os.ReadFile(*ocrTextPath)
	xerr.QuitIfError(readErr, "read OCR text file")
	ocrText := string(ocrBytes)
	tl.Log(tl.Info1, palette.Cyan, "Loaded OCR text from '%s' (length: %v)", *ocrTextPath, len(ocrText))

	parsed := parser.Parse(ocrText)
	if len(parsed.Products) == 0 {
		tl.LogJSON(tl.Warning, palette.Yellow, "Discarded", parsed.Discarded)
		tl.Log(tl.Error, palette.RedBold, "%s", "No product could be parsed from the OCR text")
		os.Exit(1)
	}

	detected := store.NewDetector(store.Cfg).Detect(ocrText)
	if *storeKey != "" {
		detected = store.Store{Key: *storeKey, Collection: store.Cfg.CollectionPrefix + *storeKey, Detected: false}
	}

	ctx := context.Background()
	executor := resilience.NewExecutor(resilience.Cfg)
	client, e := bootstrap.NewOpenAIClient(executor)
	e.QuitIf(xerr.ErrorTypeError)
	matcher, closers, e := bootstrap.NewMatcher(ctx, client, executor)
	e.QuitIf(xerr.ErrorTypeError)
	defer bootstrap.CloseAll(closers)

	classified, e := products.NewClassifier(matcher).ClassifyAll(ctx, parsed.Products, detected.Collection)
	e.QuitIf(xerr.ErrorTypeError)

	aggregator, e := bootstrap.NewAggregator()
	e.QuitIf(xerr.ErrorTypeError)
	analysis, e := aggregator.Analyze(classified, detected.Key)
	e.QuitIf(xerr.ErrorTypeError)

	tl.Log(tl.Notice1, palette.GreenBold, "%s", "Receipt analysis generated successfully")
	// Log the structured analysis as JSON for inspection.
	tl.LogJSON(tl.Info, palette.Cyan, "ReceiptAnalysis", analysis)
}
