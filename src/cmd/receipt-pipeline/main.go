package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
	"golang.org/x/sync/errgroup"

	"receipt-impact/src/pkg/bootstrap"
	"receipt-impact/src/pkg/config"
	"receipt-impact/src/pkg/receipt"
	"receipt-impact/src/pkg/util"
)

/*
main runs the full receipt pipeline.

-image can be:
  - a single image file (.jpg/.jpeg/.png)
  - a directory containing images (.jpg/.jpeg/.png)

For each image the pipeline runs preprocessing, OCR, correction, parsing,
classification and aggregation, and stores every artifact (including
receipt-analysis.json) in its own run directory. A failed image is logged
and skipped.
*/
func main() {
	config.CheckIfEnvVarsPresent(bootstrap.EnvOpenAIKey)

	// Common flags.
	configPath := flag.String("config", "./cfg/config.json", "Path to your configuration file.")

	// Program-specific flags.
	imagePath := flag.String("image", "", "Path to a receipt image OR a directory with images (.jpg/.jpeg/.png).")
	outputDirPath := flag.String("out", "", "Directory for run artifacts (default: receipt.output_dir from config).")
	workers := flag.Int("workers", 2, "How many receipts to process at the same time.")

	flag.Parse()
	util.RequiredFlag(imagePath, "image")
	util.EnsureFlags()
	e := bootstrap.InitializeConfigs(*configPath)
	e.QuitIf(xerr.ErrorTypeError)

	outDir := *outputDirPath
	if outDir == "" {
		outDir = receipt.Cfg.OutputDir
	}

	tl.Log(
		tl.Notice, palette.BlueBold, "%s entrypoint. Config path: '%s', output directory: '%s'",
		"Running full receipt pipeline", *configPath, outDir,
	)

	imagesToProcess, e := resolveImagesToProcess(*imagePath)
	e.QuitIf(xerr.ErrorTypeError)
	if len(imagesToProcess) == 0 {
		tl.Log(tl.Warning, palette.PurpleBold, "No .jpg/.jpeg/.png files found at: '%s'", *imagePath)
		os.Exit(0)
	}
	tl.Log(tl.Notice1, palette.GreenBold, "Found '%v' images to process", len(imagesToProcess))

	ctx := context.Background()
	app, e := bootstrap.NewApp(ctx, nil)
	e.QuitIf(xerr.ErrorTypeError)
	defer app.Close()

	var processedCount, skippedCount atomic.Int64
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(max(*workers, 1))
	for _, imgPath := range imagesToProcess {
		group.Go(func() error {
			runDirPath, e := processOneImage(groupCtx, app.Pipeline, imgPath, outDir)
			if e != nil {
				skippedCount.Add(1)
				tl.Log(tl.Error, palette.RedBold, "Failed processing '%s': %v", imgPath, e)
				return nil
			}
			processedCount.Add(1)
			tl.Log(tl.Notice1, palette.GreenBold, "%s. Results stored in '%s'", "Receipt analysis completed", runDirPath)
			return nil
		})
	}
	_ = group.Wait()

	tl.Log(
		tl.Notice, palette.GreenBold, "Done. Processed: '%v', skipped: '%v'",
		processedCount.Load(), skippedCount.Load(),
	)
	if processedCount.Load() == 0 {
		os.Exit(1)
	}
}

func processOneImage(ctx context.Context, pipeline *receipt.Pipeline, imagePath, outDir string) (runDirPath string, e *xerr.Error) {
	tl.Log(tl.Notice, palette.BlueBold, "%s '%s'", "Processing image", imagePath)

	raw, readErr := os.ReadFile(imagePath)
	if readErr != nil {
		return "", xerr.NewError(readErr, "read receipt image", imagePath)
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(receipt.Cfg.RequestTimeoutSeconds)*time.Second)
	defer cancel()

	result, runErr := pipeline.Process(runCtx, raw)
	if runErr != nil {
		return "", xerr.NewError(runErr, fmt.Sprintf("receipt run failed (%s)", receipt.KindName(runErr)), imagePath)
	}

	tl.LogJSON(tl.Verbose, palette.CyanDim, "ReceiptAnalysis", result.Analysis)
	return receipt.SaveArtifacts(outDir, result, raw, filepath.Ext(imagePath))
}

func resolveImagesToProcess(inputPath string) (images []string, e *xerr.Error) {
	trimmed := strings.TrimSpace(inputPath)
	info, statErr := os.Stat(trimmed)
	if statErr != nil {
		return nil, xerr.NewError(statErr, "stat -image input path", trimmed)
	}

	if info.IsDir() {
		return listImagesInDir(trimmed)
	}

	ext := strings.ToLower(filepath.Ext(trimmed))
	if !isAllowedImageExt(ext) {
		return nil, xerr.NewError(fmt.Errorf("unsupported image extension: %s", ext), "input file is not .jpg/.jpeg/.png", trimmed)
	}
	return []string{trimmed}, nil
}

func listImagesInDir(dirPath string) (images []string, e *xerr.Error) {
	entries, readErr := os.ReadDir(dirPath)
	if readErr != nil {
		return nil, xerr.NewError(readErr, "read directory", dirPath)
	}

	for _, ent := range entries {
		if ent.IsDir() || !isAllowedImageExt(filepath.Ext(ent.Name())) {
			continue
		}
		images = append(images, filepath.Join(dirPath, ent.Name()))
	}

	sort.Strings(images)
	return images, nil
}

func isAllowedImageExt(ext string) bool {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg", ".png":
		return true
	default:
		return false
	}
}
