package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"receipt-impact/src/pkg/bootstrap"
	"receipt-impact/src/pkg/config"
	"receipt-impact/src/pkg/llm"
	"receipt-impact/src/pkg/ocr"
	"receipt-impact/src/pkg/resilience"
	"receipt-impact/src/pkg/util"
)

/*
main runs the image half of the pipeline on one photo: quality analysis,
preprocessing, both OCR passes and the confidence-gated correction.

The cleaned image and the text of every pass are written to
<out>/<timestamp>_ocr/ so they can be fed to analyze-receipt. Correction is
skipped when OPENAI_API_KEY is not set.
*/
func main() {
	// Common flags.
	configPath := flag.String("config", "./cfg/config.json", "Path to your configuration file.")

	// Program-specific flags.
	imagePath := flag.String("image", "", "Path to the receipt image to process.")
	outputDirPath := flag.String("out", "./tmp", "Directory where the processed image and OCR text will be stored.")
	language := flag.String("language", "", "Tesseract language(s), e.g. spa or spa+eng (default: ocr.language from config). \"tesseract --list-langs\"")

	// Parse and initialize config.
	flag.Parse()
	util.RequiredFlag(imagePath, "image")
	util.EnsureFlags()
	e := bootstrap.InitializeConfigs(*configPath)
	e.QuitIf(xerr.ErrorTypeError)

	if *language == "" {
		*language = ocr.Cfg.Language
	}

	tl.Log(tl.Notice, palette.BlueBold, "%s OCR entrypoint. Config path: '%s'", "Running", *configPath)

	raw, err := os.ReadFile(*imagePath)
	xerr.QuitIfError(err, "read receipt image")

	preprocessor := ocr.NewPreprocessor(ocr.Cfg.TargetWidth)
	cleanPNG, report, e := preprocessor.Preprocess(raw)
	e.QuitIf(xerr.ErrorTypeError)
	tl.LogJSON(tl.Info, palette.Cyan, "QualityReport", report)

	ctx := context.Background()
	recognizer := ocr.NewRecognizer(ocr.NewTesseractEngine(), ocr.Cfg.SequentialPasses)
	selection, e := recognizer.Recognize(ctx, cleanPNG, *language)
	e.QuitIf(xerr.ErrorTypeError)

	var completer llm.Completer
	config.LoadEnvFiles()
	if len(config.MissingEnvVars(bootstrap.EnvOpenAIKey)) == 0 {
		client, clientErr := bootstrap.NewOpenAIClient(resilience.NewExecutor(resilience.Cfg))
		clientErr.QuitIf(xerr.ErrorTypeError)
		completer = client
	} else {
		tl.Log(tl.Warning, palette.Purple, "%s is %s, correction will fall back to the OCR text", bootstrap.EnvOpenAIKey, "not set")
	}
	correction := bootstrap.NewCorrector(completer).CorrectIfNeeded(ctx, selection.Selected.Text, selection.Selected.Confidence)

	runDirPath := filepath.Join(*outputDirPath, time.Now().Format("2006-01-02_15-04-05")+"_ocr")
	err = os.MkdirAll(runDirPath, 0o755)
	xerr.QuitIfError(err, "create output directory")

	files := map[string][]byte{
		"clean.png": cleanPNG,
		"ocr.txt":   []byte(correction.Text),
	}
	for _, pass := range selection.Passes {
		files["ocr-"+strings.ToLower(strings.ReplaceAll(string(pass.Mode), "_", "-"))+".txt"] = []byte(pass.Text)
	}
	for name, data := range files {
		err = os.WriteFile(filepath.Join(runDirPath, name), data, 0o644)
		xerr.QuitIfError(err, "write "+name)
	}

	tl.Log(
		tl.Notice1, palette.GreenBold, "%s. Selected '%s' (confidence '%s'), correction '%s'. Results stored in '%s'",
		"OCR run completed", selection.Selected.Mode, fmt.Sprintf("%.1f", selection.Selected.Confidence), correction.Outcome, runDirPath,
	)
}
