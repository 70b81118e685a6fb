package main

import (
	"context"
	"flag"
	"os"
	"strings"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"receipt-impact/src/pkg/bootstrap"
	"receipt-impact/src/pkg/config"
	"receipt-impact/src/pkg/llm"
	"receipt-impact/src/pkg/openai"
	"receipt-impact/src/pkg/resilience"
	"receipt-impact/src/pkg/util"
)

/*
main sends an OCR text file to the correction model regardless of OCR
confidence and prints the corrected text with the run metadata.

With -effort the request goes to a reasoning model without a temperature;
-background submits it as a background response and polls until it ends.
*/
func main() {
	config.CheckIfEnvVarsPresent(bootstrap.EnvOpenAIKey)
	// common flags
	configPath := flag.String("config", "./cfg/config.json", "Path to your configuration file.")
	// program's custom flags
	ocrTextPath := flag.String("ocr-text", "", "Path to the OCR text file to correct.")
	model := flag.String("model", "", "Model to use (default: openai.model from config).")
	effort := flag.String("effort", "", "Reasoning effort (minimal, low, medium, high) for reasoning models. Empty sends a temperature instead.")
	background := flag.Bool("background", false, "Submit as a background response and poll for the result.")
	outputPath := flag.String("o", "", "Write the corrected text to this file.")
	// parse and init config
	flag.Parse()
	util.RequiredFlag(ocrTextPath, "ocr-text")
	util.EnsureFlags()
	e := bootstrap.InitializeConfigs(*configPath)
	e.QuitIf(xerr.ErrorTypeError)

	tl.Log(tl.Notice, palette.BlueBold, "%s correction entrypoint. Config path: '%s'", "Running", *configPath)

	ocrBytes, err := os.ReadFile(*ocrTextPath)
	xerr.QuitIfError(err, "read OCR text file")

	reasoningEffort, err := openai.ParseEffort(*effort)
	xerr.QuitIfError(err, "parse -effort")

	inputParameters := openai.InputParameters{
		Model:      openai.Cfg.Model,
		Input:      []openai.InputItem{{Role: openai.RoleUser, Content: llm.BuildCorrectionPrompt(string(ocrBytes))}},
		Background: *background,
	}
	if *model != "" {
		inputParameters.Model = *model
	}
	if openai.Cfg.MaxOutputTokens > 0 {
		inputParameters.MaxOutputTokens = util.Ptr(openai.Cfg.MaxOutputTokens)
	}
	if reasoningEffort != nil {
		inputParameters.Reasoning = &openai.Reasoning{Effort: reasoningEffort}
	} else {
		inputParameters.Temperature = util.Ptr(llm.Cfg.Temperature)
		textOptions := openai.TextAsPlain(openai.TextVerbosityLow)
		inputParameters.Text = &textOptions
	}

	client, e := bootstrap.NewOpenAIClient(resilience.NewExecutor(resilience.Cfg))
	e.QuitIf(xerr.ErrorTypeError)

	corrected, llmRunMetadata, e := client.SendPromptReturnResponse(context.Background(), inputParameters)
	e.QuitIf(xerr.ErrorTypeError)

	tl.Log(tl.Notice, palette.Cyan, "Corrected text:\n```\n%s\n```", strings.TrimSpace(corrected))
	tl.LogJSON(tl.Notice, palette.Cyan, "AI Run Metadata", llmRunMetadata)

	if *outputPath != "" {
		err = os.WriteFile(*outputPath, []byte(corrected), 0o644)
		xerr.QuitIfError(err, "write corrected text")
		tl.Log(tl.Info1, palette.Green, "Saved corrected text to '%s'", *outputPath)
	}
}
