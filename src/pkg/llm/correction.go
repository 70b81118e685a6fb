package llm

import (
	"context"
	"fmt"
	"strings"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

const (
	DefaultConfidenceThreshold = 70.0
	DefaultTemperature         = 0.1
)

// Completer sends a prompt to a text-completion service.
type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float64) (string, *xerr.Error)
}

type Outcome string

const (
	OutcomeSkipped   Outcome = "skipped"   // confidence was high enough, service not called
	OutcomeCorrected Outcome = "corrected" // service answered with non-empty text
	OutcomeFallback  Outcome = "fallback"  // service failed or answered empty; original kept
)

type Correction struct {
	Text       string  `json:"text"`
	Outcome    Outcome `json:"outcome"`
	Confidence float64 `json:"confidence"`
	Threshold  float64 `json:"threshold"`
	Failure    string  `json:"failure,omitempty"`
}

// Corrector asks the completion service to repair OCR text only when the OCR confidence is low.
type Corrector struct {
	completer   Completer
	threshold   float64
	temperature float64
}

func NewCorrector(completer Completer, threshold, temperature float64) *Corrector {
	return &Corrector{completer: completer, threshold: threshold, temperature: temperature}
}

/*
CorrectIfNeeded returns text unchanged when confidence >= threshold.

Below the threshold the text is sent for correction. The correction is
best-effort: any failure or an empty answer keeps the original text and is
only logged.
*/
func (c *Corrector) CorrectIfNeeded(ctx context.Context, text string, confidence float64) Correction {
	correction := Correction{Text: text, Confidence: confidence, Threshold: c.threshold}

	if confidence >= c.threshold {
		tl.Log(
			tl.Info, palette.Green, "OCR confidence '%s' is at or above '%s', %s",
			fmt.Sprintf("%.1f", confidence), fmt.Sprintf("%.1f", c.threshold), "skipping correction",
		)
		correction.Outcome = OutcomeSkipped
		return correction
	}

	tl.Log(
		tl.Notice, palette.BlueBold, "OCR confidence '%s' is below '%s', %s",
		fmt.Sprintf("%.1f", confidence), fmt.Sprintf("%.1f", c.threshold), "requesting correction",
	)

	if c.completer == nil {
		return fallback(correction, "no completion service configured")
	}

	answer, e := c.completer.Complete(ctx, BuildCorrectionPrompt(text), c.temperature)
	if e != nil {
		return fallback(correction, fmt.Sprintf("%v", e))
	}

	answer = strings.TrimSpace(stripCodeFence(answer))
	if answer == "" {
		return fallback(correction, "completion service returned empty text")
	}

	tl.Log(tl.Info1, palette.Green, "Corrected OCR text ('%v' -> '%v' characters)", len(text), len(answer))
	correction.Text = answer
	correction.Outcome = OutcomeCorrected
	return correction
}

func fallback(correction Correction, reason string) Correction {
	tl.Log(tl.Warning, palette.Yellow, "OCR correction failed, %s: %s", "keeping original text", reason)
	correction.Outcome = OutcomeFallback
	correction.Failure = reason
	return correction
}

// stripCodeFence removes a ``` wrapper models sometimes add around plain text.
func stripCodeFence(answer string) string {
	trimmed := strings.TrimSpace(answer)
	if !strings.HasPrefix(trimmed, "```") {
		return answer
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if newline := strings.Index(trimmed, "\n"); newline >= 0 {
		trimmed = trimmed[newline+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
}
