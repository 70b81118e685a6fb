package openai

import (
	"context"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"receipt-impact/src/pkg/util"
)

/*
Complete sends a single user prompt and returns the plain-text answer.

Reasoning is left out of the request: the configured model is expected to
accept a temperature.
*/
func (c *Client) Complete(ctx context.Context, prompt string, temperature float64) (answer string, e *xerr.Error) {
	textOptions := TextAsPlain(TextVerbosityLow)
	inputParameters := InputParameters{
		Model: c.cfg.Model,
		Input: []InputItem{
			{Role: RoleUser, Content: prompt},
		},
		Temperature: util.Ptr(temperature),
		Text:        &textOptions,
	}
	if c.cfg.MaxOutputTokens > 0 {
		inputParameters.MaxOutputTokens = util.Ptr(c.cfg.MaxOutputTokens)
	}

	answer, meta, e := c.SendPromptReturnResponse(ctx, inputParameters)
	if e != nil {
		return "", e
	}
	tl.Log(tl.Info1, palette.Green, "%s id is '%s' (%v tokens)", "Received completion", meta.ResponseID, meta.TokensTotal)
	return answer, nil
}
