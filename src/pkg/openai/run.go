package openai

import (
	"context"
	"fmt"
	"time"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

/*
SendPromptReturnResponse sends a prompt via the Responses API and returns the
concatenated assistant text and the run metadata.

Behavior:
 1. POST /responses
 2. If status != "completed", poll GET /responses/{id} until a terminal state:
    "completed" is success, "failed"|"cancelled"|"expired" return *xerr.Error.
 3. Log token usage (when available).

The response text is not logged here; the caller decides what to print.
*/
func (c *Client) SendPromptReturnResponse(ctx context.Context, inputParameters InputParameters) (responseText string, meta LLMRunMetadata, e *xerr.Error) {
	tl.Log(tl.Info, palette.Blue, "%s %s to %s with model '%s'", "Sending", "prompt", "OpenAI Responses API", inputParameters.Model)
	startTime := time.Now()

	payload := requestPayload{
		Model:              inputParameters.Model,
		Reasoning:          inputParameters.Reasoning,
		Store:              inputParameters.Background, // background responses must be stored to be polled
		PreviousResponseID: inputParameters.PreviousResponseID,
		Instructions:       inputParameters.Instructions,
		Input:              inputParameters.Input,
		Temperature:        inputParameters.Temperature,
		MaxOutputTokens:    inputParameters.MaxOutputTokens,
		Background:         inputParameters.Background,
		Text:               inputParameters.Text,
	}
	tl.LogJSON(tl.Debug, palette.CyanDim, "request body", payload)

	var initial responseObject
	e = c.call(ctx, "openai.create_response", func(ctx context.Context) (status int, e *xerr.Error) {
		initial, status, e = c.createResponse(ctx, payload)
		return status, e
	})
	if e != nil {
		return "", LLMRunMetadata{}, e
	}

	finalResp := initial
	switch initial.Status {
	case "", "completed":
	case "failed", "cancelled", "expired":
		return "", LLMRunMetadata{ResponseID: initial.ID}, xerr.NewError(fmt.Errorf("%s", initial.Status), "Response ended immediately", initial.Error)
	default:
		interval := time.Duration(c.cfg.PollIntervalSeconds * float64(time.Second))
		tl.Log(tl.Info, palette.Cyan, "%s current status is '%s' id - '%s' (polling every %s)...", "Waiting for completion,", initial.Status, initial.ID, interval)
		finalResp, e = c.waitForResponseCompletion(ctx, initial.ID, interval, time.Duration(c.cfg.PollTimeoutSeconds)*time.Second)
		if e != nil {
			return "", LLMRunMetadata{ResponseID: initial.ID}, e
		}
	}

	text := extractOutputText(&finalResp)
	meta = newRunMetadata(finalResp, startTime)

	if finalResp.Usage != nil {
		var cachedTokens, reasoningTokens int
		if finalResp.Usage.InputTokensDetails != nil {
			cachedTokens = finalResp.Usage.InputTokensDetails.CachedTokens
		}
		if finalResp.Usage.OutputTokensDetails != nil {
			reasoningTokens = finalResp.Usage.OutputTokensDetails.ReasoningTokens
		}
		tl.Log(
			tl.Detailed,
			palette.CyanDim,
			"Tokens in: %v (cached: %v), out: %v (reasoning: %v), total: %v",
			finalResp.Usage.InputTokens, cachedTokens, finalResp.Usage.OutputTokens,
			reasoningTokens, finalResp.Usage.TotalTokens,
		)
	} else {
		tl.Log(tl.Detailed, palette.PurpleDim, "Usage data is %s", "not available")
	}

	tl.Log(tl.Info1, palette.Green, "%s in %s for the response '%s'", "Response completed", time.Since(startTime), finalResp.ID)
	tl.Log(tl.Debug1, palette.GreenDim, "You can %s at '%s'", "view conversation URL", meta.ResponseLogsUrl)
	return text, meta, nil
}
