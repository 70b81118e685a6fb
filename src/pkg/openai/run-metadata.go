package openai

import (
	"fmt"
	"strings"
	"time"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
)

const snapshotLayout = "2006-01-02"

// newRunMetadata summarizes a finished response. started is used instead of
// created_at, which the API truncates to whole seconds.
func newRunMetadata(resp responseObject, started time.Time) LLMRunMetadata {
	finished := time.Now()
	meta := LLMRunMetadata{
		ResponseID:      resp.ID,
		ResponseLogsUrl: fmt.Sprintf("https://platform.openai.com/logs/%s", resp.ID),
		Status:          resp.Status,
		Temperature:     resp.Temperature,
		StartedAt:       started.UnixMilli(),
		FinishedAt:      finished.UnixMilli(),
		Elapsed:         finished.Sub(started).Milliseconds(),
	}
	meta.Model, meta.ModelSnapshot = SplitModelSnapshot(resp.Model)

	if resp.Reasoning != nil && resp.Reasoning.Effort != nil {
		meta.ReasoningEffort = *resp.Reasoning.Effort
	}
	if usage := resp.Usage; usage != nil {
		meta.TokensIn, meta.TokensOut, meta.TokensTotal = usage.InputTokens, usage.OutputTokens, usage.TotalTokens
		if usage.InputTokensDetails != nil {
			meta.TokensCached = usage.InputTokensDetails.CachedTokens
		}
		if usage.OutputTokensDetails != nil {
			meta.TokensReasoning = usage.OutputTokensDetails.ReasoningTokens
		}
	}

	tl.Log(
		tl.Info1, palette.Green, "Response '%s' finished with status '%s' in '%vms' (tokens in/out: %v/%v)",
		meta.ResponseID, meta.Status, meta.Elapsed, meta.TokensIn, meta.TokensOut,
	)
	return meta
}

/*
SplitModelSnapshot separates a dated model name into its base and snapshot:

	"gpt-5-nano-2025-08-07" -> ("gpt-5-nano", "2025-08-07")
	"gpt-4.1-mini"          -> ("gpt-4.1-mini", "")
*/
func SplitModelSnapshot(model string) (base string, snapshot string) {
	model = strings.TrimSpace(model)
	cut := len(model) - len(snapshotLayout) - 1
	if cut <= 0 || model[cut] != '-' {
		return model, ""
	}
	if _, err := time.Parse(snapshotLayout, model[cut+1:]); err != nil {
		return model, ""
	}
	return model[:cut], model[cut+1:]
}
