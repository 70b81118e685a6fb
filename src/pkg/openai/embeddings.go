package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// Embed returns the embedding vector of text using the configured embedding model.
func (c *Client) Embed(ctx context.Context, text string) (vector []float32, e *xerr.Error) {
	url := c.cfg.BaseURL + "/embeddings"
	tl.Log(tl.Verbose, palette.Blue, "Embedding '%s' with '%s'", text, c.cfg.EmbeddingModel)

	encoded, marshalErr := json.Marshal(embeddingRequest{Model: c.cfg.EmbeddingModel, Input: text})
	if marshalErr != nil {
		return nil, xerr.NewError(marshalErr, "Failed to marshal embedding request", text)
	}

	var parsed embeddingResponse
	e = c.call(ctx, "openai.embed", func(ctx context.Context) (int, *xerr.Error) {
		body, status, e := c.doJSON(ctx, http.MethodPost, url, encoded)
		if e != nil {
			return status, e
		}
		decodeErr := json.Unmarshal(body, &parsed)
		if decodeErr != nil {
			return status, xerr.NewError(decodeErr, "Failed to decode embedding response", string(body))
		}
		return status, nil
	})
	if e != nil {
		return nil, e
	}

	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, xerr.NewError(fmt.Errorf("empty embedding"), "OpenAI returned no embedding", text)
	}
	tl.Log(tl.Debug, palette.CyanDim, "Embedding of '%s' has '%v' dimensions", text, len(parsed.Data[0].Embedding))
	return parsed.Data[0].Embedding, nil
}
