package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tuumbleweed/xerr"

	"receipt-impact/src/pkg/config"
	"receipt-impact/src/pkg/resilience"
)

const DefaultBaseURL = "https://api.openai.com/v1"

// requestNeverSent marks failures before the request left the process (marshal, bad URL).
const requestNeverSent = -1

type Config struct {
	BaseURL             string  `json:"base_url,omitempty"`
	Model               string  `json:"model,omitempty"`           // completion model; must accept temperature
	EmbeddingModel      string  `json:"embedding_model,omitempty"` // used by the vector matcher
	MaxOutputTokens     int     `json:"max_output_tokens,omitempty"`
	TimeoutSeconds      int     `json:"timeout_seconds,omitempty"`
	PollIntervalSeconds float64 `json:"poll_interval_seconds,omitempty"`
	PollTimeoutSeconds  int     `json:"poll_timeout_seconds,omitempty"`
}

func DefaultValueConfig() Config {
	return Config{
		BaseURL:             DefaultBaseURL,
		Model:               "gpt-4.1-mini",
		EmbeddingModel:      "text-embedding-3-small",
		MaxOutputTokens:     4000,
		TimeoutSeconds:      120,
		PollIntervalSeconds: 2,
		PollTimeoutSeconds:  300,
	}
}

var Cfg Config = DefaultValueConfig()

func InitializeConfig(localConfig *Config) {
	config.Apply(config.GetPackageName(), &Cfg, localConfig, DefaultValueConfig())
}

/*
Client is a small REST client for the Responses and Embeddings endpoints.

The executor is optional; when set, every HTTP round trip goes through its
retry policy and circuit breaker.
*/
type Client struct {
	cfg        Config
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

func NewClient(apiKey string, cfg Config, executor *resilience.Executor) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Client{
		cfg:        cfg,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		executor:   executor,
	}
}

/*
call runs one attempt function, through the executor when configured.

Attempts report the HTTP status they got (0 when no response arrived) so the
executor can tell retryable failures from permanent ones. The *xerr.Error of
the last attempt is what the caller sees.
*/
func (c *Client) call(ctx context.Context, operation string, attempt func(context.Context) (int, *xerr.Error)) *xerr.Error {
	if c.executor == nil {
		_, e := attempt(ctx)
		return e
	}

	var last *xerr.Error
	err := c.executor.Execute(ctx, operation, func(ctx context.Context) error {
		status, e := attempt(ctx)
		last = e
		if e == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &resilience.StatusError{Operation: operation, StatusCode: status, Message: fmt.Sprintf("%v", e)}
	}, resilience.ClassifyTransport)
	if err == nil {
		return nil
	}
	if last != nil {
		return last
	}
	return xerr.NewError(err, "OpenAI call was not attempted", operation)
}
