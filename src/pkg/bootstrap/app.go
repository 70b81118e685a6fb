package bootstrap

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"receipt-impact/src/pkg/config"
	"receipt-impact/src/pkg/email"
	echomw "receipt-impact/src/pkg/echo-middleware"
	"receipt-impact/src/pkg/impact"
	"receipt-impact/src/pkg/llm"
	"receipt-impact/src/pkg/metrics"
	"receipt-impact/src/pkg/ocr"
	"receipt-impact/src/pkg/openai"
	"receipt-impact/src/pkg/products"
	"receipt-impact/src/pkg/receipt"
	"receipt-impact/src/pkg/resilience"
	"receipt-impact/src/pkg/store"
	"receipt-impact/src/pkg/vector"
)

// EnvOpenAIKey holds the key used for corrections and embeddings.
const EnvOpenAIKey = "OPENAI_API_KEY"

/*
InitializeConfigs loads ./cfg/config.json (or configPath) and hands every
section to the package that owns it. Absent sections keep package defaults.
*/
func InitializeConfigs(configPath string) (e *xerr.Error) {
	config.InitializeConfig(configPath)
	return ApplySections()
}

// ApplySections pushes the currently loaded config sections into the package Cfg values.
func ApplySections() (e *xerr.Error) {
	steps := []func() *xerr.Error{
		func() *xerr.Error { return applySection("ocr", ocr.InitializeConfig) },
		func() *xerr.Error { return applySection("llm", llm.InitializeConfig) },
		func() *xerr.Error { return applySection("openai", openai.InitializeConfig) },
		func() *xerr.Error { return applySection("matcher", products.InitializeConfig) },
		func() *xerr.Error { return applySection("impact", impact.InitializeConfig) },
		func() *xerr.Error { return applySection("store", store.InitializeConfig) },
		func() *xerr.Error { return applySection("resilience", resilience.InitializeConfig) },
		func() *xerr.Error { return applySection("echo_middleware", echomw.InitializeConfig) },
		func() *xerr.Error { return applySection("receipt", receipt.InitializeConfig) },
		func() *xerr.Error { return applySection("email", email.InitializeConfig) },
	}
	for _, step := range steps {
		e = step()
		if e != nil {
			return e
		}
	}
	return nil
}

func applySection[T any](name string, initialize func(*T)) (e *xerr.Error) {
	section, e := config.Section[T](name)
	if e != nil {
		return e
	}
	initialize(section)
	return nil
}

/*
App is a fully wired receipt pipeline plus the resources it holds open.
Close releases the Qdrant connection and the Redis client.
*/
type App struct {
	Pipeline *receipt.Pipeline
	Metrics  *metrics.PipelineMetrics

	closers []func() error
}

func (a *App) Close() {
	CloseAll(a.closers)
	a.closers = nil
}

/*
NewApp builds the pipeline from the package configs:
tesseract passes, OpenAI corrections and embeddings behind one resilience
executor, the Qdrant matcher (optionally cached in Redis) and the YAML
threshold table. m may be nil.
*/
func NewApp(ctx context.Context, m *metrics.PipelineMetrics) (app *App, e *xerr.Error) {
	app = &App{Metrics: m}

	aggregator, e := NewAggregator()
	if e != nil {
		return nil, e
	}

	executor := resilience.NewExecutor(resilience.Cfg)
	client, e := NewOpenAIClient(executor)
	if e != nil {
		return nil, e
	}

	matcher, closers, e := NewMatcher(ctx, client, executor)
	if e != nil {
		return nil, e
	}
	app.closers = append(app.closers, closers...)

	app.Pipeline = receipt.NewPipeline(receipt.Dependencies{
		Preprocessor: ocr.NewPreprocessor(ocr.Cfg.TargetWidth),
		Recognizer:   ocr.NewRecognizer(ocr.NewTesseractEngine(), ocr.Cfg.SequentialPasses),
		Corrector:    NewCorrector(client),
		Detector:     store.NewDetector(store.Cfg),
		Classifier:   products.NewClassifier(matcher),
		Aggregator:   aggregator,
		Metrics:      m,
		Language:     ocr.Cfg.Language,
	})

	tl.Log(tl.Notice1, palette.GreenBold, "%s receipt pipeline (language '%s', model '%s')", "Wired", ocr.Cfg.Language, openai.Cfg.Model)
	return app, nil
}

// NewOpenAIClient reads OPENAI_API_KEY and builds the client used for completions and embeddings.
func NewOpenAIClient(executor *resilience.Executor) (client *openai.Client, e *xerr.Error) {
	apiKey := strings.TrimSpace(os.Getenv(EnvOpenAIKey))
	if apiKey == "" {
		return nil, xerr.NewError(fmt.Errorf("%s is not set", EnvOpenAIKey), "unable to create OpenAI client", nil)
	}
	return openai.NewClient(apiKey, openai.Cfg, executor), nil
}

// NewCorrector builds the confidence-gated corrector from the llm config. completer may be nil.
func NewCorrector(completer llm.Completer) *llm.Corrector {
	return llm.NewCorrector(completer, llm.Cfg.Threshold(), llm.Cfg.Temperature)
}

// NewAggregator loads the threshold table named by the impact config.
func NewAggregator() (aggregator *impact.Aggregator, e *xerr.Error) {
	table, e := impact.LoadTable(impact.Cfg.ThresholdsPath)
	if e != nil {
		return nil, e
	}
	return impact.NewAggregator(table), nil
}

/*
NewMatcher dials Qdrant and, when the matcher config enables it, wraps the
matcher in the Redis cache. An unreachable Redis only disables the cache.
The returned closers release what was opened.
*/
func NewMatcher(ctx context.Context, embedder vector.Embedder, executor *resilience.Executor) (matcher products.Matcher, closers []func() error, e *xerr.Error) {
	conn, e := vector.Dial(products.Cfg.QdrantAddress)
	if e != nil {
		return nil, nil, e
	}
	qdrantMatcher := vector.NewQdrantMatcher(conn, embedder, executor, products.Cfg.Limit, products.Cfg.ScoreThreshold)
	closers = append(closers, qdrantMatcher.Close)

	if !products.Cfg.CacheEnabled {
		return qdrantMatcher, closers, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	cache, closeCache, cacheErr := products.NewRedisStore(pingCtx, products.Cfg.RedisURL)
	if cacheErr != nil {
		tl.Log(tl.Warning, palette.Yellow, "Match cache disabled: %v", cacheErr)
		return qdrantMatcher, closers, nil
	}
	closers = append(closers, closeCache)

	ttl := time.Duration(products.Cfg.CacheTTLSeconds) * time.Second
	return products.NewCachedMatcher(qdrantMatcher, cache, ttl), closers, nil
}

// CloseAll runs closers in reverse order, logging failures.
func CloseAll(closers []func() error) {
	for index := len(closers) - 1; index >= 0; index-- {
		err := closers[index]()
		if err != nil {
			tl.Log(tl.Warning, palette.Yellow, "Unable to release resource: '%s'", err)
		}
	}
}
