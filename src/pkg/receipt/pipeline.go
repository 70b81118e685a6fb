package receipt

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"receipt-impact/src/pkg/impact"
	"receipt-impact/src/pkg/llm"
	"receipt-impact/src/pkg/metrics"
	"receipt-impact/src/pkg/ocr"
	"receipt-impact/src/pkg/parser"
	"receipt-impact/src/pkg/products"
	"receipt-impact/src/pkg/store"
)

// Dependencies are the collaborators of a Pipeline; Metrics may be nil.
type Dependencies struct {
	Preprocessor *ocr.Preprocessor
	Recognizer   *ocr.Recognizer
	Corrector    *llm.Corrector
	Detector     *store.Detector
	Classifier   *products.Classifier
	Aggregator   *impact.Aggregator
	Metrics      *metrics.PipelineMetrics
	Language     string
}

type Pipeline struct {
	deps Dependencies
}

func NewPipeline(deps Dependencies) *Pipeline {
	if deps.Language == "" {
		deps.Language = ocr.DefaultValueConfig().Language
	}
	return &Pipeline{deps: deps}
}

// Result holds everything one run produced.
type Result struct {
	RunID      string                       `json:"run_id"`
	StartedAt  time.Time                    `json:"started_at"`
	FinishedAt time.Time                    `json:"finished_at"`
	Quality    ocr.QualityReport            `json:"quality"`
	OCR        ocr.Selection                `json:"ocr"`
	Correction llm.Correction               `json:"correction"`
	Store      store.Store                  `json:"store"`
	Products   []products.ClassifiedProduct `json:"products"`
	Discarded  []parser.Discard             `json:"discarded,omitempty"`
	Analysis   impact.ReceiptAnalysis       `json:"analysis"`
	CleanImage []byte                       `json:"-"`
}

/*
Process runs one receipt photo through every stage:
decode, quality analysis and preprocessing, two-pass OCR, confidence-gated
correction, parsing, store detection, classification and aggregation.

The run is all-or-nothing: on failure the returned *Error carries the kind
and stage, and no analysis is produced.
*/
func (p *Pipeline) Process(ctx context.Context, rawImage []byte) (result Result, e *Error) {
	result.RunID = uuid.NewString()
	result.StartedAt = time.Now()
	p.deps.Metrics.StartReceipt()

	tl.Log(tl.Notice, palette.BlueBold, "%s receipt run '%s' (%v bytes)", "Starting", result.RunID, len(rawImage))

	e = p.run(ctx, rawImage, &result)
	result.FinishedAt = time.Now()

	if e != nil {
		p.deps.Metrics.FinishReceipt(KindName(e))
		tl.Log(tl.Error, palette.RedBold, "Receipt run '%s' failed at '%s': %s", result.RunID, e.Stage, e.Error())
		return Result{RunID: result.RunID, StartedAt: result.StartedAt, FinishedAt: result.FinishedAt}, e
	}

	p.deps.Metrics.FinishReceipt(KindName(nil))
	tl.Log(
		tl.Notice1, palette.GreenBold, "%s receipt run '%s' in '%s': '%v' products, tier '%s'",
		"Finished", result.RunID, result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond),
		len(result.Products), result.Analysis.EnvironmentalTier,
	)
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, rawImage []byte, result *Result) (e *Error) {
	var decoded image.Image
	e = p.stage(ctx, StageDecode, ErrInvalidImage, func() (decodeErr *xerr.Error) {
		decoded, decodeErr = ocr.DecodeImage(rawImage)
		if decodeErr != nil {
			return decodeErr
		}
		result.Quality, decodeErr = ocr.AnalyzeQuality(decoded)
		return decodeErr
	})
	if e != nil {
		return e
	}

	e = p.stage(ctx, StagePreprocess, ErrPreprocessing, func() *xerr.Error {
		clean, applyErr := p.deps.Preprocessor.Apply(decoded, result.Quality)
		result.CleanImage = clean
		return applyErr
	})
	if e != nil {
		return e
	}

	e = p.stage(ctx, StageOCR, ErrOcrUnavailable, func() *xerr.Error {
		selection, ocrErr := p.deps.Recognizer.Recognize(ctx, result.CleanImage, p.deps.Language)
		result.OCR = selection
		return ocrErr
	})
	if e != nil {
		return e
	}
	for _, pass := range result.OCR.Passes {
		p.deps.Metrics.ObservePass(string(pass.Mode), pass.Confidence)
	}
	p.deps.Metrics.SelectedMode(string(result.OCR.Selected.Mode))

	e = p.stage(ctx, StageCorrection, nil, func() *xerr.Error {
		selected := result.OCR.Selected
		result.Correction = p.deps.Corrector.CorrectIfNeeded(ctx, selected.Text, selected.Confidence)
		return nil
	})
	if e != nil {
		return e
	}
	p.deps.Metrics.Correction(string(result.Correction.Outcome))

	var parsed parser.Result
	e = p.stage(ctx, StageParse, ErrEmptyReceipt, func() *xerr.Error {
		parsed = parser.Parse(result.Correction.Text)
		result.Discarded = parsed.Discarded
		if len(parsed.Products) == 0 {
			return xerr.NewError(ErrEmptyReceipt, "no product could be parsed from the OCR text", len(parsed.Discarded))
		}
		return nil
	})
	p.deps.Metrics.ParsedProducts(len(parsed.Products), len(parsed.Discarded))
	if e != nil {
		return e
	}

	e = p.stage(ctx, StageStore, nil, func() *xerr.Error {
		result.Store = p.deps.Detector.Detect(result.Correction.Text)
		return nil
	})
	if e != nil {
		return e
	}

	e = p.stage(ctx, StageClassify, ErrMatcherUnavailable, func() *xerr.Error {
		classified, classifyErr := p.deps.Classifier.ClassifyAll(ctx, parsed.Products, result.Store.Collection)
		result.Products = classified
		return classifyErr
	})
	if e != nil {
		return e
	}
	for _, product := range result.Products {
		if !product.Matched {
			p.deps.Metrics.ClassifierMiss(result.Store.Key)
		}
	}

	e = p.stage(ctx, StageAggregate, ErrEmptyReceipt, func() *xerr.Error {
		analysis, aggregateErr := p.deps.Aggregator.Analyze(result.Products, result.Store.Key)
		result.Analysis = analysis
		return aggregateErr
	})
	if e != nil {
		return e
	}
	p.deps.Metrics.Tier(string(result.Analysis.EnvironmentalTier))
	return nil
}

/*
stage runs fn after checking ctx, times it and turns a failure into an
*Error of the given kind. Cancellation wins over the stage kind.
*/
func (p *Pipeline) stage(ctx context.Context, stage Stage, kind error, fn func() *xerr.Error) *Error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &Error{Kind: ctxErr, Stage: stage, Detail: xerr.NewError(ctxErr, "receipt run cancelled", string(stage))}
	}

	tl.Log(tl.Info, palette.Blue, "%s stage '%s'", "Running", stage)
	started := time.Now()
	detail := fn()
	p.deps.Metrics.ObserveStage(string(stage), time.Since(started))

	if detail == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		kind = ctxErr
	}
	if kind == nil {
		kind = fmt.Errorf("%s stage failed", stage)
	}
	return &Error{Kind: kind, Stage: stage, Detail: detail}
}
