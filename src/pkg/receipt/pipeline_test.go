package receipt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/tuumbleweed/xerr"

	"receipt-impact/src/pkg/impact"
	"receipt-impact/src/pkg/llm"
	"receipt-impact/src/pkg/metrics"
	"receipt-impact/src/pkg/ocr"
	"receipt-impact/src/pkg/products"
	"receipt-impact/src/pkg/store"
)

const receiptText = `SUPERMERCADOS DIA
2500012000007 MANZANA
ROJA
1.17kg 6.50 X kg 7.61
7790001000012 LECHE ENTERA
3 2.39 X UN 7.17
TOTAL 14.78`

type scriptedEngine struct {
	text       string
	confidence float64
	fail       bool
}

func (s scriptedEngine) RecognizeText(_ context.Context, _ []byte, mode ocr.SegmentationMode, _ string) (ocr.PassResult, *xerr.Error) {
	if s.fail {
		return ocr.PassResult{}, xerr.NewError(errors.New("tesseract missing"), "fake engine failure", mode)
	}
	return ocr.PassResult{Text: s.text, Confidence: s.confidence, Mode: mode}, nil
}

type countingCompleter struct {
	calls int
}

func (c *countingCompleter) Complete(_ context.Context, _ string, _ float64) (string, *xerr.Error) {
	c.calls++
	return "", xerr.NewError(errors.New("offline"), "fake completer", nil)
}

type catalogue struct {
	down bool
}

func (c catalogue) FindSimilar(_ context.Context, name, _ string, _ bool) (*products.Match, *xerr.Error) {
	if c.down {
		return nil, xerr.NewError(errors.New("connection refused"), "fake catalogue down", name)
	}
	if name == "MANZANA ROJA" {
		return &products.Match{Name: "Manzana roja", Category: "Frutas", Co2Factor: 0.4, IsLocal: true, Score: 0.93}, nil
	}
	return nil, nil
}

func samplePhoto(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 60, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 60; x++ {
			c := color.NRGBA{R: 180, G: 180, B: 175, A: 255}
			if y%6 == 0 {
				c = color.NRGBA{R: 20, G: 20, B: 20, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	var buffer bytes.Buffer
	if err := png.Encode(&buffer, img); err != nil {
		t.Fatalf("encode sample photo: %v", err)
	}
	return buffer.Bytes()
}

func newTestPipeline(engine ocr.Engine, completer llm.Completer, matcher products.Matcher, m *metrics.PipelineMetrics) *Pipeline {
	return NewPipeline(Dependencies{
		Preprocessor: ocr.NewPreprocessor(200),
		Recognizer:   ocr.NewRecognizer(engine, true),
		Corrector:    llm.NewCorrector(completer, 70, 0.1),
		Detector:     store.NewDetector(store.DefaultValueConfig()),
		Classifier:   products.NewClassifier(matcher),
		Aggregator:   impact.NewAggregator(&impact.ThresholdTable{}),
		Metrics:      m,
		Language:     "spa",
	})
}

func TestProcessProducesAnalysis(t *testing.T) {
	completer := &countingCompleter{}
	pipeline := newTestPipeline(scriptedEngine{text: receiptText, confidence: 85}, completer, catalogue{}, metrics.NewPipelineMetrics())

	result, e := pipeline.Process(context.Background(), samplePhoto(t))
	if e != nil {
		t.Fatalf("Process() error = %v", e)
	}
	if completer.calls != 0 {
		t.Fatalf("confident OCR must not be corrected, got %d calls", completer.calls)
	}
	if result.Store.Key != "dia" {
		t.Fatalf("store = %+v", result.Store)
	}
	if len(result.Products) != 2 {
		t.Fatalf("products = %+v", result.Products)
	}
	if result.Products[0].Category != "Frutas" || result.Products[1].Category != products.FallbackCategory {
		t.Fatalf("categories = %s, %s", result.Products[0].Category, result.Products[1].Category)
	}
	if result.Analysis.TotalProducts != 2 || result.Analysis.GreenPercentage != 50 {
		t.Fatalf("analysis = %+v", result.Analysis)
	}
	if result.OCR.Selected.Mode != ocr.SingleBlock || len(result.CleanImage) == 0 || result.RunID == "" {
		t.Fatalf("run data missing: mode %s, image %d bytes, id %q", result.OCR.Selected.Mode, len(result.CleanImage), result.RunID)
	}
}

func TestProcessLowConfidenceFallsBackToOriginalText(t *testing.T) {
	completer := &countingCompleter{}
	pipeline := newTestPipeline(scriptedEngine{text: receiptText, confidence: 40}, completer, catalogue{}, nil)

	result, e := pipeline.Process(context.Background(), samplePhoto(t))
	if e != nil {
		t.Fatalf("Process() error = %v", e)
	}
	if completer.calls != 1 || result.Correction.Outcome != llm.OutcomeFallback {
		t.Fatalf("calls = %d, outcome = %s", completer.calls, result.Correction.Outcome)
	}
	if len(result.Products) != 2 {
		t.Fatalf("products = %d, want 2", len(result.Products))
	}
}

func TestProcessFailureKinds(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name    string
		ctx     context.Context
		image   []byte
		engine  ocr.Engine
		matcher products.Matcher
		kind    error
		stage   Stage
	}{
		{"garbage bytes", context.Background(), []byte("not an image"), scriptedEngine{text: receiptText, confidence: 90}, catalogue{}, ErrInvalidImage, StageDecode},
		{"empty upload", context.Background(), nil, scriptedEngine{text: receiptText, confidence: 90}, catalogue{}, ErrInvalidImage, StageDecode},
		{"ocr down", context.Background(), samplePhoto(t), scriptedEngine{fail: true}, catalogue{}, ErrOcrUnavailable, StageOCR},
		{"no products", context.Background(), samplePhoto(t), scriptedEngine{text: "GRACIAS POR SU COMPRA", confidence: 90}, catalogue{}, ErrEmptyReceipt, StageParse},
		{"catalogue down", context.Background(), samplePhoto(t), scriptedEngine{text: receiptText, confidence: 90}, catalogue{down: true}, ErrMatcherUnavailable, StageClassify},
		{"cancelled", cancelled, samplePhoto(t), scriptedEngine{text: receiptText, confidence: 90}, catalogue{}, context.Canceled, StageDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline := newTestPipeline(tt.engine, &countingCompleter{}, tt.matcher, metrics.NewPipelineMetrics())
			result, e := pipeline.Process(tt.ctx, tt.image)
			if e == nil {
				t.Fatalf("expected failure, got %+v", result.Analysis)
			}
			if !errors.Is(e, tt.kind) {
				t.Fatalf("error %v is not %v", e, tt.kind)
			}
			if e.Stage != tt.stage {
				t.Fatalf("stage = %s, want %s", e.Stage, tt.stage)
			}
			if len(result.Products) != 0 || result.Analysis.TotalProducts != 0 {
				t.Fatalf("failed run leaked partial output: %+v", result)
			}
		})
	}
}

func TestKindName(t *testing.T) {
	if got := KindName(&Error{Kind: ErrOcrUnavailable, Stage: StageOCR}); got != "ocr_unavailable" {
		t.Fatalf("KindName() = %q", got)
	}
	if got := KindName(nil); got != "success" {
		t.Fatalf("KindName(nil) = %q", got)
	}
}

func TestSaveArtifacts(t *testing.T) {
	pipeline := newTestPipeline(scriptedEngine{text: receiptText, confidence: 90}, &countingCompleter{}, catalogue{}, nil)
	photo := samplePhoto(t)
	result, e := pipeline.Process(context.Background(), photo)
	if e != nil {
		t.Fatalf("Process() error = %v", e)
	}

	runDir, saveErr := SaveArtifacts(t.TempDir(), result, photo, "png")
	if saveErr != nil {
		t.Fatalf("SaveArtifacts() error = %v", saveErr)
	}

	for _, name := range []string{"orig.png", "clean.png", "ocr.txt", "ocr-single-block.txt", "ocr-single-column.txt", "products.json", AnalysisFileName, "run.json"} {
		if _, err := os.Stat(filepath.Join(runDir, name)); err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(runDir, AnalysisFileName))
	if err != nil {
		t.Fatalf("read analysis: %v", err)
	}
	var analysis impact.ReceiptAnalysis
	if err := json.Unmarshal(data, &analysis); err != nil || analysis.TotalProducts != 2 {
		t.Fatalf("analysis file = %s (%v)", data, err)
	}
}
