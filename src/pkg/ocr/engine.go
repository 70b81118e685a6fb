package ocr

import (
	"context"

	"github.com/tuumbleweed/xerr"
)

// SegmentationMode is the page layout assumption handed to the OCR engine.
type SegmentationMode string

const (
	SingleBlock  SegmentationMode = "SINGLE_BLOCK"  // compact, regular receipts
	SingleColumn SegmentationMode = "SINGLE_COLUMN" // long, vertically scrolling receipts
)

// passModes is the fixed pass order; on equal confidence the earlier pass wins.
var passModes = []SegmentationMode{SingleBlock, SingleColumn}

// PassResult is the output of one OCR pass.
type PassResult struct {
	Text       string           `json:"text"`
	Confidence float64          `json:"confidence"` // 0-100
	Mode       SegmentationMode `json:"segmentation_mode"`
}

/*
Engine recognizes text in an image with a given segmentation mode.

Each call must use its own engine session; implementations must not carry
parameters from one call into the next.
*/
type Engine interface {
	RecognizeText(ctx context.Context, image []byte, mode SegmentationMode, language string) (result PassResult, e *xerr.Error)
}
