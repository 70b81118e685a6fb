package receipt

import (
	"context"
	"errors"
	"fmt"

	"github.com/tuumbleweed/xerr"

	"receipt-impact/src/pkg/impact"
	"receipt-impact/src/pkg/products"
)

// Failure kinds of a pipeline run; test them with errors.Is.
var (
	ErrInvalidImage       = errors.New("invalid image")
	ErrPreprocessing      = errors.New("image preprocessing failed")
	ErrOcrUnavailable     = errors.New("ocr unavailable")
	ErrEmptyReceipt       = impact.ErrEmptyReceipt
	ErrMatcherUnavailable = products.ErrMatcherUnavailable
)

type Stage string

const (
	StageDecode     Stage = "decode"
	StagePreprocess Stage = "preprocess"
	StageOCR        Stage = "ocr"
	StageCorrection Stage = "correction"
	StageParse      Stage = "parse"
	StageStore      Stage = "store"
	StageClassify   Stage = "classify"
	StageAggregate  Stage = "aggregate"
)

// Error is a failed run: the kind, the stage it happened in and the detailed cause.
type Error struct {
	Kind   error
	Stage  Stage
	Detail *xerr.Error
}

func (e *Error) Error() string {
	if e.Detail == nil {
		return fmt.Sprintf("%s: %s", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// KindName is the short label used in metrics and HTTP error bodies.
func KindName(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidImage):
		return "invalid_image"
	case errors.Is(err, ErrPreprocessing):
		return "preprocessing"
	case errors.Is(err, ErrOcrUnavailable):
		return "ocr_unavailable"
	case errors.Is(err, ErrEmptyReceipt):
		return "empty_receipt"
	case errors.Is(err, ErrMatcherUnavailable):
		return "matcher_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline_exceeded"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "unknown"
	}
}
