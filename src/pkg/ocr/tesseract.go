package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

// TesseractEngine runs tesseract through gosseract, one client per call.
type TesseractEngine struct{}

func NewTesseractEngine() *TesseractEngine {
	return &TesseractEngine{}
}

/*
RecognizeText performs OCR on PNG bytes with a fresh gosseract client.

The client is created and closed inside the call, so two passes never share
tesseract state. Confidence is the mean word confidence reported by
tesseract. gosseract cannot be interrupted, so ctx is only checked before the
pass starts.
*/
func (t *TesseractEngine) RecognizeText(ctx context.Context, image []byte, mode SegmentationMode, language string) (result PassResult, e *xerr.Error) {
	result.Mode = mode

	err := ctx.Err()
	if err != nil {
		return result, xerr.NewError(err, "OCR pass cancelled before start", mode)
	}

	pageSegMode, e := pageSegModeFor(mode)
	if e != nil {
		return result, e
	}

	tl.Log(tl.Info1, palette.Cyan, "Running OCR pass '%s' with language '%s'", mode, language)

	client := gosseract.NewClient()
	defer func() {
		_ = client.Close()
	}()

	languages := strings.Split(language, "+")
	err = client.SetLanguage(languages...)
	if err != nil {
		return result, xerr.NewError(err, "unable to client.SetLanguage", language)
	}

	// Keep column spacing so "1.17kg 6.50 X kg 7.61" survives as one line.
	err = client.SetVariable("preserve_interword_spaces", "1")
	if err != nil {
		return result, xerr.NewError(err, "unable to client.SetVariable(\"preserve_interword_spaces\", \"1\")", mode)
	}

	err = client.SetPageSegMode(pageSegMode)
	if err != nil {
		return result, xerr.NewError(err, "unable to client.SetPageSegMode", mode)
	}

	err = client.SetImageFromBytes(image)
	if err != nil {
		return result, xerr.NewError(err, "unable to client.SetImageFromBytes", fmt.Sprintf("%d bytes", len(image)))
	}

	text, err := client.Text()
	if err != nil {
		return result, xerr.NewError(err, "unable to run OCR on image", mode)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return result, xerr.NewError(err, "unable to read word confidences", mode)
	}

	result.Text = text
	result.Confidence = meanWordConfidence(boxes)

	tl.Log(
		tl.Info1, palette.Green, "OCR pass '%s' completed (text length: %v, confidence: %s)",
		mode, len(text), fmt.Sprintf("%.1f", result.Confidence),
	)
	return result, nil
}

func pageSegModeFor(mode SegmentationMode) (psm gosseract.PageSegMode, e *xerr.Error) {
	switch mode {
	case SingleBlock:
		return gosseract.PSM_SINGLE_BLOCK, nil
	case SingleColumn:
		return gosseract.PSM_SINGLE_COLUMN, nil
	default:
		return psm, xerr.NewError(fmt.Errorf("unknown segmentation mode '%s'", mode), "unable to map segmentation mode", mode)
	}
}

// meanWordConfidence averages the confidence of non-empty words; 0 when none.
func meanWordConfidence(boxes []gosseract.BoundingBox) float64 {
	var sum float64
	var count int
	for _, box := range boxes {
		if strings.TrimSpace(box.Word) == "" {
			continue
		}
		sum += box.Confidence
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
