package ocr

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

const (
	DarkBrightnessLimit   = 100.0 // mean below this is a dark photo
	BrightBrightnessLimit = 200.0 // mean above this is an over-exposed photo
)

var ErrEmptyImage = errors.New("image has no pixels")

// QualityReport describes the exposure of one decoded receipt photo.
type QualityReport struct {
	AverageBrightness float64 `json:"average_brightness"`
	IsDark            bool    `json:"is_dark"`
	IsVeryBright      bool    `json:"is_very_bright"`
}

/*
AnalyzeQuality computes the mean of (R+G+B)/3 over every pixel and classifies
the image as dark (< 100), very bright (> 200) or neither.

A nil or zero-area image is rejected.
*/
func AnalyzeQuality(img image.Image) (report QualityReport, e *xerr.Error) {
	if img == nil {
		return report, xerr.NewError(ErrEmptyImage, "unable to analyze image quality", "image is nil")
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return report, xerr.NewError(ErrEmptyImage, "unable to analyze image quality", bounds.String())
	}

	nrgba := imaging.Clone(img)
	pixelCount := len(nrgba.Pix) / 4
	var sum float64
	for offset := 0; offset+3 < len(nrgba.Pix); offset += 4 {
		pix := nrgba.Pix[offset : offset+3 : offset+3]
		sum += (float64(pix[0]) + float64(pix[1]) + float64(pix[2])) / 3.0
	}

	report = classifyBrightness(sum / float64(pixelCount))

	tl.Log(
		tl.Info1, palette.Cyan, "Image quality: brightness '%s', dark '%v', very bright '%v'",
		fmt.Sprintf("%.1f", report.AverageBrightness), report.IsDark, report.IsVeryBright,
	)
	return report, nil
}

func classifyBrightness(mean float64) QualityReport {
	return QualityReport{
		AverageBrightness: mean,
		IsDark:            mean < DarkBrightnessLimit,
		IsVeryBright:      mean > BrightBrightnessLimit,
	}
}
