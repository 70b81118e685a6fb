package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

const (
	DefaultTargetWidth = 2000

	darkThreshold   = 120 // dark photos keep more midtones as ink
	normalThreshold = 140
	blurSigma       = 1.0
)

// sharpenKernel is [[0,-1,0],[-1,5,-1],[0,-1,0]] in row-major order.
var sharpenKernel = [9]float64{
	0, -1, 0,
	-1, 5, -1,
	0, -1, 0,
}

// adjustment holds the brightness/contrast correction as fractions in [-1, 1].
type adjustment struct {
	Brightness float64
	Contrast   float64
}

/*
Preprocessor turns a receipt photo into a black/white PNG tuned for tesseract.

Its parameters branch on the QualityReport of the original photo.
*/
type Preprocessor struct {
	targetWidth int
}

func NewPreprocessor(targetWidth int) *Preprocessor {
	if targetWidth <= 0 {
		targetWidth = DefaultTargetWidth
	}
	return &Preprocessor{targetWidth: targetWidth}
}

/*
DecodeImage decodes raw upload bytes (jpeg/png/gif/bmp/tiff), applying the
EXIF orientation so phone photos are upright.
*/
func DecodeImage(raw []byte) (img image.Image, e *xerr.Error) {
	if len(raw) == 0 {
		return nil, xerr.NewError(ErrEmptyImage, "unable to decode image", "0 bytes")
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, xerr.NewError(err, "unable to decode image", fmt.Sprintf("%d bytes", len(raw)))
	}

	bounds := img.Bounds()
	tl.Log(tl.Info1, palette.Cyan, "Decoded image '%vx%v'", bounds.Dx(), bounds.Dy())
	return img, nil
}

/*
Preprocess decodes raw bytes, analyzes quality and returns the OCR-ready PNG.

The pipeline calls DecodeImage, AnalyzeQuality and Apply separately so it can
tell an undecodable upload from a transform failure.
*/
func (p *Preprocessor) Preprocess(raw []byte) (cleanPNG []byte, report QualityReport, e *xerr.Error) {
	img, e := DecodeImage(raw)
	if e != nil {
		return nil, report, e
	}

	report, e = AnalyzeQuality(img)
	if e != nil {
		return nil, report, e
	}

	cleanPNG, e = p.Apply(img, report)
	return cleanPNG, report, e
}

/*
Apply runs Transform and encodes the result as PNG.

A panic inside the imaging transforms (corrupt pixel buffers) is turned into
an error so the pipeline never emits a half-processed image.
*/
func (p *Preprocessor) Apply(img image.Image, report QualityReport) (cleanPNG []byte, e *xerr.Error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			cleanPNG = nil
			e = xerr.NewError(fmt.Errorf("%v", recovered), "image transform panicked", report)
		}
	}()

	processed := p.Transform(img, report)

	var buffer bytes.Buffer
	err := imaging.Encode(&buffer, processed, imaging.PNG)
	if err != nil {
		return nil, xerr.NewError(err, "unable to encode processed image as PNG", report)
	}

	tl.Log(
		tl.Info1, palette.Green, "Preprocessed image to '%vx%v' PNG (%v bytes)",
		processed.Bounds().Dx(), processed.Bounds().Dy(), buffer.Len(),
	)
	return buffer.Bytes(), nil
}

/*
Transform applies the preprocessing steps in order:
 1. Upscale to the target width if narrower (aspect ratio kept).
 2. Greyscale.
 3. Brightness/contrast correction chosen by the quality report.
 4. Histogram normalization.
 5. Binarization at 120 (dark) or 140.
 6. Blur with sigma 1.
 7. Sharpen with a 3x3 kernel, skipped for dark photos.
*/
func (p *Preprocessor) Transform(img image.Image, report QualityReport) *image.NRGBA {
	working := imaging.Clone(img)

	if working.Bounds().Dx() < p.targetWidth {
		working = imaging.Resize(working, p.targetWidth, 0, imaging.Lanczos)
	}

	working = imaging.Grayscale(working)

	adj := adjustmentFor(report)
	tl.Log(
		tl.Verbose, palette.CyanDim, "Adjustments: brightness '%v', contrast '%v', threshold '%v', sharpen '%v'",
		adj.Brightness, adj.Contrast, thresholdFor(report), !report.IsDark,
	)
	if adj.Brightness != 0 {
		working = imaging.AdjustBrightness(working, adj.Brightness*100)
	}
	if adj.Contrast != 0 {
		working = imaging.AdjustContrast(working, adj.Contrast*100)
	}

	working = normalizeHistogram(working)
	working = binarize(working, thresholdFor(report))
	working = imaging.Blur(working, blurSigma)

	if !report.IsDark {
		working = imaging.Convolve3x3(working, sharpenKernel, nil)
	}

	return working
}

func adjustmentFor(report QualityReport) adjustment {
	switch {
	case report.IsDark:
		return adjustment{Brightness: 0.3, Contrast: 1.0}
	case report.IsVeryBright:
		return adjustment{Brightness: -0.2, Contrast: 0.7}
	default:
		return adjustment{Contrast: 0.9}
	}
}

func thresholdFor(report QualityReport) uint8 {
	if report.IsDark {
		return darkThreshold
	}
	return normalThreshold
}

/*
normalizeHistogram linearly stretches the occupied luminance range to 0..255.

The image is already greyscale, so the red channel stands in for luminance.
Flat images are returned unchanged.
*/
func normalizeHistogram(img *image.NRGBA) *image.NRGBA {
	low, high := 255, 0
	for offset := 0; offset < len(img.Pix); offset += 4 {
		level := int(img.Pix[offset])
		if level < low {
			low = level
		}
		if level > high {
			high = level
		}
	}
	if high <= low {
		return img
	}

	scale := 255.0 / float64(high-low)
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		stretched := (float64(c.R) - float64(low)) * scale
		value := uint8(clampChannel(stretched))
		return color.NRGBA{R: value, G: value, B: value, A: c.A}
	})
}

// binarize maps pixels above threshold to white and the rest to black.
func binarize(img *image.NRGBA, threshold uint8) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		if c.R > threshold {
			return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
		}
		return color.NRGBA{R: 0, G: 0, B: 0, A: 255}
	})
}

func clampChannel(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 255 {
		return 255
	}
	return value + 0.5
}
