package ocr

import (
	"context"
	"errors"
	"fmt"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
	"golang.org/x/sync/errgroup"
)

var ErrAllPassesFailed = errors.New("every OCR pass failed")

// PassFailure records why one pass produced no result.
type PassFailure struct {
	Mode    SegmentationMode `json:"segmentation_mode"`
	Message string           `json:"message"`
}

// Selection is the outcome of a multi-pass recognition.
type Selection struct {
	Selected PassResult    `json:"selected"`
	Passes   []PassResult  `json:"passes"`
	Failures []PassFailure `json:"failures,omitempty"`
}

// Recognizer runs every segmentation mode and keeps the most confident pass.
type Recognizer struct {
	engine     Engine
	sequential bool
}

func NewRecognizer(engine Engine, sequential bool) *Recognizer {
	return &Recognizer{engine: engine, sequential: sequential}
}

/*
Recognize runs the SINGLE_BLOCK and SINGLE_COLUMN passes over the same image
and selects the one with strictly higher confidence (ties keep SINGLE_BLOCK).

A failed pass is tolerated as long as the other one produced text. If both
fail, the returned error wraps ErrAllPassesFailed.
*/
func (r *Recognizer) Recognize(ctx context.Context, image []byte, language string) (selection Selection, e *xerr.Error) {
	results := make([]PassResult, len(passModes))
	failures := make([]*xerr.Error, len(passModes))

	runPass := func(index int, mode SegmentationMode) {
		results[index], failures[index] = r.engine.RecognizeText(ctx, image, mode, language)
	}

	if r.sequential {
		for index, mode := range passModes {
			runPass(index, mode)
		}
	} else {
		var group errgroup.Group
		for index, mode := range passModes {
			group.Go(func() error {
				runPass(index, mode)
				return nil
			})
		}
		_ = group.Wait()
	}

	for index, mode := range passModes {
		if failures[index] != nil {
			message := fmt.Sprintf("%v", failures[index])
			selection.Failures = append(selection.Failures, PassFailure{Mode: mode, Message: message})
			tl.Log(tl.Warning, palette.Yellow, "OCR pass '%s' failed: '%s'", mode, message)
			continue
		}
		results[index].Mode = mode
		selection.Passes = append(selection.Passes, results[index])
		tl.Log(
			tl.Info, palette.Cyan, "OCR pass '%s': confidence '%s', text length '%v'",
			mode, fmt.Sprintf("%.1f", results[index].Confidence), len(results[index].Text),
		)
	}

	if len(selection.Passes) == 0 {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return selection, xerr.NewError(ctxErr, "OCR cancelled", selection.Failures)
		}
		return selection, xerr.NewError(ErrAllPassesFailed, "no OCR pass produced text", selection.Failures)
	}

	selection.Selected = selectPass(selection.Passes)
	tl.Log(
		tl.Notice1, palette.GreenBold, "Selected OCR pass '%s' with confidence '%s'",
		selection.Selected.Mode, fmt.Sprintf("%.1f", selection.Selected.Confidence),
	)
	return selection, nil
}

// selectPass keeps the first pass unless a later one is strictly more confident.
func selectPass(passes []PassResult) PassResult {
	winner := passes[0]
	for _, candidate := range passes[1:] {
		if candidate.Confidence > winner.Confidence {
			winner = candidate
		}
	}
	return winner
}
