package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"

	"receipt-impact/src/pkg/impact"
	"receipt-impact/src/pkg/receipt"
)

const imageField = "image"

// Processor runs one receipt photo through the pipeline.
type Processor interface {
	Process(ctx context.Context, rawImage []byte) (receipt.Result, *receipt.Error)
}

// Handler serves receipt uploads.
type Handler struct {
	Processor      Processor
	OutputDir      string // empty means artifacts are not stored
	Timeout        time.Duration
	MaxUploadBytes int64
}

// Response is the body of a successful upload.
type Response struct {
	RunID    string                 `json:"run_id"`
	RunDir   string                 `json:"run_dir,omitempty"`
	Store    string                 `json:"store"`
	Analysis impact.ReceiptAnalysis `json:"analysis"`
}

// ErrorResponse is the body of a failed upload.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Stage string `json:"stage,omitempty"`
}

// Register mounts the upload route on g.
func (h *Handler) Register(g *echo.Group) {
	g.POST("/receipts", h.UploadReceipt)
}

// UploadReceipt reads the multipart image field, runs the pipeline and returns the analysis.
func (h *Handler) UploadReceipt(c echo.Context) error {
	raw, ext, err := h.readImage(c)
	if err != nil {
		tl.Log(tl.Warning, palette.Yellow, "Rejected upload from '%s': %v", c.RealIP(), err)
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "invalid_request"})
	}

	ctx := c.Request().Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	result, runErr := h.Processor.Process(ctx, raw)
	if runErr != nil {
		status := StatusForError(runErr)
		tl.Log(tl.Warning, palette.Yellow, "Receipt run failed with status '%v': %v", status, runErr)
		return c.JSON(status, ErrorResponse{Error: runErr.Kind.Error(), Kind: receipt.KindName(runErr), Stage: string(runErr.Stage)})
	}

	response := Response{RunID: result.RunID, Store: result.Store.Key, Analysis: result.Analysis}
	if h.OutputDir != "" {
		runDirPath, e := receipt.SaveArtifacts(h.OutputDir, result, raw, ext)
		if e != nil {
			// The analysis is still valid, so the client gets it anyway.
			tl.Log(tl.Error, palette.RedBold, "Unable to save artifacts for run '%s': %v", result.RunID, e)
		}
		response.RunDir = runDirPath
	}
	return c.JSON(http.StatusOK, response)
}

func (h *Handler) readImage(c echo.Context) (raw []byte, ext string, err error) {
	if h.MaxUploadBytes > 0 {
		c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, h.MaxUploadBytes)
	}
	fileHeader, err := c.FormFile(imageField)
	if err != nil {
		return nil, "", fmt.Errorf("multipart field '%s' is required: %w", imageField, err)
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	raw, err = io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	if len(raw) == 0 {
		return nil, "", errors.New("uploaded image is empty")
	}
	return raw, filepath.Ext(fileHeader.Filename), nil
}

// StatusForError maps a failed run to the HTTP status returned to the client.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, receipt.ErrInvalidImage):
		return http.StatusBadRequest
	case errors.Is(err, receipt.ErrPreprocessing), errors.Is(err, receipt.ErrEmptyReceipt):
		return http.StatusUnprocessableEntity
	case errors.Is(err, receipt.ErrOcrUnavailable), errors.Is(err, receipt.ErrMatcherUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// nginx's "client closed request"
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// Healthz answers liveness probes.
func Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
