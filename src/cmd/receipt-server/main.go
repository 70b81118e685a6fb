package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"receipt-impact/src/pkg/bootstrap"
	"receipt-impact/src/pkg/config"
	echomw "receipt-impact/src/pkg/echo-middleware"
	"receipt-impact/src/pkg/intake"
	"receipt-impact/src/pkg/metrics"
	"receipt-impact/src/pkg/receipt"
)

/*
main serves the receipt pipeline over HTTP.

	POST /api/v1/receipts  multipart field "image", bearer token required
	GET  /healthz
	GET  /metrics
*/
func main() {
	config.CheckIfEnvVarsPresent(bootstrap.EnvOpenAIKey, echomw.EnvIntakeBearerToken)

	configPath := flag.String("config", "./cfg/config.json", "Path to your configuration file.")
	outputDirPath := flag.String("out", "", "Directory for run artifacts (default: receipt.output_dir from config).")
	flag.Parse()
	e := bootstrap.InitializeConfigs(*configPath)
	e.QuitIf(xerr.ErrorTypeError)

	outDir := *outputDirPath
	if outDir == "" {
		outDir = receipt.Cfg.OutputDir
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewPipelineMetrics()
	app, e := bootstrap.NewApp(ctx, m)
	e.QuitIf(xerr.ErrorTypeError)
	defer app.Close()

	handler := &intake.Handler{
		Processor:      app.Pipeline,
		OutputDir:      outDir,
		Timeout:        time.Duration(receipt.Cfg.RequestTimeoutSeconds) * time.Second,
		MaxUploadBytes: int64(echomw.Cfg.MaxUploadMegabytes) << 20,
	}

	server := echo.New()
	server.HideBanner = true
	server.HidePort = true
	server.Use(echomw.RouteAccessLogger(m))
	server.GET("/healthz", intake.Healthz)
	server.GET("/metrics", echo.WrapHandler(m.Handler()))

	limiter := echomw.NewRateLimiter(echomw.Cfg.MiddlewareRateLimit, echomw.Cfg.MiddlewareBurst)
	api := server.Group("/api/v1", limiter.Middleware, echomw.RequireBearerToken(echomw.TokenFromEnv()))
	handler.Register(api)

	address := fmt.Sprintf("%s:%d", echomw.Cfg.Address, echomw.Cfg.Port)
	go func() {
		tl.Log(tl.Notice, palette.BlueBold, "Receipt server listening on '%s', artifacts in '%s'", address, outDir)
		if err := server.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			tl.Log(tl.Error, palette.RedBold, "Receipt server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	tl.Log(tl.Notice, palette.Blue, "%s", "Shutting down receipt server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		tl.Log(tl.Warning, palette.Yellow, "Graceful shutdown failed: %v", err)
	}
}
