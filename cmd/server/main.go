package main

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"fapiao/internal/config"
	"fapiao/internal/handler"
	"fapiao/internal/pipeline"
	"fapiao/internal/preprocess"
	"fapiao/internal/qwen"
	"fapiao/internal/router"
	"fapiao/internal/template"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// .env is optional; real deployments configure via environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	client := qwen.NewClient(&cfg.Qwen)
	encoder := &preprocess.Encoder{MaxImageDim: cfg.Upload.MaxImageDim}
	runner := pipeline.NewRunner(client, encoder, cfg.Qwen.BatchSize, cfg.Qwen.Timeout())

	parseH := handler.NewParseHandler(runner, template.NewReader(), cfg.Upload.MaxFileSizeMB)
	exportH := handler.NewExportHandler()
	healthH := handler.NewHealthHandler()

	r := router.Setup(parseH, exportH, healthH, cfg.CORS.AllowedOrigins)

	log.Printf("Server starting on %s", cfg.Server.Port)
	if err := r.Run(cfg.Server.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}
