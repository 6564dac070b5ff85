package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/phuslu/log"

	"github.com/MalithGihan/extract-service/internal/api"
	"github.com/MalithGihan/extract-service/internal/config"
	"github.com/MalithGihan/extract-service/internal/ingest"
	"github.com/MalithGihan/extract-service/internal/partition"
	"github.com/MalithGihan/extract-service/internal/store"
	"github.com/MalithGihan/extract-service/internal/unstructured"
)

const version = "0.1.0"

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("EXTRACTD_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	setupLogger(cfg.Logging)
	logger := &log.DefaultLogger

	st, err := store.New(cfg.Storage.TempRoot, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("create temp dir")
	}
	defer st.Close()

	var engine ingest.Engine
	switch cfg.Engine.Kind {
	case config.EngineUnstructured:
		engine = unstructured.New(cfg.Unstructured.URL, cfg.Unstructured.APIKey, cfg.Unstructured.Strategy, cfg.Unstructured.Timeout)
	default:
		engine = partition.New(logger)
	}

	workers := cfg.Engine.Workers
	if workers == 0 {
		workers = ingest.DefaultWorkers()
	}
	pipe := ingest.New(engine, st, ingest.WithWorkers(workers), ingest.WithLogger(logger))

	h := api.New(pipe, api.Metadata{
		Title:       "Unstructured Extraction Service",
		Description: "Extracts structured content elements from uploaded documents.",
		Version:     version,
		Engine:      cfg.Engine.Kind,
	}, cfg.Server.MaxUploadBytes, logger)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("engine", cfg.Engine.Kind).
			Int("workers", workers).
			Str("max_upload", humanize.IBytes(uint64(cfg.Server.MaxUploadBytes))).
			Str("temp_dir", st.Root).
			Msg("extractd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
}

func setupLogger(c config.LoggingConfig) {
	var w log.Writer = &log.ConsoleWriter{ColorOutput: true, Writer: os.Stderr}
	if c.Format == "json" {
		w = &log.IOWriter{Writer: os.Stderr}
	}
	log.DefaultLogger = log.Logger{
		Level:      log.ParseLevel(c.Level),
		TimeFormat: time.RFC3339,
		Writer:     w,
	}
}
