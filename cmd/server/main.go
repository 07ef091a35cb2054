package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gwi.com/divination/internal/api"
	"gwi.com/divination/internal/config"
	"gwi.com/divination/internal/content"
	"gwi.com/divination/internal/core"
	"gwi.com/divination/internal/store"
)

type readFlags struct {
	kind     string
	question string
	layout   string
	sign     string
	month    int
	day      int
}

func main() {
	var rf readFlags
	flag.StringVar(&rf.kind, "read", "", "Perform one reading (tarot, iching or zodiac), print it as JSON and exit")
	flag.StringVar(&rf.question, "question", "", "Question for a tarot or I Ching reading")
	flag.StringVar(&rf.layout, "layout", "", "Tarot layout (single, three or cross)")
	flag.StringVar(&rf.sign, "sign", "", "Zodiac sign id")
	flag.IntVar(&rf.month, "month", 0, "Birth month for a zodiac reading")
	flag.IntVar(&rf.day, "day", 0, "Birth day for a zodiac reading")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level: %v\n", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(cfg, rf, logger); err != nil {
		logger.Error("Service stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, rf readFlags, logger *slog.Logger) error {
	tables, err := content.Default()
	if err != nil {
		return fmt.Errorf("failed to load content tables: %w", err)
	}
	rng, err := core.NewRNG(cfg.RNGSeed)
	if err != nil {
		return err
	}

	// Initialize database store
	dbStore, err := store.NewSQLiteStore(cfg.DatabaseDriver, cfg.DatabaseURL, cfg.HistoryLimit)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbStore.Close()

	// Initialize model capability
	model, err := core.NewModelCapability(context.Background(), cfg.AI, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize AI provider: %w", err)
	}
	if closer, ok := model.(io.Closer); ok {
		defer closer.Close()
	}
	if cfg.AI.Enabled && !model.Available() {
		logger.Warn("No API key configured for AI provider, interpretations will be traditional", "provider", cfg.AI.Provider)
	}

	interpreter := core.NewInterpreter(model, cfg.AI, logger)
	readings := core.NewReadingService(tables, rng, interpreter, dbStore, logger)

	if rf.kind != "" {
		return readOnce(context.Background(), readings, rf, os.Stdout)
	}
	return serve(cfg, readings, logger)
}

func readOnce(ctx context.Context, readings *core.ReadingService, rf readFlags, out io.Writer) error {
	kind, err := core.ParseReadingType(rf.kind)
	if err != nil {
		return err
	}

	var reading any
	switch kind {
	case core.ReadingTarot:
		reading, err = readings.NewTarotReading(ctx, core.TarotRequest{Question: rf.question, Layout: rf.layout, Diagnostics: true})
	case core.ReadingIChing:
		reading, err = readings.NewIChingReading(ctx, core.IChingRequest{Question: rf.question, Diagnostics: true})
	case core.ReadingZodiac:
		reading, err = readings.NewZodiacReading(ctx, core.ZodiacRequest{Sign: rf.sign, Month: rf.month, Day: rf.day})
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(reading)
}

func serve(cfg config.Config, readings *core.ReadingService, logger *slog.Logger) error {
	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(readings, logger)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.AI.Timeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server. Press Ctrl+C to quit.", "addr", serverAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("could not listen on %s: %w", serverAddr, err)
		}
		close(serverErr)
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return err
	case <-quit:
	}
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exiting gracefully")
	return nil
}
