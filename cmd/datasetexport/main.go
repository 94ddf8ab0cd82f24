package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/shelfline/feedengine/internal/config"
	"github.com/shelfline/feedengine/internal/export"
	"github.com/shelfline/feedengine/internal/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	sinceDays := flag.Int("since-days", 30, "export ranking events from the last N days")
	outPath := flag.String("out", "", "output file path (defaults to stdout)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	if err := do(*sinceDays, *outPath, logger); err != nil {
		logger.Error("export failed", "error", err)
		return 1
	}
	return 0
}

func do(sinceDays int, outPath string, logger *slog.Logger) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	db, err := storage.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer db.Close(ctx)

	w := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		n, err := export.Run(ctx, db, sinceDays, f)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		logger.Info("export complete", "records", n, "out", outPath)
		return nil
	}

	n, err := export.Run(ctx, db, sinceDays, w)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	logger.Info("export complete", "records", n, "out", "stdout")
	return nil
}
