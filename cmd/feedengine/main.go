package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/shelfline/feedengine/internal/auth"
	"github.com/shelfline/feedengine/internal/categorize"
	"github.com/shelfline/feedengine/internal/config"
	"github.com/shelfline/feedengine/internal/feed"
	"github.com/shelfline/feedengine/internal/fetchguard"
	"github.com/shelfline/feedengine/internal/ingest"
	"github.com/shelfline/feedengine/internal/ratelimit"
	"github.com/shelfline/feedengine/internal/reranker"
	"github.com/shelfline/feedengine/internal/search"
	"github.com/shelfline/feedengine/internal/server"
	"github.com/shelfline/feedengine/internal/service/embedding"
	"github.com/shelfline/feedengine/internal/storage"
	"github.com/shelfline/feedengine/internal/telemetry"
	"github.com/shelfline/feedengine/migrations"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("FEEDENGINE_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("feedengine starting", "version", version, "port", cfg.Port)

	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.Environment != "production")
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	db, err := storage.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer db.Close(ctx)

	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	jwtMgr, err := auth.NewJWTManager(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	fetcher := fetchguard.NewClient(fetchguard.NewCache(), 10*time.Second)
	embedder := newEmbeddingProvider(cfg, logger)
	categorizer := newCategorizationProvider(cfg, logger)
	ingestor := ingest.New(db, fetcher, categorizer, embedder)
	feedHandler := feed.New(db, reranker.NewCache(), cfg.XGBoostRerankerModelPath, cfg.EnableXGBoostReranker)

	limiter := ratelimit.NewMemoryLimiter(1, 20)
	defer func() { _ = limiter.Close() }()

	searchIndex, err := search.New()
	if err != nil {
		logger.Warn("search index init failed, full-text search disabled", "error", err)
		searchIndex = nil
	}

	h := server.NewHandlers(server.HandlersDeps{
		DB:           db,
		JWTMgr:       jwtMgr,
		Ingestor:     ingestor,
		Fetcher:      fetcher,
		Feed:         feedHandler,
		Search:       searchIndex,
		Logger:       logger,
		CookieName:   cfg.SessionCookieName,
		CookieSecure: cfg.IsProduction(),
		SessionTTL:   cfg.SessionTTL,
	})

	srv := server.New(server.ServerConfig{
		Port:         cfg.Port,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		Logger:       logger,
		Limiter:      limiter,
	}, h)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	slog.Info("feedengine shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	slog.Info("feedengine stopped")
	return nil
}

// newEmbeddingProvider selects an embedding provider based on configuration.
// Provider selection: "openai", "ollama", "noop", or "auto" (default).
// Auto mode tries Ollama if reachable, then OpenAI if a key is present,
// else falls back to noop (semantic matching disabled, spec §9).
func newEmbeddingProvider(cfg config.Config, logger *slog.Logger) embedding.Provider {
	dims := cfg.EmbeddingDimensions

	switch cfg.EmbeddingProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			logger.Error("OPENAI_API_KEY required when FEEDENGINE_EMBEDDING_PROVIDER=openai")
			return embedding.NewNoopProvider(dims)
		}
		logger.Info("embedding provider: openai", "model", cfg.EmbeddingModel, "dimensions", dims)
		return embedding.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.EmbeddingModel, dims)

	case "ollama":
		logger.Info("embedding provider: ollama", "url", cfg.OllamaURL, "model", cfg.OllamaModel, "dimensions", dims)
		return embedding.NewOllamaProvider(cfg.OllamaURL, cfg.OllamaModel, dims)

	case "noop":
		logger.Info("embedding provider: noop (semantic matching disabled)")
		return embedding.NewNoopProvider(dims)

	case "auto":
		fallthrough
	default:
		if ollamaReachable(cfg.OllamaURL) {
			logger.Info("embedding provider: ollama (auto-detected)", "url", cfg.OllamaURL, "model", cfg.OllamaModel, "dimensions", dims)
			return embedding.NewOllamaProvider(cfg.OllamaURL, cfg.OllamaModel, dims)
		}
		if cfg.OpenAIAPIKey != "" {
			logger.Info("embedding provider: openai (auto-detected)", "model", cfg.EmbeddingModel, "dimensions", dims)
			return embedding.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.EmbeddingModel, dims)
		}
		logger.Warn("no embedding provider available, using noop (semantic matching disabled)")
		return embedding.NewNoopProvider(dims)
	}
}

// ollamaReachable checks whether an Ollama server is responding.
func ollamaReachable(baseURL string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// newCategorizationProvider selects the categorization provider: an HTTP
// model when a provider key is configured, otherwise the noop fallback
// (spec §4.5 step 6, §9 "categorization provider is optional").
func newCategorizationProvider(cfg config.Config, logger *slog.Logger) categorize.Provider {
	if cfg.CategorizationProviderKey == "" {
		logger.Info("categorization provider: noop (no CATEGORIZATION_PROVIDER_KEY)")
		return categorize.NoopProvider{}
	}
	logger.Info("categorization provider: http")
	return categorize.NewHTTPProvider("", cfg.CategorizationProviderKey)
}
