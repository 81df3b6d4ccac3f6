package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/btp-tools/fichetech/internal/api"
	"github.com/btp-tools/fichetech/internal/browser"
	"github.com/btp-tools/fichetech/internal/config"
	"github.com/btp-tools/fichetech/internal/docgen"
	"github.com/btp-tools/fichetech/internal/images"
	"github.com/btp-tools/fichetech/internal/llm"
	"github.com/btp-tools/fichetech/internal/pdf"
	"github.com/btp-tools/fichetech/internal/pipeline"
	"github.com/btp-tools/fichetech/internal/registry"
	"github.com/btp-tools/fichetech/internal/resolver"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis is optional: without it resolved URLs simply are not cached.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, resolver cache disabled", "error", err)
			redisClient = nil
		}
	}

	urlResolver := resolver.New(resolver.Options{
		MaxResults: cfg.Scraper.SearchMaxResults,
		Timeout:    cfg.Scraper.HTTPTimeout,
		Cache:      redisClient,
		CacheTTL:   cfg.Redis.CacheTTL,
	}, logger)

	imageFetcher := images.NewFetcher(images.FetcherOptions{
		Timeout:    cfg.Scraper.HTTPTimeout,
		MaxRetries: cfg.Scraper.MaxRetries,
	}, logger)

	extractor, err := llm.New(cfg.LLM, logger)
	if err != nil {
		logger.Error("failed to initialize LLM client", "error", err)
		os.Exit(1)
	}

	browserOpts := &browser.Options{
		Headless:       cfg.Browser.Headless,
		Timeout:        cfg.Browser.Timeout,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		AcceptLanguage: cfg.Browser.AcceptLanguage,
		TimezoneID:     cfg.Browser.TimezoneID,
		Locale:         cfg.Browser.Locale,
	}
	pdfEngine := pdf.NewEngine(browserOpts, logger)

	orchestrator := pipeline.NewOrchestrator(pipeline.OrchestratorOptions{
		Resolver:        urlResolver,
		Reader:          pipeline.NewHTTPPageReader(cfg.Scraper.HTTPTimeout),
		Extractor:       extractor,
		Images:          imageFetcher,
		PDFs:            pdfEngine,
		Renderer:        docgen.NewRenderer(logger),
		DefaultDomains:  cfg.Scraper.Domains,
		DefaultTemplate: cfg.Storage.TemplatePath,
		ImageLimit:      cfg.Scraper.ImageLimit,
	}, logger)

	reg := registry.New()
	handlers := api.NewHandlers(orchestrator, reg, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", handlers.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/techsheet", handlers.CreateTechsheet)
		r.Get("/techsheet", handlers.ListResults)
		r.Get("/techsheet/{requestID}", handlers.GetResult)
		r.Get("/techsheet/{requestID}/document", handlers.GetDocument)
		r.Get("/techsheet/{requestID}/pdf/{name}", handlers.GetPDF)
		r.Get("/stats", handlers.GetStats)
	})

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		// a pipeline run can take minutes
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
