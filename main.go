package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"telegram-campaign-engine/internal/biz/usecase"
	"telegram-campaign-engine/internal/conf"
	"telegram-campaign-engine/internal/data"
	"telegram-campaign-engine/internal/engine"
	"telegram-campaign-engine/internal/infra/telegram"
	"telegram-campaign-engine/internal/metrics"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	db, err := data.OpenDB(cfg.Store.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	campaigns, err := data.NewCampaignStore(db)
	if err != nil {
		log.Fatalf("Failed to init campaign store: %v", err)
	}
	journal, err := data.NewJournalWriter(db)
	if err != nil {
		log.Fatalf("Failed to init activity journal: %v", err)
	}

	registry := data.NewRegistry()
	if cfg.Providers.OpenAIKey != "" {
		registry.Register(data.NewOpenAI(cfg.Providers.OpenAIKey, cfg.Providers.OpenAIModel))
	}
	if cfg.Providers.DeepSeekKey != "" {
		registry.Register(data.NewDeepSeek(cfg.Providers.DeepSeekKey, cfg.Providers.DeepSeekModel))
	}
	if cfg.Providers.MoonshotKey != "" {
		registry.Register(data.NewMoonshot(cfg.Providers.MoonshotKey, cfg.Providers.MoonshotModel))
	}
	if len(registry.Names()) == 0 {
		log.Fatal("No LLM provider configured: set OPENAI_API_KEY, DEEPSEEK_API_KEY or MOONSHOT_API_KEY")
	}
	logger.Info("providers registered", "names", registry.Names(), "default", cfg.Providers.Default)

	sessionStorage, err := telegram.NewSessionStorage(
		cfg.Telegram.SessionString, cfg.Telegram.SessionStringB64, cfg.Telegram.SessionFile)
	if err != nil {
		log.Fatalf("Failed to load session: %v", err)
	}

	client, err := telegram.NewClient(telegram.Options{
		APIID:          cfg.Telegram.APIID,
		APIHash:        cfg.Telegram.APIHash,
		SessionStorage: sessionStorage,
		PeersCacheFile: cfg.Telegram.PeersCacheFile,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to create telegram client: %v", err)
	}

	m := metrics.New()

	cache := usecase.NewCampaignCache(campaigns, cfg.Cache.TTL, logger)
	resolver := usecase.NewResolver(client, cfg.Engine.ActivationText, logger)
	classifier := usecase.NewClassifier(resolver)
	matcher := usecase.NewMatcher(resolver)
	prompts := usecase.NewPromptBuilder(client, cfg.ToPromptConfig())
	pipeline := usecase.NewPipeline(client, registry, prompts, journal, usecase.PipelineConfig{
		DefaultProvider: cfg.Providers.Default,
		ProviderTimeout: cfg.Providers.Timeout,
		ContextDepthMax: cfg.Engine.ContextDepthMax,
		MaxTokens:       cfg.Providers.MaxTokens,
		Temperature:     cfg.Providers.Temperature,
		Canned:          cfg.ToCannedConfig(),
	}, m, logger)

	eng := engine.New(client, cache, resolver, classifier, matcher, pipeline, m, engine.Config{
		RefreshInterval: cfg.Cache.TTL,
		ShutdownDrain:   cfg.Engine.ShutdownDrain,
	}, logger)

	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(m, cfg.MetricsAddr, logger)
		srv.Start()
		defer srv.Shutdown(context.Background())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting campaign engine", "db", cfg.Store.DBPath)
	if err := eng.Run(ctx); err != nil {
		log.Fatalf("Engine error: %v", err)
	}
}
