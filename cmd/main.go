package main

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"project_newsbot/internal/config"
	"project_newsbot/internal/infrastructure"
	"project_newsbot/internal/interfaces/http"
	"project_newsbot/internal/repository"
	"project_newsbot/internal/usecases"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const (
	callbackDebounce = 2 * time.Second
	shutdownTimeout  = 10 * time.Second
)

func main() {
	cfg, err := config.Load(config.GetConfigPath("config.yml"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := infrastructure.NewLogger(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("newsbot stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := infrastructure.NewMetrics(registry)

	if cfg.News.APIKey == "" {
		logger.Warn("GNEWS_API_KEY not set; category requests will get the degraded reply")
	}
	newsClient := infrastructure.NewNewsClient(infrastructure.NewsClientConfig{
		BaseURL:  cfg.News.BaseURL,
		APIKey:   cfg.News.APIKey,
		MaxItems: cfg.News.MaxItems,
		Timeout:  cfg.News.Timeout,
	}, logger, metrics)

	composer := usecases.NewComposer(cfg.News.MaxItems, cfg.News.SummaryMaxLength)
	messageService := usecases.NewMessageService(newsClient, composer, logger)
	messageService.Metrics = metrics

	limiter := infrastructure.NewMessageRateLimiter(cfg.Limits.PerSecond, cfg.Limits.Burst)
	defer limiter.Stop()
	messageService.Limiter = limiter

	deps := http.RouterDeps{
		Service:    messageService,
		Limiter:    limiter,
		Metrics:    metrics,
		Middleware: http.NewMiddleware(cfg.Auth.JWTSecret),
		Twilio:     http.NewTwilioVerifier(cfg.Twilio.AuthToken, cfg.Twilio.WebhookURL),
		Logger:     logger,
		Version:    version,
	}
	if cfg.AdminEnabled() {
		deps.Auth = usecases.NewAuthUsecase(cfg.Auth.AdminUsername, cfg.Auth.AdminPasswordHash, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	} else {
		logger.Info("admin API disabled (JWT_SECRET or ADMIN_PASSWORD_HASH missing)")
	}

	// Usage counters (optional)
	if cfg.Database.URL != "" {
		pgClient, err := infrastructure.NewPostgresClient(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pgClient.Close()
		usageRepo := repository.NewUsageRepository(pgClient.Pool)
		messageService.Usage = usageRepo
		deps.Usage = usageRepo
		logger.Info("usage tracking enabled")
	}

	// Telegram (optional)
	if cfg.Telegram.BotToken != "" {
		telegramClient, err := infrastructure.NewTelegramClient(cfg.Telegram.BotToken, infrastructure.NewSessionManager(callbackDebounce), logger)
		if err != nil {
			logger.Warn("Telegram disabled", zap.Error(err))
		} else {
			telegramClient.MessageHandler = messageService.ProcessMessage
			messageService.TelegramClient = telegramClient
			go telegramClient.Start(ctx)
		}
	} else {
		logger.Info("Telegram disabled (TELEGRAM_BOT_TOKEN missing)")
	}

	// WhatsApp Web (optional)
	if cfg.WhatsApp.Enabled {
		waClient, err := infrastructure.NewWhatsAppClient(ctx, cfg.WhatsApp.StorePath, logger)
		if err != nil {
			return fmt.Errorf("init whatsapp: %w", err)
		}
		waClient.MessageHandler = messageService.ProcessMessage
		if err := waClient.Connect(ctx); err != nil {
			logger.Warn("WhatsApp connect failed", zap.Error(err))
		}
		defer waClient.Disconnect()
		messageService.WhatsAppClient = waClient
		deps.WhatsApp = waClient
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	http.SetupRoutes(r, deps)

	srv := &nethttp.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
