package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/alumni-onboard/internal/auth"
	"github.com/BradenHooton/alumni-onboard/internal/background"
	"github.com/BradenHooton/alumni-onboard/internal/config"
	"github.com/BradenHooton/alumni-onboard/internal/database"
	"github.com/BradenHooton/alumni-onboard/internal/handlers"
	middlewareCustom "github.com/BradenHooton/alumni-onboard/internal/middleware"
	"github.com/BradenHooton/alumni-onboard/internal/repositories"
	"github.com/BradenHooton/alumni-onboard/internal/routes"
	"github.com/BradenHooton/alumni-onboard/internal/services"
	pkghttp "github.com/BradenHooton/alumni-onboard/pkg/http"
	pkglogger "github.com/BradenHooton/alumni-onboard/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(os.Getenv("LOG_LEVEL")),
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("email_provider", cfg.Email.Provider),
		slog.String("sms_provider", cfg.SMS.Provider))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(ctx, &cfg.Database, logger); err != nil {
		cancel()
		logger.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize database
	db, err := database.NewConnection(ctx, &cfg.Database, logger)
	cancel()
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	accountRepo := repositories.NewAccountRepository(db)
	emailVerificationRepo := repositories.NewEmailVerificationRepository(db)

	auditLogger := pkglogger.NewAuditLogger(logger)
	timingDelay := auth.NewTimingDelay(auth.DefaultTimingConfig, nil)

	// Delivery channels
	setupCtx, setupCancel := context.WithTimeout(context.Background(), 10*time.Second)
	smsSender, err := newSMSSender(setupCtx, cfg.SMS, logger)
	if err != nil {
		setupCancel()
		logger.Error("failed to initialize sms service", slog.Any("error", err))
		os.Exit(1)
	}
	emailService, err := newEmailService(setupCtx, cfg.Email, logger)
	setupCancel()
	if err != nil {
		logger.Error("failed to initialize email service", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize services
	otpService := services.NewOTPService(accountRepo, smsSender, nil, services.DefaultOTPConfig, logger, auditLogger)
	accountService := services.NewAccountService(accountRepo, otpService, timingDelay, cfg.Auth.BcryptCost, logger, auditLogger)
	emailVerificationService := services.NewEmailVerificationService(
		emailVerificationRepo,
		accountRepo,
		emailService,
		nil,
		cfg.Email.TokenExpiry,
		logger,
		auditLogger,
	)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(accountService)
	verificationHandler := handlers.NewVerificationHandler(otpService, emailVerificationService)

	ipConfig, err := pkghttp.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		logger.Error("invalid TRUSTED_PROXIES", slog.Any("error", err))
		os.Exit(1)
	}

	// Setup router. Client IPs come from ExtractClientIP, so RealIP is not used.
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(30 * time.Second))

	routes.RegisterRoutes(router, authHandler, verificationHandler, ipConfig)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			pkghttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "down"})
			return
		}
		pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "up"})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupManager := background.NewCleanupManager(emailVerificationService, nil, logger, cfg.Email.CleanupInterval)
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	go func() {
		logger.Info("starting verifier", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("verifier stopped gracefully")
}

func newSMSSender(ctx context.Context, cfg config.SMSConfig, logger *slog.Logger) (services.SMSSender, error) {
	if cfg.Provider == config.ProviderSNS {
		return services.NewAWSSNSSMSService(ctx, cfg.Region, cfg.SenderID, logger)
	}
	logger.Warn("sms provider is log; codes are written to the log only")
	return services.NewLogSMSService(logger), nil
}

func newEmailService(ctx context.Context, cfg config.EmailConfig, logger *slog.Logger) (services.EmailService, error) {
	if cfg.Provider == config.ProviderSES {
		return services.NewAWSSESEmailService(ctx, cfg.Region, cfg.FromAddress, cfg.VerificationURL, logger)
	}
	logger.Warn("email provider is log; verification links are written to the log only")
	return services.NewLogEmailService(cfg.VerificationURL, logger), nil
}
