package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/BradenHooton/alumni-onboard/internal/auth"
	"github.com/BradenHooton/alumni-onboard/internal/config"
	"github.com/BradenHooton/alumni-onboard/internal/database"
	"github.com/BradenHooton/alumni-onboard/internal/flow"
	"github.com/BradenHooton/alumni-onboard/internal/repositories"
	"github.com/BradenHooton/alumni-onboard/internal/session"
	"github.com/BradenHooton/alumni-onboard/internal/transport"
	"github.com/spf13/pflag"
)

// pinCost is lower than the account password cost; a PIN has four digits
// of entropy whatever the cost.
const pinCost = 10

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func main() {
	storeBackend := pflag.String("store", "", "session store backend: memory, file or postgres (overrides STORE_BACKEND)")
	stateFile := pflag.String("state-file", "", "path of the file store (overrides STATE_FILE)")
	verifierURL := pflag.String("verifier-url", "", "verifier base URL; empty simulates every call (overrides VERIFIER_URL)")
	deviceID := pflag.String("device-id", "", "device key for the postgres store (overrides DEVICE_ID)")
	noLatency := pflag.Bool("no-latency", false, "skip the simulated step latencies")
	verifyLogin := pflag.Bool("verify-login", false, "send logins through OTP and email verification")
	pflag.Parse()

	// The console owns stdout; logs go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(os.Getenv("LOG_LEVEL")),
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	applyFlags(&cfg.Client, *storeBackend, *stateFile, *verifierURL, *deviceID)
	if *noLatency {
		cfg.Client.SimulateLatency = false
	}
	if *verifyLogin {
		cfg.Client.LoginSkipsVerification = false
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open session store", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()

	tr, err := newTransport(cfg.Client, logger)
	if err != nil {
		logger.Error("failed to create transport", slog.Any("error", err))
		os.Exit(1)
	}

	delays := flow.DefaultDelays()
	if !cfg.Client.SimulateLatency {
		delays = flow.Delays{}
	}

	c := newConsole(os.Stdin, os.Stdout)
	ctrl, err := flow.New(ctx, flow.Deps{
		Store:     store,
		Transport: tr,
		Tokens:    auth.NewTokenManager(cfg.Auth.SessionSigningKey, cfg.Auth.SessionTokenExpiry),
		PINs:      auth.NewPINHasher(pinCost),
		Navigator: c,
		Logger:    logger,
		Delays:    delays,
	}, flow.Policy{LoginSkipsVerification: cfg.Client.LoginSkipsVerification})
	if err != nil {
		logger.Error("failed to start onboarding", slog.Any("error", err))
		os.Exit(1)
	}
	defer ctrl.Close()

	if err := c.Run(ctx, ctrl); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func applyFlags(cfg *config.ClientConfig, store, stateFile, verifierURL, deviceID string) {
	if store != "" {
		cfg.StoreBackend = strings.ToLower(store)
	}
	if stateFile != "" {
		cfg.StateFile = stateFile
	}
	if verifierURL != "" {
		cfg.VerifierURL = verifierURL
	}
	if deviceID != "" {
		cfg.DeviceID = deviceID
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (session.Store, func(), error) {
	switch cfg.Client.StoreBackend {
	case config.StoreMemory:
		return session.NewMemoryStore(), func() {}, nil
	case config.StoreFile:
		return session.NewFileStore(cfg.Client.StateFile), func() {}, nil
	case config.StorePostgres:
		if cfg.Client.DeviceID == "" {
			return nil, nil, fmt.Errorf("DEVICE_ID is required for the postgres store")
		}
		if err := database.Migrate(ctx, &cfg.Database, logger); err != nil {
			return nil, nil, err
		}
		db, err := database.NewConnection(ctx, &cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		return repositories.NewSessionStore(db, cfg.Client.DeviceID), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Client.StoreBackend)
	}
}

func newTransport(cfg config.ClientConfig, logger *slog.Logger) (transport.Transport, error) {
	if cfg.VerifierURL == "" {
		return transport.NewSimulated(logger), nil
	}
	client, err := transport.NewHTTPClient(transport.HTTPConfig{BaseURL: cfg.VerifierURL, Logger: logger})
	if err != nil {
		return nil, err
	}
	return transport.Combine(client, transport.NewDevicePermissions(logger)), nil
}
