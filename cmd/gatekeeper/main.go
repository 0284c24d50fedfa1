// Package main runs a demo application with a TOTP second factor in front of
// its protected pages.
//
// Log in at /login with any email address, scan the QR code shown at /tfa
// with an authenticator app and enter the code. Storage is picked with
// TFA_PERSISTENCE (memory, file, postgres or redis).
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/gatekeeper/pkg/config"
	"github.com/tendant/gatekeeper/pkg/gate"
)

type Config struct {
	JWTSecret      string        `env:"JWT_SECRET" env-default:"gatekeeper-dev-secret-change-in-production"`
	TokenExpiry    time.Duration `env:"ACCESS_TOKEN_EXPIRY" env-default:"8h"`
	SessionCookie  string        `env:"SESSION_COOKIE" env-default:"tfa_session"`
	CookieSecure   bool          `env:"COOKIE_SECURE" env-default:"false"`
	CookieHttpOnly bool          `env:"COOKIE_HTTP_ONLY" env-default:"true"`

	// Server
	AppConfig app.AppConfig
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: false,
		Level:     slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting Gatekeeper")
	slog.Info(strings.Repeat("=", 60))

	loadEnvFile()

	cfg := Config{}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read configuration", "error", err)
		os.Exit(1)
	}

	gateCfg := config.NewGateConfigFromEnv()
	storageCfg := config.NewStorageConfigFromEnv()
	if err := gateCfg.Validate(); err != nil {
		slog.Error("Invalid gate configuration", "error", err)
		os.Exit(1)
	}
	if err := storageCfg.Validate(); err != nil {
		slog.Error("Invalid storage configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	storage, err := openStorage(ctx, storageCfg)
	cancel()
	if err != nil {
		slog.Error("Failed to open storage", "persistence", storageCfg.Persistence, "error", err)
		os.Exit(1)
	}
	defer storage.Close()

	gc := gateCfg.ToGateConfig(storage.Store, storage.Flag)
	gc.Logger = logger
	tfa, err := gate.New(gc)
	if err != nil {
		slog.Error("Failed to create two-factor gate", "error", err)
		os.Exit(1)
	}

	services := &Services{
		gate:      tfa,
		flag:      storage.Flag,
		tokenAuth: jwtauth.New("HS256", []byte(cfg.JWTSecret), nil),
		config:    &cfg,
	}

	server := app.DefaultApp()
	setupRoutes(server.R, services)

	slog.Info(strings.Repeat("=", 60))
	slog.Info("Gatekeeper Ready",
		"persistence", storageCfg.Persistence,
		"challenge", tfa.ChallengePath(),
		"verify", tfa.VerifyPath())
	slog.Info("Routes:")
	slog.Info("  GET  /login      - Demo login form")
	slog.Info("  GET  " + tfa.ChallengePath() + "        - Two-factor challenge")
	slog.Info("  GET  /           - Protected home (login and second factor required)")
	slog.Info(strings.Repeat("=", 60))

	server.Run()
}

func loadEnvFile() {
	execPath, err := os.Executable()
	if err != nil {
		return
	}

	envFile := filepath.Join(filepath.Dir(execPath), ".env")
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		cwd, _ := os.Getwd()
		envFile = filepath.Join(cwd, ".env")
	}

	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		slog.Debug("No .env file found (using environment variables or defaults)")
		return
	}

	slog.Info("Loading configuration from .env file", "path", envFile)
	if err := godotenv.Load(envFile); err != nil {
		slog.Warn("Failed to load .env file", "error", err)
	}
}
