package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config is the CLI configuration. Priority: flag > env (.env included) > default.
type Config struct {
	ServerURL  string `env:"SERVER_URL"  env-default:"http://localhost:3000"`
	CookieFile string `env:"COOKIE_FILE" env-default:".admin-session-cookies.json"`
	StartPath  string `env:"START_PATH"  env-default:"/Inicio"`
	LogLevel   string `env:"LOG_LEVEL"   env-default:"info"`
	LogFile    string `env:"LOG_FILE"`

	// Callback treats this run as the landing on the Google callback route.
	Callback bool
	// Logout ends the backend session after the view is loaded.
	Logout bool
}

// loadConfig reads .env, the environment and then args.
func loadConfig(args []string) (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	fs := flag.NewFlagSet("admin-session", flag.ContinueOnError)
	flagServerURL := fs.String(
		"server-url",
		"",
		"Backend URL (default: http://localhost:3000 or SERVER_URL env)",
	)
	flagCookieFile := fs.String(
		"cookie-file",
		"",
		"Cookie storage file (default: .admin-session-cookies.json or COOKIE_FILE env)",
	)
	flagPath := fs.String("path", "", "View to open (default: /Inicio or START_PATH env)")
	flagLogLevel := fs.String("log-level", "", "debug, info, warn or error (or LOG_LEVEL env)")
	flagLogFile := fs.String("log-file", "", "Write structured logs to this file (or LOG_FILE env)")
	fs.BoolVar(&cfg.Callback, "callback", false, "Complete a Google sign-in redirect")
	fs.BoolVar(&cfg.Logout, "logout", false, "Log out after opening the view")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.ServerURL = getConfig(*flagServerURL, cfg.ServerURL)
	cfg.CookieFile = getConfig(*flagCookieFile, cfg.CookieFile)
	cfg.StartPath = getConfig(*flagPath, cfg.StartPath)
	cfg.LogLevel = getConfig(*flagLogLevel, cfg.LogLevel)
	cfg.LogFile = getConfig(*flagLogFile, cfg.LogFile)

	if err := validateServerURL(cfg.ServerURL); err != nil {
		return nil, fmt.Errorf("invalid SERVER_URL: %w", err)
	}
	if !strings.HasPrefix(cfg.StartPath, "/") {
		return nil, fmt.Errorf("path must start with '/', got: %s", cfg.StartPath)
	}

	return &cfg, nil
}

// getConfig returns flagValue when set, otherwise the env-or-default value.
func getConfig(flagValue, envValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return envValue
}

// validateServerURL validates that the server URL is properly formatted
func validateServerURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("server URL cannot be empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got: %s", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("URL must include a host")
	}

	return nil
}

// parseLogLevel maps a level name to slog.Level; unknown names mean info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newLogger creates a JSON structured logger writing to w.
func newLogger(w io.Writer, level string) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLogLevel(level),
	})
	return slog.New(h)
}
