// Package config loads server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/evcraddock/visitor-kiosk/internal/email"
)

// Server holds settings for kiosk serve.
type Server struct {
	Port        int
	DBPath      string // empty = db.DefaultPath
	DevMode     bool
	BaseURL     string
	SMTP        email.SMTPConfig
	AlertEmails []string // recipients of emergency alerts
	AMQPURL     string   // empty = events disabled
	AMQPQueue   string
}

// LoadDotEnv loads variables from path into the environment without
// overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// FromEnv builds a Server config from KIOSK_* environment variables.
func FromEnv() (Server, error) {
	port := 8080
	if v := os.Getenv("KIOSK_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p <= 0 || p > 65535 {
			return Server{}, fmt.Errorf("invalid KIOSK_PORT %q", v)
		}
		port = p
	}

	cfg := Server{
		Port:    port,
		DBPath:  os.Getenv("KIOSK_DB_PATH"),
		DevMode: os.Getenv("KIOSK_DEV_MODE") == "true",
		SMTP: email.SMTPConfig{
			Host: os.Getenv("KIOSK_SMTP_HOST"),
			Port: envOrDefault("KIOSK_SMTP_PORT", "587"),
			User: os.Getenv("KIOSK_SMTP_USER"),
			Pass: os.Getenv("KIOSK_SMTP_PASS"),
			From: os.Getenv("KIOSK_SMTP_FROM"),
		},
		AlertEmails: splitList(os.Getenv("KIOSK_ALERT_EMAILS")),
		AMQPURL:     os.Getenv("KIOSK_AMQP_URL"),
		AMQPQueue:   os.Getenv("KIOSK_AMQP_QUEUE"),
	}
	cfg.BaseURL = envOrDefault("KIOSK_BASE_URL", fmt.Sprintf("http://localhost:%d", port))
	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
