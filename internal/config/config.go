// Package config loads server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/evcraddock/shopdesk/internal/email"
	"github.com/evcraddock/shopdesk/internal/visit"
)

// Config holds server configuration.
type Config struct {
	Port              int
	DevMode           bool
	DBPath            string // empty keeps visits in memory only
	HeartbeatInterval time.Duration
	WarnWindow        time.Duration
	NATSURL           string // empty disables NATS publishing
	NATSSubject       string
	SMTP              email.SMTPConfig
	AlertEmails       []string // empty disables overdue emails
	WSOrigins         []string // extra browser origins allowed on /ws
}

// Load reads an optional .env file, then environment variables.
// Variables already set in the environment win over .env values.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{
		DevMode:     os.Getenv("SHOPDESK_DEV_MODE") == "true",
		DBPath:      os.Getenv("SHOPDESK_DB"),
		NATSURL:     os.Getenv("SHOPDESK_NATS_URL"),
		NATSSubject: envOrDefault("SHOPDESK_NATS_SUBJECT", "shopdesk.visits"),
		SMTP: email.SMTPConfig{
			Host: os.Getenv("SHOPDESK_SMTP_HOST"),
			Port: envOrDefault("SHOPDESK_SMTP_PORT", "587"),
			User: os.Getenv("SHOPDESK_SMTP_USER"),
			Pass: os.Getenv("SHOPDESK_SMTP_PASS"),
			From: os.Getenv("SHOPDESK_SMTP_FROM"),
		},
		AlertEmails: splitList(os.Getenv("SHOPDESK_ALERT_EMAIL")),
		WSOrigins:   splitList(os.Getenv("SHOPDESK_WS_ORIGINS")),
	}

	port, err := strconv.Atoi(envOrDefault("SHOPDESK_PORT", "8080"))
	if err != nil {
		return Config{}, fmt.Errorf("parsing SHOPDESK_PORT: %w", err)
	}
	cfg.Port = port

	if cfg.HeartbeatInterval, err = envDuration("SHOPDESK_HEARTBEAT", visit.DefaultHeartbeatInterval); err != nil {
		return Config{}, err
	}
	if cfg.WarnWindow, err = envDuration("SHOPDESK_WARN_WINDOW", visit.DefaultWarnWindow); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.HeartbeatInterval <= 0 {
		return errors.New("config: heartbeat interval must be positive")
	}
	if c.WarnWindow <= 0 {
		return errors.New("config: warn window must be positive")
	}
	if c.NATSURL != "" && c.NATSSubject == "" {
		return errors.New("config: SHOPDESK_NATS_SUBJECT is required when SHOPDESK_NATS_URL is set")
	}
	if len(c.AlertEmails) > 0 && !c.SMTP.IsConfigured() {
		return errors.New("config: SHOPDESK_SMTP_HOST and SHOPDESK_SMTP_FROM are required when SHOPDESK_ALERT_EMAIL is set")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return d, nil
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
