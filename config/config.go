// Package config loads the environment-sourced settings for a verification
// run. Required values are validated eagerly; a missing one is a fatal
// startup error naming the key.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Environment keys.
const (
	KeyBaseURL       = "PORTAL_BASE_URL"
	KeyUsername      = "PORTAL_ADMIN_USER"
	KeyPassword      = "PORTAL_ADMIN_PASSWORD"
	KeyPasswordAlias = "PORTAL_PASSWORD"
	KeyNewPassword   = "PORTAL_NEW_PASSWORD"
	KeyArtifactsDir  = "ARTIFACTS_DIR"
	KeySignalTimeout = "SIGNAL_TIMEOUT_SECONDS"
	KeyPort          = "PORT"
	KeyRedisAddr     = "REDIS_ADDR"
	KeyNATSURL       = "NATS_URL"
	KeyNATSSubject   = "NATS_SUBJECT"
)

const (
	defaultArtifactsDir  = "artifacts"
	defaultPort          = "8086"
	defaultNATSSubject   = "portal.verify.results"
	defaultSignalTimeout = 60 * time.Second
	maxSignalTimeout     = 90 * time.Second
)

// MissingKeyError names the environment key that was required but absent.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("missing required environment variable %s", e.Key)
}

// Config holds everything a run or the service needs.
type Config struct {
	BaseURL     string
	Username    string
	Password    string
	NewPassword string

	ArtifactsDir  string
	SignalTimeout time.Duration

	Port        string
	RedisAddr   string
	NATSURL     string
	NATSSubject string
}

// Load reads and validates the environment.
func Load() (*Config, error) {
	cfg := &Config{
		BaseURL:     os.Getenv(KeyBaseURL),
		Username:    os.Getenv(KeyUsername),
		NewPassword: os.Getenv(KeyNewPassword),
		RedisAddr:   os.Getenv(KeyRedisAddr),
		NATSURL:     os.Getenv(KeyNATSURL),
	}

	if cfg.BaseURL == "" {
		return nil, &MissingKeyError{Key: KeyBaseURL}
	}
	if cfg.Username == "" {
		return nil, &MissingKeyError{Key: KeyUsername}
	}

	// Two accepted credential keys; the more specific one wins.
	cfg.Password = os.Getenv(KeyPassword)
	if cfg.Password == "" {
		cfg.Password = os.Getenv(KeyPasswordAlias)
	}
	if cfg.Password == "" {
		return nil, &MissingKeyError{Key: KeyPassword}
	}

	cfg.ArtifactsDir = os.Getenv(KeyArtifactsDir)
	if cfg.ArtifactsDir == "" {
		cfg.ArtifactsDir = defaultArtifactsDir
	}

	cfg.SignalTimeout = defaultSignalTimeout
	if raw := os.Getenv(KeySignalTimeout); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return nil, fmt.Errorf("invalid %s value %q: want a positive integer", KeySignalTimeout, raw)
		}
		cfg.SignalTimeout = time.Duration(seconds) * time.Second
		if cfg.SignalTimeout > maxSignalTimeout {
			cfg.SignalTimeout = maxSignalTimeout
		}
	}

	cfg.Port = os.Getenv(KeyPort)
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}

	cfg.NATSSubject = os.Getenv(KeyNATSSubject)
	if cfg.NATSSubject == "" {
		cfg.NATSSubject = defaultNATSSubject
	}

	return cfg, nil
}
