package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/CyberwizD/Distributed-Notification-System/services/push_relay/internal/models"
)

const defaultSubject = "mailto:admin@localhost"

// Config holds push relay configuration loaded from the environment.
type Config struct {
	AppName         string
	LogLevel        string
	LogFormat       string
	HTTPPort        string
	AuthToken       string
	Vapid           models.VapidIdentity
	PushTimeout     time.Duration
	ShutdownTimeout time.Duration

	subjectSet bool
}

// Load reads configuration from the environment (and a .env file when one
// exists). Nothing is required: missing key material or auth token only
// shows up in Warnings.
func Load() *Config {
	_ = godotenv.Load()

	subject := getEnv("VAPID_SUBJECT", "")
	return &Config{
		AppName:   getEnv("APP_NAME", "push_relay"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		HTTPPort:  getEnv("PORT", getEnv("HTTP_PORT", "8080")),
		AuthToken: strings.TrimSpace(getEnv("RELAY_AUTH_TOKEN", "")),
		Vapid: models.VapidIdentity{
			PublicKey:  strings.TrimSpace(getEnv("VAPID_PUBLIC_KEY", "")),
			PrivateKey: strings.TrimSpace(getEnv("VAPID_PRIVATE_KEY", "")),
			Subject:    NormalizeSubject(subject),
		},
		PushTimeout:     getEnvAsDuration("PUSH_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
		subjectSet:      strings.TrimSpace(subject) != "",
	}
}

// Warnings lists configuration problems that degrade the service without
// stopping it.
func (c *Config) Warnings() []string {
	var warnings []string
	if !c.Vapid.Configured() {
		warnings = append(warnings, "VAPID_PUBLIC_KEY/VAPID_PRIVATE_KEY not set; deliveries will fail until configured")
	}
	if !c.subjectSet {
		warnings = append(warnings, "VAPID_SUBJECT not set; using "+defaultSubject+", which some push services reject")
	}
	if c.AuthToken == "" {
		warnings = append(warnings, "RELAY_AUTH_TOKEN not set; every delivery request will be rejected")
	}
	return warnings
}

// NormalizeSubject turns a bare email address into a mailto: URI. mailto: and
// https: subjects are returned unchanged; an empty subject gets the default.
func NormalizeSubject(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return defaultSubject
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "https:") {
		return s
	}
	if strings.Contains(s, "@") {
		return "mailto:" + s
	}
	return s
}

func getEnv(key, def string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return def
	}
	return value
}

func getEnvAsDuration(key string, def time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			log.Printf("invalid duration for %s, using default %s: %v", key, def, err)
			return def
		}
		if d <= 0 {
			log.Printf("non-positive duration for %s, using default %s", key, def)
			return def
		}
		return d
	}
	return def
}
