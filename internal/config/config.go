package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/AchilleasB/classroom/signup-engine/internal/core/domain"
)

// Draft substrate backends.
const (
	DraftBackendMemory   = "memory"
	DraftBackendRedis    = "redis"
	DraftBackendPostgres = "postgres"
)

type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       slog.Level

	DraftBackend  string
	DraftTTL      time.Duration
	AutosaveDelay time.Duration
	RedisAddress  string
	RedisPassword string
	DatabaseURL   string

	SessionIdleTimeout time.Duration

	RequireVerification bool
	RequireBoth         bool
	ResendCooldown      time.Duration
	SwitchDelay         time.Duration

	AccountAPIURL      string
	OtpAPIURL          string
	GoogleClientID     string
	VerifyGoogleTokens bool

	RabbitMQURL     string
	NoticeQueueName string
}

// Load reads the environment, after an optional .env file.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, relying on environment")
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
		LogLevel:       parseLevel(getEnv("LOG_LEVEL", "info")),

		DraftBackend:  strings.ToLower(getEnv("DRAFT_BACKEND", DraftBackendMemory)),
		DraftTTL:      durationEnv("DRAFT_TTL", domain.DraftTTL),
		AutosaveDelay: durationEnv("AUTOSAVE_DELAY", 800*time.Millisecond),
		RedisAddress:  getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		DatabaseURL:   os.Getenv("DB_CONNECTION_STRING"),

		SessionIdleTimeout: durationEnv("SESSION_IDLE_TIMEOUT", 30*time.Minute),

		RequireVerification: boolEnv("REQUIRE_VERIFICATION", true),
		RequireBoth:         boolEnv("REQUIRE_BOTH_CHANNELS", true),
		ResendCooldown:      durationEnv("OTP_COOLDOWN", domain.ResendCooldown),
		SwitchDelay:         durationEnv("CHANNEL_SWITCH_DELAY", 1500*time.Millisecond),

		AccountAPIURL:      getEnv("ACCOUNT_API_URL", "http://localhost:8081"),
		OtpAPIURL:          getEnv("OTP_API_URL", "http://localhost:8082"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		VerifyGoogleTokens: boolEnv("VERIFY_GOOGLE_TOKENS", true),

		RabbitMQURL:     os.Getenv("RABBITMQ_URL"),
		NoticeQueueName: getEnv("NOTICE_QUEUE_NAME", "signup-notices"),
	}

	if cfg.DraftBackend == DraftBackendPostgres && cfg.DatabaseURL == "" {
		panic("DB_CONNECTION_STRING environment variable is required for the postgres draft backend")
	}
	return cfg
}

// JanitorConfig holds what the draft janitor needs.
type JanitorConfig struct {
	DatabaseURL string
	DraftTTL    time.Duration
	Interval    time.Duration
	HealthAddr  string
}

func LoadJanitorConfig() *JanitorConfig {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, relying on environment")
	}

	dbURL := os.Getenv("DB_CONNECTION_STRING")
	if dbURL == "" {
		panic("DB_CONNECTION_STRING environment variable is required")
	}

	return &JanitorConfig{
		DatabaseURL: dbURL,
		DraftTTL:    durationEnv("DRAFT_TTL", domain.DraftTTL),
		Interval:    durationEnv("JANITOR_INTERVAL", 10*time.Minute),
		HealthAddr:  getEnv("JANITOR_HEALTH_ADDR", ":8090"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("invalid duration, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return d
}

func boolEnv(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLevel(v string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return slog.LevelInfo
	}
	return level
}
