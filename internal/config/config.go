package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	Environment string
	LogLevel    string
	AppURL      string

	JWTSecret string
	TokenTTL  time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	NotifyChannels     []string
	NotifyWebhookURL   string
	NotifyWebhookToken string

	BulkParallelism   int
	IntakeAutoAdvance time.Duration
	IntakeSessionTTL  time.Duration

	AdminEmail    string
	AdminPassword string

	MigrateOnStart    bool
	SchedulerTimezone string

	OTLPEndpoint string
	OTLPInsecure bool
}

// Load reads .env (when present) and the process environment.
func Load() Config {
	// A missing .env is normal in containers.
	_ = godotenv.Load()

	return Config{
		Port:        readString("APP_PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Environment: readString("APP_ENV", "development"),
		LogLevel:    readString("LOG_LEVEL", "info"),
		AppURL:      readString("APP_URL", "http://localhost:3000"),

		JWTSecret: readString("JWT_SECRET", "change-me"),
		TokenTTL:  time.Duration(readInt("TOKEN_TTL_HOURS", 24)) * time.Hour,

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     readInt("SMTP_PORT", 587),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     readString("SMTP_FROM", "no-reply@hfpolymers.in"),

		NotifyChannels:     readList("NOTIFY_CHANNELS", []string{"log"}),
		NotifyWebhookURL:   os.Getenv("NOTIFY_WEBHOOK_URL"),
		NotifyWebhookToken: os.Getenv("NOTIFY_WEBHOOK_TOKEN"),

		BulkParallelism:   readInt("BULK_PARALLELISM", 4),
		IntakeAutoAdvance: readDurationMillis("INTAKE_AUTO_ADVANCE_MS", 3000),
		IntakeSessionTTL:  time.Duration(readInt("INTAKE_SESSION_TTL_MINUTES", 60)) * time.Minute,

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		MigrateOnStart:    readBool("MIGRATE_ON_START", false),
		SchedulerTimezone: readString("SCHEDULER_TIMEZONE", "Asia/Kolkata"),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTLPInsecure: readBool("OTEL_EXPORTER_OTLP_INSECURE", false),
	}
}

func readString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readDurationMillis(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value < 0 {
		return 0
	}
	return time.Duration(value) * time.Millisecond
}

func readList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
