package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	LogFormat     string
	DatabaseURL   string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Sessions
	SessionSecret   string
	SessionTTL      time.Duration
	ResetTokenTTL   time.Duration
	WizardTTL       time.Duration
	VisitorCookie   string
	CookieSecure    bool
	CORSAllowOrigin []string

	// Rate limiting (per client IP)
	RateLimitPerMinute int
	RateLimitBurst     int

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Blob storage
	BlobBucket        string
	BlobPublicBaseURL string
	BlobMaxBytes      int64

	// Shopping list persistence: redis, dynamodb or memory
	CartStore string
	CartTable string
	CartTTL   time.Duration

	// Catalog snapshot lifetime when change notifications are unavailable (0 keeps it until invalidated)
	CatalogMaxAge time.Duration

	// Real-time change notifications
	RealtimeEnabled   bool
	LiveDrainInterval time.Duration

	// Outbound events
	EventsQueueURL string

	// Email
	EmailProvider     string
	StaffNotifyEmail  string
	SESFromEmail      string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present; real environment values win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		SessionSecret:   getEnv("SESSION_SECRET", ""),
		SessionTTL:      getEnvAsDuration("SESSION_TTL", 7*24*time.Hour),
		ResetTokenTTL:   getEnvAsDuration("RESET_TOKEN_TTL", time.Hour),
		WizardTTL:       getEnvAsDuration("WIZARD_TTL", 2*time.Hour),
		VisitorCookie:   getEnv("VISITOR_COOKIE", "visitor_id"),
		CookieSecure:    getEnvAsBool("COOKIE_SECURE", false),
		CORSAllowOrigin: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),

		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 200),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 200),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		BlobBucket:        getEnv("BLOB_BUCKET", ""),
		BlobPublicBaseURL: strings.TrimRight(getEnv("BLOB_PUBLIC_BASE_URL", ""), "/"),
		BlobMaxBytes:      int64(getEnvAsInt("BLOB_MAX_BYTES", 5<<20)),

		CartStore: strings.ToLower(strings.TrimSpace(getEnv("CART_STORE", "redis"))),
		CartTable: getEnv("CART_TABLE", "shopping_lists"),
		CartTTL:   getEnvAsDuration("CART_TTL", 30*24*time.Hour),

		CatalogMaxAge: getEnvAsDuration("CATALOG_MAX_AGE", 0),

		RealtimeEnabled:   getEnvAsBool("REALTIME_ENABLED", true),
		LiveDrainInterval: getEnvAsDuration("LIVE_DRAIN_INTERVAL", 2*time.Second),

		EventsQueueURL: getEnv("EVENTS_QUEUE_URL", ""),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),
		StaffNotifyEmail:  getEnv("STAFF_NOTIFY_EMAIL", ""),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Mr. Quickie"),
	}
}

// IsProduction reports whether the service runs in the production environment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
