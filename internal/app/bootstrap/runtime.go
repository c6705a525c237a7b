package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/quickie-platform/internal/booking"
	"github.com/wolfman30/quickie-platform/internal/catalog"
	appconfig "github.com/wolfman30/quickie-platform/internal/config"
	"github.com/wolfman30/quickie-platform/internal/events"
	"github.com/wolfman30/quickie-platform/internal/gateway"
	"github.com/wolfman30/quickie-platform/internal/notify"
	"github.com/wolfman30/quickie-platform/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPool connects to Postgres. It returns nil without error when no
// DATABASE_URL is configured.
func BuildPool(ctx context.Context, cfg *appconfig.Config) (*pgxpool.Pool, error) {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	return pool, nil
}

// BuildSessionStore keeps sessions in Redis when available.
func BuildSessionStore(redisClient *redis.Client, logger *logging.Logger) gateway.SessionStore {
	if redisClient != nil {
		return gateway.NewRedisSessionStore(redisClient)
	}
	if logger != nil {
		logger.Warn("redis unavailable; sessions are kept in memory")
	}
	return gateway.NewMemorySessionStore()
}

// BuildWizardStore keeps booking wizards in Redis when available.
func BuildWizardStore(cfg *appconfig.Config, redisClient *redis.Client) booking.WizardStore {
	if redisClient != nil {
		return booking.NewRedisWizardStore(redisClient, cfg.WizardTTL)
	}
	return booking.NewMemoryWizardStore(cfg.WizardTTL)
}

// BuildClaimStore returns the delivery de-duplication store.
func BuildClaimStore(redisClient *redis.Client) events.ClaimStore {
	if redisClient != nil {
		return events.NewRedisClaimStore(redisClient)
	}
	return events.NewMemoryClaimStore()
}

// BuildCartStore selects shopping list persistence from CART_STORE. A backend
// that is selected but unavailable falls back to memory.
func BuildCartStore(cfg *appconfig.Config, redisClient *redis.Client, dynamo *dynamodb.Client, logger *logging.Logger) catalog.CartStore {
	if logger == nil {
		logger = logging.Default()
	}
	switch cfg.CartStore {
	case "dynamodb":
		if dynamo != nil && cfg.CartTable != "" {
			return catalog.NewDynamoCartStore(dynamo, cfg.CartTable, cfg.CartTTL)
		}
		logger.Warn("dynamodb cart store unavailable; using memory")
	case "memory":
		return catalog.NewMemoryCartStore()
	default:
		if redisClient != nil {
			return catalog.NewRedisCartStore(redisClient, cfg.CartTTL)
		}
		logger.Warn("redis cart store unavailable; using memory")
	}
	return catalog.NewMemoryCartStore()
}

// BuildEmailSender picks the outbound mail provider. "auto" prefers SES when
// a sender address is configured, then SendGrid, then the logging stub.
func BuildEmailSender(cfg *appconfig.Config, ses *sesv2.Client, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	useSES := func() notify.EmailSender {
		if ses == nil || cfg.SESFromEmail == "" {
			return nil
		}
		return notify.NewSESSender(ses, notify.SESConfig{FromEmail: cfg.SESFromEmail, FromName: cfg.SendGridFromName}, logger)
	}
	useSendGrid := func() notify.EmailSender {
		if cfg.SendGridAPIKey == "" {
			return nil
		}
		return notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
	}

	var sender notify.EmailSender
	switch cfg.EmailProvider {
	case "ses":
		sender = useSES()
	case "sendgrid":
		sender = useSendGrid()
	case "stub":
	default:
		if sender = useSES(); sender == nil {
			sender = useSendGrid()
		}
	}
	if sender == nil {
		logger.Warn("no email provider configured; emails are logged only", "provider", cfg.EmailProvider)
		return notify.NewStubEmailSender(logger)
	}
	return sender
}
