package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/quickie-platform/cmd/mainconfig"
	"github.com/wolfman30/quickie-platform/internal/admin"
	"github.com/wolfman30/quickie-platform/internal/api/router"
	"github.com/wolfman30/quickie-platform/internal/app/bootstrap"
	"github.com/wolfman30/quickie-platform/internal/booking"
	"github.com/wolfman30/quickie-platform/internal/catalog"
	appconfig "github.com/wolfman30/quickie-platform/internal/config"
	"github.com/wolfman30/quickie-platform/internal/contact"
	"github.com/wolfman30/quickie-platform/internal/content"
	"github.com/wolfman30/quickie-platform/internal/events"
	"github.com/wolfman30/quickie-platform/internal/gateway"
	httpmiddleware "github.com/wolfman30/quickie-platform/internal/http/middleware"
	"github.com/wolfman30/quickie-platform/internal/identity"
	"github.com/wolfman30/quickie-platform/internal/notify"
	"github.com/wolfman30/quickie-platform/internal/observability/metrics"
	"github.com/wolfman30/quickie-platform/internal/visitor"
	"github.com/wolfman30/quickie-platform/pkg/logging"
)

const (
	listenerKeepAlive = 90 * time.Second
	limiterSweep      = time.Minute
)

// task is a background loop started alongside the HTTP server.
type task struct {
	name string
	run  func(ctx context.Context) error
}

type app struct {
	handler http.Handler
	tasks   []task
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

type awsClients struct {
	s3     *s3.Client
	ses    *sesv2.Client
	sqs    *sqs.Client
	dynamo *dynamodb.Client
}

func loadAWSClients(ctx context.Context, cfg *appconfig.Config) (*awsClients, error) {
	if !mainconfig.NeedsAWS(cfg) {
		return &awsClients{}, nil
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &awsClients{
		s3: s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.UsePathStyle = cfg.AWSEndpointOverride != ""
		}),
		ses:    sesv2.NewFromConfig(awsCfg),
		sqs:    sqs.NewFromConfig(awsCfg),
		dynamo: dynamodb.NewFromConfig(awsCfg),
	}, nil
}

func setupMetrics() (*prometheus.Registry, http.Handler) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// buildApp wires every component from cfg. Without DATABASE_URL the site runs
// on an in-memory row store and accounts are disabled.
func buildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*app, error) {
	a := &app{}
	reg, metricsHandler := setupMetrics()
	gwMetrics := metrics.NewGatewayMetrics(reg)
	siteMetrics := metrics.NewSiteMetrics(reg)
	checks := map[string]router.HealthCheck{}

	clients, err := loadAWSClients(ctx, cfg)
	if err != nil {
		return nil, err
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	pool, err := bootstrap.BuildPool(ctx, cfg)
	if err != nil {
		a.close()
		return nil, err
	}

	var hub *gateway.Hub
	if cfg.RealtimeEnabled {
		hub = gateway.NewHub(logger, gwMetrics.ObserveDropped)
	}

	sender := bootstrap.BuildEmailSender(cfg, clients.ses, logger)
	notifier := notify.NewService(sender, notify.Config{
		StaffEmail:    cfg.StaffNotifyEmail,
		PublicBaseURL: cfg.PublicBaseURL,
	}, logger)

	opts := []gateway.Option{gateway.WithMetrics(gwMetrics), gateway.WithLogger(logger)}
	if hub != nil {
		opts = append(opts, gateway.WithHub(hub))
	}
	var blobs *gateway.BlobStore
	if clients.s3 != nil && cfg.BlobBucket != "" {
		blobs = gateway.NewBlobStore(clients.s3, cfg.AWSRegion, cfg.BlobPublicBaseURL)
		opts = append(opts, gateway.WithBlobStore(blobs))
	}

	var rows gateway.RowStore
	if pool != nil {
		a.closers = append(a.closers, pool.Close)
		checks["postgres"] = pool.Ping
		pg := gateway.NewPostgresStore(pool)
		rows = pg

		auth := gateway.NewAuthenticator(pg, bootstrap.BuildSessionStore(redisClient, logger), notifier, gateway.AuthConfig{
			Secret:     cfg.SessionSecret,
			SessionTTL: cfg.SessionTTL,
			ResetTTL:   cfg.ResetTokenTTL,
		}, logger)
		opts = append(opts, gateway.WithAuthenticator(auth))

		if hub != nil {
			src, err := gateway.NewListenerSource(cfg.DatabaseURL, logger)
			if err != nil {
				a.close()
				return nil, err
			}
			a.closers = append(a.closers, func() { _ = src.Close() })
			a.tasks = append(a.tasks,
				task{name: "realtime hub", run: func(ctx context.Context) error { return hub.Run(ctx, src) }},
				task{name: "realtime keepalive", run: func(ctx context.Context) error {
					src.KeepAlive(ctx, listenerKeepAlive)
					return nil
				}},
			)
		}
	} else {
		logger.Warn("DATABASE_URL not set; using in-memory data and disabling accounts")
		rows = gateway.NewMemoryStore(hub)
	}

	client := gateway.NewClient(rows, opts...)

	bookingCtrl := booking.NewController(booking.NewRepository(client), bootstrap.BuildWizardStore(cfg, redisClient), siteMetrics, logger)

	cat := catalog.NewCatalog(client, cfg.CatalogMaxAge, logger)
	carts := bootstrap.BuildCartStore(cfg, redisClient, clients.dynamo, logger)
	browser := catalog.NewBrowser(cat, carts, siteMetrics, logger)

	adminSvc := admin.NewService(client, logger)
	var feed *admin.LiveFeed
	if hub != nil {
		feed = admin.NewLiveFeed(adminSvc, cfg.LiveDrainInterval)
	}
	var uploader admin.BlobUploader
	if blobs.Enabled() {
		uploader = client
	}
	adminHandler := admin.NewHandler(adminSvc, feed, client, uploader, admin.HandlerConfig{
		Bucket:         cfg.BlobBucket,
		MaxUploadBytes: cfg.BlobMaxBytes,
		AllowedOrigins: cfg.CORSAllowOrigin,
	}, siteMetrics, logger)

	routerCfg := &router.Config{
		Logger:             logger,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowOrigin,
		VisitorCookie: visitor.CookieOptions{
			Name:   cfg.VisitorCookie,
			Secure: cfg.CookieSecure,
			MaxAge: cfg.CartTTL,
		},
		HealthChecks:   checks,
		BookingHandler: booking.NewHandler(bookingCtrl, logger),
		CatalogHandler: catalog.NewHandler(browser, logger),
		ContactHandler: contact.NewHandler(contact.NewRepository(client), siteMetrics, logger),
		ContentHandler: content.NewHandler(content.NewReader(client), logger),
		AdminHandler:   adminHandler,
	}
	if auth := client.Auth(); auth != nil {
		routerCfg.Sessions = client
		routerCfg.AuthHandler = identity.NewHandler(auth, cfg.CookieSecure, logger)
	}
	if cfg.RateLimitPerMinute > 0 {
		limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
		routerCfg.RateLimiter = limiter
		a.tasks = append(a.tasks, task{name: "rate limiter sweep", run: func(ctx context.Context) error {
			limiter.Run(ctx, limiterSweep)
			return nil
		}})
	}
	a.handler = router.New(routerCfg)

	if hub != nil {
		handlers := []events.DeliveryHandler{notifier}
		if clients.sqs != nil && cfg.EventsQueueURL != "" {
			handlers = append(handlers, events.NewSQSPublisher(clients.sqs, cfg.EventsQueueURL))
		}
		forwarder := events.NewForwarder(client, bootstrap.BuildClaimStore(redisClient), logger, handlers...)
		a.tasks = append(a.tasks,
			task{name: "catalog watch", run: cat.Watch},
			task{name: "event forwarder", run: forwarder.Run},
		)
	}
	return a, nil
}

// runTask runs t until ctx ends. Failures are logged; they never stop the server.
func runTask(ctx context.Context, t task, logger *logging.Logger) {
	err := t.run(ctx)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	case errors.Is(err, gateway.ErrRealtimeDisabled):
		logger.Info("background task skipped; realtime disabled", "task", t.name)
	default:
		logger.Error("background task stopped", "task", t.name, "error", err)
	}
}
