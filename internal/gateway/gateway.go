package gateway

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/quickie-platform/internal/observability/metrics"
	"github.com/wolfman30/quickie-platform/pkg/logging"
)

var gatewayTracer = otel.Tracer("quickie.internal.gateway")

// Gateway is the single point of contact with remote data: authentication,
// row queries and writes, change notifications and blob storage.
type Gateway interface {
	Authenticate(ctx context.Context, creds Credentials) (*Session, error)
	CurrentSession(ctx context.Context, token string) (*Identity, error)
	OnSessionChange() *Subscription[SessionEvent]

	Query(ctx context.Context, table string, filters FilterSet, order Ordering, limit int) ([]Row, error)
	Count(ctx context.Context, table string, filters FilterSet) (int64, error)
	Search(ctx context.Context, table, column, term string, limit int) ([]Row, error)
	Insert(ctx context.Context, table string, record Row) (Row, error)
	Update(ctx context.Context, table, id string, patch Row) (Row, error)

	SubscribeChanges(table string, mask EventMask) (*Subscription[ChangeEvent], error)

	UploadBlob(ctx context.Context, bucket, key string, data []byte, contentType string) error
	PublicURL(bucket, key string) string
}

// RowStore is the row API backing a Client.
type RowStore interface {
	Query(ctx context.Context, table string, filters FilterSet, order Ordering, limit int) ([]Row, error)
	Count(ctx context.Context, table string, filters FilterSet) (int64, error)
	Search(ctx context.Context, table, column, term string, limit int) ([]Row, error)
	Insert(ctx context.Context, table string, record Row) (Row, error)
	Update(ctx context.Context, table, id string, patch Row) (Row, error)
}

// Client implements Gateway over a row store, an authenticator, a change hub
// and a blob store. Every call is single-shot: no retries.
type Client struct {
	rows    RowStore
	auth    *Authenticator
	hub     *Hub
	blobs   *BlobStore
	metrics *metrics.GatewayMetrics
	logger  *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithAuthenticator(a *Authenticator) Option   { return func(c *Client) { c.auth = a } }
func WithHub(h *Hub) Option                       { return func(c *Client) { c.hub = h } }
func WithBlobStore(b *BlobStore) Option           { return func(c *Client) { c.blobs = b } }
func WithMetrics(m *metrics.GatewayMetrics) Option { return func(c *Client) { c.metrics = m } }
func WithLogger(l *logging.Logger) Option         { return func(c *Client) { c.logger = l } }

// NewClient builds a Client over rows.
func NewClient(rows RowStore, opts ...Option) *Client {
	if rows == nil {
		panic("gateway: row store required")
	}
	c := &Client{rows: rows}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.Default()
	}
	return c
}

var _ Gateway = (*Client)(nil)

// Auth exposes account operations beyond the Gateway surface (sign-up, reset, profile).
func (c *Client) Auth() *Authenticator { return c.auth }

func (c *Client) observe(ctx context.Context, table, op string, fn func(context.Context) error) error {
	ctx, span := gatewayTracer.Start(ctx, "gateway."+op)
	defer span.End()
	span.SetAttributes(attribute.String("quickie.table", table))

	start := time.Now()
	err := fn(ctx)
	c.metrics.ObserveCall(table, op, time.Since(start).Seconds(), err)
	if err != nil {
		span.RecordError(err)
		c.logger.Debug("gateway call failed", "table", table, "op", op, "error", err)
	}
	return err
}

func (c *Client) Query(ctx context.Context, table string, filters FilterSet, order Ordering, limit int) ([]Row, error) {
	var rows []Row
	err := c.observe(ctx, table, "select", func(ctx context.Context) error {
		var err error
		rows, err = c.rows.Query(ctx, table, filters, order, limit)
		return err
	})
	return rows, err
}

func (c *Client) Count(ctx context.Context, table string, filters FilterSet) (int64, error) {
	var n int64
	err := c.observe(ctx, table, "count", func(ctx context.Context) error {
		var err error
		n, err = c.rows.Count(ctx, table, filters)
		return err
	})
	return n, err
}

func (c *Client) Search(ctx context.Context, table, column, term string, limit int) ([]Row, error) {
	var rows []Row
	err := c.observe(ctx, table, "search", func(ctx context.Context) error {
		var err error
		rows, err = c.rows.Search(ctx, table, column, term, limit)
		return err
	})
	return rows, err
}

func (c *Client) Insert(ctx context.Context, table string, record Row) (Row, error) {
	var row Row
	err := c.observe(ctx, table, "insert", func(ctx context.Context) error {
		var err error
		row, err = c.rows.Insert(ctx, table, record)
		return err
	})
	return row, err
}

func (c *Client) Update(ctx context.Context, table, id string, patch Row) (Row, error) {
	var row Row
	err := c.observe(ctx, table, "update", func(ctx context.Context) error {
		var err error
		row, err = c.rows.Update(ctx, table, id, patch)
		return err
	})
	return row, err
}

func (c *Client) Authenticate(ctx context.Context, creds Credentials) (*Session, error) {
	if c.auth == nil {
		return nil, ErrInvalidCredentials
	}
	var s *Session
	err := c.observe(ctx, "auth_users", "signin", func(ctx context.Context) error {
		var err error
		s, err = c.auth.Authenticate(ctx, creds)
		return err
	})
	return s, err
}

func (c *Client) CurrentSession(ctx context.Context, token string) (*Identity, error) {
	if c.auth == nil {
		return nil, nil
	}
	return c.auth.CurrentSession(ctx, token)
}

// OnSessionChange returns a subscription that never yields when auth is not wired.
func (c *Client) OnSessionChange() *Subscription[SessionEvent] {
	if c.auth == nil {
		var idle fanout[SessionEvent]
		return idle.subscribe(1, nil)
	}
	return c.auth.OnSessionChange()
}

func (c *Client) SubscribeChanges(table string, mask EventMask) (*Subscription[ChangeEvent], error) {
	if c.hub == nil {
		return nil, ErrRealtimeDisabled
	}
	return c.hub.Subscribe(table, mask, 0)
}

func (c *Client) UploadBlob(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	return c.observe(ctx, "blob:"+bucket, "upload", func(ctx context.Context) error {
		return c.blobs.Upload(ctx, bucket, key, data, contentType)
	})
}

func (c *Client) PublicURL(bucket, key string) string {
	return c.blobs.PublicURL(bucket, key)
}
