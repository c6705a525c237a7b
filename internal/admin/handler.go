package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wolfman30/quickie-platform/internal/gateway"
	"github.com/wolfman30/quickie-platform/internal/http/respond"
	"github.com/wolfman30/quickie-platform/internal/identity"
	"github.com/wolfman30/quickie-platform/internal/observability/metrics"
	"github.com/wolfman30/quickie-platform/pkg/logging"
)

const (
	msgStatusUpdated = "Status updated"
	msgInvalidStatus = "Invalid status"
	msgUploadFailed  = "Upload failed"

	wsWriteWait    = 7 * time.Second
	wsPongWait     = 70 * time.Second
	wsPingInterval = 25 * time.Second
)

var uploadFolders = map[string]bool{"uploads": true, "products": true, "gallery": true, "services": true, "blog": true}

// SessionSource provides session change events for long-lived connections.
type SessionSource interface {
	OnSessionChange() *gateway.Subscription[gateway.SessionEvent]
}

// BlobUploader stores uploaded files.
type BlobUploader interface {
	UploadBlob(ctx context.Context, bucket, key string, data []byte, contentType string) error
	PublicURL(bucket, key string) string
}

// HandlerConfig configures the admin endpoints.
type HandlerConfig struct {
	Bucket         string
	MaxUploadBytes int64
	AllowedOrigins []string
}

// Handler serves the staff dashboard.
type Handler struct {
	svc      *Service
	feed     *LiveFeed
	sessions SessionSource
	blobs    BlobUploader
	cfg      HandlerConfig
	metrics  *metrics.SiteMetrics
	logger   *logging.Logger
	upgrader websocket.Upgrader
}

func NewHandler(svc *Service, feed *LiveFeed, sessions SessionSource, blobs BlobUploader, cfg HandlerConfig, m *metrics.SiteMetrics, logger *logging.Logger) *Handler {
	if svc == nil {
		panic("admin: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 5 << 20
	}
	h := &Handler{svc: svc, feed: feed, sessions: sessions, blobs: blobs, cfg: cfg, metrics: m, logger: logger}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Routes mounts the dashboard endpoints. Callers gate the router by role.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/overview", h.Overview)
	r.Get("/bookings/{bookingID}", h.GetBooking)
	r.Patch("/bookings/{bookingID}/status", h.UpdateBookingStatus)
	r.Get("/messages/{messageID}", h.GetMessage)
	r.Patch("/messages/{messageID}/status", h.UpdateMessageStatus)
	r.Get("/export", h.Export)
	r.Get("/live", h.Live)
	r.With(identity.RequireRole(gateway.RoleAdmin, "/")).Post("/uploads", h.Upload)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return strings.HasSuffix(origin, "://"+r.Host)
}

// OverviewView is the dashboard landing page.
type OverviewView struct {
	*Overview
	Welcome string `json:"welcome"`
}

// Overview handles GET /admin/overview
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.svc.Overview(r.Context())
	if err != nil {
		h.logger.Error("failed to load dashboard", "error", err)
		respond.Error(w, err, respond.DismissBrowser)
		return
	}
	respond.JSON(w, http.StatusOK, OverviewView{
		Overview: ov,
		Welcome:  "Welcome back, " + identity.FromContext(r.Context()).DisplayName() + "!",
	})
}

// GetBooking handles GET /admin/bookings/{bookingID}
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Booking(r.Context(), chi.URLParam(r, "bookingID"))
	if err != nil {
		h.logger.Error("failed to load booking", "error", err)
		respond.Error(w, err, respond.DismissBrowser)
		return
	}
	respond.JSON(w, http.StatusOK, item)
}

type statusRequest struct {
	Status string `json:"status"`
}

type statusResponse struct {
	Item   any             `json:"item"`
	Notice *respond.Notice `json:"notice"`
}

func (h *Handler) decodeStatus(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req statusRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.BadRequest(w, "Invalid request body", respond.DismissBrowser)
		return "", false
	}
	return strings.TrimSpace(req.Status), true
}

func (h *Handler) writeStatusResult(w http.ResponseWriter, item any, err error) {
	if errors.Is(err, ErrInvalidStatus) {
		respond.Notify(w, http.StatusUnprocessableEntity, respond.LevelWarning, msgInvalidStatus, respond.DismissBrowser)
		return
	}
	if err != nil {
		h.logger.Error("failed to update status", "error", err)
		respond.Error(w, err, respond.DismissBrowser)
		return
	}
	respond.JSON(w, http.StatusOK, statusResponse{
		Item:   item,
		Notice: respond.NewNotice(respond.LevelSuccess, msgStatusUpdated, respond.DismissBrowser),
	})
}

// UpdateBookingStatus handles PATCH /admin/bookings/{bookingID}/status
func (h *Handler) UpdateBookingStatus(w http.ResponseWriter, r *http.Request) {
	status, ok := h.decodeStatus(w, r)
	if !ok {
		return
	}
	item, err := h.svc.UpdateBookingStatus(r.Context(), chi.URLParam(r, "bookingID"), status)
	h.writeStatusResult(w, item, err)
}

// GetMessage handles GET /admin/messages/{messageID}
func (h *Handler) GetMessage(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Message(r.Context(), chi.URLParam(r, "messageID"))
	if err != nil {
		h.logger.Error("failed to load message", "error", err)
		respond.Error(w, err, respond.DismissBrowser)
		return
	}
	respond.JSON(w, http.StatusOK, item)
}

// UpdateMessageStatus handles PATCH /admin/messages/{messageID}/status
func (h *Handler) UpdateMessageStatus(w http.ResponseWriter, r *http.Request) {
	status, ok := h.decodeStatus(w, r)
	if !ok {
		return
	}
	item, err := h.svc.UpdateMessageStatus(r.Context(), chi.URLParam(r, "messageID"), status)
	h.writeStatusResult(w, item, err)
}

// Export handles GET /admin/export
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	doc, filename, err := h.svc.Export(r.Context())
	if err != nil {
		h.logger.Error("failed to export data", "error", err)
		respond.Error(w, err, respond.DismissBrowser)
		return
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		respond.Error(w, err, respond.DismissBrowser)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// UploadResponse is returned for a stored file.
type UploadResponse struct {
	Key    string          `json:"key"`
	URL    string          `json:"url"`
	Notice *respond.Notice `json:"notice"`
}

// Upload handles POST /admin/uploads (multipart field "file", optional "folder").
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil || h.cfg.Bucket == "" {
		respond.Notify(w, http.StatusServiceUnavailable, respond.LevelError, "File uploads are not configured", respond.DismissBrowser)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes+1<<10)
	file, header, err := r.FormFile("file")
	if err != nil {
		respond.BadRequest(w, "A file is required", respond.DismissBrowser)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.cfg.MaxUploadBytes+1))
	if err != nil {
		respond.BadRequest(w, "Could not read file", respond.DismissBrowser)
		return
	}
	if int64(len(data)) > h.cfg.MaxUploadBytes {
		respond.Notify(w, http.StatusRequestEntityTooLarge, respond.LevelError, "File is too large", respond.DismissBrowser)
		return
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		respond.Notify(w, http.StatusUnsupportedMediaType, respond.LevelError, "Only image uploads are allowed", respond.DismissBrowser)
		return
	}

	folder := r.FormValue("folder")
	if !uploadFolders[folder] {
		folder = "uploads"
	}
	now := time.Now().UTC()
	key := path.Join(folder, now.Format("2006/01"), uuid.NewString()+strings.ToLower(path.Ext(header.Filename)))
	if err := h.blobs.UploadBlob(r.Context(), h.cfg.Bucket, key, data, contentType); err != nil {
		h.logger.Error("failed to upload blob", "error", err, "key", key)
		respond.Notify(w, respond.StatusFor(err), respond.LevelError, msgUploadFailed, respond.DismissBrowser)
		return
	}
	h.logger.Info("blob uploaded", "key", key, "bytes", len(data))
	respond.JSON(w, http.StatusCreated, UploadResponse{
		Key:    key,
		URL:    h.blobs.PublicURL(h.cfg.Bucket, key),
		Notice: respond.NewNotice(respond.LevelSuccess, "File uploaded", respond.DismissBrowser),
	})
}

type liveConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *liveConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteJSON(v)
}

func (c *liveConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(wsWriteWait))
}

func (c *liveConn) closeWith(code int, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(wsWriteWait))
	_ = c.conn.Close()
}

// Live handles GET /admin/live, upgrading to a websocket that receives
// coalesced updates until the viewer's session ends.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	if h.feed == nil {
		respond.Notify(w, http.StatusServiceUnavailable, respond.LevelError, "Live updates are not available", respond.DismissBrowser)
		return
	}
	tracker := identity.FromContext(r.Context())

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	conn := &liveConn{conn: ws}
	h.metrics.LiveViewerConnected()
	defer h.metrics.LiveViewerDisconnected()

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	if h.sessions != nil {
		go tracker.Watch(ctx, h.sessions.OnSessionChange())
	}

	ws.SetReadLimit(1 << 10)
	_ = ws.SetReadDeadline(time.Now().Add(wsPongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := conn.ping(); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	hello := LiveUpdate{Type: "hello", Counts: make(map[string]int64, len(liveTables)), At: time.Now().UTC()}
	for _, table := range liveTables {
		if n, err := h.svc.Count(ctx, table); err == nil {
			hello.Counts[table] = n
		}
	}
	if err := conn.writeJSON(hello); err != nil {
		_ = ws.Close()
		return
	}

	err = h.feed.Run(ctx, tracker.Ended(), func(u LiveUpdate) error { return conn.writeJSON(u) })
	switch {
	case err != nil:
		h.logger.Warn("live feed stopped", "error", err)
		conn.closeWith(websocket.CloseInternalServerErr, "live feed unavailable")
	case isClosed(tracker.Ended()):
		conn.closeWith(websocket.ClosePolicyViolation, "session ended")
	default:
		conn.closeWith(websocket.CloseNormalClosure, "")
	}
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
