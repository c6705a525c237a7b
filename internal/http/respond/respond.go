package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/wolfman30/quickie-platform/internal/gateway"
)

// Level is the severity of a transient notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Auto-dismiss delays for notices.
const (
	DismissForm    = 5000
	DismissBrowser = 3000
)

// Notice is a transient, auto-dismissing message for the page.
type Notice struct {
	Level          Level  `json:"level"`
	Message        string `json:"message"`
	DismissAfterMs int    `json:"dismiss_after_ms"`
}

// NewNotice builds a notice.
func NewNotice(level Level, message string, dismissMs int) *Notice {
	return &Notice{Level: level, Message: message, DismissAfterMs: dismissMs}
}

// Envelope is the body of responses that only carry a notice.
type Envelope struct {
	Notice *Notice           `json:"notice,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Notify writes a notice-only response.
func Notify(w http.ResponseWriter, status int, level Level, message string, dismissMs int) {
	JSON(w, status, Envelope{Notice: NewNotice(level, message, dismissMs)})
}

// FieldErrors writes a 422 with per-field messages.
func FieldErrors(w http.ResponseWriter, fields map[string]string, dismissMs int) {
	JSON(w, http.StatusUnprocessableEntity, Envelope{
		Notice: NewNotice(LevelError, "Please correct the highlighted fields", dismissMs),
		Fields: fields,
	})
}

// Error translates err into a readable notice and a matching status code.
func Error(w http.ResponseWriter, err error, dismissMs int) {
	Notify(w, StatusFor(err), LevelError, gateway.Translate(err), dismissMs)
}

// StatusFor maps gateway failures onto HTTP status codes.
func StatusFor(err error) int {
	var ae *gateway.AuthError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ae):
		return http.StatusUnauthorized
	case errors.Is(err, gateway.ErrNotFound):
		return http.StatusNotFound
	case gateway.IsCode(err, gateway.CodeUniqueViolation):
		return http.StatusConflict
	case gateway.IsCode(err, gateway.CodeInsufficientPrivilege):
		return http.StatusForbidden
	case errors.Is(err, gateway.ErrUnknownTable), errors.Is(err, gateway.ErrUnknownColumn):
		return http.StatusBadRequest
	}
	var qe *gateway.QueryError
	if errors.As(err, &qe) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Redirect sends the client to location, remembering the requested path.
func Redirect(w http.ResponseWriter, r *http.Request, location string) {
	target := location
	if r != nil && r.URL != nil {
		sep := "?"
		if strings.Contains(location, "?") {
			sep = "&"
		}
		target = location + sep + "redirect=" + url.QueryEscape(r.URL.RequestURI())
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// DecodeJSON reads a bounded JSON body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// BadRequest writes a 400 notice.
func BadRequest(w http.ResponseWriter, message string, dismissMs int) {
	Notify(w, http.StatusBadRequest, LevelError, message, dismissMs)
}
