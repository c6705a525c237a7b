package identity

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/quickie-platform/internal/gateway"
	"github.com/wolfman30/quickie-platform/internal/http/respond"
	"github.com/wolfman30/quickie-platform/pkg/logging"
)

// AuthService is the account surface the auth endpoints need.
type AuthService interface {
	SignUp(ctx context.Context, in gateway.SignUpInput) (*gateway.Session, error)
	Authenticate(ctx context.Context, creds gateway.Credentials) (*gateway.Session, error)
	SignOut(ctx context.Context, token string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
	UpdateProfile(ctx context.Context, userID string, patch gateway.ProfileUpdate) (*gateway.Identity, error)
}

// Handler serves the auth endpoints.
type Handler struct {
	auth         AuthService
	logger       *logging.Logger
	secureCookie bool
}

// NewHandler creates a new auth handler
func NewHandler(auth AuthService, secureCookie bool, logger *logging.Logger) *Handler {
	if auth == nil {
		panic("identity: auth service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{auth: auth, logger: logger, secureCookie: secureCookie}
}

// Routes mounts the auth endpoints under /auth.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/signup", h.SignUp)
	r.Post("/signin", h.SignIn)
	r.Post("/signout", h.SignOut)
	r.Post("/reset", h.RequestReset)
	r.Post("/reset/confirm", h.ConfirmReset)
	r.Get("/me", h.Me)
	r.With(RequireAuth).Put("/profile", h.UpdateProfile)
}

// SignUpRequest is the body of POST /auth/signup.
type SignUpRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	FullName        string `json:"full_name"`
	Phone           string `json:"phone"`
}

// SessionResponse is returned by sign-up and sign-in.
type SessionResponse struct {
	Session *gateway.Session `json:"session"`
	Notice  *respond.Notice  `json:"notice"`
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, s *gateway.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    s.Token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// SignUp handles POST /auth/signup
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.BadRequest(w, "Invalid request body", respond.DismissForm)
		return
	}
	if req.Password != req.ConfirmPassword {
		respond.FieldErrors(w, map[string]string{"confirm_password": "Passwords do not match"}, respond.DismissForm)
		return
	}
	session, err := h.auth.SignUp(r.Context(), gateway.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
	})
	if err != nil {
		h.logger.Warn("sign up failed", "error", err)
		respond.Error(w, err, respond.DismissForm)
		return
	}
	h.setSessionCookie(w, session)
	respond.JSON(w, http.StatusCreated, SessionResponse{
		Session: session,
		Notice:  respond.NewNotice(respond.LevelSuccess, "Account created successfully!", respond.DismissForm),
	})
}

// SignIn handles POST /auth/signin
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var creds gateway.Credentials
	if err := respond.DecodeJSON(r, &creds); err != nil {
		respond.BadRequest(w, "Invalid request body", respond.DismissForm)
		return
	}
	session, err := h.auth.Authenticate(r.Context(), creds)
	if err != nil {
		respond.Error(w, err, respond.DismissForm)
		return
	}
	h.setSessionCookie(w, session)
	respond.JSON(w, http.StatusOK, SessionResponse{
		Session: session,
		Notice:  respond.NewNotice(respond.LevelSuccess, "Welcome back!", respond.DismissForm),
	})
}

// SignOut handles POST /auth/signout
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	token := TokenFromRequest(r)
	if token != "" {
		if err := h.auth.SignOut(r.Context(), token); err != nil {
			h.logger.Debug("sign out of unknown session", "error", err)
		}
	}
	h.clearSessionCookie(w)
	respond.Notify(w, http.StatusOK, respond.LevelSuccess, "Signed out successfully", respond.DismissForm)
}

type resetRequest struct {
	Email string `json:"email"`
}

// RequestReset handles POST /auth/reset
func (h *Handler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := respond.DecodeJSON(r, &req); err != nil || strings.TrimSpace(req.Email) == "" {
		respond.FieldErrors(w, map[string]string{"email": "Email is required"}, respond.DismissForm)
		return
	}
	if err := h.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		respond.Error(w, err, respond.DismissForm)
		return
	}
	respond.Notify(w, http.StatusOK, respond.LevelSuccess, "Password reset email sent!", respond.DismissForm)
}

type confirmResetRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ConfirmReset handles POST /auth/reset/confirm
func (h *Handler) ConfirmReset(w http.ResponseWriter, r *http.Request) {
	var req confirmResetRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.BadRequest(w, "Invalid request body", respond.DismissForm)
		return
	}
	if req.Password != req.ConfirmPassword {
		respond.FieldErrors(w, map[string]string{"confirm_password": "Passwords do not match"}, respond.DismissForm)
		return
	}
	if err := h.auth.ConfirmPasswordReset(r.Context(), req.Token, req.Password); err != nil {
		respond.Error(w, err, respond.DismissForm)
		return
	}
	respond.Notify(w, http.StatusOK, respond.LevelSuccess, "Password updated. Please sign in.", respond.DismissForm)
}

// Me handles GET /auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, FromContext(r.Context()).View())
}

// UpdateProfile handles PUT /auth/profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	tracker := FromContext(r.Context())
	current := tracker.Current()
	if current == nil {
		respond.Notify(w, http.StatusUnauthorized, respond.LevelError, "Please sign in to continue", respond.DismissForm)
		return
	}
	var patch gateway.ProfileUpdate
	if err := respond.DecodeJSON(r, &patch); err != nil {
		respond.BadRequest(w, "Invalid request body", respond.DismissForm)
		return
	}
	updated, err := h.auth.UpdateProfile(r.Context(), current.ID, patch)
	if err != nil {
		h.logger.Error("profile update failed", "error", err, "user_id", current.ID)
		respond.Error(w, err, respond.DismissForm)
		return
	}
	tracker.Apply(gateway.SessionEvent{Type: gateway.UserUpdated, UserID: updated.ID, Identity: updated})
	respond.JSON(w, http.StatusOK, struct {
		View
		Notice *respond.Notice `json:"notice"`
	}{tracker.View(), respond.NewNotice(respond.LevelSuccess, "Profile updated", respond.DismissForm)})
}
