package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/wolfman30/quickie-platform/pkg/logging"
)

// Role is the access level stored on a profile.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

// Identity is the signed-in user's profile.
type Identity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Role      Role      `json:"role"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Credentials are an email/password pair.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpInput is a new account request.
type SignUpInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

// ProfileUpdate carries editable profile fields; nil leaves a field unchanged.
type ProfileUpdate struct {
	FullName  *string `json:"full_name"`
	Phone     *string `json:"phone"`
	AvatarURL *string `json:"avatar_url"`
}

// Session is an issued bearer token.
type Session struct {
	Token     string    `json:"access_token"`
	ExpiresAt time.Time `json:"expires_at"`
	Identity  Identity  `json:"user"`
}

// SessionEventType names a session state transition.
type SessionEventType string

const (
	SignedIn    SessionEventType = "SIGNED_IN"
	SignedOut   SessionEventType = "SIGNED_OUT"
	UserUpdated SessionEventType = "USER_UPDATED"
)

// SessionEvent is published whenever a session starts, ends or its profile changes.
type SessionEvent struct {
	Type     SessionEventType
	UserID   string
	Identity *Identity
}

// ResetMailer delivers password reset links.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

type accountStore interface {
	CreateAccount(ctx context.Context, acct Account) error
	credentialByEmail(ctx context.Context, email string) (credential, error)
	setPasswordHash(ctx context.Context, userID, hash string) error
	profileByID(ctx context.Context, userID string) (*Identity, error)
	profileByEmail(ctx context.Context, email string) (*Identity, error)
	upsertProfile(ctx context.Context, p *Identity, at time.Time) (*Identity, error)
}

type sessionClaims struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
	jwt.RegisteredClaims
}

const minPasswordLength = 6

// AuthConfig tunes token lifetimes and hashing.
type AuthConfig struct {
	Secret     string
	SessionTTL time.Duration
	ResetTTL   time.Duration
	BcryptCost int
}

// Authenticator issues and validates sessions.
type Authenticator struct {
	accounts accountStore
	sessions SessionStore
	mailer   ResetMailer
	cfg      AuthConfig
	changes  fanout[SessionEvent]
	logger   *logging.Logger
	now      func() time.Time
}

// NewAuthenticator wires account storage, session storage and the reset mailer.
func NewAuthenticator(accounts *PostgresStore, sessions SessionStore, mailer ResetMailer, cfg AuthConfig, logger *logging.Logger) *Authenticator {
	return newAuthenticator(accounts, sessions, mailer, cfg, logger)
}

func newAuthenticator(accounts accountStore, sessions SessionStore, mailer ResetMailer, cfg AuthConfig, logger *logging.Logger) *Authenticator {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Authenticator{
		accounts: accounts,
		sessions: sessions,
		mailer:   mailer,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// SignUp creates an account with the customer role and starts a session.
func (a *Authenticator) SignUp(ctx context.Context, in SignUpInput) (*Session, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), a.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("gateway: hash password: %w", err)
	}
	identity := Identity{
		ID:       uuid.NewString(),
		Email:    email,
		FullName: strings.TrimSpace(in.FullName),
		Phone:    strings.TrimSpace(in.Phone),
		Role:     RoleCustomer,
	}
	if err := a.accounts.CreateAccount(ctx, Account{Identity: identity, PasswordHash: string(hash)}); err != nil {
		return nil, err
	}
	a.logger.Info("account created", "user_id", identity.ID)
	return a.startSession(ctx, &identity)
}

// Authenticate verifies credentials and starts a session.
func (a *Authenticator) Authenticate(ctx context.Context, creds Credentials) (*Session, error) {
	email, err := normalizeEmail(creds.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	cred, err := a.accounts.credentialByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(creds.Password)) != nil {
		return nil, ErrInvalidCredentials
	}
	identity, err := a.accounts.profileByID(ctx, cred.UserID)
	if err != nil {
		return nil, err
	}
	return a.startSession(ctx, identity)
}

func (a *Authenticator) startSession(ctx context.Context, identity *Identity) (*Session, error) {
	now := a.now()
	expires := now.Add(a.cfg.SessionTTL)
	sessionID := uuid.NewString()
	claims := sessionClaims{
		Email: identity.Email,
		Role:  identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("gateway: sign session: %w", err)
	}
	if err := a.sessions.SaveSession(ctx, sessionID, identity.ID, a.cfg.SessionTTL); err != nil {
		return nil, err
	}
	a.changes.publish(SessionEvent{Type: SignedIn, UserID: identity.ID, Identity: identity})
	return &Session{Token: token, ExpiresAt: expires, Identity: *identity}, nil
}

func (a *Authenticator) parse(token string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(a.cfg.Secret), nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// CurrentSession resolves a bearer token to its identity. An empty token
// yields (nil, nil); a revoked or malformed one yields ErrInvalidToken.
func (a *Authenticator) CurrentSession(ctx context.Context, token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	claims, err := a.parse(token)
	if err != nil {
		return nil, err
	}
	userID, err := a.sessions.LookupSession(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, errNoSession) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if userID != claims.Subject {
		return nil, ErrInvalidToken
	}
	return a.accounts.profileByID(ctx, userID)
}

// SignOut revokes the session behind token.
func (a *Authenticator) SignOut(ctx context.Context, token string) error {
	claims, err := a.parse(token)
	if err != nil {
		return err
	}
	if err := a.sessions.DeleteSession(ctx, claims.ID); err != nil {
		return err
	}
	a.changes.publish(SessionEvent{Type: SignedOut, UserID: claims.Subject})
	return nil
}

// RequestPasswordReset mails a one-time reset token. Unknown addresses
// succeed without sending anything.
func (a *Authenticator) RequestPasswordReset(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	identity, err := a.accounts.profileByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		a.logger.Info("password reset for unknown address ignored")
		return nil
	}
	if err != nil {
		return err
	}
	token := uuid.NewString()
	if err := a.sessions.SaveResetToken(ctx, token, identity.ID, a.cfg.ResetTTL); err != nil {
		return err
	}
	if a.mailer == nil {
		a.logger.Warn("password reset requested but no mailer configured", "user_id", identity.ID)
		return nil
	}
	return a.mailer.SendPasswordReset(ctx, identity.Email, token)
}

// ConfirmPasswordReset sets a new password using a mailed token.
func (a *Authenticator) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}
	userID, err := a.sessions.ConsumeResetToken(ctx, strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, errNoSession) {
			return ErrResetTokenInvalid
		}
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), a.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("gateway: hash password: %w", err)
	}
	return a.accounts.setPasswordHash(ctx, userID, string(hash))
}

// UpdateProfile applies patch to the user's profile row and announces the change.
func (a *Authenticator) UpdateProfile(ctx context.Context, userID string, patch ProfileUpdate) (*Identity, error) {
	current, err := a.accounts.profileByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	next := *current
	if patch.FullName != nil {
		next.FullName = strings.TrimSpace(*patch.FullName)
	}
	if patch.Phone != nil {
		next.Phone = strings.TrimSpace(*patch.Phone)
	}
	if patch.AvatarURL != nil {
		next.AvatarURL = strings.TrimSpace(*patch.AvatarURL)
	}
	updated, err := a.accounts.upsertProfile(ctx, &next, a.now().UTC())
	if err != nil {
		return nil, err
	}
	a.changes.publish(SessionEvent{Type: UserUpdated, UserID: updated.ID, Identity: updated})
	return updated, nil
}

// OnSessionChange subscribes to session events for every user.
func (a *Authenticator) OnSessionChange() *Subscription[SessionEvent] {
	return a.changes.subscribe(0, nil)
}
