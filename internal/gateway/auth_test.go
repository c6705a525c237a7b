package gateway

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeAccounts struct {
	mu       sync.Mutex
	profiles map[string]*Identity
	hashes   map[string]string // user id -> hash
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{profiles: map[string]*Identity{}, hashes: map[string]string{}}
}

func (f *fakeAccounts) CreateAccount(_ context.Context, acct Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if p.Email == acct.Email {
			return &QueryError{Code: CodeUniqueViolation, Message: "duplicate"}
		}
	}
	id := acct.Identity
	f.profiles[id.ID] = &id
	f.hashes[id.ID] = acct.PasswordHash
	return nil
}

func (f *fakeAccounts) credentialByEmail(_ context.Context, email string) (credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, p := range f.profiles {
		if p.Email == email {
			return credential{UserID: id, PasswordHash: f.hashes[id]}, nil
		}
	}
	return credential{}, wrapError("signin", "auth_users", pgx.ErrNoRows)
}

func (f *fakeAccounts) setPasswordHash(_ context.Context, userID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hashes[userID] = hash
	return nil
}

func (f *fakeAccounts) profileByID(_ context.Context, userID string) (*Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, wrapError("profile", TableUsers, pgx.ErrNoRows)
	}
	cp := *p
	return &cp, nil
}

func (f *fakeAccounts) profileByEmail(ctx context.Context, email string) (*Identity, error) {
	f.mu.Lock()
	var id string
	for k, p := range f.profiles {
		if p.Email == email {
			id = k
		}
	}
	f.mu.Unlock()
	return f.profileByID(ctx, id)
}

func (f *fakeAccounts) upsertProfile(_ context.Context, p *Identity, at time.Time) (*Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	cp.UpdatedAt = at
	f.profiles[p.ID] = &cp
	out := cp
	return &out, nil
}

type recordingMailer struct {
	email, token string
}

func (m *recordingMailer) SendPasswordReset(_ context.Context, email, token string) error {
	m.email, m.token = email, token
	return nil
}

func newTestAuth(t *testing.T) (*Authenticator, *fakeAccounts, *recordingMailer) {
	t.Helper()
	accounts := newFakeAccounts()
	mailer := &recordingMailer{}
	auth := newAuthenticator(accounts, NewMemorySessionStore(), mailer, AuthConfig{
		Secret:     "test-secret",
		BcryptCost: bcrypt.MinCost,
	}, nil)
	return auth, accounts, mailer
}

func TestSignUpAndSignIn(t *testing.T) {
	auth, _, _ := newTestAuth(t)
	ctx := context.Background()
	changes := auth.OnSessionChange()
	defer changes.Close()

	session, err := auth.SignUp(ctx, SignUpInput{Email: " Ana@Example.com ", Password: "secret1", FullName: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", session.Identity.Email)
	assert.Equal(t, RoleCustomer, session.Identity.Role)
	assert.Equal(t, SignedIn, (<-changes.Events()).Type)

	current, err := auth.CurrentSession(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.Identity.ID, current.ID)

	again, err := auth.Authenticate(ctx, Credentials{Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEqual(t, session.Token, again.Token)

	_, err = auth.Authenticate(ctx, Credentials{Email: "ana@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Authenticate(ctx, Credentials{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignUpValidation(t *testing.T) {
	auth, _, _ := newTestAuth(t)
	ctx := context.Background()

	_, err := auth.SignUp(ctx, SignUpInput{Email: "not-an-email", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidEmail)
	_, err = auth.SignUp(ctx, SignUpInput{Email: "a@example.com", Password: "12345"})
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = auth.SignUp(ctx, SignUpInput{Email: "a@example.com", Password: "123456"})
	require.NoError(t, err)
	_, err = auth.SignUp(ctx, SignUpInput{Email: "a@example.com", Password: "123456"})
	assert.Equal(t, "This record already exists", Translate(err))
}

func TestCurrentSessionEmptyAndInvalid(t *testing.T) {
	auth, _, _ := newTestAuth(t)
	ctx := context.Background()

	id, err := auth.CurrentSession(ctx, "  ")
	assert.NoError(t, err)
	assert.Nil(t, id)

	_, err = auth.CurrentSession(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1", ID: "s-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = auth.CurrentSession(ctx, forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSignOutRevokesSession(t *testing.T) {
	auth, _, _ := newTestAuth(t)
	ctx := context.Background()
	session, err := auth.SignUp(ctx, SignUpInput{Email: "a@example.com", Password: "123456"})
	require.NoError(t, err)

	changes := auth.OnSessionChange()
	defer changes.Close()
	require.NoError(t, auth.SignOut(ctx, session.Token))
	ev := <-changes.Events()
	assert.Equal(t, SignedOut, ev.Type)
	assert.Equal(t, session.Identity.ID, ev.UserID)

	_, err = auth.CurrentSession(ctx, session.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredSession(t *testing.T) {
	auth, _, _ := newTestAuth(t)
	ctx := context.Background()
	session, err := auth.SignUp(ctx, SignUpInput{Email: "a@example.com", Password: "123456"})
	require.NoError(t, err)

	auth.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
	_, err = auth.CurrentSession(ctx, session.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordResetFlow(t *testing.T) {
	auth, _, mailer := newTestAuth(t)
	ctx := context.Background()
	_, err := auth.SignUp(ctx, SignUpInput{Email: "a@example.com", Password: "123456"})
	require.NoError(t, err)

	require.NoError(t, auth.RequestPasswordReset(ctx, "nobody@example.com"))
	assert.Empty(t, mailer.token)

	require.NoError(t, auth.RequestPasswordReset(ctx, "A@example.com"))
	assert.Equal(t, "a@example.com", mailer.email)
	require.NotEmpty(t, mailer.token)

	assert.ErrorIs(t, auth.ConfirmPasswordReset(ctx, mailer.token, "123"), ErrWeakPassword)
	require.NoError(t, auth.ConfirmPasswordReset(ctx, mailer.token, "newpass"))
	assert.ErrorIs(t, auth.ConfirmPasswordReset(ctx, mailer.token, "newpass"), ErrResetTokenInvalid)

	_, err = auth.Authenticate(ctx, Credentials{Email: "a@example.com", Password: "newpass"})
	assert.NoError(t, err)
}

func TestUpdateProfilePublishesChange(t *testing.T) {
	auth, _, _ := newTestAuth(t)
	ctx := context.Background()
	session, err := auth.SignUp(ctx, SignUpInput{Email: "a@example.com", Password: "123456", Phone: "0917"})
	require.NoError(t, err)

	changes := auth.OnSessionChange()
	defer changes.Close()
	name := "  Ana Cruz "
	updated, err := auth.UpdateProfile(ctx, session.Identity.ID, ProfileUpdate{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ana Cruz", updated.FullName)
	assert.Equal(t, "0917", updated.Phone)

	ev := <-changes.Events()
	assert.Equal(t, UserUpdated, ev.Type)
	assert.True(t, strings.HasPrefix(ev.Identity.FullName, "Ana"))
}
