package service

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/vibescript/builder/internal/auth"
	"github.com/vibescript/builder/internal/config"
	"github.com/vibescript/builder/internal/domain"
	"github.com/vibescript/builder/internal/events"
	"github.com/vibescript/builder/internal/repository"
	"github.com/vibescript/builder/internal/tokenstore"
)

type authFixture struct {
	svc    *AuthService
	users  *repository.MemoryUserRepository
	tokens *tokenstore.MemoryStore
	codec  *auth.SessionCodec

	lastVerifyURL string
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	f := &authFixture{
		users:  repository.NewMemoryUserRepository(),
		tokens: tokenstore.NewMemoryStore(),
		codec:  auth.NewSessionCodec("service-test-secret"),
	}

	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventVerificationRequested, func(_ context.Context, e events.Event) error {
		payload, ok := e.Payload.(events.VerificationRequestedPayload)
		if ok {
			f.lastVerifyURL = payload.VerifyURL
		}
		return nil
	})

	cfg := config.Config{
		App:  config.AppConfig{BaseURL: "http://localhost:8080"},
		Auth: config.AuthConfig{BcryptCost: bcrypt.MinCost, AdminEmail: "admin@vibescript.online"},
		Verification: config.VerificationConfig{
			TokenTTLHours:        24,
			AccessLinkTTLMinutes: 15,
		},
	}

	f.svc = NewAuthService(cfg, AuthDependencies{
		UserRepo:   f.users,
		TokenStore: f.tokens,
		Codec:      f.codec,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
		Metrics:    nil,
	})
	return f
}

// verifyToken extracts the one-time token from the last emitted link.
func (f *authFixture) verifyToken(t *testing.T) string {
	t.Helper()

	require.NotEmpty(t, f.lastVerifyURL)
	parsed, err := url.Parse(f.lastVerifyURL)
	require.NoError(t, err)
	token := parsed.Query().Get("token")
	require.NotEmpty(t, token)
	return token
}

func TestSignUpCreatesUnverifiedUser(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.SignUp(ctx, "User@Example.com", "pw", "pw"))

	user, err := f.users.GetByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	assert.False(t, user.Verified)
	assert.False(t, user.Admin)
	assert.Equal(t, domain.TierFree, user.Tier)
	assert.NotEqual(t, "pw", user.PasswordHash)

	assert.NotEmpty(t, f.lastVerifyURL)
}

func TestSignUpSeedsAdminAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.SignUp(ctx, "admin@vibescript.online", "pw", "pw"))

	user, err := f.users.GetByEmail(ctx, "admin@vibescript.online")
	require.NoError(t, err)
	assert.True(t, user.Admin)
	assert.Equal(t, domain.TierStudio, user.Tier)
}

func TestSignUpPasswordMismatch(t *testing.T) {
	f := newAuthFixture(t)

	err := f.svc.SignUp(context.Background(), "user@example.com", "pw", "other")
	assert.ErrorIs(t, err, ErrPasswordMismatch)
}

func TestSignUpVerifiedAccountConflicts(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.SignUp(ctx, "user@example.com", "pw", "pw"))
	_, err := f.svc.ConsumeVerification(ctx, f.verifyToken(t))
	require.NoError(t, err)

	err = f.svc.SignUp(ctx, "user@example.com", "other", "other")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestSignUpUnverifiedResetsPassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.SignUp(ctx, "user@example.com", "old-pw", "old-pw"))
	require.NoError(t, f.svc.SignUp(ctx, "user@example.com", "new-pw", "new-pw"))

	_, err := f.svc.ConsumeVerification(ctx, f.verifyToken(t))
	require.NoError(t, err)

	_, err = f.svc.SignIn(ctx, "user@example.com", "old-pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.SignIn(ctx, "user@example.com", "new-pw")
	assert.NoError(t, err)
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.SignIn(ctx, "nobody@example.com", "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, f.svc.SignUp(ctx, "user@example.com", "pw", "pw"))
	_, err = f.svc.SignIn(ctx, "user@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignInUnverifiedIsInterceptedAfterPasswordCheck(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.SignUp(ctx, "user@example.com", "pw", "pw"))
	firstLink := f.lastVerifyURL

	_, err := f.svc.SignIn(ctx, "user@example.com", "pw")
	assert.ErrorIs(t, err, ErrUnverified)

	// A fresh confirmation link was auto-issued.
	assert.NotEqual(t, firstLink, f.lastVerifyURL)
}

func TestConsumeVerificationIsSingleUse(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.SignUp(ctx, "user@example.com", "pw", "pw"))
	token := f.verifyToken(t)

	session, err := f.svc.ConsumeVerification(ctx, token)
	require.NoError(t, err)

	payload, ok := f.codec.Verify(session)
	require.True(t, ok)
	assert.Equal(t, "user@example.com", payload.Email)

	user, err := f.users.GetByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	assert.True(t, user.Verified)

	_, err = f.svc.ConsumeVerification(ctx, token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestConsumeVerificationUnknownToken(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.ConsumeVerification(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = f.svc.ConsumeVerification(context.Background(), "")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestConsumeVerificationOrphanToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	record, err := json.Marshal(verifyRecord{Email: "ghost@example.com"})
	require.NoError(t, err)
	require.NoError(t, f.tokens.Put(ctx, verifyKeyPrefix+"orphan", record, 0))

	_, err = f.svc.ConsumeVerification(ctx, "orphan")
	assert.ErrorIs(t, err, ErrAccountMissing)
}

func TestResendVerificationSwallowsUnknownAccounts(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.svc.ResendVerification(ctx, "nobody@example.com")
	assert.Empty(t, f.lastVerifyURL)

	require.NoError(t, f.svc.SignUp(ctx, "user@example.com", "pw", "pw"))
	first := f.lastVerifyURL

	f.svc.ResendVerification(ctx, "user@example.com")
	assert.NotEqual(t, first, f.lastVerifyURL)
}

func TestResendVerificationSkipsVerifiedAccounts(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.SignUp(ctx, "user@example.com", "pw", "pw"))
	_, err := f.svc.ConsumeVerification(ctx, f.verifyToken(t))
	require.NoError(t, err)

	issued := f.lastVerifyURL
	f.svc.ResendVerification(ctx, "user@example.com")
	assert.Equal(t, issued, f.lastVerifyURL)
}

func TestUpgradeTierRequiresAdmin(t *testing.T) {
	f := newAuthFixture(t)

	session := &auth.SessionPayload{Email: "user@example.com", Admin: false, Tier: domain.TierFree}
	_, err := f.svc.UpgradeTier(session, domain.TierPro)
	assert.ErrorIs(t, err, ErrAdminRequired)
}

func TestUpgradeTierValidatesTier(t *testing.T) {
	f := newAuthFixture(t)

	session := &auth.SessionPayload{Email: "admin@vibescript.online", Admin: true, Tier: domain.TierStudio}
	_, err := f.svc.UpgradeTier(session, domain.Tier("platinum"))
	assert.ErrorIs(t, err, ErrInvalidTier)
}

func TestUpgradeTierReSignsSession(t *testing.T) {
	f := newAuthFixture(t)

	session := &auth.SessionPayload{Email: "admin@vibescript.online", Admin: true, Tier: domain.TierFree, IssuedAt: 1}
	token, err := f.svc.UpgradeTier(session, domain.TierPro)
	require.NoError(t, err)

	payload, ok := f.codec.Verify(token)
	require.True(t, ok)
	assert.Equal(t, domain.TierPro, payload.Tier)
	assert.True(t, payload.Admin)
	assert.NotEqual(t, int64(1), payload.IssuedAt)
}

func TestIssueAccessLink(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.SignUp(ctx, "user@example.com", "pw", "pw"))

	admin := &auth.SessionPayload{Email: "admin@vibescript.online", Admin: true, Tier: domain.TierStudio}
	link, err := f.svc.IssueAccessLink(ctx, admin, "user@example.com", "/dashboard")
	require.NoError(t, err)

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/dashboard", parsed.Path)

	token := parsed.Query().Get("token")
	require.NotEmpty(t, token)

	raw, err := f.tokens.Get(ctx, auth.AccessTokenKey(token))
	require.NoError(t, err)
	var seed auth.SessionPayload
	require.NoError(t, json.Unmarshal(raw, &seed))
	assert.Equal(t, "user@example.com", seed.Email)
}

func TestIssueAccessLinkPreservesTargetQuery(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.SignUp(ctx, "user@example.com", "pw", "pw"))

	admin := &auth.SessionPayload{Email: "admin@vibescript.online", Admin: true, Tier: domain.TierStudio}
	link, err := f.svc.IssueAccessLink(ctx, admin, "user@example.com", "/dashboard?view=grid")
	require.NoError(t, err)

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/dashboard", parsed.Path)
	assert.Equal(t, "grid", parsed.Query().Get("view"))
	assert.NotEmpty(t, parsed.Query().Get("token"))
}

func TestIssueAccessLinkRequiresAdmin(t *testing.T) {
	f := newAuthFixture(t)

	session := &auth.SessionPayload{Email: "user@example.com", Admin: false}
	_, err := f.svc.IssueAccessLink(context.Background(), session, "user@example.com", "/dashboard")
	assert.ErrorIs(t, err, ErrAdminRequired)
}
