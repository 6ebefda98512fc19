package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vibescript/builder/internal/auth"
	"github.com/vibescript/builder/internal/config"
	"github.com/vibescript/builder/internal/domain"
	"github.com/vibescript/builder/internal/events"
	"github.com/vibescript/builder/internal/observability"
	"github.com/vibescript/builder/internal/repository"
	"github.com/vibescript/builder/internal/tokenstore"
)

// Sentinel errors surfaced to handlers. None of them carry credential detail.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnverified         = errors.New("account not verified")
	ErrEmailTaken         = errors.New("email already registered")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrTokenInvalid       = errors.New("invalid or expired token")
	ErrAccountMissing     = errors.New("account not found")
	ErrInvalidTier        = errors.New("invalid tier")
	ErrAdminRequired      = errors.New("admin required")
)

const verifyKeyPrefix = "verify:"

// verifyRecord is the payload stored against a one-time verification token.
type verifyRecord struct {
	Email string `json:"email"`
}

// AuthService coordinates signup, sign-in, verification, and session issuance.
type AuthService struct {
	users      repository.UserRepository
	tokens     tokenstore.Store
	codec      *auth.SessionCodec
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	bcryptCost int
	verifyTTL  time.Duration
	accessTTL  time.Duration
	baseURL    string
	adminEmail string
}

// AuthDependencies encapsulates collaborator requirements for the service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	TokenStore tokenstore.Store
	Codec      *auth.SessionCodec
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		tokens:     deps.TokenStore,
		codec:      deps.Codec,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		bcryptCost: cfg.Auth.BcryptCost,
		verifyTTL:  cfg.Verification.TokenTTL(),
		accessTTL:  cfg.Verification.AccessLinkTTL(),
		baseURL:    strings.TrimRight(cfg.App.BaseURL, "/"),
		adminEmail: strings.ToLower(cfg.Auth.AdminEmail),
	}
}

// SignUp creates an unverified account and issues the initial verification
// link. Re-signup on an unverified account resets the password and re-issues
// the link; a verified account is a conflict.
func (s *AuthService) SignUp(ctx context.Context, email, password, confirm string) error {
	email = NormalizeEmail(email)
	if password != confirm {
		return ErrPasswordMismatch
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil && existing.Verified:
		return ErrEmailTaken
	case err == nil:
		existing.PasswordHash = hash
		if err := s.users.Update(ctx, existing); err != nil {
			return err
		}
	case errors.Is(err, repository.ErrNotFound):
		user := &domain.User{
			Email:        email,
			PasswordHash: hash,
			Verified:     false,
			Admin:        email != "" && email == s.adminEmail,
			Tier:         domain.TierFree,
		}
		if user.Admin {
			user.Tier = domain.TierStudio
		}
		if err := s.users.Create(ctx, user); err != nil {
			return err
		}
	default:
		return err
	}

	return s.issueVerification(ctx, email)
}

// ResendVerification re-issues a confirmation link. It never reveals whether
// the address is registered: every failure is logged and swallowed so the
// caller's response is identical either way.
func (s *AuthService) ResendVerification(ctx context.Context, email string) {
	email = NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("resend lookup failed", zap.Error(err))
		}
		return
	}
	if user.Verified {
		return
	}
	if err := s.issueVerification(ctx, email); err != nil {
		s.logger.Error("resend issue failed", zap.Error(err))
	}
}

// SignIn authenticates a user and returns a signed session token. An
// unverified account is intercepted after the password check and funneled
// back into the resend flow; it never receives a session.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (string, error) {
	email = NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("signin lookup failed", zap.Error(err))
		}
		// Burn a comparison so an unknown address costs the same as a
		// wrong password.
		auth.CompareDummy(password)
		s.recordSignIn("bad_credentials")
		return "", ErrInvalidCredentials
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		s.recordSignIn("bad_credentials")
		return "", ErrInvalidCredentials
	}
	if !user.Verified {
		if err := s.issueVerification(ctx, email); err != nil {
			s.logger.Error("auto-resend failed", zap.Error(err))
		}
		s.recordSignIn("unverified")
		return "", ErrUnverified
	}

	token, err := s.codec.Sign(auth.NewSessionPayload(user))
	if err != nil {
		return "", err
	}
	s.recordSignIn("success")
	return token, nil
}

// ConsumeVerification claims a one-time token, marks the account verified,
// and returns a signed session token. The claim is single-use: a second
// consume of the same token observes "not found".
func (s *AuthService) ConsumeVerification(ctx context.Context, token string) (string, error) {
	if token == "" {
		s.recordConsume("invalid")
		return "", ErrTokenInvalid
	}

	raw, err := s.tokens.Take(ctx, verifyKeyPrefix+token)
	if err != nil {
		if !errors.Is(err, tokenstore.ErrNotFound) {
			// Fail closed; surface the generic invalid-link state.
			s.logger.Error("verification token lookup failed",
				zap.String("token_fp", auth.Fingerprint(token)), zap.Error(err))
		}
		s.recordConsume("invalid")
		return "", ErrTokenInvalid
	}

	var record verifyRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		s.recordConsume("invalid")
		return "", ErrTokenInvalid
	}

	user, err := s.users.GetByEmail(ctx, record.Email)
	if err != nil {
		// Token resolved to an email with no account: inconsistent state,
		// logged for operators, generic failure to the caller.
		s.logger.Error("verification token for unknown account",
			zap.String("token_fp", auth.Fingerprint(token)), zap.Error(err))
		s.recordConsume("orphan")
		return "", ErrAccountMissing
	}

	user.Verified = true
	if err := s.users.Update(ctx, user); err != nil {
		s.recordConsume("invalid")
		return "", err
	}

	s.publish(ctx, events.EventUserVerified, events.UserVerifiedPayload{Email: user.Email})

	signed, err := s.codec.Sign(auth.NewSessionPayload(user))
	if err != nil {
		return "", err
	}
	s.recordConsume("success")
	return signed, nil
}

// UpgradeTier re-signs the caller's session with a new tier. Only a session
// already proving admin may do this; the tier value itself is never trusted
// beyond membership in the known set.
func (s *AuthService) UpgradeTier(session *auth.SessionPayload, tier domain.Tier) (string, error) {
	if !domain.ValidTier(tier) {
		return "", ErrInvalidTier
	}
	if !session.Admin {
		return "", ErrAdminRequired
	}

	updated := *session
	updated.Tier = tier
	updated.IssuedAt = time.Now().UnixMilli()
	return s.codec.Sign(updated)
}

// IssueAccessLink mints a one-shot sign-in URL for the given account. The
// gate promotes the embedded token to a standing session cookie on first use.
func (s *AuthService) IssueAccessLink(ctx context.Context, session *auth.SessionPayload, email, target string) (string, error) {
	if !session.Admin {
		return "", ErrAdminRequired
	}

	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrAccountMissing
		}
		return "", err
	}

	seed, err := json.Marshal(auth.SessionPayload{
		Email: user.Email,
		Admin: user.Admin,
		Tier:  user.Tier,
	})
	if err != nil {
		return "", err
	}

	token, err := newToken()
	if err != nil {
		return "", err
	}
	if err := s.tokens.Put(ctx, auth.AccessTokenKey(token), seed, s.accessTTL); err != nil {
		return "", err
	}

	if target == "" || !strings.HasPrefix(target, "/") {
		target = "/dashboard"
	}
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return s.baseURL + target + sep + "token=" + token, nil
}

// issueVerification stores a fresh one-time token and hands the link to the
// notification path. An email dispatch failure downstream leaves the stored
// token valid; resend is the recovery mechanism.
func (s *AuthService) issueVerification(ctx context.Context, email string) error {
	token, err := newToken()
	if err != nil {
		return err
	}

	record, err := json.Marshal(verifyRecord{Email: email})
	if err != nil {
		return err
	}
	if err := s.tokens.Put(ctx, verifyKeyPrefix+token, record, s.verifyTTL); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.TokensIssued.Inc()
	}

	s.publish(ctx, events.EventVerificationRequested, events.VerificationRequestedPayload{
		Email:     email,
		VerifyURL: s.baseURL + "/verify?token=" + token,
	})
	return nil
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, payload any) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

func (s *AuthService) recordSignIn(result string) {
	if s.metrics != nil {
		s.metrics.SignIns.WithLabelValues(result).Inc()
	}
}

func (s *AuthService) recordConsume(result string) {
	if s.metrics != nil {
		s.metrics.TokensConsumed.WithLabelValues(result).Inc()
	}
}

// NormalizeEmail lowercases and trims an address for use as a lookup key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// newToken returns 32 bytes of entropy, hex encoded.
func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
