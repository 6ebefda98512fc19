package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/vibescript/builder/internal/observability"
	"github.com/vibescript/builder/internal/tokenstore"
)

const sessionKey = "session_payload"

// DefaultStaticExtPattern treats any path with a file extension as a static
// asset.
var DefaultStaticExtPattern = regexp.MustCompile(`\.[A-Za-z0-9]+$`)

// GateConfig parameterizes the access-control gate.
type GateConfig struct {
	// PublicPaths pass through without any credential check. An entry
	// matches exactly or as a path prefix ("/health" admits "/health/live").
	PublicPaths      []string
	StaticExtPattern *regexp.Regexp
	CookieName       string
	LoginPath        string
	CookieMaxAge     time.Duration
}

// Gate is the single choke point deciding request admission before any page
// or API handler executes. It never returns an internal error to the client:
// every failure collapses into a redirect to the login surface.
type Gate struct {
	cfg     GateConfig
	codec   *SessionCodec
	tokens  tokenstore.Store
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewGate constructs the gate middleware.
func NewGate(cfg GateConfig, codec *SessionCodec, tokens tokenstore.Store, logger *zap.Logger, metrics *observability.Metrics) *Gate {
	if cfg.StaticExtPattern == nil {
		cfg.StaticExtPattern = DefaultStaticExtPattern
	}
	return &Gate{cfg: cfg, codec: codec, tokens: tokens, logger: logger, metrics: metrics}
}

// Handle enforces admission in fixed order: public allow-list, static
// passthrough, one-time token promotion, session-cookie validation. A
// malformed, expired, or unknown credential is indistinguishable from an
// absent one.
func (g *Gate) Handle(c *fiber.Ctx) error {
	path := c.Path()

	if g.isPublic(path) {
		g.decide(observability.DecisionAllowPublic)
		return c.Next()
	}
	if g.cfg.StaticExtPattern.MatchString(path) {
		g.decide(observability.DecisionAllowStatic)
		return c.Next()
	}

	if token := c.Query("token"); token != "" {
		if handled, err := g.promote(c, token); handled {
			return err
		}
	}

	payload, ok := g.codec.Verify(c.Cookies(g.cfg.CookieName))
	if !ok {
		g.decide(observability.DecisionDeny)
		return c.Redirect(g.cfg.LoginPath, fiber.StatusFound)
	}

	c.Locals(sessionKey, payload)
	g.decide(observability.DecisionAllowSession)
	return c.Next()
}

// promote converts a one-shot access token carried in the query string into a
// standing session cookie, then redirects to the token-stripped URL so the
// credential does not linger in browser history. Returns handled=false when
// the token is unknown, letting the request fall through to the session
// check.
func (g *Gate) promote(c *fiber.Ctx, token string) (bool, error) {
	raw, err := g.tokens.Take(c.UserContext(), AccessTokenKey(token))
	if errors.Is(err, tokenstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		// Fail closed on store trouble; log a fingerprint, never the token.
		g.logger.Error("access token lookup failed",
			zap.String("token_fp", Fingerprint(token)), zap.Error(err))
		g.decide(observability.DecisionDeny)
		return true, c.Redirect(g.cfg.LoginPath, fiber.StatusFound)
	}

	var payload SessionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		g.logger.Warn("malformed access token payload",
			zap.String("token_fp", Fingerprint(token)))
		return false, nil
	}
	payload.IssuedAt = time.Now().UnixMilli()

	signed, err := g.codec.Sign(payload)
	if err != nil {
		g.decide(observability.DecisionDeny)
		return true, c.Redirect(g.cfg.LoginPath, fiber.StatusFound)
	}

	SetSessionCookie(c, g.cfg.CookieName, signed, g.cfg.CookieMaxAge)
	g.decide(observability.DecisionPromote)
	return true, c.Redirect(strippedURL(c), fiber.StatusFound)
}

func (g *Gate) isPublic(path string) bool {
	for _, p := range g.cfg.PublicPaths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func (g *Gate) decide(decision string) {
	if g.metrics != nil {
		g.metrics.GateDecisions.WithLabelValues(decision).Inc()
	}
}

// SessionFromContext retrieves the verified session payload set by the gate.
func SessionFromContext(c *fiber.Ctx) (*SessionPayload, bool) {
	payload, ok := c.Locals(sessionKey).(*SessionPayload)
	return payload, ok
}

// AccessTokenKey namespaces one-shot access tokens in the token store.
func AccessTokenKey(token string) string {
	return "access:" + token
}

// Fingerprint returns a fixed-width correlation id for a credential, safe to
// log.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:4])
}

// strippedURL rebuilds the request URL without the token query parameter.
func strippedURL(c *fiber.Ctx) string {
	query := make(url.Values)
	c.Context().QueryArgs().VisitAll(func(k, v []byte) {
		if string(k) != "token" {
			query.Add(string(k), string(v))
		}
	})
	target := c.Path()
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}
	return target
}
