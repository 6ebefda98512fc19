package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/vibescript/builder/internal/domain"
)

// SessionPayload carries the claims proving a prior successful
// authentication. It is immutable once signed; changing any field (a tier
// upgrade, for example) requires re-signing a fresh payload.
type SessionPayload struct {
	Email    string      `json:"email"`
	Admin    bool        `json:"admin"`
	Tier     domain.Tier `json:"tier"`
	IssuedAt int64       `json:"iat"`
}

// SessionCodec signs and verifies compact tamper-evident session tokens.
// Token format: base64url(JSON payload) + "." + base64url(HMAC-SHA256(body)).
// The codec holds the only copy of the signing secret; it is loaded once at
// process start and never exposed.
type SessionCodec struct {
	secret []byte
}

// NewSessionCodec builds a codec around the symmetric signing secret.
func NewSessionCodec(secret string) *SessionCodec {
	return &SessionCodec{secret: []byte(secret)}
}

// Sign serializes the payload and returns the signed token. Deterministic for
// a given payload and secret; IssuedAt keeps re-issued tokens distinct.
func (c *SessionCodec) Sign(payload SessionPayload) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	body := base64.RawURLEncoding.EncodeToString(raw)
	return body + "." + base64.RawURLEncoding.EncodeToString(c.mac(body)), nil
}

// Verify checks the token signature and decodes the payload. It fails closed:
// any malformed token, signature mismatch, or undecodable body yields
// (nil, false) so callers treat every failure as "no valid session".
func (c *SessionCodec) Verify(token string) (*SessionPayload, bool) {
	body, sigPart, found := strings.Cut(token, ".")
	if !found || body == "" {
		return nil, false
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigPart)
	if err != nil {
		return nil, false
	}
	if !hmac.Equal(sig, c.mac(body)) {
		return nil, false
	}
	raw, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return nil, false
	}
	var payload SessionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false
	}
	return &payload, true
}

// NewSessionPayload snapshots the user's claims with a fresh issue time.
func NewSessionPayload(user *domain.User) SessionPayload {
	return SessionPayload{
		Email:    user.Email,
		Admin:    user.Admin,
		Tier:     user.Tier,
		IssuedAt: time.Now().UnixMilli(),
	}
}

func (c *SessionCodec) mac(body string) []byte {
	h := hmac.New(sha256.New, c.secret)
	h.Write([]byte(body))
	return h.Sum(nil)
}
