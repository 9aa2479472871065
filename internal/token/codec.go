// Package token signs and verifies tenant-bound JWTs.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/daap14/tenantauth/internal/apperr"
)

// MinSecretLength is the shortest HMAC secret NewCodec accepts.
const MinSecretLength = 32

// Type distinguishes access from refresh tokens.
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

var (
	ErrTokenExpired      = apperr.New(apperr.KindAuthentication, "TOKEN_EXPIRED", "Token has expired")
	ErrTokenInvalid      = apperr.New(apperr.KindAuthentication, "TOKEN_INVALID", "Token is invalid")
	ErrTokenTypeMismatch = apperr.New(apperr.KindAuthentication, "TOKEN_TYPE_MISMATCH", "Token type is not accepted here")
	ErrInvalidClaims     = apperr.New(apperr.KindInternal, "INVALID_CLAIMS", "Token claims are incomplete")
)

// Claims is the signed payload. Subject holds the user ID.
type Claims struct {
	TenantID  string `json:"tenantId"`
	Role      string `json:"role,omitempty"`
	Type      Type   `json:"type"`
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// Principal is the input to Issue*.
type Principal struct {
	UserID    string
	TenantID  string
	Role      string
	SessionID string
}

// Codec issues and verifies tokens with a single HMAC secret.
type Codec struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

func WithIssuer(issuer string) Option {
	return func(c *Codec) { c.issuer = issuer }
}

func WithTTL(access, refresh time.Duration) Option {
	return func(c *Codec) {
		c.accessTTL = access
		c.refreshTTL = refresh
	}
}

// WithClock replaces time.Now for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec creates a Codec. A missing or short secret is an error so the
// process refuses to start rather than sign with a guessable key.
func NewCodec(secret string, opts ...Option) (*Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", MinSecretLength)
	}
	c := &Codec{
		secret:     []byte(secret),
		accessTTL:  15 * time.Minute,
		refreshTTL: 7 * 24 * time.Hour,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// AccessTTL is the lifetime of access tokens.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL is the lifetime of refresh tokens.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

func (c *Codec) IssueAccess(p Principal) (string, error) {
	return c.issue(p, TypeAccess, c.accessTTL)
}

func (c *Codec) IssueRefresh(p Principal) (string, error) {
	return c.issue(p, TypeRefresh, c.refreshTTL)
}

func (c *Codec) issue(p Principal, typ Type, ttl time.Duration) (string, error) {
	if strings.TrimSpace(p.TenantID) == "" || strings.TrimSpace(p.UserID) == "" {
		return "", ErrInvalidClaims
	}

	now := c.now()
	claims := Claims{
		TenantID:  p.TenantID,
		Role:      p.Role,
		Type:      typ,
		SessionID: p.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   p.UserID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", apperr.Internal("failed to sign token", err)
	}
	return signed, nil
}

// Verify checks signature, expiry, issuer and tenant binding. When expected
// is non-empty the token's type must match it.
func (c *Codec) Verify(tokenString string, expected Type) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if claims.TenantID == "" || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	if claims.Type != TypeAccess && claims.Type != TypeRefresh {
		return nil, ErrTokenInvalid
	}
	if expected != "" && claims.Type != expected {
		return nil, ErrTokenTypeMismatch
	}

	return claims, nil
}

// DecodeUnsafe parses claims without checking signature or expiry.
// The result must never be used for an authorization decision.
func (c *Codec) DecodeUnsafe(tokenString string) (*Claims, bool) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, false
	}
	return claims, true
}

// ExtractBearer returns the token from an "Authorization: Bearer <token>"
// header value. Any other scheme or an empty token yields false.
func ExtractBearer(header string) (string, bool) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return "", false
	}
	return tok, true
}
