package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer          = "surveyhub"
	defaultTokenTTL = 24 * time.Hour
)

// Claim is the identity payload carried by a bearer token. OrganizationID is
// nil for plain user tokens and set for member tokens.
type Claim struct {
	SubjectID      int64
	OrganizationID *int64
}

// tokenClaims is the wire shape. Pointer fields let verification distinguish
// "absent" from zero; a non-numeric value fails JSON decoding, which fails
// the whole token rather than defaulting to an anonymous identity.
type tokenClaims struct {
	SubjectID      *int64 `json:"id"`
	OrganizationID *int64 `json:"organization_id,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs and verifies bearer tokens using HS256 and a shared secret.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// CodecOption configures Codec behavior.
type CodecOption func(*Codec)

// WithTTL overrides the 24h token lifetime.
func WithTTL(ttl time.Duration) CodecOption {
	return func(c *Codec) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) CodecOption {
	return func(c *Codec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCodec constructs a Codec with the shared signing secret.
func NewCodec(secret string, opts ...CodecOption) (*Codec, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth secret is not configured")
	}
	c := &Codec{
		secret: []byte(secret),
		ttl:    defaultTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue signs a token for the claim, expiring after the configured TTL.
func (c *Codec) Issue(claim Claim) (string, error) {
	if claim.SubjectID <= 0 {
		return "", errors.New("subject id is required")
	}
	if claim.OrganizationID != nil && *claim.OrganizationID <= 0 {
		return "", errors.New("organization id must be positive")
	}

	now := c.now().UTC()
	subject := claim.SubjectID
	wire := tokenClaims{
		SubjectID:      &subject,
		OrganizationID: claim.OrganizationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, wire)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and claims and returns the embedded identity.
// Malformed claims fail closed: a missing or non-numeric subject, or a
// non-numeric organization id, is ErrInvalidToken, never an anonymous pass.
func (c *Codec) Verify(token string) (Claim, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claim{}, ErrInvalidToken
	}

	var wire tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &wire, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return c.now().UTC() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claim{}, ErrExpiredToken
		}
		return Claim{}, ErrInvalidToken
	}
	if !parsed.Valid {
		return Claim{}, ErrInvalidToken
	}
	if wire.Issuer != issuer {
		return Claim{}, ErrInvalidToken
	}
	if wire.ExpiresAt == nil || wire.IssuedAt == nil {
		return Claim{}, ErrInvalidToken
	}
	if wire.SubjectID == nil || *wire.SubjectID <= 0 {
		return Claim{}, ErrInvalidToken
	}
	if wire.OrganizationID != nil && *wire.OrganizationID <= 0 {
		return Claim{}, ErrInvalidToken
	}

	claim := Claim{SubjectID: *wire.SubjectID}
	if wire.OrganizationID != nil {
		orgID := *wire.OrganizationID
		claim.OrganizationID = &orgID
	}
	return claim, nil
}
