package jwt

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
)

const sessionIssuer = "project-tracker/session"

var ErrInvalidToken = errors.New("invalid session token")

// SessionCodec signs session identifiers into cookie values so a client can
// neither forge nor guess another session id.
type SessionCodec struct {
	key    []byte
	signer gojose.Signer
	maxAge time.Duration
	now    func() time.Time
}

// NewSessionCodec derives an HS256 key from secret. maxAge bounds the absolute
// lifetime of a cookie value; zero disables the bound.
func NewSessionCodec(secret string, maxAge time.Duration) (*SessionCodec, error) {
	if secret == "" {
		return nil, errors.New("session secret is empty")
	}
	sum := sha256.Sum256([]byte(secret))
	key := sum[:]

	signer, err := gojose.NewSigner(gojose.SigningKey{Algorithm: gojose.HS256, Key: key}, (&gojose.SignerOptions{}).WithType("JWT"))
	if err != nil {
		return nil, fmt.Errorf("new signer: %w", err)
	}
	return &SessionCodec{key: key, signer: signer, maxAge: maxAge, now: time.Now}, nil
}

// Encode returns the signed cookie value for sessionID.
func (c *SessionCodec) Encode(sessionID string) (string, error) {
	now := c.now().UTC()
	claims := gojwt.Claims{
		ID:       sessionID,
		Issuer:   sessionIssuer,
		IssuedAt: gojwt.NewNumericDate(now),
	}
	if c.maxAge > 0 {
		claims.Expiry = gojwt.NewNumericDate(now.Add(c.maxAge))
	}
	token, err := gojwt.Signed(c.signer).Claims(claims).Serialize()
	if err != nil {
		return "", fmt.Errorf("serialize session token: %w", err)
	}
	return token, nil
}

// Decode verifies value and returns the session id it carries.
func (c *SessionCodec) Decode(value string) (string, error) {
	parsed, err := gojwt.ParseSigned(value, []gojose.SignatureAlgorithm{gojose.HS256})
	if err != nil {
		return "", fmt.Errorf("%w: parse: %v", ErrInvalidToken, err)
	}
	var claims gojwt.Claims
	if err := parsed.Claims(c.key, &claims); err != nil {
		return "", fmt.Errorf("%w: verify: %v", ErrInvalidToken, err)
	}
	if err := claims.ValidateWithLeeway(gojwt.Expected{Issuer: sessionIssuer, Time: c.now()}, time.Minute); err != nil {
		return "", fmt.Errorf("%w: claims: %v", ErrInvalidToken, err)
	}
	if claims.ID == "" {
		return "", fmt.Errorf("%w: missing session id", ErrInvalidToken)
	}
	return claims.ID, nil
}
