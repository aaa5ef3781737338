// Package auth implements issuing and verifying the signed tokens that carry
// a request's subject. Access and refresh tokens share one encoding and
// differ only by TTL.
package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/avoronov/contenthub/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// minKeyLen is the minimum key material for HS384 (384 bits).
const minKeyLen = 48

// Codec signs and verifies JWTs with a single process-wide HS384 key.
// It is safe for concurrent use; Verify is a pure function of the token
// bytes, the key, and the clock.
type Codec struct {
	key    []byte
	parser *jwt.Parser
}

// NewCodec builds a Codec from the configured secret. The secret is decoded
// as base64 first; if that fails it is treated as raw UTF-8 bytes. The
// fallback is kept because it affects the length check below. Keys shorter
// than 48 bytes are rejected so the process fails at startup rather than
// issuing weakly signed tokens.
func NewCodec(secret string, clockSkew time.Duration) (*Codec, error) {
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		key = []byte(secret)
	}

	if len(key) < minKeyLen {
		return nil, fmt.Errorf("signing key too short for HS384: got %d bytes, need at least %d (base64 recommended)", len(key), minKeyLen)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS384.Alg()}),
		jwt.WithLeeway(clockSkew),
		jwt.WithExpirationRequired(),
	)

	return &Codec{key: key, parser: parser}, nil
}

// Issue returns a signed token for subject expiring after ttl.
func (c *Codec) Issue(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS384, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})

	return token.SignedString(c.key)
}

// Verify parses and validates tokenString and returns its subject.
// Expiry is checked against the current time with the configured clock-skew
// leeway. Failures are reported as common.ErrTokenExpired,
// common.ErrTokenMalformed, or common.ErrSignatureInvalid.
func (c *Codec) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := c.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return c.key, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", common.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return "", common.ErrSignatureInvalid
		default:
			return "", common.ErrTokenMalformed
		}
	}
	if !token.Valid || claims.Subject == "" {
		return "", common.ErrTokenMalformed
	}

	return claims.Subject, nil
}
