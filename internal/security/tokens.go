// Package security issues and validates interaction tokens. An interaction
// token names one verification session; its jti scopes every passcode and
// identifier proven within it.
package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token is malformed, expired, or signed
// with the wrong key.
var ErrInvalidToken = errors.New("invalid token")

// InteractionClaims holds JWT claims for an interaction token.
type InteractionClaims struct {
	jwt.RegisteredClaims
	Flow string `json:"flow"`
}

// TokenProvider issues and validates interaction JWTs using HS256 with a
// shared key.
type TokenProvider struct {
	key    []byte
	issuer string
	ttl    time.Duration
}

// NewTokenProvider returns a TokenProvider signing with key. issuer is set on
// claims and validated on parse.
func NewTokenProvider(key []byte, issuer string, ttl time.Duration) *TokenProvider {
	return &TokenProvider{key: key, issuer: issuer, ttl: ttl}
}

// IssueInteraction issues an interaction token for the given flow. Returns
// the token string, its jti, and expiration time.
func (p *TokenProvider) IssueInteraction(flow string) (token, jti string, expiresAt time.Time, err error) {
	jti, err = generateJTI()
	if err != nil {
		return "", "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt = now.Add(p.ttl)
	claims := InteractionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Flow: flow,
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.key)
	return token, jti, expiresAt, err
}

// ValidateInteraction parses and validates the token (signature, exp, iss).
// Returns the session jti and flow, or ErrInvalidToken.
func (p *TokenProvider) ValidateInteraction(tokenString string) (jti, flow string, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &InteractionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.key, nil
	})
	if err != nil {
		return "", "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*InteractionClaims)
	if !ok || !token.Valid {
		return "", "", ErrInvalidToken
	}
	if claims.Issuer != p.issuer {
		return "", "", ErrInvalidToken
	}
	if claims.ID == "" {
		return "", "", ErrInvalidToken
	}
	return claims.ID, claims.Flow, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
