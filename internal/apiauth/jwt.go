// Package apiauth guards the engine's HTTP tool surface: a bootstrap
// API key (bcrypt-hashed at rest) exchanges for a short-lived bearer
// JWT carrying a single service-identity claim instead of a user record.
package apiauth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalid = errors.New("apiauth: token invalid")
	ErrExpired = errors.New("apiauth: token expired")
)

// Claims identifies the calling agent/tool-runner, not a human user —
// the engine has no user-account domain of its own.
type Claims struct {
	Subject string `json:"sub"`
	jwt.RegisteredClaims
}

// JWTService issues and validates bearer tokens for the tool surface.
type JWTService struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

func NewJWTService(secret string, ttl time.Duration) *JWTService {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &JWTService{secret: []byte(secret), ttl: ttl, issuer: "memoria"}
}

func (s *JWTService) Issue(subject string) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, ErrInvalid
	}
	now := time.Now().UTC()
	expires := now.Add(s.ttl)
	claims := Claims{
		Subject: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	return signed, expires, err
}

func (s *JWTService) Parse(tokenString string) (Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return Claims{}, ErrInvalid
	}
	var claims Claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrInvalid
	}
	if claims.Issuer != s.issuer || strings.TrimSpace(claims.Subject) == "" {
		return Claims{}, ErrInvalid
	}
	return claims, nil
}
