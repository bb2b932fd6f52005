// Package token issues and validates the signed bearer tokens that guard the API.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"account-service/internal/domain"
)

// ErrInvalidToken is returned for any token that fails signature, issuer,
// audience or expiry checks. Callers get no detail beyond this; the reason is
// logged server-side only.
var ErrInvalidToken = errors.New("invalid token")

const defaultTTL = time.Hour

// Config holds everything the service needs to mint and verify tokens.
type Config struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
	Now      func() time.Time
}

// Claims are the validated facts carried by an accepted token.
type Claims struct {
	UserID   int64
	Username string
}

type tokenClaims struct {
	jwt.RegisteredClaims
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Service signs and verifies user tokens with a symmetric key.
type Service struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewService builds a token service from config. Secret and issuer are
// mandatory; audience defaults to the issuer and TTL to one hour.
func NewService(cfg Config) (*Service, error) {
	secret := strings.TrimSpace(cfg.Secret)
	issuer := strings.TrimSpace(cfg.Issuer)
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if issuer == "" {
		return nil, errors.New("token issuer is required")
	}

	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = issuer
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
		now:      now,
	}, nil
}

// Issue mints a signed token carrying the user's identity claims.
func (s *Service) Issue(user *domain.User) (string, error) {
	if user == nil {
		return "", errors.New("user is required")
	}

	now := s.now().UTC()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserID:   strconv.FormatInt(user.ID, 10),
		Username: user.Username,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token string. Signature, signing method,
// issuer, audience and expiry must all check out; anything else yields
// ErrInvalidToken.
func (s *Service) Validate(tokenString string) (Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return Claims{}, ErrInvalidToken
	}

	var parsed tokenClaims
	_, err := jwt.ParseWithClaims(tokenString, &parsed, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := strconv.ParseInt(parsed.UserID, 10, 64)
	if err != nil || userID <= 0 {
		return Claims{}, fmt.Errorf("%w: malformed userId claim", ErrInvalidToken)
	}
	if parsed.Username == "" {
		return Claims{}, fmt.Errorf("%w: missing username claim", ErrInvalidToken)
	}

	return Claims{UserID: userID, Username: parsed.Username}, nil
}
