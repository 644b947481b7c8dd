// Package auth verifies access tokens issued by the hosted auth provider and
// decides whether an identity may use the admin dashboard.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "cocinarte/internal/errors"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the authenticated caller
type Identity struct {
	UserID string
	Email  string
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenVerifier checks HS256 access tokens signed with the provider's JWT secret
type TokenVerifier struct {
	secret   []byte
	audience string
}

func NewTokenVerifier(secret, audience string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), audience: audience}
}

func (v *TokenVerifier) Verify(raw string) (Identity, error) {
	if len(v.secret) == 0 {
		return Identity{}, apperrors.Configuration("auth token secret is not set")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", apperrors.ErrUnauthorized, err)
	}

	if c.Subject == "" || c.Email == "" {
		return Identity{}, fmt.Errorf("%w: token carries no subject or email", apperrors.ErrUnauthorized)
	}

	return Identity{UserID: c.Subject, Email: strings.ToLower(c.Email)}, nil
}

// Sign issues a token the verifier accepts. Used by tooling and tests.
func Sign(secret, audience string, id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if audience != "" {
		c.Audience = jwt.ClaimStrings{audience}
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

// AuthorizationChecker decides whether an identity is a dashboard administrator
type AuthorizationChecker interface {
	IsAdmin(ctx context.Context, id Identity) (bool, error)
}

// AdminLookup is the allow-list table
type AdminLookup interface {
	Exists(ctx context.Context, email string) (bool, error)
}

// TableChecker consults the admins table
type TableChecker struct {
	admins AdminLookup
}

func NewTableChecker(admins AdminLookup) *TableChecker {
	return &TableChecker{admins: admins}
}

func (c *TableChecker) IsAdmin(ctx context.Context, id Identity) (bool, error) {
	if id.Email == "" {
		return false, nil
	}
	ok, err := c.admins.Exists(ctx, id.Email)
	if err != nil {
		return false, fmt.Errorf("failed to check admin allow-list: %w", err)
	}
	return ok, nil
}

// StaticChecker uses a configured list of e-mails
type StaticChecker struct {
	emails map[string]struct{}
}

func NewStaticChecker(emails []string) *StaticChecker {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			set[e] = struct{}{}
		}
	}
	return &StaticChecker{emails: set}
}

func (c *StaticChecker) IsAdmin(_ context.Context, id Identity) (bool, error) {
	_, ok := c.emails[strings.ToLower(id.Email)]
	return ok, nil
}

// AnyChecker grants admin when any of its checkers does
type AnyChecker []AuthorizationChecker

func (a AnyChecker) IsAdmin(ctx context.Context, id Identity) (bool, error) {
	for _, c := range a {
		ok, err := c.IsAdmin(ctx, id)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// FlagCache stores admin decisions by e-mail
type FlagCache interface {
	GetAdminFlag(ctx context.Context, email string) (isAdmin bool, found bool, err error)
	SetAdminFlag(ctx context.Context, email string, isAdmin bool, ttl time.Duration) error
}

// CachedChecker remembers decisions of the wrapped checker for ttl.
// Cache failures fall through to the wrapped checker.
type CachedChecker struct {
	next  AuthorizationChecker
	cache FlagCache
	ttl   time.Duration
}

func NewCachedChecker(next AuthorizationChecker, cache FlagCache, ttl time.Duration) *CachedChecker {
	return &CachedChecker{next: next, cache: cache, ttl: ttl}
}

func (c *CachedChecker) IsAdmin(ctx context.Context, id Identity) (bool, error) {
	if ok, found, err := c.cache.GetAdminFlag(ctx, id.Email); err == nil && found {
		return ok, nil
	}

	ok, err := c.next.IsAdmin(ctx, id)
	if err != nil {
		return false, err
	}

	_ = c.cache.SetAdminFlag(ctx, id.Email, ok, c.ttl)
	return ok, nil
}
