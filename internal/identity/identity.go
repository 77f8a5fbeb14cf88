// Package identity turns request credentials into a validated user id.
//
// Credential issuance (registration, passwords) lives elsewhere; this package only verifies what a
// caller presents. [JWTProvider] checks HS256 bearer tokens, [HeaderProvider] trusts a user id header
// and is meant for development, and [Chain] tries providers in order.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/dtunes/internal/shared"
	"github.com/golang-jwt/jwt/v5"
)

// UserHeader carries a trusted user id when [HeaderProvider] is enabled.
const UserHeader = "X-User-Id"

// Credential is what a caller presented.
type Credential struct {
	Bearer string // token from "Authorization: Bearer ..."
	UserID string // value of [UserHeader]
}

// FromRequest extracts a [Credential] from r.
func FromRequest(r *http.Request) Credential {
	var c Credential
	if scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok && strings.EqualFold(scheme, "Bearer") {
		c.Bearer = strings.TrimSpace(token)
	}
	c.UserID = strings.TrimSpace(r.Header.Get(UserHeader))
	return c
}

// Provider resolves a credential to a user id.
//
// A provider that finds nothing it understands in the credential returns [shared.ErrNotAuthenticated].
type Provider interface {
	Resolve(ctx context.Context, c Credential) (string, error)
}

// Claims is the token payload. Subject holds the user id.
type Claims struct {
	jwt.RegisteredClaims
}

// JWTProvider verifies and issues HS256 tokens.
type JWTProvider struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTProvider creates a provider signing with secret. An empty issuer disables the issuer check.
func NewJWTProvider(secret, issuer string) (*JWTProvider, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: jwt secret", shared.ErrMissingConfig)
	}
	return &JWTProvider{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// Issue signs a token for userID that expires after ttl.
func (p *JWTProvider) Issue(userID string, ttl time.Duration) (string, error) {
	now := p.now()
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    p.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

func (p *JWTProvider) Resolve(_ context.Context, c Credential) (string, error) {
	if c.Bearer == "" {
		return "", fmt.Errorf("%w: no bearer token", shared.ErrNotAuthenticated)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(c.Bearer, claims, func(*jwt.Token) (any, error) { return p.secret, nil }, opts...)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", fmt.Errorf("%w: %v", shared.ErrTokenExpired, err)
	case err != nil:
		return "", fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	}

	if !shared.IsValidID(claims.Subject) {
		return "", fmt.Errorf("%w: token subject is not a user id", shared.ErrNotAuthenticated)
	}
	return claims.Subject, nil
}

// HeaderProvider trusts [UserHeader] as-is.
type HeaderProvider struct{}

func (HeaderProvider) Resolve(_ context.Context, c Credential) (string, error) {
	switch {
	case c.UserID == "":
		return "", fmt.Errorf("%w: no %s header", shared.ErrNotAuthenticated, UserHeader)
	case !shared.IsValidID(c.UserID):
		return "", fmt.Errorf("%w: malformed %s header", shared.ErrNotAuthenticated, UserHeader)
	}
	return c.UserID, nil
}

// Chain tries each provider in turn. The next provider is asked only when the current one reports
// [shared.ErrNotAuthenticated]; any other failure, such as an expired token, is final.
type Chain []Provider

func (c Chain) Resolve(ctx context.Context, cred Credential) (string, error) {
	err := fmt.Errorf("%w: no identity provider configured", shared.ErrNotAuthenticated)
	for _, p := range c {
		var id string
		id, err = p.Resolve(ctx, cred)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			return "", err
		}
	}
	return "", err
}

type ctxKey struct{}

// WithUser stores userID in ctx.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserFrom returns the user id stored by [WithUser].
func UserFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}
