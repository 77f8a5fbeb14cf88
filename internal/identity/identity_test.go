package identity

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/desertthunder/dtunes/internal/shared"
	"github.com/golang-jwt/jwt/v5"
)

func TestFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "bearer abc.def")
	r.Header.Set(UserHeader, " some-id ")

	c := FromRequest(r)
	if c.Bearer != "abc.def" || c.UserID != "some-id" {
		t.Errorf("unexpected credential: %+v", c)
	}

	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	if c := FromRequest(r); c.Bearer != "" {
		t.Errorf("non-bearer schemes must be ignored, got %q", c.Bearer)
	}
}

func TestJWTProvider(t *testing.T) {
	ctx := context.Background()
	userID := shared.GenerateID()

	p, err := NewJWTProvider("test-secret", "dtunes")
	if err != nil {
		t.Fatalf("NewJWTProvider failed: %v", err)
	}

	t.Run("Round Trip", func(t *testing.T) {
		token, err := p.Issue(userID, time.Minute)
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}

		got, err := p.Resolve(ctx, Credential{Bearer: token})
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if got != userID {
			t.Errorf("expected %s, got %s", userID, got)
		}
	})

	t.Run("Expired", func(t *testing.T) {
		token, err := p.Issue(userID, time.Minute)
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}

		late := &JWTProvider{secret: p.secret, issuer: p.issuer, now: func() time.Time { return time.Now().Add(time.Hour) }}
		if _, err := late.Resolve(ctx, Credential{Bearer: token}); !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("Rejected", func(t *testing.T) {
		other, _ := NewJWTProvider("other-secret", "dtunes")
		wrongSecret, _ := other.Issue(userID, time.Minute)

		foreign, _ := NewJWTProvider("test-secret", "someone-else")
		wrongIssuer, _ := foreign.Issue(userID, time.Minute)

		badSubject, _ := p.Issue("not-a-uuid", time.Minute)

		noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject: userID, Issuer: "dtunes",
		}}).SignedString([]byte("test-secret"))

		wrongAlg, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, &Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject: userID, Issuer: "dtunes", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		}}).SignedString([]byte("test-secret"))

		tests := []struct {
			name  string
			token string
		}{
			{"missing", ""},
			{"garbage", "not.a.token"},
			{"wrong secret", wrongSecret},
			{"wrong issuer", wrongIssuer},
			{"bad subject", badSubject},
			{"no expiry", noExpiry},
			{"wrong algorithm", wrongAlg},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := p.Resolve(ctx, Credential{Bearer: tt.token}); !errors.Is(err, shared.ErrNotAuthenticated) {
					t.Errorf("expected ErrNotAuthenticated, got %v", err)
				}
			})
		}
	})

	t.Run("Missing Secret", func(t *testing.T) {
		if _, err := NewJWTProvider("", "dtunes"); !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})
}

func TestHeaderProvider(t *testing.T) {
	ctx := context.Background()
	id := shared.GenerateID()

	if got, err := (HeaderProvider{}).Resolve(ctx, Credential{UserID: id}); err != nil || got != id {
		t.Errorf("expected %s, got %s, %v", id, got, err)
	}
	if _, err := (HeaderProvider{}).Resolve(ctx, Credential{}); !errors.Is(err, shared.ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := (HeaderProvider{}).Resolve(ctx, Credential{UserID: "admin"}); !errors.Is(err, shared.ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated for malformed id, got %v", err)
	}
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	jwtID, headerID := shared.GenerateID(), shared.GenerateID()

	p, _ := NewJWTProvider("test-secret", "")
	token, _ := p.Issue(jwtID, time.Minute)
	chain := Chain{p, HeaderProvider{}}

	t.Run("First Provider Wins", func(t *testing.T) {
		got, err := chain.Resolve(ctx, Credential{Bearer: token, UserID: headerID})
		if err != nil || got != jwtID {
			t.Errorf("expected the token's user, got %s, %v", got, err)
		}
	})

	t.Run("Falls Through", func(t *testing.T) {
		got, err := chain.Resolve(ctx, Credential{UserID: headerID})
		if err != nil || got != headerID {
			t.Errorf("expected the header's user, got %s, %v", got, err)
		}
	})

	t.Run("Expired Is Final", func(t *testing.T) {
		expired, _ := p.Issue(jwtID, -time.Minute)
		if _, err := chain.Resolve(ctx, Credential{Bearer: expired, UserID: headerID}); !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if _, err := (Chain{}).Resolve(ctx, Credential{UserID: headerID}); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestContext(t *testing.T) {
	if _, ok := UserFrom(context.Background()); ok {
		t.Error("an empty context carries no user")
	}

	ctx := WithUser(context.Background(), "u1")
	if id, ok := UserFrom(ctx); !ok || id != "u1" {
		t.Errorf("expected u1, got %q", id)
	}
}
