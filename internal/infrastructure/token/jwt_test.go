package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/99minutos/identity-service/internal/core/domain"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestIssuer(t *testing.T, ttl time.Duration) (*Issuer, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}
	iss, err := NewIssuer("secret", ttl, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	return iss, clock
}

func TestIssuer_IssueVerifyRoundTrip(t *testing.T) {
	iss, _ := newTestIssuer(t, time.Hour)

	signed, err := iss.Issue(domain.TokenClaim{UserID: "u-1", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claim, err := iss.Verify(signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claim.UserID != "u-1" || claim.Email != "alice@example.com" {
		t.Fatalf("unexpected claim: %+v", claim)
	}
}

func TestIssuer_EmbedsExpiry(t *testing.T) {
	iss, clock := newTestIssuer(t, 0)
	if iss.TTL() != DefaultTTL {
		t.Fatalf("expected default ttl %s, got %s", DefaultTTL, iss.TTL())
	}

	signed, _ := iss.Issue(domain.TokenClaim{UserID: "u-1", Email: "a@b.com"})

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(signed, claims); err != nil {
		t.Fatalf("parse unverified: %v", err)
	}
	want := clock.Now().Add(7 * 24 * time.Hour)
	if !claims.ExpiresAt.Time.Equal(want) {
		t.Fatalf("expected exp %s, got %s", want, claims.ExpiresAt.Time)
	}
}

func TestIssuer_IsDeterministicForSameInputs(t *testing.T) {
	iss, _ := newTestIssuer(t, time.Hour)
	claim := domain.TokenClaim{UserID: "u-1", Email: "a@b.com"}

	a, _ := iss.Issue(claim)
	b, _ := iss.Issue(claim)
	if a != b {
		t.Fatalf("expected identical tokens for identical claim, time and secret")
	}
}

func TestIssuer_RejectsExpired(t *testing.T) {
	iss, clock := newTestIssuer(t, time.Hour)
	signed, _ := iss.Issue(domain.TokenClaim{UserID: "u-1", Email: "a@b.com"})

	clock.Advance(59 * time.Minute)
	if _, err := iss.Verify(signed); err != nil {
		t.Fatalf("token should still be valid before expiry: %v", err)
	}

	clock.Advance(2 * time.Minute)
	_, err := iss.Verify(signed)
	if !errors.Is(err, domain.ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestIssuer_RejectsTamperedPayload(t *testing.T) {
	iss, _ := newTestIssuer(t, time.Hour)
	original, _ := iss.Issue(domain.TokenClaim{UserID: "u-1", Email: "a@b.com"})
	other, _ := iss.Issue(domain.TokenClaim{UserID: "u-2", Email: "evil@b.com"})

	o := strings.Split(original, ".")
	x := strings.Split(other, ".")
	forged := o[0] + "." + x[1] + "." + o[2]

	if _, err := iss.Verify(forged); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestIssuer_RejectsForeignSecret(t *testing.T) {
	iss, _ := newTestIssuer(t, time.Hour)
	foreign, err := NewIssuer("other-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	signed, _ := foreign.Issue(domain.TokenClaim{UserID: "u-1", Email: "a@b.com"})

	if _, err := iss.Verify(signed); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestIssuer_RejectsOtherAlgorithms(t *testing.T) {
	iss, clock := newTestIssuer(t, time.Hour)
	claims := Claims{
		UserID: "u-1",
		Email:  "a@b.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign hs512: %v", err)
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	for name, tok := range map[string]string{"hs512": hs512, "none": none} {
		if _, err := iss.Verify(tok); !errors.Is(err, domain.ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestIssuer_RejectsMissingExpiryAndGarbage(t *testing.T) {
	iss, _ := newTestIssuer(t, time.Hour)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "u-1"}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	for _, tok := range []string{noExp, "", "not-a-token", "a.b.c"} {
		if _, err := iss.Verify(tok); !errors.Is(err, domain.ErrInvalidToken) {
			t.Fatalf("Verify(%q): expected ErrInvalidToken, got %v", tok, err)
		}
	}
}

func TestNewIssuer_RequiresSecret(t *testing.T) {
	var cfgErr *domain.ConfigurationError
	if _, err := NewIssuer("  ", time.Hour); !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cfgErr.Key != "JWT_SECRET" {
		t.Fatalf("unexpected key %q", cfgErr.Key)
	}
}
