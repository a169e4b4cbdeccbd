package auth

import (
	"strings"
	"testing"
	"time"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := NewAccessToken("secret", "issuer", time.Minute, "acc-1", "admin")
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	claims, err := ParseToken("secret", token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if claims.AccountID != "acc-1" || claims.Role != "admin" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Subject != "acc-1" {
		t.Fatalf("expected subject to match account id, got %s", claims.Subject)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewAccessToken("secret", "issuer", time.Minute, "acc-1", "user")
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("other-secret", token); err == nil {
		t.Fatalf("expected token signed with another secret to fail")
	}
}

func TestParseTokenRejectsTampering(t *testing.T) {
	token, err := NewAccessToken("secret", "issuer", time.Minute, "acc-1", "user")
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("expected three token segments, got %d", len(parts))
	}
	// Swap payload for the payload of a token carrying a different role.
	other, err := NewAccessToken("secret", "issuer", time.Minute, "acc-1", "admin")
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	forged := parts[0] + "." + strings.Split(other, ".")[1] + "." + parts[2]
	if _, err := ParseToken("secret", forged); err == nil {
		t.Fatalf("expected forged payload to fail verification")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := NewAccessToken("secret", "issuer", -time.Minute, "acc-1", "user")
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("secret", token); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}
