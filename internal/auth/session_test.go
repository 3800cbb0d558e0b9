// internal/auth/session_test.go
package auth

import (
	"testing"

	"github.com/google/uuid"

	"github.com/jason-s-yu/quizroom/internal/models"
)

func TestIdentityTokenRoundTrip(t *testing.T) {
	Init()

	ident := models.Identity{ID: uuid.New(), Name: "Quizmaster", Avatar: "https://example.com/a.png"}
	token, err := CreateIdentityJWT(ident)
	if err != nil {
		t.Fatalf("CreateIdentityJWT failed: %v", err)
	}

	got, err := AuthenticateIdentityJWT(token)
	if err != nil {
		t.Fatalf("AuthenticateIdentityJWT failed: %v", err)
	}
	if got != ident {
		t.Fatalf("identity mismatch: want %+v, got %+v", ident, got)
	}
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	Init()

	if _, err := AuthenticateIdentityJWT("not-a-token"); err == nil {
		t.Fatal("expected error for malformed token")
	}
	if _, err := AuthenticateIdentityJWT(""); err == nil {
		t.Fatal("expected error for empty token")
	}
}
