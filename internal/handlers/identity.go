// internal/handlers/identity.go
package handlers

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/jason-s-yu/quizroom/internal/auth"
	"github.com/jason-s-yu/quizroom/internal/models"
)

// EnsureEphemeralIdentity resolves the caller's guest identity from the
// auth_token cookie, minting and setting a fresh one when the cookie is
// missing or no longer verifies. Identities live entirely in the signed
// token; nothing is persisted. The stable id is what lets a player rejoin
// a session after a dropped socket.
func EnsureEphemeralIdentity(w http.ResponseWriter, r *http.Request) (models.Identity, error) {
	token := extractCookieToken(r.Header.Get("Cookie"), "auth_token")
	if token != "" {
		if ident, err := auth.AuthenticateIdentityJWT(token); err == nil {
			return ident, nil
		}
		// Fall through and mint a replacement for a stale token.
	}

	ident := models.Identity{ID: uuid.New()}
	newToken, err := auth.CreateIdentityJWT(ident)
	if err != nil {
		return models.Identity{}, fmt.Errorf("failed to create identity token: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    newToken,
		HttpOnly: true,
		Path:     "/",
	})
	return ident, nil
}
