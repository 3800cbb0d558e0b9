package models

import "github.com/google/uuid"

// Identity is the upstream-authenticated user a session trusts as given.
// Name and avatar come from whatever profile the host environment resolved;
// the game core never validates them.
type Identity struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Avatar string    `json:"avatar"`
}
