package models

import (
	"context"
	"log"

	"github.com/google/uuid"
)

// Player is a session roster entry. The connection handle is transient:
// it is set while the player has a live socket and cleared on disconnect,
// so score and identity survive a reconnect mid-game.
type Player struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Avatar    string      `json:"avatar"`
	Conn      *PlayerConn `json:"-"`
	Connected bool        `json:"connected"`
	IsHost    bool        `json:"isHost"`
	IsReady   bool        `json:"isReady"`
	Score     int         `json:"score"`

	// LastAnswer holds the verbatim text submitted for the question in
	// flight, nil until the player answers. Cleared when a new question
	// is asked.
	LastAnswer *string `json:"-"`

	// ResponseTimeMs is how long the player took to answer, measured from
	// the moment the question was presented.
	ResponseTimeMs *int64 `json:"-"`
}

// PlayerConn wraps a single player's live connection as an outbound event
// channel plus a cancel for the read loop. The game core only ever hands
// these to its injected broadcast functions; it has no transport knowledge.
type PlayerConn struct {
	UserID  uuid.UUID
	Cancel  context.CancelFunc
	OutChan chan []byte
}

// Send pushes an encoded event onto the connection's outbound channel
// without blocking. A full or closed channel drops the message.
func (c *PlayerConn) Send(data []byte) {
	select {
	case c.OutChan <- data:
	default:
		log.Printf("PlayerConn: OutChan for user %s closed or full, dropped message", c.UserID)
	}
}
