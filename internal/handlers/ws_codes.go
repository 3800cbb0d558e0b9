// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the quiz handlers. These provide
// more specific reasons for closure than standard codes.
const (
	BadSubprotocolError     = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError   = 3001 // Provided identity token was invalid or expired.
	InvalidSessionCodeError = 3003 // Join code in the first message resolved to no live session.
	GameInProgressError     = 3004 // Session exists but is mid-game and the identity is unknown to it.
)
