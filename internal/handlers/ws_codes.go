// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the lobby stream handler. These give
// clients more specific reasons for closure than the standard codes.
const (
	BadSubprotocolError = 3000 // Client connected with an unsupported subprotocol.
	InvalidGameIDError  = 3001 // Game ID in the WS URL was malformed.
)
