package apiserver

import (
	"context"
	"log"
	"net/http"

	"lifeshare/internal/auth"
	"lifeshare/internal/config"
	"lifeshare/internal/services"
	"lifeshare/internal/websocket"
)

// WebSocketHandler upgrades authenticated clients into realtime sessions.
type WebSocketHandler struct {
	Hub                 *websocket.Hub
	ConversationService services.ConversationService
	TokenBlacklist      auth.TokenBlacklist
	JWTSecretKey        string
	WSConfig            config.WebSocketConfig
}

// NewWebSocketHandler creates a new WebSocketHandler instance.
func NewWebSocketHandler(
	hub *websocket.Hub,
	conversationService services.ConversationService,
	tokenBlacklist auth.TokenBlacklist,
	jwtSecretKey string,
	wsConfig config.WebSocketConfig,
) *WebSocketHandler {
	return &WebSocketHandler{
		Hub:                 hub,
		ConversationService: conversationService,
		TokenBlacklist:      tokenBlacklist,
		JWTSecretKey:        jwtSecretKey,
		WSConfig:            wsConfig,
	}
}

// ServeWS handles GET /ws. Browsers cannot set an Authorization header on the
// WebSocket handshake, so the JWT arrives as a query parameter.
func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		writeJSONError(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := auth.ValidateToken(r.Context(), tokenString, h.JWTSecretKey, h.TokenBlacklist)
	if err != nil {
		log.Printf("WebSocket auth rejected: %v", err)
		writeJSONError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	authorize := func(ctx context.Context, conversationID, userID uint) (bool, error) {
		return h.ConversationService.IsParticipant(ctx, conversationID, userID)
	}

	websocket.ServeSession(h.Hub, authorize, claims.UserID, w, r, h.WSConfig)
}
