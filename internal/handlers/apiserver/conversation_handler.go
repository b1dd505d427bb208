package apiserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"lifeshare/internal/middleware"
	"lifeshare/internal/services"
)

// ConversationHandler bundles the conversation HTTP endpoints.
type ConversationHandler struct {
	ConversationService services.ConversationService
}

// NewConversationHandler creates a new ConversationHandler instance.
func NewConversationHandler(conversationService services.ConversationService) *ConversationHandler {
	return &ConversationHandler{ConversationService: conversationService}
}

// SendMessageBody is the body for posting a message into a conversation.
type SendMessageBody struct {
	Text string `json:"text"`
}

// ListConversations handles GET /api/v1/conversations.
func (h *ConversationHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	previews, err := h.ConversationService.ListForParticipant(r.Context(), userID)
	if err != nil {
		writeJSONError(w, "failed to list conversations", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, previews)
}

// GetConversation handles GET /api/v1/conversations/{conversationId}, returning
// the conversation with its full message history.
func (h *ConversationHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	conversationID, err := pathID(r, "conversationId")
	if err != nil {
		writeJSONError(w, "invalid conversation ID", http.StatusBadRequest)
		return
	}

	conversation, err := h.ConversationService.GetForParticipant(r.Context(), conversationID, userID)
	if err != nil {
		if errors.Is(err, services.ErrConversationNotFound) {
			writeJSONError(w, err.Error(), http.StatusNotFound)
		} else {
			writeJSONError(w, "failed to load conversation", http.StatusInternalServerError)
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, conversation)
}

// SendMessage handles POST /api/v1/conversations/{conversationId}/messages.
func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	conversationID, err := pathID(r, "conversationId")
	if err != nil {
		writeJSONError(w, "invalid conversation ID", http.StatusBadRequest)
		return
	}

	var req SendMessageBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	message, err := h.ConversationService.AppendMessage(r.Context(), conversationID, userID, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyMessage):
			writeJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, services.ErrConversationNotFound):
			writeJSONError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, services.ErrNotParticipant):
			writeJSONError(w, err.Error(), http.StatusForbidden)
		default:
			writeJSONError(w, "failed to send message", http.StatusInternalServerError)
		}
		return
	}

	writeJSONResponse(w, http.StatusCreated, message)
}
