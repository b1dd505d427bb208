package apiserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"lifeshare/internal/middleware"
	"lifeshare/internal/models"
	"lifeshare/internal/services"
)

// RequestHandler bundles the resource request HTTP endpoints.
type RequestHandler struct {
	RequestService services.RequestService
}

// NewRequestHandler creates a new RequestHandler instance.
func NewRequestHandler(requestService services.RequestService) *RequestHandler {
	return &RequestHandler{RequestService: requestService}
}

// CreateRequestBody is the body for requesting a resource.
type CreateRequestBody struct {
	ResourceID uint `json:"resourceId"`
}

// DecideRequestBody carries the donor's decision.
type DecideRequestBody struct {
	Status string `json:"status"`
}

// DecideResponse returns the decided request and, on acceptance, the
// conversation opened between requester and donor.
type DecideResponse struct {
	Request      *models.Request      `json:"request"`
	Conversation *models.Conversation `json:"conversation,omitempty"`
}

// CreateRequest handles POST /api/v1/requests.
func (h *RequestHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	role, _ := middleware.GetRoleFromContext(r.Context())

	var req CreateRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if req.ResourceID == 0 {
		writeJSONError(w, "resourceId is required", http.StatusBadRequest)
		return
	}

	request, err := h.RequestService.Create(r.Context(), userID, role, req.ResourceID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOnlyRequesters):
			writeJSONError(w, err.Error(), http.StatusForbidden)
		case errors.Is(err, services.ErrResourceNotFound):
			writeJSONError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, services.ErrDuplicateRequest):
			writeJSONError(w, err.Error(), http.StatusConflict)
		default:
			writeJSONError(w, "failed to create request", http.StatusInternalServerError)
		}
		return
	}

	writeJSONResponse(w, http.StatusCreated, request)
}

// ListIncomingRequests handles GET /api/v1/requests/donor, the requests made
// against the authenticated donor's resources.
func (h *RequestHandler) ListIncomingRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	requests, err := h.RequestService.ListForDonor(r.Context(), userID)
	if err != nil {
		writeJSONError(w, "failed to list requests", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, requests)
}

// ListMyRequests handles GET /api/v1/requests/my, the authenticated requester's
// own requests.
func (h *RequestHandler) ListMyRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	requests, err := h.RequestService.ListForRequester(r.Context(), userID)
	if err != nil {
		writeJSONError(w, "failed to list requests", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, requests)
}

// DecideRequest handles PATCH /api/v1/requests/{requestId}.
func (h *RequestHandler) DecideRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	requestID, err := pathID(r, "requestId")
	if err != nil {
		writeJSONError(w, "invalid request ID", http.StatusBadRequest)
		return
	}

	var req DecideRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	request, conversation, err := h.RequestService.Decide(r.Context(), requestID, userID, models.RequestStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidDecision):
			writeJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, services.ErrRequestNotFound):
			writeJSONError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, services.ErrNotRequestOwner):
			writeJSONError(w, err.Error(), http.StatusForbidden)
		case errors.Is(err, services.ErrRequestNotPending):
			writeJSONError(w, err.Error(), http.StatusConflict)
		default:
			writeJSONError(w, "failed to decide request", http.StatusInternalServerError)
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, DecideResponse{Request: request, Conversation: conversation})
}
