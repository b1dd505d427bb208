package apiserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"lifeshare/internal/middleware"
	"lifeshare/internal/models"
	"lifeshare/internal/services"

	"github.com/gorilla/mux"
)

// ResourceHandler bundles the resource listing HTTP endpoints.
type ResourceHandler struct {
	ResourceService services.ResourceService
}

// NewResourceHandler creates a new ResourceHandler instance.
func NewResourceHandler(resourceService services.ResourceService) *ResourceHandler {
	return &ResourceHandler{ResourceService: resourceService}
}

// ResourceRequest is the create/update request body for a resource listing.
type ResourceRequest struct {
	Type        string     `json:"type"`
	BloodType   string     `json:"bloodType,omitempty"`
	Quantity    string     `json:"quantity"`
	Description string     `json:"description,omitempty"`
	Address     string     `json:"address"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

// CreateResource handles POST /api/v1/resources.
func (h *ResourceHandler) CreateResource(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	role, _ := middleware.GetRoleFromContext(r.Context())

	var req ResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	resource, err := h.ResourceService.Create(r.Context(), userID, role, services.ResourceInput{
		Type:        models.ResourceType(req.Type),
		BloodType:   req.BloodType,
		Quantity:    req.Quantity,
		Description: req.Description,
		Address:     req.Address,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOnlyDonorsPost):
			writeJSONError(w, err.Error(), http.StatusForbidden)
		case errors.Is(err, services.ErrInvalidResource),
			errors.Is(err, services.ErrBadResourceType),
			errors.Is(err, services.ErrBloodTypeRequired):
			writeJSONError(w, err.Error(), http.StatusBadRequest)
		default:
			writeJSONError(w, "failed to create resource", http.StatusInternalServerError)
		}
		return
	}

	writeJSONResponse(w, http.StatusCreated, resource)
}

// ListAvailableResources handles GET /api/v1/resources.
func (h *ResourceHandler) ListAvailableResources(w http.ResponseWriter, r *http.Request) {
	resources, err := h.ResourceService.ListAvailable(r.Context())
	if err != nil {
		writeJSONError(w, "failed to list resources", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, resources)
}

// ListMyResources handles GET /api/v1/resources/mine.
func (h *ResourceHandler) ListMyResources(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	resources, err := h.ResourceService.ListByOwner(r.Context(), userID)
	if err != nil {
		writeJSONError(w, "failed to list resources", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, resources)
}

// UpdateResource handles PUT /api/v1/resources/{resourceId}.
func (h *ResourceHandler) UpdateResource(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	resourceID, err := pathID(r, "resourceId")
	if err != nil {
		writeJSONError(w, "invalid resource ID", http.StatusBadRequest)
		return
	}

	var req ResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	resource, err := h.ResourceService.Update(r.Context(), resourceID, userID, services.ResourceInput{
		Type:        models.ResourceType(req.Type),
		BloodType:   req.BloodType,
		Quantity:    req.Quantity,
		Description: req.Description,
		Address:     req.Address,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrResourceNotFound):
			writeJSONError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, services.ErrNotResourceOwner):
			writeJSONError(w, err.Error(), http.StatusForbidden)
		case errors.Is(err, services.ErrInvalidResource),
			errors.Is(err, services.ErrBadResourceType),
			errors.Is(err, services.ErrBloodTypeRequired):
			writeJSONError(w, err.Error(), http.StatusBadRequest)
		default:
			writeJSONError(w, "failed to update resource", http.StatusInternalServerError)
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, resource)
}

// DeleteResource handles DELETE /api/v1/resources/{resourceId}.
func (h *ResourceHandler) DeleteResource(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	resourceID, err := pathID(r, "resourceId")
	if err != nil {
		writeJSONError(w, "invalid resource ID", http.StatusBadRequest)
		return
	}

	if err := h.ResourceService.Delete(r.Context(), resourceID, userID); err != nil {
		switch {
		case errors.Is(err, services.ErrResourceNotFound):
			writeJSONError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, services.ErrNotResourceOwner):
			writeJSONError(w, err.Error(), http.StatusForbidden)
		default:
			writeJSONError(w, "failed to delete resource", http.StatusInternalServerError)
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "resource deleted"})
}

// pathID parses a numeric path variable.
func pathID(r *http.Request, name string) (uint, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
