package apiserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"lifeshare/internal/auth"
	"lifeshare/internal/middleware"
	"lifeshare/internal/models"
	"lifeshare/internal/services"
)

// AuthHandler bundles the authentication HTTP endpoints.
type AuthHandler struct {
	AuthService    services.AuthService
	TokenBlacklist auth.TokenBlacklist
}

// NewAuthHandler creates a new AuthHandler instance.
func NewAuthHandler(authService services.AuthService, tokenBlacklist auth.TokenBlacklist) *AuthHandler {
	return &AuthHandler{
		AuthService:    authService,
		TokenBlacklist: tokenBlacklist,
	}
}

// RegisterRequest is the user registration request body.
type RegisterRequest struct {
	FullName         string `json:"fullName"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	Phone            string `json:"phone,omitempty"`
	BloodType        string `json:"bloodType,omitempty"`
	OrganizationName string `json:"organizationName,omitempty"`
	Role             string `json:"role"`
}

// LoginRequest is the login request body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// ErrorResponse is the generic API error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Register handles user registration.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	user, err := h.AuthService.Register(r.Context(), services.RegisterInput{
		FullName:         req.FullName,
		Email:            req.Email,
		Password:         req.Password,
		Phone:            req.Phone,
		BloodType:        req.BloodType,
		OrganizationName: req.OrganizationName,
		Role:             models.UserRole(req.Role),
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingFields), errors.Is(err, services.ErrInvalidRole):
			writeJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, services.ErrUserAlreadyExists):
			writeJSONError(w, err.Error(), http.StatusConflict)
		default:
			writeJSONError(w, "registration failed", http.StatusInternalServerError)
		}
		return
	}

	user.PasswordHash = ""
	writeJSONResponse(w, http.StatusCreated, user)
}

// Login handles user login and issues a JWT.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if req.Email == "" || req.Password == "" {
		writeJSONError(w, "email and password are required", http.StatusBadRequest)
		return
	}

	token, user, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeJSONError(w, "invalid email or password", http.StatusUnauthorized)
		} else {
			writeJSONError(w, "login failed", http.StatusInternalServerError)
		}
		return
	}

	user.PasswordHash = ""
	writeJSONResponse(w, http.StatusOK, LoginResponse{Token: token, User: user})
}

// LogoutHandler revokes the current token by blacklisting its JTI.
func (h *AuthHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	if claims.ID == "" || claims.ExpiresAt == nil {
		writeJSONError(w, "token cannot be revoked", http.StatusInternalServerError)
		return
	}

	if err := h.TokenBlacklist.Add(r.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
		writeJSONError(w, "logout failed", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// writeJSONResponse sends a JSON response with the given status code.
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeJSONError sends a JSON error response.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONResponse(w, statusCode, ErrorResponse{Error: message})
}
