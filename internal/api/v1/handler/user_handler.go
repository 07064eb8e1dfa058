package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jduhalde/consulting/internal/api/v1/dto"
	"github.com/jduhalde/consulting/internal/apperror"
	"github.com/jduhalde/consulting/internal/middleware"
	"github.com/jduhalde/consulting/internal/repository"
	"github.com/jduhalde/consulting/internal/service"
)

// UserHandler serves the authenticated user's own profile and usage.
type UserHandler struct {
	userService service.UserService
	validate    *validator.Validate
}

func NewUserHandler(userService service.UserService, validate *validator.Validate) *UserHandler {
	return &UserHandler{userService: userService, validate: validate}
}

// RegisterRoutes mounts user routes.
func (h *UserHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/user", authMw(http.HandlerFunc(h.handleUser)))
	mux.Handle("/user/usage", authMw(http.HandlerFunc(h.getUsage)))
}

func (h *UserHandler) handleUser(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getProfile(w, r)
	case http.MethodPut:
		h.updateProfile(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *UserHandler) getProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: identity not found in context", http.StatusUnauthorized)
		return
	}

	user, err := h.userService.GetProfile(r.Context(), identity.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewUserResponseDTO(user))
}

func (h *UserHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: identity not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.UserUpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperror.New(apperror.KindValidation, "invalid JSON payload"))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, apperror.Wrap(apperror.KindValidation, "validation failed: "+err.Error(), err))
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), identity.UserID, repository.UserProfilePatch{
		DisplayName: req.DisplayName,
		Company:     req.Company,
		Industry:    req.Industry,
		Settings:    req.Settings,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewUserResponseDTO(user))
}

func (h *UserHandler) getUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: identity not found in context", http.StatusUnauthorized)
		return
	}

	usage, err := h.userService.GetUsage(r.Context(), identity.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.UsageResponseDTO{
		TotalCost:     usage.TotalCost,
		TotalRequests: usage.TotalRequests,
		MonthlyLimit:  usage.Ceiling,
		Remaining:     usage.Remaining,
	})
}
