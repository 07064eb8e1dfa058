package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jduhalde/consulting/internal/api/v1/dto"
	"github.com/jduhalde/consulting/internal/apperror"
	"github.com/jduhalde/consulting/internal/middleware"
	"github.com/jduhalde/consulting/internal/service"
)

// UploadHandler handles the two-phase upload endpoints.
type UploadHandler struct {
	uploadService service.UploadService
	validate      *validator.Validate
}

func NewUploadHandler(uploadService service.UploadService, validate *validator.Validate) *UploadHandler {
	return &UploadHandler{uploadService: uploadService, validate: validate}
}

// RegisterRoutes mounts upload routes.
func (h *UploadHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/uploads", authMw(http.HandlerFunc(h.listUploads)))
	mux.Handle("/uploads/", authMw(http.HandlerFunc(h.handleUpload)))
}

func (h *UploadHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/uploads/")

	switch {
	case rest == "init" && r.Method == http.MethodPost:
		h.initiateUpload(w, r)
	case rest == "complete" && r.Method == http.MethodPost:
		h.completeUpload(w, r)
	case r.Method == http.MethodGet && !strings.Contains(rest, "/"):
		h.getUpload(w, r, rest)
	default:
		http.NotFound(w, r)
	}
}

func (h *UploadHandler) initiateUpload(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: identity not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.UploadInitiateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperror.New(apperror.KindValidation, "invalid JSON payload"))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, apperror.Wrap(apperror.KindValidation, "validation failed: "+err.Error(), err))
		return
	}

	result, err := h.uploadService.InitiateUpload(r.Context(), identity.UserID, req.FileName, req.FileType, req.Category)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.UploadInitiateResponseDTO{
		UploadID:  result.Upload.ID,
		UploadURL: result.UploadURL,
		ExpiresAt: result.ExpiresAt,
	})
}

func (h *UploadHandler) completeUpload(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: identity not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.UploadCompleteDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperror.New(apperror.KindValidation, "invalid JSON payload"))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, apperror.Wrap(apperror.KindValidation, "validation failed: "+err.Error(), err))
		return
	}

	upload, err := h.uploadService.CompleteUpload(r.Context(), identity.UserID, req.UploadID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewUploadResponseDTO(upload, ""))
}

func (h *UploadHandler) getUpload(w http.ResponseWriter, r *http.Request, uploadID string) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: identity not found in context", http.StatusUnauthorized)
		return
	}

	upload, downloadURL, err := h.uploadService.GetUpload(r.Context(), identity.UserID, uploadID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewUploadResponseDTO(upload, downloadURL))
}

func (h *UploadHandler) listUploads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: identity not found in context", http.StatusUnauthorized)
		return
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 || n > 200 {
			respondError(w, apperror.New(apperror.KindValidation, "limit must be between 1 and 200"))
			return
		}
		limit = n
	}

	uploads, err := h.uploadService.ListUploads(r.Context(), identity.UserID, r.URL.Query().Get("category"), limit)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := dto.UploadListResponseDTO{Uploads: make([]dto.UploadResponseDTO, 0, len(uploads))}
	for i := range uploads {
		resp.Uploads = append(resp.Uploads, dto.NewUploadResponseDTO(&uploads[i], ""))
	}
	respondJSON(w, http.StatusOK, resp)
}
