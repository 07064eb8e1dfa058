package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jduhalde/consulting/internal/api/v1/dto"
	"github.com/jduhalde/consulting/internal/apperror"
	"github.com/jduhalde/consulting/internal/cost"
	"github.com/jduhalde/consulting/internal/middleware"
	"github.com/jduhalde/consulting/internal/model"
	"github.com/jduhalde/consulting/internal/repository"
	"github.com/jduhalde/consulting/internal/service"
)

// JobHandler handles job submission and lifecycle endpoints.
type JobHandler struct {
	jobService  service.JobService
	costService cost.Service
	validate    *validator.Validate
}

func NewJobHandler(jobService service.JobService, costService cost.Service, validate *validator.Validate) *JobHandler {
	return &JobHandler{jobService: jobService, costService: costService, validate: validate}
}

// RegisterRoutes mounts job routes.
func (h *JobHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/jobs", authMw(http.HandlerFunc(h.handleJobs)))
	mux.Handle("/jobs/", authMw(http.HandlerFunc(h.handleJob)))
}

func (h *JobHandler) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createJob(w, r)
	case http.MethodGet:
		h.listJobs(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *JobHandler) handleJob(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/jobs/")

	if rest == "estimate" && r.Method == http.MethodPost {
		h.estimate(w, r)
		return
	}

	if strings.Contains(rest, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getJob(w, r, rest)
	case http.MethodDelete:
		h.cancelJob(w, r, rest)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *JobHandler) createJob(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: identity not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.JobCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperror.New(apperror.KindValidation, "invalid JSON payload"))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, apperror.Wrap(apperror.KindValidation, "validation failed: "+err.Error(), err))
		return
	}

	result, err := h.jobService.CreateJob(r.Context(), identity.UserID, req.AgentID, model.JobInput{
		Data:  req.Data,
		Files: req.Files,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.JobCreateResponseDTO{
		JobID:         result.JobID,
		Status:        string(result.Status),
		EstimatedTime: result.EstimatedTime,
		EstimatedCost: result.EstimatedCost,
	})
}

func (h *JobHandler) listJobs(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: identity not found in context", http.StatusUnauthorized)
		return
	}

	filter := repository.JobFilter{
		Status:  model.JobStatus(r.URL.Query().Get("status")),
		AgentID: r.URL.Query().Get("agent_id"),
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 || n > 100 {
			respondError(w, apperror.New(apperror.KindValidation, "limit must be between 1 and 100"))
			return
		}
		filter.Limit = n
	}

	jobs, err := h.jobService.ListJobs(r.Context(), identity.UserID, filter)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := dto.JobListResponseDTO{Jobs: make([]dto.JobResponseDTO, 0, len(jobs))}
	for i := range jobs {
		resp.Jobs = append(resp.Jobs, dto.NewJobResponseDTO(&jobs[i]))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *JobHandler) getJob(w http.ResponseWriter, r *http.Request, jobID string) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: identity not found in context", http.StatusUnauthorized)
		return
	}

	job, err := h.jobService.GetJob(r.Context(), identity.UserID, jobID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewJobResponseDTO(job))
}

func (h *JobHandler) cancelJob(w http.ResponseWriter, r *http.Request, jobID string) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: identity not found in context", http.StatusUnauthorized)
		return
	}

	job, err := h.jobService.CancelJob(r.Context(), identity.UserID, jobID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewJobResponseDTO(job))
}

func (h *JobHandler) estimate(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.IdentityFromContext(r.Context()); !ok {
		http.Error(w, "Unauthorized: identity not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.EstimateRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperror.New(apperror.KindValidation, "invalid JSON payload"))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, apperror.Wrap(apperror.KindValidation, "validation failed: "+err.Error(), err))
		return
	}

	estimated := h.costService.EstimateCost(req.AgentID, model.JobInput{Data: req.Data, Files: req.Files})
	respondJSON(w, http.StatusOK, dto.EstimateResponseDTO{
		AgentID:       req.AgentID,
		EstimatedCost: estimated,
	})
}
