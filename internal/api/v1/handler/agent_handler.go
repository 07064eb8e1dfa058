package handler

import (
	"net/http"
	"strings"

	"github.com/jduhalde/consulting/internal/api/v1/dto"
	"github.com/jduhalde/consulting/internal/apperror"
	"github.com/jduhalde/consulting/internal/catalog"
)

// AgentHandler serves the read-only agent catalog.
type AgentHandler struct {
	catalog *catalog.Catalog
}

func NewAgentHandler(cat *catalog.Catalog) *AgentHandler {
	return &AgentHandler{catalog: cat}
}

// RegisterRoutes mounts agent catalog routes.
func (h *AgentHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/agents", authMw(http.HandlerFunc(h.listAgents)))
	mux.Handle("/agents/", authMw(http.HandlerFunc(h.getAgent)))
}

func (h *AgentHandler) listAgents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filter := catalog.Filter{
		Category:   r.URL.Query().Get("category"),
		ActiveOnly: r.URL.Query().Get("include_inactive") != "true",
	}
	agents := h.catalog.List(filter)

	resp := dto.AgentListResponseDTO{Agents: make([]dto.AgentResponseDTO, 0, len(agents))}
	for _, a := range agents {
		resp.Agents = append(resp.Agents, dto.NewAgentResponseDTO(a))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *AgentHandler) getAgent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	agentID := strings.TrimPrefix(r.URL.Path, "/agents/")
	agent, ok := h.catalog.Get(agentID)
	if !ok {
		respondError(w, apperror.Newf(apperror.KindAgentNotFound, "agent %s not found", agentID))
		return
	}
	respondJSON(w, http.StatusOK, dto.NewAgentResponseDTO(agent))
}
