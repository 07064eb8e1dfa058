package dto

import "github.com/jduhalde/consulting/internal/model"

// AgentResponseDTO is the catalog view of one agent.
type AgentResponseDTO struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Category          string   `json:"category"`
	Type              string   `json:"type"`
	Description       string   `json:"description"`
	Providers         []string `json:"providers"`
	PreferredProvider string   `json:"preferred_provider"`
	FallbackProvider  string   `json:"fallback_provider,omitempty"`
	InputTypes        []string `json:"input_types"`
	OutputTypes       []string `json:"output_types"`
	CostPerRun        float64  `json:"cost_per_run"`
	AvgProcessingTime float64  `json:"avg_processing_time"`
	IsActive          bool     `json:"is_active"`
}

// AgentListResponseDTO wraps the catalog listing.
type AgentListResponseDTO struct {
	Agents []AgentResponseDTO `json:"agents"`
}

// NewAgentResponseDTO converts an agent definition into its API shape.
func NewAgentResponseDTO(a model.AgentDefinition) AgentResponseDTO {
	return AgentResponseDTO{
		ID:                a.ID,
		Name:              a.Name,
		Category:          a.Category,
		Type:              a.Type,
		Description:       a.Description,
		Providers:         a.Providers,
		PreferredProvider: a.PreferredProvider,
		FallbackProvider:  a.FallbackProvider,
		InputTypes:        a.InputTypes,
		OutputTypes:       a.OutputTypes,
		CostPerRun:        a.CostPerRun,
		AvgProcessingTime: a.AvgProcessingTime,
		IsActive:          a.IsActive,
	}
}
