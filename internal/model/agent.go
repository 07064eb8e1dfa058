package model

import "slices"

// AgentDefinition describes one AI-processing capability in the catalog.
// Definitions are loaded once at process start and never mutated; changing
// an agent requires a deploy.
type AgentDefinition struct {
	ID                   string   `yaml:"id" json:"id"`
	Name                 string   `yaml:"name" json:"name"`
	Category             string   `yaml:"category" json:"category"`
	Type                 string   `yaml:"type" json:"type"`
	Description          string   `yaml:"description" json:"description"`
	Providers            []string `yaml:"providers" json:"providers"`
	PreferredProvider    string   `yaml:"preferred_provider" json:"preferred_provider"`
	FallbackProvider     string   `yaml:"fallback_provider" json:"fallback_provider,omitempty"`
	InputTypes           []string `yaml:"input_types" json:"input_types"`
	OutputTypes          []string `yaml:"output_types" json:"output_types"`
	CostPerRun           float64  `yaml:"cost_per_run" json:"cost_per_run"`
	AvgProcessingTime    float64  `yaml:"avg_processing_time" json:"avg_processing_time"`
	RequiredIntegrations []string `yaml:"required_integrations" json:"required_integrations,omitempty"`
	IsActive             bool     `yaml:"is_active" json:"is_active"`
}

// SupportsProvider reports whether the agent can run on the given provider.
func (a *AgentDefinition) SupportsProvider(provider string) bool {
	return slices.Contains(a.Providers, provider)
}
