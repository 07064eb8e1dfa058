// Package catalog holds the static registry of AI agents. The catalog is
// built once at process start from the embedded agents.yaml and is
// read-only afterwards.
package catalog

import (
	_ "embed"
	"fmt"

	"github.com/jduhalde/consulting/internal/model"

	"gopkg.in/yaml.v3"
)

//go:embed agents.yaml
var agentsYAML []byte

// Filter narrows a catalog listing.
type Filter struct {
	Category   string
	ActiveOnly bool
}

// Catalog is an immutable lookup table of agent definitions.
type Catalog struct {
	byID  map[string]model.AgentDefinition
	order []string
}

// New builds a catalog from the given definitions, validating each entry.
// Declaration order is preserved for listings and fallback precedence.
func New(defs []model.AgentDefinition) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]model.AgentDefinition, len(defs))}
	for _, def := range defs {
		if def.ID == "" {
			return nil, fmt.Errorf("agent with empty id")
		}
		if _, dup := c.byID[def.ID]; dup {
			return nil, fmt.Errorf("duplicate agent id %q", def.ID)
		}
		if len(def.Providers) == 0 {
			return nil, fmt.Errorf("agent %q declares no providers", def.ID)
		}
		if !def.SupportsProvider(def.PreferredProvider) {
			return nil, fmt.Errorf("agent %q: preferred provider %q not in providers", def.ID, def.PreferredProvider)
		}
		if def.FallbackProvider != "" && !def.SupportsProvider(def.FallbackProvider) {
			return nil, fmt.Errorf("agent %q: fallback provider %q not in providers", def.ID, def.FallbackProvider)
		}
		c.byID[def.ID] = def
		c.order = append(c.order, def.ID)
	}
	return c, nil
}

// Load parses the embedded catalog file.
func Load() (*Catalog, error) {
	var doc struct {
		Agents []model.AgentDefinition `yaml:"agents"`
	}
	if err := yaml.Unmarshal(agentsYAML, &doc); err != nil {
		return nil, fmt.Errorf("parsing agent catalog: %w", err)
	}
	return New(doc.Agents)
}

// Get returns the agent definition for id. The second result is false if
// the agent is not in the catalog.
func (c *Catalog) Get(id string) (model.AgentDefinition, bool) {
	def, ok := c.byID[id]
	return def, ok
}

// List returns the definitions matching the filter, in declaration order.
func (c *Catalog) List(f Filter) []model.AgentDefinition {
	out := make([]model.AgentDefinition, 0, len(c.order))
	for _, id := range c.order {
		def := c.byID[id]
		if f.Category != "" && def.Category != f.Category {
			continue
		}
		if f.ActiveOnly && !def.IsActive {
			continue
		}
		out = append(out, def)
	}
	return out
}

// IsAvailable reports whether the agent exists and is active.
func (c *Catalog) IsAvailable(id string) bool {
	def, ok := c.byID[id]
	return ok && def.IsActive
}
