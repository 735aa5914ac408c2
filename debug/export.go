package debug

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Snapshot is the serializable state of a [Registry].
type Snapshot struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Enabled   bool      `json:"enabled" yaml:"enabled"`
	Metrics   Metrics   `json:"metrics" yaml:"metrics"`
	LeakScore int       `json:"leak_score" yaml:"leak_score"`
	Records   []Info    `json:"records" yaml:"records"`
}

// Export takes a snapshot of the registry.
func (r *Registry) Export() Snapshot {
	return Snapshot{
		Timestamp: r.clock.Now(),
		Enabled:   r.Enabled(),
		Metrics:   r.Metrics(),
		LeakScore: r.LeakScore(),
		Records:   r.Records(),
	}
}

// ExportJSON returns [Registry.Export] as indented JSON.
func (r *Registry) ExportJSON() ([]byte, error) {
	b, err := json.MarshalIndent(r.Export(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("debug: marshal snapshot: %w", err)
	}
	return b, nil
}

// ExportYAML returns [Registry.Export] as YAML.
func (r *Registry) ExportYAML() ([]byte, error) {
	b, err := yaml.Marshal(r.Export())
	if err != nil {
		return nil, fmt.Errorf("debug: marshal snapshot: %w", err)
	}
	return b, nil
}
