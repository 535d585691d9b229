// Package registry loads and serves the static source catalog.
package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/newspulse/sentinel/internal/monitor"
)

// Registry is the immutable catalog of sources, loaded once at startup.
// Changing the catalog requires a restart or an explicit Reload.
type Registry struct {
	sources []monitor.Source
	byID    map[string]monitor.Source
}

type catalogFile struct {
	Sources []monitor.Source `yaml:"sources"`
}

// Load reads a catalog file and validates every entry.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source catalog: %w", err)
	}
	return Parse(data)
}

// Parse builds a Registry from raw YAML.
func Parse(data []byte) (*Registry, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse source catalog: %w", err)
	}
	if len(file.Sources) == 0 {
		return nil, fmt.Errorf("source catalog is empty")
	}

	byID := make(map[string]monitor.Source, len(file.Sources))
	for i, src := range file.Sources {
		if err := validate(src); err != nil {
			return nil, fmt.Errorf("source %d (%s): %w", i, src.ID, err)
		}
		if _, dup := byID[src.ID]; dup {
			return nil, fmt.Errorf("duplicate source id %q", src.ID)
		}
		byID[src.ID] = src
	}

	return &Registry{sources: file.Sources, byID: byID}, nil
}

func validate(src monitor.Source) error {
	if src.ID == "" {
		return fmt.Errorf("missing id")
	}
	if src.Name == "" {
		return fmt.Errorf("missing name")
	}
	if src.PrimaryURL == "" {
		return fmt.Errorf("missing primary_url")
	}
	switch src.Priority {
	case monitor.PriorityHigh, monitor.PriorityMedium, monitor.PriorityLow:
	default:
		return fmt.Errorf("invalid priority %d", src.Priority)
	}
	if !src.Category.Valid() {
		return fmt.Errorf("invalid category %q", src.Category)
	}
	return nil
}

// All returns every source in catalog order.
func (r *Registry) All() []monitor.Source {
	out := make([]monitor.Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// ByPriority returns the sources in one priority tier, in catalog order.
func (r *Registry) ByPriority(p monitor.Priority) []monitor.Source {
	var out []monitor.Source
	for _, src := range r.sources {
		if src.Priority == p {
			out = append(out, src)
		}
	}
	return out
}

// ByCategory returns the sources in one category, in catalog order.
func (r *Registry) ByCategory(c monitor.Category) []monitor.Source {
	var out []monitor.Source
	for _, src := range r.sources {
		if src.Category == c {
			out = append(out, src)
		}
	}
	return out
}

// Get looks up a source by ID.
func (r *Registry) Get(id string) (monitor.Source, error) {
	src, ok := r.byID[id]
	if !ok {
		return monitor.Source{}, fmt.Errorf("source %q: %w", id, monitor.ErrNotFound)
	}
	return src, nil
}

// Len reports the catalog size.
func (r *Registry) Len() int {
	return len(r.sources)
}
