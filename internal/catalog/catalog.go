// Package catalog provides a reference SourceConfigProvider that reads
// core.SourceConfig entries from a YAML file on disk; each entry's Adapter
// field selects the Generic Adapter or a hand-written site-specific one. The
// provider is read-only: it has no operation that writes entries back.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"inkforge/internal/core"
)

// SourceConfigProvider resolves a source name to its declarative configuration.
type SourceConfigProvider interface {
	Get(name string) (core.SourceConfig, bool, error)
	List() ([]core.SourceConfig, error)
}

// FileProvider is a SourceConfigProvider backed by a single YAML file of the
// form `sources: [...]`.
type FileProvider struct {
	path    string
	entries map[string]core.SourceConfig
}

type fileSchema struct {
	Sources []core.SourceConfig `yaml:"sources"`
}

// LoadFileProvider reads and parses path.
func LoadFileProvider(path string) (*FileProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source config file %s: %w", path, err)
	}

	var schema fileSchema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("parse source config file %s: %w", path, err)
	}

	entries := make(map[string]core.SourceConfig, len(schema.Sources))
	for _, s := range schema.Sources {
		entries[s.Name] = s
	}
	return &FileProvider{path: path, entries: entries}, nil
}

var _ SourceConfigProvider = (*FileProvider)(nil)

// Get returns the configuration for name, if present.
func (p *FileProvider) Get(name string) (core.SourceConfig, bool, error) {
	cfg, ok := p.entries[name]
	return cfg, ok, nil
}

// List returns every configured source.
func (p *FileProvider) List() ([]core.SourceConfig, error) {
	out := make([]core.SourceConfig, 0, len(p.entries))
	for _, cfg := range p.entries {
		out = append(out, cfg)
	}
	return out, nil
}
