package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"routing_gateway/internal/models"
	"routing_gateway/internal/providers"
)

// Entries is what a source contributes to the catalog: servable models and,
// optionally, how to reach their providers.
type Entries struct {
	Models    []models.ModelDescriptor
	Providers []providers.Config
}

// Source loads catalog entries from one place
type Source interface {
	Name() string
	Load(ctx context.Context) (*Entries, error)
}

// fileDocument is the YAML layout of a catalog file
type fileDocument struct {
	Providers []providers.Config `yaml:"providers"`
}

// FileSource reads providers and their models from a YAML file
type FileSource struct {
	path string
}

// NewFileSource creates a source reading path
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string { return "file:" + s.path }

// Load parses the file. A missing file yields no entries.
func (s *FileSource) Load(ctx context.Context) (*Entries, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &Entries{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return ParseYAML(raw)
}

// ParseYAML decodes a catalog document
func ParseYAML(raw []byte) (*Entries, error) {
	var doc fileDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	entries := &Entries{}
	seen := make(map[string]bool)
	for i, p := range doc.Providers {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, fmt.Errorf("catalog provider #%d has no id", i+1)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("catalog provider %q listed twice", p.ID)
		}
		seen[p.ID] = true

		for _, m := range p.Models {
			m = strings.TrimSpace(m)
			if m == "" {
				return nil, fmt.Errorf("catalog provider %q has an empty model name", p.ID)
			}
			entries.Models = append(entries.Models, models.ModelDescriptor{Provider: p.ID, Model: m})
		}
		entries.Providers = append(entries.Providers, p)
	}
	return entries, nil
}

// ModelLister is the part of a model repository a DBSource needs
type ModelLister interface {
	List(ctx context.Context) ([]models.ModelDescriptor, error)
}

// DBSource reads the models table
type DBSource struct {
	repo ModelLister
}

// NewDBSource creates a source backed by repo
func NewDBSource(repo ModelLister) *DBSource {
	return &DBSource{repo: repo}
}

func (s *DBSource) Name() string { return "database" }

func (s *DBSource) Load(ctx context.Context) (*Entries, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return &Entries{Models: list}, nil
}
