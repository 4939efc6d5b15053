package dashboard

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	catalogVersionV1 = "1"
	// CatalogVersion exposes the current catalog format version for tooling.
	CatalogVersion = catalogVersionV1
)

// CatalogDocument models a YAML/JSON catalog of static data sources.
type CatalogDocument struct {
	Version string          `json:"version" yaml:"version"`
	Name    string          `json:"name,omitempty" yaml:"name,omitempty"`
	Sources []CatalogSource `json:"sources" yaml:"sources"`
	Path    string          `json:"-" yaml:"-"`
}

// CatalogSource describes a single data source with its canned payload.
type CatalogSource struct {
	Name        string         `json:"name" yaml:"name"`
	Label       string         `json:"label,omitempty" yaml:"label,omitempty"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Value       *float64       `json:"value,omitempty" yaml:"value,omitempty"`
	Labels      []string       `json:"labels,omitempty" yaml:"labels,omitempty"`
	Values      []float64      `json:"values,omitempty" yaml:"values,omitempty"`
	Payload     map[string]any `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// DataSource returns the registry entry for the catalog source.
func (s CatalogSource) DataSource() DataSource {
	return DataSource{Name: s.Name, Label: s.Label, Description: s.Description}
}

// Body returns the JSON payload served for the source. An explicit payload
// wins over the scalar and categorical shorthands.
func (s CatalogSource) Body() any {
	switch {
	case len(s.Payload) > 0:
		return s.Payload
	case s.Value != nil:
		body := map[string]any{"value": *s.Value}
		if s.Label != "" {
			body["label"] = s.Label
		}
		return body
	default:
		labels := s.Labels
		if labels == nil {
			labels = []string{}
		}
		values := s.Values
		if values == nil {
			values = []float64{}
		}
		return map[string]any{"labels": labels, "values": values}
	}
}

// LoadCatalogFile reads a catalog from disk, registers it, and returns the document.
func (r *Registry) LoadCatalogFile(path string) (*CatalogDocument, error) {
	doc, err := ReadCatalog(path)
	if err != nil {
		return nil, err
	}
	if err := r.LoadCatalog(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadCatalog registers every source of a decoded catalog.
func (r *Registry) LoadCatalog(doc *CatalogDocument) error {
	if doc == nil {
		return fmt.Errorf("dashboard: catalog document is nil")
	}
	for _, source := range doc.Sources {
		if err := r.Register(source.DataSource(), StaticPayload(source.Body())); err != nil {
			return fmt.Errorf("dashboard: register source %s from %s: %w", source.Name, doc.Path, err)
		}
	}
	return nil
}

// ReadCatalog loads a catalog file from disk without registering it.
func ReadCatalog(path string) (*CatalogDocument, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("dashboard: open catalog %s: %w", path, err)
	}
	defer f.Close()
	doc, err := DecodeCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("dashboard: decode catalog %s: %w", path, err)
	}
	doc.Path = path
	return doc, nil
}

// DecodeCatalog reads a catalog from any reader.
func DecodeCatalog(r io.Reader) (*CatalogDocument, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var doc CatalogDocument
	if err := decoder.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("dashboard: catalog is empty")
		}
		return nil, fmt.Errorf("dashboard: parse catalog: %w", err)
	}
	doc.applyDefaults()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate ensures the catalog satisfies required fields.
func (doc *CatalogDocument) Validate() error {
	if doc.Version != catalogVersionV1 {
		return fmt.Errorf("dashboard: unsupported catalog version %q", doc.Version)
	}
	seen := make(map[string]struct{}, len(doc.Sources))
	for idx, source := range doc.Sources {
		if source.Name == "" {
			return fmt.Errorf("dashboard: catalog source at index %d is missing name", idx)
		}
		if len(source.Labels) != len(source.Values) {
			return fmt.Errorf("dashboard: catalog source %s has %d labels but %d values", source.Name, len(source.Labels), len(source.Values))
		}
		if _, exists := seen[source.Name]; exists {
			return fmt.Errorf("dashboard: catalog duplicates source %s", source.Name)
		}
		seen[source.Name] = struct{}{}
	}
	return nil
}

// WriteCatalog encodes doc as YAML.
func WriteCatalog(w io.Writer, doc *CatalogDocument) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("dashboard: write catalog: %w", err)
	}
	return encoder.Close()
}

func (doc *CatalogDocument) applyDefaults() {
	if doc.Version == "" {
		doc.Version = catalogVersionV1
	}
}
