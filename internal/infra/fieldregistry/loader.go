package fieldregistry

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"customizer_telemetry/internal/domain/field"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Document is the on-disk schema format.
type Document struct {
	// DefaultPanel is applied to sections that do not name a panel.
	DefaultPanel string          `yaml:"default_panel" toml:"default_panel"`
	Panels       []field.Panel   `yaml:"panels" toml:"panels"`
	Sections     []field.Section `yaml:"sections" toml:"sections"`
	Fields       []field.Field   `yaml:"fields" toml:"fields"`
}

// ErrUnknownFormat is returned for schema files that are neither YAML nor TOML.
var ErrUnknownFormat = errors.New("fieldregistry: unknown schema format")

// Parse decodes a schema document. format is "yaml" or "toml".
func Parse(data []byte, format string) (Document, error) {
	var doc Document
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}
	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return Document{}, fmt.Errorf("fieldregistry: decode yaml: %w", err)
		}
	case "toml":
		if err := toml.Unmarshal(data, &doc); err != nil {
			return Document{}, fmt.Errorf("fieldregistry: decode toml: %w", err)
		}
	default:
		return Document{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return doc, nil
}

// FormatFor picks the decoder from the file extension.
func FormatFor(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml", nil
	case ".toml":
		return "toml", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Apply registers every entry of doc into r, in document order.
func (doc Document) Apply(r *Registry) error {
	for _, p := range doc.Panels {
		if err := r.AddPanel(p); err != nil {
			return err
		}
	}
	for _, s := range doc.Sections {
		if s.Panel == "" {
			s.Panel = doc.DefaultPanel
		}
		if err := r.AddSection(s); err != nil {
			return err
		}
	}
	for _, f := range doc.Fields {
		if err := r.AddField(f); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile builds a registry from a schema file. A missing file yields an
// empty registry so the host can start without one.
func LoadFile(path string) (*Registry, error) {
	r := New()
	if strings.TrimSpace(path) == "" {
		return r, nil
	}
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return r, nil
		}
		return nil, fmt.Errorf("fieldregistry: read %s: %w", path, err)
	}
	doc, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("fieldregistry: %s: %w", path, err)
	}
	if err := doc.Apply(r); err != nil {
		return nil, fmt.Errorf("fieldregistry: %s: %w", path, err)
	}
	return r, nil
}
