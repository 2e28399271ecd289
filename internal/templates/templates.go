// Package templates provides embedded TOML prompt templates with user
// override support. Templates are loaded with resolution order:
// 1. User override: templatesDir/{name}.toml
// 2. Embedded default: internal/templates/{name}.toml
package templates

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

//go:embed *.toml
var fs embed.FS

// TemplateType defines the type of template
type TemplateType string

const (
	// TemplateTypeComposer is for reply composition (prompts + clarifications)
	TemplateTypeComposer TemplateType = "composer"
)

// Template represents a loaded template. Placeholders use fmt verbs: the
// composer template interpolates the company name into System, the context
// block and question into User, and the raw query into the clarifications.
type Template struct {
	Type          TemplateType `toml:"type"`
	System        string       `toml:"system"`         // System prompt (%s = company name)
	User          string       `toml:"user"`           // User prompt (%s = context block, %s = question)
	NoMatch       string       `toml:"no_match"`       // Clarification when nothing matched (%q = query)
	LowConfidence string       `toml:"low_confidence"` // Clarification on weak evidence (%q = query)
}

// Validate checks that the template carries every field its type requires
func (t *Template) Validate() error {
	switch t.Type {
	case TemplateTypeComposer:
		if t.System == "" {
			return fmt.Errorf("composer template missing 'system' prompt")
		}
		if t.User == "" {
			return fmt.Errorf("composer template missing 'user' prompt")
		}
		if t.NoMatch == "" {
			return fmt.Errorf("composer template missing 'no_match' clarification")
		}
		if t.LowConfidence == "" {
			return fmt.Errorf("composer template missing 'low_confidence' clarification")
		}
		return nil
	default:
		return fmt.Errorf("unknown template type '%s'", t.Type)
	}
}

// GetTemplate loads a template by name with resolution order:
// 1. User override: templatesDir/{name}.toml
// 2. Embedded default: internal/templates/{name}.toml
func GetTemplate(name string, templatesDir string) (*Template, error) {
	// Try user override first
	if templatesDir != "" {
		userPath := filepath.Join(templatesDir, name+".toml")
		if data, err := os.ReadFile(userPath); err == nil {
			return parseTemplate(data)
		}
	}

	// Fall back to embedded default
	embeddedName := name + ".toml"
	data, err := fs.ReadFile(embeddedName)
	if err != nil {
		return nil, fmt.Errorf("template '%s' not found (checked user override and embedded)", name)
	}
	return parseTemplate(data)
}

// GetEmbeddedTemplate loads raw content from embedded templates (for testing)
func GetEmbeddedTemplate(name string) ([]byte, error) {
	return fs.ReadFile(name + ".toml")
}

// ListEmbeddedTemplates returns names of all embedded templates
func ListEmbeddedTemplates() ([]string, error) {
	entries, err := fs.ReadDir(".")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			name := entry.Name()
			if len(name) > 5 && name[len(name)-5:] == ".toml" {
				names = append(names, name[:len(name)-5])
			}
		}
	}
	return names, nil
}

func parseTemplate(data []byte) (*Template, error) {
	var t Template
	if err := toml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}
