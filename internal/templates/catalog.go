// Package templates provides the name -> template lookup the SKU builder is
// given, plus loading of template collections from disk.
package templates

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/listingops/curator/internal/models"
	"github.com/listingops/curator/internal/records"
)

// Catalog is an immutable, ordered template collection.
type Catalog struct {
	templates []models.Template
}

// New builds a catalog preserving collection order.
func New(templates []models.Template) *Catalog {
	c := &Catalog{templates: make([]models.Template, len(templates))}
	copy(c.templates, templates)
	return c
}

// Lookup returns the first template whose name or title equals key.
func (c *Catalog) Lookup(key string) (models.Template, bool) {
	if c == nil || key == "" {
		return models.Template{}, false
	}
	for _, tpl := range c.templates {
		if tpl.Name == key || tpl.Title == key {
			return tpl, true
		}
	}
	return models.Template{}, false
}

// Len returns the number of templates.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.templates)
}

// Names lists each template's name, or its title when it has no name.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.templates))
	for _, tpl := range c.templates {
		if tpl.Name != "" {
			names = append(names, tpl.Name)
		} else {
			names = append(names, tpl.Title)
		}
	}
	return names
}

// Merge returns a catalog where the templates of override come first, so they
// win lookups against base templates with the same name or title.
func Merge(base, override *Catalog) *Catalog {
	var all []models.Template
	if override != nil {
		all = append(all, override.templates...)
	}
	if base != nil {
		all = append(all, base.templates...)
	}
	return New(all)
}

// LoadFile reads a template collection from a .json, .yaml or .yml file. The
// file holds either an array of templates or an object with a "templates" array.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates file: %w", err)
	}

	var raw any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse templates YAML: %w", err)
		}
		raw = records.StringKeys(raw)
	case ".json":
		trimmed := strings.TrimSpace(string(data))
		if strings.HasPrefix(trimmed, "[") {
			// DecodeJSON only takes objects; wrap the array
			trimmed = `{"templates":` + trimmed + `}`
		}
		obj, err := records.DecodeJSON(strings.NewReader(trimmed))
		if err != nil {
			return nil, fmt.Errorf("failed to parse templates JSON: %w", err)
		}
		raw = obj
	default:
		return nil, fmt.Errorf("unsupported templates file format: %s", filepath.Ext(path))
	}

	if obj, ok := raw.(map[string]any); ok {
		raw = obj["templates"]
	}

	list, err := records.ParseTemplates(raw)
	if err != nil {
		return nil, err
	}
	return New(list), nil
}
