package templates

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/listingops/curator/internal/models"
	"github.com/listingops/curator/internal/skubuilder"
)

func TestCatalogLookup(t *testing.T) {
	catalog := New([]models.Template{
		{Name: "Tote", Data: models.TemplateData{Variants: []map[string]any{{"size": "first"}}}},
		{Title: "Tote", Data: models.TemplateData{Variants: []map[string]any{{"size": "second"}}}},
		{Title: "Mug"},
	})

	tests := []struct {
		name     string
		key      string
		found    bool
		expected string
	}{
		{name: "by name, first wins", key: "Tote", found: true, expected: "first"},
		{name: "by title", key: "Mug", found: true},
		{name: "missing", key: "Poster", found: false},
		{name: "empty key", key: "", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl, ok := catalog.Lookup(tt.key)
			if ok != tt.found {
				t.Fatalf("Expected found %v, got %v", tt.found, ok)
			}
			if tt.expected != "" && tpl.Data.Variants[0]["size"] != tt.expected {
				t.Errorf("Expected variant %q, got %v", tt.expected, tpl.Data.Variants[0]["size"])
			}
		})
	}
}

func TestCatalogNilSafe(t *testing.T) {
	var c *Catalog
	if _, ok := c.Lookup("x"); ok {
		t.Errorf("Expected nil catalog lookup to miss")
	}
	if c.Len() != 0 {
		t.Errorf("Expected nil catalog length 0")
	}
}

func TestMerge(t *testing.T) {
	base := New([]models.Template{{Name: "Tote", Title: "base"}, {Name: "Mug"}})
	override := New([]models.Template{{Name: "Tote", Title: "override"}})

	merged := Merge(base, override)
	if merged.Len() != 3 {
		t.Fatalf("Expected 3 templates, got %d", merged.Len())
	}
	tpl, _ := merged.Lookup("Tote")
	if tpl.Title != "override" {
		t.Errorf("Expected override template to win, got %q", tpl.Title)
	}
	if _, ok := merged.Lookup("Mug"); !ok {
		t.Errorf("Expected base template Mug to remain")
	}

	if Merge(nil, nil).Len() != 0 {
		t.Errorf("Expected empty merge of nil catalogs")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	files := map[string]string{
		"array.json": `[{"name": "Tote", "data": {"productSkuSpecTableData": [{"size": "18x22"}]}}]`,
		"object.json": `{"templates": [{"name": "Tote", "data": "{\"productSkuSpecTableData\": [{\"size\": \"18x22\"}]}"}]}`,
		"list.yaml": `- name: Tote
  data:
    productSkuSpecTableData:
      - size: 18x22
`,
		"object.yml": `templates:
  - title: Tote
    data:
      productSkuSpecTableData:
        - size: 18x22
`,
	}

	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatalf("Failed to write fixture: %v", err)
			}

			catalog, err := LoadFile(path)
			if err != nil {
				t.Fatalf("Failed to load: %v", err)
			}
			tpl, ok := catalog.Lookup("Tote")
			if !ok {
				t.Fatalf("Expected Tote template, names: %v", catalog.Names())
			}
			if len(tpl.Data.Variants) != 1 || tpl.Data.Variants[0]["size"] != "18x22" {
				t.Errorf("Unexpected variants: %v", tpl.Data.Variants)
			}
		})
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	unsupported := filepath.Join(dir, "templates.txt")
	if err := os.WriteFile(unsupported, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	if _, err := LoadFile(unsupported); err == nil {
		t.Errorf("Expected error for unsupported extension")
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Errorf("Expected error for missing file")
	}
}

func TestNames(t *testing.T) {
	catalog := New([]models.Template{{Name: "Tote"}, {Title: "Mug"}})
	expected := []string{"Tote", "Mug"}
	if !reflect.DeepEqual(catalog.Names(), expected) {
		t.Errorf("Expected %v, got %v", expected, catalog.Names())
	}
}

func TestLoadFileYAMLNumericKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	content := `- name: Tote
  data:
    productSkuSpecTableData:
      - productSkuId: 1
        size: 18x22
        0: red
        1:
          2: inner
      - productSkuId: 2
        size: 30x40
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	catalog, err := LoadFile(path)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	tpl, ok := catalog.Lookup("Tote")
	if !ok {
		t.Fatalf("Expected Tote template")
	}
	if len(tpl.Data.Variants) != 2 {
		t.Fatalf("Expected 2 variants, got %d", len(tpl.Data.Variants))
	}

	sku := skubuilder.BuildSKU(tpl.Data.Variants[0], "pic")
	if sku.Positional["0"] != "red" {
		t.Errorf("Expected positional field 0 = red, got %v", sku.Positional["0"])
	}
	nested, ok := sku.Positional["1"].(map[string]any)
	if !ok || nested["2"] != "inner" {
		t.Errorf("Expected nested positional object with string keys, got %#v", sku.Positional["1"])
	}
}
