package records

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/listingops/curator/internal/models"
)

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	m, err := DecodeJSON(strings.NewReader(s))
	if err != nil {
		t.Fatalf("Failed to decode fixture: %v", err)
	}
	return m
}

func TestParseLabels(t *testing.T) {
	raw := decode(t, `{"labels": [
		{"image_type": "spec", "spec_subtype": "single_spec", "spec_dimensions": {"cm": "18x22"}, "quality_ok": "unknown", "first_image_score": 0.8, "index": "3"},
		"not an object",
		{"image_type": "product_display", "quality_ok": true},
		{"image_type": {"nested": true}}
	]}`)

	labels := ParseLabels(raw["labels"])
	if len(labels) != 4 {
		t.Fatalf("Expected 4 labels, got %d", len(labels))
	}

	first := labels[0]
	if first.SpecSubtype != models.SpecSubtypeSingle {
		t.Errorf("Expected single_spec, got %q", first.SpecSubtype)
	}
	if first.QualityOK != nil {
		t.Errorf("Expected unknown quality to decode as nil, got %v", *first.QualityOK)
	}
	if first.FirstImageScore == nil || *first.FirstImageScore != 0.8 {
		t.Errorf("Expected first_image_score 0.8, got %v", first.FirstImageScore)
	}
	if first.Index == nil || *first.Index != 3 {
		t.Errorf("Expected index 3, got %v", first.Index)
	}
	if dims, ok := first.SpecDimensions.(map[string]any); !ok || dims["cm"] != "18x22" {
		t.Errorf("Expected spec_dimensions object, got %v", first.SpecDimensions)
	}

	if labels[1].ImageType != "" {
		t.Errorf("Expected non-object entry to become an empty label, got %+v", labels[1])
	}
	if labels[2].QualityOK == nil || !*labels[2].QualityOK {
		t.Errorf("Expected quality_ok true, got %v", labels[2].QualityOK)
	}
	if labels[3].ImageType != "" {
		t.Errorf("Expected malformed label to become empty, got %+v", labels[3])
	}
}

func TestParseLabelsNotArray(t *testing.T) {
	if labels := ParseLabels("oops"); labels != nil {
		t.Errorf("Expected nil labels, got %v", labels)
	}
}

func TestParseLabelSource(t *testing.T) {
	merged := map[string]any{"labels": []any{}, "carousel": []any{"M"}}
	vision := map[string]any{
		"labels":   []any{map[string]any{"image_type": "product_display"}},
		"carousel": []any{"V", 42.0},
	}

	src := ParseLabelSource(merged, vision)
	if len(src.Carousel) != 2 || src.Carousel[0] != "V" || src.Carousel[1] != "" {
		t.Errorf("Expected vision carousel with non-string blanked, got %v", src.Carousel)
	}

	merged["labels"] = []any{map[string]any{"image_type": "spec"}}
	src = ParseLabelSource(merged, vision)
	if src.Carousel[0] != "M" {
		t.Errorf("Expected merged record to win when it has labels, got %v", src.Carousel)
	}

	src = ParseLabelSource(nil, nil)
	if len(src.Labels) != 0 || len(src.Carousel) != 0 {
		t.Errorf("Expected empty source, got %+v", src)
	}
}

func TestParseDuplicateResult(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		groups     int
		hasDup     bool
		detectTime float64
		hasTime    bool
	}{
		{
			name:       "wrapped",
			input:      `{"data": {"duplicate_groups": [["A", "A2"], ["B"]], "has_duplicates": true, "duplicate_detect_time": 1.25}}`,
			groups:     2,
			hasDup:     true,
			detectTime: 1.25,
			hasTime:    true,
		},
		{
			name:   "unwrapped",
			input:  `{"duplicate_groups": [["A"]], "has_duplicates": "true"}`,
			groups: 1,
			hasDup: true,
		},
		{
			name:   "non-array groups ignored",
			input:  `{"duplicate_groups": "A,B", "duplicate_detect_time": "2"}`,
			groups: 0,
		},
		{
			name:   "malformed group entries skipped",
			input:  `{"duplicate_groups": [null, "A", ["B"]]}`,
			groups: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseDuplicateResult(decode(t, tt.input))
			if len(result.Groups) != tt.groups {
				t.Errorf("Expected %d groups, got %d", tt.groups, len(result.Groups))
			}
			if result.HasDuplicates != tt.hasDup {
				t.Errorf("Expected has_duplicates %v, got %v", tt.hasDup, result.HasDuplicates)
			}
			if tt.hasTime {
				if result.DetectTime == nil || *result.DetectTime != tt.detectTime {
					t.Errorf("Expected detect time %v, got %v", tt.detectTime, result.DetectTime)
				}
			} else if result.DetectTime != nil {
				t.Errorf("Expected no detect time, got %v", *result.DetectTime)
			}
		})
	}
}

func TestParseGoods(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		index     int
		indexSet  bool
		multiSpec bool
		url       string
		template  string
		skus      int
	}{
		{
			name:      "full config",
			input:     `{"sku_list": [{"size": "18x22"}, "junk"], "_category_config": {"spec_image_index": 3, "spec_image_url": "  https://cdn/spec.jpg ", "is_multi_spec": true, "template_name": "Tote"}}`,
			index:     3,
			indexSet:  true,
			multiSpec: true,
			url:       "https://cdn/spec.jpg",
			template:  "Tote",
			skus:      1,
		},
		{
			name:     "string index",
			input:    `{"_category_config": {"spec_image_index": "1", "is_multi_spec": 0}}`,
			index:    1,
			indexSet: true,
		},
		{
			name:  "unparsable index",
			input: `{"_category_config": {"spec_image_index": "second"}}`,
		},
		{
			name:  "missing config",
			input: `{}`,
		},
		{
			name:      "numeric flag and fractional index",
			input:     `{"_category_config": {"is_multi_spec": 2, "template_name": "bag", "spec_image_index": 2.5}}`,
			index:     2,
			indexSet:  true,
			multiSpec: true,
			template:  "bag",
		},
		{
			name:     "malformed flag keeps other fields",
			input:    `{"_category_config": {"is_multi_spec": {"on": 1}, "template_name": "bag", "spec_image_index": 3}}`,
			index:    3,
			indexSet: true,
			template: "bag",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			goods := ParseGoods(decode(t, tt.input))
			cfg := goods.Config
			if tt.indexSet {
				if cfg.SpecImageIndex == nil || *cfg.SpecImageIndex != tt.index {
					t.Errorf("Expected spec_image_index %d, got %v", tt.index, cfg.SpecImageIndex)
				}
			} else if cfg.SpecImageIndex != nil {
				t.Errorf("Expected unset spec_image_index, got %d", *cfg.SpecImageIndex)
			}
			if cfg.IsMultiSpec != tt.multiSpec {
				t.Errorf("Expected is_multi_spec %v, got %v", tt.multiSpec, cfg.IsMultiSpec)
			}
			if cfg.SpecImageURL != tt.url {
				t.Errorf("Expected spec_image_url %q, got %q", tt.url, cfg.SpecImageURL)
			}
			if cfg.TemplateName != tt.template {
				t.Errorf("Expected template_name %q, got %q", tt.template, cfg.TemplateName)
			}
			if len(goods.SKUList) != tt.skus {
				t.Errorf("Expected %d skus, got %d", tt.skus, len(goods.SKUList))
			}
		})
	}
}

func TestParseTemplates(t *testing.T) {
	raw := decode(t, `{"templates": [
		{"name": "Tote", "data": {"productSkuSpecTableData": [{"productSkuId": 1001, "size": "18x22"}], "productSkuSpecList": [{"productSkuSpecs": {"Size": "30x40"}}, {"other": 1}]}},
		{"title": "Mug", "data": "{\"productSkuSpecTableData\": [{\"size\": \"8x10\"}]}"},
		{"name": "Broken", "data": "{not json"},
		"junk"
	]}`)

	templates, err := ParseTemplates(raw["templates"])
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(templates) != 3 {
		t.Fatalf("Expected 3 templates, got %d", len(templates))
	}

	tote := templates[0]
	if tote.Name != "Tote" || len(tote.Data.Variants) != 1 || len(tote.Data.SpecValues()) != 1 {
		t.Errorf("Unexpected Tote template: %+v", tote)
	}
	if id, ok := tote.Data.Variants[0]["productSkuId"].(json.Number); !ok || id.String() != "1001" {
		t.Errorf("Expected productSkuId to stay a json.Number, got %T %v", tote.Data.Variants[0]["productSkuId"], tote.Data.Variants[0]["productSkuId"])
	}

	mug := templates[1]
	if mug.Title != "Mug" || len(mug.Data.Variants) != 1 {
		t.Errorf("Expected string data to be decoded, got %+v", mug)
	}

	broken := templates[2]
	if !errors.Is(broken.DataErr, ErrInvalidTemplateData) {
		t.Errorf("Expected ErrInvalidTemplateData, got %v", broken.DataErr)
	}
}

func TestParseTemplatesNotArray(t *testing.T) {
	if _, err := ParseTemplates(map[string]any{"name": "x"}); err == nil {
		t.Errorf("Expected error for non-array template collection")
	}
	templates, err := ParseTemplates(nil)
	if err != nil || templates != nil {
		t.Errorf("Expected nil, nil for absent templates, got %v, %v", templates, err)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		input any
		ok    bool
		unix  int64
	}{
		{name: "rfc3339", input: "2025-03-01T10:00:00Z", ok: true, unix: 1740823200},
		{name: "rfc3339 with millis", input: "2025-03-01T10:00:00.500+00:00", ok: true, unix: 1740823200},
		{name: "space layout", input: "2025-03-01 10:00:00", ok: true, unix: 1740823200},
		{name: "marker object", input: map[string]any{"currentDate": "2025-03-01T10:00:00Z"}, ok: true, unix: 1740823200},
		{name: "epoch millis", input: json.Number("1740823200000"), ok: true, unix: 1740823200},
		{name: "garbage", input: "yesterday", ok: false},
		{name: "nil", input: nil, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, ok := ParseTimestamp(tt.input)
			if ok != tt.ok {
				t.Fatalf("Expected ok %v, got %v", tt.ok, ok)
			}
			if ok && ts.Unix() != tt.unix {
				t.Errorf("Expected unix %d, got %d", tt.unix, ts.Unix())
			}
		})
	}
}

func TestParseBundle(t *testing.T) {
	raw := decode(t, `{
		"goods_id": 77,
		"vision": {"labels": [{"image_type": "product_display"}], "carousel": ["A"]},
		"duplicates": {"data": {"duplicate_groups": []}},
		"goods": {"_category_config": {"template_name": "Tote"}},
		"templates": [{"name": "Tote", "data": {"productSkuSpecTableData": [{"size": "18x22"}]}}],
		"timers": {"start": "2025-03-01T10:00:00Z", "end": "not a time"}
	}`)

	bundle, err := ParseBundle(raw)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if bundle.GoodsID != "77" {
		t.Errorf("Expected goods_id 77, got %q", bundle.GoodsID)
	}
	if len(bundle.Labels.Carousel) != 1 || bundle.Goods.Config.TemplateName != "Tote" || len(bundle.Templates) != 1 {
		t.Errorf("Unexpected bundle: %+v", bundle)
	}
	if bundle.Timers.Start == nil {
		t.Errorf("Expected start timer")
	}
	if bundle.Timers.End != nil {
		t.Errorf("Expected unparsable end timer to be dropped")
	}
}

func TestLoadBundleYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bundle.yaml")
	content := `goods_id: g-1
vision:
  carousel: [A, B]
  labels:
    - image_type: product_display
    - image_type: spec
      spec_subtype: single_spec
      spec_dimensions: 18x22
goods:
  sku_list:
    - size: 18x22
  _category_config:
    spec_image_index: 1
    template_name: Tote
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	bundle, err := LoadBundle(path)
	if err != nil {
		t.Fatalf("Failed to load bundle: %v", err)
	}
	if len(bundle.Labels.Labels) != 2 || bundle.Labels.Labels[1].SpecDimensions != "18x22" {
		t.Errorf("Unexpected labels: %+v", bundle.Labels.Labels)
	}
	if bundle.Goods.Config.TargetIndex(2) != 1 {
		t.Errorf("Expected target index 1, got %d", bundle.Goods.Config.TargetIndex(2))
	}
}

func TestLoadBundleYAMLNumericKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.yml")
	content := `goods:
  _category_config:
    template_name: Tote
templates:
  - name: Tote
    data:
      productSkuSpecTableData:
        - size: 18x22
          0: red
        - size: 30x40
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	bundle, err := LoadBundle(path)
	if err != nil {
		t.Fatalf("Failed to load bundle: %v", err)
	}
	if len(bundle.Templates) != 1 {
		t.Fatalf("Expected 1 template, got %d", len(bundle.Templates))
	}
	variants := bundle.Templates[0].Data.Variants
	if len(variants) != 2 {
		t.Fatalf("Expected 2 variants, got %d", len(variants))
	}
	if variants[0]["0"] != "red" {
		t.Errorf("Expected variant field 0 = red, got %v", variants[0]["0"])
	}
}

func TestStringKeys(t *testing.T) {
	input := map[string]any{
		"list": []any{map[any]any{0: "a", true: "b", "c": map[any]any{1.5: "d"}}},
	}

	out := StringKeys(input).(map[string]any)
	item, ok := out["list"].([]any)[0].(map[string]any)
	if !ok {
		t.Fatalf("Expected list item to become map[string]any, got %T", out["list"].([]any)[0])
	}
	if item["0"] != "a" || item["true"] != "b" {
		t.Errorf("Unexpected keys: %v", item)
	}
	if nested, ok := item["c"].(map[string]any); !ok || nested["1.5"] != "d" {
		t.Errorf("Expected nested map with key 1.5, got %#v", item["c"])
	}
}

func TestLoadResult(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resolved.json")
	content := `{"image_list": ["A", "B"], "image_list_reordered": ["A", "B"], "message": "done", "custom": 1}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	result, err := LoadResult(path)
	if err != nil {
		t.Fatalf("Failed to load result: %v", err)
	}
	if len(result.ImageList) != 2 || result.Message != "done" {
		t.Errorf("Unexpected result: %+v", result)
	}
	if _, ok := result.Extra["custom"]; !ok {
		t.Errorf("Expected custom field to be kept")
	}
}

func TestLoadBundleMissingFile(t *testing.T) {
	if _, err := LoadBundle(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Errorf("Expected error for missing file")
	}
}
