package records

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/listingops/curator/internal/models"
)

// DecodeJSON decodes a JSON object keeping numbers as json.Number so large
// identifiers pass through unchanged.
func DecodeJSON(r io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadObject reads a JSON or YAML file holding a single object.
func ReadObject(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var out map[string]any
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("failed to parse YAML %s: %w", path, err)
		}
		return StringKeys(out).(map[string]any), nil
	default:
		out, err := DecodeJSON(strings.NewReader(string(data)))
		if err != nil {
			return nil, fmt.Errorf("failed to parse JSON %s: %w", path, err)
		}
		return out, nil
	}
}

// StringKeys rewrites YAML mappings with non-string keys, such as `0: red`,
// into map[string]any so they read like decoded JSON objects.
func StringKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = StringKeys(item)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = StringKeys(item)
		}
		return out
	case []any:
		for i, item := range t {
			t[i] = StringKeys(item)
		}
		return t
	}
	return v
}

// LoadBundle reads a bundle file (.json, .yaml or .yml).
func LoadBundle(path string) (models.Bundle, error) {
	raw, err := ReadObject(path)
	if err != nil {
		return models.Bundle{}, err
	}
	bundle, err := ParseBundle(raw)
	if err != nil {
		return models.Bundle{}, fmt.Errorf("failed to parse bundle %s: %w", path, err)
	}
	return bundle, nil
}

// LoadResult reads a stage record written by a previous run.
func LoadResult(path string) (*models.Result, error) {
	raw, err := ReadObject(path)
	if err != nil {
		return nil, err
	}
	return ParseResult(raw)
}
