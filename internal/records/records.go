// Package records turns loosely shaped upstream records into typed models.
// Missing or malformed optional fields fall back to defaults instead of
// failing the invocation.
package records

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/listingops/curator/internal/dimension"
	"github.com/listingops/curator/internal/models"
)

// ErrInvalidTemplateData marks a template whose data is a string that is not valid JSON.
var ErrInvalidTemplateData = errors.New("invalid template data")

// unparsableToNilHook drops strings that cannot fill an optional scalar, so
// "unknown" for a *bool decodes to nil rather than failing the whole record.
func unparsableToNilHook() mapstructure.DecodeHookFuncType {
	return func(f, t reflect.Type, data any) (any, error) {
		if t.Kind() != reflect.Ptr {
			return data, nil
		}
		s, ok := data.(string)
		if !ok {
			return data, nil
		}
		s = strings.TrimSpace(s)

		switch t.Elem().Kind() {
		case reflect.Bool:
			if _, err := strconv.ParseBool(s); err != nil {
				return nil, nil
			}
		case reflect.Int, reflect.Int64, reflect.Int32:
			n, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, nil
			}
			return n, nil
		case reflect.Float64, reflect.Float32:
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				return nil, nil
			}
		}
		return s, nil
	}
}

// truthyHook decodes non-boolean strings into plain bools by emptiness.
func truthyHook() mapstructure.DecodeHookFuncType {
	return func(f, t reflect.Type, data any) (any, error) {
		if t.Kind() != reflect.Bool {
			return data, nil
		}
		s, ok := data.(string)
		if !ok {
			return data, nil
		}
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, nil
		}
		return strings.TrimSpace(s) != "", nil
	}
}

// numberHook turns json.Number into float64 for every non-string target, so
// 2 decodes to true for a bool and 2.5 truncates to 2 for an int.
func numberHook() mapstructure.DecodeHookFuncType {
	return func(f, t reflect.Type, data any) (any, error) {
		n, ok := data.(json.Number)
		if !ok || t.Kind() == reflect.String || t.Kind() == reflect.Interface {
			return data, nil
		}
		v, err := n.Float64()
		if err != nil {
			return data, nil
		}
		return v, nil
	}
}

// unparsableToNilHook can yield nil, so it must run last.
var looseDecodeHook = mapstructure.ComposeDecodeHookFunc(
	numberHook(),
	truthyHook(),
	unparsableToNilHook(),
)

func decodeLoose(input any, out any) error {
	cfg := &mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       looseDecodeHook,
		Result:           out,
		TagName:          "mapstructure",
	}
	dec, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// ParseLabels decodes a label array. Entries that are not objects or fail to
// decode become empty labels so positions stay aligned with the carousel.
func ParseLabels(raw any) []models.Label {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}

	labels := make([]models.Label, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		var label models.Label
		if err := decodeLoose(m, &label); err != nil {
			slog.Warn("Ignoring malformed label", "index", i, "error", err)
			continue
		}
		labels[i] = label
	}
	return labels
}

// ParseCarousel keeps string entries; anything else becomes "".
func ParseCarousel(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, len(items))
	for i, item := range items {
		if s, ok := item.(string); ok {
			out[i] = s
		}
	}
	return out
}

func parseLabelRecord(raw any) models.LabelSource {
	m, ok := raw.(map[string]any)
	if !ok {
		return models.LabelSource{}
	}
	return models.LabelSource{
		Labels:   ParseLabels(m["labels"]),
		Carousel: ParseCarousel(m["carousel"]),
	}
}

// ParseLabelSource picks the merged override record when it carries labels
// and the vision aggregate otherwise.
func ParseLabelSource(merged, aggregate any) models.LabelSource {
	if src := parseLabelRecord(merged); len(src.Labels) > 0 {
		return src
	}
	return parseLabelRecord(aggregate)
}

// ParseDuplicateResult accepts the detector output either wrapped in a
// "data" object or unwrapped.
func ParseDuplicateResult(raw any) models.DuplicateResult {
	m, ok := raw.(map[string]any)
	if !ok {
		return models.DuplicateResult{}
	}
	if data, ok := m["data"].(map[string]any); ok {
		m = data
	}

	var result models.DuplicateResult
	if groups, ok := m["duplicate_groups"].([]any); ok {
		for _, g := range groups {
			members, ok := g.([]any)
			if !ok {
				continue
			}
			group := make([]string, 0, len(members))
			for _, member := range members {
				group = append(group, dimension.Stringify(member))
			}
			result.Groups = append(result.Groups, group)
		}
	}

	var flags struct {
		HasDuplicates bool `mapstructure:"has_duplicates"`
	}
	if err := decodeLoose(m, &flags); err == nil {
		result.HasDuplicates = flags.HasDuplicates
	}

	if n, ok := numberValue(m["duplicate_detect_time"]); ok {
		result.DetectTime = &n
	}
	return result
}

type categoryConfigRecord struct {
	SpecImageIndex *int   `mapstructure:"spec_image_index"`
	SpecImageURL   string `mapstructure:"spec_image_url"`
	IsMultiSpec    bool   `mapstructure:"is_multi_spec"`
	TemplateName   string `mapstructure:"template_name"`
}

// ParseGoods decodes the goods record and its _category_config.
func ParseGoods(raw any) models.Goods {
	m, ok := raw.(map[string]any)
	if !ok {
		return models.Goods{}
	}

	var goods models.Goods
	goods.SKUList = ParseObjectList(m["sku_list"])

	if cfgRaw, ok := m["_category_config"].(map[string]any); ok {
		// Fields decode one at a time so a bad value only loses itself.
		var cfg categoryConfigRecord
		for _, key := range categoryConfigKeys {
			v, ok := cfgRaw[key]
			if !ok {
				continue
			}
			if err := decodeLoose(map[string]any{key: v}, &cfg); err != nil {
				slog.Warn("Ignoring malformed category config field", "field", key, "error", err)
			}
		}
		goods.Config = models.CategoryConfig{
			SpecImageIndex: cfg.SpecImageIndex,
			SpecImageURL:   strings.TrimSpace(cfg.SpecImageURL),
			IsMultiSpec:    cfg.IsMultiSpec,
			TemplateName:   cfg.TemplateName,
		}
	}
	return goods
}

var categoryConfigKeys = []string{"spec_image_index", "spec_image_url", "is_multi_spec", "template_name"}

// ParseObjectList keeps the object entries of an array.
func ParseObjectList(raw any) []map[string]any {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// ParseTemplates decodes a template collection. A template whose data cannot
// be decoded is kept with DataErr set.
func ParseTemplates(raw any) ([]models.Template, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("failed to parse templates: expected an array, got %T", raw)
	}

	templates := make([]models.Template, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		templates = append(templates, ParseTemplate(m))
	}
	return templates, nil
}

// ParseTemplate decodes one {name|title, data} template. data may be an
// object or a JSON string.
func ParseTemplate(m map[string]any) models.Template {
	tpl := models.Template{
		Name:  dimension.Stringify(m["name"]),
		Title: dimension.Stringify(m["title"]),
	}

	data := m["data"]
	if s, ok := data.(string); ok {
		decoded, err := DecodeJSON(strings.NewReader(s))
		if err != nil {
			tpl.DataErr = fmt.Errorf("%w: %v", ErrInvalidTemplateData, err)
			return tpl
		}
		data = decoded
	}

	dm, ok := data.(map[string]any)
	if !ok {
		return tpl
	}
	tpl.Data.Variants = ParseObjectList(dm["productSkuSpecTableData"])
	for _, item := range ParseObjectList(dm["productSkuSpecList"]) {
		specs, _ := item["productSkuSpecs"].(map[string]any)
		tpl.Data.SpecList = append(tpl.Data.SpecList, models.SpecListItem{Specs: specs})
	}
	return tpl
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123,
	time.RFC1123Z,
}

// ParseTimestamp reads an orchestrator timer marker. It accepts a time, a
// date string, epoch milliseconds, or an object holding one of those under
// "currentDate".
func ParseTimestamp(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case time.Time:
		return v, !v.IsZero()
	case map[string]any:
		return ParseTimestamp(v["currentDate"])
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
		return time.Time{}, false
	}
	if ms, ok := numberValue(raw); ok {
		return time.UnixMilli(int64(ms)), true
	}
	return time.Time{}, false
}

// ParseBundle assembles one pipeline invocation from a decoded input object.
func ParseBundle(raw map[string]any) (models.Bundle, error) {
	templates, err := ParseTemplates(raw["templates"])
	if err != nil {
		return models.Bundle{}, err
	}

	bundle := models.Bundle{
		GoodsID:    dimension.Stringify(raw["goods_id"]),
		Labels:     ParseLabelSource(raw["merged"], raw["vision"]),
		Duplicates: ParseDuplicateResult(raw["duplicates"]),
		Goods:      ParseGoods(raw["goods"]),
		Templates:  templates,
	}

	if timers, ok := raw["timers"].(map[string]any); ok {
		if ts, ok := ParseTimestamp(timers["start"]); ok {
			bundle.Timers.Start = &ts
		} else if timers["start"] != nil {
			slog.Warn("Ignoring unparsable timer", "timer", "start", "value", timers["start"])
		}
		if ts, ok := ParseTimestamp(timers["end"]); ok {
			bundle.Timers.End = &ts
		} else if timers["end"] != nil {
			slog.Warn("Ignoring unparsable timer", "timer", "end", "value", timers["end"])
		}
	}
	return bundle, nil
}

// ParseResult converts a decoded stage record back into a Result.
func ParseResult(raw any) (*models.Result, error) {
	if raw == nil {
		return nil, fmt.Errorf("failed to parse result: record is empty")
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	var result models.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse result: %w", err)
	}
	return &result, nil
}

func numberValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
