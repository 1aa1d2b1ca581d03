package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Result is the record threaded through both stages and back to the
// orchestrator. Fields the pipeline does not know are kept in Extra and
// written back unchanged.
type Result struct {
	ImageList            []string       `json:"image_list"`
	ImageListReordered   []string       `json:"image_list_reordered"`
	SKUList              []SKURecord    `json:"sku_list,omitempty"`
	DownloadCost         float64        `json:"download_cost"`
	ProcessRawCost       float64        `json:"process_raw_cost"`
	ProcessDuplicateCost float64        `json:"process_duplicate_cost"`
	DeduplicationInfo    DedupInfo      `json:"deduplication_info"`
	SpecPlacement        *SpecPlacement `json:"spec_placement,omitempty"`
	SpecFilter           *SpecFilterLog `json:"spec_filter,omitempty"`
	TopScoreInfo         TopScoreInfo   `json:"top_score_info"`
	AuditTips            string         `json:"audit_tips"`
	Message              string         `json:"message"`

	Extra map[string]json.RawMessage `json:"-"`
}

// DedupInfo reports the duplicate removal decision.
type DedupInfo struct {
	HasDuplicates     bool       `json:"has_duplicates"`
	DuplicateGroups   [][]string `json:"duplicate_groups"`
	OriginalCount     int        `json:"original_count"`
	ToDeleteCount     int        `json:"to_delete_count"`
	DeduplicatedCount int        `json:"deduplicated_count"`
	Deduplicated      bool       `json:"deduplicated"`
	RemovedURLs       []string   `json:"removed_urls,omitempty"`
	Reason            string     `json:"reason"`
}

// Placement sources for the spec image slot.
const (
	PlacementLabeled  = "labeled"
	PlacementFallback = "fallback"
	PlacementNone     = "none"
)

// SpecPlacement records which image, if any, went into the spec slot.
type SpecPlacement struct {
	Mode        SpecSubtype `json:"mode"`
	Source      string      `json:"source"`
	URL         string      `json:"url,omitempty"`
	Index       int         `json:"index"`
	FilteredOut []string    `json:"filtered_out,omitempty"`
}

// SpecFilterLog records the template-driven single spec filter.
type SpecFilterLog struct {
	TemplateDims   []string       `json:"template_dims"`
	Removed        []RemovedImage `json:"removed"`
	KeptSingleSpec []KeptImage    `json:"kept_single_spec"`
	Reason         string         `json:"reason"`
}

type RemovedImage struct {
	URL string `json:"url"`
	Dim string `json:"dim"`
	Raw any    `json:"raw"`
}

type KeptImage struct {
	URL string `json:"url"`
	Dim string `json:"dim"`
}

type TopScoreInfo struct {
	TargetIndex int `json:"target_index"`
}

// Images returns the list the builder starts from: the reordered list when
// present, the plain list otherwise.
func (r *Result) Images() []string {
	if len(r.ImageListReordered) > 0 {
		return r.ImageListReordered
	}
	return r.ImageList
}

// Clone returns a copy whose slices and maps can be modified independently.
func (r *Result) Clone() *Result {
	c := *r
	c.ImageList = append([]string(nil), r.ImageList...)
	c.ImageListReordered = append([]string(nil), r.ImageListReordered...)
	if r.SKUList != nil {
		c.SKUList = make([]SKURecord, len(r.SKUList))
		for i, sku := range r.SKUList {
			c.SKUList[i] = sku.clone()
		}
	}
	if r.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(r.Extra))
		for k, v := range r.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

type resultAlias Result

func (r Result) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(resultAlias(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return base, nil
	}

	merged := make(map[string]json.RawMessage, len(r.Extra)+16)
	for k, v := range r.Extra {
		merged[k] = v
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var alias resultAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for _, k := range resultFields {
		delete(fields, k)
	}

	*r = Result(alias)
	if len(fields) > 0 {
		r.Extra = fields
	}
	return nil
}

var resultFields = []string{
	"image_list", "image_list_reordered", "sku_list", "download_cost",
	"process_raw_cost", "process_duplicate_cost", "deduplication_info",
	"spec_placement", "spec_filter", "top_score_info", "audit_tips", "message",
}

// SKURecord is one finished variant row.
type SKURecord struct {
	ProductSkuID   string
	PicURL         string
	VolumeLen      float64
	VolumeWidth    float64
	VolumeHeight   float64
	WeightValue    float64
	SupplierPrice  string
	SuggestedPrice string

	// Positional holds numeric-keyed fields copied verbatim from the variant.
	Positional map[string]any
}

// IsPositionalKey reports whether a variant key looks like a number.
func IsPositionalKey(key string) bool {
	k := strings.TrimSpace(key)
	if k == "" {
		// an empty key coerces to zero
		return true
	}
	n, err := strconv.ParseFloat(k, 64)
	return err == nil && !math.IsNaN(n)
}

func (s SKURecord) clone() SKURecord {
	c := s
	if s.Positional != nil {
		c.Positional = make(map[string]any, len(s.Positional))
		for k, v := range s.Positional {
			c.Positional[k] = v
		}
	}
	return c
}

func (s SKURecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Positional)+9)
	for k, v := range s.Positional {
		out[k] = v
	}
	out["productSkuId"] = s.ProductSkuID
	out["pic_url"] = s.PicURL
	out["volumeLen"] = s.VolumeLen
	out["volumeWidth"] = s.VolumeWidth
	out["volumeHeight"] = s.VolumeHeight
	out["weightValue"] = s.WeightValue
	out["supplierPrice"] = s.SupplierPrice
	out["suggestedPrice"] = s.SuggestedPrice
	out["imageIndex"] = nil
	return json.Marshal(out)
}

func (s *SKURecord) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode sku record: %w", err)
	}

	*s = SKURecord{
		ProductSkuID:   stringField(raw["productSkuId"]),
		PicURL:         stringField(raw["pic_url"]),
		VolumeLen:      floatField(raw["volumeLen"]),
		VolumeWidth:    floatField(raw["volumeWidth"]),
		VolumeHeight:   floatField(raw["volumeHeight"]),
		WeightValue:    floatField(raw["weightValue"]),
		SupplierPrice:  stringField(raw["supplierPrice"]),
		SuggestedPrice: stringField(raw["suggestedPrice"]),
	}

	for k, v := range raw {
		if !IsPositionalKey(k) {
			continue
		}
		if s.Positional == nil {
			s.Positional = make(map[string]any)
		}
		s.Positional[k] = v
	}
	return nil
}

func stringField(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func floatField(v any) float64 {
	if f, ok := v.(float64); ok {
		return f
	}
	return 0
}
