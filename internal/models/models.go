package models

import (
	"strings"
	"time"
)

// ImageType is the vision label's coarse classification of an image.
type ImageType string

const (
	ImageTypeProductDisplay ImageType = "product_display"
	ImageTypeSpec           ImageType = "spec"
	ImageTypeMaterial       ImageType = "material"
	ImageTypeOther          ImageType = "other"
)

// SpecSubtype is only meaningful when ImageType is ImageTypeSpec.
type SpecSubtype string

const (
	SpecSubtypeMulti  SpecSubtype = "multi_spec"
	SpecSubtypeSingle SpecSubtype = "single_spec"
	SpecSubtypeNone   SpecSubtype = "none"
)

// Label represents the vision labeling output for one carousel image
type Label struct {
	ImageType       ImageType   `json:"image_type,omitempty" yaml:"image_type,omitempty" mapstructure:"image_type"`
	SpecSubtype     SpecSubtype `json:"spec_subtype,omitempty" yaml:"spec_subtype,omitempty" mapstructure:"spec_subtype"`
	SpecDimensions  any         `json:"spec_dimensions,omitempty" yaml:"spec_dimensions,omitempty" mapstructure:"spec_dimensions"`
	QualityOK       *bool       `json:"quality_ok,omitempty" yaml:"quality_ok,omitempty" mapstructure:"quality_ok"`
	FirstImageScore *float64    `json:"first_image_score,omitempty" yaml:"first_image_score,omitempty" mapstructure:"first_image_score"`
	Index           *int        `json:"index,omitempty" yaml:"index,omitempty" mapstructure:"index"`
	OriginalURL     string      `json:"original_url,omitempty" yaml:"original_url,omitempty" mapstructure:"original_url"`
	ImageURL        string      `json:"image_url,omitempty" yaml:"image_url,omitempty" mapstructure:"image_url"`
}

// LabelSource holds the carousel URLs and the labels produced for them.
// The two slices are parallel; either may be shorter than the other.
type LabelSource struct {
	Labels   []Label  `json:"labels"`
	Carousel []string `json:"carousel"`
}

// LabelIndex maps a normalized image URL to its label.
type LabelIndex map[string]Label

// Index builds the URL lookup used by the SKU builder. A label is keyed
// by its own original_url, then image_url, then the carousel URL at the same
// position. Later entries overwrite earlier ones, except that a carousel
// position without a label never replaces an existing label.
func (s LabelSource) Index() LabelIndex {
	n := len(s.Labels)
	if len(s.Carousel) > n {
		n = len(s.Carousel)
	}

	index := make(LabelIndex, n)
	for i := 0; i < n; i++ {
		var label Label
		if i < len(s.Labels) {
			label = s.Labels[i]
		}

		url := label.OriginalURL
		if url == "" {
			url = label.ImageURL
		}
		if url == "" && i < len(s.Carousel) {
			url = s.Carousel[i]
		}

		key := NormalizeURL(url)
		if key == "" {
			continue
		}
		if _, exists := index[key]; exists && i >= len(s.Labels) {
			continue
		}
		index[key] = label
	}
	return index
}

// CarouselIndex keys each label strictly by the carousel URL at its position,
// ignoring original_url and image_url. A position without a label never
// replaces an existing label.
func (s LabelSource) CarouselIndex() LabelIndex {
	index := make(LabelIndex, len(s.Carousel))
	for i, url := range s.Carousel {
		key := NormalizeURL(url)
		if key == "" {
			continue
		}
		if i >= len(s.Labels) {
			if _, exists := index[key]; !exists {
				index[key] = Label{}
			}
			continue
		}
		index[key] = s.Labels[i]
	}
	return index
}

// Lookup returns the label for url, if any.
func (ix LabelIndex) Lookup(url string) (Label, bool) {
	label, ok := ix[NormalizeURL(url)]
	return label, ok
}

func (ix LabelIndex) Subtype(url string) SpecSubtype {
	return ix[NormalizeURL(url)].SpecSubtype
}

func (ix LabelIndex) IsProductDisplay(url string) bool {
	return ix[NormalizeURL(url)].ImageType == ImageTypeProductDisplay
}

// DuplicateResult is the output of the upstream duplicate detector.
type DuplicateResult struct {
	Groups        [][]string `json:"duplicate_groups"`
	HasDuplicates bool       `json:"has_duplicates"`
	DetectTime    *float64   `json:"duplicate_detect_time,omitempty"`
}

// CategoryConfig holds the per-goods category settings.
type CategoryConfig struct {
	SpecImageIndex *int   `json:"spec_image_index,omitempty"`
	SpecImageURL   string `json:"spec_image_url,omitempty"`
	IsMultiSpec    bool   `json:"is_multi_spec"`
	TemplateName   string `json:"template_name,omitempty"`
}

// TargetIndex returns the configured spec image position or def when unset.
func (c CategoryConfig) TargetIndex(def int) int {
	if c.SpecImageIndex == nil {
		return def
	}
	return *c.SpecImageIndex
}

// Goods is the listing record with its category configuration.
type Goods struct {
	SKUList []map[string]any `json:"sku_list"`
	Config  CategoryConfig   `json:"_category_config"`
}

// Template is a named SKU template.
type Template struct {
	Name  string       `json:"name,omitempty" yaml:"name,omitempty"`
	Title string       `json:"title,omitempty" yaml:"title,omitempty"`
	Data  TemplateData `json:"data" yaml:"data"`

	// DataErr is set when the template payload could not be decoded. It only
	// matters if the template is selected.
	DataErr error `json:"-" yaml:"-"`
}

// TemplateData is the decoded template payload.
type TemplateData struct {
	Variants []map[string]any `json:"productSkuSpecTableData" yaml:"productSkuSpecTableData"`
	SpecList []SpecListItem   `json:"productSkuSpecList,omitempty" yaml:"productSkuSpecList,omitempty"`
}

// SpecListItem is one entry of a template's spec list. Only the free-form
// spec values are read.
type SpecListItem struct {
	Specs map[string]any `json:"productSkuSpecs,omitempty" yaml:"productSkuSpecs,omitempty"`
}

// SpecValues returns the spec maps of every list entry that has one.
func (d TemplateData) SpecValues() []map[string]any {
	out := make([]map[string]any, 0, len(d.SpecList))
	for _, item := range d.SpecList {
		if item.Specs != nil {
			out = append(out, item.Specs)
		}
	}
	return out
}

// Timers are the optional orchestrator timestamps around the download step.
type Timers struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Bundle is everything one pipeline invocation consumes.
type Bundle struct {
	GoodsID    string          `json:"goods_id,omitempty"`
	Labels     LabelSource     `json:"labels"`
	Duplicates DuplicateResult `json:"duplicates"`
	Goods      Goods           `json:"goods"`
	Templates  []Template      `json:"templates,omitempty"`
	Timers     Timers          `json:"timers"`
}

// NormalizeURL strips the query string and trailing slashes so two URLs that
// differ only in those parts compare equal.
func NormalizeURL(u string) string {
	u, _, _ = strings.Cut(u, "?")
	return strings.TrimRight(u, "/")
}
