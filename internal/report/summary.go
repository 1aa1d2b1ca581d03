// Package report aggregates batch outcomes and writes them as text, JSON, CSV
// or YAML.
package report

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/listingops/curator/internal/batch"
	"github.com/listingops/curator/internal/models"
	"github.com/listingops/curator/internal/records"
	"github.com/listingops/curator/internal/skubuilder"
)

// Failure reasons used as keys of Summary.FailuresByReason.
const (
	ReasonNoTemplateName      = "no_template_name"
	ReasonTemplateNotFound    = "template_not_found"
	ReasonNoVariantTable      = "no_variant_table"
	ReasonInvalidTemplateData = "invalid_template_data"
	ReasonNoImages            = "no_images"
	ReasonCancelled           = "cancelled"
	ReasonOther               = "other"
)

var failureReasons = []struct {
	err    error
	reason string
}{
	{skubuilder.ErrNoTemplateName, ReasonNoTemplateName},
	{skubuilder.ErrTemplateNotFound, ReasonTemplateNotFound},
	{skubuilder.ErrNoVariantTable, ReasonNoVariantTable},
	{records.ErrInvalidTemplateData, ReasonInvalidTemplateData},
	{skubuilder.ErrNoImages, ReasonNoImages},
	{context.Canceled, ReasonCancelled},
	{context.DeadlineExceeded, ReasonCancelled},
}

type Summary struct {
	TotalItems int            `json:"total_items" yaml:"totalitems"`
	Succeeded  int            `json:"succeeded" yaml:"succeeded"`
	Failed     int            `json:"failed" yaml:"failed"`
	Failures   map[string]int `json:"failures_by_reason" yaml:"failuresbyreason"`

	// Resolver
	DeduplicatedItems int            `json:"deduplicated_items" yaml:"deduplicateditems"`
	DuplicatesRemoved int            `json:"duplicates_removed" yaml:"duplicatesremoved"`
	DuplicatesKept    int            `json:"duplicates_kept" yaml:"duplicateskept"`
	Placements        map[string]int `json:"placements" yaml:"placements"`

	// Builder
	SpecFilterRemoved int `json:"spec_filter_removed" yaml:"specfilterremoved"`
	SKUsBuilt         int `json:"skus_built" yaml:"skusbuilt"`

	AverageFinalImages float64       `json:"average_final_images" yaml:"averagefinalimages"`
	AverageDuration    time.Duration `json:"average_duration" yaml:"-"`
	TotalDuration      time.Duration `json:"total_duration" yaml:"-"`
}

// FailureReason maps a run error message to a summary key.
func FailureReason(message string) string {
	for _, fr := range failureReasons {
		if strings.Contains(message, fr.err.Error()) {
			return fr.reason
		}
	}
	return ReasonOther
}

// ErrorReason is FailureReason for a live error value.
func ErrorReason(err error) string {
	for _, fr := range failureReasons {
		if errors.Is(err, fr.err) {
			return fr.reason
		}
	}
	return ReasonOther
}

// Aggregate summarizes a batch.
func Aggregate(outcomes []batch.Outcome) *Summary {
	s := &Summary{
		TotalItems: len(outcomes),
		Failures:   make(map[string]int),
		Placements: make(map[string]int),
	}

	var successDuration time.Duration
	finalImages := 0

	for _, o := range outcomes {
		s.TotalDuration += o.Duration

		if o.Error != "" {
			s.Failed++
			s.Failures[FailureReason(o.Error)]++
			continue
		}

		result := o.Result()
		if result == nil {
			s.Failed++
			s.Failures[ReasonOther]++
			continue
		}

		s.Succeeded++
		successDuration += o.Duration

		var resolved *models.Result
		if o.Run != nil {
			resolved = o.Run.Resolved
		}
		if resolved == nil {
			resolved = result
		}
		countResolver(s, resolved)

		if result.SpecFilter != nil {
			s.SpecFilterRemoved += len(result.SpecFilter.Removed)
		}
		s.SKUsBuilt += len(result.SKUList)
		finalImages += len(result.ImageList)
	}

	if s.Succeeded > 0 {
		s.AverageFinalImages = float64(finalImages) / float64(s.Succeeded)
		s.AverageDuration = successDuration / time.Duration(s.Succeeded)
	}

	return s
}

func countResolver(s *Summary, resolved *models.Result) {
	info := resolved.DeduplicationInfo
	if info.Deduplicated {
		s.DeduplicatedItems++
		s.DuplicatesRemoved += info.ToDeleteCount
	} else if len(info.DuplicateGroups) > 0 {
		// groups reported but nothing removed, usually the image floor
		s.DuplicatesKept++
	}

	source := models.PlacementNone
	if resolved.SpecPlacement != nil && resolved.SpecPlacement.Source != "" {
		source = resolved.SpecPlacement.Source
	}
	s.Placements[source]++
}
