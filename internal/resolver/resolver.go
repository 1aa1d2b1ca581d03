// Package resolver removes duplicate carousel images, places one spec image at
// the category's target position and makes sure a product display image leads
// the list.
package resolver

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/listingops/curator/internal/dimension"
	"github.com/listingops/curator/internal/models"
)

const (
	DefaultMinImages = 5
	DefaultSpecIndex = 2
)

// Options tunes the resolver.
type Options struct {
	// MinImages is the floor below which duplicates are left in place.
	MinImages int
	// DefaultSpecIndex is used when the category config has no spec_image_index.
	DefaultSpecIndex int
}

func DefaultOptions() Options {
	return Options{
		MinImages:        DefaultMinImages,
		DefaultSpecIndex: DefaultSpecIndex,
	}
}

type Resolver struct {
	opts   Options
	logger *slog.Logger
}

// New creates a resolver. A nil logger uses slog.Default().
func New(opts Options, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{opts: opts, logger: logger}
}

func (r *Resolver) Name() string {
	return "resolve"
}

// Resolve runs the first pipeline stage. It never fails: missing inputs fall
// back to defaults.
func (r *Resolver) Resolve(bundle models.Bundle) *models.Result {
	index := bundle.Labels.CarouselIndex()
	cfg := bundle.Goods.Config

	list := make([]string, 0, len(bundle.Labels.Carousel))
	for _, u := range bundle.Labels.Carousel {
		if u != "" {
			list = append(list, u)
		}
	}
	originalCount := len(list)

	list, dedup := r.dedup(list, bundle.Duplicates)
	dedup.OriginalCount = originalCount

	targetIndex := cfg.TargetIndex(r.opts.DefaultSpecIndex)
	approxDims := dimension.FromVariants(bundle.Goods.SKUList)

	var placement *models.SpecPlacement
	if cfg.IsMultiSpec {
		list, placement = r.placeMultiSpec(list, index, cfg, targetIndex, approxDims)
	} else {
		list, placement = r.placeSingleSpec(list, index, cfg, targetIndex, approxDims)
	}

	list = productDisplayFirst(list, index)
	dedup.DeduplicatedCount = len(list)

	message := dedup.Reason
	if reason := placementReason(placement); reason != "" {
		message = dedup.Reason + "; " + reason
	}

	result := &models.Result{
		ImageList:            list,
		ImageListReordered:   append([]string(nil), list...),
		DownloadCost:         downloadCost(bundle.Timers),
		ProcessRawCost:       0,
		ProcessDuplicateCost: duplicateCost(bundle.Duplicates),
		DeduplicationInfo:    dedup,
		SpecPlacement:        placement,
		TopScoreInfo:         models.TopScoreInfo{TargetIndex: targetIndex},
		AuditTips:            "",
		Message:              message,
	}

	r.logger.Info("Resolved image list",
		"original_count", originalCount,
		"removed_duplicates", dedup.ToDeleteCount,
		"final_count", len(list),
		"spec_source", placement.Source)
	return result
}

// dedup removes every position after the first whose URL matches a group's
// representative, unless that would leave fewer than MinImages images.
func (r *Resolver) dedup(list []string, dup models.DuplicateResult) ([]string, models.DedupInfo) {
	groups := dup.Groups
	if groups == nil {
		groups = [][]string{}
	}
	info := models.DedupInfo{
		HasDuplicates:   dup.HasDuplicates,
		DuplicateGroups: groups,
	}

	if len(groups) == 0 {
		info.Reason = "no duplicate images detected"
		return list, info
	}

	toDelete := make(map[int]struct{})
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		key := models.NormalizeURL(group[0])
		first := true
		for i, u := range list {
			if models.NormalizeURL(u) != key {
				continue
			}
			if first {
				first = false
				continue
			}
			toDelete[i] = struct{}{}
		}
	}

	remain := len(list) - len(toDelete)
	if remain < r.opts.MinImages {
		info.Reason = fmt.Sprintf("duplicates detected but removal would leave fewer than %d images, original list kept", r.opts.MinImages)
		r.logger.Debug("Skipping duplicate removal", "would_remain", remain, "min_images", r.opts.MinImages)
		return list, info
	}

	kept := make([]string, 0, remain)
	for i, u := range list {
		if _, drop := toDelete[i]; drop {
			info.RemovedURLs = append(info.RemovedURLs, u)
			r.logger.Debug("Removing duplicate image", "url", u, "position", i)
			continue
		}
		kept = append(kept, u)
	}

	info.ToDeleteCount = len(toDelete)
	info.Deduplicated = len(toDelete) > 0
	info.Reason = fmt.Sprintf("detected %d duplicate groups, removed %d images, %d remain", len(groups), len(toDelete), len(kept))
	return kept, info
}

func (r *Resolver) placeMultiSpec(list []string, index models.LabelIndex, cfg models.CategoryConfig, target int, dims *dimension.Set) ([]string, *models.SpecPlacement) {
	placement := &models.SpecPlacement{Mode: models.SpecSubtypeMulti, Source: models.PlacementNone}

	var multi []string
	rest := make([]string, 0, len(list))
	for _, u := range list {
		if index.Subtype(u) == models.SpecSubtypeMulti {
			multi = append(multi, u)
			continue
		}
		rest = append(rest, u)
	}

	switch {
	case len(multi) > 0:
		list, placement.Index = insertAt(rest, target, multi[0])
		placement.Source = models.PlacementLabeled
		placement.URL = multi[0]
	case cfg.SpecImageURL != "":
		list, placement.Index = insertAt(list, target, cfg.SpecImageURL)
		placement.Source = models.PlacementFallback
		placement.URL = cfg.SpecImageURL
	default:
		r.logger.Info("No multi-spec image and no default spec image configured")
	}

	// Single spec images must still fit the category sizes.
	filtered := make([]string, 0, len(list))
	for _, u := range list {
		if index.Subtype(u) == models.SpecSubtypeSingle {
			label, _ := index.Lookup(u)
			dim := dimension.NormalizeSpec(label.SpecDimensions)
			if !dims.Accepts(dim) {
				placement.FilteredOut = append(placement.FilteredOut, u)
				r.logger.Debug("Dropping single-spec image outside category sizes", "url", u, "dim", dim)
				continue
			}
		}
		filtered = append(filtered, u)
	}
	return filtered, placement
}

func (r *Resolver) placeSingleSpec(list []string, index models.LabelIndex, cfg models.CategoryConfig, target int, dims *dimension.Set) ([]string, *models.SpecPlacement) {
	placement := &models.SpecPlacement{Mode: models.SpecSubtypeSingle, Source: models.PlacementNone}

	var matching []string
	rest := make([]string, 0, len(list))
	for _, u := range list {
		if index.Subtype(u) != models.SpecSubtypeSingle {
			rest = append(rest, u)
			continue
		}
		label, _ := index.Lookup(u)
		dim := dimension.NormalizeSpec(label.SpecDimensions)
		if dim != "" && dims.Len() > 0 && dims.Matches(dim) {
			matching = append(matching, u)
		} else {
			placement.FilteredOut = append(placement.FilteredOut, u)
		}
	}

	switch {
	case len(matching) > 0:
		rest, placement.Index = insertAt(rest, target, matching[0])
		placement.Source = models.PlacementLabeled
		placement.URL = matching[0]
	case cfg.SpecImageURL != "":
		rest, placement.Index = insertAt(rest, target, cfg.SpecImageURL)
		placement.Source = models.PlacementFallback
		placement.URL = cfg.SpecImageURL
	default:
		r.logger.Info("No single-spec image matches the category sizes and no default spec image configured")
	}
	return rest, placement
}

func placementReason(p *models.SpecPlacement) string {
	switch {
	case p.Mode == models.SpecSubtypeMulti && p.Source == models.PlacementLabeled:
		return "multi-spec image placed at target index"
	case p.Mode == models.SpecSubtypeMulti && p.Source == models.PlacementFallback:
		return "default spec image inserted at target index (multi-spec category)"
	case p.Mode == models.SpecSubtypeSingle && p.Source == models.PlacementLabeled:
		return "single-spec image matching the template placed at target index"
	case p.Mode == models.SpecSubtypeSingle && p.Source == models.PlacementFallback:
		return "default spec image inserted at target index (single-spec category)"
	case p.Mode == models.SpecSubtypeSingle:
		return "no single-spec image matches the template and no default image, nothing inserted"
	default:
		return ""
	}
}

// insertAt inserts u at target clamped to [0, len(list)] and returns the
// index actually used.
func insertAt(list []string, target int, u string) ([]string, int) {
	if target < 0 {
		target = 0
	}
	if target > len(list) {
		target = len(list)
	}
	out := make([]string, 0, len(list)+1)
	out = append(out, list[:target]...)
	out = append(out, u)
	out = append(out, list[target:]...)
	return out, target
}

// productDisplayFirst swaps the first product display image into position 0.
func productDisplayFirst(list []string, index models.LabelIndex) []string {
	if len(list) == 0 || index.IsProductDisplay(list[0]) {
		return list
	}
	for i := 1; i < len(list); i++ {
		if index.IsProductDisplay(list[i]) {
			list[0], list[i] = list[i], list[0]
			break
		}
	}
	return list
}

func downloadCost(t models.Timers) float64 {
	if t.Start == nil || t.End == nil {
		return 0
	}
	return math.Round(t.End.Sub(*t.Start).Seconds()*100) / 100
}

func duplicateCost(d models.DuplicateResult) float64 {
	if d.DetectTime == nil {
		return 0
	}
	return *d.DetectTime
}
