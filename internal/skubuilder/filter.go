package skubuilder

import (
	"fmt"
	"strings"

	"github.com/listingops/curator/internal/dimension"
	"github.com/listingops/curator/internal/models"
)

// FilterSingleSpec drops single spec images whose size is not in dims, then
// keeps only the first occurrence of each normalized URL. Images without a
// readable size are kept, as is everything when dims is empty.
func FilterSingleSpec(images []string, index models.LabelIndex, dims *dimension.Set) ([]string, *models.SpecFilterLog) {
	log := &models.SpecFilterLog{
		TemplateDims:   dims.Values(),
		Removed:        []models.RemovedImage{},
		KeptSingleSpec: []models.KeptImage{},
	}

	filtered := make([]string, 0, len(images))
	for _, u := range images {
		label, ok := index.Lookup(u)
		if !ok || label.SpecSubtype != models.SpecSubtypeSingle {
			filtered = append(filtered, u)
			continue
		}
		dim := dimension.NormalizeSpec(label.SpecDimensions)
		if dim == "" || dims.Len() == 0 {
			filtered = append(filtered, u)
			continue
		}
		if dims.Matches(dim) {
			log.KeptSingleSpec = append(log.KeptSingleSpec, models.KeptImage{URL: models.NormalizeURL(u), Dim: dim})
			filtered = append(filtered, u)
			continue
		}
		log.Removed = append(log.Removed, models.RemovedImage{URL: models.NormalizeURL(u), Dim: dim, Raw: label.SpecDimensions})
	}

	seen := make(map[string]struct{}, len(filtered))
	unique := make([]string, 0, len(filtered))
	for _, u := range filtered {
		key := models.NormalizeURL(u)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, u)
	}

	keptTotal := len(log.KeptSingleSpec)
	log.KeptSingleSpec = uniqueKept(log.KeptSingleSpec)
	log.Reason = filterReason(log, keptTotal)
	return unique, log
}

func uniqueKept(kept []models.KeptImage) []models.KeptImage {
	pos := make(map[string]int, len(kept))
	out := make([]models.KeptImage, 0, len(kept))
	for _, k := range kept {
		if i, ok := pos[k.URL]; ok {
			out[i] = k
			continue
		}
		pos[k.URL] = len(out)
		out = append(out, k)
	}
	return out
}

func filterReason(log *models.SpecFilterLog, keptTotal int) string {
	keptUnique := len(log.KeptSingleSpec)

	switch {
	case len(log.Removed) > 0:
		removedDims := make([]string, len(log.Removed))
		for i, r := range log.Removed {
			removedDims[i] = r.Dim
		}
		return fmt.Sprintf("single-spec filter: kept %d image(s) matching template sizes (unique URLs), removed %d (size not in template). Template sizes: %s; removed sizes: %s",
			keptUnique, len(log.Removed), strings.Join(log.TemplateDims, ", "), strings.Join(removedDims, ", "))
	case keptUnique > 0:
		var dims []string
		seen := make(map[string]struct{})
		for _, k := range log.KeptSingleSpec {
			if _, ok := seen[k.Dim]; ok {
				continue
			}
			seen[k.Dim] = struct{}{}
			dims = append(dims, k.Dim)
		}
		note := ""
		if keptTotal > keptUnique {
			note = fmt.Sprintf("; %d repeated occurrence(s) collapsed", keptTotal-keptUnique)
		}
		return fmt.Sprintf("single-spec filter: kept %d single-spec image(s) (sizes match template: %s), nothing removed%s",
			keptUnique, strings.Join(dims, ", "), note)
	default:
		return "single-spec filter: no single_spec image found or template has no sizes, nothing removed"
	}
}
