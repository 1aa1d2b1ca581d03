package skubuilder

import (
	"encoding/json"
	"strconv"

	"github.com/listingops/curator/internal/dimension"
	"github.com/listingops/curator/internal/models"
)

// BuildSKU turns one template variant into a finished SKU row pointing at pic.
func BuildSKU(variant map[string]any, pic string) models.SKURecord {
	sku := models.SKURecord{
		PicURL:         pic,
		VolumeLen:      toNumber(variant["volumeLen"]),
		VolumeWidth:    toNumber(variant["volumeWidth"]),
		VolumeHeight:   toNumber(variant["volumeHeight"]),
		WeightValue:    toNumber(variant["weightValue"]),
		SupplierPrice:  toPrice(variant["supplierPrice"]),
		SuggestedPrice: toPrice(variant["suggestedPrice"]),
	}
	if !falsy(variant["productSkuId"]) {
		sku.ProductSkuID = dimension.Stringify(variant["productSkuId"])
	}

	for k, v := range variant {
		if !models.IsPositionalKey(k) {
			continue
		}
		if sku.Positional == nil {
			sku.Positional = make(map[string]any)
		}
		sku.Positional[k] = v
	}
	return sku
}

// toNumber reads the leading number of v; absent or unreadable values are 0.
func toNumber(v any) float64 {
	if falsy(v) {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
	}
	f, _ := dimension.LeadingFloat(dimension.Stringify(v))
	return f
}

// toPrice renders numbers the shortest way ("12.50" and "1e2" become "12.5"
// and "100"); strings pass through unchanged.
func toPrice(v any) string {
	if falsy(v) {
		return "0"
	}
	if n, ok := v.(json.Number); ok {
		if f, err := n.Float64(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	}
	return dimension.Stringify(v)
}

func falsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0
	case int:
		return t == 0
	case int64:
		return t == 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	}
	return false
}
