package dimension

import "sort"

// SkipFields are variant fields that hold numbers but never identify a size.
var SkipFields = map[string]struct{}{
	"volumeLen":      {},
	"volumeWidth":    {},
	"volumeHeight":   {},
	"weightValue":    {},
	"productSkuId":   {},
	"imageIndex":     {},
	"supplierPrice":  {},
	"suggestedPrice": {},
	"pic_url":        {},
}

// Set is an insertion-ordered set of canonical two-number sizes.
type Set struct {
	order []string
	seen  map[string]struct{}
}

// NewSet returns a set holding the canonical forms of dims.
func NewSet(dims ...string) *Set {
	s := &Set{seen: make(map[string]struct{})}
	for _, d := range dims {
		s.Add(Canonical(d))
	}
	return s
}

// Add inserts an already canonical size. Empty strings are ignored.
func (s *Set) Add(dim string) {
	if dim == "" {
		return
	}
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[dim]; ok {
		return
	}
	s.seen[dim] = struct{}{}
	s.order = append(s.order, dim)
}

// AddText scans text for every "NxM" occurrence and adds each canonical form.
func (s *Set) AddText(text string) {
	for _, m := range pairRe.FindAllString(text, -1) {
		s.Add(Canonical(m))
	}
}

// Len returns the number of distinct sizes.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Values returns the sizes in first-seen order.
func (s *Set) Values() []string {
	if s == nil {
		return []string{}
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Matches reports whether the image signature satisfies any size in the set.
func (s *Set) Matches(imageDim string) bool {
	if s == nil {
		return false
	}
	for _, t := range s.order {
		if MatchesTemplate(imageDim, t) {
			return true
		}
	}
	return false
}

// Accepts is the conservative filter used by both stages: a signature is
// accepted when it is empty, when the set is empty, or when it matches.
func (s *Set) Accepts(imageDim string) bool {
	if imageDim == "" || s.Len() == 0 {
		return true
	}
	return s.Matches(imageDim)
}

// FromVariants collects sizes from every non-skipped field of each variant.
func FromVariants(variants []map[string]any) *Set {
	s := NewSet()
	for _, v := range variants {
		s.addVariant(v)
	}
	return s
}

// FromTemplate collects sizes from a template's variant table and from the
// values of each spec list entry.
func FromTemplate(variants []map[string]any, specValues []map[string]any) *Set {
	s := FromVariants(variants)
	for _, specs := range specValues {
		for _, k := range sortedKeys(specs) {
			if specs[k] == nil {
				continue
			}
			s.AddText(Stringify(specs[k]))
		}
	}
	return s
}

func (s *Set) addVariant(v map[string]any) {
	// Map order is random; sort keys so Values is deterministic.
	for _, k := range sortedKeys(v) {
		if _, skip := SkipFields[k]; skip {
			continue
		}
		if v[k] == nil {
			continue
		}
		s.AddText(Stringify(v[k]))
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
