// Package dimension normalizes physical size strings ("15x22", "5 x 18 x 22 cm")
// into comparable signatures and matches image labels against template sizes.
package dimension

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	// pairRe matches a two-number size such as "15x22", "15.5X22" or "15×22".
	pairRe = regexp.MustCompile(`\d+(?:\.\d+)?[xX×]\d+(?:\.\d+)?`)

	numberRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

	separatorRe = regexp.MustCompile(`[xX×]`)

	leadingFloatRe = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)
)

// Canonical extracts the first "NxM" size from text and renders it with whole
// numbers stripped of their decimal part, e.g. "15.0x22.0 cm" -> "15x22".
// Returns an empty string when text holds no size.
func Canonical(text string) string {
	m := pairRe.FindString(strings.TrimSpace(text))
	if m == "" {
		return ""
	}
	parts := separatorRe.Split(m, 2)
	if len(parts) != 2 {
		return ""
	}
	a, errA := strconv.ParseFloat(parts[0], 64)
	b, errB := strconv.ParseFloat(parts[1], 64)
	if errA != nil || errB != nil {
		return ""
	}
	return formatWhole(a) + "x" + formatWhole(b)
}

// NormalizeSpec turns a label's spec_dimensions value into an order-independent
// signature: every number found, sorted ascending, joined with "x".
// value may be a string, a number, or a {cm, inches} object (cm preferred).
// Returns an empty string when no number can be found.
func NormalizeSpec(value any) string {
	text := specText(value)
	if text == "" {
		return ""
	}

	found := numberRe.FindAllString(text, -1)
	nums := make([]float64, 0, len(found))
	for _, s := range found {
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			continue
		}
		nums = append(nums, n)
	}
	if len(nums) == 0 {
		return ""
	}

	sort.Float64s(nums)
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = formatRounded(n)
	}
	return strings.Join(parts, "x")
}

// MatchesTemplate reports whether every number of the template signature also
// appears in the image signature. The template needs at least two numbers; an
// image signature with an extra third dimension still matches.
func MatchesTemplate(imageDim, templateDim string) bool {
	if imageDim == "" || templateDim == "" {
		return false
	}

	imageNums := make(map[float64]struct{})
	for _, n := range splitNumbers(imageDim) {
		imageNums[n] = struct{}{}
	}

	templateNums := splitNumbers(templateDim)
	if len(templateNums) < 2 {
		return false
	}
	for _, n := range templateNums {
		if _, ok := imageNums[n]; !ok {
			return false
		}
	}
	return true
}

// LeadingFloat parses the numeric prefix of s, so "12.5cm" yields 12.5.
func LeadingFloat(s string) (float64, bool) {
	m := leadingFloatRe.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Stringify renders a decoded JSON value the way a loosely typed upstream
// would print it: arrays are comma-joined, objects and nil render empty.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case interface{ String() string }:
		// json.Number and friends
		return t.String()
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = Stringify(item)
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(t, ",")
	default:
		return ""
	}
}

func splitNumbers(sig string) []float64 {
	var nums []float64
	for _, p := range separatorRe.Split(strings.TrimSpace(sig), -1) {
		n, ok := LeadingFloat(p)
		if !ok {
			continue
		}
		nums = append(nums, n)
	}
	return nums
}

func specText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any:
		if cm := Stringify(v["cm"]); cm != "" {
			return cm
		}
		return Stringify(v["inches"])
	default:
		return Stringify(v)
	}
}

func formatWhole(n float64) string {
	if n == math.Round(n) {
		return strconv.FormatFloat(math.Round(n), 'f', -1, 64)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func formatRounded(n float64) string {
	if n == math.Round(n) {
		return strconv.FormatFloat(math.Round(n), 'f', -1, 64)
	}
	return strconv.FormatFloat(math.Round(n*100)/100, 'f', -1, 64)
}
