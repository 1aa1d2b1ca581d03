package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/listingops/curator/internal/models"
)

// Write renders results in the given format: text, json or csv.
func Write(w io.Writer, results *Results, format string) error {
	switch format {
	case "text", "":
		return WriteText(w, results)
	case "json":
		return WriteJSON(w, results)
	case "csv":
		return WriteCSV(w, results)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func PrintSummary(w io.Writer, s *Summary) {
	fmt.Fprintln(w, "\n========================================")
	fmt.Fprintln(w, "BATCH SUMMARY")
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Total Items:           %d\n", s.TotalItems)
	fmt.Fprintf(w, "Succeeded:             %d\n", s.Succeeded)
	fmt.Fprintf(w, "Failed:                %d\n", s.Failed)
	for _, reason := range sortedKeys(s.Failures) {
		fmt.Fprintf(w, "  %-20s %d\n", reason+":", s.Failures[reason])
	}

	fmt.Fprintln(w, "\nResolver:")
	fmt.Fprintf(w, "  Deduplicated items:  %d\n", s.DeduplicatedItems)
	fmt.Fprintf(w, "  Duplicates removed:  %d\n", s.DuplicatesRemoved)
	fmt.Fprintf(w, "  Duplicates kept:     %d\n", s.DuplicatesKept)
	for _, source := range []string{models.PlacementLabeled, models.PlacementFallback, models.PlacementNone} {
		fmt.Fprintf(w, "  Spec %-15s %d\n", source+":", s.Placements[source])
	}

	fmt.Fprintln(w, "\nSKU builder:")
	fmt.Fprintf(w, "  Spec filter removed: %d\n", s.SpecFilterRemoved)
	fmt.Fprintf(w, "  SKUs built:          %d\n", s.SKUsBuilt)

	fmt.Fprintf(w, "\nAverage final images:  %.2f\n", s.AverageFinalImages)
	fmt.Fprintf(w, "Average duration:      %s\n", s.AverageDuration)
	fmt.Fprintln(w, "========================================")
}

func WriteText(w io.Writer, results *Results) error {
	PrintSummary(w, results.Summary)

	fmt.Fprintln(w, "\nItems:")
	for _, o := range results.Outcomes {
		if o.Error != "" {
			fmt.Fprintf(w, "  %s: FAILED (%s)\n", o.GoodsID, truncate(o.Error, 100))
			continue
		}
		r := o.Result()
		if r == nil {
			continue
		}
		fmt.Fprintf(w, "  %s: %d images, %d skus\n", o.GoodsID, len(r.ImageList), len(r.SKUList))
		if r.Message != "" {
			fmt.Fprintf(w, "    %s\n", truncate(r.Message, 160))
		}
	}
	return nil
}

func WriteJSON(w io.Writer, results *Results) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}

var csvHeader = []string{
	"Goods ID", "Position", "Error", "Original Count", "Duplicates Removed",
	"Spec Source", "Spec Index", "Filter Removed", "Final Count", "SKUs", "Duration (ms)",
}

// WriteCSV writes one row per item.
func WriteCSV(w io.Writer, results *Results) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for _, o := range results.Outcomes {
		row := []string{o.GoodsID, strconv.Itoa(o.Position), o.Error}

		if r := o.Result(); r != nil {
			source, index := models.PlacementNone, ""
			if r.SpecPlacement != nil {
				source = r.SpecPlacement.Source
				if source != models.PlacementNone {
					index = strconv.Itoa(r.SpecPlacement.Index)
				}
			}
			filtered := 0
			if r.SpecFilter != nil {
				filtered = len(r.SpecFilter.Removed)
			}
			row = append(row,
				strconv.Itoa(r.DeduplicationInfo.OriginalCount),
				strconv.Itoa(r.DeduplicationInfo.ToDeleteCount),
				source,
				index,
				strconv.Itoa(filtered),
				strconv.Itoa(len(r.ImageList)),
				strconv.Itoa(len(r.SKUList)),
			)
		} else {
			row = append(row, "", "", "", "", "", "", "")
		}
		row = append(row, strconv.FormatInt(o.Duration.Milliseconds(), 10))

		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
