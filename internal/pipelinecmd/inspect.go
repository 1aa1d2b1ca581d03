package pipelinecmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/listingops/curator/internal/dimension"
	"github.com/listingops/curator/internal/models"
	"github.com/listingops/curator/internal/records"
	"github.com/listingops/curator/internal/templates"
)

func executeInspect(w io.Writer, inputPath, templatesPath string) error {
	bundle, err := records.LoadBundle(inputPath)
	if err != nil {
		return err
	}
	base, cfg, err := loadCatalog(templatesPath)
	if err != nil {
		return err
	}
	catalog := templates.Merge(base, templates.New(bundle.Templates))

	index := bundle.Labels.Index()
	goodsCfg := bundle.Goods.Config

	fmt.Fprintf(w, "Goods ID:        %s\n", bundle.GoodsID)
	fmt.Fprintf(w, "Images:          %d (labels: %d)\n", len(bundle.Labels.Carousel), len(bundle.Labels.Labels))
	fmt.Fprintf(w, "Multi-spec:      %v\n", goodsCfg.IsMultiSpec)
	fmt.Fprintf(w, "Target index:    %d\n", goodsCfg.TargetIndex(cfg.DefaultSpecIndex))
	if goodsCfg.SpecImageURL != "" {
		fmt.Fprintf(w, "Default spec:    %s\n", goodsCfg.SpecImageURL)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "%-4s %-40s %-16s %-12s %s\n", "#", "URL", "TYPE", "SUBTYPE", "SIZE")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for i, u := range bundle.Labels.Carousel {
		label, _ := index.Lookup(u)
		size := dimension.NormalizeSpec(label.SpecDimensions)
		raw := dimension.Stringify(label.SpecDimensions)
		if raw != "" && raw != size {
			size = fmt.Sprintf("%s (%s)", size, raw)
		}
		fmt.Fprintf(w, "%-4d %-40s %-16s %-12s %s\n", i, truncate(u, 40), label.ImageType, label.SpecSubtype, size)
	}
	fmt.Fprintln(w, strings.Repeat("=", 80))

	fmt.Fprintf(w, "\nDuplicate groups: %d\n", len(bundle.Duplicates.Groups))
	for _, group := range bundle.Duplicates.Groups {
		fmt.Fprintf(w, "  %s\n", strings.Join(group, ", "))
	}

	approx := dimension.FromVariants(bundle.Goods.SKUList)
	fmt.Fprintf(w, "\nGoods SKU sizes:    %s\n", joinOrNone(approx.Values()))

	name := goodsCfg.TemplateName
	if name == "" {
		fmt.Fprintln(w, "Template:           (none configured)")
		return nil
	}
	tpl, ok := catalog.Lookup(name)
	if !ok {
		fmt.Fprintf(w, "Template:           %s (not found; known: %s)\n", name, joinOrNone(catalog.Names()))
		return nil
	}
	if tpl.DataErr != nil {
		fmt.Fprintf(w, "Template:           %s (unreadable: %v)\n", name, tpl.DataErr)
		return nil
	}
	dims := dimension.FromTemplate(tpl.Data.Variants, tpl.Data.SpecValues())
	fmt.Fprintf(w, "Template:           %s (%d variants)\n", name, len(tpl.Data.Variants))
	fmt.Fprintf(w, "Template sizes:     %s\n", joinOrNone(dims.Values()))

	var rejected []string
	for _, u := range bundle.Labels.Carousel {
		label, _ := index.Lookup(u)
		if label.SpecSubtype != models.SpecSubtypeSingle {
			continue
		}
		if size := dimension.NormalizeSpec(label.SpecDimensions); !dims.Accepts(size) {
			rejected = append(rejected, fmt.Sprintf("%s (%s)", u, size))
		}
	}
	fmt.Fprintf(w, "Rejected by template: %s\n", joinOrNone(rejected))

	return nil
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "(none)"
	}
	return strings.Join(values, ", ")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
