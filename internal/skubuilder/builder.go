// Package skubuilder applies the selected category template to a resolved
// record: it re-filters single spec images against the template sizes and
// emits the finished SKU list.
package skubuilder

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/listingops/curator/internal/dimension"
	"github.com/listingops/curator/internal/models"
)

var (
	ErrNoTemplateName   = errors.New("category config has no template name")
	ErrTemplateNotFound = errors.New("template not found")
	ErrNoVariantTable   = errors.New("template has no variant table")
	ErrNoImages         = errors.New("image list is empty, no picture for variants")
)

// TemplateLookup finds a template by name or title.
type TemplateLookup interface {
	Lookup(key string) (models.Template, bool)
}

// Input is what the builder consumes besides the template collection.
type Input struct {
	Resolved     *models.Result
	Labels       models.LabelSource
	TemplateName string
}

type Builder struct {
	templates TemplateLookup
	logger    *slog.Logger
}

// New creates a builder over the given template lookup. A nil logger uses
// slog.Default().
func New(templates TemplateLookup, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{templates: templates, logger: logger}
}

func (b *Builder) Name() string {
	return "build"
}

// Build returns a copy of the resolved record with the filtered image list,
// the built SKU list, the filter log and the extended message.
func (b *Builder) Build(in Input) (*models.Result, error) {
	tpl, err := b.template(in.TemplateName)
	if err != nil {
		return nil, err
	}

	resolved := in.Resolved
	if resolved == nil {
		resolved = &models.Result{}
	}

	dims := dimension.FromTemplate(tpl.Data.Variants, tpl.Data.SpecValues())
	images, filterLog := FilterSingleSpec(resolved.Images(), in.Labels.Index(), dims)

	for _, r := range filterLog.Removed {
		b.logger.Debug("Removed single-spec image not in template", "url", r.URL, "dim", r.Dim)
	}

	if len(images) == 0 {
		return nil, ErrNoImages
	}
	first := images[0]

	skus := make([]models.SKURecord, 0, len(tpl.Data.Variants))
	for _, variant := range tpl.Data.Variants {
		skus = append(skus, BuildSKU(variant, first))
	}

	out := resolved.Clone()
	out.ImageList = images
	out.SKUList = skus
	out.SpecFilter = filterLog
	if resolved.Message != "" {
		out.Message = resolved.Message + "; " + filterLog.Reason
	} else {
		out.Message = filterLog.Reason
	}

	b.logger.Info("Built SKU list",
		"template", in.TemplateName,
		"variants", len(skus),
		"images", len(images),
		"removed_single_spec", len(filterLog.Removed))
	return out, nil
}

func (b *Builder) template(name string) (models.Template, error) {
	if name == "" {
		return models.Template{}, ErrNoTemplateName
	}
	if b.templates == nil {
		return models.Template{}, fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
	}
	tpl, ok := b.templates.Lookup(name)
	if !ok {
		return models.Template{}, fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
	}
	if tpl.DataErr != nil {
		return models.Template{}, fmt.Errorf("failed to decode template %q: %w", name, tpl.DataErr)
	}
	if len(tpl.Data.Variants) == 0 {
		return models.Template{}, fmt.Errorf("%w: %q", ErrNoVariantTable, name)
	}
	return tpl, nil
}
