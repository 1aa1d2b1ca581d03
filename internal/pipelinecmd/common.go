// Package pipelinecmd holds the cobra subcommands of "curator pipeline".
package pipelinecmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/listingops/curator/internal/config"
	"github.com/listingops/curator/internal/pipeline"
	"github.com/listingops/curator/internal/templates"
)

// newRunner builds a runner from the environment. templatesPath, when set,
// replaces CURATOR_TEMPLATES.
func newRunner(templatesPath string, options ...pipeline.Option) (*pipeline.Runner, config.Config, error) {
	catalog, cfg, err := loadCatalog(templatesPath)
	if err != nil {
		return nil, cfg, err
	}
	if catalog != nil {
		options = append(options, pipeline.WithTemplates(catalog))
	}
	return pipeline.NewRunner(cfg.ResolverOptions(), options...), cfg, nil
}

// loadCatalog reads the configuration and the template file it names, if any.
func loadCatalog(templatesPath string) (*templates.Catalog, config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, cfg, err
	}
	if templatesPath != "" {
		cfg.TemplatesPath = templatesPath
	}
	if cfg.TemplatesPath == "" {
		return nil, cfg, nil
	}

	catalog, err := templates.LoadFile(cfg.TemplatesPath)
	if err != nil {
		return nil, cfg, fmt.Errorf("failed to load templates: %w", err)
	}
	slog.Debug("Loaded template file", "path", cfg.TemplatesPath, "templates", catalog.Len())
	return catalog, cfg, nil
}

// writeOutput writes v as indented JSON to path, or to w when path is empty.
func writeOutput(w io.Writer, path string, v any) error {
	if path == "" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	slog.Info("Output written", "path", path)
	return nil
}
