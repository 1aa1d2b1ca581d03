package pipelinecmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/listingops/curator/internal/batch"
	"github.com/listingops/curator/internal/metrics"
	"github.com/listingops/curator/internal/pipeline"
	"github.com/listingops/curator/internal/report"
)

func executeBatch(ctx context.Context, w io.Writer, datasetPath, templatesPath, outputDir string, sampleSize, concurrency int) error {
	started := time.Now()
	slog.Info("Starting batch run", "dataset", datasetPath, "sample", sampleSize, "concurrency", concurrency)

	loader := batch.NewLoader(datasetPath)
	var items []batch.Item
	var err error
	if sampleSize > 0 {
		items, err = loader.LoadSample(sampleSize)
	} else {
		items, err = loader.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	slog.Info("Dataset loaded", "items", len(items))

	collector := metrics.New()
	runner, cfg, err := newRunner(templatesPath, pipeline.WithRecorder(collector))
	if err != nil {
		return err
	}

	outcomes := batch.Process(ctx, runner, items, concurrency)

	results := &report.Results{
		Config: report.Config{
			DatasetPath:      datasetPath,
			SampleSize:       sampleSize,
			Concurrency:      concurrency,
			MinImages:        cfg.MinImages,
			DefaultSpecIndex: cfg.DefaultSpecIndex,
			TemplatesPath:    cfg.TemplatesPath,
			StartedAt:        started,
		},
		Summary:  report.Aggregate(outcomes),
		Outcomes: outcomes,
	}

	slog.Info("Saving results", "output", outputDir)
	if err := report.SaveResults(results, outputDir); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	yamlPath := filepath.Join(outputDir, fmt.Sprintf("summary-%s.yaml", started.Format("2006-01-02_15-04-05")))
	if err := report.SaveYAML(yamlPath, results); err != nil {
		return fmt.Errorf("failed to save YAML summary: %w", err)
	}

	if err := collector.WriteTextfile(filepath.Join(outputDir, "metrics.prom")); err != nil {
		return fmt.Errorf("failed to save metrics: %w", err)
	}

	report.PrintSummary(w, results.Summary)

	fmt.Fprintf(w, "\nResults saved to: %s\n", outputDir)
	fmt.Fprintf(w, "\nGenerate detailed report with:\n")
	fmt.Fprintf(w, "  curator pipeline report --results %s\n", outputDir)

	return nil
}

func executeReport(w io.Writer, resultsDir, format string) error {
	results, err := report.LoadResults(resultsDir)
	if err != nil {
		return err
	}
	return report.Write(w, results, format)
}
