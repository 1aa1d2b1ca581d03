package pipelinecmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/listingops/curator/internal/records"
)

func executeResolve(ctx context.Context, w io.Writer, inputPath, outputPath string) error {
	bundle, err := records.LoadBundle(inputPath)
	if err != nil {
		return err
	}

	runner, _, err := newRunner("")
	if err != nil {
		return err
	}

	run, err := runner.Resolve(ctx, bundle)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", inputPath, err)
	}

	slog.Info("Resolved", "run_id", run.ID, "images", len(run.Result.ImageList), "message", run.Result.Message)
	return writeOutput(w, outputPath, run.Result)
}

func executeBuild(ctx context.Context, w io.Writer, inputPath, resolvedPath, templatesPath, outputPath string) error {
	bundle, err := records.LoadBundle(inputPath)
	if err != nil {
		return err
	}
	resolved, err := records.LoadResult(resolvedPath)
	if err != nil {
		return fmt.Errorf("failed to load resolved record: %w", err)
	}

	runner, _, err := newRunner(templatesPath)
	if err != nil {
		return err
	}

	run, err := runner.Build(ctx, bundle, resolved)
	if err != nil {
		return err
	}

	slog.Info("Built", "run_id", run.ID, "images", len(run.Result.ImageList), "skus", len(run.Result.SKUList))
	return writeOutput(w, outputPath, run.Result)
}

func executeRun(ctx context.Context, w io.Writer, inputPath, templatesPath, outputPath string, full bool) error {
	bundle, err := records.LoadBundle(inputPath)
	if err != nil {
		return err
	}

	runner, _, err := newRunner(templatesPath)
	if err != nil {
		return err
	}

	run, err := runner.Run(ctx, bundle)
	if err != nil {
		return err
	}

	slog.Info("Pipeline finished",
		"run_id", run.ID,
		"goods_id", run.GoodsID,
		"images", len(run.Result.ImageList),
		"skus", len(run.Result.SKUList),
		"duration", run.Duration)

	if full {
		return writeOutput(w, outputPath, run)
	}
	return writeOutput(w, outputPath, run.Result)
}
