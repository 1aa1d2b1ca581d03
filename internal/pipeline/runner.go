// Package pipeline runs the resolver and SKU builder stages in sequence.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/listingops/curator/internal/models"
	"github.com/listingops/curator/internal/resolver"
	"github.com/listingops/curator/internal/skubuilder"
	"github.com/listingops/curator/internal/templates"
)

const (
	StageResolve = "resolve"
	StageBuild   = "build"
)

// Stage is one step of a run. Its name labels logs and metrics.
type Stage interface {
	Name() string
}

var (
	_ Stage = (*resolver.Resolver)(nil)
	_ Stage = (*skubuilder.Builder)(nil)
)

// Recorder observes stage executions. metrics.Collector implements it.
type Recorder interface {
	ObserveStage(stage string, elapsed time.Duration, err error)
	ObserveResult(result *models.Result)
}

// Run is the outcome of one invocation.
type Run struct {
	ID        string         `json:"id"`
	GoodsID   string         `json:"goods_id,omitempty"`
	Resolved  *models.Result `json:"resolved,omitempty"`
	Result    *models.Result `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
}

type Runner struct {
	opts     resolver.Options
	catalog  *templates.Catalog
	recorder Recorder
	logger   *slog.Logger
}

type Option func(*Runner)

// WithTemplates sets templates available to every run. Templates carried by a
// bundle take precedence over these.
func WithTemplates(c *templates.Catalog) Option {
	return func(r *Runner) { r.catalog = c }
}

func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

func NewRunner(opts resolver.Options, options ...Option) *Runner {
	r := &Runner{opts: opts, logger: slog.Default()}
	for _, o := range options {
		o(r)
	}
	return r
}

// Run executes both stages.
func (r *Runner) Run(ctx context.Context, bundle models.Bundle) (*Run, error) {
	run, logger := r.start(bundle)

	resolved, err := r.resolve(ctx, bundle, logger)
	if err != nil {
		return r.finish(run, err)
	}
	run.Resolved = resolved

	result, err := r.build(ctx, bundle, resolved, logger)
	if err != nil {
		return r.finish(run, err)
	}
	run.Result = result
	return r.finish(run, nil)
}

// Resolve executes only the first stage.
func (r *Runner) Resolve(ctx context.Context, bundle models.Bundle) (*Run, error) {
	run, logger := r.start(bundle)

	resolved, err := r.resolve(ctx, bundle, logger)
	if err != nil {
		return r.finish(run, err)
	}
	run.Resolved = resolved
	run.Result = resolved
	return r.finish(run, nil)
}

// Build executes only the second stage on a record produced earlier.
func (r *Runner) Build(ctx context.Context, bundle models.Bundle, resolved *models.Result) (*Run, error) {
	run, logger := r.start(bundle)
	run.Resolved = resolved

	result, err := r.build(ctx, bundle, resolved, logger)
	if err != nil {
		return r.finish(run, err)
	}
	run.Result = result
	return r.finish(run, nil)
}

func (r *Runner) start(bundle models.Bundle) (*Run, *slog.Logger) {
	run := &Run{
		ID:        uuid.NewString(),
		GoodsID:   bundle.GoodsID,
		StartedAt: time.Now(),
	}
	logger := r.logger.With("run_id", run.ID)
	if bundle.GoodsID != "" {
		logger = logger.With("goods_id", bundle.GoodsID)
	}
	return run, logger
}

func (r *Runner) finish(run *Run, err error) (*Run, error) {
	run.Duration = time.Since(run.StartedAt)
	if err != nil {
		run.Error = err.Error()
		return run, err
	}
	if r.recorder != nil && run.Result != nil {
		r.recorder.ObserveResult(run.Result)
	}
	return run, nil
}

func (r *Runner) resolve(ctx context.Context, bundle models.Bundle, logger *slog.Logger) (*models.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stage := resolver.New(r.opts, logger)
	start := time.Now()
	result := stage.Resolve(bundle)
	r.observe(stage, start, nil)
	return result, nil
}

func (r *Runner) build(ctx context.Context, bundle models.Bundle, resolved *models.Result, logger *slog.Logger) (*models.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	catalog := templates.Merge(r.catalog, templates.New(bundle.Templates))
	stage := skubuilder.New(catalog, logger)
	start := time.Now()
	result, err := stage.Build(skubuilder.Input{
		Resolved:     resolved,
		Labels:       bundle.Labels,
		TemplateName: bundle.Goods.Config.TemplateName,
	})
	r.observe(stage, start, err)
	if err != nil {
		logger.Error("SKU build failed", "error", err)
		return nil, fmt.Errorf("failed to build sku list: %w", err)
	}
	return result, nil
}

func (r *Runner) observe(stage Stage, start time.Time, err error) {
	if r.recorder == nil {
		return
	}
	r.recorder.ObserveStage(stage.Name(), time.Since(start), err)
}
