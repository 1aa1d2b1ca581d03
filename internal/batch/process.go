package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/listingops/curator/internal/models"
	"github.com/listingops/curator/internal/pipeline"
)

// Runner runs one bundle. *pipeline.Runner implements it.
type Runner interface {
	Run(ctx context.Context, bundle models.Bundle) (*pipeline.Run, error)
}

// Process runs items with at most concurrency in flight. Each item is an
// independent invocation; a failing item never stops the others. Outcomes
// keep the order of items.
func Process(ctx context.Context, runner Runner, items []Item, concurrency int) []Outcome {
	if concurrency <= 0 {
		concurrency = 1
	}

	slog.Info("Processing items", "items", len(items), "concurrency", concurrency)

	type indexed struct {
		idx     int
		outcome Outcome
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, concurrency)
	outcomesChan := make(chan indexed, len(items))

	for i, item := range items {
		wg.Add(1)
		go func(idx int, item Item) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
			case <-ctx.Done():
				outcomesChan <- indexed{idx, Outcome{Position: item.Position, GoodsID: item.GoodsID, Error: ctx.Err().Error()}}
				return
			}
			defer func() { <-semaphore }()

			slog.Debug("Processing item", "goods_id", item.GoodsID, "progress", fmt.Sprintf("%d/%d", idx+1, len(items)))

			outcomesChan <- indexed{idx, processItem(ctx, runner, item)}
		}(i, item)
	}

	go func() {
		wg.Wait()
		close(outcomesChan)
	}()

	outcomes := make([]Outcome, len(items))
	for o := range outcomesChan {
		outcomes[o.idx] = o.outcome
	}
	return outcomes
}

func processItem(ctx context.Context, runner Runner, item Item) Outcome {
	start := time.Now()
	outcome := Outcome{
		Position: item.Position,
		GoodsID:  item.GoodsID,
	}

	run, err := runner.Run(ctx, item.Bundle)
	outcome.Run = run
	outcome.Duration = time.Since(start)
	if err != nil {
		outcome.Error = err.Error()
		slog.Warn("Item failed", "goods_id", item.GoodsID, "err", err)
	}
	return outcome
}
