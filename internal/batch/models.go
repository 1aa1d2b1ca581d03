package batch

import (
	"time"

	"github.com/listingops/curator/internal/models"
	"github.com/listingops/curator/internal/pipeline"
)

// Row is one row of a Parquet dataset. Payload holds the bundle as JSON.
type Row struct {
	GoodsID string `json:"goods_id" parquet:"goods_id"`
	Payload string `json:"payload" parquet:"payload"`
}

// Item is one bundle read from a dataset.
type Item struct {
	// Position is the 1-based line or row number in the source file.
	Position int
	GoodsID  string
	Bundle   models.Bundle
}

// Outcome is the result of running one Item.
type Outcome struct {
	Position int           `json:"position"`
	GoodsID  string        `json:"goods_id"`
	Run      *pipeline.Run `json:"run,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Result returns the final record of the outcome, if any.
func (o Outcome) Result() *models.Result {
	if o.Run == nil {
		return nil
	}
	return o.Run.Result
}
