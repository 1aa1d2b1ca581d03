// Package batch loads bundle datasets and runs them through the pipeline.
package batch

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/listingops/curator/internal/models"
	"github.com/listingops/curator/internal/records"
)

// maxLineSize bounds a single JSONL record.
const maxLineSize = 10 * 1024 * 1024

// Loader reads bundle datasets.
type Loader struct {
	datasetPath string
}

func NewLoader(datasetPath string) *Loader {
	return &Loader{
		datasetPath: datasetPath,
	}
}

// Load reads every item from a .jsonl/.json or .parquet file. A malformed
// record fails the whole load.
func (l *Loader) Load() ([]Item, error) {
	ext := strings.ToLower(filepath.Ext(l.datasetPath))

	switch ext {
	case ".parquet":
		return l.loadParquet(0, true)
	case ".jsonl", ".json":
		return l.loadJSONL(0, true)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl)", ext)
	}
}

// LoadSample reads up to limit items, skipping malformed records.
func (l *Loader) LoadSample(limit int) ([]Item, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("sample size must be positive, got %d", limit)
	}

	ext := strings.ToLower(filepath.Ext(l.datasetPath))

	switch ext {
	case ".parquet":
		return l.loadParquet(limit, false)
	case ".jsonl", ".json":
		return l.loadJSONL(limit, false)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", ext)
	}
}

func (l *Loader) loadJSONL(limit int, strict bool) ([]Item, error) {
	slog.Debug("Opening JSONL file", "path", l.datasetPath)

	file, err := os.Open(l.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	var items []Item
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNum := 0
	for scanner.Scan() {
		if limit > 0 && len(items) >= limit {
			break
		}
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		item, err := decodeItem(lineNum, line, "")
		if err != nil {
			if strict {
				return nil, fmt.Errorf("failed to parse bundle at line %d: %w", lineNum, err)
			}
			slog.Warn("Skipping malformed bundle", "line", lineNum, "err", err)
			continue
		}
		items = append(items, item)

		if lineNum%1000 == 0 {
			slog.Debug("Reading JSONL", "lines_read", lineNum)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading dataset: %w", err)
	}

	slog.Debug("Finished reading JSONL file", "total_items", len(items), "total_lines", lineNum)

	return items, nil
}

func (l *Loader) loadParquet(limit int, strict bool) ([]Item, error) {
	slog.Debug("Opening Parquet file", "path", l.datasetPath, "limit", limit)

	file, err := os.Open(l.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet file opened successfully", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	var items []Item
	rows := make([]Row, 128)
	rowNum := 0
	batchNum := 0

	for limit <= 0 || len(items) < limit {
		n, readErr := reader.Read(rows)
		if n > 0 {
			batchNum++
			for _, row := range rows[:n] {
				if limit > 0 && len(items) >= limit {
					break
				}
				rowNum++
				item, err := decodeItem(rowNum, []byte(row.Payload), row.GoodsID)
				if err != nil {
					if strict {
						return nil, fmt.Errorf("failed to parse bundle at row %d: %w", rowNum, err)
					}
					slog.Warn("Skipping malformed bundle", "row", rowNum, "err", err)
					continue
				}
				items = append(items, item)
			}
			slog.Debug("Read batch from Parquet", "batch", batchNum, "rows_in_batch", n, "total_items", len(items))
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read parquet rows: %w", readErr)
		}
	}

	slog.Debug("Finished reading Parquet file", "total_items", len(items), "total_batches", batchNum)

	return items, nil
}

// decodeItem parses one bundle. goodsID fills in a missing goods_id.
func decodeItem(position int, payload []byte, goodsID string) (Item, error) {
	raw, err := records.DecodeJSON(bytes.NewReader(payload))
	if err != nil {
		return Item{}, err
	}
	bundle, err := records.ParseBundle(raw)
	if err != nil {
		return Item{}, err
	}
	if bundle.GoodsID == "" {
		bundle.GoodsID = goodsID
	}

	return Item{
		Position: position,
		GoodsID:  itemID(position, bundle),
		Bundle:   bundle,
	}, nil
}

func itemID(position int, bundle models.Bundle) string {
	if bundle.GoodsID != "" {
		return bundle.GoodsID
	}
	return fmt.Sprintf("item-%d", position)
}
