package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/listingops/curator/internal/models"
	"github.com/listingops/curator/internal/pipeline"
	"github.com/listingops/curator/internal/resolver"
)

const bundleJSON = `{"goods_id":"g-1","vision":{"carousel":["P","B","C"],"labels":[{"image_type":"product_display"}]},"goods":{"sku_list":[],"_category_config":{"template_name":"Tote"}},"templates":[{"name":"Tote","data":{"productSkuSpecTableData":[{"productSkuId":"1","size":"18x22"}]}}]}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	return path
}

func TestNewLoader(t *testing.T) {
	path := "./items.parquet"
	loader := NewLoader(path)

	if loader.datasetPath != path {
		t.Errorf("Expected path %s, got %s", path, loader.datasetPath)
	}
}

func TestLoadJSONL(t *testing.T) {
	noID := strings.Replace(bundleJSON, `"goods_id":"g-1",`, "", 1)
	path := writeFile(t, "items.jsonl", bundleJSON+"\n\n"+noID+"\n")

	items, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	if items[0].GoodsID != "g-1" || items[0].Position != 1 {
		t.Errorf("Unexpected first item: %+v", items[0])
	}
	if items[1].GoodsID != "item-3" {
		t.Errorf("Expected generated ID item-3, got %q", items[1].GoodsID)
	}
	if len(items[0].Bundle.Labels.Carousel) != 3 {
		t.Errorf("Expected carousel to be parsed, got %v", items[0].Bundle.Labels.Carousel)
	}
}

func TestLoadJSONLMalformed(t *testing.T) {
	path := writeFile(t, "items.jsonl", bundleJSON+"\nnot json\n"+`{"templates":"bad"}`+"\n"+bundleJSON+"\n")

	if _, err := NewLoader(path).Load(); err == nil {
		t.Errorf("Expected strict load to fail on malformed line")
	}

	items, err := NewLoader(path).LoadSample(10)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("Expected malformed lines to be skipped, got %d items", len(items))
	}
	if items[1].Position != 4 {
		t.Errorf("Expected second item from line 4, got %d", items[1].Position)
	}
}

func TestLoadSampleLimit(t *testing.T) {
	path := writeFile(t, "items.jsonl", strings.Repeat(bundleJSON+"\n", 5))

	items, err := NewLoader(path).LoadSample(2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("Expected 2 items, got %d", len(items))
	}

	if _, err := NewLoader(path).LoadSample(0); err == nil {
		t.Errorf("Expected error for non-positive sample size")
	}
}

func TestLoadParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.parquet")
	noID := strings.Replace(bundleJSON, `"goods_id":"g-1",`, "", 1)
	rows := []Row{
		{GoodsID: "row-id", Payload: bundleJSON},
		{GoodsID: "g-2", Payload: noID},
		{GoodsID: "g-3", Payload: noID},
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		t.Fatalf("Failed to write parquet fixture: %v", err)
	}

	items, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(items))
	}
	if items[0].GoodsID != "g-1" {
		t.Errorf("Expected payload goods_id to win, got %q", items[0].GoodsID)
	}
	if items[1].GoodsID != "g-2" || items[1].Bundle.GoodsID != "g-2" {
		t.Errorf("Expected row goods_id to fill in, got %+v", items[1])
	}

	sample, err := NewLoader(path).LoadSample(2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(sample) != 2 {
		t.Errorf("Expected 2 sampled items, got %d", len(sample))
	}
}

func TestLoadUnsupported(t *testing.T) {
	path := writeFile(t, "items.csv", "a,b\n")
	if _, err := NewLoader(path).Load(); err == nil {
		t.Errorf("Expected error for unsupported format")
	}
}

type fakeRunner struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeRunner) Run(ctx context.Context, bundle models.Bundle) (*pipeline.Run, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	if bundle.GoodsID == "bad" {
		return &pipeline.Run{ID: "r-" + bundle.GoodsID}, errors.New("template not found")
	}
	return &pipeline.Run{ID: "r-" + bundle.GoodsID, Result: &models.Result{ImageList: []string{bundle.GoodsID}}}, nil
}

func TestProcess(t *testing.T) {
	ids := []string{"a", "bad", "c", "d", "e", "f"}
	items := make([]Item, len(ids))
	for i, id := range ids {
		items[i] = Item{Position: i + 1, GoodsID: id, Bundle: models.Bundle{GoodsID: id}}
	}

	runner := &fakeRunner{}
	outcomes := Process(context.Background(), runner, items, 2)

	if len(outcomes) != len(ids) {
		t.Fatalf("Expected %d outcomes, got %d", len(ids), len(outcomes))
	}
	for i, o := range outcomes {
		if o.GoodsID != ids[i] {
			t.Errorf("Expected outcome %d to be %s, got %s", i, ids[i], o.GoodsID)
		}
	}
	if outcomes[1].Error == "" || outcomes[1].Result() != nil {
		t.Errorf("Expected failure for bad item, got %+v", outcomes[1])
	}
	if r := outcomes[0].Result(); r == nil || r.ImageList[0] != "a" {
		t.Errorf("Expected result for first item, got %+v", outcomes[0])
	}
	if runner.peak.Load() > 2 {
		t.Errorf("Expected at most 2 concurrent runs, got %d", runner.peak.Load())
	}
}

func TestProcessCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := []Item{{Position: 1, GoodsID: "a"}, {Position: 2, GoodsID: "b"}}
	outcomes := Process(ctx, pipeline.NewRunner(resolver.DefaultOptions()), items, 1)

	for _, o := range outcomes {
		if o.Error == "" {
			t.Errorf("Expected cancelled outcome for %s", o.GoodsID)
		}
	}
}

func TestProcessWithPipeline(t *testing.T) {
	path := writeFile(t, "items.jsonl", bundleJSON+"\n")
	items, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	outcomes := Process(context.Background(), pipeline.NewRunner(resolver.DefaultOptions()), items, 4)
	if outcomes[0].Error != "" {
		t.Fatalf("Unexpected error: %s", outcomes[0].Error)
	}
	result := outcomes[0].Result()
	if len(result.SKUList) != 1 || result.SKUList[0].PicURL != "P" {
		t.Errorf("Unexpected sku list: %+v", result.SKUList)
	}
}
