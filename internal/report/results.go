package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/listingops/curator/internal/batch"
)

const resultsFile = "results.json"

// Config describes how a batch was run.
type Config struct {
	DatasetPath      string    `json:"dataset_path" yaml:"datasetpath"`
	SampleSize       int       `json:"sample_size" yaml:"samplesize"`
	Concurrency      int       `json:"concurrency" yaml:"concurrency"`
	MinImages        int       `json:"min_images" yaml:"minimages"`
	DefaultSpecIndex int       `json:"default_spec_index" yaml:"defaultspecindex"`
	TemplatesPath    string    `json:"templates_path,omitempty" yaml:"templatespath,omitempty"`
	StartedAt        time.Time `json:"started_at" yaml:"-"`
}

// Results is everything a batch run leaves behind.
type Results struct {
	Config   Config          `json:"config"`
	Summary  *Summary        `json:"summary"`
	Outcomes []batch.Outcome `json:"outcomes"`
}

// SaveResults writes results.json into outputDir.
func SaveResults(results *Results, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	resultsPath := filepath.Join(outputDir, resultsFile)
	file, err := os.Create(resultsPath)
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(results); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	return nil
}

// LoadResults reads results.json from resultsDir.
func LoadResults(resultsDir string) (*Results, error) {
	resultsPath := filepath.Join(resultsDir, resultsFile)
	file, err := os.Open(resultsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open results file: %w", err)
	}
	defer file.Close()

	var results Results
	if err := json.NewDecoder(file).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}
	if results.Summary == nil {
		results.Summary = Aggregate(results.Outcomes)
	}

	return &results, nil
}

// yamlItem is the compact per-item entry of the YAML summary.
type yamlItem struct {
	GoodsID        string   `yaml:"goodsid"`
	Error          string   `yaml:"error,omitempty"`
	FinalImages    []string `yaml:"finalimages,omitempty"`
	RemovedDups    int      `yaml:"removedduplicates"`
	SpecSource     string   `yaml:"specsource,omitempty"`
	FilterRemovals int      `yaml:"filterremovals"`
	SKUs           int      `yaml:"skus"`
	Message        string   `yaml:"message,omitempty"`
}

type yamlSpec struct {
	Config  Config     `yaml:"config"`
	Summary *Summary   `yaml:"summary"`
	Items   []yamlItem `yaml:"items"`
}

// SaveYAML writes a readable summary of results to path.
func SaveYAML(path string, results *Results) error {
	spec := yamlSpec{
		Config:  results.Config,
		Summary: results.Summary,
		Items:   make([]yamlItem, 0, len(results.Outcomes)),
	}

	for _, o := range results.Outcomes {
		item := yamlItem{
			GoodsID: o.GoodsID,
			Error:   o.Error,
		}
		if r := o.Result(); r != nil {
			item.FinalImages = r.ImageList
			item.RemovedDups = r.DeduplicationInfo.ToDeleteCount
			if r.SpecPlacement != nil {
				item.SpecSource = r.SpecPlacement.Source
			}
			if r.SpecFilter != nil {
				item.FilterRemovals = len(r.SpecFilter.Removed)
			}
			item.SKUs = len(r.SKUList)
			item.Message = r.Message
		}
		spec.Items = append(spec.Items, item)
	}

	data, err := yaml.Marshal(&spec)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write YAML file: %w", err)
	}

	return nil
}
