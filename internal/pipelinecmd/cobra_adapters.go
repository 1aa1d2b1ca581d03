package pipelinecmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewResolveCmd creates the resolve command
func NewResolveCmd() *cobra.Command {
	var inputPath string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Deduplicate a carousel and place its spec image",
		Long: `Run the resolver stage on a single bundle.

The bundle is a JSON or YAML object with the carousel labels ("vision" or
"merged"), the duplicate detector output ("duplicates") and the goods record
("goods"). The resolver record is written to --output or stdout.`,
		Example: `  # Resolve a bundle and print the record
  curator pipeline resolve --input bundle.json

  # Keep the record for a later build
  curator pipeline resolve --input bundle.json --output resolved.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeResolve(cmd.Context(), cmd.OutOrStdout(), inputPath, outputPath)
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "Path to bundle file, .json or .yaml (required)")
	cmd.Flags().StringVar(&outputPath, "output", "", "Path to write the resolver record (default stdout)")

	_ = cmd.MarkFlagRequired("input")

	return cmd
}

// NewBuildCmd creates the build command
func NewBuildCmd() *cobra.Command {
	var inputPath string
	var resolvedPath string
	var templatesPath string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the SKU list from a resolver record",
		Long: `Run the SKU builder stage on a record produced by "pipeline resolve".

The category template is taken from the bundle's "templates" array or from the
template file given by --templates (or CURATOR_TEMPLATES). Bundle templates win
when both define the same name.`,
		Example: `  # Build from a saved resolver record
  curator pipeline build --input bundle.json --resolved resolved.json

  # Use a shared template file
  curator pipeline build --input bundle.json --resolved resolved.json --templates templates.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeBuild(cmd.Context(), cmd.OutOrStdout(), inputPath, resolvedPath, templatesPath, outputPath)
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "Path to bundle file (required)")
	cmd.Flags().StringVar(&resolvedPath, "resolved", "", "Path to resolver record (required)")
	cmd.Flags().StringVar(&templatesPath, "templates", "", "Path to template collection, .json or .yaml")
	cmd.Flags().StringVar(&outputPath, "output", "", "Path to write the final record (default stdout)")

	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("resolved")

	return cmd
}

// NewRunCmd creates the run command
func NewRunCmd() *cobra.Command {
	var inputPath string
	var templatesPath string
	var outputPath string
	var full bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run both stages on a bundle",
		Long: `Run the resolver and the SKU builder on a single bundle and write the final
record. With --full the whole run (ID, timings, resolver record and final
record) is written instead.`,
		Example: `  # Run the pipeline and print the final record
  curator pipeline run --input bundle.json

  # Save the whole run
  curator pipeline run --input bundle.yaml --templates templates.yaml --output run.json --full`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd.Context(), cmd.OutOrStdout(), inputPath, templatesPath, outputPath, full)
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "Path to bundle file (required)")
	cmd.Flags().StringVar(&templatesPath, "templates", "", "Path to template collection, .json or .yaml")
	cmd.Flags().StringVar(&outputPath, "output", "", "Path to write the output (default stdout)")
	cmd.Flags().BoolVar(&full, "full", false, "Write the whole run instead of the final record")

	_ = cmd.MarkFlagRequired("input")

	return cmd
}

// NewBatchCmd creates the batch command
func NewBatchCmd() *cobra.Command {
	var datasetPath string
	var templatesPath string
	var outputDir string
	var sampleSize int
	var concurrency int

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run the pipeline over a dataset of bundles",
		Long: `Run the pipeline over every bundle of a JSONL or Parquet dataset.

JSONL datasets hold one bundle object per line. Parquet datasets hold rows with
a "goods_id" column and a "payload" column carrying the bundle as JSON.

Results, a YAML summary and a Prometheus textfile are written to --output.`,
		Example: `  # Run the first 50 bundles
  curator pipeline batch --dataset bundles.jsonl --sample 50

  # Run a full Parquet export with 8 workers
  curator pipeline batch --dataset bundles.parquet --concurrency 8 --output ./batch_results`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(datasetPath); os.IsNotExist(err) {
				return fmt.Errorf("dataset file not found: %s", datasetPath)
			}
			return executeBatch(cmd.Context(), cmd.OutOrStdout(), datasetPath, templatesPath, outputDir, sampleSize, concurrency)
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "Path to .jsonl or .parquet dataset (required)")
	cmd.Flags().StringVar(&templatesPath, "templates", "", "Path to template collection, .json or .yaml")
	cmd.Flags().StringVar(&outputDir, "output", "./batch_results", "Output directory for results")
	cmd.Flags().IntVar(&sampleSize, "sample", 0, "Number of bundles to run (0 for all)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Number of concurrent runs")

	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

// NewInspectCmd creates the inspect command
func NewInspectCmd() *cobra.Command {
	var inputPath string
	var templatesPath string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the labels and sizes the pipeline sees for a bundle",
		Long: `Print the per-image label table of a bundle together with the derived size
signatures: the sizes found in the goods SKU list, the sizes of the selected
template and the single spec images the template would reject.`,
		Example: `  curator pipeline inspect --input bundle.json
  curator pipeline inspect --input bundle.json --templates templates.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeInspect(cmd.OutOrStdout(), inputPath, templatesPath)
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "Path to bundle file (required)")
	cmd.Flags().StringVar(&templatesPath, "templates", "", "Path to template collection, .json or .yaml")

	_ = cmd.MarkFlagRequired("input")

	return cmd
}

// NewReportCmd creates the report command
func NewReportCmd() *cobra.Command {
	var resultsDir string
	var format string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Report on a batch run",
		Long:  `Print the summary and per-item results of a "pipeline batch" run.`,
		Example: `  curator pipeline report --results ./batch_results
  curator pipeline report --results ./batch_results --format csv > items.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeReport(cmd.OutOrStdout(), resultsDir, format)
		},
	}

	cmd.Flags().StringVar(&resultsDir, "results", "", "Results directory (required)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, json, csv)")

	_ = cmd.MarkFlagRequired("results")

	return cmd
}
