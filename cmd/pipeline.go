package cmd

import (
	"github.com/listingops/curator/internal/pipelinecmd"
	"github.com/spf13/cobra"
)

func newPipelineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Run the curation stages from the command line",
		Long: `Run the resolver and SKU builder on bundle files, run whole datasets in
batch, inspect what the stages see and report on batch results.`,
	}

	// Add pipeline subcommands
	cmd.AddCommand(pipelinecmd.NewResolveCmd())
	cmd.AddCommand(pipelinecmd.NewBuildCmd())
	cmd.AddCommand(pipelinecmd.NewRunCmd())
	cmd.AddCommand(pipelinecmd.NewBatchCmd())
	cmd.AddCommand(pipelinecmd.NewInspectCmd())
	cmd.AddCommand(pipelinecmd.NewReportCmd())

	return cmd
}
