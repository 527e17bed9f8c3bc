package cmd

import (
	"fmt"

	"github.com/pipesearch/pipesearch/internal/config"
	"github.com/pipesearch/pipesearch/internal/pipegen"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the search space without running anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			gen, err := pipegen.New(pipegen.Opts{
				ConfigPath: cfg.Search.PipelineConfig,
				SavePath:   cfg.Experiment.SavePath(),
				SampleNum:  cfg.Search.SampleNum,
				Search:     cfg.Search.Enabled,
				SearchType: cfg.Search.Type,
				CrossVal:   cfg.CrossVal.Enabled,
			})
			if err != nil {
				return err
			}

			dims := gen.Dimensions()
			fmt.Printf("Search type: %s\n", cfg.Search.Type)
			fmt.Printf("Dimensions (%d):\n", len(dims))
			for _, d := range dims {
				fmt.Printf("  - %s: %d values\n", d.Path, d.Values)
			}
			fmt.Printf("\nCandidates to run: %d\n", gen.Length())
			return nil
		},
	}
}
