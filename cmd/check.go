package cmd

import (
	"fmt"

	"github.com/pipesearch/pipesearch/internal/config"
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Dry-run every candidate against a tiny dataset",
		Long: "Enumerate the full search space and run each candidate once against a small " +
			"fixed dataset, surfacing structural and configuration errors without committing " +
			"to the full experiment.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			applyOverrides(cfg)

			// Construction runs the validation pass.
			if _, _, err := buildOrchestrator(cmd.Context(), cfg); err != nil {
				return err
			}
			fmt.Println("All candidates passed validation.")
			return nil
		},
	}
}
