package cmd

import (
	"os"
	"path/filepath"

	"github.com/pipesearch/pipesearch/internal/config"
	"github.com/pipesearch/pipesearch/internal/report"
	"github.com/pipesearch/pipesearch/internal/result"
	"github.com/spf13/cobra"
)

var flagFormat string

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [experiment-dir]",
		Short: "Summarize a stored experiment log",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var expDir string
			if len(args) > 0 {
				expDir = args[0]
			} else {
				cfg, err := config.Load(cfgFile)
				if err != nil {
					return err
				}
				expDir = cfg.Experiment.Dir()
			}

			name := filepath.Base(expDir)
			lg, err := result.ReadLog(filepath.Join(expDir, name+".json"))
			if err != nil {
				return err
			}
			return report.Generate(lg, flagFormat, lg.Experiment.TargetMetric, os.Stdout)
		},
	}
	cmd.Flags().StringVar(&flagFormat, "format", "table", "output format (table, markdown, json)")
	return cmd
}
