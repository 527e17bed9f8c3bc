package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pipesearch",
		Short: "Hyperparameter search over machine-learning pipeline configurations",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "pipesearch.yaml", "config file path")
	root.AddCommand(newRunCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newReportCmd())
	return root
}
