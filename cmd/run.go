package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pipesearch/pipesearch/internal/config"
	"github.com/pipesearch/pipesearch/internal/pipegen"
	"github.com/pipesearch/pipesearch/internal/result"
	"github.com/pipesearch/pipesearch/internal/search"
	"github.com/pipesearch/pipesearch/internal/trial"
	"github.com/spf13/cobra"
)

var (
	flagMode         string
	flagTargetMetric string
	flagSampleNum    int
	flagPlot         bool
	flagSeed         int64
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a pipeline-search experiment",
		RunE:  runExperiment,
	}
	cmd.Flags().StringVar(&flagMode, "mode", "", "override run mode (train, evaluate)")
	cmd.Flags().StringVar(&flagTargetMetric, "target-metric", "", "override the target metric")
	cmd.Flags().IntVar(&flagSampleNum, "sample-num", 0, "override the random-search sample count")
	cmd.Flags().BoolVar(&flagPlot, "plot", false, "write score charts alongside the report")
	cmd.Flags().Int64Var(&flagSeed, "seed", 0, "seed for random search (0 = time-seeded)")
	return cmd
}

func runExperiment(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	applyOverrides(cfg)

	orch, lg, err := buildOrchestrator(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Experiment directory: %s\n", cfg.Experiment.Dir())
	if err := orch.Run(cmd.Context()); err != nil {
		return err
	}
	fmt.Printf("Log: %s\n", lg.Path())
	return nil
}

// applyOverrides folds command-line flags into the loaded config.
func applyOverrides(cfg *config.Config) {
	if flagMode != "" {
		cfg.Experiment.Mode = flagMode
	}
	if flagTargetMetric != "" {
		cfg.Experiment.TargetMetric = flagTargetMetric
	}
	if flagSampleNum > 0 {
		cfg.Search.SampleNum = flagSampleNum
	}
	if flagPlot {
		cfg.Experiment.Plot = true
	}
}

// buildOrchestrator wires the generator factory, executor and scorer from the
// config and constructs the orchestrator, which runs the validation pass.
func buildOrchestrator(ctx context.Context, cfg *config.Config) (*search.Orchestrator, *result.Log, error) {
	exec, err := buildExecutor(&cfg.Executor)
	if err != nil {
		return nil, nil, err
	}
	var scorer search.Scorer
	if cfg.CrossVal.Enabled {
		scorer = &trial.CrossValidator{Executor: exec}
	}

	lg := result.NewLog(cfg.Experiment.Name, cfg.Experiment.Root,
		cfg.Experiment.Date, cfg.Experiment.Mode, cfg.Experiment.Info)

	newGen := func(validationMode bool) (search.Generator, error) {
		return pipegen.New(pipegen.Opts{
			ConfigPath: cfg.Search.PipelineConfig,
			SavePath:   cfg.Experiment.SavePath(),
			SampleNum:  cfg.Search.SampleNum,
			Search:     cfg.Search.Enabled,
			SearchType: cfg.Search.Type,
			TestMode:   validationMode,
			CrossVal:   cfg.CrossVal.Enabled,
			Seed:       flagSeed,
		})
	}

	orch, err := search.New(ctx, search.Opts{
		Config:       cfg,
		NewGenerator: newGen,
		Executor:     exec,
		Scorer:       scorer,
		Log:          lg,
		Out:          os.Stdout,
	})
	if err != nil {
		return nil, nil, err
	}
	return orch, lg, nil
}

func buildExecutor(x *config.Executor) (trial.Executor, error) {
	switch x.Type {
	case "container":
		return &trial.ContainerExecutor{
			Image:   x.Image,
			Command: x.Command,
			Env:     x.Env,
			Timeout: time.Duration(x.TimeoutMinutes) * time.Minute,
		}, nil
	case "command":
		return &trial.CommandExecutor{
			Command: x.Command,
			Env:     x.Env,
		}, nil
	default:
		return nil, fmt.Errorf("unknown executor type %q", x.Type)
	}
}
