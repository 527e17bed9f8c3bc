// Package search drives a pipeline-search experiment: a dry-run validation
// pass over every candidate, the full trial loop with per-dataset best
// tracking, checkpoint persistence, and end-of-run artifact retention.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
	"math"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/pipesearch/pipesearch/internal/config"
	"github.com/pipesearch/pipesearch/internal/pipegen"
	"github.com/pipesearch/pipesearch/internal/report"
	"github.com/pipesearch/pipesearch/internal/result"
)

const (
	ModeTrain    = "train"
	ModeEvaluate = "evaluate"

	basicReader = "basic_classification_reader"
)

var (
	ErrUnsupportedMode     = errors.New(`run mode must be "train" or "evaluate"`)
	ErrBadReader           = errors.New("dataset reader is not a basic classification reader")
	ErrMissingTargetMetric = errors.New("target metric missing from test and valid splits")
)

// Generator produces a lazy, finite sequence of resolved candidates and
// reports the total count up front.
type Generator interface {
	Length() int
	Pipelines() iter.Seq[pipegen.Candidate]
}

// Executor runs a single candidate in the given mode.
type Executor interface {
	Execute(ctx context.Context, pipe pipegen.Candidate, toTrain, toValidate bool) (result.Metrics, error)
}

// Scorer runs a candidate across folds and returns the aggregated score.
type Scorer interface {
	Score(ctx context.Context, pipe pipegen.Candidate, nFolds int) (map[string]float64, error)
}

type Opts struct {
	Config *config.Config

	// NewGenerator builds a candidate generator; validationMode substitutes
	// the tiny fixed dataset configuration used by the dry-run pass.
	NewGenerator func(validationMode bool) (Generator, error)

	Executor Executor
	Scorer   Scorer
	Log      *result.Log
	Out      io.Writer
}

// BestEntry is the per-dataset best-candidate record.
type BestEntry struct {
	Score float64
	Index int
}

type Orchestrator struct {
	cfg    *config.Config
	newGen func(bool) (Generator, error)
	exec   Executor
	scorer Scorer
	log    *result.Log
	out    io.Writer

	start        time.Time
	targetMetric string
	best         map[string]BestEntry
}

// Tiny fixed dataset configuration substituted during the validation pass.
var (
	validationReader = map[string]any{
		"name":      basicReader,
		"x":         "text",
		"y":         "target",
		"data_path": "./testdata/classification_data",
	}
	validationIterator = map[string]any{
		"name":              "basic_classification_iterator",
		"seed":              42,
		"field_to_split":    "train",
		"split_fields":      []any{"train", "valid"},
		"split_proportions": []any{0.9, 0.1},
	}
)

// New builds the orchestrator and immediately runs the validation pass, so
// construction fails on structural and configuration errors before any real
// trial is started.
func New(ctx context.Context, opts Opts) (*Orchestrator, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("search: config is required")
	}
	if opts.NewGenerator == nil {
		return nil, fmt.Errorf("search: generator factory is required")
	}
	if opts.Executor == nil {
		return nil, fmt.Errorf("search: executor is required")
	}
	if opts.Config.CrossVal.Enabled && opts.Scorer == nil {
		return nil, fmt.Errorf("search: scorer is required when cross validation is enabled")
	}
	if opts.Log == nil {
		return nil, fmt.Errorf("search: log is required")
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	o := &Orchestrator{
		cfg:          opts.Config,
		newGen:       opts.NewGenerator,
		exec:         opts.Executor,
		scorer:       opts.Scorer,
		log:          opts.Log,
		out:          opts.Out,
		start:        time.Now(),
		targetMetric: opts.Config.Experiment.TargetMetric,
		best:         map[string]BestEntry{},
	}
	if err := o.validationPass(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

// validationPass runs every candidate against a tiny fixed dataset to catch
// structural and configuration errors before committing to the full search.
func (o *Orchestrator) validationPass(ctx context.Context) error {
	mode := o.cfg.Experiment.Mode
	if mode != ModeTrain && mode != ModeEvaluate {
		return fmt.Errorf("%w, got %q", ErrUnsupportedMode, mode)
	}

	gen, err := o.newGen(true)
	if err != nil {
		return fmt.Errorf("building validation generator: %w", err)
	}
	fmt.Fprintf(o.out, "[ validation start: %d pipes ]\n", gen.Length())

	for pipe := range gen.Pipelines() {
		reader, err := pipe.Reader()
		if err != nil {
			return err
		}
		if reader.Name != basicReader {
			return fmt.Errorf("%w: got %q", ErrBadReader, reader.Name)
		}
		pipe["dataset_reader"] = pipegen.Candidate(validationReader).Clone()
		pipe["dataset_iterator"] = pipegen.Candidate(validationIterator).Clone()

		if _, err := o.exec.Execute(ctx, pipe, mode == ModeTrain, false); err != nil {
			return fmt.Errorf("validation run: %w", err)
		}
	}

	if err := os.RemoveAll(filepath.Join(o.cfg.Experiment.SavePath(), "tmp")); err != nil {
		return fmt.Errorf("removing validation tmp area: %w", err)
	}
	fmt.Fprintln(o.out, "[ validation passed ]")
	return nil
}

// Run enumerates the full candidate sequence, executes each trial, tracks the
// best result per dataset, persists logs and checkpoints, then performs
// retention and triggers the report.
func (o *Orchestrator) Run(ctx context.Context) error {
	gen, err := o.newGen(false)
	if err != nil {
		return fmt.Errorf("building generator: %w", err)
	}
	n := gen.Length()
	o.log.Experiment.NumberOfPipes = n

	fmt.Fprintf(o.out, "[ experiment start: %d pipes ]\n", n)
	if o.cfg.CrossVal.Enabled {
		fmt.Fprintf(o.out, "[ WARNING: cross validation is active, every pipeline runs %d times ]\n", o.cfg.CrossVal.KFold)
	}

	i := 0
	var runErr error
	for pipe := range gen.Pipelines() {
		i++
		if runErr = o.runCandidate(ctx, i, pipe); runErr != nil {
			break
		}
		fmt.Fprintf(o.out, "[ pipe %d/%d done ]\n", i, n)
	}
	if runErr != nil {
		return runErr
	}

	o.log.Experiment.FullTime = result.FormatDuration(time.Since(o.start))
	if err := o.log.Save(); err != nil {
		return err
	}

	if o.saveBest() && !o.cfg.CrossVal.Enabled {
		if err := o.retain(); err != nil {
			return err
		}
	}

	expDir := o.cfg.Experiment.Dir()
	if err := report.Render(expDir, filepath.Join(expDir, "images"), o.cfg.Experiment.Plot, o.targetMetric, o.out); err != nil {
		log.Printf("warning: rendering report: %v", err)
	}
	return nil
}

func (o *Orchestrator) runCandidate(ctx context.Context, i int, pipe pipegen.Candidate) error {
	train, err := pipe.Train()
	if err != nil {
		return fmt.Errorf("pipe %d: %w", i, err)
	}
	if i == 1 {
		if err := o.resolveTargetMetric(train.Metrics); err != nil {
			return err
		}
	}

	reader, err := pipe.Reader()
	if err != nil {
		return fmt.Errorf("pipe %d: %w", i, err)
	}
	dataset, err := pipe.DatasetName()
	if err != nil {
		return fmt.Errorf("pipe %d: %w", i, err)
	}
	pipeDef, err := pipe.Pipe()
	if err != nil {
		return fmt.Errorf("pipe %d: %w", i, err)
	}

	execStart := time.Now()
	metrics, err := o.executeCandidate(ctx, pipe)
	if err != nil {
		return fmt.Errorf("pipe %d: %w", i, err)
	}
	elapsed := time.Since(execStart)

	if o.saveBest() {
		if err := o.trackBest(dataset, i, metrics); err != nil {
			return fmt.Errorf("pipe %d: %w", i, err)
		}
	}
	if !o.cfg.CrossVal.Enabled {
		if err := o.saveCheckpoint(pipe, dataset, i); err != nil {
			return fmt.Errorf("pipe %d: %w", i, err)
		}
	}

	return o.log.Append(result.TrialRecord{
		Index:     i,
		Pipe:      pipeDef,
		Dataset:   reader.DataPath,
		BatchSize: train.BatchSize,
		Time:      result.FormatDuration(elapsed),
		Results:   metrics,
	})
}

// resolveTargetMetric snapshots the metric list from the first candidate and,
// if no target metric was configured, adopts the first declared name. The
// choice is irrevocable for the rest of the run.
func (o *Orchestrator) resolveTargetMetric(metrics []string) error {
	if len(metrics) == 0 {
		return fmt.Errorf("first candidate declares no metrics")
	}
	o.log.Experiment.Metrics = slices.Clone(metrics)
	if o.targetMetric == "" {
		o.targetMetric = metrics[0]
	}
	o.log.Experiment.TargetMetric = o.targetMetric
	return nil
}

func (o *Orchestrator) executeCandidate(ctx context.Context, pipe pipegen.Candidate) (result.Metrics, error) {
	if o.cfg.CrossVal.Enabled {
		score, err := o.scorer.Score(ctx, pipe, o.cfg.CrossVal.KFold)
		if err != nil {
			return nil, err
		}
		return result.Metrics{"test": score}, nil
	}
	switch o.cfg.Experiment.Mode {
	case ModeTrain:
		return o.exec.Execute(ctx, pipe, true, true)
	case ModeEvaluate:
		return o.exec.Execute(ctx, pipe, false, false)
	default:
		return nil, fmt.Errorf("%w, got %q", ErrUnsupportedMode, o.cfg.Experiment.Mode)
	}
}

// trackBest updates the per-dataset best record. The target metric is taken
// from the test split when it carries one, else from the valid split; a
// result carrying it in neither is a surfaced logic error, not a skip.
func (o *Orchestrator) trackBest(dataset string, i int, metrics result.Metrics) error {
	entry, ok := o.best[dataset]
	if !ok {
		entry = BestEntry{Score: math.Inf(-1)}
	}

	score, found := metrics["test"][o.targetMetric]
	if !found {
		score, found = metrics["valid"][o.targetMetric]
	}
	if !found {
		return fmt.Errorf("%w: metric %q, dataset %q", ErrMissingTargetMetric, o.targetMetric, dataset)
	}

	if score > entry.Score {
		entry.Score = score
		entry.Index = i
	}
	o.best[dataset] = entry
	return nil
}

// saveCheckpoint persists the resolved configuration under the candidate's
// index-named directory.
func (o *Orchestrator) saveCheckpoint(pipe pipegen.Candidate, dataset string, i int) error {
	dir := filepath.Join(o.cfg.Experiment.SavePath(), dataset, fmt.Sprintf("%s%d", checkpointPrefix, i))
	return writeCheckpoint(dir, pipe)
}

// Best returns a snapshot of the per-dataset best records.
func (o *Orchestrator) Best() map[string]BestEntry {
	snap := make(map[string]BestEntry, len(o.best))
	for k, v := range o.best {
		snap[k] = v
	}
	return snap
}

// TargetMetric returns the resolved target metric name; empty until the first
// candidate of the full run has been seen.
func (o *Orchestrator) TargetMetric() string {
	return o.targetMetric
}

func (o *Orchestrator) saveBest() bool {
	return o.cfg.Experiment.SaveBest == nil || *o.cfg.Experiment.SaveBest
}
