//go:build integration

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/pipesearch/pipesearch/cmd"
	"github.com/pipesearch/pipesearch/internal/result"
)

// writeFixtures lays out a config, a two-candidate search space and a stub
// trial script that reports fixed metrics.
func writeFixtures(t *testing.T) (cfgPath, root string) {
	t.Helper()
	dir := t.TempDir()
	root = filepath.Join(dir, "experiments")

	script := filepath.Join(dir, "trial.sh")
	if err := os.WriteFile(script, []byte(
		"#!/bin/sh\ncat > /dev/null\necho '{\"valid\": {\"accuracy\": 0.75}}'\n",
	), 0o755); err != nil {
		t.Fatal(err)
	}

	pipeline := filepath.Join(dir, "pipeline.json")
	if err := os.WriteFile(pipeline, []byte(`{
  "dataset_reader": {
    "name": "basic_classification_reader",
    "data_path": "./data/snips"
  },
  "dataset_iterator": {"name": "basic_classification_iterator"},
  "chainer": {
    "pipe": [
      {"name": "tokenizer", "lowercase": {"search": [true, false]}},
      {"name": "classifier"}
    ]
  },
  "train": {"metrics": ["accuracy"], "batch_size": 32}
}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfgPath = filepath.Join(dir, "pipesearch.yaml")
	cfgBody := fmt.Sprintf(`experiment:
  name: integ
  root: %s
  date: "2024-01-01"
  mode: train
  target_metric: accuracy
search:
  enabled: true
  type: grid
  pipeline_config: %s
executor:
  type: command
  command: ["sh", %q]
`, root, pipeline, script)
	if err := os.WriteFile(cfgPath, []byte(cfgBody), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfgPath, root
}

func TestCommandExecutorEndToEnd(t *testing.T) {
	cfgPath, root := writeFixtures(t)

	rootCmd := cmd.NewRootCmd()
	rootCmd.SetArgs([]string{"run", "--config", cfgPath})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("run: %v", err)
	}

	lg, err := result.ReadLog(result.LogPath(root, "2024-01-01", "integ"))
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if len(lg.Records) != 2 {
		t.Fatalf("records: got %d, want 2", len(lg.Records))
	}
	if lg.Experiment.NumberOfPipes != 2 {
		t.Errorf("number_of_pipes: got %d", lg.Experiment.NumberOfPipes)
	}

	// Equal scores keep the first candidate; retention leaves only its
	// checkpoint behind.
	savePath := filepath.Join(root, "2024-01-01", "integ", "checkpoints")
	if _, err := os.Stat(filepath.Join(savePath, "snips_best_pipe", "pipe_1", "config.json")); err != nil {
		t.Errorf("best checkpoint missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(savePath, "snips")); !os.IsNotExist(err) {
		t.Errorf("checkpoint dir not pruned, stat err = %v", err)
	}
}
