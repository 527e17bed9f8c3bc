package search

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pipesearch/pipesearch/internal/pipegen"
)

// checkpointPrefix names per-candidate checkpoint directories; everything
// else directly under a dataset directory is a shared artifact.
const checkpointPrefix = "pipe_"

// retain promotes the best checkpoint of every dataset seen during the run
// and prunes the rest.
func (o *Orchestrator) retain() error {
	datasets := make([]string, 0, len(o.best))
	for name := range o.best {
		datasets = append(datasets, name)
	}
	sort.Strings(datasets)

	savePath := o.cfg.Experiment.SavePath()
	for _, name := range datasets {
		if err := Promote(savePath, name, o.best[name].Index); err != nil {
			return err
		}
	}
	return nil
}

// Promote moves the winning checkpoint of one dataset into the sibling
// <dataset>_best_pipe directory, moves shared non-checkpoint artifacts once,
// and deletes the dataset's checkpoint directory with everything left in it.
//
// Promote is idempotent: an already-retained dataset (source gone,
// destination present) is a no-op. It is not transactional; a crash between
// moves leaves a partially promoted tree and the error is never swallowed.
func Promote(savePath, dataset string, bestIndex int) error {
	source := filepath.Join(savePath, dataset)
	dest := filepath.Join(savePath, dataset+"_best_pipe")

	if _, err := os.Stat(source); err != nil {
		if os.IsNotExist(err) {
			if _, derr := os.Stat(dest); derr == nil {
				return nil
			}
		}
		return fmt.Errorf("promoting %s: %w", dataset, err)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}

	bestName := checkpointPrefix + strconv.Itoa(bestIndex)
	entries, err := os.ReadDir(source)
	if err != nil {
		return fmt.Errorf("promoting %s: %w", dataset, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		src := filepath.Join(source, name)
		dst := filepath.Join(dest, name)
		switch {
		case !strings.HasPrefix(name, checkpointPrefix):
			// Shared dataset-level artifact: moved once, never duplicated.
			if _, err := os.Stat(dst); err == nil {
				continue
			}
			if err := os.Rename(src, dst); err != nil {
				return fmt.Errorf("moving artifact %s: %w", name, err)
			}
		case name == bestName:
			if err := os.RemoveAll(dst); err != nil {
				return fmt.Errorf("replacing %s: %w", dst, err)
			}
			if err := os.Rename(src, dst); err != nil {
				return fmt.Errorf("promoting checkpoint %s: %w", name, err)
			}
		}
	}

	// Non-best pipe_* checkpoints go down with the dataset directory.
	if err := os.RemoveAll(source); err != nil {
		return fmt.Errorf("pruning %s: %w", source, err)
	}
	return nil
}

func writeCheckpoint(dir string, pipe pipegen.Candidate) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating checkpoint dir: %w", err)
	}
	data, err := json.MarshalIndent(pipe, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling checkpoint config: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0o644)
}
