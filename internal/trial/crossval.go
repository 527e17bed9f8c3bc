package trial

import (
	"context"
	"fmt"

	"github.com/pipesearch/pipesearch/internal/pipegen"
)

// CrossValidator scores a candidate by running the wrapped executor once per
// fold and averaging each metric over the folds. The fold layout is injected
// into the candidate's dataset_iterator section.
type CrossValidator struct {
	Executor Executor
}

func (cv *CrossValidator) Score(ctx context.Context, pipe pipegen.Candidate, nFolds int) (map[string]float64, error) {
	if nFolds < 2 {
		return nil, fmt.Errorf("cross validation needs at least 2 folds, got %d", nFolds)
	}

	sums := map[string]float64{}
	for fold := 0; fold < nFolds; fold++ {
		c := pipe.Clone()
		if it, ok := c["dataset_iterator"].(map[string]any); ok {
			it["n_folds"] = nFolds
			it["fold"] = fold
		}
		metrics, err := cv.Executor.Execute(ctx, c, true, true)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", fold, err)
		}
		split, ok := metrics["valid"]
		if !ok {
			split, ok = metrics["test"]
		}
		if !ok {
			return nil, fmt.Errorf("fold %d reported neither valid nor test metrics", fold)
		}
		for name, v := range split {
			sums[name] += v
		}
	}

	score := make(map[string]float64, len(sums))
	for name, sum := range sums {
		score[name] = sum / float64(nFolds)
	}
	return score, nil
}
