// Package report renders experiment summaries from a persisted log:
// per-dataset aggregates in table, markdown or JSON form, and optional score
// charts.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/pipesearch/pipesearch/internal/result"
)

type DatasetSummary struct {
	Dataset    string  `json:"dataset"`
	Candidates int     `json:"candidates"`
	BestIndex  int     `json:"best_index"`
	BestScore  float64 `json:"best_score"`
	MeanScore  float64 `json:"mean_score"`
}

// Render loads the experiment log under expDir and writes a summary, plus one
// score chart per dataset under imagesDir when plotting is enabled.
func Render(expDir, imagesDir string, plot bool, targetMetric string, w io.Writer) error {
	name := filepath.Base(expDir)
	lg, err := result.ReadLog(filepath.Join(expDir, name+".json"))
	if err != nil {
		return err
	}
	if targetMetric == "" {
		targetMetric = lg.Experiment.TargetMetric
	}
	if err := Generate(lg, "table", targetMetric, w); err != nil {
		return err
	}
	if plot {
		return writeCharts(lg, imagesDir, targetMetric)
	}
	return nil
}

// Generate writes per-dataset summaries of the log in the given format.
func Generate(lg *result.Log, format, targetMetric string, w io.Writer) error {
	summaries := aggregate(lg, targetMetric)
	switch format {
	case "markdown":
		return writeMarkdown(summaries, targetMetric, w)
	case "json":
		return writeJSON(summaries, w)
	default:
		return writeTable(summaries, targetMetric, w)
	}
}

// score extracts the target metric from a record, preferring the test split.
func score(rec result.TrialRecord, targetMetric string) (float64, bool) {
	if v, ok := rec.Results["test"][targetMetric]; ok {
		return v, true
	}
	v, ok := rec.Results["valid"][targetMetric]
	return v, ok
}

func datasetName(path string) string {
	return filepath.Base(filepath.Clean(path))
}

func aggregate(lg *result.Log, targetMetric string) []DatasetSummary {
	type accum struct {
		count     int
		sum       float64
		bestScore float64
		bestIndex int
	}
	byDataset := map[string]*accum{}

	for _, rec := range lg.Records {
		v, ok := score(rec, targetMetric)
		if !ok {
			continue
		}
		name := datasetName(rec.Dataset)
		a, seen := byDataset[name]
		if !seen {
			a = &accum{bestIndex: rec.Index, bestScore: v}
			byDataset[name] = a
		} else if v > a.bestScore {
			a.bestScore = v
			a.bestIndex = rec.Index
		}
		a.count++
		a.sum += v
	}

	var summaries []DatasetSummary
	for name, a := range byDataset {
		summaries = append(summaries, DatasetSummary{
			Dataset:    name,
			Candidates: a.count,
			BestIndex:  a.bestIndex,
			BestScore:  a.bestScore,
			MeanScore:  a.sum / float64(a.count),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Dataset < summaries[j].Dataset
	})
	return summaries
}

func writeTable(summaries []DatasetSummary, targetMetric string, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "DATASET\tPIPES\tBEST PIPE\tBEST %s\tMEAN %s\n",
		strings.ToUpper(targetMetric), strings.ToUpper(targetMetric))
	fmt.Fprintln(tw, strings.Repeat("-", 60))
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.4f\t%.4f\n",
			s.Dataset, s.Candidates, s.BestIndex, s.BestScore, s.MeanScore)
	}
	return tw.Flush()
}

func writeMarkdown(summaries []DatasetSummary, targetMetric string, w io.Writer) error {
	fmt.Fprintf(w, "| Dataset | Pipes | Best Pipe | Best %s | Mean %s |\n", targetMetric, targetMetric)
	fmt.Fprintln(w, "|---|---|---|---|---|")
	for _, s := range summaries {
		fmt.Fprintf(w, "| %s | %d | %d | %.4f | %.4f |\n",
			s.Dataset, s.Candidates, s.BestIndex, s.BestScore, s.MeanScore)
	}
	return nil
}

func writeJSON(summaries []DatasetSummary, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summaries)
}
