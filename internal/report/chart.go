package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pipesearch/pipesearch/internal/result"
)

const (
	barWidth   = 28
	barGap     = 12
	plotHeight = 180
	margin     = 40
)

// writeCharts emits one SVG bar chart per dataset, candidate scores in run
// order.
func writeCharts(lg *result.Log, imagesDir, targetMetric string) error {
	if err := os.MkdirAll(imagesDir, 0o755); err != nil {
		return fmt.Errorf("creating images dir: %w", err)
	}

	type bar struct {
		index int
		score float64
	}
	byDataset := map[string][]bar{}
	for _, rec := range lg.Records {
		v, ok := score(rec, targetMetric)
		if !ok {
			continue
		}
		name := datasetName(rec.Dataset)
		byDataset[name] = append(byDataset[name], bar{index: rec.Index, score: v})
	}

	for name, bars := range byDataset {
		maxScore := 0.0
		for _, b := range bars {
			if b.score > maxScore {
				maxScore = b.score
			}
		}
		if maxScore <= 0 {
			maxScore = 1
		}

		var sb strings.Builder
		width := margin*2 + len(bars)*(barWidth+barGap)
		height := plotHeight + margin*2
		fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d">`+"\n", width, height)
		fmt.Fprintf(&sb, `<text x="%d" y="20" font-size="14">%s — %s</text>`+"\n", margin, name, targetMetric)
		for i, b := range bars {
			h := int(float64(plotHeight) * b.score / maxScore)
			x := margin + i*(barWidth+barGap)
			y := margin + plotHeight - h
			fmt.Fprintf(&sb, `<rect x="%d" y="%d" width="%d" height="%d" fill="#4878a8"/>`+"\n", x, y, barWidth, h)
			fmt.Fprintf(&sb, `<text x="%d" y="%d" font-size="10">%d</text>`+"\n", x+6, margin+plotHeight+14, b.index)
			fmt.Fprintf(&sb, `<text x="%d" y="%d" font-size="9">%.3f</text>`+"\n", x, y-4, b.score)
		}
		sb.WriteString("</svg>\n")

		path := filepath.Join(imagesDir, name+".svg")
		if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
			return fmt.Errorf("writing chart %s: %w", path, err)
		}
	}
	return nil
}
