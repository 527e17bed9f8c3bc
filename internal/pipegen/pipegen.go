// Package pipegen enumerates candidate pipeline configurations from a
// declarative search space.
//
// The search space is a base pipeline config (JSON) in which any parameter
// value of the form {"search": [v1, v2, ...]} declares a search dimension.
// Grid search walks the cartesian product of all dimensions in a stable
// order; random search draws up to SampleNum distinct combinations.
package pipegen

import (
	"encoding/json"
	"fmt"
	"iter"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

type Opts struct {
	ConfigPath string
	SavePath   string
	SampleNum  int
	Search     bool
	SearchType string // grid or random
	TestMode   bool   // validation pass: route artifacts to the tmp area
	CrossVal   bool
	Seed       int64 // 0 means time-seeded
}

// Dimension describes one search dimension of the space.
type Dimension struct {
	Path   string
	Values int
}

type step struct {
	key  string
	idx  int
	list bool
}

type dimension struct {
	path   []step
	values []any
}

type Generator struct {
	base   Candidate
	dims   []dimension
	opts   Opts
	length int
}

// New reads the pipeline config and resolves the search space. The total
// candidate count is known up front via Length.
func New(opts Opts) (*Generator, error) {
	data, err := os.ReadFile(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline config: %w", err)
	}
	var base map[string]any
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("parsing pipeline config %s: %w", opts.ConfigPath, err)
	}

	dims := findDimensions(base, nil)
	if !opts.Search && len(dims) > 0 {
		return nil, fmt.Errorf("pipeline config declares %d search dimensions but search is disabled", len(dims))
	}

	g := &Generator{base: base, dims: dims, opts: opts}
	product := 1
	for _, d := range dims {
		product *= len(d.values)
	}
	switch {
	case !opts.Search || len(dims) == 0:
		g.length = 1
	case opts.SearchType == "grid":
		g.length = product
	case opts.SearchType == "random":
		g.length = opts.SampleNum
		if g.length > product {
			g.length = product
		}
	default:
		return nil, fmt.Errorf("unknown search type %q", opts.SearchType)
	}
	return g, nil
}

// Length reports the total number of candidates the generator will produce.
func (g *Generator) Length() int {
	return g.length
}

// Dimensions summarizes the search space.
func (g *Generator) Dimensions() []Dimension {
	out := make([]Dimension, 0, len(g.dims))
	for _, d := range g.dims {
		out = append(out, Dimension{Path: pathString(d.path), Values: len(d.values)})
	}
	return out
}

// Pipelines lazily yields resolved candidates in a deterministic order for
// grid search and a sampled order for random search.
func (g *Generator) Pipelines() iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		for ord, comboIdx := range g.comboIndices() {
			c := g.base.Clone()
			combo := decodeCombo(comboIdx, g.dims)
			for di, d := range g.dims {
				setValue(c, d.path, deepCopy(d.values[combo[di]]))
			}
			g.routeSavePath(c, ord+1)
			if !yield(c) {
				return
			}
		}
	}
}

// comboIndices picks which points of the cartesian product are produced.
func (g *Generator) comboIndices() []int {
	if len(g.dims) == 0 || !g.opts.Search {
		return []int{0}
	}
	product := 1
	for _, d := range g.dims {
		product *= len(d.values)
	}
	if g.opts.SearchType == "grid" {
		idx := make([]int, product)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	seed := g.opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	seen := make(map[int]bool, g.length)
	idx := make([]int, 0, g.length)
	for len(idx) < g.length {
		i := rng.Intn(product)
		if seen[i] {
			continue
		}
		seen[i] = true
		idx = append(idx, i)
	}
	return idx
}

// decodeCombo expands a mixed-radix combination index into one choice per
// dimension.
func decodeCombo(idx int, dims []dimension) []int {
	combo := make([]int, len(dims))
	for i := len(dims) - 1; i >= 0; i-- {
		n := len(dims[i].values)
		combo[i] = idx % n
		idx /= n
	}
	return combo
}

// routeSavePath points the candidate's artifact directory at its checkpoint
// subdirectory, or at the throwaway tmp area for the validation pass and
// cross-validation runs.
func (g *Generator) routeSavePath(c Candidate, ordinal int) {
	pipeDir := "pipe_" + strconv.Itoa(ordinal)
	if g.opts.TestMode || g.opts.CrossVal {
		c.setTrainField("save_path", filepath.Join(g.opts.SavePath, "tmp", pipeDir))
		return
	}
	dataset, err := c.DatasetName()
	if err != nil {
		dataset = "default"
	}
	c.setTrainField("save_path", filepath.Join(g.opts.SavePath, dataset, pipeDir))
}

// findDimensions walks the config tree and collects {"search": [...]} nodes.
// Maps are walked in sorted key order so the dimension order is stable.
func findDimensions(v any, path []step) []dimension {
	switch t := v.(type) {
	case map[string]any:
		if values, ok := searchNode(t); ok {
			return []dimension{{path: append([]step(nil), path...), values: values}}
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var dims []dimension
		for _, k := range keys {
			dims = append(dims, findDimensions(t[k], append(path, step{key: k}))...)
		}
		return dims
	case []any:
		var dims []dimension
		for i, e := range t {
			dims = append(dims, findDimensions(e, append(path, step{idx: i, list: true}))...)
		}
		return dims
	default:
		return nil
	}
}

func searchNode(m map[string]any) ([]any, bool) {
	if len(m) != 1 {
		return nil, false
	}
	values, ok := m["search"].([]any)
	if !ok || len(values) == 0 {
		return nil, false
	}
	return values, true
}

func setValue(root Candidate, path []step, v any) {
	var cur any = map[string]any(root)
	for i, s := range path {
		last := i == len(path)-1
		if s.list {
			seq := cur.([]any)
			if last {
				seq[s.idx] = v
				return
			}
			cur = seq[s.idx]
		} else {
			m := cur.(map[string]any)
			if last {
				m[s.key] = v
				return
			}
			cur = m[s.key]
		}
	}
}

func pathString(path []step) string {
	parts := make([]string, 0, len(path))
	for _, s := range path {
		if s.list {
			parts = append(parts, strconv.Itoa(s.idx))
		} else {
			parts = append(parts, s.key)
		}
	}
	return strings.Join(parts, ".")
}
