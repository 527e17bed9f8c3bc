package pipegen_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/pipesearch/pipesearch/internal/pipegen"
)

func collect(t *testing.T, g *pipegen.Generator) []pipegen.Candidate {
	t.Helper()
	var out []pipegen.Candidate
	for c := range g.Pipelines() {
		out = append(out, c)
	}
	return out
}

func TestGridEnumeration(t *testing.T) {
	g, err := pipegen.New(pipegen.Opts{
		ConfigPath: "../../testdata/pipeline_grid.json",
		SavePath:   t.TempDir(),
		Search:     true,
		SearchType: "grid",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// 2 data paths x 2 lowercase x 3 max_features.
	if g.Length() != 12 {
		t.Fatalf("Length: got %d, want 12", g.Length())
	}
	pipes := collect(t, g)
	if len(pipes) != g.Length() {
		t.Fatalf("yielded %d candidates, want %d", len(pipes), g.Length())
	}
	// Every candidate is fully resolved: no {"search": ...} node survives.
	for i, c := range pipes {
		pipe, err := c.Pipe()
		if err != nil {
			t.Fatalf("candidate %d: %v", i, err)
		}
		for _, comp := range pipe {
			for k, v := range comp {
				if m, ok := v.(map[string]any); ok {
					if _, has := m["search"]; has {
						t.Errorf("candidate %d: unresolved search node at %s", i, k)
					}
				}
			}
		}
	}
	// Two distinct datasets appear.
	datasets := map[string]bool{}
	for _, c := range pipes {
		name, err := c.DatasetName()
		if err != nil {
			t.Fatal(err)
		}
		datasets[name] = true
	}
	if len(datasets) != 2 {
		t.Errorf("expected 2 datasets, got %v", datasets)
	}
}

func TestGridDeterministicOrder(t *testing.T) {
	opts := pipegen.Opts{
		ConfigPath: "../../testdata/pipeline_grid.json",
		SavePath:   t.TempDir(),
		Search:     true,
		SearchType: "grid",
	}
	g1, err := pipegen.New(opts)
	if err != nil {
		t.Fatal(err)
	}
	g2, err := pipegen.New(opts)
	if err != nil {
		t.Fatal(err)
	}
	p1 := collect(t, g1)
	p2 := collect(t, g2)
	for i := range p1 {
		r1, _ := p1[i].Reader()
		r2, _ := p2[i].Reader()
		if r1.DataPath != r2.DataPath {
			t.Fatalf("candidate %d: order not deterministic (%q vs %q)", i, r1.DataPath, r2.DataPath)
		}
	}
}

func TestRandomSampleBound(t *testing.T) {
	g, err := pipegen.New(pipegen.Opts{
		ConfigPath: "../../testdata/pipeline_grid.json",
		SavePath:   t.TempDir(),
		SampleNum:  5,
		Search:     true,
		SearchType: "random",
		Seed:       7,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if g.Length() != 5 {
		t.Fatalf("Length: got %d, want 5", g.Length())
	}
	if got := len(collect(t, g)); got != 5 {
		t.Errorf("yielded %d candidates, want 5", got)
	}
}

func TestRandomSampleCappedByProduct(t *testing.T) {
	g, err := pipegen.New(pipegen.Opts{
		ConfigPath: "../../testdata/pipeline_grid.json",
		SavePath:   t.TempDir(),
		SampleNum:  100,
		Search:     true,
		SearchType: "random",
		Seed:       7,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if g.Length() != 12 {
		t.Errorf("Length: got %d, want 12 (product caps the sample)", g.Length())
	}
}

func TestSearchDisabledSingleCandidate(t *testing.T) {
	g, err := pipegen.New(pipegen.Opts{
		ConfigPath: "../../testdata/pipeline_single.json",
		SavePath:   t.TempDir(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if g.Length() != 1 {
		t.Fatalf("Length: got %d, want 1", g.Length())
	}
	pipes := collect(t, g)
	if len(pipes) != 1 {
		t.Fatalf("yielded %d candidates, want 1", len(pipes))
	}
	tv, err := pipes[0].Train()
	if err != nil {
		t.Fatal(err)
	}
	if tv.BatchSize == nil || *tv.BatchSize != 64 {
		t.Errorf("batch size: got %v, want 64", tv.BatchSize)
	}
	if len(tv.Metrics) != 2 || tv.Metrics[0] != "accuracy" {
		t.Errorf("metrics: got %v", tv.Metrics)
	}
}

func TestSearchDisabledRejectsDimensions(t *testing.T) {
	_, err := pipegen.New(pipegen.Opts{
		ConfigPath: "../../testdata/pipeline_grid.json",
		SavePath:   t.TempDir(),
	})
	if err == nil {
		t.Error("expected error: search disabled but dimensions declared")
	}
}

func TestSavePathRouting(t *testing.T) {
	save := t.TempDir()

	g, err := pipegen.New(pipegen.Opts{ConfigPath: "../../testdata/pipeline_single.json", SavePath: save})
	if err != nil {
		t.Fatal(err)
	}
	c := collect(t, g)[0]
	tv, _ := c.Train()
	want := filepath.Join(save, "snips", "pipe_1")
	if tv.SavePath != want {
		t.Errorf("save path: got %q, want %q", tv.SavePath, want)
	}

	g, err = pipegen.New(pipegen.Opts{ConfigPath: "../../testdata/pipeline_single.json", SavePath: save, TestMode: true})
	if err != nil {
		t.Fatal(err)
	}
	c = collect(t, g)[0]
	tv, _ = c.Train()
	if !strings.HasPrefix(tv.SavePath, filepath.Join(save, "tmp")) {
		t.Errorf("validation-mode save path %q not under tmp", tv.SavePath)
	}

	g, err = pipegen.New(pipegen.Opts{ConfigPath: "../../testdata/pipeline_single.json", SavePath: save, CrossVal: true})
	if err != nil {
		t.Fatal(err)
	}
	c = collect(t, g)[0]
	tv, _ = c.Train()
	if !strings.HasPrefix(tv.SavePath, filepath.Join(save, "tmp")) {
		t.Errorf("cross-validation save path %q not under tmp", tv.SavePath)
	}
}

func TestDimensions(t *testing.T) {
	g, err := pipegen.New(pipegen.Opts{
		ConfigPath: "../../testdata/pipeline_grid.json",
		SavePath:   t.TempDir(),
		Search:     true,
		SearchType: "grid",
	})
	if err != nil {
		t.Fatal(err)
	}
	dims := g.Dimensions()
	if len(dims) != 3 {
		t.Fatalf("expected 3 dimensions, got %v", dims)
	}
	total := 1
	for _, d := range dims {
		if d.Path == "" || d.Values < 2 {
			t.Errorf("suspicious dimension %+v", d)
		}
		total *= d.Values
	}
	if total != 12 {
		t.Errorf("dimension product: got %d, want 12", total)
	}
}

func TestDatasetName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"./data/snips", "snips"},
		{"data/dstc2/", "dstc2"},
		{"/abs/path/sst", "sst"},
	}
	for _, tt := range tests {
		c := pipegen.Candidate{
			"dataset_reader": map[string]any{"name": "basic_classification_reader", "data_path": tt.path},
		}
		got, err := c.DatasetName()
		if err != nil {
			t.Fatalf("DatasetName(%q): %v", tt.path, err)
		}
		if got != tt.want {
			t.Errorf("DatasetName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}

	c := pipegen.Candidate{"dataset_reader": map[string]any{"name": "r"}}
	if _, err := c.DatasetName(); err == nil {
		t.Error("expected error for missing data_path")
	}
}

func TestCloneIsDeep(t *testing.T) {
	c := pipegen.Candidate{
		"train": map[string]any{"metrics": []any{"accuracy"}},
	}
	clone := c.Clone()
	clone["train"].(map[string]any)["metrics"] = []any{"f1"}
	if c["train"].(map[string]any)["metrics"].([]any)[0] != "accuracy" {
		t.Error("Clone shares nested state with the original")
	}
}
