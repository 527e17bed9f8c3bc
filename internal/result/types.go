package result

// Metrics holds one trial's scores, keyed by split name ("train", "valid",
// "test") and then by metric name.
type Metrics map[string]map[string]float64

// TrialRecord is the immutable per-candidate entry appended to the experiment
// log. BatchSize is nil when the pipeline does not configure one.
type TrialRecord struct {
	Index     int              `json:"index"`
	Pipe      []map[string]any `json:"pipe"`
	Dataset   string           `json:"dataset"`
	BatchSize *int             `json:"batch_size"`
	Time      string           `json:"time"`
	Results   Metrics          `json:"results"`
}

// ExperimentInfo carries run-level metadata. Metrics, TargetMetric and
// FullTime are filled in as the run progresses.
type ExperimentInfo struct {
	RunID         string            `json:"run_id"`
	Name          string            `json:"exp_name"`
	Date          string            `json:"date"`
	Mode          string            `json:"mode"`
	NumberOfPipes int               `json:"number_of_pipes"`
	Metrics       []string          `json:"metrics,omitempty"`
	TargetMetric  string            `json:"target_metric,omitempty"`
	FullTime      string            `json:"full_time,omitempty"`
	Info          map[string]string `json:"info,omitempty"`
}

// Log accumulates experiment metadata and per-trial records and owns their
// persistence.
type Log struct {
	Experiment ExperimentInfo `json:"experiment_info"`
	Records    []TrialRecord  `json:"experiments"`

	path string
}
