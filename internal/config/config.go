package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Experiment Experiment `yaml:"experiment"`
	Search     Search     `yaml:"search"`
	CrossVal   CrossVal   `yaml:"cross_validation"`
	Executor   Executor   `yaml:"executor"`
}

type Experiment struct {
	Name         string            `yaml:"name"`
	Root         string            `yaml:"root"`
	Date         string            `yaml:"date"`
	Mode         string            `yaml:"mode"`
	TargetMetric string            `yaml:"target_metric"`
	SaveBest     *bool             `yaml:"save_best"`
	Plot         bool              `yaml:"plot"`
	Info         map[string]string `yaml:"info"`
}

type Search struct {
	Enabled        bool   `yaml:"enabled"`
	Type           string `yaml:"type"`
	SampleNum      int    `yaml:"sample_num"`
	PipelineConfig string `yaml:"pipeline_config"`
}

type CrossVal struct {
	Enabled bool `yaml:"enabled"`
	KFold   int  `yaml:"k_fold"`
}

type Executor struct {
	Type           string            `yaml:"type"`
	Image          string            `yaml:"image"`
	Command        []string          `yaml:"command"`
	Env            map[string]string `yaml:"env"`
	TimeoutMinutes int               `yaml:"timeout_minutes"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	e := &cfg.Experiment
	if e.Name == "" {
		return fmt.Errorf("experiment name is required")
	}
	if e.Root == "" {
		e.Root = "./experiments"
	}
	if e.Date == "" {
		e.Date = time.Now().Format("2006-01-02")
	}
	if e.Mode == "" {
		e.Mode = "train"
	}
	if e.SaveBest == nil {
		on := true
		e.SaveBest = &on
	}

	s := &cfg.Search
	if s.PipelineConfig == "" {
		return fmt.Errorf("search pipeline_config is required")
	}
	if s.Type == "" {
		s.Type = "random"
	}
	if s.Type != "grid" && s.Type != "random" {
		return fmt.Errorf("search type must be grid or random, got %q", s.Type)
	}
	if s.SampleNum == 0 {
		s.SampleNum = 10
	}
	if s.SampleNum < 1 {
		return fmt.Errorf("search sample_num must be at least 1")
	}

	cv := &cfg.CrossVal
	if cv.Enabled {
		if cv.KFold == 0 {
			cv.KFold = 5
		}
		if cv.KFold < 2 {
			return fmt.Errorf("cross_validation k_fold must be at least 2")
		}
	}

	x := &cfg.Executor
	if x.Type == "" {
		x.Type = "container"
	}
	switch x.Type {
	case "container":
		if x.Image == "" {
			return fmt.Errorf("executor image is required for the container executor")
		}
	case "command":
		if len(x.Command) == 0 {
			return fmt.Errorf("executor command is required for the command executor")
		}
	default:
		return fmt.Errorf("executor type must be container or command, got %q", x.Type)
	}
	if x.TimeoutMinutes == 0 {
		x.TimeoutMinutes = 30
	}
	return nil
}

// SavePath is where the run keeps per-candidate checkpoints.
func (e *Experiment) SavePath() string {
	return filepath.Join(e.Root, e.Date, e.Name, "checkpoints")
}

// Dir is the experiment's directory, the parent of checkpoints and images.
func (e *Experiment) Dir() string {
	return filepath.Join(e.Root, e.Date, e.Name)
}
