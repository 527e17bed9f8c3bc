package pipegen

import (
	"fmt"
	"path/filepath"

	"github.com/mitchellh/mapstructure"
)

// Candidate is one fully resolved pipeline configuration: a nested mapping
// with at least dataset_reader, dataset_iterator, train and chainer.pipe.
type Candidate map[string]any

// ReaderView is the typed projection of the dataset_reader section.
type ReaderView struct {
	Name     string `mapstructure:"name"`
	DataPath string `mapstructure:"data_path"`
}

// TrainView is the typed projection of the train section. BatchSize is nil
// when the pipeline does not configure one.
type TrainView struct {
	Metrics   []string `mapstructure:"metrics"`
	BatchSize *int     `mapstructure:"batch_size"`
	SavePath  string   `mapstructure:"save_path"`
}

func decodeView(in, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

// Reader decodes the candidate's dataset_reader section.
func (c Candidate) Reader() (ReaderView, error) {
	var v ReaderView
	sec, ok := c["dataset_reader"]
	if !ok {
		return v, fmt.Errorf("candidate has no dataset_reader section")
	}
	if err := decodeView(sec, &v); err != nil {
		return v, fmt.Errorf("decoding dataset_reader: %w", err)
	}
	return v, nil
}

// Train decodes the candidate's train section.
func (c Candidate) Train() (TrainView, error) {
	var v TrainView
	sec, ok := c["train"]
	if !ok {
		return v, fmt.Errorf("candidate has no train section")
	}
	if err := decodeView(sec, &v); err != nil {
		return v, fmt.Errorf("decoding train section: %w", err)
	}
	return v, nil
}

// Pipe returns the chainer.pipe component sequence.
func (c Candidate) Pipe() ([]map[string]any, error) {
	chainer, ok := c["chainer"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("candidate has no chainer section")
	}
	raw, ok := chainer["pipe"].([]any)
	if !ok {
		return nil, fmt.Errorf("candidate has no chainer.pipe sequence")
	}
	pipe := make([]map[string]any, 0, len(raw))
	for i, comp := range raw {
		m, ok := comp.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("chainer.pipe component %d is not a mapping", i)
		}
		pipe = append(pipe, m)
	}
	return pipe, nil
}

// DatasetName derives the dataset identifier from the reader's data path.
func (c Candidate) DatasetName() (string, error) {
	reader, err := c.Reader()
	if err != nil {
		return "", err
	}
	if reader.DataPath == "" {
		return "", fmt.Errorf("dataset_reader has no data_path")
	}
	return filepath.Base(filepath.Clean(reader.DataPath)), nil
}

// Clone deep-copies the candidate so callers can mutate it freely.
func (c Candidate) Clone() Candidate {
	return deepCopy(map[string]any(c)).(map[string]any)
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = deepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	default:
		return v
	}
}

func (c Candidate) setTrainField(key string, v any) {
	train, ok := c["train"].(map[string]any)
	if !ok {
		return
	}
	train[key] = v
}
