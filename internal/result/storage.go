package result

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// NewLog creates an experiment log persisted at
// <root>/<date>/<name>/<name>.json.
func NewLog(name, root, date, mode string, info map[string]string) *Log {
	return &Log{
		Experiment: ExperimentInfo{
			RunID: uuid.NewString(),
			Name:  name,
			Date:  date,
			Mode:  mode,
			Info:  info,
		},
		path: LogPath(root, date, name),
	}
}

// LogPath returns the canonical location of an experiment's log file.
func LogPath(root, date, name string) string {
	return filepath.Join(root, date, name, name+".json")
}

// Append adds one record and persists the whole log, so a crash mid-run loses
// at most the in-flight candidate.
func (l *Log) Append(rec TrialRecord) error {
	l.Records = append(l.Records, rec)
	return l.Save()
}

// Save writes the accumulated log to disk.
func (l *Log) Save() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("creating log dir: %w", err)
	}
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling log: %w", err)
	}
	return os.WriteFile(l.path, data, 0o644)
}

// Path returns where the log is persisted.
func (l *Log) Path() string {
	return l.path
}

// ReadLog loads a persisted experiment log.
func ReadLog(path string) (*Log, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading log: %w", err)
	}
	var l Log
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parsing log %s: %w", path, err)
	}
	l.path = path
	return &l, nil
}

// FormatDuration renders a duration as H:MM:SS.
func FormatDuration(d time.Duration) string {
	s := int(d.Round(time.Second).Seconds())
	if s < 0 {
		s = 0
	}
	return fmt.Sprintf("%d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}
