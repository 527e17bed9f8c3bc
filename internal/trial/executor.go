// Package trial provides Executor and Scorer implementations that run one
// resolved pipeline configuration and report its metrics.
package trial

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/pipesearch/pipesearch/internal/docker"
	"github.com/pipesearch/pipesearch/internal/pipegen"
	"github.com/pipesearch/pipesearch/internal/result"
)

// Executor runs one candidate and returns its metrics keyed by split.
type Executor interface {
	Execute(ctx context.Context, pipe pipegen.Candidate, toTrain, toValidate bool) (result.Metrics, error)
}

// ContainerExecutor runs each trial in a container. The candidate's save path
// is mounted at /workspace with the serialized config inside; the trial is
// expected to write /workspace/metrics.json before exiting.
type ContainerExecutor struct {
	Image   string
	Command []string
	Env     map[string]string
	Timeout time.Duration
}

func (e *ContainerExecutor) Execute(ctx context.Context, pipe pipegen.Candidate, toTrain, toValidate bool) (result.Metrics, error) {
	workDir, err := prepareWorkDir(pipe)
	if err != nil {
		return nil, err
	}

	env := map[string]string{
		"PIPE_CONFIG": "/workspace/config.json",
		"TO_TRAIN":    boolFlag(toTrain),
		"TO_VALIDATE": boolFlag(toValidate),
	}
	for k, v := range e.Env {
		env[k] = v
	}

	timeout := e.Timeout
	if timeout == 0 {
		timeout = 30 * time.Minute
	}
	res, err := docker.RunContainer(ctx, &docker.RunOpts{
		Image:   e.Image,
		Command: e.Command,
		WorkDir: workDir,
		Env:     env,
		Timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("running trial container: %w", err)
	}
	if res.TimedOut {
		return nil, fmt.Errorf("trial timed out after %s", timeout)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("trial exited with code %d", res.ExitCode)
	}

	data, err := os.ReadFile(filepath.Join(workDir, "metrics.json"))
	if err != nil {
		return nil, fmt.Errorf("reading trial metrics: %w", err)
	}
	return parseMetrics(data)
}

// CommandExecutor runs each trial as a local subprocess. The serialized
// candidate is fed on stdin and metrics are expected as JSON on stdout.
type CommandExecutor struct {
	Command []string
	Env     map[string]string
}

func (e *CommandExecutor) Execute(ctx context.Context, pipe pipegen.Candidate, toTrain, toValidate bool) (result.Metrics, error) {
	if len(e.Command) == 0 {
		return nil, fmt.Errorf("command executor has no command")
	}
	workDir, err := prepareWorkDir(pipe)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(pipe)
	if err != nil {
		return nil, fmt.Errorf("marshaling candidate: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.Command[0], e.Command[1:]...)
	cmd.Stdin = bytes.NewReader(data)
	cmd.Env = append(os.Environ(),
		"PIPE_WORKDIR="+workDir,
		"TO_TRAIN="+boolFlag(toTrain),
		"TO_VALIDATE="+boolFlag(toValidate),
	)
	for k, v := range e.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("running trial command: %s: %w", stderr.String(), err)
	}
	return parseMetrics(out)
}

// prepareWorkDir creates the candidate's artifact directory (its save path)
// and drops the serialized config into it.
func prepareWorkDir(pipe pipegen.Candidate) (string, error) {
	tv, err := pipe.Train()
	if err != nil {
		return "", err
	}
	if tv.SavePath == "" {
		return "", fmt.Errorf("candidate has no train.save_path")
	}
	if err := os.MkdirAll(tv.SavePath, 0o755); err != nil {
		return "", fmt.Errorf("creating trial dir: %w", err)
	}
	data, err := json.MarshalIndent(pipe, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling candidate: %w", err)
	}
	if err := os.WriteFile(filepath.Join(tv.SavePath, "config.json"), data, 0o644); err != nil {
		return "", fmt.Errorf("writing candidate config: %w", err)
	}
	return tv.SavePath, nil
}

func parseMetrics(data []byte) (result.Metrics, error) {
	var m result.Metrics
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing trial metrics: %w", err)
	}
	if len(m) == 0 {
		return nil, fmt.Errorf("trial reported no metrics")
	}
	return m, nil
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
