package docker_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pipesearch/pipesearch/internal/docker"
)

func TestRunContainer(t *testing.T) {
	if os.Getenv("PIPESEARCH_DOCKER_TESTS") == "" {
		t.Skip("set PIPESEARCH_DOCKER_TESTS=1 to run Docker tests")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	workDir := t.TempDir()

	result, err := docker.RunContainer(ctx, &docker.RunOpts{
		Image:   "alpine:latest",
		Command: []string{"sh", "-c", `echo '{"valid":{"accuracy":0.5}}' > /workspace/metrics.json`},
		WorkDir: workDir,
		Env:     map[string]string{"TO_TRAIN": "1"},
		Timeout: 30 * time.Second,
	})
	if err != nil {
		t.Fatalf("RunContainer: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("exit code: got %d, want 0", result.ExitCode)
	}
	if result.TimedOut {
		t.Error("unexpected timeout")
	}
	if _, err := os.Stat(filepath.Join(workDir, "metrics.json")); err != nil {
		t.Errorf("metrics not written to workspace: %v", err)
	}
}

func TestRunContainerTimeout(t *testing.T) {
	if os.Getenv("PIPESEARCH_DOCKER_TESTS") == "" {
		t.Skip("set PIPESEARCH_DOCKER_TESTS=1 to run Docker tests")
	}
	ctx := context.Background()
	workDir := t.TempDir()

	result, err := docker.RunContainer(ctx, &docker.RunOpts{
		Image:   "alpine:latest",
		Command: []string{"sleep", "300"},
		WorkDir: workDir,
		Timeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("RunContainer: %v", err)
	}
	if !result.TimedOut {
		t.Error("expected timeout")
	}
	if result.ExitCode != 124 {
		t.Errorf("exit code: got %d, want 124", result.ExitCode)
	}
}

func TestRunContainerCrash(t *testing.T) {
	if os.Getenv("PIPESEARCH_DOCKER_TESTS") == "" {
		t.Skip("set PIPESEARCH_DOCKER_TESTS=1 to run Docker tests")
	}
	ctx := context.Background()
	workDir := t.TempDir()

	result, err := docker.RunContainer(ctx, &docker.RunOpts{
		Image:   "alpine:latest",
		Command: []string{"sh", "-c", "exit 1"},
		WorkDir: workDir,
		Timeout: 10 * time.Second,
	})
	if err != nil {
		t.Fatalf("RunContainer: %v", err)
	}
	if result.ExitCode != 1 {
		t.Errorf("exit code: got %d, want 1", result.ExitCode)
	}
}
