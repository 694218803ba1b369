package config

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Source abstracts "load → mapping": configuration is data, not code,
// in the orchestrator's address space. The core only ever calls Load;
// how the mapping is produced is an external concern.
type Source interface {
	Load(ctx context.Context) (*Deployment, error)
}

// FileSource reads a declarative YAML deployment file directly. This is
// the default and recommended source — it keeps the separation the
// original subprocess-based loader enforced without paying the cost of
// spawning an interpreter on every reload.
type FileSource struct {
	Path string
}

// NewFileSource builds a Source that reads the deployment file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Load(_ context.Context) (*Deployment, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", s.Path, err)
	}
	return parse(data, filepath.Dir(s.Path))
}

// ScriptSource executes an external program and parses its standard
// output as YAML. It preserves the original design's "configuration
// source is an executable" model for deployments that generate their
// job list programmatically, while keeping the wire format declarative.
type ScriptSource struct {
	Command string
	Args    []string
	Dir     string
	Timeout time.Duration
}

// NewScriptSource builds a Source that runs command with args in dir.
func NewScriptSource(command string, args []string, dir string, timeout time.Duration) *ScriptSource {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &ScriptSource{Command: command, Args: args, Dir: dir, Timeout: timeout}
}

func (s *ScriptSource) Load(ctx context.Context) (*Deployment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.Command, s.Args...)
	cmd.Dir = s.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("config: error interpreting config source %s: %w (stderr: %s)", s.Command, err, stderr.String())
	}
	return parse(stdout.Bytes(), s.Dir)
}

func parse(data []byte, configDir string) (*Deployment, error) {
	var raw rawDeployment
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := raw.validate(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(raw.Jobs))
	for _, j := range raw.Jobs {
		if j.Name == "" {
			return nil, fmt.Errorf("config: job with empty name")
		}
		if seen[j.Name] {
			return nil, fmt.Errorf("config: duplicate job name %q", j.Name)
		}
		seen[j.Name] = true
	}

	if abs, err := filepath.Abs(configDir); err == nil {
		configDir = abs
	}
	d := raw.resolve(configDir)
	return d, nil
}
