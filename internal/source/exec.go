package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	ExecSourceKind = "exec"

	defaultExecTimeout = 30 * time.Second
)

// ExecConfig describes a command whose stdout becomes entry content.
type ExecConfig struct {
	Program    []string
	WorkingDir string
	Timeout    string
	Env        map[string]string
}

// ExecSource runs a command and serves its stdout.
type ExecSource struct {
	logger     *zap.Logger
	program    []string
	workingDir string
	timeout    time.Duration
	env        map[string]string
}

func NewExecSource(logger *zap.Logger, cfg ExecConfig) (*ExecSource, error) {
	if len(cfg.Program) == 0 {
		return nil, fmt.Errorf("program is required")
	}

	timeout := defaultExecTimeout
	if cfg.Timeout != "" {
		parsed, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", cfg.Timeout, err)
		}
		timeout = parsed
	}

	workingDir := cfg.WorkingDir
	if workingDir != "" && !filepath.IsAbs(workingDir) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		workingDir = filepath.Join(cwd, workingDir)
	}

	return &ExecSource{
		logger:     logger,
		program:    cfg.Program,
		workingDir: workingDir,
		timeout:    timeout,
		env:        cfg.Env,
	}, nil
}

func (s *ExecSource) Name() string {
	return fmt.Sprintf("exec(%s)", strings.Join(s.program, " "))
}

func (s *ExecSource) Open(ctx context.Context) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.program[0], s.program[1:]...)
	if s.workingDir != "" {
		cmd.Dir = s.workingDir
	}
	cmd.Env = os.Environ()
	for k, v := range s.env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	s.logger.Debug("running exec source",
		zap.Strings("program", s.program),
		zap.Duration("timeout", s.timeout),
		zap.String("working_dir", cmd.Dir),
	)
	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)
	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	s.logger.Debug("exec source finished",
		zap.Int("exit_code", exitCode),
		zap.Duration("duration", duration),
	)

	if err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("command timed out after %s: %s", s.timeout, stderrStr)
		}
		if stderrStr != "" {
			return nil, fmt.Errorf("command failed: %w: %s", err, stderrStr)
		}
		return nil, fmt.Errorf("command failed: %w", err)
	}

	return io.NopCloser(&stdout), nil
}
