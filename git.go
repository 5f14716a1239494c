package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
)

// CommandRunner runs an external command in a directory.
type CommandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// execRunner runs commands with their output attached to the terminal
type execRunner struct{}

func (execRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// GitPublisher stages, commits and pushes the working directory after a batch.
type GitPublisher struct {
	dir      string
	settings GitSettings
	runner   CommandRunner
	logger   *slog.Logger
}

// NewGitPublisher creates a publisher for the repository at dir. A nil
// runner executes the real git binary.
func NewGitPublisher(dir string, settings GitSettings, runner CommandRunner, logger *slog.Logger) *GitPublisher {
	if runner == nil {
		runner = execRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GitPublisher{dir: dir, settings: settings, runner: runner, logger: logger}
}

// Publish runs git add, commit and push with a "row <start>" message.
// Failures are logged and swallowed unless git.fatal is set.
func (p *GitPublisher) Publish(ctx context.Context, startRow int) error {
	if !p.settings.Enabled {
		p.logger.Info("git publishing disabled; skipping add/commit/push")
		return nil
	}

	steps := [][]string{
		{"add", "."},
		{"commit", "-m", fmt.Sprintf("row %d", startRow)},
		{"push", "-u", p.settings.Remote, p.settings.Branch},
	}
	for _, args := range steps {
		if err := p.runner.Run(ctx, p.dir, "git", args...); err != nil {
			err = fmt.Errorf("git %s: %w", args[0], err)
			if p.settings.Fatal {
				return err
			}
			p.logger.Warn("git command failed, continuing without push", "error", err)
			return nil
		}
	}

	p.logger.Info("changes pushed", "remote", p.settings.Remote, "branch", p.settings.Branch)
	return nil
}
