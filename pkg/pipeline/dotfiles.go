package pipeline

import (
	"context"
	"fmt"

	"github.com/hostprep/hostprep/pkg/config"
	"github.com/hostprep/hostprep/pkg/runner"
)

// DotfilesCloner clones the user's dotfiles repository. Its result is
// fed into the ledger like any package outcome.
type DotfilesCloner interface {
	Clone(ctx context.Context, cfg config.DotfilesConfig) error
}

// GitCloner clones with git, running as the target user rather than
// the privileged invoking identity.
type GitCloner struct {
	run runner.Runner
}

// NewGitCloner creates a GitCloner.
func NewGitCloner(run runner.Runner) *GitCloner {
	return &GitCloner{run: run}
}

// Clone implements DotfilesCloner.
func (c *GitCloner) Clone(ctx context.Context, cfg config.DotfilesConfig) error {
	cmd := runner.Command{
		Path: "sudo",
		Args: []string{"-u", cfg.User, "git", "clone", cfg.RepoURL, cfg.TargetDir},
	}

	result, err := c.run.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("dotfiles clone did not run: %w", err)
	}
	if !result.Ok() {
		diag := result.Diagnostic()
		if diag == "" {
			diag = fmt.Sprintf("exit status %d", result.ExitCode)
		}
		return fmt.Errorf("dotfiles clone failed: %s", diag)
	}
	return nil
}
