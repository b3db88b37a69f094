package ports

import (
	"context"
	"time"
)

// ExecRequest describes one external git invocation. Args holds the
// subcommand verb first, then its arguments. A zero Timeout falls back to
// the runner's default.
type ExecRequest struct {
	Args    []string
	Dir     string
	Timeout time.Duration
}

// ExecResult carries the output of a completed command. ExitCode is zero
// on success.
type ExecResult struct {
	Stdout   string
	ExitCode int
}

// CommandRunner executes a single validated git command. Failures are
// returned as *domain.GitError so callers can branch on the kind.
type CommandRunner interface {
	Run(ctx context.Context, req ExecRequest) (ExecResult, error)
}
