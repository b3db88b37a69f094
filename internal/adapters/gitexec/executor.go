// Package gitexec runs git commands under an allow-list, argument
// validation and a bounded per-call timeout. It shells out to the installed
// git binary; no shell is ever involved.
package gitexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rmartins/repowatch/internal/domain"
	"github.com/rmartins/repowatch/internal/logging"
	"github.com/rmartins/repowatch/internal/ports"
)

// allowedVerbs is the fixed set of git subcommands the engine may run.
var allowedVerbs = map[string]bool{
	"add":          true,
	"branch":       true,
	"commit":       true,
	"diff":         true,
	"fetch":        true,
	"for-each-ref": true,
	"log":          true,
	"pull":         true,
	"push":         true,
	"remote":       true,
	"rev-list":     true,
	"rev-parse":    true,
	"status":       true,
	"symbolic-ref": true,
}

// Config carries the values the executor needs at construction.
type Config struct {
	GitBin         string        // defaults to "git"
	DefaultTimeout time.Duration // applied when a request has no timeout
	CustomPath     []string      // extra executable search path entries
}

// Executor is the default ports.CommandRunner implementation.
type Executor struct {
	gitBin         string
	defaultTimeout time.Duration
	searchPath     string
}

var _ ports.CommandRunner = (*Executor)(nil)

// New creates an Executor. The augmented search path is computed once: custom
// entries are validated and prepended ahead of the inherited PATH.
func New(cfg Config) *Executor {
	bin := cfg.GitBin
	if bin == "" {
		bin = "git"
	}
	timeout := cfg.DefaultTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Executor{
		gitBin:         bin,
		defaultTimeout: timeout,
		searchPath:     AugmentPath(cfg.CustomPath, os.Getenv("PATH")),
	}
}

// Run executes one git command. The subcommand verb must be on the
// allow-list and no argument may contain shell metacharacters; both checks
// happen before any process spawns.
func (e *Executor) Run(ctx context.Context, req ports.ExecRequest) (ports.ExecResult, error) {
	if len(req.Args) == 0 {
		return ports.ExecResult{}, &domain.GitError{
			Kind: domain.ErrKindCommandRejected,
			Err:  errors.New("empty command"),
		}
	}
	verb := req.Args[0]
	if !allowedVerbs[verb] {
		logging.Logger.Warn("Rejected git subcommand", "verb", verb)
		return ports.ExecResult{}, &domain.GitError{
			Kind: domain.ErrKindCommandRejected,
			Op:   verb,
			Path: req.Dir,
			Err:  fmt.Errorf("subcommand %q is not allowed", verb),
		}
	}
	for _, arg := range req.Args[1:] {
		if err := ValidateArgument(arg); err != nil {
			logging.Logger.Warn("Rejected git argument", "verb", verb, "error", err)
			return ports.ExecResult{}, &domain.GitError{
				Kind: domain.ErrKindCommandRejected,
				Op:   verb,
				Path: req.Dir,
				Err:  err,
			}
		}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.gitBin, req.Args...)
	cmd.Dir = req.Dir
	cmd.Env = e.environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	logging.Logger.Debug("Ran git command",
		"verb", verb,
		"dir", req.Dir,
		"duration", elapsed,
		"error", err != nil)

	if err == nil {
		return ports.ExecResult{Stdout: stdout.String()}, nil
	}

	// Timeout is a distinct failure kind, never conflated with a non-zero
	// exit caused by the signal.
	if ctx.Err() == context.DeadlineExceeded {
		return ports.ExecResult{}, &domain.GitError{
			Kind:   domain.ErrKindCommandTimedOut,
			Op:     verb,
			Path:   req.Dir,
			Stderr: stderr.String(),
			Err:    context.DeadlineExceeded,
		}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		kind := domain.ClassifyOutput(stderr.String())
		return ports.ExecResult{Stdout: stdout.String(), ExitCode: exitErr.ExitCode()}, &domain.GitError{
			Kind:   kind,
			Op:     verb,
			Path:   req.Dir,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}

	// Spawn failure (binary missing, bad working directory, ...).
	return ports.ExecResult{}, &domain.GitError{
		Kind: domain.ErrKindUnknown,
		Op:   verb,
		Path: req.Dir,
		Err:  err,
	}
}

// environ returns the process environment with PATH replaced by the
// augmented search path.
func (e *Executor) environ() []string {
	env := os.Environ()
	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if strings.HasPrefix(kv, "PATH=") {
			continue
		}
		out = append(out, kv)
	}
	return append(out, "PATH="+e.searchPath)
}
