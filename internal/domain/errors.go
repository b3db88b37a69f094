package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRepositoryNotFound = errors.New("repository not found")
	ErrRepositoryExists   = errors.New("repository already registered")
)

// ErrorKind is the closed set of failure categories surfaced by the engine.
type ErrorKind string

const (
	ErrKindCommandRejected   ErrorKind = "command_rejected"
	ErrKindCommandTimedOut   ErrorKind = "command_timed_out"
	ErrKindNetwork           ErrorKind = "network"
	ErrKindAuth              ErrorKind = "auth"
	ErrKindRepositoryInvalid ErrorKind = "repository_invalid"
	ErrKindStatusUnavailable ErrorKind = "status_unavailable"
	ErrKindUnknown           ErrorKind = "unknown"
)

// GitError is a classified failure from an external git command or from the
// status engine built on top of it. Each kind carries only the fields that
// apply: Stderr is empty for rejections, Path may be empty for validation
// failures.
type GitError struct {
	Kind   ErrorKind
	Op     string // git subcommand verb, e.g. "fetch"
	Path   string // repository path, when known
	Stderr string
	Err    error
}

func (e *GitError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "git %s: %s", e.Op, e.Kind)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Stderr != "" {
		fmt.Fprintf(&b, " (%s)", firstLine(e.Stderr))
	}
	return b.String()
}

func (e *GitError) Unwrap() error { return e.Err }

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

// KindOf extracts the error kind from an error chain. Non-GitError values
// map to ErrKindUnknown, nil to the empty kind.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ge *GitError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrKindCommandTimedOut
	}
	return ErrKindUnknown
}

// ClassifyOutput maps git stderr text into an error kind. The heuristics are
// intentionally broad: categories only need to be actionable, not exact.
func ClassifyOutput(stderr string) ErrorKind {
	msg := strings.ToLower(stderr)
	switch {
	case containsAny(msg,
		"permission denied",
		"authentication failed",
		"access denied",
		"publickey",
		"could not read username",
		"could not read password",
		"credential"):
		return ErrKindAuth
	case containsAny(msg,
		"could not resolve host",
		"network is unreachable",
		"connection timed out",
		"connection refused",
		"failed to connect",
		"temporary failure in name resolution",
		"tls handshake timeout"):
		return ErrKindNetwork
	case containsAny(msg,
		"not a git repository",
		"bad object",
		"corrupt",
		"repository not found",
		"does not appear to be a git repository"):
		return ErrKindRepositoryInvalid
	case containsAny(msg, "timed out", "timeout"):
		return ErrKindCommandTimedOut
	default:
		return ErrKindUnknown
	}
}

func containsAny(msg string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
