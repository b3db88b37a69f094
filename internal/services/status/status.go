// Package status derives local working-copy status and remote ahead/behind
// counts from git command output.
package status

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rmartins/repowatch/internal/domain"
	"github.com/rmartins/repowatch/internal/logging"
	"github.com/rmartins/repowatch/internal/ports"
)

// Service implements ports.StatusProvider and ports.Committer on top of a
// validated command runner.
type Service struct {
	runner ports.CommandRunner
}

var (
	_ ports.StatusProvider = (*Service)(nil)
	_ ports.Committer      = (*Service)(nil)
)

// New creates a status Service.
func New(runner ports.CommandRunner) *Service {
	return &Service{runner: runner}
}

// CurrentBranch returns the checked-out branch name, empty when HEAD is
// detached. git prints the literal "HEAD" for a detached working position.
func (s *Service) CurrentBranch(ctx context.Context, path string) (string, error) {
	res, err := s.runner.Run(ctx, ports.ExecRequest{
		Args: []string{"rev-parse", "--abbrev-ref", "HEAD"},
		Dir:  path,
	})
	if err != nil {
		// A repository without commits has no HEAD revision to resolve,
		// but the symbolic ref still names the unborn branch.
		ref, refErr := s.runner.Run(ctx, ports.ExecRequest{
			Args: []string{"symbolic-ref", "--short", "-q", "HEAD"},
			Dir:  path,
		})
		if refErr != nil {
			return "", err
		}
		return strings.TrimSpace(ref.Stdout), nil
	}
	branch := strings.TrimSpace(res.Stdout)
	if branch == "HEAD" {
		return "", nil
	}
	return branch, nil
}

// LocalStatus parses short-status output into staged/unstaged/untracked
// buckets. A failure surfaces as StatusUnavailable.
func (s *Service) LocalStatus(ctx context.Context, path string) (domain.LocalStatus, error) {
	branch, err := s.CurrentBranch(ctx, path)
	if err != nil {
		return domain.LocalStatus{}, statusUnavailable(path, err)
	}

	res, err := s.runner.Run(ctx, ports.ExecRequest{
		Args: []string{"status", "--porcelain"},
		Dir:  path,
	})
	if err != nil {
		return domain.LocalStatus{}, statusUnavailable(path, err)
	}

	staged, unstaged, untracked := parsePorcelain(res.Stdout)
	return domain.LocalStatus{
		Branch:    branch,
		Staged:    staged,
		Unstaged:  unstaged,
		Untracked: untracked,
	}, nil
}

// RemoteTracking resolves the upstream of branch (the current branch when
// empty) and counts ahead/behind commits. Detached HEAD and a missing
// upstream are expected states: zero values, no error.
func (s *Service) RemoteTracking(ctx context.Context, path, branch string) (domain.RemoteTrackingStatus, error) {
	if branch == "" {
		current, err := s.CurrentBranch(ctx, path)
		if err != nil {
			return domain.RemoteTrackingStatus{}, err
		}
		if current == "" {
			// Detached HEAD: nothing to compare against.
			return domain.RemoteTrackingStatus{}, nil
		}
		branch = current
	}

	res, err := s.runner.Run(ctx, ports.ExecRequest{
		Args: []string{"rev-parse", "--abbrev-ref", branch + "@{upstream}"},
		Dir:  path,
	})
	if err != nil {
		// No upstream configured is not an error condition.
		logging.Logger.Debug("No tracking branch", "path", path, "branch", branch)
		return domain.NewRemoteTrackingStatus(branch, "", 0, 0), nil
	}
	upstream := strings.TrimSpace(res.Stdout)
	if upstream == "" {
		return domain.NewRemoteTrackingStatus(branch, "", 0, 0), nil
	}

	ahead, err := s.countCommits(ctx, path, upstream+".."+branch)
	if err != nil {
		return domain.RemoteTrackingStatus{}, err
	}
	behind, err := s.countCommits(ctx, path, branch+".."+upstream)
	if err != nil {
		return domain.RemoteTrackingStatus{}, err
	}

	return domain.NewRemoteTrackingStatus(branch, upstream, ahead, behind), nil
}

// ExtendedStatus merges local and remote status with the supplied fetch
// metadata. Local failure is fatal; remote failure degrades to zero counts.
func (s *Service) ExtendedStatus(ctx context.Context, repo domain.Repository, meta domain.FetchMetadata) (domain.ExtendedStatus, error) {
	local, err := s.LocalStatus(ctx, repo.Path)
	if err != nil {
		return domain.ExtendedStatus{}, err
	}

	remote, err := s.RemoteTracking(ctx, repo.Path, local.Branch)
	if err != nil {
		// Best effort: remote counts degrade silently.
		logging.Logger.Debug("Remote tracking query failed", "repository", repo.ID, "error", err)
		remote = domain.RemoteTrackingStatus{Branch: local.Branch}
	}

	return domain.ExtendedStatus{
		RepositoryID:   repo.ID,
		Local:          local,
		TrackingBranch: remote.TrackingBranch,
		Ahead:          remote.Ahead,
		Behind:         remote.Behind,
		HasChanges:     remote.HasChanges,
		Fetch:          normalizeFetchMetadata(meta),
		ComputedAt:     time.Now(),
	}, nil
}

// Commit stages everything and records a commit with the given message.
func (s *Service) Commit(ctx context.Context, path, message string) error {
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("commit message cannot be empty")
	}
	if _, err := s.runner.Run(ctx, ports.ExecRequest{
		Args: []string{"add", "-A"},
		Dir:  path,
	}); err != nil {
		return err
	}
	if _, err := s.runner.Run(ctx, ports.ExecRequest{
		Args: []string{"commit", "-m", message},
		Dir:  path,
	}); err != nil {
		return err
	}
	return nil
}

// Push pushes the current branch to its upstream.
func (s *Service) Push(ctx context.Context, path string) error {
	_, err := s.runner.Run(ctx, ports.ExecRequest{
		Args: []string{"push"},
		Dir:  path,
	})
	return err
}

func (s *Service) countCommits(ctx context.Context, path, revRange string) (int, error) {
	res, err := s.runner.Run(ctx, ports.ExecRequest{
		Args: []string{"rev-list", "--count", revRange},
		Dir:  path,
	})
	if err != nil {
		return 0, err
	}
	count, err := strconv.Atoi(strings.TrimSpace(res.Stdout))
	if err != nil {
		return 0, fmt.Errorf("unexpected rev-list output %q: %w", res.Stdout, err)
	}
	return count, nil
}

// normalizeFetchMetadata maps the registry's in-progress marker to pending
// and leaves everything else untouched.
func normalizeFetchMetadata(meta domain.FetchMetadata) domain.FetchMetadata {
	switch meta.State {
	case domain.FetchStateSuccess, domain.FetchStateError:
		return meta
	default:
		meta.State = domain.FetchStatePending
		return meta
	}
}

func statusUnavailable(path string, err error) error {
	return &domain.GitError{
		Kind: domain.ErrKindStatusUnavailable,
		Op:   "status",
		Path: path,
		Err:  err,
	}
}
