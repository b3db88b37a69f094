// Package scheduler owns per-repository fetch timers, deduplicates
// concurrent fetches and classifies fetch failures.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rmartins/repowatch/internal/domain"
	"github.com/rmartins/repowatch/internal/logging"
	"github.com/rmartins/repowatch/internal/ports"
)

// branchInfoProvider is the slice of the status service the scheduler needs
// to package branch info into fetch results.
type branchInfoProvider interface {
	RemoteTracking(ctx context.Context, path, branch string) (domain.RemoteTrackingStatus, error)
}

// Scheduler implements ports.Fetcher. At most one fetch per repository runs
// at a time; simultaneous requests share the in-flight result.
type Scheduler struct {
	registry ports.RegistryReader
	persist  ports.FetchMetadataWriter
	runner   ports.CommandRunner
	status   branchInfoProvider

	group singleflight.Group

	mu          sync.Mutex
	stops       map[string]chan struct{}
	inFlight    map[string]bool
	subscribers []func(domain.FetchResult)
}

var _ ports.Fetcher = (*Scheduler)(nil)

// New creates a Scheduler. persist may be nil when fetch metadata is not
// persisted anywhere.
func New(registry ports.RegistryReader, persist ports.FetchMetadataWriter, runner ports.CommandRunner, status branchInfoProvider) *Scheduler {
	return &Scheduler{
		registry: registry,
		persist:  persist,
		runner:   runner,
		status:   status,
		stops:    make(map[string]chan struct{}),
		inFlight: make(map[string]bool),
	}
}

// Subscribe registers a callback invoked once per completed fetch attempt.
// Subscribers must not block; long work belongs in their own goroutines.
func (s *Scheduler) Subscribe(fn func(domain.FetchResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Schedule installs a repeating fetch timer for the repository, replacing
// any existing one.
func (s *Scheduler) Schedule(id string, interval time.Duration) {
	if interval <= 0 {
		return
	}
	stopCh := make(chan struct{})

	s.mu.Lock()
	if old, ok := s.stops[id]; ok {
		close(old)
	}
	s.stops[id] = stopCh
	s.mu.Unlock()

	logging.Logger.Debug("Scheduled repository", "repository", id, "interval", interval)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				if _, err := s.FetchNow(context.Background(), id); err != nil {
					// Repository was deleted; stop firing for it.
					if errors.Is(err, domain.ErrRepositoryNotFound) {
						s.Unschedule(id)
						return
					}
				}
			}
		}
	}()
}

// Unschedule cancels the repository's timer and clears its in-flight
// marker. An already-started fetch is not aborted; it completes and its
// result is still applied.
func (s *Scheduler) Unschedule(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stopCh, ok := s.stops[id]; ok {
		close(stopCh)
		delete(s.stops, id)
	}
	delete(s.inFlight, id)
}

// StopAll cancels every timer and clears all in-flight markers.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, stopCh := range s.stops {
		close(stopCh)
		delete(s.stops, id)
	}
	s.inFlight = make(map[string]bool)
}

// InFlight reports whether a fetch for the repository is currently running.
func (s *Scheduler) InFlight(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[id]
}

// FetchNow fetches one repository. Unknown ids fail fast with
// domain.ErrRepositoryNotFound; every other failure is classified and
// embedded in the returned FetchResult. Concurrent calls for the same id
// share a single underlying command execution.
func (s *Scheduler) FetchNow(ctx context.Context, id string) (domain.FetchResult, error) {
	repo, err := s.registry.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrRepositoryNotFound) {
			return domain.FetchResult{}, domain.ErrRepositoryNotFound
		}
		return domain.FetchResult{}, err
	}

	v, err, shared := s.group.Do(id, func() (any, error) {
		s.setInFlight(id, true)
		defer s.setInFlight(id, false)

		result := s.fetch(ctx, *repo)
		s.publish(result)
		s.persistResult(result)
		return result, nil
	})
	if err != nil {
		// The singleflight callback never returns an error; this is
		// unreachable in practice.
		return domain.FetchResult{}, err
	}
	result := v.(domain.FetchResult)
	if shared {
		logging.Logger.Debug("Shared in-flight fetch result", "repository", id)
	}
	return result, nil
}

// FetchAll fetches every enabled repository strictly one at a time in
// registration order. One repository's failure never aborts the rest.
func (s *Scheduler) FetchAll(ctx context.Context) []domain.FetchResult {
	repos, err := s.registry.ListEnabled(ctx)
	if err != nil {
		logging.Logger.Error("Failed to list repositories for fetch", "error", err)
		return nil
	}

	results := make([]domain.FetchResult, 0, len(repos))
	for _, repo := range repos {
		result, err := s.FetchNow(ctx, repo.ID)
		if err != nil {
			// Deleted between listing and fetching; skip.
			continue
		}
		results = append(results, result)
	}
	return results
}

// fetch runs the underlying command and packages the outcome. It always
// produces a FetchResult, never an error.
func (s *Scheduler) fetch(ctx context.Context, repo domain.Repository) domain.FetchResult {
	result := domain.FetchResult{
		RepositoryID: repo.ID,
		FetchedAt:    time.Now(),
	}

	_, err := s.runner.Run(ctx, ports.ExecRequest{
		Args: []string{"fetch", "--prune"},
		Dir:  repo.Path,
	})
	if err != nil {
		result.Err = asFetchError(err, repo.Path)
		logging.Logger.Warn("Fetch failed",
			"repository", repo.ID,
			"kind", result.Err.Kind,
			"error", err)
		return result
	}

	result.Success = true

	// Branch info is best effort and omitted for detached HEAD or an
	// untracked branch.
	tracking, err := s.status.RemoteTracking(ctx, repo.Path, "")
	if err == nil && tracking.TrackingBranch != "" {
		result.RemoteChanges = tracking.HasChanges
		result.CommitsBehind = tracking.Behind
		result.Branches = []domain.BranchSyncInfo{{
			Branch:       tracking.Branch,
			RemoteBranch: tracking.TrackingBranch,
			Ahead:        tracking.Ahead,
			Behind:       tracking.Behind,
		}}
	}

	logging.Logger.Info("Fetch completed",
		"repository", repo.ID,
		"remote_changes", result.RemoteChanges,
		"behind", result.CommitsBehind)
	return result
}

func (s *Scheduler) setInFlight(id string, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v {
		s.inFlight[id] = true
	} else {
		delete(s.inFlight, id)
	}
}

func (s *Scheduler) publish(result domain.FetchResult) {
	s.mu.Lock()
	subs := make([]func(domain.FetchResult), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(result)
	}
}

// persistResult hands the result to the registry without awaiting it.
func (s *Scheduler) persistResult(result domain.FetchResult) {
	if s.persist == nil {
		return
	}
	go func() {
		if err := s.persist.SaveFetchResult(context.Background(), result); err != nil {
			logging.Logger.Warn("Failed to persist fetch result",
				"repository", result.RepositoryID,
				"error", err)
		}
	}()
}

// asFetchError folds any error into the closed taxonomy, keeping an
// already-classified GitError as is.
func asFetchError(err error, path string) *domain.GitError {
	var ge *domain.GitError
	if errors.As(err, &ge) {
		return ge
	}
	return &domain.GitError{
		Kind: domain.KindOf(err),
		Op:   "fetch",
		Path: path,
		Err:  err,
	}
}
