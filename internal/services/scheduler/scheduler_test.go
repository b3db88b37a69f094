package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmartins/repowatch/internal/domain"
	"github.com/rmartins/repowatch/internal/ports"
)

// fakeRegistry serves a fixed repository list and records persisted results.
type fakeRegistry struct {
	mu    sync.Mutex
	repos []domain.Repository
	saved []domain.FetchResult
}

func (f *fakeRegistry) Get(ctx context.Context, id string) (*domain.Repository, error) {
	for _, repo := range f.repos {
		if repo.ID == id {
			r := repo
			return &r, nil
		}
	}
	return nil, domain.ErrRepositoryNotFound
}

func (f *fakeRegistry) List(ctx context.Context) ([]domain.Repository, error) {
	return f.repos, nil
}

func (f *fakeRegistry) ListEnabled(ctx context.Context) ([]domain.Repository, error) {
	var out []domain.Repository
	for _, repo := range f.repos {
		if repo.Enabled {
			out = append(out, repo)
		}
	}
	return out, nil
}

func (f *fakeRegistry) LastFetch(ctx context.Context, id string) (domain.FetchMetadata, error) {
	return domain.FetchMetadata{}, nil
}

func (f *fakeRegistry) SaveFetchResult(ctx context.Context, result domain.FetchResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, result)
	return nil
}

func (f *fakeRegistry) savedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

// fetchRunner records fetch executions per directory and can block or fail.
type fetchRunner struct {
	mu      sync.Mutex
	events  []string
	counts  map[string]int
	block   chan struct{} // when non-nil, fetches wait on it
	failDir map[string]error
	delay   time.Duration
}

func newFetchRunner() *fetchRunner {
	return &fetchRunner{counts: make(map[string]int), failDir: make(map[string]error)}
}

func (f *fetchRunner) Run(ctx context.Context, req ports.ExecRequest) (ports.ExecResult, error) {
	if req.Args[0] != "fetch" {
		// Tracking queries made after a successful fetch: report no upstream.
		return ports.ExecResult{}, &domain.GitError{Kind: domain.ErrKindUnknown, Op: req.Args[0]}
	}

	f.mu.Lock()
	f.events = append(f.events, "start:"+req.Dir)
	f.counts[req.Dir]++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.events = append(f.events, "end:"+req.Dir)
	err := f.failDir[req.Dir]
	f.mu.Unlock()

	if err != nil {
		return ports.ExecResult{}, err
	}
	return ports.ExecResult{}, nil
}

func (f *fetchRunner) count(dir string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[dir]
}

// trackingStub satisfies the scheduler's remote-tracking dependency.
type trackingStub struct {
	status domain.RemoteTrackingStatus
	err    error
}

func (t *trackingStub) RemoteTracking(ctx context.Context, path, branch string) (domain.RemoteTrackingStatus, error) {
	return t.status, t.err
}

func repo(id, path string) domain.Repository {
	return domain.Repository{ID: id, Path: path, Name: id, Enabled: true}
}

func TestFetchNow_UnknownRepositoryFailsFast(t *testing.T) {
	s := New(&fakeRegistry{}, nil, newFetchRunner(), &trackingStub{})

	_, err := s.FetchNow(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrRepositoryNotFound)
}

func TestFetchNow_ConcurrentCallsShareOneExecution(t *testing.T) {
	registry := &fakeRegistry{repos: []domain.Repository{repo("r1", "/repo1")}}
	runner := newFetchRunner()
	runner.block = make(chan struct{})
	s := New(registry, registry, runner, &trackingStub{})

	const callers = 8
	results := make([]domain.FetchResult, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			result, err := s.FetchNow(context.Background(), "r1")
			assert.NoError(t, err)
			results[i] = result
		}()
	}

	// Let every caller join the in-flight fetch, then release it.
	time.Sleep(100 * time.Millisecond)
	close(runner.block)
	wg.Wait()

	assert.Equal(t, 1, runner.count("/repo1"), "concurrent calls must share one execution")
	for _, result := range results {
		assert.Equal(t, results[0], result, "all callers see the same result")
	}
}

func TestFetchNow_FailureIsEmbeddedNotReturned(t *testing.T) {
	registry := &fakeRegistry{repos: []domain.Repository{repo("r1", "/repo1")}}
	runner := newFetchRunner()
	runner.failDir["/repo1"] = &domain.GitError{
		Kind:   domain.ErrKindNetwork,
		Op:     "fetch",
		Stderr: "fatal: could not resolve host: example.com",
	}
	s := New(registry, registry, runner, &trackingStub{})

	result, err := s.FetchNow(context.Background(), "r1")

	require.NoError(t, err, "fetch failures resolve to a result, never an error")
	assert.False(t, result.Success)
	require.NotNil(t, result.Err)
	assert.Equal(t, domain.ErrKindNetwork, result.Err.Kind)
}

func TestFetchNow_PackagesBranchInfo(t *testing.T) {
	registry := &fakeRegistry{repos: []domain.Repository{repo("r1", "/repo1")}}
	tracking := &trackingStub{status: domain.NewRemoteTrackingStatus("main", "origin/main", 1, 2)}
	s := New(registry, registry, newFetchRunner(), tracking)

	result, err := s.FetchNow(context.Background(), "r1")

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, result.RemoteChanges)
	assert.Equal(t, 2, result.CommitsBehind)
	require.Len(t, result.Branches, 1)
	assert.Equal(t, "main", result.Branches[0].Branch)
	assert.Equal(t, "origin/main", result.Branches[0].RemoteBranch)
}

func TestFetchNow_OmitsBranchInfoWithoutUpstream(t *testing.T) {
	registry := &fakeRegistry{repos: []domain.Repository{repo("r1", "/repo1")}}
	tracking := &trackingStub{status: domain.RemoteTrackingStatus{}}
	s := New(registry, registry, newFetchRunner(), tracking)

	result, err := s.FetchNow(context.Background(), "r1")

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.Branches)
}

func TestFetchAll_StrictlySequentialInRegistrationOrder(t *testing.T) {
	registry := &fakeRegistry{repos: []domain.Repository{
		repo("a", "/a"), repo("b", "/b"), repo("c", "/c"),
	}}
	runner := newFetchRunner()
	runner.delay = 10 * time.Millisecond
	runner.failDir["/b"] = &domain.GitError{Kind: domain.ErrKindAuth, Op: "fetch"}
	s := New(registry, registry, runner, &trackingStub{})

	results := s.FetchAll(context.Background())

	require.Len(t, results, 3)
	assert.Equal(t, []string{
		"start:/a", "end:/a",
		"start:/b", "end:/b",
		"start:/c", "end:/c",
	}, runner.events, "each fetch completes before the next starts")

	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success, "b fails without aborting the rest")
	assert.True(t, results[2].Success)
}

func TestFetchAll_SkipsDisabledRepositories(t *testing.T) {
	disabled := repo("off", "/off")
	disabled.Enabled = false
	registry := &fakeRegistry{repos: []domain.Repository{repo("on", "/on"), disabled}}
	runner := newFetchRunner()
	s := New(registry, registry, runner, &trackingStub{})

	results := s.FetchAll(context.Background())

	require.Len(t, results, 1)
	assert.Equal(t, 0, runner.count("/off"))
}

func TestFetchNow_PublishesAndPersists(t *testing.T) {
	registry := &fakeRegistry{repos: []domain.Repository{repo("r1", "/repo1")}}
	s := New(registry, registry, newFetchRunner(), &trackingStub{})

	var mu sync.Mutex
	var published []domain.FetchResult
	s.Subscribe(func(result domain.FetchResult) {
		mu.Lock()
		defer mu.Unlock()
		published = append(published, result)
	})

	_, err := s.FetchNow(context.Background(), "r1")
	require.NoError(t, err)

	mu.Lock()
	assert.Len(t, published, 1)
	mu.Unlock()

	// Persistence is fire-and-forget; give the goroutine a moment.
	assert.Eventually(t, func() bool {
		return registry.savedCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestScheduleAndStopAll(t *testing.T) {
	registry := &fakeRegistry{repos: []domain.Repository{repo("r1", "/repo1")}}
	runner := newFetchRunner()
	s := New(registry, registry, runner, &trackingStub{})

	s.Schedule("r1", 15*time.Millisecond)

	assert.Eventually(t, func() bool {
		return runner.count("/repo1") >= 2
	}, time.Second, 5*time.Millisecond, "timer fires repeatedly")

	s.StopAll()
	after := runner.count("/repo1")
	time.Sleep(60 * time.Millisecond)
	assert.LessOrEqual(t, runner.count("/repo1"), after+1, "no new firings after StopAll")
	assert.False(t, s.InFlight("r1"))
}

func TestSchedule_ReplacesExistingTimer(t *testing.T) {
	registry := &fakeRegistry{repos: []domain.Repository{repo("r1", "/repo1")}}
	runner := newFetchRunner()
	s := New(registry, registry, runner, &trackingStub{})
	defer s.StopAll()

	s.Schedule("r1", time.Hour)
	s.Schedule("r1", 15*time.Millisecond)

	assert.Eventually(t, func() bool {
		return runner.count("/repo1") >= 1
	}, time.Second, 5*time.Millisecond, "replacement interval is in effect")
}

func TestUnschedule_StopsFutureFirings(t *testing.T) {
	registry := &fakeRegistry{repos: []domain.Repository{repo("r1", "/repo1")}}
	runner := newFetchRunner()
	s := New(registry, registry, runner, &trackingStub{})

	s.Schedule("r1", 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		return runner.count("/repo1") >= 1
	}, time.Second, 5*time.Millisecond)

	s.Unschedule("r1")
	after := runner.count("/repo1")
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, runner.count("/repo1"), after+1)
}

func TestAsFetchError_WrapsPlainErrors(t *testing.T) {
	ge := asFetchError(errors.New("boom"), "/repo")

	assert.Equal(t, domain.ErrKindUnknown, ge.Kind)
	assert.Equal(t, "/repo", ge.Path)
}
