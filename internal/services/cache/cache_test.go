package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmartins/repowatch/internal/domain"
)

// fakeRegistry serves a fixed list of enabled repositories.
type fakeRegistry struct {
	repos []domain.Repository
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
	return f.repos, nil
}

func (f *fakeRegistry) LastFetch(ctx context.Context, id string) (domain.FetchMetadata, error) {
	return domain.FetchMetadata{State: domain.FetchStateSuccess}, nil
}

// fakeStatus returns canned extended statuses and can fail per repository.
type fakeStatus struct {
	mu    sync.Mutex
	fail  map[string]error
	delay time.Duration
	calls int32
}

func (f *fakeStatus) LocalStatus(ctx context.Context, path string) (domain.LocalStatus, error) {
	return domain.LocalStatus{}, nil
}

func (f *fakeStatus) CurrentBranch(ctx context.Context, path string) (string, error) {
	return "main", nil
}

func (f *fakeStatus) RemoteTracking(ctx context.Context, path, branch string) (domain.RemoteTrackingStatus, error) {
	return domain.RemoteTrackingStatus{}, nil
}

func (f *fakeStatus) ExtendedStatus(ctx context.Context, repo domain.Repository, meta domain.FetchMetadata) (domain.ExtendedStatus, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	err := f.fail[repo.ID]
	f.mu.Unlock()
	if err != nil {
		return domain.ExtendedStatus{}, err
	}
	return domain.ExtendedStatus{
		RepositoryID: repo.ID,
		Local:        domain.LocalStatus{Branch: "main"},
		Fetch:        meta,
	}, nil
}

func repos(ids ...string) []domain.Repository {
	out := make([]domain.Repository, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Repository{ID: id, Path: "/" + id, Name: id, Enabled: true})
	}
	return out
}

func TestRefreshAll_PopulatesEntries(t *testing.T) {
	registry := &fakeRegistry{repos: repos("a", "b")}
	status := &fakeStatus{}
	c := New(registry, status, time.Minute, time.Millisecond)

	c.RefreshAll(context.Background())

	snapshot := c.Snapshot()
	require.Len(t, snapshot, 2)
	assert.NoError(t, snapshot["a"].Err)
	assert.Equal(t, "a", snapshot["a"].Status.RepositoryID)
}

func TestRefreshAll_FaultIsolation(t *testing.T) {
	registry := &fakeRegistry{repos: repos("bad", "good")}
	status := &fakeStatus{fail: map[string]error{
		"bad": &domain.GitError{Kind: domain.ErrKindStatusUnavailable, Op: "status"},
	}}
	c := New(registry, status, time.Minute, time.Millisecond)

	c.RefreshAll(context.Background())

	bad, ok := c.Get("bad")
	require.True(t, ok)
	assert.Error(t, bad.Err)

	good, ok := c.Get("good")
	require.True(t, ok)
	require.NoError(t, good.Err)
	assert.Equal(t, "good", good.Status.RepositoryID)
	assert.Equal(t, "main", good.Status.Local.Branch)
}

func TestRefreshAll_CoalescesConcurrentRequests(t *testing.T) {
	registry := &fakeRegistry{repos: repos("a")}
	status := &fakeStatus{delay: 50 * time.Millisecond}
	c := New(registry, status, time.Minute, time.Millisecond)

	var passes int32
	c.Subscribe(func() { atomic.AddInt32(&passes, 1) })

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.RefreshAll(context.Background())
	}()

	// Three back-to-back requests while the first pass runs collapse into
	// a single queued pass.
	time.Sleep(10 * time.Millisecond)
	c.RefreshAll(context.Background())
	c.RefreshAll(context.Background())
	c.RefreshAll(context.Background())
	wg.Wait()

	assert.Equal(t, int32(2), atomic.LoadInt32(&passes),
		"at most one pass is queued behind the running one")
}

func TestRefreshRepository_IsolatedSingleEntry(t *testing.T) {
	registry := &fakeRegistry{repos: repos("a", "b")}
	status := &fakeStatus{}
	c := New(registry, status, time.Minute, time.Millisecond)

	require.NoError(t, c.RefreshRepository(context.Background(), "a"))

	_, hasA := c.Get("a")
	_, hasB := c.Get("b")
	assert.True(t, hasA)
	assert.False(t, hasB, "only the requested entry is refreshed")
}

func TestRefreshRepository_UnknownID(t *testing.T) {
	c := New(&fakeRegistry{}, &fakeStatus{}, time.Minute, time.Millisecond)

	err := c.RefreshRepository(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrRepositoryNotFound)
}

func TestPollLoop_RunsOnlyWhileActive(t *testing.T) {
	registry := &fakeRegistry{repos: repos("a")}
	status := &fakeStatus{}
	c := New(registry, status, 15*time.Millisecond, time.Millisecond)

	c.Activate()
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&status.calls) >= 2
	}, time.Second, 5*time.Millisecond, "ticks refresh while active")

	c.Deactivate()
	time.Sleep(20 * time.Millisecond) // let an in-flight tick drain
	after := atomic.LoadInt32(&status.calls)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&status.calls), "no ticks after deactivation")
}

func TestActivate_IsIdempotent(t *testing.T) {
	registry := &fakeRegistry{repos: repos("a")}
	status := &fakeStatus{}
	c := New(registry, status, 10*time.Millisecond, time.Millisecond)

	c.Activate()
	c.Activate()
	defer c.Deactivate()

	time.Sleep(35 * time.Millisecond)
	// Roughly 3 ticks for one loop; a doubled loop would show ~6.
	assert.LessOrEqual(t, atomic.LoadInt32(&status.calls), int32(5))
}

func TestRequestRefresh_DebouncesBursts(t *testing.T) {
	registry := &fakeRegistry{repos: repos("a")}
	status := &fakeStatus{}
	c := New(registry, status, time.Minute, 20*time.Millisecond)

	var passes int32
	c.Subscribe(func() { atomic.AddInt32(&passes, 1) })

	for i := 0; i < 5; i++ {
		c.RequestRefresh()
	}

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&passes) == 1
	}, time.Second, 5*time.Millisecond, "a burst collapses into one pass")

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&passes))
}

func TestOnFetchResult_TriggersRefresh(t *testing.T) {
	registry := &fakeRegistry{repos: repos("a")}
	status := &fakeStatus{}
	c := New(registry, status, time.Minute, time.Millisecond)

	c.OnFetchResult(domain.FetchResult{RepositoryID: "a", Success: true})

	assert.Eventually(t, func() bool {
		_, ok := c.Get("a")
		return ok
	}, time.Second, 5*time.Millisecond)
}
