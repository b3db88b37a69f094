// Package cache maintains the in-memory snapshot of extended repository
// statuses, coalesces refresh storms and drives the poll loop.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rmartins/repowatch/internal/domain"
	"github.com/rmartins/repowatch/internal/logging"
	"github.com/rmartins/repowatch/internal/ports"
)

// Entry is one cached status. Err is set when the last refresh of this
// repository failed; the previous status is not retained.
type Entry struct {
	Status    domain.ExtendedStatus
	Err       error
	UpdatedAt time.Time
}

// Cache implements the status cache and its poll loop. Entries are replaced
// atomically; readers never observe partial updates.
type Cache struct {
	registry     ports.RegistryReader
	status       ports.StatusProvider
	pollInterval time.Duration

	mu          sync.Mutex
	entries     map[string]Entry
	refreshing  bool
	pending     bool
	stopCh      chan struct{}
	subscribers []func()

	debouncer *Debouncer
}

// New creates a Cache. debounce is the quiet period applied to
// RequestRefresh bursts.
func New(registry ports.RegistryReader, status ports.StatusProvider, pollInterval, debounce time.Duration) *Cache {
	c := &Cache{
		registry:     registry,
		status:       status,
		pollInterval: pollInterval,
		entries:      make(map[string]Entry),
	}
	c.debouncer = NewDebouncer(debounce, func() {
		c.RefreshAll(context.Background())
	})
	return c
}

// Get returns the cached entry for one repository.
func (c *Cache) Get(id string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[id]
	return entry, ok
}

// Snapshot returns a copy of the whole cache map.
func (c *Cache) Snapshot() map[string]Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]Entry, len(c.entries))
	for id, entry := range c.entries {
		out[id] = entry
	}
	return out
}

// Subscribe registers a callback invoked after each completed refresh pass
// and after each single-repository refresh.
func (c *Cache) Subscribe(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// RequestRefresh schedules a debounced full refresh. Bursts of requests
// (fetch completions, commit events) collapse into a single pass.
func (c *Cache) RequestRefresh() {
	c.debouncer.Call()
}

// OnFetchResult is wired as a scheduler subscriber.
func (c *Cache) OnFetchResult(domain.FetchResult) {
	c.RequestRefresh()
}

// RefreshAll refreshes every enabled repository. If a refresh is already
// running, a single pending flag is set instead of starting a second pass;
// the running refresh performs exactly one more pass when it completes.
// Concurrent work is therefore bounded to "current + at most one queued"
// regardless of request volume.
func (c *Cache) RefreshAll(ctx context.Context) {
	c.mu.Lock()
	if c.refreshing {
		c.pending = true
		c.mu.Unlock()
		return
	}
	c.refreshing = true
	c.mu.Unlock()

	for {
		c.refreshPass(ctx)
		c.notifySubscribers()

		c.mu.Lock()
		if !c.pending {
			c.refreshing = false
			c.mu.Unlock()
			return
		}
		c.pending = false
		c.mu.Unlock()
	}
}

// RefreshRepository refreshes a single entry in isolation.
func (c *Cache) RefreshRepository(ctx context.Context, id string) error {
	repo, err := c.registry.Get(ctx, id)
	if err != nil {
		return err
	}
	c.refreshOne(ctx, *repo)
	c.notifySubscribers()
	return nil
}

// Activate starts the poll loop. Repeated activation is a no-op while the
// loop is running.
func (c *Cache) Activate() {
	c.mu.Lock()
	if c.stopCh != nil {
		c.mu.Unlock()
		return
	}
	stopCh := make(chan struct{})
	c.stopCh = stopCh
	c.mu.Unlock()

	logging.Logger.Debug("Poll loop activated", "interval", c.pollInterval)
	go c.pollLoop(stopCh)
}

// Deactivate stops the poll loop unconditionally. An in-flight refresh pass
// completes and its results are still applied.
func (c *Cache) Deactivate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopCh != nil {
		close(c.stopCh)
		c.stopCh = nil
		logging.Logger.Debug("Poll loop deactivated")
	}
}

func (c *Cache) pollLoop(stopCh chan struct{}) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			c.RefreshAll(context.Background())
		}
	}
}

// refreshPass queries all enabled repositories concurrently. Each is
// fault-isolated: one failure flags only that entry.
func (c *Cache) refreshPass(ctx context.Context) {
	repos, err := c.registry.ListEnabled(ctx)
	if err != nil {
		logging.Logger.Error("Failed to list repositories for refresh", "error", err)
		return
	}

	var g errgroup.Group
	for _, repo := range repos {
		repo := repo
		g.Go(func() error {
			c.refreshOne(ctx, repo)
			return nil
		})
	}
	g.Wait()
}

func (c *Cache) refreshOne(ctx context.Context, repo domain.Repository) {
	meta, err := c.registry.LastFetch(ctx, repo.ID)
	if err != nil {
		logging.Logger.Debug("No fetch metadata", "repository", repo.ID, "error", err)
		meta = domain.FetchMetadata{}
	}

	ext, err := c.status.ExtendedStatus(ctx, repo, meta)

	c.mu.Lock()
	if err != nil {
		c.entries[repo.ID] = Entry{Err: err, UpdatedAt: time.Now()}
	} else {
		c.entries[repo.ID] = Entry{Status: ext, UpdatedAt: time.Now()}
	}
	c.mu.Unlock()
}

func (c *Cache) notifySubscribers() {
	c.mu.Lock()
	subs := make([]func(), len(c.subscribers))
	copy(subs, c.subscribers)
	c.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}
