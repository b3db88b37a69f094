package cmd

import (
	"fmt"
	"os"

	"github.com/rmartins/repowatch/internal/adapters/gitexec"
	adapterstorage "github.com/rmartins/repowatch/internal/adapters/storage"
	"github.com/rmartins/repowatch/internal/config"
	"github.com/rmartins/repowatch/internal/domain"
	"github.com/rmartins/repowatch/internal/ports"
	"github.com/rmartins/repowatch/internal/services/cache"
	"github.com/rmartins/repowatch/internal/services/notify"
	"github.com/rmartins/repowatch/internal/services/scheduler"
	"github.com/rmartins/repowatch/internal/services/status"
)

// Container holds all dependencies for the application
type Container struct {
	Settings   *config.Settings
	Registry   ports.RepositoryRegistry
	Executor   *gitexec.Executor
	Status     *status.Service
	Scheduler  *scheduler.Scheduler
	Cache      *cache.Cache
	Dispatcher *notify.Dispatcher
}

// NewContainer creates a Container with all dependencies wired
func NewContainer(settings *config.Settings) (*Container, error) {
	registry, err := adapterstorage.NewSQLiteRegistry(settings.GetDBPath())
	if err != nil {
		return nil, err
	}

	executor := gitexec.New(gitexec.Config{
		DefaultTimeout: settings.CommandTimeout(),
		CustomPath:     settings.CustomPathEntries,
	})

	statusService := status.New(executor)
	sched := scheduler.New(registry, registry, executor, statusService)
	statusCache := cache.New(registry, statusService, settings.PollInterval(), settings.RefreshDebounce())

	dispatcher := notify.New(notify.NewWriterSink(os.Stderr), settings.NotificationCooldown())
	if settings.NotificationsEnabled != nil {
		dispatcher.SetEnabled(*settings.NotificationsEnabled)
	}

	// Fetch results feed both the debounced cache refresh and the
	// cooldown-gated alerts. Presentation subscribes to the cache; nothing
	// holds a back-reference into it.
	sched.Subscribe(statusCache.OnFetchResult)
	sched.Subscribe(fetchAlerter(dispatcher))

	return &Container{
		Settings:   settings,
		Registry:   registry,
		Executor:   executor,
		Status:     statusService,
		Scheduler:  sched,
		Cache:      statusCache,
		Dispatcher: dispatcher,
	}, nil
}

// fetchAlerter maps fetch results to alerts. Suppression and the global
// gate stay inside the dispatcher.
func fetchAlerter(dispatcher *notify.Dispatcher) func(domain.FetchResult) {
	return func(result domain.FetchResult) {
		switch {
		case !result.Success && result.Err != nil:
			dispatcher.Notify(ports.Alert{
				Kind:         ports.AlertFetchError,
				RepositoryID: result.RepositoryID,
				Title:        "Fetch failed",
				Message:      result.Err.Error(),
			})
		case result.RemoteChanges:
			dispatcher.Notify(ports.Alert{
				Kind:         ports.AlertRemoteChanges,
				RepositoryID: result.RepositoryID,
				Title:        "Remote changes",
				Message:      fmt.Sprintf("%d commit(s) behind upstream", result.CommitsBehind),
			})
		}
	}
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	if c.Registry != nil {
		return c.Registry.Close()
	}
	return nil
}
