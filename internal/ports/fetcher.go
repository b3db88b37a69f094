package ports

import (
	"context"
	"time"

	"github.com/rmartins/repowatch/internal/domain"
)

// Fetcher schedules and runs remote fetches. FetchNow returns
// domain.ErrRepositoryNotFound for unknown ids; every other failure is
// embedded in the returned FetchResult instead of an error.
type Fetcher interface {
	Schedule(id string, interval time.Duration)
	Unschedule(id string)
	StopAll()
	FetchNow(ctx context.Context, id string) (domain.FetchResult, error)
	FetchAll(ctx context.Context) []domain.FetchResult
	Subscribe(fn func(domain.FetchResult))
}

// AlertKind distinguishes notification categories. Suppression tracks each
// kind independently per repository.
type AlertKind string

const (
	AlertRemoteChanges AlertKind = "remote-changes"
	AlertFetchError    AlertKind = "fetch-error"
)

// Alert is one user-facing notification.
type Alert struct {
	Kind         AlertKind
	RepositoryID string
	Title        string
	Message      string
}

// AlertSink renders alerts to the user. Implementations live outside the
// core engine.
type AlertSink interface {
	Show(alert Alert) error
}
