package ports

import (
	"context"
	"time"

	"github.com/rmartins/repowatch/internal/domain"
)

// RegistryReader reads registered repositories. List and ListEnabled return
// repositories in registration order.
type RegistryReader interface {
	Get(ctx context.Context, id string) (*domain.Repository, error)
	List(ctx context.Context) ([]domain.Repository, error)
	ListEnabled(ctx context.Context) ([]domain.Repository, error)
	LastFetch(ctx context.Context, id string) (domain.FetchMetadata, error)
}

// RegistryWriter creates, mutates and removes repository registrations.
type RegistryWriter interface {
	Add(ctx context.Context, repo domain.Repository) error
	Delete(ctx context.Context, id string) error
	SetEnabled(ctx context.Context, id string, enabled bool) error
	SetFetchInterval(ctx context.Context, id string, interval time.Duration) error
}

// FetchMetadataWriter persists the outcome of a fetch attempt. Callers treat
// this as fire-and-forget: a failed write must not affect control flow.
type FetchMetadataWriter interface {
	SaveFetchResult(ctx context.Context, result domain.FetchResult) error
}

// RepositoryRegistry is the composite interface
type RepositoryRegistry interface {
	RegistryReader
	RegistryWriter
	FetchMetadataWriter
	Close() error
}
