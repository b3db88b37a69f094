package ports

import (
	"context"

	"github.com/rmartins/repowatch/internal/domain"
)

// StatusProvider computes working-copy and remote-tracking status.
type StatusProvider interface {
	// LocalStatus parses the working tree state. Failures surface as
	// *domain.GitError with kind StatusUnavailable.
	LocalStatus(ctx context.Context, path string) (domain.LocalStatus, error)

	// CurrentBranch returns the checked-out branch, empty when detached.
	CurrentBranch(ctx context.Context, path string) (string, error)

	// RemoteTracking resolves the upstream of the given branch (current
	// branch when empty) and counts ahead/behind. A missing upstream or a
	// detached HEAD yields zero values with no error.
	RemoteTracking(ctx context.Context, path, branch string) (domain.RemoteTrackingStatus, error)

	// ExtendedStatus merges local status, remote counts and the supplied
	// fetch metadata. A local failure is fatal; a remote failure degrades
	// to zero counts.
	ExtendedStatus(ctx context.Context, repo domain.Repository, meta domain.FetchMetadata) (domain.ExtendedStatus, error)
}

// Committer covers the minimum write operations needed to drive status.
type Committer interface {
	Commit(ctx context.Context, path, message string) error
	Push(ctx context.Context, path string) error
}
