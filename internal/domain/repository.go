package domain

import "time"

// Repository is a registered working copy kept in sync by the watcher.
type Repository struct {
	ID            string
	Path          string
	Name          string
	Enabled       bool
	FetchInterval time.Duration
	AddedAt       time.Time
}

// FetchState reflects the outcome of the most recent fetch attempt.
type FetchState string

const (
	FetchStatePending FetchState = "pending"
	FetchStateSuccess FetchState = "success"
	FetchStateError   FetchState = "error"
)

// FetchMetadata is persisted alongside a repository after each fetch attempt.
type FetchMetadata struct {
	LastFetchAt time.Time
	State       FetchState
	LastError   string
}
