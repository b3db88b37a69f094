package storage

import (
	"time"

	"github.com/rmartins/repowatch/internal/domain"
)

func toDomain(m RepositoryModel) domain.Repository {
	return domain.Repository{
		ID:            m.ID,
		Path:          m.Path,
		Name:          m.Name,
		Enabled:       m.Enabled,
		FetchInterval: time.Duration(m.FetchIntervalMS) * time.Millisecond,
		AddedAt:       m.CreatedAt,
	}
}

func fromDomain(r domain.Repository) RepositoryModel {
	return RepositoryModel{
		ID:              r.ID,
		Path:            r.Path,
		Name:            r.Name,
		Enabled:         r.Enabled,
		FetchIntervalMS: r.FetchInterval.Milliseconds(),
		CreatedAt:       r.AddedAt,
	}
}

func fetchMetadataFromModel(m RepositoryModel) domain.FetchMetadata {
	meta := domain.FetchMetadata{
		State:     domain.FetchState(m.LastFetchState),
		LastError: m.LastFetchError,
	}
	if m.LastFetchAt != nil {
		meta.LastFetchAt = *m.LastFetchAt
	}
	return meta
}
