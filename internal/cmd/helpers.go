package cmd

import (
	"context"

	"github.com/rmartins/repowatch/internal/domain"
)

// resolveRepositoryID accepts either a repository id or a display name.
// Names resolve to the first registered match.
func resolveRepositoryID(ctx context.Context, container *Container, idOrName string) (string, error) {
	if _, err := container.Registry.Get(ctx, idOrName); err == nil {
		return idOrName, nil
	}
	repos, err := container.Registry.List(ctx)
	if err != nil {
		return "", err
	}
	for _, repo := range repos {
		if repo.Name == idOrName {
			return repo.ID, nil
		}
	}
	return "", domain.ErrRepositoryNotFound
}

func errText(result domain.FetchResult) string {
	if result.Err == nil {
		return ""
	}
	return result.Err.Error()
}
