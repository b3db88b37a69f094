package cmd

import (
	"context"
	"fmt"
)

// FetchCmd fetches all enabled repositories once, in registration order.
type FetchCmd struct {
	Repository string `arg:"" optional:"" help:"Fetch only this repository id or name"`
}

// Run executes the fetch command
func (f *FetchCmd) Run(cli *CLI) error {
	container, err := NewContainer(cli.Settings())
	if err != nil {
		return err
	}
	defer container.Close()

	ctx := context.Background()

	if f.Repository != "" {
		id, err := resolveRepositoryID(ctx, container, f.Repository)
		if err != nil {
			return err
		}
		result, err := container.Scheduler.FetchNow(ctx, id)
		if err != nil {
			return err
		}
		printFetchResult(f.Repository, result.Success, result.CommitsBehind, errText(result))
		return nil
	}

	results := container.Scheduler.FetchAll(ctx)
	repos, err := container.Registry.List(ctx)
	if err != nil {
		return err
	}
	names := make(map[string]string, len(repos))
	for _, repo := range repos {
		names[repo.ID] = repo.Name
	}
	for _, result := range results {
		printFetchResult(names[result.RepositoryID], result.Success, result.CommitsBehind, errText(result))
	}
	return nil
}

func printFetchResult(name string, success bool, behind int, errMsg string) {
	if success {
		fmt.Printf("%s: ok (%d behind)\n", name, behind)
		return
	}
	fmt.Printf("%s: failed: %s\n", name, errMsg)
}
