package cmd

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"os"

	"github.com/rmartins/repowatch/internal/services/cache"
)

// StatusCmd prints the extended status of registered repositories.
type StatusCmd struct {
	Repository string `arg:"" optional:"" help:"Repository id or name (all when omitted)"`
}

// Run executes the status command
func (s *StatusCmd) Run(cli *CLI) error {
	container, err := NewContainer(cli.Settings())
	if err != nil {
		return err
	}
	defer container.Close()

	ctx := context.Background()
	repos, err := container.Registry.List(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tBRANCH\tAHEAD\tBEHIND\tDIRTY\tLAST FETCH")

	for _, repo := range repos {
		if s.Repository != "" && repo.ID != s.Repository && repo.Name != s.Repository {
			continue
		}
		if err := container.Cache.RefreshRepository(ctx, repo.ID); err != nil {
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\terror: %v\n", repo.Name, err)
			continue
		}
		entry, ok := container.Cache.Get(repo.ID)
		if !ok {
			continue
		}
		fmt.Fprintln(w, formatEntry(repo.Name, entry))
	}

	return w.Flush()
}

func formatEntry(name string, entry cache.Entry) string {
	if entry.Err != nil {
		return fmt.Sprintf("%s\t-\t-\t-\t-\terror: %v", name, entry.Err)
	}
	st := entry.Status
	branch := st.Local.Branch
	if branch == "" {
		branch = "(detached)"
	}
	dirty := "no"
	if st.Local.HasUncommittedChanges() {
		dirty = "yes"
	}
	lastFetch := "never"
	if !st.Fetch.LastFetchAt.IsZero() {
		lastFetch = fmt.Sprintf("%s (%s)", st.Fetch.LastFetchAt.Format("15:04:05"), st.Fetch.State)
	}
	return strings.Join([]string{
		name,
		branch,
		fmt.Sprintf("%d", st.Ahead),
		fmt.Sprintf("%d", st.Behind),
		dirty,
		lastFetch,
	}, "\t")
}
