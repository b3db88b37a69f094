package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/rmartins/repowatch/internal/adapters/discovery"
	"github.com/rmartins/repowatch/internal/config"
	"github.com/rmartins/repowatch/internal/domain"
)

// ReposCmd groups repository registry management subcommands.
type ReposCmd struct {
	Add  ReposAddCmd  `cmd:"" help:"Register a repository"`
	List ReposListCmd `cmd:"" help:"List registered repositories"`
	Del  ReposDelCmd  `cmd:"" help:"Remove a repository registration"`
	Set  ReposSetCmd  `cmd:"" help:"Change a repository's enabled flag or fetch interval"`
	Scan ReposScanCmd `cmd:"" help:"Discover and register git repositories under the given roots"`
}

// ReposAddCmd registers one repository.
type ReposAddCmd struct {
	Path     string        `arg:"" help:"Path to the git working copy"`
	Name     string        `help:"Display name (defaults to the directory name)"`
	Interval time.Duration `help:"Fetch interval (defaults to settings)" default:"0"`
	Disabled bool          `help:"Register without enabling fetches"`
}

// Run executes repos add
func (a *ReposAddCmd) Run(cli *CLI) error {
	container, err := NewContainer(cli.Settings())
	if err != nil {
		return err
	}
	defer container.Close()

	path, err := filepath.Abs(config.ExpandPath(a.Path))
	if err != nil {
		return err
	}

	name := a.Name
	if name == "" {
		name = filepath.Base(path)
	}
	interval := a.Interval
	if interval <= 0 {
		interval = cli.Settings().FetchInterval()
	}

	repo := domain.Repository{
		ID:            uuid.New().String(),
		Path:          path,
		Name:          name,
		Enabled:       !a.Disabled,
		FetchInterval: interval,
		AddedAt:       time.Now(),
	}
	if err := container.Registry.Add(context.Background(), repo); err != nil {
		return err
	}
	fmt.Printf("Registered %s (%s)\n", name, repo.ID)
	return nil
}

// ReposListCmd lists registered repositories.
type ReposListCmd struct{}

// Run executes repos list
func (l *ReposListCmd) Run(cli *CLI) error {
	container, err := NewContainer(cli.Settings())
	if err != nil {
		return err
	}
	defer container.Close()

	repos, err := container.Registry.List(context.Background())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPATH\tENABLED\tINTERVAL")
	for _, repo := range repos {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n",
			repo.ID, repo.Name, repo.Path, repo.Enabled, repo.FetchInterval)
	}
	return w.Flush()
}

// ReposDelCmd removes a registration.
type ReposDelCmd struct {
	Repository string `arg:"" help:"Repository id or name"`
}

// Run executes repos del
func (d *ReposDelCmd) Run(cli *CLI) error {
	container, err := NewContainer(cli.Settings())
	if err != nil {
		return err
	}
	defer container.Close()

	ctx := context.Background()
	id, err := resolveRepositoryID(ctx, container, d.Repository)
	if err != nil {
		return err
	}
	if err := container.Registry.Delete(ctx, id); err != nil {
		return err
	}
	container.Scheduler.Unschedule(id)
	fmt.Printf("Removed %s\n", d.Repository)
	return nil
}

// ReposSetCmd mutates a registration.
type ReposSetCmd struct {
	Repository string         `arg:"" help:"Repository id or name"`
	Enabled    *bool          `help:"Enable or disable scheduled fetches"`
	Interval   *time.Duration `help:"Fetch interval, e.g. 5m"`
}

// Run executes repos set
func (s *ReposSetCmd) Run(cli *CLI) error {
	if s.Enabled == nil && s.Interval == nil {
		return fmt.Errorf("nothing to change: pass --enabled and/or --interval")
	}

	container, err := NewContainer(cli.Settings())
	if err != nil {
		return err
	}
	defer container.Close()

	ctx := context.Background()
	id, err := resolveRepositoryID(ctx, container, s.Repository)
	if err != nil {
		return err
	}
	if s.Enabled != nil {
		if err := container.Registry.SetEnabled(ctx, id, *s.Enabled); err != nil {
			return err
		}
	}
	if s.Interval != nil {
		if err := container.Registry.SetFetchInterval(ctx, id, *s.Interval); err != nil {
			return err
		}
	}
	fmt.Printf("Updated %s\n", s.Repository)
	return nil
}

// ReposScanCmd discovers working copies under roots and registers them.
type ReposScanCmd struct {
	Roots   []string `arg:"" help:"Directories to scan"`
	Exclude []string `help:"Glob patterns to skip, e.g. '**/node_modules'"`
	DryRun  bool     `help:"Only print what would be registered"`
}

// Run executes repos scan
func (s *ReposScanCmd) Run(cli *CLI) error {
	container, err := NewContainer(cli.Settings())
	if err != nil {
		return err
	}
	defer container.Close()

	ctx := context.Background()
	found, err := discovery.Scan(ctx, discovery.Options{
		Roots:   s.Roots,
		Exclude: s.Exclude,
	})
	if err != nil {
		return err
	}

	registered := 0
	for _, path := range found {
		if s.DryRun {
			fmt.Printf("would register %s\n", path)
			continue
		}
		repo := domain.Repository{
			ID:            uuid.New().String(),
			Path:          path,
			Name:          filepath.Base(path),
			Enabled:       true,
			FetchInterval: cli.Settings().FetchInterval(),
			AddedAt:       time.Now(),
		}
		err := container.Registry.Add(ctx, repo)
		switch {
		case err == nil:
			registered++
			fmt.Printf("registered %s\n", path)
		case errors.Is(err, domain.ErrRepositoryExists):
			// Already known, silently skip.
		default:
			return err
		}
	}
	if !s.DryRun {
		fmt.Printf("Registered %d new repositories (%d found)\n", registered, len(found))
	}
	return nil
}
