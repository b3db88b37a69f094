package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rmartins/repowatch/internal/logging"
)

// WatchCmd runs the fetch scheduler and the status poll loop until
// interrupted.
type WatchCmd struct {
	NoNotify bool `help:"Disable alerts for this run"`
}

// Run executes the watch command
func (w *WatchCmd) Run(cli *CLI) error {
	container, err := NewContainer(cli.Settings())
	if err != nil {
		return err
	}
	defer container.Close()

	if w.NoNotify {
		container.Dispatcher.SetEnabled(false)
	}

	ctx := context.Background()
	repos, err := container.Registry.ListEnabled(ctx)
	if err != nil {
		return err
	}
	if len(repos) == 0 {
		fmt.Println("No enabled repositories. Add one with: repowatch repos add <path>")
		return nil
	}

	for _, repo := range repos {
		interval := repo.FetchInterval
		if interval <= 0 {
			interval = cli.Settings().FetchInterval()
		}
		container.Scheduler.Schedule(repo.ID, interval)
	}

	container.Cache.Activate()
	container.Cache.RefreshAll(ctx)

	fmt.Printf("Watching %d repositories. Press Ctrl+C to stop.\n", len(repos))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh

	logging.Logger.Info("Shutting down", "signal", sig.String())
	container.Scheduler.StopAll()
	container.Cache.Deactivate()
	return nil
}
