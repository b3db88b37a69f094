package cmd

import (
	"os"

	"github.com/alecthomas/kong"

	"github.com/rmartins/repowatch/internal/config"
	"github.com/rmartins/repowatch/internal/logging"
)

// Tagline describes the tool in help output.
const Tagline = "Keep an eye on the sync state of your git working copies"

// CLI represents the command-line interface structure
type CLI struct {
	Version     kong.VersionFlag `help:"Show version information"`
	Debug       bool             `help:"Enable debug logging to file" short:"d"`
	DebugFile   string           `help:"Custom path for debug log file (disables automatic cleanup)"`
	MaxLogFiles int              `help:"Maximum number of log files to keep (0 = unlimited)" default:"1000"`

	Watch  WatchCmd  `cmd:"" help:"Run the fetch scheduler and status poll loop"`
	Status StatusCmd `cmd:"" help:"Print the extended status of registered repositories"`
	Fetch  FetchCmd  `cmd:"" help:"Fetch all enabled repositories now"`
	Repos  ReposCmd  `cmd:"" help:"Manage registered repositories (add, list, del, set, scan)"`

	// Internal fields (not flags)
	settings *config.Settings `kong:"-"`
}

// SetSettings sets the settings on the CLI struct
func (c *CLI) SetSettings(settings *config.Settings) {
	c.settings = settings
}

// Settings returns the loaded settings, never nil.
func (c *CLI) Settings() *config.Settings {
	if c.settings == nil {
		c.settings = &config.Settings{}
	}
	return c.settings
}

// AfterApply initializes logging after CLI parsing and applies settings
func (c *CLI) AfterApply() error {
	// Precedence: CLI flags > env vars > settings.json > defaults.
	if c.settings != nil {
		if c.MaxLogFiles == 1000 {
			if _, hasEnv := os.LookupEnv("REPOWATCH_MAX_LOG_FILES"); !hasEnv {
				if c.settings.MaxLogFiles != nil {
					c.MaxLogFiles = *c.settings.MaxLogFiles
				}
			}
		}

		if !c.Debug {
			if _, hasEnv := os.LookupEnv("REPOWATCH_DEBUG"); !hasEnv {
				if c.settings.Debug != nil && *c.settings.Debug {
					c.Debug = true
				}
			}
		}
	}

	return logging.Initialize(c.Debug, c.DebugFile, c.MaxLogFiles)
}
