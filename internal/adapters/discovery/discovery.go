// Package discovery walks root directories to find git working copies.
package discovery

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/rmartins/repowatch/internal/logging"
)

// Options configures a discovery scan.
type Options struct {
	Roots   []string
	Exclude []string // glob patterns to skip
}

// Scan walks all roots and returns paths of discovered git working copies.
// It does not recurse into a repository once found, skips .git directories
// and skips directories matching exclude patterns.
func Scan(ctx context.Context, opts Options) ([]string, error) {
	visited := make(map[string]struct{})
	var results []string

	for _, root := range opts.Roots {
		if root == "" {
			continue
		}
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		if _, ok := visited[absRoot]; ok {
			continue
		}
		visited[absRoot] = struct{}{}

		err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Unreadable entries are skipped, not fatal.
				logging.Logger.Debug("Skipping unreadable path", "path", path, "error", err)
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !d.IsDir() {
				return nil
			}
			if d.Name() == ".git" {
				return fs.SkipDir
			}
			if MatchesExclude(path, opts.Exclude) {
				return fs.SkipDir
			}
			if isRepoRoot(path) {
				results = append(results, path)
				return fs.SkipDir
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}

// MatchesExclude checks whether a path matches any of the exclude glob
// patterns.
func MatchesExclude(path string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	slashPath := filepath.ToSlash(path)
	for _, pattern := range patterns {
		match, err := doublestar.Match(filepath.ToSlash(pattern), slashPath)
		if err != nil {
			continue
		}
		if match {
			return true
		}
	}
	return false
}

// isRepoRoot reports whether dir directly contains a .git entry. A .git
// file (not directory) marks a linked worktree and counts as well.
func isRepoRoot(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}
