package gitexec

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// shellMetachars are rejected in every argument even though no shell is
// invoked. A single pipe subsumes ||; && and $( are matched as sequences so
// that a lone ampersand or dollar sign (commit messages, branch names) stays
// usable.
const shellMetachars = ";|<>`\n"

func containsShellMeta(s string) bool {
	return strings.ContainsAny(s, shellMetachars) ||
		strings.Contains(s, "&&") ||
		strings.Contains(s, "$(")
}

// ValidateArgument rejects argument text containing shell metacharacters or
// control characters.
func ValidateArgument(arg string) error {
	if containsShellMeta(arg) {
		return fmt.Errorf("argument %q contains shell metacharacters", arg)
	}
	for _, r := range arg {
		if r != '\t' && unicode.IsControl(r) {
			return fmt.Errorf("argument contains control characters")
		}
	}
	return nil
}

// AugmentPath builds the executable search path: validated custom entries
// first, then the inherited system path. Entries are tilde-expanded, must be
// absolute, must be free of metacharacters, and duplicates keep their first
// occurrence.
func AugmentPath(entries []string, inherited string) string {
	seen := make(map[string]bool, len(entries))
	var valid []string
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		entry = expandTilde(entry)
		if !filepath.IsAbs(entry) {
			continue
		}
		if containsShellMeta(entry) {
			continue
		}
		if seen[entry] {
			continue
		}
		seen[entry] = true
		valid = append(valid, entry)
	}
	if len(valid) == 0 {
		return inherited
	}
	if inherited == "" {
		return strings.Join(valid, string(os.PathListSeparator))
	}
	return strings.Join(valid, string(os.PathListSeparator)) + string(os.PathListSeparator) + inherited
}

func expandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return homeDir
	}
	return filepath.Join(homeDir, path[2:])
}
