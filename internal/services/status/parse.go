package status

import "strings"

// parsePorcelain splits `git status --porcelain` output into staged,
// unstaged and untracked path lists, preserving git's ordering. Each line is
// "XY path": X is the index state, Y the working-tree state. A path can
// appear in both the staged and unstaged buckets.
func parsePorcelain(output string) (staged, unstaged, untracked []string) {
	for _, line := range strings.Split(output, "\n") {
		if len(line) < 4 {
			continue
		}
		x := line[0]
		y := line[1]
		path := parsePath(line[3:])

		if x == '?' && y == '?' {
			untracked = append(untracked, path)
			continue
		}
		if x != ' ' && x != '?' {
			staged = append(staged, path)
		}
		if y != ' ' && y != '?' {
			unstaged = append(unstaged, path)
		}
	}
	return staged, unstaged, untracked
}

// parsePath strips rename notation ("old -> new") down to the new path.
func parsePath(p string) string {
	if idx := strings.Index(p, " -> "); idx >= 0 {
		p = p[idx+4:]
	}
	return strings.TrimSpace(p)
}
