package templates

import (
	"os"
	"path/filepath"
)

// TemplateSearchPaths returns template search directories in precedence order:
// configured extra paths, the project directory, the user data directory and
// the system-wide share directory.
func TemplateSearchPaths(projectDir, dataDir string, extra []string) []string {
	paths := make([]string, 0, len(extra)+3)
	paths = append(paths, extra...)

	if projectDir != "" {
		paths = append(paths, filepath.Join(projectDir, ".memer", "templates"))
	}
	if dataDir != "" {
		paths = append(paths, filepath.Join(dataDir, "templates"))
	} else if home, err := os.UserHomeDir(); err == nil && home != "" {
		paths = append(paths, filepath.Join(home, ".local", "share", "memer", "templates"))
	}

	paths = append(paths, filepath.Join(string(filepath.Separator), "usr", "share", "memer", "templates"))
	return dedupePaths(paths)
}

func dedupePaths(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, path := range paths {
		if path == "" {
			continue
		}
		clean := filepath.Clean(path)
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		out = append(out, clean)
	}
	return out
}
