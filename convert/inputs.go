package convert

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrNoInputs is returned when no pattern matches a readable file.
var ErrNoInputs = errors.New("no input files")

// ResolveInputs expands file paths, directories and glob patterns ("**"
// included) into the sorted list of readable input files. A directory
// stands for every file below it. Directories and globs skip files no
// reader handles; a file named explicitly must have a reader.
func (c *Converter) ResolveInputs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		info, err := os.Stat(pattern)
		switch {
		case err == nil && info.IsDir():
			pattern = filepath.Join(pattern, "**", "*")
		case err == nil:
			if _, err := c.registry.Lookup(pattern); err != nil {
				return nil, err
			}
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", pattern, err)
		}
		for _, m := range matches {
			if seen[m] || !c.registry.Supports(m) {
				continue
			}
			seen[m] = true
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w matching %v", ErrNoInputs, patterns)
	}
	sort.Strings(files)
	return files, nil
}
