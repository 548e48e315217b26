package shader

import (
	"fmt"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// ReadFiles reads WGSL files from fs and concatenates them in order.
func ReadFiles(fs billy.Filesystem, paths ...string) (string, error) {
	parts := make([]string, 0, len(paths))
	for _, p := range paths {
		data, err := util.ReadFile(fs, p)
		if err != nil {
			return "", fmt.Errorf("shader: read %s: %w", p, err)
		}
		parts = append(parts, string(data))
	}
	return strings.Join(parts, "\n"), nil
}

// Glob reads every file in fs matching pattern, in lexical order.
func Glob(fs billy.Filesystem, pattern string) (string, error) {
	matches, err := util.Glob(fs, pattern)
	if err != nil {
		return "", fmt.Errorf("shader: glob %s: %w", pattern, err)
	}
	return ReadFiles(fs, matches...)
}
