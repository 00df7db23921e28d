package watcher

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter matches files against include and exclude glob patterns evaluated on the path
// relative to the watched root, with forward slashes. "**" matches any number of directories.
// An empty include list matches every file; exclude wins over include.
type Filter struct {
	include []string
	exclude []string
}

// NewFilter validates the patterns and returns a Filter.
func NewFilter(include, exclude []string) (*Filter, error) {
	for _, p := range append(append([]string(nil), include...), exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid watch pattern %q", p)
		}
	}
	return &Filter{include: include, exclude: exclude}, nil
}

// Match reports whether path, a file under root, passes the filter.
func (f *Filter) Match(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || !inDir(root, path) {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, p := range f.exclude {
		if matchFold(p, rel) {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, p := range f.include {
		if matchFold(p, rel) {
			return true
		}
	}
	return false
}

func matchFold(pattern, name string) bool {
	ok, err := doublestar.Match(pattern, name)
	if err == nil && ok {
		return true
	}
	// Extensions match case-insensitively.
	ext := filepath.Ext(name)
	if ext == "" {
		return false
	}
	ok, err = doublestar.Match(pattern, name[:len(name)-len(ext)]+strings.ToLower(ext))
	return err == nil && ok
}
