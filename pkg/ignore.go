package dupfind

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// IgnoreManager holds the regex patterns that exclude paths from a walk
type IgnoreManager struct {
	ignorePath string
	patterns   []*regexp.Regexp
	loaded     bool
}

// NewIgnoreManager creates an ignore manager reading ignorePath. An empty
// ignorePath means patterns only come from AddPattern.
func NewIgnoreManager(ignorePath string) *IgnoreManager {
	return &IgnoreManager{
		ignorePath: ignorePath,
		patterns:   make([]*regexp.Regexp, 0),
	}
}

// LoadIgnorePatterns loads patterns from the ignore file, one regex per
// line. Blank lines and lines starting with # are skipped.
func (im *IgnoreManager) LoadIgnorePatterns() error {
	if im.loaded {
		return nil
	}
	if im.ignorePath == "" {
		im.loaded = true
		return nil
	}

	file, err := os.Open(im.ignorePath)
	if err != nil {
		return errors.Wrap(err, "failed to open ignore file")
	}
	defer file.Close()

	lines := bufio.NewScanner(file)
	for n := 1; lines.Scan(); n++ {
		line := strings.TrimSpace(lines.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := im.add(line, fmt.Sprintf("%s:%d", im.ignorePath, n)); err != nil {
			return err
		}
	}

	if err := lines.Err(); err != nil {
		return errors.Wrapf(err, "error reading ignore file %s", im.ignorePath)
	}

	im.loaded = true
	return nil
}

// AddPattern adds a pattern given on the command line
func (im *IgnoreManager) AddPattern(patternStr string) error {
	return im.add(patternStr, "--exclude")
}

func (im *IgnoreManager) add(patternStr, source string) error {
	pattern, err := regexp.Compile(patternStr)
	if err != nil {
		return errors.Wrapf(err, "%s: invalid ignore pattern %q", source, patternStr)
	}
	im.patterns = append(im.patterns, pattern)
	return nil
}

// ShouldIgnore checks a root-relative path against the patterns. Patterns
// must be loaded first; the walker reads this from several goroutines.
func (im *IgnoreManager) ShouldIgnore(relativePath string) bool {
	normalisedPath := filepath.ToSlash(relativePath)

	for _, pattern := range im.patterns {
		if pattern.MatchString(normalisedPath) {
			return true
		}
	}

	return false
}

// HasPatterns returns true if there are any ignore patterns loaded
func (im *IgnoreManager) HasPatterns() bool {
	return len(im.patterns) > 0
}
