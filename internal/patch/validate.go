// Package patch guards filesystem writes against touching paths that
// should never be machine-edited: VCS internals, lockfiles, secrets.
package patch

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ForbiddenPaths are substrings/prefixes that may never be written to,
// regardless of which tool is doing the writing.
var ForbiddenPaths = []string{
	".env",
	".env.*",
	"config/secrets*",
	".git",
	".github",
	".idea",
	".vscode",
	".gitignore",
	".gitattributes",
	"go.sum",
	"package-lock.json",
	"yarn.lock",
	"node_modules",
	".DS_Store",
}

// CheckPath returns an error if path is absolute, escapes the repo root via
// "..", or matches one of ForbiddenPaths.
func CheckPath(path string) error {
	if filepath.IsAbs(path) {
		return fmt.Errorf("path %s is absolute, must be relative to repo root", path)
	}
	if strings.Contains(path, "..") {
		return fmt.Errorf("path %s contains '..', which is not allowed", path)
	}

	normalized := strings.ToLower(filepath.ToSlash(path))
	for _, forbidden := range ForbiddenPaths {
		forbiddenLower := strings.ToLower(forbidden)
		if strings.HasSuffix(forbiddenLower, "*") {
			prefix := strings.TrimSuffix(forbiddenLower, "*")
			if strings.HasPrefix(normalized, prefix) {
				return fmt.Errorf("path %s matches forbidden pattern %s", path, forbidden)
			}
			continue
		}
		if strings.Contains(normalized, forbiddenLower) {
			return fmt.Errorf("path %s matches forbidden pattern %s", path, forbidden)
		}
	}
	return nil
}
