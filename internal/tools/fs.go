package tools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/turnline/turnline/internal/patch"
)

// resolveInRoot joins path onto root and rejects anything that escapes it,
// the same containment check the teacher's filesystem tools perform before
// touching disk.
func resolveInRoot(root, path string) (string, error) {
	full := filepath.Clean(filepath.Join(root, path))
	cleanRoot := filepath.Clean(root)
	if full != cleanRoot && !strings.HasPrefix(full, cleanRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside the working directory", path)
	}
	return full, nil
}

// intParam reads an integer-valued param, tolerating JSON numbers
// (float64) and numeric strings, returning def when absent or unparsable.
func intParam(params map[string]any, key string, def int) int {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return def
}

// ReadTool reads a file's content relative to Root, numbering lines the way
// the original read tool does (_examples/original_source read.rs).
type ReadTool struct{ Root string }

func NewReadTool(root string) *ReadTool { return &ReadTool{Root: root} }

func (t *ReadTool) Name() string        { return "read" }
func (t *ReadTool) Description() string { return "Read the contents of a file." }
func (t *ReadTool) ParamsSchema() string {
	return `{"type":"object","properties":{"file_path":{"type":"string"},"offset":{"type":"integer"},"limit":{"type":"integer"}},"required":["file_path"]}`
}

func (t *ReadTool) Execute(ctx context.Context, params map[string]any) (Result, error) {
	filePath, ok := params["file_path"].(string)
	if !ok || filePath == "" {
		return Failure("missing required parameter: file_path"), nil
	}
	full, err := resolveInRoot(t.Root, filePath)
	if err != nil {
		return Failure(err.Error()), nil
	}
	content, err := os.ReadFile(full)
	if err != nil {
		return Failure(fmt.Sprintf("read %s: %v", filePath, err)), nil
	}

	offset := intParam(params, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	limit := intParam(params, "limit", -1)

	lines := strings.Split(string(content), "\n")
	total := len(lines)
	if offset > total {
		offset = total
	}
	end := total
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}
	selected := lines[offset:end]

	var sb strings.Builder
	fmt.Fprintf(&sb, "File: %s (%d lines)", filePath, total)
	for i, line := range selected {
		fmt.Fprintf(&sb, "\n%6d\t%s", offset+i+1, line)
	}
	return Success(sb.String()), nil
}

// WriteTool creates or overwrites a file relative to Root.
type WriteTool struct{ Root string }

func NewWriteTool(root string) *WriteTool { return &WriteTool{Root: root} }

func (t *WriteTool) Name() string        { return "write" }
func (t *WriteTool) Description() string { return "Create or overwrite a file with the given content." }
func (t *WriteTool) ParamsSchema() string {
	return `{"type":"object","properties":{"file_path":{"type":"string"},"content":{"type":"string"}},"required":["file_path","content"]}`
}

func (t *WriteTool) Execute(ctx context.Context, params map[string]any) (Result, error) {
	filePath, ok := params["file_path"].(string)
	if !ok || filePath == "" {
		return Failure("missing required parameter: file_path"), nil
	}
	content, _ := params["content"].(string)

	if err := patch.CheckPath(filePath); err != nil {
		return Failure(err.Error()), nil
	}
	full, err := resolveInRoot(t.Root, filePath)
	if err != nil {
		return Failure(err.Error()), nil
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Failure(fmt.Sprintf("mkdir for %s: %v", filePath, err)), nil
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return Failure(fmt.Sprintf("write %s: %v", filePath, err)), nil
	}
	lines := strings.Count(content, "\n")
	if content != "" && !strings.HasSuffix(content, "\n") {
		lines++
	}
	return Success(fmt.Sprintf("Successfully wrote %d lines to %s", lines, filePath)), nil
}

// EditTool performs an exact-match find/replace within a file, the same
// search_replace semantics the teacher's editing.SearchReplaceTool exposes.
type EditTool struct{ Root string }

func NewEditTool(root string) *EditTool { return &EditTool{Root: root} }

func (t *EditTool) Name() string        { return "edit" }
func (t *EditTool) Description() string { return "Replace an exact string occurrence in a file." }
func (t *EditTool) ParamsSchema() string {
	return `{"type":"object","properties":{"file_path":{"type":"string"},"old_string":{"type":"string"},"new_string":{"type":"string"},"replace_all":{"type":"boolean"}},"required":["file_path","old_string","new_string"]}`
}

func (t *EditTool) Execute(ctx context.Context, params map[string]any) (Result, error) {
	filePath, ok := params["file_path"].(string)
	if !ok || filePath == "" {
		return Failure("missing required parameter: file_path"), nil
	}
	oldString, _ := params["old_string"].(string)
	newString, _ := params["new_string"].(string)
	replaceAll, _ := params["replace_all"].(bool)

	if err := patch.CheckPath(filePath); err != nil {
		return Failure(err.Error()), nil
	}
	full, err := resolveInRoot(t.Root, filePath)
	if err != nil {
		return Failure(err.Error()), nil
	}
	contentBytes, err := os.ReadFile(full)
	if err != nil {
		return Failure(fmt.Sprintf("read %s: %v", filePath, err)), nil
	}
	content := string(contentBytes)

	count := strings.Count(content, oldString)
	if count == 0 {
		return Failure(fmt.Sprintf("old_string not found in %s", filePath)), nil
	}
	if count > 1 && !replaceAll {
		return Failure(fmt.Sprintf("old_string matches %d times in %s; pass replace_all or narrow the match", count, filePath)), nil
	}

	var updated string
	if replaceAll {
		updated = strings.ReplaceAll(content, oldString, newString)
	} else {
		updated = strings.Replace(content, oldString, newString, 1)
	}

	if err := os.WriteFile(full, []byte(updated), 0o644); err != nil {
		return Failure(fmt.Sprintf("write %s: %v", filePath, err)), nil
	}
	return Success(fmt.Sprintf("replaced %d occurrence(s) in %s", count, filePath)), nil
}

// GlobTool lists files under Root matching a glob pattern, walking the tree
// recursively so a "**" segment crosses path separators the way spec's
// "(recursive glob)" requires — stdlib filepath.Glob cannot do that, so
// matches are tested with filepath.Match against each path seen during a
// WalkDir, the same recursive-match-during-walk shape as the teacher's
// internal/tools/filesystem/list.go. A repo-root .gitignore, when present,
// is loaded into a go-gitignore matcher so generated/vendored files are
// skipped the way list.go's ignorePatterns matcher does; .git is always
// skipped regardless.
type GlobTool struct{ Root string }

func NewGlobTool(root string) *GlobTool { return &GlobTool{Root: root} }

func (t *GlobTool) Name() string        { return "glob" }
func (t *GlobTool) Description() string { return "List files matching a glob pattern." }
func (t *GlobTool) ParamsSchema() string {
	return `{"type":"object","properties":{"pattern":{"type":"string"},"path":{"type":"string"}},"required":["pattern"]}`
}

func (t *GlobTool) Execute(ctx context.Context, params map[string]any) (Result, error) {
	pattern, ok := params["pattern"].(string)
	if !ok || pattern == "" {
		return Failure("missing required parameter: pattern"), nil
	}
	scopePath, _ := params["path"].(string)

	searchRoot := t.Root
	if scopePath != "" {
		resolved, err := resolveInRoot(t.Root, scopePath)
		if err != nil {
			return Failure(err.Error()), nil
		}
		searchRoot = resolved
	}

	ignore := loadGitignore(t.Root)

	var matches []string
	walkErr := filepath.WalkDir(searchRoot, func(walkPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		relRoot, relErr := filepath.Rel(t.Root, walkPath)
		if relErr != nil {
			return nil
		}
		relRoot = filepath.ToSlash(relRoot)
		if relRoot == ".git" || strings.HasPrefix(relRoot, ".git/") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ignore != nil && ignore.MatchesPath(relRoot) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		relSearch, relErr := filepath.Rel(searchRoot, walkPath)
		if relErr != nil {
			return nil
		}
		relSearch = filepath.ToSlash(relSearch)
		if matchesGlob(pattern, relSearch) {
			matches = append(matches, relRoot)
		}
		return nil
	})
	if walkErr != nil {
		return Failure(fmt.Sprintf("glob %s: %v", pattern, walkErr)), nil
	}
	if len(matches) == 0 {
		return Success("no files matched"), nil
	}
	return Success(strings.Join(matches, "\n")), nil
}

// matchesGlob tests pattern against rel: a "**" segment matches any number
// of path components; other segments are matched per-component via
// filepath.Match. A pattern with no slash also matches at any depth
// against the file's base name, the common "*.go"-anywhere shorthand.
func matchesGlob(pattern, rel string) bool {
	if !strings.Contains(pattern, "**") {
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
		if !strings.Contains(pattern, "/") {
			ok, _ := filepath.Match(pattern, filepath.Base(rel))
			return ok
		}
		return false
	}

	return matchGlobParts(strings.Split(pattern, "/"), strings.Split(rel, "/"))
}

func matchGlobParts(pattern, path []string) bool {
	if len(pattern) == 0 {
		return len(path) == 0
	}
	if pattern[0] == "**" {
		if matchGlobParts(pattern[1:], path) {
			return true
		}
		if len(path) == 0 {
			return false
		}
		return matchGlobParts(pattern, path[1:])
	}
	if len(path) == 0 {
		return false
	}
	if ok, _ := filepath.Match(pattern[0], path[0]); !ok {
		return false
	}
	return matchGlobParts(pattern[1:], path[1:])
}

// loadGitignore compiles root's .gitignore, if any, into a matcher. A
// missing or unreadable file yields a nil matcher: glob still works without
// ignore-awareness.
func loadGitignore(root string) *gitignore.GitIgnore {
	m, err := gitignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return m
}
