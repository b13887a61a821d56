// Package skills implements the slash-command skill overlay: a registry of
// named prompt templates discovered from a directory, and a trigger
// detector that matches user input against skill names and trigger
// phrases. Skill content itself is treated as opaque bytes keyed by path
// (SPEC_FULL.md §5.9/§10) — this package never interprets or executes it,
// only locates and hands it to the caller.
package skills

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Metadata is a skill's YAML frontmatter, grounded on original_source's
// SkillMetadata (skills/loader.rs).
type Metadata struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Triggers    []string `yaml:"triggers"`
	Auto        bool     `yaml:"auto"`
	Parent      string   `yaml:"parent,omitempty"`
}

// Skill is one loaded skill: its metadata plus the opaque markdown body
// that follows the frontmatter, and the path it was loaded from.
type Skill struct {
	Metadata Metadata
	Content  string
	Path     string
}

// MatchesTrigger reports whether input contains one of the skill's trigger
// phrases, case-insensitively.
func (s Skill) MatchesTrigger(input string) bool {
	lower := strings.ToLower(input)
	for _, trigger := range s.Metadata.Triggers {
		if trigger == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(trigger)) {
			return true
		}
	}
	return false
}

// Parse extracts a skill's frontmatter and body from raw SKILL.md content.
// A file with no frontmatter becomes an unnamed, trigger-less skill whose
// entire content is the body, matching original_source's fallback.
func Parse(content, path string) (Skill, error) {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "---") {
		return Skill{Metadata: Metadata{Name: "unnamed"}, Content: trimmed, Path: path}, nil
	}

	rest := trimmed[3:]
	end := strings.Index(rest, "---")
	if end < 0 {
		return Skill{}, fmt.Errorf("skill %s: missing closing --- in frontmatter", path)
	}

	var meta Metadata
	if err := yaml.Unmarshal([]byte(strings.TrimSpace(rest[:end])), &meta); err != nil {
		return Skill{}, fmt.Errorf("skill %s: parse frontmatter: %w", path, err)
	}

	body := strings.TrimSpace(rest[end+3:])
	return Skill{Metadata: meta, Content: body, Path: path}, nil
}
