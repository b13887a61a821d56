package skills

import (
	"sort"
	"strings"
)

// builtinCommands are the core CLI slash commands (spec.md §6): an input
// beginning with one of these is a control command, never a skill
// invocation, matching original_source's TriggerDetector::is_skill_command
// exclusion list.
var builtinCommands = []string{
	"/help", "/h", "/?",
	"/quit", "/q", "/exit",
	"/plan", "/execute", "/exec",
	"/clear", "/cls",
	"/status", "/skills",
	"/model", "/save", "/load", "/history", "/hist",
}

// IsSkillCommand reports whether input is a slash command that isn't one
// of the built-in CLI commands above.
func IsSkillCommand(input string) bool {
	if !strings.HasPrefix(input, "/") {
		return false
	}
	for _, cmd := range builtinCommands {
		if input == cmd || strings.HasPrefix(input, cmd+" ") {
			return false
		}
	}
	return true
}

// ExtractSkillName returns the skill name from a "/name args..." input, or
// "" if input isn't a skill command.
func ExtractSkillName(input string) string {
	if !IsSkillCommand(input) {
		return ""
	}
	fields := strings.Fields(input[1:])
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// ExtractSkillArgs returns the text following the skill name, or "" if
// there is none (or input isn't a skill command).
func ExtractSkillArgs(input string) string {
	if !IsSkillCommand(input) {
		return ""
	}
	rest := strings.TrimSpace(input[1:])
	parts := strings.SplitN(rest, " ", 2)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// TriggerDetector matches user input against a Registry's skill names and
// trigger phrases. Grounded on original_source's TriggerDetector::detect:
// a leading "/name" match takes priority, then trigger-phrase matches are
// appended (deduplicated against the slash match), then auto-run skills
// are sorted first.
type TriggerDetector struct {
	Registry *Registry
}

// NewTriggerDetector builds a TriggerDetector over registry.
func NewTriggerDetector(registry *Registry) *TriggerDetector {
	return &TriggerDetector{Registry: registry}
}

// Detect returns every skill matched by input: a "/name" invocation first
// (if any), followed by trigger-phrase matches, with auto-run skills
// sorted ahead of manually-invoked ones.
func (d *TriggerDetector) Detect(input string) []Skill {
	var matches []Skill
	seen := make(map[string]bool)

	if name := ExtractSkillName(input); name != "" {
		if skill, ok := d.Registry.Get(name); ok {
			matches = append(matches, skill)
			seen[skill.Metadata.Name] = true
		}
	}

	for _, skill := range d.Registry.List() {
		if seen[skill.Metadata.Name] {
			continue
		}
		if skill.MatchesTrigger(input) {
			matches = append(matches, skill)
			seen[skill.Metadata.Name] = true
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Metadata.Auto && !matches[j].Metadata.Auto
	})
	return matches
}
