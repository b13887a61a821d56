package skills

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/turnline/turnline/internal/obslog"
)

// Registry holds the discovered skill set, keyed by name. Grounded on
// original_source's SkillRegistry, generalized from its two-tier
// user/superpowers search-path split down to the single `skills.dir`
// internal/config names — this rework has no embedded default skill set to
// layer underneath user skills.
type Registry struct {
	mu     sync.RWMutex
	skills map[string]Skill
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{skills: make(map[string]Skill)}
}

// LoadDir scans dir for one level of SKILL.md-bearing subdirectories plus
// any top-level *.md files, registering each as a skill. A missing dir is
// not an error: skills are optional.
func (r *Registry) LoadDir(dir string) error {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, entry := range entries {
		var skillPath string
		switch {
		case entry.IsDir():
			candidate := filepath.Join(dir, entry.Name(), "SKILL.md")
			if _, statErr := os.Stat(candidate); statErr != nil {
				continue
			}
			skillPath = candidate
		case filepath.Ext(entry.Name()) == ".md":
			skillPath = filepath.Join(dir, entry.Name())
		default:
			continue
		}

		content, err := os.ReadFile(skillPath)
		if err != nil {
			obslog.Error("skills: read failed: "+skillPath, err)
			continue
		}
		skill, err := Parse(string(content), skillPath)
		if err != nil {
			obslog.Error("skills: parse failed: "+skillPath, err)
			continue
		}
		r.insert(skill)
	}
	return nil
}

func (r *Registry) insert(s Skill) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skills[s.Metadata.Name] = s
}

// Get looks up a skill by exact name.
func (r *Registry) Get(name string) (Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.skills[name]
	return s, ok
}

// List returns every registered skill, sorted by name.
func (r *Registry) List() []Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Skill, 0, len(r.skills))
	for _, s := range r.skills {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Metadata.Name < out[j].Metadata.Name })
	return out
}

// Names returns the registered skill names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.skills))
	for name := range r.skills {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports how many skills are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.skills)
}
