// Package skills discovers SKILL.md files, parses their frontmatter, and
// exposes skill invocation to the model through the Skill tool.
package skills

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Source indicates where a skill was discovered.
type Source string

const (
	SourceBundled   Source = "bundled"
	SourceUser      Source = "user"
	SourceWorkspace Source = "workspace"
	SourcePlugin    Source = "plugin"
)

// sourcePriority resolves name conflicts; higher wins.
var sourcePriority = map[Source]int{
	SourceBundled:   0,
	SourceUser:      1,
	SourcePlugin:    2,
	SourceWorkspace: 3,
}

// Skill is one discovered skill.
type Skill struct {
	// Name is the unique identifier (lowercase, hyphens allowed).
	Name string `yaml:"name"`
	// Description explains what the skill does and when to use it.
	Description string `yaml:"description"`
	// DisableModelInvocation hides the skill from the Skill tool; only
	// the user may invoke it.
	DisableModelInvocation bool `yaml:"disable_model_invocation"`

	// Content is the markdown body with frontmatter stripped.
	Content string `yaml:"-"`
	// Dir is the directory the skill was discovered in.
	Dir string `yaml:"-"`
	// Source indicates the discovery location.
	Source Source `yaml:"-"`
}

// ExpandPrompt renders the skill's prompt for invocation: the template with
// $ARGUMENTS substituted and a base-dir marker injected so relative file
// references inside the skill resolve.
func (s *Skill) ExpandPrompt(args string) string {
	prompt := strings.ReplaceAll(s.Content, "$ARGUMENTS", args)
	if s.Dir != "" {
		prompt = fmt.Sprintf("<skill base_dir=%q>\n%s\n</skill>", s.Dir, prompt)
	}
	return prompt
}

// Parse splits a SKILL.md document into frontmatter and body. Frontmatter
// is optional; without it the skill's directory name becomes the name.
func Parse(path string, data []byte, source Source) (*Skill, error) {
	skill := &Skill{Dir: filepath.Dir(path), Source: source}
	content := string(data)

	if strings.HasPrefix(content, "---\n") {
		rest := content[4:]
		end := strings.Index(rest, "\n---")
		if end < 0 {
			return nil, fmt.Errorf("%s: unterminated frontmatter", path)
		}
		if err := yaml.Unmarshal([]byte(rest[:end]), skill); err != nil {
			return nil, fmt.Errorf("%s: invalid frontmatter: %w", path, err)
		}
		content = strings.TrimPrefix(rest[end+4:], "\n")
	}

	skill.Content = strings.TrimSpace(content)
	if skill.Name == "" {
		skill.Name = filepath.Base(skill.Dir)
	}
	if skill.Name == "" || skill.Name == "." {
		return nil, fmt.Errorf("%s: skill has no name", path)
	}
	return skill, nil
}

// Manager holds the discovered skill set. Safe for concurrent reads.
type Manager struct {
	mu     sync.RWMutex
	byName map[string]*Skill
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{byName: make(map[string]*Skill)}
}

// Discover scans a directory tree for SKILL.md files and registers each,
// resolving name conflicts by source priority.
func (m *Manager) Discover(root string, source Source) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(root, entry.Name(), "SKILL.md")
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		skill, err := Parse(path, data, source)
		if err != nil {
			continue
		}
		m.Add(skill)
	}
	return nil
}

// Add registers a skill, keeping the higher-priority source on conflict.
func (m *Manager) Add(skill *Skill) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.byName[skill.Name]; ok {
		if sourcePriority[existing.Source] > sourcePriority[skill.Source] {
			return
		}
	}
	m.byName[skill.Name] = skill
}

// Get returns a skill by name.
func (m *Manager) Get(name string) (*Skill, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	skill, ok := m.byName[name]
	return skill, ok
}

// List returns all skills sorted by name.
func (m *Manager) List() []*Skill {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Skill, 0, len(m.byName))
	for _, s := range m.byName {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
