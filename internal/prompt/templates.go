package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"planforge/pkg/types"
)

// Template is one task/language prompt template loaded from YAML. An
// optional provider restricts it to one provider's phrasing quirks.
type Template struct {
	Task         string `yaml:"task"`
	Language     string `yaml:"language"`
	Provider     string `yaml:"provider,omitempty"`
	Version      string `yaml:"version"`
	System       string `yaml:"system"`
	Instructions string `yaml:"instructions"`
	OutputSpec   string `yaml:"output_spec"`
}

// templateKey identifies a template by task, language and provider;
// provider is empty for templates shared across providers
type templateKey struct {
	task     string
	lang     string
	provider string
}

// Library holds loaded templates and resolves them with a fallback
// chain: (task, lang, provider), (task, lang), (task, "en", provider),
// then (task, "en")
type Library struct {
	mu        sync.RWMutex
	templates map[templateKey]*Template
}

// NewLibrary creates an empty template library
func NewLibrary() *Library {
	return &Library{templates: make(map[templateKey]*Template)}
}

// LoadDir loads every *.yaml template under dir. Files that fail to
// parse are reported; previously loaded templates are kept.
func (l *Library) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read template directory %s: %w", dir, err)
	}

	var firstErr error
	loaded := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		tpl, err := loadTemplateFile(filepath.Join(dir, e.Name()))
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		l.Add(tpl)
		loaded++
	}

	if loaded == 0 && firstErr != nil {
		return firstErr
	}
	return nil
}

func loadTemplateFile(path string) (*Template, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the configured template dir
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", path, err)
	}
	var tpl Template
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", path, err)
	}
	if tpl.Task == "" || tpl.Language == "" {
		return nil, fmt.Errorf("template %s missing task or language", path)
	}
	return &tpl, nil
}

// Add registers a template, replacing any existing entry for the same
// task, language and provider
func (l *Library) Add(tpl *Template) {
	l.mu.Lock()
	l.templates[templateKey{task: tpl.Task, lang: tpl.Language, provider: tpl.Provider}] = tpl
	l.mu.Unlock()
}

// Resolve returns the template for a task, language and provider,
// walking the fallback chain down to the shared English template
func (l *Library) Resolve(task types.TaskType, lang, provider string) (*Template, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	chain := []templateKey{
		{task: string(task), lang: lang, provider: provider},
		{task: string(task), lang: lang},
		{task: string(task), lang: "en", provider: provider},
		{task: string(task), lang: "en"},
	}
	for _, key := range chain {
		if tpl, ok := l.templates[key]; ok {
			return tpl, nil
		}
	}
	return nil, fmt.Errorf("no template for task %s language %s", task, lang)
}

// Len returns the number of loaded templates
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.templates)
}

// DefaultLibrary returns a library seeded with the built-in English
// templates so the service works without a template directory
func DefaultLibrary() *Library {
	l := NewLibrary()
	for _, tpl := range builtinTemplates {
		l.Add(tpl)
	}
	return l
}

var builtinTemplates = []*Template{
	{
		Task:     string(types.TaskLayout),
		Language: "en",
		Version:  "builtin-1",
		System: "You are an experienced architect producing structured floor plan data. " +
			"All coordinates are integer millimetres in a right-handed XY plane with Z up. " +
			"Respond with a single JSON object and nothing else.",
		Instructions: "Generate a complete floor plan layout for the described project. " +
			"Include every room with its position and dimensions, all walls with start and end points, " +
			"and door and window placements referencing their host walls.",
		OutputSpec: "Return JSON with keys: rooms, walls, doors, windows, confidence. " +
			"Rooms: id, name, type, area_m2, position {x_mm, y_mm}, dimensions {w, l, h} in millimetres. " +
			"Walls: id, start {x, y, z}, end {x, y, z}, thickness_mm, height_mm, type. " +
			"Doors and windows: id, wall_id, position_mm, width_mm, height_mm, type. " +
			"Confidence: number between 0 and 1.",
	},
	{
		Task:     string(types.TaskRoom),
		Language: "en",
		Version:  "builtin-1",
		System: "You are an experienced interior architect producing structured room designs. " +
			"All coordinates are integer millimetres. Respond with a single JSON object and nothing else.",
		Instructions: "Design the requested room in detail: furniture placement, circulation, " +
			"and finishes appropriate to the stated style and budget.",
		OutputSpec: "Return JSON with keys: dimensions {w, l, h} in millimetres, " +
			"furniture [{name, position {x_mm, y_mm}, dimensions {w, l, h}}], " +
			"lighting [string], materials {surface: material}, confidence.",
	},
	{
		Task:     string(types.TaskValidate),
		Language: "en",
		Version:  "builtin-1",
		System: "You are a building code compliance reviewer. " +
			"Respond with a single JSON object and nothing else.",
		Instructions: "Check the provided design against the applicable building codes and " +
			"accessibility requirements. Cite the relevant code passages from the provided context.",
		OutputSpec: "Return JSON with keys: is_valid (boolean), compliance_score (0 to 1), " +
			"errors [string], warnings [string], confidence.",
	},
	{
		Task:     string(types.TaskAnalyze),
		Language: "en",
		Version:  "builtin-1",
		System: "You are an architectural analyst reviewing existing project documentation. " +
			"Respond with a single JSON object and nothing else.",
		Instructions: "Analyze the provided project material and summarize requirements, " +
			"constraints, risks and opportunities relevant to the stated question.",
		OutputSpec: "Return JSON with keys: findings [{topic, detail, severity}], " +
			"requirements [string], risks [string], confidence.",
	},
	{
		Task:     string(types.TaskCustom),
		Language: "en",
		Version:  "builtin-1",
		System: "You are an architectural design assistant. " +
			"Respond with a single JSON object and nothing else.",
		Instructions: "Answer the request using the provided project context and regional requirements.",
		OutputSpec:   "Return JSON with keys: result (object or string), confidence (number between 0 and 1).",
	},
}
