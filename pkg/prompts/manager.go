package prompts

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// Prompt names used by the generative tools
const (
	SmartIncident  = "smart-incident"
	KBArticleBody  = "kb-article-body"
	KBArticleTitle = "kb-article-title"
)

//go:embed templates/*.json
var embeddedTemplates embed.FS

// PromptManager holds validated prompt definitions keyed by name
type PromptManager struct {
	prompts map[string]*PromptDefinition
}

// NewPromptManager loads the prompts compiled into the binary
func NewPromptManager() (*PromptManager, error) {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return nil, fmt.Errorf("open embedded prompts: %w", err)
	}
	return NewPromptManagerFromFS(sub)
}

// NewPromptManagerFromFS loads every *.json prompt at the root of fsys
func NewPromptManagerFromFS(fsys fs.FS) (*PromptManager, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}

	pm := &PromptManager{prompts: make(map[string]*PromptDefinition)}
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".json" {
			continue
		}

		def, err := LoadFromFS(fsys, entry.Name())
		if err != nil {
			return nil, err
		}
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("invalid prompt %s: %w", entry.Name(), err)
		}
		if expected := strings.TrimSuffix(entry.Name(), ".json"); def.Name != expected {
			return nil, fmt.Errorf("prompt %s declares name %q", entry.Name(), def.Name)
		}
		pm.prompts[def.Name] = def
	}

	return pm, nil
}

// Names returns the loaded prompt names in sorted order
func (pm *PromptManager) Names() []string {
	names := make([]string, 0, len(pm.prompts))
	for name := range pm.prompts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns a prompt definition by name
func (pm *PromptManager) Get(name string) (*PromptDefinition, bool) {
	def, ok := pm.prompts[name]
	return def, ok
}

// Render validates args, applies defaults and returns the prompt text
func (pm *PromptManager) Render(name string, args map[string]string) (string, error) {
	def, ok := pm.prompts[name]
	if !ok {
		return "", fmt.Errorf("prompt not found: %s", name)
	}

	resolved := def.withDefaults(args)
	if err := def.ValidateArguments(resolved); err != nil {
		return "", fmt.Errorf("prompt %s: %w", name, err)
	}

	return renderMessages(def, resolved), nil
}
