package prompts

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"regexp"
)

// PromptDefinition is a generation prompt loaded from JSON
type PromptDefinition struct {
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Arguments   []ArgumentDefinition `json:"arguments,omitempty"`
	Messages    []MessageTemplate    `json:"messages"`
}

// ArgumentDefinition represents an argument that a prompt accepts
type ArgumentDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
	Default     string `json:"default,omitempty"`
	MaxLength   int    `json:"maxLength,omitempty"`
}

// MessageTemplate represents a message template in the prompt
type MessageTemplate struct {
	Role    string          `json:"role"`
	Content ContentTemplate `json:"content"`
}

// ContentTemplate represents the content of a message template
type ContentTemplate struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

var (
	// promptNamePattern validates prompt names (lowercase alphanumeric and hyphens only)
	promptNamePattern = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// LoadFromFS loads a prompt definition from a JSON file in fsys
func LoadFromFS(fsys fs.FS, path string) (*PromptDefinition, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file: %w", err)
	}

	var def PromptDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse prompt JSON %s: %w", path, err)
	}

	return &def, nil
}

// Validate checks the structural integrity of the prompt definition
func (pd *PromptDefinition) Validate() error {
	if pd.Name == "" {
		return fmt.Errorf("prompt name is required")
	}
	if !promptNamePattern.MatchString(pd.Name) {
		return fmt.Errorf("prompt name must match pattern ^[a-z0-9-]+$, got: %s", pd.Name)
	}

	if len(pd.Messages) == 0 {
		return fmt.Errorf("prompt must have at least one message")
	}

	for i, msg := range pd.Messages {
		if msg.Role != "user" {
			return fmt.Errorf("message %d: role must be 'user', got: %q", i, msg.Role)
		}
		if msg.Content.Type != "text" {
			return fmt.Errorf("message %d: content type must be 'text', got: %q", i, msg.Content.Type)
		}
		if msg.Content.Text == "" {
			return fmt.Errorf("message %d: content text is required", i)
		}
	}

	argNames := make(map[string]bool)
	for i, arg := range pd.Arguments {
		if arg.Name == "" {
			return fmt.Errorf("argument %d: name is required", i)
		}
		if argNames[arg.Name] {
			return fmt.Errorf("duplicate argument name: %s", arg.Name)
		}
		argNames[arg.Name] = true

		if arg.MaxLength < 0 {
			return fmt.Errorf("argument %s: maxLength must be non-negative", arg.Name)
		}
		if arg.Required && arg.Default != "" {
			return fmt.Errorf("argument %s: required arguments cannot declare a default", arg.Name)
		}
	}

	return nil
}

// ValidateArguments validates caller-provided arguments against the definition
func (pd *PromptDefinition) ValidateArguments(args map[string]string) error {
	for _, argDef := range pd.Arguments {
		if argDef.Required {
			if v, exists := args[argDef.Name]; !exists || v == "" {
				return fmt.Errorf("required argument missing: %s", argDef.Name)
			}
		}
	}

	for name, value := range args {
		argDef := pd.argument(name)
		if argDef == nil {
			return fmt.Errorf("unknown argument: %s", name)
		}

		if argDef.MaxLength > 0 && len([]rune(value)) > argDef.MaxLength {
			return fmt.Errorf("argument %s: value exceeds maximum length of %d characters", name, argDef.MaxLength)
		}
	}

	return nil
}

// withDefaults returns args with declared defaults filled in for absent or empty values
func (pd *PromptDefinition) withDefaults(args map[string]string) map[string]string {
	resolved := make(map[string]string, len(pd.Arguments))
	for k, v := range args {
		resolved[k] = v
	}
	for _, argDef := range pd.Arguments {
		if argDef.Default != "" && resolved[argDef.Name] == "" {
			resolved[argDef.Name] = argDef.Default
		}
	}
	return resolved
}

func (pd *PromptDefinition) argument(name string) *ArgumentDefinition {
	for i := range pd.Arguments {
		if pd.Arguments[i].Name == name {
			return &pd.Arguments[i]
		}
	}
	return nil
}
