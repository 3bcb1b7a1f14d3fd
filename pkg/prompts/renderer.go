package prompts

import (
	"regexp"
	"strings"
)

// variablePattern matches {{variableName}} for substitution
var variablePattern = regexp.MustCompile(`\{\{([a-zA-Z0-9_-]+)\}\}`)

// RenderTemplate substitutes {{name}} placeholders with values from args in a
// single pass, so placeholders appearing inside substituted values are left
// untouched. Unknown placeholders are kept as-is.
func RenderTemplate(template string, args map[string]string) string {
	return variablePattern.ReplaceAllStringFunc(template, func(placeholder string) string {
		name := placeholder[2 : len(placeholder)-2]
		if value, ok := args[name]; ok {
			return value
		}
		return placeholder
	})
}

// renderMessages joins the rendered text of all messages with blank lines
func renderMessages(def *PromptDefinition, args map[string]string) string {
	parts := make([]string, 0, len(def.Messages))
	for _, msg := range def.Messages {
		parts = append(parts, RenderTemplate(msg.Content.Text, args))
	}
	return strings.Join(parts, "\n\n")
}
