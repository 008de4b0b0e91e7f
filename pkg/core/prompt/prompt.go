// Package prompt holds the model prompts used by the valuation core.
// Built-in prompts are registered in code; JSON files loaded at runtime replace them by ID.
package prompt

import (
	"bytes"
	"fmt"
	"text/template"
)

// Template is one prompt: an optional system prompt and a Go text/template for the user turn.
type Template struct {
	ID           string   `json:"id"`
	Category     string   `json:"category"`
	Description  string   `json:"description,omitempty"`
	SystemPrompt string   `json:"system_prompt"`
	User         string   `json:"user_prompt_template"`
	SchemaID     string   `json:"response_schema_ref,omitempty"`
	Required     []string `json:"required_vars,omitempty"`

	tmpl *template.Template
}

func (t *Template) compile() error {
	tmpl, err := template.New(t.ID).Option("missingkey=error").Parse(t.User)
	if err != nil {
		return fmt.Errorf("prompt %s: %w", t.ID, err)
	}
	t.tmpl = tmpl
	return nil
}

// Execute renders the user prompt with vars.
func (t *Template) Execute(vars map[string]interface{}) (string, error) {
	for _, name := range t.Required {
		if _, ok := vars[name]; !ok {
			return "", fmt.Errorf("prompt %s: missing variable %q", t.ID, name)
		}
	}
	if t.tmpl == nil {
		return "", fmt.Errorf("prompt %s: not registered", t.ID)
	}

	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("prompt %s: %w", t.ID, err)
	}
	return buf.String(), nil
}
