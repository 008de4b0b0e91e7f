package prompt

import (
	"fmt"
	"sort"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Registry maps prompt and response-schema IDs to their current definitions.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	prompts map[string]*Template
	schemas map[string]*gojsonschema.Schema
}

// NewRegistry returns a registry holding the built-in prompts and schemas.
func NewRegistry() *Registry {
	r := &Registry{
		prompts: make(map[string]*Template),
		schemas: make(map[string]*gojsonschema.Schema),
	}
	if err := registerDefaults(r); err != nil {
		panic(err)
	}
	return r
}

// Register compiles t and stores it, replacing any prompt with the same ID.
func (r *Registry) Register(t *Template) error {
	if t.ID == "" {
		return fmt.Errorf("prompt ID cannot be empty")
	}
	if err := t.compile(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts[t.ID] = t
	return nil
}

// RegisterSchema compiles a JSON Schema document under id.
func (r *Registry) RegisterSchema(id, document string) error {
	if id == "" {
		return fmt.Errorf("schema ID cannot be empty")
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(document))
	if err != nil {
		return fmt.Errorf("schema %s: %w", id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[id] = schema
	return nil
}

func (r *Registry) Prompt(id string) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if t, ok := r.prompts[id]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("prompt not found: %s", id)
}

func (r *Registry) Schema(id string) (*gojsonschema.Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.schemas[id]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("schema not found: %s", id)
}

// Render returns the rendered user prompt and the system prompt for id.
func (r *Registry) Render(id string, vars map[string]interface{}) (string, string, error) {
	t, err := r.Prompt(id)
	if err != nil {
		return "", "", err
	}
	user, err := t.Execute(vars)
	if err != nil {
		return "", "", err
	}
	return user, t.SystemPrompt, nil
}

// IDs returns the registered prompt IDs in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.prompts))
	for id := range r.prompts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
