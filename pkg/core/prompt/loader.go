package prompt

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LoadFromDirectory applies overrides from baseDir and returns how many prompt
// files were loaded. Layout:
//
//	baseDir/
//	  prompts/<category>/<name>.json   id defaults to "<category>.<name>"
//	  schemas/<id>.json                the file body is the JSON Schema
//
// The prompts directory must exist; schemas are optional. Files are applied
// as they are read, so an error may leave earlier overrides in place.
func (r *Registry) LoadFromDirectory(baseDir string) (int, error) {
	promptDir := filepath.Join(baseDir, "prompts")
	if _, err := os.Stat(promptDir); err != nil {
		return 0, fmt.Errorf("prompts directory not found: %s", promptDir)
	}

	loaded := 0
	err := walkJSON(promptDir, func(path string, data []byte) error {
		var t Template
		if err := json.Unmarshal(data, &t); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		rel, _ := filepath.Rel(promptDir, strings.TrimSuffix(path, ".json"))
		parts := strings.Split(rel, string(filepath.Separator))
		if t.ID == "" {
			t.ID = strings.Join(parts, ".")
		}
		if t.Category == "" && len(parts) > 1 {
			t.Category = parts[0]
		}
		if err := r.Register(&t); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		loaded++
		return nil
	})
	if err != nil {
		return loaded, err
	}

	schemaDir := filepath.Join(baseDir, "schemas")
	if _, err := os.Stat(schemaDir); os.IsNotExist(err) {
		return loaded, nil
	}
	err = walkJSON(schemaDir, func(path string, data []byte) error {
		id := strings.TrimSuffix(filepath.Base(path), ".json")
		if err := r.RegisterSchema(id, string(data)); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return nil
	})
	return loaded, err
}

func walkJSON(dir string, fn func(path string, data []byte) error) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return fn(path, data)
	})
}
