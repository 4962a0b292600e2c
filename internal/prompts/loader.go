// Package prompts loads externalized LLM prompt templates. Templates live in
// JSON files embedded at compile time and use {{.Key}} placeholders.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

// loadAll parses every embedded prompt file once, keyed "file.json/name".
var loadAll = sync.OnceValues(func() (map[string]string, error) {
	all := make(map[string]string)
	entries, err := promptFiles.ReadDir(".")
	if err != nil {
		return nil, fmt.Errorf("failed to list prompt files: %w", err)
	}
	for _, entry := range entries {
		data, err := promptFiles.ReadFile(entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read prompt file %s: %w", entry.Name(), err)
		}
		var file map[string]string
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse prompt file %s: %w", entry.Name(), err)
		}
		for key, template := range file {
			all[entry.Name()+"/"+key] = template
		}
	}
	return all, nil
})

// Get retrieves a prompt by filename (e.g. "drafting.json") and key.
func Get(filename, key string) (string, error) {
	all, err := loadAll()
	if err != nil {
		return "", err
	}
	template, ok := all[filename+"/"+key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return template, nil
}

// MustGet retrieves a prompt, panicking if the file or key is missing.
// Use only for prompts required at initialization time.
func MustGet(filename, key string) string {
	template, err := Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return template
}

// Format substitutes {{.Key}} placeholders with values from data.
func Format(template string, data map[string]string) string {
	out := template
	for key, value := range data {
		out = strings.ReplaceAll(out, fmt.Sprintf("{{.%s}}", key), value)
	}
	return out
}
