// Package templates provides embedded prompt and email templates with user
// override support. Resolution order:
// 1. User override: templatesDir/{name}.{toml,html}
// 2. Embedded default: internal/templates/{name}.{toml,html}
package templates

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

//go:embed *.toml *.html
var fs embed.FS

// Prompt is a loaded AI prompt template. Placeholders use literal
// {{name}} substitution.
type Prompt struct {
	Description string `toml:"description"`
	Prompt      string `toml:"prompt"`
}

// GetPrompt loads a prompt template by name, preferring a user override in
// templatesDir over the embedded default.
func GetPrompt(name string, templatesDir string) (*Prompt, error) {
	data, err := load(name+".toml", templatesDir)
	if err != nil {
		return nil, err
	}

	var p Prompt
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse prompt template '%s': %w", name, err)
	}
	return &p, nil
}

// GetEmailTemplate loads an HTML email template by name, preferring a user
// override in templatesDir over the embedded default.
func GetEmailTemplate(name string, templatesDir string) (string, error) {
	data, err := load(name+".html", templatesDir)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func load(filename string, templatesDir string) ([]byte, error) {
	if templatesDir != "" {
		userPath := filepath.Join(templatesDir, filename)
		if data, err := os.ReadFile(userPath); err == nil {
			return data, nil
		}
	}

	data, err := fs.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("template '%s' not found (checked user override and embedded)", filename)
	}
	return data, nil
}
