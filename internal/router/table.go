package router

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Table is the routing policy: the closed label taxonomy handed to the
// classifier, the label→provider map, and the default provider used
// whenever classification cannot happen.
type Table struct {
	DefaultProvider string            `yaml:"default_provider"`
	Labels          []string          `yaml:"labels"`
	Routes          map[string]string `yaml:"routes"`
}

// DefaultTable returns the built-in routing policy.
func DefaultTable() Table {
	return Table{
		DefaultProvider: "anthropic",
		Labels: []string{
			"image generation",
			"data analysis",
			"programming help",
			"text summarization",
			"translation",
			"sentiment analysis",
			"code generation",
			"content creation",
			"math problem solving",
			"SEO analysis",
			"product recommendation",
			"grammar checking",
			"financial forecasting",
			"legal document review",
			"personal assistant task",
			"weather forecast",
			"health advice",
			"recipe suggestion",
			"historical fact",
			"travel planning",
			"general question",
		},
		Routes: map[string]string{
			"weather forecast":       "gemini",
			"recipe suggestion":      "gemini",
			"travel planning":        "gemini",
			"personal assistant task": "gemini",
			"translation":            "gemini",
			"general question":       "gemini",

			"text summarization":    "anthropic",
			"legal document review": "anthropic",
			"sentiment analysis":    "anthropic",
			"health advice":         "anthropic",
			"historical fact":       "anthropic",

			"image generation":      "openai",
			"data analysis":         "openai",
			"programming help":      "openai",
			"code generation":       "openai",
			"content creation":      "openai",
			"math problem solving":  "openai",
			"SEO analysis":          "openai",
			"product recommendation": "openai",
			"grammar checking":      "openai",
			"financial forecasting": "openai",
		},
	}
}

// ProviderFor maps a classified label onto a provider id, defaulting for
// labels outside the routes map.
func (t Table) ProviderFor(label string) string {
	if p, ok := t.Routes[label]; ok {
		return p
	}
	return t.DefaultProvider
}

// LoadTable reads a routing policy from a YAML file. Fields left empty in
// the file keep their built-in values, so an override file may carry only
// a default_provider line or only a routes block.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read routing table: %w", err)
	}

	loaded := Table{}
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return Table{}, fmt.Errorf("parse routing table: %w", err)
	}

	merged := DefaultTable()
	if loaded.DefaultProvider != "" {
		merged.DefaultProvider = loaded.DefaultProvider
	}
	if len(loaded.Labels) > 0 {
		merged.Labels = loaded.Labels
	}
	if len(loaded.Routes) > 0 {
		merged.Routes = loaded.Routes
	}
	return merged, nil
}
