// Package providers implements one adapter per LLM backend family plus the
// spec registry that maps names, aliases, and model keywords onto them.
//
// Every adapter translates the canonical schema.Message history into its
// backend's wire format and back. Translation is pure: malformed or
// unrecognised content parts become text placeholders, never errors, so a
// bad part can degrade a request but cannot abort a turn.
package providers

import "strings"

// ProviderSpec is the metadata record for one backend.
type ProviderSpec struct {
	// Name is the canonical provider id used by the router and config.
	Name        string
	DisplayName string

	// Aliases are alternative direct-selection ids, e.g. "gpt-4o" → openai.
	Aliases []string
	// ModelKeywords match substrings of model names for spec lookup.
	ModelKeywords []string

	// EnvKey is the environment variable consulted when the config file
	// carries no API key for this provider.
	EnvKey string

	DefaultModel   string
	DefaultAPIBase string

	// SupportsSystemRole reports whether a system preamble may be sent.
	SupportsSystemRole bool
}

// Label returns the display name, defaulting to the Title-cased Name.
func (s ProviderSpec) Label() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return strings.ToUpper(s.Name[:1]) + s.Name[1:]
}

// Specs is the registry of supported backends. Order = match priority.
var Specs = []ProviderSpec{
	{
		Name:               "anthropic",
		DisplayName:        "Anthropic Claude",
		Aliases:            []string{"claude", "claude-3-5-sonnet", "sonnet"},
		ModelKeywords:      []string{"claude"},
		EnvKey:             "ANTHROPIC_API_KEY",
		DefaultModel:       "claude-3-5-sonnet-20241022",
		DefaultAPIBase:     "https://api.anthropic.com/v1",
		SupportsSystemRole: true,
	},
	{
		Name:               "openai",
		DisplayName:        "OpenAI",
		Aliases:            []string{"gpt", "gpt-4o", "gpt-4o-mini", "chatgpt"},
		ModelKeywords:      []string{"gpt", "o1", "o3"},
		EnvKey:             "OPENAI_API_KEY",
		DefaultModel:       "gpt-4o-mini",
		DefaultAPIBase:     "https://api.openai.com/v1",
		SupportsSystemRole: true,
	},
	{
		Name:               "gemini",
		DisplayName:        "Google Gemini",
		Aliases:            []string{"google", "gemini-flash"},
		ModelKeywords:      []string{"gemini"},
		EnvKey:             "GEMINI_API_KEY",
		DefaultModel:       "gemini-1.5-flash-latest",
		DefaultAPIBase:     "https://generativelanguage.googleapis.com/v1beta",
		SupportsSystemRole: false,
	},
}

// FindByName resolves a provider id or alias, case-insensitively.
// Returns nil when nothing matches.
func FindByName(name string) *ProviderSpec {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return nil
	}
	for i := range Specs {
		if Specs[i].Name == n {
			return &Specs[i]
		}
	}
	for i := range Specs {
		for _, alias := range Specs[i].Aliases {
			if alias == n {
				return &Specs[i]
			}
		}
	}
	return nil
}

// FindByModel resolves a spec from a model name by keyword match.
func FindByModel(model string) *ProviderSpec {
	m := strings.ToLower(model)
	for i := range Specs {
		for _, kw := range Specs[i].ModelKeywords {
			if strings.Contains(m, kw) {
				return &Specs[i]
			}
		}
	}
	return nil
}

// Names returns the canonical provider ids in registry order.
func Names() []string {
	out := make([]string, len(Specs))
	for i, s := range Specs {
		out[i] = s.Name
	}
	return out
}
