package providers

import (
	"fmt"
	"os"

	"github.com/switchboard-ai/switchboard/internal/schema"
)

// Credentials are the raw per-provider values the factory needs. Callers
// extract them from config to avoid an import cycle.
type Credentials struct {
	APIKey  string
	APIBase string
	Model   string
}

// New constructs the provider registered under name (or one of its
// aliases). A missing API key falls back to the registry entry's
// environment variable; a still-missing key is not an error here, the
// backend call fails with a status error and the orchestrator reports it.
func New(name string, creds Credentials) (schema.LLMProvider, error) {
	spec := FindByName(name)
	if spec == nil {
		return nil, fmt.Errorf("unknown provider: %q (available: %v)", name, Names())
	}

	apiKey := creds.APIKey
	if apiKey == "" && spec.EnvKey != "" {
		apiKey = os.Getenv(spec.EnvKey)
	}

	switch spec.Name {
	case "anthropic":
		return NewAnthropicProvider(apiKey, creds.APIBase, creds.Model), nil
	case "openai":
		return NewOpenAIProvider(apiKey, creds.APIBase, creds.Model), nil
	case "gemini":
		return NewGeminiProvider(apiKey, creds.APIBase, creds.Model), nil
	}
	return nil, fmt.Errorf("provider %q has no adapter", spec.Name)
}
