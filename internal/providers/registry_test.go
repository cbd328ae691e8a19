package providers

import "testing"

func TestFindByName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"anthropic", "anthropic"},
		{"claude", "anthropic"},
		{"Claude", "anthropic"},
		{"  SONNET  ", "anthropic"},
		{"openai", "openai"},
		{"gpt-4o", "openai"},
		{"chatgpt", "openai"},
		{"gemini", "gemini"},
		{"google", "gemini"},
	}
	for _, tc := range cases {
		spec := FindByName(tc.in)
		if spec == nil {
			t.Errorf("FindByName(%q) = nil, want %s", tc.in, tc.want)
			continue
		}
		if spec.Name != tc.want {
			t.Errorf("FindByName(%q) = %s, want %s", tc.in, spec.Name, tc.want)
		}
	}

	for _, miss := range []string{"", "mistral", "llama"} {
		if spec := FindByName(miss); spec != nil {
			t.Errorf("FindByName(%q) = %s, want nil", miss, spec.Name)
		}
	}
}

func TestFindByModel(t *testing.T) {
	cases := []struct {
		model string
		want  string
	}{
		{"claude-3-5-sonnet-20241022", "anthropic"},
		{"gpt-4o-mini", "openai"},
		{"o1-preview", "openai"},
		{"gemini-1.5-flash-latest", "gemini"},
	}
	for _, tc := range cases {
		spec := FindByModel(tc.model)
		if spec == nil || spec.Name != tc.want {
			t.Errorf("FindByModel(%q) = %v, want %s", tc.model, spec, tc.want)
		}
	}
	if spec := FindByModel("mystery-model"); spec != nil {
		t.Errorf("FindByModel(unknown) = %s, want nil", spec.Name)
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	if _, err := New("mistral", Credentials{}); err == nil {
		t.Fatal("expected an error for an unregistered provider")
	}

	p, err := New("claude", Credentials{APIKey: "k"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "anthropic" {
		t.Errorf("alias must resolve to the canonical adapter, got %s", p.Name())
	}
	if !p.SupportsSystemRole() {
		t.Error("anthropic supports a system role")
	}
}
