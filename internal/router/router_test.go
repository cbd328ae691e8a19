package router

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/switchboard-ai/switchboard/internal/classifier"
)

type stubClassifier struct {
	pred classifier.Prediction
	err  error
	got  string
}

func (s *stubClassifier) Classify(_ context.Context, text string, _ []string) (classifier.Prediction, error) {
	s.got = text
	return s.pred, s.err
}

func TestResolveDirect(t *testing.T) {
	r := New(DefaultTable(), nil)

	cases := []struct {
		selector string
		want     string
	}{
		{"anthropic", "anthropic"},
		{"claude", "anthropic"},
		{"GPT-4o", "openai"},
		{"gemini", "gemini"},
	}
	for _, tc := range cases {
		res := r.Resolve(context.Background(), tc.selector, "anything")
		if res.Provider != tc.want {
			t.Errorf("Resolve(%q) = %s, want %s", tc.selector, res.Provider, tc.want)
		}
		if res.WasClassified {
			t.Errorf("direct selection of %q must not classify", tc.selector)
		}
		if res.FallbackReason != "" {
			t.Errorf("direct selection of %q must not report a fallback", tc.selector)
		}
	}
}

func TestResolveAutoRoutesByLabel(t *testing.T) {
	stub := &stubClassifier{pred: classifier.Prediction{Label: "programming help", Score: 0.88}}
	r := New(DefaultTable(), stub)

	res := r.Resolve(context.Background(), SelectorAuto, "how do I reverse a slice in go")

	if res.Provider != "openai" {
		t.Errorf("programming help must route to openai, got %s", res.Provider)
	}
	if !res.WasClassified {
		t.Error("expected WasClassified")
	}
	if res.Label != "programming help" {
		t.Errorf("label not reported: %q", res.Label)
	}
	if stub.got != "how do I reverse a slice in go" {
		t.Errorf("classification text not forwarded: %q", stub.got)
	}
}

func TestResolveUnrecognisedSelectorFallsThroughToAuto(t *testing.T) {
	stub := &stubClassifier{pred: classifier.Prediction{Label: "weather forecast", Score: 0.9}}
	r := New(DefaultTable(), stub)

	res := r.Resolve(context.Background(), "mystery-llm", "will it rain tomorrow")

	if res.Provider != "gemini" {
		t.Errorf("expected classifier routing, got %s", res.Provider)
	}
	if !res.WasClassified {
		t.Error("unrecognised selector must trigger classification")
	}
}

func TestResolveFallbacks(t *testing.T) {
	t.Run("classifier error", func(t *testing.T) {
		stub := &stubClassifier{err: classifier.ErrUnavailable}
		r := New(DefaultTable(), stub)

		res := r.Resolve(context.Background(), SelectorAuto, "hello")
		if res.Provider != "anthropic" {
			t.Errorf("expected default provider, got %s", res.Provider)
		}
		if res.WasClassified {
			t.Error("fallback must not claim classification")
		}
		if res.FallbackReason == "" {
			t.Error("fallback must carry a reason")
		}
	})

	t.Run("empty text", func(t *testing.T) {
		stub := &stubClassifier{err: errors.New("must not be called")}
		r := New(DefaultTable(), stub)

		res := r.Resolve(context.Background(), SelectorAuto, "   ")
		if res.Provider != "anthropic" || res.FallbackReason == "" {
			t.Errorf("empty input must fall back with a reason: %+v", res)
		}
		if stub.got != "" {
			t.Error("classifier must not run on empty input")
		}
	})

	t.Run("nil classifier", func(t *testing.T) {
		r := New(DefaultTable(), nil)
		res := r.Resolve(context.Background(), SelectorAuto, "hello")
		if res.Provider != "anthropic" || res.FallbackReason == "" {
			t.Errorf("nil classifier must fall back with a reason: %+v", res)
		}
	})

	t.Run("unmapped label", func(t *testing.T) {
		stub := &stubClassifier{pred: classifier.Prediction{Label: "interpretive dance", Score: 0.5}}
		r := New(DefaultTable(), stub)
		res := r.Resolve(context.Background(), SelectorAuto, "hello")
		if res.Provider != "anthropic" {
			t.Errorf("unmapped labels must route to the default, got %s", res.Provider)
		}
	})
}

func TestLoadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routing.yaml")
	content := []byte("default_provider: gemini\nroutes:\n  haiku writing: anthropic\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := LoadTable(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.DefaultProvider != "gemini" {
		t.Errorf("default not overridden: %s", table.DefaultProvider)
	}
	if table.ProviderFor("haiku writing") != "anthropic" {
		t.Error("route override not applied")
	}
	if len(table.Labels) == 0 {
		t.Error("labels must keep built-in values when omitted")
	}

	if _, err := LoadTable(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
