package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/switchboard-ai/switchboard/internal/config"
	"github.com/switchboard-ai/switchboard/internal/orchestrator"
	"github.com/switchboard-ai/switchboard/internal/router"
	"github.com/switchboard-ai/switchboard/internal/schema"
)

type fakeCore struct {
	mu     sync.Mutex
	reqs   []orchestrator.Request
	resets []string
	result schema.TurnResult
}

func (f *fakeCore) Chat(_ context.Context, req orchestrator.Request) (schema.TurnResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return f.result, nil
}

func (f *fakeCore) Reset(sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, sessionID)
	return nil
}

func (f *fakeCore) lastReq(t *testing.T) orchestrator.Request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reqs) == 0 {
		t.Fatal("no chat calls recorded")
	}
	return f.reqs[len(f.reqs)-1]
}

func newTestServer(t *testing.T) (*Server, *fakeCore) {
	t.Helper()
	core := &fakeCore{result: schema.TurnResult{
		ResponseText: "hi there",
		ProviderUsed: "anthropic",
		ModelUsed:    "claude",
		TotalTokens:  42,
	}}
	cfg := config.GatewayConfig{Host: "127.0.0.1", Port: 0, UploadDir: t.TempDir()}
	srv := NewServer(cfg, core, router.New(router.DefaultTable(), nil))
	return srv, core
}

func postJSON(t *testing.T, handler http.HandlerFunc, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestChatEndpoint(t *testing.T) {
	srv, core := newTestServer(t)

	w := postJSON(t, srv.handleChat, chatRequest{Message: "hello", Provider: "openai", Mode: "think"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp chatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Response != "hi there" || resp.Provider != "anthropic" || resp.TotalTokens != 42 {
		t.Errorf("response = %+v", resp)
	}

	req := core.lastReq(t)
	if req.ProviderSelector != "openai" || req.Mode != "think" {
		t.Errorf("request = %+v", req)
	}
	if !strings.HasPrefix(req.SessionID, "web:") {
		t.Errorf("session id = %q", req.SessionID)
	}

	// A new session cookie must be set.
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != sessionCookie {
		t.Fatalf("cookies = %v", cookies)
	}
}

func TestChatReusesCookieSession(t *testing.T) {
	srv, core := newTestServer(t)
	cookie := &http.Cookie{Name: sessionCookie, Value: "web:abc"}

	postJSON(t, srv.handleChat, chatRequest{Message: "one"}, cookie)
	postJSON(t, srv.handleChat, chatRequest{Message: "two"}, cookie)

	core.mu.Lock()
	defer core.mu.Unlock()
	if len(core.reqs) != 2 {
		t.Fatalf("chat calls = %d", len(core.reqs))
	}
	if core.reqs[0].SessionID != "web:abc" || core.reqs[1].SessionID != "web:abc" {
		t.Errorf("sessions = %q, %q", core.reqs[0].SessionID, core.reqs[1].SessionID)
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	srv, core := newTestServer(t)

	w := postJSON(t, srv.handleChat, chatRequest{Message: "   "}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	core.mu.Lock()
	defer core.mu.Unlock()
	if len(core.reqs) != 0 {
		t.Error("empty message reached the core")
	}
}

func TestStickyProvider(t *testing.T) {
	srv, core := newTestServer(t)
	cookie := &http.Cookie{Name: sessionCookie, Value: "web:abc"}

	// Pin via alias; response reports the canonical name.
	w := postJSON(t, srv.handleProvider, map[string]string{"provider": "Claude"}, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var pinned map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &pinned)
	if pinned["provider"] != "anthropic" {
		t.Errorf("pinned = %v", pinned)
	}

	postJSON(t, srv.handleChat, chatRequest{Message: "hello"}, cookie)
	if got := core.lastReq(t).ProviderSelector; got != "anthropic" {
		t.Errorf("selector = %q, want sticky anthropic", got)
	}

	// An explicit per-request provider overrides the sticky one.
	postJSON(t, srv.handleChat, chatRequest{Message: "hello", Provider: "gemini"}, cookie)
	if got := core.lastReq(t).ProviderSelector; got != "gemini" {
		t.Errorf("selector = %q, want gemini", got)
	}

	// Pinning auto clears the sticky provider.
	postJSON(t, srv.handleProvider, map[string]string{"provider": "auto"}, cookie)
	postJSON(t, srv.handleChat, chatRequest{Message: "hello"}, cookie)
	if got := core.lastReq(t).ProviderSelector; got != router.SelectorAuto {
		t.Errorf("selector = %q, want auto", got)
	}
}

func TestStickyProviderUnknown(t *testing.T) {
	srv, _ := newTestServer(t)
	w := postJSON(t, srv.handleProvider, map[string]string{"provider": "mistral"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestProvidersEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/providers", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "web:abc"})
	w := httptest.NewRecorder()
	srv.handleProviders(w, req)

	var resp struct {
		Providers []struct {
			Name string `json:"name"`
		} `json:"providers"`
		Current string `json:"current"`
		Default string `json:"default"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Providers) != 3 {
		t.Fatalf("providers = %+v", resp.Providers)
	}
	if resp.Current != "auto" || resp.Default != "anthropic" {
		t.Errorf("current=%q default=%q", resp.Current, resp.Default)
	}
}

func TestResetEndpoint(t *testing.T) {
	srv, core := newTestServer(t)
	cookie := &http.Cookie{Name: sessionCookie, Value: "web:abc"}

	w := postJSON(t, srv.handleReset, struct{}{}, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	core.mu.Lock()
	defer core.mu.Unlock()
	if len(core.resets) != 1 || core.resets[0] != "web:abc" {
		t.Fatalf("resets = %v", core.resets)
	}
}

func TestUploadAndAttach(t *testing.T) {
	srv, core := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "cat.png")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("png-bytes")); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	srv.handleUpload(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d: %s", w.Code, w.Body.String())
	}

	var up map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &up)
	path := up["path"]
	if path == "" || filepath.Dir(path) != srv.uploadDir {
		t.Fatalf("upload path = %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("uploaded file missing: %v", err)
	}

	w2 := postJSON(t, srv.handleChat, chatRequest{Message: "what is this", Attachments: []string{path}}, nil)
	if w2.Code != http.StatusOK {
		t.Fatalf("chat status = %d: %s", w2.Code, w2.Body.String())
	}
	parts := core.lastReq(t).Message.Parts
	if len(parts) != 2 || parts[1].Kind != schema.PartImage || parts[1].MediaType != "image/png" {
		t.Fatalf("parts = %+v", parts)
	}
}

func TestAttachmentOutsideUploadDirRejected(t *testing.T) {
	srv, core := newTestServer(t)

	w := postJSON(t, srv.handleChat, chatRequest{
		Message:     "read this",
		Attachments: []string{"/etc/passwd.png"},
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	core.mu.Lock()
	defer core.mu.Unlock()
	if len(core.reqs) != 0 {
		t.Error("attachment escape reached the core")
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	w := httptest.NewRecorder()
	srv.handleHealthz(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ok") {
		t.Fatalf("healthz = %d %s", w.Code, w.Body.String())
	}
}
