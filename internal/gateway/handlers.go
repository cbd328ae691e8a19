package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/switchboard-ai/switchboard/internal/orchestrator"
	"github.com/switchboard-ai/switchboard/internal/providers"
	"github.com/switchboard-ai/switchboard/internal/schema"
	"github.com/switchboard-ai/switchboard/internal/shared/llmutils"
)

const maxUploadBytes = 20 << 20

type chatRequest struct {
	Message string `json:"message"`
	// Provider is a provider id, alias, "auto", or "" (use the session's
	// sticky provider, falling back to auto).
	Provider string `json:"provider,omitempty"`
	Mode     string `json:"mode,omitempty"`
	// Attachments are paths previously returned by /api/upload.
	Attachments []string `json:"attachments,omitempty"`
}

type chatResponse struct {
	Response       string `json:"response"`
	Provider       string `json:"provider"`
	Model          string `json:"model,omitempty"`
	ToolInvoked    string `json:"tool_invoked,omitempty"`
	WasClassified  bool   `json:"was_classified"`
	FallbackReason string `json:"fallback_reason,omitempty"`
	TokensUsed     int    `json:"tokens_used"`
	TotalTokens    int    `json:"total_tokens"`
	Terminal       bool   `json:"terminal,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	sessionID := s.sessionID(w, r)
	msg, err := s.buildMessage(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(msg.Parts) == 0 {
		writeError(w, http.StatusBadRequest, "empty message")
		return
	}

	result, err := s.core.Chat(r.Context(), orchestrator.Request{
		SessionID:        sessionID,
		Message:          msg,
		ProviderSelector: s.providerFor(sessionID, req.Provider),
		Mode:             req.Mode,
	})
	if err != nil {
		slog.Error("chat turn failed", "session", sessionID, "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response:       result.ResponseText,
		Provider:       result.ProviderUsed,
		Model:          result.ModelUsed,
		ToolInvoked:    result.ToolInvoked,
		WasClassified:  result.WasClassified,
		FallbackReason: result.FallbackReason,
		TokensUsed:     result.Usage.Total(),
		TotalTokens:    result.TotalTokens,
		Terminal:       result.Terminal,
	})
}

// buildMessage assembles the user message from request text plus any
// uploaded image attachments. Attachment paths must live under the
// upload directory.
func (s *Server) buildMessage(req chatRequest) (schema.Message, error) {
	var parts []schema.ContentPart
	if strings.TrimSpace(req.Message) != "" {
		parts = append(parts, schema.TextPart(req.Message))
	}
	for _, p := range req.Attachments {
		clean := filepath.Clean(p)
		if !strings.HasPrefix(clean, s.uploadDir+string(filepath.Separator)) {
			return schema.Message{}, fmt.Errorf("attachment outside upload dir: %s", p)
		}
		mt := llmutils.ImageMediaType(clean)
		if mt == "" {
			continue
		}
		data, err := os.ReadFile(clean)
		if err != nil {
			return schema.Message{}, fmt.Errorf("read attachment: %w", err)
		}
		parts = append(parts, schema.ImagePart(mt, data))
	}
	return schema.NewUserMessage(parts...), nil
}

func (s *Server) handleProvider(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req struct {
		Provider string `json:"provider"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	sessionID := s.sessionID(w, r)
	sel := strings.TrimSpace(req.Provider)
	if sel == "" || strings.EqualFold(sel, "auto") {
		s.setStickyProvider(sessionID, "")
		writeJSON(w, http.StatusOK, map[string]string{"provider": "auto"})
		return
	}

	spec := validProvider(sel)
	if spec == nil {
		writeError(w, http.StatusBadRequest, "unknown provider: "+req.Provider)
		return
	}
	s.setStickyProvider(sessionID, spec.Name)
	writeJSON(w, http.StatusOK, map[string]string{"provider": spec.Name})
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	sessionID := s.sessionID(w, r)

	type providerInfo struct {
		Name        string `json:"name"`
		DisplayName string `json:"display_name"`
	}
	list := make([]providerInfo, 0, len(providers.Specs))
	for _, spec := range providers.Specs {
		list = append(list, providerInfo{Name: spec.Name, DisplayName: spec.Label()})
	}

	current := s.stickyProvider(sessionID)
	if current == "" {
		current = "auto"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"providers": list,
		"current":   current,
		"default":   s.routing.DefaultProvider(),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	sessionID := s.sessionID(w, r)
	if err := s.core.Reset(sessionID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "parse upload: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	name := randomHex(8) + "_" + sanitizeFilename(header.Filename)
	dest := filepath.Join(s.uploadDir, name)
	out, err := os.Create(dest)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer out.Close()
	if _, err := io.Copy(out, file); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	slog.Info("upload stored", "path", dest, "size", header.Size)
	writeJSON(w, http.StatusOK, map[string]string{"path": dest})
}

// sanitizeFilename keeps the base name and replaces path separators.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(name)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
