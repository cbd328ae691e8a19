package gateway

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/switchboard-ai/switchboard/internal/orchestrator"
	"github.com/switchboard-ai/switchboard/internal/schema"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The gateway binds to loopback by default; browser clients on other
	// origins are expected to go through a reverse proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsRequest struct {
	Message  string `json:"message"`
	Provider string `json:"provider,omitempty"`
	Mode     string `json:"mode,omitempty"`
	Reset    bool   `json:"reset,omitempty"`
}

type wsResponse struct {
	chatResponse
	Error string `json:"error,omitempty"`
}

// handleWS runs a chat session over one WebSocket connection. The
// session follows the browser cookie, so a page can mix /api/chat and
// /ws against the same history.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	// Upgrade hijacks the response, so a Set-Cookie written here would be
	// lost; connections without a cookie get a fresh unpersisted id.
	sessionID := "web:" + randomHex(16)
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		sessionID = c.Value
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	slog.Info("websocket session started", "session", sessionID)

	for {
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read failed", "err", err)
			}
			return
		}

		resp := s.runTurn(r, sessionID, req)
		if err := conn.WriteJSON(resp); err != nil {
			slog.Warn("websocket write failed", "err", err)
			return
		}
	}
}

func (s *Server) runTurn(r *http.Request, sessionID string, req wsRequest) wsResponse {
	if req.Reset {
		if err := s.core.Reset(sessionID); err != nil {
			return wsResponse{Error: err.Error()}
		}
		return wsResponse{chatResponse: chatResponse{Response: "Conversation reset."}}
	}
	if req.Message == "" {
		return wsResponse{Error: "empty message"}
	}

	result, err := s.core.Chat(r.Context(), orchestrator.Request{
		SessionID:        sessionID,
		Message:          schema.NewUserText(req.Message),
		ProviderSelector: s.providerFor(sessionID, req.Provider),
		Mode:             req.Mode,
	})
	if err != nil {
		return wsResponse{Error: err.Error()}
	}
	return wsResponse{chatResponse: chatResponse{
		Response:       result.ResponseText,
		Provider:       result.ProviderUsed,
		Model:          result.ModelUsed,
		ToolInvoked:    result.ToolInvoked,
		WasClassified:  result.WasClassified,
		FallbackReason: result.FallbackReason,
		TokensUsed:     result.Usage.Total(),
		TotalTokens:    result.TotalTokens,
		Terminal:       result.Terminal,
	}}
}
