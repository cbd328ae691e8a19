// Package gateway exposes the conversation core over HTTP and WebSocket.
package gateway

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/switchboard-ai/switchboard/internal/config"
	"github.com/switchboard-ai/switchboard/internal/orchestrator"
	"github.com/switchboard-ai/switchboard/internal/providers"
	"github.com/switchboard-ai/switchboard/internal/router"
	"github.com/switchboard-ai/switchboard/internal/schema"
)

const sessionCookie = "switchboard_session"

// Turner is the slice of the orchestrator the gateway needs.
type Turner interface {
	Chat(ctx context.Context, req orchestrator.Request) (schema.TurnResult, error)
	Reset(sessionID string) error
}

// Server serves the chat API. Sessions are bound to a browser cookie;
// a per-session sticky provider can be set via /api/provider and is used
// whenever a chat request does not name one.
type Server struct {
	cfg       config.GatewayConfig
	core      Turner
	routing   *router.Router
	uploadDir string

	mu       sync.Mutex
	stickies map[string]string // session id -> provider id
}

func NewServer(cfg config.GatewayConfig, core Turner, rt *router.Router) *Server {
	uploadDir := cfg.UploadDir
	if uploadDir == "" {
		uploadDir = filepath.Join(config.DataDir(), "uploads")
	}
	return &Server{
		cfg:       cfg,
		core:      core,
		routing:   rt,
		uploadDir: uploadDir,
		stickies:  make(map[string]string),
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/api/provider", s.handleProvider)
	mux.HandleFunc("/api/providers", s.handleProviders)
	mux.HandleFunc("/api/reset", s.handleReset)
	mux.HandleFunc("/api/upload", s.handleUpload)
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealthz)

	srv := &http.Server{
		Addr:         s.Addr(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // model turns can be slow
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("gateway listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("gateway: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	}
}

// sessionID reads the session cookie, minting and setting one when absent.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := "web:" + randomHex(16)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (s *Server) stickyProvider(sessionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stickies[sessionID]
}

func (s *Server) setStickyProvider(sessionID, provider string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if provider == "" || provider == router.SelectorAuto {
		delete(s.stickies, sessionID)
		return
	}
	s.stickies[sessionID] = provider
}

// providerFor resolves the effective selector for a request: an explicit
// choice wins, then the session's sticky provider, then auto.
func (s *Server) providerFor(sessionID, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if sticky := s.stickyProvider(sessionID); sticky != "" {
		return sticky
	}
	return router.SelectorAuto
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

func validProvider(name string) *providers.ProviderSpec {
	return providers.FindByName(name)
}
