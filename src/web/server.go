// Package web serves the chat page and a small JSON API over a Session.
//
// Routes:
//   - GET    /              chat page
//   - POST   /messages      send the "message" form field, then redirect to /
//   - POST   /clear         clear the history, then redirect to /
//   - GET    /api/history   transcript as a JSON array
//   - POST   /api/messages  {"message": "..."} -> {"reply": turn, "history": [...]}
//   - DELETE /api/history   clear the history
//   - GET    /api/models    models available to the key, when configured
//   - GET    /healthz       liveness
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/elee1766/gemchat/src/gemini"
	"github.com/elee1766/gemchat/src/history"
	"github.com/shirou/gopsutil/v3/host"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const (
	// Title is the document title; the header prefixes it with "Amazing".
	Title = "AI Chatbot"

	// DefaultMaxBodyBytes limits request bodies when no limit is configured.
	DefaultMaxBodyBytes = 1 << 20
)

// Chat is the conversation the server exposes.
type Chat interface {
	Send(ctx context.Context, text string) (history.Turn, error)
	Clear(ctx context.Context) error
	Turns() []history.Turn
}

// Config configures a Server.
type Config struct {
	Addr         string
	MaxBodyBytes int64
	// Model is reported by /healthz
	Model string
	// Models backs /api/models; the route is not registered when nil
	Models gemini.ModelLister
	Logger *slog.Logger
}

// Server is the HTTP front end of a Chat.
type Server struct {
	chat     Chat
	config   Config
	logger   *slog.Logger
	router   *http.ServeMux
	handler  http.Handler
	page     *template.Template
	renderer *Renderer

	started  time.Time
	platform string

	mu     sync.Mutex
	server *http.Server
}

// NewServer creates a Server for chat.
func NewServer(chat Chat, config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = DefaultMaxBodyBytes
	}

	page, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		chat:     chat,
		config:   config,
		logger:   logger.With("component", "web"),
		router:   http.NewServeMux(),
		page:     page,
		renderer: NewRenderer(),
		started:  time.Now(),
		platform: platform(),
	}
	s.setupRoutes()

	s.handler = Chain(
		RequestIDMiddleware(),
		RecoveryMiddleware(s.logger),
		LoggingMiddleware(s.logger),
		SecurityHeadersMiddleware(),
	)(s.router)

	return s, nil
}

// platform describes the host for /healthz, falling back to GOOS.
func platform() string {
	info, err := host.Info()
	if err != nil || info.Platform == "" {
		return runtime.GOOS
	}
	if info.PlatformVersion != "" {
		return info.Platform + " " + info.PlatformVersion
	}
	return info.Platform
}

func (s *Server) setupRoutes() {
	static, _ := fs.Sub(staticFS, "static")

	s.router.HandleFunc("GET /{$}", s.handleIndex)
	s.router.HandleFunc("POST /messages", s.handleFormMessage)
	s.router.HandleFunc("POST /clear", s.handleFormClear)

	s.router.HandleFunc("GET /api/history", s.handleGetHistory)
	s.router.HandleFunc("POST /api/messages", s.handleAPIMessage)
	s.router.HandleFunc("DELETE /api/history", s.handleDeleteHistory)
	if s.config.Models != nil {
		s.router.HandleFunc("GET /api/models", s.handleListModels)
	}

	s.router.HandleFunc("GET /healthz", s.handleHealth)
	s.router.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves until Shutdown.
// It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	return s.serve(s.newHTTPServer(), ln)
}

func (s *Server) newHTTPServer() *http.Server {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()
	return srv
}

func (s *Server) serve(srv *http.Server, ln net.Listener) error {
	s.logger.Info("server started", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight
// exchanges until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	s.logger.Info("shutting down server")
	return srv.Shutdown(ctx)
}

// Run serves until ctx is cancelled, then shuts down within timeout.
func (s *Server) Run(ctx context.Context, timeout time.Duration) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}

	srv := s.newHTTPServer()
	errc := make(chan error, 1)
	go func() {
		errc <- s.serve(srv, ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errc
}
