// Package server provides the live preview HTTP server for a deck.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/euforicio/deckmd/internal/config"
	"github.com/euforicio/deckmd/internal/hub"
	"github.com/euforicio/deckmd/internal/renderer"
	"github.com/euforicio/deckmd/internal/watch"
)

const shutdownTimeout = 5 * time.Second

// Server serves the rendered deck, the files next to it, and the reload push channel.
type Server struct { //nolint:govet // field order favors logical grouping over padding optimizations
	mux        *http.ServeMux
	httpServer *http.Server
	logger     *slog.Logger
	renderer   *renderer.Renderer
	conns      *hub.Registry
	upgrader   websocket.Upgrader
	cfg        config.Config
	assetsDir  string

	mu   sync.Mutex
	addr net.Addr
}

// New constructs a Server for cfg.Input. The input must exist; the css and js
// files are only read per request.
func New(cfg config.Config, logger *slog.Logger, r *renderer.Renderer, conns *hub.Registry) (*Server, error) {
	if r == nil || conns == nil {
		return nil, errors.New("server requires a renderer and a connection registry")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.RequireInput(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(cfg.Input); err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}

	s := &Server{
		mux:       http.NewServeMux(),
		logger:    logger.With("component", "http"),
		renderer:  r,
		conns:     conns,
		cfg:       cfg,
		assetsDir: filepath.Dir(cfg.Input),
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: sameOrigin}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /slides", s.handleSlides)
	s.mux.HandleFunc("GET /ws", s.handlePush)
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.Handle("GET /{path...}", http.FileServer(assetFS{http.Dir(s.assetsDir)}))
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		gzipMiddleware(s.logger),
		loggingMiddleware(s.logger, s.cfg.Verbose),
	)
}

// Start binds the listener and serves until ctx is canceled. In watch mode it
// also runs the file watcher and relays its events to every push connection.
// The listener honors cfg.Port; port 0 picks a free one.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port)))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	var watcher *watch.Watcher
	if s.cfg.Watch {
		watcher, err = watch.New(s.cfg.WatchTargets(), watch.Options{
			Debounce: s.cfg.Debounce,
			Logger:   s.logger,
		})
		if err != nil {
			_ = listener.Close()
			return fmt.Errorf("watch files: %w", err)
		}
		defer func() {
			if err := watcher.Close(); err != nil {
				s.logger.Warn("close watcher", slog.Any("err", err))
			}
		}()
	}

	group, groupCtx := errgroup.WithContext(ctx)

	s.mu.Lock()
	s.addr = listener.Addr()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return groupCtx },
	}
	httpServer := s.httpServer
	s.mu.Unlock()

	slidesURL := s.slidesURL()
	if watcher != nil {
		s.logger.Info("watching for changes", slog.String("input", s.cfg.Input))
	}
	if _, err := fmt.Fprintf(os.Stdout, "Go to %s to see your slides\n", slidesURL); err != nil {
		s.logger.Warn("failed to announce server address", slog.String("url", slidesURL), slog.Any("err", err))
	}

	group.Go(func() error {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("graceful shutdown failed", slog.Any("err", err))
			return err
		}
		return nil
	})
	if watcher != nil {
		group.Go(func() error {
			if err := watcher.Run(groupCtx); err != nil {
				s.logger.Error("file watch stopped", slog.Any("err", err))
			}
			return nil
		})
		group.Go(func() error {
			s.relayReloads(groupCtx, watcher.Events())
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Shutdown gracefully stops the server with the provided context timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	httpServer := s.httpServer
	s.mu.Unlock()
	if httpServer == nil {
		return nil
	}
	return httpServer.Shutdown(ctx)
}

// Addr reports the bound listener address, or nil before Start has bound it.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// slidesURL is the address printed at startup. Wildcard binds are announced as
// localhost so the URL can be opened as is.
func (s *Server) slidesURL() string {
	host := s.cfg.Host
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "localhost"
	}
	port := s.cfg.Port
	if tcp, ok := s.Addr().(*net.TCPAddr); ok {
		port = tcp.Port
	}
	u := "http://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/slides"
	if s.cfg.Watch {
		u += "?watch=true"
	}
	return u
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	target := "/slides"
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) handleSlides(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	out, err := s.renderDeck(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "render slides failed", slog.Any("err", err))
		respondError(w, s.logger)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := out.WriteTo(w); err != nil {
		s.logger.WarnContext(ctx, "write slides failed", slog.Any("err", err))
	}
}

// renderDeck re-reads every source file so each request reflects what is on disk.
func (s *Server) renderDeck(ctx context.Context) (renderer.Output, error) {
	css, err := readOptional(s.cfg.CSS)
	if err != nil {
		return renderer.Output{}, err
	}
	js, err := readOptional(s.cfg.JS)
	if err != nil {
		return renderer.Output{}, err
	}
	markdown, err := os.ReadFile(s.cfg.Input)
	if err != nil {
		return renderer.Output{}, fmt.Errorf("read input: %w", err)
	}
	return s.renderer.Render(ctx, markdown, renderer.Assets{CSS: css, JS: js})
}
