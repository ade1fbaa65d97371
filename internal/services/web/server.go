package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/louisbranch/sites/internal/platform/timeouts"
	"github.com/louisbranch/sites/internal/services/bridge"
	"github.com/louisbranch/sites/internal/services/landing"
	"github.com/louisbranch/sites/internal/services/web/platform/httpx"
	"github.com/louisbranch/sites/internal/services/web/platform/observability"
	"github.com/louisbranch/sites/internal/services/web/platform/staticfiles"
	"github.com/louisbranch/sites/internal/services/web/platform/weberror"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"
)

// Route prefixes served from disk.
const (
	StaticPrefix = "/static/"
	MediaPrefix  = "/media/"
)

// BridgeMethods are the methods forwarded to the application.
var BridgeMethods = []string{http.MethodGet, http.MethodPost, http.MethodDelete}

// Config defines the inputs for the web server.
type Config struct {
	HTTPAddr     string
	StaticDir    string
	MediaDir     string
	MaxBodyBytes int64
	// Application receives every non-file request. Nil serves the landing
	// application.
	Application bridge.Application
	// Logger receives request log lines. Nil uses the standard logger.
	Logger *log.Logger
	// Ready is called with the bound address once the listener is open.
	Ready func(net.Addr)
}

// Server hosts the HTTP server.
type Server struct {
	httpAddr   string
	httpServer *http.Server
	ready      func(net.Addr)
}

// NewHandler builds the root handler.
func NewHandler(cfg Config) (http.Handler, error) {
	staticDir := strings.TrimSpace(cfg.StaticDir)
	if staticDir == "" {
		return nil, errors.New("static dir is required")
	}
	mediaDir := strings.TrimSpace(cfg.MediaDir)
	if mediaDir == "" {
		return nil, errors.New("media dir is required")
	}

	pages := weberror.New(nil)
	app := cfg.Application
	if app == nil {
		app = landing.New(pages)
	}

	mux := http.NewServeMux()
	mux.Handle(StaticPrefix, http.StripPrefix(StaticPrefix, staticfiles.New(staticDir, pages)))
	mux.Handle(MediaPrefix, http.StripPrefix(MediaPrefix, staticfiles.New(mediaDir, pages)))
	mux.Handle("/", httpx.RequireMethods(BridgeMethods...)(bridge.New(app,
		bridge.WithMaxBodyBytes(cfg.MaxBodyBytes),
		bridge.WithErrorHandler(pages.BridgeErrorHandler),
	)))

	return httpx.Chain(mux,
		httpx.RequestID(),
		observability.RequestLogger(cfg.Logger),
		httpx.RecoverPanic(),
	), nil
}

// NewServer builds a configured web server. Cleartext HTTP/2 is accepted
// alongside HTTP/1.x.
func NewServer(cfg Config) (*Server, error) {
	httpAddr := strings.TrimSpace(cfg.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	handler, err := NewHandler(cfg)
	if err != nil {
		return nil, err
	}
	return &Server{
		httpAddr: httpAddr,
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           h2c.NewHandler(handler, &http2.Server{}),
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		ready: cfg.Ready,
	}, nil
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("web server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	listener, err := net.Listen("tcp", s.httpAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.httpAddr, err)
	}
	log.Printf("web listening on %s", listener.Addr())
	if s.ready != nil {
		s.ready(listener.Addr())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// Close stops the HTTP server immediately.
func (s *Server) Close() error {
	if s == nil || s.httpServer == nil {
		return nil
	}
	return s.httpServer.Close()
}
