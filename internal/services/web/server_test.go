package web

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/sites/internal/services/bridge"
	"github.com/louisbranch/sites/internal/services/web/platform/httpx"
	"golang.org/x/net/http2"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	base := t.TempDir()
	staticDir := filepath.Join(base, "static")
	mediaDir := filepath.Join(base, "media")
	for _, dir := range []string{filepath.Join(staticDir, "css"), mediaDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	if err := os.WriteFile(filepath.Join(staticDir, "css", "site.css"), []byte("body{margin:0}"), 0o644); err != nil {
		t.Fatalf("write css: %v", err)
	}
	if err := os.WriteFile(filepath.Join(mediaDir, "park.txt"), []byte("park"), 0o644); err != nil {
		t.Fatalf("write media: %v", err)
	}
	return Config{HTTPAddr: "127.0.0.1:0", StaticDir: staticDir, MediaDir: mediaDir}
}

func newTestHandler(t *testing.T, cfg Config) http.Handler {
	t.Helper()
	handler, err := NewHandler(cfg)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	return handler
}

func TestNewServerRequiresAddress(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.HTTPAddr = "  "
	if _, err := NewServer(cfg); err == nil {
		t.Fatal("expected error for empty address")
	}
}

func TestNewHandlerRequiresDirectories(t *testing.T) {
	t.Parallel()

	if _, err := NewHandler(Config{MediaDir: "media"}); err == nil {
		t.Fatal("expected error for empty static dir")
	}
	if _, err := NewHandler(Config{StaticDir: "static"}); err == nil {
		t.Fatal("expected error for empty media dir")
	}
}

func TestRoutes(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, testConfig(t))

	tests := []struct {
		name     string
		method   string
		target   string
		want     int
		contains string
	}{
		{name: "static file", method: http.MethodGet, target: "/static/css/site.css", want: http.StatusOK, contains: "margin:0"},
		{name: "media file", method: http.MethodGet, target: "/media/park.txt", want: http.StatusOK, contains: "park"},
		{name: "missing static", method: http.MethodGet, target: "/static/nope.css", want: http.StatusNotFound, contains: "Page not found"},
		{name: "media directory", method: http.MethodGet, target: "/media/", want: http.StatusForbidden, contains: "Access denied"},
		{name: "static post", method: http.MethodPost, target: "/static/css/site.css", want: http.StatusMethodNotAllowed},
		{name: "landing", method: http.MethodGet, target: "/", want: http.StatusOK, contains: "Browse points of interest"},
		{name: "app 404", method: http.MethodGet, target: "/sites/4", want: http.StatusNotFound, contains: "Page not found"},
		{name: "bridge put", method: http.MethodPut, target: "/", want: http.StatusMethodNotAllowed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.target, nil))
			if rr.Code != tc.want {
				t.Fatalf("status = %d, want %d", rr.Code, tc.want)
			}
			if tc.contains != "" && !strings.Contains(rr.Body.String(), tc.contains) {
				t.Fatalf("body missing %q: %s", tc.contains, rr.Body.String())
			}
			if rr.Header().Get(httpx.RequestIDHeader) == "" {
				t.Fatal("missing request id header")
			}
		})
	}
}

func TestBridgeRouteForwardsMethodsAndBody(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Application = bridge.ApplicationFunc(func(ctx context.Context, scope bridge.Scope, receive bridge.Receive, send bridge.Send) error {
		msg, err := receive(ctx)
		if err != nil {
			return err
		}
		if err := send(ctx, bridge.ResponseStart{Status: http.StatusCreated, Headers: []bridge.RawHeader{
			bridge.Pair("content-type", "text/plain"),
		}}); err != nil {
			return err
		}
		return send(ctx, bridge.ResponseBody{Body: []byte(fmt.Sprintf("%s %s %s", scope.Method, scope.Path, msg.Body))})
	})
	handler := newTestHandler(t, cfg)

	for _, method := range BridgeMethods {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(method, "/reviews/3", strings.NewReader("x=1")))
		if rr.Code != http.StatusCreated {
			t.Fatalf("%s status = %d, want %d", method, rr.Code, http.StatusCreated)
		}
		want := method + " /reviews/3 x=1"
		if got := rr.Body.String(); got != want {
			t.Fatalf("%s body = %q, want %q", method, got, want)
		}
	}
}

func TestBridgeFailureRendersErrorPage(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Application = bridge.ApplicationFunc(func(context.Context, bridge.Scope, bridge.Receive, bridge.Send) error {
		return errors.New("boom")
	})
	handler := newTestHandler(t, cfg)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	if !strings.Contains(rr.Body.String(), "Something went wrong") {
		t.Fatalf("expected error page: %s", rr.Body.String())
	}
}

func TestBridgeBodyLimit(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.MaxBodyBytes = 4
	handler := newTestHandler(t, cfg)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("too large")))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusRequestEntityTooLarge)
	}
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	addrs := make(chan net.Addr, 1)
	cfg.Ready = func(addr net.Addr) { addrs <- addr }
	server, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.ListenAndServe(ctx) }()

	var addr net.Addr
	select {
	case addr = <-addrs:
	case err := <-done:
		t.Fatalf("ListenAndServe() returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for listener")
	}

	resp, err := http.Get("http://" + addr.String() + "/healthz")
	if err != nil {
		cancel()
		t.Fatalf("GET /healthz: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "ok") {
		cancel()
		t.Fatalf("healthz = %d %q", resp.StatusCode, body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ListenAndServe() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for shutdown")
	}
}

func TestListenAndServeNilServer(t *testing.T) {
	t.Parallel()

	var server *Server
	if err := server.ListenAndServe(context.Background()); err == nil {
		t.Fatal("expected error for nil server")
	}
}

func TestCloseBeforeServe(t *testing.T) {
	t.Parallel()

	server, err := NewServer(testConfig(t))
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	if err := server.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	var nilServer *Server
	if err := nilServer.Close(); err != nil {
		t.Fatalf("nil Close() error = %v", err)
	}
}

func TestListenAndServeAcceptsCleartextHTTP2(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Application = bridge.ApplicationFunc(func(ctx context.Context, scope bridge.Scope, _ bridge.Receive, send bridge.Send) error {
		return send(ctx, bridge.ResponseBody{Body: []byte(scope.HTTPVersion)})
	})
	addrs := make(chan net.Addr, 1)
	cfg.Ready = func(addr net.Addr) { addrs <- addr }
	server, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- server.ListenAndServe(ctx) }()

	var addr net.Addr
	select {
	case addr = <-addrs:
	case err := <-done:
		t.Fatalf("ListenAndServe() returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for listener")
	}

	client := &http.Client{Transport: &http2.Transport{
		AllowHTTP: true,
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, addr)
		},
	}}
	resp, err := client.Get("http://" + addr.String() + "/")
	if err != nil {
		t.Fatalf("GET over h2c: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.ProtoMajor != 2 {
		t.Fatalf("ProtoMajor = %d, want 2", resp.ProtoMajor)
	}
	if string(body) != "2" {
		t.Fatalf("scope http version = %q, want %q", body, "2")
	}
}

func TestLandingLinksResolve(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, testConfig(t))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("landing status = %d, want %d", rr.Code, http.StatusOK)
	}
	links := regexp.MustCompile(`href="([^"]+)"`).FindAllStringSubmatch(rr.Body.String(), -1)
	if len(links) == 0 {
		t.Fatal("landing page has no links")
	}
	for _, link := range links {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, link[1], nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("GET %s status = %d, want %d", link[1], rr.Code, http.StatusOK)
		}
	}
}
