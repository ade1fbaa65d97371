// Package server parses sites server configuration and launches the service.
package server

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"strings"

	entrypoint "github.com/louisbranch/sites/internal/platform/cmd"
	"github.com/louisbranch/sites/internal/platform/provision"
	"github.com/louisbranch/sites/internal/services/bridge"
	"github.com/louisbranch/sites/internal/services/web"
)

// Config holds the server command configuration.
type Config struct {
	Port          int    `env:"SITES_PORT" envDefault:"8080"`
	Host          string `env:"SITES_HOST"`
	StaticDir     string `env:"SITES_STATIC_DIR" envDefault:"static"`
	MediaDir      string `env:"SITES_MEDIA_DIR" envDefault:"media"`
	ImagesDir     string `env:"SITES_IMAGES_DIR" envDefault:"media/images"`
	ImagesArchive string `env:"SITES_IMAGES_ARCHIVE" envDefault:"media/images/images.zip"`
	MaxBodyBytes  int64  `env:"SITES_MAX_BODY_BYTES" envDefault:"10485760"`
}

// ParseConfig parses environment and flags into Config. An optional
// positional argument overrides the port.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	err := entrypoint.ParseConfigFromArgs(&cfg, fs, args, func(fs *flag.FlagSet, cfg *Config) {
		fs.StringVar(&cfg.Host, "host", cfg.Host, "Interface to bind (empty binds all)")
		fs.StringVar(&cfg.StaticDir, "static-dir", cfg.StaticDir, "Directory served under /static/")
		fs.StringVar(&cfg.MediaDir, "media-dir", cfg.MediaDir, "Directory served under /media/")
		fs.StringVar(&cfg.ImagesDir, "images-dir", cfg.ImagesDir, "Directory provisioned with images at startup")
		fs.StringVar(&cfg.ImagesArchive, "images-archive", cfg.ImagesArchive, "Zip archive extracted when no images exist")
		fs.Int64Var(&cfg.MaxBodyBytes, "max-body-bytes", cfg.MaxBodyBytes, "Largest request body forwarded to the application")
	})
	if err != nil {
		return Config{}, err
	}

	switch fs.NArg() {
	case 0:
	case 1:
		port, err := parsePort(fs.Arg(0))
		if err != nil {
			return Config{}, err
		}
		cfg.Port = port
	default:
		return Config{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args()[1:], " "))
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("port %d out of range", cfg.Port)
	}
	return cfg, nil
}

func parsePort(raw string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: not a number", raw)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid port %q: out of range", raw)
	}
	return port, nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Run provisions images and serves the landing application until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceServer, func(ctx context.Context) error {
		return serve(ctx, cfg, nil, os.Stdout)
	})
}

// serve runs the startup sequence and blocks in the web server. A nil app
// serves the landing application.
func serve(ctx context.Context, cfg Config, app bridge.Application, out io.Writer) error {
	provisionImages(cfg)

	server, err := web.NewServer(web.Config{
		HTTPAddr:     cfg.Addr(),
		StaticDir:    cfg.StaticDir,
		MediaDir:     cfg.MediaDir,
		MaxBodyBytes: cfg.MaxBodyBytes,
		Application:  app,
		Ready: func(addr net.Addr) {
			port := cfg.Port
			if tcp, ok := addr.(*net.TCPAddr); ok {
				port = tcp.Port
			}
			fmt.Fprintf(out, "Application running on http://localhost:%d/\n", port)
		},
	})
	if err != nil {
		return fmt.Errorf("init web server: %w", err)
	}
	defer server.Close()

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve web: %w", err)
	}
	return nil
}

// provisionImages never stops startup; a missing archive only leaves the
// images directory empty.
func provisionImages(cfg Config) {
	result, err := provision.EnsureImages(cfg.ImagesDir, cfg.ImagesArchive)
	if err != nil {
		log.Printf("provision images dir=%s archive=%s error=%v", cfg.ImagesDir, cfg.ImagesArchive, err)
		return
	}
	if result.Extracted {
		log.Printf("provision images dir=%s files=%d", cfg.ImagesDir, result.Files)
	}
}
