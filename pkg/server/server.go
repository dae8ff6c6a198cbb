// Package server provides the Echo web server for the spectrogram generator.
package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/nzoschke/spectrograph/pkg/spectrograph"
)

//go:embed index.html
var indexHTML string

// Config configures the server.
type Config struct {
	Addr           string // Addr is the listen address.
	MusicDir       string // MusicDir is the library served under /api/music.
	MaxUploadBytes int64  // MaxUploadBytes limits request bodies.
	FFmpegPath     string // FFmpegPath enables video output and uncommon input formats.
	TempDir        string // TempDir holds uploads and outputs. Empty uses os.TempDir.
}

// DefaultConfig listens on :3000 with a 100MB upload limit.
func DefaultConfig() Config {
	return Config{
		Addr:           ":3000",
		MusicDir:       "music",
		MaxUploadBytes: 100 * 1024 * 1024,
		FFmpegPath:     "ffmpeg",
	}
}

// Server serves the upload form, the spectrogram API and the music library.
type Server struct {
	cfg  Config
	gen  *spectrograph.Generator
	echo *echo.Echo
}

// New creates a server with middleware and routes registered.
func New(cfg Config) *Server {
	s := &Server{
		cfg: cfg,
		gen: &spectrograph.Generator{
			FFmpegPath: cfg.FFmpegPath,
			TempDir:    cfg.TempDir,
		},
	}

	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if cfg.MaxUploadBytes > 0 {
		e.Use(middleware.BodyLimit(fmt.Sprintf("%dB", cfg.MaxUploadBytes)))
	}

	// Routes
	e.GET("/", serveIndex)
	e.POST("/api/spectrogram", s.createSpectrogram)
	e.POST("/api/exports/:name", callExport)
	e.GET("/api/music", s.listMusic)
	e.GET("/api/music/*", s.serveMusic)
	e.GET("/api/spectrogram/music/*", s.musicSpectrogram)
	e.GET("/ws/spectrum", s.streamSpectrum)

	s.echo = e
	return s
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Run starts the server and shuts it down gracefully when ctx is done.
func Run(ctx context.Context, cfg Config) error {
	s := New(cfg)

	errc := make(chan error, 1)
	go func() {
		errc <- s.echo.Start(cfg.Addr)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}

// serveIndex serves the upload form.
func serveIndex(c echo.Context) error {
	return c.HTML(http.StatusOK, indexHTML)
}

// musicPath resolves a URL path parameter to a file under the music directory.
func (s *Server) musicPath(param string) (string, error) {
	decoded, err := url.PathUnescape(param)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid path encoding")
	}
	return s.libraryPath(decoded)
}

// libraryPath resolves an already decoded relative path under the music directory.
func (s *Server) libraryPath(rel string) (string, error) {
	// Security: prevent directory traversal
	if strings.Contains(rel, "..") {
		return "", echo.NewHTTPError(http.StatusForbidden, "invalid path")
	}

	return filepath.Join(s.cfg.MusicDir, rel), nil
}
