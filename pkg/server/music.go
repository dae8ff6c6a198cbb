package server

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/nzoschke/spectrograph/pkg/audio"
	"github.com/nzoschke/spectrograph/pkg/spectrograph"
)

// Track represents a track in the music library.
type Track struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	HasJSON   bool   `json:"has_json"`
	JSONPath  string `json:"json_path,omitempty"`
	HasImage  bool   `json:"has_image"`
	ImagePath string `json:"image_path,omitempty"`
}

// listMusic returns a list of all tracks in the music directory.
func (s *Server) listMusic(c echo.Context) error {
	tracks := []Track{}
	root := s.cfg.MusicDir

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if !audio.IsAudioFile(ext) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		pngPath, jsonPath := spectrograph.Sidecars(rel)

		track := Track{
			Name: strings.TrimSuffix(filepath.Base(path), ext),
			Path: filepath.ToSlash(rel),
		}

		// Check if sidecars exist
		if _, err := os.Stat(filepath.Join(root, jsonPath)); err == nil {
			track.HasJSON = true
			track.JSONPath = filepath.ToSlash(jsonPath)
		}
		if _, err := os.Stat(filepath.Join(root, pngPath)); err == nil {
			track.HasImage = true
			track.ImagePath = filepath.ToSlash(pngPath)
		}

		tracks = append(tracks, track)
		return nil
	})

	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, tracks)
}

// serveMusic serves audio files and their JSON and PNG sidecars from the music directory.
func (s *Server) serveMusic(c echo.Context) error {
	fullPath, err := s.musicPath(c.Param("*"))
	if err != nil {
		return err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "file not found")
	}
	if info.IsDir() {
		return echo.NewHTTPError(http.StatusForbidden, "cannot serve directory")
	}

	// Only serve allowed file types
	ext := strings.ToLower(filepath.Ext(fullPath))
	switch {
	case audio.IsAudioFile(ext), ext == ".png":
		return c.File(fullPath)
	case ext == ".json":
		data, err := os.ReadFile(fullPath)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		var summary map[string]any
		if err := json.Unmarshal(data, &summary); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "invalid JSON")
		}
		return c.JSON(http.StatusOK, summary)
	}
	return echo.NewHTTPError(http.StatusForbidden, "file type not allowed")
}

// musicSpectrogram renders the spectrogram image of a library track.
// Options are read from the query string.
func (s *Server) musicSpectrogram(c echo.Context) error {
	fullPath, err := s.musicPath(c.Param("*"))
	if err != nil {
		return err
	}
	if info, err := os.Stat(fullPath); err != nil || info.IsDir() {
		return echo.NewHTTPError(http.StatusNotFound, "file not found")
	}

	var req spectrogramRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid options"})
	}
	opts, err := req.options()
	if err != nil {
		return s.generationError(c, err)
	}

	var buf bytes.Buffer
	if err := s.generator(c).Image(c.Request().Context(), fullPath, opts, &buf); err != nil {
		return s.generationError(c, err)
	}
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}
