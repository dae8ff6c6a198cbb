package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/nzoschke/spectrograph/pkg/audio"
	"github.com/nzoschke/spectrograph/pkg/render"
	"github.com/nzoschke/spectrograph/pkg/spectrograph"
	"github.com/nzoschke/spectrograph/pkg/spectrum"
)

// spectrogramRequest holds the form or query options of a spectrogram request.
// Zero values fall back to defaults.
type spectrogramRequest struct {
	Format               string  `form:"format" query:"format"`
	FrameSize            int     `form:"frameSize" query:"frameSize"`
	HopSize              int     `form:"hopSize" query:"hopSize"`
	Window               string  `form:"window" query:"window"`
	Width                int     `form:"width" query:"width"`
	Height               int     `form:"height" query:"height"`
	FPS                  int     `form:"fps" query:"fps"`
	SampleRate           int     `form:"sampleRate" query:"sampleRate"`
	ColorScheme          string  `form:"colorScheme" query:"colorScheme"`
	MinDecibels          float64 `form:"minDecibels" query:"minDecibels"`
	MaxDecibels          float64 `form:"maxDecibels" query:"maxDecibels"`
	ShowTimeMarkers      string  `form:"showTimeMarkers" query:"showTimeMarkers"`
	ShowFrequencyMarkers string  `form:"showFrequencyMarkers" query:"showFrequencyMarkers"`
	CRF                  int     `form:"crf" query:"crf"`
	Preset               string  `form:"preset" query:"preset"`
}

// options converts the request into normalized generator options.
func (r spectrogramRequest) options() (spectrograph.Options, error) {
	scheme, err := render.ParseColorScheme(r.ColorScheme)
	if err != nil {
		return spectrograph.Options{}, fmt.Errorf("%w: %w", spectrograph.ErrInvalidOptions, err)
	}
	window, err := spectrum.ParseWindow(r.Window)
	if err != nil {
		return spectrograph.Options{}, fmt.Errorf("%w: %w", spectrograph.ErrInvalidOptions, err)
	}
	showTime, err := parseFlag(r.ShowTimeMarkers, true)
	if err != nil {
		return spectrograph.Options{}, err
	}
	showFreq, err := parseFlag(r.ShowFrequencyMarkers, true)
	if err != nil {
		return spectrograph.Options{}, err
	}

	return spectrograph.Options{
		FrameSize:            r.FrameSize,
		HopSize:              r.HopSize,
		Window:               window,
		Width:                r.Width,
		Height:               r.Height,
		FPS:                  r.FPS,
		SampleRate:           r.SampleRate,
		ColorScheme:          scheme,
		MinDecibels:          r.MinDecibels,
		MaxDecibels:          r.MaxDecibels,
		ShowTimeMarkers:      showTime,
		ShowFrequencyMarkers: showFreq,
		CRF:                  r.CRF,
		Preset:               r.Preset,
	}.Normalize(), nil
}

// parseFlag parses a form boolean. Checkboxes submit "on".
func parseFlag(v string, def bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return def, nil
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: invalid flag %q", spectrograph.ErrInvalidOptions, v)
	}
	return b, nil
}

// generator returns a per-request copy of the generator that logs through the request logger.
func (s *Server) generator(c echo.Context) *spectrograph.Generator {
	g := *s.gen
	g.Logf = c.Logger().Infof
	return &g
}

// createSpectrogram renders an uploaded audio file as MP4 video or PNG image.
func (s *Server) createSpectrogram(c echo.Context) error {
	var req spectrogramRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid options"})
	}

	file, err := c.FormFile("audioFile")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "No audio file uploaded"})
	}

	opts, err := req.options()
	if err != nil {
		return s.generationError(c, err)
	}

	format := strings.ToLower(req.Format)
	if format == "" {
		format = "mp4"
	}
	if format != "mp4" && format != "png" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("unknown format %q", req.Format)})
	}

	dir, err := os.MkdirTemp(s.cfg.TempDir, "audio-upload-")
	if err != nil {
		return s.generationError(c, err)
	}
	defer os.RemoveAll(dir)

	audioPath, err := saveUpload(file, dir)
	if err != nil {
		return s.generationError(c, err)
	}

	ctx := c.Request().Context()
	gen := s.generator(c)

	if format == "png" {
		var buf bytes.Buffer
		if err := gen.Image(ctx, audioPath, opts, &buf); err != nil {
			return s.generationError(c, err)
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="spectrogram.png"`)
		return c.Blob(http.StatusOK, "image/png", buf.Bytes())
	}

	outputPath, err := gen.Video(ctx, audioPath, opts)
	if err != nil {
		return s.generationError(c, err)
	}
	defer os.Remove(outputPath)

	return c.Attachment(outputPath, "spectrogram.mp4")
}

// saveUpload copies an uploaded file into dir, keeping only the base of its name.
func saveUpload(file *multipart.FileHeader, dir string) (string, error) {
	name := filepath.Base(filepath.Clean("/" + file.Filename))
	if name == "/" || name == "." {
		name = "upload"
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	path := filepath.Join(dir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("save upload: %w", err)
	}
	return path, dst.Close()
}

// generationError maps pipeline errors to JSON responses.
func (s *Server) generationError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, spectrograph.ErrInvalidOptions):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, audio.ErrUnsupportedFormat):
		return c.JSON(http.StatusUnsupportedMediaType, map[string]string{"error": err.Error()})
	case errors.Is(err, audio.ErrEmptyAudio):
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, context.Canceled):
		return err
	}

	c.Logger().Errorf("Error generating spectrogram: %v", err)
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to generate spectrogram"})
}
