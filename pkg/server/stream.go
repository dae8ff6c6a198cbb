package server

import (
	"context"
	"math"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/nzoschke/spectrograph/pkg/spectrograph"
	"github.com/nzoschke/spectrograph/pkg/spectrum"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1 << 16,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// SpectrumMessage is one frame sent over the spectrum websocket.
type SpectrumMessage struct {
	Index int       `json:"index"`
	Time  float64   `json:"time"`
	BinHz float64   `json:"bin_hz"`
	Bins  []float64 `json:"bins"` // Bins are dB values for the displayed lower half of the spectrum.
}

// streamSpectrum streams the per-frame spectrum of a library track over a websocket.
// Query: track (path under the music dir), fps, frameSize, realtime (pace frames at fps).
func (s *Server) streamSpectrum(c echo.Context) error {
	fullPath, err := s.libraryPath(c.QueryParam("track"))
	if err != nil {
		return err
	}
	if info, err := os.Stat(fullPath); err != nil || info.IsDir() {
		return echo.NewHTTPError(http.StatusNotFound, "file not found")
	}

	var req spectrogramRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid options")
	}
	opts, err := req.options()
	if err == nil {
		err = opts.ValidateFrames()
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	realtime, _ := strconv.ParseBool(c.QueryParam("realtime"))

	gen := s.generator(c)
	clip, err := gen.Load(c.Request().Context(), fullPath, opts)
	if err != nil {
		return s.generationError(c, err)
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	// Reader detects the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var tick <-chan time.Time
	if realtime {
		ticker := time.NewTicker(time.Second / time.Duration(opts.FPS))
		defer ticker.Stop()
		tick = ticker.C
	}

	binHz := spectrum.BinHz(clip.SampleRate, opts.FrameSize)
	err = gen.Frames(ctx, clip, opts, func(f spectrograph.Frame) error {
		if tick != nil {
			select {
			case <-tick:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		n := min(len(f.Magnitudes)/2, clip.SampleRate/4)
		bins := make([]float64, n)
		for i := range n {
			bins[i] = math.Round(spectrum.Decibels(f.Magnitudes[i])*10) / 10
		}

		return ws.WriteJSON(SpectrumMessage{Index: f.Index, Time: f.Time, BinHz: binHz, Bins: bins})
	})

	code, text := websocket.CloseNormalClosure, ""
	if err != nil && ctx.Err() == nil {
		c.Logger().Errorf("spectrum stream: %v", err)
		code, text = websocket.CloseInternalServerErr, "stream failed"
	}
	ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
	return nil
}
