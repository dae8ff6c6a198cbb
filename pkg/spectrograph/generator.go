package spectrograph

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/nzoschke/spectrograph/pkg/audio"
	"github.com/nzoschke/spectrograph/pkg/render"
	"github.com/nzoschke/spectrograph/pkg/spectrum"
	"github.com/nzoschke/spectrograph/pkg/video"
	"golang.org/x/sync/errgroup"
)

// Generator runs the decode, transform, render and encode pipeline.
type Generator struct {
	FFmpegPath string                            // FFmpegPath converts uncommon formats and encodes video.
	TempDir    string                            // TempDir holds frames and outputs. Empty uses os.TempDir.
	Workers    int                               // Workers renders frames in parallel, GOMAXPROCS when zero.
	Logf       func(format string, args ...any) // Logf receives progress messages when set.
}

// Frame is the spectrum at one video frame.
type Frame struct {
	Index      int       // Index is the video frame number.
	Time       float64   // Time is the start of the analysed audio in seconds.
	Magnitudes []float64 // Magnitudes is the one-sided linear spectrum.
}

func (g *Generator) logf(format string, args ...any) {
	if g.Logf != nil {
		g.Logf(format, args...)
	}
}

func (g *Generator) workers() int {
	if g.Workers > 0 {
		return g.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Load decodes audioPath to mono, applying the sample rate override.
func (g *Generator) Load(ctx context.Context, audioPath string, opts Options) (*audio.Clip, error) {
	clip, err := audio.LoadMono(ctx, audioPath, audio.Options{FFmpegPath: g.FFmpegPath, TempDir: g.TempDir})
	if err != nil {
		return nil, fmt.Errorf("load audio: %w", err)
	}
	if opts.SampleRate > 0 {
		clip.SampleRate = opts.SampleRate
	}
	return clip, nil
}

// Spectrogram computes the STFT of audioPath for an image opts.Width pixels wide.
// The hop grows so that no more than Width frames are computed.
func (g *Generator) Spectrogram(ctx context.Context, audioPath string, opts Options) (*audio.Clip, *spectrum.Spectrogram, error) {
	opts = opts.Normalize()
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}

	clip, err := g.Load(ctx, audioPath, opts)
	if err != nil {
		return nil, nil, err
	}

	cfg := opts.spectrumConfig()
	cfg.HopSize = imageHop(len(clip.Samples), opts.HopSize, opts.Width)
	a, err := spectrum.NewAnalyzer(cfg)
	if err != nil {
		return nil, nil, err
	}
	return clip, a.STFT(clip.Float64(), clip.SampleRate), nil
}

// imageHop returns the hop size that yields at most width frames for n samples.
func imageHop(n, hop, width int) int {
	return max(hop, (n+width-1)/width)
}

// Image renders the whole spectrogram of audioPath as PNG to w.
func (g *Generator) Image(ctx context.Context, audioPath string, opts Options, w io.Writer) error {
	opts = opts.Normalize()
	_, spec, err := g.Spectrogram(ctx, audioPath, opts)
	if err != nil {
		return err
	}
	return render.EncodePNG(w, render.Image(spec, opts.renderOptions()))
}

// frameLayout returns the video frame count and the samples between frames.
func frameLayout(clip *audio.Clip, fps int) (total, samplesPerFrame int) {
	samplesPerFrame = clip.SampleRate / fps
	total = int(clip.Duration() * float64(fps))
	return total, samplesPerFrame
}

// Frames calls fn with the spectrum of each video frame of clip in order.
func (g *Generator) Frames(ctx context.Context, clip *audio.Clip, opts Options, fn func(Frame) error) error {
	opts = opts.Normalize()
	if err := opts.ValidateFrames(); err != nil {
		return err
	}

	a, err := spectrum.NewAnalyzer(opts.spectrumConfig())
	if err != nil {
		return err
	}

	samples := clip.Float64()
	total, step := frameLayout(clip, opts.FPS)
	for i := range total {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := i * step
		if start >= len(samples) {
			break
		}
		f := Frame{
			Index:      i,
			Time:       float64(start) / float64(clip.SampleRate),
			Magnitudes: a.Frame(samples, start),
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// Video renders one spectrum frame per video frame, muxes them with the source audio
// and returns the path of a temporary MP4. The caller removes the file.
func (g *Generator) Video(ctx context.Context, audioPath string, opts Options) (string, error) {
	opts = opts.Normalize()
	if err := opts.ValidateVideo(); err != nil {
		return "", err
	}

	clip, err := g.Load(ctx, audioPath, opts)
	if err != nil {
		return "", err
	}

	total, step := frameLayout(clip, opts.FPS)
	if total == 0 {
		return "", fmt.Errorf("audio shorter than one video frame: %w", audio.ErrEmptyAudio)
	}
	g.logf("Audio duration: %.2fs, Total frames: %d", clip.Duration(), total)

	framesDir, err := os.MkdirTemp(g.TempDir, "spectrogram-frames-")
	if err != nil {
		return "", fmt.Errorf("create frames dir: %w", err)
	}
	defer os.RemoveAll(framesDir)

	if err := g.renderFrames(ctx, clip, opts, total, step, framesDir); err != nil {
		return "", err
	}

	out, err := os.CreateTemp(g.TempDir, "spectrogram-*.mp4")
	if err != nil {
		return "", fmt.Errorf("create output: %w", err)
	}
	out.Close()

	if err := opts.encoder(g.FFmpegPath).Encode(ctx, framesDir, audioPath, opts.FPS, out.Name()); err != nil {
		os.Remove(out.Name())
		return "", err
	}
	return out.Name(), nil
}

// renderFrames writes total PNG frames into dir using a bounded worker group.
func (g *Generator) renderFrames(ctx context.Context, clip *audio.Clip, opts Options, total, step int, dir string) error {
	samples := clip.Float64()
	ropts := opts.renderOptions()

	analyzers := sync.Pool{
		New: func() any {
			a, _ := spectrum.NewAnalyzer(opts.spectrumConfig())
			return a
		},
	}

	var done atomic.Int64
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers())

	for i := range total {
		if gctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			a := analyzers.Get().(*spectrum.Analyzer)
			start := i * step
			mag := a.Frame(samples, start)
			analyzers.Put(a)

			t := float64(start) / float64(clip.SampleRate)
			img := render.Frame(mag, clip.SampleRate, opts.FrameSize, t, ropts)
			if err := writePNG(filepath.Join(dir, video.FrameName(i)), img); err != nil {
				return err
			}

			if n := done.Add(1); n%10 == 0 {
				g.logf("Processed %d/%d frames (%d%%)", n, total, n*100/int64(total))
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return fmt.Errorf("render frames: %w", err)
	}
	return ctx.Err()
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create frame: %w", err)
	}
	if err := render.EncodePNG(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
