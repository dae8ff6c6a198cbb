// CLI for spectrogram rendering and the upload web server.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/nzoschke/spectrograph/pkg/render"
	"github.com/nzoschke/spectrograph/pkg/server"
	"github.com/nzoschke/spectrograph/pkg/spectrograph"
	"github.com/nzoschke/spectrograph/pkg/spectrum"
	"github.com/nzoschke/spectrograph/pkg/visualize"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "app",
	Short:        "Spectrogram images and spectrum videos from audio files",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the upload web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := server.DefaultConfig()
		cfg.Addr, _ = cmd.Flags().GetString("addr")
		cfg.MusicDir, _ = cmd.Flags().GetString("music")
		cfg.MaxUploadBytes, _ = cmd.Flags().GetInt64("max-upload")
		cfg.TempDir, _ = cmd.Flags().GetString("tmp")
		cfg.FFmpegPath = ffmpegPath(cmd)
		return server.Run(cmd.Context(), cfg)
	},
}

var renderCmd = &cobra.Command{
	Use:   "render <audio>",
	Short: "Render a spectrogram PNG or spectrum MP4 for one audio file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := optionsFromFlags(cmd)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		return runRender(cmd.Context(), newGenerator(cmd), args[0], format, output, opts)
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch <directory>",
	Short: "Render PNG and JSON sidecars for every audio file in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := optionsFromFlags(cmd)
		if err != nil {
			return err
		}
		force, _ := cmd.Flags().GetBool("force")
		return newGenerator(cmd).RenderDir(cmd.Context(), args[0], opts, force)
	},
}

var callCmd = &cobra.Command{
	Use:   "call <name> [args...]",
	Short: "Call an exported module function",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		callArgs := make([]any, 0, len(args)-1)
		for _, a := range args[1:] {
			callArgs = append(callArgs, a)
		}
		out, err := visualize.Call(args[0], callArgs...)
		if err != nil {
			return fmt.Errorf("%w (exported: %s)", err, strings.Join(visualize.Names(), ", "))
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("ffmpeg", "ffmpeg", "ffmpeg binary for video output and non WAV/MP3 input")

	serveCmd.Flags().String("addr", ":3000", "listen address")
	serveCmd.Flags().String("music", "music", "music library directory")
	serveCmd.Flags().Int64("max-upload", 100*1024*1024, "maximum upload size in bytes")
	serveCmd.Flags().String("tmp", "", "directory for uploads and outputs (default system temp)")

	addOptionFlags(renderCmd)
	renderCmd.Flags().String("format", "png", "output format: png or mp4")
	renderCmd.Flags().StringP("output", "o", "", "output path (default <audio>.<format>)")

	addOptionFlags(batchCmd)
	batchCmd.Flags().BoolP("force", "f", false, "Force re-render even if PNG exists")

	rootCmd.AddCommand(serveCmd, renderCmd, batchCmd, callCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func addOptionFlags(cmd *cobra.Command) {
	d := spectrograph.DefaultOptions()
	f := cmd.Flags()
	f.Int("frame-size", d.FrameSize, "FFT window size in samples (power of 2)")
	f.Int("hop-size", d.HopSize, "samples between spectrogram columns")
	f.String("window", string(d.Window), "analysis window: hann, hamming, blackman, rectangular")
	f.Int("width", d.Width, "output width in pixels")
	f.Int("height", d.Height, "output height in pixels")
	f.Int("fps", d.FPS, "video frames per second")
	f.Int("sample-rate", 0, "override the decoded sample rate in Hz")
	f.String("color-scheme", string(d.ColorScheme), "yellowRed, viridis, magma or grayscale")
	f.Float64("min-db", d.MinDecibels, "decibels mapped to the bottom of the colour scale")
	f.Float64("max-db", d.MaxDecibels, "decibels mapped to the top of the colour scale")
	f.Bool("time-markers", true, "draw time labels")
	f.Bool("frequency-markers", true, "draw frequency labels")
	f.Int("crf", d.CRF, "video quality 0-51, lower is better")
	f.String("preset", d.Preset, "x264 preset")
}

func optionsFromFlags(cmd *cobra.Command) (spectrograph.Options, error) {
	f := cmd.Flags()
	var opts spectrograph.Options

	opts.FrameSize, _ = f.GetInt("frame-size")
	opts.HopSize, _ = f.GetInt("hop-size")
	opts.Width, _ = f.GetInt("width")
	opts.Height, _ = f.GetInt("height")
	opts.FPS, _ = f.GetInt("fps")
	opts.SampleRate, _ = f.GetInt("sample-rate")
	opts.MinDecibels, _ = f.GetFloat64("min-db")
	opts.MaxDecibels, _ = f.GetFloat64("max-db")
	opts.ShowTimeMarkers, _ = f.GetBool("time-markers")
	opts.ShowFrequencyMarkers, _ = f.GetBool("frequency-markers")
	opts.CRF, _ = f.GetInt("crf")
	opts.Preset, _ = f.GetString("preset")

	window, _ := f.GetString("window")
	w, err := spectrum.ParseWindow(window)
	if err != nil {
		return opts, err
	}
	opts.Window = w

	scheme, _ := f.GetString("color-scheme")
	cs, err := render.ParseColorScheme(scheme)
	if err != nil {
		return opts, err
	}
	opts.ColorScheme = cs

	return opts, nil
}

// ffmpegPath resolves the --ffmpeg flag, returning "" when the binary can't be found.
func ffmpegPath(cmd *cobra.Command) string {
	name, _ := cmd.Flags().GetString("ffmpeg")
	path, err := exec.LookPath(name)
	if err != nil {
		return ""
	}
	return path
}

func newGenerator(cmd *cobra.Command) *spectrograph.Generator {
	return &spectrograph.Generator{
		FFmpegPath: ffmpegPath(cmd),
		Logf: func(format string, args ...any) {
			fmt.Printf(format+"\n", args...)
		},
	}
}

func runRender(ctx context.Context, gen *spectrograph.Generator, audioPath, format, output string, opts spectrograph.Options) error {
	if output == "" {
		output = strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + "." + format
	}

	switch format {
	case "png":
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		if err := gen.Image(ctx, audioPath, opts, f); err != nil {
			f.Close()
			os.Remove(output)
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	case "mp4":
		if gen.FFmpegPath == "" {
			return fmt.Errorf("mp4 output needs ffmpeg, see --ffmpeg")
		}
		tmp, err := gen.Video(ctx, audioPath, opts)
		if err != nil {
			return err
		}
		defer os.Remove(tmp)
		if err := moveFile(tmp, output); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q, want png or mp4", format)
	}

	fmt.Printf("Wrote %s\n", output)
	return nil
}

// moveFile renames src to dst, copying when they're on different filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy output: %w", err)
	}
	return out.Close()
}
