// Package main provides the CLI entry point for framenav.
package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/framenav/pkg/adapters/logger"
	"github.com/user/framenav/pkg/config"
	"github.com/user/framenav/pkg/contactsheet"
	"github.com/user/framenav/pkg/frameindex"
	"github.com/user/framenav/pkg/framenav"
	"github.com/user/framenav/pkg/ports"
	"github.com/user/framenav/pkg/summarizer"
)

var version = "dev"

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, l10n.F("Error: %v", err))
		os.Exit(1)
	}
}

func newApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:      "framenav",
		Usage:     l10n.T("Frame-accurate navigation and extraction for media files"),
		Version:   version,
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: l10n.T("YAML configuration file"), Category: l10n.T("Configuration")},
			&cli.StringFlag{Name: "ffmpeg", Usage: l10n.T("Path to the ffmpeg binary used for H.264"), Category: l10n.T("Configuration")},
			&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Value: "info", Usage: l10n.T("Log level (debug, info, warn, error)"), Category: l10n.T("Logging")},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"Q"}, Usage: l10n.T("Suppress all log output"), Category: l10n.T("Logging")},
		},
		Commands: []*cli.Command{
			probeCommand(),
			keyframesCommand(),
			extractCommand(),
			sheetCommand(),
			versionCommand(),
		},
	}
}

// env is the state shared by every command.
type env struct {
	cfg config.Config
	log ports.Logger
	out io.Writer
}

// setup loads the configuration file and applies global flag overrides.
func setup(c *cli.Context) (*env, error) {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.LoadFromFile(path); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if c.IsSet("log-level") || cfg.LogLevel == "" {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("ffmpeg") {
		cfg.Decoder.FFmpegPath = c.String("ffmpeg")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var log ports.Logger
	if c.Bool("quiet") {
		log = logger.NewNoop()
	} else {
		level, _ := ports.ParseLogLevel(cfg.LogLevel) // checked by Validate
		log = logger.NewWriter(level, c.App.ErrWriter, c.App.ErrWriter)
	}
	return &env{cfg: cfg, log: log, out: c.App.Writer}, nil
}

// open opens the file named by the first argument.
func (e *env) open(c *cli.Context) (*framenav.Session, error) {
	if c.NArg() < 1 {
		return nil, errors.New(l10n.T("FILE argument is required"))
	}
	return framenav.Open(c.Args().First(), e.cfg, e.log)
}

// interruptible returns a context cancelled on SIGINT or SIGTERM.
func (e *env) interruptible() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			e.log.Warn("Interrupted, shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func probeCommand() *cli.Command {
	return &cli.Command{
		Name:      "probe",
		Usage:     l10n.T("Show streams and index completeness"),
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "summary", Usage: l10n.T("Scan the whole file and write a Markdown summary (- for stdout)")},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			s, err := e.open(c)
			if err != nil {
				return err
			}
			defer s.Close()

			fmt.Fprintf(e.out, "%s: %s, %.3fs\n", s.Path(), s.Container(), s.Duration())
			w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STREAM\tTYPE\tCODEC\tTIME BASE\tFRAMES\tINDEX\tFORMAT\tDECODER")
			for _, info := range s.Streams() {
				index := "complete"
				if errors.Is(s.IndexStatus(info.Index), ports.ErrIndexIncomplete) {
					index = fmt.Sprintf("%d/%d", s.Demuxer().IndexLen(info.Index), info.FrameCount)
				}
				backend, ok := s.Backend(info.Index)
				if !ok {
					backend = "-"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%d/%d\t%d\t%s\t%s\t%s\n",
					info.Index, info.Type, info.Codec, info.TimeBase.Num, info.TimeBase.Den,
					info.FrameCount, index, describeFormat(info), backend)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if path := c.String("summary"); path != "" {
				ctx, cancel := e.interruptible()
				defer cancel()
				summary, err := summarize(ctx, s)
				if err != nil {
					return err
				}
				formatter := summarizer.NewMarkdownFormatter(summarizer.WithTranslator(l10n.T), summarizer.WithVersion(version))
				if path == "-" {
					return summarizer.Fprint(e.out, formatter, summary)
				}
				if err := summarizer.Save(path, formatter, summary); err != nil {
					return err
				}
				e.log.Info("Summary saved to %s", path)
			}
			return nil
		},
	}
}

// summarize scans every stream's index and collects a probe report.
func summarize(ctx context.Context, s *framenav.Session) (*summarizer.Summary, error) {
	var size int64
	if fi, err := os.Stat(s.Path()); err == nil {
		size = fi.Size()
	}
	b := summarizer.NewBuilder().WithFile(s.Path(), string(s.Container()), size, s.Duration())

	for _, info := range s.Streams() {
		keyframes, err := s.Entries(ctx, info.Index, frameindex.KeyframesOnly)
		if err != nil {
			return nil, err
		}
		backend, _ := s.Backend(info.Index)
		b.AddStream(summarizer.StreamInfo{
			Index:        info.Index,
			Type:         info.Type.String(),
			Codec:        info.Codec,
			TimeBase:     fmt.Sprintf("%d/%d", info.TimeBase.Num, info.TimeBase.Den),
			FrameCount:   info.FrameCount,
			IndexEntries: s.Demuxer().IndexLen(info.Index),
			Keyframes:    len(keyframes),
			Format:       describeFormat(info),
			Decoder:      string(backend),
		})
	}
	return b.Build(), nil
}

func describeFormat(info ports.StreamInfo) string {
	switch info.Type {
	case ports.MediaVideo:
		return fmt.Sprintf("%dx%d %s", info.Width, info.Height, info.PixelFormat)
	case ports.MediaAudio:
		return fmt.Sprintf("%d Hz %d ch", info.SampleRate, info.Channels)
	}
	return "-"
}

func keyframesCommand() *cli.Command {
	return &cli.Command{
		Name:      "keyframes",
		Usage:     l10n.T("List index entries that match a predicate"),
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "predicate", Aliases: []string{"p"}, Usage: l10n.T("Entries to list (keyframes, all, every-nth)")},
			&cli.IntFlag{Name: "nth", Aliases: []string{"n"}, Usage: l10n.T("Step for the every-nth predicate")},
			&cli.IntFlag{Name: "stream", Aliases: []string{"s"}, Value: -1, Usage: l10n.T("Stream index (default: first video stream)")},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			if c.IsSet("predicate") {
				e.cfg.Enumerator.Predicate = c.String("predicate")
			}
			if c.IsSet("nth") {
				e.cfg.Enumerator.EveryNth = c.Int("nth")
			}
			pred, err := e.cfg.Predicate()
			if err != nil {
				return err
			}

			s, err := e.open(c)
			if err != nil {
				return err
			}
			defer s.Close()

			stream := c.Int("stream")
			if stream < 0 {
				stream = s.VideoStream()
			}
			ctx, cancel := e.interruptible()
			defer cancel()

			entries, err := s.Entries(ctx, stream, pred)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "INDEX\tOFFSET\tTIMESTAMP\tTIME\tKEY")
			for _, entry := range entries {
				fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%v\n", entry.Index, entry.Offset, entry.Timestamp,
					contactsheet.FormatTimestamp(entry.Seconds), entry.Flags.IsKeyframe())
			}
			return w.Flush()
		},
	}
}

func extractCommand() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     l10n.T("Decode the first frame at or after a time into an image"),
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "at", Aliases: []string{"t"}, Usage: l10n.T("Target time in seconds")},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: l10n.T("Output image path (.png or .jpg)")},
			&cli.IntFlag{Name: "width", Aliases: []string{"W"}, Usage: l10n.T("Output width (default: source width)")},
			&cli.IntFlag{Name: "height", Aliases: []string{"H"}, Usage: l10n.T("Output height (default: source height)")},
			&cli.IntFlag{Name: "quality", Aliases: []string{"q"}, Value: 90, Usage: l10n.T("JPEG quality (1-100)")},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			s, err := e.open(c)
			if err != nil {
				return err
			}
			defer s.Close()

			if c.IsSet("width") || c.IsSet("height") {
				if err := s.Resize(c.Int("width"), c.Int("height")); err != nil {
					return err
				}
			}
			ctx, cancel := e.interruptible()
			defer cancel()

			buf := make([]byte, s.Pipeline().ScaleBufferSize())
			res, err := s.FrameAt(ctx, c.Float64("at"), buf)
			if errors.Is(err, io.EOF) {
				return errors.New(l10n.F("No frame at or after %.3fs", c.Float64("at")))
			}
			if err != nil {
				return err
			}
			img, err := s.Picture(buf)
			if err != nil {
				return err
			}

			output := c.String("output")
			if err := writeImage(output, img, c.Int("quality")); err != nil {
				return err
			}
			e.log.Info("Extracted frame at %.3fs to %s", res.Timestamp, output)
			return nil
		},
	}
}

func sheetCommand() *cli.Command {
	return &cli.Command{
		Name:      "sheet",
		Usage:     l10n.T("Render keyframes into a contact sheet"),
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: l10n.T("Output image path (.png or .jpg)")},
			&cli.IntFlag{Name: "columns", Value: 4, Usage: l10n.T("Number of columns (min: 1)")},
			&cli.IntFlag{Name: "thumb-width", Value: 240, Usage: l10n.T("Thumbnail width in pixels")},
			&cli.IntFlag{Name: "max", Value: 16, Usage: l10n.T("Maximum number of thumbnails")},
			&cli.StringFlag{Name: "font", Usage: l10n.T("TrueType font for labels")},
			&cli.IntFlag{Name: "quality", Aliases: []string{"q"}, Value: 90, Usage: l10n.T("JPEG quality (1-100)")},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			pred, err := e.cfg.Predicate()
			if err != nil {
				return err
			}
			s, err := e.open(c)
			if err != nil {
				return err
			}
			defer s.Close()

			opts := contactsheet.DefaultOptions()
			opts.Columns = c.Int("columns")
			opts.ThumbWidth = c.Int("thumb-width")
			opts.FontPath = c.String("font")
			if err := s.Resize(opts.ThumbWidth, 0); err != nil {
				return err
			}

			ctx, cancel := e.interruptible()
			defer cancel()

			entries, err := s.Entries(ctx, s.VideoStream(), pred)
			if err != nil {
				return err
			}
			entries = sample(entries, c.Int("max"))
			e.log.Info("Rendering %d frames into a contact sheet", len(entries))

			thumbs := make([]contactsheet.Thumb, 0, len(entries))
			for _, entry := range entries {
				buf := make([]byte, s.Pipeline().ScaleBufferSize())
				res, err := s.FrameAtEntry(ctx, entry, buf)
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return err
				}
				img, err := s.Picture(buf)
				if err != nil {
					return err
				}
				thumbs = append(thumbs, contactsheet.Thumb{Image: img, Seconds: res.Timestamp})
			}

			sheet, err := contactsheet.Render(thumbs, opts)
			if err != nil {
				return err
			}
			output := c.String("output")
			if err := writeImage(output, sheet, c.Int("quality")); err != nil {
				return err
			}
			e.log.Info("Output saved to %s", output)
			return nil
		},
	}
}

// sample picks at most n entries spread evenly over entries.
func sample(entries []framenav.Entry, n int) []framenav.Entry {
	if n <= 0 || len(entries) <= n {
		return entries
	}
	out := make([]framenav.Entry, n)
	for i := range out {
		out[i] = entries[i*len(entries)/n]
	}
	return out
}

func writeImage(path string, img image.Image, quality int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := contactsheet.Encode(f, img, contactsheet.FormatFromPath(path), quality); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: l10n.T("Show version information"),
		Action: func(c *cli.Context) error {
			fmt.Fprintln(c.App.Writer, l10n.F("framenav version %s", version))
			return nil
		},
	}
}
