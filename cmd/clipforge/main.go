// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// clipforge renders a Tesla dashcam clip selection to a single mosaic
// video file, with optional dashboard, minimap, and timestamp overlays.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lmittmann/tint"
	colorable "github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/tesladash/clipforge/internal/clip"
	"github.com/tesladash/clipforge/internal/engine"
	"github.com/tesladash/clipforge/internal/export"
	"github.com/tesladash/clipforge/internal/job"
	"github.com/tesladash/clipforge/internal/library"
)

// Exit codes (§6).
const (
	exitSuccess        = 0
	exitInvalidArgs    = 1
	exitFFmpegMissing  = 2
	exitNoVideoFiles   = 3
	exitCancelled      = 4
	exitEncoderFailure = 5
	exitIoError        = 6
)

// exitError pairs a process exit code with the message printed to stderr.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func fail(code int, err error) *exitError { return &exitError{code: code, err: err} }

func findFFmpeg(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	p, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", fmt.Errorf("ffmpeg not found on PATH: %w", err)
	}
	return p, nil
}

func parseCameraList(s string) ([]clip.Camera, error) {
	if s == "" || s == "all" {
		return clip.AllCameras, nil
	}
	var out []clip.Camera
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		found := false
		for _, cam := range clip.AllCameras {
			if string(cam) == tok {
				out = append(out, cam)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown camera %q", tok)
		}
	}
	return out, nil
}

func findCollection(ix *library.Index, day, eventID string) (*library.DayCollection, error) {
	for _, c := range ix.Collections {
		if c.Day == day && c.EventID == eventID {
			return c, nil
		}
	}
	return nil, fmt.Errorf("no collection matches day=%q event=%q", day, eventID)
}

func mainImpl() error {
	var level slog.LevelVar
	level.Set(slog.LevelInfo)
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      &level,
		TimeFormat: time.TimeOnly,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)

	root := flag.String("root", ".", "root directory containing RecentClips/SentryClips/SavedClips")
	day := flag.String("day", "", "collection day, YYYY-MM-DD")
	eventID := flag.String("event", "", "event id, empty for RecentClips")
	startMs := flag.Int64("start-ms", 0, "collection-relative start offset in milliseconds")
	endMs := flag.Int64("end-ms", 0, "collection-relative end offset in milliseconds, 0 means the full duration")
	cameras := flag.String("cameras", "all", "comma-separated camera list, or \"all\"")
	quality := flag.String("quality", "medium", "mobile, medium, high, or max")
	out := flag.String("out", "", "output file path")
	ffmpegPath := flag.String("ffmpeg", "", "path to the ffmpeg binary, defaults to PATH lookup")
	mirror := flag.Bool("mirror", false, "mirror the back and repeater cameras for a driver's-eye layout")
	metric := flag.Bool("metric", false, "use km/h instead of mph on the dashboard overlay")
	lang := flag.String("lang", "en", "overlay language tag")
	dashboard := flag.Bool("dashboard", false, "burn in a speed/gear/autopilot dashboard overlay")
	minimap := flag.Bool("minimap", false, "burn in a GPS minimap overlay")
	timestamp := flag.Bool("timestamp", true, "burn in a timestamp overlay")
	scratchDir := flag.String("scratch-dir", "", "directory for overlay scratch files, defaults to os.TempDir")
	verbose := flag.Bool("v", false, "enable verbose logging")
	flag.Parse()

	if flag.NArg() != 0 {
		return fail(exitInvalidArgs, errors.New("unexpected argument"))
	}
	if *verbose {
		level.Set(slog.LevelDebug)
	}
	if *out == "" {
		return fail(exitInvalidArgs, errors.New("-out is required"))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	ffPath, err := findFFmpeg(*ffmpegPath)
	if err != nil {
		return fail(exitFFmpegMissing, err)
	}

	cams, err := parseCameraList(*cameras)
	if err != nil {
		return fail(exitInvalidArgs, err)
	}
	q := export.Quality(*quality)
	switch q {
	case export.QualityMobile, export.QualityMedium, export.QualityHigh, export.QualityMax:
	default:
		return fail(exitInvalidArgs, fmt.Errorf("unknown -quality %q", *quality))
	}

	absRoot, err := filepath.Abs(filepath.Clean(*root))
	if err != nil {
		return fail(exitIoError, err)
	}
	if fi, err := os.Stat(absRoot); err != nil {
		return fail(exitIoError, fmt.Errorf("-root %q is unusable: %w", absRoot, err))
	} else if !fi.IsDir() {
		return fail(exitInvalidArgs, fmt.Errorf("-root %q is not a directory", absRoot))
	}

	scratch := *scratchDir
	if scratch == "" {
		scratch = os.TempDir()
	}

	eng := engine.New(ffPath, scratch, nil, nil)

	ix, err := eng.Scan(absRoot)
	if err != nil {
		return fail(exitIoError, err)
	}
	if len(ix.Groups) == 0 {
		return fail(exitNoVideoFiles, fmt.Errorf("no Tesla clip files found under %q", absRoot))
	}

	collection, err := findCollection(ix, *day, *eventID)
	if err != nil {
		return fail(exitInvalidArgs, err)
	}

	end := *endMs
	if end == 0 {
		end = collection.DurationMs
	}

	req := &export.ExportRequest{
		Collection:       collection,
		StartMs:          *startMs,
		EndMs:            end,
		Cameras:          cams,
		Quality:          q,
		OutputPath:       *out,
		MirrorCameras:    *mirror,
		UseMetric:        *metric,
		Language:         *lang,
		IncludeDashboard: *dashboard,
		IncludeMinimap:   *minimap,
		IncludeTimestamp: *timestamp,
	}

	jobID, err := eng.StartExport(ctx, req)
	if err != nil {
		if errors.Is(err, export.ErrEmptySelection) {
			return fail(exitInvalidArgs, err)
		}
		return fail(exitIoError, err)
	}

	events, unsubscribe, err := eng.Subscribe(jobID)
	if err != nil {
		return fail(exitIoError, err)
	}
	defer unsubscribe()

	started := time.Now()
	for evt := range events {
		switch evt.Kind {
		case job.KindComplete:
			if evt.Success {
				fi, statErr := os.Stat(*out)
				size := "unknown size"
				if statErr == nil {
					size = humanize.Bytes(uint64(fi.Size()))
				}
				slog.Info("export complete", "out", *out, "size", size, "elapsed", time.Since(started).Round(time.Second))
				return nil
			}
			return classifyFailure(evt.Error)
		default:
			slog.Debug("progress", "kind", evt.Kind, "percent", evt.Percent)
		}
	}
	return fail(exitIoError, errors.New("progress stream closed without a complete event"))
}

func classifyFailure(kind job.ErrorKind) error {
	switch kind {
	case job.ErrorCancelled:
		return fail(exitCancelled, errors.New("export cancelled"))
	case job.ErrorFFmpegMissing:
		return fail(exitFFmpegMissing, errors.New("ffmpeg became unavailable"))
	case job.ErrorNoUsableEncoder, job.ErrorCanvasExceedsEncoderLimit:
		return fail(exitEncoderFailure, fmt.Errorf("encoder failure: %s", kind))
	case job.ErrorEmptySelection:
		return fail(exitInvalidArgs, errors.New("no segments overlap the requested range"))
	case job.ErrorIoError:
		return fail(exitIoError, errors.New("I/O error during export"))
	default:
		return fail(exitIoError, fmt.Errorf("export failed: %s", kind))
	}
}

func main() {
	if err := mainImpl(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			fmt.Fprintf(os.Stderr, "clipforge: %s\n", ee.err.Error())
			os.Exit(ee.code)
		}
		fmt.Fprintf(os.Stderr, "clipforge: %s\n", err.Error())
		os.Exit(exitIoError)
	}
}
