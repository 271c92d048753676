// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package job

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tesladash/clipforge/internal/export"
	"github.com/tesladash/clipforge/internal/ffmpeg"
	"github.com/tesladash/clipforge/internal/overlay"
)

// gracefulTimeout bounds how long the supervisor waits for ffmpeg to exit
// on its own after a graceful interrupt before force-killing it (§4.6, §5).
const gracefulTimeout = 5 * time.Second

// stderrTailLines bounds the stderr ring buffer preserved in an
// FFmpegRuntime failure's diagnostic tail (§7: "ExportJob must expose its
// own diagnostic tail independent of the global log").
const stderrTailLines = 40

// progressLineRe matches the human-readable "time=HH:MM:SS.cc" field
// ffmpeg's default stderr progress line carries, used as a fallback when
// "-progress pipe:2"'s machine-readable "out_time_ms=" is unavailable.
var progressLineRe = regexp.MustCompile(`time=(\d+):(\d+):(\d+)\.(\d+)`)

// Supervisor runs one ExportJob's ffmpeg child process end to end: building
// the argument list, writing overlay documents to a scratch directory,
// draining stderr on a dedicated reader, parsing progress, and enforcing
// cancellation (§4.6).
//
// Follows the errgroup.WithContext-plus-one-goroutine-per-pipe shape:
// cmd.Wait() joined with eg.Wait(), treating context.Canceled as a
// non-error outcome.
type Supervisor struct {
	FFmpegPath string
	ScratchDir string
}

// Run drives j to a terminal state. It only returns an error when j cannot
// enter Rendering at all (e.g. it is already in a terminal state); a
// scratch-directory or argument-assembly problem, a cancellation, or an
// ffmpeg failure is reported through j's ProgressEvent stream and
// Snapshot, not through Run's return value.
func (s *Supervisor) Run(ctx context.Context, j *ExportJob) error {
	defer j.bus.close()

	if err := j.transition(Rendering); err != nil {
		return err
	}

	overlayDir, err := os.MkdirTemp(s.ScratchDir, "clipforge-overlay-*")
	if err != nil {
		j.fail(ErrorIoError)
		return nil
	}
	defer os.RemoveAll(overlayDir)

	args, err := s.buildArgs(j.Plan, overlayDir)
	if err != nil {
		j.fail(ErrorIoError)
		return nil
	}

	childCtx, cancelChild := context.WithCancel(ctx)
	defer cancelChild()
	j.mu.Lock()
	j.cancel = cancelChild
	j.mu.Unlock()

	// #nosec G204 -- args are assembled entirely from the validated Plan.
	cmd := exec.CommandContext(childCtx, s.FFmpegPath, args...)
	cmd.Stdin = nil
	// On cancellation send a graceful SIGTERM first; exec.Cmd force-kills
	// the child if it hasn't exited within WaitDelay (§4.6's
	// graceful-then-forced termination).
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = gracefulTimeout

	stderr, err := cmd.StderrPipe()
	if err != nil {
		j.fail(ErrorIoError)
		return nil
	}

	slog.Debug("job: starting ffmpeg", "job", j.ID, "args", args)
	if err := cmd.Start(); err != nil {
		j.fail(ErrorFFmpegMissing)
		return nil
	}

	eg, egCtx := errgroup.WithContext(childCtx)
	tail := newRingBuffer(stderrTailLines)
	totalMs := j.Plan.DurationMs
	eg.Go(func() error {
		return drainProgress(egCtx, stderr, tail, totalMs, j)
	})

	waitErr := cmd.Wait()
	readErr := eg.Wait()

	if childCtx.Err() != nil {
		s.cancelOutput(j)
		_ = j.transition(Cancelled)
		j.publish(ProgressEvent{Kind: KindComplete, Percent: j.Snapshot().Percent, Error: ErrorCancelled, Success: false})
		return nil
	}

	if waitErr != nil {
		slog.Error("job: ffmpeg failed", "job", j.ID, "err", waitErr, "stderr_tail", strings.Join(tail.lines(), "\n"))
		j.fail(ErrorFFmpegRuntime)
		return nil
	}
	if readErr != nil && !errors.Is(readErr, context.Canceled) {
		j.fail(ErrorIoError)
		return nil
	}

	j.setOutputPath(j.Plan.Request.OutputPath)
	j.setPercent(100)
	_ = j.transition(Succeeded)
	j.publish(ProgressEvent{Kind: KindComplete, Percent: 100, Success: true})
	return nil
}

// fail transitions j to Failed and publishes the terminal complete event.
// A job already in a terminal state is left alone (transition no-ops).
func (j *ExportJob) fail(kind ErrorKind) {
	if err := j.transition(Failed); err != nil {
		return
	}
	j.setFailure(kind)
	j.publish(ProgressEvent{Kind: KindComplete, Percent: j.Snapshot().Percent, Error: kind, Success: false})
}

// cancelOutput removes a partial render so a cancelled export never leaves
// a truncated file behind (§4.6, §5).
func (s *Supervisor) cancelOutput(j *ExportJob) {
	if j.Plan == nil || j.Plan.Request == nil {
		return
	}
	if err := os.Remove(j.Plan.Request.OutputPath); err != nil && !os.IsNotExist(err) {
		slog.Warn("job: failed to delete partial output", "path", j.Plan.Request.OutputPath, "err", err)
	}
}

// overlayStage is one overlay document awaiting burn-in, named for its ASS
// scratch file.
type overlayStage struct {
	name string
	doc  *overlay.Document
}

// buildArgs assembles the full ffmpeg argument list for plan: the per-camera
// input reassembly (internal/job/inputs.go), the compositing graph the
// planner built (relabeled onto that reassembly), any overlay ASS documents
// burned in via the subtitles filter, and the encoder/output flags.
func (s *Supervisor) buildArgs(plan *export.Plan, overlayDir string) ([]string, error) {
	inputArgs, prelude, compositing, err := assembleCameraInputs(plan, overlayDir)
	if err != nil {
		return nil, err
	}

	graph := prelude.String()
	if graph != "" && compositing != "" {
		graph += ";"
	}
	graph += compositing
	finalLabel := plan.VideoMapLabel

	for _, stage := range []overlayStage{
		{"dashboard", plan.Dashboard},
		{"minimap", plan.Minimap},
		{"timestamp", plan.Timestamp},
	} {
		if stage.doc == nil {
			continue
		}
		rendered, err := stage.doc.Render()
		if err != nil {
			return nil, err
		}
		path := filepath.Join(overlayDir, stage.name+".ass")
		if err := os.WriteFile(path, []byte(rendered), 0o600); err != nil {
			return nil, err
		}
		next := stage.name + "Burned"
		burn := ffmpeg.Stream{
			Sources: []string{ffmpeg.Label(finalLabel)},
			Chain:   ffmpeg.BuildChain(ffmpeg.Filter("subtitles=" + escapeFilterPath(path))),
			Sinks:   []string{ffmpeg.Label(next)},
		}
		graph += ";" + burn.String()
		finalLabel = next
	}

	args := []string{"-hide_banner", "-nostats", "-y", "-loglevel", "repeat+info"}
	args = append(args, inputArgs...)
	args = append(args, "-filter_complex", graph)
	args = append(args, "-map", ffmpeg.Label(finalLabel))
	args = append(args, "-c:v", plan.EncoderCodec, "-b:v", strconv.Itoa(plan.BitrateKbps)+"k")
	args = append(args, "-progress", "pipe:2", "-nostdin")
	args = append(args, plan.Request.OutputPath)
	return args, nil
}

// escapeFilterPath escapes the characters libavfilter's option parser
// treats specially inside a filter argument (colon, backslash, single
// quote), so a Windows drive-letter path or a path containing a filter
// separator is passed through intact.
func escapeFilterPath(p string) string {
	r := strings.NewReplacer(`\`, `\\`, `:`, `\:`, `'`, `\'`)
	return r.Replace(p)
}

// drainProgress reads ffmpeg's "-progress pipe:2" key=value stream (falling
// back to the human-readable "time=" stderr field), converts processed
// milliseconds to a percentage of totalMs, and publishes progress events.
// It returns when r reaches EOF or ctx is cancelled; on cancellation it
// returns ctx.Err(), which Run does not treat as a failure.
func drainProgress(ctx context.Context, r io.Reader, tail *ringBuffer, totalMs int64, j *ExportJob) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := sc.Text()
		tail.add(line)
		if ms, ok := parseProgressMs(line); ok && totalMs > 0 {
			pct := clampPercent(float64(ms) / float64(totalMs) * 100)
			j.setPercent(pct)
			j.publish(ProgressEvent{Kind: KindProgress, Percent: pct, Message: PlainMessage(line)})
		}
	}
	return sc.Err()
}

// parseProgressMs extracts a processed-milliseconds value from either
// ffmpeg's machine-readable "out_time_ms=" progress key or the
// human-readable "time=HH:MM:SS.cc" stderr line (§4.5.8).
func parseProgressMs(line string) (int64, bool) {
	if v, ok := strings.CutPrefix(line, "out_time_ms="); ok {
		us, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return us / 1000, true
	}
	m := progressLineRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	mi, _ := strconv.Atoi(m[2])
	se, _ := strconv.Atoi(m[3])
	cs, _ := strconv.Atoi(m[4])
	ms := int64(h)*3600_000 + int64(mi)*60_000 + int64(se)*1000 + int64(cs)*10
	return ms, true
}

func clampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
