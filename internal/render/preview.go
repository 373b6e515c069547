package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"livesub/pkg/executor"
)

// MinPreviewBytes guards against a renderer that exits 0 but wrote nothing.
const MinPreviewBytes = 1000

// Preview renders a short one-shot clip of the source with current
// burned-in cues. Invoked at most once per session.
type Preview struct {
	ffmpeg   string
	dir      string
	duration time.Duration
	exec     executor.Executor
}

func NewPreview(ffmpegPath, dir string, duration time.Duration, exec executor.Executor) *Preview {
	return &Preview{ffmpeg: ffmpegPath, dir: dir, duration: duration, exec: exec}
}

// Render produces the preview artifact and returns its file name. Success
// requires both a clean exit and an artifact above the minimum size.
func (p *Preview) Render(ctx context.Context, sourceURL, assPath, sessionID string) (string, error) {
	name := fmt.Sprintf("preview_%s.mp4", sessionID)
	outPath := filepath.Join(p.dir, name)

	args := inputArgs(sourceURL)
	args = append([]string{"-y"}, args...)
	args = append(args,
		"-vf", "ass="+EscapeFilterPath(assPath),
		"-t", strconv.Itoa(int(p.duration.Seconds())),
		"-c:v", "libx264", "-preset", "ultrafast", "-crf", "28",
		"-c:a", "aac", "-b:a", "64k",
		"-movflags", "+faststart",
		outPath,
	)

	log.Info().Str("session", sessionID).Msg("generating preview clip")
	if _, err := p.exec.Execute(ctx, p.ffmpeg, args...); err != nil {
		_ = os.Remove(outPath)
		return "", fmt.Errorf("render preview: %w", err)
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return "", fmt.Errorf("render preview: artifact missing: %w", err)
	}
	if info.Size() < MinPreviewBytes {
		_ = os.Remove(outPath)
		return "", fmt.Errorf("render preview: artifact too small (%d bytes)", info.Size())
	}

	log.Info().Str("session", sessionID).Str("file", name).Msg("preview generated")
	return name, nil
}
