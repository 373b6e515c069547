// Package capture extracts fixed-duration audio windows from a live source
// into transient WAV artifacts for transcription.
package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"livesub/pkg/executor"
)

// MinArtifactBytes is the smallest capture considered decodable. Anything
// below this is treated as a failed capture (ffmpeg wrote only the header).
const MinArtifactBytes = 1000

// Capturer invokes ffmpeg to produce one mono 16kHz PCM segment per call.
type Capturer struct {
	ffmpeg  string
	workDir string
	segment time.Duration
	timeout time.Duration
	exec    executor.Executor
}

func New(ffmpegPath, workDir string, segment, timeout time.Duration, exec executor.Executor) *Capturer {
	return &Capturer{
		ffmpeg:  ffmpegPath,
		workDir: workDir,
		segment: segment,
		timeout: timeout,
		exec:    exec,
	}
}

// Capture records one segment from the source into a transient artifact and
// returns its path. The artifact is owned by the calling iteration, which
// must delete it after transcription. The ffmpeg invocation is bounded by
// the capture timeout so a stalled source cannot block the session loop.
func (c *Capturer) Capture(ctx context.Context, sourceURL, sessionID string, seq int) (string, error) {
	clipPath := filepath.Join(c.workDir, fmt.Sprintf("clip_%s_%d.wav", sessionID, seq))

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", sourceURL,
		"-t", strconv.Itoa(int(c.segment.Seconds())),
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-acodec", "pcm_s16le",
		"-f", "wav",
		clipPath,
	}

	if _, err := c.exec.Execute(ctx, c.ffmpeg, args...); err != nil {
		_ = os.Remove(clipPath)
		return "", fmt.Errorf("capture segment %d: %w", seq, err)
	}

	info, err := os.Stat(clipPath)
	if err != nil {
		return "", fmt.Errorf("capture segment %d: artifact missing: %w", seq, err)
	}
	if info.Size() < MinArtifactBytes {
		_ = os.Remove(clipPath)
		return "", fmt.Errorf("capture segment %d: artifact too small (%d bytes)", seq, info.Size())
	}

	return clipPath, nil
}
