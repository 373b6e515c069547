// Package render supervises the external ffmpeg renderers: the long-lived
// hardsub HLS re-encode and the one-shot burned-in preview clip.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"livesub/pkg/executor"
)

// ManifestName is the rolling playlist file inside each session's HLS directory.
const ManifestName = "stream.m3u8"

// HLS launches the long-lived hardsub renderer. The process re-encodes the
// live source with the session's ASS document overlaid and keeps running
// until terminated; it picks up newly appended Dialogue lines as it goes.
type HLS struct {
	ffmpeg   string
	hlsRoot  string
	timeSec  int
	listSize int
	exec     executor.Executor
}

func NewHLS(ffmpegPath, hlsRoot string, timeSec, listSize int, exec executor.Executor) *HLS {
	return &HLS{
		ffmpeg:   ffmpegPath,
		hlsRoot:  hlsRoot,
		timeSec:  timeSec,
		listSize: listSize,
		exec:     exec,
	}
}

// OutputDir returns the per-session rolling output directory.
func (h *HLS) OutputDir(sessionID string) string {
	return filepath.Join(h.hlsRoot, sessionID)
}

// Launch starts the renderer process and returns its handle and the
// manifest URL path. Process start is the readiness signal; stream health is
// not verified here.
func (h *HLS) Launch(sourceURL, assPath, sessionID string) (*executor.Process, string, error) {
	outDir := h.OutputDir(sessionID)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create hls output dir: %w", err)
	}

	args := []string{"-y", "-re"}
	args = append(args, inputArgs(sourceURL)...)
	args = append(args,
		"-vf", "ass="+EscapeFilterPath(assPath),
		"-c:v", "libx264", "-preset", "ultrafast", "-crf", "28", "-g", "60",
		"-c:a", "aac", "-b:a", "96k",
		"-f", "hls",
		"-hls_time", strconv.Itoa(h.timeSec),
		"-hls_list_size", strconv.Itoa(h.listSize),
		"-hls_flags", "delete_segments",
		"-hls_allow_cache", "0",
		"-hls_segment_filename", filepath.Join(outDir, "segment_%03d.ts"),
		filepath.Join(outDir, ManifestName),
	)

	proc, err := h.exec.Start(h.ffmpeg, args...)
	if err != nil {
		return nil, "", fmt.Errorf("launch hardsub renderer: %w", err)
	}

	log.Info().Str("session", sessionID).Int("pid", proc.PID()).Msg("hardsub renderer started")
	return proc, "/hls/" + sessionID + "/" + ManifestName, nil
}

// inputArgs builds the -i block, adding reconnect flags for network sources
// so a brief upstream hiccup does not kill the renderer.
func inputArgs(sourceURL string) []string {
	if strings.HasPrefix(sourceURL, "http://") || strings.HasPrefix(sourceURL, "https://") {
		return []string{
			"-reconnect", "1",
			"-reconnect_streamed", "1",
			"-reconnect_delay_max", "5",
			"-i", sourceURL,
		}
	}
	return []string{"-i", sourceURL}
}

// EscapeFilterPath quotes a filesystem path for use inside an ffmpeg filter
// expression, where ':' and '\' are structural.
func EscapeFilterPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	abs = strings.ReplaceAll(abs, `\`, "/")
	abs = strings.ReplaceAll(abs, ":", `\:`)
	return "'" + abs + "'"
}
