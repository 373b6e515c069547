//go:build whisper_cpp

package whisper

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"

	whisperpkg "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/rs/zerolog/log"
)

// engineCPP is the whisper.cpp-backed implementation of Engine.
type engineCPP struct {
	model   whisperpkg.Model
	threads uint
	mu      sync.Mutex // whisper.cpp contexts are not safe for concurrent use
}

func NewEngine(modelPath string) (Engine, error) {
	threads := uint(runtime.NumCPU())
	if v := os.Getenv("WHISPER_THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			threads = uint(n)
			log.Info().Int("threads", n).Msg("whisper: using configured thread count")
		}
	}

	m, err := whisperpkg.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	log.Info().Str("model", modelPath).Uint("threads", threads).Msg("whisper: model loaded")
	return &engineCPP{model: m, threads: threads}, nil
}

func (e *engineCPP) Loaded() bool { return e.model != nil }

func (e *engineCPP) Close() error {
	if e.model != nil {
		e.model.Close()
	}
	return nil
}

// Transcribe runs a full-context transcription over one captured segment.
// Calls are serialized; concurrent sessions share the single model.
func (e *engineCPP) Transcribe(samples []float32, lang string) (string, string, error) {
	if len(samples) == 0 {
		return "", "", nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Skip audio shorter than 100ms, whisper produces garbage for it.
	if len(samples) < 1600 {
		log.Debug().Int("samples", len(samples)).Msg("whisper: skipping too-short audio")
		return "", "", nil
	}

	// Cap audio length at 30 seconds to bound context memory.
	const maxSamples = 30 * 16000
	if len(samples) > maxSamples {
		log.Warn().Int("samples", len(samples)).Int("max", maxSamples).Msg("whisper: truncating long audio")
		samples = samples[len(samples)-maxSamples:]
	}

	ctx, err := e.model.NewContext()
	if err != nil {
		return "", "", fmt.Errorf("create context: %w", err)
	}

	if lang == "" {
		lang = "auto"
	}
	ctx.SetThreads(e.threads)
	_ = ctx.SetLanguage(lang)
	ctx.SetSplitOnWord(true)
	ctx.SetTokenTimestamps(true)
	ctx.SetMaxSegmentLength(0)
	ctx.SetMaxTokensPerSegment(0)
	ctx.SetAudioCtx(0)

	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		log.Error().Err(err).Int("samples", len(samples)).Msg("whisper: process failed")
		return "", "", fmt.Errorf("process audio: %w", err)
	}

	var segments []string
	for {
		seg, err := ctx.NextSegment()
		if err != nil {
			if err == io.EOF {
				break
			}
			log.Warn().Err(err).Msg("whisper: error reading segment")
			break
		}
		if text := strings.TrimSpace(seg.Text); text != "" {
			segments = append(segments, text)
		}
	}

	full := strings.TrimSpace(strings.Join(segments, " "))
	detected := ctx.Language()
	if detected == "" {
		detected = ctx.DetectedLanguage()
	}

	log.Debug().
		Str("text", full).
		Str("lang", detected).
		Int("segments", len(segments)).
		Int("samples", len(samples)).
		Msg("whisper: transcription complete")

	return full, detected, nil
}
