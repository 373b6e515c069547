package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"livesub/internal/audio"
	"livesub/internal/events"
	"livesub/internal/metrics"
	"livesub/internal/render"
	"livesub/internal/subtitle"
	"livesub/internal/whisper"
)

// previewTriggerCues is the successful-cue count at which the one-shot
// preview render fires. Counting emitted cues rather than raw iterations
// keeps the trigger reachable when early segments are silent.
const previewTriggerCues = 4

// Translator converts text into the target language; failures are treated as
// best-effort by the loop.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Capturer extracts one fixed-duration audio window into a transient artifact.
type Capturer interface {
	Capture(ctx context.Context, sourceURL, sessionID string, seq int) (string, error)
}

// Hardsub launches the long-lived burned-in renderer for a session.
type Hardsub interface {
	Launch(sourceURL, assPath, sessionID string) (Handle, string, error)
	OutputDir(sessionID string) string
}

// Previewer renders the one-shot preview clip.
type Previewer interface {
	Render(ctx context.Context, sourceURL, assPath, sessionID string) (string, error)
}

// CuePublisher forwards emitted cues to downstream consumers.
type CuePublisher interface {
	Publish(ctx context.Context, ev events.CueEvent) error
}

// Broadcaster pushes emitted cues to live WebSocket subscribers.
type Broadcaster interface {
	Broadcast(sessionID string, payload any)
	CloseSession(sessionID string)
}

// Deps wires the orchestrator's collaborators. Publisher and Hub may be nil.
type Deps struct {
	Registry   *Registry
	Engine     whisper.Engine
	Translator Translator
	Capturer   Capturer
	Hardsub    Hardsub
	Preview    Previewer
	Publisher  CuePublisher
	Hub        Broadcaster
	OutDir     string
	Segment    time.Duration
}

// Orchestrator drives one capture/transcribe/translate/emit loop per
// session, each on its own goroutine.
type Orchestrator struct {
	reg        *Registry
	engine     whisper.Engine
	translator Translator
	capturer   Capturer
	hardsub    Hardsub
	preview    Previewer
	publisher  CuePublisher
	hub        Broadcaster
	outDir     string
	segment    time.Duration

	// Overridable in tests; production values are fixed policy.
	sleepFloor time.Duration
	backoff    time.Duration
}

func NewOrchestrator(d Deps) *Orchestrator {
	seg := d.Segment
	if seg <= 0 {
		seg = 5 * time.Second
	}
	return &Orchestrator{
		reg:        d.Registry,
		engine:     d.Engine,
		translator: d.Translator,
		capturer:   d.Capturer,
		hardsub:    d.Hardsub,
		preview:    d.Preview,
		publisher:  d.Publisher,
		hub:        d.Hub,
		outDir:     d.OutDir,
		segment:    seg,
		sleepFloor: 500 * time.Millisecond,
		backoff:    time.Second,
	}
}

// Start begins a new session asynchronously and returns its identifier.
func (o *Orchestrator) Start(sourceURL, sourceLang, targetLang string) string {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	o.reg.register(id, cancel)

	now := time.Now()
	o.reg.setStatus(id, Status{State: StateStreaming, StartTime: now, UpdatedAt: now})
	metrics.Default.RecordSessionStart()

	go o.run(ctx, id, sourceURL, sourceLang, targetLang)
	return id
}

// Stop requests cooperative shutdown of a session. Idempotent; unknown ids
// are a no-op.
func (o *Orchestrator) Stop(id string) {
	o.reg.Stop(id)
}

// Status returns the session's latest snapshot.
func (o *Orchestrator) Status(id string) (Status, bool) {
	return o.reg.Status(id)
}

// EngineLoaded reports whether the transcription engine has a model resident.
func (o *Orchestrator) EngineLoaded() bool {
	return o.engine.Loaded()
}

func (o *Orchestrator) run(ctx context.Context, id, sourceURL, sourceLang, targetLang string) {
	logger := log.With().Str("component", "orchestrator").Str("session", id).Logger()
	defer metrics.Default.RecordSessionEnd()

	vttPath := filepath.Join(o.outDir, "subtitles_"+id+".vtt")
	assPath := filepath.Join(o.outDir, "subtitles_"+id+".ass")
	sink, err := subtitle.NewSink(vttPath, assPath)
	if err != nil {
		logger.Error().Err(err).Msg("cannot create subtitle documents")
		o.reg.updateStatus(id, func(s *Status) { s.State = StateFailed; s.UpdatedAt = time.Now() })
		o.reg.Stop(id)
		return
	}

	handle, manifestURL, err := o.hardsub.Launch(sourceURL, assPath, id)
	metrics.Default.RecordRendererLaunch(err)
	if err != nil {
		// The session still produces soft subtitles without the renderer.
		logger.Warn().Err(err).Msg("hardsub renderer launch failed, continuing without hls output")
	} else {
		o.reg.setRenderer(id, handle)
		o.reg.updateStatus(id, func(s *Status) {
			s.HLSReady = true
			s.HLSURL = manifestURL
			s.UpdatedAt = time.Now()
		})
		go o.watchManifest(ctx, id, logger)
	}

	r := &run{
		o:          o,
		id:         id,
		sourceURL:  sourceURL,
		sourceLang: sourceLang,
		targetLang: targetLang,
		logger:     logger,
		sink:       sink,
		assPath:    assPath,
		start:      time.Now(),
	}

	logger.Info().
		Str("source", sourceURL).
		Str("source_lang", sourceLang).
		Str("target_lang", targetLang).
		Dur("segment", o.segment).
		Msg("session started")

	for ctx.Err() == nil {
		iterStart := time.Now()
		err := r.safeIteration(ctx)
		r.seq++
		if err != nil {
			// Transient failures never tear the session down.
			logger.Error().Err(err).Int("segment", r.seq).Msg("iteration failed, backing off")
			if !sleepCtx(ctx, o.backoff) {
				break
			}
			continue
		}
		if !sleepCtx(ctx, cadencePause(o.segment, time.Since(iterStart), o.sleepFloor)) {
			break
		}
	}

	if h := o.reg.takeRenderer(id); h != nil {
		bestEffort(logger, "terminate hardsub renderer", h.Terminate)
		logger.Info().Msg("hardsub renderer terminated")
	}
	o.reg.updateStatus(id, func(s *Status) { s.State = StateStopped; s.UpdatedAt = time.Now() })
	o.reg.Stop(id)
	if o.hub != nil {
		o.hub.CloseSession(id)
	}
	logger.Info().Int("segments", r.seq).Int("cues", r.cues).Msg("session stopped")
}

// watchManifest flips the manifest-observed flag once the renderer writes
// its playlist. Launch success is the hls_ready signal; this field tells
// players the rolling stream is actually consumable.
func (o *Orchestrator) watchManifest(ctx context.Context, id string, logger zerolog.Logger) {
	if err := render.WaitForManifest(ctx, o.hardsub.OutputDir(id)); err != nil {
		return
	}
	o.reg.updateStatus(id, func(s *Status) { s.ManifestObserved = true; s.UpdatedAt = time.Now() })
	logger.Info().Msg("hls manifest observed")
}

// cadencePause self-corrects the loop period for processing latency but
// never drops below the floor, so sustained overload cannot turn the loop
// into a hot spin.
func cadencePause(segment, elapsed, floor time.Duration) time.Duration {
	pause := segment - elapsed
	if pause < floor {
		return floor
	}
	return pause
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// bestEffort runs fn and logs failures instead of returning them. Used for
// cleanup and termination paths where failure is acceptable by policy.
func bestEffort(logger zerolog.Logger, what string, fn func() error) {
	if err := fn(); err != nil {
		logger.Warn().Err(err).Msg(what + " failed")
	}
}

// run holds the per-session loop state owned by a single goroutine.
type run struct {
	o          *Orchestrator
	id         string
	sourceURL  string
	sourceLang string
	targetLang string
	logger     zerolog.Logger
	sink       *subtitle.Sink
	assPath    string
	start      time.Time

	seq            int
	cues           int
	previewStarted bool
}

func (r *run) safeIteration(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("iteration panic: %v", p)
		}
	}()
	return r.iteration(ctx)
}

// iteration runs one capture → transcribe → translate → emit cycle.
// Returning nil with no cue emitted is a skip; returning an error triggers
// the loop's backoff.
func (r *run) iteration(ctx context.Context) error {
	o := r.o
	streamElapsed := time.Since(r.start)

	capStart := time.Now()
	clipPath, err := o.capturer.Capture(ctx, r.sourceURL, r.id, r.seq)
	metrics.Default.CaptureLatency.Observe(time.Since(capStart).Seconds())
	if err != nil {
		// One bad segment must never halt the session.
		metrics.Default.RecordSegmentSkipped("capture")
		r.logger.Warn().Err(err).Int("segment", r.seq).Msg("capture failed, skipping segment")
		return nil
	}
	metrics.Default.SegmentsCaptured.Inc()
	defer func() {
		if err := os.Remove(clipPath); err != nil && !os.IsNotExist(err) {
			r.logger.Debug().Err(err).Str("clip", clipPath).Msg("clip cleanup failed")
		}
	}()

	samples, err := audio.ReadFileFloat32(clipPath)
	if err != nil {
		metrics.Default.RecordSegmentSkipped("decode")
		r.logger.Warn().Err(err).Int("segment", r.seq).Msg("undecodable segment, skipping")
		return nil
	}

	trStart := time.Now()
	text, detectedLang, err := o.engine.Transcribe(samples, r.sourceLang)
	metrics.Default.TranscribeLatency.Observe(time.Since(trStart).Seconds())
	if err != nil {
		return fmt.Errorf("transcribe segment %d: %w", r.seq, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		metrics.Default.RecordSegmentSkipped("empty_transcription")
		return nil
	}

	final := text
	translated := false
	if o.translator != nil && r.targetLang != "" && r.targetLang != "original" {
		src := r.sourceLang
		if src == "" || src == "auto" {
			src = detectedLang
		}
		out, terr := o.translator.Translate(ctx, text, src, r.targetLang)
		if terr != nil {
			// Best-effort: keep the untranslated text rather than drop the cue.
			metrics.Default.TranslationFallbacks.Inc()
			r.logger.Warn().Err(terr).Msg("translation failed, keeping original text")
		} else {
			final = out
			translated = true
		}
	}

	cue := subtitle.Cue{Start: streamElapsed, End: streamElapsed + o.segment, Text: final}
	if err := r.sink.Append(cue); err != nil {
		return fmt.Errorf("append cue for segment %d: %w", r.seq, err)
	}
	r.cues++
	metrics.Default.CuesEmitted.Inc()

	last := final
	original := ""
	if translated {
		last = final + " (" + text + ")"
		original = text
	}
	now := time.Now()
	seq, cues := r.seq, r.cues
	o.reg.updateStatus(r.id, func(s *Status) {
		s.CurrentSegment = seq
		s.CuesEmitted = cues
		s.LastSubtitle = last
		s.UpdatedAt = now
	})

	if o.publisher != nil {
		ev := events.CueEvent{
			SessionID: r.id,
			Sequence:  r.seq,
			StartSec:  cue.Start.Seconds(),
			EndSec:    cue.End.Seconds(),
			Text:      final,
			Original:  original,
			Language:  detectedLang,
			EmittedAt: now,
		}
		if perr := o.publisher.Publish(ctx, ev); perr != nil {
			r.logger.Warn().Err(perr).Msg("cue event publish failed")
		}
	}
	if o.hub != nil {
		o.hub.Broadcast(r.id, map[string]any{
			"type":     "cue",
			"sequence": r.seq,
			"start":    cue.Start.Seconds(),
			"end":      cue.End.Seconds(),
			"text":     final,
			"original": original,
			"language": detectedLang,
		})
	}

	if !r.previewStarted && r.cues == previewTriggerCues {
		r.previewStarted = true
		go r.renderPreview()
	}
	return nil
}

// renderPreview runs the one-shot preview render off the loop goroutine.
// Failure means the session simply never gets a preview.
func (r *run) renderPreview() {
	o := r.o
	if o.preview == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	name, err := o.preview.Render(ctx, r.sourceURL, r.assPath, r.id)
	metrics.Default.RecordPreview(err)
	if err != nil {
		r.logger.Warn().Err(err).Msg("preview render failed")
		return
	}
	o.reg.updateStatus(r.id, func(s *Status) {
		s.PreviewReady = true
		s.PreviewFile = name
		s.UpdatedAt = time.Now()
	})
}
