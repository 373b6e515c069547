package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"livesub/internal/capture"
	"livesub/internal/config"
	"livesub/internal/events"
	serverhttp "livesub/internal/http"
	"livesub/internal/render"
	"livesub/internal/session"
	"livesub/internal/translation"
	"livesub/internal/whisper"
	"livesub/internal/ws"
	"livesub/pkg/executor"
)

// hardsubAdapter narrows the renderer's concrete process handle to the
// interface the session registry owns.
type hardsubAdapter struct {
	r *render.HLS
}

func (a hardsubAdapter) Launch(sourceURL, assPath, sessionID string) (session.Handle, string, error) {
	p, manifestURL, err := a.r.Launch(sourceURL, assPath, sessionID)
	if err != nil {
		return nil, "", err
	}
	return p, manifestURL, nil
}

func (a hardsubAdapter) OutputDir(sessionID string) string {
	return a.r.OutputDir(sessionID)
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	lvl := zerolog.InfoLevel
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if l, err := zerolog.ParseLevel(v); err == nil {
			lvl = l
		}
	}
	log.Logger = log.Level(lvl)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if err := cfg.EnsureDirs(); err != nil {
		log.Fatal().Err(err).Msg("cannot create working directories")
	}

	engine, err := whisper.NewEngine(cfg.ModelPath)
	if err != nil {
		log.Fatal().Err(err).Str("model", cfg.ModelPath).Msg("cannot initialize transcription engine")
	}
	defer engine.Close()
	log.Info().Str("model", cfg.ModelPath).Bool("loaded", engine.Loaded()).Msg("transcription engine ready")

	var translator session.Translator
	if cfg.TranslationEnabled {
		translator = translation.New(cfg.TranslationBaseURL, cfg.TranslationTimeoutSec)
	}

	exec := executor.New()
	registry := session.NewRegistry()
	hub := ws.NewHub()

	publisher := events.NewPublisher(&events.Config{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
		Enabled: cfg.KafkaEnabled,
	})
	defer publisher.Close()

	orch := session.NewOrchestrator(session.Deps{
		Registry:   registry,
		Engine:     engine,
		Translator: translator,
		Capturer:   capture.New(cfg.FFmpegPath, cfg.WorkDir, cfg.SegmentDuration(), cfg.CaptureTimeout(), exec),
		Hardsub:    hardsubAdapter{r: render.NewHLS(cfg.FFmpegPath, cfg.HLSDir, cfg.HLSTimeSeconds, cfg.HLSListSize, exec)},
		Preview:    render.NewPreview(cfg.FFmpegPath, cfg.PreviewDir, cfg.PreviewDuration(), exec),
		Publisher:  publisher,
		Hub:        hub,
		OutDir:     cfg.OutDir,
		Segment:    cfg.SegmentDuration(),
	})

	router := serverhttp.NewRouter(serverhttp.Deps{
		Controller:        orch,
		WS:                hub.Handle,
		HLSDir:            cfg.HLSDir,
		PreviewDir:        cfg.PreviewDir,
		SubtitleDir:       cfg.OutDir,
		DefaultTargetLang: cfg.DefaultTargetLang,
	})

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
		// Only the header read is bounded: responses include long-lived
		// stream proxies and WebSocket subscriptions.
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("livesub server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	registry.StopAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server shutdown incomplete")
	}
	log.Info().Msg("server stopped")
}
