package whisper

// Engine is a small interface for whisper transcription.
// Implementations may be a no-op (stub) or backed by whisper.cpp (build tag: whisper_cpp).
type Engine interface {
	// Transcribe runs a one-shot transcription over mono 16kHz PCM32F samples.
	// lang is a source-language hint; "auto" enables auto-detection.
	// Returns the transcribed text and the detected language.
	Transcribe(samples []float32, lang string) (string, string, error)
	// Loaded reports whether a model is resident and ready to transcribe.
	Loaded() bool
	Close() error
}
