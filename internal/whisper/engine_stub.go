//go:build !whisper_cpp

package whisper

// Default stub (no cgo) so the project builds without the whisper_cpp tag.
// Sessions run end to end but never produce cues; /health reports the
// engine as not loaded.
type stubEngine struct{}

func NewEngine(modelPath string) (Engine, error) { return &stubEngine{}, nil }

func (e *stubEngine) Transcribe(samples []float32, lang string) (string, string, error) {
	return "", "", nil
}
func (e *stubEngine) Loaded() bool { return false }
func (e *stubEngine) Close() error { return nil }
