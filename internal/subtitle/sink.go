package subtitle

import (
	"fmt"
	"os"
)

// Sink appends cues to the session's VTT and ASS documents. Writes are
// append-only and synced before Append returns; the hardsub renderer reads
// the ASS document concurrently and tolerates growth mid-read.
type Sink struct {
	vttPath string
	assPath string
}

// NewSink creates both documents with their preambles. Called exactly once
// per session, before the orchestrator loop starts.
func NewSink(vttPath, assPath string) (*Sink, error) {
	if err := os.WriteFile(vttPath, []byte(vttHeader), 0o644); err != nil {
		return nil, fmt.Errorf("create vtt document: %w", err)
	}
	if err := os.WriteFile(assPath, []byte(assHeader), 0o644); err != nil {
		return nil, fmt.Errorf("create ass document: %w", err)
	}
	return &Sink{vttPath: vttPath, assPath: assPath}, nil
}

// VTTPath returns the path of the WebVTT document.
func (s *Sink) VTTPath() string { return s.vttPath }

// ASSPath returns the path of the styled document fed to the renderers.
func (s *Sink) ASSPath() string { return s.assPath }

// Append writes the cue to both documents and returns once both writes have
// reached the filesystem.
func (s *Sink) Append(c Cue) error {
	if err := appendSync(s.vttPath, VTTCue(c)); err != nil {
		return fmt.Errorf("append vtt cue: %w", err)
	}
	if err := appendSync(s.assPath, ASSDialogue(c)+"\n"); err != nil {
		return fmt.Errorf("append ass cue: %w", err)
	}
	return nil
}

func appendSync(path, text string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteString(text); err != nil {
		return err
	}
	return f.Sync()
}
