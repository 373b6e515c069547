// Package session owns the per-session subtitle pipeline: the registry of
// running sessions and the orchestrator loop that drives capture,
// transcription, translation and cue emission.
package session

import "time"

// Session states reported in status snapshots.
const (
	StateStreaming = "streaming"
	StateStopped   = "stopped"
	StateFailed    = "failed"
)

// Status is one immutable snapshot of a session's pipeline state. The
// orchestrator swaps in a fresh copy on every mutation, so readers never
// observe a partially updated value.
type Status struct {
	State            string    `json:"status"`
	CurrentSegment   int       `json:"current_segment"`
	CuesEmitted      int       `json:"cues_emitted"`
	LastSubtitle     string    `json:"last_subtitle"`
	StartTime        time.Time `json:"start_time"`
	UpdatedAt        time.Time `json:"updated_at"`
	PreviewReady     bool      `json:"preview_ready"`
	PreviewFile      string    `json:"preview_file,omitempty"`
	HLSReady         bool      `json:"hls_ready"`
	HLSURL           string    `json:"hls_url,omitempty"`
	ManifestObserved bool      `json:"manifest_observed"`
}
