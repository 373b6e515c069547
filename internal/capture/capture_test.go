package capture

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"livesub/pkg/executor"
)

// fakeExec pretends to be ffmpeg: it writes a file of the configured size at
// the last argument's path, or fails.
type fakeExec struct {
	size int
	fail bool
}

func (f *fakeExec) Execute(ctx context.Context, name string, args ...string) (string, error) {
	if f.fail {
		return "", fmt.Errorf("command '%s' failed", name)
	}
	path := args[len(args)-1]
	return "", os.WriteFile(path, bytes.Repeat([]byte{0}, f.size), 0o644)
}

func (f *fakeExec) Start(name string, args ...string) (*executor.Process, error) {
	return nil, fmt.Errorf("not supported")
}

func TestCapture(t *testing.T) {
	dir := t.TempDir()
	c := New("ffmpeg", dir, 5*time.Second, 15*time.Second, &fakeExec{size: 4000})

	path, err := c.Capture(context.Background(), "http://example/stream.m3u8", "sess", 0)
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("artifact not written: %v", err)
	}
}

func TestCaptureCommandFailure(t *testing.T) {
	dir := t.TempDir()
	c := New("ffmpeg", dir, 5*time.Second, 15*time.Second, &fakeExec{fail: true})

	if _, err := c.Capture(context.Background(), "http://example/stream.m3u8", "sess", 1); err == nil {
		t.Error("expected error for failed command")
	}
}

func TestCaptureUndersizedArtifact(t *testing.T) {
	dir := t.TempDir()
	c := New("ffmpeg", dir, 5*time.Second, 15*time.Second, &fakeExec{size: 10})

	_, err := c.Capture(context.Background(), "http://example/stream.m3u8", "sess", 2)
	if err == nil {
		t.Fatal("expected error for undersized artifact")
	}
	// The undersized artifact must not be left behind.
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("undersized artifact not cleaned up: %v", entries)
	}
}
