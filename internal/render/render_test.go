package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"livesub/pkg/executor"
)

type fakeExec struct {
	size     int
	fail     bool
	lastArgs []string
}

func (f *fakeExec) Execute(ctx context.Context, name string, args ...string) (string, error) {
	f.lastArgs = args
	if f.fail {
		return "", fmt.Errorf("command '%s' failed", name)
	}
	path := args[len(args)-1]
	return "", os.WriteFile(path, bytes.Repeat([]byte{0}, f.size), 0o644)
}

func (f *fakeExec) Start(name string, args ...string) (*executor.Process, error) {
	f.lastArgs = args
	if f.fail {
		return nil, fmt.Errorf("start '%s' failed", name)
	}
	return &executor.Process{}, nil
}

func TestEscapeFilterPath(t *testing.T) {
	got := EscapeFilterPath("/tmp/out/subtitles_x.ass")
	if got != "'/tmp/out/subtitles_x.ass'" {
		t.Errorf("EscapeFilterPath() = %q", got)
	}
	got = EscapeFilterPath("/tmp/a:b.ass")
	if !strings.Contains(got, `\:`) {
		t.Errorf("colon not escaped: %q", got)
	}
}

func TestHLSLaunch(t *testing.T) {
	root := t.TempDir()
	fe := &fakeExec{}
	h := NewHLS("ffmpeg", root, 4, 5, fe)

	proc, url, err := h.Launch("https://example/live.m3u8", "/tmp/s.ass", "sess1")
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if proc == nil {
		t.Fatal("Launch() returned nil process")
	}
	if url != "/hls/sess1/stream.m3u8" {
		t.Errorf("manifest url = %q", url)
	}
	if _, err := os.Stat(h.OutputDir("sess1")); err != nil {
		t.Errorf("output dir not created: %v", err)
	}

	joined := strings.Join(fe.lastArgs, " ")
	for _, want := range []string{"-hls_time 4", "-hls_list_size 5", "delete_segments", "-reconnect 1", "ass='/tmp/s.ass'"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %s", want, joined)
		}
	}
}

func TestHLSLaunchFailure(t *testing.T) {
	h := NewHLS("ffmpeg", t.TempDir(), 4, 5, &fakeExec{fail: true})
	if _, _, err := h.Launch("rtsp://example/live", "/tmp/s.ass", "sess2"); err == nil {
		t.Error("expected launch error")
	}
}

func TestPreviewRender(t *testing.T) {
	dir := t.TempDir()
	fe := &fakeExec{size: 5000}
	p := NewPreview("ffmpeg", dir, 15*time.Second, fe)

	name, err := p.Render(context.Background(), "https://example/live.m3u8", "/tmp/s.ass", "sess3")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if name != "preview_sess3.mp4" {
		t.Errorf("Render() = %q", name)
	}
	joined := strings.Join(fe.lastArgs, " ")
	for _, want := range []string{"-t 15", "+faststart", "-b:a 64k"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %s", want, joined)
		}
	}
}

func TestPreviewRenderTooSmall(t *testing.T) {
	dir := t.TempDir()
	p := NewPreview("ffmpeg", dir, 15*time.Second, &fakeExec{size: 10})

	if _, err := p.Render(context.Background(), "src", "/tmp/s.ass", "sess4"); err == nil {
		t.Fatal("expected error for tiny artifact")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("tiny artifact not removed: %v", entries)
	}
}

func TestWaitForManifest(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- WaitForManifest(ctx, dir) }()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, ManifestName), []byte("#EXTM3U\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := <-done; err != nil {
		t.Errorf("WaitForManifest() error = %v", err)
	}
}

func TestWaitForManifestAlreadyPresent(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ManifestName), []byte("#EXTM3U\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := WaitForManifest(ctx, dir); err != nil {
		t.Errorf("WaitForManifest() error = %v", err)
	}
}

func TestWaitForManifestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := WaitForManifest(ctx, t.TempDir()); err == nil {
		t.Error("expected context error")
	}
}
