package render

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WaitForManifest blocks until the renderer writes its playlist into dir, or
// the context is cancelled. The orchestrator uses this to report when the
// rolling stream is actually consumable, as opposed to the launch-time
// readiness flag.
func WaitForManifest(ctx context.Context, dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	manifest := filepath.Join(dir, ManifestName)
	// The renderer may have written the manifest before the watch was added.
	if _, err := os.Stat(manifest); err == nil {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return context.Canceled
			}
			if ev.Name == manifest && ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				return nil
			}
		case _, ok := <-w.Errors:
			if !ok {
				return context.Canceled
			}
			// Watch errors are non-fatal; keep waiting until cancelled.
		}
	}
}
