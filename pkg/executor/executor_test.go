package executor

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestExecute(t *testing.T) {
	e := New()
	out, err := e.Execute(context.Background(), "echo", "hello")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if strings.TrimSpace(out) != "hello" {
		t.Errorf("Execute() = %q, want hello", out)
	}
}

func TestExecuteFailureIncludesStderr(t *testing.T) {
	e := New()
	_, err := e.Execute(context.Background(), "sh", "-c", "echo oops >&2; exit 1")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "oops") {
		t.Errorf("error should include stderr, got: %v", err)
	}
}

func TestExecuteTimeout(t *testing.T) {
	e := New()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := e.Execute(ctx, "sleep", "5"); err == nil {
		t.Error("expected timeout error")
	}
}

func TestStartAndTerminate(t *testing.T) {
	e := New()
	p, err := e.Start("sleep", "60")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if p.PID() <= 0 {
		t.Errorf("PID() = %d, want > 0", p.PID())
	}
	if err := p.Terminate(); err != nil {
		t.Errorf("Terminate() error = %v", err)
	}
	// Second call is a no-op, not a double-signal error.
	if err := p.Terminate(); err != nil {
		t.Errorf("second Terminate() error = %v", err)
	}
}

func TestStartUnknownBinary(t *testing.T) {
	e := New()
	if _, err := e.Start("definitely-not-a-binary-xyz"); err == nil {
		t.Error("expected error for unknown binary")
	}
}
