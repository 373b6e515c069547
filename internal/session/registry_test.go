package session

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRegistryLiveness(t *testing.T) {
	r := NewRegistry()
	_, cancel := context.WithCancel(context.Background())
	r.register("a", cancel)

	if !r.Alive("a") {
		t.Error("session a should be alive")
	}
	if r.Alive("b") {
		t.Error("unknown session should not be alive")
	}

	r.Stop("a")
	if r.Alive("a") {
		t.Error("session a should be stopped")
	}
	// Idempotent, including unknown ids.
	r.Stop("a")
	r.Stop("never-existed")
}

func TestRegistryStopCancelsContext(t *testing.T) {
	r := NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	r.register("a", cancel)
	r.Stop("a")
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Error("context not cancelled by Stop")
	}
}

func TestRegistryStatusSnapshot(t *testing.T) {
	r := NewRegistry()
	r.setStatus("a", Status{State: StateStreaming, CurrentSegment: 1})

	s, ok := r.Status("a")
	if !ok || s.CurrentSegment != 1 {
		t.Fatalf("Status() = %+v, %v", s, ok)
	}

	// Mutating the returned copy must not affect the stored snapshot.
	s.CurrentSegment = 99
	s2, _ := r.Status("a")
	if s2.CurrentSegment != 1 {
		t.Error("stored snapshot was mutated through a returned copy")
	}

	if _, ok := r.Status("missing"); ok {
		t.Error("unknown session should report not found")
	}
}

func TestRegistryUpdateStatusAtomic(t *testing.T) {
	r := NewRegistry()
	r.setStatus("a", Status{State: StateStreaming})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.updateStatus("a", func(s *Status) {
					s.CurrentSegment++
					s.CuesEmitted = s.CurrentSegment
				})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s, _ := r.Status("a")
				// Fields written together must be read together.
				if s.CuesEmitted != s.CurrentSegment {
					t.Error("torn snapshot observed")
					return
				}
			}
		}()
	}
	wg.Wait()

	s, _ := r.Status("a")
	if s.CurrentSegment != 1000 {
		t.Errorf("CurrentSegment = %d, want 1000", s.CurrentSegment)
	}
}

type countingHandle struct {
	mu    sync.Mutex
	count int
}

func (h *countingHandle) Terminate() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	return nil
}

func (h *countingHandle) terminations() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func TestRegistryTakeRendererOnce(t *testing.T) {
	r := NewRegistry()
	h := &countingHandle{}
	r.setRenderer("a", h)

	if got := r.takeRenderer("a"); got == nil {
		t.Fatal("first takeRenderer returned nil")
	}
	if got := r.takeRenderer("a"); got != nil {
		t.Error("second takeRenderer should return nil")
	}
}

func TestRegistryStopAll(t *testing.T) {
	r := NewRegistry()
	ctx1, cancel1 := context.WithCancel(context.Background())
	ctx2, cancel2 := context.WithCancel(context.Background())
	r.register("a", cancel1)
	r.register("b", cancel2)

	r.StopAll()
	if r.Alive("a") || r.Alive("b") {
		t.Error("sessions still alive after StopAll")
	}
	for _, ctx := range []context.Context{ctx1, ctx2} {
		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
			t.Error("context not cancelled by StopAll")
		}
	}
}
