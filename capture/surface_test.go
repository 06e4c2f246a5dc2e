package capture

import (
	"sync"
	"testing"
)

// TestSurfacePushAndReceive verifies basic delivery
func TestSurfacePushAndReceive(t *testing.T) {
	surface := NewSurface("out", 2)

	if !surface.Push(Frame{Seq: 1}) {
		t.Fatal("Push failed on empty surface")
	}

	frame := <-surface.Frames()
	if frame.Seq != 1 {
		t.Errorf("Expected seq 1, got %d", frame.Seq)
	}
}

// TestSurfaceNonBlockingDrop verifies full buffers drop instead of blocking
func TestSurfaceNonBlockingDrop(t *testing.T) {
	surface := NewSurface("slow", 2)

	for i := 0; i < 5; i++ {
		surface.Push(Frame{Seq: uint64(i)})
	}

	stats := surface.Stats()
	if stats.Delivered != 2 {
		t.Errorf("Expected 2 delivered, got %d", stats.Delivered)
	}
	if stats.Dropped != 3 {
		t.Errorf("Expected 3 dropped, got %d", stats.Dropped)
	}
	if rate := stats.DropRate(); rate != 0.6 {
		t.Errorf("Expected drop rate 0.6, got %v", rate)
	}
}

// TestSurfaceCloseIdempotent verifies double close is safe and pushes after
// close are counted as drops
func TestSurfaceCloseIdempotent(t *testing.T) {
	surface := NewSurface("out", 1)
	surface.Close()
	surface.Close()

	if !surface.Closed() {
		t.Error("Expected surface to report closed")
	}
	if surface.Push(Frame{Seq: 1}) {
		t.Error("Expected push after close to fail")
	}
	if got := surface.Stats().Dropped; got != 1 {
		t.Errorf("Expected 1 drop after close, got %d", got)
	}

	// The frames channel is closed so consumers terminate.
	if _, ok := <-surface.Frames(); ok {
		t.Error("Expected closed frames channel")
	}
}

// TestSurfaceUniqueIDs verifies process-unique stable identifiers
func TestSurfaceUniqueIDs(t *testing.T) {
	seen := make(map[uint64]bool)
	for i := 0; i < 100; i++ {
		id := NewSurface("s", 1).ID()
		if seen[id] {
			t.Fatalf("Duplicate surface id %d", id)
		}
		seen[id] = true
	}
}

// TestSurfaceConcurrentPushClose verifies pushes racing close never panic
func TestSurfaceConcurrentPushClose(t *testing.T) {
	surface := NewSurface("race", 4)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				surface.Push(Frame{Seq: uint64(n*200 + j)})
			}
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range surface.Frames() {
		}
	}()

	surface.Close()
	wg.Wait()

	stats := surface.Stats()
	if stats.Delivered+stats.Dropped == 0 {
		t.Error("Expected some pushes to be accounted")
	}
}

// TestSurfaceDefaultBuffer verifies the buffer fallback
func TestSurfaceDefaultBuffer(t *testing.T) {
	surface := NewSurface("default", 0)
	if got := cap(surface.frames); got != DefaultSurfaceBuffer {
		t.Errorf("Expected buffer %d, got %d", DefaultSurfaceBuffer, got)
	}
}

// BenchmarkSurfacePush measures the non-blocking delivery hot path.
func BenchmarkSurfacePush(b *testing.B) {
	surface := NewSurface("bench", 1024)
	go func() {
		for range surface.Frames() {
		}
	}()

	frame := Frame{Seq: 1, Width: 1280, Height: 720}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		surface.Push(frame)
	}
}
