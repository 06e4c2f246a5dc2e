package dispatch

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/e7canasta/camera-session/capture"
)

// recorder captures events in arrival order. The engine dispatches
// asynchronously, so assertions wait with waitLen.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(ev string) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) OnCaptureStarted(frameNumber int64, _ int64) {
	r.add(fmt.Sprintf("started:%d", frameNumber))
}

func (r *recorder) OnCaptureProgressed(partial *capture.CaptureResult) {
	r.add(fmt.Sprintf("progressed:%d", partial.FrameNumber))
}

func (r *recorder) OnCaptureCompleted(result *capture.CaptureResult) {
	r.add(fmt.Sprintf("completed:%d", result.FrameNumber))
}

func (r *recorder) OnCaptureFailed(failure *capture.CaptureFailure) {
	r.add(fmt.Sprintf("failed:%d:%s", failure.FrameNumber, failure.Reason))
}

func (r *recorder) OnCaptureBufferLost(frameNumber int64, surface *capture.Surface) {
	r.add(fmt.Sprintf("buffer-lost:%d:%s", frameNumber, surface.Name()))
}

func (r *recorder) OnCaptureSequenceCompleted(sequenceID int, frameNumber int64) {
	r.add(fmt.Sprintf("seq-completed:%d:%d", sequenceID, frameNumber))
}

func (r *recorder) OnCaptureSequenceAborted(sequenceID int) {
	r.add(fmt.Sprintf("seq-aborted:%d", sequenceID))
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// waitLen blocks until the recorder holds at least n events or 2 seconds
// elapse, then returns the snapshot.
func (r *recorder) waitLen(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if events := r.snapshot(); len(events) >= n {
			return events
		}
		time.Sleep(time.Millisecond)
	}
	events := r.snapshot()
	t.Fatalf("timed out waiting for %d events, got %d: %v", n, len(events), events)
	return nil
}

func testConfig(rec capture.SessionCallback, surfaces ...*capture.Surface) *capture.CaptureConfig {
	return &capture.CaptureConfig{
		Template:  capture.TemplatePreview,
		Surfaces:  surfaces,
		Callbacks: []capture.SessionCallback{rec},
		Tags:      capture.TagBundle{"origin": "engine-test"},
	}
}

func TestSubmitBurstValidation(t *testing.T) {
	e := New("test")
	defer e.Close()

	if _, err := e.SubmitBurst(nil); err == nil {
		t.Error("Expected error for empty burst")
	}
	if _, err := e.SubmitBurst([]*capture.CaptureConfig{nil}); err == nil {
		t.Error("Expected error for nil config")
	}
}

func TestDeliverServesBurstInOrder(t *testing.T) {
	e := New("test")
	defer e.Close()

	first := &recorder{}
	second := &recorder{}
	id, err := e.SubmitBurst([]*capture.CaptureConfig{
		testConfig(first),
		testConfig(second),
	})
	if err != nil {
		t.Fatalf("SubmitBurst failed: %v", err)
	}

	e.Deliver(nil, 640, 480)
	e.Deliver(nil, 640, 480)
	e.Deliver(nil, 640, 480) // nothing active, dropped idle

	wantFirst := []string{
		"started:1", "progressed:1", "completed:1",
		fmt.Sprintf("seq-completed:%d:2", id),
	}
	if got := first.waitLen(t, len(wantFirst)); !reflect.DeepEqual(got, wantFirst) {
		t.Errorf("Expected %v, got %v", wantFirst, got)
	}

	wantSecond := []string{
		"started:2", "progressed:2", "completed:2",
		fmt.Sprintf("seq-completed:%d:2", id),
	}
	if got := second.waitLen(t, len(wantSecond)); !reflect.DeepEqual(got, wantSecond) {
		t.Errorf("Expected %v, got %v", wantSecond, got)
	}

	stats := e.Stats()
	if stats.FramesDelivered != 2 {
		t.Errorf("Expected 2 delivered frames, got %d", stats.FramesDelivered)
	}
	if stats.FramesIdle != 1 {
		t.Errorf("Expected 1 idle frame, got %d", stats.FramesIdle)
	}
	if stats.BurstsCompleted != 1 {
		t.Errorf("Expected 1 completed burst, got %d", stats.BurstsCompleted)
	}
}

func TestDeliverRoutesRepeating(t *testing.T) {
	e := New("test")
	defer e.Close()

	rec := &recorder{}
	if _, err := e.SubmitRepeating(testConfig(rec)); err != nil {
		t.Fatalf("SubmitRepeating failed: %v", err)
	}

	e.Deliver(nil, 320, 240)
	e.Deliver(nil, 320, 240)

	want := []string{
		"started:1", "progressed:1", "completed:1",
		"started:2", "progressed:2", "completed:2",
	}
	if got := rec.waitLen(t, len(want)); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	if stats := e.Stats(); !stats.RepeatingActive {
		t.Error("Expected repeating to be active")
	}
}

func TestBurstTakesPriorityOverRepeating(t *testing.T) {
	e := New("test")
	defer e.Close()

	repeating := &recorder{}
	burst := &recorder{}
	if _, err := e.SubmitRepeating(testConfig(repeating)); err != nil {
		t.Fatalf("SubmitRepeating failed: %v", err)
	}
	burstID, err := e.SubmitBurst([]*capture.CaptureConfig{testConfig(burst)})
	if err != nil {
		t.Fatalf("SubmitBurst failed: %v", err)
	}

	e.Deliver(nil, 320, 240)
	e.Deliver(nil, 320, 240)

	wantBurst := []string{
		"started:1", "progressed:1", "completed:1",
		fmt.Sprintf("seq-completed:%d:1", burstID),
	}
	if got := burst.waitLen(t, len(wantBurst)); !reflect.DeepEqual(got, wantBurst) {
		t.Errorf("Expected %v, got %v", wantBurst, got)
	}

	wantRepeating := []string{"started:2", "progressed:2", "completed:2"}
	if got := repeating.waitLen(t, len(wantRepeating)); !reflect.DeepEqual(got, wantRepeating) {
		t.Errorf("Expected %v, got %v", wantRepeating, got)
	}
}

func TestSubmitRepeatingReplacesAndCompletes(t *testing.T) {
	e := New("test")
	defer e.Close()

	old := &recorder{}
	oldID, err := e.SubmitRepeating(testConfig(old))
	if err != nil {
		t.Fatalf("SubmitRepeating failed: %v", err)
	}
	e.Deliver(nil, 320, 240)
	old.waitLen(t, 3)

	replacement := &recorder{}
	newID, err := e.SubmitRepeating(testConfig(replacement))
	if err != nil {
		t.Fatalf("SubmitRepeating replacement failed: %v", err)
	}
	if newID == oldID {
		t.Errorf("Expected a fresh sequence ID, got %d twice", newID)
	}

	events := old.waitLen(t, 4)
	wantLast := fmt.Sprintf("seq-completed:%d:1", oldID)
	if events[len(events)-1] != wantLast {
		t.Errorf("Expected %q, got %q", wantLast, events[len(events)-1])
	}

	e.Deliver(nil, 320, 240)
	want := []string{"started:2", "progressed:2", "completed:2"}
	if got := replacement.waitLen(t, len(want)); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestStopRepeatingCompletesSequence(t *testing.T) {
	e := New("test")
	defer e.Close()

	// Stopping with nothing active is a no-op
	if err := e.StopRepeating(); err != nil {
		t.Fatalf("StopRepeating failed: %v", err)
	}

	rec := &recorder{}
	id, err := e.SubmitRepeating(testConfig(rec))
	if err != nil {
		t.Fatalf("SubmitRepeating failed: %v", err)
	}
	e.Deliver(nil, 320, 240)
	rec.waitLen(t, 3)

	if err := e.StopRepeating(); err != nil {
		t.Fatalf("StopRepeating failed: %v", err)
	}

	events := rec.waitLen(t, 4)
	wantLast := fmt.Sprintf("seq-completed:%d:1", id)
	if events[len(events)-1] != wantLast {
		t.Errorf("Expected %q, got %q", wantLast, events[len(events)-1])
	}

	e.Deliver(nil, 320, 240)
	if stats := e.Stats(); stats.FramesIdle != 1 {
		t.Errorf("Expected 1 idle frame after stop, got %d", stats.FramesIdle)
	}
}

func TestAbortCapturesDiscardsEverything(t *testing.T) {
	e := New("test")
	defer e.Close()

	burstA := &recorder{}
	burstB := &recorder{}
	repeating := &recorder{}

	idA, _ := e.SubmitBurst([]*capture.CaptureConfig{testConfig(burstA)})
	idB, _ := e.SubmitBurst([]*capture.CaptureConfig{testConfig(burstB)})
	idR, _ := e.SubmitRepeating(testConfig(repeating))

	if err := e.AbortCaptures(); err != nil {
		t.Fatalf("AbortCaptures failed: %v", err)
	}

	for _, tc := range []struct {
		rec *recorder
		id  int
	}{
		{burstA, idA}, {burstB, idB}, {repeating, idR},
	} {
		want := fmt.Sprintf("seq-aborted:%d", tc.id)
		events := tc.rec.waitLen(t, 1)
		if events[0] != want {
			t.Errorf("Expected %q, got %q", want, events[0])
		}
	}

	stats := e.Stats()
	if stats.BurstsAborted != 2 {
		t.Errorf("Expected 2 aborted bursts, got %d", stats.BurstsAborted)
	}
	if stats.RepeatingActive {
		t.Error("Expected repeating to be cleared after abort")
	}
}

func TestFailConsumesBurstHead(t *testing.T) {
	e := New("test")
	defer e.Close()

	first := &recorder{}
	second := &recorder{}
	id, err := e.SubmitBurst([]*capture.CaptureConfig{
		testConfig(first),
		testConfig(second),
	})
	if err != nil {
		t.Fatalf("SubmitBurst failed: %v", err)
	}

	e.Fail(capture.FailureReasonError)
	e.Deliver(nil, 640, 480)

	wantFirst := []string{
		"failed:1:error",
		fmt.Sprintf("seq-completed:%d:2", id),
	}
	if got := first.waitLen(t, len(wantFirst)); !reflect.DeepEqual(got, wantFirst) {
		t.Errorf("Expected %v, got %v", wantFirst, got)
	}

	wantSecond := []string{
		"started:2", "progressed:2", "completed:2",
		fmt.Sprintf("seq-completed:%d:2", id),
	}
	if got := second.waitLen(t, len(wantSecond)); !reflect.DeepEqual(got, wantSecond) {
		t.Errorf("Expected %v, got %v", wantSecond, got)
	}

	if stats := e.Stats(); stats.Failures != 1 {
		t.Errorf("Expected 1 failure, got %d", stats.Failures)
	}
}

func TestFailOnLastConfigCompletesBurst(t *testing.T) {
	e := New("test")
	defer e.Close()

	rec := &recorder{}
	id, _ := e.SubmitBurst([]*capture.CaptureConfig{testConfig(rec)})

	e.Fail(capture.FailureReasonError)

	want := []string{
		"failed:1:error",
		fmt.Sprintf("seq-completed:%d:1", id),
	}
	if got := rec.waitLen(t, len(want)); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	if stats := e.Stats(); stats.BurstsCompleted != 1 {
		t.Errorf("Expected 1 completed burst, got %d", stats.BurstsCompleted)
	}
}

func TestFullSurfaceEmitsBufferLost(t *testing.T) {
	e := New("test")
	defer e.Close()

	rec := &recorder{}
	surface := capture.NewSurface("tiny", 1)
	if _, err := e.SubmitRepeating(testConfig(rec, surface)); err != nil {
		t.Fatalf("SubmitRepeating failed: %v", err)
	}

	// Nobody drains the surface, so the second frame has no room
	e.Deliver(nil, 320, 240)
	e.Deliver(nil, 320, 240)

	want := []string{
		"started:1", "progressed:1", "completed:1",
		"started:2", "buffer-lost:2:tiny", "progressed:2", "completed:2",
	}
	if got := rec.waitLen(t, len(want)); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	if stats := e.Stats(); stats.BuffersLost != 1 {
		t.Errorf("Expected 1 lost buffer, got %d", stats.BuffersLost)
	}
}

func TestCloseAbortsOutstanding(t *testing.T) {
	e := New("test")

	burst := &recorder{}
	repeating := &recorder{}
	burstID, _ := e.SubmitBurst([]*capture.CaptureConfig{testConfig(burst)})
	repeatingID, _ := e.SubmitRepeating(testConfig(repeating))

	if err := e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if got := burst.snapshot(); !reflect.DeepEqual(got, []string{fmt.Sprintf("seq-aborted:%d", burstID)}) {
		t.Errorf("Expected burst abort, got %v", got)
	}
	if got := repeating.snapshot(); !reflect.DeepEqual(got, []string{fmt.Sprintf("seq-aborted:%d", repeatingID)}) {
		t.Errorf("Expected repeating abort, got %v", got)
	}

	// Terminal: every operation now refuses or drops
	if err := e.Close(); err != nil {
		t.Errorf("Expected idempotent close, got %v", err)
	}
	if _, err := e.SubmitBurst([]*capture.CaptureConfig{testConfig(&recorder{})}); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if _, err := e.SubmitRepeating(testConfig(&recorder{})); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if err := e.AbortCaptures(); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}

	e.Deliver(nil, 320, 240)
	if stats := e.Stats(); stats.FramesIdle != 1 {
		t.Errorf("Expected post-close frame to drop idle, got %d", stats.FramesIdle)
	}
}

// hookCallback lets a test run extra logic inside a completed callback.
type hookCallback struct {
	recorder
	onCompleted func(*capture.CaptureResult)
}

func (h *hookCallback) OnCaptureCompleted(result *capture.CaptureResult) {
	h.recorder.OnCaptureCompleted(result)
	if h.onCompleted != nil {
		h.onCompleted(result)
	}
}

// TestCallbackMayReenterEngine proves a callback can submit new work without
// deadlocking the dispatch goroutine.
func TestCallbackMayReenterEngine(t *testing.T) {
	e := New("test")
	defer e.Close()

	burst := &recorder{}
	var once sync.Once
	hook := &hookCallback{}
	hook.onCompleted = func(*capture.CaptureResult) {
		once.Do(func() {
			if _, err := e.SubmitBurst([]*capture.CaptureConfig{testConfig(burst)}); err != nil {
				t.Errorf("SubmitBurst from callback failed: %v", err)
			}
		})
	}

	if _, err := e.SubmitRepeating(testConfig(hook)); err != nil {
		t.Fatalf("SubmitRepeating failed: %v", err)
	}

	e.Deliver(nil, 320, 240)

	// Wait until the callback submitted the burst before the next frame
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && e.Stats().BurstsSubmitted == 0 {
		time.Sleep(time.Millisecond)
	}
	if e.Stats().BurstsSubmitted != 1 {
		t.Fatal("callback submission did not land")
	}

	e.Deliver(nil, 320, 240)

	events := burst.waitLen(t, 3)
	if events[0] != "started:2" {
		t.Errorf("Expected burst to serve frame 2, got %v", events)
	}
}

func TestConcurrentDeliverAndSubmit(t *testing.T) {
	e := New("test")
	defer e.Close()

	if _, err := e.SubmitRepeating(testConfig(&recorder{})); err != nil {
		t.Fatalf("SubmitRepeating failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				e.Deliver(nil, 320, 240)
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, _ = e.SubmitBurst([]*capture.CaptureConfig{testConfig(&recorder{})})
				_ = e.Stats()
			}
		}()
	}
	wg.Wait()

	stats := e.Stats()
	if stats.FramesIn != 200 {
		t.Errorf("Expected 200 frames in, got %d", stats.FramesIn)
	}
	if stats.FramesDelivered+stats.FramesIdle != stats.FramesIn {
		t.Errorf("Expected delivered+idle to equal frames in, got %d+%d != %d",
			stats.FramesDelivered, stats.FramesIdle, stats.FramesIn)
	}
}

func BenchmarkDeliver(b *testing.B) {
	e := New("bench")
	defer e.Close()

	surface := capture.NewSurface("bench", 1)
	if _, err := e.SubmitRepeating(&capture.CaptureConfig{
		Surfaces:  []*capture.Surface{surface},
		Callbacks: []capture.SessionCallback{&recorder{}},
	}); err != nil {
		b.Fatalf("SubmitRepeating failed: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Deliver(nil, 320, 240)
	}
}
