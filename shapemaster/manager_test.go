package shapemaster

import (
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type errorLog struct {
	mu   sync.Mutex
	errs []error
}

func (l *errorLog) add(_ int, _ WorkType, err error) {
	l.mu.Lock()
	l.errs = append(l.errs, err)
	l.mu.Unlock()
}

func (l *errorLog) all() []error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]error(nil), l.errs...)
}

func writePresets(t *testing.T, dir string, presets map[string]Preset) {
	t.Helper()
	for name, p := range presets {
		if err := SavePreset(filepath.Join(dir, name), p); err != nil {
			t.Fatalf("SavePreset: %v", err)
		}
	}
}

func syncManager(t *testing.T, opts Options) *Manager {
	t.Helper()
	opts.Synchronous = true
	if opts.Logger == nil {
		opts.Logger = quiet
	}
	m := NewManager(opts)
	t.Cleanup(m.Close)
	return m
}

func TestStagedWorkWaitsForPromotion(t *testing.T) {
	m := syncManager(t, Options{})
	m.ExecuteOrStageWorkload(2, WorkInvert, false, true)
	if !m.IsDeferred(2, WorkInvert) || m.IsDeferred(2, WorkReverse) || m.IsDeferred(1, WorkInvert) {
		t.Fatalf("IsDeferred does not match the staged work")
	}
	if n := m.Poll(); n != 0 {
		t.Fatalf("staged work ran before promotion (%d jobs)", n)
	}
	if got := m.State(2).Shape.Eval(0); got != 0 {
		t.Fatalf("shape changed while staged: %g", got)
	}

	m.ExecuteIfStaged(2)
	if m.IsDeferred(2, WorkInvert) {
		t.Fatalf("still deferred after promotion")
	}
	if n := m.Poll(); n != 1 {
		t.Fatalf("got %d jobs want 1", n)
	}
	if got := m.State(2).Shape.Eval(0); got != 1 {
		t.Fatalf("inverted ramp should start at 1, got %g", got)
	}
	if m.Pending(2) {
		t.Fatalf("slot not cleared after work")
	}
}

func TestExecuteAllIfStagedAndClear(t *testing.T) {
	m := syncManager(t, Options{})
	for c := 0; c < NumChannels; c++ {
		m.ExecuteOrStageWorkload(c, WorkReverse, false, true)
	}
	m.CleanWorkload(3)
	m.ExecuteAllIfStaged()
	if n := m.Poll(); n != NumChannels-1 {
		t.Fatalf("got %d jobs want %d", n, NumChannels-1)
	}
	if got := m.State(3).Shape.Eval(0); got != 0 {
		t.Fatalf("cleaned channel 3 ran anyway")
	}

	for c := 0; c < NumChannels; c++ {
		m.ExecuteOrStageWorkload(c, WorkInvert, false, c%2 == 0)
	}
	m.ClearAllWorkloads()
	m.ExecuteAllIfStaged()
	if n := m.Poll(); n != 0 {
		t.Fatalf("cleared work ran: %d jobs", n)
	}
}

func TestHistoryAndUndo(t *testing.T) {
	m := syncManager(t, Options{})
	orig := m.State(0).Shape
	m.ExecuteOrStageWorkload(0, WorkReverse, true, false)
	m.Poll()
	m.ExecuteOrStageWorkload(0, WorkInvert, false, false)
	m.Poll()
	if got := m.State(0).HistoryLen(); got != 1 {
		t.Fatalf("history depth: got %d want 1", got)
	}
	if !m.Undo(0) {
		t.Fatalf("undo failed")
	}
	if !shapesNear(m.State(0).Shape, orig, 0) {
		t.Fatalf("undo did not restore the original shape: %v", m.State(0).Shape)
	}
	if m.Undo(0) {
		t.Fatalf("undo succeeded on an empty stack")
	}

	for i := 0; i < maxHistory+10; i++ {
		if err := m.SetShape(1, DefaultShape(), true); err != nil {
			t.Fatalf("SetShape: %v", err)
		}
	}
	if got := m.State(1).HistoryLen(); got != maxHistory {
		t.Fatalf("history not bounded: %d", got)
	}
}

func TestPresetStepping(t *testing.T) {
	dir := t.TempDir()
	a := Preset{Shape: DefaultShape(), Length: 2, Sync: SyncClocked, Smoothing: 0.1}
	b := Preset{Shape: DefaultShape().Invert(), Length: 4, Sync: SyncTriggered}
	writePresets(t, dir, map[string]Preset{"a.json": a, "b.json": b})

	var log errorLog
	m := syncManager(t, Options{
		PresetDirs:    []string{dir},
		SupportedSync: func(c int, mode SyncMode) bool { return c != 5 || mode != SyncTriggered },
		OnError:       log.add,
	})

	m.ExecuteOrStageWorkload(0, WorkNextPreset, false, false)
	m.Poll()
	st := m.State(0)
	if st.PresetPath != filepath.Join(dir, "a.json") || st.Length != 2 || st.Sync != SyncClocked {
		t.Fatalf("next preset: %+v", st)
	}
	m.ExecuteOrStageWorkload(0, WorkNextPreset, false, false)
	m.Poll()
	if got := m.State(0).PresetPath; got != filepath.Join(dir, "b.json") {
		t.Fatalf("second next: %q", got)
	}
	m.ExecuteOrStageWorkload(0, WorkNextPreset, false, false)
	m.Poll()
	if got := m.State(0).PresetPath; got != filepath.Join(dir, "a.json") {
		t.Fatalf("next must wrap to the first preset, got %q", got)
	}

	// channel 5 cannot run triggered sync
	m.ExecuteOrStageWorkload(5, WorkPrevPreset, false, false)
	m.Poll()
	st = m.State(5)
	if st.PresetPath != filepath.Join(dir, "b.json") || st.Length != 4 {
		t.Fatalf("prev preset: %+v", st)
	}
	if st.Sync != SyncFree {
		t.Fatalf("unsupported sync applied: %s", st.Sync)
	}
	errs := log.all()
	if len(errs) != 1 || !errors.Is(errs[0], ErrUnsupportedSync) {
		t.Fatalf("errors: %v", errs)
	}
}

func TestFailedLoadLeavesStateUnchanged(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"points":[{"x":0`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	bad := Shape{Points: []Point{{0, 0}, {1, 3}}}
	if err := writeJSON(filepath.Join(dir, "invalid.json"), bad); err != nil {
		t.Fatalf("write: %v", err)
	}

	var log errorLog
	m := syncManager(t, Options{ShapeDirs: []string{dir}, OnError: log.add})
	before := m.State(4)
	m.ExecuteOrStageWorkload(4, WorkNextShape, true, false)
	m.Poll()
	m.ExecuteOrStageWorkload(4, WorkPrevShape, true, false)
	m.Poll()
	if m.State(4) != before {
		t.Fatalf("failed loads published a new state")
	}
	if got := len(log.all()); got != 2 {
		t.Fatalf("got %d reported errors want 2", got)
	}

	m.ExecuteOrStageWorkload(4, WorkNextPreset, false, false)
	m.Poll()
	if errs := log.all(); !errors.Is(errs[len(errs)-1], ErrNoFiles) {
		t.Fatalf("empty preset library: %v", errs[len(errs)-1])
	}
}

func TestSaveAndReloadShape(t *testing.T) {
	dir := t.TempDir()
	m := syncManager(t, Options{ShapeDirs: []string{dir}, Rand: rand.New(rand.NewSource(4))})
	m.ExecuteOrStageWorkload(6, WorkRandom, false, false)
	m.Poll()
	shape := m.State(6).Shape
	path := filepath.Join(dir, "mine.json")
	if err := m.SaveShape(6, path); err != nil {
		t.Fatalf("SaveShape: %v", err)
	}
	if m.State(6).ShapePath != path {
		t.Fatalf("shape path not recorded")
	}

	m.ExecuteOrStageWorkload(7, WorkNextShape, false, false)
	m.Poll()
	if got := m.State(7).Shape; !shapesNear(got, shape, 0) {
		t.Fatalf("reloaded shape differs: %v vs %v", got, shape)
	}
}

func TestWorkerRunsAndCloses(t *testing.T) {
	m := NewManager(Options{Logger: quiet})
	m.ExecuteOrStageWorkload(1, WorkInvert, false, false)
	deadline := time.Now().Add(5 * time.Second)
	for m.Pending(1) || m.State(1).Shape.Eval(0) != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("worker never ran the job")
		}
		time.Sleep(time.Millisecond)
	}

	if n := m.Poll(); n != 0 {
		t.Fatalf("Poll must not run work when a worker exists")
	}

	closed := make(chan struct{})
	go func() {
		m.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatalf("Close did not join the worker")
	}
	m.Close()
}

func TestConcurrentReadersSeeWholeStates(t *testing.T) {
	m := NewManager(Options{Logger: quiet, Rand: rand.New(rand.NewSource(8))})
	defer m.Close()
	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if err := m.State(0).Shape.Validate(); err != nil {
				t.Errorf("reader saw invalid state: %v", err)
				return
			}
		}
	}()
	for i := 0; i < 200; i++ {
		m.ExecuteOrStageWorkload(0, WorkType(int(WorkReverse)+i%3), i%2 == 0, false)
	}
	close(stop)
	wg.Wait()
}
