package shapemaster

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
)

// NumChannels is the number of channels a Manager serves.
const NumChannels = 8

// WorkType is a file or transform operation on one channel.
type WorkType int8

const (
	WorkPrevPreset WorkType = iota
	WorkNextPreset
	WorkPrevShape
	WorkNextShape
	WorkReverse
	WorkInvert
	WorkRandom
	numWorkTypes
)

func (w WorkType) String() string {
	switch w {
	case WorkPrevPreset:
		return "prev-preset"
	case WorkNextPreset:
		return "next-preset"
	case WorkPrevShape:
		return "prev-shape"
	case WorkNextShape:
		return "next-shape"
	case WorkReverse:
		return "reverse"
	case WorkInvert:
		return "invert"
	case WorkRandom:
		return "random"
	}
	return fmt.Sprintf("WorkType(%d)", int8(w))
}

// request states of a channel slot
const (
	requestNone int32 = iota
	requestStaged
	requestTodo
)

// ErrUnsupportedSync is reported when a loaded preset asks for a sync mode
// the channel cannot run. The rest of the preset is still applied and the
// channel keeps its own sync mode.
var ErrUnsupportedSync = errors.New("shapemaster: preset sync mode not supported by channel")

// Options configures a Manager.
type Options struct {
	PresetDirs []string
	ShapeDirs  []string

	// SupportedSync reports whether channel c can run mode. Nil means every
	// mode is supported.
	SupportedSync func(c int, mode SyncMode) bool

	// Synchronous disables the worker goroutine. Pending work then runs only
	// when the owner calls Poll, e.g. from a timer.
	Synchronous bool

	Logger  *slog.Logger
	OnError func(c int, work WorkType, err error)
	Rand    *rand.Rand
}

type slot struct {
	state       atomic.Pointer[State]
	request     atomic.Int32
	work        atomic.Int32
	withHistory atomic.Bool
}

// Manager runs preset and shape work for 8 channels on a background worker.
// The controlling thread arms work with ExecuteOrStageWorkload; staged work
// waits until ExecuteIfStaged promotes it. Channel state is published
// atomically and can be read from any goroutine.
type Manager struct {
	opts    Options
	log     *slog.Logger
	presets Library
	shapes  Library
	rng     *rand.Rand // worker only

	slots [NumChannels]slot

	mu      sync.Mutex
	cond    *sync.Cond
	stop    bool
	done    chan struct{}
	closing sync.Once
}

// NewManager creates a Manager with every channel at DefaultPreset and, unless
// opts.Synchronous is set, starts its worker.
func NewManager(opts Options) *Manager {
	m := &Manager{
		opts:    opts,
		log:     opts.Logger,
		presets: Library{Dirs: opts.PresetDirs},
		shapes:  Library{Dirs: opts.ShapeDirs},
		rng:     opts.Rand,
		done:    make(chan struct{}),
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(1))
	}
	m.cond = sync.NewCond(&m.mu)
	st := &State{Preset: DefaultPreset()}
	for c := range m.slots {
		m.slots[c].state.Store(st)
	}
	if opts.Synchronous {
		close(m.done)
	} else {
		go m.run()
	}
	return m
}

// State returns the current state of channel c.
func (m *Manager) State(c int) *State { return m.slots[c].state.Load() }

// ExecuteOrStageWorkload arms work on channel c. With stage set the work
// waits for ExecuteIfStaged; otherwise the worker is woken to run it. A new
// request replaces any pending one on the channel.
func (m *Manager) ExecuteOrStageWorkload(c int, work WorkType, withHistory, stage bool) {
	if c < 0 || c >= NumChannels || work < 0 || work >= numWorkTypes {
		return
	}
	s := &m.slots[c]
	s.work.Store(int32(work))
	s.withHistory.Store(withHistory)
	if stage {
		s.request.Store(requestStaged)
		return
	}
	s.request.Store(requestTodo)
	m.wake()
}

// ExecuteIfStaged promotes staged work on channel c.
func (m *Manager) ExecuteIfStaged(c int) {
	if m.slots[c].request.CompareAndSwap(requestStaged, requestTodo) {
		m.wake()
	}
}

// ExecuteAllIfStaged promotes staged work on every channel.
func (m *Manager) ExecuteAllIfStaged() {
	promoted := false
	for c := range m.slots {
		if m.slots[c].request.CompareAndSwap(requestStaged, requestTodo) {
			promoted = true
		}
	}
	if promoted {
		m.wake()
	}
}

// CleanWorkload drops pending work on channel c.
func (m *Manager) CleanWorkload(c int) { m.slots[c].request.Store(requestNone) }

// ClearAllWorkloads drops pending work on every channel.
func (m *Manager) ClearAllWorkloads() {
	for c := range m.slots {
		m.slots[c].request.Store(requestNone)
	}
}

// IsDeferred reports whether work of the given type is staged on channel c.
func (m *Manager) IsDeferred(c int, work WorkType) bool {
	s := &m.slots[c]
	return s.request.Load() == requestStaged && WorkType(s.work.Load()) == work
}

// Pending reports whether channel c has staged or armed work.
func (m *Manager) Pending(c int) bool { return m.slots[c].request.Load() != requestNone }

// Poll runs the armed work of every channel and returns how many jobs ran.
// It does nothing unless the Manager is synchronous.
func (m *Manager) Poll() int {
	if !m.opts.Synchronous {
		return 0
	}
	return m.runPending()
}

// Close stops the worker and waits for it to exit. Work in flight completes;
// armed work that has not started is dropped.
func (m *Manager) Close() {
	m.closing.Do(func() {
		m.mu.Lock()
		m.stop = true
		m.mu.Unlock()
		m.cond.Broadcast()
		<-m.done
	})
}

// Undo restores the previous shape of channel c. It returns false when the
// undo stack is empty.
func (m *Manager) Undo(c int) bool {
	ok := false
	m.update(c, func(old *State) *State {
		if len(old.history) == 0 {
			ok = false
			return old
		}
		ok = true
		next := *old
		next.Shape = old.history[len(old.history)-1]
		next.history = old.history[:len(old.history)-1:len(old.history)-1]
		return &next
	})
	return ok
}

// SetShape replaces the shape of channel c.
func (m *Manager) SetShape(c int, shape Shape, withHistory bool) error {
	if err := shape.Validate(); err != nil {
		return err
	}
	m.update(c, func(old *State) *State { return old.withShape(shape.Clone(), withHistory) })
	return nil
}

// SavePreset writes the current preset of channel c to path and records it
// as the channel's preset.
func (m *Manager) SavePreset(c int, path string) error {
	if err := SavePreset(path, m.State(c).Preset); err != nil {
		return err
	}
	m.update(c, func(old *State) *State {
		next := *old
		next.PresetPath = path
		return &next
	})
	return nil
}

// SaveShape writes the current shape of channel c to path.
func (m *Manager) SaveShape(c int, path string) error {
	if err := SaveShape(path, m.State(c).Shape); err != nil {
		return err
	}
	m.update(c, func(old *State) *State {
		next := *old
		next.ShapePath = path
		return &next
	})
	return nil
}

func (m *Manager) wake() {
	m.mu.Lock()
	m.cond.Signal()
	m.mu.Unlock()
}

func (m *Manager) hasTodo() bool {
	for c := range m.slots {
		if m.slots[c].request.Load() == requestTodo {
			return true
		}
	}
	return false
}

func (m *Manager) run() {
	defer close(m.done)
	for {
		m.mu.Lock()
		for !m.stop && !m.hasTodo() {
			m.cond.Wait()
		}
		stop := m.stop
		m.mu.Unlock()
		if stop {
			return
		}
		m.runPending()
	}
}

func (m *Manager) runPending() int {
	n := 0
	for c := range m.slots {
		s := &m.slots[c]
		if !s.request.CompareAndSwap(requestTodo, requestNone) {
			continue
		}
		m.perform(c, WorkType(s.work.Load()), s.withHistory.Load())
		n++
	}
	return n
}

// update publishes fn(old) as the new state of channel c, retrying if another
// writer got there first.
func (m *Manager) update(c int, fn func(old *State) *State) {
	s := &m.slots[c]
	for {
		old := s.state.Load()
		if s.state.CompareAndSwap(old, fn(old)) {
			return
		}
	}
}

func (m *Manager) perform(c int, work WorkType, withHistory bool) {
	switch work {
	case WorkPrevPreset, WorkNextPreset:
		dir := 1
		if work == WorkPrevPreset {
			dir = -1
		}
		path, err := m.presets.Step(m.State(c).PresetPath, dir)
		if err != nil {
			m.report(c, work, "", err)
			return
		}
		p, err := LoadPreset(path)
		if err != nil {
			m.report(c, work, path, err)
			return
		}
		unsupported := m.opts.SupportedSync != nil && !m.opts.SupportedSync(c, p.Sync)
		m.update(c, func(old *State) *State {
			next := old.withShape(p.Shape, withHistory)
			next.Length = p.Length
			next.Smoothing = p.Smoothing
			if !unsupported {
				next.Sync = p.Sync
			}
			next.PresetPath = path
			return next
		})
		if unsupported {
			m.report(c, work, path, fmt.Errorf("%w: %s", ErrUnsupportedSync, p.Sync))
		}

	case WorkPrevShape, WorkNextShape:
		dir := 1
		if work == WorkPrevShape {
			dir = -1
		}
		path, err := m.shapes.Step(m.State(c).ShapePath, dir)
		if err != nil {
			m.report(c, work, "", err)
			return
		}
		shape, err := LoadShape(path)
		if err != nil {
			m.report(c, work, path, err)
			return
		}
		m.update(c, func(old *State) *State {
			next := old.withShape(shape, withHistory)
			next.ShapePath = path
			return next
		})

	case WorkReverse:
		m.update(c, func(old *State) *State { return old.withShape(old.Shape.Reverse(), withHistory) })
	case WorkInvert:
		m.update(c, func(old *State) *State { return old.withShape(old.Shape.Invert(), withHistory) })
	case WorkRandom:
		shape := RandomShape(m.rng)
		m.update(c, func(old *State) *State { return old.withShape(shape, withHistory) })
	}
}

func (m *Manager) report(c int, work WorkType, path string, err error) {
	m.log.Warn("shapemaster: work failed",
		slog.Int("channel", c),
		slog.String("work", work.String()),
		slog.String("path", path),
		slog.Any("err", err))
	if m.opts.OnError != nil {
		m.opts.OnError(c, work, err)
	}
}
