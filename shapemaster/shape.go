// Package shapemaster holds the per-channel preset and shape data of a
// shape sequencer and a Manager that loads, saves and transforms it off the
// audio thread.
package shapemaster

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
)

// Point is one node of a shape. X runs from 0 to 1 across the cycle.
type Point struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// Shape is a piecewise linear curve over [0, 1].
type Shape struct {
	Points []Point `json:"points"`
}

// DefaultShape is a rising ramp.
func DefaultShape() Shape {
	return Shape{Points: []Point{{0, 0}, {1, 1}}}
}

// Validate checks that the shape spans [0, 1] with ascending X and Y in [0, 1].
func (s Shape) Validate() error {
	n := len(s.Points)
	if n < 2 {
		return fmt.Errorf("shape needs at least 2 points, got %d", n)
	}
	if s.Points[0].X != 0 || s.Points[n-1].X != 1 {
		return errors.New("shape must start at x=0 and end at x=1")
	}
	for i, p := range s.Points {
		if p.Y < 0 || p.Y > 1 {
			return fmt.Errorf("points[%d].y must be in [0,1]", i)
		}
		if i > 0 && p.X < s.Points[i-1].X {
			return fmt.Errorf("points[%d].x must not decrease", i)
		}
	}
	return nil
}

// Eval interpolates the shape at x, clamped to [0, 1].
func (s Shape) Eval(x float32) float32 {
	pts := s.Points
	if len(pts) == 0 {
		return 0
	}
	x = min(1, max(0, x))
	i := sort.Search(len(pts), func(i int) bool { return pts[i].X >= x })
	if i == 0 {
		return pts[0].Y
	}
	if i == len(pts) {
		return pts[len(pts)-1].Y
	}
	a, b := pts[i-1], pts[i]
	if b.X == a.X {
		return b.Y
	}
	return a.Y + (b.Y-a.Y)*(x-a.X)/(b.X-a.X)
}

// Reverse mirrors the shape in time.
func (s Shape) Reverse() Shape {
	n := len(s.Points)
	out := make([]Point, n)
	for i, p := range s.Points {
		out[n-1-i] = Point{X: 1 - p.X, Y: p.Y}
	}
	return Shape{Points: out}
}

// Invert mirrors the shape vertically.
func (s Shape) Invert() Shape {
	out := make([]Point, len(s.Points))
	for i, p := range s.Points {
		out[i] = Point{X: p.X, Y: 1 - p.Y}
	}
	return Shape{Points: out}
}

// Clone returns a deep copy.
func (s Shape) Clone() Shape {
	return Shape{Points: append([]Point(nil), s.Points...)}
}

// RandomShape draws a shape of 3 to 8 points.
func RandomShape(rng *rand.Rand) Shape {
	n := 3 + rng.Intn(6)
	xs := make([]float32, n)
	xs[n-1] = 1
	for i := 1; i < n-1; i++ {
		xs[i] = rng.Float32()
	}
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	pts := make([]Point, n)
	for i, x := range xs {
		pts[i] = Point{X: x, Y: rng.Float32()}
	}
	return Shape{Points: pts}
}

// SyncMode selects what drives a channel's playhead.
type SyncMode int8

const (
	SyncFree SyncMode = iota
	SyncClocked
	SyncTriggered
	numSyncModes
)

func (m SyncMode) String() string {
	switch m {
	case SyncFree:
		return "free"
	case SyncClocked:
		return "clocked"
	case SyncTriggered:
		return "triggered"
	}
	return fmt.Sprintf("SyncMode(%d)", int8(m))
}

// Preset is a shape together with the channel settings it was saved with.
type Preset struct {
	Shape     Shape    `json:"shape"`
	Length    float32  `json:"length"`
	Sync      SyncMode `json:"sync"`
	Smoothing float32  `json:"smoothing"`
}

// DefaultPreset is the reset state of a channel.
func DefaultPreset() Preset {
	return Preset{Shape: DefaultShape(), Length: 1, Sync: SyncFree}
}

// Validate checks the shape and the settings.
func (p Preset) Validate() error {
	if err := p.Shape.Validate(); err != nil {
		return fmt.Errorf("shape: %w", err)
	}
	if !(p.Length > 0) {
		return errors.New("length must be > 0")
	}
	if p.Sync < 0 || p.Sync >= numSyncModes {
		return fmt.Errorf("sync must be in [0,%d]", numSyncModes-1)
	}
	if p.Smoothing < 0 || p.Smoothing > 1 {
		return errors.New("smoothing must be in [0,1]")
	}
	return nil
}

// maxHistory bounds the undo stack of a channel.
const maxHistory = 32

// State is an immutable snapshot of one channel. A new State is published for
// every change, so readers never see a partial update.
type State struct {
	Preset
	PresetPath string
	ShapePath  string

	history []Shape
}

// CanUndo reports whether an earlier shape is on the undo stack.
func (s *State) CanUndo() bool { return len(s.history) > 0 }

// HistoryLen returns the depth of the undo stack.
func (s *State) HistoryLen() int { return len(s.history) }

// withShape returns a copy of s carrying shape, pushing the old shape on the
// undo stack when withHistory is set.
func (s *State) withShape(shape Shape, withHistory bool) *State {
	next := *s
	next.Shape = shape
	if withHistory {
		next.history = pushHistory(s.history, s.Shape)
	}
	return &next
}

func pushHistory(h []Shape, shape Shape) []Shape {
	if len(h) >= maxHistory {
		h = h[len(h)-maxHistory+1:]
	}
	out := make([]Shape, len(h), len(h)+1)
	copy(out, h)
	return append(out, shape)
}
