package dsp

import (
	"math"
	"math/rand"
	"testing"

	algofft "github.com/cwbudde/algo-fft"
)

func TestSlewLimiterReachesTargetInBoundedSteps(t *testing.T) {
	const dt = 1.0 / 1024.0
	cases := []struct {
		name     string
		rate     float32
		from, to float32
	}{
		{"rise", 128, 0, 1},
		{"fall", 128, 1, 0},
		{"partial step", 128, 0, 0.3},
		{"slow fader", 32, 0.25, 2},
		{"fast mute", 256, 1, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSlewLimiter(tc.rate)
			s.Reset(tc.from)
			step := float64(tc.rate) * dt
			maxSteps := int(math.Ceil(math.Abs(float64(tc.to-tc.from)) / step))
			for i := 0; i < maxSteps; i++ {
				s.Process(dt, tc.to)
			}
			if s.Out() != tc.to {
				t.Fatalf("not settled after %d steps: got=%f want=%f", maxSteps, s.Out(), tc.to)
			}
		})
	}
}

func TestSlewLimiterNeverOvershoots(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 200; trial++ {
		from := rng.Float32()*4 - 2
		to := rng.Float32()*4 - 2
		rate := 1 + rng.Float32()*200
		dt := float32(1.0 / 44100.0)
		s := NewSlewLimiter(rate)
		s.Reset(from)
		prev := from
		for i := 0; i < 200000 && s.Out() != to; i++ {
			out := s.Process(dt, to)
			if to > from && (out > to || out < prev) {
				t.Fatalf("trial %d: rising output left [prev,target]: prev=%f out=%f target=%f", trial, prev, out, to)
			}
			if to < from && (out < to || out > prev) {
				t.Fatalf("trial %d: falling output left [target,prev]: prev=%f out=%f target=%f", trial, prev, out, to)
			}
			prev = out
		}
		if s.Out() != to {
			t.Fatalf("trial %d: never reached target %f (at %f)", trial, to, s.Out())
		}
	}
}

func TestTriggerFiresOncePerPress(t *testing.T) {
	var tr Trigger
	seq := []float32{0, 1, 1, 0.5, 1, 0, 0, 1}
	want := []bool{false, true, false, false, false, false, false, true}
	for i, v := range seq {
		if got := tr.Process(v); got != want[i] {
			t.Fatalf("step %d value %f: got=%v want=%v", i, v, got, want[i])
		}
	}
}

func TestBiquadMatchesFFTConvolutionOfImpulseResponse(t *testing.T) {
	const sr = 48000
	const n = 256
	h := make([]float32, n)
	f := NewHighpass(120, sr, ButterworthQ)
	for i := range h {
		in := float32(0)
		if i == 0 {
			in = 1
		}
		h[i] = f.Process(in)
	}

	rng := rand.New(rand.NewSource(3))
	x := make([]float32, n)
	for i := range x {
		x[i] = rng.Float32()*2 - 1
	}

	conv := make([]float32, len(h)+len(x)-1)
	if err := algofft.ConvolveReal(conv, h, x); err != nil {
		t.Fatalf("ConvolveReal error: %v", err)
	}

	g := NewHighpass(120, sr, ButterworthQ)
	for i := 0; i < n; i++ {
		y := g.Process(x[i])
		if math.Abs(float64(y-conv[i])) > 1e-3 {
			t.Fatalf("sample %d: filter=%f convolution=%f", i, y, conv[i])
		}
	}
}

func TestHighpassRemovesDCAndLowpassKeepsIt(t *testing.T) {
	const sr = 44100
	hp := NewHighpass(100, sr, ButterworthQ)
	lp := NewLowpass(1000, sr, ButterworthQ)
	var yh, yl float32
	for i := 0; i < sr; i++ {
		yh = hp.Process(1)
		yl = lp.Process(1)
	}
	if math.Abs(float64(yh)) > 1e-3 {
		t.Fatalf("highpass DC residue too large: %f", yh)
	}
	if math.Abs(float64(yl-1)) > 1e-3 {
		t.Fatalf("lowpass DC gain mismatch: %f", yl)
	}
}

func TestStereoFilterBypassIsExact(t *testing.T) {
	var f StereoFilter
	f.SetHighpass(200, 44100)
	sig := [2]float32{0.5, -0.5}
	f.Process(&sig)
	f.Disable()

	for _, v := range []float32{0.123456, -3.5, 7} {
		sig = [2]float32{v, -v}
		f.Process(&sig)
		if sig[0] != v || sig[1] != -v {
			t.Fatalf("bypass altered signal: got=%v want=[%f %f]", sig, v, -v)
		}
	}
	if f.Enabled() {
		t.Fatalf("filter still reports enabled after Disable")
	}
}

func TestVuMeterAttackAndRelease(t *testing.T) {
	const dt = 1.0 / 48000
	var v VuMeter
	v.SetTimes(VuAttack, VuRelease)
	for i := 0; i < 4800; i++ {
		v.Process(dt, [2]float32{5, -2})
	}
	lvl := v.Level()
	if math.Abs(float64(lvl[0]-5)) > 1e-3 || math.Abs(float64(lvl[1]-2)) > 1e-3 {
		t.Fatalf("level after 100 ms of DC: got=%v want=[5 2]", lvl)
	}

	prev := lvl[0]
	n := int(VuRelease / dt)
	for i := 0; i < n; i++ {
		v.Process(dt, [2]float32{})
		if l := v.Level()[0]; l > prev {
			t.Fatalf("sample %d: level rose during release from %f to %f", i, prev, l)
		} else {
			prev = l
		}
	}
	// one time constant leaves about 1/e of the level
	if want := 5 * math.Exp(-1); math.Abs(float64(prev)-want) > 0.05 {
		t.Fatalf("level after one release time: got=%f want=%f", prev, want)
	}
}

func TestVuMeterDecaysToExactZero(t *testing.T) {
	const dt = 1.0 / 48000
	var v VuMeter
	v.SetTimes(0.0001, 0.01)
	v.Process(dt, [2]float32{1, 1})
	for i := 0; i < 100000; i++ {
		v.Process(dt, [2]float32{})
	}
	if lvl := v.Level(); lvl != [2]float32{} {
		t.Fatalf("level did not flush to zero: %v", lvl)
	}
}

func TestVuMeterZeroValueIsInstant(t *testing.T) {
	var v VuMeter
	v.Process(1.0/44100, [2]float32{-0.7, 0.25})
	if lvl := v.Level(); lvl != [2]float32{0.7, 0.25} {
		t.Fatalf("zero value meter: got=%v want=[0.7 0.25]", lvl)
	}
	v.Reset()
	if lvl := v.Level(); lvl != [2]float32{} {
		t.Fatalf("after reset: %v", lvl)
	}
}

func TestFlushDenormals(t *testing.T) {
	for _, x := range []float32{1e-31, -1e-35, 1e-40} {
		if got := FlushDenormals(x); got != 0 {
			t.Fatalf("FlushDenormals(%g) = %g, want 0", x, got)
		}
	}
	for _, x := range []float32{1e-20, -0.5, 3} {
		if got := FlushDenormals(x); got != x {
			t.Fatalf("FlushDenormals(%g) = %g, want unchanged", x, got)
		}
	}
}

func TestLowpassImpulseTailFlushesToZero(t *testing.T) {
	f := NewLowpass(2000, 48000, ButterworthQ)
	f.Process(1)
	var y float32 = 1
	for i := 0; i < 48000 && y != 0; i++ {
		y = f.Process(0)
	}
	if y != 0 {
		t.Fatalf("impulse tail still %g after one second", y)
	}
}
