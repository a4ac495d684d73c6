package dsp

import (
	"math"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

// ButterworthQ is the quality factor of a second-order Butterworth section.
const ButterworthQ = 0.70710678118654752440

// Biquad implements a second-order IIR filter (no heap allocations in Process)
type Biquad struct {
	// Coefficients
	b0, b1, b2 float32
	a1, a2     float32

	// State (previous samples)
	x1, x2 float32 // input history
	y1, y2 float32 // output history
}

// Process processes one sample through the biquad filter
func (b *Biquad) Process(input float32) float32 {
	// Direct Form I implementation
	output := b.b0*input + b.b1*b.x1 + b.b2*b.x2 - b.a1*b.y1 - b.a2*b.y2
	output = FlushDenormals(output)

	b.x2 = b.x1
	b.x1 = input
	b.y2 = b.y1
	b.y1 = output

	return output
}

// Reset clears the filter state
func (b *Biquad) Reset() {
	b.x1, b.x2 = 0, 0
	b.y1, b.y2 = 0, 0
}

// SetLowpass recomputes the coefficients for an RBJ lowpass section.
// The filter state is kept so cutoff sweeps do not click.
func (b *Biquad) SetLowpass(cutoff, sampleRate, q float32) {
	cosw0, alpha := prewarp(cutoff, sampleRate, q)
	a0 := 1.0 + alpha
	b.set(
		(1.0-cosw0)/2.0/a0,
		(1.0-cosw0)/a0,
		(1.0-cosw0)/2.0/a0,
		-2.0*cosw0/a0,
		(1.0-alpha)/a0,
	)
}

// SetHighpass recomputes the coefficients for an RBJ highpass section.
func (b *Biquad) SetHighpass(cutoff, sampleRate, q float32) {
	cosw0, alpha := prewarp(cutoff, sampleRate, q)
	a0 := 1.0 + alpha
	b.set(
		(1.0+cosw0)/2.0/a0,
		-(1.0+cosw0)/a0,
		(1.0+cosw0)/2.0/a0,
		-2.0*cosw0/a0,
		(1.0-alpha)/a0,
	)
}

func (b *Biquad) set(b0, b1, b2, a1, a2 float64) {
	b.b0 = float32(b0)
	b.b1 = float32(b1)
	b.b2 = float32(b2)
	b.a1 = float32(a1)
	b.a2 = float32(a2)
}

func prewarp(cutoff, sampleRate, q float32) (cosw0, alpha float64) {
	nyquist := float64(sampleRate) * 0.5
	fc := math.Min(float64(cutoff), nyquist*0.98)
	if fc < 1 {
		fc = 1
	}
	w0 := 2.0 * math.Pi * fc / float64(sampleRate)
	return math.Cos(w0), math.Sin(w0) / (2.0 * float64(q))
}

// NewLowpass creates a lowpass biquad filter
func NewLowpass(cutoff, sampleRate, q float32) *Biquad {
	b := &Biquad{}
	b.SetLowpass(cutoff, sampleRate, q)
	return b
}

// NewHighpass creates a highpass biquad filter
func NewHighpass(cutoff, sampleRate, q float32) *Biquad {
	b := &Biquad{}
	b.SetHighpass(cutoff, sampleRate, q)
	return b
}

// StereoFilter is a switchable filter pair for one stereo channel. A disabled
// filter is a true bypass: Process returns its inputs untouched and the state
// is cleared so re-enabling starts from silence.
type StereoFilter struct {
	lr      [2]Biquad
	enabled bool
}

// Enabled reports whether the pair currently filters.
func (f *StereoFilter) Enabled() bool { return f.enabled }

// Disable switches the pair to bypass.
func (f *StereoFilter) Disable() {
	if f.enabled {
		f.enabled = false
		f.lr[0].Reset()
		f.lr[1].Reset()
	}
}

// SetLowpass enables the pair as a Butterworth lowpass.
func (f *StereoFilter) SetLowpass(cutoff, sampleRate float32) {
	f.lr[0].SetLowpass(cutoff, sampleRate, ButterworthQ)
	f.lr[1].SetLowpass(cutoff, sampleRate, ButterworthQ)
	f.enabled = true
}

// SetHighpass enables the pair as a Butterworth highpass.
func (f *StereoFilter) SetHighpass(cutoff, sampleRate float32) {
	f.lr[0].SetHighpass(cutoff, sampleRate, ButterworthQ)
	f.lr[1].SetHighpass(cutoff, sampleRate, ButterworthQ)
	f.enabled = true
}

// Process filters one stereo frame in place.
func (f *StereoFilter) Process(sig *[2]float32) {
	if !f.enabled {
		return
	}
	sig[0] = f.lr[0].Process(sig[0])
	sig[1] = f.lr[1].Process(sig[1])
}

// Reset clears both filter states.
func (f *StereoFilter) Reset() {
	f.lr[0].Reset()
	f.lr[1].Reset()
}

// FlushDenormals returns 0 for magnitudes below 1e-30, x otherwise.
func FlushDenormals(x float32) float32 {
	return float32(dspcore.FlushDenormals(float64(x)))
}
