package dsp

// Meter ballistics in seconds.
const (
	VuAttack  = 0.001
	VuRelease = 0.3
)

// VuMeter follows the peak level of a stereo signal: the level rises toward
// |x| with the attack time constant and falls with the release one. The zero
// value meters instantly; use SetTimes for VuAttack and VuRelease.
type VuMeter struct {
	attack  float32
	release float32
	level   [2]float32
}

// SetTimes sets the attack and release time constants. A time constant at or
// below the sample period makes that direction instant.
func (v *VuMeter) SetTimes(attack, release float32) {
	v.attack = max(attack, 0)
	v.release = max(release, 0)
}

// Process advances the meter by dt seconds with one stereo frame.
func (v *VuMeter) Process(dt float32, sig [2]float32) {
	for i, x := range sig {
		if x < 0 {
			x = -x
		}
		tau := v.release
		if x > v.level[i] {
			tau = v.attack
		}
		coef := float32(1)
		if tau > dt {
			coef = dt / tau
		}
		v.level[i] = FlushDenormals(v.level[i] + (x-v.level[i])*coef)
	}
}

// Level returns the current left and right levels.
func (v *VuMeter) Level() [2]float32 { return v.level }

// Reset drops both levels to zero.
func (v *VuMeter) Reset() { v.level = [2]float32{} }
