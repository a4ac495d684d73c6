package mixer

import (
	"github.com/cwbudde/algo-approx"
)

const (
	fadeCurveA     = 4.0
	fadeCurveEAMin = 53.598150033144236 // e^A - 1

	// fadeResyncTolerance is how far the curve at gainX may drift from the
	// gain before a symmetrical fade re-seeds its position.
	fadeResyncTolerance = 1e-3
)

func expCurve(x float32) float32 {
	return (approx.FastExp(fadeCurveA*x) - 1) / fadeCurveEAMin
}

func logCurve(x float32) float32 {
	return approx.FastLog(x*fadeCurveEAMin+1) / fadeCurveA
}

// fadeCurve maps a curve position in [0,1] to a gain for shape in [-1,1].
func fadeCurve(x, shape float32) float32 {
	g := x
	if shape > 0 {
		g = crossfade(g, expCurve(x), shape)
	} else if shape < 0 {
		g = crossfade(g, logCurve(x), -shape)
	}
	return clamp(g, 0, 1)
}

// fadeCurveInverse returns the curve position whose gain is g. The curve is
// monotone, so bisection converges for every shape.
func fadeCurveInverse(g, shape float32) float32 {
	if g <= 0 {
		return 0
	}
	if g >= 1 {
		return 1
	}
	lo, hi := float32(0), float32(1)
	for i := 0; i < 24; i++ {
		mid := 0.5 * (lo + hi)
		if fadeCurve(mid, shape) < g {
			lo = mid
		} else {
			hi = mid
		}
	}
	return 0.5 * (lo + hi)
}

func crossfade(a, b, t float32) float32 {
	return a + (b-a)*t
}

// updateFadeGain advances fadeGain one step toward target (0 or 1).
//
// fadeGainX is the position along the fade curve. With symmetrical fades the
// gain is a direct function of fadeGainX, so a reversal retraces the same
// curve. Otherwise fadeGainX measures progress since the ramp started and only
// the per-step delta follows the curve.
//
// shape in [-1,1]: negative bends toward a log curve, positive toward an
// exponential one, 0 is linear.
func updateFadeGain(fadeGain, target float32, fadeGainX *float32, timeStepX, shape float32, symmetricalFade bool) float32 {
	if symmetricalFade {
		switch {
		case target > *fadeGainX:
			*fadeGainX = min(*fadeGainX+timeStepX, target)
		case target < *fadeGainX:
			*fadeGainX = max(*fadeGainX-timeStepX, target)
		}
		if *fadeGainX == target {
			return target
		}
		return fadeCurve(*fadeGainX, shape)
	}

	if fadeGain == target {
		return fadeGain
	}
	delta := timeStepX
	x := *fadeGainX
	if shape > 0 {
		delta = crossfade(delta, expCurve(x+timeStepX)-expCurve(x), shape)
	} else if shape < 0 {
		delta = crossfade(delta, logCurve(x+timeStepX)-logCurve(x), -shape)
	}
	if delta <= 0 {
		// the curve approximation can flatten out near x=0; keep moving
		delta = timeStepX * 1e-3
	}
	*fadeGainX += timeStepX

	if target > fadeGain {
		return min(fadeGain+delta, target)
	}
	return max(fadeGain-delta, target)
}

// fadeState resolves a channel's audible target (0 or 1) into a fading gain.
type fadeState struct {
	gain        float32
	gainX       float32
	target      float32
	profile     float32
	symmetrical bool
}

func (f *fadeState) reset(target float32) {
	f.gain = target
	f.gainX = target
	f.target = target
}

// step moves the fade one sample. rate is the full-scale fade time in seconds;
// below MinFadeRate the gain jumps straight to the target.
func (f *fadeState) step(target, rate, profile, sampleTime float32, symmetrical bool) float32 {
	if rate < MinFadeRate {
		f.reset(target)
		return f.gain
	}
	switch {
	case !symmetrical && target != f.target:
		f.gainX = 0
	case symmetrical && (!f.symmetrical || target != f.target || profile != f.profile):
		// the position must match the gain or the next step jumps along
		// the curve
		if d := fadeCurve(f.gainX, profile) - f.gain; d > fadeResyncTolerance || d < -fadeResyncTolerance {
			f.gainX = fadeCurveInverse(f.gain, profile)
		}
	}
	f.symmetrical = symmetrical
	f.profile = profile
	f.target = target
	if f.gain != target {
		f.gain = updateFadeGain(f.gain, target, &f.gainX, sampleTime/rate, profile, symmetrical)
	}
	return f.gain
}
