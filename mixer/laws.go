package mixer

import (
	"math"
)

const (
	AntipopSlewFast  = 125.0 // mute, solo, dim, mono
	AntipopSlewSlow  = 25.0  // pan, fader
	MinFadeRate      = 0.1
	MaxFadeRate      = 30.0
	MinHPFCutoffFreq = 20.0
	MaxLPFCutoffFreq = 20000.0

	// settable cutoff ranges; the ends past Min/MaxXPFCutoffFreq mean off
	HPFCutoffFreqLow  = 13.0
	HPFCutoffFreqHigh = 350.0
	LPFCutoffFreqLow  = 3000.0
	LPFCutoffFreqHigh = 21000.0

	defaultHPFCutoffFreq = 13.0
	defaultLPFCutoffFreq = 20010.0
	maxGainAdjustDB      = 20.0
	defaultDimGain       = 0.25
)

// GainLaw maps a normalized fader position to a linear gain with a power law.
type GainLaw struct {
	Exponent      int
	MaxLinearGain float32
}

var (
	TrackFaderLaw        = GainLaw{Exponent: 3, MaxLinearGain: 2.0} // +6 dB
	IndividualAuxSendLaw = GainLaw{Exponent: 2, MaxLinearGain: 1.0}
	GlobalAuxSendLaw     = GainLaw{Exponent: 2, MaxLinearGain: 4.0}
	AuxReturnLaw         = GainLaw{Exponent: 3, MaxLinearGain: 2.0}
	MasterFaderLaw       = GainLaw{Exponent: 3, MaxLinearGain: 2.0}
)

// MaxParam is the fader position producing MaxLinearGain.
func (l GainLaw) MaxParam() float32 {
	return float32(math.Pow(float64(l.MaxLinearGain), 1.0/float64(l.Exponent)))
}

// LinearGain clamps p to [0, MaxParam] and applies the power law.
func (l GainLaw) LinearGain(p float32) float32 {
	return powi(clamp(p, 0, l.MaxParam()), l.Exponent)
}

// DB is the displayed level of fader position p.
func (l GainLaw) DB(p float32) float32 {
	if p <= 0 {
		return float32(math.Inf(-1))
	}
	return 20 * float32(l.Exponent) * float32(math.Log10(float64(p)))
}

// LinearGain is p^exponent with p bounded to [0, maxLinearGain^(1/exponent)].
func LinearGain(p, maxLinearGain float32, exponent int) float32 {
	return GainLaw{Exponent: exponent, MaxLinearGain: maxLinearGain}.LinearGain(p)
}

func powi(x float32, n int) float32 {
	r := float32(1)
	for ; n > 0; n-- {
		r *= x
	}
	return r
}

// CalcDimGainIntegerDB rounds a dim gain to the nearest whole dB.
func CalcDimGainIntegerDB(dimGain float32) float32 {
	integerDB := math.Round(20 * math.Log10(float64(dimGain)))
	return float32(math.Pow(10, integerDB/20))
}

// dbToLinear converts the ±20 dB trim. It runs only on settings changes.
func dbToLinear(db float32) float32 {
	return float32(math.Pow(10, float64(db)/20))
}

// PanLawMono selects how a mono input is spread across the stereo pair.
type PanLawMono int8

const (
	PanLawMono0dB   PanLawMono = iota // linear, clipped at unity: no centre boost
	PanLawMono3dB                     // equal power
	PanLawMono4p5dB                   // between equal power and linear
	PanLawMono6dB                     // linear, +6 dB at the sides
	numPanLawMono
)

// PanLawStereo selects how a stereo input is panned.
type PanLawStereo int8

const (
	PanLawStereoBalanceLinear PanLawStereo = iota
	PanLawStereoBalanceEqualPower
	PanLawStereoTruePan
	PanLawStereoPerTrack // global setting only: each track picks its own
	numPanLawStereo
)

// sinCos approximates sin and cos on [0, pi/2] with a fifth-order Maclaurin series.
func sinCos(theta float32) (s, c float32) {
	s = theta + theta*theta*theta*(-0.166666667+theta*theta*0.00833333333)
	theta = math.Pi/2 - theta
	c = theta + theta*theta*theta*(-0.166666667+theta*theta*0.00833333333)
	return s, c
}

func sinCosSqrt2(theta float32) (s, c float32) {
	s, c = sinCos(theta)
	return s * math.Sqrt2, c * math.Sqrt2
}

// MonoPanCoefficients returns the left and right gains for a mono source at pan.
func MonoPanCoefficients(law PanLawMono, pan float32) (l, r float32) {
	pan = clamp(pan, 0, 1)
	switch law {
	case PanLawMono3dB:
		r, l = sinCosSqrt2(pan * math.Pi / 2)
	case PanLawMono4p5dB:
		s, c := sinCosSqrt2(pan * math.Pi / 2)
		r = float32(math.Sqrt(float64(s * pan * 2)))
		l = float32(math.Sqrt(float64(c * (2 - pan*2))))
	case PanLawMono6dB:
		r = pan * 2
		l = 2 - r
	default:
		r = min(1, pan*2)
		l = min(1, 2-pan*2)
	}
	return l, r
}

// gainMatrix routes a stereo pair: outL = inL*m[0] + inR*m[1], outR = inL*m[2] + inR*m[3].
type gainMatrix = [4]float32

// panMatrix builds the routing for a channel at pan. mono means only the left
// input carries signal and is duplicated to both sides.
func panMatrix(mono bool, lawMono PanLawMono, lawStereo PanLawStereo, pan float32) gainMatrix {
	pan = clamp(pan, 0, 1)
	if mono {
		l, r := MonoPanCoefficients(lawMono, pan)
		return gainMatrix{l, 0, 0, r}
	}
	switch lawStereo {
	case PanLawStereoBalanceEqualPower:
		r, l := sinCosSqrt2(pan * math.Pi / 2)
		return gainMatrix{min(1, l), 0, 0, min(1, r)}
	case PanLawStereoTruePan:
		if pan <= 0.5 {
			return gainMatrix{1, 1 - pan*2, 0, pan * 2}
		}
		return gainMatrix{2 - pan*2, 0, pan*2 - 1, 1}
	default:
		return gainMatrix{min(1, 2-pan*2), 0, 0, min(1, pan*2)}
	}
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
