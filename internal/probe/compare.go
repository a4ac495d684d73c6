package probe

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
)

const (
	compareFFTSize = 2048
	compareHop     = compareFFTSize / 2
	minCompare     = 256
)

// ErrTooShort is returned when the overlap of two renders is too short to
// compare.
var ErrTooShort = errors.New("probe: renders too short to compare")

// Deviation describes how a stereo render departs from a reference render of
// the same scene.
type Deviation struct {
	Frames     int
	LagSamples int

	// GainDB is the candidate level relative to the reference per channel.
	GainDB [2]float64
	// ResidualDB is the level of candidate minus reference relative to the
	// reference per channel; -inf when the renders are identical.
	ResidualDB [2]float64
	// SpectralRMSEDB is the RMS dB difference of the averaged magnitude
	// spectra of the mono sums.
	SpectralRMSEDB float64
}

// Within reports whether both channel residuals are at or below maxResidualDB.
func (d Deviation) Within(maxResidualDB float64) bool {
	return d.ResidualDB[0] <= maxResidualDB && d.ResidualDB[1] <= maxResidualDB
}

// CompareStereo aligns cand to ref (both interleaved stereo) by
// cross-correlating their mono sums within maxLag frames, then measures the
// per-channel gain and residual and the spectral difference.
func CompareStereo(ref, cand []float32, maxLag int) (Deviation, error) {
	if len(ref)%2 != 0 || len(cand)%2 != 0 {
		return Deviation{}, fmt.Errorf("probe: odd interleaved stereo length %d/%d", len(ref), len(cand))
	}
	refMono, candMono := monoSum(ref), monoSum(cand)
	if maxLag < 0 {
		maxLag = 0
	}
	maxLag = min(maxLag, len(refMono)-1, len(candMono)-1)

	var d Deviation
	if maxLag > 0 {
		d.LagSamples = estimateLag(refMono, candMono, maxLag)
	}
	refOff, candOff := 0, 0
	if d.LagSamples >= 0 {
		refOff = d.LagSamples
	} else {
		candOff = -d.LagSamples
	}
	n := min(len(refMono)-refOff, len(candMono)-candOff)
	if n < minCompare {
		return Deviation{}, ErrTooShort
	}
	d.Frames = n

	refA := ref[2*refOff : 2*(refOff+n)]
	candA := cand[2*candOff : 2*(candOff+n)]
	for ch := 0; ch < 2; ch++ {
		refRMS := ChannelRMS(refA, ch, 2)
		if refRMS == 0 {
			// silent reference: residual in absolute dB re 1 V
			d.ResidualDB[ch] = DB(residualRMS(refA, candA, ch))
			continue
		}
		d.GainDB[ch] = DB(ChannelRMS(candA, ch, 2)) - DB(refRMS)
		d.ResidualDB[ch] = DB(residualRMS(refA, candA, ch)) - DB(refRMS)
	}

	spectral, err := spectralRMSEDB(refMono[refOff:refOff+n], candMono[candOff:candOff+n])
	if err != nil {
		return Deviation{}, err
	}
	d.SpectralRMSEDB = spectral
	return d, nil
}

func monoSum(interleaved []float32) []float64 {
	out := make([]float64, len(interleaved)/2)
	for i := range out {
		out[i] = 0.5 * (float64(interleaved[2*i]) + float64(interleaved[2*i+1]))
	}
	return out
}

func residualRMS(ref, cand []float32, ch int) float64 {
	var sum float64
	n := 0
	for i := ch; i < len(ref) && i < len(cand); i += 2 {
		e := float64(cand[i]) - float64(ref[i])
		sum += e * e
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}

// estimateLag returns the shift of cand against ref with the largest
// correlation; positive means ref starts later.
func estimateLag(ref, cand []float64, maxLag int) int {
	bestLag := 0
	best := math.Inf(-1)
	for lag := -maxLag; lag <= maxLag; lag++ {
		if s := dotAtLag(ref, cand, lag); s > best {
			best = s
			bestLag = lag
		}
	}
	return bestLag
}

func dotAtLag(a, b []float64, lag int) float64 {
	ai, bi := 0, 0
	if lag >= 0 {
		ai = lag
	} else {
		bi = -lag
	}
	n := min(len(a)-ai, len(b)-bi)
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[ai+i] * b[bi+i]
	}
	return sum
}

// spectralRMSEDB averages Hann-windowed magnitude spectra over the whole
// overlap and returns the RMS of their dB difference. Renders shorter than one
// FFT frame are zero padded.
func spectralRMSEDB(a, b []float64) (float64, error) {
	plan, err := algofft.NewPlanReal64(compareFFTSize)
	if err != nil {
		return 0, err
	}
	hann := make([]float64, compareFFTSize)
	for i := range hann {
		hann[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(compareFFTSize-1))
	}

	bins := compareFFTSize / 2
	avgA := make([]float64, bins)
	avgB := make([]float64, bins)
	specA := make([]complex128, bins+1)
	specB := make([]complex128, bins+1)
	bufA := make([]float64, compareFFTSize)
	bufB := make([]float64, compareFFTSize)

	n := min(len(a), len(b))
	for pos := 0; pos == 0 || pos+compareFFTSize <= n; pos += compareHop {
		for i := range bufA {
			bufA[i], bufB[i] = 0, 0
			if pos+i < n {
				bufA[i] = a[pos+i] * hann[i]
				bufB[i] = b[pos+i] * hann[i]
			}
		}
		plan.Forward(specA, bufA)
		plan.Forward(specB, bufB)
		for k := 1; k < bins; k++ {
			avgA[k] += cmplx.Abs(specA[k])
			avgB[k] += cmplx.Abs(specB[k])
		}
	}

	var sum float64
	for k := 1; k < bins; k++ {
		e := linToDB(avgA[k]) - linToDB(avgB[k])
		sum += e * e
	}
	return math.Sqrt(sum / float64(bins-1)), nil
}

func linToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20 * math.Log10(x)
}
