package mixer

import (
	"github.com/cwbudde/algo-mixmaster/dsp"
	"github.com/cwbudde/algo-mixmaster/host"
)

// channel is the signal path shared by tracks, groups and aux returns:
// filters, trim, pan, fader and the fade/mute/solo gain.
type channel struct {
	gInfo *GlobalInfo
	label []byte // 4 chars in the owner's label buffer, not null terminated

	// persisted
	gainAdjustDB  float32
	fadeRate      float32
	fadeProfile   float32
	hpfCutoffFreq float32
	lpfCutoffFreq float32

	// derived
	gainAdjust float32
	hpf        dsp.StereoFilter
	lpf        dsp.StereoFilter
	audible    float32 // solo resolution, refreshed at control rate
	fade       fadeState
	muteSolo   dsp.SlewLimiter
	panSlew    dsp.SlewLimiter4
	faderSlew  dsp.SlewLimiter
	vu         dsp.VuMeter

	pre  [2]float32
	post [2]float32
}

func (c *channel) construct(gInfo *GlobalInfo, label []byte) {
	c.gInfo = gInfo
	c.label = label
	c.muteSolo.SetRate(AntipopSlewFast)
	c.panSlew.SetRate(AntipopSlewSlow)
	c.faderSlew.SetRate(AntipopSlewSlow)
	c.vu.SetTimes(dsp.VuAttack, dsp.VuRelease)
}

func (c *channel) onReset() {
	c.setGainAdjustDB(0)
	c.fadeRate = 0
	c.fadeProfile = 0
	c.hpfCutoffFreq = defaultHPFCutoffFreq
	c.lpfCutoffFreq = defaultLPFCutoffFreq
	c.resetNonJson()
}

func (c *channel) resetNonJson() {
	c.applyFilters()
	c.hpf.Reset()
	c.lpf.Reset()
	c.audible = 1
	c.fade.reset(1)
	c.muteSolo.Reset(1)
	c.panSlew.Reset([4]float32{})
	c.faderSlew.Reset(0)
	c.vu.Reset()
	c.pre = [2]float32{}
	c.post = [2]float32{}
}

func (c *channel) setGainAdjustDB(db float32) {
	c.gainAdjustDB = clamp(db, -maxGainAdjustDB, maxGainAdjustDB)
	if c.gainAdjustDB == 0 {
		c.gainAdjust = 1
	} else {
		c.gainAdjust = dbToLinear(c.gainAdjustDB)
	}
}

func (c *channel) setFadeRate(rate float32)       { c.fadeRate = clamp(rate, 0, MaxFadeRate) }
func (c *channel) setFadeProfile(profile float32) { c.fadeProfile = clamp(profile, -1, 1) }

func (c *channel) setHPFCutoffFreq(fc float32) {
	c.hpfCutoffFreq = fc
	c.applyFilters()
}

func (c *channel) setLPFCutoffFreq(fc float32) {
	c.lpfCutoffFreq = fc
	c.applyFilters()
}

// applyFilters recomputes coefficients; out-of-band cutoffs bypass the filter.
func (c *channel) applyFilters() {
	if c.gInfo == nil || c.gInfo.sampleRate <= 0 {
		return
	}
	if c.hpfCutoffFreq >= MinHPFCutoffFreq {
		c.hpf.SetHighpass(c.hpfCutoffFreq, c.gInfo.sampleRate)
	} else {
		c.hpf.Disable()
	}
	if c.lpfCutoffFreq <= MaxLPFCutoffFreq {
		c.lpf.SetLowpass(c.lpfCutoffFreq, c.gInfo.sampleRate)
	} else {
		c.lpf.Disable()
	}
}

// processFrame runs one stereo frame through the channel. mono means only
// sig[0] carries signal; faderGain is already linear; target is 0 for silent
// and 1 for audible.
func (c *channel) processFrame(sig [2]float32, mono bool, lawStereo PanLawStereo, pan, faderGain, target float32) {
	dt := c.gInfo.sampleTime

	fadeGain := c.fade.step(target, c.fadeRate, c.fadeProfile, dt, c.gInfo.symmetricalFade)
	gain := c.muteSolo.Process(dt, fadeGain)

	if mono {
		sig[1] = sig[0]
	}
	c.hpf.Process(&sig)
	c.lpf.Process(&sig)
	sig[0] *= c.gainAdjust
	sig[1] *= c.gainAdjust

	target4 := panMatrix(mono, c.gInfo.panLawMono, lawStereo, pan)
	var m gainMatrix
	c.panSlew.Process(dt, &target4, &m)
	// pre-fader tap sits after pan, ahead of fader and fade/mute/solo
	if mono {
		c.pre[0] = sig[0] * m[0]
		c.pre[1] = sig[0] * m[3]
	} else {
		c.pre[0] = sig[0]*m[0] + sig[1]*m[1]
		c.pre[1] = sig[0]*m[2] + sig[1]*m[3]
	}

	g := c.faderSlew.Process(dt, faderGain) * gain
	c.post[0] = c.pre[0] * g
	c.post[1] = c.pre[1] * g
	c.vu.Process(dt, c.post)
}

// readPan returns the pan knob offset by a ±5V CV, clamped to [0,1].
func readPan(param *host.Param, cv *host.Port) float32 {
	pan := param.Value()
	if cv != nil && cv.IsConnected() {
		pan += clamp(cv.Voltage(0), -5, 5) * 0.1
	}
	return clamp(pan, 0, 1)
}

// readFader returns the linear fader gain scaled by a 0-10V CV.
func readFader(law GainLaw, param *host.Param, cv *host.Port) float32 {
	gain := law.LinearGain(param.Value())
	if cv != nil && cv.IsConnected() {
		gain *= clamp(cv.Voltage(0)*0.1, 0, 1)
	}
	return gain
}

// Pre returns the pre-fader tap (after filters, trim and pan).
func (c *channel) Pre() [2]float32 { return c.pre }

// Post returns the post-fader tap (pre scaled by fader and fade/mute/solo gain).
func (c *channel) Post() [2]float32 { return c.post }

// Vu returns the metered post-fader level.
func (c *channel) Vu() [2]float32 { return c.vu.Level() }

// FadeGain returns the unsmoothed fade gain.
func (c *channel) FadeGain() float32 { return c.fade.gain }

// FadeGainX returns the fade curve position.
func (c *channel) FadeGainX() float32 { return c.fade.gainX }

// ResolvedGain returns the smoothed fade/mute/solo gain applied this sample.
func (c *channel) ResolvedGain() float32 { return c.muteSolo.Out() }

// Label returns the 4-character label.
func (c *channel) Label() string { return string(c.label) }

// HPFCutoffFreq returns the highpass cutoff; below MinHPFCutoffFreq the filter is off.
func (c *channel) HPFCutoffFreq() float32 { return c.hpfCutoffFreq }

// LPFCutoffFreq returns the lowpass cutoff; above MaxLPFCutoffFreq the filter is off.
func (c *channel) LPFCutoffFreq() float32 { return c.lpfCutoffFreq }

// FiltersActive reports the HPF and LPF states.
func (c *channel) FiltersActive() (hpf, lpf bool) { return c.hpf.Enabled(), c.lpf.Enabled() }
