package mixer

// AuxReturn mixes one stereo aux return coming back from the expander. Its
// pan, fader, mute, solo and group arrive through the 20-value staggered batch.
type AuxReturn struct {
	channel
	index int

	pan       float32
	faderGain float32 // already linear, CV applied by the expander
	muted     bool
	soloed    bool
	group     int
}

func (r *AuxReturn) construct(index int, gInfo *GlobalInfo) {
	r.index = index
	r.channel.construct(gInfo, nil)
}

func (r *AuxReturn) onReset() {
	r.channel.onReset()
	r.pan = 0.5
	r.faderGain = 0
	r.muted = false
	r.soloed = false
	r.setGroup(0)
}

// applyReturnValues copies this return's slots out of the reconstructed batch.
func (r *AuxReturn) applyReturnValues(v []float32) {
	r.pan = clamp(v[r.index], 0, 1)
	r.faderGain = clamp(v[NumAux+r.index], 0, AuxReturnLaw.MaxLinearGain)
	r.muted = v[2*NumAux+r.index] >= 0.5
	r.soloed = v[3*NumAux+r.index] >= 0.5
	r.setGroup(int(v[4*NumAux+r.index] + 0.5))
	r.gInfo.updateReturnSoloBit(r.index, r.soloed)
}

func (r *AuxReturn) setGroup(grp int) {
	grp = max(0, min(NumGroups, grp))
	if grp == r.group {
		return
	}
	if r.gInfo != nil {
		r.gInfo.moveGroupUsage(NumTracks+r.index, r.group, grp)
	}
	r.group = grp
}

// updateSlowValues resolves return solos, which only silence other returns.
func (r *AuxReturn) updateSlowValues() {
	mask := r.gInfo.returnSoloBitMask
	if mask == 0 || mask&(1<<r.index) != 0 {
		r.audible = 1
	} else {
		r.audible = 0
	}
}

// AudibleTarget is 1 when the return should be heard.
func (r *AuxReturn) AudibleTarget() float32 {
	if r.muted {
		return 0
	}
	return r.audible
}

// process mixes the return into its group bus or the master bus.
func (r *AuxReturn) process(mix *[mixLen]float32, returns *[2 * NumAux]float32) {
	sig := [2]float32{returns[2*r.index], returns[2*r.index+1]}
	r.processFrame(sig, false, r.gInfo.stereoLawForBus(), r.pan, r.faderGain, r.AudibleTarget())
	bus := 2 * r.group
	mix[bus] += r.post[0]
	mix[bus+1] += r.post[1]
}

// Group returns the assigned group (1-4) or 0.
func (r *AuxReturn) Group() int { return r.group }
