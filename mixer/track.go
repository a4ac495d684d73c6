package mixer

import (
	"github.com/cwbudde/algo-mixmaster/host"
)

// MixerTrack is one of the 16 input channels.
type MixerTrack struct {
	channel
	index int

	paPan, paFader, paMute, paSolo *host.Param
	inL, inR, inVol, inPan         *host.Port

	// persisted
	group          int // 0 for none, 1-4
	directOutsMode DirectOutsMode
	panLawStereo   PanLawStereo
}

func (t *MixerTrack) construct(index int, gInfo *GlobalInfo, m *host.Module, label []byte) {
	t.index = index
	t.channel.construct(gInfo, label)
	t.paPan = &m.Params[TrackPanParams+index]
	t.paFader = &m.Params[TrackFaderParams+index]
	t.paMute = &m.Params[TrackMuteParams+index]
	t.paSolo = &m.Params[TrackSoloParams+index]
	t.inL = &m.Inputs[TrackSignalInputs+2*index]
	t.inR = &m.Inputs[TrackSignalInputs+2*index+1]
	t.inVol = &m.Inputs[TrackVolInputs+index]
	t.inPan = &m.Inputs[TrackPanInputs+index]
}

func (t *MixerTrack) onReset() {
	t.channel.onReset()
	t.group = 0
	t.directOutsMode = DirectOutsPostFader
	t.panLawStereo = PanLawStereoBalanceLinear
}

// updateSlowValues resolves solo state; called once per refresh cycle.
func (t *MixerTrack) updateSlowValues() {
	mask := t.gInfo.soloBitMask
	switch {
	case mask == 0:
		t.audible = 1
	case mask&(1<<t.index) != 0:
		t.audible = 1
	case t.group > 0 && mask&(1<<(NumTracks+t.group-1)) != 0:
		t.audible = 1
	default:
		t.audible = 0
	}
}

// AudibleTarget is 1 when the track should be heard, 0 when mute or solo silence it.
func (t *MixerTrack) AudibleTarget() float32 {
	if t.paMute.Value() >= 0.5 {
		return 0
	}
	return t.audible
}

// process runs one sample and accumulates post into the group or master bus.
func (t *MixerTrack) process(mix *[mixLen]float32) {
	var sig [2]float32
	mono := true
	if t.inL.IsConnected() {
		sig[0] = t.inL.Voltage(0)
		if t.inR.IsConnected() {
			sig[1] = t.inR.Voltage(0)
			mono = false
		}
	}

	t.processFrame(sig, mono, t.stereoLaw(), readPan(t.paPan, t.inPan), readFader(TrackFaderLaw, t.paFader, t.inVol), t.AudibleTarget())

	bus := 2 * t.group // group g accumulates at 2g, master at 0
	mix[bus] += t.post[0]
	mix[bus+1] += t.post[1]
}

func (t *MixerTrack) stereoLaw() PanLawStereo {
	if t.gInfo.panLawStereo == PanLawStereoPerTrack {
		return t.panLawStereo
	}
	return t.gInfo.panLawStereo
}

// directOut returns the tap used for this track's direct output.
func (t *MixerTrack) directOut() [2]float32 {
	mode := t.gInfo.directOutsMode
	if mode == DirectOutsPerTrack {
		mode = t.directOutsMode
	}
	if mode == DirectOutsPostFader {
		return t.post
	}
	return t.pre
}

func (t *MixerTrack) setGroup(grp int) {
	grp = max(0, min(NumGroups, grp))
	if grp == t.group {
		return
	}
	t.gInfo.moveGroupUsage(t.index, t.group, grp)
	t.group = grp
}

// incGroup cycles none, 1, 2, 3, 4, none.
func (t *MixerTrack) incGroup() { t.setGroup((t.group + 1) % (NumGroups + 1)) }

// decGroup cycles the other way.
func (t *MixerTrack) decGroup() { t.setGroup((t.group + NumGroups) % (NumGroups + 1)) }

// Group returns the assigned group (1-4) or 0.
func (t *MixerTrack) Group() int { return t.group }

// ToggleFade flips the mute button. With a fade rate set this fades the track
// out or back in.
func (t *MixerTrack) ToggleFade() {
	if t.paMute.Value() >= 0.5 {
		t.paMute.SetValue(0)
	} else {
		t.paMute.SetValue(1)
	}
}
