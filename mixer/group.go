package mixer

import (
	"github.com/cwbudde/algo-mixmaster/host"
)

// MixerGroup is a stereo sub-bus fed by the tracks and aux returns assigned to it.
type MixerGroup struct {
	channel
	index int

	paPan, paFader, paMute, paSolo *host.Param
	inVol, inPan                   *host.Port
}

func (g *MixerGroup) construct(index int, gInfo *GlobalInfo, m *host.Module, label []byte) {
	g.index = index
	g.channel.construct(gInfo, label)
	g.paPan = &m.Params[GroupPanParams+index]
	g.paFader = &m.Params[GroupFaderParams+index]
	g.paMute = &m.Params[GroupMuteParams+index]
	g.paSolo = &m.Params[GroupSoloParams+index]
	g.inVol = &m.Inputs[GroupVolInputs+index]
	g.inPan = &m.Inputs[GroupPanInputs+index]
}

// updateSlowValues resolves solo state. A group stays audible while any of its
// member tracks is soloed so the soloed track can be heard through it.
func (g *MixerGroup) updateSlowValues() {
	mask := g.gInfo.soloBitMask
	switch {
	case mask == 0:
		g.audible = 1
	case mask&(1<<(NumTracks+g.index)) != 0:
		g.audible = 1
	case mask&g.gInfo.groupUsage[g.index]&(1<<NumTracks-1) != 0:
		g.audible = 1
	default:
		g.audible = 0
	}
}

// AudibleTarget is 1 when the group should be heard.
func (g *MixerGroup) AudibleTarget() float32 {
	if g.paMute.Value() >= 0.5 {
		return 0
	}
	return g.audible
}

// process reads the group bus and accumulates post into the master bus.
func (g *MixerGroup) process(mix *[mixLen]float32) {
	bus := 2 * (g.index + 1)
	sig := [2]float32{mix[bus], mix[bus+1]}
	g.processFrame(sig, false, g.gInfo.stereoLawForBus(), readPan(g.paPan, g.inPan), readFader(TrackFaderLaw, g.paFader, g.inVol), g.AudibleTarget())
	mix[0] += g.post[0]
	mix[1] += g.post[1]
}

func (g *MixerGroup) directOut() [2]float32 {
	if g.gInfo.directOutsMode == DirectOutsPreFader {
		return g.pre
	}
	return g.post
}

// ToggleFade flips the mute button.
func (g *MixerGroup) ToggleFade() {
	if g.paMute.Value() >= 0.5 {
		g.paMute.SetValue(0)
	} else {
		g.paMute.SetValue(1)
	}
}

// stereoLawForBus is the pan mode of groups and returns, which have no
// per-channel setting.
func (g *GlobalInfo) stereoLawForBus() PanLawStereo {
	if g.panLawStereo == PanLawStereoPerTrack {
		return PanLawStereoBalanceLinear
	}
	return g.panLawStereo
}
