package mixer

import (
	"github.com/cwbudde/algo-mixmaster/dsp"
	"github.com/cwbudde/algo-mixmaster/host"
)

// DirectOutsMode selects the tap used for direct outputs and aux sends.
type DirectOutsMode int8

const (
	DirectOutsPreFader DirectOutsMode = iota
	DirectOutsPostFader
	DirectOutsPerTrack // global setting only
	numDirectOutsModes
)

// Color and cloak bytes, packed into one word on the expander link.
const (
	CcCloakedMode = iota // 0x00 or 0xFF so it can be used as a mask
	CcVuColor
	CcDispColor
	CcDetailsShow
)

// GlobalInfo is the state shared by every channel of one mixer. It is owned by
// the audio thread: solo masks and group usage are written by the refresh
// tick, everything else by settings calls made between samples.
type GlobalInfo struct {
	params []host.Param

	// persisted
	directOutsMode  DirectOutsMode
	auxSendsMode    DirectOutsMode
	panLawMono      PanLawMono
	panLawStereo    PanLawStereo
	symmetricalFade bool
	colorAndCloak   [4]int8
	dimGain         float32

	// derived
	soloBitMask       uint32 // tracks in bits 0-15, groups in 16-19
	returnSoloBitMask uint32 // aux returns in bits 0-3
	groupUsage        [NumGroups]uint32
	dimGainIntegerDB  float32
	sampleRate        float32
	sampleTime        float32
	slowDirty         bool // modes or colors changed since the expander last heard

	masterFaderTarget float32
	masterMuteDim     float32
	masterMono        float32
	masterFader       dsp.SlewLimiter
	masterGain        dsp.SlewLimiter
	masterMonoSlew    dsp.SlewLimiter
	masterVu          dsp.VuMeter
}

func (g *GlobalInfo) construct(params []host.Param, sampleRate float32) {
	g.params = params
	g.masterFader.SetRate(AntipopSlewSlow)
	g.masterGain.SetRate(AntipopSlewFast)
	g.masterMonoSlew.SetRate(AntipopSlewFast)
	g.masterVu.SetTimes(dsp.VuAttack, dsp.VuRelease)
	g.setSampleRate(sampleRate)
}

func (g *GlobalInfo) setSampleRate(sampleRate float32) {
	g.sampleRate = sampleRate
	g.sampleTime = 1 / sampleRate
}

func (g *GlobalInfo) onReset() {
	g.directOutsMode = DirectOutsPostFader
	g.auxSendsMode = DirectOutsPostFader
	g.panLawMono = PanLawMono3dB
	g.panLawStereo = PanLawStereoBalanceLinear
	g.symmetricalFade = false
	g.colorAndCloak = [4]int8{}
	g.setDimGain(defaultDimGain)
	g.resetNonJson()
}

func (g *GlobalInfo) resetNonJson() {
	g.soloBitMask = 0
	g.returnSoloBitMask = 0
	g.groupUsage = [NumGroups]uint32{}
	g.masterFader.Reset(0)
	g.masterGain.Reset(0)
	g.masterMonoSlew.Reset(0)
	g.masterVu.Reset()
	g.updateMasterGain()
}

func (g *GlobalInfo) setDimGain(dimGain float32) {
	g.dimGain = clamp(dimGain, 0.001, 1)
	g.dimGainIntegerDB = CalcDimGainIntegerDB(g.dimGain)
}

// soloParam returns the solo register of channel i: tracks 0-15, groups 16-19.
func soloParam(i int) int {
	if i < NumTracks {
		return TrackSoloParams + i
	}
	return GroupSoloParams + i - NumTracks
}

// updateSoloBit refreshes the solo bit of channel i from its button.
func (g *GlobalInfo) updateSoloBit(i int) {
	if g.params[soloParam(i)].Value() >= 0.5 {
		g.soloBitMask |= 1 << i
	} else {
		g.soloBitMask &^= 1 << i
	}
}

func (g *GlobalInfo) updateReturnSoloBit(aux int, soloed bool) {
	if soloed {
		g.returnSoloBitMask |= 1 << aux
	} else {
		g.returnSoloBitMask &^= 1 << aux
	}
}

// SoloActive reports whether any track or group is soloed.
func (g *GlobalInfo) SoloActive() bool { return g.soloBitMask != 0 }

// SoloBitMask returns the channel solo mask.
func (g *GlobalInfo) SoloBitMask() uint32 { return g.soloBitMask }

// moveGroupUsage records that member left group oldGrp and joined newGrp
// (1-based, 0 for none). Members are tracks 0-15 and aux returns 16-19.
func (g *GlobalInfo) moveGroupUsage(member, oldGrp, newGrp int) {
	if oldGrp > 0 {
		g.groupUsage[oldGrp-1] &^= 1 << member
	}
	if newGrp > 0 {
		g.groupUsage[newGrp-1] |= 1 << member
	}
}

// GroupUsage returns the member mask of group grp (0-based).
func (g *GlobalInfo) GroupUsage(grp int) uint32 { return g.groupUsage[grp] }

// updateMasterGain resolves the master fader, mute, dim and mono buttons into
// the targets the master stage slews toward.
func (g *GlobalInfo) updateMasterGain() {
	if g.params == nil {
		return
	}
	g.masterFaderTarget = MasterFaderLaw.LinearGain(g.params[MainFaderParam].Value())
	switch {
	case g.params[MainMuteParam].Value() >= 0.5:
		g.masterMuteDim = 0
	case g.params[MainDimParam].Value() >= 0.5:
		g.masterMuteDim = g.dimGainIntegerDB
	default:
		g.masterMuteDim = 1
	}
	g.masterMono = 0
	if g.params[MainMonoParam].Value() >= 0.5 {
		g.masterMono = 1
	}
}

// masterStage applies the smoothed master gain pair to the master bus.
func (g *GlobalInfo) masterStage(mix *[mixLen]float32) {
	dt := g.sampleTime
	gain := g.masterFader.Process(dt, g.masterFaderTarget) * g.masterGain.Process(dt, g.masterMuteDim)
	if mono := g.masterMonoSlew.Process(dt, g.masterMono); mono > 0 {
		m := (mix[0] + mix[1]) * 0.5
		mix[0] = crossfade(mix[0], m, mono)
		mix[1] = crossfade(mix[1], m, mono)
	}
	mix[0] *= gain
	mix[1] *= gain
	g.masterVu.Process(dt, [2]float32{mix[0], mix[1]})
}

// DirectOutsMode returns the global direct-outs setting.
func (g *GlobalInfo) DirectOutsMode() DirectOutsMode { return g.directOutsMode }

// PanLawMono returns the mono pan law.
func (g *GlobalInfo) PanLawMono() PanLawMono { return g.panLawMono }

// PanLawStereo returns the global stereo pan mode.
func (g *GlobalInfo) PanLawStereo() PanLawStereo { return g.panLawStereo }

// SymmetricalFade reports whether fades retrace their curve on reversal.
func (g *GlobalInfo) SymmetricalFade() bool { return g.symmetricalFade }

// SampleTime is the duration of one sample in seconds.
func (g *GlobalInfo) SampleTime() float32 { return g.sampleTime }

// DimGainIntegerDB returns the dim gain rounded to a whole dB.
func (g *GlobalInfo) DimGainIntegerDB() float32 { return g.dimGainIntegerDB }
