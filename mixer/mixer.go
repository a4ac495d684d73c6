package mixer

import (
	"fmt"

	"github.com/cwbudde/algo-mixmaster/dsp"
	"github.com/cwbudde/algo-mixmaster/host"
)

// Config configures a new MixMaster.
type Config struct {
	SampleRate float32
}

// DefaultConfig returns the 44.1 kHz configuration.
func DefaultConfig() Config {
	return Config{SampleRate: 44100}
}

// MixMaster is the 16-track, 4-group mixer module. An AuxExpander attached on
// its right adds four stereo aux sends and returns.
type MixMaster struct {
	mod   *host.Module
	gInfo GlobalInfo

	tracks  [NumTracks]MixerTrack
	groups  [NumGroups]MixerGroup
	returns [NumAux]AuxReturn

	// persisted
	labels     [4 * numChannels]byte
	panelTheme int32

	refresh *RefreshScheduler
	grpInc  [NumTracks]dsp.Trigger
	grpDec  [NumTracks]dsp.Trigger

	// expander link
	auxPresent   bool
	sendLevels   *StaggeredBatch
	returnValues *StaggeredBatch
	returnSigs   [2 * NumAux]float32
	auxSends     [2 * NumAux]float32
	updateSlow   bool
	fadeStagger  int
}

// New builds a MixMaster with every parameter at its default.
func New(cfg Config) (*MixMaster, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("mixer: sample rate must be positive, got %g", cfg.SampleRate)
	}
	mod, err := host.NewModule(ModelMixMaster, NumParams, NumInputs, NumOutputs)
	if err != nil {
		return nil, fmt.Errorf("mixer: %w", err)
	}
	m := &MixMaster{
		mod:          mod,
		refresh:      NewRefreshScheduler(NumTracks, 16),
		sendLevels:   NewStaggeredBatch(numSendLevels),
		returnValues: NewStaggeredBatch(numReturnValues),
	}
	m.configParams()
	mod.RightExpander.AllocMessages(MfaNumValues)
	mod.Outputs[MainOutputs].SetChannels(1)
	mod.Outputs[MainOutputs+1].SetChannels(1)

	m.gInfo.construct(mod.Params, cfg.SampleRate)
	for i := range m.tracks {
		m.tracks[i].construct(i, &m.gInfo, mod, m.labels[4*i:4*i+4])
	}
	for i := range m.groups {
		j := NumTracks + i
		m.groups[i].construct(i, &m.gInfo, mod, m.labels[4*j:4*j+4])
	}
	for i := range m.returns {
		m.returns[i].construct(i, &m.gInfo)
	}
	m.OnReset()
	return m, nil
}

func (m *MixMaster) configParams() {
	maxTFader := TrackFaderLaw.MaxParam()
	faderDB := float32(20 * TrackFaderLaw.Exponent)
	for i := 0; i < NumTracks; i++ {
		n := i + 1
		m.mod.ConfigParam(TrackPanParams+i, host.ParamConfig{Min: 0, Max: 1, Default: 0.5,
			Name: fmt.Sprintf("Track #%d pan", n), Unit: "%", DisplayMultiplier: 200, DisplayOffset: -100})
		m.mod.ConfigParam(TrackFaderParams+i, host.ParamConfig{Min: 0, Max: maxTFader, Default: 1,
			Name: fmt.Sprintf("Track #%d level", n), Unit: " dB", DisplayBase: -10, DisplayMultiplier: faderDB})
		m.mod.ConfigParam(TrackMuteParams+i, host.ParamConfig{Max: 1, Name: fmt.Sprintf("Track #%d mute", n)})
		m.mod.ConfigParam(TrackSoloParams+i, host.ParamConfig{Max: 1, Name: fmt.Sprintf("Track #%d solo", n)})
		m.mod.ConfigParam(GrpDecParams+i, host.ParamConfig{Max: 1, Name: fmt.Sprintf("Track #%d group -", n)})
		m.mod.ConfigParam(GrpIncParams+i, host.ParamConfig{Max: 1, Name: fmt.Sprintf("Track #%d group +", n)})
	}
	for i := 0; i < NumGroups; i++ {
		n := i + 1
		m.mod.ConfigParam(GroupPanParams+i, host.ParamConfig{Min: 0, Max: 1, Default: 0.5,
			Name: fmt.Sprintf("Group #%d pan", n), Unit: "%", DisplayMultiplier: 200, DisplayOffset: -100})
		m.mod.ConfigParam(GroupFaderParams+i, host.ParamConfig{Min: 0, Max: maxTFader, Default: 1,
			Name: fmt.Sprintf("Group #%d level", n), Unit: " dB", DisplayBase: -10, DisplayMultiplier: faderDB})
		m.mod.ConfigParam(GroupMuteParams+i, host.ParamConfig{Max: 1, Name: fmt.Sprintf("Group #%d mute", n)})
		m.mod.ConfigParam(GroupSoloParams+i, host.ParamConfig{Max: 1, Name: fmt.Sprintf("Group #%d solo", n)})
	}
	m.mod.ConfigParam(MainFaderParam, host.ParamConfig{Min: 0, Max: MasterFaderLaw.MaxParam(), Default: 1,
		Name: "Master level", Unit: " dB", DisplayBase: -10, DisplayMultiplier: float32(20 * MasterFaderLaw.Exponent)})
	m.mod.ConfigParam(MainMuteParam, host.ParamConfig{Max: 1, Name: "Master mute"})
	m.mod.ConfigParam(MainDimParam, host.ParamConfig{Max: 1, Name: "Master dim"})
	m.mod.ConfigParam(MainMonoParam, host.ParamConfig{Max: 1, Name: "Master mono"})
}

// Module returns the register file.
func (m *MixMaster) Module() *host.Module { return m.mod }

// OnReset restores every parameter and persisted setting to its default.
func (m *MixMaster) OnReset() {
	m.mod.ResetParams()
	copy(m.labels[:], defaultTrackLabels)
	m.panelTheme = 0
	m.gInfo.onReset()
	for i := range m.tracks {
		m.tracks[i].onReset()
	}
	for i := range m.groups {
		m.groups[i].onReset()
	}
	for i := range m.returns {
		m.returns[i].onReset()
	}
	m.resetNonJson()
}

// ResetNonJson rebuilds the derived state after persisted settings were
// applied from a document.
func (m *MixMaster) ResetNonJson() {
	m.gInfo.resetNonJson()
	for i := range m.tracks {
		m.tracks[i].resetNonJson()
	}
	for i := range m.groups {
		m.groups[i].resetNonJson()
	}
	for i := range m.returns {
		m.returns[i].resetNonJson()
	}
	m.resetNonJson()
}

func (m *MixMaster) resetNonJson() {
	m.gInfo.groupUsage = [NumGroups]uint32{}
	for i := range m.tracks {
		t := &m.tracks[i]
		m.gInfo.moveGroupUsage(t.index, 0, t.group)
		m.gInfo.updateSoloBit(i)
	}
	for i := range m.groups {
		m.gInfo.updateSoloBit(NumTracks + i)
	}
	for i := range m.returns {
		m.returns[i].setGroup(0)
		m.gInfo.updateReturnSoloBit(i, false)
		m.returns[i].soloed = false
	}
	for i := range m.tracks {
		t := &m.tracks[i]
		t.updateSlowValues()
		t.fade.reset(t.AudibleTarget())
		t.muteSolo.Reset(t.fade.gain)
	}
	for i := range m.groups {
		g := &m.groups[i]
		g.updateSlowValues()
		g.fade.reset(g.AudibleTarget())
		g.muteSolo.Reset(g.fade.gain)
	}
	m.gInfo.updateMasterGain()

	m.refresh.Reset()
	for i := range m.grpInc {
		m.grpInc[i].Reset()
		m.grpDec[i].Reset()
	}
	m.sendLevels.Reset()
	m.returnValues.Reset()
	m.returnSigs = [2 * NumAux]float32{}
	m.auxSends = [2 * NumAux]float32{}
	m.fadeStagger = 0
	m.updateSlow = true
}

// OnSampleRateChange recomputes sample time and filter coefficients.
func (m *MixMaster) OnSampleRateChange(sampleRate float32) {
	if sampleRate <= 0 {
		return
	}
	m.gInfo.setSampleRate(sampleRate)
	for i := range m.tracks {
		m.tracks[i].applyFilters()
	}
	for i := range m.groups {
		m.groups[i].applyFilters()
	}
	for i := range m.returns {
		m.returns[i].applyFilters()
	}
}

// Process runs one sample.
func (m *MixMaster) Process(args host.ProcessArgs) {
	if args.SampleRate > 0 && args.SampleRate != m.gInfo.sampleRate {
		m.OnSampleRateChange(args.SampleRate)
	}

	if trk, ok := m.refresh.Tick(); ok {
		m.refreshSlot(trk)
	}
	m.readAux()

	var mix [mixLen]float32
	for i := range m.tracks {
		m.tracks[i].process(&mix)
	}
	if m.auxPresent {
		for i := range m.returns {
			m.returns[i].process(&mix, &m.returnSigs)
		}
	}
	for i := range m.groups {
		m.groups[i].process(&mix)
	}
	if m.auxPresent {
		m.mixAuxSends()
	}

	m.gInfo.masterStage(&mix)
	m.mod.Outputs[MainOutputs].SetVoltage(mix[0], 0)
	m.mod.Outputs[MainOutputs+1].SetVoltage(mix[1], 0)

	m.setDirectTrackOuts(0)
	m.setDirectTrackOuts(NumTracks / 2)
	m.setDirectGroupOuts()

	m.writeAux()
}

// refreshSlot is the control-rate work for one track, and every fourth slot
// for one group and one aux return.
func (m *MixMaster) refreshSlot(trk int) {
	t := &m.tracks[trk]
	if m.grpInc[trk].Process(m.mod.Params[GrpIncParams+trk].Value()) {
		t.incGroup()
	}
	if m.grpDec[trk].Process(m.mod.Params[GrpDecParams+trk].Value()) {
		t.decGroup()
	}

	m.gInfo.updateSoloBit(trk)
	t.updateSlowValues()
	if trk&0x3 == 0 {
		g := trk >> 2
		m.gInfo.updateSoloBit(NumTracks + g)
		m.groups[g].updateSlowValues()
		m.returns[g].updateSlowValues()
	}

	m.gInfo.updateMasterGain()
}

// readAux picks up the return signals and the staggered values the expander
// sent during the previous sample.
func (m *MixMaster) readAux() {
	present := m.mod.RightExpander.Present(ModelAuxExpander)
	if present != m.auxPresent {
		m.auxPresent = present
		m.sendLevels.Reset()
		m.returnValues.Reset()
		m.returnSigs = [2 * NumAux]float32{}
		m.auxSends = [2 * NumAux]float32{}
		for i := range m.returns {
			m.returns[i].resetNonJson()
			m.returns[i].faderGain = 0
			m.returns[i].setGroup(0)
			m.returns[i].soloed = false
			m.gInfo.updateReturnSoloBit(i, false)
		}
		m.updateSlow = m.updateSlow || present
	}
	if !present {
		return
	}
	msg := m.mod.RightExpander.ConsumerMessage
	if len(msg) < MfaNumValues {
		return
	}
	copy(m.returnSigs[:], msg[MfaAuxReturns:MfaAuxReturns+2*NumAux])
	m.sendLevels.Put(msg[MfaValue80Index], msg[MfaValue80])
	if m.returnValues.Put(msg[MfaValue20Index], msg[MfaValue20]) && m.returnValues.Complete() {
		v := m.returnValues.Values()
		for i := range m.returns {
			m.returns[i].applyReturnValues(v)
		}
	}
}

// sendTap returns the signal channel ch feeds the aux buses with.
func (m *MixMaster) sendTap(ch int) [2]float32 {
	c := m.channelAt(ch)
	if m.gInfo.auxSendsMode == DirectOutsPreFader {
		return c.pre
	}
	return c.post
}

// mixAuxSends sums every channel into the four aux buses with its send levels.
func (m *MixMaster) mixAuxSends() {
	var sends [2 * NumAux]float32
	levels := m.sendLevels.Values()
	for ch := 0; ch < numChannels; ch++ {
		sig := m.sendTap(ch)
		if sig[0] == 0 && sig[1] == 0 {
			continue
		}
		for aux := 0; aux < NumAux; aux++ {
			lvl := levels[ch*NumAux+aux]
			sends[2*aux] += sig[0] * lvl
			sends[2*aux+1] += sig[1] * lvl
		}
	}
	m.auxSends = sends
}

func (m *MixMaster) setDirectTrackOuts(base int) {
	out := &m.mod.Outputs[DirectOutputs+base/(NumTracks/2)]
	if !out.IsConnected() {
		return
	}
	out.SetChannels(NumTracks)
	for i := 0; i < NumTracks/2; i++ {
		sig := m.tracks[base+i].directOut()
		out.SetVoltage(sig[0], 2*i)
		out.SetVoltage(sig[1], 2*i+1)
	}
}

func (m *MixMaster) setDirectGroupOuts() {
	out := &m.mod.Outputs[DirectOutputs+2]
	if !out.IsConnected() {
		return
	}
	out.SetChannels(2 * NumGroups)
	for i := range m.groups {
		sig := m.groups[i].directOut()
		out.SetVoltage(sig[0], 2*i)
		out.SetVoltage(sig[1], 2*i+1)
	}
}

// writeAux fills the expander's next message: sends and metered return levels
// every sample, the slow block when something changed, and one channel fade
// gain.
func (m *MixMaster) writeAux() {
	if !m.auxPresent {
		return
	}
	exp := &m.mod.RightExpander.Module.LeftExpander
	msg := exp.ProducerMessage
	if len(msg) < AfmNumValues {
		return
	}
	copy(msg[AfmAuxSends:], m.auxSends[:])
	for i := range m.returns {
		vu := m.returns[i].Vu()
		msg[AfmAuxVus+2*i] = vu[0]
		msg[AfmAuxVus+2*i+1] = vu[1]
	}

	if m.updateSlow || m.gInfo.slowDirty {
		packLabels(msg[AfmTrackGroupNames:AfmTrackGroupNames+numChannels], m.labels[:])
		msg[AfmPanelTheme] = packInt32(m.panelTheme)
		msg[AfmColorAndCloak] = packInt8s(m.gInfo.colorAndCloak)
		msg[AfmDirectAndPanModes] = packInt8s([4]int8{
			int8(m.gInfo.directOutsMode),
			int8(m.gInfo.auxSendsMode),
			int8(m.gInfo.panLawMono),
			int8(m.gInfo.panLawStereo),
		})
		msg[AfmUpdateSlow] = 1
		m.updateSlow = false
		m.gInfo.slowDirty = false
	} else {
		msg[AfmUpdateSlow] = 0
	}

	msg[AfmValue20Index] = float32(m.fadeStagger)
	msg[AfmValue20] = m.channelAt(m.fadeStagger).ResolvedGain()
	m.fadeStagger++
	if m.fadeStagger >= numChannels {
		m.fadeStagger = 0
	}
	exp.RequestFlip()
}

func (m *MixMaster) channelAt(ch int) *channel {
	if ch < NumTracks {
		return &m.tracks[ch].channel
	}
	return &m.groups[ch-NumTracks].channel
}

// Track returns track i (0-15).
func (m *MixMaster) Track(i int) *MixerTrack { return &m.tracks[i] }

// Group returns group i (0-3).
func (m *MixMaster) Group(i int) *MixerGroup { return &m.groups[i] }

// AuxReturn returns aux return i (0-3).
func (m *MixMaster) AuxReturn(i int) *AuxReturn { return &m.returns[i] }

// Global returns the shared mixer state.
func (m *MixMaster) Global() *GlobalInfo { return &m.gInfo }

// MasterVu returns the metered level of the main outputs.
func (m *MixMaster) MasterVu() [2]float32 { return m.gInfo.masterVu.Level() }

// AuxPresent reports whether an AuxExpander is attached on the right.
func (m *MixMaster) AuxPresent() bool { return m.auxPresent }

// AuxSend returns the stereo signal sent to aux bus aux this sample.
func (m *MixMaster) AuxSend(aux int) [2]float32 {
	return [2]float32{m.auxSends[2*aux], m.auxSends[2*aux+1]}
}

// SendLevels returns the reconstructed send levels, indexed channel*4+aux.
func (m *MixMaster) SendLevels() *StaggeredBatch { return m.sendLevels }
