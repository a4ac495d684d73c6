package mixer

import (
	"fmt"

	"github.com/cwbudde/algo-mixmaster/host"
)

// AuxExpander parameter registers. Send levels are laid out channel*4+aux so
// that register TrackAuxSendParams+i is send-level slot i on the link.
const (
	TrackAuxSendParams    = 0
	GroupAuxSendParams    = TrackAuxSendParams + NumTracks*NumAux // contiguous with the track sends
	TrackAuxMuteParams    = GroupAuxSendParams + NumGroups*NumAux
	GroupAuxMuteParams    = TrackAuxMuteParams + NumTracks // contiguous with the track mutes
	GlobalAuxSendParams   = GroupAuxMuteParams + NumGroups
	GlobalAuxPanParams    = GlobalAuxSendParams + NumAux
	GlobalAuxReturnParams = GlobalAuxPanParams + NumAux // pan to group are contiguous: return-value slot order
	GlobalAuxMuteParams   = GlobalAuxReturnParams + NumAux
	GlobalAuxSoloParams   = GlobalAuxMuteParams + NumAux
	GlobalAuxGroupParams  = GlobalAuxSoloParams + NumAux
	NumAuxParams          = GlobalAuxGroupParams + NumAux
)

// AuxExpander input registers. The poly CV inputs carry one channel per track
// (or group); the bus CV input carries the 4 global sends then the 12
// return pan, fader and mute CVs.
const (
	ReturnInputs      = 0
	PolyAuxADCVInputs = ReturnInputs + 2*NumAux
	PolyAuxMCVInput   = PolyAuxADCVInputs + NumAux
	PolyGrpsADCVInput = PolyAuxMCVInput + 1
	PolyGrpsMCVInput  = PolyGrpsADCVInput + 1
	PolyBusCVInput    = PolyGrpsMCVInput + 1
	NumAuxInputs      = PolyBusCVInput + 1
)

// AuxExpander output registers.
const (
	SendOutputs   = 0
	NumAuxOutputs = SendOutputs + 2*NumAux
)

// AuxExpander sits right of a MixMaster. It outputs the four aux sends the
// mother mixes, feeds the four return inputs back, and owns the send-level
// and return knobs, which it streams to the mother one value per sample.
type AuxExpander struct {
	mod *host.Module

	// persisted
	panelTheme   int32
	vuColorTheme [NumAux]int8
	auxLabels    [NumAux]string

	counter80   *RefreshScheduler
	globalSends [NumAux]float32
	mutes       [numChannels]float32

	// received from the mother
	motherPresent bool
	labels        [4 * numChannels]byte
	motherTheme   int32
	colorAndCloak [4]int8
	modes         [4]int8
	vus           [2 * NumAux]float32
	fadeGains     *StaggeredBatch
}

// NewAuxExpander builds an expander with every parameter at its default.
func NewAuxExpander() (*AuxExpander, error) {
	mod, err := host.NewModule(ModelAuxExpander, NumAuxParams, NumAuxInputs, NumAuxOutputs)
	if err != nil {
		return nil, fmt.Errorf("mixer: %w", err)
	}
	a := &AuxExpander{
		mod:       mod,
		counter80: NewRefreshScheduler(numSendLevels, 1),
		fadeGains: NewStaggeredBatch(numChannels),
	}
	a.configParams()
	mod.LeftExpander.AllocMessages(AfmNumValues)
	for i := 0; i < 2*NumAux; i++ {
		mod.Outputs[SendOutputs+i].SetChannels(1)
	}
	a.OnReset()
	return a, nil
}

func (a *AuxExpander) configParams() {
	maxIndiv := IndividualAuxSendLaw.MaxParam()
	indivDB := float32(20 * IndividualAuxSendLaw.Exponent)
	for ch := 0; ch < numChannels; ch++ {
		name := fmt.Sprintf("Track #%d", ch+1)
		if ch >= NumTracks {
			name = fmt.Sprintf("Group #%d", ch-NumTracks+1)
		}
		for aux := 0; aux < NumAux; aux++ {
			a.mod.ConfigParam(TrackAuxSendParams+ch*NumAux+aux, host.ParamConfig{Max: maxIndiv,
				Name: fmt.Sprintf("%s aux send %c", name, 'A'+aux), Unit: " dB", DisplayBase: -10, DisplayMultiplier: indivDB})
		}
		a.mod.ConfigParam(TrackAuxMuteParams+ch, host.ParamConfig{Max: 1, Name: name + " aux send mute"})
	}
	for aux := 0; aux < NumAux; aux++ {
		c := 'A' + aux
		a.mod.ConfigParam(GlobalAuxSendParams+aux, host.ParamConfig{Max: GlobalAuxSendLaw.MaxParam(), Default: 1,
			Name: fmt.Sprintf("Global aux send %c", c), Unit: " dB", DisplayBase: -10,
			DisplayMultiplier: float32(20 * GlobalAuxSendLaw.Exponent)})
		a.mod.ConfigParam(GlobalAuxPanParams+aux, host.ParamConfig{Max: 1, Default: 0.5,
			Name: fmt.Sprintf("Global aux return pan %c", c), Unit: "%", DisplayMultiplier: 200, DisplayOffset: -100})
		a.mod.ConfigParam(GlobalAuxReturnParams+aux, host.ParamConfig{Max: AuxReturnLaw.MaxParam(), Default: 1,
			Name: fmt.Sprintf("Global aux return %c", c), Unit: " dB", DisplayBase: -10,
			DisplayMultiplier: float32(20 * AuxReturnLaw.Exponent)})
		a.mod.ConfigParam(GlobalAuxMuteParams+aux, host.ParamConfig{Max: 1, Name: fmt.Sprintf("Global aux return mute %c", c)})
		a.mod.ConfigParam(GlobalAuxSoloParams+aux, host.ParamConfig{Max: 1, Name: fmt.Sprintf("Global aux return solo %c", c)})
		a.mod.ConfigParam(GlobalAuxGroupParams+aux, host.ParamConfig{Max: NumGroups, Name: fmt.Sprintf("Global aux return group %c", c)})
	}
}

// Module returns the register file.
func (a *AuxExpander) Module() *host.Module { return a.mod }

// OnReset restores every parameter and persisted setting to its default.
func (a *AuxExpander) OnReset() {
	a.mod.ResetParams()
	a.panelTheme = 0
	a.vuColorTheme = [NumAux]int8{}
	for aux := range a.auxLabels {
		a.auxLabels[aux] = DefaultAuxLabel(aux)
	}
	a.ResetNonJson()
}

// ResetNonJson clears the link state; call after applying a document.
func (a *AuxExpander) ResetNonJson() {
	a.counter80.Reset()
	a.globalSends = [NumAux]float32{}
	a.mutes = [numChannels]float32{}
	a.fadeGains.Reset()
	a.vus = [2 * NumAux]float32{}
}

// Process runs one sample.
func (a *AuxExpander) Process(args host.ProcessArgs) {
	present := a.mod.LeftExpander.Present(ModelMixMaster)
	if present != a.motherPresent {
		a.motherPresent = present
		a.ResetNonJson()
	}
	from := a.mod.LeftExpander.ConsumerMessage
	if !present || len(from) < AfmNumValues {
		for i := 0; i < 2*NumAux; i++ {
			a.mod.Outputs[SendOutputs+i].SetVoltage(0, 0)
		}
		return
	}

	if from[AfmUpdateSlow] != 0 {
		unpackLabels(a.labels[:], from[AfmTrackGroupNames:AfmTrackGroupNames+numChannels])
		a.motherTheme = unpackInt32(from[AfmPanelTheme])
		a.colorAndCloak = unpackInt8s(from[AfmColorAndCloak])
		a.modes = unpackInt8s(from[AfmDirectAndPanModes])
	}
	for i := 0; i < 2*NumAux; i++ {
		a.mod.Outputs[SendOutputs+i].SetVoltage(from[AfmAuxSends+i], 0)
	}
	if a.colorAndCloak[CcCloakedMode] != 0 {
		a.vus = [2 * NumAux]float32{}
	} else {
		copy(a.vus[:], from[AfmAuxVus:AfmAuxVus+2*NumAux])
	}
	a.fadeGains.Put(from[AfmValue20Index], from[AfmValue20])

	exp := &a.mod.LeftExpander.Module.RightExpander
	to := exp.ProducerMessage
	if len(to) < MfaNumValues {
		return
	}
	for i := 0; i < 2*NumAux; i++ {
		to[MfaAuxReturns+i] = a.mod.Inputs[ReturnInputs+i].Voltage(0)
	}
	slot, _ := a.counter80.Tick()
	to[MfaValue80Index] = float32(slot)
	to[MfaValue80] = a.sendLevel(slot)
	slot20 := slot % numReturnValues
	to[MfaValue20Index] = float32(slot20)
	to[MfaValue20] = a.returnValue(slot20)
	exp.RequestFlip()
}

// sendLevel computes send-level slot i (channel*4+aux) including the global
// send, the channel's aux mute and the CVs. The global sends are refreshed
// every 20 slots and the mutes every 4, just before they are first used.
// With pre-fader sends the level also follows the channel's fade gain as
// received from the mother.
func (a *AuxExpander) sendLevel(i int) float32 {
	in := a.mod.Inputs
	if i%20 == 0 {
		aux := i / 20
		v := GlobalAuxSendLaw.LinearGain(a.mod.Params[GlobalAuxSendParams+aux].Value())
		if bus := &in[PolyBusCVInput]; bus.IsConnected() {
			v *= clamp(bus.Voltage(aux)*0.1, 0, 1)
		}
		a.globalSends[aux] = v
	}
	ch, aux := i/NumAux, i%NumAux
	if i%NumAux == 0 {
		v := a.mod.Params[TrackAuxMuteParams+ch].Value()
		if ch < NumTracks {
			v += in[PolyAuxMCVInput].Voltage(ch) * 0.1
		} else {
			v += in[PolyGrpsMCVInput].Voltage(ch-NumTracks) * 0.1
		}
		a.mutes[ch] = clamp(1-v, 0, 1)
	}

	v := IndividualAuxSendLaw.LinearGain(a.mod.Params[TrackAuxSendParams+i].Value())
	v *= a.globalSends[aux] * a.mutes[ch]
	var cv *host.Port
	var cvChan int
	if ch < NumTracks {
		cv, cvChan = &in[PolyAuxADCVInputs+aux], ch
	} else {
		cv, cvChan = &in[PolyGrpsADCVInput], (ch-NumTracks)*NumAux+aux
	}
	if cv.IsConnected() {
		v *= clamp(cv.Voltage(cvChan)*0.1, 0, 1)
	}
	if DirectOutsMode(a.modes[1]) == DirectOutsPreFader && a.fadeGains.Complete() {
		// pre-fader taps miss the channel's fade, mute and solo gain
		v *= a.fadeGains.Value(ch)
	}
	return v
}

// returnValue computes return-value slot i: pan, fader, mute, solo and group,
// four of each.
func (a *AuxExpander) returnValue(i int) float32 {
	v := a.mod.Params[GlobalAuxPanParams+i].Value()
	bus := &a.mod.Inputs[PolyBusCVInput]
	cv := bus.Voltage(NumAux + i)
	switch {
	case i < NumAux: // pan
		v += clamp(cv, -5, 5) * 0.1
	case i < 2*NumAux: // fader
		v = AuxReturnLaw.LinearGain(v)
		if bus.IsConnected() {
			v *= clamp(cv*0.1, 0, 1)
		}
	case i < 3*NumAux: // mute
		v += clamp(cv*0.1, 0, 1)
	}
	return v
}

// MotherPresent reports whether a MixMaster is attached on the left.
func (a *AuxExpander) MotherPresent() bool { return a.motherPresent }

// Label returns the mother's label for channel ch as last received.
func (a *AuxExpander) Label(ch int) string { return string(a.labels[4*ch : 4*ch+4]) }

// MotherPanelTheme returns the panel theme last received from the mother.
func (a *AuxExpander) MotherPanelTheme() int32 { return a.motherTheme }

// ColorAndCloak returns the color and cloak bytes last received.
func (a *AuxExpander) ColorAndCloak() [4]int8 { return a.colorAndCloak }

// Modes returns the direct-outs mode, aux-sends mode, mono pan law and
// stereo pan mode last received.
func (a *AuxExpander) Modes() (directOuts, auxSends DirectOutsMode, mono PanLawMono, stereo PanLawStereo) {
	return DirectOutsMode(a.modes[0]), DirectOutsMode(a.modes[1]), PanLawMono(a.modes[2]), PanLawStereo(a.modes[3])
}

// AuxVu returns the metered stereo level of return aux as last received.
func (a *AuxExpander) AuxVu(aux int) [2]float32 {
	return [2]float32{a.vus[2*aux], a.vus[2*aux+1]}
}

// FadeGains returns the mother's channel fade gains, tracks then groups. They
// gate the send levels when aux sends are pre-fader.
func (a *AuxExpander) FadeGains() *StaggeredBatch { return a.fadeGains }

// PanelTheme returns the expander's own panel theme.
func (a *AuxExpander) PanelTheme() int32 { return a.panelTheme }

// SetPanelTheme sets the expander's own panel theme.
func (a *AuxExpander) SetPanelTheme(theme int32) { a.panelTheme = theme }

// VuColorTheme returns the meter color of return aux.
func (a *AuxExpander) VuColorTheme(aux int) int8 { return a.vuColorTheme[aux] }

// SetVuColorTheme sets the meter color of return aux.
func (a *AuxExpander) SetVuColorTheme(aux int, v int8) {
	if aux >= 0 && aux < NumAux {
		a.vuColorTheme[aux] = v
	}
}

// DefaultAuxLabel returns the reset label of return aux: AUXA to AUXD.
func DefaultAuxLabel(aux int) string { return "AUX" + string(rune('A'+aux)) }

// AuxLabel returns the display label of return aux.
func (a *AuxExpander) AuxLabel(aux int) string { return a.auxLabels[aux] }

// SetAuxLabel sets the display label of return aux, truncated to 4 chars.
func (a *AuxExpander) SetAuxLabel(aux int, label string) {
	if aux < 0 || aux >= NumAux {
		return
	}
	if len(label) > 4 {
		label = label[:4]
	}
	a.auxLabels[aux] = label
}
