// Package host provides the register substrate modules run on: indexed
// parameters, polyphonic ports, expander message links and a Rack that steps
// modules once per sample and flips their expander messages.
package host

import (
	"fmt"
)

// MaxChannels is the polyphony limit of a port.
const MaxChannels = 16

// ParamConfig declares the range, default and display formatting of a parameter.
// The displayed value is DisplayBase^v*DisplayMultiplier+DisplayOffset when
// DisplayBase is negative (logarithmic), v*DisplayMultiplier+DisplayOffset otherwise.
type ParamConfig struct {
	Min, Max, Default float32
	Name              string
	Unit              string
	DisplayBase       float32
	DisplayMultiplier float32
	DisplayOffset     float32
}

// Param is a knob or button register.
type Param struct {
	cfg   ParamConfig
	value float32
}

// Value returns the current value.
func (p *Param) Value() float32 { return p.value }

// SetValue stores v clamped to the declared range.
func (p *Param) SetValue(v float32) {
	if v < p.cfg.Min {
		v = p.cfg.Min
	} else if v > p.cfg.Max {
		v = p.cfg.Max
	}
	p.value = v
}

// Reset restores the declared default.
func (p *Param) Reset() { p.value = p.cfg.Default }

// Config returns the declaration of the parameter.
func (p *Param) Config() ParamConfig { return p.cfg }

// Port is an input or output jack carrying up to MaxChannels voltages.
type Port struct {
	voltages  [MaxChannels]float32
	channels  int
	connected bool
}

// Voltage returns channel c, or 0 for channels outside the port.
func (p *Port) Voltage(c int) float32 {
	if c < 0 || c >= MaxChannels {
		return 0
	}
	return p.voltages[c]
}

// SetVoltage writes channel c. Writes outside the port are dropped.
func (p *Port) SetVoltage(v float32, c int) {
	if c < 0 || c >= MaxChannels {
		return
	}
	p.voltages[c] = v
}

// Channels returns the polyphony of the port.
func (p *Port) Channels() int { return p.channels }

// SetChannels sets the polyphony, clamped to [0, MaxChannels].
func (p *Port) SetChannels(n int) {
	if n < 0 {
		n = 0
	} else if n > MaxChannels {
		n = MaxChannels
	}
	for c := n; c < p.channels; c++ {
		p.voltages[c] = 0
	}
	p.channels = n
}

// IsConnected reports whether a cable is plugged in.
func (p *Port) IsConnected() bool { return p.connected }

// Connect plugs a cable carrying n channels.
func (p *Port) Connect(n int) {
	p.connected = true
	if n < 1 {
		n = 1
	}
	p.SetChannels(n)
}

// Disconnect unplugs the cable and silences the port.
func (p *Port) Disconnect() {
	p.connected = false
	p.channels = 0
	p.voltages = [MaxChannels]float32{}
}

// Module is the register file of one module instance.
type Module struct {
	Model   string
	Params  []Param
	Inputs  []Port
	Outputs []Port

	LeftExpander  Expander
	RightExpander Expander
}

// NewModule allocates the registers of a module.
func NewModule(model string, numParams, numInputs, numOutputs int) (*Module, error) {
	if model == "" {
		return nil, fmt.Errorf("host: empty model name")
	}
	if numParams < 0 || numInputs < 0 || numOutputs < 0 {
		return nil, fmt.Errorf("host: negative register count for %s", model)
	}
	return &Module{
		Model:   model,
		Params:  make([]Param, numParams),
		Inputs:  make([]Port, numInputs),
		Outputs: make([]Port, numOutputs),
	}, nil
}

// ConfigParam declares parameter id and sets it to its default.
func (m *Module) ConfigParam(id int, cfg ParamConfig) {
	m.Params[id].cfg = cfg
	m.Params[id].value = cfg.Default
}

// ResetParams restores every parameter default.
func (m *Module) ResetParams() {
	for i := range m.Params {
		m.Params[i].Reset()
	}
}

// ProcessArgs is passed to every Process call.
type ProcessArgs struct {
	SampleRate float32
	SampleTime float32
	Frame      int64
}

// Processor is a module the Rack can step.
type Processor interface {
	Module() *Module
	Process(args ProcessArgs)
}

// SampleRateListener is notified by the Rack on sample rate changes.
type SampleRateListener interface {
	OnSampleRateChange(sampleRate float32)
}
