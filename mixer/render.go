package mixer

import (
	"github.com/go-audio/audio"

	"github.com/cwbudde/algo-mixmaster/host"
)

// Render steps rack for frames samples and collects m's main outputs as an
// interleaved stereo buffer. The input hook, when non-nil, runs before each
// sample to drive input voltages.
func Render(rack *host.Rack, m *MixMaster, frames int, input func(frame int)) *audio.Float32Buffer {
	data := make([]float32, 0, 2*frames)
	out := m.Module().Outputs
	for i := 0; i < frames; i++ {
		if input != nil {
			input(i)
		}
		rack.Step()
		data = append(data, out[MainOutputs].Voltage(0), out[MainOutputs+1].Voltage(0))
	}
	return &audio.Float32Buffer{
		Format: &audio.Format{
			NumChannels: 2,
			SampleRate:  int(rack.SampleRate()),
		},
		Data:           data,
		SourceBitDepth: 32,
	}
}
