// Package probe measures rendered mixer output and dumps it to WAV files for
// listening when debugging.
package probe

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

// DebugWAVEnv names a directory that tests write their rendered output to.
const DebugWAVEnv = "MIXMASTER_DEBUG_WAV"

// VoltsPerFullScale maps mixer voltages to WAV sample values: ±10 V is full scale.
const VoltsPerFullScale = 10.0

// StereoRMS is the RMS over every sample of an interleaved buffer.
func StereoRMS(interleaved []float32) float64 {
	if len(interleaved) == 0 {
		return 0
	}

	var sum float64
	for _, s := range interleaved {
		v := float64(s)
		sum += v * v
	}

	return math.Sqrt(sum / float64(len(interleaved)))
}

// ChannelRMS is the RMS of channel ch in an interleaved buffer of nch channels.
func ChannelRMS(interleaved []float32, ch, nch int) float64 {
	if nch < 1 || ch < 0 || ch >= nch {
		return 0
	}
	var sum float64
	n := 0
	for i := ch; i < len(interleaved); i += nch {
		v := float64(interleaved[i])
		sum += v * v
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}

// Peak is the largest absolute sample.
func Peak(samples []float32) float32 {
	var p float32
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > p {
			p = s
		}
	}
	return p
}

// DB converts a linear level to dB, with -inf for silence.
func DB(level float64) float64 {
	if level <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(level)
}

// WriteStereoInterleavedWAV writes 16-bit stereo; samples are in volts.
func WriteStereoInterleavedWAV(path string, samples []float32, sampleRate int) error {
	return WriteBuffer(path, &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: 2,
		},
		Data:           samples,
		SourceBitDepth: 16,
	})
}

// WriteBuffer writes buf as a 16-bit WAV, scaling volts to full scale and
// clipping.
func WriteBuffer(path string, buf *audio.Float32Buffer) error {
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return fmt.Errorf("probe: invalid buffer for %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := wav.NewEncoder(f, buf.Format.SampleRate, 16, buf.Format.NumChannels, 1)
	defer enc.Close()

	scaled := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		scaled[i] = float32(math.Max(-1, math.Min(1, float64(v)/VoltsPerFullScale)))
	}
	return enc.Write(&audio.Float32Buffer{
		Format:         buf.Format,
		Data:           scaled,
		SourceBitDepth: 16,
	})
}

// DumpIfRequested writes buf to <dir>/<name>.wav when DebugWAVEnv is set and
// returns the path written, or "" when dumping is off.
func DumpIfRequested(name string, buf *audio.Float32Buffer) (string, error) {
	dir := os.Getenv(DebugWAVEnv)
	if dir == "" {
		return "", nil
	}
	path := filepath.Join(dir, name+".wav")
	if err := WriteBuffer(path, buf); err != nil {
		return "", fmt.Errorf("probe: dump %s: %w", name, err)
	}
	return path, nil
}
