package probe

import (
	"fmt"
	"os"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

// ReadWAV decodes a PCM WAV file into a float buffer in volts, the inverse of
// WriteBuffer.
func ReadWAV(path string) (*audio.Float32Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("probe: invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("probe: invalid wav buffer: %s", path)
	}
	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(dec.BitDepth)
	}
	if depth < 8 || depth > 32 {
		return nil, fmt.Errorf("probe: unsupported bit depth %d in %s", depth, path)
	}
	scale := VoltsPerFullScale / float64(int64(1)<<(depth-1))
	data := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		data[i] = float32(float64(v) * scale)
	}
	return &audio.Float32Buffer{
		Format:         buf.Format,
		Data:           data,
		SourceBitDepth: depth,
	}, nil
}

// Resample converts buf to sampleRate channel by channel. A buffer already at
// that rate is returned as is.
func Resample(buf *audio.Float32Buffer, sampleRate int) (*audio.Float32Buffer, error) {
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("probe: invalid buffer")
	}
	if buf.Format.SampleRate == sampleRate {
		return buf, nil
	}
	nch := buf.Format.NumChannels
	frames := len(buf.Data) / nch
	channels := make([][]float64, nch)
	outFrames := -1
	for ch := range channels {
		r, err := dspresample.NewForRates(
			float64(buf.Format.SampleRate),
			float64(sampleRate),
			dspresample.WithQuality(dspresample.QualityBest),
		)
		if err != nil {
			return nil, err
		}
		in := make([]float64, frames)
		for i := range in {
			in[i] = float64(buf.Data[i*nch+ch])
		}
		channels[ch] = r.Process(in)
		if outFrames < 0 || len(channels[ch]) < outFrames {
			outFrames = len(channels[ch])
		}
	}
	data := make([]float32, outFrames*nch)
	for ch, samples := range channels {
		for i := 0; i < outFrames; i++ {
			data[i*nch+ch] = float32(samples[i])
		}
	}
	return &audio.Float32Buffer{
		Format: &audio.Format{
			NumChannels: nch,
			SampleRate:  sampleRate,
		},
		Data:           data,
		SourceBitDepth: buf.SourceBitDepth,
	}, nil
}
