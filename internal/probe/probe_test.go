package probe

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/wav"
)

func TestChannelRMSSeparatesChannels(t *testing.T) {
	data := []float32{1, 0, -1, 0, 1, 0, -1, 0}
	if got := ChannelRMS(data, 0, 2); got != 1 {
		t.Fatalf("left rms: got %g want 1", got)
	}
	if got := ChannelRMS(data, 1, 2); got != 0 {
		t.Fatalf("right rms: got %g want 0", got)
	}
	if got := StereoRMS(data); math.Abs(got-math.Sqrt(0.5)) > 1e-12 {
		t.Fatalf("stereo rms: got %g", got)
	}
	if got := Peak([]float32{0.5, -2, 1}); got != 2 {
		t.Fatalf("peak: got %g want 2", got)
	}
}

func TestWriteStereoInterleavedWAVProducesValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "out.wav")
	samples := make([]float32, 2*480)
	for i := range samples {
		samples[i] = 5 * float32(math.Sin(float64(i)*0.05))
	}
	if err := WriteStereoInterleavedWAV(path, samples, 48000); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatalf("invalid wav written")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if buf.Format.NumChannels != 2 || buf.Format.SampleRate != 48000 {
		t.Fatalf("format: got %+v", buf.Format)
	}
	if len(buf.Data) != len(samples) {
		t.Fatalf("length: got %d want %d", len(buf.Data), len(samples))
	}
}

func TestDumpIfRequestedIsOffByDefault(t *testing.T) {
	t.Setenv(DebugWAVEnv, "")
	path, err := DumpIfRequested("x", nil)
	if err != nil || path != "" {
		t.Fatalf("got (%q, %v) want no dump", path, err)
	}
}
