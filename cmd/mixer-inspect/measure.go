package main

import (
	"fmt"

	"github.com/go-audio/audio"

	"github.com/cwbudde/algo-mixmaster/internal/probe"
	"github.com/cwbudde/algo-mixmaster/mixer"
)

// maxReferenceLagMs bounds the alignment search against a reference render.
const maxReferenceLagMs = 10

// measure runs the scene for settle frames, then for frames more while
// metering, and returns the master output of the metered part.
func measure(sc *scene, settle, frames int) *audio.Float32Buffer {
	if settle > 0 {
		mixer.Render(sc.rack, sc.m, settle, sc.input)
	}
	sc.resetMeters()
	// keep the tone phase continuous across the two runs
	return mixer.Render(sc.rack, sc.m, frames, func(frame int) { sc.input(settle + frame) })
}

// compareReference loads a reference WAV, brings it to buf's rate and
// measures how buf departs from it.
func compareReference(path string, buf *audio.Float32Buffer) (probe.Deviation, error) {
	ref, err := probe.ReadWAV(path)
	if err != nil {
		return probe.Deviation{}, err
	}
	if ref.Format.NumChannels != 2 {
		return probe.Deviation{}, fmt.Errorf("reference has %d channels, want 2", ref.Format.NumChannels)
	}
	rate := buf.Format.SampleRate
	if ref, err = probe.Resample(ref, rate); err != nil {
		return probe.Deviation{}, err
	}
	return probe.CompareStereo(ref.Data, buf.Data, rate*maxReferenceLagMs/1000)
}
