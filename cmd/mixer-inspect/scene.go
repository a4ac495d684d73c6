package main

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-mixmaster/host"
	"github.com/cwbudde/algo-mixmaster/mixer"
)

// scene is a MixMaster, optionally with an AuxExpander on its right, fed with
// probe tones.
type scene struct {
	rack *host.Rack
	m    *mixer.MixMaster
	aux  *mixer.AuxExpander

	toneHz    float64
	toneVolts [mixer.NumTracks]float32
	stereo    [mixer.NumTracks]bool

	postSum [mixer.NumTracks + mixer.NumGroups]float64
	frames  int
}

func newScene(sampleRate int, withAux bool) (*scene, error) {
	m, err := mixer.New(mixer.Config{SampleRate: float32(sampleRate)})
	if err != nil {
		return nil, err
	}
	sc := &scene{rack: host.NewRack(float32(sampleRate)), m: m, toneHz: 440}
	sc.rack.Add(m)
	if withAux {
		if err := sc.attachAux(); err != nil {
			return nil, err
		}
	}
	return sc, nil
}

func (sc *scene) attachAux() error {
	if sc.aux != nil {
		return nil
	}
	a, err := mixer.NewAuxExpander()
	if err != nil {
		return err
	}
	sc.aux = a
	sc.rack.Add(a)
	return nil
}

// feed sets the probe tone amplitude of track trk (0-based); 0 unplugs it.
func (sc *scene) feed(trk int, volts float32, stereo bool) error {
	if trk < 0 || trk >= mixer.NumTracks {
		return fmt.Errorf("track %d out of range [1,%d]", trk+1, mixer.NumTracks)
	}
	if v := float64(volts); math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("track %d: tone amplitude %g is not finite", trk+1, volts)
	}
	sc.toneVolts[trk] = volts
	sc.stereo[trk] = stereo
	in := sc.m.Module().Inputs
	l, r := &in[mixer.TrackSignalInputs+2*trk], &in[mixer.TrackSignalInputs+2*trk+1]
	l.Disconnect()
	r.Disconnect()
	if volts != 0 {
		l.Connect(1)
		if stereo {
			r.Connect(1)
		}
	}
	return nil
}

// feedAll drives every track with a mono tone of volts.
func (sc *scene) feedAll(volts float32) error {
	for trk := 0; trk < mixer.NumTracks; trk++ {
		if err := sc.feed(trk, volts, false); err != nil {
			return err
		}
	}
	return nil
}

// feedReturn puts a DC level on return input i of the expander.
func (sc *scene) feedReturn(i int, volts float32) error {
	if sc.aux == nil {
		return fmt.Errorf("no aux expander attached")
	}
	if i < 0 || i >= 2*mixer.NumAux {
		return fmt.Errorf("return input %d out of range", i)
	}
	in := &sc.aux.Module().Inputs[mixer.ReturnInputs+i]
	if volts == 0 {
		in.Disconnect()
		return nil
	}
	in.Connect(1)
	in.SetVoltage(volts, 0)
	return nil
}

// input drives the tones for frame and accumulates the previous frame's
// channel post levels.
func (sc *scene) input(frame int) {
	if frame > 0 {
		for ch := range sc.postSum {
			p := sc.post(ch)
			sc.postSum[ch] += float64(p[0])*float64(p[0]) + float64(p[1])*float64(p[1])
		}
		sc.frames++
	}
	phase := 2 * math.Pi * sc.toneHz * float64(frame) / float64(sc.rack.SampleRate())
	v := float32(math.Sin(phase))
	in := sc.m.Module().Inputs
	for trk, amp := range sc.toneVolts {
		if amp == 0 {
			continue
		}
		in[mixer.TrackSignalInputs+2*trk].SetVoltage(amp*v, 0)
		if sc.stereo[trk] {
			in[mixer.TrackSignalInputs+2*trk+1].SetVoltage(amp*v, 0)
		}
	}
}

func (sc *scene) post(ch int) [2]float32 {
	if ch < mixer.NumTracks {
		return sc.m.Track(ch).Post()
	}
	return sc.m.Group(ch - mixer.NumTracks).Post()
}

// postRMS is the stereo RMS of channel ch's post signal since the last reset.
func (sc *scene) postRMS(ch int) float64 {
	if sc.frames == 0 {
		return 0
	}
	return math.Sqrt(sc.postSum[ch] / float64(2*sc.frames))
}

func (sc *scene) resetMeters() {
	sc.postSum = [mixer.NumTracks + mixer.NumGroups]float64{}
	sc.frames = 0
}
