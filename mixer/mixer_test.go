package mixer

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-mixmaster/host"
	"github.com/cwbudde/algo-mixmaster/internal/probe"
)

// settleSamples covers the slowest anti-pop ramp (pan and fader from zero)
// several times over, plus a few refresh cycles.
const settleSamples = 8192

func newTestMixer(t *testing.T) (*MixMaster, *host.Rack) {
	t.Helper()
	m, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rack := host.NewRack(44100)
	rack.Add(m)
	return m, rack
}

func feedTrack(m *MixMaster, trk int, left float32) {
	in := &m.Module().Inputs[TrackSignalInputs+2*trk]
	if !in.IsConnected() {
		in.Connect(1)
	}
	in.SetVoltage(left, 0)
}

func mainOut(m *MixMaster) (float32, float32) {
	out := m.Module().Outputs
	return out[MainOutputs].Voltage(0), out[MainOutputs+1].Voltage(0)
}

func near(a, b float32, tol float64) bool {
	return math.Abs(float64(a-b)) <= tol
}

func TestNewRejectsBadSampleRate(t *testing.T) {
	if _, err := New(Config{SampleRate: 0}); err == nil {
		t.Fatalf("expected error for zero sample rate")
	}
}

func TestDirectOutFollowsPreAndPostTaps(t *testing.T) {
	const v = 5
	m, rack := newTestMixer(t)
	feedTrack(m, 0, v)
	direct := &m.Module().Outputs[DirectOutputs]
	direct.Connect(NumTracks)
	m.Module().Params[TrackFaderParams].SetValue(0.5)

	m.Global().SetDirectOutsMode(DirectOutsPreFader)
	rack.Run(settleSamples)

	l, _ := MonoPanCoefficients(m.Global().PanLawMono(), 0.5)
	trk := m.Track(0)
	if got := trk.Pre()[0]; !near(got, v*l, 1e-6) {
		t.Fatalf("pre[0]: got %g want %g", got, v*l)
	}
	if got := direct.Voltage(0); got != trk.Pre()[0] {
		t.Fatalf("pre-fader direct out: got %g want %g", got, trk.Pre()[0])
	}
	if direct.Channels() != NumTracks {
		t.Fatalf("direct out channels: got %d want %d", direct.Channels(), NumTracks)
	}

	m.Global().SetDirectOutsMode(DirectOutsPostFader)
	rack.Step()
	if got := direct.Voltage(0); got != trk.Post()[0] {
		t.Fatalf("post-fader direct out: got %g want %g", got, trk.Post()[0])
	}
	wantPost := trk.Pre()[0] * TrackFaderLaw.LinearGain(0.5)
	if !near(trk.Post()[0], wantPost, 1e-6) {
		t.Fatalf("post[0]: got %g want %g", trk.Post()[0], wantPost)
	}
}

func TestPerTrackDirectOutsMode(t *testing.T) {
	m, rack := newTestMixer(t)
	feedTrack(m, 9, 3)
	direct := &m.Module().Outputs[DirectOutputs+1]
	direct.Connect(NumTracks)
	m.Module().Params[TrackFaderParams+9].SetValue(0.7)
	m.Global().SetDirectOutsMode(DirectOutsPerTrack)
	m.Track(9).SetDirectOutsMode(DirectOutsPreFader)
	rack.Run(settleSamples)

	// track 10 is the second pair on the tracks 9-16 bank
	if got := direct.Voltage(2); got != m.Track(9).Pre()[0] {
		t.Fatalf("direct out: got %g want pre %g", got, m.Track(9).Pre()[0])
	}
}

func TestMutedTrackFadesToSilence(t *testing.T) {
	m, rack := newTestMixer(t)
	feedTrack(m, 2, 4)
	trk := m.Track(2)
	trk.SetFadeRate(0.5)
	rack.Run(settleSamples)
	if trk.Post()[0] == 0 {
		t.Fatalf("track should be audible before muting")
	}

	m.Module().Params[TrackMuteParams+2].SetValue(1)
	prev := trk.FadeGain()
	for i := 0; i < 23000; i++ {
		rack.Step()
		if g := trk.FadeGain(); g > prev {
			t.Fatalf("fade gain rose from %g to %g at sample %d", prev, g, i)
		} else {
			prev = g
		}
	}
	if trk.FadeGain() != 0 {
		t.Fatalf("fade gain: got %g want 0", trk.FadeGain())
	}
	for _, v := range []float32{4, -7, 10} {
		feedTrack(m, 2, v)
		rack.Step()
		if trk.Post() != [2]float32{} {
			t.Fatalf("muted post with input %g: got %v", v, trk.Post())
		}
	}
}

func TestToggleFadeFadesBackIn(t *testing.T) {
	m, rack := newTestMixer(t)
	trk := m.Track(0)
	trk.SetFadeRate(0.2)
	trk.ToggleFade()
	rack.Run(settleSamples + 44100/4)
	if trk.FadeGain() != 0 {
		t.Fatalf("after fade out: got %g", trk.FadeGain())
	}
	trk.ToggleFade()
	rack.Run(44100 / 4)
	if trk.FadeGain() != 1 {
		t.Fatalf("after fade in: got %g", trk.FadeGain())
	}
}

func TestSoloSilencesOtherUngroupedTracks(t *testing.T) {
	m, rack := newTestMixer(t)
	m.Module().Params[TrackSoloParams+5].SetValue(1)
	rack.Run(2 * 256)

	if !m.Global().SoloActive() {
		t.Fatalf("solo not active")
	}
	for i := 0; i < NumTracks; i++ {
		want := float32(0)
		if i == 5 {
			want = 1
		}
		if got := m.Track(i).AudibleTarget(); got != want {
			t.Fatalf("track %d audible target: got %g want %g", i, got, want)
		}
	}
}

func TestSoloedGroupKeepsMembersAudible(t *testing.T) {
	m, rack := newTestMixer(t)
	m.Track(3).SetGroup(2)
	m.Module().Params[GroupSoloParams+1].SetValue(1)
	rack.Run(2 * 256)

	if got := m.Track(3).AudibleTarget(); got != 1 {
		t.Fatalf("member of soloed group: got %g want 1", got)
	}
	if got := m.Track(4).AudibleTarget(); got != 0 {
		t.Fatalf("non-member: got %g want 0", got)
	}
	if got := m.Group(0).AudibleTarget(); got != 0 {
		t.Fatalf("other group: got %g want 0", got)
	}

	// soloing a track keeps the group it feeds audible
	m.Module().Params[GroupSoloParams+1].SetValue(0)
	m.Module().Params[TrackSoloParams+3].SetValue(1)
	rack.Run(2 * 256)
	if got := m.Group(1).AudibleTarget(); got != 1 {
		t.Fatalf("group of soloed track: got %g want 1", got)
	}
}

func TestGroupedTrackReachesMasterThroughGroup(t *testing.T) {
	m, rack := newTestMixer(t)
	feedTrack(m, 0, 2)
	m.Track(0).SetGroup(1)
	rack.Run(settleSamples)
	l, _ := mainOut(m)
	if !near(l, m.Group(0).Post()[0], 1e-6) || l == 0 {
		t.Fatalf("master L %g should equal group 1 post %g", l, m.Group(0).Post()[0])
	}

	m.Module().Params[GroupMuteParams].SetValue(1)
	rack.Run(settleSamples)
	if l, r := mainOut(m); l != 0 || r != 0 {
		t.Fatalf("muted group leaks to master: (%g,%g)", l, r)
	}
}

func TestGroupButtonsCycleAssignment(t *testing.T) {
	m, rack := newTestMixer(t)
	inc := &m.Module().Params[GrpIncParams+3]
	dec := &m.Module().Params[GrpDecParams+3]
	press := func(p *host.Param) {
		p.SetValue(1)
		rack.Run(256)
		p.SetValue(0)
		rack.Run(256)
	}
	press(inc)
	press(inc)
	if got := m.Track(3).Group(); got != 2 {
		t.Fatalf("after two increments: group %d want 2", got)
	}
	if m.Global().GroupUsage(1)&(1<<3) == 0 {
		t.Fatalf("group usage missing track 4")
	}
	press(dec)
	press(dec)
	press(dec)
	if got := m.Track(3).Group(); got != NumGroups {
		t.Fatalf("after wrapping decrement: group %d want %d", got, NumGroups)
	}
	if m.Global().GroupUsage(1) != 0 {
		t.Fatalf("stale usage bit in group 2: %b", m.Global().GroupUsage(1))
	}
}

func TestMasterMuteDimAndMono(t *testing.T) {
	m, rack := newTestMixer(t)
	feedTrack(m, 0, 4)
	m.Module().Params[TrackPanParams].SetValue(0)
	rack.Run(settleSamples)
	l0, r0 := mainOut(m)
	if l0 == 0 || r0 != 0 {
		t.Fatalf("hard-left mono track: got (%g,%g)", l0, r0)
	}

	m.Module().Params[MainDimParam].SetValue(1)
	rack.Run(settleSamples)
	l, _ := mainOut(m)
	if want := l0 * m.Global().DimGainIntegerDB(); !near(l, want, 1e-5) {
		t.Fatalf("dimmed: got %g want %g", l, want)
	}
	m.Module().Params[MainDimParam].SetValue(0)

	m.Module().Params[MainMonoParam].SetValue(1)
	rack.Run(settleSamples)
	l, r := mainOut(m)
	if !near(l, l0/2, 1e-5) || !near(r, l0/2, 1e-5) {
		t.Fatalf("mono: got (%g,%g) want both %g", l, r, l0/2)
	}

	m.Module().Params[MainMuteParam].SetValue(1)
	rack.Run(settleSamples)
	if l, r := mainOut(m); l != 0 || r != 0 {
		t.Fatalf("muted master: got (%g,%g)", l, r)
	}
}

func TestFiltersAreBypassedOutsideTheirRange(t *testing.T) {
	m, _ := newTestMixer(t)
	trk := m.Track(0)
	if hpf, lpf := trk.FiltersActive(); hpf || lpf {
		t.Fatalf("default filters should be off, got hpf=%v lpf=%v", hpf, lpf)
	}
	trk.SetHPFCutoffFreq(80)
	trk.SetLPFCutoffFreq(8000)
	if hpf, lpf := trk.FiltersActive(); !hpf || !lpf {
		t.Fatalf("filters should be on, got hpf=%v lpf=%v", hpf, lpf)
	}
	trk.SetHPFCutoffFreq(1)
	if trk.HPFCutoffFreq() != HPFCutoffFreqLow {
		t.Fatalf("hpf cutoff not clamped: %g", trk.HPFCutoffFreq())
	}
	if hpf, _ := trk.FiltersActive(); hpf {
		t.Fatalf("hpf should be off below %g Hz", MinHPFCutoffFreq)
	}
}

func TestHighpassBlocksDCOnTrack(t *testing.T) {
	m, rack := newTestMixer(t)
	feedTrack(m, 0, 5)
	m.Track(0).SetHPFCutoffFreq(200)
	rack.Run(4 * settleSamples)
	if l, _ := mainOut(m); math.Abs(float64(l)) > 1e-3 {
		t.Fatalf("DC through highpass: %g", l)
	}
}

func TestVuMetersFollowPostAndMaster(t *testing.T) {
	m, rack := newTestMixer(t)
	feedTrack(m, 0, 5)
	rack.Run(settleSamples)

	post := m.Track(0).Post()
	if vu := m.Track(0).Vu(); post[0] == 0 || !near(vu[0], post[0], 1e-3) || !near(vu[1], post[1], 1e-3) {
		t.Fatalf("track 1 vu: got %v want post %v", vu, post)
	}
	l, r := mainOut(m)
	if vu := m.MasterVu(); !near(vu[0], l, 1e-3) || !near(vu[1], r, 1e-3) {
		t.Fatalf("master vu: got %v want (%g,%g)", vu, l, r)
	}
	if vu := m.Track(1).Vu(); vu != [2]float32{} {
		t.Fatalf("unfed track 2 vu: %v", vu)
	}

	// the meters release over about 0.3 s once the track is muted
	m.Module().Params[TrackMuteParams+0].SetValue(1)
	rack.Run(44100 * 3 / 10)
	if vu := m.Track(0).Vu()[0]; vu < 0.3*post[0] || vu > 0.45*post[0] {
		t.Fatalf("track 1 vu one release time after mute: got %g from %g", vu, post[0])
	}
	if vu := m.MasterVu()[0]; vu < 0.3*l || vu > 0.45*l {
		t.Fatalf("master vu one release time after mute: got %g from %g", vu, l)
	}
}

func TestGainAdjustIsExactAtZeroDB(t *testing.T) {
	m, _ := newTestMixer(t)
	trk := m.Track(0)
	trk.SetGainAdjustDB(0)
	if trk.gainAdjust != 1 {
		t.Fatalf("0 dB trim: got %g want exactly 1", trk.gainAdjust)
	}
	trk.SetGainAdjustDB(40)
	if trk.GainAdjustDB() != 20 {
		t.Fatalf("trim not clamped: %g", trk.GainAdjustDB())
	}
	if !near(trk.gainAdjust, 10, 1e-4) {
		t.Fatalf("+20 dB trim: got %g want ~10", trk.gainAdjust)
	}
}

func TestLabelsArePaddedAndSanitized(t *testing.T) {
	m, _ := newTestMixer(t)
	if got := m.Label(16); got != "GRP1" {
		t.Fatalf("default group label: %q", got)
	}
	m.SetLabel(0, "KICKDRUM")
	m.SetLabel(1, "SN")
	m.SetLabel(2, "a\x00b")
	for ch, want := range map[int]string{0: "KICK", 1: "SN  ", 2: "a b ", 3: "-04-"} {
		if got := m.Label(ch); got != want {
			t.Fatalf("label %d: got %q want %q", ch, got, want)
		}
	}
	if got := m.Track(0).Label(); got != "KICK" {
		t.Fatalf("track view of label: %q", got)
	}
	m.OnReset()
	if got := m.Label(0); got != DefaultLabel(0) {
		t.Fatalf("label after reset: %q", got)
	}
}

func TestCopyTrackSettings(t *testing.T) {
	m, _ := newTestMixer(t)
	src := m.Track(1)
	src.SetGainAdjustDB(-6)
	src.SetFadeRate(2.5)
	src.SetFadeProfile(-0.5)
	src.SetHPFCutoffFreq(120)
	src.SetLPFCutoffFreq(9000)
	src.SetDirectOutsMode(DirectOutsPreFader)
	src.SetPanLawStereo(PanLawStereoTruePan)

	m.CopyTrackSettings(1, 7)
	if got, want := m.Track(7).Settings(), src.Settings(); got != want {
		t.Fatalf("copied settings: got %+v want %+v", got, want)
	}
	if hpf, lpf := m.Track(7).FiltersActive(); !hpf || !lpf {
		t.Fatalf("pasted filters not applied")
	}
}

func TestRenderProducesInterleavedMasterBuffer(t *testing.T) {
	m, rack := newTestMixer(t)
	const freq = 220.0
	buf := Render(rack, m, 44100/2, func(frame int) {
		feedTrack(m, 0, 5*float32(math.Sin(2*math.Pi*freq*float64(frame)/44100)))
	})
	if buf.Format.NumChannels != 2 || buf.Format.SampleRate != 44100 {
		t.Fatalf("format: %+v", buf.Format)
	}
	if len(buf.Data) != 44100 {
		t.Fatalf("samples: got %d want %d", len(buf.Data), 44100)
	}
	tail := buf.Data[len(buf.Data)/2:]
	rmsL := probe.ChannelRMS(tail, 0, 2)
	rmsR := probe.ChannelRMS(tail, 1, 2)
	if math.Abs(rmsL-rmsR) > 1e-3 || math.Abs(rmsL-5/math.Sqrt2) > 0.05 {
		t.Fatalf("centered 5 V sine: rms (%g,%g) want ~%g", rmsL, rmsR, 5/math.Sqrt2)
	}
	if path, err := probe.DumpIfRequested("render_sine", buf); err != nil {
		t.Fatalf("dump: %v", err)
	} else if path != "" {
		t.Logf("wrote %s", path)
	}
}
