// Package preset persists MixMaster and AuxExpander state as JSON documents.
// Every field is optional: keys missing from a document keep their reset
// defaults.
package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/cwbudde/algo-mixmaster/host"
	"github.com/cwbudde/algo-mixmaster/mixer"
)

// File is the JSON schema for mixer presets.
type File struct {
	PanelTheme      *int32                    `json:"panel_theme,omitempty"`
	TrackLabels     *string                   `json:"track_labels,omitempty"`
	DirectOutsMode  *int8                     `json:"direct_outs_mode,omitempty"`
	AuxSendsMode    *int8                     `json:"aux_sends_mode,omitempty"`
	PanLawMono      *int8                     `json:"pan_law_mono,omitempty"`
	PanLawStereo    *int8                     `json:"pan_law_stereo,omitempty"`
	SymmetricalFade *bool                     `json:"symmetrical_fade,omitempty"`
	ColorAndCloak   *[4]int8                  `json:"color_and_cloak,omitempty"`
	DimGain         *float32                  `json:"dim_gain,omitempty"`
	Master          *MasterSetting            `json:"master,omitempty"`
	Tracks          map[string]TrackSetting   `json:"tracks,omitempty"`
	Groups          map[string]ChannelSetting `json:"groups,omitempty"`
}

// MasterSetting holds the master strip controls.
type MasterSetting struct {
	Fader *float32 `json:"fader,omitempty"`
	Mute  *bool    `json:"mute,omitempty"`
	Dim   *bool    `json:"dim,omitempty"`
	Mono  *bool    `json:"mono,omitempty"`
}

// ChannelSetting is the part of a strip shared by tracks and groups.
type ChannelSetting struct {
	GainAdjustDB *float32 `json:"gain_adjust_db,omitempty"`
	FadeRate     *float32 `json:"fade_rate,omitempty"`
	FadeProfile  *float32 `json:"fade_profile,omitempty"`
	HPFCutoffHz  *float32 `json:"hpf_cutoff_hz,omitempty"`
	LPFCutoffHz  *float32 `json:"lpf_cutoff_hz,omitempty"`
	Pan          *float32 `json:"pan,omitempty"`
	Fader        *float32 `json:"fader,omitempty"`
	Mute         *bool    `json:"mute,omitempty"`
	Solo         *bool    `json:"solo,omitempty"`
}

// TrackSetting adds the track-only settings. Tracks are keyed 1-16.
type TrackSetting struct {
	ChannelSetting
	Group          *int  `json:"group,omitempty"`
	DirectOutsMode *int8 `json:"direct_outs_mode,omitempty"`
	PanLawStereo   *int8 `json:"pan_law_stereo,omitempty"`
}

// LoadJSON resets m, applies the preset at path and rebuilds the derived
// state. A document that fails validation leaves m untouched.
func LoadJSON(path string, m *mixer.MixMaster) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("preset %s: %w", path, err)
	}
	if err := f.Validate(m); err != nil {
		return fmt.Errorf("preset %s: %w", path, err)
	}

	m.OnReset()
	apply(m, &f)
	m.ResetNonJson()
	return nil
}

// SaveJSON writes a snapshot of m to path.
func SaveJSON(path string, m *mixer.MixMaster) error {
	return writeJSON(path, Snapshot(m))
}

// ApplyFile validates f and applies it on top of the current state of m.
func ApplyFile(m *mixer.MixMaster, f *File) error {
	if m == nil {
		return fmt.Errorf("nil destination mixer")
	}
	if f == nil {
		return nil
	}
	if err := f.Validate(m); err != nil {
		return err
	}
	apply(m, f)
	m.ResetNonJson()
	return nil
}

// Snapshot captures every persisted field of m.
func Snapshot(m *mixer.MixMaster) *File {
	g := m.Global()
	params := m.Module().Params
	cc := g.ColorAndCloak()
	f := &File{
		PanelTheme:      ptr(m.PanelTheme()),
		TrackLabels:     ptr(m.Labels()),
		DirectOutsMode:  ptr(int8(g.DirectOutsMode())),
		AuxSendsMode:    ptr(int8(g.AuxSendsMode())),
		PanLawMono:      ptr(int8(g.PanLawMono())),
		PanLawStereo:    ptr(int8(g.PanLawStereo())),
		SymmetricalFade: ptr(g.SymmetricalFade()),
		ColorAndCloak:   &cc,
		DimGain:         ptr(g.DimGain()),
		Master: &MasterSetting{
			Fader: ptr(params[mixer.MainFaderParam].Value()),
			Mute:  ptr(on(params[mixer.MainMuteParam])),
			Dim:   ptr(on(params[mixer.MainDimParam])),
			Mono:  ptr(on(params[mixer.MainMonoParam])),
		},
		Tracks: make(map[string]TrackSetting, mixer.NumTracks),
		Groups: make(map[string]ChannelSetting, mixer.NumGroups),
	}
	for i := 0; i < mixer.NumTracks; i++ {
		t := m.Track(i)
		f.Tracks[strconv.Itoa(i+1)] = TrackSetting{
			ChannelSetting: ChannelSetting{
				GainAdjustDB: ptr(t.GainAdjustDB()),
				FadeRate:     ptr(t.FadeRate()),
				FadeProfile:  ptr(t.FadeProfile()),
				HPFCutoffHz:  ptr(t.HPFCutoffFreq()),
				LPFCutoffHz:  ptr(t.LPFCutoffFreq()),
				Pan:          ptr(params[mixer.TrackPanParams+i].Value()),
				Fader:        ptr(params[mixer.TrackFaderParams+i].Value()),
				Mute:         ptr(on(params[mixer.TrackMuteParams+i])),
				Solo:         ptr(on(params[mixer.TrackSoloParams+i])),
			},
			Group:          ptr(t.Group()),
			DirectOutsMode: ptr(int8(t.DirectOutsMode())),
			PanLawStereo:   ptr(int8(t.PanLawStereo())),
		}
	}
	for i := 0; i < mixer.NumGroups; i++ {
		grp := m.Group(i)
		f.Groups[strconv.Itoa(i+1)] = ChannelSetting{
			GainAdjustDB: ptr(grp.GainAdjustDB()),
			FadeRate:     ptr(grp.FadeRate()),
			FadeProfile:  ptr(grp.FadeProfile()),
			HPFCutoffHz:  ptr(grp.HPFCutoffFreq()),
			LPFCutoffHz:  ptr(grp.LPFCutoffFreq()),
			Pan:          ptr(params[mixer.GroupPanParams+i].Value()),
			Fader:        ptr(params[mixer.GroupFaderParams+i].Value()),
			Mute:         ptr(on(params[mixer.GroupMuteParams+i])),
			Solo:         ptr(on(params[mixer.GroupSoloParams+i])),
		}
	}
	return f
}

// Validate checks every present field against its range. Errors name the
// offending key.
func (f *File) Validate(m *mixer.MixMaster) error {
	if f.TrackLabels != nil && len(*f.TrackLabels) > 4*(mixer.NumTracks+mixer.NumGroups) {
		return fmt.Errorf("track_labels must be at most %d characters", 4*(mixer.NumTracks+mixer.NumGroups))
	}
	if f.DirectOutsMode != nil && !inRange(*f.DirectOutsMode, 0, int8(mixer.DirectOutsPerTrack)) {
		return fmt.Errorf("direct_outs_mode must be in [0,%d]", mixer.DirectOutsPerTrack)
	}
	if f.AuxSendsMode != nil && !inRange(*f.AuxSendsMode, 0, int8(mixer.DirectOutsPostFader)) {
		return fmt.Errorf("aux_sends_mode must be in [0,%d]", mixer.DirectOutsPostFader)
	}
	if f.PanLawMono != nil && !inRange(*f.PanLawMono, 0, int8(mixer.PanLawMono6dB)) {
		return fmt.Errorf("pan_law_mono must be in [0,%d]", mixer.PanLawMono6dB)
	}
	if f.PanLawStereo != nil && !inRange(*f.PanLawStereo, 0, int8(mixer.PanLawStereoPerTrack)) {
		return fmt.Errorf("pan_law_stereo must be in [0,%d]", mixer.PanLawStereoPerTrack)
	}
	if f.DimGain != nil && !inRange(*f.DimGain, 0.001, 1) {
		return fmt.Errorf("dim_gain must be in [0.001,1]")
	}
	params := m.Module().Params
	if f.Master != nil && f.Master.Fader != nil {
		if err := checkParam("master.fader", *f.Master.Fader, params[mixer.MainFaderParam]); err != nil {
			return err
		}
	}

	for _, k := range sortedKeys(f.Tracks) {
		i, err := channelKey("tracks", k, mixer.NumTracks)
		if err != nil {
			return err
		}
		s := f.Tracks[k]
		key := fmt.Sprintf("tracks[%d]", i+1)
		if err := s.validate(key, params[mixer.TrackPanParams+i], params[mixer.TrackFaderParams+i]); err != nil {
			return err
		}
		if s.Group != nil && (*s.Group < 0 || *s.Group > mixer.NumGroups) {
			return fmt.Errorf("%s.group must be in [0,%d]", key, mixer.NumGroups)
		}
		if s.DirectOutsMode != nil && !inRange(*s.DirectOutsMode, 0, int8(mixer.DirectOutsPostFader)) {
			return fmt.Errorf("%s.direct_outs_mode must be in [0,%d]", key, mixer.DirectOutsPostFader)
		}
		if s.PanLawStereo != nil && !inRange(*s.PanLawStereo, 0, int8(mixer.PanLawStereoTruePan)) {
			return fmt.Errorf("%s.pan_law_stereo must be in [0,%d]", key, mixer.PanLawStereoTruePan)
		}
	}
	for _, k := range sortedKeys(f.Groups) {
		i, err := channelKey("groups", k, mixer.NumGroups)
		if err != nil {
			return err
		}
		key := fmt.Sprintf("groups[%d]", i+1)
		if err := f.Groups[k].validate(key, params[mixer.GroupPanParams+i], params[mixer.GroupFaderParams+i]); err != nil {
			return err
		}
	}
	return nil
}

func (s ChannelSetting) validate(key string, pan, fader host.Param) error {
	if s.GainAdjustDB != nil && !inRange(*s.GainAdjustDB, -20, 20) {
		return fmt.Errorf("%s.gain_adjust_db must be in [-20,20]", key)
	}
	if s.FadeRate != nil && !inRange(*s.FadeRate, 0, mixer.MaxFadeRate) {
		return fmt.Errorf("%s.fade_rate must be in [0,%g]", key, mixer.MaxFadeRate)
	}
	if s.FadeProfile != nil && !inRange(*s.FadeProfile, -1, 1) {
		return fmt.Errorf("%s.fade_profile must be in [-1,1]", key)
	}
	if s.HPFCutoffHz != nil && !inRange(*s.HPFCutoffHz, mixer.HPFCutoffFreqLow, mixer.HPFCutoffFreqHigh) {
		return fmt.Errorf("%s.hpf_cutoff_hz must be in [%g,%g]", key, mixer.HPFCutoffFreqLow, mixer.HPFCutoffFreqHigh)
	}
	if s.LPFCutoffHz != nil && !inRange(*s.LPFCutoffHz, mixer.LPFCutoffFreqLow, mixer.LPFCutoffFreqHigh) {
		return fmt.Errorf("%s.lpf_cutoff_hz must be in [%g,%g]", key, mixer.LPFCutoffFreqLow, mixer.LPFCutoffFreqHigh)
	}
	if s.Pan != nil {
		if err := checkParam(key+".pan", *s.Pan, pan); err != nil {
			return err
		}
	}
	if s.Fader != nil {
		if err := checkParam(key+".fader", *s.Fader, fader); err != nil {
			return err
		}
	}
	return nil
}

func apply(m *mixer.MixMaster, f *File) {
	g := m.Global()
	params := m.Module().Params
	if f.PanelTheme != nil {
		m.SetPanelTheme(*f.PanelTheme)
	}
	if f.TrackLabels != nil {
		m.SetLabels(*f.TrackLabels)
	}
	if f.DirectOutsMode != nil {
		g.SetDirectOutsMode(mixer.DirectOutsMode(*f.DirectOutsMode))
	}
	if f.AuxSendsMode != nil {
		g.SetAuxSendsMode(mixer.DirectOutsMode(*f.AuxSendsMode))
	}
	if f.PanLawMono != nil {
		g.SetPanLawMono(mixer.PanLawMono(*f.PanLawMono))
	}
	if f.PanLawStereo != nil {
		g.SetPanLawStereo(mixer.PanLawStereo(*f.PanLawStereo))
	}
	if f.SymmetricalFade != nil {
		g.SetSymmetricalFade(*f.SymmetricalFade)
	}
	if f.ColorAndCloak != nil {
		for i, v := range f.ColorAndCloak {
			g.SetColorAndCloak(i, v)
		}
	}
	if f.DimGain != nil {
		g.SetDimGain(*f.DimGain)
	}
	if ms := f.Master; ms != nil {
		setParam(&params[mixer.MainFaderParam], ms.Fader)
		setButton(&params[mixer.MainMuteParam], ms.Mute)
		setButton(&params[mixer.MainDimParam], ms.Dim)
		setButton(&params[mixer.MainMonoParam], ms.Mono)
	}

	for k, s := range f.Tracks {
		i, _ := channelKey("tracks", k, mixer.NumTracks)
		t := m.Track(i)
		s.applyTo(t, params, mixer.TrackPanParams+i, mixer.TrackFaderParams+i, mixer.TrackMuteParams+i, mixer.TrackSoloParams+i)
		if s.Group != nil {
			t.SetGroup(*s.Group)
		}
		if s.DirectOutsMode != nil {
			t.SetDirectOutsMode(mixer.DirectOutsMode(*s.DirectOutsMode))
		}
		if s.PanLawStereo != nil {
			t.SetPanLawStereo(mixer.PanLawStereo(*s.PanLawStereo))
		}
	}
	for k, s := range f.Groups {
		i, _ := channelKey("groups", k, mixer.NumGroups)
		s.applyTo(m.Group(i), params, mixer.GroupPanParams+i, mixer.GroupFaderParams+i, mixer.GroupMuteParams+i, mixer.GroupSoloParams+i)
	}
}

// strip is the settings surface shared by tracks and groups.
type strip interface {
	SetGainAdjustDB(db float32)
	SetFadeRate(rate float32)
	SetFadeProfile(profile float32)
	SetHPFCutoffFreq(fc float32)
	SetLPFCutoffFreq(fc float32)
}

func (s ChannelSetting) applyTo(c strip, params []host.Param, pan, fader, mute, solo int) {
	if s.GainAdjustDB != nil {
		c.SetGainAdjustDB(*s.GainAdjustDB)
	}
	if s.FadeRate != nil {
		c.SetFadeRate(*s.FadeRate)
	}
	if s.FadeProfile != nil {
		c.SetFadeProfile(*s.FadeProfile)
	}
	if s.HPFCutoffHz != nil {
		c.SetHPFCutoffFreq(*s.HPFCutoffHz)
	}
	if s.LPFCutoffHz != nil {
		c.SetLPFCutoffFreq(*s.LPFCutoffHz)
	}
	setParam(&params[pan], s.Pan)
	setParam(&params[fader], s.Fader)
	setButton(&params[mute], s.Mute)
	setButton(&params[solo], s.Solo)
}

// channelKey parses a 1-based channel key into a 0-based index.
func channelKey(section, k string, n int) (int, error) {
	i, err := strconv.Atoi(k)
	if err != nil || i < 1 || i > n {
		return 0, fmt.Errorf("invalid %s key %q (expected 1..%d)", section, k, n)
	}
	return i - 1, nil
}

func checkParam(key string, v float32, p host.Param) error {
	cfg := p.Config()
	if !inRange(v, cfg.Min, cfg.Max) {
		return fmt.Errorf("%s must be in [%g,%g]", key, cfg.Min, cfg.Max)
	}
	return nil
}

func setParam(p *host.Param, v *float32) {
	if v != nil {
		p.SetValue(*v)
	}
}

func setButton(p *host.Param, v *bool) {
	if v == nil {
		return
	}
	if *v {
		p.SetValue(1)
	} else {
		p.SetValue(0)
	}
}

func on(p host.Param) bool { return p.Value() >= 0.5 }

func inRange[T int8 | float32](v, lo, hi T) bool { return v >= lo && v <= hi }

func ptr[T any](v T) *T { return &v }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeJSON(path string, v any) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644)
}
