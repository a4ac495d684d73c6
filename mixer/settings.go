package mixer

// TrackSettings are the menu settings of one track, the unit of track
// copy/paste.
type TrackSettings struct {
	GainAdjustDB   float32
	FadeRate       float32
	FadeProfile    float32
	HPFCutoffFreq  float32
	LPFCutoffFreq  float32
	DirectOutsMode DirectOutsMode
	PanLawStereo   PanLawStereo
}

// GainAdjustDB returns the input trim in dB.
func (c *channel) GainAdjustDB() float32 { return c.gainAdjustDB }

// SetGainAdjustDB sets the input trim, clamped to ±20 dB.
func (c *channel) SetGainAdjustDB(db float32) { c.setGainAdjustDB(db) }

// FadeRate returns the fade time in seconds; 0 means mutes are instant.
func (c *channel) FadeRate() float32 { return c.fadeRate }

// SetFadeRate sets the fade time, clamped to [0, MaxFadeRate].
func (c *channel) SetFadeRate(rate float32) { c.setFadeRate(rate) }

// FadeProfile returns the fade curve shape in [-1, 1].
func (c *channel) FadeProfile() float32 { return c.fadeProfile }

// SetFadeProfile sets the fade curve shape, clamped to [-1, 1].
func (c *channel) SetFadeProfile(profile float32) { c.setFadeProfile(profile) }

// SetHPFCutoffFreq sets the highpass cutoff within [HPFCutoffFreqLow,
// HPFCutoffFreqHigh]. Values below MinHPFCutoffFreq switch the filter off.
func (c *channel) SetHPFCutoffFreq(fc float32) {
	c.setHPFCutoffFreq(clamp(fc, HPFCutoffFreqLow, HPFCutoffFreqHigh))
}

// SetLPFCutoffFreq sets the lowpass cutoff within [LPFCutoffFreqLow,
// LPFCutoffFreqHigh]. Values above MaxLPFCutoffFreq switch the filter off.
func (c *channel) SetLPFCutoffFreq(fc float32) {
	c.setLPFCutoffFreq(clamp(fc, LPFCutoffFreqLow, LPFCutoffFreqHigh))
}

// DirectOutsMode returns the track's own tap, used when the global mode is per-track.
func (t *MixerTrack) DirectOutsMode() DirectOutsMode { return t.directOutsMode }

// SetDirectOutsMode sets the track's own tap. Only pre and post are valid.
func (t *MixerTrack) SetDirectOutsMode(mode DirectOutsMode) {
	if mode == DirectOutsPreFader || mode == DirectOutsPostFader {
		t.directOutsMode = mode
	}
}

// PanLawStereo returns the track's own stereo pan mode.
func (t *MixerTrack) PanLawStereo() PanLawStereo { return t.panLawStereo }

// SetPanLawStereo sets the track's own stereo pan mode, used when the global
// mode is per-track.
func (t *MixerTrack) SetPanLawStereo(law PanLawStereo) {
	if law >= 0 && law < PanLawStereoPerTrack {
		t.panLawStereo = law
	}
}

// SetGroup assigns the track to group grp (1-4) or to the master bus (0).
func (t *MixerTrack) SetGroup(grp int) { t.setGroup(grp) }

// Settings returns a copy of the track's settings.
func (t *MixerTrack) Settings() TrackSettings {
	return TrackSettings{
		GainAdjustDB:   t.gainAdjustDB,
		FadeRate:       t.fadeRate,
		FadeProfile:    t.fadeProfile,
		HPFCutoffFreq:  t.hpfCutoffFreq,
		LPFCutoffFreq:  t.lpfCutoffFreq,
		DirectOutsMode: t.directOutsMode,
		PanLawStereo:   t.panLawStereo,
	}
}

// ApplySettings overwrites the track's settings, clamping each field.
func (t *MixerTrack) ApplySettings(s TrackSettings) {
	t.SetGainAdjustDB(s.GainAdjustDB)
	t.SetFadeRate(s.FadeRate)
	t.SetFadeProfile(s.FadeProfile)
	t.SetHPFCutoffFreq(s.HPFCutoffFreq)
	t.SetLPFCutoffFreq(s.LPFCutoffFreq)
	t.SetDirectOutsMode(s.DirectOutsMode)
	t.SetPanLawStereo(s.PanLawStereo)
}

// CopyTrackSettings pastes the settings of track src onto track dst.
func (m *MixMaster) CopyTrackSettings(src, dst int) {
	if src == dst {
		return
	}
	m.tracks[dst].ApplySettings(m.tracks[src].Settings())
}

// SetDirectOutsMode sets the direct-outs tap for every bank.
func (g *GlobalInfo) SetDirectOutsMode(mode DirectOutsMode) {
	if mode >= 0 && mode < numDirectOutsModes {
		g.directOutsMode = mode
		g.slowDirty = true
	}
}

// AuxSendsMode returns the tap feeding the aux buses.
func (g *GlobalInfo) AuxSendsMode() DirectOutsMode { return g.auxSendsMode }

// SetAuxSendsMode selects pre- or post-fader aux sends.
func (g *GlobalInfo) SetAuxSendsMode(mode DirectOutsMode) {
	if mode == DirectOutsPreFader || mode == DirectOutsPostFader {
		g.auxSendsMode = mode
		g.slowDirty = true
	}
}

// SetPanLawMono sets the mono pan law.
func (g *GlobalInfo) SetPanLawMono(law PanLawMono) {
	if law >= 0 && law < numPanLawMono {
		g.panLawMono = law
		g.slowDirty = true
	}
}

// SetPanLawStereo sets the global stereo pan mode.
func (g *GlobalInfo) SetPanLawStereo(law PanLawStereo) {
	if law >= 0 && law < numPanLawStereo {
		g.panLawStereo = law
		g.slowDirty = true
	}
}

// SetSymmetricalFade selects whether reversed fades retrace their curve.
func (g *GlobalInfo) SetSymmetricalFade(on bool) { g.symmetricalFade = on }

// DimGain returns the dim attenuation as a linear gain.
func (g *GlobalInfo) DimGain() float32 { return g.dimGain }

// SetDimGain sets the dim attenuation; the applied gain is rounded to whole dB.
func (g *GlobalInfo) SetDimGain(dimGain float32) { g.setDimGain(dimGain) }

// ColorAndCloak returns the packed cloak and color bytes.
func (g *GlobalInfo) ColorAndCloak() [4]int8 { return g.colorAndCloak }

// SetColorAndCloak sets byte i (CcCloakedMode ... CcDetailsShow).
func (g *GlobalInfo) SetColorAndCloak(i int, v int8) {
	if i < 0 || i >= len(g.colorAndCloak) {
		return
	}
	g.colorAndCloak[i] = v
	g.slowDirty = true
}

// CloakedMode reports whether the cloaked display mode is on.
func (g *GlobalInfo) CloakedMode() bool { return g.colorAndCloak[CcCloakedMode] != 0 }

// Labels returns the 80-byte label buffer: 16 tracks then 4 groups, 4 chars each.
func (m *MixMaster) Labels() string { return string(m.labels[:]) }

// SetLabels overwrites the label buffer. Short input leaves the remaining
// labels untouched; non-printable bytes become spaces.
func (m *MixMaster) SetLabels(s string) {
	n := copy(m.labels[:], s)
	sanitizeLabel(m.labels[:n])
	m.updateSlow = true
}

// Label returns the label of channel ch (tracks 0-15, groups 16-19).
func (m *MixMaster) Label(ch int) string { return string(m.labels[4*ch : 4*ch+4]) }

// SetLabel sets the label of channel ch, space padded or truncated to 4 chars.
func (m *MixMaster) SetLabel(ch int, label string) {
	if ch < 0 || ch >= numChannels {
		return
	}
	dst := m.labels[4*ch : 4*ch+4]
	n := copy(dst, label)
	for i := n; i < len(dst); i++ {
		dst[i] = ' '
	}
	sanitizeLabel(dst)
	m.updateSlow = true
}

func sanitizeLabel(b []byte) {
	for i, c := range b {
		if c < 0x20 || c > 0x7e {
			b[i] = ' '
		}
	}
}

// DefaultLabel returns the reset label of channel ch.
func DefaultLabel(ch int) string {
	return defaultTrackLabels[4*ch : 4*ch+4]
}

// PanelTheme returns the panel theme index.
func (m *MixMaster) PanelTheme() int32 { return m.panelTheme }

// SetPanelTheme sets the panel theme index.
func (m *MixMaster) SetPanelTheme(theme int32) {
	m.panelTheme = theme
	m.updateSlow = true
}
