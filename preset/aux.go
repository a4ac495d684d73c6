package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/cwbudde/algo-mixmaster/mixer"
)

// AuxFile is the JSON schema for aux expander presets.
type AuxFile struct {
	PanelTheme   *int32                   `json:"panel_theme,omitempty"`
	VuColorTheme *[mixer.NumAux]int8      `json:"vu_color_theme,omitempty"`
	AuxLabels    *[mixer.NumAux]string    `json:"aux_labels,omitempty"`
	Sends        map[string]SendSetting   `json:"sends,omitempty"`
	Returns      map[string]ReturnSetting `json:"returns,omitempty"`
}

// SendSetting holds the four send levels and the send mute of one channel.
// Channels are keyed 1-16 for tracks and 17-20 for groups.
type SendSetting struct {
	Levels *[mixer.NumAux]float32 `json:"levels,omitempty"`
	Mute   *bool                  `json:"mute,omitempty"`
}

// ReturnSetting holds the global send and return strip of one aux, keyed A-D.
type ReturnSetting struct {
	Send  *float32 `json:"send,omitempty"`
	Pan   *float32 `json:"pan,omitempty"`
	Level *float32 `json:"level,omitempty"`
	Mute  *bool    `json:"mute,omitempty"`
	Solo  *bool    `json:"solo,omitempty"`
	Group *int     `json:"group,omitempty"`
}

const numAuxChannels = mixer.NumTracks + mixer.NumGroups

// LoadAuxJSON resets a and applies the preset at path.
func LoadAuxJSON(path string, a *mixer.AuxExpander) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var f AuxFile
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("aux preset %s: %w", path, err)
	}
	if err := f.Validate(a); err != nil {
		return fmt.Errorf("aux preset %s: %w", path, err)
	}
	a.OnReset()
	applyAux(a, &f)
	a.ResetNonJson()
	return nil
}

// SaveAuxJSON writes a snapshot of a to path.
func SaveAuxJSON(path string, a *mixer.AuxExpander) error {
	return writeJSON(path, AuxSnapshot(a))
}

// ApplyAuxFile validates f and applies it on top of the current state of a.
func ApplyAuxFile(a *mixer.AuxExpander, f *AuxFile) error {
	if a == nil {
		return fmt.Errorf("nil destination expander")
	}
	if f == nil {
		return nil
	}
	if err := f.Validate(a); err != nil {
		return err
	}
	applyAux(a, f)
	a.ResetNonJson()
	return nil
}

// AuxSnapshot captures every persisted field of a.
func AuxSnapshot(a *mixer.AuxExpander) *AuxFile {
	params := a.Module().Params
	f := &AuxFile{
		PanelTheme:   ptr(a.PanelTheme()),
		VuColorTheme: &[mixer.NumAux]int8{},
		AuxLabels:    &[mixer.NumAux]string{},
		Sends:        make(map[string]SendSetting, numAuxChannels),
		Returns:      make(map[string]ReturnSetting, mixer.NumAux),
	}
	for aux := 0; aux < mixer.NumAux; aux++ {
		f.VuColorTheme[aux] = a.VuColorTheme(aux)
		f.AuxLabels[aux] = a.AuxLabel(aux)
		f.Returns[auxKey(aux)] = ReturnSetting{
			Send:  ptr(params[mixer.GlobalAuxSendParams+aux].Value()),
			Pan:   ptr(params[mixer.GlobalAuxPanParams+aux].Value()),
			Level: ptr(params[mixer.GlobalAuxReturnParams+aux].Value()),
			Mute:  ptr(on(params[mixer.GlobalAuxMuteParams+aux])),
			Solo:  ptr(on(params[mixer.GlobalAuxSoloParams+aux])),
			Group: ptr(int(params[mixer.GlobalAuxGroupParams+aux].Value())),
		}
	}
	for ch := 0; ch < numAuxChannels; ch++ {
		var levels [mixer.NumAux]float32
		for aux := range levels {
			levels[aux] = params[mixer.TrackAuxSendParams+ch*mixer.NumAux+aux].Value()
		}
		f.Sends[strconv.Itoa(ch+1)] = SendSetting{
			Levels: &levels,
			Mute:   ptr(on(params[mixer.TrackAuxMuteParams+ch])),
		}
	}
	return f
}

// Validate checks every present field against its range.
func (f *AuxFile) Validate(a *mixer.AuxExpander) error {
	if f.AuxLabels != nil {
		for aux, l := range f.AuxLabels {
			if len(l) > 4 {
				return fmt.Errorf("aux_labels[%d] must be at most 4 characters", aux)
			}
		}
	}
	params := a.Module().Params
	for _, k := range sortedKeys(f.Sends) {
		ch, err := channelKey("sends", k, numAuxChannels)
		if err != nil {
			return err
		}
		s := f.Sends[k]
		if s.Levels == nil {
			continue
		}
		for aux, v := range s.Levels {
			key := fmt.Sprintf("sends[%d].levels[%d]", ch+1, aux)
			if err := checkParam(key, v, params[mixer.TrackAuxSendParams+ch*mixer.NumAux+aux]); err != nil {
				return err
			}
		}
	}
	for _, k := range sortedKeys(f.Returns) {
		aux, err := parseAuxKey(k)
		if err != nil {
			return err
		}
		r := f.Returns[k]
		key := "returns[" + k + "]"
		checks := []struct {
			name string
			v    *float32
			id   int
		}{
			{"send", r.Send, mixer.GlobalAuxSendParams + aux},
			{"pan", r.Pan, mixer.GlobalAuxPanParams + aux},
			{"level", r.Level, mixer.GlobalAuxReturnParams + aux},
		}
		for _, c := range checks {
			if c.v == nil {
				continue
			}
			if err := checkParam(key+"."+c.name, *c.v, params[c.id]); err != nil {
				return err
			}
		}
		if r.Group != nil && (*r.Group < 0 || *r.Group > mixer.NumGroups) {
			return fmt.Errorf("%s.group must be in [0,%d]", key, mixer.NumGroups)
		}
	}
	return nil
}

func applyAux(a *mixer.AuxExpander, f *AuxFile) {
	params := a.Module().Params
	if f.PanelTheme != nil {
		a.SetPanelTheme(*f.PanelTheme)
	}
	if f.VuColorTheme != nil {
		for aux, v := range f.VuColorTheme {
			a.SetVuColorTheme(aux, v)
		}
	}
	if f.AuxLabels != nil {
		for aux, l := range f.AuxLabels {
			a.SetAuxLabel(aux, l)
		}
	}
	for k, s := range f.Sends {
		ch, _ := channelKey("sends", k, numAuxChannels)
		if s.Levels != nil {
			for aux, v := range s.Levels {
				params[mixer.TrackAuxSendParams+ch*mixer.NumAux+aux].SetValue(v)
			}
		}
		setButton(&params[mixer.TrackAuxMuteParams+ch], s.Mute)
	}
	for k, r := range f.Returns {
		aux, _ := parseAuxKey(k)
		setParam(&params[mixer.GlobalAuxSendParams+aux], r.Send)
		setParam(&params[mixer.GlobalAuxPanParams+aux], r.Pan)
		setParam(&params[mixer.GlobalAuxReturnParams+aux], r.Level)
		setButton(&params[mixer.GlobalAuxMuteParams+aux], r.Mute)
		setButton(&params[mixer.GlobalAuxSoloParams+aux], r.Solo)
		if r.Group != nil {
			params[mixer.GlobalAuxGroupParams+aux].SetValue(float32(*r.Group))
		}
	}
}

func auxKey(aux int) string { return string(rune('A' + aux)) }

func parseAuxKey(k string) (int, error) {
	if len(k) != 1 || k[0] < 'A' || k[0] >= 'A'+mixer.NumAux {
		return 0, fmt.Errorf("invalid returns key %q (expected A..D)", k)
	}
	return int(k[0] - 'A'), nil
}
