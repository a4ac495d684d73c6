package main

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/cwbudde/algo-mixmaster/host"
	"github.com/cwbudde/algo-mixmaster/mixer"
)

// runScript executes a Lua scene description against sc. Channels are
// 1-based in scripts:
//
//	tone(220)
//	feed(1, 5)             -- track 1, 5 V mono
//	feed(2, 5, true)       -- stereo
//	track(1, {pan = 0.2, fader = 0.8, group = 2, gain_db = -3, hpf = 80})
//	group(2, {solo = true})
//	master({dim = true})
//	global({pan_law_mono = 1, pan_law_stereo = 2, aux_sends = 0})
//	label(17, "DRUM")
//	aux()                  -- attach an expander
//	send(1, 1, 0.7)        -- track 1 to aux A
//	ret(1, 2)              -- 2 V DC on return A left
func runScript(sc *scene, name, src string) error {
	L := lua.NewState()
	defer L.Close()

	reg := func(fn string, f func(L *lua.LState) error) {
		L.SetGlobal(fn, L.NewFunction(func(L *lua.LState) int {
			if err := f(L); err != nil {
				L.RaiseError("%s: %v", fn, err)
			}
			return 0
		}))
	}

	reg("tone", func(L *lua.LState) error {
		hz := float64(L.CheckNumber(1))
		if hz <= 0 {
			return fmt.Errorf("frequency must be > 0")
		}
		sc.toneHz = hz
		return nil
	})
	reg("feed", func(L *lua.LState) error {
		return sc.feed(L.CheckInt(1)-1, float32(L.CheckNumber(2)), L.OptBool(3, false))
	})
	reg("track", func(L *lua.LState) error {
		n := L.CheckInt(1)
		if n < 1 || n > mixer.NumTracks {
			return fmt.Errorf("track %d out of range", n)
		}
		i := n - 1
		tbl := L.CheckTable(2)
		t := sc.m.Track(i)
		applyStrip(tbl, t, sc.m.Module().Params, mixer.TrackPanParams+i, mixer.TrackFaderParams+i, mixer.TrackMuteParams+i, mixer.TrackSoloParams+i)
		if v, ok := number(tbl, "group"); ok {
			t.SetGroup(int(v))
		}
		if v, ok := number(tbl, "direct_outs"); ok {
			t.SetDirectOutsMode(mixer.DirectOutsMode(v))
		}
		if v, ok := number(tbl, "pan_law_stereo"); ok {
			t.SetPanLawStereo(mixer.PanLawStereo(v))
		}
		return nil
	})
	reg("group", func(L *lua.LState) error {
		n := L.CheckInt(1)
		if n < 1 || n > mixer.NumGroups {
			return fmt.Errorf("group %d out of range", n)
		}
		i := n - 1
		applyStrip(L.CheckTable(2), sc.m.Group(i), sc.m.Module().Params, mixer.GroupPanParams+i, mixer.GroupFaderParams+i, mixer.GroupMuteParams+i, mixer.GroupSoloParams+i)
		return nil
	})
	reg("master", func(L *lua.LState) error {
		tbl := L.CheckTable(1)
		params := sc.m.Module().Params
		if v, ok := number(tbl, "fader"); ok {
			params[mixer.MainFaderParam].SetValue(v)
		}
		setFlag(tbl, "mute", &params[mixer.MainMuteParam])
		setFlag(tbl, "dim", &params[mixer.MainDimParam])
		setFlag(tbl, "mono", &params[mixer.MainMonoParam])
		return nil
	})
	reg("global", func(L *lua.LState) error {
		tbl := L.CheckTable(1)
		g := sc.m.Global()
		if v, ok := number(tbl, "pan_law_mono"); ok {
			g.SetPanLawMono(mixer.PanLawMono(v))
		}
		if v, ok := number(tbl, "pan_law_stereo"); ok {
			g.SetPanLawStereo(mixer.PanLawStereo(v))
		}
		if v, ok := number(tbl, "direct_outs"); ok {
			g.SetDirectOutsMode(mixer.DirectOutsMode(v))
		}
		if v, ok := number(tbl, "aux_sends"); ok {
			g.SetAuxSendsMode(mixer.DirectOutsMode(v))
		}
		if v, ok := number(tbl, "dim_gain"); ok {
			g.SetDimGain(v)
		}
		if v := tbl.RawGetString("symmetrical_fade"); v.Type() == lua.LTBool {
			g.SetSymmetricalFade(lua.LVAsBool(v))
		}
		return nil
	})
	reg("label", func(L *lua.LState) error {
		ch := L.CheckInt(1)
		if ch < 1 || ch > mixer.NumTracks+mixer.NumGroups {
			return fmt.Errorf("channel %d out of range", ch)
		}
		sc.m.SetLabel(ch-1, L.CheckString(2))
		return nil
	})
	reg("aux", func(L *lua.LState) error { return sc.attachAux() })
	reg("send", func(L *lua.LState) error {
		if sc.aux == nil {
			return fmt.Errorf("call aux() first")
		}
		ch, aux := L.CheckInt(1), L.CheckInt(2)
		if ch < 1 || ch > mixer.NumTracks+mixer.NumGroups || aux < 1 || aux > mixer.NumAux {
			return fmt.Errorf("send %d/%d out of range", ch, aux)
		}
		sc.aux.Module().Params[mixer.TrackAuxSendParams+(ch-1)*mixer.NumAux+aux-1].SetValue(float32(L.CheckNumber(3)))
		return nil
	})
	reg("ret", func(L *lua.LState) error {
		return sc.feedReturn(L.CheckInt(1)-1, float32(L.CheckNumber(2)))
	})

	if err := L.DoString(src); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

type stripSettings interface {
	SetGainAdjustDB(db float32)
	SetFadeRate(rate float32)
	SetFadeProfile(profile float32)
	SetHPFCutoffFreq(fc float32)
	SetLPFCutoffFreq(fc float32)
}

func applyStrip(tbl *lua.LTable, s stripSettings, params []host.Param, pan, fader, mute, solo int) {
	if v, ok := number(tbl, "pan"); ok {
		params[pan].SetValue(v)
	}
	if v, ok := number(tbl, "fader"); ok {
		params[fader].SetValue(v)
	}
	setFlag(tbl, "mute", &params[mute])
	setFlag(tbl, "solo", &params[solo])
	if v, ok := number(tbl, "gain_db"); ok {
		s.SetGainAdjustDB(v)
	}
	if v, ok := number(tbl, "fade"); ok {
		s.SetFadeRate(v)
	}
	if v, ok := number(tbl, "fade_profile"); ok {
		s.SetFadeProfile(v)
	}
	if v, ok := number(tbl, "hpf"); ok {
		s.SetHPFCutoffFreq(v)
	}
	if v, ok := number(tbl, "lpf"); ok {
		s.SetLPFCutoffFreq(v)
	}
}

func number(tbl *lua.LTable, key string) (float32, bool) {
	v := tbl.RawGetString(key)
	if v.Type() != lua.LTNumber {
		return 0, false
	}
	return float32(lua.LVAsNumber(v)), true
}

func setFlag(tbl *lua.LTable, key string, p *host.Param) {
	v := tbl.RawGetString(key)
	if v.Type() != lua.LTBool {
		return
	}
	if lua.LVAsBool(v) {
		p.SetValue(1)
	} else {
		p.SetValue(0)
	}
}
