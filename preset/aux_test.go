package preset

import (
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/cwbudde/algo-mixmaster/mixer"
)

func newAux(t *testing.T) *mixer.AuxExpander {
	t.Helper()
	a, err := mixer.NewAuxExpander()
	if err != nil {
		t.Fatalf("mixer.NewAuxExpander: %v", err)
	}
	return a
}

func TestAuxSaveLoadRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	src := newAux(t)
	src.SetPanelTheme(1)
	params := src.Module().Params
	for i := range params {
		cfg := params[i].Config()
		switch {
		case strings.Contains(cfg.Name, "mute"), strings.Contains(cfg.Name, "solo"):
			params[i].SetValue(float32(rng.Intn(2)))
		case strings.Contains(cfg.Name, "return group"):
			params[i].SetValue(float32(rng.Intn(mixer.NumGroups + 1)))
		default:
			params[i].SetValue(uniform(rng, cfg.Min, cfg.Max))
		}
	}
	for aux := 0; aux < mixer.NumAux; aux++ {
		src.SetVuColorTheme(aux, int8(rng.Intn(5)))
		src.SetAuxLabel(aux, []string{"REV", "DLY", "CHO", "PLATE"}[aux])
	}
	want := AuxSnapshot(src)

	path := filepath.Join(t.TempDir(), "aux.json")
	if err := SaveAuxJSON(path, src); err != nil {
		t.Fatalf("SaveAuxJSON: %v", err)
	}
	dst := newAux(t)
	if err := LoadAuxJSON(path, dst); err != nil {
		t.Fatalf("LoadAuxJSON: %v", err)
	}
	if got := AuxSnapshot(dst); !reflect.DeepEqual(got, want) {
		t.Fatalf("snapshot after load differs\ngot  %+v\nwant %+v", got, want)
	}
	if got := dst.AuxLabel(3); got != "PLAT" {
		t.Fatalf("aux D label: got %q want truncated PLAT", got)
	}
}

func TestAuxPartialDocumentKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aux.json")
	content := `{"sends":{"18":{"levels":[0,0.5,0,0]}},"returns":{"C":{"solo":true}}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write preset: %v", err)
	}
	a := newAux(t)
	a.SetAuxLabel(0, "FOO")
	if err := LoadAuxJSON(path, a); err != nil {
		t.Fatalf("LoadAuxJSON: %v", err)
	}
	params := a.Module().Params
	if got := params[mixer.TrackAuxSendParams+17*mixer.NumAux+1].Value(); got != 0.5 {
		t.Fatalf("group 2 send B: got %g", got)
	}
	if got := params[mixer.GlobalAuxSoloParams+2].Value(); got != 1 {
		t.Fatalf("return C solo: got %g", got)
	}
	if got := params[mixer.GlobalAuxSendParams].Value(); got != 1 {
		t.Fatalf("global send A should keep its default, got %g", got)
	}
	if got := a.AuxLabel(0); got != "AUXA" {
		t.Fatalf("aux A label: got %q want AUXA", got)
	}
}

func TestAuxLoadRejectsBadDocuments(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"send key", `{"sends":{"21":{}}}`, `invalid sends key "21"`},
		{"return key", `{"returns":{"E":{}}}`, `invalid returns key "E"`},
		{"level", `{"sends":{"1":{"levels":[2,0,0,0]}}}`, "sends[1].levels[0] must be in"},
		{"pan", `{"returns":{"B":{"pan":-1}}}`, "returns[B].pan must be in [0,1]"},
		{"group", `{"returns":{"A":{"group":9}}}`, "returns[A].group"},
		{"label", `{"aux_labels":["A","B","CCCCC","D"]}`, "aux_labels[2]"},
	}
	dir := t.TempDir()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.name+".json")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write preset: %v", err)
			}
			err := LoadAuxJSON(path, newAux(t))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("got %v, want error mentioning %q", err, tc.want)
			}
		})
	}
}
