package main

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/cwbudde/algo-mixmaster/internal/probe"
	"github.com/cwbudde/algo-mixmaster/mixer"
)

// wideColumns is the terminal width from which the pan columns are printed.
const wideColumns = 100

type channelRow struct {
	label     string
	group     int
	fader     float32
	panL      float32
	panR      float32
	audible   float32
	resolved  float32
	postRMSDB float64
}

func collectRows(sc *scene) []channelRow {
	params := sc.m.Module().Params
	law := sc.m.Global().PanLawMono()
	rows := make([]channelRow, 0, mixer.NumTracks+mixer.NumGroups)
	for i := 0; i < mixer.NumTracks; i++ {
		t := sc.m.Track(i)
		l, r := mixer.MonoPanCoefficients(law, params[mixer.TrackPanParams+i].Value())
		rows = append(rows, channelRow{
			label:     t.Label(),
			group:     t.Group(),
			fader:     mixer.TrackFaderLaw.LinearGain(params[mixer.TrackFaderParams+i].Value()),
			panL:      l,
			panR:      r,
			audible:   t.AudibleTarget(),
			resolved:  t.ResolvedGain(),
			postRMSDB: probe.DB(sc.postRMS(i)),
		})
	}
	for i := 0; i < mixer.NumGroups; i++ {
		g := sc.m.Group(i)
		l, r := mixer.MonoPanCoefficients(law, params[mixer.GroupPanParams+i].Value())
		rows = append(rows, channelRow{
			label:     g.Label(),
			fader:     mixer.TrackFaderLaw.LinearGain(params[mixer.GroupFaderParams+i].Value()),
			panL:      l,
			panR:      r,
			audible:   g.AudibleTarget(),
			resolved:  g.ResolvedGain(),
			postRMSDB: probe.DB(sc.postRMS(mixer.NumTracks + i)),
		})
	}
	return rows
}

func writeReport(w io.Writer, sc *scene, master []float32, width int) {
	wide := width == 0 || width >= wideColumns
	header := fmt.Sprintf("%-3s %-4s %-3s %8s", "ch", "name", "grp", "fader")
	if wide {
		header += fmt.Sprintf(" %7s %7s", "pan L", "pan R")
	}
	header += fmt.Sprintf(" %7s %8s %9s", "target", "gain", "post dB")
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))

	for i, row := range collectRows(sc) {
		grp := "-"
		if row.group > 0 {
			grp = fmt.Sprint(row.group)
		}
		line := fmt.Sprintf("%-3d %-4s %-3s %8.4f", i+1, row.label, grp, row.fader)
		if wide {
			line += fmt.Sprintf(" %7.4f %7.4f", row.panL, row.panR)
		}
		line += fmt.Sprintf(" %7.0f %8.4f %9s", row.audible, row.resolved, formatDB(row.postRMSDB))
		fmt.Fprintln(w, line)
	}

	g := sc.m.Global()
	fmt.Fprintf(w, "\nsolo mask %#07x, dim %.2f dB\n", g.SoloBitMask(), probe.DB(float64(g.DimGainIntegerDB())))
	vu := sc.m.MasterVu()
	fmt.Fprintf(w, "master L %s dB, R %s dB, peak %.3f V, vu %.3f/%.3f V\n",
		formatDB(probe.DB(probe.ChannelRMS(master, 0, 2))),
		formatDB(probe.DB(probe.ChannelRMS(master, 1, 2))),
		probe.Peak(master), vu[0], vu[1])
	if sc.aux != nil {
		for aux := 0; aux < mixer.NumAux; aux++ {
			s := sc.m.AuxSend(aux)
			fmt.Fprintf(w, "aux %c send %.4f/%.4f V, return vu %.4f\n", 'A'+aux, s[0], s[1], sc.aux.AuxVu(aux)[0])
		}
	}
}

func formatDB(db float64) string {
	if math.IsInf(db, -1) {
		return "-inf"
	}
	return fmt.Sprintf("%.2f", db)
}

func writeDeviation(w io.Writer, d probe.Deviation) {
	fmt.Fprintf(w, "reference: %d frames, lag %d\n", d.Frames, d.LagSamples)
	for ch, name := range []string{"L", "R"} {
		fmt.Fprintf(w, "  %s gain %+.2f dB, residual %s dB\n", name, d.GainDB[ch], formatDB(d.ResidualDB[ch]))
	}
	fmt.Fprintf(w, "  spectral rmse %.2f dB\n", d.SpectralRMSEDB)
}
