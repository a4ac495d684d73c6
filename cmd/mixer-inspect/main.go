// Command mixer-inspect loads a mixer preset, settles the engine on probe
// tones and prints the resolved per-channel gains, pan coefficients, solo
// targets and steady-state levels. With -reference it doubles as a render
// regression check against a previously written WAV.
package main

import (
	"flag"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/cwbudde/algo-mixmaster/internal/probe"
	"github.com/cwbudde/algo-mixmaster/preset"
)

func main() {
	presetPath := flag.String("preset", "", "Mixer preset JSON file (optional)")
	auxPresetPath := flag.String("aux-preset", "", "Aux expander preset JSON file; attaches an expander (optional)")
	scriptPath := flag.String("script", "", "Lua scene script run after the presets (optional)")
	sampleRate := flag.Int("sample-rate", 48000, "Engine sample rate in Hz")
	toneHz := flag.Float64("tone-hz", 440, "Probe tone frequency in Hz")
	toneVolts := flag.Float64("tone-volts", 5, "Probe tone amplitude fed to every track when no script runs")
	settle := flag.Float64("settle", 0.5, "Seconds to run before measuring")
	duration := flag.Float64("duration", 1, "Seconds to measure")
	output := flag.String("output", "", "Write the measured master output to this WAV file (optional)")
	reference := flag.String("reference", "", "Compare the measured master output against this WAV file (optional)")
	maxResidual := flag.Float64("max-residual-db", -60, "Fail when a channel's residual against -reference exceeds this level")
	flag.Parse()

	if *sampleRate <= 0 || *toneHz <= 0 || *settle < 0 || *duration <= 0 {
		fmt.Fprintln(os.Stderr, "Error: sample-rate, tone-hz and duration must be > 0, settle must be >= 0")
		os.Exit(1)
	}

	sc, err := newScene(*sampleRate, *auxPresetPath != "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating mixer: %v\n", err)
		os.Exit(1)
	}
	sc.toneHz = *toneHz

	if *presetPath != "" {
		if err := preset.LoadJSON(*presetPath, sc.m); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading preset %q: %v\n", *presetPath, err)
			os.Exit(1)
		}
	}
	if *auxPresetPath != "" {
		if err := preset.LoadAuxJSON(*auxPresetPath, sc.aux); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading aux preset %q: %v\n", *auxPresetPath, err)
			os.Exit(1)
		}
	}

	if *scriptPath != "" {
		src, err := os.ReadFile(*scriptPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading script: %v\n", err)
			os.Exit(1)
		}
		if err := runScript(sc, *scriptPath, string(src)); err != nil {
			fmt.Fprintf(os.Stderr, "Error running script: %v\n", err)
			os.Exit(1)
		}
	} else if err := sc.feedAll(float32(*toneVolts)); err != nil {
		fmt.Fprintf(os.Stderr, "Error feeding tracks: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Settling %.2fs and measuring %.2fs at %d Hz, probe %.1f Hz\n", *settle, *duration, *sampleRate, sc.toneHz)
	buf := measure(sc, int(*settle*float64(*sampleRate)), int(*duration*float64(*sampleRate)))

	width := 0
	if fd := int(os.Stdout.Fd()); term.IsTerminal(fd) {
		if w, _, err := term.GetSize(fd); err == nil {
			width = w
		}
	}
	writeReport(os.Stdout, sc, buf.Data, width)

	if *output != "" {
		if err := probe.WriteBuffer(*output, buf); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing WAV file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s (%d frames)\n", *output, buf.NumFrames())
	}

	if *reference != "" {
		d, err := compareReference(*reference, buf)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error comparing against %q: %v\n", *reference, err)
			os.Exit(1)
		}
		writeDeviation(os.Stdout, d)
		if !d.Within(*maxResidual) {
			fmt.Fprintf(os.Stderr, "Render deviates from %s by more than %.1f dB\n", *reference, *maxResidual)
			os.Exit(1)
		}
	}
}
