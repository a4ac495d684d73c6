package host

// Rack steps a row of modules once per sample, left to right, then flips any
// expander messages they requested.
type Rack struct {
	modules    []Processor
	sampleRate float32
	frame      int64
}

// NewRack creates an empty rack running at sampleRate.
func NewRack(sampleRate float32) *Rack {
	return &Rack{sampleRate: sampleRate}
}

// Add appends p to the right end of the row and links it to its left neighbour.
func (r *Rack) Add(p Processor) {
	if n := len(r.modules); n > 0 {
		link(r.modules[n-1].Module(), p.Module())
	}
	r.modules = append(r.modules, p)
	if l, ok := p.(SampleRateListener); ok {
		l.OnSampleRateChange(r.sampleRate)
	}
}

// Remove takes p out of the row and relinks its former neighbours.
func (r *Rack) Remove(p Processor) {
	for i, q := range r.modules {
		if q != p {
			continue
		}
		m := p.Module()
		m.LeftExpander.Module = nil
		m.RightExpander.Module = nil
		r.modules = append(r.modules[:i], r.modules[i+1:]...)
		if i > 0 {
			r.modules[i-1].Module().RightExpander.Module = nil
		}
		if i < len(r.modules) {
			r.modules[i].Module().LeftExpander.Module = nil
		}
		if i > 0 && i < len(r.modules) {
			link(r.modules[i-1].Module(), r.modules[i].Module())
		}
		return
	}
}

func link(left, right *Module) {
	left.RightExpander.Module = right
	right.LeftExpander.Module = left
}

// SetSampleRate changes the rate and notifies listeners.
func (r *Rack) SetSampleRate(sampleRate float32) {
	r.sampleRate = sampleRate
	for _, p := range r.modules {
		if l, ok := p.(SampleRateListener); ok {
			l.OnSampleRateChange(sampleRate)
		}
	}
}

// SampleRate returns the current rate.
func (r *Rack) SampleRate() float32 { return r.sampleRate }

// Step processes one sample on every module.
func (r *Rack) Step() {
	args := ProcessArgs{
		SampleRate: r.sampleRate,
		SampleTime: 1.0 / r.sampleRate,
		Frame:      r.frame,
	}
	for _, p := range r.modules {
		p.Process(args)
	}
	for _, p := range r.modules {
		m := p.Module()
		m.LeftExpander.flip()
		m.RightExpander.flip()
	}
	r.frame++
}

// Run steps n samples.
func (r *Rack) Run(n int) {
	for i := 0; i < n; i++ {
		r.Step()
	}
}
