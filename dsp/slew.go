package dsp

// SlewLimiter moves its output toward the input at a bounded rate, in units
// per second. It never overshoots and lands exactly on the target once the
// remaining distance fits in one step.
type SlewLimiter struct {
	rise float32
	fall float32
	out  float32
}

// NewSlewLimiter returns a limiter with the same rise and fall rate.
func NewSlewLimiter(rate float32) *SlewLimiter {
	s := &SlewLimiter{}
	s.SetRate(rate)
	return s
}

// SetRate sets both rise and fall rates.
func (s *SlewLimiter) SetRate(rate float32) {
	s.rise = rate
	s.fall = rate
}

// Process advances the limiter by dt seconds toward in.
func (s *SlewLimiter) Process(dt, in float32) float32 {
	switch {
	case in > s.out:
		step := s.rise * dt
		if in-s.out <= step {
			s.out = in
		} else {
			s.out += step
		}
	case in < s.out:
		step := s.fall * dt
		if s.out-in <= step {
			s.out = in
		} else {
			s.out -= step
		}
	}
	return s.out
}

// Out returns the current output.
func (s *SlewLimiter) Out() float32 { return s.out }

// Reset forces the output to v.
func (s *SlewLimiter) Reset(v float32) { s.out = v }

// SlewLimiter4 slews four lanes with a shared rate, used for 2x2 gain matrices.
type SlewLimiter4 struct {
	lanes [4]SlewLimiter
}

// SetRate sets the rate of every lane.
func (s *SlewLimiter4) SetRate(rate float32) {
	for i := range s.lanes {
		s.lanes[i].SetRate(rate)
	}
}

// Process advances all lanes toward in, writing the result to out.
func (s *SlewLimiter4) Process(dt float32, in *[4]float32, out *[4]float32) {
	for i := range s.lanes {
		out[i] = s.lanes[i].Process(dt, in[i])
	}
}

// Reset forces every lane to the matching value of v.
func (s *SlewLimiter4) Reset(v [4]float32) {
	for i := range s.lanes {
		s.lanes[i].Reset(v[i])
	}
}

// Trigger detects rising edges of a button or gate value.
type Trigger struct {
	high bool
}

// Process returns true on the sample where v crosses from low (<= 0.1) to high (>= 1).
func (t *Trigger) Process(v float32) bool {
	if t.high {
		if v <= 0.1 {
			t.high = false
		}
		return false
	}
	if v >= 1.0 {
		t.high = true
		return true
	}
	return false
}

// Reset returns the trigger to the low state.
func (t *Trigger) Reset() { t.high = false }
