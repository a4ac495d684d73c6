package mixer

// RefreshScheduler spreads control-rate work over samples. Every divider
// samples it yields the next of slots slot indices in round-robin order, so
// each slot is serviced once per slots*divider samples and no single sample
// pays for all of them. The position persists across audio blocks.
type RefreshScheduler struct {
	slots   int
	divider int
	sub     int
	index   int
}

// NewRefreshScheduler creates a scheduler; slots and divider are raised to 1.
func NewRefreshScheduler(slots, divider int) *RefreshScheduler {
	return &RefreshScheduler{slots: max(slots, 1), divider: max(divider, 1)}
}

// Tick advances one sample. ok is true when slot is due this sample.
func (r *RefreshScheduler) Tick() (slot int, ok bool) {
	if r.sub != 0 {
		r.sub++
		if r.sub >= r.divider {
			r.sub = 0
		}
		return 0, false
	}
	if r.divider > 1 {
		r.sub = 1
	}
	slot = r.index
	r.index++
	if r.index >= r.slots {
		r.index = 0
	}
	return slot, true
}

// Run advances one sample and calls fn with the due slot, if any.
func (r *RefreshScheduler) Run(fn func(slot int)) {
	if slot, ok := r.Tick(); ok {
		fn(slot)
	}
}

// Index is the slot the next service will use.
func (r *RefreshScheduler) Index() int { return r.index }

// Slots returns the cycle length.
func (r *RefreshScheduler) Slots() int { return r.slots }

// Reset rewinds to slot 0.
func (r *RefreshScheduler) Reset() {
	r.sub = 0
	r.index = 0
}
