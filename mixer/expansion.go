package mixer

import (
	"encoding/binary"
	"math"
)

// Mother to aux-expander message layout. These offsets are the wire contract
// between module instances and must not move.
const (
	AfmAuxSends          = 0                                // A-L, A-R, B-L, B-R, C-L, C-R, D-L, D-R
	AfmAuxVus            = AfmAuxSends + 2*NumAux           // same order, post return signals
	AfmTrackGroupNames   = AfmAuxVus + 2*NumAux             // 4 label bytes per float
	AfmUpdateSlow        = AfmTrackGroupNames + numChannels // non-zero when the slow block below is valid
	AfmPanelTheme        = AfmUpdateSlow + 1                // int32 bits
	AfmColorAndCloak     = AfmPanelTheme + 1                // 4 packed bytes
	AfmDirectAndPanModes = AfmColorAndCloak + 1             // 4 packed bytes
	AfmValue20Index      = AfmDirectAndPanModes + 1         // staggered channel fade gains
	AfmValue20           = AfmValue20Index + 1
	AfmNumValues         = AfmValue20 + 1
)

// Aux-expander to mother message layout.
const (
	MfaAuxReturns   = 0                        // A-L, A-R, B-L, B-R, C-L, C-R, D-L, D-R
	MfaValue80Index = MfaAuxReturns + 2*NumAux // staggered send levels, trk1 A-D ... grp4 A-D
	MfaValue80      = MfaValue80Index + 1
	MfaValue20Index = MfaValue80 + 1 // staggered return pan, fader, mute, solo, group
	MfaValue20      = MfaValue20Index + 1
	MfaNumValues    = MfaValue20 + 1
)

const (
	ModelMixMaster   = "MixMaster-Jr"
	ModelAuxExpander = "AuxExpander"
)

// StaggeredBatch rebuilds an N-value array sent one (index, value) pair per
// sample. Until every index has been seen once the batch is incomplete, and
// values not yet received read as zero.
type StaggeredBatch struct {
	values    []float32
	seen      []bool
	remaining int
}

// NewStaggeredBatch creates an empty batch of n slots.
func NewStaggeredBatch(n int) *StaggeredBatch {
	return &StaggeredBatch{
		values:    make([]float32, n),
		seen:      make([]bool, n),
		remaining: n,
	}
}

// Put stores value at the slot encoded in index. Malformed indices are ignored.
func (b *StaggeredBatch) Put(index, value float32) bool {
	if index != index || index < 0 || index >= float32(len(b.values)) {
		return false
	}
	i := int(index)
	b.values[i] = value
	if !b.seen[i] {
		b.seen[i] = true
		b.remaining--
	}
	return true
}

// Complete reports whether every slot has been received at least once.
func (b *StaggeredBatch) Complete() bool { return b.remaining == 0 }

// Value returns slot i.
func (b *StaggeredBatch) Value(i int) float32 { return b.values[i] }

// Values exposes the reconstructed array; callers must not keep it.
func (b *StaggeredBatch) Values() []float32 { return b.values }

// Len returns the number of slots.
func (b *StaggeredBatch) Len() int { return len(b.values) }

// Reset zero-fills the batch and marks it incomplete.
func (b *StaggeredBatch) Reset() {
	for i := range b.values {
		b.values[i] = 0
		b.seen[i] = false
	}
	b.remaining = len(b.values)
}

// packWord stores four bytes in a message float bit for bit.
func packWord(b [4]byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[:]))
}

func unpackWord(f float32) [4]byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(f))
	return b
}

func packInt32(v int32) float32 { return math.Float32frombits(uint32(v)) }

func unpackInt32(f float32) int32 { return int32(math.Float32bits(f)) }

func packInt8s(v [4]int8) float32 {
	return packWord([4]byte{byte(v[0]), byte(v[1]), byte(v[2]), byte(v[3])})
}

func unpackInt8s(f float32) [4]int8 {
	b := unpackWord(f)
	return [4]int8{int8(b[0]), int8(b[1]), int8(b[2]), int8(b[3])}
}

// packLabels writes 4 label bytes per float starting at dst[0].
func packLabels(dst []float32, labels []byte) {
	for i := range dst {
		var w [4]byte
		copy(w[:], labels[4*i:])
		dst[i] = packWord(w)
	}
}

func unpackLabels(dst []byte, src []float32) {
	for i, f := range src {
		w := unpackWord(f)
		copy(dst[4*i:], w[:])
	}
}
