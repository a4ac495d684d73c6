package host

// Expander is one side of a link between adjacent modules. The module owning
// the Expander receives on ConsumerMessage; its neighbour writes into
// ProducerMessage and calls RequestFlip. The Rack swaps the two buffers after
// every module has processed the sample, so a message written during sample n
// is read during sample n+1.
type Expander struct {
	Module          *Module
	ProducerMessage []float32
	ConsumerMessage []float32

	flipRequested bool
}

// AllocMessages gives the link a double buffer of size floats.
func (e *Expander) AllocMessages(size int) {
	e.ProducerMessage = make([]float32, size)
	e.ConsumerMessage = make([]float32, size)
}

// RequestFlip asks the Rack to publish ProducerMessage after this sample.
func (e *Expander) RequestFlip() { e.flipRequested = true }

// Present reports whether a neighbour of the given model is attached.
func (e *Expander) Present(model string) bool {
	return e.Module != nil && e.Module.Model == model
}

func (e *Expander) flip() {
	if !e.flipRequested {
		return
	}
	e.ProducerMessage, e.ConsumerMessage = e.ConsumerMessage, e.ProducerMessage
	e.flipRequested = false
}
