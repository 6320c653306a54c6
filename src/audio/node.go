package audio

import "fmt"

// Handle identifies a live node inside an Engine.
type Handle int

// Kind is the type of processing a node performs.
type Kind int

const (
	KindNone Kind = iota
	KindOscillator
	KindGain
	KindBiquadFilter
	KindDelay
	KindDestination
)

func (k Kind) String() string {
	switch k {
	case KindOscillator:
		return "oscillator"
	case KindGain:
		return "gain"
	case KindBiquadFilter:
		return "biquad"
	case KindDelay:
		return "delay"
	case KindDestination:
		return "destination"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Parameter names understood by the engine.
const (
	ParamFrequency = "frequency"
	ParamGain      = "gain"
	ParamQ         = "Q"
	ParamDelayTime = "delayTime"
)

type node interface {
	kind() Kind
	param(name string) *param
	setType(t string) error
	// process fills out[:n] from the summed input in[:n] starting at t0.
	process(in []float64, out []float64, t0 float64, n int)
}

func newNode(k Kind) node {
	switch k {
	case KindOscillator:
		return newOscNode()
	case KindGain:
		return &gainNode{gain: newParam(1)}
	case KindBiquadFilter:
		return newBiquadNode()
	case KindDelay:
		return newDelayNode()
	case KindDestination:
		return &destinationNode{}
	}
	return nil
}

func validKind(k Kind) bool {
	return k >= KindOscillator && k < KindDestination
}

// ----- Gain ----- //

type gainNode struct {
	gain *param
}

func (g *gainNode) kind() Kind { return KindGain }
func (g *gainNode) param(name string) *param {
	if name == ParamGain {
		return g.gain
	}
	return nil
}
func (g *gainNode) setType(t string) error {
	return errNoType
}
func (g *gainNode) process(in []float64, out []float64, t0 float64, n int) {
	for i := 0; i < n; i++ {
		out[i] = in[i] * g.gain.step(t0+float64(i)*secPerSample)
	}
}

// ----- Destination ----- //

type destinationNode struct{}

func (d *destinationNode) kind() Kind               { return KindDestination }
func (d *destinationNode) param(name string) *param { return nil }
func (d *destinationNode) setType(t string) error {
	return errNoType
}
func (d *destinationNode) process(in []float64, out []float64, t0 float64, n int) {
	copy(out[:n], in[:n])
}

// ----- Frame ----- //

// frame holds per-block render state. Each node is processed at most once per
// block. Cycles are only legal through delay nodes, whose output for a block
// comes from history written in earlier blocks.
type frame struct {
	outs    map[Handle][]float64
	state   map[Handle]int
	pending []Handle
	pool    [][]float64
}

const (
	unvisited = iota
	visiting
	done
)

func newFrame() *frame {
	return &frame{
		outs:  make(map[Handle][]float64),
		state: make(map[Handle]int),
	}
}

func (f *frame) buffer() []float64 {
	if l := len(f.pool); l > 0 {
		b := f.pool[l-1]
		f.pool = f.pool[:l-1]
		return b
	}
	return make([]float64, samplesPerCycle)
}

func (f *frame) render(e *Engine, t0 float64, n int) []float64 {
	for h, b := range f.outs {
		f.pool = append(f.pool, b)
		delete(f.outs, h)
	}
	for h := range f.state {
		delete(f.state, h)
	}
	f.pending = f.pending[:0]

	out := f.pull(e, Destination, t0, n)
	// delay inputs are pulled after their outputs were read
	for len(f.pending) > 0 {
		h := f.pending[0]
		f.pending = f.pending[1:]
		in := f.sumInputs(e, h, t0, n)
		if d, ok := e.nodes[h].(*delayNode); ok {
			d.write(in, n)
		}
		f.pool = append(f.pool, in)
	}
	return out
}

func (f *frame) pull(e *Engine, h Handle, t0 float64, n int) []float64 {
	switch f.state[h] {
	case done:
		return f.outs[h]
	case visiting:
		// cycle without a delay node in it: break it with silence
		return nil
	}
	nd, ok := e.nodes[h]
	if !ok {
		return nil
	}
	out := f.buffer()
	if d, ok := nd.(*delayNode); ok {
		d.read(out, t0, n)
		f.state[h] = done
		f.outs[h] = out
		f.pending = append(f.pending, h)
		return out
	}
	f.state[h] = visiting
	in := f.sumInputs(e, h, t0, n)
	nd.process(in, out, t0, n)
	f.pool = append(f.pool, in)
	f.state[h] = done
	f.outs[h] = out
	return out
}

func (f *frame) sumInputs(e *Engine, h Handle, t0 float64, n int) []float64 {
	in := f.buffer()
	for i := 0; i < n; i++ {
		in[i] = 0
	}
	for _, src := range e.inputs[h] {
		b := f.pull(e, src, t0, n)
		for i := 0; i < len(b) && i < n; i++ {
			in[i] += b[i]
		}
	}
	return in
}
